// internal/models/message.go
package models

const (
	ChannelEmail    = "email"
	ChannelWhatsApp = "whatsapp"

	MessageStatusSent   = "sent"
	MessageStatusFailed = "failed"
)

// CrmMessage records one send attempt. Written once, never updated.
type CrmMessage struct {
	ID             string `json:"id,omitempty"`
	StartupID      string `json:"startupId"`
	UserID         string `json:"userId"`
	SenderName     string `json:"senderName"`
	RecipientName  string `json:"recipientName"`
	RecipientEmail string `json:"recipientEmail,omitempty"`
	RecipientPhone string `json:"recipientPhone,omitempty"`
	RecipientType  string `json:"recipientType"`
	MessageType    string `json:"messageType"`
	Subject        string `json:"subject,omitempty"`
	Message        string `json:"message"`
	SentAt         string `json:"sentAt"`
	Status         string `json:"status"`
	Error          string `json:"error,omitempty"`
	Automatic      bool   `json:"automatic"`
	MultiContact   bool   `json:"multiContact,omitempty"`
	StageID        string `json:"stageId,omitempty"`
	ContactID      string `json:"contactId,omitempty"`
}

type EmailAddress struct {
	Email string `json:"email"`
	Name  string `json:"name"`
}

// EmailPayload is a pending outbound email picked up by the mail relay.
type EmailPayload struct {
	To       []EmailAddress         `json:"to"`
	From     EmailAddress           `json:"from"`
	Subject  string                 `json:"subject"`
	HTML     string                 `json:"html"`
	Text     string                 `json:"text"`
	ReplyTo  EmailAddress           `json:"reply_to"`
	Tags     []string               `json:"tags"`
	Metadata map[string]interface{} `json:"metadata"`
	Delivery *Delivery              `json:"delivery,omitempty"`
}

const (
	DeliveryPending = "PENDING"
	DeliverySending = "PROCESSING"
	DeliverySuccess = "SUCCESS"
	DeliveryError   = "ERROR"
)

type Delivery struct {
	State     string `json:"state"`
	Attempts  int    `json:"attempts"`
	Error     string `json:"error,omitempty"`
	MessageID string `json:"messageId,omitempty"`
	EndTime   string `json:"endTime,omitempty"`
}

// TimestampLayout matches the millisecond ISO-8601 UTC strings stored on
// documents so they sort lexically.
const TimestampLayout = "2006-01-02T15:04:05.000Z"
