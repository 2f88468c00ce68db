// Package composer sends one-off messages typed by the user to a single
// contact of a tracked startup.
package composer

import (
	"context"
	"strings"
	"time"

	apperrors "innovation-crm/internal/common/errors"
	"innovation-crm/internal/common/logger"
	"innovation-crm/internal/common/metrics"
	"innovation-crm/internal/crm/contacts"
	"innovation-crm/internal/crm/dispatch"
	"innovation-crm/internal/crm/outbox"
	"innovation-crm/internal/crm/phone"
	"innovation-crm/internal/models"
)

type SenderDirectory interface {
	Sender(ctx context.Context, userID string) (models.Sender, error)
}

// Request is a manual message. To picks one of the contact's addresses and
// defaults to the first one.
type Request struct {
	StartupID string `json:"startupId"`
	ContactID string `json:"contactId"`
	Channel   string `json:"channel" binding:"required,oneof=email whatsapp"`
	Subject   string `json:"subject"`
	Message   string `json:"message" binding:"required"`
	To        string `json:"to"`
}

type Composer struct {
	contacts *contacts.Manager
	senders  SenderDirectory
	emails   dispatch.EmailQueue
	whatsapp dispatch.WhatsAppSender
	log      dispatch.MessageLog
	logger   logger.Logger
	now      func() time.Time
}

func New(manager *contacts.Manager, senders SenderDirectory, emails dispatch.EmailQueue, whatsapp dispatch.WhatsAppSender, log dispatch.MessageLog, l logger.Logger) *Composer {
	return &Composer{
		contacts: manager,
		senders:  senders,
		emails:   emails,
		whatsapp: whatsapp,
		log:      log,
		logger:   l,
		now:      time.Now,
	}
}

// Send delivers the message and records it on the startup's timeline. A
// failed send is returned and nothing is recorded.
func (c *Composer) Send(ctx context.Context, userID string, req Request) (*models.CrmMessage, error) {
	if strings.TrimSpace(req.Message) == "" {
		return nil, apperrors.NewValidationFailedError("message is required")
	}

	startup, contact, err := c.contacts.Find(ctx, userID, req.StartupID, req.ContactID)
	if err != nil {
		return nil, err
	}
	sender, err := c.senders.Sender(ctx, userID)
	if err != nil {
		return nil, err
	}

	recipientType := contact.Type
	if recipientType == "" {
		recipientType = models.ContactTypeStartup
	}
	stamp := c.now().UTC().Format(models.TimestampLayout)
	msg := &models.CrmMessage{
		StartupID:     startup.ID,
		UserID:        userID,
		SenderName:    sender.Name,
		RecipientName: contact.Name,
		RecipientType: recipientType,
		MessageType:   req.Channel,
		Message:       req.Message,
		SentAt:        stamp,
		ContactID:     contact.ID,
	}

	switch req.Channel {
	case models.ChannelEmail:
		err = c.sendEmail(ctx, msg, req, contact, sender)
	case models.ChannelWhatsApp:
		err = c.sendWhatsApp(ctx, msg, req, contact)
	default:
		return nil, apperrors.NewValidationFailedError("channel must be email or whatsapp")
	}
	if err != nil {
		metrics.NotificationsTotal.WithLabelValues(req.Channel, models.MessageStatusFailed).Inc()
		c.logger.Error("Manual message failed", map[string]interface{}{
			"startupId": startup.ID,
			"contactId": contact.ID,
			"channel":   req.Channel,
			"error":     err,
		})
		return nil, err
	}

	msg.Status = models.MessageStatusSent
	metrics.NotificationsTotal.WithLabelValues(req.Channel, msg.Status).Inc()
	if err := c.log.Record(ctx, msg); err != nil {
		c.logger.Warn("Failed to record CRM message", map[string]interface{}{
			"startupId": startup.ID,
			"channel":   req.Channel,
			"error":     err,
		})
	}
	return msg, nil
}

func (c *Composer) sendEmail(ctx context.Context, msg *models.CrmMessage, req Request, contact *models.Contact, sender models.Sender) error {
	if strings.TrimSpace(req.Subject) == "" {
		return apperrors.NewValidationFailedError("subject is required for email")
	}
	addr, err := pick(contact.EmailAddresses(), req.To, strings.EqualFold)
	if err != nil {
		return err
	}
	if addr == "" {
		return apperrors.NewValidationFailedError("contact has no email address")
	}

	html, err := outbox.RenderHTML(req.Message, sender.Name, sender.Company, false)
	if err != nil {
		return apperrors.NewEmailEnqueueFailedError(err)
	}
	if _, err := c.emails.Enqueue(ctx, &models.EmailPayload{
		To:      []models.EmailAddress{{Email: addr, Name: contact.Name}},
		Subject: req.Subject,
		HTML:    html,
		Text:    req.Message,
		Tags:    []string{"crm", "startup-interaction"},
		Metadata: map[string]interface{}{
			"startupId":     msg.StartupID,
			"userId":        msg.UserID,
			"recipientType": msg.RecipientType,
			"timestamp":     msg.SentAt,
		},
	}); err != nil {
		return err
	}

	msg.RecipientEmail = addr
	msg.Subject = req.Subject
	return nil
}

func (c *Composer) sendWhatsApp(ctx context.Context, msg *models.CrmMessage, req Request, contact *models.Contact) error {
	sameDigits := func(a, b string) bool { return phone.Digits(a) == phone.Digits(b) }
	raw, err := pick(contact.PhoneNumbers(), req.To, sameDigits)
	if err != nil {
		return err
	}
	if raw == "" {
		return apperrors.NewValidationFailedError("contact has no phone number")
	}
	if !phone.Valid(raw) {
		return apperrors.NewInvalidPhoneError(raw)
	}

	number := phone.FormatBrazil(raw)
	if err := c.whatsapp.SendText(ctx, number, req.Message); err != nil {
		return err
	}
	msg.RecipientPhone = number
	return nil
}

// pick returns want when it is one of options, or the first option when want
// is empty.
func pick(options []string, want string, equal func(a, b string) bool) (string, error) {
	if want == "" {
		if len(options) == 0 {
			return "", nil
		}
		return options[0], nil
	}
	for _, o := range options {
		if equal(o, want) {
			return o, nil
		}
	}
	return "", apperrors.NewValidationFailedError("recipient does not belong to the contact: " + want)
}
