package stagetransition

type Input struct {
	UserID    string `json:"userId"`
	StartupID string `json:"startupId"`
	StageID   string `json:"stageId"`
}

type Output struct {
	StageUpdated    bool     `json:"stageUpdated"`
	FromStage       string   `json:"fromStage"`
	ToStage         string   `json:"toStage"`
	Status          string   `json:"status"`
	EmailsSent      int      `json:"emailsSent"`
	EmailsFailed    int      `json:"emailsFailed"`
	WhatsAppsSent   int      `json:"whatsappsSent"`
	WhatsAppsFailed int      `json:"whatsappsFailed"`
	TotalContacts   int      `json:"totalContacts"`
	Errors          []string `json:"errors,omitempty"`
}
