// internal/models/stage.go
package models

// PipelineStage is one column of a user's CRM board.
type PipelineStage struct {
	ID               string `json:"id"`
	Name             string `json:"name"`
	Color            string `json:"color"`
	Order            int    `json:"order"`
	EmailSubject     string `json:"emailSubject,omitempty"`
	EmailTemplate    string `json:"emailTemplate,omitempty"`
	WhatsAppTemplate string `json:"whatsappTemplate,omitempty"`
}

// StageDocument is the persisted form of a user's stage list.
type StageDocument struct {
	Stages    []PipelineStage `json:"stages"`
	UpdatedAt string          `json:"updatedAt"`
}

// BoardColumn is a stage with the startups currently on it.
type BoardColumn struct {
	Stage    PipelineStage  `json:"stage"`
	Startups []SavedStartup `json:"startups"`
}
