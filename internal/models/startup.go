// internal/models/startup.go
package models

// SavedStartup is a startup under CRM tracking for one user.
type SavedStartup struct {
	ID             string      `json:"id"`
	UserID         string      `json:"userId"`
	UserEmail      string      `json:"userEmail,omitempty"`
	ChallengeID    string      `json:"challengeId,omitempty"`
	ChallengeTitle string      `json:"challengeTitle,omitempty"`
	StartupName    string      `json:"startupName"`
	StartupData    StartupData `json:"startupData"`
	Stage          string      `json:"stage"`
	SelectedAt     string      `json:"selectedAt"`
	UpdatedAt      string      `json:"updatedAt"`
}

type StartupData struct {
	Name            string      `json:"name"`
	Description     string      `json:"description,omitempty"`
	Email           string      `json:"email,omitempty"`
	Website         string      `json:"website,omitempty"`
	Category        string      `json:"category,omitempty"`
	Vertical        string      `json:"vertical,omitempty"`
	City            string      `json:"city,omitempty"`
	Rating          float64     `json:"rating,omitempty"`
	ReasonForChoice string      `json:"reasonForChoice,omitempty"`
	SocialLinks     SocialLinks `json:"socialLinks,omitempty"`
	Contacts        []Contact   `json:"contacts,omitempty"`
}

type SocialLinks struct {
	LinkedIn  string `json:"linkedin,omitempty"`
	Facebook  string `json:"facebook,omitempty"`
	Twitter   string `json:"twitter,omitempty"`
	Instagram string `json:"instagram,omitempty"`
}
