// internal/models/challenge.go
package models

const (
	ChatRoleUser      = "user"
	ChatRoleAssistant = "assistant"

	ChallengeStatusActive = "active"

	ApplicationStatusApplied = "inscrita"
)

// Challenge is an innovation challenge a user describes to the assistant.
// Published challenges are reachable by slug without authentication.
type Challenge struct {
	ID           string `json:"id,omitempty"`
	UserID       string `json:"userId"`
	UserEmail    string `json:"userEmail,omitempty"`
	Company      string `json:"company"`
	BusinessArea string `json:"businessArea"`
	Title        string `json:"title"`
	Description  string `json:"description"`
	SessionID    string `json:"sessionId"`
	CreatedAt    string `json:"createdAt"`

	Slug        string `json:"slug,omitempty"`
	IsPublic    bool   `json:"isPublic"`
	Status      string `json:"status,omitempty"`
	CompanyName string `json:"companyName,omitempty"`
	LogoURL     string `json:"logoUrl,omitempty"`
	Deadline    string `json:"deadline,omitempty"`
}

// PublicChallenge is what an anonymous visitor sees of a published challenge.
type PublicChallenge struct {
	ID           string `json:"id"`
	Title        string `json:"title"`
	Description  string `json:"description"`
	CompanyName  string `json:"companyName"`
	LogoURL      string `json:"logoUrl,omitempty"`
	Deadline     string `json:"deadline,omitempty"`
	BusinessArea string `json:"businessArea"`
	CreatedAt    string `json:"createdAt"`
	Status       string `json:"status"`
}

// ChatMessage is one turn of a challenge conversation. Hidden turns are the
// generated prompts and are never listed.
type ChatMessage struct {
	ID          string `json:"id,omitempty"`
	ChallengeID string `json:"challengeId"`
	UserID      string `json:"userId"`
	Role        string `json:"role"`
	Content     string `json:"content"`
	Timestamp   string `json:"timestamp"`
	Hidden      bool   `json:"hidden,omitempty"`
}

// StartupApplication is a startup signing up to a public challenge.
type StartupApplication struct {
	ID             string `json:"id,omitempty"`
	Name           string `json:"name"`
	Website        string `json:"website"`
	PitchURL       string `json:"pitchUrl,omitempty"`
	FounderName    string `json:"founderName"`
	Email          string `json:"email"`
	WhatsApp       string `json:"whatsapp"`
	Status         string `json:"status"`
	ChallengeID    string `json:"desafioId"`
	ChallengeTitle string `json:"desafioTitle"`
	CompanyName    string `json:"companyName"`
	AppliedAt      string `json:"inscritaEm"`
	UpdatedAt      string `json:"updatedAt"`
	CreatedAt      string `json:"createdAt,omitempty"`
}
