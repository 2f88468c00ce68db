// internal/models/user.go
package models

// UserProfile is users/{id}. Name and company sign CRM messages; the rest is
// owned by registration, plan activation and email verification.
type UserProfile struct {
	ID      string `json:"id,omitempty"`
	Name    string `json:"name"`
	Email   string `json:"email,omitempty"`
	Company string `json:"company"`
	Phone   string `json:"phone,omitempty"`
	CPF     string `json:"cpf,omitempty"`

	Plan          string `json:"plan,omitempty"`
	Quota         int    `json:"quota,omitempty"`
	PlanStartedAt string `json:"planStartedAt,omitempty"`

	AcceptedTerms     bool   `json:"acceptedTerms,omitempty"`
	TermsAcceptanceID string `json:"termsAcceptanceId,omitempty"`
	AuthProvider      string `json:"authProvider,omitempty"`
	EmailVerified     bool   `json:"emailVerified,omitempty"`
	Activated         bool   `json:"activated,omitempty"`
	ActivatedAt       string `json:"activatedAt,omitempty"`
	CreatedAt         string `json:"createdAt,omitempty"`
	UpdatedAt         string `json:"updatedAt,omitempty"`
}

// Sender identifies who a CRM message is sent on behalf of.
type Sender struct {
	UserID  string `json:"userId"`
	Name    string `json:"name"`
	Company string `json:"company"`
}

// TokenUsage is tokenUsage/{id}: the assistant allowance of the current plan.
type TokenUsage struct {
	UID            string `json:"uid"`
	Email          string `json:"email"`
	Plan           string `json:"plan"`
	TotalTokens    int    `json:"totalTokens"`
	UsedTokens     int    `json:"usedTokens"`
	LastUpdated    string `json:"lastUpdated"`
	ExpirationDate string `json:"expirationDate"`
}

const (
	ConsentTermsAcceptance = "terms_acceptance"
	ConsentRegistration    = "registration"
	ConsentEmailVerified   = "email_verification"
	ConsentPlanPurchase    = "plan_purchase"
	ConsentAccountDeletion = "account_deletion"
)

const DefaultAuthProvider = "email"

// ConsentRecord is one gdprCompliance entry, keyed by its transaction id.
type ConsentRecord struct {
	TransactionID string `json:"transactionId"`
	UID           string `json:"uid"`
	Email         string `json:"email"`
	Type          string `json:"type"`
	AuthProvider  string `json:"authProvider,omitempty"`
	RecordedAt    string `json:"recordedAt"`

	AcceptedTerms bool   `json:"acceptedTerms,omitempty"`
	AcceptedAt    string `json:"acceptedAt,omitempty"`
	RegisteredAt  string `json:"registeredAt,omitempty"`
	EmailVerified bool   `json:"emailVerified,omitempty"`
	VerifiedAt    string `json:"verifiedAt,omitempty"`
	Plan          string `json:"plan,omitempty"`
	Tokens        int    `json:"tokens,omitempty"`
	PurchasedAt   string `json:"purchasedAt,omitempty"`
	DeletedAt     string `json:"deletedAt,omitempty"`
}

// DeletedUser blocks re-registration with an erased email.
type DeletedUser struct {
	UID       string `json:"uid"`
	Email     string `json:"email"`
	DeletedAt string `json:"deletedAt"`
}
