// Package account covers the lifecycle of a user outside the pipeline:
// registration with terms acceptance, email verification, plan purchase,
// and erasure. Every step leaves a consent record in gdprCompliance.
package account

import (
	"context"
	"strings"
	"time"

	"innovation-crm/internal/common/docstore"
	apperrors "innovation-crm/internal/common/errors"
	"innovation-crm/internal/common/logger"
	"innovation-crm/internal/models"

	"github.com/google/uuid"
)

// Identity is what the access token says about the caller.
type Identity struct {
	UserID        string
	Email         string
	EmailVerified bool
}

// Registration is the sign-up form.
type Registration struct {
	Name          string `json:"name" binding:"required"`
	CPF           string `json:"cpf"`
	Company       string `json:"company"`
	Phone         string `json:"phone"`
	AcceptedTerms bool   `json:"acceptedTerms"`
	AuthProvider  string `json:"authProvider"`
}

// ProfileCache drops cached profile data after the users document changes.
type ProfileCache interface {
	Invalidate(ctx context.Context, userID string)
}

type Service struct {
	docs           docstore.Store
	profiles       ProfileCache
	logger         logger.Logger
	now            func() time.Time
	newTransaction func() string
}

func NewService(docs docstore.Store, profiles ProfileCache, log logger.Logger) *Service {
	return &Service{
		docs:           docs,
		profiles:       profiles,
		logger:         log,
		now:            time.Now,
		newTransaction: uuid.NewString,
	}
}

func (s *Service) stamp(t time.Time) string {
	return t.UTC().Format(models.TimestampLayout)
}

// Register creates the users document on the free plan, grants the free
// token allowance and records terms acceptance. Registering twice returns
// the existing profile untouched.
func (s *Service) Register(ctx context.Context, id Identity, reg Registration) (*models.UserProfile, error) {
	if !reg.AcceptedTerms {
		return nil, apperrors.NewTermsNotAcceptedError()
	}
	email := strings.ToLower(strings.TrimSpace(id.Email))
	if email == "" {
		return nil, apperrors.NewValidationFailedError("the access token carries no email")
	}
	if strings.TrimSpace(reg.Name) == "" {
		return nil, apperrors.NewValidationFailedError("name is required")
	}

	deleted, err := s.IsDeleted(ctx, email)
	if err != nil {
		return nil, err
	}
	if deleted {
		return nil, apperrors.NewAccountDeletedError(email)
	}

	if existing, err := s.docs.Get(ctx, docstore.CollectionUsers, id.UserID); err == nil {
		var p models.UserProfile
		if err := existing.DataTo(&p); err != nil {
			return nil, apperrors.NewDocumentStoreError("decode_profile", err)
		}
		if p.CreatedAt != "" {
			p.ID = id.UserID
			return &p, nil
		}
	} else if !apperrors.HasCode(err, apperrors.ErrCodeDocumentNotFound) {
		return nil, err
	}

	provider := strings.TrimSpace(reg.AuthProvider)
	if provider == "" {
		provider = models.DefaultAuthProvider
	}
	now := s.now()
	termsID := s.newTransaction()

	profile := &models.UserProfile{
		Name:              strings.TrimSpace(reg.Name),
		Email:             email,
		Company:           strings.TrimSpace(reg.Company),
		Phone:             strings.TrimSpace(reg.Phone),
		CPF:               strings.TrimSpace(reg.CPF),
		Plan:              FreePlanName,
		AcceptedTerms:     true,
		TermsAcceptanceID: termsID,
		AuthProvider:      provider,
		EmailVerified:     id.EmailVerified,
		CreatedAt:         s.stamp(now),
		UpdatedAt:         s.stamp(now),
	}
	data, err := docstore.ToMap(profile)
	if err != nil {
		return nil, apperrors.NewDocumentStoreError("encode_profile", err)
	}
	if err := s.docs.Set(ctx, docstore.CollectionUsers, id.UserID, data); err != nil {
		return nil, err
	}
	profile.ID = id.UserID
	s.profiles.Invalidate(ctx, id.UserID)

	if _, err := s.grantTokens(ctx, id.UserID, email, FreePlanName, FreePlanTokens, now); err != nil {
		return nil, err
	}

	if err := s.recordConsent(ctx, models.ConsentRecord{
		TransactionID: termsID,
		UID:           id.UserID,
		Email:         email,
		Type:          models.ConsentTermsAcceptance,
		AuthProvider:  provider,
		AcceptedTerms: true,
		AcceptedAt:    s.stamp(now),
	}); err != nil {
		return nil, err
	}
	if err := s.recordConsent(ctx, models.ConsentRecord{
		UID:          id.UserID,
		Email:        email,
		Type:         models.ConsentRegistration,
		AuthProvider: provider,
		RegisteredAt: s.stamp(now),
	}); err != nil {
		return nil, err
	}

	s.logger.Info("Account registered", map[string]interface{}{
		"userId":       id.UserID,
		"authProvider": provider,
	})
	return profile, nil
}

// VerifyEmail activates the account once the identity provider reports the
// email as verified.
func (s *Service) VerifyEmail(ctx context.Context, id Identity) error {
	if !id.EmailVerified {
		return apperrors.NewBusinessRuleError("Email not verified", "the identity provider has not verified "+id.Email)
	}
	now := s.stamp(s.now())
	if err := s.mergeUser(ctx, id.UserID, map[string]interface{}{
		"emailVerified": true,
		"activated":     true,
		"activatedAt":   now,
		"updatedAt":     now,
	}); err != nil {
		return err
	}

	return s.recordConsent(ctx, models.ConsentRecord{
		UID:           id.UserID,
		Email:         strings.ToLower(id.Email),
		Type:          models.ConsentEmailVerified,
		EmailVerified: true,
		VerifiedAt:    now,
	})
}

// ActivatePlan moves the user to a purchased plan: the profile gets the plan
// name and startup quota, and the token allowance is reset for a month.
func (s *Service) ActivatePlan(ctx context.Context, id Identity, planID string) (*models.TokenUsage, error) {
	plan, err := LookupPlan(planID)
	if err != nil {
		return nil, err
	}
	now := s.now()
	email := strings.ToLower(id.Email)

	if err := s.mergeUser(ctx, id.UserID, map[string]interface{}{
		"plan":          plan.Name,
		"quota":         plan.Quota,
		"planStartedAt": s.stamp(now),
		"updatedAt":     s.stamp(now),
	}); err != nil {
		return nil, err
	}

	usage, err := s.grantTokens(ctx, id.UserID, email, plan.Name, plan.Tokens, now)
	if err != nil {
		return nil, err
	}

	if err := s.recordConsent(ctx, models.ConsentRecord{
		UID:         id.UserID,
		Email:       email,
		Type:        models.ConsentPlanPurchase,
		Plan:        plan.Name,
		Tokens:      plan.Tokens,
		PurchasedAt: s.stamp(now),
	}); err != nil {
		return nil, err
	}

	s.logger.Info("Plan activated", map[string]interface{}{
		"userId": id.UserID,
		"plan":   plan.ID,
		"quota":  plan.Quota,
	})
	return usage, nil
}

// Usage returns the user's current token allowance.
func (s *Service) Usage(ctx context.Context, userID string) (*models.TokenUsage, error) {
	doc, err := s.docs.Get(ctx, docstore.CollectionTokenUsage, userID)
	if err != nil {
		return nil, err
	}
	var usage models.TokenUsage
	if err := doc.DataTo(&usage); err != nil {
		return nil, apperrors.NewDocumentStoreError("decode_token_usage", err)
	}
	return &usage, nil
}

func (s *Service) grantTokens(ctx context.Context, userID, email, plan string, tokens int, now time.Time) (*models.TokenUsage, error) {
	usage := &models.TokenUsage{
		UID:            userID,
		Email:          email,
		Plan:           plan,
		TotalTokens:    tokens,
		UsedTokens:     0,
		LastUpdated:    s.stamp(now),
		ExpirationDate: s.stamp(now.AddDate(0, 1, 0)),
	}
	data, err := docstore.ToMap(usage)
	if err != nil {
		return nil, apperrors.NewDocumentStoreError("encode_token_usage", err)
	}
	if err := s.docs.Set(ctx, docstore.CollectionTokenUsage, userID, data); err != nil {
		return nil, err
	}
	return usage, nil
}

func (s *Service) mergeUser(ctx context.Context, userID string, fields map[string]interface{}) error {
	err := s.docs.Update(ctx, docstore.CollectionUsers, userID, fields)
	if apperrors.HasCode(err, apperrors.ErrCodeDocumentNotFound) {
		err = s.docs.Set(ctx, docstore.CollectionUsers, userID, fields)
	}
	if err != nil {
		return err
	}
	s.profiles.Invalidate(ctx, userID)
	return nil
}
