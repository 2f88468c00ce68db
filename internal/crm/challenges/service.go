// Package challenges keeps the innovation challenges users describe to the
// recommendation assistant, and the conversation held for each of them.
package challenges

import (
	"context"
	"fmt"
	"strings"
	"time"

	"innovation-crm/internal/common/docstore"
	apperrors "innovation-crm/internal/common/errors"
	"innovation-crm/internal/common/logger"
	"innovation-crm/internal/crm/assistant"
	"innovation-crm/internal/models"

	"github.com/google/uuid"
)

const (
	anonymousName    = "Anônimo"
	anonymousCompany = "Não informada"

	// FallbackReply is stored as the assistant's turn when the webhook fails.
	FallbackReply = "Desculpe, ocorreu um erro ao processar sua mensagem. Por favor, tente novamente."
)

// Asker sends one message within an assistant session.
type Asker interface {
	Ask(ctx context.Context, message, sessionID string, isAnonymous bool) (*assistant.Reply, error)
}

// SenderDirectory resolves the name and company a challenge is opened with.
type SenderDirectory interface {
	Sender(ctx context.Context, userID string) (models.Sender, error)
}

// NewChallenge is what the user fills in to open a challenge.
type NewChallenge struct {
	Title        string `json:"title" binding:"required"`
	Description  string `json:"description" binding:"required"`
	BusinessArea string `json:"businessArea" binding:"required"`
}

// Created is a new challenge and the assistant's opening turn. Reply is nil
// when the assistant could not be reached.
type Created struct {
	Challenge *models.Challenge   `json:"challenge"`
	Reply     *models.ChatMessage `json:"reply,omitempty"`
}

type Service struct {
	docs       docstore.Store
	assistant  Asker
	senders    SenderDirectory
	logger     logger.Logger
	now        func() time.Time
	newSession func() string
}

func NewService(docs docstore.Store, asker Asker, senders SenderDirectory, log logger.Logger) *Service {
	return &Service{
		docs:      docs,
		assistant: asker,
		senders:   senders,
		logger:    log,
		now:       time.Now,
		newSession: func() string {
			return strings.ReplaceAll(uuid.NewString(), "-", "")
		},
	}
}

func (s *Service) stamp() string {
	return s.now().UTC().Format(models.TimestampLayout)
}

// Create stores the challenge, then opens the assistant session with a hidden
// prompt built from the challenge and the user's profile. The challenge is
// kept when the assistant fails; the error is returned with it.
func (s *Service) Create(ctx context.Context, userID, userEmail string, req NewChallenge) (*Created, error) {
	req.Title = strings.TrimSpace(req.Title)
	req.Description = strings.TrimSpace(req.Description)
	req.BusinessArea = strings.TrimSpace(req.BusinessArea)
	if req.Title == "" || req.Description == "" || req.BusinessArea == "" {
		return nil, apperrors.NewValidationFailedError("title, description and businessArea are required")
	}

	sender, err := s.senders.Sender(ctx, userID)
	if err != nil {
		return nil, err
	}
	name, company := sender.Name, sender.Company
	if strings.TrimSpace(name) == "" {
		name = anonymousName
	}
	if strings.TrimSpace(company) == "" {
		company = anonymousCompany
	}

	ch := &models.Challenge{
		UserID:       userID,
		UserEmail:    userEmail,
		Company:      company,
		BusinessArea: req.BusinessArea,
		Title:        req.Title,
		Description:  req.Description,
		SessionID:    s.newSession(),
		CreatedAt:    s.stamp(),
	}
	data, err := docstore.ToMap(ch)
	if err != nil {
		return nil, apperrors.NewDocumentStoreError("encode_challenge", err)
	}
	delete(data, "id")
	if ch.ID, err = s.docs.Add(ctx, docstore.CollectionChallenges, data); err != nil {
		return nil, err
	}

	s.logger.Info("Challenge created", map[string]interface{}{
		"userId":      userID,
		"challengeId": ch.ID,
	})

	created := &Created{Challenge: ch}
	prompt := openingPrompt(name, company, req)
	reply, err := s.assistant.Ask(ctx, prompt, ch.SessionID, false)
	if err != nil {
		s.logger.Error("Assistant failed to open challenge", map[string]interface{}{
			"challengeId": ch.ID,
			"error":       err,
		})
		return created, err
	}

	if _, err := s.record(ctx, ch, models.ChatRoleUser, prompt, true); err != nil {
		return created, err
	}
	if created.Reply, err = s.record(ctx, ch, models.ChatRoleAssistant, reply.Output, false); err != nil {
		return created, err
	}
	return created, nil
}

func openingPrompt(name, company string, req NewChallenge) string {
	firstName := strings.Fields(name)[0]
	return fmt.Sprintf("Eu sou %s, um profissional gestor antenado nas novidades e que curte uma fala informal e ao mesmo tempo séria nos assuntos relativos ao Desafio. "+
		"Eu trabalho na empresa %s que atua na área de %s. O meu desafio é %s e a descrição do desafio é %s. "+
		"Faça uma breve saudação bem humorada e criativa que remete à cultura Geek e que tenha ligação direta com o desafio proposto.",
		firstName, company, req.BusinessArea, req.Title, req.Description)
}

// List returns the user's challenges, newest first.
func (s *Service) List(ctx context.Context, userID string) ([]models.Challenge, error) {
	docs, err := s.docs.Query(ctx, docstore.Query{
		Collection: docstore.CollectionChallenges,
		OrderBy:    "createdAt",
		Descending: true,
	}.Where("userId", userID))
	if err != nil {
		return nil, err
	}
	return decodeChallenges(docs)
}

// Get returns one of the user's challenges.
func (s *Service) Get(ctx context.Context, userID, challengeID string) (*models.Challenge, error) {
	doc, err := s.docs.Get(ctx, docstore.CollectionChallenges, challengeID)
	if err != nil {
		if apperrors.HasCode(err, apperrors.ErrCodeDocumentNotFound) {
			return nil, apperrors.NewChallengeNotFoundError(challengeID)
		}
		return nil, err
	}
	var ch models.Challenge
	if err := doc.DataTo(&ch); err != nil {
		return nil, apperrors.NewDocumentStoreError("decode_challenge", err)
	}
	if ch.UserID != userID {
		return nil, apperrors.NewChallengeNotFoundError(challengeID)
	}
	ch.ID = doc.ID
	return &ch, nil
}

// Messages returns the visible conversation of a challenge in order.
func (s *Service) Messages(ctx context.Context, userID, challengeID string) ([]models.ChatMessage, error) {
	if _, err := s.Get(ctx, userID, challengeID); err != nil {
		return nil, err
	}
	docs, err := s.docs.Query(ctx, docstore.Query{
		Collection: docstore.CollectionMessages,
		OrderBy:    "timestamp",
	}.Where("challengeId", challengeID))
	if err != nil {
		return nil, err
	}

	out := make([]models.ChatMessage, 0, len(docs))
	for i := range docs {
		var m models.ChatMessage
		if err := docs[i].DataTo(&m); err != nil {
			return nil, apperrors.NewDocumentStoreError("decode_message", err)
		}
		if m.Hidden {
			continue
		}
		m.ID = docs[i].ID
		out = append(out, m)
	}
	return out, nil
}

// Send records the user's turn, asks the assistant within the challenge's
// session and records the answer. When the assistant fails a fallback turn
// is recorded and the error returned.
func (s *Service) Send(ctx context.Context, userID, challengeID, content string) (*models.ChatMessage, error) {
	content = strings.TrimSpace(content)
	if content == "" {
		return nil, apperrors.NewValidationFailedError("message is required")
	}
	ch, err := s.Get(ctx, userID, challengeID)
	if err != nil {
		return nil, err
	}

	if _, err := s.record(ctx, ch, models.ChatRoleUser, content, false); err != nil {
		return nil, err
	}

	reply, askErr := s.assistant.Ask(ctx, content, ch.SessionID, false)
	if askErr != nil {
		s.logger.Error("Assistant failed to answer", map[string]interface{}{
			"challengeId": ch.ID,
			"error":       askErr,
		})
		if _, err := s.record(context.WithoutCancel(ctx), ch, models.ChatRoleAssistant, FallbackReply, false); err != nil {
			s.logger.Warn("Failed to record fallback reply", map[string]interface{}{
				"challengeId": ch.ID,
				"error":       err,
			})
		}
		return nil, askErr
	}
	return s.record(ctx, ch, models.ChatRoleAssistant, reply.Output, false)
}

func (s *Service) record(ctx context.Context, ch *models.Challenge, role, content string, hidden bool) (*models.ChatMessage, error) {
	msg := &models.ChatMessage{
		ChallengeID: ch.ID,
		UserID:      ch.UserID,
		Role:        role,
		Content:     content,
		Timestamp:   s.stamp(),
		Hidden:      hidden,
	}
	data, err := docstore.ToMap(msg)
	if err != nil {
		return nil, apperrors.NewDocumentStoreError("encode_message", err)
	}
	delete(data, "id")
	if msg.ID, err = s.docs.Add(ctx, docstore.CollectionMessages, data); err != nil {
		return nil, err
	}
	return msg, nil
}

func decodeChallenges(docs []docstore.Document) ([]models.Challenge, error) {
	out := make([]models.Challenge, 0, len(docs))
	for i := range docs {
		var ch models.Challenge
		if err := docs[i].DataTo(&ch); err != nil {
			return nil, apperrors.NewDocumentStoreError("decode_challenge", err)
		}
		ch.ID = docs[i].ID
		out = append(out, ch)
	}
	return out, nil
}
