package account

import (
	"context"
	"strings"

	"innovation-crm/internal/common/docstore"
	apperrors "innovation-crm/internal/common/errors"
	"innovation-crm/internal/models"
)

// recordConsent stores r under its transaction id, generating one when empty.
func (s *Service) recordConsent(ctx context.Context, r models.ConsentRecord) error {
	if r.TransactionID == "" {
		r.TransactionID = s.newTransaction()
	}
	r.RecordedAt = s.stamp(s.now())
	data, err := docstore.ToMap(r)
	if err != nil {
		return apperrors.NewDocumentStoreError("encode_consent", err)
	}
	return s.docs.Set(ctx, docstore.CollectionGdprCompliance, r.TransactionID, data)
}

// ListConsents returns the consent trail of a user, oldest first.
func (s *Service) ListConsents(ctx context.Context, userID string) ([]models.ConsentRecord, error) {
	docs, err := s.docs.Query(ctx, docstore.Query{
		Collection: docstore.CollectionGdprCompliance,
		OrderBy:    "recordedAt",
	}.Where("uid", userID))
	if err != nil {
		return nil, err
	}
	out := make([]models.ConsentRecord, 0, len(docs))
	for i := range docs {
		var r models.ConsentRecord
		if err := docs[i].DataTo(&r); err != nil {
			return nil, apperrors.NewDocumentStoreError("decode_consent", err)
		}
		out = append(out, r)
	}
	return out, nil
}

// IsDeleted reports whether email belongs to an erased account.
func (s *Service) IsDeleted(ctx context.Context, email string) (bool, error) {
	docs, err := s.docs.Query(ctx, docstore.Query{
		Collection: docstore.CollectionDeletedUsers,
		Limit:      1,
	}.Where("email", strings.ToLower(strings.TrimSpace(email))))
	if err != nil {
		return false, err
	}
	return len(docs) > 0, nil
}

// DeleteAccount erases the user's profile, allowance, challenges and their
// conversations. The email is remembered in deletedUsers so it cannot sign
// up again, and the consent trail is kept.
func (s *Service) DeleteAccount(ctx context.Context, id Identity) error {
	now := s.stamp(s.now())
	email := strings.ToLower(strings.TrimSpace(id.Email))

	tombstone, err := docstore.ToMap(models.DeletedUser{UID: id.UserID, Email: email, DeletedAt: now})
	if err != nil {
		return apperrors.NewDocumentStoreError("encode_deleted_user", err)
	}
	if err := s.docs.Set(ctx, docstore.CollectionDeletedUsers, id.UserID, tombstone); err != nil {
		return err
	}

	challenges, err := s.docs.Query(ctx, docstore.Query{
		Collection: docstore.CollectionChallenges,
	}.Where("userId", id.UserID))
	if err != nil {
		return err
	}
	for _, ch := range challenges {
		msgs, err := s.docs.Query(ctx, docstore.Query{
			Collection: docstore.CollectionMessages,
		}.Where("challengeId", ch.ID))
		if err != nil {
			return err
		}
		for _, m := range msgs {
			if err := s.docs.Delete(ctx, docstore.CollectionMessages, m.ID); err != nil {
				return err
			}
		}
		if err := s.docs.Delete(ctx, docstore.CollectionChallenges, ch.ID); err != nil {
			return err
		}
	}

	if err := s.docs.Delete(ctx, docstore.CollectionTokenUsage, id.UserID); err != nil {
		return err
	}
	if err := s.docs.Delete(ctx, docstore.CollectionUsers, id.UserID); err != nil {
		return err
	}
	s.profiles.Invalidate(ctx, id.UserID)

	if err := s.recordConsent(ctx, models.ConsentRecord{
		UID:       id.UserID,
		Email:     email,
		Type:      models.ConsentAccountDeletion,
		DeletedAt: now,
	}); err != nil {
		return err
	}

	s.logger.Info("Account deleted", map[string]interface{}{
		"userId":     id.UserID,
		"challenges": len(challenges),
	})
	return nil
}
