// Package startups persists the startups a user tracks on the CRM board.
package startups

import (
	"context"
	"time"

	"innovation-crm/internal/common/docstore"
	apperrors "innovation-crm/internal/common/errors"
	"innovation-crm/internal/models"
)

// Repository reads and writes selectedStartups documents.
type Repository struct {
	store docstore.Store
	now   func() time.Time
}

func NewRepository(store docstore.Store) *Repository {
	return &Repository{store: store, now: time.Now}
}

// Get loads a startup owned by userID. Startups of other users are reported
// as not found.
func (r *Repository) Get(ctx context.Context, userID, startupID string) (*models.SavedStartup, error) {
	doc, err := r.store.Get(ctx, docstore.CollectionSelectedStartups, startupID)
	if err != nil {
		if apperrors.HasCode(err, apperrors.ErrCodeDocumentNotFound) {
			return nil, apperrors.NewStartupNotFoundError(startupID)
		}
		return nil, err
	}

	var startup models.SavedStartup
	if err := doc.DataTo(&startup); err != nil {
		return nil, apperrors.NewDocumentStoreError("decode_startup", err)
	}
	startup.ID = doc.ID

	if startup.UserID != userID {
		return nil, apperrors.NewStartupNotFoundError(startupID)
	}
	return &startup, nil
}

// Create stores a new tracked startup on the given stage.
func (r *Repository) Create(ctx context.Context, startup *models.SavedStartup) error {
	stamp := r.timestamp()
	if startup.SelectedAt == "" {
		startup.SelectedAt = stamp
	}
	startup.UpdatedAt = stamp
	if startup.StartupName == "" {
		startup.StartupName = startup.StartupData.Name
	}

	data, err := docstore.ToMap(startup)
	if err != nil {
		return apperrors.NewDocumentStoreError("encode_startup", err)
	}
	delete(data, "id")

	id, err := r.store.Add(ctx, docstore.CollectionSelectedStartups, data)
	if err != nil {
		return err
	}
	startup.ID = id
	return nil
}

// Remove deletes one tracked startup after checking ownership.
func (r *Repository) Remove(ctx context.Context, userID, startupID string) error {
	if _, err := r.Get(ctx, userID, startupID); err != nil {
		return err
	}
	return r.store.Delete(ctx, docstore.CollectionSelectedStartups, startupID)
}

// UpdateStage persists the startup's new stage and returns the timestamp used.
func (r *Repository) UpdateStage(ctx context.Context, startupID, stageID string) (string, error) {
	stamp := r.timestamp()
	err := r.store.Update(ctx, docstore.CollectionSelectedStartups, startupID, map[string]interface{}{
		"stage":     stageID,
		"updatedAt": stamp,
	})
	if err != nil {
		return "", apperrors.NewStagePersistFailedError(startupID, err)
	}
	return stamp, nil
}

// ListByUser returns the user's startups ordered by selection time.
func (r *Repository) ListByUser(ctx context.Context, userID string) ([]models.SavedStartup, error) {
	return r.list(ctx, docstore.Query{
		Collection: docstore.CollectionSelectedStartups,
		OrderBy:    "selectedAt",
	}.Where("userId", userID))
}

// ListByStage returns the user's startups on one stage.
func (r *Repository) ListByStage(ctx context.Context, userID, stageID string) ([]models.SavedStartup, error) {
	return r.list(ctx, docstore.Query{Collection: docstore.CollectionSelectedStartups}.
		Where("userId", userID).
		Where("stage", stageID))
}

// SetContacts overwrites startupData.contacts and keeps every other field of
// startupData as stored.
func (r *Repository) SetContacts(ctx context.Context, startupID string, contacts []models.Contact) error {
	doc, err := r.store.Get(ctx, docstore.CollectionSelectedStartups, startupID)
	if err != nil {
		if apperrors.HasCode(err, apperrors.ErrCodeDocumentNotFound) {
			return apperrors.NewStartupNotFoundError(startupID)
		}
		return err
	}

	data, _ := doc.Data["startupData"].(map[string]interface{})
	if data == nil {
		data = map[string]interface{}{}
	}

	encoded := make([]interface{}, 0, len(contacts))
	for _, c := range contacts {
		m, err := docstore.ToMap(c)
		if err != nil {
			return apperrors.NewDocumentStoreError("encode_contact", err)
		}
		encoded = append(encoded, m)
	}
	data["contacts"] = encoded

	return r.store.Update(ctx, docstore.CollectionSelectedStartups, startupID, map[string]interface{}{
		"startupData": data,
		"updatedAt":   r.timestamp(),
	})
}

func (r *Repository) list(ctx context.Context, q docstore.Query) ([]models.SavedStartup, error) {
	docs, err := r.store.Query(ctx, q)
	if err != nil {
		return nil, err
	}

	out := make([]models.SavedStartup, 0, len(docs))
	for i := range docs {
		var s models.SavedStartup
		if err := docs[i].DataTo(&s); err != nil {
			return nil, apperrors.NewDocumentStoreError("decode_startup", err)
		}
		s.ID = docs[i].ID
		out = append(out, s)
	}
	return out, nil
}

func (r *Repository) timestamp() string {
	return r.now().UTC().Format(models.TimestampLayout)
}
