// Package timeline records CRM send attempts and lists them per startup.
package timeline

import (
	"context"
	"time"

	"innovation-crm/internal/common/docstore"
	apperrors "innovation-crm/internal/common/errors"
	"innovation-crm/internal/models"
)

// Log is the append-only crmMessages collection.
type Log struct {
	docs docstore.Store
	now  func() time.Time
}

func NewLog(docs docstore.Store) *Log {
	return &Log{docs: docs, now: time.Now}
}

// Record appends msg, stamping SentAt when empty, and sets its id.
func (l *Log) Record(ctx context.Context, msg *models.CrmMessage) error {
	if msg.SentAt == "" {
		msg.SentAt = l.now().UTC().Format(models.TimestampLayout)
	}

	data, err := docstore.ToMap(msg)
	if err != nil {
		return apperrors.NewDocumentStoreError("encode_message", err)
	}
	delete(data, "id")

	id, err := l.docs.Add(ctx, docstore.CollectionCrmMessages, data)
	if err != nil {
		return err
	}
	msg.ID = id
	return nil
}

// List returns the user's messages for a startup, newest first.
func (l *Log) List(ctx context.Context, userID, startupID string) ([]models.CrmMessage, error) {
	docs, err := l.docs.Query(ctx, docstore.Query{
		Collection: docstore.CollectionCrmMessages,
		OrderBy:    "sentAt",
		Descending: true,
	}.Where("startupId", startupID).Where("userId", userID))
	if err != nil {
		return nil, err
	}

	out := make([]models.CrmMessage, 0, len(docs))
	for i := range docs {
		var m models.CrmMessage
		if err := docs[i].DataTo(&m); err != nil {
			return nil, apperrors.NewDocumentStoreError("decode_message", err)
		}
		m.ID = docs[i].ID
		out = append(out, m)
	}
	return out, nil
}
