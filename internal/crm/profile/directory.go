// Package profile resolves the sender identity used to sign CRM messages.
package profile

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"innovation-crm/internal/common/docstore"
	apperrors "innovation-crm/internal/common/errors"
	"innovation-crm/internal/common/logger"
	"innovation-crm/internal/models"

	"github.com/redis/go-redis/v9"
)

const (
	cacheKeyPrefix  = "crm:sender:"
	defaultCacheTTL = 5 * time.Minute
)

// Directory reads users/{id} through a Redis cache. A nil cache disables caching.
type Directory struct {
	docs   docstore.Store
	cache  *redis.Client
	ttl    time.Duration
	logger logger.Logger
}

func NewDirectory(docs docstore.Store, cache *redis.Client, ttl time.Duration, log logger.Logger) *Directory {
	if ttl <= 0 {
		ttl = defaultCacheTTL
	}
	return &Directory{docs: docs, cache: cache, ttl: ttl, logger: log}
}

func cacheKey(userID string) string {
	return cacheKeyPrefix + userID
}

// Sender returns the name and company of userID. A user without a profile
// document signs with empty values.
func (d *Directory) Sender(ctx context.Context, userID string) (models.Sender, error) {
	if d.cache != nil {
		if val, err := d.cache.Get(ctx, cacheKey(userID)).Result(); err == nil {
			var sender models.Sender
			if err := json.Unmarshal([]byte(val), &sender); err == nil {
				return sender, nil
			}
		} else if !errors.Is(err, redis.Nil) {
			d.logger.Debug("Sender cache read failed", map[string]interface{}{
				"userId": userID,
				"error":  err.Error(),
			})
		}
	}

	sender := models.Sender{UserID: userID}
	doc, err := d.docs.Get(ctx, docstore.CollectionUsers, userID)
	switch {
	case err == nil:
		var p models.UserProfile
		if err := doc.DataTo(&p); err != nil {
			return models.Sender{}, apperrors.NewSenderLookupFailedError(userID, err)
		}
		sender.Name = p.Name
		sender.Company = p.Company
	case apperrors.HasCode(err, apperrors.ErrCodeDocumentNotFound):
		d.logger.Warn("No profile for sender, using empty identity", map[string]interface{}{
			"userId": userID,
		})
	default:
		return models.Sender{}, apperrors.NewSenderLookupFailedError(userID, err)
	}

	if d.cache != nil {
		data, _ := json.Marshal(sender)
		if err := d.cache.Set(ctx, cacheKey(userID), data, d.ttl).Err(); err != nil {
			d.logger.Debug("Sender cache write failed", map[string]interface{}{
				"userId": userID,
				"error":  err.Error(),
			})
		}
	}
	return sender, nil
}

// Profile returns users/{userID}. A user without a document gets an empty
// profile carrying only the id.
func (d *Directory) Profile(ctx context.Context, userID string) (*models.UserProfile, error) {
	p := &models.UserProfile{}
	doc, err := d.docs.Get(ctx, docstore.CollectionUsers, userID)
	switch {
	case err == nil:
		if err := doc.DataTo(p); err != nil {
			return nil, apperrors.NewDocumentStoreError("decode_profile", err)
		}
	case !apperrors.HasCode(err, apperrors.ErrCodeDocumentNotFound):
		return nil, err
	}
	p.ID = userID
	return p, nil
}

// SaveProfile merges the user-editable fields into users/{userID} and drops
// the cached sender. Plan, consent and activation fields are left alone.
func (d *Directory) SaveProfile(ctx context.Context, userID string, p models.UserProfile) error {
	fields := map[string]interface{}{
		"name":    p.Name,
		"company": p.Company,
	}
	if p.Email != "" {
		fields["email"] = p.Email
	}
	if p.Phone != "" {
		fields["phone"] = p.Phone
	}

	err := d.docs.Update(ctx, docstore.CollectionUsers, userID, fields)
	if apperrors.HasCode(err, apperrors.ErrCodeDocumentNotFound) {
		err = d.docs.Set(ctx, docstore.CollectionUsers, userID, fields)
	}
	if err != nil {
		return err
	}
	d.Invalidate(ctx, userID)
	return nil
}

// Invalidate drops the cached sender of userID.
func (d *Directory) Invalidate(ctx context.Context, userID string) {
	if d.cache == nil {
		return
	}
	if err := d.cache.Del(ctx, cacheKey(userID)).Err(); err != nil {
		d.logger.Debug("Sender cache delete failed", map[string]interface{}{
			"userId": userID,
			"error":  err.Error(),
		})
	}
}
