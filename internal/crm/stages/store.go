// Package stages stores each user's ordered list of pipeline stages.
package stages

import (
	"context"
	"sort"
	"strings"
	"time"

	"innovation-crm/internal/common/docstore"
	apperrors "innovation-crm/internal/common/errors"
	"innovation-crm/internal/common/logger"
	"innovation-crm/internal/crm/startups"
	"innovation-crm/internal/models"
	"innovation-crm/pkg/registry"

	"github.com/google/uuid"
)

// Store persists stage lists as pipelineStages/{userId}.
type Store struct {
	docs     docstore.Store
	startups *startups.Repository
	defaults []models.PipelineStage
	logger   logger.Logger
	now      func() time.Time
}

type Option func(*Store)

// WithRegistry replaces the built-in default stages with a registry's.
func WithRegistry(reg *registry.StageRegistry) Option {
	return func(s *Store) {
		if reg == nil || len(reg.Stages) == 0 {
			return
		}
		defaults := make([]models.PipelineStage, len(reg.Stages))
		for i, d := range reg.Stages {
			color := d.Color
			if color == "" {
				color = ColorOptions[i%len(ColorOptions)]
			}
			defaults[i] = models.PipelineStage{
				ID:               d.ID,
				Name:             d.Name,
				Color:            color,
				Order:            i,
				EmailSubject:     d.EmailSubject,
				EmailTemplate:    d.EmailTemplate,
				WhatsAppTemplate: d.WhatsAppTemplate,
			}
		}
		s.defaults = defaults
	}
}

func NewStore(docs docstore.Store, repo *startups.Repository, log logger.Logger, opts ...Option) *Store {
	s := &Store{
		docs:     docs,
		startups: repo,
		defaults: DefaultStages(),
		logger:   log,
		now:      time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Defaults returns a copy of the stages seeded for users without a saved list.
func (s *Store) Defaults() []models.PipelineStage {
	return append([]models.PipelineStage(nil), s.defaults...)
}

// LoadStages returns the user's stages sorted by order, or the defaults when
// nothing has been saved yet.
func (s *Store) LoadStages(ctx context.Context, userID string) ([]models.PipelineStage, error) {
	doc, err := s.docs.Get(ctx, docstore.CollectionPipelineStages, userID)
	if err != nil {
		if apperrors.HasCode(err, apperrors.ErrCodeDocumentNotFound) {
			return s.Defaults(), nil
		}
		return nil, err
	}

	var stored models.StageDocument
	if err := doc.DataTo(&stored); err != nil {
		return nil, apperrors.NewDocumentStoreError("decode_stages", err)
	}
	if len(stored.Stages) == 0 {
		return s.Defaults(), nil
	}

	sort.SliceStable(stored.Stages, func(i, j int) bool {
		return stored.Stages[i].Order < stored.Stages[j].Order
	})
	return stored.Stages, nil
}

// SaveStages overwrites the user's list, assigning order = position.
func (s *Store) SaveStages(ctx context.Context, userID string, stages []models.PipelineStage) ([]models.PipelineStage, error) {
	ordered := reindex(stages)
	if err := ValidateStageList(ordered); err != nil {
		return nil, err
	}

	data, err := docstore.ToMap(models.StageDocument{
		Stages:    ordered,
		UpdatedAt: s.now().UTC().Format(models.TimestampLayout),
	})
	if err != nil {
		return nil, apperrors.NewDocumentStoreError("encode_stages", err)
	}
	if err := s.docs.Set(ctx, docstore.CollectionPipelineStages, userID, data); err != nil {
		return nil, err
	}
	return ordered, nil
}

// FindStage looks a stage up in the user's current list.
func (s *Store) FindStage(ctx context.Context, userID, stageID string) (*models.PipelineStage, error) {
	list, err := s.LoadStages(ctx, userID)
	if err != nil {
		return nil, err
	}
	for i := range list {
		if list[i].ID == stageID {
			return &list[i], nil
		}
	}
	return nil, apperrors.NewStageNotFoundError(stageID)
}

// ReorderStages moves draggedID to targetID's position and saves the result.
func (s *Store) ReorderStages(ctx context.Context, userID, draggedID, targetID string) ([]models.PipelineStage, error) {
	list, err := s.LoadStages(ctx, userID)
	if err != nil {
		return nil, err
	}
	if indexOf(list, draggedID) < 0 || indexOf(list, targetID) < 0 || draggedID == targetID {
		return list, nil
	}
	return s.SaveStages(ctx, userID, Reorder(list, draggedID, targetID))
}

// AddStage appends a stage. The id is generated and the color defaulted when
// left empty.
func (s *Store) AddStage(ctx context.Context, userID string, stage models.PipelineStage) (*models.PipelineStage, error) {
	if strings.TrimSpace(stage.Name) == "" {
		return nil, apperrors.NewValidationFailedError("stage name is required")
	}
	list, err := s.LoadStages(ctx, userID)
	if err != nil {
		return nil, err
	}

	if stage.ID == "" {
		stage.ID = uuid.NewString()
	}
	if indexOf(list, stage.ID) >= 0 {
		return nil, apperrors.NewValidationFailedError("stage id already exists: " + stage.ID)
	}
	if stage.Color == "" {
		stage.Color = ColorOptions[0]
	}

	saved, err := s.SaveStages(ctx, userID, append(list, stage))
	if err != nil {
		return nil, err
	}

	added := saved[len(saved)-1]
	s.logger.Info("Stage added", map[string]interface{}{
		"userId":  userID,
		"stageId": added.ID,
		"order":   added.Order,
	})
	return &added, nil
}

// EditStage replaces the name, color and templates of an existing stage.
// Its position is kept.
func (s *Store) EditStage(ctx context.Context, userID string, stage models.PipelineStage) (*models.PipelineStage, error) {
	list, err := s.LoadStages(ctx, userID)
	if err != nil {
		return nil, err
	}

	idx := indexOf(list, stage.ID)
	if idx < 0 {
		return nil, apperrors.NewStageNotFoundError(stage.ID)
	}
	if strings.TrimSpace(stage.Name) == "" {
		stage.Name = list[idx].Name
	}
	if stage.Color == "" {
		stage.Color = list[idx].Color
	}
	list[idx] = stage

	saved, err := s.SaveStages(ctx, userID, list)
	if err != nil {
		return nil, err
	}
	return &saved[idx], nil
}

// DeleteStage removes a stage and permanently deletes every startup the user
// has on it. The last remaining stage cannot be deleted.
func (s *Store) DeleteStage(ctx context.Context, userID, stageID string) (int, error) {
	list, err := s.LoadStages(ctx, userID)
	if err != nil {
		return 0, err
	}
	if len(list) <= 1 {
		return 0, apperrors.NewLastStageDeleteRejectedError(stageID)
	}
	idx := indexOf(list, stageID)
	if idx < 0 {
		return 0, apperrors.NewStageNotFoundError(stageID)
	}

	assigned, err := s.startups.ListByStage(ctx, userID, stageID)
	if err != nil {
		return 0, err
	}
	deleted := 0
	for _, startup := range assigned {
		if err := s.docs.Delete(ctx, docstore.CollectionSelectedStartups, startup.ID); err != nil {
			return deleted, err
		}
		deleted++
	}

	remaining := append(append([]models.PipelineStage(nil), list[:idx]...), list[idx+1:]...)
	if _, err := s.SaveStages(ctx, userID, remaining); err != nil {
		return deleted, err
	}

	s.logger.Info("Stage deleted", map[string]interface{}{
		"userId":          userID,
		"stageId":         stageID,
		"startupsDeleted": deleted,
		"remainingStages": len(remaining),
	})
	return deleted, nil
}

// Reorder removes draggedID and reinserts it at targetID's original index.
// It returns an unchanged copy when the ids are equal or either is missing.
func Reorder(stages []models.PipelineStage, draggedID, targetID string) []models.PipelineStage {
	out := append([]models.PipelineStage(nil), stages...)
	from, to := indexOf(out, draggedID), indexOf(out, targetID)
	if from < 0 || to < 0 || from == to {
		return out
	}

	moved := out[from]
	out = append(out[:from], out[from+1:]...)
	out = append(out[:to], append([]models.PipelineStage{moved}, out[to:]...)...)
	return reindex(out)
}

func reindex(stages []models.PipelineStage) []models.PipelineStage {
	out := make([]models.PipelineStage, len(stages))
	for i, st := range stages {
		st.Order = i
		out[i] = st
	}
	return out
}

func indexOf(stages []models.PipelineStage, id string) int {
	for i := range stages {
		if stages[i].ID == id {
			return i
		}
	}
	return -1
}
