// Package board moves startups between pipeline stages and fires the
// stage's automatic notifications.
package board

import (
	"context"

	apperrors "innovation-crm/internal/common/errors"
	"innovation-crm/internal/common/logger"
	"innovation-crm/internal/common/metrics"
	"innovation-crm/internal/common/observability"
	"innovation-crm/internal/crm/dispatch"
	"innovation-crm/internal/crm/stages"
	"innovation-crm/internal/crm/startups"
	"innovation-crm/internal/models"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

const (
	TransitionOK      = "ok"
	TransitionPartial = "partial"
	TransitionFailed  = "failed"
)

type SenderDirectory interface {
	Sender(ctx context.Context, userID string) (models.Sender, error)
}

type Notifier interface {
	Dispatch(ctx context.Context, startup *models.SavedStartup, stage *models.PipelineStage, sender models.Sender) (dispatch.Result, error)
}

// Transition is what the caller needs to refresh its view after a move.
// Errors lists the steps that failed after the stage was persisted.
type Transition struct {
	Startup   *models.SavedStartup `json:"startup"`
	FromStage string               `json:"fromStage"`
	ToStage   string               `json:"toStage"`
	Result    dispatch.Result      `json:"result"`
	Errors    []string             `json:"errors,omitempty"`
}

func (t *Transition) Status() string {
	if len(t.Errors) > 0 {
		return TransitionPartial
	}
	return TransitionOK
}

type Controller struct {
	startups *startups.Repository
	stages   *stages.Store
	senders  SenderDirectory
	notifier Notifier
	obs      *observability.Observability
	logger   logger.Logger
}

func NewController(repo *startups.Repository, stageStore *stages.Store, senders SenderDirectory, notifier Notifier, obs *observability.Observability, log logger.Logger) *Controller {
	return &Controller{
		startups: repo,
		stages:   stageStore,
		senders:  senders,
		notifier: notifier,
		obs:      obs,
		logger:   log,
	}
}

// MoveStartup persists the new stage and then notifies the startup's
// contacts. The target stage must exist on the user's board; an unknown stage
// is rejected with STAGE_NOT_FOUND before anything is written. Only failures
// up to and including the write are returned as errors. Later failures leave
// the move in place and are reported in the Transition.
func (c *Controller) MoveStartup(ctx context.Context, userID, startupID, stageID string) (*Transition, error) {
	ctx, span := c.obs.StartSpan(ctx, "board.MoveStartup",
		attribute.String("crm.user_id", userID),
		attribute.String("crm.startup_id", startupID),
		attribute.String("crm.stage_id", stageID),
	)
	defer span.End()

	startup, err := c.startups.Get(ctx, userID, startupID)
	if err != nil {
		c.fail(ctx, span, err)
		return nil, err
	}

	stage, err := c.stages.FindStage(ctx, userID, stageID)
	if err != nil {
		c.fail(ctx, span, err)
		return nil, err
	}

	stamp, err := c.startups.UpdateStage(ctx, startupID, stageID)
	if err != nil {
		c.fail(ctx, span, err)
		return nil, err
	}

	t := &Transition{
		Startup:   startup,
		FromStage: startup.Stage,
		ToStage:   stageID,
	}
	startup.Stage = stageID
	startup.UpdatedAt = stamp

	c.logger.Info("Startup moved", map[string]interface{}{
		"userId":    userID,
		"startupId": startupID,
		"fromStage": t.FromStage,
		"toStage":   stageID,
	})

	c.notify(ctx, t, userID, stage)

	status := t.Status()
	if status != TransitionOK {
		span.SetStatus(codes.Error, "notification step failed")
	}
	span.SetAttributes(
		attribute.Int("crm.emails_sent", t.Result.EmailsSent),
		attribute.Int("crm.whatsapps_sent", t.Result.WhatsAppsSent),
	)
	metrics.StageTransitionsTotal.WithLabelValues(status).Inc()
	c.obs.RecordTransition(ctx, status)
	return t, nil
}

func (c *Controller) notify(ctx context.Context, t *Transition, userID string, stage *models.PipelineStage) {
	sender, err := c.senders.Sender(ctx, userID)
	if err != nil {
		c.stepFailed(t, "sender_lookup", err)
		return
	}

	result, err := c.notifier.Dispatch(ctx, t.Startup, stage, sender)
	t.Result = result
	if err != nil {
		c.stepFailed(t, "dispatch", err)
	}
}

func (c *Controller) stepFailed(t *Transition, step string, err error) {
	t.Errors = append(t.Errors, step+": "+err.Error())
	c.logger.Error("Stage transition step failed", map[string]interface{}{
		"startupId": t.Startup.ID,
		"toStage":   t.ToStage,
		"step":      step,
		"error":     err,
	})
}

func (c *Controller) fail(ctx context.Context, span trace.Span, err error) {
	span.RecordError(err)
	span.SetStatus(codes.Error, err.Error())
	metrics.StageTransitionsTotal.WithLabelValues(TransitionFailed).Inc()
	c.obs.RecordTransition(ctx, TransitionFailed)
}

// ListBoard groups the user's startups by stage, in stage order. Startups on
// a stage that no longer exists are shown in the first column.
func (c *Controller) ListBoard(ctx context.Context, userID string) ([]models.BoardColumn, error) {
	list, err := c.stages.LoadStages(ctx, userID)
	if err != nil {
		return nil, err
	}
	tracked, err := c.startups.ListByUser(ctx, userID)
	if err != nil {
		return nil, err
	}

	columns := make([]models.BoardColumn, len(list))
	index := make(map[string]int, len(list))
	for i, stage := range list {
		columns[i] = models.BoardColumn{Stage: stage, Startups: []models.SavedStartup{}}
		index[stage.ID] = i
	}

	for _, s := range tracked {
		i, ok := index[s.Stage]
		if !ok {
			c.logger.Debug("Startup on unknown stage", map[string]interface{}{
				"startupId": s.ID,
				"stage":     s.Stage,
			})
			i = 0
		}
		columns[i].Startups = append(columns[i].Startups, s)
	}
	return columns, nil
}

// SaveStartup starts tracking a startup. It lands on the first stage unless
// one is given.
func (c *Controller) SaveStartup(ctx context.Context, userID string, startup *models.SavedStartup) (*models.SavedStartup, error) {
	if startup.StartupData.Name == "" && startup.StartupName == "" {
		return nil, apperrors.NewValidationFailedError("startup name is required")
	}

	list, err := c.stages.LoadStages(ctx, userID)
	if err != nil {
		return nil, err
	}
	if startup.Stage == "" {
		startup.Stage = list[0].ID
	} else if !hasStage(list, startup.Stage) {
		return nil, apperrors.NewStageNotFoundError(startup.Stage)
	}

	startup.ID = ""
	startup.UserID = userID
	startup.SelectedAt = ""
	if err := c.startups.Create(ctx, startup); err != nil {
		return nil, err
	}

	c.logger.Info("Startup tracked", map[string]interface{}{
		"userId":    userID,
		"startupId": startup.ID,
		"stage":     startup.Stage,
	})
	return startup, nil
}

func (c *Controller) GetStartup(ctx context.Context, userID, startupID string) (*models.SavedStartup, error) {
	return c.startups.Get(ctx, userID, startupID)
}

func (c *Controller) RemoveStartup(ctx context.Context, userID, startupID string) error {
	if err := c.startups.Remove(ctx, userID, startupID); err != nil {
		return err
	}
	c.logger.Info("Startup untracked", map[string]interface{}{
		"userId":    userID,
		"startupId": startupID,
	})
	return nil
}

func hasStage(list []models.PipelineStage, id string) bool {
	for _, s := range list {
		if s.ID == id {
			return true
		}
	}
	return false
}
