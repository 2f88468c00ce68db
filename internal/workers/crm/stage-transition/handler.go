// Package stagetransition moves a tracked startup to a new pipeline stage from
// a BPMN service task and reports the notification tally as job variables.
package stagetransition

import (
	"context"
	"fmt"
	"time"

	"innovation-crm/internal/common/camunda"
	"innovation-crm/internal/common/config"
	"innovation-crm/internal/common/errors"
	"innovation-crm/internal/common/logger"
	"innovation-crm/internal/common/metrics"
	"innovation-crm/internal/common/validation"
	"innovation-crm/internal/crm/board"

	"github.com/camunda/zeebe/clients/go/v8/pkg/entities"
	"github.com/camunda/zeebe/clients/go/v8/pkg/worker"
)

const TaskType = "crm.stage.transition"

// Mover is the board operation the worker drives.
type Mover interface {
	MoveStartup(ctx context.Context, userID, startupID, stageID string) (*board.Transition, error)
}

type Handler struct {
	config     *Config
	logger     logger.Logger
	camunda    *camunda.Client
	mover      Mover
	errHandler *errors.ErrorHandler
	jobWorker  *camunda.Worker
}

type HandlerOptions struct {
	AppConfig    *config.Config
	Camunda      *camunda.Client
	CustomConfig *Config
	Mover        Mover
	Logger       logger.Logger
}

func NewHandler(opts HandlerOptions) (*Handler, error) {
	workerConfig := createConfigFromAppConfig(opts.AppConfig, opts.CustomConfig)

	if err := workerConfig.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration for %s: %w", WorkerName, err)
	}
	if opts.Mover == nil {
		return nil, fmt.Errorf("%s requires a board controller", WorkerName)
	}

	var loggerInstance logger.Logger
	if opts.Logger != nil {
		loggerInstance = opts.Logger
	} else {
		loggerInstance = logger.NewStructured("info", "json")
	}

	return &Handler{
		config:     workerConfig,
		logger:     loggerInstance,
		camunda:    opts.Camunda,
		mover:      opts.Mover,
		errHandler: errors.NewErrorHandler(loggerInstance),
	}, nil
}

func (h *Handler) Handle(client worker.JobClient, job entities.Job) {
	startTime := time.Now()
	metrics.WorkerJobsActive.WithLabelValues(TaskType).Inc()
	defer metrics.WorkerJobsActive.WithLabelValues(TaskType).Dec()

	ctx, cancel := context.WithTimeout(context.Background(), h.config.Timeout)
	defer cancel()

	h.logger.Info("Processing stage transition", map[string]interface{}{
		"jobKey":             job.GetKey(),
		"processInstanceKey": job.GetProcessInstanceKey(),
		"worker":             TaskType,
	})

	if !h.config.Enabled {
		h.logger.Info("Worker disabled by configuration", map[string]interface{}{
			"worker": TaskType,
		})
		h.completeJob(ctx, client, job, &Output{Status: board.TransitionFailed})
		return
	}

	input, err := h.parseInput(job)
	if err != nil {
		metrics.WorkerJobsFailed.WithLabelValues(TaskType, extractErrorCode(err)).Inc()
		h.errHandler.HandleJobError(ctx, client, job, err)
		return
	}

	output, err := h.Execute(ctx, input)
	if err != nil {
		metrics.WorkerJobsFailed.WithLabelValues(TaskType, extractErrorCode(err)).Inc()
		h.errHandler.HandleJobError(ctx, client, job, err)
		return
	}

	h.completeJob(ctx, client, job, output)
	metrics.WorkerJobsCompleted.WithLabelValues(TaskType).Inc()
	metrics.WorkerJobDuration.WithLabelValues(TaskType).Observe(time.Since(startTime).Seconds())
}

// Execute moves the startup. Notification failures after the stage is
// persisted complete the job with status "partial" instead of failing it.
func (h *Handler) Execute(ctx context.Context, input *Input) (*Output, error) {
	tr, err := h.mover.MoveStartup(ctx, input.UserID, input.StartupID, input.StageID)
	if err != nil {
		return nil, err
	}

	return &Output{
		StageUpdated:    true,
		FromStage:       tr.FromStage,
		ToStage:         tr.ToStage,
		Status:          tr.Status(),
		EmailsSent:      tr.Result.EmailsSent,
		EmailsFailed:    tr.Result.EmailsFailed,
		WhatsAppsSent:   tr.Result.WhatsAppsSent,
		WhatsAppsFailed: tr.Result.WhatsAppsFailed,
		TotalContacts:   tr.Result.TotalContacts,
		Errors:          tr.Errors,
	}, nil
}

func (h *Handler) parseInput(job entities.Job) (*Input, error) {
	variables, err := job.GetVariablesAsMap()
	if err != nil {
		return nil, &errors.StandardError{
			Code:      "INPUT_PARSING_FAILED",
			Message:   "Failed to parse job variables",
			Details:   err.Error(),
			Retryable: false,
			Timestamp: time.Now(),
		}
	}

	result := validation.ValidateInput(variables, GetInputSchema())
	if !result.Valid {
		return nil, errors.NewValidationFailedError(fmt.Sprintf("Validation errors: %v", result.GetErrorMessages()))
	}

	return &Input{
		UserID:    variables["userId"].(string),
		StartupID: variables["startupId"].(string),
		StageID:   variables["stageId"].(string),
	}, nil
}

func outputVariables(output *Output) map[string]interface{} {
	variables := map[string]interface{}{
		"stageUpdated":    output.StageUpdated,
		"transitionState": output.Status,
		"emailsSent":      output.EmailsSent,
		"emailsFailed":    output.EmailsFailed,
		"whatsappsSent":   output.WhatsAppsSent,
		"whatsappsFailed": output.WhatsAppsFailed,
		"totalContacts":   output.TotalContacts,
	}
	if output.FromStage != "" {
		variables["fromStage"] = output.FromStage
	}
	if len(output.Errors) > 0 {
		variables["transitionErrors"] = output.Errors
	}
	return variables
}

func (h *Handler) completeJob(ctx context.Context, client worker.JobClient, job entities.Job, output *Output) {
	request, err := client.NewCompleteJobCommand().JobKey(job.GetKey()).VariablesFromMap(outputVariables(output))
	if err != nil {
		h.logger.Error("Failed to create complete job command", map[string]interface{}{
			"jobKey": job.GetKey(),
			"error":  err.Error(),
			"worker": TaskType,
		})
		return
	}

	send := func(ctx context.Context) (interface{}, error) { return request.Send(ctx) }
	if h.camunda != nil {
		_, err = h.camunda.ExecuteWithRetry(ctx, send, "complete-job")
	} else {
		_, err = send(ctx)
	}
	if err != nil {
		h.logger.Error("Failed to complete job", map[string]interface{}{
			"jobKey": job.GetKey(),
			"error":  err.Error(),
			"worker": TaskType,
		})
		return
	}

	h.logger.Info("Stage transition completed", map[string]interface{}{
		"jobKey":     job.GetKey(),
		"toStage":    output.ToStage,
		"status":     output.Status,
		"emailsSent": output.EmailsSent,
		"worker":     TaskType,
	})
}

func (h *Handler) Register() error {
	if !h.config.Enabled {
		h.logger.Info("Worker is disabled, skipping registration", map[string]interface{}{
			"worker": TaskType,
		})
		return nil
	}
	if h.camunda == nil {
		return fmt.Errorf("%s: zeebe client not configured", WorkerName)
	}

	w, err := camunda.NewWorker(h.camunda.GetClient(), camunda.WorkerOptions{
		TaskType:      TaskType,
		MaxJobsActive: h.config.MaxJobsActive,
		Timeout:       h.config.Timeout,
	}, h, h.logger)
	if err != nil {
		return err
	}
	h.jobWorker = w
	return nil
}

func (h *Handler) Close(ctx context.Context) {
	if h.jobWorker != nil {
		h.jobWorker.Stop(ctx)
		h.jobWorker = nil
	}
}

func (h *Handler) GetTaskType() string {
	return TaskType
}

func (h *Handler) IsEnabled() bool {
	return h.config.Enabled
}

func extractErrorCode(err error) string {
	if stdErr, ok := errors.As(err); ok {
		return string(stdErr.Code)
	}
	return "UNKNOWN_ERROR"
}
