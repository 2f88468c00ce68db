// internal/common/camunda/worker.go
package camunda

import (
	"context"
	"fmt"
	"time"

	"innovation-crm/internal/common/logger"
	"innovation-crm/internal/common/validation"

	"github.com/camunda/zeebe/clients/go/v8/pkg/entities"
	"github.com/camunda/zeebe/clients/go/v8/pkg/worker"
	"github.com/camunda/zeebe/clients/go/v8/pkg/zbc"
)

// JobHandler completes or fails the job itself.
type JobHandler interface {
	Handle(client worker.JobClient, job entities.Job)
}

type WorkerOptions struct {
	TaskType      string
	MaxJobsActive int
	Timeout       time.Duration
}

// Worker is an open Zeebe job subscription.
type Worker struct {
	worker   worker.JobWorker
	logger   logger.Logger
	taskType string
}

// NewWorker opens a job worker for opts.TaskType. Task types must follow the
// domain.subdomain.action naming.
func NewWorker(client zbc.Client, opts WorkerOptions, handler JobHandler, log logger.Logger) (*Worker, error) {
	if err := validation.ValidateActivityNaming(opts.TaskType); err != nil {
		return nil, err
	}
	if opts.MaxJobsActive <= 0 {
		return nil, fmt.Errorf("max jobs active must be positive for %s", opts.TaskType)
	}

	cmd := client.NewJobWorker().
		JobType(opts.TaskType).
		Handler(handler.Handle).
		MaxJobsActive(opts.MaxJobsActive).
		Name(fmt.Sprintf("%s-worker", opts.TaskType))
	if opts.Timeout > 0 {
		cmd = cmd.Timeout(opts.Timeout)
	}

	w := &Worker{
		worker:   cmd.Open(),
		logger:   log,
		taskType: opts.TaskType,
	}
	log.Info("Worker registered with Zeebe", map[string]interface{}{
		"taskType":      opts.TaskType,
		"maxJobsActive": opts.MaxJobsActive,
		"timeout":       opts.Timeout.String(),
	})
	return w, nil
}

// Stop closes the subscription and waits for in-flight jobs.
func (w *Worker) Stop(ctx context.Context) {
	w.logger.Info("Stopping worker", map[string]interface{}{"taskType": w.taskType})
	done := make(chan struct{})
	go func() {
		w.worker.Close()
		w.worker.AwaitClose()
		close(done)
	}()
	select {
	case <-done:
	case <-ctx.Done():
		w.logger.Warn("Worker did not stop before deadline", map[string]interface{}{"taskType": w.taskType})
	}
}
