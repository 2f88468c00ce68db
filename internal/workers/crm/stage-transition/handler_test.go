package stagetransition

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"innovation-crm/internal/common/config"
	"innovation-crm/internal/common/errors"
	"innovation-crm/internal/common/logger"
	"innovation-crm/internal/crm/board"
	"innovation-crm/internal/crm/dispatch"
	"innovation-crm/internal/models"

	"github.com/camunda/zeebe/clients/go/v8/pkg/entities"
	"github.com/camunda/zeebe/clients/go/v8/pkg/pb"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// ==========================
// Mock Implementations
// ==========================

type MockMover struct {
	MoveStartupFunc func(ctx context.Context, userID, startupID, stageID string) (*board.Transition, error)
}

func (m *MockMover) MoveStartup(ctx context.Context, userID, startupID, stageID string) (*board.Transition, error) {
	return m.MoveStartupFunc(ctx, userID, startupID, stageID)
}

// ==========================
// Mock Job Helper
// ==========================

func createMockJob(key int64, variables map[string]interface{}) entities.Job {
	variablesJSON, _ := json.Marshal(variables)

	return entities.Job{ActivatedJob: &pb.ActivatedJob{
		Key:                      key,
		Type:                     TaskType,
		ProcessInstanceKey:       key * 10,
		BpmnProcessId:            "startup-pipeline",
		ProcessDefinitionVersion: 1,
		ElementId:                "Activity_StageTransition",
		CustomHeaders:            "{}",
		Worker:                   "test-worker",
		Retries:                  3,
		Variables:                string(variablesJSON),
	}}
}

// ==========================
// Test Helpers
// ==========================

func createTestHandler(t *testing.T, mover Mover) *Handler {
	h, err := NewHandler(HandlerOptions{
		CustomConfig: &Config{Enabled: true, MaxJobsActive: 2, Timeout: 5 * time.Second},
		Mover:        mover,
		Logger:       logger.NewTestLogger(t),
	})
	require.NoError(t, err)
	return h
}

func createTestTransition() *board.Transition {
	return &board.Transition{
		Startup:   &models.SavedStartup{ID: "s-1", StartupName: "Acme", Stage: "selecionada"},
		FromStage: "mapeada",
		ToStage:   "selecionada",
		Result:    dispatch.Result{EmailsSent: 2, WhatsAppsSent: 1, WhatsAppsFailed: 1, TotalContacts: 2},
	}
}

// ==========================
// Handler Creation Tests
// ==========================

func TestHandler_NewHandler(t *testing.T) {
	tests := []struct {
		name    string
		opts    HandlerOptions
		wantErr bool
	}{
		{
			name: "valid configuration",
			opts: HandlerOptions{Mover: &MockMover{}, Logger: logger.NewNoOpLogger()},
		},
		{
			name:    "missing mover",
			opts:    HandlerOptions{Logger: logger.NewNoOpLogger()},
			wantErr: true,
		},
		{
			name: "invalid timeout",
			opts: HandlerOptions{
				CustomConfig: &Config{Enabled: true, MaxJobsActive: 1},
				Mover:        &MockMover{},
			},
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h, err := NewHandler(tt.opts)
			if tt.wantErr {
				assert.Error(t, err)
				assert.Nil(t, h)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, TaskType, h.GetTaskType())
			assert.True(t, h.IsEnabled())
		})
	}
}

func TestHandler_ConfigFromApp(t *testing.T) {
	appCfg := &config.Config{Workers: map[string]config.WorkerConfig{
		WorkerName: {Enabled: false, MaxJobsActive: 9, Timeout: 1500},
	}}

	h, err := NewHandler(HandlerOptions{AppConfig: appCfg, Mover: &MockMover{}, Logger: logger.NewNoOpLogger()})
	require.NoError(t, err)
	assert.False(t, h.IsEnabled())
	assert.Equal(t, 9, h.config.MaxJobsActive)
	assert.Equal(t, 1500*time.Millisecond, h.config.Timeout)
	assert.NoError(t, h.Register(), "disabled workers skip registration")
}

// ==========================
// Input Parsing Tests
// ==========================

func TestHandler_ParseInput(t *testing.T) {
	h := createTestHandler(t, &MockMover{})

	tests := []struct {
		name      string
		variables map[string]interface{}
		wantErr   bool
	}{
		{
			name:      "valid input",
			variables: map[string]interface{}{"userId": "u-1", "startupId": "s-1", "stageId": "selecionada"},
		},
		{
			name:      "extra process variables are ignored",
			variables: map[string]interface{}{"userId": "u-1", "startupId": "s-1", "stageId": "poc", "requestId": "r-9"},
		},
		{
			name:      "missing stage",
			variables: map[string]interface{}{"userId": "u-1", "startupId": "s-1"},
			wantErr:   true,
		},
		{
			name:      "blank user",
			variables: map[string]interface{}{"userId": " ", "startupId": "s-1", "stageId": "poc"},
			wantErr:   true,
		},
		{
			name:      "wrong type",
			variables: map[string]interface{}{"userId": "u-1", "startupId": 42, "stageId": "poc"},
			wantErr:   true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			input, err := h.parseInput(createMockJob(1, tt.variables))
			if tt.wantErr {
				assert.True(t, errors.HasCode(err, errors.ErrCodeValidationFailed), "got %v", err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, "u-1", input.UserID)
			assert.Equal(t, "s-1", input.StartupID)
			assert.Equal(t, tt.variables["stageId"], input.StageID)
		})
	}
}

func TestHandler_ParseInput_BadJSON(t *testing.T) {
	h := createTestHandler(t, &MockMover{})
	job := entities.Job{ActivatedJob: &pb.ActivatedJob{Key: 1, Variables: "{not json"}}

	_, err := h.parseInput(job)
	assert.True(t, errors.HasCode(err, "INPUT_PARSING_FAILED"))
}

// ==========================
// Execution Tests
// ==========================

func TestHandler_Execute(t *testing.T) {
	var gotUser, gotStartup, gotStage string
	h := createTestHandler(t, &MockMover{
		MoveStartupFunc: func(ctx context.Context, userID, startupID, stageID string) (*board.Transition, error) {
			gotUser, gotStartup, gotStage = userID, startupID, stageID
			return createTestTransition(), nil
		},
	})

	out, err := h.Execute(context.Background(), &Input{UserID: "u-1", StartupID: "s-1", StageID: "selecionada"})
	require.NoError(t, err)
	assert.Equal(t, "u-1", gotUser)
	assert.Equal(t, "s-1", gotStartup)
	assert.Equal(t, "selecionada", gotStage)

	assert.True(t, out.StageUpdated)
	assert.Equal(t, board.TransitionOK, out.Status)
	assert.Equal(t, 2, out.EmailsSent)
	assert.Equal(t, 1, out.WhatsAppsFailed)

	vars := outputVariables(out)
	assert.Equal(t, map[string]interface{}{
		"stageUpdated":    true,
		"transitionState": board.TransitionOK,
		"emailsSent":      2,
		"emailsFailed":    0,
		"whatsappsSent":   1,
		"whatsappsFailed": 1,
		"totalContacts":   2,
		"fromStage":       "mapeada",
	}, vars)
}

func TestHandler_Execute_Partial(t *testing.T) {
	h := createTestHandler(t, &MockMover{
		MoveStartupFunc: func(ctx context.Context, userID, startupID, stageID string) (*board.Transition, error) {
			tr := createTestTransition()
			tr.Errors = []string{"sender_lookup: redis down"}
			return tr, nil
		},
	})

	out, err := h.Execute(context.Background(), &Input{UserID: "u-1", StartupID: "s-1", StageID: "selecionada"})
	require.NoError(t, err)
	assert.Equal(t, board.TransitionPartial, out.Status)
	assert.Equal(t, []string{"sender_lookup: redis down"}, outputVariables(out)["transitionErrors"])
}

func TestHandler_Execute_MoveFails(t *testing.T) {
	h := createTestHandler(t, &MockMover{
		MoveStartupFunc: func(ctx context.Context, userID, startupID, stageID string) (*board.Transition, error) {
			return nil, errors.NewStartupNotFoundError(startupID)
		},
	})

	out, err := h.Execute(context.Background(), &Input{UserID: "u-1", StartupID: "gone", StageID: "poc"})
	assert.Nil(t, out)
	assert.True(t, errors.HasCode(err, errors.ErrCodeStartupNotFound))
	assert.Equal(t, string(errors.ErrCodeStartupNotFound), extractErrorCode(err))
}

// ==========================
// Configuration Tests
// ==========================

func TestConfig_Validate(t *testing.T) {
	assert.NoError(t, DefaultConfig().Validate())
	assert.Error(t, (&Config{Timeout: time.Second}).Validate())
	assert.Error(t, (&Config{MaxJobsActive: 1}).Validate())
}
