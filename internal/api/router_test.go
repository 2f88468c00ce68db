package api

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"innovation-crm/internal/common/auth"
	"innovation-crm/internal/common/config"
	"innovation-crm/internal/common/docstore"
	apperrors "innovation-crm/internal/common/errors"
	"innovation-crm/internal/common/logger"
	"innovation-crm/internal/crm/account"
	"innovation-crm/internal/crm/assistant"
	"innovation-crm/internal/crm/board"
	"innovation-crm/internal/crm/challenges"
	"innovation-crm/internal/crm/composer"
	"innovation-crm/internal/crm/contacts"
	"innovation-crm/internal/crm/dispatch"
	"innovation-crm/internal/crm/outbox"
	"innovation-crm/internal/crm/profile"
	"innovation-crm/internal/crm/stages"
	"innovation-crm/internal/crm/startups"
	"innovation-crm/internal/crm/timeline"
	"innovation-crm/internal/models"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// ==========================
// Mock Implementations
// ==========================

type MockTokenValidator struct {
	tokens map[string]*auth.TokenInfo
	err    error
}

func (m *MockTokenValidator) ValidateToken(ctx context.Context, token string) (*auth.TokenInfo, error) {
	if m.err != nil {
		return nil, m.err
	}
	info, ok := m.tokens[token]
	if !ok {
		return nil, apperrors.NewAuthenticationError("token is expired, revoked or malformed")
	}
	return info, nil
}

type MockWhatsAppSender struct {
	numbers []string
}

func (m *MockWhatsAppSender) SendText(ctx context.Context, number, text string) error {
	m.numbers = append(m.numbers, number)
	return nil
}

type MockAssistant struct {
	AskFunc func(ctx context.Context, message, sessionID string, isAnonymous bool) (*assistant.Reply, error)
}

func (m *MockAssistant) Ask(ctx context.Context, message, sessionID string, isAnonymous bool) (*assistant.Reply, error) {
	if m.AskFunc != nil {
		return m.AskFunc(ctx, message, sessionID, isAnonymous)
	}
	return &assistant.Reply{SessionID: sessionID, Output: "Olá, jovem Padawan!"}, nil
}

// ==========================
// Test Helper Functions
// ==========================

type envelope struct {
	Success bool            `json:"success"`
	Data    json.RawMessage `json:"data"`
	Error   struct {
		Code    string `json:"code"`
		Message string `json:"message"`
	} `json:"error"`
}

type testAPI struct {
	router    *gin.Engine
	docs      docstore.Store
	whatsapp  *MockWhatsAppSender
	tokens    *MockTokenValidator
	assistant *MockAssistant
	deps      Dependencies
}

func createTestAPI(t *testing.T) *testAPI {
	gin.SetMode(gin.TestMode)

	docs := docstore.NewMemoryStore()
	log := logger.NewTestLogger(t)
	repo := startups.NewRepository(docs)
	stageStore := stages.NewStore(docs, repo, log)
	directory := profile.NewDirectory(docs, nil, time.Minute, log)
	queue := outbox.New(docs, config.EmailConfig{FromEmail: "crm@genoi.net", FromName: "Gen.OI"})
	messages := timeline.NewLog(docs)
	whatsapp := &MockWhatsAppSender{}
	manager := contacts.NewManager(repo, log)
	tokens := &MockTokenValidator{tokens: map[string]*auth.TokenInfo{
		"ana-token": {Active: true, Sub: "u-ana", Email: "ana@globex.com", EmailVerified: true},
		"bob-token": {Active: true, Sub: "u-bob"},
	}}
	chat := &MockAssistant{}

	deps := Dependencies{
		ServiceName: "innovation-crm-test",
		Logger:      log,
		Tokens:      tokens,
		Stages:      stageStore,
		Board: board.NewController(repo, stageStore, directory,
			dispatch.NewDispatcher(queue, whatsapp, messages, log), nil, log),
		Contacts:   manager,
		Composer:   composer.New(manager, directory, queue, whatsapp, messages, log),
		Timeline:   messages,
		Profiles:   directory,
		Challenges: challenges.NewService(docs, chat, directory, log),
		Account:    account.NewService(docs, directory, log),
		Assistant:  chat,
	}

	return &testAPI{
		router:    NewRouter(deps),
		docs:      docs,
		whatsapp:  whatsapp,
		tokens:    tokens,
		assistant: chat,
		deps:      deps,
	}
}

func (a *testAPI) do(t *testing.T, method, path, token string, body interface{}) (*httptest.ResponseRecorder, envelope) {
	t.Helper()
	var reader *bytes.Reader
	switch b := body.(type) {
	case nil:
		reader = bytes.NewReader(nil)
	case string:
		reader = bytes.NewReader([]byte(b))
	default:
		raw, err := json.Marshal(b)
		require.NoError(t, err)
		reader = bytes.NewReader(raw)
	}

	req := httptest.NewRequest(method, path, reader)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	w := httptest.NewRecorder()
	a.router.ServeHTTP(w, req)

	var env envelope
	if w.Body.Len() > 0 {
		_ = json.Unmarshal(w.Body.Bytes(), &env)
	}
	return w, env
}

func (a *testAPI) trackStartup(t *testing.T, token, name string) models.SavedStartup {
	t.Helper()
	w, env := a.do(t, http.MethodPost, "/api/startups", token, models.SavedStartup{
		StartupData: models.StartupData{
			Name:     name,
			Email:    "hello@" + name + ".io",
			Contacts: []models.Contact{{ID: "c-1", Name: "Jane", Emails: []string{"jane@" + name + ".io"}, Phones: []string{"(11) 98765-4321"}}},
		},
	})
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	var s models.SavedStartup
	require.NoError(t, json.Unmarshal(env.Data, &s))
	return s
}

// ==========================
// Health & Auth Tests
// ==========================

func TestRouter_Health(t *testing.T) {
	a := createTestAPI(t)

	w, _ := a.do(t, http.MethodGet, "/health", "", nil)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.NotEmpty(t, w.Header().Get("X-Request-ID"))

	w, _ = a.do(t, http.MethodGet, "/metrics", "", nil)
	assert.Equal(t, http.StatusOK, w.Code)
}

func TestRouter_Ready(t *testing.T) {
	deps := createTestAPI(t).deps
	deps.Checks = []HealthCheck{
		{Name: "postgres", Check: func(context.Context) error { return nil }},
		{Name: "redis", Check: func(context.Context) error { return errors.New("connection refused") }},
	}
	r := NewRouter(deps)

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/ready", nil))
	assert.Equal(t, http.StatusServiceUnavailable, w.Code)
	assert.Contains(t, w.Body.String(), `"redis":"connection refused"`)
	assert.Contains(t, w.Body.String(), `"postgres":"ok"`)
}

func TestRouter_Authentication(t *testing.T) {
	a := createTestAPI(t)

	tests := []struct {
		name       string
		token      string
		validator  error
		wantStatus int
		wantCode   string
	}{
		{"missing token", "", nil, http.StatusUnauthorized, string(apperrors.ErrCodeAuthentication)},
		{"unknown token", "stolen", nil, http.StatusUnauthorized, string(apperrors.ErrCodeAuthentication)},
		{"identity provider down", "ana-token", apperrors.NewExternalServiceError("keycloak", errors.New("503")), http.StatusBadGateway, string(apperrors.ErrCodeExternalService)},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			a.tokens.err = tt.validator
			defer func() { a.tokens.err = nil }()

			w, env := a.do(t, http.MethodGet, "/api/stages", tt.token, nil)
			assert.Equal(t, tt.wantStatus, w.Code)
			assert.False(t, env.Success)
			assert.Equal(t, tt.wantCode, env.Error.Code)
		})
	}
}

// ==========================
// Stage Route Tests
// ==========================

func TestRouter_Stages(t *testing.T) {
	a := createTestAPI(t)

	w, env := a.do(t, http.MethodGet, "/api/stages", "ana-token", nil)
	require.Equal(t, http.StatusOK, w.Code)
	var list []models.PipelineStage
	require.NoError(t, json.Unmarshal(env.Data, &list))
	require.NotEmpty(t, list)
	assert.Equal(t, "mapeada", list[0].ID)

	w, env = a.do(t, http.MethodPost, "/api/stages", "ana-token", models.PipelineStage{Name: "Contrato"})
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	var added models.PipelineStage
	require.NoError(t, json.Unmarshal(env.Data, &added))
	assert.NotEmpty(t, added.ID)
	assert.Equal(t, len(list), added.Order)

	w, env = a.do(t, http.MethodPut, "/api/stages/"+added.ID, "ana-token", models.PipelineStage{Name: "Contrato assinado", EmailTemplate: "Oi {{startupName}}"})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	var edited models.PipelineStage
	require.NoError(t, json.Unmarshal(env.Data, &edited))
	assert.Equal(t, "Contrato assinado", edited.Name)
	assert.Equal(t, added.Order, edited.Order)

	w, env = a.do(t, http.MethodPost, "/api/stages/reorder", "ana-token", gin.H{"draggedId": added.ID, "targetId": "mapeada"})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	require.NoError(t, json.Unmarshal(env.Data, &list))
	assert.Equal(t, added.ID, list[0].ID)
	assert.Equal(t, 0, list[0].Order)

	// another user still sees the defaults
	_, env = a.do(t, http.MethodGet, "/api/stages", "bob-token", nil)
	require.NoError(t, json.Unmarshal(env.Data, &list))
	assert.Equal(t, "mapeada", list[0].ID)
}

func TestRouter_SaveStages_Schema(t *testing.T) {
	a := createTestAPI(t)

	tests := []struct {
		name       string
		body       string
		wantStatus int
	}{
		{"valid list", `[{"id":"a","name":"A"},{"id":"b","name":"B","order":7}]`, http.StatusOK},
		{"empty list", `[]`, http.StatusBadRequest},
		{"missing name", `[{"id":"a"}]`, http.StatusBadRequest},
		{"duplicate ids", `[{"id":"a","name":"A"},{"id":"a","name":"B"}]`, http.StatusBadRequest},
		{"not json", `{`, http.StatusBadRequest},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w, env := a.do(t, http.MethodPut, "/api/stages", "ana-token", tt.body)
			assert.Equal(t, tt.wantStatus, w.Code, w.Body.String())
			if tt.wantStatus == http.StatusOK {
				var list []models.PipelineStage
				require.NoError(t, json.Unmarshal(env.Data, &list))
				assert.Equal(t, 1, list[1].Order)
			} else {
				assert.Equal(t, string(apperrors.ErrCodeValidationFailed), env.Error.Code)
			}
		})
	}
}

func TestRouter_DeleteStage(t *testing.T) {
	a := createTestAPI(t)
	a.trackStartup(t, "ana-token", "acme")

	w, env := a.do(t, http.MethodDelete, "/api/stages/mapeada", "ana-token", nil)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	assert.JSONEq(t, `{"startupsDeleted":1}`, string(env.Data))

	w, env = a.do(t, http.MethodDelete, "/api/stages/mapeada", "ana-token", nil)
	assert.Equal(t, http.StatusNotFound, w.Code)
	assert.Equal(t, string(apperrors.ErrCodeStageNotFound), env.Error.Code)

	_, _ = a.do(t, http.MethodPut, "/api/stages", "ana-token", `[{"id":"only","name":"Only"}]`)
	w, env = a.do(t, http.MethodDelete, "/api/stages/only", "ana-token", nil)
	assert.Equal(t, http.StatusConflict, w.Code)
	assert.Equal(t, string(apperrors.ErrCodeLastStageDeleteRejected), env.Error.Code)
}

// ==========================
// Board & Startup Route Tests
// ==========================

func TestRouter_TrackAndMoveStartup(t *testing.T) {
	a := createTestAPI(t)
	ctx := context.Background()

	_, _ = a.do(t, http.MethodPut, "/api/profile", "ana-token", models.UserProfile{Name: "Ana", Company: "Globex"})
	s := a.trackStartup(t, "ana-token", "acme")
	assert.Equal(t, "mapeada", s.Stage)
	assert.Equal(t, "u-ana", s.UserID)
	assert.Equal(t, "ana@globex.com", s.UserEmail)

	w, env := a.do(t, http.MethodPost, "/api/startups/"+s.ID+"/move", "ana-token", gin.H{"stageId": "selecionada"})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	var moved struct {
		Status     string           `json:"status"`
		Transition board.Transition `json:"transition"`
	}
	require.NoError(t, json.Unmarshal(env.Data, &moved))
	assert.Equal(t, board.TransitionOK, moved.Status)
	assert.Equal(t, "mapeada", moved.Transition.FromStage)
	assert.Equal(t, 2, moved.Transition.Result.EmailsSent)
	assert.Equal(t, 1, moved.Transition.Result.WhatsAppsSent)
	assert.Equal(t, []string{"11987654321"}, a.whatsapp.numbers)

	queued, err := a.docs.Query(ctx, docstore.Query{Collection: docstore.CollectionEmails})
	require.NoError(t, err)
	assert.Len(t, queued, 2)

	w, env = a.do(t, http.MethodGet, "/api/board", "ana-token", nil)
	require.Equal(t, http.StatusOK, w.Code)
	var columns []models.BoardColumn
	require.NoError(t, json.Unmarshal(env.Data, &columns))
	assert.Empty(t, columns[0].Startups)
	require.Len(t, columns[1].Startups, 1)
	assert.Equal(t, s.ID, columns[1].Startups[0].ID)

	w, env = a.do(t, http.MethodGet, "/api/startups/"+s.ID+"/timeline", "ana-token", nil)
	require.Equal(t, http.StatusOK, w.Code)
	var history []models.CrmMessage
	require.NoError(t, json.Unmarshal(env.Data, &history))
	assert.Len(t, history, 3)
	for _, m := range history {
		assert.True(t, m.Automatic)
		assert.Equal(t, "Ana", m.SenderName)
	}
}

func TestRouter_StartupOwnership(t *testing.T) {
	a := createTestAPI(t)
	s := a.trackStartup(t, "ana-token", "acme")

	for _, path := range []string{"/api/startups/" + s.ID, "/api/startups/" + s.ID + "/contacts", "/api/startups/" + s.ID + "/timeline"} {
		w, env := a.do(t, http.MethodGet, path, "bob-token", nil)
		assert.Equal(t, http.StatusNotFound, w.Code, path)
		assert.Equal(t, string(apperrors.ErrCodeStartupNotFound), env.Error.Code, path)
	}

	w, _ := a.do(t, http.MethodPost, "/api/startups/"+s.ID+"/move", "bob-token", gin.H{"stageId": "poc"})
	assert.Equal(t, http.StatusNotFound, w.Code)

	w, _ = a.do(t, http.MethodDelete, "/api/startups/"+s.ID, "ana-token", nil)
	assert.Equal(t, http.StatusNoContent, w.Code)
	w, _ = a.do(t, http.MethodGet, "/api/startups/"+s.ID, "ana-token", nil)
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestRouter_StartupValidation(t *testing.T) {
	a := createTestAPI(t)

	w, env := a.do(t, http.MethodPost, "/api/startups", "ana-token", models.SavedStartup{})
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, string(apperrors.ErrCodeValidationFailed), env.Error.Code)

	w, env = a.do(t, http.MethodPost, "/api/startups", "ana-token", models.SavedStartup{StartupName: "x", Stage: "nope"})
	assert.Equal(t, http.StatusNotFound, w.Code)
	assert.Equal(t, string(apperrors.ErrCodeStageNotFound), env.Error.Code)

	s := a.trackStartup(t, "ana-token", "acme")
	w, _ = a.do(t, http.MethodPost, "/api/startups/"+s.ID+"/move", "ana-token", gin.H{})
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w, env = a.do(t, http.MethodPost, "/api/startups/"+s.ID+"/move", "ana-token", gin.H{"stageId": "no-such-stage"})
	assert.Equal(t, http.StatusNotFound, w.Code)
	assert.Equal(t, string(apperrors.ErrCodeStageNotFound), env.Error.Code)
	assert.Empty(t, a.whatsapp.numbers)

	w, env = a.do(t, http.MethodGet, "/api/startups/"+s.ID, "ana-token", nil)
	require.Equal(t, http.StatusOK, w.Code)
	var stored models.SavedStartup
	require.NoError(t, json.Unmarshal(env.Data, &stored))
	assert.Equal(t, "mapeada", stored.Stage)
}

// ==========================
// Contact & Message Route Tests
// ==========================

func TestRouter_Contacts(t *testing.T) {
	a := createTestAPI(t)
	s := a.trackStartup(t, "ana-token", "acme")
	base := "/api/startups/" + s.ID + "/contacts"

	w, env := a.do(t, http.MethodPost, base, "ana-token", models.Contact{Name: "John", Emails: []string{"john@acme.io"}, Type: models.ContactTypeFounder})
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	var added models.Contact
	require.NoError(t, json.Unmarshal(env.Data, &added))
	assert.NotEmpty(t, added.ID)

	w, env = a.do(t, http.MethodPut, base+"/"+added.ID, "ana-token", models.Contact{Name: "John Doe", Emails: []string{"john@acme.io"}})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	_, env = a.do(t, http.MethodGet, base, "ana-token", nil)
	var list []models.Contact
	require.NoError(t, json.Unmarshal(env.Data, &list))
	require.Len(t, list, 3)
	assert.Equal(t, contacts.DefaultContactID, list[0].ID)
	assert.Equal(t, "John Doe", list[2].Name)

	w, env = a.do(t, http.MethodDelete, base+"/"+contacts.DefaultContactID, "ana-token", nil)
	assert.Equal(t, http.StatusConflict, w.Code)
	assert.Equal(t, string(apperrors.ErrCodeDefaultContactImmutable), env.Error.Code)

	w, _ = a.do(t, http.MethodDelete, base+"/"+added.ID, "ana-token", nil)
	assert.Equal(t, http.StatusNoContent, w.Code)
}

func TestRouter_SendMessage(t *testing.T) {
	a := createTestAPI(t)
	s := a.trackStartup(t, "ana-token", "acme")
	path := "/api/startups/" + s.ID + "/messages"

	w, env := a.do(t, http.MethodPost, path, "ana-token", composer.Request{
		ContactID: "c-1",
		Channel:   models.ChannelWhatsApp,
		Message:   "Podemos conversar amanhã?",
	})
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	var msg models.CrmMessage
	require.NoError(t, json.Unmarshal(env.Data, &msg))
	assert.False(t, msg.Automatic)
	assert.Equal(t, s.ID, msg.StartupID)
	assert.Equal(t, []string{"5511987654321"}, a.whatsapp.numbers)

	tests := []struct {
		name string
		body interface{}
	}{
		{"unknown channel", gin.H{"channel": "sms", "message": "hi"}},
		{"missing message", gin.H{"channel": "email", "subject": "s"}},
		{"email without subject", gin.H{"channel": "email", "message": "hi"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w, env := a.do(t, http.MethodPost, path, "ana-token", tt.body)
			assert.Equal(t, http.StatusBadRequest, w.Code, w.Body.String())
			assert.Equal(t, string(apperrors.ErrCodeValidationFailed), env.Error.Code)
		})
	}

	_, env = a.do(t, http.MethodGet, "/api/startups/"+s.ID+"/timeline", "ana-token", nil)
	var history []models.CrmMessage
	require.NoError(t, json.Unmarshal(env.Data, &history))
	assert.Len(t, history, 1)
}

// ==========================
// Chat & Profile Route Tests
// ==========================

func TestRouter_Chat(t *testing.T) {
	a := createTestAPI(t)
	a.assistant.AskFunc = func(ctx context.Context, message, sessionID string, isAnonymous bool) (*assistant.Reply, error) {
		assert.Equal(t, "Quais startups de energia?", message)
		assert.True(t, isAnonymous)
		return &assistant.Reply{SessionID: "sess-1", Output: "Veja a Acme."}, nil
	}

	w, env := a.do(t, http.MethodPost, "/api/chat", "ana-token", gin.H{"message": "Quais startups de energia?", "isAnonymous": true})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	assert.JSONEq(t, `{"sessionId":"sess-1","output":"Veja a Acme."}`, string(env.Data))

	a.assistant.AskFunc = func(context.Context, string, string, bool) (*assistant.Reply, error) {
		return nil, apperrors.NewAssistantTimeoutError()
	}
	w, env = a.do(t, http.MethodPost, "/api/chat", "ana-token", gin.H{"message": "oi"})
	assert.Equal(t, http.StatusGatewayTimeout, w.Code)
	assert.Equal(t, string(apperrors.ErrCodeAssistantTimeout), env.Error.Code)

	w, _ = a.do(t, http.MethodPost, "/api/chat", "ana-token", gin.H{})
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestRouter_Profile(t *testing.T) {
	a := createTestAPI(t)

	w, _ := a.do(t, http.MethodPut, "/api/profile", "ana-token", models.UserProfile{Name: "Ana", Company: "Globex"})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	w, env := a.do(t, http.MethodGet, "/api/profile", "ana-token", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"id":"u-ana","name":"Ana","email":"ana@globex.com","company":"Globex"}`, string(env.Data))

	w, env = a.do(t, http.MethodPut, "/api/profile", "ana-token", gin.H{"company": "Globex"})
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, string(apperrors.ErrCodeValidationFailed), env.Error.Code)
}

func TestRouter_Profile_KeepsPlanOnEdit(t *testing.T) {
	a := createTestAPI(t)

	w, _ := a.do(t, http.MethodPost, "/api/account/register", "ana-token", gin.H{"name": "Ana", "company": "Globex", "acceptedTerms": true})
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	w, _ = a.do(t, http.MethodPost, "/api/account/plan", "ana-token", gin.H{"plan": "mestre-jedi"})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	w, env := a.do(t, http.MethodPut, "/api/profile", "ana-token", gin.H{"name": "Ana Souza", "company": "Globex", "plan": "Mestre Yoda", "quota": 9999})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	var p models.UserProfile
	require.NoError(t, json.Unmarshal(env.Data, &p))
	assert.Equal(t, "Ana Souza", p.Name)
	assert.Equal(t, "Mestre Jedi", p.Plan)
	assert.Equal(t, 300, p.Quota)
	assert.True(t, p.AcceptedTerms)
}

// ==========================
// Challenge Route Tests
// ==========================

func TestRouter_Challenges(t *testing.T) {
	a := createTestAPI(t)

	w, env := a.do(t, http.MethodPost, "/api/challenges", "ana-token", gin.H{
		"title": "Energia limpa", "description": "Reduzir consumo nas fábricas", "businessArea": "Indústria",
	})
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	var created challenges.Created
	require.NoError(t, json.Unmarshal(env.Data, &created))
	require.NotNil(t, created.Reply)
	assert.Equal(t, "Olá, jovem Padawan!", created.Reply.Content)
	assert.Equal(t, "ana@globex.com", created.Challenge.UserEmail)
	id := created.Challenge.ID

	var sessions []string
	a.assistant.AskFunc = func(ctx context.Context, message, sessionID string, isAnonymous bool) (*assistant.Reply, error) {
		sessions = append(sessions, sessionID)
		return &assistant.Reply{SessionID: sessionID, Output: "Olhe a Acme Solar."}, nil
	}

	// /api/chat with a challengeId continues that challenge's conversation
	w, env = a.do(t, http.MethodPost, "/api/chat", "ana-token", gin.H{"message": "Alguma sugestão?", "challengeId": id})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	var reply models.ChatMessage
	require.NoError(t, json.Unmarshal(env.Data, &reply))
	assert.Equal(t, "Olhe a Acme Solar.", reply.Content)
	assert.Equal(t, []string{created.Challenge.SessionID}, sessions)

	w, _ = a.do(t, http.MethodPost, "/api/challenges/"+id+"/messages", "ana-token", gin.H{"message": "E outra?"})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	w, env = a.do(t, http.MethodGet, "/api/challenges/"+id+"/messages", "ana-token", nil)
	require.Equal(t, http.StatusOK, w.Code)
	var history []models.ChatMessage
	require.NoError(t, json.Unmarshal(env.Data, &history))
	require.Len(t, history, 5)
	assert.Equal(t, "Alguma sugestão?", history[1].Content)
	assert.Equal(t, "E outra?", history[3].Content)

	w, env = a.do(t, http.MethodGet, "/api/challenges", "ana-token", nil)
	require.Equal(t, http.StatusOK, w.Code)
	var list []models.Challenge
	require.NoError(t, json.Unmarshal(env.Data, &list))
	assert.Len(t, list, 1)

	w, env = a.do(t, http.MethodGet, "/api/challenges/"+id+"/messages", "bob-token", nil)
	assert.Equal(t, http.StatusNotFound, w.Code)
	assert.Equal(t, string(apperrors.ErrCodeChallengeNotFound), env.Error.Code)

	w, env = a.do(t, http.MethodPost, "/api/chat", "bob-token", gin.H{"message": "oi", "challengeId": id})
	assert.Equal(t, http.StatusNotFound, w.Code)
	assert.Equal(t, string(apperrors.ErrCodeChallengeNotFound), env.Error.Code)
}

func TestRouter_Challenges_AssistantDownStillCreates(t *testing.T) {
	a := createTestAPI(t)
	a.assistant.AskFunc = func(context.Context, string, string, bool) (*assistant.Reply, error) {
		return nil, apperrors.NewAssistantTimeoutError()
	}

	w, env := a.do(t, http.MethodPost, "/api/challenges", "ana-token", gin.H{
		"title": "Energia limpa", "description": "d", "businessArea": "Indústria",
	})
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	var created challenges.Created
	require.NoError(t, json.Unmarshal(env.Data, &created))
	assert.Nil(t, created.Reply)

	w, env = a.do(t, http.MethodPost, "/api/challenges/"+created.Challenge.ID+"/messages", "ana-token", gin.H{"message": "oi"})
	assert.Equal(t, http.StatusGatewayTimeout, w.Code)
	assert.Equal(t, string(apperrors.ErrCodeAssistantTimeout), env.Error.Code)

	w, env = a.do(t, http.MethodGet, "/api/challenges/"+created.Challenge.ID+"/messages", "ana-token", nil)
	require.Equal(t, http.StatusOK, w.Code)
	var history []models.ChatMessage
	require.NoError(t, json.Unmarshal(env.Data, &history))
	require.Len(t, history, 2)
	assert.Equal(t, challenges.FallbackReply, history[1].Content)
}

func TestRouter_PublicChallenge(t *testing.T) {
	a := createTestAPI(t)

	w, env := a.do(t, http.MethodPost, "/api/challenges", "ana-token", gin.H{
		"title": "Logística Verde", "description": "d", "businessArea": "Transporte",
	})
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	var created challenges.Created
	require.NoError(t, json.Unmarshal(env.Data, &created))

	w, env = a.do(t, http.MethodPost, "/api/challenges/"+created.Challenge.ID+"/publish", "ana-token", gin.H{"companyName": "Globex"})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	var published models.Challenge
	require.NoError(t, json.Unmarshal(env.Data, &published))
	require.NotEmpty(t, published.Slug)

	w, env = a.do(t, http.MethodGet, "/public/challenges/"+published.Slug, "", nil)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	var pub models.PublicChallenge
	require.NoError(t, json.Unmarshal(env.Data, &pub))
	assert.Equal(t, "Logística Verde", pub.Title)
	assert.Equal(t, "Globex", pub.CompanyName)

	w, env = a.do(t, http.MethodPost, "/public/challenges/"+published.Slug+"/startups", "", gin.H{
		"name": "Rota", "website": "https://rota.io", "founderName": "Caio", "email": "caio@rota.io", "whatsapp": "11999990000",
	})
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	var app models.StartupApplication
	require.NoError(t, json.Unmarshal(env.Data, &app))
	assert.Equal(t, published.ID, app.ChallengeID)
	assert.Equal(t, "inscrita", app.Status)

	w, env = a.do(t, http.MethodPost, "/public/challenges/"+published.Slug+"/startups", "", gin.H{"name": "Rota"})
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, string(apperrors.ErrCodeValidationFailed), env.Error.Code)

	w, env = a.do(t, http.MethodGet, "/public/challenges/nao-existe", "", nil)
	assert.Equal(t, http.StatusNotFound, w.Code)
	assert.Equal(t, string(apperrors.ErrCodeChallengeNotFound), env.Error.Code)
}

// ==========================
// Account Route Tests
// ==========================

func TestRouter_Account(t *testing.T) {
	a := createTestAPI(t)

	w, env := a.do(t, http.MethodPost, "/api/account/register", "ana-token", gin.H{"name": "Ana", "acceptedTerms": false})
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, string(apperrors.ErrCodeTermsNotAccepted), env.Error.Code)

	w, _ = a.do(t, http.MethodPost, "/api/account/register", "ana-token", gin.H{"name": "Ana", "company": "Globex", "acceptedTerms": true})
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())

	w, _ = a.do(t, http.MethodPost, "/api/account/verify-email", "ana-token", nil)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	w, env = a.do(t, http.MethodPost, "/api/account/verify-email", "bob-token", nil)
	assert.Equal(t, http.StatusConflict, w.Code)
	assert.Equal(t, string(apperrors.ErrCodeBusinessRule), env.Error.Code)

	w, env = a.do(t, http.MethodPost, "/api/account/plan", "ana-token", gin.H{"plan": "padawan"})
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, string(apperrors.ErrCodeInvalidPlan), env.Error.Code)

	w, env = a.do(t, http.MethodPost, "/api/account/plan", "ana-token", gin.H{"plan": "jedi"})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	w, env = a.do(t, http.MethodGet, "/api/account/usage", "ana-token", nil)
	require.Equal(t, http.StatusOK, w.Code)
	var usage models.TokenUsage
	require.NoError(t, json.Unmarshal(env.Data, &usage))
	assert.Equal(t, "Jedi", usage.Plan)
	assert.Equal(t, 1000, usage.TotalTokens)

	w, env = a.do(t, http.MethodGet, "/api/profile", "ana-token", nil)
	require.Equal(t, http.StatusOK, w.Code)
	var p models.UserProfile
	require.NoError(t, json.Unmarshal(env.Data, &p))
	assert.Equal(t, "Jedi", p.Plan)
	assert.Equal(t, 30, p.Quota)
	assert.True(t, p.Activated)

	w, env = a.do(t, http.MethodGet, "/api/account/consents", "ana-token", nil)
	require.Equal(t, http.StatusOK, w.Code)
	var consents []models.ConsentRecord
	require.NoError(t, json.Unmarshal(env.Data, &consents))
	assert.Len(t, consents, 4)

	w, env = a.do(t, http.MethodGet, "/api/plans", "ana-token", nil)
	require.Equal(t, http.StatusOK, w.Code)
	var plans []account.Plan
	require.NoError(t, json.Unmarshal(env.Data, &plans))
	assert.Len(t, plans, 3)

	w, _ = a.do(t, http.MethodDelete, "/api/account", "ana-token", nil)
	require.Equal(t, http.StatusNoContent, w.Code)

	w, env = a.do(t, http.MethodPost, "/api/account/register", "ana-token", gin.H{"name": "Ana", "acceptedTerms": true})
	assert.Equal(t, http.StatusConflict, w.Code)
	assert.Equal(t, string(apperrors.ErrCodeAccountDeleted), env.Error.Code)
}
