package evolution

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"unicode/utf8"

	"innovation-crm/internal/common/config"
	apperrors "innovation-crm/internal/common/errors"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestClient_SendText(t *testing.T) {
	var got sendTextRequest
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/message/sendText/inst-1", r.URL.Path)
		assert.Equal(t, "key-1", r.Header.Get("apikey"))
		require.NoError(t, json.NewDecoder(r.Body).Decode(&got))
		w.WriteHeader(http.StatusCreated)
	}))
	defer server.Close()

	client := NewClient(config.EvolutionConfig{BaseURL: server.URL + "/", InstanceKey: "inst-1", APIKey: "key-1"})
	require.NoError(t, client.SendText(context.Background(), "5511987654321", "Oi"))
	assert.Equal(t, "5511987654321", got.Number)
	assert.Equal(t, "Oi", got.Text)
}

func TestClient_SendText_APIKeyFallsBackToInstance(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "inst-1", r.Header.Get("apikey"))
	}))
	defer server.Close()

	client := NewClient(config.EvolutionConfig{BaseURL: server.URL, InstanceKey: "inst-1"})
	assert.NoError(t, client.SendText(context.Background(), "1", "x"))
}

func TestClient_SendText_Errors(t *testing.T) {
	tests := []struct {
		name      string
		status    int
		wantCode  apperrors.ErrorCode
		retryable bool
	}{
		{"bad request", http.StatusBadRequest, apperrors.ErrCodeWhatsAppGatewayError, false},
		{"gateway down", http.StatusServiceUnavailable, apperrors.ErrCodeWhatsAppGatewayError, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				http.Error(w, `{"error":"boom"}`, tt.status)
			}))
			defer server.Close()

			err := NewClient(config.EvolutionConfig{BaseURL: server.URL, InstanceKey: "i"}).
				SendText(context.Background(), "1", "x")
			stdErr, ok := apperrors.As(err)
			require.True(t, ok)
			assert.Equal(t, tt.wantCode, stdErr.Code)
			assert.Equal(t, tt.retryable, stdErr.Retryable)
			assert.Contains(t, stdErr.Details, "boom")
		})
	}
}

func TestClient_SendText_TransportFailure(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	url := server.URL
	server.Close()

	err := NewClient(config.EvolutionConfig{BaseURL: url, InstanceKey: "inst-1"}).
		SendText(context.Background(), "1", "x")
	stdErr, ok := apperrors.As(err)
	require.True(t, ok)
	assert.Equal(t, apperrors.ErrCodeNotificationSendFailed, stdErr.Code)
	assert.True(t, stdErr.Retryable)
	assert.Equal(t, "inst-1", stdErr.Metadata["instance"])
	assert.Equal(t, http.StatusBadGateway, apperrors.HTTPStatus(stdErr.Code))
}

func TestTruncate_KeepsRunesWhole(t *testing.T) {
	tests := []struct {
		name     string
		in       string
		n        int
		expected string
	}{
		{"short", "boom", 10, "boom"},
		{"ascii cut", "abcdef", 3, "abc"},
		{"cut inside two-byte rune", "inovação", 6, "inova"},
		{"cut after two-byte rune", "inovação", 7, "inovaç"},
		{"cut inside four-byte rune", "ok🚀", 4, "ok"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := truncate(tt.in, tt.n)
			assert.Equal(t, tt.expected, got)
			assert.True(t, utf8.ValidString(got))
		})
	}
}

func TestClient_NotConfigured(t *testing.T) {
	client := NewClient(config.EvolutionConfig{})
	assert.False(t, client.Enabled())
	err := client.SendText(context.Background(), "1", "x")
	assert.True(t, apperrors.HasCode(err, apperrors.ErrCodeExternalService))
}
