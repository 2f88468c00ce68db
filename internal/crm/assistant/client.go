// Package assistant proxies chat messages to the startup recommendation
// webhook.
package assistant

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"innovation-crm/internal/common/config"
	apperrors "innovation-crm/internal/common/errors"
	httpclient "innovation-crm/internal/common/http"
	"innovation-crm/internal/common/logger"

	"github.com/google/uuid"
)

const defaultTimeout = 60 * time.Second

type Client struct {
	webhookURL string
	maxRetries int
	backoff    time.Duration
	httpClient *httpclient.Client
	logger     logger.Logger
}

type askRequest struct {
	Message     string `json:"message"`
	SessionID   string `json:"sessionId"`
	IsAnonymous bool   `json:"isAnonymous"`
}

type askResponseItem struct {
	Output string `json:"output"`
}

// Reply is the assistant's answer within a chat session.
type Reply struct {
	SessionID string `json:"sessionId"`
	Output    string `json:"output"`
}

func NewClient(cfg config.AssistantConfig, log logger.Logger) *Client {
	timeout := time.Duration(cfg.Timeout) * time.Millisecond
	if timeout <= 0 {
		timeout = defaultTimeout
	}
	return &Client{
		webhookURL: cfg.WebhookURL,
		maxRetries: cfg.MaxRetries,
		backoff:    time.Second,
		httpClient: httpclient.NewClient(timeout),
		logger:     log,
	}
}

func (c *Client) Enabled() bool {
	return c.webhookURL != ""
}

// Ask forwards message to the webhook and returns the first output. A session
// id is generated when sessionID is empty. Transport errors and transient statuses
// are retried up to the configured count.
func (c *Client) Ask(ctx context.Context, message, sessionID string, isAnonymous bool) (*Reply, error) {
	if !c.Enabled() {
		return nil, apperrors.NewExternalServiceError("assistant", fmt.Errorf("webhook not configured"))
	}
	if message == "" {
		return nil, apperrors.NewValidationFailedError("message is required")
	}
	if sessionID == "" {
		sessionID = uuid.NewString()
	}

	req := askRequest{Message: message, SessionID: sessionID, IsAnonymous: isAnonymous}

	var lastErr error
	for attempt := 0; attempt <= c.maxRetries; attempt++ {
		if attempt > 0 {
			select {
			case <-ctx.Done():
				return nil, apperrors.NewAssistantTimeoutError()
			case <-time.After(c.backoff * time.Duration(attempt)):
			}
			c.logger.Warn("Retrying assistant webhook", map[string]interface{}{
				"sessionId": sessionID,
				"attempt":   attempt,
				"error":     lastErr,
			})
		}

		output, err := c.post(ctx, req)
		if err == nil {
			return &Reply{SessionID: sessionID, Output: output}, nil
		}
		lastErr = err
		if stdErr, ok := apperrors.As(err); !ok || !stdErr.Retryable {
			break
		}
	}
	return nil, lastErr
}

func (c *Client) post(ctx context.Context, req askRequest) (string, error) {
	resp, err := c.httpClient.PostJSON(ctx, c.webhookURL, nil, req)
	if err != nil {
		if ctx.Err() != nil {
			return "", apperrors.NewAssistantTimeoutError()
		}
		return "", apperrors.NewAssistantWebhookFailedError(err)
	}
	if !resp.OK() {
		e := apperrors.NewAssistantWebhookFailedError(fmt.Errorf("status %d", resp.StatusCode))
		e.Retryable = apperrors.IsTransientStatus(resp.StatusCode)
		return "", e
	}

	var items []askResponseItem
	if err := json.Unmarshal(resp.Body, &items); err != nil {
		e := apperrors.NewAssistantWebhookFailedError(fmt.Errorf("decode response: %w", err))
		e.Retryable = false
		return "", e
	}
	if len(items) == 0 || items[0].Output == "" {
		e := apperrors.NewAssistantWebhookFailedError(fmt.Errorf("response has no output"))
		e.Retryable = false
		return "", e
	}
	return items[0].Output, nil
}
