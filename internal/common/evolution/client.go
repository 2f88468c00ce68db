// internal/common/evolution/client.go
//
// Package evolution is a client for the Evolution API WhatsApp gateway.
package evolution

import (
	"context"
	"fmt"
	"strings"
	"time"
	"unicode/utf8"

	"innovation-crm/internal/common/config"
	apperrors "innovation-crm/internal/common/errors"
	httpclient "innovation-crm/internal/common/http"
)

const defaultTimeout = 30 * time.Second

type Client struct {
	baseURL     string
	instanceKey string
	apiKey      string
	httpClient  *httpclient.Client
}

type sendTextRequest struct {
	Number string `json:"number"`
	Text   string `json:"text"`
}

func NewClient(cfg config.EvolutionConfig) *Client {
	timeout := time.Duration(cfg.Timeout) * time.Millisecond
	if timeout <= 0 {
		timeout = defaultTimeout
	}
	apiKey := cfg.APIKey
	if apiKey == "" {
		apiKey = cfg.InstanceKey
	}
	return &Client{
		baseURL:     strings.TrimRight(cfg.BaseURL, "/"),
		instanceKey: cfg.InstanceKey,
		apiKey:      apiKey,
		httpClient:  httpclient.NewClient(timeout),
	}
}

// Enabled reports whether a gateway is configured.
func (c *Client) Enabled() bool {
	return c.baseURL != "" && c.instanceKey != ""
}

// SendText posts a text message to number. Any 2xx response is a success.
func (c *Client) SendText(ctx context.Context, number, text string) error {
	if !c.Enabled() {
		return apperrors.NewExternalServiceError("evolution", fmt.Errorf("gateway not configured"))
	}

	url := fmt.Sprintf("%s/message/sendText/%s", c.baseURL, c.instanceKey)
	resp, err := c.httpClient.PostJSON(ctx, url,
		map[string]string{"apikey": c.apiKey},
		sendTextRequest{Number: number, Text: text},
	)
	if err != nil {
		if ctx.Err() != nil {
			return apperrors.NewTimeoutError("evolution", err)
		}
		return apperrors.NewNotificationSendFailedError("whatsapp", err).
			WithMetadata("instance", c.instanceKey)
	}

	if !resp.OK() {
		return apperrors.NewWhatsAppGatewayError(resp.StatusCode, truncate(string(resp.Body), 500))
	}
	return nil
}

// truncate keeps at most n bytes of s without splitting a UTF-8 sequence.
func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	for n > 0 && !utf8.RuneStart(s[n]) {
		n--
	}
	return s[:n]
}
