// internal/common/camunda/client.go
package camunda

import (
	"context"
	"fmt"
	"strings"
	"time"

	"innovation-crm/internal/common/config"
	"innovation-crm/internal/common/errors"

	"github.com/camunda/zeebe/clients/go/v8/pkg/zbc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
)

// Client wraps the Zeebe gRPC client with enhanced error handling and retry logic.
type Client struct {
	client zbc.Client
	config *ClientConfig
}

// ClientConfig holds configuration for the Camunda/Zeebe client.
type ClientConfig struct {
	GatewayAddress         string
	UsePlaintextConnection bool
	ConnectionTimeout      time.Duration
	RequestTimeout         time.Duration
	RetryConfig            *RetryConfig
}

// RetryConfig defines retry behavior for transient failures.
type RetryConfig struct {
	MaxRetries int
	BaseDelay  time.Duration
	MaxDelay   time.Duration
}

// DefaultRetryConfig is used when a ClientConfig carries none.
var DefaultRetryConfig = &RetryConfig{
	MaxRetries: 3,
	BaseDelay:  1 * time.Second,
	MaxDelay:   10 * time.Second,
}

// NewClient connects to the broker named in the application config.
func NewClient(cfg config.CamundaConfig) (*Client, error) {
	return NewClientWithConfig(&ClientConfig{
		GatewayAddress:         cfg.BrokerAddress,
		UsePlaintextConnection: true,
		ConnectionTimeout:      10 * time.Second,
		RequestTimeout:         config.GetDuration(cfg.RequestTimeout),
		RetryConfig:            DefaultRetryConfig,
	})
}

// NewClientWithConfig creates a client and checks the broker topology before
// returning it.
func NewClientWithConfig(config *ClientConfig) (*Client, error) {
	if config.RetryConfig == nil {
		config.RetryConfig = DefaultRetryConfig
	}

	zeebeClient, err := zbc.NewClient(&zbc.ClientConfig{
		GatewayAddress:         config.GatewayAddress,
		UsePlaintextConnection: config.UsePlaintextConnection,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create Zeebe client: %w", err)
	}

	// Test connection with timeout
	ctx, cancel := context.WithTimeout(context.Background(), config.ConnectionTimeout)
	defer cancel()

	if _, err := zeebeClient.NewTopologyCommand().Send(ctx); err != nil {
		zeebeClient.Close()
		return nil, fmt.Errorf("failed to connect to Zeebe broker at %s: %w", config.GatewayAddress, err)
	}

	return &Client{
		client: zeebeClient,
		config: config,
	}, nil
}

// GetClient returns the raw Zeebe client for opening job workers.
func (c *Client) GetClient() zbc.Client {
	return c.client
}

// Close releases the underlying gRPC connection.
func (c *Client) Close() error {
	return c.client.Close()
}

// ExecuteWithRetry runs a Zeebe command with exponential backoff. Only
// transient errors (timeouts, connection issues) are retried.
func (c *Client) ExecuteWithRetry(
	ctx context.Context,
	commandFunc func(context.Context) (interface{}, error),
	operationName string,
) (interface{}, error) {
	var lastErr error

	for attempt := 0; attempt <= c.config.RetryConfig.MaxRetries; attempt++ {
		result, err := commandFunc(ctx)
		if err == nil {
			return result, nil
		}

		lastErr = err

		// Stop retrying if not a transient error or max retries reached
		if !isRetryableZeebeError(err) || attempt == c.config.RetryConfig.MaxRetries {
			return nil, c.mapZeebeError(err, operationName, attempt)
		}

		delay := c.config.RetryConfig.BaseDelay * time.Duration(1<<attempt)
		if delay > c.config.RetryConfig.MaxDelay {
			delay = c.config.RetryConfig.MaxDelay
		}

		select {
		case <-time.After(delay):
		case <-ctx.Done():
			return nil, fmt.Errorf("operation %s cancelled after %d attempts: %w", operationName, attempt, ctx.Err())
		}
	}

	return nil, fmt.Errorf("operation %s failed after %d retries: %w", operationName, c.config.RetryConfig.MaxRetries, lastErr)
}

// zeebeErrorKind groups broker failures by how the worker should react.
type zeebeErrorKind int

const (
	kindUnavailable zeebeErrorKind = iota
	kindTimeout
	kindNotFound
	kindConflict
	kindDenied
	kindOther
)

var kindByCode = map[codes.Code]zeebeErrorKind{
	codes.Unavailable:        kindUnavailable,
	codes.ResourceExhausted:  kindUnavailable,
	codes.DeadlineExceeded:   kindTimeout,
	codes.NotFound:           kindNotFound,
	codes.AlreadyExists:      kindConflict,
	codes.FailedPrecondition: kindConflict,
	codes.PermissionDenied:   kindDenied,
	codes.Unauthenticated:    kindDenied,
}

// phrases match errors that reach us without a gRPC status, e.g. dial errors.
var kindByPhrase = []struct {
	kind    zeebeErrorKind
	phrases []string
}{
	{kindUnavailable, []string{"connection refused", "connection reset", "unavailable", "unreachable", "broken pipe"}},
	{kindTimeout, []string{"timeout", "deadline exceeded"}},
	{kindNotFound, []string{"not found"}},
	{kindConflict, []string{"already exists"}},
	{kindDenied, []string{"permission denied", "unauthorized"}},
}

func classifyZeebeError(err error) zeebeErrorKind {
	if st, ok := status.FromError(err); ok && st.Code() != codes.Unknown {
		if kind, found := kindByCode[st.Code()]; found {
			return kind
		}
	}
	msg := strings.ToLower(err.Error())
	for _, entry := range kindByPhrase {
		for _, phrase := range entry.phrases {
			if strings.Contains(msg, phrase) {
				return entry.kind
			}
		}
	}
	return kindOther
}

func isRetryableZeebeError(err error) bool {
	switch classifyZeebeError(err) {
	case kindUnavailable, kindTimeout:
		return true
	default:
		return false
	}
}

// mapZeebeError converts Zeebe errors into StandardErrors.
func (c *Client) mapZeebeError(err error, operation string, attempt int) error {
	label := fmt.Sprintf("zeebe %s", operation)
	if attempt > 0 {
		label += fmt.Sprintf(" (%d retries)", attempt)
	}
	wrapped := fmt.Errorf("%s: %w", label, err)

	switch classifyZeebeError(err) {
	case kindTimeout:
		return errors.NewTimeoutError("zeebe", wrapped)
	case kindNotFound:
		return errors.NewResourceNotFoundError("zeebe", wrapped.Error())
	case kindConflict:
		return errors.NewBusinessRuleError(wrapped.Error(), "resource already exists or is in the wrong state")
	case kindDenied:
		return errors.NewAuthenticationError(wrapped.Error())
	default:
		return errors.NewExternalServiceError("zeebe", wrapped)
	}
}

// HealthCheck performs a basic health check against the Zeebe broker.
func (c *Client) HealthCheck(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(ctx, c.config.ConnectionTimeout)
	defer cancel()

	_, err := c.client.NewTopologyCommand().Send(ctx)
	if err != nil {
		return fmt.Errorf("zeebe health check failed: %w", err)
	}
	return nil
}
