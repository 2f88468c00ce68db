package api

import (
	"context"
	"strconv"
	"strings"
	"time"

	"innovation-crm/internal/common/auth"
	apperrors "innovation-crm/internal/common/errors"
	"innovation-crm/internal/common/logger"
	"innovation-crm/internal/common/metrics"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

const (
	requestIDKey = "requestId"
	userIDKey    = "userId"
	tokenInfoKey = "tokenInfo"
)

// TokenValidator resolves a bearer token to the caller's identity.
type TokenValidator interface {
	ValidateToken(ctx context.Context, token string) (*auth.TokenInfo, error)
}

// RequestLogger logs every request with its latency and a request id, taken
// from X-Request-ID when the caller sends one.
func RequestLogger(log logger.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		requestID := strings.TrimSpace(c.GetHeader("X-Request-ID"))
		if requestID == "" {
			requestID = uuid.NewString()
		}
		c.Set(requestIDKey, requestID)
		c.Writer.Header().Set("X-Request-ID", requestID)

		c.Next()

		status := c.Writer.Status()
		fields := map[string]interface{}{
			"requestId": requestID,
			"status":    status,
			"method":    c.Request.Method,
			"path":      c.Request.URL.Path,
			"latency":   time.Since(start).String(),
			"clientIp":  c.ClientIP(),
		}
		if userID := c.GetString(userIDKey); userID != "" {
			fields["userId"] = userID
		}
		if len(c.Errors) > 0 {
			fields["error"] = c.Errors.String()
		}

		switch {
		case status >= 500:
			log.Error("http_request", fields)
		case status >= 400:
			log.Warn("http_request", fields)
		default:
			log.Info("http_request", fields)
		}
	}
}

// Metrics records request counts and latency by route template.
func Metrics() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()

		route := c.FullPath()
		if route == "" {
			route = "unmatched"
		}
		metrics.HTTPRequestsTotal.WithLabelValues(c.Request.Method, route, strconv.Itoa(c.Writer.Status())).Inc()
		metrics.HTTPRequestDuration.WithLabelValues(c.Request.Method, route).Observe(time.Since(start).Seconds())
	}
}

// Authenticate requires a valid bearer token and stores the caller's user id.
func Authenticate(tokens TokenValidator) gin.HandlerFunc {
	return func(c *gin.Context) {
		header := c.GetHeader("Authorization")
		parts := strings.SplitN(header, " ", 2)
		if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") || strings.TrimSpace(parts[1]) == "" {
			respondError(c, apperrors.NewAuthenticationError("bearer token required"))
			return
		}

		info, err := tokens.ValidateToken(c.Request.Context(), strings.TrimSpace(parts[1]))
		if err != nil {
			// keycloak outages surface as 502/504, bad tokens as 401
			respondError(c, err)
			return
		}

		c.Set(userIDKey, info.UserID())
		c.Set(tokenInfoKey, info)
		c.Next()
	}
}

func currentUser(c *gin.Context) string {
	return c.GetString(userIDKey)
}
