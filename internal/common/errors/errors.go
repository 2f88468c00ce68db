// Package errors provides standardized error handling for the CRM service,
// its HTTP API and its workflow workers.
package errors

import (
	stderrors "errors"
	"fmt"
	"net/http"
	"strings"
	"time"
)

// ==========================
// 1. Standard Error Types
// ==========================

// ErrorCode represents standardized internal error codes.
type ErrorCode string

const (
	ErrCodeStageNotFound           ErrorCode = "STAGE_NOT_FOUND"
	ErrCodeStartupNotFound         ErrorCode = "STARTUP_NOT_FOUND"
	ErrCodeContactNotFound         ErrorCode = "CONTACT_NOT_FOUND"
	ErrCodeLastStageDeleteRejected ErrorCode = "LAST_STAGE_DELETE_REJECTED"
	ErrCodeDefaultContactImmutable ErrorCode = "DEFAULT_CONTACT_IMMUTABLE"
	ErrCodeStagePersistFailed      ErrorCode = "STAGE_PERSIST_FAILED"

	ErrCodeDocumentStoreError ErrorCode = "DOCUMENT_STORE_ERROR"
	ErrCodeDocumentNotFound   ErrorCode = "DOCUMENT_NOT_FOUND"

	ErrCodeNotificationSendFailed ErrorCode = "NOTIFICATION_SEND_FAILED"
	ErrCodeEmailEnqueueFailed     ErrorCode = "EMAIL_ENQUEUE_FAILED"
	ErrCodeWhatsAppGatewayError   ErrorCode = "WHATSAPP_GATEWAY_ERROR"
	ErrCodeEmailDeliveryFailed    ErrorCode = "EMAIL_DELIVERY_FAILED"
	ErrCodeSenderLookupFailed     ErrorCode = "SENDER_LOOKUP_FAILED"

	ErrCodeInvalidPhone     ErrorCode = "INVALID_PHONE"
	ErrCodeValidationFailed ErrorCode = "VALIDATION_FAILED"

	ErrCodeAssistantWebhookFailed ErrorCode = "ASSISTANT_WEBHOOK_FAILED"
	ErrCodeAssistantTimeout       ErrorCode = "ASSISTANT_TIMEOUT"

	ErrCodeChallengeNotFound ErrorCode = "CHALLENGE_NOT_FOUND"
	ErrCodeAccountDeleted    ErrorCode = "ACCOUNT_DELETED"
	ErrCodeTermsNotAccepted  ErrorCode = "TERMS_NOT_ACCEPTED"
	ErrCodeInvalidPlan       ErrorCode = "INVALID_PLAN"

	ErrCodeAuthentication   ErrorCode = "AUTHENTICATION_ERROR"
	ErrCodeBusinessRule     ErrorCode = "BUSINESS_RULE_VIOLATION"
	ErrCodeExternalService  ErrorCode = "EXTERNAL_SERVICE_ERROR"
	ErrCodeTimeout          ErrorCode = "TIMEOUT_ERROR"
	ErrCodeResourceNotFound ErrorCode = "RESOURCE_NOT_FOUND"
	ErrCodeInternal         ErrorCode = "INTERNAL_ERROR"
)

// StandardError represents a structured application error.
type StandardError struct {
	Code      ErrorCode              `json:"code"`
	Message   string                 `json:"message"`
	Details   string                 `json:"details,omitempty"`
	Retryable bool                   `json:"retryable"`
	Metadata  map[string]interface{} `json:"metadata,omitempty"`
	Timestamp time.Time              `json:"timestamp"`
}

func (e *StandardError) Error() string {
	return fmt.Sprintf("StandardError[%s]: %s", e.Code, e.Message)
}

// WithMetadata attaches a key to the error metadata and returns the error.
func (e *StandardError) WithMetadata(key string, value interface{}) *StandardError {
	if e.Metadata == nil {
		e.Metadata = make(map[string]interface{})
	}
	e.Metadata[key] = value
	return e
}

// As extracts a StandardError from an error chain.
func As(err error) (*StandardError, bool) {
	var stdErr *StandardError
	if stderrors.As(err, &stdErr) {
		return stdErr, true
	}
	return nil, false
}

// HasCode reports whether err carries the given code.
func HasCode(err error, code ErrorCode) bool {
	stdErr, ok := As(err)
	return ok && stdErr.Code == code
}

// ==========================
// 2. BPMN Error Integration
// ==========================

// BPMNError represents an error that can be thrown to the Camunda workflow engine.
type BPMNError struct {
	Code           string                 `json:"code"`
	Message        string                 `json:"message"`
	Details        string                 `json:"details,omitempty"`
	Retryable      bool                   `json:"retryable"`
	Retries        int                    `json:"retries"`
	ErrorVariables map[string]interface{} `json:"errorVariables,omitempty"`
}

func (e *BPMNError) Error() string {
	return fmt.Sprintf("BPMNError[%s]: %s", e.Code, e.Message)
}

// ToErrorVariables returns a map suitable for setting Camunda job fail variables.
func (e *BPMNError) ToErrorVariables() map[string]interface{} {
	vars := map[string]interface{}{
		"errorCode":    e.Code,
		"errorMessage": e.Message,
		"errorDetails": e.Details,
		"retryable":    e.Retryable,
	}

	for k, v := range e.ErrorVariables {
		vars[k] = v
	}

	return vars
}

// ==========================
// 3. Error Constructors
// ==========================

func newError(code ErrorCode, message, details string, retryable bool) *StandardError {
	return &StandardError{
		Code:      code,
		Message:   message,
		Details:   details,
		Retryable: retryable,
		Timestamp: time.Now().UTC(),
	}
}

// NewStageNotFoundError creates a non-retryable stage lookup error.
func NewStageNotFoundError(stageID string) *StandardError {
	return newError(ErrCodeStageNotFound, "Pipeline stage not found", fmt.Sprintf("stageId: %s", stageID), false)
}

// NewStartupNotFoundError creates a non-retryable startup lookup error.
func NewStartupNotFoundError(startupID string) *StandardError {
	return newError(ErrCodeStartupNotFound, "Tracked startup not found", fmt.Sprintf("startupId: %s", startupID), false)
}

// NewContactNotFoundError creates a non-retryable contact lookup error.
func NewContactNotFoundError(contactID string) *StandardError {
	return newError(ErrCodeContactNotFound, "Contact not found", fmt.Sprintf("contactId: %s", contactID), false)
}

// NewLastStageDeleteRejectedError is returned when deleting the only remaining stage.
func NewLastStageDeleteRejectedError(stageID string) *StandardError {
	return newError(ErrCodeLastStageDeleteRejected, "At least one pipeline stage must remain", fmt.Sprintf("stageId: %s", stageID), false)
}

// NewDefaultContactImmutableError is returned when editing or deleting the synthesized default contact.
func NewDefaultContactImmutableError() *StandardError {
	return newError(ErrCodeDefaultContactImmutable, "The default contact cannot be changed", "contactId: default", false)
}

// NewStagePersistFailedError creates a retryable error for a failed stage write.
func NewStagePersistFailedError(startupID string, err error) *StandardError {
	return newError(ErrCodeStagePersistFailed, "Failed to persist startup stage",
		fmt.Sprintf("startupId: %s, error: %s", startupID, err.Error()), true)
}

// NewDocumentStoreError creates a retryable document store error.
func NewDocumentStoreError(operation string, err error) *StandardError {
	return newError(ErrCodeDocumentStoreError, "Document store operation failed",
		fmt.Sprintf("operation: %s, error: %s", operation, err.Error()), true)
}

// NewDocumentNotFoundError creates a non-retryable missing document error.
func NewDocumentNotFoundError(collection, id string) *StandardError {
	return newError(ErrCodeDocumentNotFound, "Document not found",
		fmt.Sprintf("collection: %s, id: %s", collection, id), false)
}

// NewNotificationSendFailedError creates a retryable notification send error.
func NewNotificationSendFailedError(notificationType string, err error) *StandardError {
	return newError(ErrCodeNotificationSendFailed, "Notification delivery failed",
		fmt.Sprintf("type: %s, error: %s", notificationType, err.Error()), true)
}

// NewEmailEnqueueFailedError creates a retryable error for a failed outbound email write.
func NewEmailEnqueueFailedError(err error) *StandardError {
	return newError(ErrCodeEmailEnqueueFailed, "Failed to enqueue outbound email", err.Error(), true)
}

// NewWhatsAppGatewayError creates an error for a non-2xx or failed gateway call.
func NewWhatsAppGatewayError(statusCode int, details string) *StandardError {
	return newError(ErrCodeWhatsAppGatewayError, "WhatsApp gateway rejected the message",
		fmt.Sprintf("status: %d, body: %s", statusCode, details), IsTransientStatus(statusCode))
}

// NewEmailDeliveryFailedError creates an error for a failed relay delivery.
func NewEmailDeliveryFailedError(err error) *StandardError {
	return newError(ErrCodeEmailDeliveryFailed, "Email delivery failed", err.Error(), true)
}

// NewSenderLookupFailedError creates a retryable sender profile lookup error.
func NewSenderLookupFailedError(userID string, err error) *StandardError {
	return newError(ErrCodeSenderLookupFailed, "Failed to load sender profile",
		fmt.Sprintf("userId: %s, error: %s", userID, err.Error()), true)
}

// NewInvalidPhoneError creates a non-retryable phone validation error.
func NewInvalidPhoneError(phone string) *StandardError {
	return newError(ErrCodeInvalidPhone, "Invalid phone number for WhatsApp", fmt.Sprintf("phone: %s", phone), false)
}

// NewValidationFailedError creates a non-retryable input validation error.
func NewValidationFailedError(details string) *StandardError {
	return newError(ErrCodeValidationFailed, "Input validation failed", details, false)
}

// NewAssistantWebhookFailedError creates a retryable assistant webhook error.
func NewAssistantWebhookFailedError(err error) *StandardError {
	return newError(ErrCodeAssistantWebhookFailed, "Assistant webhook error", err.Error(), true)
}

// NewAssistantTimeoutError creates a retryable assistant timeout error.
func NewAssistantTimeoutError() *StandardError {
	return newError(ErrCodeAssistantTimeout, "Assistant webhook timeout", "webhook call exceeded timeout", true)
}

// NewChallengeNotFoundError covers missing, foreign and unpublished challenges alike.
func NewChallengeNotFoundError(ref string) *StandardError {
	return newError(ErrCodeChallengeNotFound, "Challenge not found", fmt.Sprintf("challenge: %s", ref), false)
}

func NewAccountDeletedError(email string) *StandardError {
	return newError(ErrCodeAccountDeleted, "Email and data were already deleted from the platform",
		fmt.Sprintf("email: %s", email), false)
}

func NewTermsNotAcceptedError() *StandardError {
	return newError(ErrCodeTermsNotAccepted, "The terms of use must be accepted", "acceptedTerms: false", false)
}

func NewInvalidPlanError(plan, details string) *StandardError {
	return newError(ErrCodeInvalidPlan, "Invalid plan", fmt.Sprintf("plan: %s, %s", plan, details), false)
}

// Generic constructors

func NewBusinessRuleError(message, details string) *StandardError {
	return newError(ErrCodeBusinessRule, message, details, false)
}

func NewExternalServiceError(service string, err error) *StandardError {
	return newError(ErrCodeExternalService, fmt.Sprintf("External service '%s' error", service), err.Error(), true)
}

func NewTimeoutError(service string, err error) *StandardError {
	return newError(ErrCodeTimeout, fmt.Sprintf("Service '%s' timeout", service), err.Error(), true)
}

func NewResourceNotFoundError(service, details string) *StandardError {
	return newError(ErrCodeResourceNotFound, fmt.Sprintf("Resource not found in %s", service), details, false)
}

func NewAuthenticationError(details string) *StandardError {
	return newError(ErrCodeAuthentication, "Authentication failed", details, false)
}

// ==========================
// 4. Error Conversion to BPMN
// ==========================

// GetRetryCount returns the recommended retry count for an error code.
func GetRetryCount(code ErrorCode) int {
	switch code {
	case ErrCodeStagePersistFailed,
		ErrCodeDocumentStoreError,
		ErrCodeSenderLookupFailed,
		ErrCodeEmailEnqueueFailed,
		ErrCodeEmailDeliveryFailed,
		ErrCodeExternalService:
		return 3

	case ErrCodeTimeout,
		ErrCodeAssistantWebhookFailed:
		return 2

	case ErrCodeAssistantTimeout:
		return 1

	default:
		return 0
	}
}

// ConvertToBPMNError converts a StandardError to a BPMNError for Camunda.
func ConvertToBPMNError(stdErr *StandardError) *BPMNError {
	retries := GetRetryCount(stdErr.Code)
	if !stdErr.Retryable {
		retries = 0
	}

	return &BPMNError{
		Code:      string(stdErr.Code),
		Message:   stdErr.Message,
		Details:   stdErr.Details,
		Retryable: stdErr.Retryable,
		Retries:   retries,
		ErrorVariables: map[string]interface{}{
			"originalErrorCode": string(stdErr.Code),
			"timestamp":         stdErr.Timestamp.Format(time.RFC3339),
		},
	}
}

// ==========================
// 5. Utility Functions
// ==========================

// IsTransientStatus reports whether an HTTP status is worth retrying.
func IsTransientStatus(statusCode int) bool {
	switch statusCode {
	case http.StatusTooManyRequests,
		http.StatusInternalServerError,
		http.StatusBadGateway,
		http.StatusServiceUnavailable,
		http.StatusGatewayTimeout:
		return true
	default:
		return false
	}
}

// GetErrorCategory returns the category of the error code.
func GetErrorCategory(code ErrorCode) string {
	codeStr := string(code)
	switch {
	case strings.Contains(codeStr, "STAGE") || strings.Contains(codeStr, "STARTUP") || strings.Contains(codeStr, "CONTACT"):
		return "PIPELINE"
	case strings.Contains(codeStr, "DOCUMENT"):
		return "DATABASE"
	case strings.Contains(codeStr, "NOTIFICATION") || strings.Contains(codeStr, "EMAIL") ||
		strings.Contains(codeStr, "WHATSAPP") || strings.Contains(codeStr, "SENDER"):
		return "NOTIFICATION"
	case strings.Contains(codeStr, "ASSISTANT") || strings.Contains(codeStr, "CHALLENGE"):
		return "AI"
	case strings.Contains(codeStr, "ACCOUNT") || strings.Contains(codeStr, "TERMS") || strings.Contains(codeStr, "PLAN"):
		return "ACCOUNT"
	case strings.Contains(codeStr, "AUTHENTICATION"):
		return "AUTH"
	case strings.Contains(codeStr, "INVALID") || strings.Contains(codeStr, "VALIDATION"):
		return "VALIDATION"
	case strings.Contains(codeStr, "EXTERNAL") || strings.Contains(codeStr, "TIMEOUT"):
		return "EXTERNAL"
	default:
		return "UNKNOWN"
	}
}

// HTTPStatus maps an error code to the status returned by the API.
func HTTPStatus(code ErrorCode) int {
	switch code {
	case ErrCodeStageNotFound, ErrCodeStartupNotFound, ErrCodeContactNotFound,
		ErrCodeChallengeNotFound, ErrCodeDocumentNotFound, ErrCodeResourceNotFound:
		return http.StatusNotFound
	case ErrCodeLastStageDeleteRejected, ErrCodeDefaultContactImmutable, ErrCodeAccountDeleted, ErrCodeBusinessRule:
		return http.StatusConflict
	case ErrCodeValidationFailed, ErrCodeInvalidPhone, ErrCodeTermsNotAccepted, ErrCodeInvalidPlan:
		return http.StatusBadRequest
	case ErrCodeAuthentication:
		return http.StatusUnauthorized
	case ErrCodeWhatsAppGatewayError, ErrCodeNotificationSendFailed, ErrCodeExternalService, ErrCodeAssistantWebhookFailed:
		return http.StatusBadGateway
	case ErrCodeTimeout, ErrCodeAssistantTimeout:
		return http.StatusGatewayTimeout
	default:
		return http.StatusInternalServerError
	}
}
