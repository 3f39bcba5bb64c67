// Package errors provides the standardized error taxonomy shared by the HTTP API,
// the search core and the workflow workers.
package errors

import (
	stderrors "errors"
	"fmt"
	"net/http"
	"strings"
	"time"
)

// ErrorCode represents standardized internal error codes.
type ErrorCode string

const (
	ErrCodeValidationFailed       ErrorCode = "VALIDATION_FAILED"
	ErrCodeInvalidSearchCriteria  ErrorCode = "INVALID_SEARCH_CRITERIA"
	ErrCodeResourceNotFound       ErrorCode = "RESOURCE_NOT_FOUND"
	ErrCodeConflict               ErrorCode = "CONFLICT"
	ErrCodeExternalService        ErrorCode = "EXTERNAL_SERVICE_ERROR"
	ErrCodeAIParseFailed          ErrorCode = "AI_PARSE_FAILED"
	ErrCodeDatabaseConnection     ErrorCode = "DATABASE_CONNECTION_FAILED"
	ErrCodeQueryExecutionFailed   ErrorCode = "QUERY_EXECUTION_FAILED"
	ErrCodeSearchQueryFailed      ErrorCode = "SEARCH_QUERY_FAILED"
	ErrCodeNotificationSendFailed ErrorCode = "NOTIFICATION_SEND_FAILED"
	ErrCodeInternal               ErrorCode = "INTERNAL_ERROR"
)

// StandardError represents a structured application error.
type StandardError struct {
	Code      ErrorCode              `json:"code"`
	Message   string                 `json:"message"`
	Details   string                 `json:"details,omitempty"`
	Retryable bool                   `json:"retryable"`
	Metadata  map[string]interface{} `json:"metadata,omitempty"`
	Timestamp time.Time              `json:"timestamp"`

	cause error
}

func (e *StandardError) Error() string {
	if e.Details != "" {
		return fmt.Sprintf("StandardError[%s]: %s: %s", e.Code, e.Message, e.Details)
	}
	return fmt.Sprintf("StandardError[%s]: %s", e.Code, e.Message)
}

func (e *StandardError) Unwrap() error {
	return e.cause
}

// WithMetadata attaches a key/value pair and returns the same error.
func (e *StandardError) WithMetadata(key string, value interface{}) *StandardError {
	if e.Metadata == nil {
		e.Metadata = make(map[string]interface{})
	}
	e.Metadata[key] = value
	return e
}

func newError(code ErrorCode, message, details string, retryable bool, cause error) *StandardError {
	return &StandardError{
		Code:      code,
		Message:   message,
		Details:   details,
		Retryable: retryable,
		Timestamp: time.Now().UTC(),
		cause:     cause,
	}
}

// NewValidationError reports malformed or uncoercible input for a single field.
func NewValidationError(field, details string) *StandardError {
	return newError(ErrCodeValidationFailed, "Validation failed", details, false, nil).
		WithMetadata("field", field)
}

// NewInvalidSearchCriteriaError is the search-specific flavour of a validation error.
func NewInvalidSearchCriteriaError(field, details string) *StandardError {
	return newError(ErrCodeInvalidSearchCriteria, "Invalid search criteria", details, false, nil).
		WithMetadata("field", field)
}

func NewNotFoundError(resource string, id interface{}) *StandardError {
	return newError(ErrCodeResourceNotFound, fmt.Sprintf("%s not found", resource),
		fmt.Sprintf("%s id: %v", strings.ToLower(resource), id), false, nil).
		WithMetadata("resource", resource)
}

func NewConflictError(resource, details string) *StandardError {
	return newError(ErrCodeConflict, fmt.Sprintf("%s already exists", resource), details, false, nil)
}

func NewExternalServiceError(service string, err error) *StandardError {
	return newError(ErrCodeExternalService, fmt.Sprintf("External service '%s' error", service),
		err.Error(), true, err).WithMetadata("service", service)
}

func NewAIParseFailedError(err error) *StandardError {
	return newError(ErrCodeAIParseFailed, "Natural-language query could not be parsed", err.Error(), false, err)
}

func NewDatabaseConnectionFailedError(err error) *StandardError {
	return newError(ErrCodeDatabaseConnection, "Database connection error", err.Error(), true, err)
}

func NewQueryExecutionFailedError(query string, err error) *StandardError {
	return newError(ErrCodeQueryExecutionFailed, "Database query execution error",
		fmt.Sprintf("query: %s, error: %s", query, err.Error()), true, err)
}

func NewSearchQueryFailedError(index string, err error) *StandardError {
	return newError(ErrCodeSearchQueryFailed, "Search index query error",
		fmt.Sprintf("index: %s, error: %s", index, err.Error()), true, err)
}

func NewNotificationSendFailedError(channel string, err error) *StandardError {
	return newError(ErrCodeNotificationSendFailed, "Notification delivery failed",
		fmt.Sprintf("channel: %s, error: %s", channel, err.Error()), true, err)
}

func NewInternalError(err error) *StandardError {
	return newError(ErrCodeInternal, "Unexpected error", err.Error(), false, err)
}

// As extracts the StandardError from an error chain.
func As(err error) (*StandardError, bool) {
	var stdErr *StandardError
	if stderrors.As(err, &stdErr) {
		return stdErr, true
	}
	return nil, false
}

func hasCode(err error, codes ...ErrorCode) bool {
	stdErr, ok := As(err)
	if !ok {
		return false
	}
	for _, c := range codes {
		if stdErr.Code == c {
			return true
		}
	}
	return false
}

func IsValidation(err error) bool {
	return hasCode(err, ErrCodeValidationFailed, ErrCodeInvalidSearchCriteria)
}

func IsNotFound(err error) bool {
	return hasCode(err, ErrCodeResourceNotFound)
}

func IsConflict(err error) bool {
	return hasCode(err, ErrCodeConflict)
}

func IsExternal(err error) bool {
	return hasCode(err, ErrCodeExternalService, ErrCodeAIParseFailed, ErrCodeNotificationSendFailed)
}

// HTTPStatus maps an error onto the status code the API responds with.
func HTTPStatus(err error) int {
	switch {
	case err == nil:
		return http.StatusOK
	case IsValidation(err):
		return http.StatusBadRequest
	case IsNotFound(err):
		return http.StatusNotFound
	case IsConflict(err):
		return http.StatusConflict
	case IsExternal(err):
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}

// BPMNError is thrown to the workflow engine.
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

// ToErrorVariables returns a map suitable for job fail/throw variables.
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

// GetRetryCount returns the recommended job retry count for a code.
func GetRetryCount(code ErrorCode) int {
	switch code {
	case ErrCodeDatabaseConnection,
		ErrCodeQueryExecutionFailed,
		ErrCodeSearchQueryFailed,
		ErrCodeNotificationSendFailed:
		return 3
	case ErrCodeExternalService:
		return 2
	default:
		return 0
	}
}

// ConvertToBPMNError converts a StandardError to a BPMNError.
func ConvertToBPMNError(stdErr *StandardError) *BPMNError {
	retries := GetRetryCount(stdErr.Code)
	if !stdErr.Retryable {
		retries = 0
	}
	vars := map[string]interface{}{
		"originalErrorCode": string(stdErr.Code),
		"timestamp":         stdErr.Timestamp.Format(time.RFC3339),
	}
	for k, v := range stdErr.Metadata {
		vars[k] = v
	}
	return &BPMNError{
		Code:           string(stdErr.Code),
		Message:        stdErr.Message,
		Details:        stdErr.Details,
		Retryable:      stdErr.Retryable,
		Retries:        retries,
		ErrorVariables: vars,
	}
}

// GetErrorCategory groups codes for logging.
func GetErrorCategory(code ErrorCode) string {
	switch code {
	case ErrCodeValidationFailed, ErrCodeInvalidSearchCriteria:
		return "VALIDATION"
	case ErrCodeResourceNotFound, ErrCodeConflict:
		return "RESOURCE"
	case ErrCodeDatabaseConnection, ErrCodeQueryExecutionFailed:
		return "DATABASE"
	case ErrCodeSearchQueryFailed:
		return "SEARCH"
	case ErrCodeExternalService, ErrCodeAIParseFailed:
		return "EXTERNAL"
	case ErrCodeNotificationSendFailed:
		return "NOTIFICATION"
	default:
		return "OTHER"
	}
}
