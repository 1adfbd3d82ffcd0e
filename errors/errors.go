package errors

import (
	"fmt"
	"net/http"
)

// AppError is what the API and worker boundaries return. The HTTP layer
// renders it as JSON; Cause stays server side.
type AppError struct {
	Code       ErrorCode      `json:"code"`
	Message    string         `json:"message"`
	Retryable  bool           `json:"retryable"`
	HTTPStatus int            `json:"-"`
	Details    map[string]any `json:"details,omitempty"`
	Cause      error          `json:"-"`
}

func (e *AppError) Error() string {
	if e.Cause == nil {
		return string(e.Code) + ": " + e.Message
	}
	return fmt.Sprintf("%s: %s: %v", e.Code, e.Message, e.Cause)
}

func (e *AppError) Unwrap() error { return e.Cause }

// WithCause attaches the underlying error. It returns e for chaining.
func (e *AppError) WithCause(cause error) *AppError {
	e.Cause = cause
	return e
}

// WithDetail adds or replaces one detail entry. It returns e for chaining.
func (e *AppError) WithDetail(key string, value any) *AppError {
	if e.Details == nil {
		e.Details = map[string]any{}
	}
	e.Details[key] = value
	return e
}

// newError takes status and retryability from the code table. kv are
// detail pairs.
func newError(code ErrorCode, msg string, kv ...any) *AppError {
	info, ok := codes[code]
	if !ok {
		info = codeInfo{status: http.StatusInternalServerError}
	}
	e := &AppError{Code: code, Message: msg, HTTPStatus: info.status, Retryable: info.retryable}
	for i := 0; i+1 < len(kv); i += 2 {
		e.WithDetail(kv[i].(string), kv[i+1])
	}
	return e
}

func ServiceUnavailable(service string) *AppError {
	return newError(ErrCodeServiceUnavailable,
		fmt.Sprintf("The %s is temporarily unavailable. Please try again.", service), "service", service)
}

// SourceUnavailable reports that audio could not be fetched from source.
func SourceUnavailable(source string, cause error) *AppError {
	return newError(ErrCodeSourceUnavailable,
		fmt.Sprintf("Could not fetch audio from %s.", source), "source", source).WithCause(cause)
}

// SourceTimedOut is SourceUnavailable answered with 504.
func SourceTimedOut(source string, cause error) *AppError {
	e := SourceUnavailable(source, cause)
	e.Message = fmt.Sprintf("Timed out fetching audio from %s.", source)
	e.HTTPStatus = http.StatusGatewayTimeout
	return e
}

// NotFound omits the id detail when id is empty.
func NotFound(resource, id string) *AppError {
	e := newError(ErrCodeNotFound, fmt.Sprintf("The requested %s was not found.", resource), "resource", resource)
	if id != "" {
		e.WithDetail("id", id)
	}
	return e
}

func Conflict(reason string) *AppError { return newError(ErrCodeConflict, reason) }

// InvalidState refuses an operation the task's current status does not allow.
func InvalidState(reason string) *AppError { return newError(ErrCodeInvalidState, reason) }

func Validation(message string) *AppError { return newError(ErrCodeInvalidInput, message) }

func MissingField(field string) *AppError {
	return newError(ErrCodeMissingField, "Missing required field: "+field, "field", field)
}

func InvalidFormat(field, expected string) *AppError {
	return newError(ErrCodeInvalidFormat,
		fmt.Sprintf("Invalid format for %s. Expected: %s", field, expected),
		"field", field, "expected_format", expected)
}

func UnsupportedMediaType(got string, accepted ...string) *AppError {
	return newError(ErrCodeUnsupportedMediaType, fmt.Sprintf("Unsupported media type %q.", got), "accepted", accepted)
}

func PayloadTooLarge(limit int64) *AppError {
	return newError(ErrCodePayloadTooLarge, fmt.Sprintf("Upload exceeds the %d byte limit.", limit), "limit_bytes", limit)
}

// Forbidden falls back to a generic message when reason is empty.
func Forbidden(reason string) *AppError {
	if reason == "" {
		reason = "You don't have permission to perform this action."
	}
	return newError(ErrCodeForbidden, reason)
}

// NotImplemented reports a feature switched off by configuration, such as
// the results sink without object storage.
func NotImplemented(feature string) *AppError {
	return newError(ErrCodeNotImplemented, feature+" is not configured on this server.", "feature", feature)
}

func Internal(cause error) *AppError {
	return newError(ErrCodeInternal, "An unexpected error occurred. Please try again or contact support.").WithCause(cause)
}

// ProcessingFailed reports a failure in one stage of the transcription
// pipeline: source, transcription or artifacts.
func ProcessingFailed(stage string, cause error) *AppError {
	return newError(ErrCodeProcessingFailed, fmt.Sprintf("Processing failed during %s.", stage), "stage", stage).WithCause(cause)
}
