package errors

import "net/http"

// ErrorCode is the machine-readable code clients switch on.
type ErrorCode string

const (
	ErrCodeServiceUnavailable ErrorCode = "SERVICE_UNAVAILABLE"
	// ErrCodeSourceUnavailable means audio could not be fetched from a URL
	// or the object store.
	ErrCodeSourceUnavailable ErrorCode = "SOURCE_UNAVAILABLE"

	ErrCodeNotFound     ErrorCode = "NOT_FOUND"
	ErrCodeConflict     ErrorCode = "CONFLICT"
	ErrCodeInvalidState ErrorCode = "INVALID_STATE"

	ErrCodeInvalidInput         ErrorCode = "INVALID_INPUT"
	ErrCodeMissingField         ErrorCode = "MISSING_FIELD"
	ErrCodeInvalidFormat        ErrorCode = "INVALID_FORMAT"
	ErrCodeUnsupportedMediaType ErrorCode = "UNSUPPORTED_MEDIA_TYPE"
	ErrCodePayloadTooLarge      ErrorCode = "PAYLOAD_TOO_LARGE"

	// ErrCodeForbidden means the caller's client id does not own the task.
	ErrCodeForbidden ErrorCode = "FORBIDDEN"
	// ErrCodeNotImplemented means a feature is off because it is not configured.
	ErrCodeNotImplemented ErrorCode = "NOT_IMPLEMENTED"

	ErrCodeInternal         ErrorCode = "INTERNAL_ERROR"
	ErrCodeProcessingFailed ErrorCode = "PROCESSING_FAILED"
)

type codeInfo struct {
	status    int
	retryable bool
}

var codes = map[ErrorCode]codeInfo{
	ErrCodeServiceUnavailable:   {http.StatusServiceUnavailable, true},
	ErrCodeSourceUnavailable:    {http.StatusBadGateway, true},
	ErrCodeNotFound:             {http.StatusNotFound, false},
	ErrCodeConflict:             {http.StatusConflict, false},
	ErrCodeInvalidState:         {http.StatusBadRequest, false},
	ErrCodeInvalidInput:         {http.StatusBadRequest, false},
	ErrCodeMissingField:         {http.StatusBadRequest, false},
	ErrCodeInvalidFormat:        {http.StatusBadRequest, false},
	ErrCodeUnsupportedMediaType: {http.StatusUnsupportedMediaType, false},
	ErrCodePayloadTooLarge:      {http.StatusRequestEntityTooLarge, false},
	ErrCodeForbidden:            {http.StatusForbidden, false},
	ErrCodeNotImplemented:       {http.StatusNotImplemented, false},
	ErrCodeInternal:             {http.StatusInternalServerError, false},
	ErrCodeProcessingFailed:     {http.StatusInternalServerError, false},
}

// IsRetryableCode reports whether a client may retry a request that failed
// with code unchanged.
func IsRetryableCode(code ErrorCode) bool {
	return codes[code].retryable
}
