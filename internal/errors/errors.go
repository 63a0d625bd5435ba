// Package errors defines the AppError sentinels returned by services and
// rendered by handlers. Internal causes are logged, never sent to clients.
package errors

import (
	"errors"
	"net/http"
)

// AppError represents a structured application error with an error code,
// human-readable message, HTTP status code, and optional internal error.
type AppError struct {
	Code       string `json:"code"`
	Message    string `json:"message"`
	StatusCode int    `json:"-"`
	Internal   error  `json:"-"`
}

// Error implements the error interface.
func (e *AppError) Error() string { return e.Message }

// Unwrap returns the internal error for use with errors.Is/As.
func (e *AppError) Unwrap() error { return e.Internal }

// Wrap creates a new AppError with the same code/message/status but wraps an internal error.
func Wrap(sentinel *AppError, internal error) *AppError {
	return &AppError{
		Code:       sentinel.Code,
		Message:    sentinel.Message,
		StatusCode: sentinel.StatusCode,
		Internal:   internal,
	}
}

// WithMessage creates a new AppError with a custom message.
func WithMessage(sentinel *AppError, message string) *AppError {
	return &AppError{
		Code:       sentinel.Code,
		Message:    message,
		StatusCode: sentinel.StatusCode,
		Internal:   sentinel.Internal,
	}
}

// Resolve returns the AppError carried by err. Anything else becomes
// ErrInternalServer wrapping err; the boolean reports whether err was
// already an AppError.
func Resolve(err error) (*AppError, bool) {
	var appErr *AppError
	if errors.As(err, &appErr) {
		return appErr, true
	}
	return Wrap(ErrInternalServer, err), false
}

// Body is the JSON error envelope sent to clients.
func (e *AppError) Body() map[string]any {
	return map[string]any{
		"error": map[string]any{
			"code":    e.Code,
			"message": e.Message,
		},
	}
}

// Authentication & authorization errors.
var (
	ErrUnauthorized          = &AppError{Code: "UNAUTHORIZED", Message: "Authentication required", StatusCode: http.StatusUnauthorized}
	ErrInvalidAPIKey         = &AppError{Code: "INVALID_API_KEY", Message: "Invalid or missing API key", StatusCode: http.StatusUnauthorized}
	ErrPipelineNotConfigured = &AppError{Code: "PIPELINE_NOT_CONFIGURED", Message: "Pipeline endpoints are not configured", StatusCode: http.StatusServiceUnavailable}
)

// General errors.
var (
	ErrInvalidInput   = &AppError{Code: "INVALID_INPUT", Message: "Invalid input", StatusCode: http.StatusBadRequest}
	ErrNotFound       = &AppError{Code: "NOT_FOUND", Message: "Resource not found", StatusCode: http.StatusNotFound}
	ErrInternalServer = &AppError{Code: "INTERNAL_ERROR", Message: "An internal error occurred", StatusCode: http.StatusInternalServerError}
)

// Import errors.
var (
	ErrNoDataRecognized = &AppError{Code: "NO_DATA_RECOGNIZED", Message: "No holdings could be recognized in the uploaded file", StatusCode: http.StatusUnprocessableEntity}
	ErrFileTooLarge     = &AppError{Code: "FILE_TOO_LARGE", Message: "Uploaded file is too large", StatusCode: http.StatusRequestEntityTooLarge}
)

// Holding errors.
var (
	ErrHoldingNotFound  = &AppError{Code: "HOLDING_NOT_FOUND", Message: "Holding not found", StatusCode: http.StatusNotFound}
	ErrInvalidTicker    = &AppError{Code: "INVALID_TICKER", Message: "Ticker must have at least 4 alphanumeric characters", StatusCode: http.StatusBadRequest}
	ErrDuplicateHolding = &AppError{Code: "DUPLICATE_HOLDING", Message: "A holding for this ticker and acquisition date already exists", StatusCode: http.StatusConflict}
)

// Distribution errors.
var (
	ErrDuplicateDistribution = &AppError{Code: "DUPLICATE_DISTRIBUTION", Message: "A distribution with the same ticker, payment date and amount already exists", StatusCode: http.StatusConflict}
	ErrFeedUnavailable       = &AppError{Code: "FEED_UNAVAILABLE", Message: "Corporate action feed is unavailable", StatusCode: http.StatusBadGateway}
)

// Instrument errors.
var (
	ErrInstrumentNotFound = &AppError{Code: "INSTRUMENT_NOT_FOUND", Message: "Instrument not found", StatusCode: http.StatusNotFound}
)
