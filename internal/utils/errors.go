package utils

import (
	"errors"
	"net/http"
)

// Domain-level errors shared by the service and controller layers.
var (
	ErrInvalidPhone = errors.New("invalid_phone")

	// For rate limiting
	ErrRateLimitExceeded = errors.New("rate_limit_exceeded")

	// For SMS carrier failures (e.g., Twilio)
	ErrExternalServiceFailure = errors.New("external_service_failure")

	ErrInvalidCredentials = errors.New("invalid_credentials")
	ErrInactiveAccount    = errors.New("inactive_account")
	ErrNoRowsUpdated      = errors.New("no_rows_updated")
)

// AppError carries an HTTP status and public error code from a service up to
// a controller.
type AppError struct {
	StatusCode int
	Code       string
	Message    string
	Err        error
}

func (e *AppError) Error() string {
	if e.Err != nil {
		return e.Err.Error()
	}
	return e.Message
}

func (e *AppError) Unwrap() error {
	return e.Err
}

// HandleAppError centralizes responding to AppErrors.
func HandleAppError(w http.ResponseWriter, err error) {
	var appErr *AppError
	if errors.As(err, &appErr) {
		RespondErrorWithCode(w, appErr.StatusCode, appErr.Code, appErr.Message, nil, appErr.Err)
		return
	}
	RespondErrorWithCode(w, http.StatusInternalServerError, ErrCodeInternal, "An unexpected error occurred", nil, err)
}
