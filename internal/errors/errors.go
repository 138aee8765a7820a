// Package errors defines coded application errors. Codes are stable and
// mapped to HTTP statuses by the API layer.
package errors

import (
	stderrors "errors"
	"fmt"
)

// CodeUnknown is reported for errors that carry no AppError in their chain.
const CodeUnknown = "UNKNOWN"

type AppError struct {
	Code    string
	Message string
	Cause   error
}

func (e *AppError) Error() string {
	msg := "[" + e.Code + "] " + e.Message
	if e.Cause == nil {
		return msg
	}
	return fmt.Sprintf("%s: %v", msg, e.Cause)
}

func (e *AppError) Unwrap() error { return e.Cause }

// Is matches on Code so sentinel values work with errors.Is after wrapping.
func (e *AppError) Is(target error) bool {
	if t, ok := target.(*AppError); ok {
		return e.Code == t.Code
	}
	return false
}

// New builds an AppError; only the first cause is kept.
func New(code, message string, cause ...error) *AppError {
	e := &AppError{Code: code, Message: message}
	if len(cause) > 0 {
		e.Cause = cause[0]
	}
	return e
}

func Wrap(err error, code, message string) *AppError {
	return New(code, message, err)
}

// Validation builds an error carrying the sentinel's code with a field specific message.
func Validation(sentinel *AppError, message string) *AppError {
	return New(sentinel.Code, message)
}

var (
	ErrConfigNotFound = New("CONFIG_001", "configuration not found")
	ErrConfigInvalid  = New("CONFIG_002", "invalid configuration")

	ErrInvalidMedicine  = New("MED_001", "invalid medicine")
	ErrMedicineNotFound = New("MED_002", "medicine not found")
	ErrInvalidTime      = New("MED_003", "invalid time")

	ErrInvalidProfile = New("PROF_001", "invalid profile")

	ErrRegistryFailure     = New("REM_001", "notification registry failure")
	ErrRegistryUnsupported = New("REM_002", "notifications not supported")

	ErrLeafletUnavailable = New("LEAF_001", "leaflet service unavailable")
	ErrLeafletMalformed   = New("LEAF_002", "malformed leaflet response")

	ErrUnauthorized = New("AUTH_001", "unauthorized")
	ErrForbidden    = New("AUTH_002", "forbidden")

	ErrNotFound   = New("GEN_001", "resource not found")
	ErrBadRequest = New("GEN_002", "bad request")
	ErrInternal   = New("GEN_003", "internal error")
)

// GetCode returns the code of the outermost AppError in err's chain.
func GetCode(err error) string {
	var appErr *AppError
	if stderrors.As(err, &appErr) {
		return appErr.Code
	}
	return CodeUnknown
}
