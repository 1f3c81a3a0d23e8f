package vehicles

import (
	"errors"
	"net/http"

	"github.com/garage-labs/garage-api/internal/domain"
)

const (
	CodeValidation       = "VALIDATION_ERROR"
	CodeNotFound         = "NOT_FOUND"
	CodeConcurrentUpdate = "CONCURRENT_UPDATE"
)

// Error is an application-layer error that can be mapped to an HTTP response.
type Error struct {
	Status  int
	Code    string
	Message string
	Details map[string]any
}

func (e *Error) Error() string {
	if e == nil {
		return ""
	}
	if e.Message != "" {
		return e.Message
	}
	return e.Code
}

// IsValidation reports whether err rejects the caller's input.
func IsValidation(err error) bool { return hasCode(err, CodeValidation) }

// IsNotFound reports whether err means the vehicle is not in the caller's set.
func IsNotFound(err error) bool { return hasCode(err, CodeNotFound) }

func hasCode(err error, code string) bool {
	var e *Error
	return errors.As(err, &e) && e.Code == code
}

func validationError(msg string) *Error {
	return &Error{Status: http.StatusBadRequest, Code: CodeValidation, Message: msg}
}

// fieldError maps a domain field check to the user-facing message.
func fieldError(err error) *Error {
	if errors.Is(err, domain.ErrMissingFields) {
		return validationError("Missing fields")
	}
	return validationError("Invalid fields")
}

func plateTakenError() *Error {
	return validationError("License plate already exists")
}

func notFoundError() *Error {
	return &Error{Status: http.StatusNotFound, Code: CodeNotFound, Message: "Vehicle not found"}
}
