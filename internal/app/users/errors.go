package users

import (
	"errors"
	"net/http"

	"github.com/garage-labs/garage-api/internal/domain"
)

const (
	CodeValidation   = "VALIDATION_ERROR"
	CodeNotFound     = "NOT_FOUND"
	CodeUnauthorized = "UNAUTHORIZED"
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

func IsValidation(err error) bool { return hasCode(err, CodeValidation) }

func IsNotFound(err error) bool { return hasCode(err, CodeNotFound) }

func hasCode(err error, code string) bool {
	var e *Error
	return errors.As(err, &e) && e.Code == code
}

func validationError(msg string) *Error {
	return &Error{Status: http.StatusBadRequest, Code: CodeValidation, Message: msg}
}

func fieldError(err error) *Error {
	if errors.Is(err, domain.ErrMissingFields) {
		return validationError("Missing fields")
	}
	return validationError("Invalid fields")
}

func loginExistsError() *Error { return validationError("Login already exists") }

func emailExistsError() *Error { return validationError("Email already exists") }

func notFoundError() *Error {
	return &Error{Status: http.StatusNotFound, Code: CodeNotFound, Message: "User not found"}
}

func invalidCredentialsError() *Error {
	return &Error{Status: http.StatusUnauthorized, Code: CodeUnauthorized, Message: "Invalid login or password"}
}

func unauthorizedError() *Error {
	return &Error{Status: http.StatusUnauthorized, Code: CodeUnauthorized, Message: "Unauthorized"}
}
