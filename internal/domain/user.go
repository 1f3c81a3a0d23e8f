package domain

import (
	"errors"
	"regexp"
	"strings"
	"time"
)

var (
	emailPattern = regexp.MustCompile(`^[a-zA-Z0-9_+&*-]+(?:\.[a-zA-Z0-9_+&*-]+)*@(?:[a-zA-Z0-9-]+\.)+[a-zA-Z]{2,7}$`)
	phonePattern = regexp.MustCompile(`^(\+\d{1,2}\s?)?\(?\d{2,3}\)?\s?-?\d{4,5}-?\d{4}$|^\d{8,9}$`)
)

// User is the aggregate root owning zero or more vehicles.
type User struct {
	ID UserID

	FirstName string
	LastName  string
	Email     string
	Birthday  time.Time
	Login     string
	// PasswordHash is a bcrypt hash; the plain password is never stored.
	PasswordHash string
	Phone        string

	CreatedAt time.Time
	// LastLogin is nil until the first successful sign-in.
	LastLogin *time.Time
}

// UserFields is the client-supplied portion of a user profile.
type UserFields struct {
	FirstName string
	LastName  string
	Email     string
	Birthday  time.Time
	Login     string
	Phone     string
}

// Normalize returns a copy with whitespace and case normalized.
func (f UserFields) Normalize() UserFields {
	f.FirstName = NormalizeHumanName(f.FirstName)
	f.LastName = NormalizeHumanName(f.LastName)
	f.Email = NormalizeEmail(f.Email)
	f.Login = strings.TrimSpace(f.Login)
	f.Phone = strings.TrimSpace(f.Phone)
	return f
}

// Validate checks presence first and then format. The password is checked
// separately because it is optional on update.
func (f UserFields) Validate(now time.Time) error {
	if f.FirstName == "" || f.LastName == "" || f.Email == "" || f.Birthday.IsZero() || f.Login == "" || f.Phone == "" {
		return ErrMissingFields
	}
	if !emailPattern.MatchString(f.Email) || !phonePattern.MatchString(f.Phone) {
		return ErrInvalidFields
	}
	if f.Birthday.After(now) {
		return ErrInvalidFields
	}
	return nil
}

// ErrMissingFields and ErrInvalidFields are the two field-independent
// validation outcomes shared by users and vehicles.
var (
	ErrMissingFields = errors.New("missing fields")
	ErrInvalidFields = errors.New("invalid fields")
)
