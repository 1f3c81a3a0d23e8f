package users

import (
	"github.com/garage-labs/garage-api/internal/domain"
)

// Optional is a tri-state field used to distinguish:
// - unspecified (omitted)
// - specified as null
// - specified with a value
type Optional[T any] struct {
	specified bool
	isNull    bool
	value     T
}

func Unspecified[T any]() Optional[T] { return Optional[T]{} }
func Null[T any]() Optional[T]        { return Optional[T]{specified: true, isNull: true} }
func Some[T any](v T) Optional[T]     { return Optional[T]{specified: true, value: v} }

func (o Optional[T]) IsSpecified() bool { return o.specified }
func (o Optional[T]) IsNull() bool      { return o.specified && o.isNull }
func (o Optional[T]) Value() T          { return o.value }

type RegisterInput struct {
	Fields   domain.UserFields
	Password string
	Vehicles []domain.VehicleFields
}

type UpdateInput struct {
	Fields domain.UserFields
	// Password keeps the stored hash when unspecified or null.
	Password Optional[string]
}

// Profile is a user together with their vehicles.
type Profile struct {
	User     domain.User
	Vehicles []domain.Vehicle
}

type SignInResult struct {
	User  domain.User
	Token string
}
