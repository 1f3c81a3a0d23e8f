package httpapi

import (
	"time"

	"github.com/oapi-codegen/nullable"
	openapi_types "github.com/oapi-codegen/runtime/types"

	"github.com/garage-labs/garage-api/internal/app/users"
	"github.com/garage-labs/garage-api/internal/domain"
)

type carRequest struct {
	Year         int    `json:"year"`
	LicensePlate string `json:"licensePlate"`
	Model        string `json:"model"`
	Color        string `json:"color"`
	InUse        bool   `json:"inUse"`
}

func (c carRequest) fields() domain.VehicleFields {
	return domain.VehicleFields{
		Year:         c.Year,
		LicensePlate: c.LicensePlate,
		Model:        c.Model,
		Color:        c.Color,
	}
}

type carResponse struct {
	ID           string `json:"id"`
	Year         int    `json:"year"`
	LicensePlate string `json:"licensePlate"`
	Model        string `json:"model"`
	Color        string `json:"color"`
	InUse        bool   `json:"inUse"`
	UsageCount   int    `json:"usageCount"`
}

func carFromDomain(v domain.Vehicle) carResponse {
	return carResponse{
		ID:           string(v.ID),
		Year:         v.Year,
		LicensePlate: v.LicensePlate,
		Model:        v.Model,
		Color:        v.Color,
		InUse:        v.InUse,
		UsageCount:   v.UsageCount,
	}
}

func carsFromDomain(vs []domain.Vehicle) []carResponse {
	out := make([]carResponse, 0, len(vs))
	for _, v := range vs {
		out = append(out, carFromDomain(v))
	}
	return out
}

type userRequest struct {
	FirstName string              `json:"firstName"`
	LastName  string              `json:"lastName"`
	Email     string              `json:"email"`
	Birthday  *openapi_types.Date `json:"birthday"`
	Login     string              `json:"login"`
	// Password may be omitted or null on update to keep the current one.
	Password nullable.Nullable[string] `json:"password,omitempty"`
	Phone    string                    `json:"phone"`
	Cars     []carRequest              `json:"cars,omitempty"`
}

func (u userRequest) fields() domain.UserFields {
	f := domain.UserFields{
		FirstName: u.FirstName,
		LastName:  u.LastName,
		Email:     u.Email,
		Login:     u.Login,
		Phone:     u.Phone,
	}
	if u.Birthday != nil {
		f.Birthday = u.Birthday.Time
	}
	return f
}

func (u userRequest) registerInput() users.RegisterInput {
	in := users.RegisterInput{Fields: u.fields()}
	if v, err := u.Password.Get(); err == nil {
		in.Password = v
	}
	for _, c := range u.Cars {
		in.Vehicles = append(in.Vehicles, c.fields())
	}
	return in
}

func (u userRequest) updateInput() users.UpdateInput {
	return users.UpdateInput{Fields: u.fields(), Password: optionalStringFromNullable(u.Password)}
}

func optionalStringFromNullable(n nullable.Nullable[string]) users.Optional[string] {
	if !n.IsSpecified() {
		return users.Unspecified[string]()
	}
	if n.IsNull() {
		return users.Null[string]()
	}
	v, err := n.Get()
	if err != nil {
		return users.Unspecified[string]()
	}
	return users.Some(v)
}

type userResponse struct {
	ID        string                                `json:"id"`
	FirstName string                                `json:"firstName"`
	LastName  string                                `json:"lastName"`
	Email     openapi_types.Email                   `json:"email"`
	Birthday  openapi_types.Date                    `json:"birthday"`
	Login     string                                `json:"login"`
	Phone     string                                `json:"phone"`
	CreatedAt openapi_types.Date                    `json:"createdAt"`
	LastLogin nullable.Nullable[openapi_types.Date] `json:"lastLogin"`
	Cars      []carResponse                         `json:"cars,omitempty"`
}

func userFromDomain(u domain.User) userResponse {
	return userResponse{
		ID:        string(u.ID),
		FirstName: u.FirstName,
		LastName:  u.LastName,
		Email:     openapi_types.Email(u.Email),
		Birthday:  openapi_types.Date{Time: u.Birthday},
		Login:     u.Login,
		Phone:     u.Phone,
		CreatedAt: openapi_types.Date{Time: u.CreatedAt},
		LastLogin: nullableDate(u.LastLogin),
	}
}

func profileFromApp(p users.Profile) userResponse {
	out := userFromDomain(p.User)
	out.Cars = carsFromDomain(p.Vehicles)
	return out
}

func nullableDate(p *time.Time) nullable.Nullable[openapi_types.Date] {
	if p == nil {
		return nullable.NewNullNullable[openapi_types.Date]()
	}
	return nullable.NewNullableWithValue(openapi_types.Date{Time: *p})
}

type signInRequest struct {
	Login    string `json:"login"`
	Password string `json:"password"`
}

type signInResponse struct {
	User  userResponse `json:"user"`
	Token string       `json:"token"`
}
