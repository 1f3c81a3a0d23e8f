package domain

import (
	"errors"
	"testing"
	"time"
)

func TestVehicleFields_Validate(t *testing.T) {
	t.Parallel()

	now := time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)
	valid := VehicleFields{Year: 2020, LicensePlate: "ABC-1234", Model: "Civic", Color: "Blue"}

	tests := []struct {
		name string
		mod  func(f VehicleFields) VehicleFields
		want error
	}{
		{name: "valid legacy plate", mod: func(f VehicleFields) VehicleFields { return f }},
		{name: "valid mercosul plate", mod: func(f VehicleFields) VehicleFields { f.LicensePlate = "ABC1D23"; return f }},
		{name: "lowercase plate accepted", mod: func(f VehicleFields) VehicleFields { f.LicensePlate = "abc1d23"; return f }},
		{name: "current year", mod: func(f VehicleFields) VehicleFields { f.Year = 2024; return f }},
		{name: "missing model", mod: func(f VehicleFields) VehicleFields { f.Model = ""; return f }, want: ErrMissingFields},
		{name: "missing color", mod: func(f VehicleFields) VehicleFields { f.Color = ""; return f }, want: ErrMissingFields},
		{name: "missing year", mod: func(f VehicleFields) VehicleFields { f.Year = 0; return f }, want: ErrMissingFields},
		{name: "missing plate", mod: func(f VehicleFields) VehicleFields { f.LicensePlate = ""; return f }, want: ErrMissingFields},
		{name: "future year", mod: func(f VehicleFields) VehicleFields { f.Year = 2025; return f }, want: ErrInvalidFields},
		{name: "bad plate", mod: func(f VehicleFields) VehicleFields { f.LicensePlate = "AB-12345"; return f }, want: ErrInvalidFields},
		{name: "plate without dash", mod: func(f VehicleFields) VehicleFields { f.LicensePlate = "ABC1234"; return f }, want: ErrInvalidFields},
	}
	for _, tc := range tests {
		tc := tc
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()
			err := tc.mod(valid).Validate(now)
			if !errors.Is(err, tc.want) {
				t.Fatalf("Validate() err=%v, want %v", err, tc.want)
			}
		})
	}
}

func TestVehicleFields_NormalizeUppercasesPlate(t *testing.T) {
	t.Parallel()

	got := VehicleFields{LicensePlate: " abc1d23 ", Model: " Gol ", Color: "Red "}.Normalize()
	if got.LicensePlate != "ABC1D23" || got.Model != "Gol" || got.Color != "Red" {
		t.Fatalf("Normalize()=%+v", got)
	}
}

func TestUserFields_Validate(t *testing.T) {
	t.Parallel()

	now := time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)
	valid := UserFields{
		FirstName: "Ana",
		LastName:  "Souza",
		Email:     "ana@example.com",
		Birthday:  time.Date(1990, 1, 2, 0, 0, 0, 0, time.UTC),
		Login:     "ana",
		Phone:     "988887777",
	}
	if err := valid.Validate(now); err != nil {
		t.Fatalf("Validate(valid) err=%v", err)
	}

	noEmail := valid
	noEmail.Email = ""
	if err := noEmail.Validate(now); !errors.Is(err, ErrMissingFields) {
		t.Fatalf("Validate(no email) err=%v, want %v", err, ErrMissingFields)
	}

	badEmail := valid
	badEmail.Email = "ana@"
	if err := badEmail.Validate(now); !errors.Is(err, ErrInvalidFields) {
		t.Fatalf("Validate(bad email) err=%v, want %v", err, ErrInvalidFields)
	}

	badPhone := valid
	badPhone.Phone = "12"
	if err := badPhone.Validate(now); !errors.Is(err, ErrInvalidFields) {
		t.Fatalf("Validate(bad phone) err=%v, want %v", err, ErrInvalidFields)
	}

	formattedPhone := valid
	formattedPhone.Phone = "+55 (11) 98888-7777"
	if err := formattedPhone.Validate(now); err != nil {
		t.Fatalf("Validate(formatted phone) err=%v", err)
	}
}

func TestPrincipal_FullCapability(t *testing.T) {
	t.Parallel()

	light := LightPrincipal("u1", "ana")
	if _, ok := light.Full(); ok {
		t.Fatalf("LightPrincipal.Full() ok=true, want false")
	}
	if !light.IsAuthenticated() || light.Kind() != PrincipalLight {
		t.Fatalf("LightPrincipal kind=%v", light.Kind())
	}

	full := FullPrincipal(User{ID: "u1", Login: "ana"})
	u, ok := full.Full()
	if !ok || u.ID != "u1" || full.SubjectID() != "u1" || full.Login() != "ana" {
		t.Fatalf("FullPrincipal.Full()=%+v ok=%v", u, ok)
	}

	var none Principal
	if none.IsAuthenticated() {
		t.Fatalf("zero Principal IsAuthenticated()=true")
	}
}
