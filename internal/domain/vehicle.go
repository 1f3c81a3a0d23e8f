package domain

import (
	"regexp"
	"strings"
	"time"
)

var (
	// Legacy format, e.g. ABC-1234.
	legacyPlatePattern = regexp.MustCompile(`(?i)^[A-Z]{3}-\d{4}$`)
	// Mercosul format, e.g. ABC1D23.
	mercosulPlatePattern = regexp.MustCompile(`(?i)^[A-Z]{3}\d[A-Z]\d{2}$`)
)

// Vehicle is a car owned by a user.
//
// At settled time at most one vehicle per owner has InUse set. UsageCount is
// server-maintained and never negative. Version is bumped on every save and
// is used for optimistic concurrency.
type Vehicle struct {
	ID      VehicleID
	OwnerID UserID

	Year         int
	LicensePlate string
	Model        string
	Color        string

	InUse      bool
	UsageCount int

	Version int64
}

// VehicleFields is the client-supplied portion of a vehicle.
type VehicleFields struct {
	Year         int
	LicensePlate string
	Model        string
	Color        string
}

// Normalize returns a copy with whitespace trimmed and the plate upper-cased.
func (f VehicleFields) Normalize() VehicleFields {
	f.LicensePlate = NormalizeLicensePlate(f.LicensePlate)
	f.Model = strings.TrimSpace(f.Model)
	f.Color = strings.TrimSpace(f.Color)
	return f
}

// Validate reports ErrMissingFields when a required field is absent and
// ErrInvalidFields when the year is in the future or the plate matches
// neither accepted format.
func (f VehicleFields) Validate(now time.Time) error {
	if f.Year == 0 || f.LicensePlate == "" || f.Model == "" || f.Color == "" {
		return ErrMissingFields
	}
	if f.Year > now.Year() || f.Year < 0 {
		return ErrInvalidFields
	}
	if !ValidLicensePlate(f.LicensePlate) {
		return ErrInvalidFields
	}
	return nil
}

// ValidLicensePlate reports whether plate matches the legacy or Mercosul format.
func ValidLicensePlate(plate string) bool {
	return legacyPlatePattern.MatchString(plate) || mercosulPlatePattern.MatchString(plate)
}

// Fields returns the client-editable fields of v.
func (v Vehicle) Fields() VehicleFields {
	return VehicleFields{Year: v.Year, LicensePlate: v.LicensePlate, Model: v.Model, Color: v.Color}
}

// WithFields returns a copy of v with the client-editable fields replaced.
func (v Vehicle) WithFields(f VehicleFields) Vehicle {
	v.Year = f.Year
	v.LicensePlate = f.LicensePlate
	v.Model = f.Model
	v.Color = f.Color
	return v
}
