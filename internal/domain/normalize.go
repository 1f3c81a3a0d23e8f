package domain

import "strings"

// NormalizeHumanName trims leading/trailing whitespace and collapses internal whitespace runs.
// It is used for first and last name normalization.
func NormalizeHumanName(s string) string {
	return strings.Join(strings.Fields(s), " ")
}

// NormalizeLicensePlate trims whitespace and upper-cases the plate so that
// uniqueness checks are case-insensitive.
func NormalizeLicensePlate(s string) string {
	return strings.ToUpper(strings.TrimSpace(s))
}

// NormalizeEmail trims whitespace and lower-cases the address.
func NormalizeEmail(s string) string {
	return strings.ToLower(strings.TrimSpace(s))
}
