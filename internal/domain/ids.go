package domain

// UserID is the internal identifier for a user record. It is also carried in
// issued tokens as the "id" claim.
type UserID string

// VehicleID is the internal identifier for a vehicle record.
type VehicleID string
