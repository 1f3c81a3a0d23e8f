package vehiclerepo

import "errors"

var (
	// ErrNotFound indicates the requested vehicle does not exist (or is not visible to the owner).
	ErrNotFound = errors.New("vehicle not found")

	// ErrAlreadyExists indicates a vehicle already exists with the provided ID.
	ErrAlreadyExists = errors.New("vehicle already exists")

	// ErrPlateTaken indicates another vehicle already carries the license plate.
	ErrPlateTaken = errors.New("license plate already taken")

	// ErrVersionConflict indicates a batch save observed a row whose version
	// changed since it was read. Nothing from the batch was written.
	ErrVersionConflict = errors.New("vehicle version conflict")

	// ErrUnavailable wraps connectivity failures of the backing store.
	ErrUnavailable = errors.New("vehicle store unavailable")
)
