package entities

import "errors"

// Store errors shared by every DataStore implementation.
var (
	ErrNotFound         = errors.New("store: not found")
	ErrReferenced       = errors.New("store: foreign key constraint violated")
	ErrUnknownKind      = errors.New("store: unknown entity kind")
	ErrUnknownAttribute = errors.New("store: unknown attribute")
	ErrUnknownLookup    = errors.New("store: unknown lookup table")
)

// IsNotFound returns true if the error is a not found error.
func IsNotFound(err error) bool {
	return errors.Is(err, ErrNotFound)
}

// IsReferenced returns true if the error reports a foreign-key violation.
func IsReferenced(err error) bool {
	return errors.Is(err, ErrReferenced)
}
