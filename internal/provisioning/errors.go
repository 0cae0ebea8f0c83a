package provisioning

import (
	"errors"
	"fmt"

	"sc-provisioner/internal/entities"
)

// SetupError reports a named reference row that must exist before any entity
// can be created. It stops the run (or the record whose type hint failed).
type SetupError struct {
	// Lookup names the reference table that was searched.
	Lookup string

	// Name is the value that could not be found.
	Name string

	// Err is the store error, if the lookup itself failed.
	Err error
}

// Error implements the error interface.
func (e *SetupError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("setup: failed to look up %s %q: %v", e.Lookup, e.Name, e.Err)
	}
	return fmt.Sprintf("setup: %s %q not found", e.Lookup, e.Name)
}

func (e *SetupError) Unwrap() error {
	return e.Err
}

// CreationError reports a store failure while resolving one entity of a record.
// Entities created earlier in the run stay in the ledger.
type CreationError struct {
	Kind  entities.EntityKind
	Code  string
	Attrs entities.Attrs
	Err   error
}

// Error implements the error interface.
func (e *CreationError) Error() string {
	if e.Code != "" {
		return fmt.Sprintf("failed to resolve %s for %s: %v", e.Kind, e.Code, e.Err)
	}
	return fmt.Sprintf("failed to resolve %s: %v", e.Kind, e.Err)
}

func (e *CreationError) Unwrap() error {
	return e.Err
}

// RollbackEntryError describes one ledger entry that could not be destroyed.
// Rollback logs it and moves on; it is never returned to callers.
type RollbackEntryError struct {
	Entry LedgerEntry
	Err   error
}

// Error implements the error interface.
func (e *RollbackEntryError) Error() string {
	return fmt.Sprintf("rollback of %s %s failed: %v", e.Entry.Kind, e.Entry.Handle, e.Err)
}

func (e *RollbackEntryError) Unwrap() error {
	return e.Err
}

// PricingPreconditionError means there is no prior price version to anchor a
// new one to. Bootstrap versions are created out of band by seeding.
type PricingPreconditionError struct {
	PayGradeType string
	PayGradeID   entities.Handle
	Reason       string
}

// Error implements the error interface.
func (e *PricingPreconditionError) Error() string {
	if e.PayGradeID != "" {
		return fmt.Sprintf("pricing: %s (pay grade %s)", e.Reason, e.PayGradeID)
	}
	if e.PayGradeType != "" {
		return fmt.Sprintf("pricing: %s (pay grade type %q)", e.Reason, e.PayGradeType)
	}
	return "pricing: " + e.Reason
}

// IsSetupError returns true if err is or wraps a *SetupError.
func IsSetupError(err error) bool {
	var se *SetupError
	return errors.As(err, &se)
}

// IsCreationError returns true if err is or wraps a *CreationError.
func IsCreationError(err error) bool {
	var ce *CreationError
	return errors.As(err, &ce)
}

// IsPricingPreconditionError returns true if err is or wraps a *PricingPreconditionError.
func IsPricingPreconditionError(err error) bool {
	var pe *PricingPreconditionError
	return errors.As(err, &pe)
}
