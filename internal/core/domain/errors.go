package domain

import (
	"errors"
	"fmt"
)

var (
	// ErrInvalidArgument marks malformed caller input: bad filters,
	// non-positive limits, out-of-range score inputs. Never retried.
	ErrInvalidArgument = errors.New("invalid argument")

	// ErrInvalidState marks an illegal run transition, e.g. closing an
	// already-closed run or appending evidence to one.
	ErrInvalidState = errors.New("invalid state")

	ErrRunNotFound  = errors.New("run not found")
	ErrUnauthorized = errors.New("unauthorized")

	// ErrGeneration and ErrVerification mark transient collaborator
	// failures; orchestrators retry them with bounded attempts.
	ErrGeneration   = errors.New("generation failure")
	ErrVerification = errors.New("verification failure")

	// ErrSchemaViolation marks collaborator output that fails its schema
	// contract; it triggers a single repair pass, never a blind retry.
	ErrSchemaViolation = errors.New("schema violation")

	// ErrStorageUnavailable marks an unreachable ledger or index backend.
	ErrStorageUnavailable = errors.New("storage unavailable")
)

// WrapError preserves typed semantic errors with operation context.
func WrapError(kind error, operation string, err error) error {
	if err == nil {
		return nil
	}
	return fmt.Errorf("%s: %w: %w", operation, kind, err)
}

func IsKind(err error, kind error) bool {
	return errors.Is(err, kind)
}
