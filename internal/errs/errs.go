// Package errs defines the sentinel errors shared across the application.
// Callers classify failures with errors.Is and wrap them with fmt.Errorf
// and %w to add context.
package errs

import "errors"

var (
	// ErrNotFound indicates a bot or account that does not exist or is not
	// owned by the caller. Ownership misses deliberately look identical to
	// missing rows.
	ErrNotFound = errors.New("not found")

	// ErrUnauthenticated indicates a missing or invalid caller credential.
	ErrUnauthenticated = errors.New("unauthenticated")

	// ErrUnauthorized indicates a webhook secret mismatch.
	ErrUnauthorized = errors.New("unauthorized")

	// ErrValidation indicates invalid input: a missing required field or a
	// malformed credential.
	ErrValidation = errors.New("validation failed")

	// ErrUpstream indicates a failed call to the messaging or payment
	// provider.
	ErrUpstream = errors.New("upstream provider failure")

	// ErrEntitlement indicates the free-tier bot limit was reached.
	ErrEntitlement = errors.New("entitlement denied")

	// ErrConflict indicates a lifecycle transition lost a concurrent race.
	ErrConflict = errors.New("conflicting concurrent update")
)
