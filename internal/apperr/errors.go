// Package apperr defines the error taxonomy shared by every FileDock
// operation. Each operation signals exactly one of these conditions (never a
// generic failure) so the transport layer can map it to a stable status.
package apperr

import (
	"errors"
	"fmt"
)

var (
	// ErrValidation marks a missing or malformed required field. The caller
	// can recover by correcting the input.
	ErrValidation = errors.New("validation failed")

	// ErrUnauthenticated marks an absent, invalid, or expired session token.
	ErrUnauthenticated = errors.New("unauthenticated")

	// ErrUnauthorized marks a valid session whose role or folder assignment
	// is insufficient for the operation.
	ErrUnauthorized = errors.New("unauthorized")

	// ErrNotFound marks a referenced user, folder, file, or version that
	// does not exist.
	ErrNotFound = errors.New("not found")

	// ErrConflict marks a duplicate username, a duplicate sibling folder
	// name, or a lost conditional write.
	ErrConflict = errors.New("conflict")

	// ErrCapacity marks a file size exceeding the upload ceiling.
	ErrCapacity = errors.New("capacity exceeded")

	// ErrStorageUnavailable marks a transient failure of the underlying
	// store, distinct from the domain conditions above. The transport layer
	// may choose to retry; this layer never does.
	ErrStorageUnavailable = errors.New("storage unavailable")
)

// Storage wraps a raw store failure as ErrStorageUnavailable, preserving the
// cause in the message. Domain sentinels must never be passed through here.
func Storage(err error) error {
	return fmt.Errorf("%w: %v", ErrStorageUnavailable, err)
}
