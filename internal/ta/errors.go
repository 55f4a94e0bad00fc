package ta

import (
	"errors"
	"fmt"
)

// ErrNoRemoteData indicates that no remote blob exists yet for the account.
// This is the normal empty state on a first-ever sync, not a failure.
var ErrNoRemoteData = errors.New("no remote data found")

// NotFoundError is returned when an update or delete targets a record id
// that does not exist in the collection. The store is left unchanged.
type NotFoundError struct {
	Collection Collection
	ID         string
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("record not found: %s/%s", e.Collection, e.ID)
}

// ConflictError is returned when an add targets a record id that already
// exists in the collection.
type ConflictError struct {
	Collection Collection
	ID         string
}

func (e *ConflictError) Error() string {
	return fmt.Sprintf("record already exists: %s/%s", e.Collection, e.ID)
}

// DecryptionError indicates ciphertext was present but could not be
// decrypted: wrong passphrase, corrupted envelope, or tampering. Callers
// must treat this as "cannot recover remote data with this passphrase" and
// never retry automatically.
type DecryptionError struct {
	Err error
}

func (e *DecryptionError) Error() string {
	if e.Err == nil {
		return "decryption failed"
	}
	return fmt.Sprintf("decryption failed: %v", e.Err)
}

func (e *DecryptionError) Unwrap() error { return e.Err }

// RemoteUnavailableError wraps a network or provider failure (timeout,
// non-2xx status, malformed response). Always retryable by the user
// manually; the core never auto-retries beyond the single attempt.
type RemoteUnavailableError struct {
	Provider Provider
	Err      error
}

func (e *RemoteUnavailableError) Error() string {
	return fmt.Sprintf("remote %s unavailable: %v", e.Provider, e.Err)
}

func (e *RemoteUnavailableError) Unwrap() error { return e.Err }

// UnrecognizedFormatError indicates downloaded content is neither valid
// plaintext JSON nor decryptable with the supplied passphrase.
type UnrecognizedFormatError struct {
	Reason string
}

func (e *UnrecognizedFormatError) Error() string {
	return fmt.Sprintf("unrecognized remote content: %s", e.Reason)
}

// IsNotFound reports whether err is a NotFoundError.
func IsNotFound(err error) bool {
	var nf *NotFoundError
	return errors.As(err, &nf)
}

// IsConflict reports whether err is a ConflictError.
func IsConflict(err error) bool {
	var c *ConflictError
	return errors.As(err, &c)
}

// IsDecryptionError reports whether err is a DecryptionError.
func IsDecryptionError(err error) bool {
	var d *DecryptionError
	return errors.As(err, &d)
}
