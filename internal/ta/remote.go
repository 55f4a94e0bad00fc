package ta

import (
	"context"
	"time"
)

// Provider identifies a remote backend.
type Provider string

const (
	ProviderDrive  Provider = "drive"
	ProviderGist   Provider = "gist"
	ProviderS3     Provider = "s3"
	ProviderMemory Provider = "memory"
)

// BlobName is the fixed logical filename of the remote blob. Exactly one
// blob exists per account at a time; it is overwritten, never versioned.
const BlobName = "task_assistant_data.json"

// BlobHandle identifies the remote blob on a specific provider.
type BlobHandle struct {
	// ID is the provider-assigned identifier (file id, gist id, object key).
	ID string
	// Name is the logical blob filename.
	Name string
	// Modified is the remote's modification timestamp.
	Modified time.Time
}

// Remote is a provider-agnostic blob storage adapter. Implementations
// encapsulate query mechanics, auth header schemes, and truncation handling;
// they normalize every transport or provider failure into
// RemoteUnavailableError before returning. Adding a backend requires only a
// new implementation of this interface.
type Remote interface {
	// Locate finds the account's blob. Returns (nil, nil) when no blob
	// exists yet — absence is a normal state, not an error.
	Locate(ctx context.Context, token string) (*BlobHandle, error)

	// Read fetches the blob's full content.
	Read(ctx context.Context, token string, handle *BlobHandle) (string, error)

	// Write stores content. When handle is nil the blob is created; otherwise
	// the existing blob is overwritten in place. Returns the (possibly new)
	// handle.
	Write(ctx context.Context, token string, content string, handle *BlobHandle) (*BlobHandle, error)
}

// Cipher encrypts and decrypts the serialized snapshot payload. The envelope
// is self-describing: decryption needs only the passphrase.
type Cipher interface {
	// Encrypt produces a fresh envelope for the plaintext. Salt and nonce are
	// newly randomized on every call, so two envelopes for the same input
	// always differ.
	Encrypt(plaintext, passphrase string) (string, error)

	// Decrypt reverses Encrypt. Returns DecryptionError on a wrong
	// passphrase, corrupted envelope, or tampering.
	Decrypt(envelope, passphrase string) (string, error)
}

// TokenSource supplies the bearer credential and provider for the active
// account. The core treats the token as opaque; OAuth flows live outside.
type TokenSource interface {
	Token() (string, error)
	Provider() Provider
}
