package crypto

import (
	"bytes"
	"encoding/base64"
	"fmt"
	"io"
	"strings"

	"filippo.io/age"

	"ta-go/internal/ta"
)

// AgeCipher implements ta.Cipher using filippo.io/age passphrase encryption
// (scrypt-based). The age format is itself self-describing; the envelope is
// its base64 encoding so it travels through the same string-typed remote
// blob as the AES envelope.
type AgeCipher struct{}

var _ ta.Cipher = (*AgeCipher)(nil)

// NewAgeCipher creates a new AgeCipher.
func NewAgeCipher() *AgeCipher {
	return &AgeCipher{}
}

func (c *AgeCipher) Encrypt(plaintext, passphrase string) (string, error) {
	recipient, err := age.NewScryptRecipient(passphrase)
	if err != nil {
		return "", fmt.Errorf("creating scrypt recipient: %w", err)
	}

	var buf bytes.Buffer
	w, err := age.Encrypt(&buf, recipient)
	if err != nil {
		return "", fmt.Errorf("creating encrypted writer: %w", err)
	}

	if _, err := io.WriteString(w, plaintext); err != nil {
		return "", fmt.Errorf("encrypting data: %w", err)
	}

	if err := w.Close(); err != nil {
		return "", fmt.Errorf("finalizing encryption: %w", err)
	}

	return base64.StdEncoding.EncodeToString(buf.Bytes()), nil
}

func (c *AgeCipher) Decrypt(envelope, passphrase string) (string, error) {
	raw, err := base64.StdEncoding.DecodeString(envelope)
	if err != nil {
		return "", &ta.DecryptionError{Err: fmt.Errorf("decoding envelope: %w", err)}
	}

	identity, err := age.NewScryptIdentity(passphrase)
	if err != nil {
		return "", &ta.DecryptionError{Err: fmt.Errorf("creating scrypt identity: %w", err)}
	}

	r, err := age.Decrypt(bytes.NewReader(raw), identity)
	if err != nil {
		return "", &ta.DecryptionError{Err: err}
	}

	var out strings.Builder
	if _, err := io.Copy(&out, r); err != nil {
		return "", &ta.DecryptionError{Err: err}
	}

	return out.String(), nil
}
