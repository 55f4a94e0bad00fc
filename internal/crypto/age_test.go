package crypto

import (
	"encoding/json"
	"testing"

	"ta-go/internal/ta"
)

func TestAgeCipher_RoundTrip(t *testing.T) {
	t.Parallel()

	c := NewAgeCipher()
	input := `{"tasks":[{"id":"t1","updatedAt":100}]}`

	envelope, err := c.Encrypt(input, "test-passphrase")
	if err != nil {
		t.Fatalf("Encrypt() error = %v", err)
	}

	var snap map[string]any
	if err := json.Unmarshal([]byte(envelope), &snap); err == nil {
		t.Errorf("envelope parses as JSON: %q", envelope)
	}

	got, err := c.Decrypt(envelope, "test-passphrase")
	if err != nil {
		t.Fatalf("Decrypt() error = %v", err)
	}
	if got != input {
		t.Errorf("Decrypt() = %q, want %q", got, input)
	}
}

func TestAgeCipher_WrongPassphrase(t *testing.T) {
	t.Parallel()

	c := NewAgeCipher()
	envelope, err := c.Encrypt("secret data", "right")
	if err != nil {
		t.Fatalf("Encrypt() error = %v", err)
	}

	_, err = c.Decrypt(envelope, "wrong")
	if !ta.IsDecryptionError(err) {
		t.Errorf("Decrypt() error = %v, want DecryptionError", err)
	}
}

func TestAgeCipher_CorruptEnvelope(t *testing.T) {
	t.Parallel()

	c := NewAgeCipher()
	if _, err := c.Decrypt("not an envelope at all", "pass"); !ta.IsDecryptionError(err) {
		t.Errorf("Decrypt() error = %v, want DecryptionError", err)
	}
}
