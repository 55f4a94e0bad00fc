package crypto

import (
	"testing"

	"ta-go/internal/config"
	"ta-go/internal/ta"
)

func TestTestCipher_RoundTrip(t *testing.T) {
	t.Parallel()

	c := NewTestCipher()
	envelope, err := c.Encrypt("hello world", "pass")
	if err != nil {
		t.Fatalf("Encrypt() error = %v", err)
	}
	if envelope == "hello world" {
		t.Error("envelope equals plaintext, want distinguishable form")
	}

	got, err := c.Decrypt(envelope, "pass")
	if err != nil {
		t.Fatalf("Decrypt() error = %v", err)
	}
	if got != "hello world" {
		t.Errorf("Decrypt() = %q, want %q", got, "hello world")
	}
}

func TestTestCipher_WrongPassphrase(t *testing.T) {
	t.Parallel()

	c := NewTestCipher()
	envelope, err := c.Encrypt("secret", "right")
	if err != nil {
		t.Fatalf("Encrypt() error = %v", err)
	}

	if _, err := c.Decrypt(envelope, "wrong"); !ta.IsDecryptionError(err) {
		t.Errorf("Decrypt() error = %v, want DecryptionError", err)
	}
}

func TestNewCipherFromConfig(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name       string
		cipherType string
		wantErr    bool
	}{
		{name: "default is aes", cipherType: ""},
		{name: "aes", cipherType: "aes"},
		{name: "age", cipherType: "age"},
		{name: "test", cipherType: "test"},
		{name: "unknown", cipherType: "rot13", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			c, err := NewCipherFromConfig(config.EncryptionConfig{Type: tt.cipherType})
			if tt.wantErr {
				if err == nil {
					t.Errorf("NewCipherFromConfig(%q) error = nil, want error", tt.cipherType)
				}
				return
			}
			if err != nil {
				t.Fatalf("NewCipherFromConfig(%q) error = %v", tt.cipherType, err)
			}
			if c == nil {
				t.Errorf("NewCipherFromConfig(%q) = nil", tt.cipherType)
			}
		})
	}
}
