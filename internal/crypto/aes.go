package crypto

import (
	"crypto/aes"
	"crypto/cipher"
	"crypto/rand"
	"crypto/sha256"
	"encoding/base64"
	"fmt"

	"golang.org/x/crypto/pbkdf2"

	"ta-go/internal/ta"
)

const (
	saltSize  = 16 // 128-bit salt, freshly randomized per envelope
	nonceSize = 12 // 96-bit GCM nonce, freshly randomized per envelope
	keySize   = 32 // AES-256

	// pbkdf2Iterations deliberately makes key derivation slow to resist
	// offline guessing of weak passphrases.
	pbkdf2Iterations = 100000
)

// AESCipher implements ta.Cipher with a self-describing envelope:
// base64(salt ‖ nonce ‖ AES-256-GCM ciphertext). The key is derived from the
// passphrase and salt via PBKDF2-SHA256, so decryption needs nothing beyond
// the passphrase itself.
type AESCipher struct{}

var _ ta.Cipher = (*AESCipher)(nil)

// NewAESCipher creates a new AESCipher.
func NewAESCipher() *AESCipher {
	return &AESCipher{}
}

// Encrypt produces a fresh envelope. Salt and nonce are newly randomized on
// every call and never reused, so two envelopes for the same input differ.
func (c *AESCipher) Encrypt(plaintext, passphrase string) (string, error) {
	salt := make([]byte, saltSize)
	if _, err := rand.Read(salt); err != nil {
		return "", fmt.Errorf("generating salt: %w", err)
	}

	nonce := make([]byte, nonceSize)
	if _, err := rand.Read(nonce); err != nil {
		return "", fmt.Errorf("generating nonce: %w", err)
	}

	gcm, err := newGCM(passphrase, salt)
	if err != nil {
		return "", err
	}

	envelope := make([]byte, 0, saltSize+nonceSize+len(plaintext)+gcm.Overhead())
	envelope = append(envelope, salt...)
	envelope = append(envelope, nonce...)
	envelope = gcm.Seal(envelope, nonce, []byte(plaintext), nil)

	return base64.StdEncoding.EncodeToString(envelope), nil
}

// Decrypt reverses Encrypt. Every failure mode — malformed base64, truncated
// envelope, wrong passphrase, tampered ciphertext — surfaces as a
// ta.DecryptionError; corrupted plaintext is never returned silently.
func (c *AESCipher) Decrypt(envelope, passphrase string) (string, error) {
	raw, err := base64.StdEncoding.DecodeString(envelope)
	if err != nil {
		return "", &ta.DecryptionError{Err: fmt.Errorf("decoding envelope: %w", err)}
	}

	if len(raw) < saltSize+nonceSize {
		return "", &ta.DecryptionError{Err: fmt.Errorf("envelope too short: %d bytes", len(raw))}
	}

	salt := raw[:saltSize]
	nonce := raw[saltSize : saltSize+nonceSize]
	ciphertext := raw[saltSize+nonceSize:]

	gcm, err := newGCM(passphrase, salt)
	if err != nil {
		return "", err
	}

	plaintext, err := gcm.Open(nil, nonce, ciphertext, nil)
	if err != nil {
		return "", &ta.DecryptionError{Err: err}
	}

	return string(plaintext), nil
}

// newGCM derives the symmetric key for a passphrase+salt pair and wraps it
// in an AEAD.
func newGCM(passphrase string, salt []byte) (cipher.AEAD, error) {
	key := pbkdf2.Key([]byte(passphrase), salt, pbkdf2Iterations, keySize, sha256.New)

	block, err := aes.NewCipher(key)
	if err != nil {
		return nil, fmt.Errorf("creating cipher: %w", err)
	}

	gcm, err := cipher.NewGCMWithNonceSize(block, nonceSize)
	if err != nil {
		return nil, fmt.Errorf("creating GCM: %w", err)
	}
	return gcm, nil
}
