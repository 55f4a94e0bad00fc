package crypto

import (
	"encoding/base64"
	"fmt"
	"strings"

	"ta-go/internal/ta"
)

// testHeader marks envelopes produced by TestCipher so decryption can tell
// them apart from plaintext and verify the passphrase.
const testHeader = "TAENC:"

// TestCipher is a simple, deterministic cipher for testing. The envelope is
// "TAENC:<passphrase>:<base64 plaintext>" — clearly different from the
// plaintext (so format detection works) while trivially reversible and
// requiring no crypto.
type TestCipher struct{}

var _ ta.Cipher = (*TestCipher)(nil)

// NewTestCipher creates a new TestCipher.
func NewTestCipher() *TestCipher {
	return &TestCipher{}
}

func (c *TestCipher) Encrypt(plaintext, passphrase string) (string, error) {
	return testHeader + passphrase + ":" + base64.StdEncoding.EncodeToString([]byte(plaintext)), nil
}

func (c *TestCipher) Decrypt(envelope, passphrase string) (string, error) {
	rest, ok := strings.CutPrefix(envelope, testHeader+passphrase+":")
	if !ok {
		return "", &ta.DecryptionError{Err: fmt.Errorf("invalid test envelope")}
	}
	raw, err := base64.StdEncoding.DecodeString(rest)
	if err != nil {
		return "", &ta.DecryptionError{Err: err}
	}
	return string(raw), nil
}
