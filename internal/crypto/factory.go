package crypto

import (
	"fmt"

	"ta-go/internal/config"
	"ta-go/internal/ta"
)

// NewCipherFromConfig creates a Cipher based on the configuration type.
func NewCipherFromConfig(cfg config.EncryptionConfig) (ta.Cipher, error) {
	switch cfg.Type {
	case "aes", "":
		return NewAESCipher(), nil
	case "age":
		return NewAgeCipher(), nil
	case "test":
		return NewTestCipher(), nil
	default:
		return nil, fmt.Errorf("unknown encryption type: %q", cfg.Type)
	}
}
