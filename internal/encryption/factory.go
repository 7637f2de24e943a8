package encryption

import (
	"fmt"

	"pidvault/internal/config"
	"pidvault/internal/docs"
)

// NewEncryptorFromConfig creates an Encryptor based on the configuration type.
// Type "none" (or empty) returns a nil Encryptor: content is stored as uploaded.
func NewEncryptorFromConfig(cfg config.EncryptionConfig) (docs.Encryptor, error) {
	switch cfg.Type {
	case "none", "":
		return nil, nil
	case "age":
		return NewAgeEncryptor(cfg), nil
	case "test":
		return NewTestEncryptor(), nil
	default:
		return nil, fmt.Errorf("unknown encryption type: %q", cfg.Type)
	}
}
