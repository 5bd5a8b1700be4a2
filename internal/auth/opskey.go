package auth

import (
	"crypto/rand"
	"encoding/hex"
	"errors"
	"fmt"
	"regexp"
)

// Ops key format: ks_ops_{prefix}_{secret}
// Example: ks_ops_7a9f3c_4f8d2e1b9c7a5f3d2e1b9c7a5f3d2e1b
const (
	OpsKeyPrefixLen = 6  // hex encoded 3 bytes
	OpsKeySecretLen = 32 // hex encoded 16 bytes
)

var (
	// ErrInvalidKeyFormat indicates the key format is invalid.
	ErrInvalidKeyFormat = errors.New("invalid ops key format")

	opsKeyRegex = regexp.MustCompile(`^ks_ops_([a-f0-9]{6})_([a-f0-9]{32})$`)
)

// GeneratedOpsKey contains the parts of a newly generated ops key.
type GeneratedOpsKey struct {
	Plaintext string // Full key (show once only)
	Hash      string // Argon2id hash for storage
	Prefix    string // Lookup prefix
}

// GenerateOpsKey creates a new ops key and its storage hash.
func GenerateOpsKey() (*GeneratedOpsKey, error) {
	prefixBytes := make([]byte, OpsKeyPrefixLen/2)
	if _, err := rand.Read(prefixBytes); err != nil {
		return nil, fmt.Errorf("generate prefix: %w", err)
	}
	secretBytes := make([]byte, OpsKeySecretLen/2)
	if _, err := rand.Read(secretBytes); err != nil {
		return nil, fmt.Errorf("generate secret: %w", err)
	}

	prefix := hex.EncodeToString(prefixBytes)
	plaintext := fmt.Sprintf("ks_ops_%s_%s", prefix, hex.EncodeToString(secretBytes))

	hash, err := HashSecret(plaintext)
	if err != nil {
		return nil, fmt.Errorf("hash key: %w", err)
	}

	return &GeneratedOpsKey{Plaintext: plaintext, Hash: hash, Prefix: prefix}, nil
}

// ParseOpsKey validates the key format and returns its lookup prefix.
func ParseOpsKey(key string) (string, error) {
	m := opsKeyRegex.FindStringSubmatch(key)
	if m == nil {
		return "", ErrInvalidKeyFormat
	}
	return m[1], nil
}
