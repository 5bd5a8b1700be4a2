package auth

import (
	"errors"
	"strings"
	"testing"
)

func TestGenerateOpsKey(t *testing.T) {
	t.Parallel()

	key, err := GenerateOpsKey()
	if err != nil {
		t.Fatalf("GenerateOpsKey failed: %v", err)
	}

	if !strings.HasPrefix(key.Plaintext, "ks_ops_"+key.Prefix+"_") {
		t.Errorf("plaintext %q does not embed prefix %q", key.Plaintext, key.Prefix)
	}

	prefix, err := ParseOpsKey(key.Plaintext)
	if err != nil {
		t.Fatalf("ParseOpsKey failed: %v", err)
	}
	if prefix != key.Prefix {
		t.Errorf("prefix = %s, want %s", prefix, key.Prefix)
	}

	match, err := VerifySecret(key.Plaintext, key.Hash)
	if err != nil || !match {
		t.Errorf("generated key should verify against its hash")
	}
}

func TestParseOpsKey_Invalid(t *testing.T) {
	t.Parallel()

	tests := []string{
		"",
		"ks_ops_",
		"ks_ops_abc12_0123456789abcdef0123456789abcdef",
		"ks_ops_ABC123_0123456789abcdef0123456789abcdef",
		"pk_live_abc123_0123456789abcdef0123456789abcdef",
		"ks_ops_abc123_0123456789abcdef",
	}

	for _, key := range tests {
		if _, err := ParseOpsKey(key); !errors.Is(err, ErrInvalidKeyFormat) {
			t.Errorf("ParseOpsKey(%q) error = %v, want ErrInvalidKeyFormat", key, err)
		}
	}
}
