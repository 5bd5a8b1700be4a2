package model

import "time"

// OpsKey is a support-tool credential. Only its Argon2id hash is stored.
type OpsKey struct {
	ID         string     `json:"id"`
	KeyHash    string     `json:"-"` // Never serialize
	KeyPrefix  string     `json:"key_prefix"`
	Name       string     `json:"name,omitempty"`
	RevokedAt  *time.Time `json:"revoked_at,omitempty"`
	LastUsedAt *time.Time `json:"last_used_at,omitempty"`
	CreatedAt  time.Time  `json:"created_at"`
}

// IsRevoked returns true if the key has been revoked.
func (k *OpsKey) IsRevoked() bool {
	return k.RevokedAt != nil
}

// OpsContext identifies the ops key that authenticated a request.
type OpsContext struct {
	KeyID     string
	KeyPrefix string
	Name      string
}
