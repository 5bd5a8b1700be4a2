package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"

	"github.com/kidsstudy/kidsstudy/internal/model"
)

// ErrOpsKeyNotFound is returned when an ops key does not exist.
var ErrOpsKeyNotFound = errors.New("ops key not found")

// CreateOpsKey inserts a new ops key.
func (r *Repository) CreateOpsKey(ctx context.Context, key *model.OpsKey) error {
	_, err := r.pool.Exec(ctx, `
		INSERT INTO ops_keys (id, key_hash, key_prefix, name, created_at)
		VALUES ($1, $2, $3, $4, $5)
	`, key.ID, key.KeyHash, key.KeyPrefix, key.Name, key.CreatedAt)
	if err != nil {
		return fmt.Errorf("failed to create ops key: %w", err)
	}
	return nil
}

// GetOpsKeysByPrefix returns the active keys sharing a prefix.
// Callers verify the secret against each candidate.
func (r *Repository) GetOpsKeysByPrefix(ctx context.Context, prefix string) ([]*model.OpsKey, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT id, key_hash, key_prefix, name, revoked_at, last_used_at, created_at
		FROM ops_keys
		WHERE key_prefix = $1 AND revoked_at IS NULL
	`, prefix)
	if err != nil {
		return nil, fmt.Errorf("failed to get ops keys by prefix: %w", err)
	}
	defer rows.Close()

	var keys []*model.OpsKey
	for rows.Next() {
		key, err := scanOpsKey(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan ops key: %w", err)
		}
		keys = append(keys, key)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating ops keys: %w", err)
	}

	return keys, nil
}

// GetOpsKeyByID retrieves a key by ID.
func (r *Repository) GetOpsKeyByID(ctx context.Context, id string) (*model.OpsKey, error) {
	row := r.pool.QueryRow(ctx, `
		SELECT id, key_hash, key_prefix, name, revoked_at, last_used_at, created_at
		FROM ops_keys
		WHERE id = $1
	`, id)

	key, err := scanOpsKey(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrOpsKeyNotFound
		}
		return nil, fmt.Errorf("failed to get ops key: %w", err)
	}
	return key, nil
}

// RevokeOpsKey marks a key as revoked.
func (r *Repository) RevokeOpsKey(ctx context.Context, id string) error {
	tag, err := r.pool.Exec(ctx, `
		UPDATE ops_keys SET revoked_at = $2 WHERE id = $1 AND revoked_at IS NULL
	`, id, time.Now().UTC())
	if err != nil {
		return fmt.Errorf("failed to revoke ops key: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrOpsKeyNotFound
	}
	return nil
}

// TouchOpsKey updates last_used_at.
func (r *Repository) TouchOpsKey(ctx context.Context, id string) error {
	_, err := r.pool.Exec(ctx, `UPDATE ops_keys SET last_used_at = $2 WHERE id = $1`, id, time.Now().UTC())
	if err != nil {
		return fmt.Errorf("failed to update ops key last_used_at: %w", err)
	}
	return nil
}

func scanOpsKey(row pgx.Row) (*model.OpsKey, error) {
	var (
		k    model.OpsKey
		name *string
	)
	if err := row.Scan(&k.ID, &k.KeyHash, &k.KeyPrefix, &name, &k.RevokedAt, &k.LastUsedAt, &k.CreatedAt); err != nil {
		return nil, err
	}
	if name != nil {
		k.Name = *name
	}
	return &k, nil
}
