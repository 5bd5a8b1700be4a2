package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/oklog/ulid/v2"

	"github.com/kidsstudy/kidsstudy/internal/model"
)

// ErrProfileNotFound is returned when no profile row exists for a user.
var ErrProfileNotFound = errors.New("profile not found")

// GetProfile reads the payment and trial fields of a user's profile.
// The access state is derived by the caller; nothing here stores it.
// is_paid and trial_ends_at may be NULL; see Profile.SetNullableState.
func (r *Repository) GetProfile(ctx context.Context, userID string) (*model.Profile, error) {
	query := `
		SELECT id, COALESCE(email, ''), is_paid, trial_ends_at, plan_type, updated_at
		FROM profiles
		WHERE id = $1
	`

	var (
		p           model.Profile
		isPaid      *bool
		trialEndsAt *time.Time
		planType    *string
	)
	err := r.pool.QueryRow(ctx, query, userID).Scan(
		&p.UserID,
		&p.Email,
		&isPaid,
		&trialEndsAt,
		&planType,
		&p.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrProfileNotFound
		}
		return nil, fmt.Errorf("failed to get profile: %w", err)
	}

	p.SetNullableState(isPaid, trialEndsAt)
	if planType != nil {
		pt := model.PlanType(*planType)
		p.PlanType = &pt
	}

	return &p, nil
}

// MarkPaidInput describes a completed payment to apply to a profile.
type MarkPaidInput struct {
	UserID        string
	PlanType      model.PlanType
	StripeEventID string
	EventType     string
}

// MarkPaid sets is_paid and plan_type on the user's profile and records the
// processor event in payment_events, in one transaction.
// Applying the same event twice leaves the same end state.
func (r *Repository) MarkPaid(ctx context.Context, in MarkPaidInput) error {
	now := time.Now().UTC()

	return r.withTx(ctx, func(tx pgx.Tx) error {
		tag, err := tx.Exec(ctx, `
			UPDATE profiles
			SET is_paid = true, plan_type = $2, updated_at = $3
			WHERE id = $1
		`, in.UserID, string(in.PlanType), now)
		if err != nil {
			return fmt.Errorf("failed to update profile: %w", err)
		}
		if tag.RowsAffected() == 0 {
			return ErrProfileNotFound
		}

		if in.StripeEventID == "" {
			return nil
		}
		_, err = tx.Exec(ctx, `
			INSERT INTO payment_events (id, stripe_event_id, event_type, user_id, plan_type, received_at)
			VALUES ($1, $2, $3, $4, $5, $6)
			ON CONFLICT (stripe_event_id) DO NOTHING
		`, ulid.Make().String(), in.StripeEventID, in.EventType, in.UserID, string(in.PlanType), now)
		if err != nil {
			return fmt.Errorf("failed to record payment event: %w", err)
		}
		return nil
	})
}

// ListPaymentEvents returns the recorded processor events for a user, newest first.
func (r *Repository) ListPaymentEvents(ctx context.Context, userID string) ([]*model.PaymentEvent, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT id, stripe_event_id, event_type, user_id, plan_type, received_at
		FROM payment_events
		WHERE user_id = $1
		ORDER BY received_at DESC
	`, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to list payment events: %w", err)
	}
	defer rows.Close()

	var events []*model.PaymentEvent
	for rows.Next() {
		var (
			e        model.PaymentEvent
			planType string
		)
		if err := rows.Scan(&e.ID, &e.StripeEventID, &e.EventType, &e.UserID, &planType, &e.ReceivedAt); err != nil {
			return nil, fmt.Errorf("failed to scan payment event: %w", err)
		}
		e.PlanType = model.PlanType(planType)
		events = append(events, &e)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating payment events: %w", err)
	}

	return events, nil
}
