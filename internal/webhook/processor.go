package webhook

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/kidsstudy/kidsstudy/internal/metrics"
	"github.com/kidsstudy/kidsstudy/internal/model"
	"github.com/kidsstudy/kidsstudy/internal/repository"
)

// ProfileWriter applies a completed payment to the profile store.
type ProfileWriter interface {
	MarkPaid(ctx context.Context, in repository.MarkPaidInput) error
}

// DeliveryTracker remembers which events were already applied.
type DeliveryTracker interface {
	IsEventDelivered(ctx context.Context, eventID string) (bool, error)
	MarkEventDelivered(ctx context.Context, eventID string) error
}

// Outcome describes what happened to an accepted delivery.
type Outcome string

const (
	OutcomeApplied     Outcome = "applied"
	OutcomeIgnored     Outcome = "ignored"
	OutcomeMissingUser Outcome = "missing_user"
	OutcomeUnknownUser Outcome = "unknown_user"
	OutcomeDuplicate   Outcome = "duplicate"
)

// Result is returned for every delivery that passed verification.
type Result struct {
	EventID   string
	EventType string
	Outcome   Outcome
}

// Processor verifies deliveries and marks profiles paid.
type Processor struct {
	secret    string
	tolerance time.Duration
	store     ProfileWriter
	tracker   DeliveryTracker
	logger    *slog.Logger
	metrics   metrics.Recorder
}

// ProcessorOption configures a Processor.
type ProcessorOption func(*Processor)

// WithTracker enables delivered-event markers.
func WithTracker(tracker DeliveryTracker) ProcessorOption {
	return func(p *Processor) {
		p.tracker = tracker
	}
}

// NewProcessor creates a Processor bound to the endpoint signing secret.
func NewProcessor(secret string, tolerance time.Duration, store ProfileWriter, logger *slog.Logger, recorder metrics.Recorder, opts ...ProcessorOption) *Processor {
	if recorder == nil {
		recorder = metrics.NewNoop()
	}
	if tolerance <= 0 {
		tolerance = DefaultReplayWindow
	}
	p := &Processor{
		secret:    secret,
		tolerance: tolerance,
		store:     store,
		logger:    logger.With("component", "webhook.processor"),
		metrics:   recorder,
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// Process verifies payload against signatureHeader and applies it.
// Verification errors satisfy IsVerificationError; store failures wrap ErrProfileUpdate.
func (p *Processor) Process(ctx context.Context, payload []byte, signatureHeader string) (*Result, error) {
	raw, err := verifyEvent(payload, signatureHeader, p.secret, p.tolerance)
	if err != nil {
		reason := "signature"
		if errors.Is(err, ErrMalformedEvent) {
			reason = "payload"
		}
		p.metrics.IncWebhookRejected(reason)
		return nil, err
	}

	evt, err := decodeEvent(raw)
	if err != nil {
		p.metrics.IncWebhookRejected("payload")
		return nil, err
	}
	p.metrics.IncWebhookReceived(evt.Type)

	result := &Result{EventID: evt.ID, EventType: evt.Type}
	log := p.logger.With("event_id", evt.ID, "event_type", evt.Type)

	if evt.Type != model.EventTypeCheckoutCompleted {
		result.Outcome = OutcomeIgnored
		log.Debug("event type not handled")
		return result, nil
	}

	userID := evt.UserID()
	if userID == "" {
		result.Outcome = OutcomeMissingUser
		log.Warn("checkout completed without userId metadata")
		return result, nil
	}
	if !isCanonicalUUID(userID) {
		result.Outcome = OutcomeUnknownUser
		log.Warn("checkout completed with malformed userId", "user_id", userID)
		return result, nil
	}
	log = log.With("user_id", userID)

	if p.alreadyDelivered(ctx, log, evt.ID) {
		result.Outcome = OutcomeDuplicate
		p.metrics.IncWebhookDuplicate()
		log.Info("event already applied")
		return result, nil
	}

	plan := model.ParsePlanType(evt.PlanType())
	err = p.store.MarkPaid(ctx, repository.MarkPaidInput{
		UserID:        userID,
		PlanType:      plan,
		StripeEventID: evt.ID,
		EventType:     evt.Type,
	})
	if errors.Is(err, repository.ErrProfileNotFound) {
		result.Outcome = OutcomeUnknownUser
		log.Warn("checkout completed for unknown profile")
		return result, nil
	}
	if err != nil {
		log.Error("failed to mark profile paid", "error", err)
		return nil, fmt.Errorf("%w: %v", ErrProfileUpdate, err)
	}

	p.metrics.IncProfileMarkedPaid()
	p.markDelivered(ctx, log, evt.ID)

	result.Outcome = OutcomeApplied
	log.Info("profile marked paid", "plan_type", plan)
	return result, nil
}

// alreadyDelivered fails open: a tracker error means "not seen".
func (p *Processor) alreadyDelivered(ctx context.Context, log *slog.Logger, eventID string) bool {
	if p.tracker == nil {
		return false
	}
	seen, err := p.tracker.IsEventDelivered(ctx, eventID)
	if err != nil {
		log.Warn("delivered marker lookup failed", "error", err)
		return false
	}
	return seen
}

func (p *Processor) markDelivered(ctx context.Context, log *slog.Logger, eventID string) {
	if p.tracker == nil {
		return
	}
	if err := p.tracker.MarkEventDelivered(ctx, eventID); err != nil {
		log.Warn("failed to record delivered marker", "error", err)
	}
}

// isCanonicalUUID accepts only the 36-character hyphenated form Postgres
// parses. uuid.Parse also takes urn:uuid: and braced forms, which the
// store would reject on every retry.
func isCanonicalUUID(s string) bool {
	id, err := uuid.Parse(s)
	return err == nil && id.String() == strings.ToLower(s)
}
