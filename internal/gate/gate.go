// Package gate decides whether a user may reach premium content.
//
// The decision is derived on every call from the stored profile and the
// current time. Nothing here writes, and no decision is ever cached.
package gate

import (
	"context"
	"errors"
	"log/slog"
	"strings"
	"time"

	"github.com/kidsstudy/kidsstudy/internal/metrics"
	"github.com/kidsstudy/kidsstudy/internal/model"
	"github.com/kidsstudy/kidsstudy/internal/repository"
)

// Reason explains a Decision.
type Reason string

const (
	ReasonNoUser        Reason = "no_user"
	ReasonAdminOverride Reason = "admin_override"
	ReasonNoProfile     Reason = "no_profile"
	ReasonError         Reason = "error"
	ReasonPaid          Reason = "paid"
	ReasonTrial         Reason = "trial"
	ReasonExpired       Reason = "expired"
)

// DefaultFetchTimeout bounds a single profile read.
const DefaultFetchTimeout = 3 * time.Second

// Subject is the user whose access is being checked.
type Subject struct {
	UserID string
	Email  string
}

// Decision is the gate's verdict. Err is set only for ReasonError.
type Decision struct {
	Allowed     bool
	Reason      Reason
	TrialEndsAt *time.Time
	Err         error
}

// ProfileReader loads a profile by user id.
type ProfileReader interface {
	GetProfile(ctx context.Context, userID string) (*model.Profile, error)
}

// Admins is the privileged identity set that bypasses the gate.
type Admins struct {
	ids    map[string]struct{}
	emails map[string]struct{}
}

// NewAdmins builds the privileged set. Emails match case-insensitively.
func NewAdmins(userIDs, emails []string) Admins {
	a := Admins{
		ids:    make(map[string]struct{}, len(userIDs)),
		emails: make(map[string]struct{}, len(emails)),
	}
	for _, id := range userIDs {
		if id = strings.TrimSpace(id); id != "" {
			a.ids[id] = struct{}{}
		}
	}
	for _, email := range emails {
		if email = normalizeEmail(email); email != "" {
			a.emails[email] = struct{}{}
		}
	}
	return a
}

// match returns the identifier kind that matched, or "".
func (a Admins) match(s Subject) string {
	if _, ok := a.ids[s.UserID]; ok {
		return "user_id"
	}
	if email := normalizeEmail(s.Email); email != "" {
		if _, ok := a.emails[email]; ok {
			return "email"
		}
	}
	return ""
}

func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

// Gate evaluates access decisions.
type Gate struct {
	profiles ProfileReader
	admins   Admins
	timeout  time.Duration
	logger   *slog.Logger
	metrics  metrics.Recorder
	now      func() time.Time
}

// Option configures a Gate.
type Option func(*Gate)

// WithClock overrides the clock used for trial comparisons.
func WithClock(now func() time.Time) Option {
	return func(g *Gate) {
		g.now = now
	}
}

// WithAdmins sets the privileged identity set.
func WithAdmins(admins Admins) Option {
	return func(g *Gate) {
		g.admins = admins
	}
}

// WithFetchTimeout bounds each profile read.
func WithFetchTimeout(d time.Duration) Option {
	return func(g *Gate) {
		if d > 0 {
			g.timeout = d
		}
	}
}

// New creates a Gate over the profile store.
func New(profiles ProfileReader, logger *slog.Logger, recorder metrics.Recorder, opts ...Option) *Gate {
	if recorder == nil {
		recorder = metrics.NewNoop()
	}
	g := &Gate{
		profiles: profiles,
		admins:   NewAdmins(nil, nil),
		timeout:  DefaultFetchTimeout,
		logger:   logger.With("component", "gate"),
		metrics:  recorder,
		now:      time.Now,
	}
	for _, opt := range opts {
		opt(g)
	}
	return g
}

// Check returns the access decision for s.
func (g *Gate) Check(ctx context.Context, s Subject) Decision {
	d := g.check(ctx, s)
	g.metrics.IncGateDecision(string(d.Reason))
	return d
}

func (g *Gate) check(ctx context.Context, s Subject) Decision {
	if s.UserID == "" {
		return Decision{Reason: ReasonNoUser}
	}

	if kind := g.admins.match(s); kind != "" {
		g.metrics.IncAdminOverride()
		g.logger.WarnContext(ctx, "admin override granted",
			"audit", true,
			"user_id", s.UserID,
			"matched", kind,
		)
		return Decision{Allowed: true, Reason: ReasonAdminOverride}
	}

	fetchCtx, cancel := context.WithTimeout(ctx, g.timeout)
	defer cancel()

	start := time.Now()
	profile, err := g.profiles.GetProfile(fetchCtx, s.UserID)
	g.metrics.ObserveProfileFetchDuration(time.Since(start))
	if errors.Is(err, repository.ErrProfileNotFound) || (err == nil && profile == nil) {
		return Decision{Reason: ReasonNoProfile}
	}
	if err != nil {
		g.logger.ErrorContext(ctx, "profile fetch failed", "user_id", s.UserID, "error", err)
		return Decision{Reason: ReasonError, Err: err}
	}

	// A zero TrialEndsAt is a NULL column; it expires but is not reported.
	var trialEndsAt *time.Time
	if !profile.TrialEndsAt.IsZero() {
		t := profile.TrialEndsAt
		trialEndsAt = &t
	}
	switch profile.AccessState(g.now()) {
	case model.AccessPaid:
		return Decision{Allowed: true, Reason: ReasonPaid}
	case model.AccessTrialing:
		return Decision{Allowed: true, Reason: ReasonTrial, TrialEndsAt: trialEndsAt}
	default:
		return Decision{Reason: ReasonExpired, TrialEndsAt: trialEndsAt}
	}
}

type decisionKey struct{}

// ContextWithDecision stores a decision for the rest of the request.
func ContextWithDecision(ctx context.Context, d Decision) context.Context {
	return context.WithValue(ctx, decisionKey{}, d)
}

// DecisionFromContext returns the decision stored by the gate middleware.
func DecisionFromContext(ctx context.Context) (Decision, bool) {
	d, ok := ctx.Value(decisionKey{}).(Decision)
	return d, ok
}
