// Package billing starts hosted checkout sessions with the payment processor.
package billing

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/kidsstudy/kidsstudy/internal/metrics"
	"github.com/kidsstudy/kidsstudy/internal/model"
)

var (
	// ErrNoUser is returned when checkout is attempted without a signed-in user.
	ErrNoUser = errors.New("no authenticated user")
	// ErrSessionCreate wraps every provider failure.
	ErrSessionCreate = errors.New("error creating checkout session")
)

const (
	// DefaultCurrency is the checkout currency when none is configured.
	DefaultCurrency = "ils"
	// DefaultTimeout bounds a single provider call.
	DefaultTimeout = 10 * time.Second

	successPath = "/dashboard?payment=success"
	cancelPath  = "/dashboard?payment=cancelled"
)

// SessionRequest is a provider-neutral one-time payment session.
type SessionRequest struct {
	Plan          model.Plan
	Currency      string
	CustomerEmail string
	SuccessURL    string
	CancelURL     string
	Metadata      map[string]string
}

// Session is a created hosted checkout session.
type Session struct {
	ID  string
	URL string
}

// Provider creates checkout sessions.
type Provider interface {
	CreateSession(ctx context.Context, req SessionRequest) (*Session, error)
}

// Config holds checkout settings.
type Config struct {
	BaseURL  string
	Currency string
	Timeout  time.Duration
}

// Service starts checkouts. It never touches the profile store.
type Service struct {
	provider Provider
	cfg      Config
	logger   *slog.Logger
	metrics  metrics.Recorder
}

// NewService creates a checkout service.
func NewService(provider Provider, cfg Config, logger *slog.Logger, recorder metrics.Recorder) *Service {
	if recorder == nil {
		recorder = metrics.NewNoop()
	}
	if cfg.Currency == "" {
		cfg.Currency = DefaultCurrency
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = DefaultTimeout
	}
	cfg.BaseURL = strings.TrimRight(cfg.BaseURL, "/")
	return &Service{
		provider: provider,
		cfg:      cfg,
		logger:   logger.With("component", "billing"),
		metrics:  recorder,
	}
}

// StartCheckout creates a session for user on the plan selected by planRaw.
// Empty or unknown selectors fall back to the default plan.
func (s *Service) StartCheckout(ctx context.Context, user *model.User, planRaw string) (*Session, error) {
	if user == nil || user.ID == "" {
		return nil, ErrNoUser
	}

	plan := model.LookupPlan(planRaw)
	req := SessionRequest{
		Plan:          plan,
		Currency:      s.cfg.Currency,
		CustomerEmail: user.Email,
		SuccessURL:    s.cfg.BaseURL + successPath,
		CancelURL:     s.cfg.BaseURL + cancelPath,
		Metadata: map[string]string{
			"userId":   user.ID,
			"planType": string(plan.Type),
		},
	}

	ctx, cancel := context.WithTimeout(ctx, s.cfg.Timeout)
	defer cancel()

	session, err := s.provider.CreateSession(ctx, req)
	if err != nil {
		s.metrics.IncCheckoutFailed()
		s.logger.ErrorContext(ctx, "checkout session failed", "user_id", user.ID, "plan_type", plan.Type, "error", err)
		return nil, fmt.Errorf("%w: %v", ErrSessionCreate, err)
	}
	if session == nil || session.URL == "" {
		s.metrics.IncCheckoutFailed()
		return nil, fmt.Errorf("%w: provider returned no redirect url", ErrSessionCreate)
	}

	s.metrics.IncCheckoutCreated(string(plan.Type))
	s.logger.InfoContext(ctx, "checkout session created", "user_id", user.ID, "plan_type", plan.Type, "session_id", session.ID)
	return session, nil
}
