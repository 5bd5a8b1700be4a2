// Package model defines domain entities for the application.
package model

import "time"

// PlanType is the label of a purchasable plan.
type PlanType string

const (
	PlanBasic PlanType = "basic"
	PlanPro   PlanType = "pro"
)

// DefaultPlanType is used wherever a plan selector is missing or unrecognized.
const DefaultPlanType = PlanPro

// ValidPlanTypes contains all purchasable plans, cheapest first.
var ValidPlanTypes = []PlanType{PlanBasic, PlanPro}

// ParsePlanType maps a raw selector to a plan, falling back to DefaultPlanType.
func ParsePlanType(raw string) PlanType {
	switch PlanType(raw) {
	case PlanBasic:
		return PlanBasic
	case PlanPro:
		return PlanPro
	default:
		return DefaultPlanType
	}
}

// AccessState is the derived access state of a profile.
// It is never persisted.
type AccessState string

const (
	AccessPaid     AccessState = "paid"
	AccessTrialing AccessState = "trialing"
	AccessExpired  AccessState = "expired"
)

// Profile is the per-user record holding payment and trial state.
type Profile struct {
	UserID      string     `json:"id"`
	Email       string     `json:"email,omitempty"`
	IsPaid      bool       `json:"is_paid"`
	TrialEndsAt time.Time  `json:"trial_ends_at"`
	PlanType    *PlanType  `json:"plan_type,omitempty"`
	UpdatedAt   *time.Time `json:"updated_at,omitempty"`
}

// SetNullableState fills IsPaid and TrialEndsAt from columns that may be
// NULL in the Supabase-owned table. NULL is_paid reads as unpaid; NULL
// trial_ends_at reads as a trial that has already elapsed (zero time).
func (p *Profile) SetNullableState(isPaid *bool, trialEndsAt *time.Time) {
	p.IsPaid = isPaid != nil && *isPaid
	p.TrialEndsAt = time.Time{}
	if trialEndsAt != nil {
		p.TrialEndsAt = *trialEndsAt
	}
}

// AccessState derives the profile's state at the given instant.
// Paid takes precedence over an elapsed trial.
func (p *Profile) AccessState(now time.Time) AccessState {
	if p.IsPaid {
		return AccessPaid
	}
	if now.Before(p.TrialEndsAt) {
		return AccessTrialing
	}
	return AccessExpired
}
