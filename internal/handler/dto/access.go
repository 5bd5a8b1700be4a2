// Package dto provides Data Transfer Objects for API requests and responses.
package dto

import (
	"time"

	"github.com/kidsstudy/kidsstudy/internal/gate"
	"github.com/kidsstudy/kidsstudy/internal/model"
)

// ErrorResponse is the standard error body.
type ErrorResponse struct {
	Error string `json:"error"`
	Code  string `json:"code,omitempty"`
}

// AccessResponse is the gate decision as seen by the caller.
type AccessResponse struct {
	Allowed     bool       `json:"allowed"`
	Reason      string     `json:"reason"`
	TrialEndsAt *time.Time `json:"trial_ends_at,omitempty"`
	Paywall     *Paywall   `json:"paywall,omitempty"`
}

// Paywall lists the purchasable plans shown to a denied user.
type Paywall struct {
	Message string      `json:"message"`
	Plans   []PlanOffer `json:"plans"`
}

// PlanOffer is a single plan on the paywall.
type PlanOffer struct {
	Type        string `json:"type"`
	Name        string `json:"name"`
	Description string `json:"description"`
	Amount      int64  `json:"amount"`
	Currency    string `json:"currency"`
	CheckoutURL string `json:"checkout_url"`
}

// paywallMessages maps a denial to the text above the plans.
var paywallMessages = map[gate.Reason]string{
	gate.ReasonExpired:   "Your free trial has ended. Choose a plan to keep playing.",
	gate.ReasonNoProfile: "We could not find your family profile. Choose a plan to start playing.",
	gate.ReasonNoUser:    "Sign in and choose a plan to start playing.",
}

const defaultPaywallMessage = "Choose a plan to keep playing."

// NewPaywall builds the paywall shown for a denial reason.
func NewPaywall(reason gate.Reason, currency string) *Paywall {
	msg, ok := paywallMessages[reason]
	if !ok {
		msg = defaultPaywallMessage
	}
	p := &Paywall{Message: msg}
	for _, t := range model.ValidPlanTypes {
		plan := model.Plans[t]
		p.Plans = append(p.Plans, PlanOffer{
			Type:        string(plan.Type),
			Name:        plan.DisplayName,
			Description: plan.Description,
			Amount:      plan.AmountMinor,
			Currency:    currency,
			CheckoutURL: "/checkout?plan=" + string(plan.Type),
		})
	}
	return p
}

// ToAccessResponse converts a decision. Denied decisions carry the paywall.
func ToAccessResponse(d gate.Decision, currency string) AccessResponse {
	resp := AccessResponse{
		Allowed:     d.Allowed,
		Reason:      string(d.Reason),
		TrialEndsAt: d.TrialEndsAt,
	}
	if !d.Allowed {
		resp.Paywall = NewPaywall(d.Reason, currency)
	}
	return resp
}

// GamesResponse is the gated catalog.
type GamesResponse struct {
	Data        []model.Game `json:"data"`
	Reason      string       `json:"reason"`
	TrialEndsAt *time.Time   `json:"trial_ends_at,omitempty"`
}

// OpsAccessResponse is the support view of a user's access.
type OpsAccessResponse struct {
	UserID string `json:"user_id"`
	AccessResponse
	Payments []*model.PaymentEvent `json:"payments"`
}
