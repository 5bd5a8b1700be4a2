package model

// Plan is an entry of the static price table.
type Plan struct {
	Type        PlanType `json:"type"`
	DisplayName string   `json:"name"`
	Description string   `json:"description"`
	// AmountMinor is the price in the currency's minor unit (agorot for ILS).
	AmountMinor int64 `json:"amount"`
}

// Plans is the price table. There is no dynamic pricing.
var Plans = map[PlanType]Plan{
	PlanBasic: {
		Type:        PlanBasic,
		DisplayName: "Basic Plan (KidsStudy)",
		Description: "3 Days Free Trial included previously",
		AmountMinor: 2900,
	},
	PlanPro: {
		Type:        PlanPro,
		DisplayName: "Pro Plan (KidsStudy)",
		Description: "7 Days Free Trial included previously",
		AmountMinor: 4900,
	},
}

// LookupPlan returns the plan for a raw selector. Unknown selectors get the default plan.
func LookupPlan(raw string) Plan {
	return Plans[ParsePlanType(raw)]
}
