package model

// Plan is a base-plan token selecting a pricing phase of the subscription
// product. The verification endpoint returns these tokens verbatim.
type Plan string

const (
	PlanMonthly      Plan = "monthly"
	PlanThreeMonthly Plan = "three_monthly"
	PlanTokens10K    Plan = "10_k_tokens"
	PlanTrial        Plan = "trial"
)

// Premium reports whether the plan grants premium entitlements. Trial (and an
// unset plan) does not.
func (p Plan) Premium() bool { return p != "" && p != PlanTrial }

func (p Plan) Name() string {
	switch p {
	case PlanMonthly:
		return "Monthly plan"
	case PlanThreeMonthly:
		return "Three-month plan"
	case PlanTokens10K:
		return "Lifetime access"
	case PlanTrial:
		return "Trial user"
	default:
		return string(p)
	}
}

// Entitlement is the authoritative user entitlement the verification endpoint
// returns on a successful purchase verification.
type Entitlement struct {
	UID                  string `json:"uid"`
	Plan                 Plan   `json:"plan"`
	DailyChatTokenLimit  int    `json:"dailyChatTokenLimit"`
	CurrentChatTokens    int    `json:"currentChatTokens"`
	ImageGenerationToken int    `json:"imageGenerationToken"`
	ID                   string `json:"id"`
}
