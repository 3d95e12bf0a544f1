// Package scoring turns a canonical intake plus a base monetary estimate into
// a bounded complexity score, a tier recommendation, and risk flags. Scoring
// is pure: identical input always produces identical output.
package scoring

type Tier string

const (
	TierEssential Tier = "essential"
	TierGrowth    Tier = "growth"
	TierPremium   Tier = "premium"
)

type ComplexityScore struct {
	Scope     int      `json:"scope"`
	Budget    int      `json:"budget"`
	Timeline  int      `json:"timeline"`
	Readiness int      `json:"readiness"`
	Total     int      `json:"total"`
	Tier      Tier     `json:"tier"`
	RiskFlags []string `json:"risk_flags,omitempty"`
}

// Weights carries the tunable scoring constants. DefaultWeights reproduces
// the production formula exactly; callers may override for experiments but
// persisted scores always use the defaults.
type Weights struct {
	PageWeight    int
	FeatureWeight int
	ScopeMin      int
	ScopeMax      int

	BudgetPremium int
	BudgetGrowth  int
	BudgetMid     int
	BudgetLow     int

	PremiumEstimate int
	GrowthEstimate  int
}

func DefaultWeights() Weights {
	return Weights{
		PageWeight:      2,
		FeatureWeight:   2,
		ScopeMin:        4,
		ScopeMax:        25,
		BudgetPremium:   22,
		BudgetGrowth:    18,
		BudgetMid:       14,
		BudgetLow:       10,
		PremiumEstimate: 1700,
		GrowthEstimate:  900,
	}
}
