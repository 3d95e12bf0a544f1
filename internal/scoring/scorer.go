package scoring

import (
	"strings"

	"github.com/joelkehle/salesops-pie/internal/intake"
)

// Score computes the complexity score for a canonical intake against a base
// monetary estimate using the default weights.
func Score(in intake.CanonicalIntake, baseEstimate int) ComplexityScore {
	return ScoreWith(in, baseEstimate, DefaultWeights())
}

func ScoreWith(in intake.CanonicalIntake, baseEstimate int, w Weights) ComplexityScore {
	s := ComplexityScore{
		Scope:     scopeScore(in, w),
		Budget:    budgetScore(baseEstimate, w),
		Timeline:  timelineScore(in),
		Readiness: readinessScore(in.ContentReadiness),
	}
	s.Total = clamp(s.Scope+s.Budget+s.Timeline+s.Readiness, 0, 100)
	s.Tier = DeriveTier(in.TierHint, baseEstimate, w)
	s.RiskFlags = riskFlags(in)
	return s
}

func scopeScore(in intake.CanonicalIntake, w Weights) int {
	features := 0
	for _, on := range []bool{in.Booking, in.Payments, in.Blog, in.Membership} {
		if on {
			features++
		}
	}
	features += len(in.AutomationTypes)
	features += len(in.Integrations)
	return clamp(w.PageWeight*in.PageCountBucket.MaxPages()+w.FeatureWeight*features, w.ScopeMin, w.ScopeMax)
}

func budgetScore(baseEstimate int, w Weights) int {
	switch {
	case baseEstimate >= w.PremiumEstimate:
		return w.BudgetPremium
	case baseEstimate >= w.GrowthEstimate:
		return w.BudgetGrowth
	case baseEstimate >= 550:
		return w.BudgetMid
	case baseEstimate >= 400:
		return w.BudgetLow
	default:
		return 8
	}
}

func timelineScore(in intake.CanonicalIntake) int {
	text := strings.ToLower(in.TimelineText)
	switch {
	case in.TimelineUrgency == intake.UrgencyRush, strings.Contains(text, "1 week"):
		return 22
	case strings.Contains(text, "1-2"):
		return 18
	case strings.Contains(text, "2-3"):
		return 14
	case strings.Contains(text, "month"):
		return 10
	default:
		return 12
	}
}

func readinessScore(r intake.ContentReadiness) int {
	switch r {
	case intake.ContentNotReady:
		return 20
	case intake.ContentSome:
		return 12
	case intake.ContentReady:
		return 8
	default:
		return 12
	}
}

// DeriveTier prefers an explicit tier hint; otherwise the estimate decides.
func DeriveTier(hint string, baseEstimate int, w Weights) Tier {
	h := strings.ToLower(hint)
	switch {
	case strings.Contains(h, "premium"):
		return TierPremium
	case strings.Contains(h, "growth"):
		return TierGrowth
	case strings.Contains(h, "essential"):
		return TierEssential
	}
	switch {
	case baseEstimate >= w.PremiumEstimate:
		return TierPremium
	case baseEstimate >= w.GrowthEstimate:
		return TierGrowth
	default:
		return TierEssential
	}
}

// riskFlags runs simple predicate checks in a fixed order so report diffs
// stay stable across regenerations.
func riskFlags(in intake.CanonicalIntake) []string {
	var flags []string
	if in.ContentReadiness == intake.ContentNotReady {
		flags = append(flags, "Content not ready")
	}
	if in.TimelineUrgency == intake.UrgencyRush {
		flags = append(flags, "Rush timeline requested")
	}
	if in.Membership {
		flags = append(flags, "Membership area adds auth complexity")
	}
	if len(in.Integrations) >= 3 {
		flags = append(flags, "Multiple third-party integrations")
	}
	if !in.DomainHostingHandled {
		flags = append(flags, "Domain/hosting not arranged")
	}
	return flags
}

func clamp(v, lo, hi int) int {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
