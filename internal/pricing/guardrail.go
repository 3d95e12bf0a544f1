// Package pricing computes the target/floor/ceiling guardrail for a quote and
// applies layered admin adjustments. Everything here is pure and total: every
// input combination yields a defined numeric or nil result, never an error.
package pricing

import "math"

// Base is the unadjusted pricing triple for a quote. Nil means the value was
// never established (e.g. no report yet), which is distinct from zero.
type Base struct {
	Target  *int `json:"target"`
	Floor   *int `json:"floor"`
	Ceiling *int `json:"ceiling"`
}

// Adjustments mirrors the persisted admin adjustment set. Nil fields are
// no-ops, not zeros.
type Adjustments struct {
	DiscountPct    *float64 `json:"discount_pct,omitempty"`
	DiscountAmount *int     `json:"discount_amount,omitempty"`
	IncreaseAmount *int     `json:"increase_amount,omitempty"`
	CustomTarget   *int     `json:"custom_target,omitempty"`
	Note           string   `json:"note,omitempty"`
}

type Result struct {
	Target         *int `json:"target"`
	Floor          *int `json:"floor"`
	Ceiling        *int `json:"ceiling"`
	AdjustedTarget *int `json:"adjusted_target"`
}

// ComputeGuardrail applies the adjustment precedence to the base triple.
// A custom target wins outright (rounded, floored at zero) and the remaining
// adjustment fields are ignored for the value, though callers keep them for
// audit. Otherwise percentage discount, flat discount, and flat increase
// apply in that order to the same running value, and the final result is
// rounded and clamped non-negative.
func ComputeGuardrail(base Base, adj Adjustments) Result {
	out := Result{Target: base.Target, Floor: base.Floor, Ceiling: base.Ceiling}

	if adj.CustomTarget != nil {
		v := clampNonNegative(*adj.CustomTarget)
		out.AdjustedTarget = &v
		return out
	}
	if base.Target == nil {
		return out
	}

	running := float64(*base.Target)
	if adj.DiscountPct != nil {
		running -= running * (*adj.DiscountPct / 100.0)
	}
	if adj.DiscountAmount != nil {
		running -= float64(*adj.DiscountAmount)
	}
	if adj.IncreaseAmount != nil {
		running += float64(*adj.IncreaseAmount)
	}

	v := clampNonNegative(int(math.Round(running)))
	out.AdjustedTarget = &v
	return out
}

// DeriveBounds fills missing floor/ceiling from the target using the standard
// planning margins (floor 90%, ceiling 115% of target).
func DeriveBounds(target *int, floorPct, ceilingPct float64) (*int, *int) {
	if target == nil {
		return nil, nil
	}
	floor := int(math.Round(float64(*target) * floorPct))
	ceiling := int(math.Round(float64(*target) * ceilingPct))
	return &floor, &ceiling
}

func clampNonNegative(v int) int {
	if v < 0 {
		return 0
	}
	return v
}
