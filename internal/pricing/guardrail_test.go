package pricing

import "testing"

func ip(v int) *int { return &v }

func fp(v float64) *float64 { return &v }

func TestComputeGuardrailNoAdjustments(t *testing.T) {
	out := ComputeGuardrail(Base{Target: ip(1000), Floor: ip(900), Ceiling: ip(1150)}, Adjustments{})
	if out.AdjustedTarget == nil || *out.AdjustedTarget != 1000 {
		t.Fatalf("adjusted = %v, want 1000", out.AdjustedTarget)
	}
	if *out.Floor != 900 || *out.Ceiling != 1150 {
		t.Fatalf("bounds changed: %v %v", *out.Floor, *out.Ceiling)
	}
}

func TestComputeGuardrailLayeredOrder(t *testing.T) {
	// 1000 - 10% = 900, - 50 = 850.
	out := ComputeGuardrail(Base{Target: ip(1000)}, Adjustments{
		DiscountPct:    fp(10),
		DiscountAmount: ip(50),
	})
	if *out.AdjustedTarget != 850 {
		t.Fatalf("adjusted = %d, want 850", *out.AdjustedTarget)
	}

	// Increase applies after both discounts: 1000 - 10% - 50 + 200 = 1050.
	out = ComputeGuardrail(Base{Target: ip(1000)}, Adjustments{
		DiscountPct:    fp(10),
		DiscountAmount: ip(50),
		IncreaseAmount: ip(200),
	})
	if *out.AdjustedTarget != 1050 {
		t.Fatalf("adjusted = %d, want 1050", *out.AdjustedTarget)
	}
}

func TestComputeGuardrailCustomTargetWins(t *testing.T) {
	out := ComputeGuardrail(Base{Target: ip(1000)}, Adjustments{
		CustomTarget:   ip(500),
		DiscountPct:    fp(50),
		IncreaseAmount: ip(9999),
	})
	if *out.AdjustedTarget != 500 {
		t.Fatalf("adjusted = %d, want 500", *out.AdjustedTarget)
	}
}

func TestComputeGuardrailNeverNegative(t *testing.T) {
	out := ComputeGuardrail(Base{Target: ip(100)}, Adjustments{DiscountAmount: ip(500)})
	if *out.AdjustedTarget != 0 {
		t.Fatalf("adjusted = %d, want 0", *out.AdjustedTarget)
	}
	out = ComputeGuardrail(Base{}, Adjustments{CustomTarget: ip(-25)})
	if *out.AdjustedTarget != 0 {
		t.Fatalf("negative custom target = %d, want 0", *out.AdjustedTarget)
	}
}

func TestComputeGuardrailNilBaseTarget(t *testing.T) {
	out := ComputeGuardrail(Base{}, Adjustments{DiscountPct: fp(10)})
	if out.AdjustedTarget != nil {
		t.Fatalf("adjusted = %v, want nil", out.AdjustedTarget)
	}
}

func TestComputeGuardrailRounding(t *testing.T) {
	// 999 - 33.3% = 666.333, rounds to 666.
	out := ComputeGuardrail(Base{Target: ip(999)}, Adjustments{DiscountPct: fp(33.3)})
	if *out.AdjustedTarget != 666 {
		t.Fatalf("adjusted = %d, want 666", *out.AdjustedTarget)
	}
}

func TestDeriveBounds(t *testing.T) {
	floor, ceiling := DeriveBounds(ip(1000), 0.90, 1.15)
	if *floor != 900 || *ceiling != 1150 {
		t.Fatalf("bounds = %d/%d, want 900/1150", *floor, *ceiling)
	}
	floor, ceiling = DeriveBounds(nil, 0.90, 1.15)
	if floor != nil || ceiling != nil {
		t.Fatal("nil target should yield nil bounds")
	}
}

func TestParseAmount(t *testing.T) {
	cases := []struct {
		in   any
		want *int
	}{
		{nil, nil},
		{"", nil},
		{"garbage", nil},
		{"1200", ip(1200)},
		{"$1,200", ip(1200)},
		{" 450 ", ip(450)},
		{float64(980), ip(980)},
		{int(75), ip(75)},
		{"12.6", ip(13)},
	}
	for _, c := range cases {
		got := ParseAmount(c.in)
		switch {
		case c.want == nil && got != nil:
			t.Errorf("ParseAmount(%v) = %d, want nil", c.in, *got)
		case c.want != nil && (got == nil || *got != *c.want):
			t.Errorf("ParseAmount(%v) = %v, want %d", c.in, got, *c.want)
		}
	}
}

func TestParsePct(t *testing.T) {
	if got := ParsePct("12.5"); got == nil || *got != 12.5 {
		t.Fatalf("ParsePct(12.5) = %v", got)
	}
	if got := ParsePct(""); got != nil {
		t.Fatalf("ParsePct empty = %v, want nil", got)
	}
	if got := ParsePct(float64(0)); got == nil || *got != 0 {
		t.Fatalf("ParsePct(0) = %v, want zero value", got)
	}
}
