// pie-score runs the deterministic half of the evaluation pipeline over a raw
// intake payload: normalize, score, guardrail. No database, no model calls.
// Reads JSON from a file argument or stdin and prints the result as JSON.
package main

import (
	"encoding/json"
	"flag"
	"fmt"
	"io"
	"log"
	"os"

	"github.com/joelkehle/salesops-pie/internal/intake"
	"github.com/joelkehle/salesops-pie/internal/pricing"
	"github.com/joelkehle/salesops-pie/internal/scoring"
)

func main() {
	baseEstimate := flag.Int("base-estimate", 0, "base price target in dollars (0 = derive nothing)")
	discountPct := flag.Float64("discount-pct", 0, "percentage discount to apply (0-100)")
	discountAmt := flag.Int("discount-amount", 0, "flat discount in dollars")
	increaseAmt := flag.Int("increase-amount", 0, "flat increase in dollars")
	customTarget := flag.Int("custom-target", 0, "custom target overriding all other adjustments")
	flag.Parse()

	raw, err := readIntake(flag.Arg(0))
	if err != nil {
		log.Fatalf("read intake: %v", err)
	}

	var payload map[string]any
	if err := json.Unmarshal(raw, &payload); err != nil {
		log.Fatalf("parse intake json: %v", err)
	}

	canonical := intake.Normalize(payload, nil)
	score := scoring.Score(canonical, *baseEstimate)

	var base pricing.Base
	if *baseEstimate > 0 {
		base.Target = baseEstimate
		base.Floor, base.Ceiling = pricing.DeriveBounds(baseEstimate, 0.90, 1.15)
	}
	guardrail := pricing.ComputeGuardrail(base, pricing.Adjustments{
		DiscountPct:    optFloat(*discountPct),
		DiscountAmount: optInt(*discountAmt),
		IncreaseAmount: optInt(*increaseAmt),
		CustomTarget:   optInt(*customTarget),
	})

	out, err := json.MarshalIndent(map[string]any{
		"intake":    canonical,
		"score":     score,
		"guardrail": guardrail,
	}, "", "  ")
	if err != nil {
		log.Fatalf("encode result: %v", err)
	}
	fmt.Println(string(out))
}

func readIntake(path string) ([]byte, error) {
	if path == "" || path == "-" {
		return io.ReadAll(os.Stdin)
	}
	return os.ReadFile(path)
}

func optInt(v int) *int {
	if v == 0 {
		return nil
	}
	return &v
}

func optFloat(v float64) *float64 {
	if v == 0 {
		return nil
	}
	return &v
}
