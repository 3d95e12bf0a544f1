package report

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/joelkehle/salesops-pie/internal/intake"
	"github.com/joelkehle/salesops-pie/internal/scoring"
)

const responseSchemaHint = `Respond with only a JSON object of this shape:
{
  "score": <int 0-100>,
  "tier": "essential" | "growth" | "premium",
  "confidence": <float 0-1>,
  "summary": "<one-paragraph assessment>",
  "sub_scores": {"scope": <int>, "budget": <int>, "timeline": <int>, "readiness": <int>},
  "risk_flags": ["<flag>", ...],
  "recommendations": ["<recommendation>", ...],
  "suggested_weeks": <int>,
  "narrative": "<client-facing markdown narrative>"
}`

// buildPrompt assembles the estimator prompt from the canonical intake, the
// deterministic local score, and an optional follow-up note appended to the
// prospect's own notes.
func buildPrompt(in intake.CanonicalIntake, local scoring.ComplexityScore, baseEstimate int, followUpNote string) string {
	if strings.TrimSpace(followUpNote) != "" {
		if in.Notes != "" {
			in.Notes = in.Notes + "\n\nFollow-up: " + followUpNote
		} else {
			in.Notes = "Follow-up: " + followUpNote
		}
	}

	intakeJSON, _ := json.MarshalIndent(in, "", "  ")
	localJSON, _ := json.Marshal(local)

	var sb strings.Builder
	sb.WriteString("Evaluate this project intake for our agency's sales pipeline.\n\n")
	sb.WriteString("Canonical intake:\n")
	sb.Write(intakeJSON)
	sb.WriteString(fmt.Sprintf("\n\nBase estimate: $%d\n", baseEstimate))
	sb.WriteString("Deterministic pre-score (use as anchor, adjust only with reason):\n")
	sb.Write(localJSON)
	sb.WriteString("\n\n")
	sb.WriteString(responseSchemaHint)
	return sb.String()
}
