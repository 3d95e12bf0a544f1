package report

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/joelkehle/salesops-pie/internal/pie"
)

// ExtractJSON pulls the JSON object out of a model response that may be
// wrapped in code fences or surrounded by prose. Fallback path: the span from
// the first '{' to the last '}'.
func ExtractJSON(raw string) string {
	s := strings.TrimSpace(raw)
	if strings.HasPrefix(s, "```") {
		parts := strings.SplitN(s, "\n", 2)
		if len(parts) == 2 {
			s = parts[1]
		}
		s = strings.TrimPrefix(s, "json")
		s = strings.TrimSpace(strings.TrimSuffix(s, "```"))
	}
	if strings.HasPrefix(s, "{") {
		return s
	}
	start := strings.Index(s, "{")
	end := strings.LastIndex(s, "}")
	if start < 0 || end <= start {
		return s
	}
	return s[start : end+1]
}

// ParsePayload validates the model output against the report schema. Any
// violation fails the whole generation; a malformed response and a transport
// failure look the same to callers.
func ParsePayload(raw string) (pie.ReportPayload, error) {
	var p pie.ReportPayload
	if err := json.Unmarshal([]byte(ExtractJSON(raw)), &p); err != nil {
		return p, fmt.Errorf("response is not valid JSON: %w", err)
	}
	if p.Score < 0 || p.Score > 100 {
		return p, fmt.Errorf("score %d out of range [0,100]", p.Score)
	}
	switch strings.ToLower(p.Tier) {
	case "essential", "growth", "premium":
		p.Tier = strings.ToLower(p.Tier)
	default:
		return p, fmt.Errorf("unknown tier %q", p.Tier)
	}
	if p.Confidence < 0 || p.Confidence > 1 {
		return p, fmt.Errorf("confidence %v out of range [0,1]", p.Confidence)
	}
	if strings.TrimSpace(p.Summary) == "" {
		return p, fmt.Errorf("summary is empty")
	}
	return p, nil
}
