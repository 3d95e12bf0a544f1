package pricing

import (
	"math"
	"strconv"
	"strings"
)

// ParseAmount converts a loosely-typed form value into a monetary integer.
// Empty string, nil, and unparseable input all mean "not provided" (nil),
// never zero.
func ParseAmount(v any) *int {
	f := parseNumber(v)
	if f == nil {
		return nil
	}
	n := int(math.Round(*f))
	return &n
}

// ParsePct is ParseAmount for percentage fields, keeping fractions.
func ParsePct(v any) *float64 {
	return parseNumber(v)
}

func parseNumber(v any) *float64 {
	switch t := v.(type) {
	case nil:
		return nil
	case float64:
		return &t
	case float32:
		f := float64(t)
		return &f
	case int:
		f := float64(t)
		return &f
	case int64:
		f := float64(t)
		return &f
	case string:
		s := strings.TrimSpace(strings.TrimPrefix(t, "$"))
		s = strings.ReplaceAll(s, ",", "")
		if s == "" {
			return nil
		}
		f, err := strconv.ParseFloat(s, 64)
		if err != nil {
			return nil
		}
		return &f
	default:
		return nil
	}
}
