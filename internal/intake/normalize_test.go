package intake

import (
	"reflect"
	"testing"
)

func TestNormalizePageBucketHistoricalVocabularies(t *testing.T) {
	cases := map[string]PageBucket{
		"1":        Pages1,
		"1-3":      Pages1to3,
		"4-5":      Pages4to6,
		"6-8":      Pages4to6,
		"7-10":     Pages7to10,
		"9+":       Pages9Plus,
		"10+":      Pages10Up,
		"":         Pages1to3,
		"no idea":  Pages1to3,
		" 4-6 ":    Pages4to6,
		"About 10": Pages7to10,
	}
	for raw, want := range cases {
		if got := NormalizePageBucket(raw); got != want {
			t.Errorf("NormalizePageBucket(%q) = %q, want %q", raw, got, want)
		}
	}
}

func TestMaxPagesCoversAllBuckets(t *testing.T) {
	buckets := []PageBucket{Pages1, Pages1to3, Pages4to6, Pages7to10, Pages9Plus, Pages10Up}
	prev := 0
	for _, b := range buckets {
		n := b.MaxPages()
		if n <= prev {
			t.Fatalf("MaxPages not increasing at %q: got %d after %d", b, n, prev)
		}
		prev = n
	}
	if got := PageBucket("garbage").MaxPages(); got != 3 {
		t.Fatalf("unknown bucket MaxPages = %d, want 3", got)
	}
}

func TestCoerceBool(t *testing.T) {
	truthy := []any{true, "yes", "YES", "true", "1", "on", float64(1), 1}
	for _, v := range truthy {
		if !CoerceBool(v) {
			t.Errorf("CoerceBool(%v) = false, want true", v)
		}
	}
	falsy := []any{false, "no", "", "0", "maybe", float64(0), 2, nil, []string{"yes"}}
	for _, v := range falsy {
		if CoerceBool(v) {
			t.Errorf("CoerceBool(%v) = true, want false", v)
		}
	}
}

func TestCoerceListShapes(t *testing.T) {
	got := CoerceList("zapier, email , zapier,")
	want := []string{"zapier", "email"}
	if !reflect.DeepEqual(got, want) {
		t.Fatalf("comma string: got %v, want %v", got, want)
	}

	got = CoerceList([]any{"crm", "crm", "calendar"})
	want = []string{"crm", "calendar"}
	if !reflect.DeepEqual(got, want) {
		t.Fatalf("array: got %v, want %v", got, want)
	}

	if CoerceList(nil) != nil {
		t.Fatal("nil input should stay nil")
	}
}

func TestNormalizeIsTotal(t *testing.T) {
	out := Normalize(nil, nil)
	if out.WebsiteType != WebsiteBusiness {
		t.Errorf("empty website type = %q, want business", out.WebsiteType)
	}
	if out.PageCountBucket != Pages1to3 {
		t.Errorf("empty page bucket = %q, want 1-3", out.PageCountBucket)
	}
	if out.ContentReadiness != ContentSome {
		t.Errorf("empty readiness = %q, want some", out.ContentReadiness)
	}
	if out.TimelineUrgency != UrgencyStandard {
		t.Errorf("empty urgency = %q, want standard", out.TimelineUrgency)
	}
}

func TestNormalizeAliasKeys(t *testing.T) {
	raw := map[string]any{
		"siteType":       "Online Store",
		"pageRange":      "6-8",
		"needsBooking":   "yes",
		"onlinePayments": true,
		"membersArea":    1,
		"automations":    "zapier,email",
		"tools":          []any{"stripe", "calendly", "mailchimp"},
		"contentStatus":  "starting from scratch",
		"hasDomain":      "no",
		"timeframe":      "ASAP please",
		"plan":           "Growth",
		"details":        "two locations",
	}
	out := Normalize(raw, nil)

	if out.WebsiteType != WebsiteEcommerce {
		t.Errorf("website type = %q, want ecommerce", out.WebsiteType)
	}
	if out.PageCountBucket != Pages4to6 {
		t.Errorf("page bucket = %q, want 4-6", out.PageCountBucket)
	}
	if !out.Booking || !out.Payments || !out.Membership {
		t.Error("expected booking, payments and membership set")
	}
	if !out.AutomationRequested || len(out.AutomationTypes) != 2 {
		t.Errorf("automation: requested=%v types=%v", out.AutomationRequested, out.AutomationTypes)
	}
	if len(out.Integrations) != 3 {
		t.Errorf("integrations = %v, want 3 entries", out.Integrations)
	}
	if out.ContentReadiness != ContentNotReady {
		t.Errorf("readiness = %q, want not-ready", out.ContentReadiness)
	}
	if out.DomainHostingHandled {
		t.Error("domain hosting should be unhandled")
	}
	if out.TimelineUrgency != UrgencyRush {
		t.Errorf("urgency = %q, want rush", out.TimelineUrgency)
	}
	if out.TierHint != "Growth" {
		t.Errorf("tier hint = %q, want Growth", out.TierHint)
	}
	if out.Notes != "two locations" {
		t.Errorf("notes = %q", out.Notes)
	}
}

func TestNormalizeQueryFallback(t *testing.T) {
	out := Normalize(map[string]any{}, map[string]any{"tier": "premium", "type": "portfolio"})
	if out.TierHint != "premium" {
		t.Errorf("tier hint = %q, want premium", out.TierHint)
	}
	if out.WebsiteType != WebsitePortfolio {
		t.Errorf("website type = %q, want portfolio", out.WebsiteType)
	}

	// Body wins over query when both present.
	out = Normalize(map[string]any{"tier": "essential"}, map[string]any{"tier": "premium"})
	if out.TierHint != "essential" {
		t.Errorf("tier hint = %q, want essential", out.TierHint)
	}
}

func TestNormalizeAutomationFlagAloneCounts(t *testing.T) {
	out := Normalize(map[string]any{"automation": "yes"}, nil)
	if !out.AutomationRequested {
		t.Fatal("automation flag without types should still mark requested")
	}
	if len(out.AutomationTypes) != 0 {
		t.Fatalf("automation types = %v, want empty", out.AutomationTypes)
	}
}
