// Package intake collapses the divergent historical intake form shapes into
// one canonical record. Normalization is total: unrecognized or missing input
// degrades to the cheapest/lowest-risk bucket, never to an error.
package intake

import (
	"fmt"
	"strings"
)

type WebsiteType string

const (
	WebsiteBusiness  WebsiteType = "business"
	WebsiteEcommerce WebsiteType = "ecommerce"
	WebsitePortfolio WebsiteType = "portfolio"
	WebsiteLanding   WebsiteType = "landing"
)

type PageBucket string

const (
	Pages1     PageBucket = "1"
	Pages1to3  PageBucket = "1-3"
	Pages4to6  PageBucket = "4-6"
	Pages7to10 PageBucket = "7-10"
	Pages9Plus PageBucket = "9+"
	Pages10Up  PageBucket = "10+"
)

type ContentReadiness string

const (
	ContentReady    ContentReadiness = "ready"
	ContentSome     ContentReadiness = "some"
	ContentNotReady ContentReadiness = "not-ready"
)

type Urgency string

const (
	UrgencyStandard Urgency = "standard"
	UrgencyRush     Urgency = "rush"
)

type CanonicalIntake struct {
	WebsiteType          WebsiteType      `json:"website_type"`
	PageCountBucket      PageBucket       `json:"page_count_bucket"`
	Booking              bool             `json:"booking"`
	Payments             bool             `json:"payments"`
	Blog                 bool             `json:"blog"`
	Membership           bool             `json:"membership"`
	AutomationRequested  bool             `json:"automation_requested"`
	AutomationTypes      []string         `json:"automation_types,omitempty"`
	Integrations         []string         `json:"integrations,omitempty"`
	ContentReadiness     ContentReadiness `json:"content_readiness"`
	DomainHostingHandled bool             `json:"domain_hosting_handled"`
	TimelineUrgency      Urgency          `json:"timeline_urgency"`
	TimelineText         string           `json:"timeline_text,omitempty"`
	TierHint             string           `json:"tier_hint,omitempty"`
	Notes                string           `json:"notes,omitempty"`
}

// MaxPages returns the upper page count a bucket implies, used by the scorer.
// Open-ended buckets get a fixed planning ceiling.
func (b PageBucket) MaxPages() int {
	switch b {
	case Pages1:
		return 1
	case Pages1to3:
		return 3
	case Pages4to6:
		return 6
	case Pages7to10:
		return 10
	case Pages9Plus:
		return 12
	case Pages10Up:
		return 14
	default:
		return 3
	}
}

// pageBucketRules maps historical page-count vocabularies ("4-5", "6-8",
// "9+", "10+", ...) onto the canonical buckets by substring match, checked in
// order. New form generations add rows; they never change existing ones.
var pageBucketRules = []struct {
	substr string
	bucket PageBucket
}{
	{"10+", Pages10Up},
	{"9", Pages9Plus},
	{"1-3", Pages1to3},
	{"4", Pages4to6},
	{"5", Pages4to6},
	{"6", Pages4to6},
	{"7", Pages7to10},
	{"8", Pages7to10},
	{"10", Pages7to10},
	{"1", Pages1},
}

// NormalizePageBucket collapses a raw page-count answer to a canonical
// bucket, falling back to 1-3 when unrecognized.
func NormalizePageBucket(raw string) PageBucket {
	v := strings.ToLower(strings.TrimSpace(raw))
	if v == "" {
		return Pages1to3
	}
	for _, rule := range pageBucketRules {
		if strings.Contains(v, rule.substr) {
			return rule.bucket
		}
	}
	return Pages1to3
}

// CoerceBool treats yes/true/1/on (case-insensitive) as true and everything
// else, including absence, as false.
func CoerceBool(v any) bool {
	switch t := v.(type) {
	case bool:
		return t
	case string:
		switch strings.ToLower(strings.TrimSpace(t)) {
		case "yes", "true", "1", "on":
			return true
		}
		return false
	case float64:
		return t == 1
	case int:
		return t == 1
	default:
		return false
	}
}

// CoerceList accepts an array, a comma-delimited string, or a bare string and
// returns a deduplicated list, preserving first-seen order.
func CoerceList(v any) []string {
	var items []string
	switch t := v.(type) {
	case nil:
		return nil
	case []string:
		items = t
	case []any:
		for _, e := range t {
			items = append(items, fmt.Sprintf("%v", e))
		}
	case string:
		items = strings.Split(t, ",")
	default:
		items = []string{fmt.Sprintf("%v", t)}
	}
	seen := map[string]bool{}
	var out []string
	for _, item := range items {
		item = strings.TrimSpace(item)
		if item == "" || seen[item] {
			continue
		}
		seen[item] = true
		out = append(out, item)
	}
	return out
}

// Normalize maps a raw intake payload (any historical form shape) plus
// optional query-string context into a CanonicalIntake. It never fails.
func Normalize(raw map[string]any, querySource map[string]any) CanonicalIntake {
	if raw == nil {
		raw = map[string]any{}
	}

	out := CanonicalIntake{
		WebsiteType:     normalizeWebsiteType(stringField(raw, "websiteType", "website_type", "siteType", "type")),
		PageCountBucket: NormalizePageBucket(stringField(raw, "pageCount", "page_count", "pages", "pagesBucket", "pageRange")),
		Booking:         CoerceBool(firstField(raw, "booking", "bookingNeeded", "needsBooking")),
		Payments:        CoerceBool(firstField(raw, "payments", "paymentsNeeded", "onlinePayments")),
		Blog:            CoerceBool(firstField(raw, "blog", "blogNeeded")),
		Membership:      CoerceBool(firstField(raw, "membership", "membersArea", "memberArea")),
	}

	out.AutomationTypes = CoerceList(firstField(raw, "automationTypes", "automation_types", "automations"))
	out.AutomationRequested = CoerceBool(firstField(raw, "automation", "automationRequested", "wantsAutomation")) || len(out.AutomationTypes) > 0
	out.Integrations = CoerceList(firstField(raw, "integrations", "integrationsNeeded", "tools"))

	out.ContentReadiness = normalizeReadiness(stringField(raw, "contentReadiness", "content_readiness", "contentStatus", "content"))
	out.DomainHostingHandled = CoerceBool(firstField(raw, "domainHosting", "domain_hosting", "hasDomain", "domainHostingHandled"))

	out.TimelineText = stringField(raw, "timeline", "timeframe", "deadline", "timelineText")
	out.TimelineUrgency = normalizeUrgency(out.TimelineText)

	out.TierHint = stringField(raw, "tier", "package", "plan", "tierHint")
	if out.TierHint == "" && querySource != nil {
		out.TierHint = stringField(querySource, "tier", "package", "plan")
	}
	if string(out.WebsiteType) == "" && querySource != nil {
		out.WebsiteType = normalizeWebsiteType(stringField(querySource, "type", "websiteType"))
	}

	out.Notes = stringField(raw, "notes", "details", "message", "description")
	return out
}

func normalizeWebsiteType(raw string) WebsiteType {
	v := strings.ToLower(strings.TrimSpace(raw))
	switch {
	case strings.Contains(v, "ecom"), strings.Contains(v, "shop"), strings.Contains(v, "store"):
		return WebsiteEcommerce
	case strings.Contains(v, "portfolio"):
		return WebsitePortfolio
	case strings.Contains(v, "landing"), strings.Contains(v, "one page"), strings.Contains(v, "one-page"):
		return WebsiteLanding
	default:
		return WebsiteBusiness
	}
}

func normalizeReadiness(raw string) ContentReadiness {
	v := strings.ToLower(strings.TrimSpace(raw))
	switch {
	case strings.Contains(v, "not"), strings.Contains(v, "none"), strings.Contains(v, "scratch"):
		return ContentNotReady
	case strings.Contains(v, "ready"), strings.Contains(v, "yes"), strings.Contains(v, "have"):
		return ContentReady
	case v == "":
		return ContentSome
	default:
		return ContentSome
	}
}

func normalizeUrgency(timeline string) Urgency {
	v := strings.ToLower(strings.TrimSpace(timeline))
	switch {
	case strings.Contains(v, "rush"), strings.Contains(v, "asap"), strings.Contains(v, "urgent"), strings.Contains(v, "1 week"):
		return UrgencyRush
	default:
		return UrgencyStandard
	}
}

func stringField(m map[string]any, keys ...string) string {
	for _, key := range keys {
		if v, ok := m[key]; ok {
			if s, ok := v.(string); ok && strings.TrimSpace(s) != "" {
				return strings.TrimSpace(s)
			}
		}
	}
	return ""
}

func firstField(m map[string]any, keys ...string) any {
	for _, key := range keys {
		if v, ok := m[key]; ok {
			return v
		}
	}
	return nil
}
