// Package render produces the client-facing quote document from a persisted
// report: markdown first, then HTML via goldmark, then PDF via headless
// Chromium. Rendering is read-only over stored data.
package render

import (
	"fmt"
	"html"
	"strings"
	"time"

	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/extension"

	"github.com/joelkehle/salesops-pie/internal/pie"
	"github.com/joelkehle/salesops-pie/internal/pricing"
)

// BuildQuoteMarkdown assembles the quote document from the report and the
// resolved guardrail. The snapshot section is included when one exists.
func BuildQuoteMarkdown(rep *pie.Report, guardrail pricing.Result, snap *pie.ScopeSnapshot) string {
	var b strings.Builder
	fmt.Fprintf(&b, "# Project Evaluation\n\n")
	fmt.Fprintf(&b, "- Reference: %s\n", rep.ID)
	fmt.Fprintf(&b, "- Date: %s\n", rep.CreatedAt.Format("January 2, 2006"))
	fmt.Fprintf(&b, "- Recommended package: **%s**\n", titleCase(rep.Tier))
	fmt.Fprintf(&b, "- Complexity score: %d/100\n\n", rep.Score)

	fmt.Fprintf(&b, "## Summary\n\n%s\n\n", rep.Summary)

	if rep.Payload.Narrative != "" {
		fmt.Fprintf(&b, "## Assessment\n\n%s\n\n", rep.Payload.Narrative)
	}

	fmt.Fprintf(&b, "## Investment\n\n")
	fmt.Fprintf(&b, "| | Amount |\n|---|---|\n")
	writePriceRow(&b, "Target", guardrail.AdjustedTarget)
	writePriceRow(&b, "Floor", guardrail.Floor)
	writePriceRow(&b, "Ceiling", guardrail.Ceiling)
	b.WriteString("\n")

	if len(rep.Payload.RiskFlags) > 0 {
		fmt.Fprintf(&b, "## Watch items\n\n")
		for _, flag := range rep.Payload.RiskFlags {
			fmt.Fprintf(&b, "- %s\n", flag)
		}
		b.WriteString("\n")
	}

	if len(rep.Payload.Recommendations) > 0 {
		fmt.Fprintf(&b, "## Recommendations\n\n")
		for _, rec := range rep.Payload.Recommendations {
			fmt.Fprintf(&b, "- %s\n", rec)
		}
		b.WriteString("\n")
	}

	if snap != nil {
		fmt.Fprintf(&b, "## Agreed scope (v%d, %s)\n\n", snap.VersionNo, snap.Status)
		if snap.Summary != "" {
			fmt.Fprintf(&b, "%s\n\n", snap.Summary)
		}
		if snap.Timeline != "" {
			fmt.Fprintf(&b, "Timeline: %s\n\n", snap.Timeline)
		}
	}

	fmt.Fprintf(&b, "---\n\nPrepared %s. Estimates are valid for 30 days.\n", time.Now().Format("January 2, 2006"))
	return b.String()
}

func titleCase(s string) string {
	if s == "" {
		return s
	}
	return strings.ToUpper(s[:1]) + s[1:]
}

func writePriceRow(b *strings.Builder, label string, v *int) {
	if v == nil {
		return
	}
	fmt.Fprintf(b, "| %s | $%d |\n", label, *v)
}

// RenderHTML converts the quote markdown into a standalone HTML document.
func RenderHTML(markdown, title string) (string, error) {
	var content strings.Builder
	md := goldmark.New(goldmark.WithExtensions(extension.GFM))
	if err := md.Convert([]byte(markdown), &content); err != nil {
		return "", fmt.Errorf("markdown convert: %w", err)
	}
	return "<!doctype html><html><head><meta charset='utf-8'><title>" + html.EscapeString(title) + "</title>" +
		"<style>" + documentCSS + "</style></head><body>" +
		"<div class='doc-wrap'><div class='doc-body'>" + content.String() + "</div></div>" +
		"</body></html>", nil
}

const documentCSS = `
html,body,*{-webkit-print-color-adjust:exact !important;print-color-adjust:exact !important;}
body{font-family:Georgia,serif;color:#1c1917;background:#fff;margin:0;padding:1rem;}
.doc-wrap{max-width:820px;margin:0 auto;}
.doc-body h1{font-size:1.7rem;border-bottom:2px solid #0f766e;padding-bottom:0.4rem;}
.doc-body h2{font-size:1.15rem;color:#0f766e;margin-top:1.6rem;}
.doc-body table{width:100%;border-collapse:collapse;font-size:0.9rem;}
.doc-body th,.doc-body td{border:1px solid #d6d3d1;padding:0.4rem 0.55rem;text-align:left;}
.doc-body thead th{background:#f0fdfa;font-weight:700;}
@media print{ @page{size:auto;margin:14mm;} body{padding:0;} .doc-wrap{max-width:none;} }
`
