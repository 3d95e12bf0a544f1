// Package scope owns the versioned scope-snapshot history and the change
// order lifecycle. No other component writes snapshot or change-order status.
package scope

import (
	"context"
	"fmt"
	"strings"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"

	"github.com/joelkehle/salesops-pie/internal/config"
	"github.com/joelkehle/salesops-pie/internal/pie"
	"github.com/joelkehle/salesops-pie/internal/pricing"
	"github.com/joelkehle/salesops-pie/internal/report"
)

type Manager struct {
	store   pie.Store
	pricing config.PricingConfig
	log     *zap.Logger
	tracer  trace.Tracer
}

func NewManager(store pie.Store, pricingCfg config.PricingConfig, log *zap.Logger) *Manager {
	if log == nil {
		log = zap.NewNop()
	}
	return &Manager{
		store:   store,
		pricing: pricingCfg,
		log:     log,
		tracer:  otel.Tracer("salesops-pie/scope"),
	}
}

// CreateSnapshotFromLatestReport resolves (or lazily creates) the project for
// a quote, reads the authoritative report, and freezes its pricing and
// timeline into a new snapshot version.
func (m *Manager) CreateSnapshotFromLatestReport(ctx context.Context, quoteID string) (*pie.ScopeSnapshot, error) {
	if strings.TrimSpace(quoteID) == "" {
		return nil, pie.NewValidationError("quote id is required")
	}
	ctx, span := m.tracer.Start(ctx, "scope.CreateSnapshotFromLatestReport",
		trace.WithAttributes(attribute.String("quote.id", quoteID)))
	defer span.End()

	project, err := m.store.EnsureProject(ctx, quoteID)
	if err != nil {
		return nil, err
	}

	rep, err := m.store.LatestReportByProject(ctx, project.ID)
	if err != nil {
		return nil, err
	}
	if rep == nil {
		// The project-scoped lookup misses when the project was created for
		// a different quote on the same engagement.
		rep, err = m.store.LatestReportByQuote(ctx, quoteID)
		if err != nil {
			return nil, err
		}
	}
	if rep == nil {
		return nil, pie.NewNotFoundError("report for quote", quoteID)
	}

	quote, err := m.store.GetQuote(ctx, quoteID)
	if err != nil {
		return nil, err
	}
	adjustments, err := m.store.GetAdjustments(ctx, quoteID)
	if err != nil {
		return nil, err
	}

	target, floor, ceiling := m.resolvePricing(quote, adjustments, rep)
	hoursFloor, hoursCeiling := deriveHours(rep.Payload.SuggestedWeeks)

	timeline := strings.TrimSpace(intakeTimeline(quote))
	if timeline == "" && rep.Payload.SuggestedWeeks > 0 {
		timeline = fmt.Sprintf("%d weeks", rep.Payload.SuggestedWeeks)
	}

	snap := pie.ScopeSnapshot{
		ProjectID:    project.ID,
		Status:       pie.SnapshotDraft,
		Source:       pie.SnapshotSourcePIE,
		Summary:      rep.Summary,
		Timeline:     timeline,
		PriceTarget:  target,
		PriceFloor:   floor,
		PriceCeiling: ceiling,
		HoursFloor:   hoursFloor,
		HoursCeiling: hoursCeiling,
		Payload: map[string]any{
			"report_id": rep.ID,
			"score":     rep.Score,
			"tier":      rep.Tier,
			"quote_id":  quoteID,
		},
	}
	if adjustments != nil {
		snap.Payload["adjustment_revision"] = adjustments.Revision
	}
	inserted, err := m.store.InsertSnapshot(ctx, snap)
	if err != nil {
		return nil, err
	}
	span.SetAttributes(attribute.Int("snapshot.version", inserted.VersionNo))
	return inserted, nil
}

// resolvePricing picks the snapshot pricing triple: adjusted target first,
// then the quote's explicit base fields, then the tier table; missing bounds
// derive from the target at the configured margins.
func (m *Manager) resolvePricing(quote *pie.Quote, set *pie.AdjustmentSet, rep *pie.Report) (target, floor, ceiling *int) {
	result := report.ResolveGuardrail(quote, set)
	target = result.AdjustedTarget
	if target == nil {
		target = quote.BaseTarget
	}
	if target == nil {
		t := m.pricing.TargetForTier(rep.Tier)
		target = &t
	}
	floor = quote.BaseFloor
	ceiling = quote.BaseCeiling
	if floor == nil || ceiling == nil {
		dFloor, dCeiling := pricing.DeriveBounds(target, m.pricing.FloorPct, m.pricing.CeilingPct)
		if floor == nil {
			floor = dFloor
		}
		if ceiling == nil {
			ceiling = dCeiling
		}
	}
	return target, floor, ceiling
}

// deriveHours turns the suggested duration into a planning hours band.
func deriveHours(weeks int) (*int, *int) {
	if weeks <= 0 {
		return nil, nil
	}
	floor := weeks * 12
	ceiling := weeks * 20
	return &floor, &ceiling
}

func intakeTimeline(quote *pie.Quote) string {
	if quote.RawIntake == nil {
		return ""
	}
	for _, key := range []string{"timeline", "timeframe", "deadline"} {
		if v, ok := quote.RawIntake[key].(string); ok && strings.TrimSpace(v) != "" {
			return v
		}
	}
	return ""
}

// ManualSnapshot is an admin-authored snapshot body.
type ManualSnapshot struct {
	Summary      string
	Timeline     string
	PriceTarget  *int
	PriceFloor   *int
	PriceCeiling *int
	HoursFloor   *int
	HoursCeiling *int
	Payload      map[string]any
}

func (m *Manager) CreateManualSnapshot(ctx context.Context, projectID string, body ManualSnapshot) (*pie.ScopeSnapshot, error) {
	if strings.TrimSpace(projectID) == "" {
		return nil, pie.NewValidationError("project id is required")
	}
	if _, err := m.store.GetProject(ctx, projectID); err != nil {
		return nil, err
	}
	return m.store.InsertSnapshot(ctx, pie.ScopeSnapshot{
		ProjectID:    projectID,
		Status:       pie.SnapshotDraft,
		Source:       pie.SnapshotSourceAdmin,
		Summary:      body.Summary,
		Timeline:     body.Timeline,
		PriceTarget:  body.PriceTarget,
		PriceFloor:   body.PriceFloor,
		PriceCeiling: body.PriceCeiling,
		HoursFloor:   body.HoursFloor,
		HoursCeiling: body.HoursCeiling,
		Payload:      body.Payload,
	})
}

// SnapshotPatch carries optional field edits; nil means unchanged. A status
// change goes through the forward-only transition table.
type SnapshotPatch struct {
	Status       *pie.SnapshotStatus
	Summary      *string
	Timeline     *string
	PriceTarget  *int
	PriceFloor   *int
	PriceCeiling *int
	HoursFloor   *int
	HoursCeiling *int
}

func (m *Manager) UpdateSnapshot(ctx context.Context, id string, patch SnapshotPatch) (*pie.ScopeSnapshot, error) {
	snap, err := m.store.GetSnapshot(ctx, id)
	if err != nil {
		return nil, err
	}
	if patch.Status != nil {
		to := *patch.Status
		if !validSnapshotStatus(to) {
			return nil, pie.NewValidationError(fmt.Sprintf("unknown snapshot status %q", to))
		}
		if !CanTransitionSnapshot(snap.Status, to) {
			return nil, pie.NewInvalidTransition(string(snap.Status), string(to))
		}
		snap.Status = to
	}
	applyStringPatch(&snap.Summary, patch.Summary)
	applyStringPatch(&snap.Timeline, patch.Timeline)
	applyIntPatch(&snap.PriceTarget, patch.PriceTarget)
	applyIntPatch(&snap.PriceFloor, patch.PriceFloor)
	applyIntPatch(&snap.PriceCeiling, patch.PriceCeiling)
	applyIntPatch(&snap.HoursFloor, patch.HoursFloor)
	applyIntPatch(&snap.HoursCeiling, patch.HoursCeiling)

	if err := m.store.UpdateSnapshot(ctx, *snap); err != nil {
		return nil, err
	}
	return snap, nil
}

// AdminOverrideStatus is the audited escape hatch: it bypasses the transition
// table but records who forced what, and from where, in the snapshot payload.
func (m *Manager) AdminOverrideStatus(ctx context.Context, id string, status pie.SnapshotStatus, actor string) (*pie.ScopeSnapshot, error) {
	if !validSnapshotStatus(status) {
		return nil, pie.NewValidationError(fmt.Sprintf("unknown snapshot status %q", status))
	}
	if strings.TrimSpace(actor) == "" {
		return nil, pie.NewValidationError("actor is required for a status override")
	}
	snap, err := m.store.GetSnapshot(ctx, id)
	if err != nil {
		return nil, err
	}
	if snap.Payload == nil {
		snap.Payload = map[string]any{}
	}
	overrides, _ := snap.Payload["status_overrides"].([]any)
	overrides = append(overrides, map[string]any{
		"from":  string(snap.Status),
		"to":    string(status),
		"actor": actor,
		"at":    time.Now().UTC().Format(time.RFC3339),
	})
	snap.Payload["status_overrides"] = overrides
	snap.Status = status

	if err := m.store.UpdateSnapshot(ctx, *snap); err != nil {
		return nil, err
	}
	m.log.Info("snapshot status overridden",
		zap.String("snapshot_id", id), zap.String("status", string(status)), zap.String("actor", actor))
	return snap, nil
}

func applyStringPatch(dst *string, v *string) {
	if v != nil {
		*dst = *v
	}
}

func applyIntPatch(dst **int, v *int) {
	if v != nil {
		*dst = v
	}
}
