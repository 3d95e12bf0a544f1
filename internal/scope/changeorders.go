package scope

import (
	"context"
	"fmt"
	"strings"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"

	"github.com/joelkehle/salesops-pie/internal/pie"
)

// NewChangeOrder is the request body for opening a change order.
type NewChangeOrder struct {
	Title          string
	Reason         string
	DeltaPrice     int
	DeltaHours     int
	BaseSnapshotID string
	RequestedBy    string
}

// CreateChangeOrder opens a change order in the requested state. When no base
// snapshot is given, the project's latest snapshot is recorded as the base.
func (m *Manager) CreateChangeOrder(ctx context.Context, projectID string, body NewChangeOrder) (*pie.ChangeOrder, error) {
	if strings.TrimSpace(projectID) == "" {
		return nil, pie.NewValidationError("project id is required")
	}
	if strings.TrimSpace(body.Title) == "" {
		return nil, pie.NewValidationError("title is required")
	}
	if _, err := m.store.GetProject(ctx, projectID); err != nil {
		return nil, err
	}

	base := strings.TrimSpace(body.BaseSnapshotID)
	if base != "" {
		snap, err := m.store.GetSnapshot(ctx, base)
		if err != nil {
			return nil, err
		}
		if snap.ProjectID != projectID {
			return nil, pie.NewValidationError("base snapshot belongs to a different project")
		}
	} else if latest, err := m.store.LatestSnapshot(ctx, projectID); err != nil {
		return nil, err
	} else if latest != nil {
		base = latest.ID
	}

	return m.store.InsertChangeOrder(ctx, pie.ChangeOrder{
		ProjectID:      projectID,
		BaseSnapshotID: base,
		Title:          strings.TrimSpace(body.Title),
		Reason:         body.Reason,
		DeltaPrice:     body.DeltaPrice,
		DeltaHours:     body.DeltaHours,
		Status:         pie.ChangeOrderRequested,
		RequestedBy:    body.RequestedBy,
	})
}

// SetChangeOrderStatus moves a change order through its lifecycle. Applying
// an approved change order folds its deltas into a fresh snapshot version and
// supersedes the previous latest.
func (m *Manager) SetChangeOrderStatus(ctx context.Context, id string, status pie.ChangeOrderStatus) (*pie.ChangeOrder, error) {
	if !validChangeOrderStatus(status) {
		return nil, pie.NewValidationError(fmt.Sprintf("unknown change order status %q", status))
	}
	co, err := m.store.GetChangeOrder(ctx, id)
	if err != nil {
		return nil, err
	}
	if !CanTransitionChangeOrder(co.Status, status) {
		return nil, pie.NewInvalidTransition(string(co.Status), string(status))
	}

	ctx, span := m.tracer.Start(ctx, "scope.SetChangeOrderStatus",
		trace.WithAttributes(attribute.String("change_order.id", id), attribute.String("status", string(status))))
	defer span.End()

	if status == pie.ChangeOrderApplied {
		applied, err := m.applyChangeOrder(ctx, co)
		if err != nil {
			return nil, err
		}
		co.AppliedSnapshotID = applied.ID
	}
	co.Status = status
	if err := m.store.UpdateChangeOrder(ctx, *co); err != nil {
		return nil, err
	}
	return co, nil
}

// applyChangeOrder builds the post-change snapshot: the latest version's
// fields with the deltas folded in. The previous latest is superseded
// best-effort after the new version lands.
func (m *Manager) applyChangeOrder(ctx context.Context, co *pie.ChangeOrder) (*pie.ScopeSnapshot, error) {
	prev, err := m.store.LatestSnapshot(ctx, co.ProjectID)
	if err != nil {
		return nil, err
	}
	if prev == nil {
		return nil, pie.NewNotFoundError("snapshot for project", co.ProjectID)
	}

	next := pie.ScopeSnapshot{
		ProjectID:    co.ProjectID,
		Status:       pie.SnapshotDraft,
		Source:       pie.SnapshotSourceAdmin,
		Summary:      prev.Summary,
		Timeline:     prev.Timeline,
		PriceTarget:  addDelta(prev.PriceTarget, co.DeltaPrice),
		PriceFloor:   addDelta(prev.PriceFloor, co.DeltaPrice),
		PriceCeiling: addDelta(prev.PriceCeiling, co.DeltaPrice),
		HoursFloor:   addDelta(prev.HoursFloor, co.DeltaHours),
		HoursCeiling: addDelta(prev.HoursCeiling, co.DeltaHours),
		Payload: map[string]any{
			"change_order_id":  co.ID,
			"base_snapshot_id": prev.ID,
		},
	}
	inserted, err := m.store.InsertSnapshot(ctx, next)
	if err != nil {
		return nil, err
	}

	prev.Status = pie.SnapshotSuperseded
	if err := m.store.UpdateSnapshot(ctx, *prev); err != nil {
		m.log.Warn("superseding previous snapshot failed",
			zap.String("snapshot_id", prev.ID), zap.Error(err))
	}
	return inserted, nil
}

func addDelta(v *int, delta int) *int {
	if v == nil {
		if delta == 0 {
			return nil
		}
		return &delta
	}
	n := *v + delta
	return &n
}

func (m *Manager) ListChangeOrders(ctx context.Context, projectID string) ([]pie.ChangeOrder, error) {
	return m.store.ListChangeOrders(ctx, projectID)
}

func (m *Manager) ListSnapshots(ctx context.Context, projectID string) ([]pie.ScopeSnapshot, error) {
	return m.store.ListSnapshots(ctx, projectID)
}
