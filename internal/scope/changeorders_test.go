package scope

import (
	"context"
	"errors"
	"testing"

	"github.com/joelkehle/salesops-pie/internal/pie"
)

func seedProjectWithSnapshot(t *testing.T, m *Manager, store *pie.SQLiteStore) (*pie.Project, *pie.ScopeSnapshot) {
	t.Helper()
	ctx := context.Background()
	seedQuoteWithReport(t, store, "q1")
	snap, err := m.CreateSnapshotFromLatestReport(ctx, "q1")
	if err != nil {
		t.Fatalf("seed snapshot: %v", err)
	}
	p, err := store.EnsureProject(ctx, "q1")
	if err != nil {
		t.Fatalf("ensure project: %v", err)
	}
	return p, snap
}

func TestCreateChangeOrderDefaultsToLatestSnapshot(t *testing.T) {
	m, store := newTestManager(t)
	ctx := context.Background()
	p, snap := seedProjectWithSnapshot(t, m, store)

	co, err := m.CreateChangeOrder(ctx, p.ID, NewChangeOrder{Title: "Add blog", DeltaPrice: 150})
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	if co.Status != pie.ChangeOrderRequested {
		t.Fatalf("status = %q", co.Status)
	}
	if co.BaseSnapshotID != snap.ID {
		t.Fatalf("base = %q, want latest snapshot %q", co.BaseSnapshotID, snap.ID)
	}
}

func TestCreateChangeOrderValidation(t *testing.T) {
	m, store := newTestManager(t)
	ctx := context.Background()
	p, _ := seedProjectWithSnapshot(t, m, store)

	var pe *pie.Error
	if _, err := m.CreateChangeOrder(ctx, p.ID, NewChangeOrder{}); !errors.As(err, &pe) || pe.Code != pie.CodeValidation {
		t.Fatalf("missing title err = %v", err)
	}
	if _, err := m.CreateChangeOrder(ctx, "missing", NewChangeOrder{Title: "x"}); !errors.As(err, &pe) || pe.Code != pie.CodeNotFound {
		t.Fatalf("missing project err = %v", err)
	}
	if _, err := m.CreateChangeOrder(ctx, p.ID, NewChangeOrder{Title: "x", BaseSnapshotID: "missing"}); !errors.As(err, &pe) || pe.Code != pie.CodeNotFound {
		t.Fatalf("missing base err = %v", err)
	}
}

func TestChangeOrderLifecycleTransitions(t *testing.T) {
	m, store := newTestManager(t)
	ctx := context.Background()
	p, _ := seedProjectWithSnapshot(t, m, store)

	co, err := m.CreateChangeOrder(ctx, p.ID, NewChangeOrder{Title: "Add booking"})
	if err != nil {
		t.Fatalf("create: %v", err)
	}

	// requested cannot jump straight to applied.
	var pe *pie.Error
	if _, err := m.SetChangeOrderStatus(ctx, co.ID, pie.ChangeOrderApplied); !errors.As(err, &pe) || pe.Code != pie.CodeInvalidTransition {
		t.Fatalf("requested->applied err = %v", err)
	}

	if _, err := m.SetChangeOrderStatus(ctx, co.ID, pie.ChangeOrderApproved); err != nil {
		t.Fatalf("approve: %v", err)
	}
	// approved cannot be rejected.
	if _, err := m.SetChangeOrderStatus(ctx, co.ID, pie.ChangeOrderRejected); !errors.As(err, &pe) || pe.Code != pie.CodeInvalidTransition {
		t.Fatalf("approved->rejected err = %v", err)
	}

	applied, err := m.SetChangeOrderStatus(ctx, co.ID, pie.ChangeOrderApplied)
	if err != nil {
		t.Fatalf("apply: %v", err)
	}
	// applied is terminal.
	if _, err := m.SetChangeOrderStatus(ctx, applied.ID, pie.ChangeOrderApproved); !errors.As(err, &pe) || pe.Code != pie.CodeInvalidTransition {
		t.Fatalf("applied->approved err = %v", err)
	}
}

func TestRejectedIsTerminal(t *testing.T) {
	m, store := newTestManager(t)
	ctx := context.Background()
	p, _ := seedProjectWithSnapshot(t, m, store)

	co, err := m.CreateChangeOrder(ctx, p.ID, NewChangeOrder{Title: "Nope"})
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	if _, err := m.SetChangeOrderStatus(ctx, co.ID, pie.ChangeOrderRejected); err != nil {
		t.Fatalf("reject: %v", err)
	}
	var pe *pie.Error
	if _, err := m.SetChangeOrderStatus(ctx, co.ID, pie.ChangeOrderApproved); !errors.As(err, &pe) || pe.Code != pie.CodeInvalidTransition {
		t.Fatalf("rejected->approved err = %v", err)
	}
}

func TestApplyChangeOrderFoldsDeltasAndSupersedes(t *testing.T) {
	m, store := newTestManager(t)
	ctx := context.Background()
	p, base := seedProjectWithSnapshot(t, m, store)

	co, err := m.CreateChangeOrder(ctx, p.ID, NewChangeOrder{Title: "Bigger scope", DeltaPrice: 300, DeltaHours: 10})
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	if _, err := m.SetChangeOrderStatus(ctx, co.ID, pie.ChangeOrderApproved); err != nil {
		t.Fatalf("approve: %v", err)
	}
	applied, err := m.SetChangeOrderStatus(ctx, co.ID, pie.ChangeOrderApplied)
	if err != nil {
		t.Fatalf("apply: %v", err)
	}
	if applied.AppliedSnapshotID == "" {
		t.Fatal("applied snapshot id not recorded")
	}

	next, err := store.GetSnapshot(ctx, applied.AppliedSnapshotID)
	if err != nil {
		t.Fatalf("get applied snapshot: %v", err)
	}
	if next.VersionNo != base.VersionNo+1 {
		t.Fatalf("version = %d, want %d", next.VersionNo, base.VersionNo+1)
	}
	if *next.PriceTarget != *base.PriceTarget+300 {
		t.Fatalf("price target = %d, want %d", *next.PriceTarget, *base.PriceTarget+300)
	}
	if *next.PriceFloor != *base.PriceFloor+300 || *next.PriceCeiling != *base.PriceCeiling+300 {
		t.Fatalf("bounds = %d/%d", *next.PriceFloor, *next.PriceCeiling)
	}
	if *next.HoursFloor != *base.HoursFloor+10 || *next.HoursCeiling != *base.HoursCeiling+10 {
		t.Fatalf("hours = %d/%d", *next.HoursFloor, *next.HoursCeiling)
	}
	if next.Source != pie.SnapshotSourceAdmin || next.Status != pie.SnapshotDraft {
		t.Fatalf("source=%q status=%q", next.Source, next.Status)
	}
	if next.Payload["change_order_id"] != co.ID || next.Payload["base_snapshot_id"] != base.ID {
		t.Fatalf("payload = %v", next.Payload)
	}

	prev, err := store.GetSnapshot(ctx, base.ID)
	if err != nil {
		t.Fatalf("get base snapshot: %v", err)
	}
	if prev.Status != pie.SnapshotSuperseded {
		t.Fatalf("base status = %q, want superseded", prev.Status)
	}
}

func TestSequentialChangeOrdersCompose(t *testing.T) {
	m, store := newTestManager(t)
	ctx := context.Background()
	p, base := seedProjectWithSnapshot(t, m, store)

	apply := func(title string, delta int) *pie.ChangeOrder {
		co, err := m.CreateChangeOrder(ctx, p.ID, NewChangeOrder{Title: title, DeltaPrice: delta})
		if err != nil {
			t.Fatalf("%s create: %v", title, err)
		}
		if _, err := m.SetChangeOrderStatus(ctx, co.ID, pie.ChangeOrderApproved); err != nil {
			t.Fatalf("%s approve: %v", title, err)
		}
		applied, err := m.SetChangeOrderStatus(ctx, co.ID, pie.ChangeOrderApplied)
		if err != nil {
			t.Fatalf("%s apply: %v", title, err)
		}
		return applied
	}

	apply("first", 100)
	second := apply("second", 50)

	final, err := store.GetSnapshot(ctx, second.AppliedSnapshotID)
	if err != nil {
		t.Fatalf("get final: %v", err)
	}
	if final.VersionNo != base.VersionNo+2 {
		t.Fatalf("version = %d, want %d", final.VersionNo, base.VersionNo+2)
	}
	if *final.PriceTarget != *base.PriceTarget+150 {
		t.Fatalf("price target = %d, want %d", *final.PriceTarget, *base.PriceTarget+150)
	}
}

func TestTransitionTables(t *testing.T) {
	if !CanTransitionSnapshot(pie.SnapshotDraft, pie.SnapshotDraft) {
		t.Error("self transition should be allowed")
	}
	if CanTransitionSnapshot(pie.SnapshotSuperseded, pie.SnapshotDraft) {
		t.Error("superseded is terminal")
	}
	if !CanTransitionSnapshot(pie.SnapshotApproved, pie.SnapshotSuperseded) {
		t.Error("approved->superseded should be allowed")
	}
	if CanTransitionChangeOrder(pie.ChangeOrderRequested, pie.ChangeOrderApplied) {
		t.Error("requested->applied should be rejected")
	}
	if !CanTransitionChangeOrder(pie.ChangeOrderApproved, pie.ChangeOrderApplied) {
		t.Error("approved->applied should be allowed")
	}
}
