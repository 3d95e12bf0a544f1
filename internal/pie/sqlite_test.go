package pie

import (
	"context"
	"errors"
	"path/filepath"
	"sync"
	"testing"
	"time"
)

func newTestStore(t *testing.T) *SQLiteStore {
	t.Helper()
	store, err := NewSQLiteStore(filepath.Join(t.TempDir(), "pie.db"))
	if err != nil {
		t.Fatalf("open store: %v", err)
	}
	t.Cleanup(func() { store.Close() })
	return store
}

func mustQuote(t *testing.T, store *SQLiteStore, id string) *Quote {
	t.Helper()
	q, err := store.CreateQuote(context.Background(), Quote{ID: id, RawIntake: map[string]any{"pages": "4-6"}})
	if err != nil {
		t.Fatalf("create quote: %v", err)
	}
	return q
}

func TestCreateAndGetQuote(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	target := 1200
	_, err := store.CreateQuote(ctx, Quote{
		ID:           "q1",
		Source:       SourceOps,
		ContactName:  "Dana",
		ContactEmail: "dana@example.com",
		RawIntake:    map[string]any{"pages": "4-6", "booking": true},
		BaseTarget:   &target,
	})
	if err != nil {
		t.Fatalf("create: %v", err)
	}

	got, err := store.GetQuote(ctx, "q1")
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if got.Source != SourceOps || got.Status != QuoteStatusNew {
		t.Errorf("source=%q status=%q", got.Source, got.Status)
	}
	if got.BaseTarget == nil || *got.BaseTarget != 1200 {
		t.Errorf("base target = %v", got.BaseTarget)
	}
	if got.BaseFloor != nil {
		t.Errorf("base floor = %v, want nil", got.BaseFloor)
	}
	if got.RawIntake["pages"] != "4-6" {
		t.Errorf("raw intake = %v", got.RawIntake)
	}
}

func TestGetQuoteNotFound(t *testing.T) {
	store := newTestStore(t)
	_, err := store.GetQuote(context.Background(), "nope")
	var pe *Error
	if !errors.As(err, &pe) || pe.Code != CodeNotFound {
		t.Fatalf("err = %v, want not_found", err)
	}
}

func TestCreateQuoteRequiresID(t *testing.T) {
	store := newTestStore(t)
	_, err := store.CreateQuote(context.Background(), Quote{})
	var pe *Error
	if !errors.As(err, &pe) || pe.Code != CodeValidation {
		t.Fatalf("err = %v, want validation", err)
	}
}

func TestSaveAdjustmentsRevisionBumps(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()
	mustQuote(t, store, "q1")

	pct := 10.0
	first, err := store.SaveAdjustments(ctx, AdjustmentSet{QuoteID: "q1", DiscountPct: &pct})
	if err != nil {
		t.Fatalf("save: %v", err)
	}
	if first.Revision != 1 {
		t.Fatalf("first revision = %d, want 1", first.Revision)
	}

	amt := 50
	second, err := store.SaveAdjustments(ctx, AdjustmentSet{QuoteID: "q1", DiscountAmount: &amt})
	if err != nil {
		t.Fatalf("save again: %v", err)
	}
	if second.Revision != 2 {
		t.Fatalf("second revision = %d, want 2", second.Revision)
	}

	// Full replace: the percentage from revision 1 is gone.
	got, err := store.GetAdjustments(ctx, "q1")
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if got.DiscountPct != nil {
		t.Errorf("discount pct = %v, want nil after replace", got.DiscountPct)
	}
	if got.DiscountAmount == nil || *got.DiscountAmount != 50 {
		t.Errorf("discount amount = %v", got.DiscountAmount)
	}
}

func TestGetAdjustmentsAbsentIsNil(t *testing.T) {
	store := newTestStore(t)
	got, err := store.GetAdjustments(context.Background(), "q1")
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if got != nil {
		t.Fatalf("got %+v, want nil", got)
	}
}

func TestLatestReportPointerMonotonic(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()
	mustQuote(t, store, "q1")

	older := time.Now().Add(-time.Hour)
	newer := time.Now()

	if _, err := store.InsertReport(ctx, Report{ID: "r-old", QuoteID: "q1", CreatedAt: older}); err != nil {
		t.Fatalf("insert old: %v", err)
	}
	if _, err := store.InsertReport(ctx, Report{ID: "r-new", QuoteID: "q1", CreatedAt: newer}); err != nil {
		t.Fatalf("insert new: %v", err)
	}

	if err := store.SetLatestReport(ctx, "q1", "r-new", newer); err != nil {
		t.Fatalf("set new: %v", err)
	}
	// Setting the older report is a no-op, not a rollback.
	if err := store.SetLatestReport(ctx, "q1", "r-old", older); err != nil {
		t.Fatalf("set old: %v", err)
	}

	q, err := store.GetQuote(ctx, "q1")
	if err != nil {
		t.Fatalf("get quote: %v", err)
	}
	if q.LatestReportID != "r-new" {
		t.Fatalf("latest = %q, want r-new", q.LatestReportID)
	}
}

func TestLatestReportByQuoteOrdering(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()
	mustQuote(t, store, "q1")

	base := time.Now().Add(-time.Hour)
	for i, id := range []string{"r1", "r2", "r3"} {
		if _, err := store.InsertReport(ctx, Report{ID: id, QuoteID: "q1", CreatedAt: base.Add(time.Duration(i) * time.Minute)}); err != nil {
			t.Fatalf("insert %s: %v", id, err)
		}
	}
	got, err := store.LatestReportByQuote(ctx, "q1")
	if err != nil {
		t.Fatalf("latest: %v", err)
	}
	if got == nil || got.ID != "r3" {
		t.Fatalf("latest = %+v, want r3", got)
	}

	none, err := store.LatestReportByQuote(ctx, "other")
	if err != nil || none != nil {
		t.Fatalf("no reports: got %+v err %v, want nil nil", none, err)
	}
}

func TestEnsureProjectIdempotent(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()
	mustQuote(t, store, "q1")

	first, err := store.EnsureProject(ctx, "q1")
	if err != nil {
		t.Fatalf("ensure: %v", err)
	}
	second, err := store.EnsureProject(ctx, "q1")
	if err != nil {
		t.Fatalf("ensure again: %v", err)
	}
	if first.ID != second.ID {
		t.Fatalf("project ids differ: %s vs %s", first.ID, second.ID)
	}
}

func TestEnsureProjectConcurrent(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()
	mustQuote(t, store, "q1")

	const n = 8
	ids := make([]string, n)
	var wg sync.WaitGroup
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			p, err := store.EnsureProject(ctx, "q1")
			if err != nil {
				t.Errorf("ensure %d: %v", i, err)
				return
			}
			ids[i] = p.ID
		}(i)
	}
	wg.Wait()

	for i := 1; i < n; i++ {
		if ids[i] != ids[0] {
			t.Fatalf("concurrent ensure diverged: %v", ids)
		}
	}
}

func TestInsertSnapshotVersionsAreConsecutive(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()
	mustQuote(t, store, "q1")
	p, err := store.EnsureProject(ctx, "q1")
	if err != nil {
		t.Fatalf("ensure project: %v", err)
	}

	for want := 1; want <= 3; want++ {
		snap, err := store.InsertSnapshot(ctx, ScopeSnapshot{ProjectID: p.ID, Summary: "v"})
		if err != nil {
			t.Fatalf("insert %d: %v", want, err)
		}
		if snap.VersionNo != want {
			t.Fatalf("version = %d, want %d", snap.VersionNo, want)
		}
		if snap.Status != SnapshotDraft || snap.Source != SnapshotSourcePIE {
			t.Fatalf("defaults: status=%q source=%q", snap.Status, snap.Source)
		}
	}
}

func TestInsertSnapshotConcurrentVersionRace(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()
	mustQuote(t, store, "q1")
	p, err := store.EnsureProject(ctx, "q1")
	if err != nil {
		t.Fatalf("ensure project: %v", err)
	}

	const n = 6
	var wg sync.WaitGroup
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if _, err := store.InsertSnapshot(ctx, ScopeSnapshot{ProjectID: p.ID}); err != nil {
				t.Errorf("insert: %v", err)
			}
		}()
	}
	wg.Wait()

	snaps, err := store.ListSnapshots(ctx, p.ID)
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(snaps) != n {
		t.Fatalf("got %d snapshots, want %d", len(snaps), n)
	}
	for i, snap := range snaps {
		if snap.VersionNo != i+1 {
			t.Fatalf("version gap at index %d: %d", i, snap.VersionNo)
		}
	}
}

func TestUpdateSnapshotRoundTrip(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()
	mustQuote(t, store, "q1")
	p, _ := store.EnsureProject(ctx, "q1")
	snap, err := store.InsertSnapshot(ctx, ScopeSnapshot{ProjectID: p.ID, Summary: "before"})
	if err != nil {
		t.Fatalf("insert: %v", err)
	}

	price := 1400
	snap.Status = SnapshotSent
	snap.Summary = "after"
	snap.PriceTarget = &price
	snap.Payload = map[string]any{"note": "edited"}
	if err := store.UpdateSnapshot(ctx, *snap); err != nil {
		t.Fatalf("update: %v", err)
	}

	got, err := store.GetSnapshot(ctx, snap.ID)
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if got.Status != SnapshotSent || got.Summary != "after" {
		t.Errorf("status=%q summary=%q", got.Status, got.Summary)
	}
	if got.PriceTarget == nil || *got.PriceTarget != 1400 {
		t.Errorf("price target = %v", got.PriceTarget)
	}
	if got.Payload["note"] != "edited" {
		t.Errorf("payload = %v", got.Payload)
	}
}

func TestChangeOrderRoundTrip(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()
	mustQuote(t, store, "q1")
	p, _ := store.EnsureProject(ctx, "q1")

	co, err := store.InsertChangeOrder(ctx, ChangeOrder{
		ProjectID:  p.ID,
		Title:      "Add booking flow",
		DeltaPrice: 250,
		DeltaHours: 6,
	})
	if err != nil {
		t.Fatalf("insert: %v", err)
	}
	if co.Status != ChangeOrderRequested {
		t.Fatalf("status = %q, want requested", co.Status)
	}

	co.Status = ChangeOrderApproved
	if err := store.UpdateChangeOrder(ctx, *co); err != nil {
		t.Fatalf("update: %v", err)
	}
	got, err := store.GetChangeOrder(ctx, co.ID)
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if got.Status != ChangeOrderApproved || got.DeltaPrice != 250 {
		t.Fatalf("got %+v", got)
	}

	list, err := store.ListChangeOrders(ctx, p.ID)
	if err != nil || len(list) != 1 {
		t.Fatalf("list: %v (%d rows)", err, len(list))
	}
}

func TestHealthCounts(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()
	mustQuote(t, store, "q1")
	if _, err := store.InsertReport(ctx, Report{ID: "r1", QuoteID: "q1"}); err != nil {
		t.Fatalf("insert report: %v", err)
	}

	h := store.Health(ctx)
	if h["ok"] != true {
		t.Fatalf("health = %v", h)
	}
	if h["quotes"] != 1 || h["reports"] != 1 {
		t.Fatalf("counts = %v", h)
	}
}
