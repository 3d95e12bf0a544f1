package pie

import (
	"context"
	"time"
)

// Store is the persistence interface the orchestration layers depend on.
// The production implementation is SQLiteStore; tests may substitute fakes.
type Store interface {
	CreateQuote(ctx context.Context, q Quote) (*Quote, error)
	GetQuote(ctx context.Context, id string) (*Quote, error)
	UpdateQuoteStatus(ctx context.Context, id string, status QuoteStatus) error

	// SetLatestReport moves the quote's latest-report pointer. The pointer
	// never moves backwards: if it already references a report created at or
	// after createdAt, the call is a no-op.
	SetLatestReport(ctx context.Context, quoteID, reportID string, createdAt time.Time) error

	SaveAdjustments(ctx context.Context, set AdjustmentSet) (*AdjustmentSet, error)
	GetAdjustments(ctx context.Context, quoteID string) (*AdjustmentSet, error)

	InsertReport(ctx context.Context, r Report) (*Report, error)
	GetReport(ctx context.Context, id string) (*Report, error)
	LatestReportByQuote(ctx context.Context, quoteID string) (*Report, error)
	LatestReportByProject(ctx context.Context, projectID string) (*Report, error)

	// EnsureProject finds or creates the project for a quote. Safe under
	// concurrent callers; all of them resolve to the same row.
	EnsureProject(ctx context.Context, quoteID string) (*Project, error)
	GetProject(ctx context.Context, id string) (*Project, error)

	// InsertSnapshot assigns the next version number for the project and
	// inserts. Concurrent inserts for one project never collide on a version.
	InsertSnapshot(ctx context.Context, s ScopeSnapshot) (*ScopeSnapshot, error)
	GetSnapshot(ctx context.Context, id string) (*ScopeSnapshot, error)
	LatestSnapshot(ctx context.Context, projectID string) (*ScopeSnapshot, error)
	ListSnapshots(ctx context.Context, projectID string) ([]ScopeSnapshot, error)
	UpdateSnapshot(ctx context.Context, s ScopeSnapshot) error

	InsertChangeOrder(ctx context.Context, co ChangeOrder) (*ChangeOrder, error)
	GetChangeOrder(ctx context.Context, id string) (*ChangeOrder, error)
	ListChangeOrders(ctx context.Context, projectID string) ([]ChangeOrder, error)
	UpdateChangeOrder(ctx context.Context, co ChangeOrder) error

	Health(ctx context.Context) map[string]any
	Close() error
}
