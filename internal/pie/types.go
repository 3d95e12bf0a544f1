package pie

import "time"

type QuoteSource string

const (
	SourceWebsite QuoteSource = "website"
	SourceOps     QuoteSource = "ops"
)

type QuoteStatus string

const (
	QuoteStatusNew      QuoteStatus = "new"
	QuoteStatusAnalyzed QuoteStatus = "analyzed"
	QuoteStatusQuoted   QuoteStatus = "quoted"
	QuoteStatusWon      QuoteStatus = "won"
	QuoteStatusLost     QuoteStatus = "lost"
)

// Quote is the owning record for an intake submission. RawIntake holds the
// form payload exactly as submitted; normalization happens at read time so new
// form generations never require a migration.
type Quote struct {
	ID             string         `json:"id" db:"id"`
	Source         QuoteSource    `json:"source" db:"source"`
	ContactName    string         `json:"contact_name,omitempty" db:"contact_name"`
	ContactEmail   string         `json:"contact_email,omitempty" db:"contact_email"`
	RawIntake      map[string]any `json:"raw_intake" db:"-"`
	Status         QuoteStatus    `json:"status" db:"status"`
	BaseTarget     *int           `json:"base_target,omitempty" db:"base_target"`
	BaseFloor      *int           `json:"base_floor,omitempty" db:"base_floor"`
	BaseCeiling    *int           `json:"base_ceiling,omitempty" db:"base_ceiling"`
	LatestReportID string         `json:"latest_report_id,omitempty" db:"latest_report_id"`
	CreatedAt      time.Time      `json:"created_at" db:"-"`
}

// AdjustmentSet is the admin pricing override attached to a quote. It is a
// first-class row, not a JSON blob on the quote, so writes are atomic and
// schema-checked. Revision increments on every save for audit.
type AdjustmentSet struct {
	QuoteID        string    `json:"quote_id"`
	DiscountPct    *float64  `json:"discount_pct,omitempty"`
	DiscountAmount *int      `json:"discount_amount,omitempty"`
	IncreaseAmount *int      `json:"increase_amount,omitempty"`
	CustomTarget   *int      `json:"custom_target,omitempty"`
	Note           string    `json:"note,omitempty"`
	Revision       int       `json:"revision"`
	UpdatedAt      time.Time `json:"updated_at"`
}

// ReportPayload is the structured body the reasoning service must return.
type ReportPayload struct {
	Score           int               `json:"score"`
	Tier            string            `json:"tier"`
	Confidence      float64           `json:"confidence"`
	Summary         string            `json:"summary"`
	SubScores       SubScoreBreakdown `json:"sub_scores"`
	RiskFlags       []string          `json:"risk_flags"`
	Recommendations []string          `json:"recommendations"`
	SuggestedWeeks  int               `json:"suggested_weeks"`
	Narrative       string            `json:"narrative"`
}

type SubScoreBreakdown struct {
	Scope     int `json:"scope"`
	Budget    int `json:"budget"`
	Timeline  int `json:"timeline"`
	Readiness int `json:"readiness"`
}

// Report is immutable once inserted. ExternalResponseID is the reasoning
// service's message id, kept so a later generation can continue the same
// conversational thread. RawModelOutput is the verbatim model text replayed
// on continuation.
type Report struct {
	ID                 string        `json:"id"`
	QuoteID            string        `json:"quote_id"`
	Score              int           `json:"score"`
	Tier               string        `json:"tier"`
	Confidence         float64       `json:"confidence"`
	Summary            string        `json:"summary"`
	Payload            ReportPayload `json:"payload"`
	ExternalResponseID string        `json:"external_response_id,omitempty"`
	RawModelOutput     string        `json:"-"`
	CreatedAt          time.Time     `json:"created_at"`
}

// Project is the delivery-side entity a won quote turns into. One project per
// quote; EnsureProject is the idempotent mapping.
type Project struct {
	ID        string    `json:"id"`
	QuoteID   string    `json:"quote_id"`
	Name      string    `json:"name,omitempty"`
	CreatedAt time.Time `json:"created_at"`
}

type SnapshotStatus string

const (
	SnapshotDraft      SnapshotStatus = "draft"
	SnapshotSent       SnapshotStatus = "sent"
	SnapshotApproved   SnapshotStatus = "approved"
	SnapshotSuperseded SnapshotStatus = "superseded"
)

type SnapshotSource string

const (
	SnapshotSourcePIE   SnapshotSource = "pie"
	SnapshotSourceAdmin SnapshotSource = "admin"
)

// ScopeSnapshot is a versioned point-in-time record of agreed scope. VersionNo
// is strictly increasing per project and unique; gaps are allowed.
type ScopeSnapshot struct {
	ID           string         `json:"id"`
	ProjectID    string         `json:"project_id"`
	VersionNo    int            `json:"version_no"`
	Status       SnapshotStatus `json:"status"`
	Source       SnapshotSource `json:"source"`
	Summary      string         `json:"summary,omitempty"`
	Timeline     string         `json:"timeline,omitempty"`
	PriceTarget  *int           `json:"price_target,omitempty"`
	PriceFloor   *int           `json:"price_floor,omitempty"`
	PriceCeiling *int           `json:"price_ceiling,omitempty"`
	HoursFloor   *int           `json:"hours_floor,omitempty"`
	HoursCeiling *int           `json:"hours_ceiling,omitempty"`
	Payload      map[string]any `json:"payload,omitempty"`
	CreatedAt    time.Time      `json:"created_at"`
	UpdatedAt    time.Time      `json:"updated_at"`
}

type ChangeOrderStatus string

const (
	ChangeOrderRequested ChangeOrderStatus = "requested"
	ChangeOrderApproved  ChangeOrderStatus = "approved"
	ChangeOrderRejected  ChangeOrderStatus = "rejected"
	ChangeOrderApplied   ChangeOrderStatus = "applied"
)

// ChangeOrder is a proposed delta against a locked snapshot. Applied and
// rejected are terminal.
type ChangeOrder struct {
	ID                string            `json:"id"`
	ProjectID         string            `json:"project_id"`
	BaseSnapshotID    string            `json:"base_snapshot_id,omitempty"`
	AppliedSnapshotID string            `json:"applied_snapshot_id,omitempty"`
	Title             string            `json:"title"`
	Reason            string            `json:"reason,omitempty"`
	DeltaPrice        int               `json:"delta_price"`
	DeltaHours        int               `json:"delta_hours"`
	Status            ChangeOrderStatus `json:"status"`
	RequestedBy       string            `json:"requested_by,omitempty"`
	CreatedAt         time.Time         `json:"created_at"`
	UpdatedAt         time.Time         `json:"updated_at"`
}
