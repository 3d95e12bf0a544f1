package pie

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/jmoiron/sqlx"
	_ "modernc.org/sqlite"
)

// SQLiteStore implements Store on a single SQLite file. Every mutation is a
// single-row statement; nothing assumes multi-row transactions, so each
// operation is individually idempotent or guarded by a constraint.
type SQLiteStore struct {
	db *sqlx.DB
}

const sqliteSchema = `
CREATE TABLE IF NOT EXISTS quotes (
	id               TEXT PRIMARY KEY,
	source           TEXT NOT NULL DEFAULT 'website',
	contact_name     TEXT NOT NULL DEFAULT '',
	contact_email    TEXT NOT NULL DEFAULT '',
	raw_intake       TEXT NOT NULL DEFAULT '{}',
	status           TEXT NOT NULL DEFAULT 'new',
	base_target      INTEGER,
	base_floor       INTEGER,
	base_ceiling     INTEGER,
	latest_report_id TEXT NOT NULL DEFAULT '',
	created_at       TEXT NOT NULL
);

CREATE TABLE IF NOT EXISTS adjustment_sets (
	quote_id        TEXT PRIMARY KEY,
	discount_pct    REAL,
	discount_amount INTEGER,
	increase_amount INTEGER,
	custom_target   INTEGER,
	note            TEXT NOT NULL DEFAULT '',
	revision        INTEGER NOT NULL DEFAULT 0,
	updated_at      TEXT NOT NULL
);

CREATE TABLE IF NOT EXISTS reports (
	id                   TEXT PRIMARY KEY,
	quote_id             TEXT NOT NULL,
	score                INTEGER NOT NULL DEFAULT 0,
	tier                 TEXT NOT NULL DEFAULT '',
	confidence           REAL NOT NULL DEFAULT 0,
	summary              TEXT NOT NULL DEFAULT '',
	payload              TEXT NOT NULL DEFAULT '{}',
	external_response_id TEXT NOT NULL DEFAULT '',
	raw_model_output     TEXT NOT NULL DEFAULT '',
	created_at           TEXT NOT NULL
);
CREATE INDEX IF NOT EXISTS reports_quote_created ON reports(quote_id, created_at);

CREATE TABLE IF NOT EXISTS projects (
	id         TEXT PRIMARY KEY,
	quote_id   TEXT NOT NULL,
	name       TEXT NOT NULL DEFAULT '',
	created_at TEXT NOT NULL
);
CREATE UNIQUE INDEX IF NOT EXISTS projects_quote ON projects(quote_id);

CREATE TABLE IF NOT EXISTS scope_snapshots (
	id            TEXT PRIMARY KEY,
	project_id    TEXT NOT NULL,
	version_no    INTEGER NOT NULL,
	status        TEXT NOT NULL DEFAULT 'draft',
	source        TEXT NOT NULL DEFAULT 'pie',
	summary       TEXT NOT NULL DEFAULT '',
	timeline      TEXT NOT NULL DEFAULT '',
	price_target  INTEGER,
	price_floor   INTEGER,
	price_ceiling INTEGER,
	hours_floor   INTEGER,
	hours_ceiling INTEGER,
	payload       TEXT,
	created_at    TEXT NOT NULL,
	updated_at    TEXT NOT NULL
);
CREATE UNIQUE INDEX IF NOT EXISTS snapshots_project_version ON scope_snapshots(project_id, version_no);

CREATE TABLE IF NOT EXISTS change_orders (
	id                  TEXT PRIMARY KEY,
	project_id          TEXT NOT NULL,
	base_snapshot_id    TEXT NOT NULL DEFAULT '',
	applied_snapshot_id TEXT NOT NULL DEFAULT '',
	title               TEXT NOT NULL,
	reason              TEXT NOT NULL DEFAULT '',
	delta_price         INTEGER NOT NULL DEFAULT 0,
	delta_hours         INTEGER NOT NULL DEFAULT 0,
	status              TEXT NOT NULL DEFAULT 'requested',
	requested_by        TEXT NOT NULL DEFAULT '',
	created_at          TEXT NOT NULL,
	updated_at          TEXT NOT NULL
);
CREATE INDEX IF NOT EXISTS change_orders_project ON change_orders(project_id, created_at);
`

func NewSQLiteStore(dbPath string) (*SQLiteStore, error) {
	db, err := sqlx.Open("sqlite", dbPath+"?_pragma=journal_mode(wal)&_pragma=busy_timeout(5000)")
	if err != nil {
		return nil, fmt.Errorf("open sqlite: %w", err)
	}
	if _, err := db.Exec(sqliteSchema); err != nil {
		db.Close()
		return nil, fmt.Errorf("create schema: %w", err)
	}
	return &SQLiteStore{db: db}, nil
}

func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

// --- row helpers ---

func timeToString(t time.Time) string {
	if t.IsZero() {
		return ""
	}
	return t.UTC().Format(time.RFC3339Nano)
}

func parseTime(v string) time.Time {
	t, _ := time.Parse(time.RFC3339Nano, v)
	return t
}

func marshalJSON(v any) string {
	if v == nil {
		return ""
	}
	b, err := json.Marshal(v)
	if err != nil {
		return ""
	}
	return string(b)
}

func nullInt(v *int) sql.NullInt64 {
	if v == nil {
		return sql.NullInt64{}
	}
	return sql.NullInt64{Int64: int64(*v), Valid: true}
}

func intPtr(v sql.NullInt64) *int {
	if !v.Valid {
		return nil
	}
	n := int(v.Int64)
	return &n
}

func nullFloat(v *float64) sql.NullFloat64 {
	if v == nil {
		return sql.NullFloat64{}
	}
	return sql.NullFloat64{Float64: *v, Valid: true}
}

func floatPtr(v sql.NullFloat64) *float64 {
	if !v.Valid {
		return nil
	}
	f := v.Float64
	return &f
}

func isUniqueViolation(err error) bool {
	return err != nil && strings.Contains(err.Error(), "UNIQUE constraint failed")
}

// --- quotes ---

func (s *SQLiteStore) CreateQuote(ctx context.Context, q Quote) (*Quote, error) {
	if strings.TrimSpace(q.ID) == "" {
		return nil, NewValidationError("quote id is required")
	}
	if q.Source == "" {
		q.Source = SourceWebsite
	}
	if q.Status == "" {
		q.Status = QuoteStatusNew
	}
	if q.CreatedAt.IsZero() {
		q.CreatedAt = time.Now()
	}
	raw := marshalJSON(q.RawIntake)
	if raw == "" {
		raw = "{}"
	}
	_, err := s.db.ExecContext(ctx, `INSERT INTO quotes (id, source, contact_name, contact_email, raw_intake, status, base_target, base_floor, base_ceiling, latest_report_id, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		q.ID, string(q.Source), q.ContactName, q.ContactEmail, raw, string(q.Status),
		nullInt(q.BaseTarget), nullInt(q.BaseFloor), nullInt(q.BaseCeiling), q.LatestReportID, timeToString(q.CreatedAt))
	if err != nil {
		return nil, NewPersistenceError(err)
	}
	return &q, nil
}

func (s *SQLiteStore) GetQuote(ctx context.Context, id string) (*Quote, error) {
	var (
		q         Quote
		source    string
		status    string
		raw       string
		target    sql.NullInt64
		floor     sql.NullInt64
		ceiling   sql.NullInt64
		createdAt string
	)
	err := s.db.QueryRowContext(ctx, `SELECT id, source, contact_name, contact_email, raw_intake, status, base_target, base_floor, base_ceiling, latest_report_id, created_at
		FROM quotes WHERE id = ?`, id).
		Scan(&q.ID, &source, &q.ContactName, &q.ContactEmail, &raw, &status, &target, &floor, &ceiling, &q.LatestReportID, &createdAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, NewNotFoundError("quote", id)
	}
	if err != nil {
		return nil, NewPersistenceError(err)
	}
	q.Source = QuoteSource(source)
	q.Status = QuoteStatus(status)
	_ = json.Unmarshal([]byte(raw), &q.RawIntake)
	q.BaseTarget = intPtr(target)
	q.BaseFloor = intPtr(floor)
	q.BaseCeiling = intPtr(ceiling)
	q.CreatedAt = parseTime(createdAt)
	return &q, nil
}

func (s *SQLiteStore) UpdateQuoteStatus(ctx context.Context, id string, status QuoteStatus) error {
	res, err := s.db.ExecContext(ctx, `UPDATE quotes SET status = ? WHERE id = ?`, string(status), id)
	if err != nil {
		return NewPersistenceError(err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return NewNotFoundError("quote", id)
	}
	return nil
}

func (s *SQLiteStore) SetLatestReport(ctx context.Context, quoteID, reportID string, createdAt time.Time) error {
	// Read the currently referenced report first so the pointer never moves
	// to an older row than what is already referenced.
	var currentID string
	err := s.db.QueryRowContext(ctx, `SELECT latest_report_id FROM quotes WHERE id = ?`, quoteID).Scan(&currentID)
	if errors.Is(err, sql.ErrNoRows) {
		return NewNotFoundError("quote", quoteID)
	}
	if err != nil {
		return NewPersistenceError(err)
	}
	if currentID != "" {
		var currentCreated string
		err := s.db.QueryRowContext(ctx, `SELECT created_at FROM reports WHERE id = ?`, currentID).Scan(&currentCreated)
		if err == nil && parseTime(currentCreated).After(createdAt) {
			return nil
		}
	}
	// Guard on the value we read; a concurrent mover wins and we retry once.
	res, err := s.db.ExecContext(ctx, `UPDATE quotes SET latest_report_id = ? WHERE id = ? AND latest_report_id = ?`,
		reportID, quoteID, currentID)
	if err != nil {
		return NewPersistenceError(err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return s.SetLatestReport(ctx, quoteID, reportID, createdAt)
	}
	return nil
}

// --- adjustment sets ---

func (s *SQLiteStore) SaveAdjustments(ctx context.Context, set AdjustmentSet) (*AdjustmentSet, error) {
	if strings.TrimSpace(set.QuoteID) == "" {
		return nil, NewValidationError("quote id is required")
	}
	set.UpdatedAt = time.Now()
	err := s.db.QueryRowContext(ctx, `INSERT INTO adjustment_sets (quote_id, discount_pct, discount_amount, increase_amount, custom_target, note, revision, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, 1, ?)
		ON CONFLICT(quote_id) DO UPDATE SET
			discount_pct = excluded.discount_pct,
			discount_amount = excluded.discount_amount,
			increase_amount = excluded.increase_amount,
			custom_target = excluded.custom_target,
			note = excluded.note,
			revision = adjustment_sets.revision + 1,
			updated_at = excluded.updated_at
		RETURNING revision`,
		set.QuoteID, nullFloat(set.DiscountPct), nullInt(set.DiscountAmount), nullInt(set.IncreaseAmount),
		nullInt(set.CustomTarget), set.Note, timeToString(set.UpdatedAt)).
		Scan(&set.Revision)
	if err != nil {
		return nil, NewPersistenceError(err)
	}
	return &set, nil
}

func (s *SQLiteStore) GetAdjustments(ctx context.Context, quoteID string) (*AdjustmentSet, error) {
	var (
		set       AdjustmentSet
		pct       sql.NullFloat64
		discount  sql.NullInt64
		increase  sql.NullInt64
		custom    sql.NullInt64
		updatedAt string
	)
	err := s.db.QueryRowContext(ctx, `SELECT quote_id, discount_pct, discount_amount, increase_amount, custom_target, note, revision, updated_at
		FROM adjustment_sets WHERE quote_id = ?`, quoteID).
		Scan(&set.QuoteID, &pct, &discount, &increase, &custom, &set.Note, &set.Revision, &updatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, NewPersistenceError(err)
	}
	set.DiscountPct = floatPtr(pct)
	set.DiscountAmount = intPtr(discount)
	set.IncreaseAmount = intPtr(increase)
	set.CustomTarget = intPtr(custom)
	set.UpdatedAt = parseTime(updatedAt)
	return &set, nil
}

// --- reports ---

func (s *SQLiteStore) InsertReport(ctx context.Context, r Report) (*Report, error) {
	if strings.TrimSpace(r.ID) == "" || strings.TrimSpace(r.QuoteID) == "" {
		return nil, NewValidationError("report id and quote id are required")
	}
	if r.CreatedAt.IsZero() {
		r.CreatedAt = time.Now()
	}
	_, err := s.db.ExecContext(ctx, `INSERT INTO reports (id, quote_id, score, tier, confidence, summary, payload, external_response_id, raw_model_output, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		r.ID, r.QuoteID, r.Score, r.Tier, r.Confidence, r.Summary,
		marshalJSON(r.Payload), r.ExternalResponseID, r.RawModelOutput, timeToString(r.CreatedAt))
	if err != nil {
		return nil, NewPersistenceError(err)
	}
	return &r, nil
}

func scanReport(row *sql.Row) (*Report, error) {
	var (
		r         Report
		payload   string
		createdAt string
	)
	err := row.Scan(&r.ID, &r.QuoteID, &r.Score, &r.Tier, &r.Confidence, &r.Summary,
		&payload, &r.ExternalResponseID, &r.RawModelOutput, &createdAt)
	if err != nil {
		return nil, err
	}
	_ = json.Unmarshal([]byte(payload), &r.Payload)
	r.CreatedAt = parseTime(createdAt)
	return &r, nil
}

const reportColumns = `id, quote_id, score, tier, confidence, summary, payload, external_response_id, raw_model_output, created_at`

func (s *SQLiteStore) GetReport(ctx context.Context, id string) (*Report, error) {
	r, err := scanReport(s.db.QueryRowContext(ctx, `SELECT `+reportColumns+` FROM reports WHERE id = ?`, id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, NewNotFoundError("report", id)
	}
	if err != nil {
		return nil, NewPersistenceError(err)
	}
	return r, nil
}

func (s *SQLiteStore) LatestReportByQuote(ctx context.Context, quoteID string) (*Report, error) {
	r, err := scanReport(s.db.QueryRowContext(ctx, `SELECT `+reportColumns+` FROM reports
		WHERE quote_id = ? ORDER BY created_at DESC, id DESC LIMIT 1`, quoteID))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, NewPersistenceError(err)
	}
	return r, nil
}

func (s *SQLiteStore) LatestReportByProject(ctx context.Context, projectID string) (*Report, error) {
	r, err := scanReport(s.db.QueryRowContext(ctx, `SELECT r.id, r.quote_id, r.score, r.tier, r.confidence, r.summary, r.payload, r.external_response_id, r.raw_model_output, r.created_at
		FROM reports r JOIN projects p ON p.quote_id = r.quote_id
		WHERE p.id = ? ORDER BY r.created_at DESC, r.id DESC LIMIT 1`, projectID))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, NewPersistenceError(err)
	}
	return r, nil
}

// --- projects ---

func (s *SQLiteStore) EnsureProject(ctx context.Context, quoteID string) (*Project, error) {
	if strings.TrimSpace(quoteID) == "" {
		return nil, NewValidationError("quote id is required")
	}
	// Upsert keyed by quote id: concurrent callers all land on the same row.
	p := Project{CreatedAt: time.Now()}
	var createdAt string
	err := s.db.QueryRowContext(ctx, `INSERT INTO projects (id, quote_id, name, created_at)
		VALUES (?, ?, '', ?)
		ON CONFLICT(quote_id) DO UPDATE SET quote_id = excluded.quote_id
		RETURNING id, quote_id, name, created_at`,
		newRowID(), quoteID, timeToString(p.CreatedAt)).
		Scan(&p.ID, &p.QuoteID, &p.Name, &createdAt)
	if err != nil {
		return nil, NewPersistenceError(err)
	}
	p.CreatedAt = parseTime(createdAt)
	return &p, nil
}

func (s *SQLiteStore) GetProject(ctx context.Context, id string) (*Project, error) {
	var (
		p         Project
		createdAt string
	)
	err := s.db.QueryRowContext(ctx, `SELECT id, quote_id, name, created_at FROM projects WHERE id = ?`, id).
		Scan(&p.ID, &p.QuoteID, &p.Name, &createdAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, NewNotFoundError("project", id)
	}
	if err != nil {
		return nil, NewPersistenceError(err)
	}
	p.CreatedAt = parseTime(createdAt)
	return &p, nil
}

// --- scope snapshots ---

const snapshotInsertAttempts = 5

func (s *SQLiteStore) InsertSnapshot(ctx context.Context, snap ScopeSnapshot) (*ScopeSnapshot, error) {
	if strings.TrimSpace(snap.ProjectID) == "" {
		return nil, NewValidationError("project id is required")
	}
	if snap.ID == "" {
		snap.ID = newRowID()
	}
	if snap.Status == "" {
		snap.Status = SnapshotDraft
	}
	if snap.Source == "" {
		snap.Source = SnapshotSourcePIE
	}
	now := time.Now()
	snap.CreatedAt = now
	snap.UpdatedAt = now

	// max+1 then insert is a read-then-write race; the unique index on
	// (project_id, version_no) makes the loser retry with a re-read.
	var lastErr error
	for attempt := 0; attempt < snapshotInsertAttempts; attempt++ {
		var maxVersion sql.NullInt64
		if err := s.db.QueryRowContext(ctx, `SELECT MAX(version_no) FROM scope_snapshots WHERE project_id = ?`, snap.ProjectID).Scan(&maxVersion); err != nil {
			return nil, NewPersistenceError(err)
		}
		snap.VersionNo = int(maxVersion.Int64) + 1

		_, err := s.db.ExecContext(ctx, `INSERT INTO scope_snapshots (id, project_id, version_no, status, source, summary, timeline, price_target, price_floor, price_ceiling, hours_floor, hours_ceiling, payload, created_at, updated_at)
			VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
			snap.ID, snap.ProjectID, snap.VersionNo, string(snap.Status), string(snap.Source),
			snap.Summary, snap.Timeline,
			nullInt(snap.PriceTarget), nullInt(snap.PriceFloor), nullInt(snap.PriceCeiling),
			nullInt(snap.HoursFloor), nullInt(snap.HoursCeiling),
			marshalJSON(snap.Payload), timeToString(snap.CreatedAt), timeToString(snap.UpdatedAt))
		if isUniqueViolation(err) {
			lastErr = err
			continue
		}
		if err != nil {
			return nil, NewPersistenceError(err)
		}
		return &snap, nil
	}
	return nil, NewPersistenceError(fmt.Errorf("snapshot version contention after %d attempts: %w", snapshotInsertAttempts, lastErr))
}

const snapshotColumns = `id, project_id, version_no, status, source, summary, timeline, price_target, price_floor, price_ceiling, hours_floor, hours_ceiling, payload, created_at, updated_at`

func scanSnapshot(scan func(dest ...any) error) (*ScopeSnapshot, error) {
	var (
		snap                 ScopeSnapshot
		status, source       string
		target, floor, ceil  sql.NullInt64
		hFloor, hCeil        sql.NullInt64
		payload              sql.NullString
		createdAt, updatedAt string
	)
	err := scan(&snap.ID, &snap.ProjectID, &snap.VersionNo, &status, &source,
		&snap.Summary, &snap.Timeline, &target, &floor, &ceil, &hFloor, &hCeil,
		&payload, &createdAt, &updatedAt)
	if err != nil {
		return nil, err
	}
	snap.Status = SnapshotStatus(status)
	snap.Source = SnapshotSource(source)
	snap.PriceTarget = intPtr(target)
	snap.PriceFloor = intPtr(floor)
	snap.PriceCeiling = intPtr(ceil)
	snap.HoursFloor = intPtr(hFloor)
	snap.HoursCeiling = intPtr(hCeil)
	if payload.Valid && payload.String != "" {
		_ = json.Unmarshal([]byte(payload.String), &snap.Payload)
	}
	snap.CreatedAt = parseTime(createdAt)
	snap.UpdatedAt = parseTime(updatedAt)
	return &snap, nil
}

func (s *SQLiteStore) GetSnapshot(ctx context.Context, id string) (*ScopeSnapshot, error) {
	snap, err := scanSnapshot(s.db.QueryRowContext(ctx, `SELECT `+snapshotColumns+` FROM scope_snapshots WHERE id = ?`, id).Scan)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, NewNotFoundError("snapshot", id)
	}
	if err != nil {
		return nil, NewPersistenceError(err)
	}
	return snap, nil
}

func (s *SQLiteStore) LatestSnapshot(ctx context.Context, projectID string) (*ScopeSnapshot, error) {
	snap, err := scanSnapshot(s.db.QueryRowContext(ctx, `SELECT `+snapshotColumns+` FROM scope_snapshots
		WHERE project_id = ? ORDER BY version_no DESC LIMIT 1`, projectID).Scan)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, NewPersistenceError(err)
	}
	return snap, nil
}

func (s *SQLiteStore) ListSnapshots(ctx context.Context, projectID string) ([]ScopeSnapshot, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT `+snapshotColumns+` FROM scope_snapshots
		WHERE project_id = ? ORDER BY version_no ASC`, projectID)
	if err != nil {
		return nil, NewPersistenceError(err)
	}
	defer rows.Close()
	var out []ScopeSnapshot
	for rows.Next() {
		snap, err := scanSnapshot(rows.Scan)
		if err != nil {
			return nil, NewPersistenceError(err)
		}
		out = append(out, *snap)
	}
	if err := rows.Err(); err != nil {
		return nil, NewPersistenceError(err)
	}
	return out, nil
}

func (s *SQLiteStore) UpdateSnapshot(ctx context.Context, snap ScopeSnapshot) error {
	snap.UpdatedAt = time.Now()
	res, err := s.db.ExecContext(ctx, `UPDATE scope_snapshots SET status = ?, summary = ?, timeline = ?,
		price_target = ?, price_floor = ?, price_ceiling = ?, hours_floor = ?, hours_ceiling = ?,
		payload = ?, updated_at = ? WHERE id = ?`,
		string(snap.Status), snap.Summary, snap.Timeline,
		nullInt(snap.PriceTarget), nullInt(snap.PriceFloor), nullInt(snap.PriceCeiling),
		nullInt(snap.HoursFloor), nullInt(snap.HoursCeiling),
		marshalJSON(snap.Payload), timeToString(snap.UpdatedAt), snap.ID)
	if err != nil {
		return NewPersistenceError(err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return NewNotFoundError("snapshot", snap.ID)
	}
	return nil
}

// --- change orders ---

func (s *SQLiteStore) InsertChangeOrder(ctx context.Context, co ChangeOrder) (*ChangeOrder, error) {
	if strings.TrimSpace(co.ProjectID) == "" {
		return nil, NewValidationError("project id is required")
	}
	if co.ID == "" {
		co.ID = newRowID()
	}
	if co.Status == "" {
		co.Status = ChangeOrderRequested
	}
	now := time.Now()
	co.CreatedAt = now
	co.UpdatedAt = now
	_, err := s.db.ExecContext(ctx, `INSERT INTO change_orders (id, project_id, base_snapshot_id, applied_snapshot_id, title, reason, delta_price, delta_hours, status, requested_by, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		co.ID, co.ProjectID, co.BaseSnapshotID, co.AppliedSnapshotID, co.Title, co.Reason,
		co.DeltaPrice, co.DeltaHours, string(co.Status), co.RequestedBy,
		timeToString(co.CreatedAt), timeToString(co.UpdatedAt))
	if err != nil {
		return nil, NewPersistenceError(err)
	}
	return &co, nil
}

const changeOrderColumns = `id, project_id, base_snapshot_id, applied_snapshot_id, title, reason, delta_price, delta_hours, status, requested_by, created_at, updated_at`

func scanChangeOrder(scan func(dest ...any) error) (*ChangeOrder, error) {
	var (
		co                   ChangeOrder
		status               string
		createdAt, updatedAt string
	)
	err := scan(&co.ID, &co.ProjectID, &co.BaseSnapshotID, &co.AppliedSnapshotID,
		&co.Title, &co.Reason, &co.DeltaPrice, &co.DeltaHours, &status, &co.RequestedBy,
		&createdAt, &updatedAt)
	if err != nil {
		return nil, err
	}
	co.Status = ChangeOrderStatus(status)
	co.CreatedAt = parseTime(createdAt)
	co.UpdatedAt = parseTime(updatedAt)
	return &co, nil
}

func (s *SQLiteStore) GetChangeOrder(ctx context.Context, id string) (*ChangeOrder, error) {
	co, err := scanChangeOrder(s.db.QueryRowContext(ctx, `SELECT `+changeOrderColumns+` FROM change_orders WHERE id = ?`, id).Scan)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, NewNotFoundError("change order", id)
	}
	if err != nil {
		return nil, NewPersistenceError(err)
	}
	return co, nil
}

func (s *SQLiteStore) ListChangeOrders(ctx context.Context, projectID string) ([]ChangeOrder, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT `+changeOrderColumns+` FROM change_orders
		WHERE project_id = ? ORDER BY created_at ASC, id ASC`, projectID)
	if err != nil {
		return nil, NewPersistenceError(err)
	}
	defer rows.Close()
	var out []ChangeOrder
	for rows.Next() {
		co, err := scanChangeOrder(rows.Scan)
		if err != nil {
			return nil, NewPersistenceError(err)
		}
		out = append(out, *co)
	}
	if err := rows.Err(); err != nil {
		return nil, NewPersistenceError(err)
	}
	return out, nil
}

func (s *SQLiteStore) UpdateChangeOrder(ctx context.Context, co ChangeOrder) error {
	co.UpdatedAt = time.Now()
	res, err := s.db.ExecContext(ctx, `UPDATE change_orders SET status = ?, applied_snapshot_id = ?, title = ?, reason = ?, delta_price = ?, delta_hours = ?, updated_at = ?
		WHERE id = ?`,
		string(co.Status), co.AppliedSnapshotID, co.Title, co.Reason, co.DeltaPrice, co.DeltaHours,
		timeToString(co.UpdatedAt), co.ID)
	if err != nil {
		return NewPersistenceError(err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return NewNotFoundError("change order", co.ID)
	}
	return nil
}

func (s *SQLiteStore) Health(ctx context.Context) map[string]any {
	out := map[string]any{"ok": true}
	var quotes, reports int
	if err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM quotes`).Scan(&quotes); err != nil {
		out["ok"] = false
		out["error"] = err.Error()
		return out
	}
	_ = s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM reports`).Scan(&reports)
	out["quotes"] = quotes
	out["reports"] = reports
	return out
}

// Ensure SQLiteStore satisfies the Store interface at compile time.
var _ Store = (*SQLiteStore)(nil)
