// Package httpapi exposes the PIE engine as thin JSON handlers. Every
// response is an {ok, error?, ...data} envelope; all real behavior lives in
// the library packages.
package httpapi

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strings"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.uber.org/zap"

	"github.com/joelkehle/salesops-pie/internal/intake"
	"github.com/joelkehle/salesops-pie/internal/pie"
	"github.com/joelkehle/salesops-pie/internal/pricing"
	"github.com/joelkehle/salesops-pie/internal/render"
	"github.com/joelkehle/salesops-pie/internal/report"
	"github.com/joelkehle/salesops-pie/internal/scope"
	"github.com/joelkehle/salesops-pie/internal/scoring"
)

type Server struct {
	store   pie.Store
	reports *report.Orchestrator
	scope   *scope.Manager
	pdf     *render.PDFRenderer
	log     *zap.Logger
}

func NewServer(store pie.Store, reports *report.Orchestrator, scopeMgr *scope.Manager, log *zap.Logger) http.Handler {
	if log == nil {
		log = zap.NewNop()
	}
	s := &Server{
		store:   store,
		reports: reports,
		scope:   scopeMgr,
		pdf:     render.NewPDFRenderer(),
		log:     log,
	}
	mux := http.NewServeMux()
	mux.HandleFunc("/v1/quotes", s.handleCreateQuote)
	mux.HandleFunc("/v1/quotes/adjustments", s.handleAdjustments)
	mux.HandleFunc("/v1/quotes/", s.handleQuoteByID)
	mux.HandleFunc("/v1/reports/generate", s.handleGenerateReport)
	mux.HandleFunc("/v1/reports/", s.handleReportByID)
	mux.HandleFunc("/v1/score/preview", s.handleScorePreview)
	mux.HandleFunc("/v1/snapshots", s.handleCreateSnapshot)
	mux.HandleFunc("/v1/snapshots/", s.handleSnapshotByID)
	mux.HandleFunc("/v1/projects/", s.handleProjectResources)
	mux.HandleFunc("/v1/change-orders", s.handleCreateChangeOrder)
	mux.HandleFunc("/v1/change-orders/", s.handleChangeOrderStatus)
	mux.HandleFunc("/v1/health", s.handleHealth)
	return traceRequests(mux)
}

// traceRequests wraps the mux so every request gets a span carrying the
// method, path, and final status code.
func traceRequests(next http.Handler) http.Handler {
	tracer := otel.Tracer("salesops-pie/httpapi")
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ctx, span := tracer.Start(r.Context(), r.Method+" "+r.URL.Path)
		defer span.End()

		sw := &statusWriter{ResponseWriter: w, status: http.StatusOK}
		next.ServeHTTP(sw, r.WithContext(ctx))

		span.SetAttributes(
			attribute.String("http.method", r.Method),
			attribute.String("http.path", r.URL.Path),
			attribute.Int("http.status_code", sw.status),
		)
	})
}

type statusWriter struct {
	http.ResponseWriter
	status int
}

func (w *statusWriter) WriteHeader(status int) {
	w.status = status
	w.ResponseWriter.WriteHeader(status)
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}

func writeError(w http.ResponseWriter, err error) {
	var pe *pie.Error
	if errors.As(err, &pe) {
		writeJSON(w, pe.Status, map[string]any{
			"ok": false,
			"error": map[string]any{
				"code":    pe.Code,
				"message": pe.Message,
			},
		})
		return
	}
	writeJSON(w, 500, map[string]any{
		"ok": false,
		"error": map[string]any{
			"code":    pie.CodeInternal,
			"message": err.Error(),
		},
	})
}

func readBody(r *http.Request) ([]byte, error) {
	if r.Body == nil {
		return []byte("{}"), nil
	}
	blob, err := io.ReadAll(r.Body)
	if err != nil {
		return nil, err
	}
	if len(blob) == 0 {
		blob = []byte("{}")
	}
	return blob, nil
}

func decodeJSON(r *http.Request, dst any) error {
	blob, err := readBody(r)
	if err != nil {
		return pie.NewValidationError("read body: " + err.Error())
	}
	if err := json.Unmarshal(blob, dst); err != nil {
		return pie.NewValidationError("invalid json: " + err.Error())
	}
	return nil
}

func methodOnly(w http.ResponseWriter, r *http.Request, method string) bool {
	if r.Method != method {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return false
	}
	return true
}

// --- quotes ---

func (s *Server) handleCreateQuote(w http.ResponseWriter, r *http.Request) {
	if !methodOnly(w, r, http.MethodPost) {
		return
	}
	var req struct {
		ID           string         `json:"id"`
		Source       string         `json:"source"`
		ContactName  string         `json:"contact_name"`
		ContactEmail string         `json:"contact_email"`
		Intake       map[string]any `json:"intake"`
		BaseTarget   any            `json:"base_target"`
		BaseFloor    any            `json:"base_floor"`
		BaseCeiling  any            `json:"base_ceiling"`
	}
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, err)
		return
	}
	id := strings.TrimSpace(req.ID)
	if id == "" {
		id = pie.NewRowID()
	}
	quote, err := s.store.CreateQuote(r.Context(), pie.Quote{
		ID:           id,
		Source:       pie.QuoteSource(req.Source),
		ContactName:  req.ContactName,
		ContactEmail: req.ContactEmail,
		RawIntake:    req.Intake,
		BaseTarget:   pricing.ParseAmount(req.BaseTarget),
		BaseFloor:    pricing.ParseAmount(req.BaseFloor),
		BaseCeiling:  pricing.ParseAmount(req.BaseCeiling),
	})
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, 200, map[string]any{"ok": true, "quote": quote})
}

func (s *Server) handleQuoteByID(w http.ResponseWriter, r *http.Request) {
	if !methodOnly(w, r, http.MethodGet) {
		return
	}
	id := strings.Trim(strings.TrimPrefix(r.URL.Path, "/v1/quotes/"), "/")
	if id == "" {
		w.WriteHeader(http.StatusNotFound)
		return
	}
	quote, err := s.store.GetQuote(r.Context(), id)
	if err != nil {
		writeError(w, err)
		return
	}
	guardrail, err := s.reports.Guardrail(r.Context(), id)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, 200, map[string]any{"ok": true, "quote": quote, "guardrail": guardrail})
}

// handleAdjustments stores the admin adjustment set for a quote and returns
// the recomputed guardrail. Empty or missing numeric fields are no-ops.
func (s *Server) handleAdjustments(w http.ResponseWriter, r *http.Request) {
	if !methodOnly(w, r, http.MethodPost) {
		return
	}
	var req struct {
		QuoteID        string `json:"quote_id"`
		DiscountPct    any    `json:"discount_pct"`
		DiscountAmount any    `json:"discount_amount"`
		IncreaseAmount any    `json:"increase_amount"`
		CustomTarget   any    `json:"custom_target"`
		Note           string `json:"note"`
	}
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, err)
		return
	}
	quoteID := strings.TrimSpace(req.QuoteID)
	if quoteID == "" {
		writeError(w, pie.NewValidationError("quote_id is required"))
		return
	}
	if _, err := s.store.GetQuote(r.Context(), quoteID); err != nil {
		writeError(w, err)
		return
	}
	set, err := s.store.SaveAdjustments(r.Context(), pie.AdjustmentSet{
		QuoteID:        quoteID,
		DiscountPct:    pricing.ParsePct(req.DiscountPct),
		DiscountAmount: pricing.ParseAmount(req.DiscountAmount),
		IncreaseAmount: pricing.ParseAmount(req.IncreaseAmount),
		CustomTarget:   pricing.ParseAmount(req.CustomTarget),
		Note:           req.Note,
	})
	if err != nil {
		writeError(w, err)
		return
	}
	guardrail, err := s.reports.Guardrail(r.Context(), quoteID)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, 200, map[string]any{"ok": true, "adjustments": set, "guardrail": guardrail})
}

// --- reports ---

func (s *Server) handleGenerateReport(w http.ResponseWriter, r *http.Request) {
	if !methodOnly(w, r, http.MethodPost) {
		return
	}
	var req struct {
		QuoteID        string `json:"quote_id"`
		Force          bool   `json:"force"`
		FollowUpNote   string `json:"follow_up_note"`
		ContinuationID string `json:"continuation_id"`
	}
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, err)
		return
	}
	rep, cached, err := s.reports.GenerateOrReuse(r.Context(), strings.TrimSpace(req.QuoteID), report.GenerateOptions{
		Force:          req.Force,
		FollowUpNote:   req.FollowUpNote,
		ContinuationID: req.ContinuationID,
	})
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, 200, map[string]any{"ok": true, "report": rep, "cached": cached})
}

func (s *Server) handleReportByID(w http.ResponseWriter, r *http.Request) {
	if !methodOnly(w, r, http.MethodGet) {
		return
	}
	rest := strings.Trim(strings.TrimPrefix(r.URL.Path, "/v1/reports/"), "/")
	id := rest
	format := ""
	if i := strings.IndexByte(rest, '/'); i >= 0 {
		id, format = rest[:i], rest[i+1:]
	}
	if id == "" {
		w.WriteHeader(http.StatusNotFound)
		return
	}
	rep, err := s.store.GetReport(r.Context(), id)
	if err != nil {
		writeError(w, err)
		return
	}

	switch format {
	case "":
		writeJSON(w, 200, map[string]any{"ok": true, "report": rep})
	case "html", "pdf":
		s.renderReport(r.Context(), w, rep, format)
	default:
		w.WriteHeader(http.StatusNotFound)
	}
}

func (s *Server) renderReport(ctx context.Context, w http.ResponseWriter, rep *pie.Report, format string) {
	guardrail, err := s.reports.Guardrail(ctx, rep.QuoteID)
	if err != nil {
		writeError(w, err)
		return
	}
	markdown := render.BuildQuoteMarkdown(rep, guardrail, nil)

	if format == "html" {
		doc, err := render.RenderHTML(markdown, "Project Evaluation")
		if err != nil {
			writeError(w, pie.NewInternalError(err))
			return
		}
		w.Header().Set("Content-Type", "text/html; charset=utf-8")
		_, _ = w.Write([]byte(doc))
		return
	}

	pdf, err := s.pdf.Render(ctx, markdown, "Project Evaluation")
	if err != nil {
		writeError(w, pie.NewInternalError(err))
		return
	}
	w.Header().Set("Content-Type", "application/pdf")
	_, _ = w.Write(pdf)
}

// --- score preview ---

// handleScorePreview runs the pure pipeline (normalize, score, guardrail)
// over a raw payload without persisting anything. Used by the intake form for
// instant estimates.
func (s *Server) handleScorePreview(w http.ResponseWriter, r *http.Request) {
	if !methodOnly(w, r, http.MethodPost) {
		return
	}
	var req struct {
		Intake       map[string]any `json:"intake"`
		Query        map[string]any `json:"query"`
		BaseEstimate any            `json:"base_estimate"`
		Adjustments  struct {
			DiscountPct    any `json:"discount_pct"`
			DiscountAmount any `json:"discount_amount"`
			IncreaseAmount any `json:"increase_amount"`
			CustomTarget   any `json:"custom_target"`
		} `json:"adjustments"`
	}
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, err)
		return
	}
	canonical := intake.Normalize(req.Intake, req.Query)
	base := 0
	if v := pricing.ParseAmount(req.BaseEstimate); v != nil {
		base = *v
	}
	score := scoring.Score(canonical, base)
	guardrail := pricing.ComputeGuardrail(
		pricing.Base{Target: pricing.ParseAmount(req.BaseEstimate)},
		pricing.Adjustments{
			DiscountPct:    pricing.ParsePct(req.Adjustments.DiscountPct),
			DiscountAmount: pricing.ParseAmount(req.Adjustments.DiscountAmount),
			IncreaseAmount: pricing.ParseAmount(req.Adjustments.IncreaseAmount),
			CustomTarget:   pricing.ParseAmount(req.Adjustments.CustomTarget),
		})
	writeJSON(w, 200, map[string]any{
		"ok":        true,
		"intake":    canonical,
		"score":     score,
		"guardrail": guardrail,
	})
}

// --- snapshots ---

func (s *Server) handleCreateSnapshot(w http.ResponseWriter, r *http.Request) {
	if !methodOnly(w, r, http.MethodPost) {
		return
	}
	var req struct {
		QuoteID   string `json:"quote_id"`
		ProjectID string `json:"project_id"`
		Manual    *struct {
			Summary      string         `json:"summary"`
			Timeline     string         `json:"timeline"`
			PriceTarget  any            `json:"price_target"`
			PriceFloor   any            `json:"price_floor"`
			PriceCeiling any            `json:"price_ceiling"`
			HoursFloor   any            `json:"hours_floor"`
			HoursCeiling any            `json:"hours_ceiling"`
			Payload      map[string]any `json:"payload"`
		} `json:"manual"`
	}
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, err)
		return
	}

	var (
		snap *pie.ScopeSnapshot
		err  error
	)
	switch {
	case req.Manual != nil:
		if strings.TrimSpace(req.ProjectID) == "" {
			writeError(w, pie.NewValidationError("project_id is required for a manual snapshot"))
			return
		}
		snap, err = s.scope.CreateManualSnapshot(r.Context(), req.ProjectID, scope.ManualSnapshot{
			Summary:      req.Manual.Summary,
			Timeline:     req.Manual.Timeline,
			PriceTarget:  pricing.ParseAmount(req.Manual.PriceTarget),
			PriceFloor:   pricing.ParseAmount(req.Manual.PriceFloor),
			PriceCeiling: pricing.ParseAmount(req.Manual.PriceCeiling),
			HoursFloor:   pricing.ParseAmount(req.Manual.HoursFloor),
			HoursCeiling: pricing.ParseAmount(req.Manual.HoursCeiling),
			Payload:      req.Manual.Payload,
		})
	case strings.TrimSpace(req.QuoteID) != "":
		snap, err = s.scope.CreateSnapshotFromLatestReport(r.Context(), req.QuoteID)
	default:
		writeError(w, pie.NewValidationError("quote_id or project_id+manual is required"))
		return
	}
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, 200, map[string]any{"ok": true, "snapshot": snap})
}

func (s *Server) handleSnapshotByID(w http.ResponseWriter, r *http.Request) {
	rest := strings.Trim(strings.TrimPrefix(r.URL.Path, "/v1/snapshots/"), "/")
	id := rest
	action := ""
	if i := strings.IndexByte(rest, '/'); i >= 0 {
		id, action = rest[:i], rest[i+1:]
	}
	if id == "" {
		w.WriteHeader(http.StatusNotFound)
		return
	}

	switch {
	case action == "" && r.Method == http.MethodGet:
		snap, err := s.store.GetSnapshot(r.Context(), id)
		if err != nil {
			writeError(w, err)
			return
		}
		writeJSON(w, 200, map[string]any{"ok": true, "snapshot": snap})
	case action == "" && r.Method == http.MethodPatch:
		s.patchSnapshot(w, r, id)
	case action == "override" && r.Method == http.MethodPost:
		s.overrideSnapshotStatus(w, r, id)
	default:
		w.WriteHeader(http.StatusMethodNotAllowed)
	}
}

func (s *Server) patchSnapshot(w http.ResponseWriter, r *http.Request, id string) {
	var req struct {
		Status       *string `json:"status"`
		Summary      *string `json:"summary"`
		Timeline     *string `json:"timeline"`
		PriceTarget  any     `json:"price_target"`
		PriceFloor   any     `json:"price_floor"`
		PriceCeiling any     `json:"price_ceiling"`
		HoursFloor   any     `json:"hours_floor"`
		HoursCeiling any     `json:"hours_ceiling"`
	}
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, err)
		return
	}
	patch := scope.SnapshotPatch{
		Summary:      req.Summary,
		Timeline:     req.Timeline,
		PriceTarget:  pricing.ParseAmount(req.PriceTarget),
		PriceFloor:   pricing.ParseAmount(req.PriceFloor),
		PriceCeiling: pricing.ParseAmount(req.PriceCeiling),
		HoursFloor:   pricing.ParseAmount(req.HoursFloor),
		HoursCeiling: pricing.ParseAmount(req.HoursCeiling),
	}
	if req.Status != nil {
		status := pie.SnapshotStatus(strings.TrimSpace(*req.Status))
		patch.Status = &status
	}
	snap, err := s.scope.UpdateSnapshot(r.Context(), id, patch)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, 200, map[string]any{"ok": true, "snapshot": snap})
}

func (s *Server) overrideSnapshotStatus(w http.ResponseWriter, r *http.Request, id string) {
	var req struct {
		Status string `json:"status"`
		Actor  string `json:"actor"`
	}
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, err)
		return
	}
	snap, err := s.scope.AdminOverrideStatus(r.Context(), id, pie.SnapshotStatus(strings.TrimSpace(req.Status)), req.Actor)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, 200, map[string]any{"ok": true, "snapshot": snap})
}

// --- projects ---

func (s *Server) handleProjectResources(w http.ResponseWriter, r *http.Request) {
	if !methodOnly(w, r, http.MethodGet) {
		return
	}
	rest := strings.Trim(strings.TrimPrefix(r.URL.Path, "/v1/projects/"), "/")
	id := rest
	resource := ""
	if i := strings.IndexByte(rest, '/'); i >= 0 {
		id, resource = rest[:i], rest[i+1:]
	}
	if id == "" {
		w.WriteHeader(http.StatusNotFound)
		return
	}

	switch resource {
	case "":
		project, err := s.store.GetProject(r.Context(), id)
		if err != nil {
			writeError(w, err)
			return
		}
		writeJSON(w, 200, map[string]any{"ok": true, "project": project})
	case "snapshots":
		snaps, err := s.scope.ListSnapshots(r.Context(), id)
		if err != nil {
			writeError(w, err)
			return
		}
		writeJSON(w, 200, map[string]any{"ok": true, "snapshots": snaps})
	case "change-orders":
		orders, err := s.scope.ListChangeOrders(r.Context(), id)
		if err != nil {
			writeError(w, err)
			return
		}
		writeJSON(w, 200, map[string]any{"ok": true, "change_orders": orders})
	default:
		w.WriteHeader(http.StatusNotFound)
	}
}

// --- change orders ---

func (s *Server) handleCreateChangeOrder(w http.ResponseWriter, r *http.Request) {
	if !methodOnly(w, r, http.MethodPost) {
		return
	}
	var req struct {
		ProjectID      string `json:"project_id"`
		Title          string `json:"title"`
		Reason         string `json:"reason"`
		DeltaPrice     any    `json:"delta_price"`
		DeltaHours     any    `json:"delta_hours"`
		BaseSnapshotID string `json:"base_snapshot_id"`
		RequestedBy    string `json:"requested_by"`
	}
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, err)
		return
	}
	body := scope.NewChangeOrder{
		Title:          req.Title,
		Reason:         req.Reason,
		BaseSnapshotID: req.BaseSnapshotID,
		RequestedBy:    req.RequestedBy,
	}
	if v := pricing.ParseAmount(req.DeltaPrice); v != nil {
		body.DeltaPrice = *v
	}
	if v := pricing.ParseAmount(req.DeltaHours); v != nil {
		body.DeltaHours = *v
	}
	co, err := s.scope.CreateChangeOrder(r.Context(), strings.TrimSpace(req.ProjectID), body)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, 200, map[string]any{"ok": true, "change_order": co})
}

func (s *Server) handleChangeOrderStatus(w http.ResponseWriter, r *http.Request) {
	rest := strings.Trim(strings.TrimPrefix(r.URL.Path, "/v1/change-orders/"), "/")
	id := rest
	action := ""
	if i := strings.IndexByte(rest, '/'); i >= 0 {
		id, action = rest[:i], rest[i+1:]
	}
	if id == "" {
		w.WriteHeader(http.StatusNotFound)
		return
	}

	switch {
	case action == "" && r.Method == http.MethodGet:
		co, err := s.store.GetChangeOrder(r.Context(), id)
		if err != nil {
			writeError(w, err)
			return
		}
		writeJSON(w, 200, map[string]any{"ok": true, "change_order": co})
	case action == "status" && r.Method == http.MethodPost:
		var req struct {
			Status string `json:"status"`
		}
		if err := decodeJSON(r, &req); err != nil {
			writeError(w, err)
			return
		}
		co, err := s.scope.SetChangeOrderStatus(r.Context(), id, pie.ChangeOrderStatus(strings.TrimSpace(req.Status)))
		if err != nil {
			writeError(w, err)
			return
		}
		writeJSON(w, 200, map[string]any{"ok": true, "change_order": co})
	default:
		w.WriteHeader(http.StatusMethodNotAllowed)
	}
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	if !methodOnly(w, r, http.MethodGet) {
		return
	}
	writeJSON(w, 200, s.store.Health(r.Context()))
}
