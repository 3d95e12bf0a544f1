// Package report orchestrates idempotent report generation against the
// external reasoning service: caching against the latest-report pointer,
// conversational continuation, strict schema validation, and ordered writes
// (report row first, pointer last).
package report

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
	"github.com/joelkehle/salesops-pie/internal/intake"
	"github.com/joelkehle/salesops-pie/internal/pie"
	"github.com/joelkehle/salesops-pie/internal/pricing"
	"github.com/joelkehle/salesops-pie/internal/scoring"
)

type Orchestrator struct {
	store   pie.Store
	caller  Caller
	pricing config.PricingConfig
	timeout time.Duration
	log     *zap.Logger
	tracer  trace.Tracer
}

func NewOrchestrator(store pie.Store, caller Caller, pricing config.PricingConfig, timeout time.Duration, log *zap.Logger) *Orchestrator {
	if log == nil {
		log = zap.NewNop()
	}
	return &Orchestrator{
		store:   store,
		caller:  caller,
		pricing: pricing,
		timeout: timeout,
		log:     log,
		tracer:  otel.Tracer("salesops-pie/report"),
	}
}

type GenerateOptions struct {
	Force          bool
	FollowUpNote   string
	ContinuationID string
}

// GenerateOrReuse returns the authoritative report for a quote. Without force
// or a follow-up note, an existing latest report is returned as-is and no
// external call is made. The second return value reports a cache hit.
func (o *Orchestrator) GenerateOrReuse(ctx context.Context, quoteID string, opts GenerateOptions) (*pie.Report, bool, error) {
	if strings.TrimSpace(quoteID) == "" {
		return nil, false, pie.NewValidationError("quote id is required")
	}

	ctx, span := o.tracer.Start(ctx, "report.GenerateOrReuse",
		trace.WithAttributes(attribute.String("quote.id", quoteID), attribute.Bool("force", opts.Force)))
	defer span.End()

	quote, err := o.store.GetQuote(ctx, quoteID)
	if err != nil {
		return nil, false, err
	}

	followUp := strings.TrimSpace(opts.FollowUpNote)
	if !opts.Force && followUp == "" && quote.LatestReportID != "" {
		existing, err := o.store.GetReport(ctx, quote.LatestReportID)
		if err != nil {
			return nil, false, err
		}
		span.SetAttributes(attribute.Bool("cache_hit", true))
		return existing, true, nil
	}

	// Continue the prior conversational thread when one exists.
	continuation := strings.TrimSpace(opts.ContinuationID)
	priorOutput := ""
	prior, err := o.store.LatestReportByQuote(ctx, quoteID)
	if err != nil {
		return nil, false, err
	}
	if prior != nil {
		if continuation == "" {
			continuation = prior.ExternalResponseID
		}
		if continuation != "" && continuation == prior.ExternalResponseID {
			priorOutput = prior.RawModelOutput
		}
	}

	canonical := intake.Normalize(quote.RawIntake, nil)
	baseEstimate := o.pricing.TargetForTier(canonical.TierHint)
	if quote.BaseTarget != nil {
		baseEstimate = *quote.BaseTarget
	}
	local := scoring.Score(canonical, baseEstimate)

	callCtx, cancel := context.WithTimeout(ctx, o.timeout)
	defer cancel()
	resp, err := o.caller.Generate(callCtx, GenerateRequest{
		Prompt:           buildPrompt(canonical, local, baseEstimate, followUp),
		PriorModelOutput: priorOutput,
	})
	if err != nil {
		if isTimeout(err) {
			return nil, false, pie.NewGenerationFailed(fmt.Errorf("reasoning service timed out after %s", o.timeout))
		}
		return nil, false, pie.NewGenerationFailed(err)
	}

	payload, err := ParsePayload(resp.Text)
	if err != nil {
		return nil, false, pie.NewGenerationFailed(err)
	}

	row := pie.Report{
		ID:                 pie.NewRowID(),
		QuoteID:            quoteID,
		Score:              payload.Score,
		Tier:               payload.Tier,
		Confidence:         payload.Confidence,
		Summary:            payload.Summary,
		Payload:            payload,
		ExternalResponseID: resp.ResponseID,
		RawModelOutput:     resp.Text,
		CreatedAt:          time.Now(),
	}
	inserted, err := o.store.InsertReport(ctx, row)
	if err != nil {
		return nil, false, err
	}
	// Pointer update is the last critical write: a crash before this line
	// leaves the pointer on the previous (still valid) report.
	if err := o.store.SetLatestReport(ctx, quoteID, inserted.ID, inserted.CreatedAt); err != nil {
		return nil, false, err
	}

	// Secondary status bump is best-effort; its failure never fails the
	// generation.
	if quote.Status == pie.QuoteStatusNew {
		if err := o.store.UpdateQuoteStatus(ctx, quoteID, pie.QuoteStatusAnalyzed); err != nil {
			o.log.Warn("quote status bump failed", zap.String("quote_id", quoteID), zap.Error(err))
		}
	}

	span.SetAttributes(attribute.Int("report.score", inserted.Score), attribute.String("report.tier", inserted.Tier))
	return inserted, false, nil
}

// Guardrail resolves the current adjusted pricing for a quote by combining
// its base triple with the stored admin adjustment set.
func (o *Orchestrator) Guardrail(ctx context.Context, quoteID string) (pricing.Result, error) {
	quote, err := o.store.GetQuote(ctx, quoteID)
	if err != nil {
		return pricing.Result{}, err
	}
	set, err := o.store.GetAdjustments(ctx, quoteID)
	if err != nil {
		return pricing.Result{}, err
	}
	return ResolveGuardrail(quote, set), nil
}

// ResolveGuardrail maps the persisted rows into the pure calculator's input.
func ResolveGuardrail(q *pie.Quote, set *pie.AdjustmentSet) pricing.Result {
	base := pricing.Base{Target: q.BaseTarget, Floor: q.BaseFloor, Ceiling: q.BaseCeiling}
	var adj pricing.Adjustments
	if set != nil {
		adj = pricing.Adjustments{
			DiscountPct:    set.DiscountPct,
			DiscountAmount: set.DiscountAmount,
			IncreaseAmount: set.IncreaseAmount,
			CustomTarget:   set.CustomTarget,
			Note:           set.Note,
		}
	}
	return pricing.ComputeGuardrail(base, adj)
}
