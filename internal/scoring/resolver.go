// Package scoring resolves customer payment-risk scores, preferring the
// reasoning service and guaranteeing a deterministic fallback so every
// customer always receives a usable score.
package scoring

import (
	"context"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/sells-group/payscore/internal/metrics"
	"github.com/sells-group/payscore/internal/model"
	"github.com/sells-group/payscore/internal/source"
)

// Evaluator is the reasoning-service capability consumed by the resolver.
// Implemented by gateway.Gateway; mocked in tests.
type Evaluator interface {
	Evaluate(ctx context.Context, summary model.MetricSummary) (model.CustomerScore, error)
}

// Options configures a Resolver.
type Options struct {
	// AIEnabled toggles the reasoning path. When false the evaluator is
	// never invoked and every score comes from the fallback formula.
	AIEnabled bool

	// Concurrency bounds the bulk fan-out. Defaults to 5.
	Concurrency int

	// Bands overrides the tier thresholds. Zero value means DefaultBands.
	Bands Bands
}

// Resolver orchestrates aggregation, the reasoning gateway, and the fallback
// scorer into a single scoring pipeline. Resolve never fails: gateway errors
// downgrade quality (ai -> fallback), they do not surface to the caller.
type Resolver struct {
	evaluator   Evaluator
	fallback    *FallbackScorer
	bands       Bands
	aiEnabled   bool
	concurrency int
}

// NewResolver creates a Resolver. The evaluator may be nil only when
// opts.AIEnabled is false.
func NewResolver(evaluator Evaluator, opts Options) *Resolver {
	bands := opts.Bands
	if bands.LowMin == 0 && bands.MediumMin == 0 {
		bands = DefaultBands()
	}
	concurrency := opts.Concurrency
	if concurrency <= 0 {
		concurrency = 5
	}
	return &Resolver{
		evaluator:   evaluator,
		fallback:    NewFallbackScorer(bands),
		bands:       bands,
		aiEnabled:   opts.AIEnabled && evaluator != nil,
		concurrency: concurrency,
	}
}

// Bands returns the tier thresholds in effect.
func (r *Resolver) Bands() Bands {
	return r.bands
}

// Resolve scores one customer from raw records. The AI path and the fallback
// path are mutually exclusive outcomes: fields are never merged across them.
func (r *Resolver) Resolve(ctx context.Context, customer model.Customer, invoices []model.InvoiceRecord, payments []model.PaymentRecord, asOf time.Time) model.CustomerScore {
	summary := metrics.Aggregate(invoices, payments, asOf)

	var cs model.CustomerScore
	if r.aiEnabled {
		aiScore, err := r.evaluator.Evaluate(ctx, summary)
		if err != nil {
			zap.L().Warn("scoring: reasoning path failed, using fallback",
				zap.String("customer_id", customer.ID),
				zap.Error(err),
			)
			cs = r.fallback.Score(summary)
		} else {
			cs = aiScore
		}
	} else {
		cs = r.fallback.Score(summary)
	}

	cs.CustomerID = customer.ID
	cs.CustomerName = customer.Name
	return cs
}

// ResolveAll scores a set of customers concurrently, fetching records from
// the given source. Output ordering matches the input customer ordering, not
// completion order. A record-source failure marks that one customer's entry
// and never aborts the batch.
func (r *Resolver) ResolveAll(ctx context.Context, customers []model.Customer, src source.RecordSource, asOf time.Time) *model.BatchReport {
	report := &model.BatchReport{
		ID:        uuid.New().String(),
		StartedAt: time.Now().UTC(),
		Results:   make([]model.ScoreStatus, len(customers)),
	}

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(r.concurrency)

	for i, customer := range customers {
		i, customer := i, customer
		g.Go(func() error {
			status := model.ScoreStatus{
				CustomerID:   customer.ID,
				CustomerName: customer.Name,
			}

			invoices, err := src.GetInvoices(gctx, customer.ID)
			if err != nil {
				status.Error = err.Error()
				zap.L().Error("scoring: failed to fetch invoices",
					zap.String("customer_id", customer.ID),
					zap.Error(err),
				)
				report.Results[i] = status
				return nil
			}

			payments, err := src.GetPayments(gctx, customer.ID)
			if err != nil {
				status.Error = err.Error()
				zap.L().Error("scoring: failed to fetch payments",
					zap.String("customer_id", customer.ID),
					zap.Error(err),
				)
				report.Results[i] = status
				return nil
			}

			score := r.Resolve(gctx, customer, invoices, payments, asOf)
			status.Score = &score
			report.Results[i] = status
			return nil
		})
	}

	_ = g.Wait()

	for _, st := range report.Results {
		switch {
		case st.Error != "":
			report.Failed++
		case st.Score != nil && st.Score.Source == model.SourceAI:
			report.AICount++
		case st.Score != nil:
			report.Fallbacks++
		}
	}

	report.DurationMS = time.Since(report.StartedAt).Milliseconds()

	zap.L().Info("scoring: batch complete",
		zap.String("report_id", report.ID),
		zap.Int("customers", len(customers)),
		zap.Int("ai", report.AICount),
		zap.Int("fallback", report.Fallbacks),
		zap.Int("failed", report.Failed),
		zap.Int64("duration_ms", report.DurationMS),
	)

	return report
}

// Scores extracts the successfully resolved scores from a report, preserving
// order and skipping failed entries.
func Scores(report *model.BatchReport) []model.CustomerScore {
	out := make([]model.CustomerScore, 0, len(report.Results))
	for _, st := range report.Results {
		if st.Score != nil {
			out = append(out, *st.Score)
		}
	}
	return out
}
