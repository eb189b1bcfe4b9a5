package scoring

import (
	"fmt"
	"math"

	"github.com/sells-group/payscore/internal/model"
)

const (
	overdueWeight = 10.0
	delayWeight   = 1.0
)

// FallbackScorer computes a deterministic score from a metric summary. It is
// the safety net when the reasoning service is disabled, unreachable, or
// returns an invalid response: total over all valid summaries, no I/O,
// never fails.
type FallbackScorer struct {
	bands Bands
}

// NewFallbackScorer creates a FallbackScorer using the given tier bands.
func NewFallbackScorer(bands Bands) *FallbackScorer {
	return &FallbackScorer{bands: bands}
}

// Score applies the business rule
// score = 100 - 10*overdue_count - 1*avg_delay_days, clamped to [0,100].
func (f *FallbackScorer) Score(summary model.MetricSummary) model.CustomerScore {
	raw := 100 - overdueWeight*float64(summary.OverdueCount) - delayWeight*summary.AvgDelayDays
	// Round before classifying so the stored score and its tier can never
	// disagree at a band boundary.
	score := math.Round(math.Min(100, math.Max(0, raw))*100) / 100

	risk, action := f.bands.Classify(score)

	return model.CustomerScore{
		Score:     score,
		RiskLevel: risk,
		Action:    action,
		Insights:  fallbackInsights(summary),
		Source:    model.SourceFallback,
		Summary:   summary,
	}
}

// fallbackInsights renders the fixed template used on the deterministic path.
func fallbackInsights(s model.MetricSummary) string {
	return fmt.Sprintf(
		"Deterministic assessment: %d of %d invoices overdue, average payment delay %.1f days, %.1f%% of invoices paid, %.2f outstanding.",
		s.OverdueCount, s.TotalInvoices, s.AvgDelayDays, s.ReliabilityPercent, s.TotalOutstanding,
	)
}
