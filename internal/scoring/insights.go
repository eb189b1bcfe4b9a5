package scoring

import (
	"fmt"
	"math"
	"sort"
	"strings"
	"time"

	"github.com/sells-group/payscore/internal/model"
)

// RenderInsights produces a rule-based narrative for a resolved score. Unlike
// the reasoning service's prose it is fully deterministic, so it also serves
// as the detail view when scores come from the fallback path.
func RenderInsights(score model.CustomerScore) string {
	s := score.Summary
	var parts []string

	switch score.RiskLevel {
	case model.RiskLow:
		parts = append(parts, fmt.Sprintf("%s is a low-risk customer with excellent payment behavior.", score.CustomerName))
	case model.RiskMedium:
		parts = append(parts, fmt.Sprintf("%s shows moderate risk. Monitor payment patterns closely.", score.CustomerName))
	default:
		parts = append(parts, fmt.Sprintf("%s is high-risk. Consider credit limits or stricter payment terms.", score.CustomerName))
	}

	switch {
	case s.ReliabilityPercent >= 90:
		parts = append(parts, fmt.Sprintf("Highly reliable with a %.1f%% payment rate.", s.ReliabilityPercent))
	case s.ReliabilityPercent >= 70:
		parts = append(parts, fmt.Sprintf("Moderate reliability at %.1f%% of invoices paid.", s.ReliabilityPercent))
	default:
		parts = append(parts, fmt.Sprintf("Low reliability with only %.1f%% of invoices paid.", s.ReliabilityPercent))
	}

	switch {
	case s.AvgDelayDays == 0:
		parts = append(parts, "Always pays on or before the due date.")
	case s.AvgDelayDays < 7:
		parts = append(parts, fmt.Sprintf("Typically pays within %.1f days of the due date.", s.AvgDelayDays))
	default:
		parts = append(parts, fmt.Sprintf("Average delay of %.1f days indicates payment challenges.", s.AvgDelayDays))
	}

	if s.TotalOutstanding > 0 {
		parts = append(parts, fmt.Sprintf("Current outstanding balance: %.2f.", s.TotalOutstanding))
	}

	parts = append(parts, fmt.Sprintf("Transaction history: %d of %d invoices paid.", s.PaidCount, s.TotalInvoices))

	switch {
	case score.Score >= 80:
		parts = append(parts, "Recommended: consider extended payment terms or a credit increase.")
	case score.Score <= 40:
		parts = append(parts, "Recommended: require advance payment or reduce credit limits.")
	}

	return strings.Join(parts, " ")
}

// TrendAnalysis compares the recent half of the invoice history against the
// older half by average lateness and reports whether payment behavior is
// improving, worsening, or stable.
func TrendAnalysis(invoices []model.InvoiceRecord, asOf time.Time) string {
	if len(invoices) == 0 {
		return "No recent transaction data available."
	}

	sorted := make([]model.InvoiceRecord, len(invoices))
	copy(sorted, invoices)
	sort.Slice(sorted, func(i, j int) bool {
		return sorted[i].IssueDate.Before(sorted[j].IssueDate)
	})

	mid := len(sorted) / 2
	recent := avgLateDays(sorted[mid:], asOf)
	older := recent
	if mid > 0 {
		older = avgLateDays(sorted[:mid], asOf)
	}

	switch {
	case recent < older*0.8:
		return "Payment behavior is improving over time."
	case recent > older*1.2:
		return "Payment delays are increasing. Early intervention recommended."
	default:
		return "Payment behavior remains stable."
	}
}

func avgLateDays(invoices []model.InvoiceRecord, asOf time.Time) float64 {
	if len(invoices) == 0 {
		return 0
	}
	var total float64
	for _, inv := range invoices {
		total += lateDays(inv, asOf)
	}
	return total / float64(len(invoices))
}

// lateDays measures how far past due an invoice ran: up to the paid date for
// settled invoices, up to asOf for open ones. Never negative.
func lateDays(inv model.InvoiceRecord, asOf time.Time) float64 {
	if inv.DueDate.IsZero() {
		return 0
	}
	ref := asOf
	if inv.PaidDate != nil {
		ref = *inv.PaidDate
	}
	return math.Max(0, ref.Sub(inv.DueDate).Hours()/24)
}
