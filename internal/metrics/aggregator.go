// Package metrics turns raw invoice and payment records into the fixed
// statistical summary consumed by both scoring paths.
package metrics

import (
	"math"
	"time"

	"go.uber.org/zap"

	"github.com/sells-group/payscore/internal/model"
)

// Aggregate computes a MetricSummary for one customer's records as of the
// given evaluation time. It is a pure function: malformed records are
// rejected at the source boundary, so data content never causes a failure
// here.
//
// Payments are accepted for contract completeness; the current metric set is
// derived entirely from invoice state (paid date, due date, amount).
func Aggregate(invoices []model.InvoiceRecord, _ []model.PaymentRecord, asOf time.Time) model.MetricSummary {
	summary := model.MetricSummary{
		TotalInvoices: len(invoices),
	}

	var totalDelayDays float64
	for _, inv := range invoices {
		if inv.Paid() {
			summary.PaidCount++
			totalDelayDays += delayDays(inv)
			continue
		}

		summary.TotalOutstanding += inv.Amount

		if inv.DueDate.IsZero() {
			// No enforceable deadline; never counts as overdue.
			zap.L().Debug("metrics: invoice without due date",
				zap.String("invoice_id", inv.ID),
				zap.String("customer_id", inv.CustomerID),
			)
			continue
		}
		if inv.DueDate.Before(asOf) {
			summary.OverdueCount++
		}
	}

	if summary.PaidCount > 0 {
		summary.AvgDelayDays = totalDelayDays / float64(summary.PaidCount)
	}

	if summary.TotalInvoices == 0 {
		summary.ReliabilityPercent = 100.0
	} else {
		summary.ReliabilityPercent = 100.0 * float64(summary.PaidCount) / float64(summary.TotalInvoices)
	}

	return summary
}

// delayDays returns the payment delay for a paid invoice in whole days,
// floored at zero. Early payment is not a negative delay.
func delayDays(inv model.InvoiceRecord) float64 {
	if inv.PaidDate == nil || inv.DueDate.IsZero() {
		return 0
	}
	d := inv.PaidDate.Sub(inv.DueDate).Hours() / 24
	return math.Max(0, d)
}
