package model

import (
	"strings"
	"time"

	"github.com/rotisserie/eris"
)

// RiskLevel is the tier a customer falls into, derived solely from the
// numeric score.
type RiskLevel string

const (
	RiskLow    RiskLevel = "low"
	RiskMedium RiskLevel = "medium"
	RiskHigh   RiskLevel = "high"
)

// ParseRiskLevel maps free-form text onto a RiskLevel, case-insensitively.
func ParseRiskLevel(s string) (RiskLevel, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "low":
		return RiskLow, nil
	case "medium":
		return RiskMedium, nil
	case "high":
		return RiskHigh, nil
	}
	return "", eris.Errorf("unknown risk level %q", s)
}

// Action is the operational follow-up recommendation tied to a risk tier.
type Action string

const (
	ActionNone              Action = "none"
	ActionFriendlyReminder  Action = "friendly_reminder"
	ActionImmediateFollowup Action = "immediate_followup"
)

// ParseAction maps free-form text onto an Action, case-insensitively.
// Accepts the human-readable spellings the reasoning service tends to emit
// ("Friendly reminder", "Immediate follow-up") alongside the enum values.
func ParseAction(s string) (Action, error) {
	norm := strings.ToLower(strings.TrimSpace(s))
	norm = strings.NewReplacer(" ", "_", "-", "_").Replace(norm)
	switch norm {
	case "none", "no_action":
		return ActionNone, nil
	case "friendly_reminder":
		return ActionFriendlyReminder, nil
	case "immediate_followup", "immediate_follow_up":
		return ActionImmediateFollowup, nil
	}
	return "", eris.Errorf("unknown action %q", s)
}

// ScoreSource records which path produced a score.
type ScoreSource string

const (
	SourceAI       ScoreSource = "ai"
	SourceFallback ScoreSource = "fallback"
)

// MetricSummary is the fixed per-customer aggregate fed to both scoring
// paths. Created fresh per scoring request, never persisted.
type MetricSummary struct {
	TotalInvoices      int     `json:"total_invoices"`
	PaidCount          int     `json:"paid_count"`
	OverdueCount       int     `json:"overdue_count"`
	AvgDelayDays       float64 `json:"avg_delay_days"`
	ReliabilityPercent float64 `json:"reliability_percent"`
	TotalOutstanding   float64 `json:"total_outstanding_amount"`
}

// CustomerScore is the pipeline's output for one customer. Immutable after
// creation; each scoring call produces a fresh one.
type CustomerScore struct {
	CustomerID   string        `json:"customer_id"`
	CustomerName string        `json:"customer_name"`
	Score        float64       `json:"score"`
	RiskLevel    RiskLevel     `json:"risk_level"`
	Action       Action        `json:"action"`
	Insights     string        `json:"insights,omitempty"`
	Source       ScoreSource   `json:"source"`
	Summary      MetricSummary `json:"summary"`
}

// ScoreStatus is one entry in a bulk scoring report: either a resolved score
// or the reason the customer's records could not be retrieved.
type ScoreStatus struct {
	CustomerID   string         `json:"customer_id"`
	CustomerName string         `json:"customer_name"`
	Score        *CustomerScore `json:"score,omitempty"`
	Error        string         `json:"error,omitempty"`
}

// BatchReport is the outcome of scoring a set of customers. Results preserve
// the input customer ordering regardless of completion order.
type BatchReport struct {
	ID         string        `json:"id"`
	StartedAt  time.Time     `json:"started_at"`
	DurationMS int64         `json:"duration_ms"`
	Results    []ScoreStatus `json:"results"`
	AICount    int           `json:"ai_count"`
	Fallbacks  int           `json:"fallback_count"`
	Failed     int           `json:"failed_count"`
}

// CustomerInsights is the detailed payment-behavior view for one customer:
// a deterministic narrative, a trend read over the invoice history, and the
// records the narrative was derived from.
type CustomerInsights struct {
	CustomerID    string          `json:"customer_id"`
	CustomerName  string          `json:"customer_name"`
	Insights      string          `json:"insights"`
	TrendAnalysis string          `json:"trend_analysis"`
	TotalInvoices int             `json:"total_invoices"`
	Invoices      []InvoiceRecord `json:"invoices"`
}

// Followups partitions resolved scores by recommended action, preserving
// input order within each bucket.
type Followups struct {
	Immediate []CustomerScore `json:"immediate"`
	Reminder  []CustomerScore `json:"reminder"`
	None      []CustomerScore `json:"none"`
}
