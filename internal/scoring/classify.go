package scoring

import "github.com/sells-group/payscore/internal/model"

// Bands holds the score thresholds that separate risk tiers. Bands are
// half-open and lower-inclusive: a score equal to LowMin is low risk.
type Bands struct {
	LowMin    float64
	MediumMin float64
}

// DefaultBands returns the standard tier boundaries: [80,100] low,
// [50,80) medium, [0,50) high.
func DefaultBands() Bands {
	return Bands{LowMin: 80, MediumMin: 50}
}

// Classify derives the risk tier and follow-up action from a numeric score.
// The score is the single source of truth for classification: textual tier
// or action strings from the reasoning service are informational only and
// every resolved score is reclassified through here regardless of path.
func (b Bands) Classify(score float64) (model.RiskLevel, model.Action) {
	switch {
	case score >= b.LowMin:
		return model.RiskLow, model.ActionNone
	case score >= b.MediumMin:
		return model.RiskMedium, model.ActionFriendlyReminder
	default:
		return model.RiskHigh, model.ActionImmediateFollowup
	}
}

// GroupFollowups partitions scores into follow-up buckets by action,
// preserving input order within each bucket.
func GroupFollowups(scores []model.CustomerScore) model.Followups {
	var f model.Followups
	for _, s := range scores {
		switch s.Action {
		case model.ActionImmediateFollowup:
			f.Immediate = append(f.Immediate, s)
		case model.ActionFriendlyReminder:
			f.Reminder = append(f.Reminder, s)
		default:
			f.None = append(f.None, s)
		}
	}
	return f
}

// FilterHighRisk returns only the high-risk entries, in input order.
func FilterHighRisk(scores []model.CustomerScore) []model.CustomerScore {
	var out []model.CustomerScore
	for _, s := range scores {
		if s.RiskLevel == model.RiskHigh {
			out = append(out, s)
		}
	}
	return out
}
