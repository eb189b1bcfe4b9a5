package scoring

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/sells-group/payscore/internal/model"
)

func TestClassify_BandBoundaries(t *testing.T) {
	bands := DefaultBands()

	tests := []struct {
		name   string
		score  float64
		risk   model.RiskLevel
		action model.Action
	}{
		{"top of range", 100, model.RiskLow, model.ActionNone},
		{"low band floor inclusive", 80, model.RiskLow, model.ActionNone},
		{"just below low band", 79.999, model.RiskMedium, model.ActionFriendlyReminder},
		{"medium band floor inclusive", 50, model.RiskMedium, model.ActionFriendlyReminder},
		{"just below medium band", 49.999, model.RiskHigh, model.ActionImmediateFollowup},
		{"bottom of range", 0, model.RiskHigh, model.ActionImmediateFollowup},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			risk, action := bands.Classify(tt.score)
			assert.Equal(t, tt.risk, risk)
			assert.Equal(t, tt.action, action)
		})
	}
}

func TestGroupFollowups_PreservesInputOrder(t *testing.T) {
	scores := []model.CustomerScore{
		{CustomerID: "A", Score: 45, Action: model.ActionImmediateFollowup},
		{CustomerID: "B", Score: 85, Action: model.ActionNone},
		{CustomerID: "C", Score: 60, Action: model.ActionFriendlyReminder},
		{CustomerID: "D", Score: 30, Action: model.ActionImmediateFollowup},
	}

	groups := GroupFollowups(scores)

	assert.Equal(t, []string{"A", "D"}, customerIDs(groups.Immediate))
	assert.Equal(t, []string{"C"}, customerIDs(groups.Reminder))
	assert.Equal(t, []string{"B"}, customerIDs(groups.None))
}

func TestGroupFollowups_Empty(t *testing.T) {
	groups := GroupFollowups(nil)

	assert.Empty(t, groups.Immediate)
	assert.Empty(t, groups.Reminder)
	assert.Empty(t, groups.None)
}

func TestFilterHighRisk(t *testing.T) {
	scores := []model.CustomerScore{
		{CustomerID: "A", RiskLevel: model.RiskHigh},
		{CustomerID: "B", RiskLevel: model.RiskLow},
		{CustomerID: "C", RiskLevel: model.RiskHigh},
		{CustomerID: "D", RiskLevel: model.RiskMedium},
	}

	highRisk := FilterHighRisk(scores)

	assert.Equal(t, []string{"A", "C"}, customerIDs(highRisk))
}

func customerIDs(scores []model.CustomerScore) []string {
	ids := make([]string, 0, len(scores))
	for _, s := range scores {
		ids = append(ids, s.CustomerID)
	}
	return ids
}
