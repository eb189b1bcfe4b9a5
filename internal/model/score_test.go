package model

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseRiskLevel(t *testing.T) {
	tests := []struct {
		input string
		want  RiskLevel
	}{
		{"low", RiskLow},
		{"LOW", RiskLow},
		{" Medium ", RiskMedium},
		{"high", RiskHigh},
	}

	for _, tt := range tests {
		got, err := ParseRiskLevel(tt.input)
		require.NoError(t, err, tt.input)
		assert.Equal(t, tt.want, got)
	}

	_, err := ParseRiskLevel("severe")
	assert.Error(t, err)

	_, err = ParseRiskLevel("")
	assert.Error(t, err)
}

func TestParseAction(t *testing.T) {
	tests := []struct {
		input string
		want  Action
	}{
		{"none", ActionNone},
		{"no action", ActionNone},
		{"friendly_reminder", ActionFriendlyReminder},
		{"Friendly Reminder", ActionFriendlyReminder},
		{"immediate_followup", ActionImmediateFollowup},
		{"Immediate follow-up", ActionImmediateFollowup},
	}

	for _, tt := range tests {
		got, err := ParseAction(tt.input)
		require.NoError(t, err, tt.input)
		assert.Equal(t, tt.want, got)
	}

	_, err := ParseAction("escalate to legal")
	assert.Error(t, err)
}
