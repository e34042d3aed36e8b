package core

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jmylchreest/stackdraw/internal/model"
)

var selectorNow = time.Unix(1_700_000_000, 0)

func selectorFixture() []*model.Notification {
	return []*model.Notification{
		{ID: "1", AppName: "mail", Summary: "New message", Urgency: model.UrgencyNormal, Progress: model.NoProgress, Timestamp: selectorNow.Add(-5 * time.Minute).Unix()},
		{ID: "2", AppName: "backup", Summary: "Backup running", Urgency: model.UrgencyLow, Progress: 40, StackTag: "backup", Timestamp: selectorNow.Add(-2 * time.Hour).Unix()},
		{ID: "3", AppName: "battery", Summary: "Battery low", Body: "5% remaining", Urgency: model.UrgencyCritical, Progress: 5, Category: "device", Timestamp: selectorNow.Add(-time.Minute).Unix()},
	}
}

func ids(ns []*model.Notification) []string {
	out := make([]string, len(ns))
	for i, n := range ns {
		out[i] = n.ID
	}
	return out
}

func TestSelect_Empty(t *testing.T) {
	sel, err := ParseSelector("", selectorNow)
	require.NoError(t, err)
	assert.Empty(t, sel.Conditions)

	ns := selectorFixture()
	assert.Equal(t, ns, Select(ns, sel))
	assert.Equal(t, ns, Select(ns, nil))
}

func TestSelect(t *testing.T) {
	tests := []struct {
		expr string
		want []string
	}{
		{"app=mail", []string{"1"}},
		{"app!=mail", []string{"2", "3"}},
		{"summary~BACKUP", []string{"2"}},
		{"body~=^[0-9]+%", []string{"3"}},
		{"urgency>=normal", []string{"1", "3"}},
		{"urgency<normal", []string{"2"}},
		{"progress>10", []string{"2"}},
		{"progress<=5%", []string{"3"}},
		{"tag=backup", []string{"2"}},
		{"cat=device", []string{"3"}},
		{"age>1h", []string{"2"}},
		{"age<10m", []string{"1", "3"}},
		{"urgency=critical, app=battery", []string{"3"}},
		{"urgency=critical,app=mail", []string{}},
	}

	for _, tt := range tests {
		t.Run(tt.expr, func(t *testing.T) {
			sel, err := ParseSelector(tt.expr, selectorNow)
			require.NoError(t, err)
			assert.Equal(t, tt.want, ids(Select(selectorFixture(), sel)))
		})
	}
}

func TestParseSelector_Errors(t *testing.T) {
	for _, expr := range []string{
		"app",
		"colour=red",
		"urgency=urgent",
		"progress>lots",
		"age>soon",
		"summary~=([",
	} {
		t.Run(expr, func(t *testing.T) {
			_, err := ParseSelector(expr, selectorNow)
			assert.Error(t, err)
		})
	}
}

func TestParseDuration(t *testing.T) {
	tests := []struct {
		input    string
		expected time.Duration
		hasError bool
	}{
		{"0", 0, false},
		{"", 0, false},
		{"1h", time.Hour, false},
		{"30m", 30 * time.Minute, false},
		{"48h", 48 * time.Hour, false},
		{"7d", 7 * 24 * time.Hour, false},
		{"1w", 7 * 24 * time.Hour, false},
		{"2w", 14 * 24 * time.Hour, false},
		{"invalid", 0, true},
		{"xd", 0, true},
		{"xw", 0, true},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			result, err := ParseDuration(tt.input)
			if tt.hasError {
				assert.Error(t, err)
			} else {
				require.NoError(t, err)
				assert.Equal(t, tt.expected, result)
			}
		})
	}
}

func TestParseUrgency(t *testing.T) {
	tests := []struct {
		input    string
		expected int
		hasError bool
	}{
		{"low", model.UrgencyLow, false},
		{"LOW", model.UrgencyLow, false},
		{"0", model.UrgencyLow, false},
		{"normal", model.UrgencyNormal, false},
		{"NORMAL", model.UrgencyNormal, false},
		{"1", model.UrgencyNormal, false},
		{"critical", model.UrgencyCritical, false},
		{"CRITICAL", model.UrgencyCritical, false},
		{"2", model.UrgencyCritical, false},
		{"invalid", 0, true},
		{"3", 0, true},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			result, err := ParseUrgency(tt.input)
			if tt.hasError {
				assert.Error(t, err)
			} else {
				require.NoError(t, err)
				assert.Equal(t, tt.expected, result)
			}
		})
	}
}
