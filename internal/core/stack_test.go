package core

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jmylchreest/stackdraw/internal/config"
	"github.com/jmylchreest/stackdraw/internal/model"
)

func TestStackDuplicates(t *testing.T) {
	input := []*model.Notification{
		{ID: "1", AppName: "mail", Summary: "New message", Timestamp: 100, Progress: model.NoProgress},
		{ID: "2", AppName: "chat", Summary: "Ping", Timestamp: 110, Progress: model.NoProgress},
		{ID: "3", AppName: "mail", Summary: "New message", Timestamp: 120, Progress: model.NoProgress},
		{ID: "4", AppName: "mail", Summary: "New message", Timestamp: 90, Progress: model.NoProgress, DuplicateCount: 2},
	}

	result := StackDuplicates(input)
	require.Len(t, result, 2)

	assert.Equal(t, "1", result[0].ID)
	assert.Equal(t, 4, result[0].DuplicateCount)
	assert.Equal(t, int64(120), result[0].Timestamp)
	assert.Equal(t, "2", result[1].ID)
	assert.Zero(t, result[1].DuplicateCount)

	// Input untouched
	assert.Zero(t, input[0].DuplicateCount)
	assert.Equal(t, int64(100), input[0].Timestamp)
}

func TestStackDuplicates_DifferentBody(t *testing.T) {
	input := []*model.Notification{
		{ID: "1", AppName: "mail", Summary: "New message", Body: "from alice"},
		{ID: "2", AppName: "mail", Summary: "New message", Body: "from bob"},
	}
	assert.Len(t, StackDuplicates(input), 2)
}

func TestReplaceStackTag(t *testing.T) {
	stack := []*model.Notification{
		{ID: "1", AppName: "volume", StackTag: "level"},
		{ID: "2", AppName: "brightness", StackTag: "level"},
		{ID: "3", AppName: "mail"},
	}

	assert.Equal(t, 1, ReplaceStackTag(stack, &model.Notification{AppName: "brightness", StackTag: "level"}))
	assert.Equal(t, 0, ReplaceStackTag(stack, &model.Notification{AppName: "volume", StackTag: "level"}))
	assert.Equal(t, -1, ReplaceStackTag(stack, &model.Notification{AppName: "volume", StackTag: "mute"}))
	assert.Equal(t, -1, ReplaceStackTag(stack, &model.Notification{AppName: "mail"}))
}

func TestLimit(t *testing.T) {
	ns := []*model.Notification{{ID: "1"}, {ID: "2"}, {ID: "3"}}

	assert.Len(t, Limit(ns, 0), 3)
	assert.Len(t, Limit(ns, 2), 2)
	assert.Len(t, Limit(ns, 5), 3)
}

func TestPrepare(t *testing.T) {
	input := []*model.Notification{
		{ID: "1", AppName: "mail", Summary: "Hi", Timestamp: 100, Urgency: model.UrgencyNormal},
		{ID: "2", AppName: "mail", Summary: "Hi", Timestamp: 150, Urgency: model.UrgencyNormal},
		{ID: "3", AppName: "disk", Summary: "Full", Timestamp: 200, Urgency: model.UrgencyCritical},
		{ID: "4", AppName: "chat", Summary: "Yo", Timestamp: 50, Urgency: model.UrgencyLow},
	}

	t.Run("all behaviour", func(t *testing.T) {
		result := Prepare(input, config.BehaviorConfig{StackDuplicates: true, Sort: true, NotificationLimit: 2})
		assert.Equal(t, []string{"3", "4"}, ids(result))
	})

	t.Run("no dedupe or sort", func(t *testing.T) {
		result := Prepare(input, config.BehaviorConfig{})
		assert.Equal(t, []string{"1", "2", "3", "4"}, ids(result))

		result[0] = nil
		assert.NotNil(t, input[0])
	})

	t.Run("dedupe only", func(t *testing.T) {
		result := Prepare(input, config.BehaviorConfig{StackDuplicates: true})
		assert.Equal(t, []string{"1", "3", "4"}, ids(result))
		assert.Equal(t, 1, result[0].DuplicateCount)
	})
}
