package core

import (
	"github.com/jmylchreest/stackdraw/internal/config"
	"github.com/jmylchreest/stackdraw/internal/model"
)

// StackDuplicates collapses notifications with identical app, summary and body
// into the first occurrence, counting the collapsed ones in DuplicateCount.
// The newest timestamp and progress of a collapsed duplicate are kept.
// The input slice is not modified; collapsed entries are clones.
func StackDuplicates(notifications []*model.Notification) []*model.Notification {
	result := make([]*model.Notification, 0, len(notifications))
	index := make(map[string]int, len(notifications))

	for _, n := range notifications {
		key := n.DedupeKey()
		if i, ok := index[key]; ok {
			kept := result[i]
			kept.DuplicateCount += n.DuplicateCount + 1
			if n.Timestamp > kept.Timestamp {
				kept.Timestamp = n.Timestamp
				kept.Progress = n.Progress
			}
			continue
		}
		index[key] = len(result)
		result = append(result, n.Clone())
	}

	return result
}

// ReplaceStackTag returns the index of the notification that n replaces:
// same app name and non-empty stack tag. It returns -1 when there is none.
func ReplaceStackTag(notifications []*model.Notification, n *model.Notification) int {
	if n.StackTag == "" {
		return -1
	}
	for i, existing := range notifications {
		if existing.StackTag == n.StackTag && existing.AppName == n.AppName {
			return i
		}
	}
	return -1
}

// Limit truncates notifications to at most limit entries. 0 means unlimited.
func Limit(notifications []*model.Notification, limit int) []*model.Notification {
	if limit > 0 && len(notifications) > limit {
		return notifications[:limit]
	}
	return notifications
}

// Prepare applies the configured stack behaviour: duplicate stacking, ordering
// and the notification limit.
func Prepare(notifications []*model.Notification, b config.BehaviorConfig) []*model.Notification {
	result := notifications
	if b.StackDuplicates {
		result = StackDuplicates(result)
	} else {
		result = append([]*model.Notification(nil), result...)
	}
	if b.Sort {
		SortForStack(result)
	}
	return Limit(result, b.NotificationLimit)
}
