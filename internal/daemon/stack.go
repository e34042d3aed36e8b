package daemon

import (
	"sync"
	"time"

	"github.com/jmylchreest/stackdraw/internal/config"
	"github.com/jmylchreest/stackdraw/internal/core"
	"github.com/jmylchreest/stackdraw/internal/model"
)

// Stack is the ordered set of live notifications.
type Stack struct {
	mu       sync.Mutex
	entries  []*entry
	settings *config.Settings
	lastTick time.Time
}

// NewStack creates an empty stack using the timeouts and behaviour of settings.
func NewStack(settings *config.Settings) *Stack {
	if settings == nil {
		settings = config.DefaultSettings()
	}
	return &Stack{settings: settings}
}

// SetSettings swaps the settings used for new timeouts and for Snapshot.
func (s *Stack) SetSettings(settings *config.Settings) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.settings = settings
}

// Add inserts n, or replaces the entry with the same D-Bus id or stack tag
// in place. It returns the notification that was replaced, if any.
func (s *Stack) Add(n *model.Notification, now time.Time) *model.Notification {
	s.mu.Lock()
	defer s.mu.Unlock()

	e := &entry{n: n, status: StatusActive, createdAt: now}
	if d := timeout(n, s.settings.Urgency(n.Urgency).Timeout.Duration()); d > 0 {
		e.expiresAt = now.Add(d)
	}

	idx := s.indexOfDBusID(n.DBusID)
	if idx < 0 {
		idx = core.ReplaceStackTag(s.notifications(), n)
	}
	if idx >= 0 {
		old := s.entries[idx]
		old.status = StatusReplaced
		s.entries[idx] = e
		return old.n
	}

	s.entries = append(s.entries, e)
	return nil
}

// Close removes the notification with the given D-Bus id.
func (s *Stack) Close(dbusID uint32) (*model.Notification, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	idx := s.indexOfDBusID(dbusID)
	if idx < 0 {
		return nil, false
	}
	e := s.entries[idx]
	e.status = StatusClosed
	s.entries = append(s.entries[:idx], s.entries[idx+1:]...)
	return e.n, true
}

// Expire removes and returns notifications whose timeout has passed. While
// idle the clock is paused: pending deadlines move forward by the elapsed time.
func (s *Stack) Expire(now time.Time, idle bool) []*model.Notification {
	s.mu.Lock()
	defer s.mu.Unlock()

	elapsed := time.Duration(0)
	if !s.lastTick.IsZero() {
		elapsed = now.Sub(s.lastTick)
	}
	s.lastTick = now

	var expired []*model.Notification
	kept := s.entries[:0]
	for _, e := range s.entries {
		if idle {
			if !e.expiresAt.IsZero() && elapsed > 0 {
				e.expiresAt = e.expiresAt.Add(elapsed)
			}
			kept = append(kept, e)
			continue
		}
		if e.expired(now) {
			e.status = StatusExpired
			expired = append(expired, e.n)
			continue
		}
		kept = append(kept, e)
	}
	clear(s.entries[len(kept):])
	s.entries = kept
	return expired
}

// Snapshot returns the stack ready for layout: duplicates stacked, sorted
// and limited as configured. The returned notifications are copies.
func (s *Stack) Snapshot() []*model.Notification {
	s.mu.Lock()
	defer s.mu.Unlock()

	ns := make([]*model.Notification, len(s.entries))
	for i, e := range s.entries {
		ns[i] = e.n.Clone()
	}
	return core.Prepare(ns, s.settings.Behavior)
}

// Len returns the number of live notifications.
func (s *Stack) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.entries)
}

func (s *Stack) indexOfDBusID(id uint32) int {
	if id == 0 {
		return -1
	}
	for i, e := range s.entries {
		if e.n.DBusID == id {
			return i
		}
	}
	return -1
}

func (s *Stack) notifications() []*model.Notification {
	ns := make([]*model.Notification, len(s.entries))
	for i, e := range s.entries {
		ns[i] = e.n
	}
	return ns
}
