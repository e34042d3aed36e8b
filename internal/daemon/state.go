package daemon

import (
	"time"

	"github.com/jmylchreest/stackdraw/internal/model"
)

// Status is the lifecycle state of a stacked notification.
type Status int

const (
	// StatusActive means the notification is part of the stack.
	StatusActive Status = iota
	// StatusExpired means its timeout ran out.
	StatusExpired
	// StatusClosed means it was closed by request.
	StatusClosed
	// StatusReplaced means a newer notification took its place.
	StatusReplaced
)

// String returns the string representation of Status.
func (s Status) String() string {
	switch s {
	case StatusActive:
		return "active"
	case StatusExpired:
		return "expired"
	case StatusClosed:
		return "closed"
	case StatusReplaced:
		return "replaced"
	default:
		return "unknown"
	}
}

// entry tracks one notification in the stack.
type entry struct {
	n         *model.Notification
	status    Status
	createdAt time.Time
	expiresAt time.Time // zero = never
}

func (e *entry) expired(now time.Time) bool {
	return !e.expiresAt.IsZero() && !now.Before(e.expiresAt)
}

// timeout resolves the display timeout of n: its own positive timeout in
// milliseconds, never for 0, and the urgency default otherwise.
func timeout(n *model.Notification, urgencyDefault time.Duration) time.Duration {
	switch {
	case n.ExpireTimeout > 0:
		return time.Duration(n.ExpireTimeout) * time.Millisecond
	case n.ExpireTimeout == 0 && n.Source == "dbus":
		return 0
	default:
		return urgencyDefault
	}
}
