package daemon

import (
	"log/slog"
	"sync"
	"time"

	godbus "github.com/godbus/dbus/v5"

	"github.com/jmylchreest/stackdraw/internal/dbus"
)

// NotificationLevel indicates the severity of an internal notification.
type NotificationLevel int

const (
	// NotificationLevelInfo is for informational messages (low urgency).
	NotificationLevelInfo NotificationLevel = iota
	// NotificationLevelWarning is for warning messages (normal urgency).
	NotificationLevelWarning
	// NotificationLevelError is for error messages (critical urgency).
	NotificationLevelError
)

// InternalNotifier posts notifications about stackdraw's own events onto the
// stack it draws. Repeats of the same key are rate limited.
type InternalNotifier struct {
	mu     sync.Mutex
	logger *slog.Logger

	notifyHandler func(notification *dbus.DBusNotification) uint32

	lastNotifyTime map[string]time.Time
	minInterval    time.Duration

	enabled bool
	now     func() time.Time
}

// NewInternalNotifier creates a new InternalNotifier.
func NewInternalNotifier(logger *slog.Logger) *InternalNotifier {
	if logger == nil {
		logger = slog.Default()
	}
	return &InternalNotifier{
		logger:         logger,
		lastNotifyTime: make(map[string]time.Time),
		minInterval:    5 * time.Second,
		enabled:        true,
		now:            time.Now,
	}
}

// SetNotifyHandler sets the function that posts a notification, normally
// NotificationServer.NotifyInternal.
func (n *InternalNotifier) SetNotifyHandler(handler func(notification *dbus.DBusNotification) uint32) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.notifyHandler = handler
}

// SetEnabled enables or disables internal notifications.
func (n *InternalNotifier) SetEnabled(enabled bool) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.enabled = enabled
}

// SetMinInterval sets the minimum interval between notifications with the same key.
func (n *InternalNotifier) SetMinInterval(interval time.Duration) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.minInterval = interval
}

// Notify posts an internal notification unless the key is rate limited.
// It returns the assigned id, or 0 when nothing was posted.
func (n *InternalNotifier) Notify(key, summary, body string, level NotificationLevel) uint32 {
	n.mu.Lock()
	defer n.mu.Unlock()

	if !n.enabled {
		return 0
	}
	if n.notifyHandler == nil {
		n.logger.Debug("internal notification skipped: no handler", "summary", summary)
		return 0
	}

	now := n.now()
	if last, ok := n.lastNotifyTime[key]; ok && now.Sub(last) < n.minInterval {
		n.logger.Debug("internal notification rate-limited", "key", key, "summary", summary)
		return 0
	}
	n.lastNotifyTime[key] = now

	urgency := byte(1)
	appIcon := "dialog-warning"
	switch level {
	case NotificationLevelInfo:
		urgency, appIcon = 0, "dialog-information"
	case NotificationLevelError:
		urgency, appIcon = 2, "dialog-error"
	}

	notification := &dbus.DBusNotification{
		AppName: "stackdraw",
		AppIcon: appIcon,
		Summary: summary,
		Body:    body,
		Hints: map[string]godbus.Variant{
			"urgency":           godbus.MakeVariant(urgency),
			"category":          godbus.MakeVariant("device"),
			"transient":         godbus.MakeVariant(true),
			"x-dunst-stack-tag": godbus.MakeVariant("stackdraw-" + key),
		},
		ExpireTimeout: 5000,
	}

	n.logger.Debug("sending internal notification", "key", key, "summary", summary, "level", level)
	return n.notifyHandler(notification)
}

// NotifyConfigReloaded reports a successful settings reload.
func (n *InternalNotifier) NotifyConfigReloaded() uint32 {
	return n.Notify(
		"config-reload",
		"Configuration Reloaded",
		"stackdraw settings have been reloaded.",
		NotificationLevelInfo,
	)
}

// NotifyConfigError reports a settings file that failed to load.
func (n *InternalNotifier) NotifyConfigError(err error) uint32 {
	return n.Notify(
		"config-error",
		"Configuration Error",
		"Failed to reload settings: "+err.Error(),
		NotificationLevelWarning,
	)
}

// NotifyRenderError reports a stack that could not be drawn.
func (n *InternalNotifier) NotifyRenderError(err error) uint32 {
	return n.Notify(
		"render-error",
		"Render Error",
		"Failed to draw the notification stack: "+err.Error(),
		NotificationLevelError,
	)
}

// NotifyStartup reports that the daemon has started.
func (n *InternalNotifier) NotifyStartup(version string) uint32 {
	return n.Notify(
		"startup",
		"stackdraw Started",
		"Notification daemon v"+version+" is now running.",
		NotificationLevelInfo,
	)
}
