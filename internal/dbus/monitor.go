package dbus

import (
	"encoding/binary"
	"fmt"
	"log/slog"
	"sync"

	"github.com/godbus/dbus/v5"
)

// maxPending bounds the Notify calls waiting for their reply.
const maxPending = 256

// monitorRules select the traffic needed to mirror another daemon's stack.
var monitorRules = []string{
	"type='method_call',interface='" + DBusInterface + "',member='Notify'",
	"type='method_return'",
	"type='signal',interface='" + DBusInterface + "',member='NotificationClosed'",
}

type pendingKey struct {
	sender string
	serial uint32
}

// Monitor passively observes another notification daemon (like dunst)
// without claiming the bus name, so stackdraw can mirror the stack it shows.
//
// A Notify call is reported once its reply reveals the id the daemon
// assigned; NotificationClosed signals report removals.
type Monitor struct {
	conn   *dbus.Conn
	logger *slog.Logger

	onNotify NotificationHandler
	onClose  CloseHandler

	mu      sync.Mutex
	pending map[pendingKey]*DBusNotification
	// Without replies (eavesdrop fallback) ids are derived from content.
	replies bool
}

// NewMonitor creates a new notification monitor.
func NewMonitor(logger *slog.Logger) *Monitor {
	if logger == nil {
		logger = slog.Default()
	}
	return &Monitor{
		logger:  logger,
		pending: make(map[pendingKey]*DBusNotification),
		replies: true,
	}
}

// SetNotifyHandler sets the callback for observed notifications.
func (m *Monitor) SetNotifyHandler(handler NotificationHandler) {
	m.onNotify = handler
}

// SetCloseHandler sets the callback for notifications the daemon closed.
func (m *Monitor) SetCloseHandler(handler CloseHandler) {
	m.onClose = handler
}

// Start begins monitoring the session bus.
func (m *Monitor) Start() error {
	conn, err := dbus.SessionBusPrivate()
	if err != nil {
		return fmt.Errorf("failed to connect to session bus: %w", err)
	}
	if err := conn.Auth(nil); err != nil {
		conn.Close()
		return fmt.Errorf("failed to authenticate: %w", err)
	}
	if err := conn.Hello(); err != nil {
		conn.Close()
		return fmt.Errorf("failed to say hello: %w", err)
	}
	m.conn = conn

	err = conn.BusObject().Call("org.freedesktop.DBus.Monitoring.BecomeMonitor", 0, monitorRules, uint32(0)).Err
	if err != nil {
		m.logger.Warn("BecomeMonitor not available, trying AddMatch", "error", err)
		return m.startWithAddMatch()
	}

	m.logger.Info("started D-Bus monitor using BecomeMonitor")
	go m.processMessages()
	return nil
}

// startWithAddMatch eavesdrops with match rules. Replies are not delivered
// this way, so ids fall back to content hashes.
func (m *Monitor) startWithAddMatch() error {
	for _, rule := range []string{monitorRules[0], monitorRules[2]} {
		if err := m.conn.BusObject().Call("org.freedesktop.DBus.AddMatch", 0, rule+",eavesdrop='true'").Err; err != nil {
			return fmt.Errorf("failed to add match rule (eavesdrop may require permissions): %w", err)
		}
	}

	m.mu.Lock()
	m.replies = false
	m.mu.Unlock()

	m.logger.Info("started D-Bus monitor using AddMatch with eavesdrop")
	go m.processMessages()
	return nil
}

func (m *Monitor) processMessages() {
	ch := make(chan *dbus.Message, 100)
	m.conn.Eavesdrop(ch)

	for msg := range ch {
		m.handleMessage(msg)
	}
}

func (m *Monitor) handleMessage(msg *dbus.Message) {
	switch msg.Type {
	case dbus.TypeMethodCall:
		if headerString(msg, dbus.FieldInterface) == DBusInterface && headerString(msg, dbus.FieldMember) == "Notify" {
			m.handleNotify(msg)
		}
	case dbus.TypeMethodReply:
		m.handleReply(msg)
	case dbus.TypeSignal:
		if headerString(msg, dbus.FieldInterface) == DBusInterface && headerString(msg, dbus.FieldMember) == "NotificationClosed" {
			m.handleClosed(msg)
		}
	}
}

// handleNotify parses a Notify call. Replacements already carry their id;
// new notifications wait for the reply.
func (m *Monitor) handleNotify(msg *dbus.Message) {
	dn, err := parseNotify(msg.Body)
	if err != nil {
		m.logger.Warn("malformed Notify call", "error", err)
		return
	}

	m.mu.Lock()
	replies := m.replies
	m.mu.Unlock()

	switch {
	case dn.ReplacesID != 0:
		m.emit(dn, dn.ReplacesID)
	case !replies:
		m.emit(dn, generateMonitorID(dn))
	default:
		key := pendingKey{sender: headerString(msg, dbus.FieldSender), serial: msg.Serial()}
		m.mu.Lock()
		if len(m.pending) >= maxPending {
			m.logger.Warn("dropping unanswered Notify calls", "count", len(m.pending))
			clear(m.pending)
		}
		m.pending[key] = dn
		m.mu.Unlock()
	}
}

func (m *Monitor) handleReply(msg *dbus.Message) {
	serial, ok := msg.Headers[dbus.FieldReplySerial].Value().(uint32)
	if !ok {
		return
	}
	key := pendingKey{sender: headerString(msg, dbus.FieldDestination), serial: serial}

	m.mu.Lock()
	dn, ok := m.pending[key]
	delete(m.pending, key)
	m.mu.Unlock()
	if !ok {
		return
	}

	if len(msg.Body) == 0 {
		return
	}
	id, ok := msg.Body[0].(uint32)
	if !ok {
		m.logger.Warn("unexpected Notify reply", "body", msg.Body)
		return
	}
	m.emit(dn, id)
}

func (m *Monitor) handleClosed(msg *dbus.Message) {
	if len(msg.Body) < 1 {
		return
	}
	id, ok := msg.Body[0].(uint32)
	if !ok {
		return
	}
	m.logger.Debug("observed notification closed", "id", id)
	if m.onClose != nil {
		m.onClose(id)
	}
}

func (m *Monitor) emit(dn *DBusNotification, id uint32) {
	n, err := dn.ToNotification(id)
	if err != nil {
		if n == nil {
			m.logger.Warn("failed to convert captured notification", "error", err)
			return
		}
		m.logger.Debug("ignoring image hint", "id", id, "error", err)
	}

	m.logger.Debug("captured notification", "app", n.AppName, "summary", n.Summary, "id", id)
	if m.onNotify != nil {
		m.onNotify(n)
	}
}

// parseNotify decodes Notify(susssasa{sv}i) arguments.
func parseNotify(body []any) (*DBusNotification, error) {
	if len(body) < 8 {
		return nil, fmt.Errorf("expected 8 arguments, got %d", len(body))
	}

	dn := &DBusNotification{}
	var ok bool
	if dn.AppName, ok = body[0].(string); !ok {
		return nil, fmt.Errorf("invalid app_name type %T", body[0])
	}
	if dn.ReplacesID, ok = body[1].(uint32); !ok {
		return nil, fmt.Errorf("invalid replaces_id type %T", body[1])
	}
	if dn.AppIcon, ok = body[2].(string); !ok {
		return nil, fmt.Errorf("invalid app_icon type %T", body[2])
	}
	if dn.Summary, ok = body[3].(string); !ok {
		return nil, fmt.Errorf("invalid summary type %T", body[3])
	}
	if dn.Body, ok = body[4].(string); !ok {
		return nil, fmt.Errorf("invalid body type %T", body[4])
	}
	dn.Actions, _ = body[5].([]string)
	dn.Hints, _ = body[6].(map[string]dbus.Variant)
	if timeout, ok := body[7].(int32); ok {
		dn.ExpireTimeout = timeout
	} else {
		dn.ExpireTimeout = -1
	}
	return dn, nil
}

func headerString(msg *dbus.Message, field dbus.HeaderField) string {
	v, ok := msg.Headers[field]
	if !ok {
		return ""
	}
	s, _ := v.Value().(string)
	return s
}

// generateMonitorID hashes the app name and summary, mixed with body and
// timeout lengths.
func generateMonitorID(n *DBusNotification) uint32 {
	var hash uint32
	for _, b := range []byte(n.AppName + n.Summary) {
		hash = hash*31 + uint32(b)
	}
	hash ^= binary.LittleEndian.Uint32([]byte{
		byte(len(n.Body)),
		byte(len(n.Actions)),
		byte(n.ExpireTimeout),
		byte(n.ExpireTimeout >> 8),
	})
	return hash
}

// Stop closes the monitor connection.
func (m *Monitor) Stop() error {
	if m.conn != nil {
		return m.conn.Close()
	}
	return nil
}
