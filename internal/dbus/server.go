package dbus

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"sync/atomic"

	"github.com/godbus/dbus/v5"
	"github.com/godbus/dbus/v5/introspect"

	"github.com/jmylchreest/stackdraw/internal/model"
)

const (
	// DBusInterface is the notification interface name.
	DBusInterface = "org.freedesktop.Notifications"
	// DBusPath is the notification object path.
	DBusPath = "/org/freedesktop/Notifications"
	// DBusBusName is the bus name to claim.
	DBusBusName = "org.freedesktop.Notifications"
)

const introspectXML = `
<node>
	<interface name="` + DBusInterface + `">
		<method name="GetCapabilities">
			<arg name="capabilities" type="as" direction="out"/>
		</method>
		<method name="GetServerInformation">
			<arg name="name" type="s" direction="out"/>
			<arg name="vendor" type="s" direction="out"/>
			<arg name="version" type="s" direction="out"/>
			<arg name="spec_version" type="s" direction="out"/>
		</method>
		<method name="Notify">
			<arg name="app_name" type="s" direction="in"/>
			<arg name="replaces_id" type="u" direction="in"/>
			<arg name="app_icon" type="s" direction="in"/>
			<arg name="summary" type="s" direction="in"/>
			<arg name="body" type="s" direction="in"/>
			<arg name="actions" type="as" direction="in"/>
			<arg name="hints" type="a{sv}" direction="in"/>
			<arg name="expire_timeout" type="i" direction="in"/>
			<arg name="id" type="u" direction="out"/>
		</method>
		<method name="CloseNotification">
			<arg name="id" type="u" direction="in"/>
		</method>
		<signal name="NotificationClosed">
			<arg name="id" type="u"/>
			<arg name="reason" type="u"/>
		</signal>
	</interface>` + introspect.IntrospectDataString + `</node>`

// NotificationHandler receives converted notifications. A notification
// that replaces an earlier one keeps its DBusID.
type NotificationHandler func(n *model.Notification)

// CloseHandler is called with the id of a notification that was closed.
type CloseHandler func(id uint32)

// busConn is the part of *dbus.Conn the server uses.
type busConn interface {
	Export(v any, path dbus.ObjectPath, iface string) error
	RequestName(name string, flags dbus.RequestNameFlags) (dbus.RequestNameReply, error)
	ReleaseName(name string) (dbus.ReleaseNameReply, error)
	Emit(path dbus.ObjectPath, name string, values ...any) error
}

// tagKey identifies a stack slot: one per app and stack tag.
type tagKey struct {
	app string
	tag string
}

// NotificationServer implements the org.freedesktop.Notifications D-Bus
// interface. It hands every notification to the stack and tracks which ids
// are still on it, so closes and expiries emit NotificationClosed once.
type NotificationServer struct {
	conn   busConn
	logger *slog.Logger

	lastID atomic.Uint32

	onNotify NotificationHandler
	onClose  CloseHandler

	mu      sync.RWMutex
	active  map[uint32]tagKey
	tagged  map[tagKey]uint32
	info    ServerInfo
	running bool
}

// NewNotificationServer creates a new NotificationServer.
func NewNotificationServer(logger *slog.Logger) *NotificationServer {
	if logger == nil {
		logger = slog.Default()
	}
	return &NotificationServer{
		logger: logger,
		active: make(map[uint32]tagKey),
		tagged: make(map[tagKey]uint32),
		info:   DefaultServerInfo(),
	}
}

// SetNotifyHandler sets the handler called when a notification is received.
func (s *NotificationServer) SetNotifyHandler(handler NotificationHandler) {
	s.onNotify = handler
}

// SetCloseHandler sets the handler called when CloseNotification is requested.
func (s *NotificationServer) SetCloseHandler(handler CloseHandler) {
	s.onClose = handler
}

// SetServerInfo sets the server information returned by GetServerInformation.
func (s *NotificationServer) SetServerInfo(info ServerInfo) {
	s.info = info
}

// Start connects to the session bus and exports the notification service.
func (s *NotificationServer) Start() error {
	conn, err := dbus.SessionBus()
	if err != nil {
		return fmt.Errorf("failed to connect to session bus: %w", err)
	}
	return s.StartOn(conn)
}

// StartOn exports the service on an existing connection and claims the bus name.
func (s *NotificationServer) StartOn(conn busConn) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.running {
		return fmt.Errorf("server already running")
	}

	if err := conn.Export(s, DBusPath, DBusInterface); err != nil {
		return fmt.Errorf("failed to export object: %w", err)
	}
	if err := conn.Export(introspect.Introspectable(introspectXML), DBusPath,
		"org.freedesktop.DBus.Introspectable"); err != nil {
		return fmt.Errorf("failed to export introspectable: %w", err)
	}

	reply, err := conn.RequestName(DBusBusName, dbus.NameFlagDoNotQueue|dbus.NameFlagReplaceExisting)
	if err != nil {
		return fmt.Errorf("failed to request bus name: %w", err)
	}
	if reply != dbus.RequestNameReplyPrimaryOwner {
		return fmt.Errorf("bus name %s already taken", DBusBusName)
	}

	s.conn = conn
	s.running = true
	s.logger.Info("D-Bus notification server started", "bus_name", DBusBusName)
	return nil
}

// Serve starts the server and blocks until ctx is done, then stops it.
func (s *NotificationServer) Serve(ctx context.Context) error {
	if err := s.Start(); err != nil {
		return err
	}
	<-ctx.Done()
	return s.Stop()
}

// Stop releases the bus name. The shared session connection stays open.
func (s *NotificationServer) Stop() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.running {
		return nil
	}
	s.running = false

	if _, err := s.conn.ReleaseName(DBusBusName); err != nil {
		s.logger.Warn("failed to release bus name", "error", err)
	}
	s.logger.Info("D-Bus notification server stopped")
	return nil
}

// GetCapabilities implements GetCapabilities() -> as.
func (s *NotificationServer) GetCapabilities() ([]string, *dbus.Error) {
	return ServerCapabilities, nil
}

// GetServerInformation implements GetServerInformation() -> (ssss).
func (s *NotificationServer) GetServerInformation() (string, string, string, string, *dbus.Error) {
	return s.info.Name, s.info.Vendor, s.info.Version, s.info.SpecVersion, nil
}

// Notify implements Notify(susssasa{sv}i) -> u.
func (s *NotificationServer) Notify(
	appName string,
	replacesID uint32,
	appIcon string,
	summary string,
	body string,
	actions []string,
	hints map[string]dbus.Variant,
	expireTimeout int32,
) (uint32, *dbus.Error) {
	dn := &DBusNotification{
		AppName:       appName,
		ReplacesID:    replacesID,
		AppIcon:       appIcon,
		Summary:       summary,
		Body:          body,
		Actions:       actions,
		Hints:         hints,
		ExpireTimeout: expireTimeout,
	}
	id := s.post(dn, replacesID)
	s.logger.Debug("Notify", "app_name", appName, "summary", summary, "replaces_id", replacesID, "id", id)
	return id, nil
}

// NotifyInternal posts a notification from the daemon itself (config
// reload errors and the like) without a D-Bus round trip.
func (s *NotificationServer) NotifyInternal(dn *DBusNotification) uint32 {
	return s.post(dn, 0)
}

// post assigns an id, records it against its stack tag and hands the
// notification on. An id previously holding the same tag is retired.
func (s *NotificationServer) post(dn *DBusNotification, id uint32) uint32 {
	if id == 0 {
		id = s.lastID.Add(1)
	}

	key := tagKey{app: dn.AppName, tag: dn.StackTag()}
	var retired uint32

	s.mu.Lock()
	if old, ok := s.active[id]; ok && old.tag != "" && s.tagged[old] == id {
		delete(s.tagged, old)
	}
	s.active[id] = key
	if key.tag != "" {
		if prev, ok := s.tagged[key]; ok && prev != id {
			delete(s.active, prev)
			retired = prev
		}
		s.tagged[key] = id
	}
	s.mu.Unlock()

	if retired != 0 {
		s.logger.Debug("stack tag replaced notification", "tag", key.tag, "old_id", retired, "id", id)
		if err := s.EmitNotificationClosed(retired, CloseReasonExpired); err != nil {
			s.logger.Warn("failed to emit NotificationClosed signal", "id", retired, "error", err)
		}
	}

	n, err := dn.ToNotification(id)
	if err != nil {
		if n == nil {
			s.logger.Error("failed to convert notification", "id", id, "error", err)
			return id
		}
		s.logger.Warn("ignoring image hint", "id", id, "error", err)
	}
	if s.onNotify != nil {
		s.onNotify(n)
	}
	return id
}

// CloseNotification implements CloseNotification(u). Unknown ids are ignored.
func (s *NotificationServer) CloseNotification(id uint32) *dbus.Error {
	s.logger.Debug("CloseNotification", "id", id)
	if !s.release(id) {
		return nil
	}

	if s.onClose != nil {
		s.onClose(id)
	}
	if err := s.EmitNotificationClosed(id, CloseReasonClosed); err != nil {
		s.logger.Warn("failed to emit NotificationClosed signal", "id", id, "error", err)
	}
	return nil
}

// release stops tracking id and reports whether it was active.
func (s *NotificationServer) release(id uint32) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	key, ok := s.active[id]
	if !ok {
		return false
	}
	delete(s.active, id)
	if key.tag != "" && s.tagged[key] == id {
		delete(s.tagged, key)
	}
	return true
}

// IsActive reports whether id is still on the stack.
func (s *NotificationServer) IsActive(id uint32) bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	_, ok := s.active[id]
	return ok
}

// ActiveCount returns the number of notifications still on the stack.
func (s *NotificationServer) ActiveCount() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.active)
}
