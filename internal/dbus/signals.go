package dbus

import (
	"errors"
	"fmt"
)

var errNotConnected = errors.New("not connected to D-Bus")

// EmitNotificationClosed emits the NotificationClosed signal.
func (s *NotificationServer) EmitNotificationClosed(id uint32, reason CloseReason) error {
	s.mu.RLock()
	conn := s.conn
	s.mu.RUnlock()
	if conn == nil {
		return errNotConnected
	}

	if err := conn.Emit(DBusPath, DBusInterface+".NotificationClosed", id, uint32(reason)); err != nil {
		return fmt.Errorf("emit NotificationClosed: %w", err)
	}

	s.logger.Debug("emitted NotificationClosed", "id", id, "reason", reason.String())
	return nil
}

// CloseWithReason stops tracking id and emits the signal. The stack calls it
// when an item expires; ids already closed are ignored.
func (s *NotificationServer) CloseWithReason(id uint32, reason CloseReason) error {
	if !s.release(id) {
		return nil
	}
	return s.EmitNotificationClosed(id, reason)
}
