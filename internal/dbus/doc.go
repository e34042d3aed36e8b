// Package dbus implements the org.freedesktop.Notifications D-Bus interface.
// It receives notifications from applications, converts their hints into
// stack notifications and emits NotificationClosed when items leave the stack.
package dbus
