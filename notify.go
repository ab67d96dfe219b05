package vmix

import (
	"context"
	"log/slog"
	"time"
)

// NotificationLevel is the severity of a Notification.
type NotificationLevel uint8

const (
	NotifyInfo NotificationLevel = iota
	NotifyWarning
	NotifyError
)

// String returns the level name.
func (l NotificationLevel) String() string {
	switch l {
	case NotifyWarning:
		return "warning"
	case NotifyError:
		return "error"
	default:
		return "info"
	}
}

// Notification is a human readable message surfaced by the mixer, for
// example a failed source or a job outcome.
type Notification struct {
	Level   NotificationLevel
	Message string
	Time    time.Time
}

// Notifier receives notifications from the mixer on the update thread.
type Notifier interface {
	Notify(n Notification)
}

// NotifierFunc adapts a function to the Notifier interface.
type NotifierFunc func(Notification)

// Notify calls f(n).
func (f NotifierFunc) Notify(n Notification) { f(n) }

// logNotifier writes notifications to the package logger.
type logNotifier struct{}

func (logNotifier) Notify(n Notification) {
	level := slog.LevelInfo
	switch n.Level {
	case NotifyWarning:
		level = slog.LevelWarn
	case NotifyError:
		level = slog.LevelError
	}
	Logger().Log(context.Background(), level, n.Message)
}

func newNotification(level NotificationLevel, msg string) Notification {
	return Notification{Level: level, Message: msg, Time: time.Now()}
}
