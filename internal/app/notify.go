package app

import (
	"time"

	"go.uber.org/zap"
)

// Level grades a notification.
type Level string

const (
	LevelInfo  Level = "info"
	LevelError Level = "error"
)

// Notification is a non-blocking message for whatever surface the user is on.
type Notification struct {
	Level   Level
	Message string
	Err     error
	At      time.Time
}

// Notifier delivers notifications. Implementations must not block.
type Notifier interface {
	Notify(n Notification)
}

// NotifierFunc adapts a function to Notifier.
type NotifierFunc func(n Notification)

func (f NotifierFunc) Notify(n Notification) { f(n) }

// LogNotifier writes notifications to the log.
type LogNotifier struct {
	Logger *zap.Logger
}

func (l LogNotifier) Notify(n Notification) {
	fields := []zap.Field{zap.Time("at", n.At)}
	if n.Err != nil {
		fields = append(fields, zap.Error(n.Err))
	}
	if n.Level == LevelError {
		l.Logger.Warn(n.Message, fields...)
		return
	}
	l.Logger.Info(n.Message, fields...)
}
