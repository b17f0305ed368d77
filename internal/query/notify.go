package query

import (
	"sync"

	"github.com/rs/zerolog/log"
)

// Level is the severity of a user notification.
type Level string

const (
	LevelSuccess Level = "success"
	LevelInfo    Level = "info"
	LevelError   Level = "error"
)

// Notification is a transient message surfaced to the user.
type Notification struct {
	Level   Level  `json:"level"`
	Message string `json:"message"`
}

// Notifier receives the notifications raised for every terminal outcome.
type Notifier interface {
	Notify(n Notification)
}

// NotifierFunc adapts a function to the Notifier interface.
type NotifierFunc func(n Notification)

// Notify calls f(n).
func (f NotifierFunc) Notify(n Notification) { f(n) }

// LogNotifier writes notifications to the global logger.
type LogNotifier struct{}

// Notify logs n with a level matching its severity.
func (LogNotifier) Notify(n Notification) {
	switch n.Level {
	case LevelError:
		log.Error().Msg(n.Message)
	default:
		log.Info().Str("kind", string(n.Level)).Msg(n.Message)
	}
}

// Buffer collects notifications until they are drained by the presentation layer.
type Buffer struct {
	items []Notification
	mu    sync.Mutex
}

// Notify appends n to the buffer.
func (b *Buffer) Notify(n Notification) {
	b.mu.Lock()
	b.items = append(b.items, n)
	b.mu.Unlock()
}

// Drain returns the buffered notifications in arrival order and empties the buffer.
func (b *Buffer) Drain() []Notification {
	b.mu.Lock()
	defer b.mu.Unlock()

	items := b.items
	b.items = nil
	if items == nil {
		return []Notification{}
	}

	return items
}
