// Package notify carries user-visible toast messages out of the storefront
// state. Delivery is fire-and-forget: nothing waits on it or retries it.
package notify

import (
	"context"
	"log/slog"
	"sync"
	"time"
)

// Kind classifies a notification for display.
type Kind string

const (
	KindSuccess Kind = "success"
	KindError   Kind = "error"
	KindInfo    Kind = "info"
)

// Notification is a single toast.
type Notification struct {
	Kind    Kind      `json:"kind"`
	Message string    `json:"message"`
	At      time.Time `json:"at"`
}

// Notifier accepts notifications without blocking the caller on delivery.
type Notifier interface {
	Notify(ctx context.Context, n Notification)
}

// Success builds a success notification stamped with the current time.
func Success(message string) Notification {
	return Notification{Kind: KindSuccess, Message: message, At: time.Now().UTC()}
}

// Error builds an error notification stamped with the current time.
func Error(message string) Notification {
	return Notification{Kind: KindError, Message: message, At: time.Now().UTC()}
}

// Info builds an informational notification stamped with the current time.
func Info(message string) Notification {
	return Notification{Kind: KindInfo, Message: message, At: time.Now().UTC()}
}

// Fanout delivers every notification to each of its notifiers in order.
type Fanout []Notifier

// Notify forwards n to every non-nil notifier.
func (f Fanout) Notify(ctx context.Context, n Notification) {
	for _, target := range f {
		if target != nil {
			target.Notify(ctx, n)
		}
	}
}

// Logger writes notifications to a structured logger.
type Logger struct {
	logger *slog.Logger
}

// NewLogger creates a notifier that logs every toast.
func NewLogger(logger *slog.Logger) *Logger {
	return &Logger{logger: logger}
}

// Notify logs n at a level matching its kind.
func (l *Logger) Notify(ctx context.Context, n Notification) {
	level := slog.LevelInfo
	if n.Kind == KindError {
		level = slog.LevelWarn
	}
	l.logger.Log(ctx, level, "storefront notification",
		slog.String("kind", string(n.Kind)),
		slog.String("message", n.Message),
	)
}

// DefaultQueueSize bounds a session's undelivered toasts.
const DefaultQueueSize = 32

// Queue buffers toasts for a session until the UI drains them. When full,
// the oldest toast is dropped.
type Queue struct {
	mu    sync.Mutex
	items []Notification
	size  int
}

// NewQueue creates a queue holding at most size notifications.
func NewQueue(size int) *Queue {
	if size <= 0 {
		size = DefaultQueueSize
	}
	return &Queue{size: size}
}

// Notify appends n, evicting the oldest entry when the queue is full.
func (q *Queue) Notify(_ context.Context, n Notification) {
	q.mu.Lock()
	defer q.mu.Unlock()

	if len(q.items) >= q.size {
		q.items = q.items[1:]
	}
	q.items = append(q.items, n)
}

// Drain returns and removes all buffered notifications, oldest first.
func (q *Queue) Drain() []Notification {
	q.mu.Lock()
	defer q.mu.Unlock()

	out := q.items
	q.items = nil
	if out == nil {
		return []Notification{}
	}
	return out
}

// Len returns the number of buffered notifications.
func (q *Queue) Len() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.items)
}
