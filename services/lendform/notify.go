package lendform

import (
	"context"
	"log/slog"
	"sync"
	"time"
)

// Variant selects how a toast is styled.
type Variant string

const (
	VariantDefault     Variant = "default"
	VariantDestructive Variant = "destructive"
)

// Toast is a transient piece of user feedback.
type Toast struct {
	ID          string    `json:"id,omitempty"`
	Title       string    `json:"title"`
	Description string    `json:"description"`
	Variant     Variant   `json:"variant"`
	RaisedAt    time.Time `json:"raised_at"`
}

// Notifier displays toasts. Implementations must not block the caller.
type Notifier interface {
	Notify(Toast)
}

// NotifierFunc adapts a function to the Notifier interface.
type NotifierFunc func(Toast)

// Notify calls f.
func (f NotifierFunc) Notify(t Toast) {
	if f != nil {
		f(t)
	}
}

// MultiNotifier fans a toast out to every notifier in order.
type MultiNotifier []Notifier

// Notify delivers t to each non-nil notifier.
func (m MultiNotifier) Notify(t Toast) {
	for _, n := range m {
		if n != nil {
			n.Notify(t)
		}
	}
}

// LogNotifier writes toasts to a structured logger.
type LogNotifier struct {
	Logger *slog.Logger
}

// Notify logs the toast at info or warn level depending on the variant.
func (n LogNotifier) Notify(t Toast) {
	logger := n.Logger
	if logger == nil {
		logger = slog.Default()
	}
	level := slog.LevelInfo
	if t.Variant == VariantDestructive {
		level = slog.LevelWarn
	}
	logger.Log(context.Background(), level, "toast", slog.String("title", t.Title), slog.String("description", t.Description))
}

// Broadcaster delivers toasts to any number of subscribers. Slow subscribers
// drop toasts rather than stall the submission.
type Broadcaster struct {
	mu     sync.Mutex
	nextID int
	subs   map[int]chan Toast
	buffer int
}

// NewBroadcaster creates a broadcaster whose subscriber channels hold buffer toasts.
func NewBroadcaster(buffer int) *Broadcaster {
	if buffer <= 0 {
		buffer = 16
	}
	return &Broadcaster{subs: make(map[int]chan Toast), buffer: buffer}
}

// Subscribe registers a new listener. The returned cancel function closes the channel.
func (b *Broadcaster) Subscribe() (<-chan Toast, func()) {
	b.mu.Lock()
	defer b.mu.Unlock()
	id := b.nextID
	b.nextID++
	ch := make(chan Toast, b.buffer)
	b.subs[id] = ch
	var once sync.Once
	return ch, func() {
		once.Do(func() {
			b.mu.Lock()
			defer b.mu.Unlock()
			delete(b.subs, id)
			close(ch)
		})
	}
}

// Notify implements Notifier.
func (b *Broadcaster) Notify(t Toast) {
	b.mu.Lock()
	defer b.mu.Unlock()
	for _, ch := range b.subs {
		select {
		case ch <- t:
		default:
		}
	}
}

// Subscribers reports the number of active listeners.
func (b *Broadcaster) Subscribers() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return len(b.subs)
}
