package eventbus

import (
	"sync"
	"time"

	"go.uber.org/zap"
)

// Bus is an in-process fan-out of engine events to any number of
// read-only subscribers. Publishing never blocks: a subscriber that
// cannot keep up loses events, not the engine.
type Bus struct {
	logger *zap.Logger

	mu     sync.RWMutex
	subs   []chan Event
	closed bool
}

// Config holds bus configuration.
type Config struct {
	Logger *zap.Logger
}

// DefaultBufferSize is the per-subscriber channel buffer.
const DefaultBufferSize = 256

// New creates an event bus.
func New(cfg *Config) *Bus {
	return &Bus{logger: cfg.Logger}
}

// Subscribe registers a new subscriber and returns its event channel.
// The channel is closed when the bus closes.
func (b *Bus) Subscribe() <-chan Event {
	b.mu.Lock()
	defer b.mu.Unlock()

	ch := make(chan Event, DefaultBufferSize)
	if b.closed {
		close(ch)
		return ch
	}
	b.subs = append(b.subs, ch)
	return ch
}

// Publish delivers an event to all subscribers, stamping it with the
// current time if unset. Slow subscribers are skipped.
func (b *Bus) Publish(ev Event) {
	if ev.At.IsZero() {
		ev.At = time.Now()
	}

	b.mu.RLock()
	defer b.mu.RUnlock()
	if b.closed {
		return
	}

	for _, ch := range b.subs {
		select {
		case ch <- ev:
		default:
			b.logger.Warn("event-subscriber-full", zap.String("type", string(ev.Type)))
		}
	}
}

// Close closes all subscriber channels. Publish becomes a no-op.
func (b *Bus) Close() {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.closed {
		return
	}
	b.closed = true
	for _, ch := range b.subs {
		close(ch)
	}
	b.subs = nil
	b.logger.Info("event-bus-closed")
}
