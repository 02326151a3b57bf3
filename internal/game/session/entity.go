// Package session delivers plain text to the entities that have a connected
// client. Combat code writes through Manager.Deliver and never blocks on a
// slow reader.
package session

import (
	"errors"
	"fmt"
	"sync"
)

var (
	// ErrClosed is returned by Push after Close.
	ErrClosed = errors.New("session closed")
	// ErrBufferFull is returned by Push when the reader has fallen behind.
	ErrBufferFull = errors.New("session buffer full")
)

// DefaultBuffer is the event capacity used for a non-positive size.
const DefaultBuffer = 64

// BridgeEntity is the outbox of one connected combatant: a bounded channel
// the tick goroutine pushes into and the client side reads from. Text that
// does not fit is dropped and counted.
type BridgeEntity struct {
	name   string
	events chan string

	mu      sync.Mutex
	closed  bool
	dropped int
}

// NewBridgeEntity creates an open outbox for name holding up to size lines.
func NewBridgeEntity(name string, size int) *BridgeEntity {
	if size <= 0 {
		size = DefaultBuffer
	}
	return &BridgeEntity{name: name, events: make(chan string, size)}
}

// Name returns the combatant's display name.
func (e *BridgeEntity) Name() string { return e.name }

// Push enqueues text without blocking.
//
// Postcondition: returns an error wrapping ErrClosed or ErrBufferFull when
// text was not enqueued.
func (e *BridgeEntity) Push(text string) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.closed {
		return fmt.Errorf("%s: %w", e.name, ErrClosed)
	}
	select {
	case e.events <- text:
		return nil
	default:
		e.dropped++
		return fmt.Errorf("%s: %w (%d dropped)", e.name, ErrBufferFull, e.dropped)
	}
}

// Events is the channel the client side reads from. It is closed by Close.
func (e *BridgeEntity) Events() <-chan string { return e.events }

// Drain returns every queued line without waiting for more.
func (e *BridgeEntity) Drain() []string {
	var out []string
	for {
		select {
		case text, ok := <-e.events:
			if !ok {
				return out
			}
			out = append(out, text)
		default:
			return out
		}
	}
}

// Dropped returns how many lines Push discarded because the buffer was full.
func (e *BridgeEntity) Dropped() int {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.dropped
}

// Close closes the events channel. Closing twice is a no-op.
func (e *BridgeEntity) Close() error {
	e.mu.Lock()
	defer e.mu.Unlock()
	if !e.closed {
		e.closed = true
		close(e.events)
	}
	return nil
}

// IsClosed reports whether Close has been called.
func (e *BridgeEntity) IsClosed() bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.closed
}
