// Package session provides participant session tracking and room membership
// for the world server.
package session

import (
	"fmt"
	"sync"
)

// ClientEntity routes outbound event payloads to a Go channel, bridging the
// core to the transport layer. The transport's write loop drains Events().
type ClientEntity struct {
	handle string
	events chan []byte
	mu     sync.Mutex
	closed bool
}

// NewClientEntity creates a ClientEntity for the given session handle.
//
// Precondition: handle must be non-empty.
// Postcondition: Returns a ClientEntity with an open events channel.
func NewClientEntity(handle string, bufferSize int) *ClientEntity {
	if bufferSize <= 0 {
		bufferSize = 64
	}
	return &ClientEntity{
		handle: handle,
		events: make(chan []byte, bufferSize),
	}
}

// Handle returns the session handle this entity belongs to.
func (e *ClientEntity) Handle() string {
	return e.handle
}

// Push enqueues an outbound payload.
//
// Postcondition: The payload is enqueued, or an error if the entity is closed
// or its buffer is full. A full buffer means the peer is not draining; the
// caller decides whether that is a disconnect.
func (e *ClientEntity) Push(data []byte) error {
	e.mu.Lock()
	defer e.mu.Unlock()

	if e.closed {
		return fmt.Errorf("entity %s is closed", e.handle)
	}
	select {
	case e.events <- data:
		return nil
	default:
		return fmt.Errorf("entity %s event buffer full", e.handle)
	}
}

// Events returns the read-only events channel.
func (e *ClientEntity) Events() <-chan []byte {
	return e.events
}

// Close marks the entity as closed and closes the events channel.
//
// Postcondition: The events channel is closed. Further Push calls return an error.
func (e *ClientEntity) Close() error {
	e.mu.Lock()
	defer e.mu.Unlock()

	if !e.closed {
		e.closed = true
		close(e.events)
	}
	return nil
}

// IsClosed reports whether the entity has been closed.
func (e *ClientEntity) IsClosed() bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.closed
}
