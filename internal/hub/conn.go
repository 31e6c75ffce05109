// internal/hub/conn.go
package hub

import (
	"context"
	"log"
	"sync"

	"github.com/Velozity/CastGameCoordinator/internal/models"
	"github.com/google/uuid"
)

// Event is one protocol frame, either direction: an event name plus an
// arbitrary JSON payload.
type Event struct {
	Event string      `json:"event"`
	Data  interface{} `json:"data,omitempty"`
}

// ErrorPayload is the body of outbound error events.
type ErrorPayload struct {
	Code  int    `json:"code"`
	Error string `json:"error"`
}

// Conn is a single live coordinator socket. The read pump owns its lifetime;
// the write pump drains OutChan.
type Conn struct {
	ID        uuid.UUID
	Principal models.Principal

	OutChan chan Event

	cancel    context.CancelFunc
	closeOnce sync.Once
}

// NewConn wraps an authenticated socket. cancel must stop the connection's
// read loop when invoked.
func NewConn(principal models.Principal, cancel context.CancelFunc) *Conn {
	id, _ := uuid.NewRandom()
	return &Conn{
		ID:        id,
		Principal: principal,
		OutChan:   make(chan Event, 16),
		cancel:    cancel,
	}
}

// Send pushes an event onto the connection's out channel non-blockingly.
// Logs if the channel is full or closed; slow consumers lose frames rather
// than stalling the hub.
func (c *Conn) Send(event string, data interface{}) {
	select {
	case c.OutChan <- Event{Event: event, Data: data}:
	default:
		log.Printf("hub: OutChan for %s %s full or closed, dropped event %q", c.Principal.Kind, c.Principal.ID, event)
	}
}

// SendError is a convenience to send a structured error event.
func (c *Conn) SendError(code int, msg string) {
	c.Send("error", ErrorPayload{Code: code, Error: msg})
}

// Close cancels the connection's read loop. Safe to call more than once.
func (c *Conn) Close() {
	c.closeOnce.Do(func() {
		if c.cancel != nil {
			c.cancel()
		}
	})
}
