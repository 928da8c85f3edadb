package realtime

import "errors"

// ConnID identifies one live transport connection
type ConnID string

// ErrConnClosed is returned by Send once a connection has shut down
var ErrConnClosed = errors.New("connection closed")

// ErrSendQueueFull is returned when a slow peer cannot keep up
var ErrSendQueueFull = errors.New("send queue full")

// Conn is a live connection the coordinator can push events to.
// Send must not block.
type Conn interface {
	ID() ConnID
	Send(event Event) error
}
