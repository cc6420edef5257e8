// Package stream adapts byte-stream transports to framed relay connections.
package stream

import (
	"time"

	"github.com/dkeye/meetrelay/internal/core"
)

// Conn is one client connection carrying length-prefixed frames.
type Conn interface {
	// ReadFrame returns the next payload. It returns io.EOF when the peer
	// closed cleanly between frames.
	ReadFrame() ([]byte, error)
	// WriteFrame writes an already encoded frame.
	WriteFrame(f core.Frame) error
	SetReadDeadline(t time.Time) error
	SetWriteDeadline(t time.Time) error
	// CloseWithReason tells the peer why the connection ends, then closes it.
	CloseWithReason(code int, reason string) error
	Close() error
	RemoteAddr() string
	Kind() string
}

const closeWriteTimeout = time.Second
