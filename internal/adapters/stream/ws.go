package stream

import (
	"errors"
	"fmt"
	"io"
	"sync"
	"time"

	"github.com/dkeye/meetrelay/internal/codec"
	"github.com/dkeye/meetrelay/internal/core"
	"github.com/gorilla/websocket"
)

// WSConn carries relay frames over WebSocket data messages. A message may
// hold part of a frame or several frames; the codec sees one byte stream.
type WSConn struct {
	ws  *websocket.Conn
	dec *codec.Decoder

	wmu       sync.Mutex
	closeOnce sync.Once
	closeErr  error
}

func NewWSConn(ws *websocket.Conn, maxPayload int) *WSConn {
	if maxPayload <= 0 {
		maxPayload = codec.DefaultMaxPayload
	}
	ws.SetReadLimit(int64(maxPayload) + codec.HeaderSize)
	return &WSConn{
		ws:  ws,
		dec: codec.NewDecoder(&messageReader{ws: ws}, maxPayload),
	}
}

func (c *WSConn) ReadFrame() ([]byte, error) {
	payload, err := c.dec.Decode()
	if err != nil {
		if errors.Is(err, websocket.ErrReadLimit) {
			return nil, fmt.Errorf("%w: %v", codec.ErrFrameTooLarge, err)
		}
		return nil, wrapRead(err)
	}
	return payload, nil
}

func (c *WSConn) WriteFrame(f core.Frame) error {
	c.wmu.Lock()
	defer c.wmu.Unlock()
	if err := c.ws.WriteMessage(websocket.BinaryMessage, f); err != nil {
		return fmt.Errorf("%w: %w", core.ErrTransport, err)
	}
	return nil
}

func (c *WSConn) SetReadDeadline(t time.Time) error  { return c.ws.SetReadDeadline(t) }
func (c *WSConn) SetWriteDeadline(t time.Time) error { return c.ws.SetWriteDeadline(t) }

func (c *WSConn) CloseWithReason(code int, reason string) error {
	msg := websocket.FormatCloseMessage(code, reason)
	_ = c.ws.WriteControl(websocket.CloseMessage, msg, time.Now().Add(closeWriteTimeout))
	return c.Close()
}

func (c *WSConn) Close() error {
	c.closeOnce.Do(func() {
		c.closeErr = c.ws.Close()
	})
	return c.closeErr
}

func (c *WSConn) RemoteAddr() string { return c.ws.RemoteAddr().String() }
func (c *WSConn) Kind() string       { return "ws" }

// messageReader concatenates the bodies of consecutive data messages.
// A normal or going-away close from the peer reads as io.EOF.
type messageReader struct {
	ws  *websocket.Conn
	cur io.Reader
}

func (m *messageReader) Read(p []byte) (int, error) {
	for {
		if m.cur == nil {
			_, r, err := m.ws.NextReader()
			if err != nil {
				if websocket.IsCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
					return 0, io.EOF
				}
				return 0, err
			}
			m.cur = r
		}
		n, err := m.cur.Read(p)
		if errors.Is(err, io.EOF) {
			m.cur = nil
			if n > 0 {
				return n, nil
			}
			continue
		}
		return n, err
	}
}
