package stream

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"net"
	"sync"
	"time"

	"github.com/dkeye/meetrelay/internal/codec"
	"github.com/dkeye/meetrelay/internal/core"
	"github.com/dkeye/meetrelay/internal/protocol"
)

// TCPConn frames a raw net.Conn. The close reason travels as a final
// protocol close message because TCP has no close frame of its own.
type TCPConn struct {
	conn net.Conn
	dec  *codec.Decoder

	wmu       sync.Mutex
	closeOnce sync.Once
	closeErr  error
}

func NewTCPConn(conn net.Conn, maxPayload int) *TCPConn {
	return &TCPConn{
		conn: conn,
		dec:  codec.NewDecoder(bufio.NewReader(conn), maxPayload),
	}
}

func (c *TCPConn) ReadFrame() ([]byte, error) {
	payload, err := c.dec.Decode()
	if err != nil {
		return nil, wrapRead(err)
	}
	return payload, nil
}

func (c *TCPConn) WriteFrame(f core.Frame) error {
	c.wmu.Lock()
	defer c.wmu.Unlock()
	if _, err := c.conn.Write(f); err != nil {
		return fmt.Errorf("%w: %w", core.ErrTransport, err)
	}
	return nil
}

func (c *TCPConn) SetReadDeadline(t time.Time) error  { return c.conn.SetReadDeadline(t) }
func (c *TCPConn) SetWriteDeadline(t time.Time) error { return c.conn.SetWriteDeadline(t) }

func (c *TCPConn) CloseWithReason(code int, reason string) error {
	if f, err := protocol.CloseFrame(code, reason); err == nil {
		c.wmu.Lock()
		_ = c.conn.SetWriteDeadline(time.Now().Add(closeWriteTimeout))
		_, _ = c.conn.Write(f)
		c.wmu.Unlock()
	}
	return c.Close()
}

func (c *TCPConn) Close() error {
	c.closeOnce.Do(func() {
		c.closeErr = c.conn.Close()
	})
	return c.closeErr
}

func (c *TCPConn) RemoteAddr() string { return c.conn.RemoteAddr().String() }
func (c *TCPConn) Kind() string       { return "tcp" }

// wrapRead keeps io.EOF and protocol errors as they are and classifies the
// rest as transport failures. Timeouts stay detectable through net.Error.
func wrapRead(err error) error {
	if errors.Is(err, io.EOF) || errors.Is(err, core.ErrProtocol) {
		return err
	}
	return fmt.Errorf("%w: %w", core.ErrTransport, err)
}
