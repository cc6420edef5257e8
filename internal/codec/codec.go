// Package codec implements the relay wire framing: a 4-byte big-endian
// payload length followed by the payload. Every message class uses the
// same framing; payloads are never inspected here.
package codec

import (
	"encoding/binary"
	"errors"
	"fmt"
	"io"
	"math"

	"github.com/dkeye/meetrelay/internal/core"
)

const (
	HeaderSize = 4

	DefaultMaxPayload = 16 << 20
)

var ErrFrameTooLarge = fmt.Errorf("%w: frame too large", core.ErrProtocol)

// Encode returns payload prefixed with its length.
func Encode(payload []byte) core.Frame {
	return AppendFrame(make([]byte, 0, HeaderSize+len(payload)), payload)
}

// AppendFrame appends the encoded frame for payload to dst.
func AppendFrame(dst, payload []byte) []byte {
	if uint64(len(payload)) > math.MaxUint32 {
		panic("codec: payload exceeds 4-byte length prefix")
	}
	dst = binary.BigEndian.AppendUint32(dst, uint32(len(payload)))
	return append(dst, payload...)
}

// Decoder reads frames from a byte stream. It is not safe for concurrent use.
type Decoder struct {
	r   io.Reader
	max uint32
	hdr [HeaderSize]byte
}

// NewDecoder returns a decoder rejecting payloads larger than maxPayload.
// A non-positive maxPayload selects DefaultMaxPayload.
func NewDecoder(r io.Reader, maxPayload int) *Decoder {
	if maxPayload <= 0 || uint64(maxPayload) > math.MaxUint32 {
		maxPayload = DefaultMaxPayload
	}
	return &Decoder{r: r, max: uint32(maxPayload)}
}

// Decode blocks until one whole frame has arrived and returns its payload.
// It returns io.EOF if the stream ends cleanly between frames and
// io.ErrUnexpectedEOF if it ends inside one.
func (d *Decoder) Decode() ([]byte, error) {
	if _, err := io.ReadFull(d.r, d.hdr[:]); err != nil {
		return nil, err
	}
	n := binary.BigEndian.Uint32(d.hdr[:])
	if n > d.max {
		return nil, fmt.Errorf("%w: %d bytes, limit %d", ErrFrameTooLarge, n, d.max)
	}
	payload := make([]byte, n)
	if _, err := io.ReadFull(d.r, payload); err != nil {
		if errors.Is(err, io.EOF) {
			return nil, io.ErrUnexpectedEOF
		}
		return nil, err
	}
	return payload, nil
}

// Decode reads a single frame from r.
func Decode(r io.Reader, maxPayload int) ([]byte, error) {
	return NewDecoder(r, maxPayload).Decode()
}
