package codec

import (
	"bytes"
	"encoding/binary"
	"errors"
	"io"
	"testing"
	"testing/iotest"

	"github.com/dkeye/meetrelay/internal/core"
	"github.com/stretchr/testify/require"
)

func TestEncode_Header(t *testing.T) {
	req := require.New(t)
	got := Encode([]byte("hello"))
	req.Len(got, HeaderSize+5)
	req.Equal(uint32(5), binary.BigEndian.Uint32(got[:HeaderSize]))
	req.Equal([]byte("hello"), []byte(got[HeaderSize:]))
}

func TestDecode_RoundTrip(t *testing.T) {
	const limit = 1024
	tests := []struct {
		name    string
		payload []byte
	}{
		{"empty", []byte{}},
		{"one byte", []byte{0x7f}},
		{"text", []byte(`{"type":"chat","content":"hi"}`)},
		{"binary", bytes.Repeat([]byte{0, 1, 2, 0xff}, 64)},
		{"exactly limit", bytes.Repeat([]byte{'x'}, limit)},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := require.New(t)
			got, err := Decode(bytes.NewReader(Encode(tt.payload)), limit)
			req.NoError(err)
			req.NotNil(got)
			req.Equal(tt.payload, got)
		})
	}
}

func TestDecode_AccumulatesPartialReads(t *testing.T) {
	req := require.New(t)
	var stream []byte
	stream = AppendFrame(stream, []byte("first"))
	stream = AppendFrame(stream, []byte{})
	stream = AppendFrame(stream, []byte("third frame"))

	// Given a reader delivering one byte at a time
	dec := NewDecoder(iotest.OneByteReader(bytes.NewReader(stream)), 0)

	// Then every frame is reassembled in order
	for _, want := range []string{"first", "", "third frame"} {
		got, err := dec.Decode()
		req.NoError(err)
		req.Equal(want, string(got))
	}
	_, err := dec.Decode()
	req.ErrorIs(err, io.EOF)
}

func TestDecode_Oversize(t *testing.T) {
	req := require.New(t)
	frame := Encode(bytes.Repeat([]byte{'a'}, 65))

	_, err := Decode(bytes.NewReader(frame), 64)
	req.ErrorIs(err, ErrFrameTooLarge)
	req.ErrorIs(err, core.ErrProtocol)
}

func TestDecode_OversizeIsolatedPerDecoder(t *testing.T) {
	req := require.New(t)
	bad := NewDecoder(bytes.NewReader(Encode(make([]byte, 100))), 10)
	good := NewDecoder(bytes.NewReader(append(Encode([]byte("ok")), Encode([]byte("still ok"))...)), 10)

	_, err := bad.Decode()
	req.ErrorIs(err, core.ErrProtocol)

	got, err := good.Decode()
	req.NoError(err)
	req.Equal("ok", string(got))
	got, err = good.Decode()
	req.NoError(err)
	req.Equal("still ok", string(got))
}

func TestDecode_TruncatedStream(t *testing.T) {
	tests := []struct {
		name string
		data []byte
		want error
	}{
		{"empty stream", nil, io.EOF},
		{"partial header", []byte{0, 0}, io.ErrUnexpectedEOF},
		{"partial payload", Encode([]byte("abcdef"))[:HeaderSize+2], io.ErrUnexpectedEOF},
		{"header only", []byte{0, 0, 0, 3}, io.ErrUnexpectedEOF},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Decode(bytes.NewReader(tt.data), 0)
			require.True(t, errors.Is(err, tt.want), "got %v, want %v", err, tt.want)
		})
	}
}

func TestNewDecoder_DefaultLimit(t *testing.T) {
	req := require.New(t)
	req.Equal(uint32(DefaultMaxPayload), NewDecoder(nil, 0).max)
	req.Equal(uint32(DefaultMaxPayload), NewDecoder(nil, -1).max)
	req.Equal(uint32(7), NewDecoder(nil, 7).max)
}
