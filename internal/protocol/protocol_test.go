package protocol

import (
	"bytes"
	"encoding/json"
	"testing"
	"time"

	"github.com/dkeye/meetrelay/internal/codec"
	"github.com/dkeye/meetrelay/internal/core"
	"github.com/dkeye/meetrelay/internal/domain"
	"github.com/stretchr/testify/require"
)

func TestDecode_Types(t *testing.T) {
	cases := []struct {
		name    string
		payload string
		want    any
	}{
		{"chat", `{"type":"chat","content":"hi"}`, &ChatRequest{Type: TypeChat, Content: "hi"}},
		{"media", `{"type":"media","data":"AQID"}`, &MediaRequest{Type: TypeMedia, Data: []byte{1, 2, 3}}},
		{"leave", `{"type":"leave"}`, &LeaveRequest{Type: TypeLeave}},
		{"ping", `{"type":"ping"}`, &PingRequest{Type: TypePing}},
		{"handshake", `{"type":"handshake","credential":"t","meeting_id":"m1"}`, &Handshake{Type: TypeHandshake, Credential: "t", MeetingID: "m1"}},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			got, err := Decode([]byte(tc.payload))
			require.NoError(t, err)
			require.Equal(t, tc.want, got)
		})
	}
}

func TestDecode_Errors(t *testing.T) {
	r := require.New(t)

	_, err := Decode([]byte(`{not json`))
	r.ErrorIs(err, core.ErrProtocol)

	_, err = Decode([]byte(`{"content":"x"}`))
	r.ErrorIs(err, core.ErrProtocol)

	_, err = Decode([]byte(`{"type":"dance"}`))
	r.ErrorIs(err, ErrUnknownType)
	r.NotErrorIs(err, core.ErrProtocol)

	_, err = Decode([]byte(`{"type":"presence","event":"joined"}`))
	r.ErrorIs(err, ErrServerOnly)

	_, err = Decode([]byte(`{"type":"chat","content":42}`))
	r.ErrorIs(err, core.ErrProtocol)
}

func TestDecodeHandshake(t *testing.T) {
	r := require.New(t)

	hs, err := DecodeHandshake([]byte(`{"type":"handshake","credential":"tok","meeting_id":"m1","version":1}`))
	r.NoError(err)
	r.Equal("m1", hs.MeetingID)

	// first frame must be a handshake
	_, err = DecodeHandshake([]byte(`{"type":"chat","content":"hi"}`))
	r.ErrorIs(err, core.ErrProtocol)

	_, err = DecodeHandshake([]byte(`{"type":"handshake","meeting_id":"m1"}`))
	r.ErrorIs(err, core.ErrProtocol)

	_, err = DecodeHandshake([]byte(`{"type":"handshake","credential":"tok","meeting_id":"m1","version":7}`))
	r.ErrorIs(err, ErrBadVersion)
}

func TestChatFrame_Wire(t *testing.T) {
	r := require.New(t)
	at := time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC)

	f, err := ChatFrame(domain.ChatMessage{ID: "m-1", MeetingID: "room", UserID: "u1", Username: "Ann", Content: "hello", SentAt: at})
	r.NoError(err)

	payload, err := codec.Decode(bytes.NewReader(f), 0)
	r.NoError(err)

	var got map[string]any
	r.NoError(json.Unmarshal(payload, &got))
	r.Equal("chat", got["type"])
	r.Equal("m-1", got["message_id"])
	r.Equal("u1", got["user_id"])
	r.Equal("Ann", got["username"])
	r.Equal("hello", got["content"])
	r.Equal("2026-01-02T03:04:05Z", got["sent_at"])
}

func TestCloseFor(t *testing.T) {
	cases := []struct {
		err    error
		code   int
		reason string
	}{
		{nil, CodeNormal, ReasonClosed},
		{core.ErrUnauthorized, CodePolicyViolation, ReasonUnauthorized},
		{core.ErrNotFound, CodePolicyViolation, ReasonNotFound},
		{ErrMalformedJSON, CodePolicyViolation, ReasonProtocolError},
		{codec.ErrFrameTooLarge, CodePolicyViolation, ReasonProtocolError},
		{core.ErrAlreadyMember, CodePolicyViolation, ReasonAlreadyJoined},
		{core.ErrTransport, CodeInternalError, ReasonTransportError},
		{ErrUnknownType, CodeInternalError, ReasonInternalError},
	}
	for _, tc := range cases {
		code, reason := CloseFor(tc.err)
		require.Equal(t, tc.code, code, tc.reason)
		require.Equal(t, tc.reason, reason)
	}
}

func TestCodeForReason(t *testing.T) {
	r := require.New(t)
	r.Equal(CodeNormal, CodeForReason(ReasonLeft))
	r.Equal(CodeGoingAway, CodeForReason(ReasonShutdown))
	r.Equal(CodeGoingAway, CodeForReason(ReasonIdleTimeout))
	r.Equal(CodePolicyViolation, CodeForReason(ReasonSlowConsumer))
	r.Equal(CodeInternalError, CodeForReason(ReasonTransportError))
}
