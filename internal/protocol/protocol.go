// Package protocol defines the control messages carried inside relay frames.
package protocol

import (
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/dkeye/meetrelay/internal/codec"
	"github.com/dkeye/meetrelay/internal/core"
	"github.com/dkeye/meetrelay/internal/domain"
	"github.com/go-playground/validator/v10"
)

const CurrentVersion = 1

// Message types.
const (
	TypeHandshake = "handshake"
	TypeChat      = "chat"
	TypePresence  = "presence"
	TypeMedia     = "media"
	TypeLeave     = "leave"
	TypePing      = "ping"
	TypePong      = "pong"
	TypeRoomState = "room_state"
	TypeError     = "error"
	TypeClose     = "close"
)

type PresenceEvent string

const (
	PresenceJoined PresenceEvent = "joined"
	PresenceLeft   PresenceEvent = "left"
)

var (
	ErrUnknownType   = errors.New("unknown message type")
	ErrServerOnly    = errors.New("message type is server-originated")
	ErrBadVersion    = fmt.Errorf("%w: unsupported protocol version", core.ErrProtocol)
	ErrBadHandshake  = fmt.Errorf("%w: invalid handshake", core.ErrProtocol)
	ErrMalformedJSON = fmt.Errorf("%w: malformed message", core.ErrProtocol)
)

var validate = validator.New(validator.WithRequiredStructEnabled())

type envelope struct {
	Type string `json:"type"`
}

// Handshake opens a session. Version 0 is read as CurrentVersion.
type Handshake struct {
	Type       string `json:"type"`
	Credential string `json:"credential" validate:"required"`
	MeetingID  string `json:"meeting_id" validate:"required,max=128"`
	Version    int    `json:"version,omitempty" validate:"gte=0"`
}

func (h *Handshake) Validate() error {
	if err := validate.Struct(h); err != nil {
		return fmt.Errorf("%w: %v", ErrBadHandshake, err)
	}
	if h.Version != 0 && h.Version != CurrentVersion {
		return fmt.Errorf("%w: %d", ErrBadVersion, h.Version)
	}
	return nil
}

// ChatRequest is a chat line as sent by a client.
type ChatRequest struct {
	Type    string `json:"type"`
	Content string `json:"content"`
}

// MediaRequest carries an opaque media blob, base64 in JSON.
type MediaRequest struct {
	Type string `json:"type"`
	Data []byte `json:"data"`
}

type LeaveRequest struct {
	Type string `json:"type"`
}

type PingRequest struct {
	Type string `json:"type"`
}

// Decode parses an inbound payload into one of the request types.
// Undecodable payloads fail with an error wrapping core.ErrProtocol.
func Decode(payload []byte) (any, error) {
	var env envelope
	if err := json.Unmarshal(payload, &env); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformedJSON, err)
	}
	var msg any
	switch env.Type {
	case TypeHandshake:
		msg = &Handshake{}
	case TypeChat:
		msg = &ChatRequest{}
	case TypeMedia:
		msg = &MediaRequest{}
	case TypeLeave:
		return &LeaveRequest{Type: env.Type}, nil
	case TypePing:
		return &PingRequest{Type: env.Type}, nil
	case TypePresence, TypeRoomState, TypePong, TypeClose, TypeError:
		return nil, fmt.Errorf("%w: %s", ErrServerOnly, env.Type)
	case "":
		return nil, fmt.Errorf("%w: missing type", ErrMalformedJSON)
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownType, env.Type)
	}
	if err := json.Unmarshal(payload, msg); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformedJSON, err)
	}
	return msg, nil
}

// DecodeHandshake parses and validates the first frame of a session.
func DecodeHandshake(payload []byte) (*Handshake, error) {
	msg, err := Decode(payload)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrBadHandshake, err)
	}
	hs, ok := msg.(*Handshake)
	if !ok {
		return nil, fmt.Errorf("%w: expected %s first", ErrBadHandshake, TypeHandshake)
	}
	if err := hs.Validate(); err != nil {
		return nil, err
	}
	return hs, nil
}

// Chat is the broadcast form of an accepted chat message.
type Chat struct {
	Type      string        `json:"type"`
	MessageID string        `json:"message_id"`
	UserID    domain.UserID `json:"user_id"`
	Username  string        `json:"username"`
	Content   string        `json:"content"`
	SentAt    time.Time     `json:"sent_at"`
}

func NewChat(m domain.ChatMessage) Chat {
	return Chat{
		Type:      TypeChat,
		MessageID: m.ID,
		UserID:    m.UserID,
		Username:  m.Username,
		Content:   m.Content,
		SentAt:    m.SentAt,
	}
}

type Presence struct {
	Type     string        `json:"type"`
	Event    PresenceEvent `json:"event"`
	UserID   domain.UserID `json:"user_id"`
	Username string        `json:"username"`
}

type Media struct {
	Type   string        `json:"type"`
	UserID domain.UserID `json:"user_id"`
	Data   []byte        `json:"data"`
}

// RoomState is sent to a session right after it joins.
type RoomState struct {
	Type      string           `json:"type"`
	MeetingID domain.MeetingID `json:"meeting_id"`
	Self      domain.UserID    `json:"self"`
	Members   []core.MemberDTO `json:"members"`
	Count     int              `json:"count"`
	History   []Chat           `json:"history"`
}

type Pong struct {
	Type string `json:"type"`
	At   int64  `json:"at"`
}

type ErrorMessage struct {
	Type  string `json:"type"`
	Error string `json:"error"`
}

// Close tells a stream client why the server is closing. WebSocket clients
// get the same code and reason in the close control frame instead.
type Close struct {
	Type   string `json:"type"`
	Code   int    `json:"code"`
	Reason string `json:"reason"`
}

// Frame marshals v and wraps it in a wire frame.
func Frame(v any) (core.Frame, error) {
	b, err := json.Marshal(v)
	if err != nil {
		return nil, err
	}
	return codec.Encode(b), nil
}

func ChatFrame(m domain.ChatMessage) (core.Frame, error) {
	return Frame(NewChat(m))
}

func PresenceFrame(ev PresenceEvent, u *domain.User) (core.Frame, error) {
	return Frame(Presence{Type: TypePresence, Event: ev, UserID: u.ID, Username: u.Username})
}

func MediaFrame(from domain.UserID, data []byte) (core.Frame, error) {
	return Frame(Media{Type: TypeMedia, UserID: from, Data: data})
}

func PongFrame(at time.Time) (core.Frame, error) {
	return Frame(Pong{Type: TypePong, At: at.UnixMilli()})
}

func ErrorFrame(msg string) (core.Frame, error) {
	return Frame(ErrorMessage{Type: TypeError, Error: msg})
}

func CloseFrame(code int, reason string) (core.Frame, error) {
	return Frame(Close{Type: TypeClose, Code: code, Reason: reason})
}
