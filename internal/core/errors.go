package core

import "errors"

// Session-local failures. None of them may stop the relay server.
var (
	ErrProtocol      = errors.New("protocol error")
	ErrUnauthorized  = errors.New("unauthorized")
	ErrNotFound      = errors.New("not found")
	ErrTransport     = errors.New("transport error")
	ErrAlreadyMember = errors.New("already a member of this room")

	ErrBackpressure = errors.New("backpressure")
	ErrConnClosed   = errors.New("connection closed")
	ErrRoomClosed   = errors.New("room closed")
)
