package protocol

import (
	"errors"

	"github.com/dkeye/meetrelay/internal/core"
)

// Close codes, numerically aligned with RFC 6455.
const (
	CodeNormal          = 1000
	CodeGoingAway       = 1001
	CodePolicyViolation = 1008
	CodeInternalError   = 1011
)

// Close reasons.
const (
	ReasonLeft           = "left"
	ReasonClosed         = "closed"
	ReasonUnauthorized   = "unauthorized"
	ReasonNotFound       = "not_found"
	ReasonProtocolError  = "protocol_error"
	ReasonAlreadyJoined  = "already_joined"
	ReasonSlowConsumer   = "slow_consumer"
	ReasonTransportError = "transport_error"
	ReasonIdleTimeout    = "idle_timeout"
	ReasonShutdown       = "server_shutdown"
	ReasonInternalError  = "internal_error"
)

// CloseFor maps a session-ending error to the code and reason sent to the
// client.
func CloseFor(err error) (int, string) {
	switch {
	case err == nil:
		return CodeNormal, ReasonClosed
	case errors.Is(err, core.ErrUnauthorized):
		return CodePolicyViolation, ReasonUnauthorized
	case errors.Is(err, core.ErrNotFound):
		return CodePolicyViolation, ReasonNotFound
	case errors.Is(err, core.ErrProtocol):
		return CodePolicyViolation, ReasonProtocolError
	case errors.Is(err, core.ErrAlreadyMember):
		return CodePolicyViolation, ReasonAlreadyJoined
	case errors.Is(err, core.ErrTransport):
		return CodeInternalError, ReasonTransportError
	default:
		return CodeInternalError, ReasonInternalError
	}
}

// CodeForReason returns the close code used when a session is interrupted
// from outside with reason.
func CodeForReason(reason string) int {
	switch reason {
	case ReasonLeft, ReasonClosed:
		return CodeNormal
	case ReasonShutdown, ReasonIdleTimeout:
		return CodeGoingAway
	case ReasonTransportError, ReasonInternalError:
		return CodeInternalError
	default:
		return CodePolicyViolation
	}
}
