package signal

import (
	"context"
	"errors"
	"io"
	"net"
	"sync"
	"sync/atomic"

	"github.com/dkeye/meetrelay/internal/adapters/stream"
	"github.com/dkeye/meetrelay/internal/core"
	"github.com/dkeye/meetrelay/internal/domain"
	"github.com/dkeye/meetrelay/internal/protocol"
	"github.com/rs/zerolog/log"
	"github.com/sourcegraph/conc/panics"
)

type State int32

const (
	StateConnecting State = iota
	StateAuthorizing
	StateJoined
	StateLeaving
	StateClosed
)

func (s State) String() string {
	switch s {
	case StateConnecting:
		return "connecting"
	case StateAuthorizing:
		return "authorizing"
	case StateJoined:
		return "joined"
	case StateLeaving:
		return "leaving"
	case StateClosed:
		return "closed"
	default:
		return "unknown"
	}
}

var errLeave = errors.New("leave requested")

// Session is one client connection from handshake to close. It implements
// core.SignalConnection for the member it registers.
type Session struct {
	id     core.SessionID
	ctl    *Controller
	conn   stream.Conn
	preset *protocol.Handshake

	ctx          context.Context
	cancel       context.CancelFunc
	stopOnParent func() bool
	state        atomic.Int32

	member core.MemberSession
	joined bool

	send       chan core.Frame
	sendMu     sync.RWMutex
	sendClosed bool
	writerDone chan struct{}

	endMu     sync.Mutex
	endCode   int
	endReason string
}

func newSession(parent context.Context, id core.SessionID, ctl *Controller, conn stream.Conn, preset *protocol.Handshake) *Session {
	ctx, cancel := context.WithCancel(parent)
	s := &Session{
		id:     id,
		ctl:    ctl,
		conn:   conn,
		preset: preset,
		ctx:    ctx,
		cancel: cancel,
		send:   make(chan core.Frame, ctl.opts.SendQueue),
	}
	// the server context going away is a shutdown for every session on it
	s.stopOnParent = context.AfterFunc(parent, func() { s.Evict(protocol.ReasonShutdown) })
	return s
}

func (s *Session) ID() core.SessionID { return s.id }

func (s *Session) State() State { return State(s.state.Load()) }

func (s *Session) setState(st State) {
	s.state.Store(int32(st))
}

// TrySend enqueues f for the writer without blocking.
func (s *Session) TrySend(f core.Frame) error {
	s.sendMu.RLock()
	defer s.sendMu.RUnlock()
	if s.sendClosed {
		return core.ErrConnClosed
	}
	select {
	case s.send <- f:
		return nil
	default:
		return core.ErrBackpressure
	}
}

// Evict ends the session with reason. Safe from any goroutine.
func (s *Session) Evict(reason string) {
	s.interrupt(protocol.CodeForReason(reason), reason)
}

// interrupt records the first close reason and unblocks the reader.
func (s *Session) interrupt(code int, reason string) {
	s.endMu.Lock()
	if s.endReason == "" {
		s.endCode, s.endReason = code, reason
	}
	s.endMu.Unlock()
	s.cancel()
	_ = s.conn.SetReadDeadline(deadlineNow())
}

func (s *Session) interrupted() (int, string, bool) {
	s.endMu.Lock()
	defer s.endMu.Unlock()
	return s.endCode, s.endReason, s.endReason != ""
}

// run drives the session through its states. Cleanup runs on every exit,
// panics included.
func (s *Session) run() {
	var err error
	var pc panics.Catcher
	pc.Try(func() { err = s.serve() })
	if rec := pc.Recovered(); rec != nil {
		log.Error().Str("module", "signal").Str("sid", string(s.id)).Str("panic", rec.String()).Msg("session panicked")
		s.interrupt(protocol.CodeInternalError, protocol.ReasonInternalError)
	}
	s.finish(err)
}

func (s *Session) serve() error {
	s.setState(StateConnecting)
	hs, err := s.awaitHandshake()
	if err != nil {
		return err
	}

	s.setState(StateAuthorizing)
	user, meeting, err := s.authorize(hs)
	if err != nil {
		return err
	}

	s.member = core.NewMemberSession(s.id, domain.NewMember(user, meeting.ID, nowUTC()), s)
	s.writerDone = make(chan struct{})
	go s.writePump()

	if err := s.ctl.Orch.Join(s.ctx, s.member); err != nil {
		return err
	}
	s.joined = true
	s.setState(StateJoined)
	return s.readLoop()
}

func (s *Session) finish(err error) {
	s.stopOnParent()
	code, reason := s.closeReason(err)
	s.setState(StateLeaving)
	if s.joined {
		s.ctl.Orch.Leave(s.member, reason)
		if s.ctl.Limiter != nil {
			s.ctl.Limiter.Forget(s.member.Meta().User.ID)
		}
	}
	s.stopWriter()
	if cerr := s.conn.CloseWithReason(code, reason); cerr != nil {
		log.Debug().Err(cerr).Str("module", "signal").Str("sid", string(s.id)).Msg("close")
	}
	if s.member != nil {
		s.member.Meta().SetState(domain.MemberClosed)
	}
	s.setState(StateClosed)
	s.cancel()

	ev := log.Info()
	if code != protocol.CodeNormal {
		ev = log.Warn().Err(err)
	}
	ev.Str("module", "signal").Str("sid", string(s.id)).Int("code", code).Str("reason", reason).Msg("session closed")
}

func (s *Session) closeReason(err error) (int, string) {
	if code, reason, ok := s.interrupted(); ok {
		return code, reason
	}
	var ne net.Error
	switch {
	case err == nil, errors.Is(err, errLeave):
		return protocol.CodeNormal, protocol.ReasonLeft
	case errors.Is(err, io.EOF):
		return protocol.CodeNormal, protocol.ReasonClosed
	case errors.Is(err, context.Canceled):
		return protocol.CodeGoingAway, protocol.ReasonShutdown
	case s.State() == StateJoined && errors.As(err, &ne) && ne.Timeout():
		return protocol.CodeGoingAway, protocol.ReasonIdleTimeout
	}
	return protocol.CloseFor(err)
}
