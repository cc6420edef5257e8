// Package signal runs relay sessions on top of framed stream connections.
package signal

import (
	"context"
	"sync"
	"time"

	"github.com/dkeye/meetrelay/internal/adapters/stream"
	"github.com/dkeye/meetrelay/internal/app/orch"
	"github.com/dkeye/meetrelay/internal/core"
	"github.com/dkeye/meetrelay/internal/protocol"
	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
)

type Options struct {
	HandshakeTimeout time.Duration
	// ReadTimeout bounds the silence between two inbound frames. Zero
	// disables the idle check.
	ReadTimeout  time.Duration
	WriteTimeout time.Duration
	AuthTimeout  time.Duration
	LeaveTimeout time.Duration
	SendQueue    int
}

func (o Options) withDefaults() Options {
	if o.HandshakeTimeout <= 0 {
		o.HandshakeTimeout = 10 * time.Second
	}
	if o.WriteTimeout <= 0 {
		o.WriteTimeout = 5 * time.Second
	}
	if o.AuthTimeout <= 0 {
		o.AuthTimeout = 5 * time.Second
	}
	if o.LeaveTimeout <= 0 {
		o.LeaveTimeout = 2 * time.Second
	}
	if o.SendQueue <= 0 {
		o.SendQueue = 256
	}
	return o
}

// Controller owns every live session and their shutdown.
type Controller struct {
	Orch      *orch.Orchestrator
	Authority core.MembershipAuthority
	Directory core.MeetingDirectory
	Limiter   *RoomRateLimiter

	opts Options

	mu       sync.Mutex
	sessions map[core.SessionID]*Session
	closing  bool
	wg       sync.WaitGroup
}

func NewController(o *orch.Orchestrator, auth core.MembershipAuthority, dir core.MeetingDirectory, limiter *RoomRateLimiter, opts Options) *Controller {
	return &Controller{
		Orch:      o,
		Authority: auth,
		Directory: dir,
		Limiter:   limiter,
		opts:      opts.withDefaults(),
		sessions:  make(map[core.SessionID]*Session),
	}
}

// Serve runs one session on conn until it closes. A non-nil preset
// replaces the handshake frame, as for WebSocket clients passing the token
// in the URL.
func (ctl *Controller) Serve(ctx context.Context, conn stream.Conn, preset *protocol.Handshake) {
	s := newSession(ctx, core.SessionID(uuid.NewString()), ctl, conn, preset)
	if !ctl.track(s) {
		log.Info().Str("module", "signal").Str("remote", conn.RemoteAddr()).Msg("rejecting connection during shutdown")
		_ = conn.CloseWithReason(protocol.CodeGoingAway, protocol.ReasonShutdown)
		return
	}
	defer ctl.untrack(s)

	log.Info().Str("module", "signal").Str("sid", string(s.id)).Str("remote", conn.RemoteAddr()).Str("transport", conn.Kind()).Msg("new connection")
	s.run()
}

func (ctl *Controller) track(s *Session) bool {
	ctl.mu.Lock()
	defer ctl.mu.Unlock()
	if ctl.closing {
		return false
	}
	ctl.sessions[s.id] = s
	ctl.wg.Add(1)
	return true
}

func (ctl *Controller) untrack(s *Session) {
	ctl.mu.Lock()
	delete(ctl.sessions, s.id)
	ctl.mu.Unlock()
	ctl.wg.Done()
}

func (ctl *Controller) ActiveSessions() int {
	ctl.mu.Lock()
	defer ctl.mu.Unlock()
	return len(ctl.sessions)
}

// Shutdown interrupts every session and waits for them to close or for
// ctx to expire. New connections are refused from here on.
func (ctl *Controller) Shutdown(ctx context.Context) error {
	ctl.mu.Lock()
	ctl.closing = true
	live := make([]*Session, 0, len(ctl.sessions))
	for _, s := range ctl.sessions {
		live = append(live, s)
	}
	ctl.mu.Unlock()

	log.Info().Str("module", "signal").Int("sessions", len(live)).Msg("shutting down sessions")
	for _, s := range live {
		s.Evict(protocol.ReasonShutdown)
	}

	done := make(chan struct{})
	go func() {
		ctl.wg.Wait()
		close(done)
	}()
	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
