// Package relay assembles the meeting relay: stream listeners, sessions,
// rooms, broadcast and persistence.
package relay

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"sync"
	"time"

	httpadapter "github.com/dkeye/meetrelay/internal/adapters/http"
	"github.com/dkeye/meetrelay/internal/adapters/signal"
	"github.com/dkeye/meetrelay/internal/adapters/stream"
	"github.com/dkeye/meetrelay/internal/app"
	"github.com/dkeye/meetrelay/internal/app/orch"
	"github.com/dkeye/meetrelay/internal/config"
	"github.com/dkeye/meetrelay/internal/core"
	"github.com/dkeye/meetrelay/internal/protocol"
	"github.com/rs/zerolog/log"
	"github.com/sourcegraph/conc"
)

const acceptRetryDelay = 50 * time.Millisecond

type Deps struct {
	Authority core.MembershipAuthority
	Directory core.MeetingDirectory
	Store     core.MessageStore
	// Archive backs the history endpoints. Optional.
	Archive httpadapter.Archive
}

type Server struct {
	cfg  *config.Config
	deps Deps

	Registry   *app.Registry
	Controller *signal.Controller
	Persister  *app.Persister

	mu      sync.Mutex
	tcpLn   net.Listener
	httpLn  net.Listener
	httpSrv *http.Server
	quit    chan struct{}
	wg      conc.WaitGroup
}

func New(cfg *config.Config, deps Deps) *Server {
	var policy app.Policy = app.SimplePolicy{}
	if cfg.Relay.SlowPeerGrace > 0 {
		policy = app.NewSlowPeerPolicy(cfg.Relay.SlowPeerGrace)
	}

	reg := app.NewRegistry()
	persister := app.NewPersister(deps.Store, cfg.Store.PersistQueueSize, cfg.Store.PersistTimeout)
	o := orch.New(reg, app.NewBroadcaster(reg, policy), deps.Store, persister, orch.Options{
		MaxChatLength: cfg.Relay.MaxChatLength,
		HistoryOnJoin: cfg.Relay.HistoryOnJoin,
	})
	ctl := signal.NewController(o, deps.Authority, deps.Directory,
		signal.NewRoomRateLimiter(cfg.Relay.ChatRateLimit, cfg.Relay.ChatRateInterval),
		signal.Options{
			HandshakeTimeout: cfg.Relay.HandshakeTimeout,
			ReadTimeout:      cfg.Relay.ReadTimeout,
			WriteTimeout:     cfg.Relay.WriteTimeout,
			AuthTimeout:      cfg.Relay.AuthTimeout,
			LeaveTimeout:     cfg.Relay.LeaveTimeout,
			SendQueue:        cfg.Relay.SendQueueSize,
		})

	return &Server{
		cfg:        cfg,
		deps:       deps,
		Registry:   reg,
		Controller: ctl,
		Persister:  persister,
		quit:       make(chan struct{}),
	}
}

// Start binds the TCP and HTTP listeners and serves in the background.
// Bind failures are returned; nothing after startup stops the server
// except Shutdown.
func (s *Server) Start(ctx context.Context) error {
	tcpLn, err := net.Listen("tcp", s.cfg.Server.TCPAddr)
	if err != nil {
		return fmt.Errorf("listen tcp %s: %w", s.cfg.Server.TCPAddr, err)
	}
	httpAddr := fmt.Sprintf(":%d", s.cfg.Port)
	httpLn, err := net.Listen("tcp", httpAddr)
	if err != nil {
		_ = tcpLn.Close()
		return fmt.Errorf("listen http %s: %w", httpAddr, err)
	}
	return s.Serve(ctx, tcpLn, httpLn)
}

// Serve runs on listeners the caller already bound.
func (s *Server) Serve(ctx context.Context, tcpLn, httpLn net.Listener) error {
	router := httpadapter.SetupRouter(ctx, s.cfg, httpadapter.Deps{
		Controller: s.Controller,
		Registry:   s.Registry,
		Archive:    s.deps.Archive,
	})

	s.mu.Lock()
	s.tcpLn, s.httpLn = tcpLn, httpLn
	s.httpSrv = &http.Server{Handler: router, ReadHeaderTimeout: 10 * time.Second}
	s.mu.Unlock()

	s.wg.Go(func() {
		if err := s.Persister.Run(context.WithoutCancel(ctx)); err != nil && !errors.Is(err, context.Canceled) {
			log.Error().Err(err).Str("module", "relay").Msg("persister stopped")
		}
	})
	s.wg.Go(func() { s.acceptLoop(ctx, tcpLn) })
	s.wg.Go(func() {
		if err := s.httpSrv.Serve(httpLn); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Error().Err(err).Str("module", "relay").Msg("http server error")
		}
	})

	log.Info().Str("module", "relay").Str("tcp", tcpLn.Addr().String()).Str("http", httpLn.Addr().String()).Msg("relay started")
	return nil
}

func (s *Server) TCPAddr() net.Addr {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.tcpLn.Addr()
}

func (s *Server) HTTPAddr() net.Addr {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.httpLn.Addr()
}

func (s *Server) acceptLoop(ctx context.Context, ln net.Listener) {
	for {
		conn, err := ln.Accept()
		if err != nil {
			select {
			case <-s.quit:
				return
			default:
				log.Error().Err(err).Str("module", "relay").Msg("failed to accept connection")
				time.Sleep(acceptRetryDelay)
				continue
			}
		}
		go s.Controller.Serve(ctx, stream.NewTCPConn(conn, s.cfg.Relay.MaxFrameSize), nil)
	}
}

// Shutdown stops accepting, interrupts every session and waits for them
// up to ShutdownTimeout. Members still registered after that are evicted.
func (s *Server) Shutdown(ctx context.Context) error {
	s.mu.Lock()
	select {
	case <-s.quit:
		s.mu.Unlock()
		return nil
	default:
		close(s.quit)
	}
	tcpLn, httpSrv := s.tcpLn, s.httpSrv
	s.mu.Unlock()

	log.Info().Str("module", "relay").Msg("shutting down")
	if tcpLn != nil {
		_ = tcpLn.Close()
	}

	ctx, cancel := context.WithTimeout(ctx, s.cfg.Server.ShutdownTimeout)
	defer cancel()

	var errs []error
	if httpSrv != nil {
		if err := httpSrv.Shutdown(ctx); err != nil {
			errs = append(errs, fmt.Errorf("http shutdown: %w", err))
		}
	}
	if err := s.Controller.Shutdown(ctx); err != nil {
		n := s.Controller.Orch.EvictAll(protocol.ReasonShutdown)
		log.Warn().Err(err).Str("module", "relay").Int("evicted", n).Msg("sessions did not close in time")
		errs = append(errs, fmt.Errorf("session shutdown: %w", err))
	}

	// the departures recorded above still get their own window to flush
	flushCtx, flushCancel := context.WithTimeout(context.WithoutCancel(ctx), s.cfg.Store.PersistTimeout)
	defer flushCancel()
	if err := s.Persister.Close(flushCtx); err != nil {
		errs = append(errs, fmt.Errorf("persister flush: %w", err))
	}
	s.wg.Wait()
	log.Info().Str("module", "relay").Msg("relay stopped")
	return errors.Join(errs...)
}
