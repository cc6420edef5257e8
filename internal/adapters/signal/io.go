package signal

import (
	"errors"
	"time"

	"github.com/dkeye/meetrelay/internal/protocol"
	"github.com/rs/zerolog/log"
)

func deadlineNow() time.Time { return time.Now() }

func nowUTC() time.Time { return time.Now().UTC() }

func (s *Session) writePump() {
	defer close(s.writerDone)
	for f := range s.send {
		if err := s.conn.SetWriteDeadline(time.Now().Add(s.ctl.opts.WriteTimeout)); err != nil {
			log.Error().Err(err).Str("module", "signal").Str("sid", string(s.id)).Msg("writePump set deadline")
			s.interrupt(protocol.CodeInternalError, protocol.ReasonTransportError)
			return
		}
		if err := s.conn.WriteFrame(f); err != nil {
			log.Error().Err(err).Str("module", "signal").Str("sid", string(s.id)).Msg("writePump write error")
			s.interrupt(protocol.CodeInternalError, protocol.ReasonTransportError)
			return
		}
	}
}

// stopWriter closes the outbound queue and lets the writer flush it. A
// writer still busy after LeaveTimeout is cut off by closing the transport.
func (s *Session) stopWriter() {
	s.sendMu.Lock()
	if !s.sendClosed {
		s.sendClosed = true
		close(s.send)
	}
	s.sendMu.Unlock()

	if s.writerDone == nil {
		return
	}
	select {
	case <-s.writerDone:
	case <-time.After(s.ctl.opts.LeaveTimeout):
		log.Warn().Str("module", "signal").Str("sid", string(s.id)).Msg("writer did not drain in time")
		_ = s.conn.Close()
		<-s.writerDone
	}
}

func (s *Session) readLoop() error {
	for {
		var deadline time.Time
		if s.ctl.opts.ReadTimeout > 0 {
			deadline = time.Now().Add(s.ctl.opts.ReadTimeout)
		}
		if err := s.conn.SetReadDeadline(deadline); err != nil {
			return err
		}
		// checked after arming the deadline so an interrupt is never lost
		if s.ctx.Err() != nil {
			return s.ctx.Err()
		}
		payload, err := s.conn.ReadFrame()
		if err != nil {
			return err
		}
		if err := s.handleFrame(payload); err != nil {
			return err
		}
	}
}

func (s *Session) handleFrame(payload []byte) error {
	msg, err := protocol.Decode(payload)
	if err != nil {
		if errors.Is(err, protocol.ErrUnknownType) || errors.Is(err, protocol.ErrServerOnly) {
			log.Warn().Err(err).Str("module", "signal").Str("sid", string(s.id)).Msg("unsupported message")
			s.replyError(err.Error())
			return nil
		}
		return err
	}

	switch m := msg.(type) {
	case *protocol.ChatRequest:
		s.handleChat(m)
	case *protocol.MediaRequest:
		s.handleMedia(m)
	case *protocol.PingRequest:
		s.handlePing()
	case *protocol.LeaveRequest:
		log.Info().Str("module", "signal").Str("sid", string(s.id)).Msg("leave")
		return errLeave
	case *protocol.Handshake:
		s.replyError("already joined")
	}
	return nil
}
