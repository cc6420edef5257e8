package signal

import (
	"github.com/dkeye/meetrelay/internal/protocol"
	"github.com/rs/zerolog/log"
)

func (s *Session) handlePing() {
	f, err := protocol.PongFrame(nowUTC())
	if err != nil {
		return
	}
	s.ctl.Orch.Broadcaster.Unicast(s.member.Meta().MeetingID, s.member, f)
}

func (s *Session) handleChat(m *protocol.ChatRequest) {
	uid := s.member.Meta().User.ID
	if s.ctl.Limiter != nil && !s.ctl.Limiter.Allow(uid) {
		s.replyError("rate limited")
		return
	}
	if _, err := s.ctl.Orch.Chat(s.member, m.Content); err != nil {
		log.Info().Err(err).Str("module", "signal").Str("sid", string(s.id)).Msg("chat rejected")
		s.replyError(err.Error())
	}
}

func (s *Session) handleMedia(m *protocol.MediaRequest) {
	if _, err := s.ctl.Orch.Media(s.member, m.Data); err != nil {
		log.Error().Err(err).Str("module", "signal").Str("sid", string(s.id)).Msg("media relay")
	}
}

func (s *Session) replyError(msg string) {
	f, err := protocol.ErrorFrame(msg)
	if err != nil {
		log.Error().Err(err).Str("module", "signal").Msg("encode error reply")
		return
	}
	s.ctl.Orch.Broadcaster.Unicast(s.member.Meta().MeetingID, s.member, f)
}
