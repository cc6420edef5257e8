package signal

import (
	"context"
	"errors"
	"fmt"
	"net"
	"time"

	"github.com/dkeye/meetrelay/internal/core"
	"github.com/dkeye/meetrelay/internal/domain"
	"github.com/dkeye/meetrelay/internal/protocol"
	"github.com/rs/zerolog/log"
)

// awaitHandshake returns the preset handshake or reads the first frame,
// which must arrive within HandshakeTimeout.
func (s *Session) awaitHandshake() (*protocol.Handshake, error) {
	if s.preset != nil {
		if err := s.preset.Validate(); err != nil {
			return nil, err
		}
		return s.preset, nil
	}
	if err := s.conn.SetReadDeadline(time.Now().Add(s.ctl.opts.HandshakeTimeout)); err != nil {
		return nil, err
	}
	if err := s.ctx.Err(); err != nil {
		return nil, err
	}
	payload, err := s.conn.ReadFrame()
	if err != nil {
		var ne net.Error
		if errors.As(err, &ne) && ne.Timeout() {
			return nil, fmt.Errorf("%w: no handshake within %s", core.ErrProtocol, s.ctl.opts.HandshakeTimeout)
		}
		return nil, err
	}
	return protocol.DecodeHandshake(payload)
}

// authorize resolves the credential, the meeting and the class membership,
// in that order.
func (s *Session) authorize(hs *protocol.Handshake) (*domain.User, *domain.Meeting, error) {
	ctx, cancel := context.WithTimeout(s.ctx, s.ctl.opts.AuthTimeout)
	defer cancel()

	user, err := s.ctl.Authority.ResolveIdentity(ctx, hs.Credential)
	if err != nil {
		return nil, nil, err
	}
	meetingID := domain.MeetingID(hs.MeetingID)
	meeting, err := s.ctl.Directory.FindMeeting(ctx, meetingID)
	if err != nil {
		return nil, nil, err
	}
	if !meeting.Open() {
		return nil, nil, fmt.Errorf("%w: meeting %s has ended", core.ErrNotFound, meetingID)
	}
	ok, err := s.ctl.Authority.IsMember(ctx, meeting.ClassID, user.ID)
	if err != nil {
		return nil, nil, fmt.Errorf("membership check: %w", err)
	}
	if !ok {
		return nil, nil, fmt.Errorf("%w: %s is not in class %s", core.ErrUnauthorized, user.ID, meeting.ClassID)
	}

	log.Info().Str("module", "signal").Str("sid", string(s.id)).Str("user", string(user.ID)).Str("room", string(meetingID)).Msg("authorized")
	return user, meeting, nil
}
