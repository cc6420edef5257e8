package orch

import (
	"errors"
	"fmt"
	"strings"

	"github.com/dkeye/meetrelay/internal/core"
	"github.com/dkeye/meetrelay/internal/domain"
	"github.com/dkeye/meetrelay/internal/protocol"
	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
)

var (
	ErrChatEmpty   = errors.New("empty chat message")
	ErrChatTooLong = errors.New("chat message too long")
)

// Chat accepts a chat line from ms, assigns its ID and timestamp, queues it
// for persistence and broadcasts it to the whole room, sender included.
// Rejected content leaves the room untouched.
func (o *Orchestrator) Chat(ms core.MemberSession, content string) (domain.ChatMessage, error) {
	if err := o.validateChat(content); err != nil {
		return domain.ChatMessage{}, err
	}
	meta := ms.Meta()
	msg := domain.ChatMessage{
		ID:        uuid.NewString(),
		MeetingID: meta.MeetingID,
		UserID:    meta.User.ID,
		Username:  meta.User.Username,
		Content:   content,
		SentAt:    o.now(),
	}
	f, err := protocol.ChatFrame(msg)
	if err != nil {
		return domain.ChatMessage{}, err
	}
	if o.Recorder != nil {
		o.Recorder.AppendChat(msg)
	}
	res := o.Broadcaster.Broadcast(meta.MeetingID, f, "")
	log.Debug().Str("module", "orch").Str("room", string(meta.MeetingID)).Str("message_id", msg.ID).Int("sent_to", res.SendTo).Msg("chat")
	return msg, nil
}

func (o *Orchestrator) validateChat(content string) error {
	if strings.TrimSpace(content) == "" {
		return ErrChatEmpty
	}
	// max counts code points for strings
	if err := o.validate.Var(content, fmt.Sprintf("max=%d", o.MaxChatLength)); err != nil {
		var verrs validator.ValidationErrors
		if errors.As(err, &verrs) {
			return fmt.Errorf("%w: limit is %d characters", ErrChatTooLong, o.MaxChatLength)
		}
		return err
	}
	return nil
}

// Media relays an opaque blob to every member except the sender.
func (o *Orchestrator) Media(ms core.MemberSession, data []byte) (core.PublishResult, error) {
	meta := ms.Meta()
	f, err := protocol.MediaFrame(meta.User.ID, data)
	if err != nil {
		return core.PublishResult{}, err
	}
	return o.Broadcaster.Broadcast(meta.MeetingID, f, meta.User.ID), nil
}
