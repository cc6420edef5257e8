package orch

import (
	"context"

	"github.com/dkeye/meetrelay/internal/core"
	"github.com/dkeye/meetrelay/internal/domain"
	"github.com/dkeye/meetrelay/internal/protocol"
	"github.com/rs/zerolog/log"
	"github.com/samber/lo"
)

// Join registers ms in its meeting room, sends it the room state and
// announces it to the other members. It returns core.ErrAlreadyMember if
// the user already holds a session in the room.
func (o *Orchestrator) Join(ctx context.Context, ms core.MemberSession) error {
	meta := ms.Meta()
	if _, err := o.Registry.Join(meta.MeetingID, ms); err != nil {
		return err
	}
	meta.SetState(domain.MemberJoined)
	log.Info().Str("module", "orch").Str("room", string(meta.MeetingID)).Str("sid", string(ms.ID())).Str("user", string(meta.User.ID)).Msg("joined")
	if o.Recorder != nil {
		o.Recorder.RecordJoined(meta.MeetingID, meta.User.ID, meta.JoinedAt)
	}

	if f, err := protocol.Frame(o.roomState(ctx, ms)); err == nil {
		o.Broadcaster.Unicast(meta.MeetingID, ms, f)
	} else {
		log.Error().Err(err).Str("module", "orch").Msg("encode room_state")
	}

	if f, err := protocol.PresenceFrame(protocol.PresenceJoined, meta.User); err == nil {
		o.Broadcaster.Broadcast(meta.MeetingID, f, meta.User.ID)
	} else {
		log.Error().Err(err).Str("module", "orch").Msg("encode presence")
	}
	return nil
}

// Leave deregisters ms, announces the departure and records it. It reports
// false if ms was not the registered member, in which case nothing is sent.
func (o *Orchestrator) Leave(ms core.MemberSession, reason string) bool {
	meta := ms.Meta()
	if meta.State() == domain.MemberJoined {
		meta.SetState(domain.MemberLeaving)
	}
	o.Broadcaster.Policy.Forget(ms.ID())

	cur, ok := o.Registry.Member(meta.MeetingID, meta.User.ID)
	if !ok || cur.ID() != ms.ID() {
		return false
	}
	if !o.Registry.Leave(meta.MeetingID, meta.User.ID) {
		return false
	}
	leftAt := o.now()
	log.Info().Str("module", "orch").Str("room", string(meta.MeetingID)).Str("sid", string(ms.ID())).Str("user", string(meta.User.ID)).Str("reason", reason).Msg("left")

	if f, err := protocol.PresenceFrame(protocol.PresenceLeft, meta.User); err == nil {
		o.Broadcaster.Broadcast(meta.MeetingID, f, meta.User.ID)
	} else {
		log.Error().Err(err).Str("module", "orch").Msg("encode presence")
	}
	if o.Recorder != nil {
		o.Recorder.RecordLeft(meta.MeetingID, meta.User.ID, leftAt)
	}
	return true
}

// EvictAll force-removes every member and records their departure. The
// sessions themselves find nothing left to deregister when they finish.
func (o *Orchestrator) EvictAll(reason string) int {
	evicted := o.Registry.EvictAll(reason)
	leftAt := o.now()
	for _, ms := range evicted {
		meta := ms.Meta()
		if meta.State() == domain.MemberJoined {
			meta.SetState(domain.MemberLeaving)
		}
		o.Broadcaster.Policy.Forget(ms.ID())
		if o.Recorder != nil {
			o.Recorder.RecordLeft(meta.MeetingID, meta.User.ID, leftAt)
		}
	}
	return len(evicted)
}

func (o *Orchestrator) roomState(ctx context.Context, ms core.MemberSession) protocol.RoomState {
	meta := ms.Meta()
	members := lo.Map(o.Registry.MembersOf(meta.MeetingID), func(m core.MemberSession, _ int) core.MemberDTO {
		return core.NewMemberDTO(m)
	})
	return protocol.RoomState{
		Type:      protocol.TypeRoomState,
		MeetingID: meta.MeetingID,
		Self:      meta.User.ID,
		Members:   members,
		Count:     len(members),
		History:   o.history(ctx, meta.MeetingID),
	}
}

func (o *Orchestrator) history(ctx context.Context, meetingID domain.MeetingID) []protocol.Chat {
	if o.History == nil || o.HistoryOnJoin == 0 {
		return []protocol.Chat{}
	}
	ctx, cancel := context.WithTimeout(ctx, historyTimeout)
	defer cancel()
	msgs, err := o.History.RecentChats(ctx, meetingID, o.HistoryOnJoin)
	if err != nil {
		log.Error().Err(err).Str("module", "orch").Str("room", string(meetingID)).Msg("load chat history")
		return []protocol.Chat{}
	}
	return lo.Map(msgs, func(m domain.ChatMessage, _ int) protocol.Chat {
		return protocol.NewChat(m)
	})
}
