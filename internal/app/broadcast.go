package app

import (
	"errors"

	"github.com/dkeye/meetrelay/internal/core"
	"github.com/dkeye/meetrelay/internal/domain"
	"github.com/rs/zerolog/log"
)

// EvictReasonSlowConsumer is passed to Evict for members kicked by the policy.
const EvictReasonSlowConsumer = "slow_consumer"

// Broadcaster fans a frame out to the members of one room. Delivery is a
// non-blocking enqueue per member; a rejected enqueue goes to Policy.
type Broadcaster struct {
	Registry *Registry
	Policy   Policy
}

func NewBroadcaster(reg *Registry, policy Policy) *Broadcaster {
	if policy == nil {
		policy = SimplePolicy{}
	}
	return &Broadcaster{Registry: reg, Policy: policy}
}

// Broadcast enqueues f for every joined member of meetingID except exclude.
// An empty exclude delivers to everyone.
func (b *Broadcaster) Broadcast(meetingID domain.MeetingID, f core.Frame, exclude domain.UserID) core.PublishResult {
	var res core.PublishResult
	for _, ms := range b.Registry.MembersOf(meetingID) {
		meta := ms.Meta()
		if exclude != "" && meta.User.ID == exclude {
			continue
		}
		if meta.State() != domain.MemberJoined {
			continue
		}
		if err := ms.Signal().TrySend(f); err != nil {
			res.Dropped = append(res.Dropped, ms)
			b.reject(meetingID, ms, err)
			continue
		}
		res.SendTo++
	}
	return res
}

// Unicast enqueues f for a single member with the same rejection handling
// as Broadcast.
func (b *Broadcaster) Unicast(meetingID domain.MeetingID, ms core.MemberSession, f core.Frame) bool {
	if err := ms.Signal().TrySend(f); err != nil {
		b.reject(meetingID, ms, err)
		return false
	}
	return true
}

func (b *Broadcaster) reject(meetingID domain.MeetingID, ms core.MemberSession, err error) {
	if errors.Is(err, core.ErrConnClosed) {
		// already on its way out
		return
	}
	action := b.Policy.OnBackPressure(meetingID, ms)
	log.Warn().Str("module", "app.broadcast").
		Str("room", string(meetingID)).
		Str("sid", string(ms.ID())).
		Str("user", string(ms.Meta().User.ID)).
		Str("action", action.String()).
		Err(err).
		Msg("send rejected")
	switch action {
	case KickMember:
		ms.Signal().Evict(EvictReasonSlowConsumer)
	case MarkSlow, DropFrame, NoAction:
	}
}
