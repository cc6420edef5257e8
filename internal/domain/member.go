package domain

import (
	"sync/atomic"
	"time"
)

type MemberState int32

const (
	MemberJoined MemberState = iota
	MemberLeaving
	MemberClosed
)

func (s MemberState) String() string {
	switch s {
	case MemberJoined:
		return "joined"
	case MemberLeaving:
		return "leaving"
	case MemberClosed:
		return "closed"
	default:
		return "unknown"
	}
}

// Member represents user's participation meta for a room.
// No transport or lifecycle logic here.
type Member struct {
	User      *User
	MeetingID MeetingID
	JoinedAt  time.Time
	state     atomic.Int32
}

// NewMember avoids raw literals in adapters and keeps construction obvious.
func NewMember(user *User, meetingID MeetingID, joinedAt time.Time) *Member {
	return &Member{User: user, MeetingID: meetingID, JoinedAt: joinedAt}
}

func (m *Member) State() MemberState { return MemberState(m.state.Load()) }

func (m *Member) SetState(s MemberState) { m.state.Store(int32(s)) }
