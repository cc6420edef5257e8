package core

import (
	"time"

	"github.com/dkeye/meetrelay/internal/domain"
)

// PublishResult reports delivery stats/backpressure to orchestrator.
type PublishResult struct {
	SendTo  int
	Dropped []MemberSession
}

// MemberDTO is a read-only view for APIs (no transport fields).
type MemberDTO struct {
	ID       domain.UserID `json:"user_id"`
	Username string        `json:"username"`
	JoinedAt time.Time     `json:"joined_at"`
}

func NewMemberDTO(ms MemberSession) MemberDTO {
	m := ms.Meta()
	return MemberDTO{ID: m.User.ID, Username: m.User.Username, JoinedAt: m.JoinedAt}
}

// RoomService is the core-facing API of a room.
// It owns the membership set but never touches transport resources.
type RoomService interface {
	Room() *domain.Room
	MemberCount() int
	MembersSnapshot() []MemberSession

	AddMember(ms MemberSession) error
	RemoveMember(id domain.UserID) (MemberSession, bool)
	Member(id domain.UserID) (MemberSession, bool)
	// Close marks an empty room as retired. It reports false if the room
	// still has members.
	Close() bool
}

type RoomInfo struct {
	ID          domain.MeetingID `json:"meeting_id"`
	MemberCount int              `json:"member_count"`
	CreatedAt   time.Time        `json:"created_at"`
}
