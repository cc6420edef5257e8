//go:generate go run go.uber.org/mock/mockgen -source=external.go -destination=../mocks/mock_external.go -package=mocks
package core

import (
	"context"
	"time"

	"github.com/dkeye/meetrelay/internal/domain"
)

// MembershipAuthority authenticates a credential and authorizes room access.
type MembershipAuthority interface {
	// ResolveIdentity returns the user behind credential or an error
	// wrapping ErrUnauthorized.
	ResolveIdentity(ctx context.Context, credential string) (*domain.User, error)
	IsMember(ctx context.Context, classID domain.ClassID, userID domain.UserID) (bool, error)
}

// MessageStore persists chat history and attendance.
type MessageStore interface {
	AppendChat(ctx context.Context, msg domain.ChatMessage) error
	RecentChats(ctx context.Context, meetingID domain.MeetingID, limit int) ([]domain.ChatMessage, error)
	RecordJoined(ctx context.Context, meetingID domain.MeetingID, userID domain.UserID, joinedAt time.Time) error
	RecordLeft(ctx context.Context, meetingID domain.MeetingID, userID domain.UserID, leftAt time.Time) error
}

// MeetingDirectory resolves a meeting to its owning class.
type MeetingDirectory interface {
	// FindMeeting returns an error wrapping ErrNotFound for unknown meetings.
	FindMeeting(ctx context.Context, meetingID domain.MeetingID) (*domain.Meeting, error)
}
