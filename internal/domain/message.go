package domain

import "time"

// ChatMessage is an accepted chat line. ID and SentAt are assigned by the
// relay before the message is broadcast or persisted.
type ChatMessage struct {
	ID        string    `json:"message_id"`
	MeetingID MeetingID `json:"meeting_id"`
	UserID    UserID    `json:"user_id"`
	Username  string    `json:"username"`
	Content   string    `json:"content"`
	SentAt    time.Time `json:"sent_at"`
}

// Attendance is one join/leave interval of a user in a meeting.
type Attendance struct {
	MeetingID MeetingID  `json:"meeting_id"`
	UserID    UserID     `json:"user_id"`
	JoinedAt  time.Time  `json:"joined_at"`
	LeftAt    *time.Time `json:"left_at,omitempty"`
}
