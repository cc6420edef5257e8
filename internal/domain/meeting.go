package domain

import "time"

type (
	MeetingID string
	ClassID   string
)

type MeetingStatus string

const (
	MeetingActive MeetingStatus = "active"
	MeetingEnded  MeetingStatus = "ended"
)

// Meeting is the directory view of a meeting: which class owns it and
// whether it still accepts participants.
type Meeting struct {
	ID      MeetingID     `json:"meeting_id"`
	ClassID ClassID       `json:"class_id"`
	Title   string        `json:"title,omitempty"`
	Status  MeetingStatus `json:"status"`
}

func (m *Meeting) Open() bool {
	return m.Status != MeetingEnded
}

// Room is the live counterpart of a meeting inside the relay.
type Room struct {
	ID        MeetingID
	CreatedAt time.Time
}
