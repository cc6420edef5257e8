package store

import (
	"context"
	"encoding/json"
	"fmt"
	"slices"
	"time"

	"github.com/dgraph-io/badger/v4"
	"github.com/dkeye/meetrelay/internal/core"
	"github.com/dkeye/meetrelay/internal/domain"
)

// chatKey is "chat:{meeting seg}:{unix nanos, 19 digits}:{message id}" so a
// prefix scan returns a meeting's messages in time order.
func chatKey(m domain.ChatMessage) []byte {
	return []byte(fmt.Sprintf("%s%019d:%s", chatPrefix(m.MeetingID), m.SentAt.UnixNano(), m.ID))
}

func chatPrefix(id domain.MeetingID) []byte { return []byte("chat:" + segment(string(id)) + ":") }

func meetingAttendancePrefix(meetingID domain.MeetingID) []byte {
	return []byte("att:" + segment(string(meetingID)) + ":")
}

func attendancePrefix(meetingID domain.MeetingID, userID domain.UserID) []byte {
	return append(meetingAttendancePrefix(meetingID), segment(string(userID))+":"...)
}

func attendanceKey(meetingID domain.MeetingID, userID domain.UserID, joinedAt time.Time) []byte {
	return append(attendancePrefix(meetingID, userID), []byte(fmt.Sprintf("%019d", joinedAt.UnixNano()))...)
}

func (s *Store) AppendChat(_ context.Context, msg domain.ChatMessage) error {
	if msg.ID == "" {
		return fmt.Errorf("append chat: message id is empty")
	}
	return s.setJSON(chatKey(msg), msg)
}

// RecentChats returns up to limit of the newest messages, oldest first.
func (s *Store) RecentChats(_ context.Context, meetingID domain.MeetingID, limit int) ([]domain.ChatMessage, error) {
	out := make([]domain.ChatMessage, 0, max(limit, 0))
	if limit <= 0 {
		return out, nil
	}
	prefix := chatPrefix(meetingID)
	err := s.db.View(func(txn *badger.Txn) error {
		opts := badger.DefaultIteratorOptions
		opts.Reverse = true
		opts.Prefix = prefix
		it := txn.NewIterator(opts)
		defer it.Close()

		seek := append(slices.Clone(prefix), []byte("9999999999999999999~")...)
		for it.Seek(seek); it.ValidForPrefix(prefix) && len(out) < limit; it.Next() {
			var m domain.ChatMessage
			if err := it.Item().Value(func(val []byte) error {
				return json.Unmarshal(val, &m)
			}); err != nil {
				return err
			}
			out = append(out, m)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	slices.Reverse(out)
	return out, nil
}

func (s *Store) RecordJoined(_ context.Context, meetingID domain.MeetingID, userID domain.UserID, joinedAt time.Time) error {
	return s.setJSON(attendanceKey(meetingID, userID, joinedAt), domain.Attendance{
		MeetingID: meetingID,
		UserID:    userID,
		JoinedAt:  joinedAt.UTC(),
	})
}

// RecordLeft closes the user's latest open attendance record.
func (s *Store) RecordLeft(_ context.Context, meetingID domain.MeetingID, userID domain.UserID, leftAt time.Time) error {
	return s.db.Update(func(txn *badger.Txn) error {
		key, a, err := latestOpenAttendance(txn, attendancePrefix(meetingID, userID))
		if err != nil {
			return err
		}
		if key == nil {
			return fmt.Errorf("%w: no open attendance for %s in %s", core.ErrNotFound, userID, meetingID)
		}
		left := leftAt.UTC()
		a.LeftAt = &left
		b, err := json.Marshal(a)
		if err != nil {
			return err
		}
		return txn.Set(key, b)
	})
}

func latestOpenAttendance(txn *badger.Txn, prefix []byte) ([]byte, domain.Attendance, error) {
	opts := badger.DefaultIteratorOptions
	opts.Reverse = true
	opts.Prefix = prefix
	it := txn.NewIterator(opts)
	defer it.Close()

	seek := append(slices.Clone(prefix), []byte("9999999999999999999")...)
	for it.Seek(seek); it.ValidForPrefix(prefix); it.Next() {
		item := it.Item()
		var a domain.Attendance
		if err := item.Value(func(val []byte) error {
			return json.Unmarshal(val, &a)
		}); err != nil {
			return nil, a, err
		}
		if a.LeftAt == nil {
			return item.KeyCopy(nil), a, nil
		}
	}
	return nil, domain.Attendance{}, nil
}

// Attendance lists every join/leave interval recorded for a meeting.
func (s *Store) Attendance(_ context.Context, meetingID domain.MeetingID) ([]domain.Attendance, error) {
	prefix := meetingAttendancePrefix(meetingID)
	out := []domain.Attendance{}
	err := s.db.View(func(txn *badger.Txn) error {
		opts := badger.DefaultIteratorOptions
		opts.Prefix = prefix
		it := txn.NewIterator(opts)
		defer it.Close()
		for it.Rewind(); it.ValidForPrefix(prefix); it.Next() {
			var a domain.Attendance
			if err := it.Item().Value(func(val []byte) error {
				return json.Unmarshal(val, &a)
			}); err != nil {
				return err
			}
			out = append(out, a)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}
