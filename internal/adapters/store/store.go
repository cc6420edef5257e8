// Package store keeps chat history, attendance and the meeting directory
// in Badger.
package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"

	"github.com/dgraph-io/badger/v4"
	"github.com/dkeye/meetrelay/internal/core"
	"github.com/dkeye/meetrelay/internal/domain"
	"github.com/rs/zerolog/log"
)

// Store implements core.MessageStore, core.MeetingDirectory and the class
// roster used by the JWT authority.
type Store struct {
	db *badger.DB
}

// Open opens the database at path. An empty path keeps everything in memory.
func Open(path string) (*Store, error) {
	opts := badger.DefaultOptions(path).WithLoggingLevel(badger.ERROR)
	if path == "" {
		opts = opts.WithInMemory(true)
	}
	db, err := badger.Open(opts)
	if err != nil {
		return nil, fmt.Errorf("open badger: %w", err)
	}
	log.Info().Str("module", "store").Str("path", path).Bool("in_memory", path == "").Msg("store opened")
	return &Store{db: db}, nil
}

func New(db *badger.DB) *Store { return &Store{db: db} }

func (s *Store) Close() error { return s.db.Close() }

func meetingKey(id domain.MeetingID) []byte { return []byte("meeting:" + string(id)) }

// segment length-prefixes an id so keys built from several ids never share
// a prefix with keys of a different id, whatever bytes the ids contain.
func segment(id string) string { return strconv.Itoa(len(id)) + ":" + id }

func classMemberKey(classID domain.ClassID, userID domain.UserID) []byte {
	return []byte("class:" + segment(string(classID)) + ":member:" + segment(string(userID)))
}

func (s *Store) setJSON(key []byte, v any) error {
	b, err := json.Marshal(v)
	if err != nil {
		return err
	}
	return s.db.Update(func(txn *badger.Txn) error {
		return txn.Set(key, b)
	})
}

// PutMeeting creates or replaces a meeting record.
func (s *Store) PutMeeting(m domain.Meeting) error {
	if m.Status == "" {
		m.Status = domain.MeetingActive
	}
	return s.setJSON(meetingKey(m.ID), m)
}

func (s *Store) AddClassMember(classID domain.ClassID, userID domain.UserID) error {
	return s.db.Update(func(txn *badger.Txn) error {
		return txn.Set(classMemberKey(classID, userID), []byte{1})
	})
}

// FindMeeting returns an error wrapping core.ErrNotFound for unknown IDs.
func (s *Store) FindMeeting(_ context.Context, id domain.MeetingID) (*domain.Meeting, error) {
	var m domain.Meeting
	err := s.db.View(func(txn *badger.Txn) error {
		item, err := txn.Get(meetingKey(id))
		if err != nil {
			return err
		}
		return item.Value(func(val []byte) error {
			return json.Unmarshal(val, &m)
		})
	})
	if errors.Is(err, badger.ErrKeyNotFound) {
		return nil, fmt.Errorf("%w: meeting %s", core.ErrNotFound, id)
	}
	if err != nil {
		return nil, err
	}
	return &m, nil
}

func (s *Store) IsClassMember(_ context.Context, classID domain.ClassID, userID domain.UserID) (bool, error) {
	err := s.db.View(func(txn *badger.Txn) error {
		_, err := txn.Get(classMemberKey(classID, userID))
		return err
	})
	if errors.Is(err, badger.ErrKeyNotFound) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return true, nil
}

// Seed loads a static directory of meetings and class rosters.
func (s *Store) Seed(meetings []domain.Meeting, rosters map[domain.ClassID][]domain.UserID) error {
	for _, m := range meetings {
		if err := s.PutMeeting(m); err != nil {
			return fmt.Errorf("seed meeting %s: %w", m.ID, err)
		}
	}
	for cid, users := range rosters {
		for _, uid := range users {
			if err := s.AddClassMember(cid, uid); err != nil {
				return fmt.Errorf("seed class %s: %w", cid, err)
			}
		}
	}
	log.Info().Str("module", "store").Int("meetings", len(meetings)).Int("classes", len(rosters)).Msg("directory seeded")
	return nil
}

var _ interface {
	core.MessageStore
	core.MeetingDirectory
} = (*Store)(nil)
