package app

import (
	"errors"
	"slices"
	"strings"
	"sync"
	"time"

	"github.com/dkeye/meetrelay/internal/core"
	"github.com/dkeye/meetrelay/internal/domain"
	"github.com/rs/zerolog/log"
)

// Registry maps meeting IDs to live rooms. The map lock is held only to
// look up, create or prune a room; membership changes take the room lock.
type Registry struct {
	mu    sync.RWMutex
	rooms map[domain.MeetingID]core.RoomService
	now   func() time.Time
}

func NewRegistry() *Registry {
	return &Registry{
		rooms: make(map[domain.MeetingID]core.RoomService),
		now:   time.Now,
	}
}

func (r *Registry) room(id domain.MeetingID) (core.RoomService, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	room, ok := r.rooms[id]
	return room, ok
}

func (r *Registry) getOrCreate(id domain.MeetingID) core.RoomService {
	if room, ok := r.room(id); ok {
		return room
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	if room, ok := r.rooms[id]; ok {
		return room
	}
	room := core.NewRoomService(&domain.Room{ID: id, CreatedAt: r.now()})
	r.rooms[id] = room
	log.Info().Str("module", "app.registry").Str("room", string(id)).Msg("room created")
	return room
}

// Join adds ms to the room of meetingID, creating the room on demand.
// It fails with core.ErrAlreadyMember if the user is already present.
func (r *Registry) Join(meetingID domain.MeetingID, ms core.MemberSession) (core.MemberSession, error) {
	for {
		room := r.getOrCreate(meetingID)
		err := room.AddMember(ms)
		if errors.Is(err, core.ErrRoomClosed) {
			// lost a race with prune; the map no longer holds this room
			continue
		}
		if err != nil {
			return nil, err
		}
		return ms, nil
	}
}

// Leave removes the user from the room. Leaving a non-member is a no-op.
func (r *Registry) Leave(meetingID domain.MeetingID, userID domain.UserID) bool {
	room, ok := r.room(meetingID)
	if !ok {
		return false
	}
	_, removed := room.RemoveMember(userID)
	if room.MemberCount() == 0 {
		r.prune(meetingID, room)
	}
	return removed
}

func (r *Registry) prune(id domain.MeetingID, room core.RoomService) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if cur, ok := r.rooms[id]; !ok || cur != room {
		return
	}
	if !room.Close() {
		return
	}
	delete(r.rooms, id)
	log.Info().Str("module", "app.registry").Str("room", string(id)).Msg("room pruned")
}

// MembersOf returns a snapshot of the room's members.
func (r *Registry) MembersOf(meetingID domain.MeetingID) []core.MemberSession {
	room, ok := r.room(meetingID)
	if !ok {
		return nil
	}
	return room.MembersSnapshot()
}

func (r *Registry) Member(meetingID domain.MeetingID, userID domain.UserID) (core.MemberSession, bool) {
	room, ok := r.room(meetingID)
	if !ok {
		return nil, false
	}
	return room.Member(userID)
}

func (r *Registry) MemberCount(meetingID domain.MeetingID) int {
	room, ok := r.room(meetingID)
	if !ok {
		return 0
	}
	return room.MemberCount()
}

// List reports every live room ordered by meeting ID.
func (r *Registry) List() []core.RoomInfo {
	r.mu.RLock()
	rooms := make([]core.RoomService, 0, len(r.rooms))
	for _, room := range r.rooms {
		rooms = append(rooms, room)
	}
	r.mu.RUnlock()

	out := make([]core.RoomInfo, 0, len(rooms))
	for _, room := range rooms {
		out = append(out, core.RoomInfo{
			ID:          room.Room().ID,
			MemberCount: room.MemberCount(),
			CreatedAt:   room.Room().CreatedAt,
		})
	}
	slices.SortFunc(out, func(a, b core.RoomInfo) int {
		return strings.Compare(string(a.ID), string(b.ID))
	})
	return out
}

// EvictAll removes every member from every room and asks each session to
// close with reason. It returns the members it removed.
func (r *Registry) EvictAll(reason string) []core.MemberSession {
	r.mu.Lock()
	rooms := r.rooms
	r.rooms = make(map[domain.MeetingID]core.RoomService)
	r.mu.Unlock()

	var evicted []core.MemberSession
	for id, room := range rooms {
		for _, ms := range room.MembersSnapshot() {
			if _, ok := room.RemoveMember(ms.Meta().User.ID); ok {
				evicted = append(evicted, ms)
			}
			ms.Signal().Evict(reason)
		}
		room.Close()
		log.Warn().Str("module", "app.registry").Str("room", string(id)).Str("reason", reason).Msg("room evicted")
	}
	return evicted
}
