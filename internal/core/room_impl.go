package core

import (
	"sync"

	"github.com/dkeye/meetrelay/internal/domain"
	"github.com/rs/zerolog/log"
	"github.com/samber/lo"
)

// roomImpl is a threadsafe in-memory room.
// It never closes adapter-owned resources.
type roomImpl struct {
	room   *domain.Room
	mu     sync.RWMutex
	byUser map[domain.UserID]MemberSession
	closed bool
}

func NewRoomService(room *domain.Room) RoomService {
	return &roomImpl{
		room:   room,
		byUser: make(map[domain.UserID]MemberSession),
	}
}

func (r *roomImpl) Room() *domain.Room { return r.room }

func (r *roomImpl) MemberCount() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.byUser)
}

func (r *roomImpl) AddMember(ms MemberSession) error {
	u := ms.Meta().User.ID
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.closed {
		return ErrRoomClosed
	}
	if _, ok := r.byUser[u]; ok {
		return ErrAlreadyMember
	}
	r.byUser[u] = ms
	log.Info().Str("module", "core.room").Str("room", string(r.room.ID)).Str("sid", string(ms.ID())).Str("user", string(u)).Msg("member added")
	return nil
}

func (r *roomImpl) RemoveMember(id domain.UserID) (MemberSession, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	ms, ok := r.byUser[id]
	if !ok {
		return nil, false
	}
	delete(r.byUser, id)
	log.Info().Str("module", "core.room").Str("room", string(r.room.ID)).Str("sid", string(ms.ID())).Str("user", string(id)).Msg("member removed")
	return ms, true
}

func (r *roomImpl) Member(id domain.UserID) (MemberSession, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	ms, ok := r.byUser[id]
	return ms, ok
}

func (r *roomImpl) MembersSnapshot() []MemberSession {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return lo.Values(r.byUser)
}

func (r *roomImpl) Close() bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	if len(r.byUser) > 0 {
		return false
	}
	r.closed = true
	return true
}
