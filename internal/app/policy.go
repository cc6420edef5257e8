package app

import (
	"sync"
	"time"

	"github.com/dkeye/meetrelay/internal/core"
	"github.com/dkeye/meetrelay/internal/domain"
)

type BackpressureAction int

const (
	NoAction BackpressureAction = iota
	MarkSlow
	KickMember
	DropFrame
)

func (a BackpressureAction) String() string {
	switch a {
	case MarkSlow:
		return "mark_slow"
	case KickMember:
		return "kick"
	case DropFrame:
		return "drop"
	default:
		return "none"
	}
}

// Policy decides what happens to a member whose outbound queue rejected a frame.
type Policy interface {
	OnBackPressure(meetingID domain.MeetingID, member core.MemberSession) BackpressureAction
	Forget(sid core.SessionID)
}

// SimplePolicy evicts on the first rejected frame.
type SimplePolicy struct{}

func (SimplePolicy) OnBackPressure(domain.MeetingID, core.MemberSession) BackpressureAction {
	return KickMember
}

func (SimplePolicy) Forget(core.SessionID) {}

// SlowPeerPolicy drops frames for a member whose queue is full and evicts it
// once the queue has stayed full for longer than Grace. Rejections further
// apart than Grace start a new episode.
type SlowPeerPolicy struct {
	Grace time.Duration
	Now   func() time.Time

	mu   sync.Mutex
	slow map[core.SessionID]slowEpisode
}

type slowEpisode struct {
	first time.Time
	last  time.Time
}

func NewSlowPeerPolicy(grace time.Duration) *SlowPeerPolicy {
	return &SlowPeerPolicy{
		Grace: grace,
		Now:   time.Now,
		slow:  make(map[core.SessionID]slowEpisode),
	}
}

func (p *SlowPeerPolicy) OnBackPressure(_ domain.MeetingID, member core.MemberSession) BackpressureAction {
	now := p.Now()
	p.mu.Lock()
	defer p.mu.Unlock()

	ep, ok := p.slow[member.ID()]
	if !ok || now.Sub(ep.last) > p.Grace {
		ep = slowEpisode{first: now}
	}
	ep.last = now
	if now.Sub(ep.first) >= p.Grace {
		delete(p.slow, member.ID())
		return KickMember
	}
	p.slow[member.ID()] = ep
	return DropFrame
}

func (p *SlowPeerPolicy) Forget(sid core.SessionID) {
	p.mu.Lock()
	delete(p.slow, sid)
	p.mu.Unlock()
}
