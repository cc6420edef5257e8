package app

import (
	"fmt"
	"sync"
	"time"

	"github.com/dkeye/meetrelay/internal/core"
	"github.com/dkeye/meetrelay/internal/domain"
)

// fakeConn is a bounded outbound queue that records evictions.
type fakeConn struct {
	mu      sync.Mutex
	frames  []core.Frame
	cap     int
	closed  bool
	evicted []string
}

func newFakeConn(capacity int) *fakeConn { return &fakeConn{cap: capacity} }

func (c *fakeConn) TrySend(f core.Frame) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return core.ErrConnClosed
	}
	if len(c.frames) >= c.cap {
		return core.ErrBackpressure
	}
	c.frames = append(c.frames, f)
	return nil
}

func (c *fakeConn) Evict(reason string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.evicted = append(c.evicted, reason)
}

func (c *fakeConn) Frames() []core.Frame {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]core.Frame(nil), c.frames...)
}

func (c *fakeConn) Evictions() []string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]string(nil), c.evicted...)
}

var sidSeq struct {
	sync.Mutex
	n int
}

func newSession(meetingID domain.MeetingID, userID domain.UserID, conn core.SignalConnection) core.MemberSession {
	sidSeq.Lock()
	sidSeq.n++
	sid := core.SessionID(fmt.Sprintf("sid-%d", sidSeq.n))
	sidSeq.Unlock()
	u := &domain.User{ID: userID, Username: string(userID)}
	return core.NewMemberSession(sid, domain.NewMember(u, meetingID, time.Now()), conn)
}
