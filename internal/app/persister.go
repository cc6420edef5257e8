package app

import (
	"context"
	"sync"
	"time"

	"github.com/dkeye/meetrelay/internal/core"
	"github.com/dkeye/meetrelay/internal/domain"
	"github.com/rs/zerolog/log"
)

type jobKind int

const (
	jobChat jobKind = iota
	jobJoined
	jobLeft
)

func (k jobKind) String() string {
	switch k {
	case jobChat:
		return "append_chat"
	case jobJoined:
		return "record_joined"
	default:
		return "record_left"
	}
}

type persistJob struct {
	kind      jobKind
	chat      domain.ChatMessage
	meetingID domain.MeetingID
	userID    domain.UserID
	at        time.Time
}

// Persister writes chat messages and attendance to the store off the
// session goroutines. Jobs run in enqueue order; failures are logged and
// dropped.
type Persister struct {
	store   core.MessageStore
	jobs    chan persistJob
	timeout time.Duration

	mu      sync.RWMutex
	stopped bool
	done    chan struct{}
}

func NewPersister(store core.MessageStore, queue int, timeout time.Duration) *Persister {
	if queue <= 0 {
		queue = 1024
	}
	if timeout <= 0 {
		timeout = 5 * time.Second
	}
	return &Persister{
		store:   store,
		jobs:    make(chan persistJob, queue),
		timeout: timeout,
		done:    make(chan struct{}),
	}
}

// Run drains the queue until ctx is done or Close is called. Pending jobs
// are flushed on Close, not on ctx cancellation.
func (p *Persister) Run(ctx context.Context) error {
	defer close(p.done)
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case job, ok := <-p.jobs:
			if !ok {
				log.Debug().Str("module", "app.persister").Msg("queue closed")
				return nil
			}
			p.handle(ctx, job)
		}
	}
}

// Close stops accepting jobs and waits for Run to flush the queue.
func (p *Persister) Close(ctx context.Context) error {
	p.mu.Lock()
	if !p.stopped {
		p.stopped = true
		close(p.jobs)
	}
	p.mu.Unlock()
	select {
	case <-p.done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (p *Persister) AppendChat(msg domain.ChatMessage) {
	p.enqueue(persistJob{kind: jobChat, chat: msg, meetingID: msg.MeetingID, userID: msg.UserID, at: msg.SentAt})
}

func (p *Persister) RecordJoined(meetingID domain.MeetingID, userID domain.UserID, at time.Time) {
	p.enqueue(persistJob{kind: jobJoined, meetingID: meetingID, userID: userID, at: at})
}

func (p *Persister) RecordLeft(meetingID domain.MeetingID, userID domain.UserID, at time.Time) {
	p.enqueue(persistJob{kind: jobLeft, meetingID: meetingID, userID: userID, at: at})
}

func (p *Persister) enqueue(job persistJob) {
	p.mu.RLock()
	defer p.mu.RUnlock()
	if p.stopped {
		log.Warn().Str("module", "app.persister").Str("job", job.kind.String()).Str("room", string(job.meetingID)).Msg("persister stopped, job dropped")
		return
	}
	select {
	case p.jobs <- job:
	default:
		log.Warn().Str("module", "app.persister").Str("job", job.kind.String()).Str("room", string(job.meetingID)).Msg("queue full, job dropped")
	}
}

func (p *Persister) handle(ctx context.Context, job persistJob) {
	ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), p.timeout)
	defer cancel()

	var err error
	switch job.kind {
	case jobChat:
		err = p.store.AppendChat(ctx, job.chat)
	case jobJoined:
		err = p.store.RecordJoined(ctx, job.meetingID, job.userID, job.at)
	case jobLeft:
		err = p.store.RecordLeft(ctx, job.meetingID, job.userID, job.at)
	}
	if err != nil {
		log.Error().Err(err).Str("module", "app.persister").
			Str("job", job.kind.String()).
			Str("room", string(job.meetingID)).
			Str("user", string(job.userID)).
			Msg("persist failed")
	}
}
