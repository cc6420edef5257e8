package orch

import (
	"time"

	"github.com/dkeye/meetrelay/internal/app"
	"github.com/dkeye/meetrelay/internal/core"
	"github.com/dkeye/meetrelay/internal/domain"
	"github.com/go-playground/validator/v10"
)

const (
	DefaultMaxChatLength = 1000
	DefaultHistoryOnJoin = 50
	historyTimeout       = 2 * time.Second
)

// Recorder accepts fire-and-forget persistence work.
type Recorder interface {
	AppendChat(msg domain.ChatMessage)
	RecordJoined(meetingID domain.MeetingID, userID domain.UserID, at time.Time)
	RecordLeft(meetingID domain.MeetingID, userID domain.UserID, at time.Time)
}

// Orchestrator applies the control-channel rules for joined sessions:
// presence on join and leave, chat acceptance and media relay.
type Orchestrator struct {
	Registry    *app.Registry
	Broadcaster *app.Broadcaster
	// History is read synchronously when a member joins. Optional.
	History  core.MessageStore
	Recorder Recorder

	MaxChatLength int
	HistoryOnJoin int
	Now           func() time.Time

	validate *validator.Validate
}

type Options struct {
	MaxChatLength int
	HistoryOnJoin int
}

func New(reg *app.Registry, b *app.Broadcaster, history core.MessageStore, rec Recorder, opts Options) *Orchestrator {
	if opts.MaxChatLength <= 0 {
		opts.MaxChatLength = DefaultMaxChatLength
	}
	if opts.HistoryOnJoin < 0 {
		opts.HistoryOnJoin = 0
	}
	return &Orchestrator{
		Registry:      reg,
		Broadcaster:   b,
		History:       history,
		Recorder:      rec,
		MaxChatLength: opts.MaxChatLength,
		HistoryOnJoin: opts.HistoryOnJoin,
		Now:           time.Now,
		validate:      validator.New(),
	}
}

func (o *Orchestrator) now() time.Time {
	if o.Now == nil {
		return time.Now().UTC()
	}
	return o.Now().UTC()
}
