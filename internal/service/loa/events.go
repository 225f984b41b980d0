package loa

import (
	"context"
	"time"

	coreloa "github.com/park285/loa-kakao-bot/internal/loa"
)

type EventKind int

const (
	EventMoveApplied EventKind = iota + 1
	EventMoveRejected
	EventGameFinished
)

func (k EventKind) String() string {
	switch k {
	case EventMoveApplied:
		return "move_applied"
	case EventMoveRejected:
		return "move_rejected"
	case EventGameFinished:
		return "game_finished"
	default:
		return "unknown"
	}
}

// MoveKind tells how a MoveApplied event changed the displayed position.
type MoveKind string

const (
	MovePlayed MoveKind = "played"
	MoveUndone MoveKind = "undone"
	MoveRedone MoveKind = "redone"
)

// Event is published to the Listener after the session store was updated.
type Event struct {
	Kind        EventKind
	Meta        SessionMeta
	SessionUUID string
	MoveKind    MoveKind
	Move        coreloa.Move
	Player      coreloa.Side
	Capture     bool
	Winner      coreloa.Side
	ByEngine    bool
	// GameID is the stored game of a move that finished the game.
	GameID int64
	// Reason is the rejection cause of a MoveRejected event.
	Reason error
	State  *SessionState
}

type Listener interface {
	OnEvent(ctx context.Context, ev Event)
}

type ListenerFunc func(ctx context.Context, ev Event)

func (f ListenerFunc) OnEvent(ctx context.Context, ev Event) { f(ctx, ev) }

// Scheduler runs engine replies after the preset delay.
type Scheduler interface {
	AfterFunc(d time.Duration, fn func())
}

type timerScheduler struct{}

func (timerScheduler) AfterFunc(d time.Duration, fn func()) {
	time.AfterFunc(d, fn)
}
