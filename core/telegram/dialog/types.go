package dialog

import (
	"strings"
	"time"

	tele "gopkg.in/telebot.v4"
)

// State identifies a step inside an active dialog.
type State string

// StateEnd is returned by a handler to finish the dialog.
const StateEnd State = ""

// Kind classifies the incoming update for transition matching.
type Kind string

const (
	// KindCommand is a private message starting with a slash.
	KindCommand Kind = "command"
	// KindMessage is any other message update.
	KindMessage Kind = "message"
	// KindInlineQuery is an inline query typed in the @bot box.
	KindInlineQuery Kind = "inline_query"
	// KindInlineResult is a chosen inline result notification.
	KindInlineResult Kind = "inline_result"
)

// Matcher decides whether a transition applies to the update.
// A nil Matcher accepts every update of the transition's kind.
type Matcher func(c tele.Context) bool

// Handler runs a transition and returns the next state, or StateEnd to
// finish the dialog. Session data survives across transitions.
type Handler func(c tele.Context, s *Session) (State, error)

// Transition binds an update kind (and optional matcher) to a handler
// within a single dialog state.
type Transition struct {
	Kind   Kind
	Match  Matcher
	Handle Handler
}

// Dialog declares a multi-step conversation.
type Dialog struct {
	// Name appears in logs and must be unique per engine.
	Name string
	// States maps each state to its candidate transitions, tried in order.
	States map[State][]Transition
	// Timeout bounds inactivity between transitions; zero uses the
	// engine default.
	Timeout time.Duration
	// OnTimeout runs with the last seen update context when the session
	// expires. Optional.
	OnTimeout tele.HandlerFunc
	// OnFallback runs when a message update matches no transition of the
	// current state. The session and its state are kept. Nil selects a
	// generic "didn't catch that" reply.
	OnFallback tele.HandlerFunc
}

// Session is the per-user runtime of an active dialog.
type Session struct {
	Data map[string]any

	dialog   *Dialog
	state    State
	deadline time.Time
	timer    *time.Timer
	gen      uint64
	last     tele.Context
}

// State returns the session's current state.
func (s *Session) State() State { return s.state }

// KindOf classifies an update the way the engine does.
func KindOf(upd tele.Update) Kind {
	switch {
	case upd.Query != nil:
		return KindInlineQuery
	case upd.InlineResult != nil:
		return KindInlineResult
	case upd.Message != nil && strings.HasPrefix(upd.Message.Text, "/"):
		return KindCommand
	default:
		return KindMessage
	}
}
