package dialog

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/m3rciful/statusbot/core/logger"
	tghelpers "github.com/m3rciful/statusbot/core/telegram/helpers"

	tele "gopkg.in/telebot.v4"
)

const defaultTimeout = 30 * time.Second

// Engine tracks active dialog sessions, one per user. Starting a dialog
// while another is active supersedes the old session silently.
type Engine struct {
	mu       sync.Mutex
	timeout  time.Duration
	sessions map[int64]*Session
	nextGen  uint64

	// now is swapped in tests.
	now func() time.Time
}

// NewEngine constructs an Engine. A non-positive timeout selects the
// 30 second default.
func NewEngine(timeout time.Duration) *Engine {
	if timeout <= 0 {
		timeout = defaultTimeout
	}
	return &Engine{
		timeout:  timeout,
		sessions: make(map[int64]*Session),
		now:      time.Now,
	}
}

// Start opens a session for the sender in the given entry state. Any
// previous session of the user is discarded first.
func (e *Engine) Start(c tele.Context, d *Dialog, entry State) error {
	userID := c.Sender().ID

	e.mu.Lock()
	if old, ok := e.sessions[userID]; ok {
		e.dropLocked(userID, old, "superseded")
	}
	e.nextGen++
	s := &Session{
		Data:   make(map[string]any),
		dialog: d,
		state:  entry,
		gen:    e.nextGen,
		last:   c,
	}
	e.sessions[userID] = s
	e.armLocked(userID, s)
	e.mu.Unlock()

	ctx := tghelpers.BuildContext(c)
	logger.Info(ctx, "dialog", "session.start",
		slog.String("status", "ok"),
		slog.String("dialog", d.Name),
		slog.String("state", string(entry)),
	)
	return nil
}

// Active reports whether the user has a live, unexpired session.
func (e *Engine) Active(userID int64) bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	s, ok := e.sessions[userID]
	return ok && e.now().Before(s.deadline)
}

// End discards the user's session without running timeout handlers.
func (e *Engine) End(userID int64) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if s, ok := e.sessions[userID]; ok {
		e.dropLocked(userID, s, "ended")
	}
}

// Dispatch offers the update to the sender's active session. It reports
// whether the session consumed the update. Expired sessions are torn down
// on sight and the update falls through unconsumed.
func (e *Engine) Dispatch(c tele.Context) (bool, error) {
	sender := c.Sender()
	if sender == nil {
		return false, nil
	}
	userID := sender.ID

	e.mu.Lock()
	s, ok := e.sessions[userID]
	if !ok {
		e.mu.Unlock()
		return false, nil
	}
	if !e.now().Before(s.deadline) {
		e.dropLocked(userID, s, "expired")
		timeoutFn := s.dialog.OnTimeout
		last := s.last
		e.mu.Unlock()
		e.fireTimeout(s.dialog, timeoutFn, last)
		return false, nil
	}
	s.last = c
	dialog := s.dialog
	state := s.state
	e.mu.Unlock()

	kind := KindOf(c.Update())
	tr, matched := matchTransition(dialog.States[state], kind, c)
	if !matched {
		// Inline updates that the dialog has no use for fall through to
		// the shared inline handlers rather than being swallowed.
		if kind == KindInlineQuery || kind == KindInlineResult {
			return false, nil
		}
		fallback := dialog.OnFallback
		if fallback == nil {
			fallback = defaultFallback
		}
		e.rearm(userID, s)
		return true, fallback(c)
	}

	next, err := tr.Handle(c, s)
	ctx := tghelpers.BuildContext(c)
	if err != nil {
		logger.Warn(ctx, "dialog", "transition",
			slog.String("status", "fail"),
			slog.String("dialog", dialog.Name),
			slog.String("state", string(state)),
			slog.String("err", logger.SanitizeLimit(err.Error(), 256)),
		)
		e.End(userID)
		return true, err
	}

	if next == StateEnd {
		e.End(userID)
		logger.Info(ctx, "dialog", "session.end",
			slog.String("status", "ok"),
			slog.String("dialog", dialog.Name),
		)
		return true, nil
	}

	e.mu.Lock()
	if cur, ok := e.sessions[userID]; ok && cur == s {
		s.state = next
		e.armLocked(userID, s)
	}
	e.mu.Unlock()

	logger.Debug(ctx, "dialog", "transition",
		slog.String("status", "ok"),
		slog.String("dialog", dialog.Name),
		slog.String("state", string(next)),
	)
	return true, nil
}

func matchTransition(candidates []Transition, kind Kind, c tele.Context) (Transition, bool) {
	for _, tr := range candidates {
		if tr.Kind != kind {
			continue
		}
		if tr.Match != nil && !tr.Match(c) {
			continue
		}
		return tr, true
	}
	return Transition{}, false
}

func (e *Engine) rearm(userID int64, s *Session) {
	e.mu.Lock()
	if cur, ok := e.sessions[userID]; ok && cur == s {
		e.armLocked(userID, s)
	}
	e.mu.Unlock()
}

// armLocked resets the session deadline and schedules the expiry check.
// Callers hold e.mu.
func (e *Engine) armLocked(userID int64, s *Session) {
	timeout := s.dialog.Timeout
	if timeout <= 0 {
		timeout = e.timeout
	}
	s.deadline = e.now().Add(timeout)
	if s.timer != nil {
		s.timer.Stop()
	}
	gen := s.gen
	s.timer = time.AfterFunc(timeout, func() {
		e.expire(userID, gen)
	})
}

// dropLocked removes the session and stops its timer. Callers hold e.mu.
func (e *Engine) dropLocked(userID int64, s *Session, reason string) {
	if s.timer != nil {
		s.timer.Stop()
	}
	delete(e.sessions, userID)
	logger.Debug(context.Background(), "dialog", "session.drop",
		slog.String("dialog", s.dialog.Name),
		slog.Int64("user_id", userID),
		slog.String("cause", reason),
	)
}

func (e *Engine) expire(userID int64, gen uint64) {
	e.mu.Lock()
	s, ok := e.sessions[userID]
	if !ok || s.gen != gen || e.now().Before(s.deadline) {
		e.mu.Unlock()
		return
	}
	e.dropLocked(userID, s, "expired")
	timeoutFn := s.dialog.OnTimeout
	last := s.last
	e.mu.Unlock()
	e.fireTimeout(s.dialog, timeoutFn, last)
}

// defaultFallback answers unmatched message updates when the dialog sets no
// OnFallback of its own, so mid-dialog input never leaks to the regular
// message handlers.
func defaultFallback(c tele.Context) error {
	return tghelpers.ReplyText(c, "I didn't catch that; please answer the question above.")
}

func (e *Engine) fireTimeout(d *Dialog, fn tele.HandlerFunc, last tele.Context) {
	if fn == nil || last == nil {
		return
	}
	if err := fn(last); err != nil {
		logger.Warn(context.Background(), "dialog", "session.timeout",
			slog.String("status", "fail"),
			slog.String("dialog", d.Name),
			slog.String("err", logger.SanitizeLimit(err.Error(), 256)),
		)
	}
}
