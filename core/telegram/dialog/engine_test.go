package dialog

import (
	"testing"
	"time"

	tele "gopkg.in/telebot.v4"
)

type fakeContext struct {
	tele.Context
	upd     tele.Update
	sender  *tele.User
	store   map[string]any
	replies int
}

func newFakeContext(userID int64, upd tele.Update) *fakeContext {
	return &fakeContext{
		upd:    upd,
		sender: &tele.User{ID: userID},
		store:  make(map[string]any),
	}
}

func (f *fakeContext) Update() tele.Update { return f.upd }
func (f *fakeContext) Sender() *tele.User  { return f.sender }
func (f *fakeContext) Chat() *tele.Chat    { return nil }
func (f *fakeContext) Text() string {
	if f.upd.Message != nil {
		return f.upd.Message.Text
	}
	return ""
}
func (f *fakeContext) Get(key string) any      { return f.store[key] }
func (f *fakeContext) Set(key string, val any) { f.store[key] = val }
func (f *fakeContext) Reply(any, ...any) error {
	f.replies++
	return nil
}

func messageCtx(userID int64, text string) *fakeContext {
	return newFakeContext(userID, tele.Update{Message: &tele.Message{Text: text}})
}

func queryCtx(userID int64, text string) *fakeContext {
	return newFakeContext(userID, tele.Update{Query: &tele.Query{Text: text}})
}

func TestKindOf(t *testing.T) {
	cases := []struct {
		upd  tele.Update
		want Kind
	}{
		{tele.Update{Message: &tele.Message{Text: "/start"}}, KindCommand},
		{tele.Update{Message: &tele.Message{Text: "hello"}}, KindMessage},
		{tele.Update{Query: &tele.Query{Text: "berlin"}}, KindInlineQuery},
		{tele.Update{InlineResult: &tele.InlineResult{ResultID: "x"}}, KindInlineResult},
	}
	for _, tc := range cases {
		if got := KindOf(tc.upd); got != tc.want {
			t.Fatalf("KindOf(%+v) = %q, want %q", tc.upd, got, tc.want)
		}
	}
}

func TestEngineDispatchTransitions(t *testing.T) {
	e := NewEngine(time.Minute)

	var seen []string
	d := &Dialog{
		Name: "test",
		States: map[State][]Transition{
			"ask": {
				{Kind: KindMessage, Handle: func(c tele.Context, s *Session) (State, error) {
					seen = append(seen, c.Text())
					s.Data["answer"] = c.Text()
					return "confirm", nil
				}},
			},
			"confirm": {
				{Kind: KindMessage, Handle: func(c tele.Context, s *Session) (State, error) {
					seen = append(seen, c.Text())
					return StateEnd, nil
				}},
			},
		},
	}

	if err := e.Start(messageCtx(7, "/test"), d, "ask"); err != nil {
		t.Fatalf("Start: %v", err)
	}
	if !e.Active(7) {
		t.Fatalf("expected active session after Start")
	}

	handled, err := e.Dispatch(messageCtx(7, "first"))
	if err != nil || !handled {
		t.Fatalf("Dispatch(first) = %v, %v", handled, err)
	}
	handled, err = e.Dispatch(messageCtx(7, "second"))
	if err != nil || !handled {
		t.Fatalf("Dispatch(second) = %v, %v", handled, err)
	}
	if e.Active(7) {
		t.Fatalf("session should have ended after StateEnd")
	}
	if len(seen) != 2 || seen[0] != "first" || seen[1] != "second" {
		t.Fatalf("unexpected transition order: %v", seen)
	}

	handled, _ = e.Dispatch(messageCtx(7, "third"))
	if handled {
		t.Fatalf("no session should consume updates after end")
	}
}

func TestEngineFallbackKeepsState(t *testing.T) {
	e := NewEngine(time.Minute)

	fallbacks := 0
	d := &Dialog{
		Name: "fb",
		States: map[State][]Transition{
			"ask": {
				{
					Kind:  KindMessage,
					Match: func(c tele.Context) bool { return c.Text() == "yes" },
					Handle: func(c tele.Context, s *Session) (State, error) {
						return StateEnd, nil
					},
				},
			},
		},
		OnFallback: func(c tele.Context) error {
			fallbacks++
			return nil
		},
	}

	if err := e.Start(messageCtx(9, "/fb"), d, "ask"); err != nil {
		t.Fatalf("Start: %v", err)
	}

	handled, err := e.Dispatch(messageCtx(9, "nope"))
	if err != nil || !handled {
		t.Fatalf("fallback dispatch = %v, %v", handled, err)
	}
	if fallbacks != 1 {
		t.Fatalf("fallbacks = %d, want 1", fallbacks)
	}
	if !e.Active(9) {
		t.Fatalf("fallback must keep the session alive")
	}

	handled, err = e.Dispatch(messageCtx(9, "yes"))
	if err != nil || !handled {
		t.Fatalf("matching dispatch = %v, %v", handled, err)
	}
	if e.Active(9) {
		t.Fatalf("session should end on match")
	}
}

func TestEngineDefaultFallbackConsumesMessage(t *testing.T) {
	e := NewEngine(time.Minute)

	d := &Dialog{
		Name: "nofb",
		States: map[State][]Transition{
			"ask": {
				{
					Kind:  KindMessage,
					Match: func(c tele.Context) bool { return c.Text() == "yes" },
					Handle: func(c tele.Context, s *Session) (State, error) {
						return StateEnd, nil
					},
				},
			},
		},
	}

	if err := e.Start(messageCtx(4, "/nofb"), d, "ask"); err != nil {
		t.Fatalf("Start: %v", err)
	}

	c := messageCtx(4, "nope")
	handled, err := e.Dispatch(c)
	if err != nil || !handled {
		t.Fatalf("default fallback dispatch = %v, %v", handled, err)
	}
	if c.replies != 1 {
		t.Fatalf("replies = %d, want 1", c.replies)
	}
	if !e.Active(4) {
		t.Fatalf("default fallback must keep the session alive")
	}
}

func TestEngineInlineFallsThrough(t *testing.T) {
	e := NewEngine(time.Minute)

	d := &Dialog{
		Name: "msg-only",
		States: map[State][]Transition{
			"ask": {
				{Kind: KindMessage, Handle: func(c tele.Context, s *Session) (State, error) {
					return StateEnd, nil
				}},
			},
		},
		OnFallback: func(c tele.Context) error { return nil },
	}

	if err := e.Start(messageCtx(3, "/m"), d, "ask"); err != nil {
		t.Fatalf("Start: %v", err)
	}

	handled, err := e.Dispatch(queryCtx(3, "anything"))
	if err != nil {
		t.Fatalf("Dispatch: %v", err)
	}
	if handled {
		t.Fatalf("inline update must fall through a message-only dialog")
	}
	if !e.Active(3) {
		t.Fatalf("session must survive a passed-through inline update")
	}
}

func TestEngineTimeout(t *testing.T) {
	e := NewEngine(time.Minute)
	base := time.Now()
	now := base
	e.now = func() time.Time { return now }

	timedOut := 0
	d := &Dialog{
		Name:    "slow",
		Timeout: 30 * time.Second,
		States: map[State][]Transition{
			"ask": {
				{Kind: KindMessage, Handle: func(c tele.Context, s *Session) (State, error) {
					return StateEnd, nil
				}},
			},
		},
		OnTimeout: func(c tele.Context) error {
			timedOut++
			return nil
		},
	}

	if err := e.Start(messageCtx(4, "/slow"), d, "ask"); err != nil {
		t.Fatalf("Start: %v", err)
	}

	now = base.Add(31 * time.Second)
	handled, err := e.Dispatch(messageCtx(4, "too late"))
	if err != nil {
		t.Fatalf("Dispatch: %v", err)
	}
	if handled {
		t.Fatalf("expired session must not consume the update")
	}
	if timedOut != 1 {
		t.Fatalf("timeout handler runs = %d, want 1", timedOut)
	}
	if e.Active(4) {
		t.Fatalf("expired session must be dropped")
	}
}

func TestEngineStartSupersedes(t *testing.T) {
	e := NewEngine(time.Minute)

	first := &Dialog{Name: "first", States: map[State][]Transition{"a": nil}}
	second := &Dialog{
		Name: "second",
		States: map[State][]Transition{
			"b": {
				{Kind: KindMessage, Handle: func(c tele.Context, s *Session) (State, error) {
					return StateEnd, nil
				}},
			},
		},
	}

	if err := e.Start(messageCtx(5, "/first"), first, "a"); err != nil {
		t.Fatalf("Start first: %v", err)
	}
	if err := e.Start(messageCtx(5, "/second"), second, "b"); err != nil {
		t.Fatalf("Start second: %v", err)
	}

	handled, err := e.Dispatch(messageCtx(5, "go"))
	if err != nil || !handled {
		t.Fatalf("Dispatch = %v, %v", handled, err)
	}
	if e.Active(5) {
		t.Fatalf("second dialog should have ended the session")
	}
}
