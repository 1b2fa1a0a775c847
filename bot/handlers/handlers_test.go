package handlers

import (
	"context"
	"errors"
	"testing"

	"github.com/m3rciful/statusbot/bot/inline"
	"github.com/m3rciful/statusbot/bot/render"

	tele "gopkg.in/telebot.v4"
)

type fakeContext struct {
	tele.Context
	upd    tele.Update
	sender *tele.User
	store  map[string]any
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
func (f *fakeContext) Query() *tele.Query  { return f.upd.Query }
func (f *fakeContext) Get(key string) any  { return f.store[key] }
func (f *fakeContext) Set(key string, val any) {
	f.store[key] = val
}

// brokenStore fails every read so the inline answer cannot be built.
type brokenStore struct {
	err error
}

func (s *brokenStore) AppendSticker(context.Context, int64, string) error {
	return s.err
}
func (s *brokenStore) Stickers(context.Context, int64) ([]string, error) {
	return nil, s.err
}
func (s *brokenStore) SetTimezone(context.Context, int64, string) error {
	return s.err
}
func (s *brokenStore) Timezone(context.Context, int64) (string, error) {
	return "", s.err
}

type stubPublisher struct{}

func (stubPublisher) Publish(context.Context, render.Request) (string, error) {
	return "file-1", nil
}

type recordingEscalator struct {
	errs []error
}

func (r *recordingEscalator) Escalate(_ tele.Context, err error) {
	r.errs = append(r.errs, err)
}

func TestInlineQueryFailureEscalates(t *testing.T) {
	storeErr := errors.New("connection refused")
	esc := &recordingEscalator{}
	a := &App{
		reconciler: inline.NewReconciler(stubPublisher{}, &brokenStore{err: storeErr}),
		notifier:   esc,
	}

	c := newFakeContext(7, tele.Update{Query: &tele.Query{Text: "hello"}})
	if err := a.handleInlineQuery(c); err != nil {
		t.Fatalf("handleInlineQuery: %v", err)
	}
	if len(esc.errs) != 1 {
		t.Fatalf("escalations = %d, want 1", len(esc.errs))
	}
	if !errors.Is(esc.errs[0], storeErr) {
		t.Fatalf("escalated %v, want the store failure", esc.errs[0])
	}
}
