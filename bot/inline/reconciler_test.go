package inline

import (
	"context"
	"fmt"
	"strings"
	"testing"

	"github.com/m3rciful/statusbot/bot/history"
	"github.com/m3rciful/statusbot/bot/render"

	tele "gopkg.in/telebot.v4"
)

type stubPublisher struct {
	err   error
	calls int
}

func (s *stubPublisher) Publish(_ context.Context, req render.Request) (string, error) {
	s.calls++
	if s.err != nil {
		return "", s.err
	}
	return fmt.Sprintf("file-%d-%s", s.calls, req.Text), nil
}

func testUser(id int64) *tele.User {
	return &tele.User{ID: id, Username: "someone", FirstName: "Some", LastName: "One"}
}

func stickerIDs(results tele.Results) []string {
	var out []string
	for _, res := range results {
		if _, ok := res.(*tele.StickerResult); ok {
			out = append(out, res.ResultID())
		}
	}
	return out
}

func TestEmptyQueryReturnsHistoryOnly(t *testing.T) {
	ctx := context.Background()
	store := history.NewMemoryStore()
	for _, id := range []string{"old", "mid", "new"} {
		if err := store.AppendSticker(ctx, 1, id); err != nil {
			t.Fatalf("AppendSticker: %v", err)
		}
	}
	pub := &stubPublisher{}
	r := NewReconciler(pub, store)

	results, err := r.BuildResults(ctx, testUser(1), "")
	if err != nil {
		t.Fatalf("BuildResults: %v", err)
	}
	if pub.calls != 0 {
		t.Fatalf("empty query must not publish, calls = %d", pub.calls)
	}
	if r.Pending(1) {
		t.Fatalf("empty query must not create a pending selection")
	}
	if len(results) != 3 {
		t.Fatalf("results = %d, want 3", len(results))
	}

	// Most-recent first.
	want := []string{"new", "mid", "old"}
	for i, res := range results {
		sr, ok := res.(*tele.StickerResult)
		if !ok {
			t.Fatalf("result %d is %T, want sticker", i, res)
		}
		if sr.Cache != want[i] {
			t.Fatalf("result %d = %q, want %q", i, sr.Cache, want[i])
		}
	}
}

func TestPublishThenPromote(t *testing.T) {
	ctx := context.Background()
	store := history.NewMemoryStore()
	pub := &stubPublisher{}
	r := NewReconciler(pub, store)

	results, err := r.BuildResults(ctx, testUser(2), "hello")
	if err != nil {
		t.Fatalf("BuildResults: %v", err)
	}
	if pub.calls != 1 {
		t.Fatalf("publish calls = %d, want 1", pub.calls)
	}
	if len(results) != 1 {
		t.Fatalf("results = %d, want 1", len(results))
	}
	pendingID := results[0].ResultID()
	if strings.HasPrefix(pendingID, historyIDPrefix) {
		t.Fatalf("fresh candidate must not carry a history ID: %q", pendingID)
	}
	if !r.Pending(2) {
		t.Fatalf("expected a pending selection")
	}

	if err := r.Resolve(ctx, 2, pendingID); err != nil {
		t.Fatalf("Resolve: %v", err)
	}
	if r.Pending(2) {
		t.Fatalf("resolved pending selection must be cleared")
	}
	got, _ := store.Stickers(ctx, 2)
	if len(got) != 1 {
		t.Fatalf("history length = %d, want 1", len(got))
	}
}

func TestPendingFirstThenHistory(t *testing.T) {
	ctx := context.Background()
	store := history.NewMemoryStore()
	_ = store.AppendSticker(ctx, 3, "past")
	r := NewReconciler(&stubPublisher{}, store)

	results, err := r.BuildResults(ctx, testUser(3), "fresh")
	if err != nil {
		t.Fatalf("BuildResults: %v", err)
	}
	if len(results) != 2 {
		t.Fatalf("results = %d, want 2", len(results))
	}
	if strings.HasPrefix(results[0].ResultID(), historyIDPrefix) {
		t.Fatalf("pending candidate must come first")
	}
	if !strings.HasPrefix(results[1].ResultID(), historyIDPrefix) {
		t.Fatalf("second candidate should be history, got ID %q", results[1].ResultID())
	}
}

func TestSecondQuerySupersedesFirst(t *testing.T) {
	ctx := context.Background()
	store := history.NewMemoryStore()
	r := NewReconciler(&stubPublisher{}, store)
	user := testUser(4)

	first, err := r.BuildResults(ctx, user, "hello")
	if err != nil {
		t.Fatalf("BuildResults(hello): %v", err)
	}
	second, err := r.BuildResults(ctx, user, "world")
	if err != nil {
		t.Fatalf("BuildResults(world): %v", err)
	}

	firstKey := first[0].ResultID()
	secondKey := second[0].ResultID()
	if firstKey == secondKey {
		t.Fatalf("correlation keys must be single-use")
	}

	// The abandoned key is a reconciliation miss with no effect.
	if err := r.Resolve(ctx, 4, firstKey); err != nil {
		t.Fatalf("Resolve(stale): %v", err)
	}
	got, _ := store.Stickers(ctx, 4)
	if len(got) != 0 {
		t.Fatalf("stale key must not promote, history = %v", got)
	}
	if !r.Pending(4) {
		t.Fatalf("a miss must not clear the live pending selection")
	}

	if err := r.Resolve(ctx, 4, secondKey); err != nil {
		t.Fatalf("Resolve(live): %v", err)
	}
	got, _ = store.Stickers(ctx, 4)
	if len(got) != 1 {
		t.Fatalf("live key must promote exactly once, history = %v", got)
	}
}

func TestHistoryPickClearsStalePending(t *testing.T) {
	ctx := context.Background()
	store := history.NewMemoryStore()
	_ = store.AppendSticker(ctx, 5, "past")
	r := NewReconciler(&stubPublisher{}, store)

	if _, err := r.BuildResults(ctx, testUser(5), "draft"); err != nil {
		t.Fatalf("BuildResults: %v", err)
	}
	if !r.Pending(5) {
		t.Fatalf("expected pending selection")
	}

	if err := r.Resolve(ctx, 5, historyIDPrefix+"0"); err != nil {
		t.Fatalf("Resolve(history): %v", err)
	}
	if r.Pending(5) {
		t.Fatalf("history pick must clear the stale pending selection")
	}
	got, _ := store.Stickers(ctx, 5)
	if len(got) != 1 {
		t.Fatalf("history pick must not append, history = %v", got)
	}
}

func TestRenderFailureDegradesToArticle(t *testing.T) {
	ctx := context.Background()
	store := history.NewMemoryStore()
	_ = store.AppendSticker(ctx, 6, "past")
	pub := &stubPublisher{err: &render.Error{Reason: "too long"}}
	r := NewReconciler(pub, store)

	results, err := r.BuildResults(ctx, testUser(6), "abc")
	if err != nil {
		t.Fatalf("BuildResults: %v", err)
	}
	if r.Pending(6) {
		t.Fatalf("failed render must not create a pending selection")
	}
	if len(results) != 2 {
		t.Fatalf("results = %d, want article + history", len(results))
	}
	if _, ok := results[0].(*tele.ArticleResult); !ok {
		t.Fatalf("first result should explain the failure, got %T", results[0])
	}
	if ids := stickerIDs(results); len(ids) != 1 || !strings.HasPrefix(ids[0], historyIDPrefix) {
		t.Fatalf("history candidates = %v", ids)
	}
}

func TestCrossUserIsolation(t *testing.T) {
	ctx := context.Background()
	store := history.NewMemoryStore()
	r := NewReconciler(&stubPublisher{}, store)

	ra, err := r.BuildResults(ctx, testUser(10), "from-a")
	if err != nil {
		t.Fatalf("BuildResults(a): %v", err)
	}
	rb, err := r.BuildResults(ctx, testUser(11), "from-b")
	if err != nil {
		t.Fatalf("BuildResults(b): %v", err)
	}

	// User A resolving with user B's key is a miss for A.
	if err := r.Resolve(ctx, 10, rb[0].ResultID()); err != nil {
		t.Fatalf("Resolve: %v", err)
	}
	if got, _ := store.Stickers(ctx, 10); len(got) != 0 {
		t.Fatalf("cross-user key must not promote, history = %v", got)
	}

	if err := r.Resolve(ctx, 10, ra[0].ResultID()); err != nil {
		t.Fatalf("Resolve: %v", err)
	}
	if got, _ := store.Stickers(ctx, 10); len(got) != 1 {
		t.Fatalf("own key must promote, history = %v", got)
	}
	if got, _ := store.Stickers(ctx, 11); len(got) != 0 {
		t.Fatalf("user B history must be untouched, got %v", got)
	}
}
