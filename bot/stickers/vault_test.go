package stickers

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"testing"
)

// fakeAPI simulates the platform's sticker-set storage in memory.
type fakeAPI struct {
	mu      sync.Mutex
	ids     []string
	exists  bool
	creates int
	deletes int
	next       int
	failAdd    error
	failDelete error
	maxSize    int
}

func newFakeAPI() *fakeAPI {
	return &fakeAPI{maxSize: 120}
}

func (f *fakeAPI) SetStickers(_ context.Context, _ string) ([]string, bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]string, len(f.ids))
	copy(out, f.ids)
	return out, f.exists, nil
}

func (f *fakeAPI) CreateSet(_ context.Context, _, _ string, _ []byte) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.creates++
	if f.exists {
		// The platform answers "already exists"; adapters treat that as
		// success, so the fake does too.
		return nil
	}
	f.exists = true
	f.next++
	f.ids = []string{fmt.Sprintf("seed-%d", f.next)}
	return nil
}

func (f *fakeAPI) AddSticker(_ context.Context, _ string, _ []byte) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.failAdd != nil {
		return f.failAdd
	}
	if len(f.ids) >= f.maxSize {
		return ErrCapacityExceeded
	}
	f.next++
	f.ids = append(f.ids, fmt.Sprintf("file-%d", f.next))
	return nil
}

func (f *fakeAPI) DeleteSticker(_ context.Context, fileID string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.failDelete != nil {
		return f.failDelete
	}
	f.deletes++
	for i, id := range f.ids {
		if id == fileID {
			f.ids = append(f.ids[:i], f.ids[i+1:]...)
			return nil
		}
	}
	return nil
}

func (f *fakeAPI) size() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.ids)
}

func seedFile(t *testing.T) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "seed.webp")
	if err := os.WriteFile(path, []byte("webp"), 0o600); err != nil {
		t.Fatalf("write seed: %v", err)
	}
	return path
}

func TestVaultEnsureSeededIdempotent(t *testing.T) {
	api := newFakeAPI()
	v := NewVault(api, "status_by_testbot", "Status", seedFile(t))
	ctx := context.Background()

	if err := v.EnsureSeeded(ctx); err != nil {
		t.Fatalf("EnsureSeeded: %v", err)
	}
	if err := v.EnsureSeeded(ctx); err != nil {
		t.Fatalf("EnsureSeeded again: %v", err)
	}
	if api.creates != 1 {
		t.Fatalf("creates = %d, want 1", api.creates)
	}
	if api.size() != 1 {
		t.Fatalf("set size = %d, want 1", api.size())
	}
}

func TestVaultAppendReturnsLastAndBoundsSize(t *testing.T) {
	api := newFakeAPI()
	v := NewVault(api, "status_by_testbot", "Status", seedFile(t))
	ctx := context.Background()

	first, err := v.Append(ctx, []byte("img1"))
	if err != nil {
		t.Fatalf("Append: %v", err)
	}
	if api.size() != 2 {
		t.Fatalf("set size after append = %d, want 2", api.size())
	}

	// A second publish before any trim must clear the leftover live
	// sticker, never grow the set past two.
	second, err := v.Append(ctx, []byte("img2"))
	if err != nil {
		t.Fatalf("Append: %v", err)
	}
	if api.size() != 2 {
		t.Fatalf("set size after second append = %d, want 2", api.size())
	}
	if first == second {
		t.Fatalf("two appends returned the same file ID %q", first)
	}

	ids, _, _ := api.SetStickers(ctx, "")
	if ids[len(ids)-1] != second {
		t.Fatalf("Append returned %q, last in set is %q", second, ids[len(ids)-1])
	}
}

func TestVaultTrimToSeed(t *testing.T) {
	api := newFakeAPI()
	v := NewVault(api, "status_by_testbot", "Status", seedFile(t))
	ctx := context.Background()

	if _, err := v.Append(ctx, []byte("img")); err != nil {
		t.Fatalf("Append: %v", err)
	}
	if err := v.TrimToSeed(ctx); err != nil {
		t.Fatalf("TrimToSeed: %v", err)
	}
	if api.size() != 1 {
		t.Fatalf("set size after trim = %d, want 1", api.size())
	}

	deletes := api.deletes
	if err := v.TrimToSeed(ctx); err != nil {
		t.Fatalf("TrimToSeed on trimmed set: %v", err)
	}
	if api.deletes != deletes {
		t.Fatalf("trim on a seed-only set must not delete anything")
	}
}

func TestVaultAppendAbortsWhenLeftoverNotCleared(t *testing.T) {
	api := newFakeAPI()
	v := NewVault(api, "status_by_testbot", "Status", seedFile(t))
	ctx := context.Background()

	if _, err := v.Append(ctx, []byte("img1")); err != nil {
		t.Fatalf("Append: %v", err)
	}

	// With a leftover live sticker in place and deletes erroring, a
	// publish must abort rather than grow the set to three.
	api.failDelete = errors.New("platform down")
	if _, err := v.Append(ctx, []byte("img2")); err == nil {
		t.Fatalf("expected append to abort while the leftover cannot be cleared")
	}
	if api.size() != 2 {
		t.Fatalf("set size = %d, want 2", api.size())
	}

	api.failDelete = nil
	if _, err := v.Append(ctx, []byte("img2")); err != nil {
		t.Fatalf("Append after recovery: %v", err)
	}
	if api.size() != 2 {
		t.Fatalf("set size after recovery = %d, want 2", api.size())
	}
}

func TestVaultAppendFailureLeavesSetRecoverable(t *testing.T) {
	api := newFakeAPI()
	v := NewVault(api, "status_by_testbot", "Status", seedFile(t))
	ctx := context.Background()

	api.failAdd = errors.New("platform down")
	if _, err := v.Append(ctx, []byte("img")); err == nil {
		t.Fatalf("expected append failure")
	}
	if api.size() != 1 {
		t.Fatalf("failed append must leave only the seed, size = %d", api.size())
	}

	api.failAdd = nil
	if _, err := v.Append(ctx, []byte("img")); err != nil {
		t.Fatalf("Append after recovery: %v", err)
	}
	if api.size() != 2 {
		t.Fatalf("set size = %d, want 2", api.size())
	}
}

func TestSetName(t *testing.T) {
	if got := SetName("status", "StatusBot"); got != "status_by_statusbot" {
		t.Fatalf("SetName = %q", got)
	}
}
