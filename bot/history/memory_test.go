package history

import (
	"context"
	"testing"
)

func TestMemoryStoreStickers(t *testing.T) {
	s := NewMemoryStore()
	ctx := context.Background()

	got, err := s.Stickers(ctx, 1)
	if err != nil {
		t.Fatalf("Stickers: %v", err)
	}
	if len(got) != 0 {
		t.Fatalf("fresh store should be empty, got %v", got)
	}

	for _, id := range []string{"a", "b", "c"} {
		if err := s.AppendSticker(ctx, 1, id); err != nil {
			t.Fatalf("AppendSticker(%s): %v", id, err)
		}
	}
	if err := s.AppendSticker(ctx, 2, "other"); err != nil {
		t.Fatalf("AppendSticker(other): %v", err)
	}

	got, err = s.Stickers(ctx, 1)
	if err != nil {
		t.Fatalf("Stickers: %v", err)
	}
	if len(got) != 3 || got[0] != "a" || got[2] != "c" {
		t.Fatalf("expected append order [a b c], got %v", got)
	}

	// Returned slice must be a copy.
	got[0] = "mutated"
	again, _ := s.Stickers(ctx, 1)
	if again[0] != "a" {
		t.Fatalf("store leaked its internal slice")
	}
}

func TestMemoryStoreTimezone(t *testing.T) {
	s := NewMemoryStore()
	ctx := context.Background()

	zone, err := s.Timezone(ctx, 5)
	if err != nil {
		t.Fatalf("Timezone: %v", err)
	}
	if zone != "" {
		t.Fatalf("unset timezone should be empty, got %q", zone)
	}

	if err := s.SetTimezone(ctx, 5, "Europe/Berlin"); err != nil {
		t.Fatalf("SetTimezone: %v", err)
	}
	if err := s.SetTimezone(ctx, 5, "Asia/Tokyo"); err != nil {
		t.Fatalf("SetTimezone overwrite: %v", err)
	}

	zone, _ = s.Timezone(ctx, 5)
	if zone != "Asia/Tokyo" {
		t.Fatalf("timezone = %q, want Asia/Tokyo", zone)
	}
}
