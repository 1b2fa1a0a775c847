package timezone

import "testing"

func TestValid(t *testing.T) {
	for _, zone := range []string{"UTC", "Europe/Berlin", "America/New_York"} {
		if !Valid(zone) {
			t.Fatalf("Valid(%q) = false", zone)
		}
	}
	for _, zone := range []string{"", "Nowhere/Atlantis", "berlin"} {
		if Valid(zone) {
			t.Fatalf("Valid(%q) = true", zone)
		}
	}
}

func TestSearchRanksQuery(t *testing.T) {
	got := Search("berlin", 5)
	if len(got) == 0 {
		t.Fatalf("no matches for berlin")
	}
	if got[0] != "Europe/Berlin" {
		t.Fatalf("best match = %q, want Europe/Berlin", got[0])
	}

	got = Search("tokyo", 5)
	if len(got) == 0 || got[0] != "Asia/Tokyo" {
		t.Fatalf("best match = %v, want Asia/Tokyo first", got)
	}
}

func TestSearchEmptyQuery(t *testing.T) {
	got := Search("", 7)
	if len(got) != 7 {
		t.Fatalf("empty query should return the list head, got %d entries", len(got))
	}
}

func TestSearchHonorsLimit(t *testing.T) {
	got := Search("a", 3)
	if len(got) > 3 {
		t.Fatalf("limit ignored, got %d entries", len(got))
	}
}
