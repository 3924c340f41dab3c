package catalog

import (
	"errors"
	"testing"

	"github.com/hyperjump/movierec/internal/models"
)

func newTestStore(t *testing.T, titles []string, votes []int) *Store {
	t.Helper()
	items := make([]models.Item, len(titles))
	for i, title := range titles {
		items[i] = models.Item{ID: models.ItemID(i), Title: title, VoteCount: votes[i]}
	}
	s, err := NewStore(items)
	if err != nil {
		t.Fatal(err)
	}
	return s
}

func TestStore_LookupByTitle(t *testing.T) {
	s := newTestStore(t, []string{"Inception", "Heat", "heat", "Alien"}, []int{1, 2, 3, 4})
	tests := []struct {
		title  string
		wantID models.ItemID
		wantOK bool
	}{
		{"Inception", 0, true},
		{"INCEPTION", 0, true},
		{"inCePtion", 0, true},
		{"HEAT", 1, true}, // duplicates resolve to the first ordinal
		{"Alien", 3, true},
		{"Aliens", 0, false},
		{"", 0, false},
		{" Inception", 0, false},
	}
	for _, tt := range tests {
		t.Run(tt.title, func(t *testing.T) {
			id, ok := s.LookupByTitle(tt.title)
			if ok != tt.wantOK || (ok && id != tt.wantID) {
				t.Errorf("LookupByTitle(%q) = %d, %v; want %d, %v", tt.title, id, ok, tt.wantID, tt.wantOK)
			}
		})
	}
}

func TestStore_Get(t *testing.T) {
	s := newTestStore(t, []string{"A", "B"}, []int{1, 2})
	it, err := s.Get(1)
	if err != nil {
		t.Fatal(err)
	}
	if it.Title != "B" || it.ID != 1 {
		t.Errorf("Get(1) = %+v", it)
	}
	for _, id := range []models.ItemID{-1, 2, 100} {
		if _, err := s.Get(id); !errors.Is(err, models.ErrNotFound) {
			t.Errorf("Get(%d) err = %v, want ErrNotFound", id, err)
		}
	}
}

func TestStore_TopByVotes(t *testing.T) {
	s := newTestStore(t, []string{"A", "B", "C"}, []int{10, 50, 30})
	got := s.TopByVotes(2)
	if len(got) != 2 || got[0].Title != "B" || got[1].Title != "C" {
		t.Errorf("TopByVotes(2) = %v, want [B C]", got)
	}
	if n := len(s.TopByVotes(10)); n != 3 {
		t.Errorf("TopByVotes(10) returned %d items, want 3", n)
	}
	if n := len(s.TopByVotes(0)); n != 0 {
		t.Errorf("TopByVotes(0) returned %d items, want 0", n)
	}
}

func TestStore_TopByVotesTiesByOrdinal(t *testing.T) {
	s := newTestStore(t, []string{"A", "B", "C", "D"}, []int{5, 9, 5, 5})
	got := s.TopByVotes(4)
	want := []string{"B", "A", "C", "D"}
	for i, w := range want {
		if got[i].Title != w {
			t.Errorf("TopByVotes[%d] = %s, want %s", i, got[i].Title, w)
		}
	}
}

func TestNewStore_NonContiguousIDs(t *testing.T) {
	_, err := NewStore([]models.Item{{ID: 0, Title: "A"}, {ID: 2, Title: "B"}})
	if err == nil {
		t.Error("expected error for non-contiguous ids")
	}
}

func TestStore_ItemsIsCopy(t *testing.T) {
	s := newTestStore(t, []string{"A"}, []int{1})
	items := s.Items()
	items[0].Title = "changed"
	if got, _ := s.Get(0); got.Title != "A" {
		t.Errorf("store mutated through Items(): %q", got.Title)
	}
	if s.Len() != 1 {
		t.Errorf("Len = %d, want 1", s.Len())
	}
}
