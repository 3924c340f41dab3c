// Package catalog provides the read-only item attribute store.
package catalog

import (
	"fmt"
	"sort"
	"strings"

	"github.com/hyperjump/movierec/internal/models"
)

// Store holds item attributes by ordinal id. It is immutable after NewStore
// and safe for concurrent use.
type Store struct {
	items   []models.Item
	byTitle map[string]models.ItemID // lower-cased title -> first ordinal
	byVotes []models.ItemID          // vote_count desc, ordinal asc
}

// NewStore builds a store over items. items[i].ID must equal i.
func NewStore(items []models.Item) (*Store, error) {
	s := &Store{
		items:   make([]models.Item, len(items)),
		byTitle: make(map[string]models.ItemID, len(items)),
		byVotes: make([]models.ItemID, len(items)),
	}
	for i, it := range items {
		if int(it.ID) != i {
			return nil, fmt.Errorf("item at position %d has id %d: ids must be contiguous from 0", i, it.ID)
		}
		s.items[i] = it
		key := strings.ToLower(it.Title)
		if _, dup := s.byTitle[key]; !dup {
			s.byTitle[key] = it.ID
		}
		s.byVotes[i] = it.ID
	}
	sort.SliceStable(s.byVotes, func(a, b int) bool {
		return s.items[s.byVotes[a]].VoteCount > s.items[s.byVotes[b]].VoteCount
	})
	return s, nil
}

// LookupByTitle resolves a title case-insensitively. Duplicate titles resolve
// to the lowest ordinal.
func (s *Store) LookupByTitle(title string) (models.ItemID, bool) {
	id, ok := s.byTitle[strings.ToLower(title)]
	return id, ok
}

// Get returns the item with the given id.
func (s *Store) Get(id models.ItemID) (models.Item, error) {
	if id < 0 || int(id) >= len(s.items) {
		return models.Item{}, fmt.Errorf("item %d: %w", id, models.ErrNotFound)
	}
	return s.items[id], nil
}

// TopByVotes returns up to n items with the highest vote count, ties by ordinal.
func (s *Store) TopByVotes(n int) []models.Item {
	if n <= 0 {
		return []models.Item{}
	}
	if n > len(s.byVotes) {
		n = len(s.byVotes)
	}
	out := make([]models.Item, n)
	for i, id := range s.byVotes[:n] {
		out[i] = s.items[id]
	}
	return out
}

// Items returns a copy of all items in ordinal order.
func (s *Store) Items() []models.Item {
	out := make([]models.Item, len(s.items))
	copy(out, s.items)
	return out
}

// Len returns the number of items.
func (s *Store) Len() int { return len(s.items) }
