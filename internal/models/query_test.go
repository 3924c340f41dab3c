package models

import (
	"errors"
	"fmt"
	"testing"
)

func TestRecommendQuery_Normalize(t *testing.T) {
	tests := []struct {
		name      string
		query     RecommendQuery
		provided  bool
		wantTitle string
		wantK     int
	}{
		{"default k when missing", RecommendQuery{Title: "Inception"}, false, "Inception", 5},
		{"keeps provided k", RecommendQuery{Title: "Inception", K: 3}, true, "Inception", 3},
		{"keeps provided zero for validation", RecommendQuery{Title: "Inception", K: 0}, true, "Inception", 0},
		{"trims title", RecommendQuery{Title: "  Up  ", K: 2}, true, "Up", 2},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			q := tt.query
			q.Normalize(5, tt.provided)
			if q.Title != tt.wantTitle || q.K != tt.wantK {
				t.Errorf("Normalize() = %+v, want title=%q k=%d", q, tt.wantTitle, tt.wantK)
			}
		})
	}
}

func TestErrors_Taxonomy(t *testing.T) {
	var err error = &NotFoundError{Title: "Nope"}
	if !errors.Is(err, ErrNotFound) {
		t.Error("NotFoundError should match ErrNotFound")
	}
	wrapped := fmt.Errorf("recommend: %w", &InvalidArgumentError{Field: "k", Value: 0, Reason: "must be >= 1"})
	if !errors.Is(wrapped, ErrInvalidArgument) {
		t.Error("wrapped InvalidArgumentError should match ErrInvalidArgument")
	}
	var ia *InvalidArgumentError
	if !errors.As(wrapped, &ia) || ia.Field != "k" {
		t.Errorf("errors.As: got %+v", ia)
	}
	cause := errors.New("disk on fire")
	startup := &StartupError{Path: "/x.db", Reason: "open", Err: cause}
	if !errors.Is(startup, ErrStartup) || !errors.Is(startup, cause) {
		t.Error("StartupError should match ErrStartup and its cause")
	}
	if errors.Is(startup, ErrNotFound) {
		t.Error("StartupError must not match ErrNotFound")
	}
}

func TestNewRecommendResponse_Ranks(t *testing.T) {
	items := []Item{{ID: 2, Title: "B"}, {ID: 0, Title: "A"}}
	resp := NewRecommendResponse("A", 2, items, 1)
	if len(resp.Results) != 2 {
		t.Fatalf("results: got %d", len(resp.Results))
	}
	if resp.Results[0].Title != "B" || resp.Results[0].Rank != 1 || resp.Results[1].Rank != 2 {
		t.Errorf("unexpected results: %+v", resp.Results)
	}
}
