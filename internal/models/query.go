package models

import (
	"strings"
)

// RecommendQuery is a request for the k items most similar to Title.
type RecommendQuery struct {
	Title string `json:"title" validate:"required"`
	K     int    `json:"k" validate:"min=1"`
}

// Normalize trims the title and sets K to defaultK when it was not provided.
// K values that were provided (including zero or negative ones) are left for validation.
func (q *RecommendQuery) Normalize(defaultK int, kProvided bool) {
	q.Title = strings.TrimSpace(q.Title)
	if !kProvided {
		q.K = defaultK
	}
}
