// Package models defines core data structures for catalog items, recommendation queries, and results.
package models

// ItemID is the ordinal position of an item in the snapshot, in [0, N).
type ItemID int

// Item is a single catalog entry (a movie) with its descriptive attributes.
type Item struct {
	ID              ItemID   `json:"id"`
	Title           string   `json:"title"`
	Genres          []string `json:"genres"`
	VoteAverage     float64  `json:"vote_average"`
	VoteCount       int      `json:"vote_count"`
	SpokenLanguages []string `json:"spoken_languages"`
}

// ItemView is the subset of item attributes exposed to the presentation layer.
type ItemView struct {
	Title           string   `json:"title"`
	Genres          []string `json:"genres"`
	VoteAverage     float64  `json:"vote_average"`
	SpokenLanguages []string `json:"spoken_languages"`
}

// View returns the presentation view of the item.
func (it *Item) View() ItemView {
	return ItemView{
		Title:           it.Title,
		Genres:          it.Genres,
		VoteAverage:     it.VoteAverage,
		SpokenLanguages: it.SpokenLanguages,
	}
}
