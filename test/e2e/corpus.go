// Package e2e provides end-to-end tests over a generated movie catalog: catalog
// and embedding files are written to disk, built into a snapshot, loaded, and
// queried through the HTTP API.
package e2e

import (
	"fmt"

	"github.com/hyperjump/movierec/internal/models"
)

// Dimensions of the generated embeddings: one axis per genre plus one offset axis.
const Dimensions = genreCount + 1

const (
	genreCount     = 10
	moviesPerGenre = 10
)

var genres = []struct {
	name   string
	prefix string
}{
	{"Science Fiction", "Galaxy"},
	{"Horror", "Haunted"},
	{"Comedy", "Laugh"},
	{"Crime", "Detective"},
	{"Fantasy", "Dragon"},
	{"Romance", "Love"},
	{"War", "Battle"},
	{"Western", "Desert"},
	{"Adventure", "Ocean"},
	{"Animation", "Robot"},
}

var suffixes = []string{
	"Rising", "Returns", "Forever", "Legacy", "Origins",
	"Requiem", "Awakening", "Reckoning", "Chronicles", "Dawn",
}

var languages = [][]string{{"English"}, {"English", "French"}, {"Japanese"}}

// Movie is a catalog row with its embedding.
type Movie struct {
	Item   models.Item
	Vector []float32
}

// RecommendCase is a title query and what its results must satisfy.
// When Expected is set the result titles must equal it exactly; otherwise
// every result must share Genre.
type RecommendCase struct {
	Title    string
	K        int
	Genre    string
	Expected []string
}

// Corpus holds movies and recommendation test cases.
type Corpus struct {
	Movies       []Movie
	TestCases    []RecommendCase
	TotalMovies  int
	TotalQueries int
}

// BuildCorpus returns 100 movies in 10 genre clusters. Vectors in a genre sit
// on that genre's axis at distance 10 from the origin, separated along a shared
// offset axis by j*j/10. Intra-genre distances stay below inter-genre ones
// under both l2 and cosine, and neighbor order within a genre is known in advance.
func BuildCorpus() *Corpus {
	movies := make([]Movie, 0, genreCount*moviesPerGenre)
	for g, genre := range genres {
		for j := 0; j < moviesPerGenre; j++ {
			id := len(movies)
			v := make([]float32, Dimensions)
			v[g] = 10
			v[genreCount] = float32(j*j) / 10
			movies = append(movies, Movie{
				Item: models.Item{
					ID:              models.ItemID(id),
					Title:           fmt.Sprintf("%s %s", genre.prefix, suffixes[j]),
					Genres:          []string{genre.name},
					VoteAverage:     float64(50+(id*7)%50) / 10,
					VoteCount:       10000 - id*37,
					SpokenLanguages: languages[id%len(languages)],
				},
				Vector: v,
			})
		}
	}
	cases := buildRecommendCases(movies)
	return &Corpus{
		Movies:       movies,
		TestCases:    cases,
		TotalMovies:  len(movies),
		TotalQueries: len(cases),
	}
}

func buildRecommendCases(movies []Movie) []RecommendCase {
	var cases []RecommendCase
	for g := range genres {
		first := movies[g*moviesPerGenre]
		cases = append(cases, RecommendCase{
			Title: first.Item.Title,
			K:     moviesPerGenre,
			Genre: first.Item.Genres[0],
		})
		// Offsets j*j/10: for j=5 the nearest are j=5 (itself), then 4, then 6.
		mid := movies[g*moviesPerGenre+5]
		cases = append(cases, RecommendCase{
			Title: mid.Item.Title,
			K:     3,
			Genre: mid.Item.Genres[0],
			Expected: []string{
				mid.Item.Title,
				movies[g*moviesPerGenre+4].Item.Title,
				movies[g*moviesPerGenre+6].Item.Title,
			},
		})
	}
	return cases
}

// Items returns the catalog rows in id order.
func (c *Corpus) Items() []models.Item {
	out := make([]models.Item, len(c.Movies))
	for i, m := range c.Movies {
		out[i] = m.Item
	}
	return out
}

// Vectors returns the embeddings in id order.
func (c *Corpus) Vectors() [][]float32 {
	out := make([][]float32, len(c.Movies))
	for i, m := range c.Movies {
		out[i] = m.Vector
	}
	return out
}
