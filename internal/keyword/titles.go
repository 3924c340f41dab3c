// Package keyword provides fuzzy title search used for "did you mean" suggestions.
package keyword

import (
	"context"
	"fmt"
	"sort"
	"strconv"
	"strings"
	"unicode/utf8"

	"github.com/blevesearch/bleve/v2"
	"github.com/blevesearch/bleve/v2/analysis/analyzer/standard"
	blevequery "github.com/blevesearch/bleve/v2/search/query"

	"github.com/hyperjump/movierec/internal/models"
)

// TitleIndex is an in-memory Bleve index over catalog titles. It is built once
// and only read afterwards.
type TitleIndex struct {
	index        bleve.Index
	titles       []string
	maxFuzziness int
	minFetch     int
}

// Option configures a TitleIndex.
type Option func(*TitleIndex)

// WithMaxFuzziness caps the edit distance used for fuzzy term matching (1 or 2).
func WithMaxFuzziness(d int) Option {
	return func(t *TitleIndex) {
		if d >= 0 && d <= 2 {
			t.maxFuzziness = d
		}
	}
}

type titleDoc struct {
	Title string `json:"title"`
}

// NewTitleIndex indexes the titles of items. Document ids are item ordinals.
func NewTitleIndex(items []models.Item, opts ...Option) (*TitleIndex, error) {
	im := bleve.NewIndexMapping()
	docMapping := bleve.NewDocumentMapping()
	titleField := bleve.NewTextFieldMapping()
	// standard analyzer: lowercase + tokenize, no stemming, so typos stay close to the indexed term
	titleField.Analyzer = standard.Name
	titleField.Store = false
	docMapping.AddFieldMappingsAt("title", titleField)
	im.AddDocumentMapping("title", docMapping)
	im.DefaultType = "title"
	im.DefaultMapping = docMapping

	index, err := bleve.NewMemOnly(im)
	if err != nil {
		return nil, fmt.Errorf("failed to create Bleve title index: %w", err)
	}
	t := &TitleIndex{
		index:        index,
		titles:       make([]string, len(items)),
		maxFuzziness: 2,
		minFetch:     25,
	}
	for _, opt := range opts {
		opt(t)
	}

	batch := index.NewBatch()
	for i, it := range items {
		t.titles[i] = it.Title
		if err := batch.Index(strconv.Itoa(i), titleDoc{Title: it.Title}); err != nil {
			_ = index.Close()
			return nil, fmt.Errorf("failed to index title %d: %w", i, err)
		}
		if batch.Size() >= 1000 {
			if err := index.Batch(batch); err != nil {
				_ = index.Close()
				return nil, fmt.Errorf("failed to index titles: %w", err)
			}
			batch.Reset()
		}
	}
	if err := index.Batch(batch); err != nil {
		_ = index.Close()
		return nil, fmt.Errorf("failed to index titles: %w", err)
	}
	return t, nil
}

// tokenize splits query into lowercase terms.
func tokenize(query string) []string {
	return strings.Fields(strings.ToLower(query))
}

// fuzzinessFor scales edit distance with term length so short words do not match everything.
func (t *TitleIndex) fuzzinessFor(term string) int {
	n := utf8.RuneCountInString(term)
	switch {
	case n < 3:
		return 0
	case n < 6:
		return min(1, t.maxFuzziness)
	default:
		return t.maxFuzziness
	}
}

// buildQuery ORs an exact match, a fuzzy match per term, and a prefix match on the last term.
func (t *TitleIndex) buildQuery(query string) blevequery.Query {
	match := bleve.NewMatchQuery(query)
	match.SetField("title")
	match.SetBoost(2)
	queries := []blevequery.Query{match}

	terms := tokenize(query)
	for _, term := range terms {
		if f := t.fuzzinessFor(term); f > 0 {
			fq := bleve.NewFuzzyQuery(term)
			fq.SetFuzziness(f)
			fq.SetField("title")
			queries = append(queries, fq)
		}
	}
	if len(terms) > 0 {
		pq := bleve.NewPrefixQuery(terms[len(terms)-1])
		pq.SetField("title")
		queries = append(queries, pq)
	}
	return bleve.NewDisjunctionQuery(queries...)
}

// SearchTitles returns up to limit titles resembling query, closest edit
// distance first. Titles that differ only by case are reported once, with the
// lowest id, which is the item an exact lookup would pick.
func (t *TitleIndex) SearchTitles(ctx context.Context, query string, limit int) ([]models.TitleSuggestion, error) {
	query = strings.TrimSpace(query)
	if query == "" || limit <= 0 {
		return []models.TitleSuggestion{}, nil
	}

	req := bleve.NewSearchRequest(t.buildQuery(query))
	req.Size = max(limit*4, t.minFetch)
	results, err := t.index.SearchInContext(ctx, req)
	if err != nil {
		return nil, fmt.Errorf("Bleve title search failed: %w", err)
	}

	type candidate struct {
		models.TitleSuggestion
		distance int
	}
	lowerQuery := strings.ToLower(query)
	byTitle := make(map[string]int)
	cands := make([]candidate, 0, len(results.Hits))
	for _, hit := range results.Hits {
		id, err := strconv.Atoi(hit.ID)
		if err != nil || id < 0 || id >= len(t.titles) {
			continue
		}
		title := t.titles[id]
		key := strings.ToLower(title)
		if j, seen := byTitle[key]; seen {
			if models.ItemID(id) < cands[j].ID {
				cands[j].ID = models.ItemID(id)
				cands[j].Title = title
			}
			continue
		}
		byTitle[key] = len(cands)
		cands = append(cands, candidate{
			TitleSuggestion: models.TitleSuggestion{ID: models.ItemID(id), Title: title, Score: hit.Score},
			distance:        LevenshteinDistance(lowerQuery, key),
		})
	}

	sort.Slice(cands, func(i, j int) bool {
		a, b := cands[i], cands[j]
		if a.distance != b.distance {
			return a.distance < b.distance
		}
		if a.Score != b.Score {
			return a.Score > b.Score
		}
		return a.ID < b.ID
	})
	if len(cands) > limit {
		cands = cands[:limit]
	}
	out := make([]models.TitleSuggestion, len(cands))
	for i, c := range cands {
		out[i] = c.TitleSuggestion
	}
	return out, nil
}

// DocCount returns the number of indexed titles.
func (t *TitleIndex) DocCount() (uint64, error) {
	return t.index.DocCount()
}

// Close closes the Bleve index.
func (t *TitleIndex) Close() error {
	return t.index.Close()
}
