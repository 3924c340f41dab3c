// Package recommend resolves a title to its most similar catalog items.
package recommend

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/hyperjump/movierec/internal/metrics"
	"github.com/hyperjump/movierec/internal/models"
	"github.com/hyperjump/movierec/internal/vector"
)

// Catalog is the read-only item store the service resolves titles against.
type Catalog interface {
	LookupByTitle(title string) (models.ItemID, bool)
	Get(id models.ItemID) (models.Item, error)
	TopByVotes(n int) []models.Item
	Len() int
}

// Embeddings gives the vector of an item.
type Embeddings interface {
	VectorFor(id models.ItemID) ([]float32, error)
	Dimensions() int
	Len() int
}

// TitleSearcher returns fuzzy title matches.
type TitleSearcher interface {
	SearchTitles(ctx context.Context, query string, limit int) ([]models.TitleSuggestion, error)
}

// Info describes the data a service was built over.
type Info struct {
	Items      int           `json:"items"`
	Dimensions int           `json:"dimensions"`
	IndexType  string        `json:"index_type"`
	Metric     vector.Metric `json:"metric"`
}

// Service answers recommendation queries. It holds no mutable state besides
// the optional result cache and is safe for concurrent use.
type Service struct {
	catalog    Catalog
	embeddings Embeddings
	index      vector.SimilarityIndex
	titles     TitleSearcher
	cache      *ResultCache
	logger     *zap.Logger
}

// Option configures a Service.
type Option func(*Service)

// WithLogger sets the logger. Nil keeps the no-op logger.
func WithLogger(logger *zap.Logger) Option {
	return func(s *Service) {
		if logger != nil {
			s.logger = logger
		}
	}
}

// WithCacheSize enables an LRU result cache holding up to size results. Zero disables it.
func WithCacheSize(size int) Option {
	return func(s *Service) {
		if size > 0 {
			s.cache = NewResultCache(size)
		} else {
			s.cache = nil
		}
	}
}

// WithTitleSearcher enables fuzzy title suggestions.
func WithTitleSearcher(ts TitleSearcher) Option {
	return func(s *Service) { s.titles = ts }
}

// NewService wires the three read-only components. Catalog, embeddings and
// index must be aligned: same item count, and matching dimensions.
func NewService(cat Catalog, emb Embeddings, idx vector.SimilarityIndex, opts ...Option) (*Service, error) {
	if cat == nil || emb == nil || idx == nil {
		return nil, fmt.Errorf("catalog, embeddings and index are required: %w", models.ErrStartup)
	}
	if cat.Len() != emb.Len() {
		return nil, fmt.Errorf("catalog has %d items but embedding table has %d: %w", cat.Len(), emb.Len(), models.ErrStartup)
	}
	if idx.Size() != emb.Len() {
		return nil, fmt.Errorf("index holds %d vectors but embedding table has %d: %w", idx.Size(), emb.Len(), models.ErrStartup)
	}
	if idx.Dimensions() != emb.Dimensions() {
		return nil, fmt.Errorf("index dimension %d does not match embedding dimension %d: %w", idx.Dimensions(), emb.Dimensions(), models.ErrStartup)
	}
	s := &Service{
		catalog:    cat,
		embeddings: emb,
		index:      idx,
		logger:     zap.NewNop(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s, nil
}

// Recommend returns up to k items most similar to the item titled title,
// most similar first. The title matches case-insensitively; among duplicate
// titles the lowest id wins. The item itself is not excluded from its results.
// An unknown title fails with *models.NotFoundError for any k; k outside
// [1, catalog size] fails with *models.InvalidArgumentError.
func (s *Service) Recommend(ctx context.Context, title string, k int) (items []models.Item, err error) {
	start := time.Now()
	defer func() {
		metrics.RecordRecommendation(time.Since(start), err)
	}()

	id, ok := s.catalog.LookupByTitle(title)
	if !ok {
		return nil, &models.NotFoundError{Title: title}
	}

	if s.cache != nil {
		if cached, hit := s.cache.Get(title, k); hit {
			metrics.RecordCacheLookup(true)
			return cached, nil
		}
		metrics.RecordCacheLookup(false)
	}

	vec, err := s.embeddings.VectorFor(id)
	if err != nil {
		return nil, fmt.Errorf("embedding for item %d: %w", id, err)
	}
	neighbors, err := s.index.Query(ctx, vec, k)
	if err != nil {
		return nil, fmt.Errorf("query index: %w", err)
	}

	items = make([]models.Item, 0, len(neighbors))
	for _, n := range neighbors {
		it, err := s.catalog.Get(n.ID)
		if err != nil {
			return nil, fmt.Errorf("hydrate neighbor %d: %w", n.ID, err)
		}
		items = append(items, it)
	}

	if s.cache != nil {
		s.cache.Set(title, k, items)
	}
	s.logger.Debug("recommendation",
		zap.String("title", title),
		zap.Int("id", int(id)),
		zap.Int("k", k),
		zap.Int("results", len(items)),
		zap.Duration("elapsed", time.Since(start)))
	return items, nil
}

// HasTitle reports whether title resolves to a catalog item, using the same
// matching as Recommend.
func (s *Service) HasTitle(title string) bool {
	_, ok := s.catalog.LookupByTitle(title)
	return ok
}

// TopByVotes returns up to n items with the highest vote count.
func (s *Service) TopByVotes(n int) []models.Item {
	return s.catalog.TopByVotes(n)
}

// TopTitles returns the titles of the n most voted items, for selection lists.
func (s *Service) TopTitles(n int) []string {
	top := s.catalog.TopByVotes(n)
	titles := make([]string, len(top))
	for i, it := range top {
		titles[i] = it.Title
	}
	return titles
}

// SearchTitles returns titles resembling query. Without a TitleSearcher it returns nothing.
func (s *Service) SearchTitles(ctx context.Context, query string, limit int) ([]models.TitleSuggestion, error) {
	if s.titles == nil {
		return []models.TitleSuggestion{}, nil
	}
	metrics.RecordTitleSearch()
	out, err := s.titles.SearchTitles(ctx, query, limit)
	if err != nil {
		return nil, fmt.Errorf("search titles: %w", err)
	}
	return out, nil
}

// MaxK is the largest k Recommend accepts.
func (s *Service) MaxK() int { return s.index.Size() }

// Info reports the shape of the loaded data.
func (s *Service) Info() Info {
	return Info{
		Items:      s.catalog.Len(),
		Dimensions: s.embeddings.Dimensions(),
		IndexType:  s.index.Type(),
		Metric:     s.index.Metric(),
	}
}
