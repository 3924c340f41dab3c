package server

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"go.uber.org/zap"

	"github.com/hyperjump/movierec/internal/models"
)

const (
	maxTopTitles   = 10000
	maxSearchLimit = 100
)

// maxK caps k at both the configured limit and the catalog size.
func (s *Server) maxK() int {
	return min(s.config.Recommend.MaxK, s.service.MaxK())
}

// parseRecommend builds a query from raw title and k values. The title is
// resolved before k is looked at, so an unknown title reports not found
// whatever k is; k > max_k is rejected here and the lower bound is left to
// the service.
func (s *Server) parseRecommend(title, rawK string) (models.RecommendQuery, error) {
	q := models.RecommendQuery{Title: title}
	provided := rawK != ""
	q.Normalize(s.config.Recommend.DefaultK, provided)
	if err := s.validate.StructPartial(&q, "Title"); err != nil {
		return q, &models.InvalidArgumentError{Field: "title", Value: q.Title, Reason: "is required"}
	}
	if !s.service.HasTitle(q.Title) {
		return q, &models.NotFoundError{Title: q.Title}
	}
	if provided {
		k, err := strconv.Atoi(rawK)
		if err != nil {
			return q, &models.InvalidArgumentError{Field: "k", Value: rawK, Reason: "must be an integer"}
		}
		q.K = k
	}
	if limit := s.maxK(); q.K > limit {
		return q, &models.InvalidArgumentError{Field: "k", Value: q.K, Reason: fmt.Sprintf("must be at most %d", limit)}
	}
	return q, nil
}

// parseLimit reads an optional positive integer query parameter.
func (s *Server) parseLimit(r *http.Request, name string, def, upper int) (int, error) {
	raw := r.URL.Query().Get(name)
	if raw == "" {
		return def, nil
	}
	n, err := strconv.Atoi(raw)
	if err != nil {
		return 0, &models.InvalidArgumentError{Field: name, Value: raw, Reason: "must be an integer"}
	}
	if err := s.validate.Var(n, fmt.Sprintf("min=1,max=%d", upper)); err != nil {
		return 0, &models.InvalidArgumentError{Field: name, Value: n, Reason: fmt.Sprintf("must be between 1 and %d", upper)}
	}
	return n, nil
}

// statusFor maps the error taxonomy onto HTTP status codes.
func statusFor(err error) int {
	switch {
	case errors.Is(err, models.ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, models.ErrInvalidArgument):
		return http.StatusBadRequest
	default:
		return http.StatusInternalServerError
	}
}

// suggest returns "did you mean" titles; failures only cost the suggestions.
func (s *Server) suggest(r *http.Request, title string) []models.TitleSuggestion {
	none := []models.TitleSuggestion{}
	n := s.config.Recommend.SuggestionCount
	if n <= 0 || title == "" {
		return none
	}
	out, err := s.service.SearchTitles(r.Context(), title, n)
	if err != nil {
		s.logger.Warn("title suggestions failed", zap.String("title", title), zap.Error(err))
		return none
	}
	return out
}

func (s *Server) handleHome(w http.ResponseWriter, r *http.Request) {
	s.render(w, http.StatusOK, "home", homePage{
		Titles:   s.popularTitles(),
		DefaultK: min(s.config.Recommend.DefaultK, s.maxK()),
		MaxK:     s.maxK(),
	})
}

func (s *Server) handleRecommendForm(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseForm(); err != nil {
		s.renderMessage(w, http.StatusBadRequest, "Invalid form submission.", nil, 0)
		return
	}
	q, err := s.parseRecommend(r.PostFormValue("title"), r.PostFormValue("k"))
	if err == nil {
		s.logger.Debug("recommend form", zap.String("title", q.Title), zap.Int("k", q.K))
		var items []models.Item
		if items, err = s.service.Recommend(r.Context(), q.Title, q.K); err == nil {
			views := make([]models.ItemView, len(items))
			for i := range items {
				views[i] = items[i].View()
			}
			s.render(w, http.StatusOK, "results", resultsPage{Title: q.Title, Items: views})
			return
		}
	}

	status := statusFor(err)
	switch status {
	case http.StatusNotFound:
		k := q.K
		if k < 1 || k > s.maxK() {
			k = min(s.config.Recommend.DefaultK, s.maxK())
		}
		s.renderMessage(w, status, fmt.Sprintf("Movie '%s' not found.", q.Title), s.suggest(r, q.Title), k)
	case http.StatusBadRequest:
		s.renderMessage(w, status, err.Error(), nil, 0)
	default:
		s.logger.Error("recommendation failed", zap.String("title", q.Title), zap.Error(err))
		s.renderMessage(w, status, "Something went wrong.", nil, 0)
	}
}

func (s *Server) handleRecommend(w http.ResponseWriter, r *http.Request) {
	start := time.Now()
	params := r.URL.Query()
	q, err := s.parseRecommend(params.Get("title"), params.Get("k"))
	if err == nil {
		s.logger.Debug("recommend request", zap.String("title", q.Title), zap.Int("k", q.K))
		var items []models.Item
		if items, err = s.service.Recommend(r.Context(), q.Title, q.K); err == nil {
			s.respondJSON(w, http.StatusOK, models.NewRecommendResponse(q.Title, q.K, items, time.Since(start).Milliseconds()))
			return
		}
	}

	status := statusFor(err)
	switch status {
	case http.StatusNotFound:
		s.respondJSON(w, status, map[string]interface{}{
			"error":       err.Error(),
			"suggestions": s.suggest(r, q.Title),
		})
	case http.StatusInternalServerError:
		s.logger.Error("recommendation failed", zap.String("title", q.Title), zap.Error(err))
		s.respondError(w, status, err.Error())
	default:
		s.respondError(w, status, err.Error())
	}
}

func (s *Server) handleTopTitles(w http.ResponseWriter, r *http.Request) {
	n, err := s.parseLimit(r, "n", s.config.Recommend.PopularCount, maxTopTitles)
	if err != nil {
		s.respondError(w, http.StatusBadRequest, err.Error())
		return
	}
	s.respondJSON(w, http.StatusOK, map[string]interface{}{"titles": s.service.TopTitles(n)})
}

func (s *Server) handleSearchTitles(w http.ResponseWriter, r *http.Request) {
	query := r.URL.Query().Get("q")
	if err := s.validate.Var(query, "required"); err != nil {
		s.respondError(w, http.StatusBadRequest, "q is required")
		return
	}
	def := s.config.Recommend.SuggestionCount
	if def <= 0 {
		def = 10
	}
	limit, err := s.parseLimit(r, "limit", def, maxSearchLimit)
	if err != nil {
		s.respondError(w, http.StatusBadRequest, err.Error())
		return
	}
	out, err := s.service.SearchTitles(r.Context(), query, limit)
	if err != nil {
		s.logger.Error("title search failed", zap.String("query", query), zap.Error(err))
		s.respondError(w, http.StatusInternalServerError, err.Error())
		return
	}
	s.respondJSON(w, http.StatusOK, map[string]interface{}{"query": query, "results": out})
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	s.respondJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) handleStatus(w http.ResponseWriter, r *http.Request) {
	info := s.service.Info()
	resp := map[string]interface{}{
		"items":      info.Items,
		"dimensions": info.Dimensions,
		"index_type": info.IndexType,
		"metric":     info.Metric,
		"config": map[string]interface{}{
			"default_k":     s.config.Recommend.DefaultK,
			"max_k":         s.maxK(),
			"popular_count": s.config.Recommend.PopularCount,
			"cache_size":    s.config.Recommend.CacheSizeOrDefault(),
		},
	}
	if s.meta != nil {
		resp["snapshot"] = s.meta
		resp["disk_usage_bytes"] = s.meta.SizeBytes
	}
	s.respondJSON(w, http.StatusOK, resp)
}

func (s *Server) respondJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(data)
}

func (s *Server) respondError(w http.ResponseWriter, status int, message string) {
	s.respondJSON(w, status, map[string]string{"error": message})
}
