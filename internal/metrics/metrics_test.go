package metrics

import (
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"

	"github.com/hyperjump/movierec/internal/models"
)

func TestOutcome(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want string
	}{
		{"nil", nil, OutcomeOK},
		{"not found", &models.NotFoundError{Title: "x"}, OutcomeNotFound},
		{"wrapped not found", fmt.Errorf("hydrate: %w", models.ErrNotFound), OutcomeNotFound},
		{"invalid", &models.InvalidArgumentError{Field: "k", Value: 0, Reason: "too small"}, OutcomeInvalidArgument},
		{"other", errors.New("boom"), OutcomeError},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := Outcome(tt.err); got != tt.want {
				t.Errorf("Outcome = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestRecordRecommendation(t *testing.T) {
	before := testutil.ToFloat64(RecommendationsTotal.WithLabelValues(OutcomeNotFound))
	RecordRecommendation(time.Millisecond, &models.NotFoundError{Title: "x"})
	after := testutil.ToFloat64(RecommendationsTotal.WithLabelValues(OutcomeNotFound))
	if after != before+1 {
		t.Errorf("not_found counter = %v, want %v", after, before+1)
	}
}

func TestRecordCacheLookup(t *testing.T) {
	hits := testutil.ToFloat64(ResultCacheHits)
	misses := testutil.ToFloat64(ResultCacheMisses)
	RecordCacheLookup(true)
	RecordCacheLookup(false)
	RecordCacheLookup(false)
	if got := testutil.ToFloat64(ResultCacheHits); got != hits+1 {
		t.Errorf("hits = %v, want %v", got, hits+1)
	}
	if got := testutil.ToFloat64(ResultCacheMisses); got != misses+2 {
		t.Errorf("misses = %v, want %v", got, misses+2)
	}
}

func TestSetSnapshotInfo(t *testing.T) {
	SetSnapshotInfo(4803, 384)
	if got := testutil.ToFloat64(CatalogItems); got != 4803 {
		t.Errorf("CatalogItems = %v, want 4803", got)
	}
	if got := testutil.ToFloat64(EmbeddingDimensions); got != 384 {
		t.Errorf("EmbeddingDimensions = %v, want 384", got)
	}
}

func TestRecordAPIRequest(t *testing.T) {
	RecordAPIRequest("GET", "/health", "200", 2*time.Millisecond)
	if got := testutil.ToFloat64(APIRequestsTotal.WithLabelValues("GET", "/health", "200")); got < 1 {
		t.Errorf("request counter = %v, want >= 1", got)
	}
}

func TestTrackActiveRequest(t *testing.T) {
	before := testutil.ToFloat64(APIActiveRequests)
	TrackActiveRequest(true)
	if got := testutil.ToFloat64(APIActiveRequests); got != before+1 {
		t.Errorf("active = %v, want %v", got, before+1)
	}
	TrackActiveRequest(false)
	if got := testutil.ToFloat64(APIActiveRequests); got != before {
		t.Errorf("active = %v, want %v", got, before)
	}
}
