package e2e

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"net/url"
	"path/filepath"
	"reflect"
	"testing"

	"github.com/hyperjump/movierec/internal/config"
	"github.com/hyperjump/movierec/internal/keyword"
	"github.com/hyperjump/movierec/internal/models"
	"github.com/hyperjump/movierec/internal/recommend"
	"github.com/hyperjump/movierec/internal/server"
	"github.com/hyperjump/movierec/internal/snapshot"
)

// startServer builds a snapshot from the build inputs, loads it, and serves it.
func startServer(t *testing.T, build snapshot.BuildOptions) *httptest.Server {
	t.Helper()
	ctx := context.Background()
	out := filepath.Join(t.TempDir(), "movies.db")
	if _, err := snapshot.BuildFromFiles(ctx, out, build, nil); err != nil {
		t.Fatalf("BuildFromFiles: %v", err)
	}
	snap, err := snapshot.Open(ctx, out, nil)
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	t.Cleanup(func() { _ = snap.Close() })

	titles, err := keyword.NewTitleIndex(snap.Catalog.Items())
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { _ = titles.Close() })

	svc, err := recommend.NewService(snap.Catalog, snap.Embeddings, snap.Index,
		recommend.WithCacheSize(64), recommend.WithTitleSearcher(titles))
	if err != nil {
		t.Fatal(err)
	}

	cfg := &config.Config{}
	config.ApplyDefaults(cfg)
	cfg.Server.RateLimitDisabled = true
	ts := httptest.NewServer(server.NewServer(svc, &snap.Meta, cfg, nil).Routes())
	t.Cleanup(ts.Close)
	return ts
}

func fetchRecommendations(t *testing.T, base, title string, k int) (*models.RecommendResponse, int) {
	t.Helper()
	q := url.Values{"title": {title}, "k": {fmt.Sprint(k)}}
	resp, err := http.Get(base + "/api/v1/recommendations?" + q.Encode())
	if err != nil {
		t.Fatal(err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return nil, resp.StatusCode
	}
	var out models.RecommendResponse
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		t.Fatal(err)
	}
	return &out, resp.StatusCode
}

func TestE2E_RecommendationsMatchCorpus(t *testing.T) {
	c := BuildCorpus()
	dir := t.TempDir()
	csvCatalog := filepath.Join(dir, "catalog.csv")
	xlsxCatalog := filepath.Join(dir, "catalog.xlsx")
	csvVectors := filepath.Join(dir, "vectors.csv")
	rawVectors := filepath.Join(dir, "vectors.f32")
	if err := WriteCatalogCSV(csvCatalog, c.Items()); err != nil {
		t.Fatal(err)
	}
	if err := WriteCatalogXLSX(xlsxCatalog, c.Items()); err != nil {
		t.Fatal(err)
	}
	if err := WriteEmbeddingsCSV(csvVectors, c.Vectors()); err != nil {
		t.Fatal(err)
	}
	if err := WriteEmbeddingsRaw(rawVectors, c.Vectors()); err != nil {
		t.Fatal(err)
	}

	builds := []struct {
		name string
		opts snapshot.BuildOptions
	}{
		{"csv_flat_l2", snapshot.BuildOptions{CatalogPath: csvCatalog, EmbeddingsPath: csvVectors,
			WriteOptions: snapshot.WriteOptions{IndexType: "flat", Metric: "l2"}}},
		{"xlsx_vptree_l2", snapshot.BuildOptions{CatalogPath: xlsxCatalog, EmbeddingsPath: rawVectors, Dimensions: Dimensions,
			WriteOptions: snapshot.WriteOptions{IndexType: "vptree", Metric: "l2"}}},
		{"csv_vptree_cosine", snapshot.BuildOptions{CatalogPath: csvCatalog, EmbeddingsPath: rawVectors, Dimensions: Dimensions,
			WriteOptions: snapshot.WriteOptions{IndexType: "vptree", Metric: "cosine"}}},
	}

	genreOf := make(map[string]string)
	for _, m := range c.Movies {
		genreOf[m.Item.Title] = m.Item.Genres[0]
	}

	for _, b := range builds {
		t.Run(b.name, func(t *testing.T) {
			ts := startServer(t, b.opts)
			passed := 0
			for _, tc := range c.TestCases {
				resp, status := fetchRecommendations(t, ts.URL, tc.Title, tc.K)
				if status != http.StatusOK {
					t.Errorf("recommend %q k=%d: status %d", tc.Title, tc.K, status)
					continue
				}
				got := make([]string, len(resp.Results))
				for i, r := range resp.Results {
					got[i] = r.Title
				}
				ok := len(got) == tc.K && got[0] == tc.Title
				for _, title := range got {
					if genreOf[title] != tc.Genre {
						ok = false
					}
				}
				if tc.Expected != nil && !reflect.DeepEqual(got, tc.Expected) {
					ok = false
				}
				if !ok {
					t.Errorf("recommend %q k=%d: got %v (want genre %s, expected %v)", tc.Title, tc.K, got, tc.Genre, tc.Expected)
					continue
				}
				passed++
			}
			t.Logf("%d/%d recommendation cases passed", passed, len(c.TestCases))
		})
	}
}

func TestE2E_NotFoundAndSuggestions(t *testing.T) {
	c := BuildCorpus()
	dir := t.TempDir()
	catalog := filepath.Join(dir, "catalog.csv")
	vectors := filepath.Join(dir, "vectors.csv")
	if err := WriteCatalogCSV(catalog, c.Items()); err != nil {
		t.Fatal(err)
	}
	if err := WriteEmbeddingsCSV(vectors, c.Vectors()); err != nil {
		t.Fatal(err)
	}
	ts := startServer(t, snapshot.BuildOptions{CatalogPath: catalog, EmbeddingsPath: vectors})

	for _, k := range []int{0, 1, 5, 101} {
		if _, status := fetchRecommendations(t, ts.URL, "Galaxy Risng", k); status != http.StatusNotFound {
			t.Errorf("unknown title k=%d: status %d, want 404", k, status)
		}
	}
	if _, status := fetchRecommendations(t, ts.URL, "Galaxy Rising", 101); status != http.StatusBadRequest {
		t.Errorf("k above max_k: status %d, want 400", status)
	}

	resp, err := http.Get(ts.URL + "/api/v1/titles/search?" + url.Values{"q": {"dragon awakning"}, "limit": {"3"}}.Encode())
	if err != nil {
		t.Fatal(err)
	}
	defer resp.Body.Close()
	var out struct {
		Results []models.TitleSuggestion `json:"results"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		t.Fatal(err)
	}
	if len(out.Results) == 0 || out.Results[0].Title != "Dragon Awakening" {
		t.Errorf("search suggestions: got %+v", out.Results)
	}
}

func TestE2E_TopTitlesFollowVoteCount(t *testing.T) {
	c := BuildCorpus()
	dir := t.TempDir()
	catalog := filepath.Join(dir, "catalog.csv")
	vectors := filepath.Join(dir, "vectors.csv")
	if err := WriteCatalogCSV(catalog, c.Items()); err != nil {
		t.Fatal(err)
	}
	if err := WriteEmbeddingsCSV(vectors, c.Vectors()); err != nil {
		t.Fatal(err)
	}
	ts := startServer(t, snapshot.BuildOptions{CatalogPath: catalog, EmbeddingsPath: vectors})

	resp, err := http.Get(ts.URL + "/api/v1/titles/top?n=3")
	if err != nil {
		t.Fatal(err)
	}
	defer resp.Body.Close()
	var out struct {
		Titles []string `json:"titles"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		t.Fatal(err)
	}
	// Vote counts decrease with id.
	want := []string{c.Movies[0].Item.Title, c.Movies[1].Item.Title, c.Movies[2].Item.Title}
	if !reflect.DeepEqual(out.Titles, want) {
		t.Errorf("top titles = %v, want %v", out.Titles, want)
	}
}
