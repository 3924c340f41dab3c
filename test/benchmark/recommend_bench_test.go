package benchmark

import (
	"context"
	"fmt"
	"math/rand"
	"testing"

	"github.com/hyperjump/movierec/internal/catalog"
	"github.com/hyperjump/movierec/internal/embedding"
	"github.com/hyperjump/movierec/internal/keyword"
	"github.com/hyperjump/movierec/internal/models"
	"github.com/hyperjump/movierec/internal/recommend"
	"github.com/hyperjump/movierec/internal/vector"
)

const (
	benchItems = 5000
	benchDims  = 64
)

func benchData() ([]models.Item, [][]float32) {
	rng := rand.New(rand.NewSource(1))
	items := make([]models.Item, benchItems)
	vecs := make([][]float32, benchItems)
	for i := range items {
		items[i] = models.Item{ID: models.ItemID(i), Title: fmt.Sprintf("Movie %d", i), VoteCount: rng.Intn(10000)}
		v := make([]float32, benchDims)
		for j := range v {
			v[j] = rng.Float32()
		}
		vecs[i] = v
	}
	return items, vecs
}

func benchmarkIndexQuery(b *testing.B, kind string, metric vector.Metric) {
	_, vecs := benchData()
	idx, err := vector.Build(kind, metric, vecs)
	if err != nil {
		b.Fatal(err)
	}
	defer idx.Close()
	ctx := context.Background()
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		_, _ = idx.Query(ctx, vecs[i%len(vecs)], 10)
	}
}

func BenchmarkFlatQuery(b *testing.B)         { benchmarkIndexQuery(b, "flat", vector.MetricL2) }
func BenchmarkVPTreeQuery(b *testing.B)       { benchmarkIndexQuery(b, "vptree", vector.MetricL2) }
func BenchmarkVPTreeQueryCosine(b *testing.B) { benchmarkIndexQuery(b, "vptree", vector.MetricCosine) }

func BenchmarkVPTreeBuild(b *testing.B) {
	_, vecs := benchData()
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		idx, _ := vector.NewVPTreeIndex(vector.MetricL2, vecs)
		_ = idx.Close()
	}
}

func benchService(b *testing.B, opts ...recommend.Option) (*recommend.Service, []models.Item) {
	items, vecs := benchData()
	cat, err := catalog.NewStore(items)
	if err != nil {
		b.Fatal(err)
	}
	tbl, err := embedding.NewTable(vecs)
	if err != nil {
		b.Fatal(err)
	}
	idx, err := vector.NewFlatIndex(vector.MetricL2, vecs)
	if err != nil {
		b.Fatal(err)
	}
	svc, err := recommend.NewService(cat, tbl, idx, opts...)
	if err != nil {
		b.Fatal(err)
	}
	return svc, items
}

func BenchmarkRecommend(b *testing.B) {
	svc, items := benchService(b)
	ctx := context.Background()
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		_, _ = svc.Recommend(ctx, items[i%len(items)].Title, 10)
	}
}

func BenchmarkRecommendCached(b *testing.B) {
	svc, items := benchService(b, recommend.WithCacheSize(128))
	ctx := context.Background()
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		_, _ = svc.Recommend(ctx, items[i%64].Title, 10)
	}
}

func BenchmarkTitleSearch(b *testing.B) {
	items, _ := benchData()
	idx, err := keyword.NewTitleIndex(items)
	if err != nil {
		b.Fatal(err)
	}
	defer idx.Close()
	ctx := context.Background()
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		_, _ = idx.SearchTitles(ctx, "movi 42", 5)
	}
}
