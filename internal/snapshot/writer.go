package snapshot

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"github.com/google/uuid"

	"github.com/hyperjump/movierec/internal/catalog"
	"github.com/hyperjump/movierec/internal/embedding"
	"github.com/hyperjump/movierec/internal/models"
	"github.com/hyperjump/movierec/internal/vector"
)

// WriteOptions selects the index built into a new snapshot.
type WriteOptions struct {
	IndexType string // flat (default), vptree, faiss
	Metric    string // l2 (default), cosine, ip
}

// Write builds the similarity index over vectors and writes a new snapshot to
// path, replacing any existing file atomically. items[i] must have ID i and
// belong to vectors[i].
func Write(ctx context.Context, path string, items []models.Item, vectors [][]float32, opts WriteOptions) (*Meta, error) {
	if len(items) != len(vectors) {
		return nil, fmt.Errorf("catalog has %d items but %d vectors were given", len(items), len(vectors))
	}
	if _, err := catalog.NewStore(items); err != nil {
		return nil, err
	}
	table, err := embedding.NewTable(vectors)
	if err != nil {
		return nil, err
	}
	metric, err := vector.ParseMetric(opts.Metric)
	if err != nil {
		return nil, err
	}
	indexType, err := vector.ParseIndexType(opts.IndexType)
	if err != nil {
		return nil, err
	}
	idx, err := vector.Build(string(indexType), metric, vectors)
	if err != nil {
		return nil, fmt.Errorf("build %s index: %w", indexType, err)
	}
	defer idx.Close()
	indexData, err := idx.MarshalBinary()
	if err != nil {
		return nil, fmt.Errorf("serialize %s index: %w", indexType, err)
	}

	meta := &Meta{
		ID:            uuid.NewString(),
		FormatVersion: FormatVersion,
		CreatedAt:     time.Now().UTC().Truncate(time.Second),
		Items:         len(items),
		Dimensions:    table.Dimensions(),
		IndexType:     string(indexType),
		Metric:        metric,
		Path:          path,
	}

	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create snapshot directory: %w", err)
	}
	tmp, err := os.CreateTemp(dir, ".movierec-*.db")
	if err != nil {
		return nil, fmt.Errorf("failed to create temp snapshot: %w", err)
	}
	tmpPath := tmp.Name()
	_ = tmp.Close()
	committed := false
	defer func() {
		if !committed {
			_ = os.Remove(tmpPath)
		}
	}()

	if err := writeDB(ctx, tmpPath, meta, items, vectors, indexData); err != nil {
		return nil, err
	}
	if err := os.Rename(tmpPath, path); err != nil {
		return nil, fmt.Errorf("failed to move snapshot into place: %w", err)
	}
	committed = true

	if info, err := os.Stat(path); err == nil {
		meta.SizeBytes = info.Size()
	}
	return meta, nil
}

func writeDB(ctx context.Context, path string, meta *Meta, items []models.Item, vectors [][]float32, indexData []byte) error {
	db, err := sql.Open("sqlite3", dsn(path, "mode=rwc"))
	if err != nil {
		return fmt.Errorf("failed to open database: %w", err)
	}
	defer db.Close()

	if err := initSchema(db); err != nil {
		return fmt.Errorf("failed to initialize schema: %w", err)
	}

	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	metaRows := [][2]string{
		{metaFormatVersion, meta.FormatVersion},
		{metaSnapshotID, meta.ID},
		{metaCreatedAt, meta.CreatedAt.Format(time.RFC3339)},
		{metaDimensions, strconv.Itoa(meta.Dimensions)},
		{metaItemCount, strconv.Itoa(meta.Items)},
		{metaIndexType, meta.IndexType},
		{metaMetric, string(meta.Metric)},
	}
	for _, kv := range metaRows {
		if _, err := tx.ExecContext(ctx, `INSERT INTO meta (key, value) VALUES (?, ?)`, kv[0], kv[1]); err != nil {
			return fmt.Errorf("failed to write meta %s: %w", kv[0], err)
		}
	}

	itemStmt, err := tx.PrepareContext(ctx,
		`INSERT INTO items (id, title, genres, vote_average, vote_count, spoken_languages)
		 VALUES (?, ?, ?, ?, ?, ?)`)
	if err != nil {
		return err
	}
	defer itemStmt.Close()
	vecStmt, err := tx.PrepareContext(ctx, `INSERT INTO embeddings (id, vector) VALUES (?, ?)`)
	if err != nil {
		return err
	}
	defer vecStmt.Close()

	for i, it := range items {
		genres, err := encodeList(it.Genres)
		if err != nil {
			return err
		}
		langs, err := encodeList(it.SpokenLanguages)
		if err != nil {
			return err
		}
		if _, err := itemStmt.ExecContext(ctx, i, it.Title, genres, it.VoteAverage, it.VoteCount, langs); err != nil {
			return fmt.Errorf("failed to write item %d: %w", i, err)
		}
		if _, err := vecStmt.ExecContext(ctx, i, encodeVector(vectors[i])); err != nil {
			return fmt.Errorf("failed to write embedding %d: %w", i, err)
		}
	}

	if _, err := tx.ExecContext(ctx,
		`INSERT INTO similarity_index (id, type, metric, data) VALUES (1, ?, ?, ?)`,
		meta.IndexType, string(meta.Metric), indexData,
	); err != nil {
		return fmt.Errorf("failed to write similarity index: %w", err)
	}
	return tx.Commit()
}

func encodeList(values []string) (string, error) {
	if len(values) == 0 {
		return "", nil
	}
	b, err := json.Marshal(values)
	if err != nil {
		return "", fmt.Errorf("failed to marshal list: %w", err)
	}
	return string(b), nil
}
