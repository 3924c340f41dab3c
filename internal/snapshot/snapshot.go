package snapshot

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"os"
	"strconv"
	"time"

	_ "github.com/mattn/go-sqlite3"
	"go.uber.org/zap"

	"github.com/hyperjump/movierec/internal/catalog"
	"github.com/hyperjump/movierec/internal/embedding"
	"github.com/hyperjump/movierec/internal/models"
	"github.com/hyperjump/movierec/internal/vector"
	"github.com/hyperjump/movierec/pkg/utils"
)

// Meta describes a snapshot file.
type Meta struct {
	ID            string        `json:"snapshot_id"`
	FormatVersion string        `json:"format_version"`
	CreatedAt     time.Time     `json:"created_at"`
	Items         int           `json:"items"`
	Dimensions    int           `json:"dimensions"`
	IndexType     string        `json:"index_type"`
	Metric        vector.Metric `json:"metric"`
	Path          string        `json:"path"`
	SizeBytes     int64         `json:"size_bytes"`
}

// Snapshot is a fully loaded, validated bundle. All parts are read-only.
type Snapshot struct {
	Catalog    *catalog.Store
	Embeddings *embedding.Table
	Index      vector.SimilarityIndex
	Meta       Meta
}

// Close releases index resources.
func (s *Snapshot) Close() error {
	if s.Index == nil {
		return nil
	}
	return s.Index.Close()
}

func startupErr(path, reason string, err error) error {
	return &models.StartupError{Path: path, Reason: reason, Err: err}
}

// Open loads the snapshot at path. The file is opened read-only and never
// created. Any missing part or misalignment between catalog, embeddings and
// index fails with a *models.StartupError.
func Open(ctx context.Context, path string, logger *zap.Logger) (*Snapshot, error) {
	logger = utils.OrNop(logger)
	start := time.Now()

	info, err := os.Stat(path)
	if err != nil {
		return nil, startupErr(path, "cannot stat snapshot file", err)
	}
	if info.IsDir() {
		return nil, startupErr(path, "snapshot path is a directory", nil)
	}

	db, err := sql.Open("sqlite3", dsn(path, "mode=ro"))
	if err != nil {
		return nil, startupErr(path, "failed to open database", err)
	}
	defer db.Close()
	if err := db.PingContext(ctx); err != nil {
		return nil, startupErr(path, "failed to open database", err)
	}

	meta, err := readMeta(ctx, db)
	if err != nil {
		return nil, startupErr(path, "invalid meta table", err)
	}
	meta.Path = path
	meta.SizeBytes = info.Size()

	items, err := readItems(ctx, db)
	if err != nil {
		return nil, startupErr(path, "invalid items table", err)
	}
	vectors, err := readEmbeddings(ctx, db, meta.Dimensions)
	if err != nil {
		return nil, startupErr(path, "invalid embeddings table", err)
	}
	if len(items) != meta.Items {
		return nil, startupErr(path, fmt.Sprintf("items table has %d rows, meta says %d", len(items), meta.Items), nil)
	}
	if len(vectors) != len(items) {
		return nil, startupErr(path, fmt.Sprintf("catalog has %d rows but embeddings has %d", len(items), len(vectors)), nil)
	}

	cat, err := catalog.NewStore(items)
	if err != nil {
		return nil, startupErr(path, "invalid catalog", err)
	}
	table, err := embedding.NewTable(vectors)
	if err != nil {
		return nil, startupErr(path, "invalid embeddings", err)
	}

	idx, err := readIndex(ctx, db, meta)
	if err != nil {
		return nil, startupErr(path, "invalid similarity index", err)
	}
	if idx.Size() != table.Len() || idx.Dimensions() != table.Dimensions() {
		_ = idx.Close()
		return nil, startupErr(path, fmt.Sprintf("index shape %d x %d does not match embeddings %d x %d",
			idx.Size(), idx.Dimensions(), table.Len(), table.Dimensions()), nil)
	}

	logger.Info("snapshot loaded",
		zap.String("path", path),
		zap.String("snapshot_id", meta.ID),
		zap.Int("items", meta.Items),
		zap.Int("dimensions", meta.Dimensions),
		zap.String("index_type", meta.IndexType),
		zap.String("metric", string(meta.Metric)),
		zap.Duration("elapsed", time.Since(start)))

	return &Snapshot{Catalog: cat, Embeddings: table, Index: idx, Meta: meta}, nil
}

func readMeta(ctx context.Context, db *sql.DB) (Meta, error) {
	rows, err := db.QueryContext(ctx, `SELECT key, value FROM meta`)
	if err != nil {
		return Meta{}, err
	}
	defer rows.Close()

	kv := make(map[string]string)
	for rows.Next() {
		var k, v string
		if err := rows.Scan(&k, &v); err != nil {
			return Meta{}, err
		}
		kv[k] = v
	}
	if err := rows.Err(); err != nil {
		return Meta{}, err
	}

	var m Meta
	m.FormatVersion = kv[metaFormatVersion]
	if m.FormatVersion != FormatVersion {
		return Meta{}, fmt.Errorf("unsupported format version %q (want %s)", m.FormatVersion, FormatVersion)
	}
	m.ID = kv[metaSnapshotID]
	if ts := kv[metaCreatedAt]; ts != "" {
		if m.CreatedAt, err = time.Parse(time.RFC3339, ts); err != nil {
			return Meta{}, fmt.Errorf("bad created_at: %w", err)
		}
	}
	if m.Dimensions, err = strconv.Atoi(kv[metaDimensions]); err != nil || m.Dimensions <= 0 {
		return Meta{}, fmt.Errorf("bad dimensions %q", kv[metaDimensions])
	}
	if m.Items, err = strconv.Atoi(kv[metaItemCount]); err != nil || m.Items <= 0 {
		return Meta{}, fmt.Errorf("bad item_count %q", kv[metaItemCount])
	}
	indexType, err := vector.ParseIndexType(kv[metaIndexType])
	if err != nil {
		return Meta{}, err
	}
	m.IndexType = string(indexType)
	if m.Metric, err = vector.ParseMetric(kv[metaMetric]); err != nil {
		return Meta{}, err
	}
	return m, nil
}

func readItems(ctx context.Context, db *sql.DB) ([]models.Item, error) {
	rows, err := db.QueryContext(ctx,
		`SELECT id, title, genres, vote_average, vote_count, spoken_languages
		 FROM items ORDER BY id`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var items []models.Item
	for rows.Next() {
		var it models.Item
		var genres, langs sql.NullString
		var avg sql.NullFloat64
		var count sql.NullInt64
		if err := rows.Scan(&it.ID, &it.Title, &genres, &avg, &count, &langs); err != nil {
			return nil, err
		}
		if int(it.ID) != len(items) {
			return nil, fmt.Errorf("item ids are not contiguous: expected %d, found %d", len(items), it.ID)
		}
		it.VoteAverage = avg.Float64
		it.VoteCount = int(count.Int64)
		if it.Genres, err = decodeList(genres); err != nil {
			return nil, fmt.Errorf("item %d genres: %w", it.ID, err)
		}
		if it.SpokenLanguages, err = decodeList(langs); err != nil {
			return nil, fmt.Errorf("item %d spoken_languages: %w", it.ID, err)
		}
		items = append(items, it)
	}
	return items, rows.Err()
}

func decodeList(s sql.NullString) ([]string, error) {
	if !s.Valid || s.String == "" {
		return nil, nil
	}
	var out []string
	if err := json.Unmarshal([]byte(s.String), &out); err != nil {
		return nil, err
	}
	return out, nil
}

func readEmbeddings(ctx context.Context, db *sql.DB, dim int) ([][]float32, error) {
	rows, err := db.QueryContext(ctx, `SELECT id, vector FROM embeddings ORDER BY id`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var vectors [][]float32
	for rows.Next() {
		var id int
		var blob []byte
		if err := rows.Scan(&id, &blob); err != nil {
			return nil, err
		}
		if id != len(vectors) {
			return nil, fmt.Errorf("embedding ids are not contiguous: expected %d, found %d", len(vectors), id)
		}
		v, err := decodeVector(blob, dim)
		if err != nil {
			return nil, fmt.Errorf("embedding %d: %w", id, err)
		}
		vectors = append(vectors, v)
	}
	return vectors, rows.Err()
}

func readIndex(ctx context.Context, db *sql.DB, meta Meta) (vector.SimilarityIndex, error) {
	var indexType, metric string
	var data []byte
	err := db.QueryRowContext(ctx,
		`SELECT type, metric, data FROM similarity_index WHERE id = 1`,
	).Scan(&indexType, &metric, &data)
	if err == sql.ErrNoRows {
		return nil, fmt.Errorf("similarity index missing")
	}
	if err != nil {
		return nil, err
	}
	if indexType != meta.IndexType || vector.Metric(metric) != meta.Metric {
		return nil, fmt.Errorf("index is %s/%s but meta says %s/%s", indexType, metric, meta.IndexType, meta.Metric)
	}
	return vector.Decode(indexType, meta.Metric, data)
}
