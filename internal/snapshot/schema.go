// Package snapshot loads and writes the single-file SQLite bundle holding the
// catalog, its embedding vectors, and the prebuilt similarity index.
package snapshot

import (
	"database/sql"
	"encoding/binary"
	"fmt"
	"math"
	"path/filepath"
	"strings"
)

// FormatVersion is the snapshot layout version written to meta.format_version.
const FormatVersion = "1"

// Meta keys.
const (
	metaFormatVersion = "format_version"
	metaSnapshotID    = "snapshot_id"
	metaCreatedAt     = "created_at"
	metaDimensions    = "dimensions"
	metaItemCount     = "item_count"
	metaIndexType     = "index_type"
	metaMetric        = "metric"
)

var uriEscaper = strings.NewReplacer("%", "%25", "?", "%3f", "#", "%23")

// dsn returns a file: URI for path with the given query. SQLite percent-decodes
// URI paths, so '%', '?' and '#' in the file name are escaped.
func dsn(path, query string) string {
	return "file:" + uriEscaper.Replace(filepath.Clean(path)) + "?" + query
}

func initSchema(db *sql.DB) error {
	schema := `
	CREATE TABLE meta (
		key TEXT PRIMARY KEY,
		value TEXT NOT NULL
	);

	CREATE TABLE items (
		id INTEGER PRIMARY KEY,
		title TEXT NOT NULL,
		genres TEXT,
		vote_average REAL,
		vote_count INTEGER,
		spoken_languages TEXT
	);

	CREATE TABLE embeddings (
		id INTEGER PRIMARY KEY,
		vector BLOB NOT NULL
	);

	CREATE TABLE similarity_index (
		id INTEGER PRIMARY KEY CHECK (id = 1),
		type TEXT NOT NULL,
		metric TEXT NOT NULL,
		data BLOB NOT NULL
	);
	`
	_, err := db.Exec(schema)
	return err
}

// encodeVector packs v as little-endian float32.
func encodeVector(v []float32) []byte {
	b := make([]byte, 4*len(v))
	for i, f := range v {
		binary.LittleEndian.PutUint32(b[i*4:], math.Float32bits(f))
	}
	return b
}

// decodeVector unpacks a little-endian float32 blob of exactly dim values.
func decodeVector(b []byte, dim int) ([]float32, error) {
	if len(b) != 4*dim {
		return nil, fmt.Errorf("vector blob has %d bytes, expected %d", len(b), 4*dim)
	}
	v := make([]float32, dim)
	for i := range v {
		v[i] = math.Float32frombits(binary.LittleEndian.Uint32(b[i*4:]))
	}
	return v, nil
}
