package snapshot

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/hyperjump/movierec/pkg/utils"
)

// BuildOptions describes the source files for a new snapshot.
type BuildOptions struct {
	CatalogPath    string
	EmbeddingsPath string
	Dimensions     int  // required for raw float32 embeddings
	Normalize      bool // L2-normalize every vector before indexing
	WriteOptions
}

// BuildFromFiles reads a catalog and its embeddings and writes a snapshot to out.
func BuildFromFiles(ctx context.Context, out string, opts BuildOptions, logger *zap.Logger) (*Meta, error) {
	logger = utils.OrNop(logger)

	items, err := ReadCatalog(opts.CatalogPath)
	if err != nil {
		return nil, fmt.Errorf("read catalog %s: %w", opts.CatalogPath, err)
	}
	vectors, err := ReadEmbeddings(opts.EmbeddingsPath, opts.Dimensions)
	if err != nil {
		return nil, fmt.Errorf("read embeddings %s: %w", opts.EmbeddingsPath, err)
	}
	if len(items) != len(vectors) {
		return nil, fmt.Errorf("catalog has %d rows but embeddings has %d", len(items), len(vectors))
	}
	if opts.Dimensions > 0 && len(vectors[0]) != opts.Dimensions {
		return nil, fmt.Errorf("embeddings have dimension %d, expected %d", len(vectors[0]), opts.Dimensions)
	}
	if opts.Normalize {
		if zeros := utils.NormalizeRows(vectors); zeros > 0 {
			logger.Warn("zero vectors left unnormalized", zap.Int("count", zeros))
		}
	}

	meta, err := Write(ctx, out, items, vectors, opts.WriteOptions)
	if err != nil {
		return nil, err
	}
	logger.Info("snapshot written",
		zap.String("path", out),
		zap.String("snapshot_id", meta.ID),
		zap.Int("items", meta.Items),
		zap.Int("dimensions", meta.Dimensions),
		zap.String("index_type", meta.IndexType),
		zap.String("metric", string(meta.Metric)))
	return meta, nil
}
