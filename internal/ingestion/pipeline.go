package ingestion

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/mailrag/mailrag/internal/embedder"
	"github.com/mailrag/mailrag/internal/vectorstore"
)

// DefaultUpsertBatchSize bounds the number of points per upsert request.
const DefaultUpsertBatchSize = 50

// Indexer builds the vector collection from an email directory:
// load -> chunk -> embed -> recreate collection -> batched upsert.
type Indexer struct {
	embedder  embedder.Embedder
	store     vectorstore.VectorStore
	dir       string
	batchSize int
}

// NewIndexer creates an Indexer over the given collaborators.
func NewIndexer(emb embedder.Embedder, store vectorstore.VectorStore, dir string, batchSize int) *Indexer {
	if batchSize <= 0 {
		batchSize = DefaultUpsertBatchSize
	}
	return &Indexer{
		embedder:  emb,
		store:     store,
		dir:       dir,
		batchSize: batchSize,
	}
}

// Index rebuilds the collection from the email directory and returns the
// number of chunks indexed. The existing collection is replaced wholesale
// so re-indexing is idempotent.
func (ix *Indexer) Index(ctx context.Context) (int, error) {
	emails, err := LoadDir(ix.dir)
	if err != nil {
		return 0, err
	}
	if len(emails) == 0 {
		return 0, fmt.Errorf("no emails loaded from %s", ix.dir)
	}

	chunks := ChunkEmails(emails)
	slog.Info("chunked emails", "emails", len(emails), "chunks", len(chunks))

	texts := make([]string, len(chunks))
	for i, c := range chunks {
		texts[i] = c.Text
	}

	vectors, err := ix.embedder.EmbedBatch(ctx, texts)
	if err != nil {
		return 0, fmt.Errorf("embedding chunks: %w", err)
	}

	if err := ix.store.RecreateCollection(ctx, ix.embedder.Dimension()); err != nil {
		return 0, fmt.Errorf("recreating collection: %w", err)
	}

	points := make([]vectorstore.Point, len(chunks))
	for i, c := range chunks {
		points[i] = vectorstore.Point{
			ID:       c.ID,
			Vector:   vectors[i],
			Text:     c.Text,
			Metadata: c.Metadata(),
		}
	}

	for start := 0; start < len(points); start += ix.batchSize {
		end := min(start+ix.batchSize, len(points))
		if err := ix.store.Upsert(ctx, points[start:end]); err != nil {
			return 0, fmt.Errorf("upserting batch %d-%d: %w", start+1, end, err)
		}
		slog.Debug("upserted batch", "from", start+1, "to", end)
	}

	slog.Info("indexing complete", "chunks", len(chunks))
	return len(chunks), nil
}
