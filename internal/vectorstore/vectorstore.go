// Package vectorstore provides payload-filtered vector similarity search.
package vectorstore

import (
	"context"
)

// Point is one embedded chunk ready for upsert.
type Point struct {
	// ID is the stable chunk identifier (source + paragraph position).
	// It is hashed into a deterministic UUID point ID on upsert.
	ID       string
	Vector   []float32
	Text     string
	Metadata map[string]string
}

// SearchResult represents a search result from the vector store
type SearchResult struct {
	Text     string
	Metadata map[string]string
	Score    float32
}

// VectorStore defines the interface for vector storage operations
type VectorStore interface {
	// RecreateCollection drops the collection if it exists and creates it
	// fresh with cosine distance and keyword payload indexes on the
	// filterable metadata fields. Re-indexing rebuilds the whole store.
	RecreateCollection(ctx context.Context, dimension int) error

	// Upsert inserts or updates embedded chunks in the collection.
	Upsert(ctx context.Context, points []Point) error

	// Search performs similarity search, optionally narrowed by a payload
	// filter. Results are ordered by descending similarity score.
	Search(ctx context.Context, vector []float32, topK int, filter Filter) ([]SearchResult, error)
}
