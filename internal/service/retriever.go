package service

import (
	"context"
	"fmt"

	"github.com/mailrag/mailrag/internal/embedder"
	"github.com/mailrag/mailrag/internal/vectorstore"
)

// Retriever embeds a single query and runs filtered similarity search.
// Embedding and store failures propagate untouched; retries, if any,
// belong to the collaborators.
type Retriever struct {
	embedder embedder.Embedder
	store    vectorstore.VectorStore
}

// NewRetriever creates a Retriever over the given collaborators.
func NewRetriever(emb embedder.Embedder, store vectorstore.VectorStore) *Retriever {
	return &Retriever{embedder: emb, store: store}
}

// Retrieve embeds the query, searches the collection with the optional
// payload filter, and maps hits into uniform Results.
func (r *Retriever) Retrieve(ctx context.Context, query string, topK int, filter vectorstore.Filter) ([]Result, error) {
	vector, err := r.embedder.Embed(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("embedding query: %w", err)
	}

	hits, err := r.store.Search(ctx, vector, topK, filter)
	if err != nil {
		return nil, fmt.Errorf("searching vectors: %w", err)
	}

	results := make([]Result, len(hits))
	for i, hit := range hits {
		score := hit.Score
		results[i] = Result{
			Text:     hit.Text,
			Metadata: hit.Metadata,
			Score:    &score,
		}
	}
	return results, nil
}
