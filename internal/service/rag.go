package service

import (
	"context"
	"fmt"
	"strings"

	"golang.org/x/sync/errgroup"

	"github.com/mailrag/mailrag/internal/embedder"
	"github.com/mailrag/mailrag/internal/llm"
	"github.com/mailrag/mailrag/internal/vectorstore"
)

const (
	// DefaultTopK is the merged context size when the caller passes none.
	DefaultTopK = 5

	// minPerQueryK guarantees each planned query retrieves at least this
	// many candidates even when topK is small relative to the plan size.
	minPerQueryK = 2
)

// NoContextAnswer is returned without calling the model when retrieval
// finds nothing to ground an answer on.
const NoContextAnswer = "I have no relevant emails in the context to answer this question."

// RAGService answers questions from the indexed email corpus: it plans
// search queries, retrieves and merges context, and generates a grounded
// answer. Every Ask call is independent; the service holds no mutable
// state across calls.
type RAGService struct {
	planner     *Planner
	retriever   *Retriever
	generator   *Generator
	defaultTopK int
}

// NewRAGService creates a new RAGService over the given collaborators.
func NewRAGService(emb embedder.Embedder, store vectorstore.VectorStore, client llm.LLM, defaultTopK int) *RAGService {
	if defaultTopK <= 0 {
		defaultTopK = DefaultTopK
	}
	return &RAGService{
		planner:     NewPlanner(client),
		retriever:   NewRetriever(emb, store),
		generator:   NewGenerator(client),
		defaultTopK: defaultTopK,
	}
}

// Ask answers a question from the corpus. It plans one or more search
// queries, retrieves candidates for each in parallel, merges them into a
// bounded ranked context set, and generates an answer grounded in that
// context. Returns the answer and the merged results it was grounded on.
func (s *RAGService) Ask(ctx context.Context, question string, topK int, filter vectorstore.Filter) (string, []Result, error) {
	if strings.TrimSpace(question) == "" {
		return "", nil, fmt.Errorf("question is required")
	}
	if topK <= 0 {
		topK = s.defaultTopK
	}

	planned := s.planner.Plan(ctx, question)
	perQueryK := perQueryLimit(topK, len(planned))

	// One retrieval per planned query; lists stay tagged by plan position
	// so the merge order is deterministic regardless of completion order.
	lists := make([][]Result, len(planned))
	g, gctx := errgroup.WithContext(ctx)
	for i, query := range planned {
		g.Go(func() error {
			results, err := s.retriever.Retrieve(gctx, query, perQueryK, filter)
			if err != nil {
				return fmt.Errorf("retrieving %q: %w", query, err)
			}
			lists[i] = results
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return "", nil, err
	}

	merged := mergeResults(lists, topK)
	if len(merged) == 0 {
		return NoContextAnswer, nil, nil
	}

	answer, err := s.generator.Generate(ctx, question, merged)
	if err != nil {
		return "", nil, err
	}
	return answer, merged, nil
}

// perQueryLimit distributes the overall budget across planned queries:
// ceil(topK / queries), floored at minPerQueryK.
func perQueryLimit(topK, queries int) int {
	k := (topK + queries - 1) / queries
	if k < minPerQueryK {
		k = minPerQueryK
	}
	return k
}
