package service

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"

	"github.com/mailrag/mailrag/internal/embedder"
	"github.com/mailrag/mailrag/internal/vectorstore"
)

// fakeEmbedder encodes each known query as a one-hot-ish vector whose
// first component identifies the query, so the fake store can route
// results per planned query.
type fakeEmbedder struct {
	ids map[string]float32
	err error
}

func (f *fakeEmbedder) Embed(ctx context.Context, text string) ([]float32, error) {
	if f.err != nil {
		return nil, f.err
	}
	return []float32{f.ids[text]}, nil
}

func (f *fakeEmbedder) EmbedBatch(ctx context.Context, texts []string) ([][]float32, error) {
	out := make([][]float32, len(texts))
	for i, t := range texts {
		vec, err := f.Embed(ctx, t)
		if err != nil {
			return nil, err
		}
		out[i] = vec
	}
	return out, nil
}

func (f *fakeEmbedder) Dimension() int    { return 1 }
func (f *fakeEmbedder) ModelName() string { return "fake" }

var _ embedder.Embedder = (*fakeEmbedder)(nil)

type searchCall struct {
	queryID float32
	topK    int
	filter  vectorstore.Filter
}

// fakeStore serves canned results keyed by the query vector's first component.
type fakeStore struct {
	mu      sync.Mutex
	results map[float32][]vectorstore.SearchResult
	calls   []searchCall
	err     error
}

func (f *fakeStore) RecreateCollection(ctx context.Context, dimension int) error { return nil }

func (f *fakeStore) Upsert(ctx context.Context, points []vectorstore.Point) error { return nil }

func (f *fakeStore) Search(ctx context.Context, vector []float32, topK int, filter vectorstore.Filter) ([]vectorstore.SearchResult, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	if f.err != nil {
		return nil, f.err
	}
	var id float32
	if len(vector) > 0 {
		id = vector[0]
	}
	f.calls = append(f.calls, searchCall{queryID: id, topK: topK, filter: filter})
	return f.results[id], nil
}

var _ vectorstore.VectorStore = (*fakeStore)(nil)

func hit(source, text string, score float32) vectorstore.SearchResult {
	return vectorstore.SearchResult{
		Text:     text,
		Metadata: map[string]string{"source": source, "subject": "", "from": "", "to": ""},
		Score:    score,
	}
}

func (f *fakeStore) searchCalls() []searchCall {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]searchCall(nil), f.calls...)
}

func TestAsk_MultiQueryScenario(t *testing.T) {
	const question = "What about budget and training?"

	client := &fakeLLM{
		planResponse: `{"queries": ["budget approval", "training workshop"]}`,
		answer:       "Budget was approved; training is on Friday.",
	}
	emb := &fakeEmbedder{ids: map[string]float32{
		"budget approval":   1,
		"training workshop": 2,
	}}
	store := &fakeStore{results: map[float32][]vectorstore.SearchResult{
		1: {hit("email_1.txt", "budget approved for Q3", 0.8)},
		2: {hit("email_2.txt", "training workshop on Friday", 0.7)},
	}}

	svc := NewRAGService(emb, store, client, 5)
	answer, results, err := svc.Ask(context.Background(), question, 5, nil)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	calls := store.searchCalls()
	if len(calls) != 2 {
		t.Fatalf("expected exactly 2 retrieval calls, got %d", len(calls))
	}
	if client.genCalls != 1 {
		t.Errorf("expected exactly 1 generation call, got %d", client.genCalls)
	}
	if len(results) != 2 {
		t.Fatalf("expected 2 merged results, got %d", len(results))
	}
	if answer != client.answer {
		t.Errorf("unexpected answer: %q", answer)
	}
	// Both topics must reach the generator's context.
	if !strings.Contains(client.lastPrompt, "budget approved") || !strings.Contains(client.lastPrompt, "training workshop") {
		t.Errorf("generator prompt missing retrieved context: %q", client.lastPrompt)
	}
	if !strings.Contains(client.lastPrompt, question) {
		t.Errorf("generator prompt missing question: %q", client.lastPrompt)
	}
}

func TestAsk_PerQueryKDistribution(t *testing.T) {
	cases := []struct {
		topK int
		want int
	}{
		{topK: 5, want: 2}, // ceil(5/3) = 2
		{topK: 2, want: 2}, // max(2, ceil(2/3)) = 2
		{topK: 9, want: 3},
	}

	for _, tc := range cases {
		client := &fakeLLM{
			planResponse: `{"queries": ["a", "b", "c"]}`,
			answer:       "ok",
		}
		emb := &fakeEmbedder{ids: map[string]float32{"a": 1, "b": 2, "c": 3}}
		store := &fakeStore{results: map[float32][]vectorstore.SearchResult{
			1: {hit("s1", "t1", 0.5)},
		}}

		svc := NewRAGService(emb, store, client, 5)
		if _, _, err := svc.Ask(context.Background(), "q", tc.topK, nil); err != nil {
			t.Fatalf("topK=%d: unexpected error: %v", tc.topK, err)
		}
		for _, call := range store.searchCalls() {
			if call.topK != tc.want {
				t.Errorf("topK=%d: expected per-query k %d, got %d", tc.topK, tc.want, call.topK)
			}
		}
	}
}

func TestAsk_EmptyResultFastPath(t *testing.T) {
	client := &fakeLLM{planResponse: `{"queries": ["nothing matches"]}`}
	emb := &fakeEmbedder{ids: map[string]float32{"nothing matches": 1}}
	store := &fakeStore{results: map[float32][]vectorstore.SearchResult{}}

	svc := NewRAGService(emb, store, client, 5)
	answer, results, err := svc.Ask(context.Background(), "anything?", 5, nil)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if answer != NoContextAnswer {
		t.Errorf("expected fallback answer, got %q", answer)
	}
	if len(results) != 0 {
		t.Errorf("expected no results, got %d", len(results))
	}
	if client.genCalls != 0 {
		t.Errorf("generator must not be invoked on empty context, got %d calls", client.genCalls)
	}
}

func TestAsk_PlannerFailureStillAnswers(t *testing.T) {
	const question = "what was approved?"

	client := &fakeLLM{
		planErr: errors.New("api down"),
		answer:  "the Q3 budget",
	}
	emb := &fakeEmbedder{ids: map[string]float32{question: 1}}
	store := &fakeStore{results: map[float32][]vectorstore.SearchResult{
		1: {hit("email_1.txt", "Q3 budget approved", 0.9)},
	}}

	svc := NewRAGService(emb, store, client, 5)
	answer, results, err := svc.Ask(context.Background(), question, 5, nil)
	if err != nil {
		t.Fatalf("planner failure must not abort the pipeline: %v", err)
	}
	if answer != "the Q3 budget" || len(results) != 1 {
		t.Errorf("unexpected degraded answer: %q, %d results", answer, len(results))
	}

	calls := store.searchCalls()
	if len(calls) != 1 {
		t.Fatalf("expected single fallback retrieval, got %d", len(calls))
	}
}

func TestAsk_RetrievalErrorPropagates(t *testing.T) {
	client := &fakeLLM{planResponse: `{"queries": ["q1"]}`}
	emb := &fakeEmbedder{ids: map[string]float32{"q1": 1}}
	store := &fakeStore{err: errors.New("qdrant unavailable")}

	svc := NewRAGService(emb, store, client, 5)
	_, _, err := svc.Ask(context.Background(), "q", 5, nil)
	if err == nil || !strings.Contains(err.Error(), "qdrant unavailable") {
		t.Errorf("expected propagated store error, got %v", err)
	}
	if client.genCalls != 0 {
		t.Errorf("generator must not run after retrieval failure")
	}
}

func TestAsk_GenerationFailureIsHardError(t *testing.T) {
	client := &fakeLLM{
		planResponse: `{"queries": ["q1"]}`,
		answer:       "   ",
	}
	emb := &fakeEmbedder{ids: map[string]float32{"q1": 1}}
	store := &fakeStore{results: map[float32][]vectorstore.SearchResult{
		1: {hit("s", "t", 0.4)},
	}}

	svc := NewRAGService(emb, store, client, 5)
	_, _, err := svc.Ask(context.Background(), "q", 5, nil)
	if !errors.Is(err, ErrEmptyCompletion) {
		t.Errorf("expected ErrEmptyCompletion, got %v", err)
	}
}

func TestAsk_FilterReachesStore(t *testing.T) {
	client := &fakeLLM{planResponse: `{"queries": ["q1"]}`, answer: "ok"}
	emb := &fakeEmbedder{ids: map[string]float32{"q1": 1}}
	store := &fakeStore{results: map[float32][]vectorstore.SearchResult{
		1: {hit("s", "t", 0.4)},
	}}

	filter := vectorstore.Equals{Field: "subject", Value: "Meeting Request"}
	svc := NewRAGService(emb, store, client, 5)
	if _, _, err := svc.Ask(context.Background(), "q", 5, filter); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	calls := store.searchCalls()
	if len(calls) != 1 {
		t.Fatalf("expected 1 call, got %d", len(calls))
	}
	if calls[0].filter != filter {
		t.Errorf("filter not passed through: %#v", calls[0].filter)
	}
}

func TestPerQueryLimit(t *testing.T) {
	cases := []struct {
		topK, queries, want int
	}{
		{5, 3, 2},
		{2, 3, 2},
		{10, 2, 5},
		{1, 1, 2},
		{6, 1, 6},
	}
	for _, tc := range cases {
		if got := perQueryLimit(tc.topK, tc.queries); got != tc.want {
			t.Errorf("perQueryLimit(%d, %d) = %d, want %d", tc.topK, tc.queries, got, tc.want)
		}
	}
}
