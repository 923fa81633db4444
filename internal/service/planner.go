package service

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"regexp"
	"strings"

	"github.com/mailrag/mailrag/internal/llm"
)

const planSystemPrompt = `You are a search query planner for a company email corpus.
Given a user question, output 1 or more search queries that will be run against an email search index (semantic search).
- Each query should be a short phrase or question that would retrieve relevant emails (e.g. "budget approval request", "meeting schedule Q3").
- You may output one query that rephrases the user question, or multiple queries if the question touches several topics (e.g. budget AND training).
- Output only valid JSON, no other text. Use this exact schema: {"queries": ["query1", "query2", ...]}`

// Matches a ```json ... ``` or ``` ... ``` fence around the payload.
var fencePattern = regexp.MustCompile("```(?:json)?\\s*([\\s\\S]*?)\\s*```")

// Planner asks the language model to decompose one user question into
// one or more search queries.
type Planner struct {
	llm llm.LLM
}

// NewPlanner creates a Planner over the given LLM client.
func NewPlanner(client llm.LLM) *Planner {
	return &Planner{llm: client}
}

// Plan returns the planned search queries for a question. It never
// returns an empty slice: any API or parse failure degrades to the
// original question, so a bad plan narrows search breadth but never
// aborts the pipeline.
func (p *Planner) Plan(ctx context.Context, question string) []string {
	raw, err := p.llm.Generate(ctx, question, llm.GenerateOptions{
		SystemPrompt: planSystemPrompt,
		Temperature:  llm.DefaultTemperature,
	})
	if err != nil {
		slog.Warn("query plan API error, using original question", "error", err)
		return []string{question}
	}

	raw = strings.TrimSpace(raw)
	if raw == "" {
		slog.Warn("query plan returned no content, using original question")
		return []string{question}
	}

	var parsed struct {
		Queries []any `json:"queries"`
	}
	if err := json.Unmarshal([]byte(extractJSON(raw)), &parsed); err != nil {
		slog.Warn("query plan invalid JSON, using original question", "error", err)
		return []string{question}
	}

	if parsed.Queries == nil {
		slog.Warn("query plan missing 'queries' list, using original question")
		return []string{question}
	}

	queries := make([]string, 0, len(parsed.Queries))
	for _, q := range parsed.Queries {
		if q == nil {
			continue
		}
		s := strings.TrimSpace(fmt.Sprint(q))
		if s == "" {
			continue
		}
		queries = append(queries, s)
	}
	if len(queries) == 0 {
		return []string{question}
	}

	slog.Info("planned search queries", "count", len(queries), "queries", queries)
	return queries
}

// extractJSON strips a wrapping markdown code fence if present.
func extractJSON(raw string) string {
	if m := fencePattern.FindStringSubmatch(raw); m != nil {
		return strings.TrimSpace(m[1])
	}
	return raw
}
