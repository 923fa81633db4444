package service

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/mailrag/mailrag/internal/llm"
)

// ErrEmptyCompletion is returned when the model produced no usable answer.
// Generation failures are hard errors: an unanswerable question must not
// be presented as a silent empty success.
var ErrEmptyCompletion = errors.New("llm returned an empty answer")

const answerSystemPrompt = `You are a precise assistant that answers questions using ONLY the provided context from company emails.
Rules:
- Base your answer strictly on the given context. Do not use external knowledge.
- If the context does not contain enough information to answer, say so clearly.
- When possible, cite the source (e.g. "According to email from ..." or "In the email about ...").
- Keep answers concise and factual. Do not hallucinate or invent details.`

const contextDivider = "\n\n---\n\n"

// Generator produces a grounded answer from retrieved context.
type Generator struct {
	llm llm.LLM
}

// NewGenerator creates a Generator over the given LLM client.
func NewGenerator(client llm.LLM) *Generator {
	return &Generator{llm: client}
}

// Generate formats the context results into a grounded prompt and asks
// the model for an answer. An API failure or an empty reply is an error.
func (g *Generator) Generate(ctx context.Context, question string, results []Result) (string, error) {
	answer, err := g.llm.Generate(ctx, buildPrompt(question, results), llm.GenerateOptions{
		SystemPrompt: answerSystemPrompt,
		Temperature:  llm.DefaultTemperature,
	})
	if err != nil {
		return "", fmt.Errorf("generating answer: %w", err)
	}

	answer = strings.TrimSpace(answer)
	if answer == "" {
		return "", ErrEmptyCompletion
	}
	return answer, nil
}

// formatContext renders retrieved chunks as numbered source blocks.
func formatContext(results []Result) string {
	parts := make([]string, len(results))
	for i, r := range results {
		source := r.Source()
		if source == "" {
			source = "unknown"
		}
		parts[i] = fmt.Sprintf("[Source %d — %s | Subject: %s]\n%s", i+1, source, r.Subject(), r.Text)
	}
	return strings.Join(parts, contextDivider)
}

func buildPrompt(question string, results []Result) string {
	var sb strings.Builder
	sb.WriteString("Context from company emails:\n\n")
	sb.WriteString(formatContext(results))
	sb.WriteString("\n\nQuestion: ")
	sb.WriteString(question)
	return sb.String()
}
