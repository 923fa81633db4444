package llm

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"
)

const (
	// DefaultMistralBaseURL is the default Mistral API endpoint.
	DefaultMistralBaseURL = "https://api.mistral.ai"

	// DefaultMistralModel is the default chat model to use.
	DefaultMistralModel = "mistral-small-latest"

	// DefaultTemperature is the default generation temperature.
	// Low temperature for deterministic, factual answers grounded in context.
	DefaultTemperature = 0.3
)

// MistralClient implements the LLM interface using the Mistral chat completions API.
type MistralClient struct {
	baseURL    string
	apiKey     string
	model      string
	httpClient *http.Client
}

// MistralOption is a functional option for configuring MistralClient.
type MistralOption func(*MistralClient)

// WithBaseURL sets a custom base URL for the Mistral API.
func WithBaseURL(url string) MistralOption {
	return func(c *MistralClient) {
		c.baseURL = strings.TrimSuffix(url, "/")
	}
}

// WithHTTPClient sets a custom HTTP client.
func WithHTTPClient(client *http.Client) MistralOption {
	return func(c *MistralClient) {
		c.httpClient = client
	}
}

// WithModel sets the default model for the client.
func WithModel(model string) MistralOption {
	return func(c *MistralClient) {
		c.model = model
	}
}

// NewMistralClient creates a new Mistral LLM client. It returns
// ErrMissingAPIKey when apiKey is empty so that a missing credential is
// caught at wiring time rather than on the first request.
func NewMistralClient(apiKey string, opts ...MistralOption) (*MistralClient, error) {
	if apiKey == "" {
		return nil, ErrMissingAPIKey
	}

	c := &MistralClient{
		baseURL: DefaultMistralBaseURL,
		apiKey:  apiKey,
		model:   DefaultMistralModel,
		httpClient: &http.Client{
			Timeout: 2 * time.Minute,
		},
	}

	for _, opt := range opts {
		opt(c)
	}

	return c, nil
}

// chatMessage is a single turn in the chat completions request.
type chatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// chatRequest represents the request body for Mistral's chat completions API.
type chatRequest struct {
	Model       string        `json:"model"`
	Messages    []chatMessage `json:"messages"`
	Temperature float32       `json:"temperature,omitempty"`
	MaxTokens   int           `json:"max_tokens,omitempty"`
}

// chatResponse represents the response from Mistral's chat completions API.
type chatResponse struct {
	ID      string `json:"id"`
	Model   string `json:"model"`
	Choices []struct {
		Index        int         `json:"index"`
		Message      chatMessage `json:"message"`
		FinishReason string      `json:"finish_reason"`
	} `json:"choices"`
}

// Generate sends a prompt to Mistral and returns the complete response.
func (c *MistralClient) Generate(ctx context.Context, prompt string, opts GenerateOptions) (string, error) {
	req, err := c.buildRequest(ctx, prompt, opts)
	if err != nil {
		return "", fmt.Errorf("building request: %w", err)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("executing request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(resp.Body)
		return "", fmt.Errorf("mistral API error (status %d): %s", resp.StatusCode, string(body))
	}

	var result chatResponse
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return "", fmt.Errorf("decoding response: %w", err)
	}

	if len(result.Choices) == 0 {
		return "", fmt.Errorf("mistral returned no choices")
	}

	return result.Choices[0].Message.Content, nil
}

// buildRequest constructs the HTTP request for the chat completions API.
func (c *MistralClient) buildRequest(ctx context.Context, prompt string, opts GenerateOptions) (*http.Request, error) {
	model := opts.Model
	if model == "" {
		model = c.model
	}

	messages := make([]chatMessage, 0, 2)
	if opts.SystemPrompt != "" {
		messages = append(messages, chatMessage{Role: "system", Content: opts.SystemPrompt})
	}
	messages = append(messages, chatMessage{Role: "user", Content: prompt})

	reqBody := chatRequest{
		Model:       model,
		Messages:    messages,
		Temperature: opts.Temperature,
		MaxTokens:   opts.MaxTokens,
	}

	body, err := json.Marshal(reqBody)
	if err != nil {
		return nil, fmt.Errorf("marshaling request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/v1/chat/completions", bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("creating request: %w", err)
	}

	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+c.apiKey)

	return req, nil
}

// Ensure MistralClient implements LLM interface.
var _ LLM = (*MistralClient)(nil)
