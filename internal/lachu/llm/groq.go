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

	"github.com/sajadtroy/lachu/common/version"
)

const (
	DefaultBaseURL     = "https://api.groq.com/openai/v1"
	DefaultModel       = "qwen-qwq-32b"
	DefaultTemperature = 0.7
	defaultTimeout     = 60 * time.Second

	// maxErrorBody caps how much of an error response is kept for the log.
	maxErrorBody = 512
)

// Config configures the OpenAI-compatible client.
type Config struct {
	// APIKey is the bearer token.
	APIKey string
	// BaseURL defaults to the Groq OpenAI-compatible endpoint.
	BaseURL string
	// Timeout bounds each HTTP request. Defaults to 60s.
	Timeout time.Duration
	// HTTPClient replaces the default client; Timeout is ignored when set.
	HTTPClient *http.Client
}

// GroqClient implements Provider against /chat/completions.
type GroqClient struct {
	baseURL string
	apiKey  string
	client  *http.Client
}

// NewGroq returns a client for cfg.
func NewGroq(cfg Config) *GroqClient {
	if cfg.BaseURL == "" {
		cfg.BaseURL = DefaultBaseURL
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = defaultTimeout
	}
	client := cfg.HTTPClient
	if client == nil {
		client = &http.Client{Timeout: cfg.Timeout}
	}
	return &GroqClient{
		baseURL: strings.TrimRight(cfg.BaseURL, "/"),
		apiKey:  cfg.APIKey,
		client:  client,
	}
}

// --- wire types (subset of the OpenAI API) ---

type wireMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type wireRequest struct {
	Model       string        `json:"model"`
	Messages    []wireMessage `json:"messages"`
	Temperature float64       `json:"temperature"`
}

type wireResponse struct {
	Choices []struct {
		Message      wireMessage `json:"message"`
		FinishReason string      `json:"finish_reason"`
	} `json:"choices"`
	Error *wireError `json:"error,omitempty"`
}

type wireError struct {
	Message string `json:"message"`
	Type    string `json:"type"`
}

// Complete posts req and returns choices[0].message.content.
func (c *GroqClient) Complete(ctx context.Context, req CompletionRequest) (string, error) {
	msgs := make([]wireMessage, 0, len(req.Messages))
	for _, m := range req.Messages {
		msgs = append(msgs, wireMessage{Role: string(m.Role), Content: m.Content})
	}

	data, err := json.Marshal(wireRequest{
		Model:       req.Model,
		Messages:    msgs,
		Temperature: req.Temperature,
	})
	if err != nil {
		return "", fmt.Errorf("llm: marshal request: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/chat/completions", bytes.NewReader(data))
	if err != nil {
		return "", fmt.Errorf("llm: create http request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("Authorization", "Bearer "+c.apiKey)
	httpReq.Header.Set("User-Agent", version.UserAgent())

	resp, err := c.client.Do(httpReq)
	if err != nil {
		return "", fmt.Errorf("llm: http request: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", fmt.Errorf("llm: read response body: %w", err)
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return "", apiErrorFrom(resp.StatusCode, body)
	}

	var out wireResponse
	if err := json.Unmarshal(body, &out); err != nil {
		return "", fmt.Errorf("llm: decode response: %w", err)
	}
	if out.Error != nil {
		return "", &APIError{StatusCode: resp.StatusCode, Type: out.Error.Type, Message: out.Error.Message}
	}
	if len(out.Choices) == 0 {
		return "", ErrNoChoices
	}
	return out.Choices[0].Message.Content, nil
}

// apiErrorFrom builds an APIError from a non-2xx body. OpenAI-style bodies
// carry {"error":{"message","type"}}; anything else is kept verbatim.
func apiErrorFrom(status int, body []byte) *APIError {
	apiErr := &APIError{StatusCode: status}
	var parsed wireResponse
	if err := json.Unmarshal(body, &parsed); err == nil && parsed.Error != nil {
		apiErr.Type = parsed.Error.Type
		apiErr.Message = parsed.Error.Message
		return apiErr
	}
	msg := strings.TrimSpace(string(body))
	if len(msg) > maxErrorBody {
		msg = msg[:maxErrorBody]
	}
	if msg == "" {
		msg = http.StatusText(status)
	}
	apiErr.Message = msg
	return apiErr
}

var _ Provider = (*GroqClient)(nil)
