package llm_test

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/sajadtroy/lachu/internal/lachu/llm"
	"github.com/sajadtroy/lachu/internal/lachu/memory"
)

func testRequest() llm.CompletionRequest {
	return llm.CompletionRequest{
		Model: "qwen-qwq-32b",
		Messages: []memory.Message{
			{Role: memory.RoleSystem, Content: "persona"},
			{Role: memory.RoleUser, Content: "How are you?"},
		},
		Temperature: 0.7,
	}
}

func TestGroqClient_Complete_Success(t *testing.T) {
	var got struct {
		Model       string  `json:"model"`
		Temperature float64 `json:"temperature"`
		Messages    []struct {
			Role    string `json:"role"`
			Content string `json:"content"`
		} `json:"messages"`
	}

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/chat/completions" {
			t.Errorf("path = %s", r.URL.Path)
		}
		if auth := r.Header.Get("Authorization"); auth != "Bearer gsk_test_key" {
			t.Errorf("Authorization = %q", auth)
		}
		if ua := r.Header.Get("User-Agent"); !strings.HasPrefix(ua, "lachu/") {
			t.Errorf("User-Agent = %q", ua)
		}
		if err := json.NewDecoder(r.Body).Decode(&got); err != nil {
			t.Errorf("decode body: %v", err)
		}
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"choices":[{"message":{"role":"assistant","content":"I'm doing well!"},"finish_reason":"stop"}]}`))
	}))
	defer srv.Close()

	c := llm.NewGroq(llm.Config{APIKey: "gsk_test_key", BaseURL: srv.URL + "/"})
	text, err := c.Complete(context.Background(), testRequest())
	if err != nil {
		t.Fatalf("Complete: %v", err)
	}
	if text != "I'm doing well!" {
		t.Errorf("text = %q", text)
	}
	if got.Model != "qwen-qwq-32b" || got.Temperature != 0.7 {
		t.Errorf("request model/temperature = %q/%v", got.Model, got.Temperature)
	}
	if len(got.Messages) != 2 || got.Messages[0].Role != "system" || got.Messages[1].Content != "How are you?" {
		t.Errorf("request messages = %+v", got.Messages)
	}
}

func TestGroqClient_Complete_APIError(t *testing.T) {
	tests := []struct {
		name     string
		status   int
		body     string
		wantType string
		wantMsg  string
	}{
		{
			name:     "openai style body",
			status:   http.StatusBadRequest,
			body:     `{"error":{"message":"context too long","type":"invalid_request_error"}}`,
			wantType: "invalid_request_error",
			wantMsg:  "context too long",
		},
		{
			name:    "plain text body",
			status:  http.StatusBadGateway,
			body:    "upstream exploded",
			wantMsg: "upstream exploded",
		},
		{
			name:    "empty body",
			status:  http.StatusServiceUnavailable,
			wantMsg: "Service Unavailable",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(tt.status)
				w.Write([]byte(tt.body))
			}))
			defer srv.Close()

			c := llm.NewGroq(llm.Config{APIKey: "k", BaseURL: srv.URL})
			_, err := c.Complete(context.Background(), testRequest())

			var apiErr *llm.APIError
			if !errors.As(err, &apiErr) {
				t.Fatalf("expected *APIError, got %T: %v", err, err)
			}
			if apiErr.StatusCode != tt.status || apiErr.Type != tt.wantType || apiErr.Message != tt.wantMsg {
				t.Errorf("APIError = %+v", apiErr)
			}
		})
	}
}

func TestGroqClient_Complete_NoChoices(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"choices":[]}`))
	}))
	defer srv.Close()

	_, err := llm.NewGroq(llm.Config{BaseURL: srv.URL}).Complete(context.Background(), testRequest())
	if !errors.Is(err, llm.ErrNoChoices) {
		t.Errorf("expected ErrNoChoices, got %v", err)
	}
}

func TestGroqClient_Complete_NetworkError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	url := srv.URL
	srv.Close()

	_, err := llm.NewGroq(llm.Config{BaseURL: url}).Complete(context.Background(), testRequest())
	if err == nil {
		t.Fatal("expected error from closed server")
	}
	var apiErr *llm.APIError
	if errors.As(err, &apiErr) {
		t.Errorf("transport failure must not be an APIError: %v", err)
	}
}
