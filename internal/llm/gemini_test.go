package llm

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
)

func TestNewGeminiClientMissingKey(t *testing.T) {
	t.Setenv("GEMINI_API_KEY", "")

	_, err := NewGeminiClient(Config{})
	if !errors.Is(err, ErrNotConfigured) {
		t.Fatalf("error = %v, want ErrNotConfigured", err)
	}
}

func TestNewGeminiClientDefaults(t *testing.T) {
	t.Setenv("GEMINI_MODEL", "")

	c, err := NewGeminiClient(Config{APIKey: "test-key"})
	if err != nil {
		t.Fatalf("NewGeminiClient error: %v", err)
	}
	if c.model != "gemini-2.5-flash" {
		t.Errorf("model = %q, want %q", c.model, "gemini-2.5-flash")
	}
}

func TestGeminiRespond(t *testing.T) {
	var gotPath string
	var gotReq geminiRequest

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		if err := json.NewDecoder(r.Body).Decode(&gotReq); err != nil {
			t.Errorf("failed to decode request: %v", err)
		}
		_ = json.NewEncoder(w).Encode(map[string]any{
			"candidates": []map[string]any{
				{"content": map[string]any{
					"parts": []map[string]string{{"text": "Hi there"}},
				}},
			},
		})
	}))
	defer srv.Close()

	c, err := NewGeminiClient(Config{APIKey: "test-key", Model: "test-model", BaseURL: srv.URL})
	if err != nil {
		t.Fatalf("NewGeminiClient error: %v", err)
	}

	history := []Message{
		{Role: "user", Content: "earlier question"},
		{Role: "assistant", Content: "earlier answer"},
	}
	reply, err := c.Respond(context.Background(), "hello world", history)
	if err != nil {
		t.Fatalf("Respond error: %v", err)
	}
	if reply != "Hi there" {
		t.Errorf("reply = %q, want %q", reply, "Hi there")
	}
	if gotPath != "/models/test-model:generateContent" {
		t.Errorf("request path = %q, want generateContent for test-model", gotPath)
	}

	if len(gotReq.Contents) != 3 {
		t.Fatalf("request contents = %d entries, want 3", len(gotReq.Contents))
	}
	// The assistant role maps to Gemini's "model" role.
	if gotReq.Contents[1].Role != "model" {
		t.Errorf("history assistant role sent as %q, want %q", gotReq.Contents[1].Role, "model")
	}
	last := gotReq.Contents[2]
	if last.Role != "user" || len(last.Parts) != 1 || last.Parts[0].Text != "hello world" {
		t.Errorf("prompt content = %+v, want user/hello world", last)
	}
}

func TestGeminiRespondAPIError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		http.Error(w, `{"error": "quota exceeded"}`, http.StatusTooManyRequests)
	}))
	defer srv.Close()

	c, err := NewGeminiClient(Config{APIKey: "test-key", BaseURL: srv.URL})
	if err != nil {
		t.Fatalf("NewGeminiClient error: %v", err)
	}

	_, err = c.Respond(context.Background(), "hello", nil)
	if err == nil {
		t.Fatal("Respond returned nil error for HTTP 429")
	}
	if !strings.Contains(err.Error(), "quota exceeded") {
		t.Errorf("error %q does not surface the API message", err)
	}
}

func TestExtractGeminiText(t *testing.T) {
	tests := []struct {
		name string
		body string
		want string
	}{
		{
			name: "single part",
			body: `{"candidates":[{"content":{"parts":[{"text":"hello"}]}}]}`,
			want: "hello",
		},
		{
			name: "multiple parts joined",
			body: `{"candidates":[{"content":{"parts":[{"text":"hel"},{"text":"lo"}]}}]}`,
			want: "hello",
		},
		{
			name: "no candidates falls back to raw body",
			body: `{"promptFeedback":{"blockReason":"SAFETY"}}`,
			want: `{"promptFeedback":{"blockReason":"SAFETY"}}`,
		},
		{
			name: "empty parts falls back to raw body",
			body: `{"candidates":[{"content":{"parts":[]}}]}`,
			want: `{"candidates":[{"content":{"parts":[]}}]}`,
		},
		{
			name: "not json falls back to raw body",
			body: `plain text response`,
			want: `plain text response`,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := extractGeminiText([]byte(tt.body)); got != tt.want {
				t.Errorf("extractGeminiText() = %q, want %q", got, tt.want)
			}
		})
	}
}
