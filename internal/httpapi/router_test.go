package httpapi

import (
	"context"
	"encoding/json"
	"io"
	"log"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/lukasbauer/voicebridge/internal/eventlog"
	"github.com/lukasbauer/voicebridge/internal/llm"
	"github.com/lukasbauer/voicebridge/internal/stt"
)

type staticLLM struct {
	reply string
}

func (s staticLLM) Respond(_ context.Context, _ string, _ []llm.Message) (string, error) {
	return s.reply, nil
}

func init() {
	llm.Register("static-test", func(llm.Config) (llm.Client, error) {
		return staticLLM{reply: "Hi there"}, nil
	})
}

func newTestRouter(cfg RouterConfig, tf transcriberFactory) *Router {
	r := &Router{
		cfg:            cfg,
		logger:         log.New(io.Discard, "", 0),
		eventLog:       eventlog.New(nil),
		mux:            http.NewServeMux(),
		newTranscriber: tf,
	}
	if r.newTranscriber == nil {
		r.newTranscriber = func(ctx context.Context, cfg stt.DeepgramConfig) (stt.Client, error) {
			return stt.NewDeepgramClient(ctx, cfg)
		}
	}
	r.routes()
	return r
}

func TestHandleHealthz(t *testing.T) {
	r := newTestRouter(RouterConfig{}, nil)

	req := httptest.NewRequest(http.MethodGet, "/healthz", nil)
	rec := httptest.NewRecorder()
	r.mux.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want %d", rec.Code, http.StatusOK)
	}
	if body := rec.Body.String(); body != "ok" {
		t.Errorf("body = %q, want %q", body, "ok")
	}
}

func TestHandleLLMProviders(t *testing.T) {
	r := newTestRouter(RouterConfig{}, nil)

	req := httptest.NewRequest(http.MethodGet, "/llm/providers", nil)
	rec := httptest.NewRecorder()
	r.mux.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want %d", rec.Code, http.StatusOK)
	}

	var resp struct {
		Providers []string `json:"providers"`
	}
	if err := json.NewDecoder(rec.Body).Decode(&resp); err != nil {
		t.Fatalf("failed to decode response: %v", err)
	}

	found := map[string]bool{}
	for _, p := range resp.Providers {
		found[p] = true
	}
	for _, want := range []string{"gemini", "openai", "static-test"} {
		if !found[want] {
			t.Errorf("providers %v missing %q", resp.Providers, want)
		}
	}
}

func TestHandleLLMRespond(t *testing.T) {
	r := newTestRouter(RouterConfig{}, nil)

	body := strings.NewReader(`{"text": "hello", "provider": "static-test"}`)
	req := httptest.NewRequest(http.MethodPost, "/llm/respond", body)
	rec := httptest.NewRecorder()
	r.mux.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want %d (body: %s)", rec.Code, http.StatusOK, rec.Body.String())
	}

	var resp map[string]string
	if err := json.NewDecoder(rec.Body).Decode(&resp); err != nil {
		t.Fatalf("failed to decode response: %v", err)
	}
	if resp["provider"] != "static-test" {
		t.Errorf("provider = %q, want %q", resp["provider"], "static-test")
	}
	if resp["response"] != "Hi there" {
		t.Errorf("response = %q, want %q", resp["response"], "Hi there")
	}
}

func TestHandleLLMRespondUnknownProvider(t *testing.T) {
	r := newTestRouter(RouterConfig{}, nil)

	body := strings.NewReader(`{"text": "hello", "provider": "doesnotexist"}`)
	req := httptest.NewRequest(http.MethodPost, "/llm/respond", body)
	rec := httptest.NewRecorder()
	r.mux.ServeHTTP(rec, req)

	if rec.Code != http.StatusBadRequest {
		t.Fatalf("status = %d, want %d", rec.Code, http.StatusBadRequest)
	}

	var resp map[string]string
	if err := json.NewDecoder(rec.Body).Decode(&resp); err != nil {
		t.Fatalf("failed to decode response: %v", err)
	}
	// The error names the requested provider and lists the available ones.
	if !strings.Contains(resp["error"], "doesnotexist") {
		t.Errorf("error %q does not name the requested provider", resp["error"])
	}
	if !strings.Contains(resp["error"], "static-test") {
		t.Errorf("error %q does not list available providers", resp["error"])
	}
}

func TestHandleLLMRespondMissingText(t *testing.T) {
	r := newTestRouter(RouterConfig{}, nil)

	body := strings.NewReader(`{"provider": "static-test"}`)
	req := httptest.NewRequest(http.MethodPost, "/llm/respond", body)
	rec := httptest.NewRecorder()
	r.mux.ServeHTTP(rec, req)

	if rec.Code != http.StatusBadRequest {
		t.Fatalf("status = %d, want %d", rec.Code, http.StatusBadRequest)
	}
}

func TestHandleLLMRespondDefaultsToConfiguredProvider(t *testing.T) {
	r := newTestRouter(RouterConfig{LLMProvider: "static-test"}, nil)

	body := strings.NewReader(`{"text": "hello"}`)
	req := httptest.NewRequest(http.MethodPost, "/llm/respond", body)
	rec := httptest.NewRecorder()
	r.mux.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want %d (body: %s)", rec.Code, http.StatusOK, rec.Body.String())
	}
}

func TestDefaultLLMProviderFallsBackToGemini(t *testing.T) {
	r := newTestRouter(RouterConfig{}, nil)

	// gemini registers itself at init, so it is the implicit default.
	if got := r.defaultLLMProvider(); got != "gemini" {
		t.Errorf("defaultLLMProvider() = %q, want %q", got, "gemini")
	}
}
