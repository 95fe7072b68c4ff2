package httpapi

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/lukasbauer/voicebridge/internal/llm"
)

// handleLLMProviders returns the registered LLM provider names.
func (r *Router) handleLLMProviders(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{"providers": llm.Available()})
}

// handleLLMRespond sends text to an LLM and returns its response. Uses the
// provider from the request, or the configured default.
func (r *Router) handleLLMRespond(w http.ResponseWriter, req *http.Request) {
	var body struct {
		Text     string `json:"text"`
		Provider string `json:"provider,omitempty"`
	}
	if err := json.NewDecoder(req.Body).Decode(&body); err != nil {
		http.Error(w, `{"error": "invalid request body"}`, http.StatusBadRequest)
		return
	}
	if body.Text == "" {
		http.Error(w, `{"error": "text is required"}`, http.StatusBadRequest)
		return
	}

	provider := body.Provider
	if provider == "" {
		provider = r.defaultLLMProvider()
	}
	if provider == "" {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "no llm providers available"})
		return
	}

	client, err := llm.New(provider, r.llmConfig(provider))
	if err != nil {
		status := http.StatusInternalServerError
		if errors.Is(err, llm.ErrUnknownProvider) || errors.Is(err, llm.ErrNotConfigured) {
			status = http.StatusBadRequest
		}
		writeJSON(w, status, map[string]string{"error": err.Error()})
		return
	}

	resp, err := client.Respond(req.Context(), body.Text, nil)
	if err != nil {
		r.logger.Printf("llm: respond error: %v", err)
		captureError(req, err, "llm respond failed")
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": err.Error()})
		return
	}

	writeJSON(w, http.StatusOK, map[string]string{
		"provider": provider,
		"response": resp,
	})
}

// defaultLLMProvider picks the configured provider name, falling back to
// gemini when it is registered.
func (r *Router) defaultLLMProvider() string {
	if r.cfg.LLMProvider != "" {
		return r.cfg.LLMProvider
	}
	if llm.Registered("gemini") {
		return "gemini"
	}
	return ""
}

// llmConfig assembles per-provider configuration.
func (r *Router) llmConfig(provider string) llm.Config {
	switch provider {
	case "gemini":
		return llm.Config{APIKey: r.cfg.GeminiAPIKey, Model: r.cfg.GeminiModel}
	case "openai":
		return llm.Config{APIKey: r.cfg.OpenAIAPIKey, Model: r.cfg.OpenAIModel}
	default:
		return llm.Config{}
	}
}
