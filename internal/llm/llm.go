package llm

import (
	"context"
	"errors"
)

// Message represents one turn of conversation history.
type Message struct {
	Role    string // "user" or "assistant"
	Content string
}

// Config holds provider configuration. Zero values fall back to
// provider-specific environment variables and defaults.
type Config struct {
	APIKey  string
	Model   string
	BaseURL string // override for tests
}

// Client defines the interface for LLM providers.
type Client interface {
	// Respond generates a reply for the prompt. History, if non-nil, is the
	// ordered prior conversation and is sent before the prompt.
	Respond(ctx context.Context, prompt string, history []Message) (string, error)
}

// ErrUnknownProvider reports a provider name with no registered factory.
// It is a configuration error, not a transient failure.
var ErrUnknownProvider = errors.New("unknown llm provider")

// ErrNotConfigured reports a registered provider missing required
// credentials. It is a configuration error, not a transient failure.
var ErrNotConfigured = errors.New("llm provider not configured")
