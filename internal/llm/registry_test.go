package llm

import (
	"context"
	"errors"
	"strings"
	"testing"
)

type echoClient struct{}

func (echoClient) Respond(_ context.Context, prompt string, _ []Message) (string, error) {
	return "echo: " + prompt, nil
}

func TestNewUnknownProvider(t *testing.T) {
	_, err := New("doesnotexist", Config{})
	if err == nil {
		t.Fatal("New with unknown provider returned nil error")
	}
	if !errors.Is(err, ErrUnknownProvider) {
		t.Errorf("error = %v, want ErrUnknownProvider", err)
	}
	if !strings.Contains(err.Error(), `"doesnotexist"`) {
		t.Errorf("error %q does not name the requested provider", err)
	}
	// The message lists the available providers.
	for _, name := range Available() {
		if !strings.Contains(err.Error(), name) {
			t.Errorf("error %q does not list available provider %q", err, name)
		}
	}
}

func TestBuiltinProvidersRegistered(t *testing.T) {
	for _, name := range []string{"gemini", "openai"} {
		if !Registered(name) {
			t.Errorf("provider %q not registered", name)
		}
	}
}

func TestRegisterAndCreate(t *testing.T) {
	Register("echo-test", func(Config) (Client, error) {
		return echoClient{}, nil
	})

	client, err := New("echo-test", Config{})
	if err != nil {
		t.Fatalf("New(echo-test) error: %v", err)
	}
	reply, err := client.Respond(context.Background(), "hi", nil)
	if err != nil {
		t.Fatalf("Respond error: %v", err)
	}
	if reply != "echo: hi" {
		t.Errorf("reply = %q, want %q", reply, "echo: hi")
	}
}

func TestAvailableSorted(t *testing.T) {
	names := Available()
	for i := 1; i < len(names); i++ {
		if names[i-1] > names[i] {
			t.Fatalf("Available() not sorted: %v", names)
		}
	}
}

func TestFactoryConfigError(t *testing.T) {
	Register("needs-key", func(Config) (Client, error) {
		return nil, ErrNotConfigured
	})

	_, err := New("needs-key", Config{})
	if !errors.Is(err, ErrNotConfigured) {
		t.Errorf("error = %v, want ErrNotConfigured", err)
	}
}
