package llm

import (
	"fmt"
	"sort"
	"strings"
	"sync"
)

// Factory constructs a provider client from configuration. Factories return
// ErrNotConfigured (wrapped) when required credentials are missing.
type Factory func(cfg Config) (Client, error)

var (
	registryMu sync.RWMutex
	registry   = map[string]Factory{}
)

// Register adds a provider factory under the given name. Providers register
// themselves at init time; later registrations with the same name replace
// earlier ones.
func Register(name string, factory Factory) {
	registryMu.Lock()
	defer registryMu.Unlock()
	registry[name] = factory
}

// New creates the named provider. An unknown name yields an error naming the
// requested provider and listing the available ones.
func New(name string, cfg Config) (Client, error) {
	registryMu.RLock()
	factory, ok := registry[name]
	registryMu.RUnlock()
	if !ok {
		return nil, fmt.Errorf("%w %q (available: %s)", ErrUnknownProvider, name, availableList())
	}
	return factory(cfg)
}

// Available returns a sorted snapshot of registered provider names.
func Available() []string {
	registryMu.RLock()
	defer registryMu.RUnlock()
	names := make([]string, 0, len(registry))
	for name := range registry {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Registered reports whether a provider name has a factory.
func Registered(name string) bool {
	registryMu.RLock()
	defer registryMu.RUnlock()
	_, ok := registry[name]
	return ok
}

func availableList() string {
	names := Available()
	if len(names) == 0 {
		return "<none>"
	}
	return strings.Join(names, ", ")
}
