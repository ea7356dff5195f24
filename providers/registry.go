package providers

import (
	"fmt"
	"sort"

	"github.com/relabs-io/vantage/core"
)

// ProviderFactory constructs a concrete core.AIClient for one named
// provider and reports whether that provider is usable in the current
// environment (credentials present, region configured, etc). Providers
// are added by registration, not by type hierarchy.
type ProviderFactory interface {
	Name() string
	Description() string
	Priority() int
	Create(config *AIConfig) core.AIClient
	DetectEnvironment() (priority int, available bool)
}

// ProviderRegistry is the process-local set of registered provider
// factories. Tests swap the package-level registry wholesale rather than
// mutating it concurrently with production registrations.
type ProviderRegistry struct {
	providers map[string]ProviderFactory
}

var registry = &ProviderRegistry{providers: make(map[string]ProviderFactory)}

// Register adds factory to the global registry. Vendor packages
// (providers/providers/{openai,anthropic,gemini,bedrock,mock}) call this
// from an init() func, so importing the package for its side effect is
// enough to make the provider selectable by name or by auto-detection.
func Register(factory ProviderFactory) error {
	if factory == nil {
		return fmt.Errorf("cannot register a nil provider factory")
	}
	name := factory.Name()
	if name == "" {
		return fmt.Errorf("provider factory must have a non-empty name")
	}
	if _, exists := registry.providers[name]; exists {
		return fmt.Errorf("provider %q already registered", name)
	}
	registry.providers[name] = factory
	return nil
}

// MustRegister is Register but panics on error, for vendor package init()
// functions where a registration failure (duplicate name) is a build-time
// programming error, not a runtime condition to recover from.
func MustRegister(factory ProviderFactory) {
	if err := Register(factory); err != nil {
		panic(fmt.Sprintf("failed to register AI provider: %v", err))
	}
}

// detectBestProvider picks the highest-priority registered provider that
// reports itself available in the current environment. Ties are broken
// by name so repeated construction picks the same winner.
func detectBestProvider(logger core.Logger) (string, error) {
	type candidate struct {
		name     string
		priority int
	}

	var candidates []candidate
	for name, f := range registry.providers {
		if priority, available := f.DetectEnvironment(); available {
			candidates = append(candidates, candidate{name: name, priority: priority})
		}
	}
	if len(candidates) == 0 {
		return "", fmt.Errorf("no provider detected in environment")
	}

	sort.Slice(candidates, func(i, j int) bool {
		if candidates[i].priority != candidates[j].priority {
			return candidates[i].priority > candidates[j].priority
		}
		return candidates[i].name < candidates[j].name
	})

	if logger != nil {
		logger.Debug("auto-detected AI provider", map[string]interface{}{
			"provider": candidates[0].name,
			"priority": candidates[0].priority,
		})
	}

	return candidates[0].name, nil
}

// NewClient builds a core.AIClient from the configured (or auto-detected)
// provider. WithProvider is optional: when unset, NewClient picks the
// highest-priority provider that DetectEnvironment reports available.
func NewClient(opts ...AIOption) (core.AIClient, error) {
	config := &AIConfig{}
	for _, opt := range opts {
		opt(config)
	}

	name := config.Provider
	if name == "" || name == string(ProviderAuto) {
		detected, err := detectBestProvider(config.Logger)
		if err != nil {
			return nil, fmt.Errorf("no AI provider available: %w", err)
		}
		name = detected
	}

	factory, ok := registry.providers[name]
	if !ok {
		return nil, fmt.Errorf("provider '%s' not registered", name)
	}

	return factory.Create(config), nil
}

// MustNewClient is NewClient but panics on error, for call sites that
// treat a missing provider as a fatal misconfiguration.
func MustNewClient(opts ...AIOption) core.AIClient {
	client, err := NewClient(opts...)
	if err != nil {
		panic(fmt.Sprintf("failed to create AI client: %v", err))
	}
	return client
}
