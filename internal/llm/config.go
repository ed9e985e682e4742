package llm

import (
	"fmt"
	"os"
	"time"
)

// Dispatch defaults.
const (
	DefaultMaxTokens = 1024
	DefaultTimeout   = 60 * time.Second
)

// ProviderConfig selects a backend, the model it serves and the credential
// used to reach it. Model validity for the chosen backend is the caller's
// concern.
type ProviderConfig struct {
	Kind   Kind
	Model  string
	APIKey string

	// BaseURL overrides the backend endpoint (OpenAI-compatible proxies,
	// test servers). Ignored by the gateway backend.
	BaseURL string
}

// GatewayConfig configures the managed gateway client.
type GatewayConfig struct {
	Region string
	// AnthropicVersion is sent as anthropic_version in each request body.
	AnthropicVersion string
}

// defaultModels is used when a ProviderConfig leaves Model empty.
var defaultModels = map[Kind]string{
	KindOpenAI:    "gpt-4o",
	KindAnthropic: "claude-3-opus-20240229",
	KindGoogle:    "gemini-pro",
	KindGateway:   "anthropic.claude-3-sonnet-20240229-v1:0",
	KindMock:      "mock",
}

// DefaultModel returns the model used for k when none is configured.
func DefaultModel(k Kind) string {
	return defaultModels[k]
}

// apiKeyEnv lists the conventional environment variable for each backend.
var apiKeyEnv = map[Kind]string{
	KindOpenAI:    "OPENAI_API_KEY",
	KindAnthropic: "ANTHROPIC_API_KEY",
	KindGoogle:    "GEMINI_API_KEY",
}

// APIKeyEnv returns the conventional API key variable for k, or "".
func APIKeyEnv(k Kind) string {
	return apiKeyEnv[k]
}

// DiscoverAPIKey reads the conventional API key variable for k.
// Google also accepts GOOGLE_API_KEY.
func DiscoverAPIKey(k Kind) string {
	if name := apiKeyEnv[k]; name != "" {
		if v := os.Getenv(name); v != "" {
			return v
		}
	}
	if k == KindGoogle {
		return os.Getenv("GOOGLE_API_KEY")
	}
	return ""
}

// WithDefaults fills an empty Model with the backend default.
func (c ProviderConfig) WithDefaults() ProviderConfig {
	if c.Model == "" {
		c.Model = DefaultModel(c.Kind)
	}
	return c
}

// Validate checks that the selected backend exists and has its credential.
func (c ProviderConfig) Validate() error {
	if _, ok := defaultModels[c.Kind]; !ok {
		return fmt.Errorf("%w: %q", ErrUnsupportedProvider, string(c.Kind))
	}
	if c.Kind.NeedsAPIKey() && c.APIKey == "" {
		if env := APIKeyEnv(c.Kind); env != "" {
			return fmt.Errorf("%w: %s requires an API key (set %s or pass --api-key)", ErrMissingCredential, c.Kind, env)
		}
		return fmt.Errorf("%w: %s requires an API key", ErrMissingCredential, c.Kind)
	}
	return nil
}

// resolveModel maps a friendly model name to a provider model ID.
func resolveModel(name string, models map[string]string) string {
	if id, ok := models[name]; ok {
		return id
	}
	// If not in the map, use as-is (allows direct model IDs).
	return name
}
