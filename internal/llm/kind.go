package llm

import (
	"fmt"
	"strings"
)

// Kind identifies a backend. The set is closed; ParseKind rejects anything
// else with ErrUnsupportedProvider.
type Kind string

const (
	KindOpenAI    Kind = "openai"
	KindAnthropic Kind = "anthropic"
	KindGoogle    Kind = "google"
	// KindGateway reaches Anthropic models through a managed model gateway
	// that authenticates with process-wide credentials instead of an API key.
	KindGateway Kind = "anthropic-gateway"
	// KindMock answers with a fixed reply and never touches the network.
	KindMock Kind = "mock"
)

var kindAliases = map[string]Kind{
	"openai":                KindOpenAI,
	"anthropic":             KindAnthropic,
	"google":                KindGoogle,
	"gemini":                KindGoogle,
	"anthropic-gateway":     KindGateway,
	"anthropic-via-gateway": KindGateway,
	"bedrock":               KindGateway,
	"mock":                  KindMock,
}

// ParseKind maps a provider name (case-insensitive, aliases allowed) to a Kind.
func ParseKind(s string) (Kind, error) {
	if k, ok := kindAliases[strings.ToLower(strings.TrimSpace(s))]; ok {
		return k, nil
	}
	return "", fmt.Errorf("%w: %q", ErrUnsupportedProvider, s)
}

// Kinds lists the backends offered to users.
func Kinds() []Kind {
	return []Kind{KindOpenAI, KindAnthropic, KindGoogle, KindGateway}
}

// NeedsAPIKey reports whether the backend requires a user-supplied credential.
func (k Kind) NeedsAPIKey() bool {
	switch k {
	case KindGateway, KindMock:
		return false
	default:
		return true
	}
}

func (k Kind) String() string { return string(k) }
