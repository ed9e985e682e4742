package llm

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/theanmol-raj/qnagen/internal/store"
)

// Deps carries the explicitly constructed collaborators providers need.
// Nothing here is read from global state.
type Deps struct {
	// Gateway is the managed gateway client. Required for KindGateway.
	Gateway GatewayClient
	// GatewayConfig holds gateway request settings.
	GatewayConfig GatewayConfig
	// Events, when set, receives a row event for every call.
	Events store.EventRepo
	Logger *slog.Logger
}

// NewProvider creates the Provider for cfg, wrapped with event logging when
// deps.Events is set.
func NewProvider(ctx context.Context, cfg ProviderConfig, deps Deps) (Provider, error) {
	cfg = cfg.WithDefaults()

	var base Provider
	var err error

	switch cfg.Kind {
	case KindOpenAI:
		base, err = NewOpenAIProvider(cfg)
	case KindAnthropic:
		base, err = NewAnthropicProvider(cfg)
	case KindGoogle:
		base, err = NewGeminiProvider(ctx, cfg)
	case KindGateway:
		base, err = NewGatewayProvider(deps.Gateway, cfg.Model, deps.GatewayConfig)
	case KindMock:
		base = NewStaticProvider(DryRunReply)
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnsupportedProvider, string(cfg.Kind))
	}
	if err != nil {
		return nil, fmt.Errorf("initializing %s provider: %w", cfg.Kind, err)
	}

	if deps.Events != nil {
		return WithLogging(base, cfg.Kind, deps.Events, deps.Logger), nil
	}
	return base, nil
}
