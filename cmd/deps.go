package cmd

import (
	"context"
	"log/slog"
	"os"

	"github.com/mattn/go-isatty"

	"github.com/theanmol-raj/qnagen/internal/llm"
	"github.com/theanmol-raj/qnagen/internal/store"
)

// newDispatcher builds the dispatcher for the configured limits. The gateway
// client is only created when the gateway backend can be selected, since it
// loads the process-wide credential chain.
func newDispatcher(ctx context.Context, events store.EventRepo, withGateway bool) *llm.Dispatcher {
	deps := llm.Deps{
		GatewayConfig: cfg.LLMGatewayConfig(),
		Events:        events,
		Logger:        slog.Default(),
	}
	if withGateway {
		client, err := llm.NewGatewayClient(ctx, deps.GatewayConfig)
		if err != nil {
			slog.Warn("gateway client unavailable", "error", err)
		} else {
			deps.Gateway = client
		}
	}
	return llm.NewDispatcher(deps,
		llm.WithMaxTokens(cfg.MaxTokens),
		llm.WithTimeout(cfg.Timeout),
	)
}

func interactive() bool {
	return isatty.IsTerminal(os.Stdin.Fd()) && isatty.IsTerminal(os.Stderr.Fd())
}
