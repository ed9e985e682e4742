package llm

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/theanmol-raj/qnagen/internal/store"
)

// LoggingProvider is a decorator that records every call made for a row
// as a row event.
type LoggingProvider struct {
	inner     Provider
	kind      Kind
	eventRepo store.EventRepo
	logger    *slog.Logger
}

// WithLogging wraps a Provider with event logging. Calls whose context
// carries no row reference (see WithRow) are passed through unrecorded.
func WithLogging(p Provider, kind Kind, repo store.EventRepo, logger *slog.Logger) Provider {
	if logger == nil {
		logger = slog.Default()
	}
	return &LoggingProvider{inner: p, kind: kind, eventRepo: repo, logger: logger}
}

func (l *LoggingProvider) Generate(ctx context.Context, req Request) (*Response, error) {
	start := time.Now()

	resp, err := l.inner.Generate(ctx, req)

	ref, ok := RowFrom(ctx)
	if !ok {
		return resp, err
	}

	data := store.RowEventData{
		RunID:       ref.RunID,
		Row:         ref.Row,
		Provider:    string(l.kind),
		Model:       l.inner.ModelID(),
		LatencyMs:   time.Since(start).Milliseconds(),
		Success:     err == nil,
		RequestBody: serializeRequest(req),
	}

	if resp != nil {
		data.InputTokens = resp.Usage.InputTokens
		data.OutputTokens = resp.Usage.OutputTokens
		if resp.Model != "" {
			data.Model = resp.Model
		}
		data.ResponseBody = resp.Text
	}

	if err != nil {
		data.ErrorMessage = err.Error()
	}

	// The event log is best effort; the call result stands either way.
	if logErr := l.eventRepo.AppendRowEvent(context.WithoutCancel(ctx), data); logErr != nil {
		l.logger.Warn("failed to record row event", "row", ref.Row, "error", logErr)
	}

	return resp, err
}

func (l *LoggingProvider) ModelID() string {
	return l.inner.ModelID()
}

// serializeRequest builds a readable representation of the LLM request.
func serializeRequest(req Request) string {
	var b strings.Builder
	for _, m := range req.Messages {
		fmt.Fprintf(&b, "[%s]\n", m.Role)
		b.WriteString(m.Content)
		b.WriteString("\n\n")
	}
	fmt.Fprintf(&b, "[max_tokens: %d]\n", req.MaxTokens)
	return b.String()
}
