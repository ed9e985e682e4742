package llm

import (
	"context"
	"fmt"
	"time"

	"github.com/theanmol-raj/qnagen/internal/store"
)

// FailureText stands in for a reply when a call fails: an empty question
// and an empty answer in the reply format the row loop parses.
const FailureText = "Question: \nAnswer:"

// Outcome is the result of one dispatch. Err is nil on success. On failure
// Text holds FailureText so text-only callers still get a parseable reply,
// while Err keeps the failure distinguishable from a genuinely empty answer.
type Outcome struct {
	Text     string
	Response *Response
	Err      error
}

// Failed reports whether the call failed.
func (o Outcome) Failed() bool { return o.Err != nil }

// Factory builds a Provider for a configuration.
type Factory func(ctx context.Context, cfg ProviderConfig, deps Deps) (Provider, error)

// Dispatcher routes a rendered prompt to the backend named by a
// ProviderConfig and turns every failure into a failed Outcome.
// It keeps no state between calls.
type Dispatcher struct {
	deps      Deps
	factory   Factory
	maxTokens int
	timeout   time.Duration
}

// DispatcherOption configures a Dispatcher.
type DispatcherOption func(*Dispatcher)

// WithMaxTokens sets the reply length cap sent to every backend.
func WithMaxTokens(n int) DispatcherOption {
	return func(d *Dispatcher) {
		if n > 0 {
			d.maxTokens = n
		}
	}
}

// WithTimeout bounds each call. Zero disables the bound.
func WithTimeout(t time.Duration) DispatcherOption {
	return func(d *Dispatcher) { d.timeout = t }
}

// WithFactory replaces the provider factory (tests inject stubs here).
func WithFactory(f Factory) DispatcherOption {
	return func(d *Dispatcher) { d.factory = f }
}

// NewDispatcher creates a Dispatcher using deps for every provider it builds.
func NewDispatcher(deps Deps, opts ...DispatcherOption) *Dispatcher {
	d := &Dispatcher{
		deps:      deps,
		factory:   NewProvider,
		maxTokens: DefaultMaxTokens,
		timeout:   DefaultTimeout,
	}
	for _, opt := range opts {
		opt(d)
	}
	return d
}

// MaxTokens returns the configured reply length cap.
func (d *Dispatcher) MaxTokens() int { return d.maxTokens }

// Generate sends prompt to the backend selected by cfg. It never panics and
// never returns a bare error: failures come back as an Outcome carrying
// FailureText and a typed error.
func (d *Dispatcher) Generate(ctx context.Context, prompt string, cfg ProviderConfig) (out Outcome) {
	defer func() {
		if r := recover(); r != nil {
			err := &ErrProviderUnavailable{Err: fmt.Errorf("backend panic: %v", r)}
			d.recordFailure(ctx, cfg, err)
			out = failed(err)
		}
	}()

	if err := cfg.Validate(); err != nil {
		d.recordFailure(ctx, cfg, err)
		return failed(err)
	}

	p, err := d.factory(ctx, cfg, d.deps)
	if err != nil {
		d.recordFailure(ctx, cfg, err)
		return failed(err)
	}

	if d.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, d.timeout)
		defer cancel()
	}

	resp, err := p.Generate(ctx, UserPrompt(prompt, d.maxTokens))
	if err != nil {
		return failed(err)
	}
	if resp == nil {
		return failed(&ErrInvalidResponse{Err: fmt.Errorf("%s returned no response", cfg.Kind)})
	}

	return Outcome{Text: resp.Text, Response: resp}
}

func failed(err error) Outcome {
	return Outcome{Text: FailureText, Err: err}
}

// recordFailure logs calls that failed outside the logging decorator
// (before a provider existed, or by panicking), so the run log has an entry
// for every row.
func (d *Dispatcher) recordFailure(ctx context.Context, cfg ProviderConfig, err error) {
	if d.deps.Events == nil {
		return
	}
	ref, ok := RowFrom(ctx)
	if !ok {
		return
	}
	logErr := d.deps.Events.AppendRowEvent(context.WithoutCancel(ctx), store.RowEventData{
		RunID:        ref.RunID,
		Row:          ref.Row,
		Provider:     string(cfg.Kind),
		Model:        cfg.Model,
		Success:      false,
		ErrorMessage: err.Error(),
	})
	if logErr != nil && d.deps.Logger != nil {
		d.deps.Logger.Warn("failed to record row event", "row", ref.Row, "error", logErr)
	}
}
