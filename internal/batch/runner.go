// Package batch runs the row loop: render a prompt per row, send it to the
// selected model and append the parsed reply to the table.
package batch

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/theanmol-raj/qnagen/internal/llm"
	"github.com/theanmol-raj/qnagen/internal/prompt"
	"github.com/theanmol-raj/qnagen/internal/sheet"
	"github.com/theanmol-raj/qnagen/internal/store"
)

// Column names read from and appended to the table.
const (
	QuestionsColumn          = "Questions"
	AnswersColumn            = "Answers"
	GeneratedQuestionsColumn = "Generated questions"
	GeneratedAnswersColumn   = "Generated answers"
)

// Generator sends one prompt to a model. *llm.Dispatcher implements it.
type Generator interface {
	Generate(ctx context.Context, prompt string, cfg llm.ProviderConfig) llm.Outcome
}

// Config describes one batch.
type Config struct {
	Template string
	Provider llm.ProviderConfig

	// StrictPlaceholders fails rows whose text contains a placeholder
	// token instead of only warning about them.
	StrictPlaceholders bool

	// Source and Sheet label the run in the run log.
	Source string
	Sheet  string
}

// Summary reports how a batch went.
type Summary struct {
	RunID     string
	Rows      int
	Processed int
	Succeeded int
	Failed    int
	Duration  time.Duration
}

// Runner processes tables one row at a time.
type Runner struct {
	gen      Generator
	cfg      Config
	runs     store.RunRepo
	reporter Reporter
	logger   *slog.Logger
}

// Option configures a Runner.
type Option func(*Runner)

// WithRunRepo records each batch in the run log.
func WithRunRepo(repo store.RunRepo) Option {
	return func(r *Runner) { r.runs = repo }
}

// WithReporter sets the progress observer.
func WithReporter(rep Reporter) Option {
	return func(r *Runner) { r.reporter = rep }
}

// WithLogger sets the logger.
func WithLogger(l *slog.Logger) Option {
	return func(r *Runner) { r.logger = l }
}

// NewRunner creates a Runner.
func NewRunner(gen Generator, cfg Config, opts ...Option) *Runner {
	r := &Runner{
		gen:      gen,
		cfg:      cfg,
		runs:     store.NopStore{},
		reporter: nopReporter{},
		logger:   slog.Default(),
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Run generates a question/answer pair for every row of t and appends the
// "Generated questions" and "Generated answers" columns to it.
//
// Configuration problems are returned as *ConfigurationError before any row
// is touched. Once started, a failed row yields empty generated cells and
// the batch moves on. If ctx is cancelled the remaining rows are left empty,
// the columns are still appended, and ctx.Err() is returned with the summary.
func (r *Runner) Run(ctx context.Context, t *sheet.Table) (*Summary, error) {
	qCol, aCol, err := r.preflight(t)
	if err != nil {
		return nil, &ConfigurationError{Err: err}
	}

	start := time.Now()
	n := t.Len()
	sum := &Summary{Rows: n}

	runID, err := r.runs.StartRun(ctx, store.RunData{
		Source:   r.cfg.Source,
		Sheet:    r.cfg.Sheet,
		Provider: string(r.cfg.Provider.Kind),
		Model:    r.cfg.Provider.Model,
		Rows:     n,
	})
	if err != nil {
		r.logger.Warn("failed to record run start", "error", err)
	}
	sum.RunID = runID

	questions := make([]string, n)
	answers := make([]string, n)

	for i := 0; i < n; i++ {
		if ctx.Err() != nil {
			break
		}
		row := i + 1
		r.reporter.Status(fmt.Sprintf("Processing row %d of %d", row, n))

		res, rowErr := r.processRow(ctx, runID, row, t.Cell(i, qCol), t.Cell(i, aCol))
		if rowErr != nil {
			sum.Failed++
			r.reporter.RowFailed(row, rowErr)
		} else {
			sum.Succeeded++
		}
		questions[i] = res.GeneratedQuestion
		answers[i] = res.GeneratedAnswer
		sum.Processed++

		r.reporter.Progress(row, n)
	}

	if err := t.AppendColumn(GeneratedQuestionsColumn, questions); err != nil {
		return nil, err
	}
	if err := t.AppendColumn(GeneratedAnswersColumn, answers); err != nil {
		return nil, err
	}
	sum.Duration = time.Since(start)

	if err := ctx.Err(); err != nil {
		r.logger.Warn("batch interrupted", "processed", sum.Processed, "rows", n)
		return sum, err
	}

	if runID != "" {
		if err := r.runs.FinishRun(context.WithoutCancel(ctx), runID, sum.Succeeded, sum.Failed); err != nil {
			r.logger.Warn("failed to record run finish", "run", runID, "error", err)
		}
	}

	r.reporter.Status(fmt.Sprintf("Done in %.2fs", sum.Duration.Seconds()))
	r.logger.Info("batch complete",
		"rows", n,
		"succeeded", sum.Succeeded,
		"failed", sum.Failed,
		"duration", sum.Duration,
	)
	return sum, nil
}

func (r *Runner) preflight(t *sheet.Table) (qCol, aCol int, err error) {
	if t == nil {
		return 0, 0, ErrNoTable
	}
	qCol, ok := t.Column(QuestionsColumn)
	if !ok {
		return 0, 0, fmt.Errorf("%w: %q", ErrMissingColumn, QuestionsColumn)
	}
	aCol, ok = t.Column(AnswersColumn)
	if !ok {
		return 0, 0, fmt.Errorf("%w: %q", ErrMissingColumn, AnswersColumn)
	}
	// Only a missing credential stops the batch. An unsupported provider
	// fails each row through the dispatcher instead.
	if err := r.cfg.Provider.Validate(); errors.Is(err, llm.ErrMissingCredential) {
		return 0, 0, err
	}
	if q, a := prompt.Placeholders(r.cfg.Template); q == 0 && a == 0 {
		r.logger.Warn("template has no {question} or {answer} placeholder; every row gets the same prompt")
	}
	return qCol, aCol, nil
}

// processRow renders, dispatches and parses one row. A non-nil error means
// the row failed; the result is still usable (empty on failure).
func (r *Runner) processRow(ctx context.Context, runID string, row int, question, answer string) (ParsedResult, error) {
	if err := prompt.CheckInput(question, answer); err != nil {
		if r.cfg.StrictPlaceholders {
			return ParseResponse(llm.FailureText), err
		}
		r.logger.Warn("row text contains a placeholder token; rendering it verbatim", "row", row, "error", err)
	}

	rendered := prompt.Render(r.cfg.Template, question, answer)
	if runID != "" {
		ctx = llm.WithRow(ctx, runID, row)
	}

	out := r.gen.Generate(ctx, rendered, r.cfg.Provider)
	return ParseResponse(out.Text), out.Err
}
