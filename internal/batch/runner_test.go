package batch

import (
	"context"
	"errors"
	"path/filepath"
	"strings"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/theanmol-raj/qnagen/internal/llm"
	"github.com/theanmol-raj/qnagen/internal/prompt"
	"github.com/theanmol-raj/qnagen/internal/sheet"
	"github.com/theanmol-raj/qnagen/internal/store"
)

type recordingReporter struct {
	mu       sync.Mutex
	statuses []string
	progress [][2]int
	failed   map[int]error
}

func (r *recordingReporter) Status(msg string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.statuses = append(r.statuses, msg)
}

func (r *recordingReporter) Progress(done, total int) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.progress = append(r.progress, [2]int{done, total})
}

func (r *recordingReporter) RowFailed(row int, err error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.failed == nil {
		r.failed = map[int]error{}
	}
	r.failed[row] = err
}

// scriptedGenerator answers each call with the next outcome and records prompts.
type scriptedGenerator struct {
	outcomes []llm.Outcome
	prompts  []string
	onCall   func(n int)
}

func (g *scriptedGenerator) Generate(_ context.Context, p string, _ llm.ProviderConfig) llm.Outcome {
	g.prompts = append(g.prompts, p)
	if g.onCall != nil {
		g.onCall(len(g.prompts))
	}
	if len(g.outcomes) == 0 {
		return llm.Outcome{Text: "Question: default\nAnswer: default"}
	}
	out := g.outcomes[0]
	g.outcomes = g.outcomes[1:]
	return out
}

func echoDispatcher() *llm.Dispatcher {
	return llm.NewDispatcher(llm.Deps{}, llm.WithFactory(
		func(context.Context, llm.ProviderConfig, llm.Deps) (llm.Provider, error) {
			return llm.NewStaticProvider("Question: Echo\nAnswer: Done"), nil
		},
	))
}

var openaiConfig = llm.ProviderConfig{Kind: llm.KindOpenAI, Model: "gpt-4o", APIKey: "test-key"}

func qaTable(rows ...[]string) *sheet.Table {
	return &sheet.Table{Headers: []string{"Questions", "Answers"}, Rows: rows}
}

func column(t *testing.T, tbl *sheet.Table, name string) []string {
	t.Helper()
	idx, ok := tbl.Column(name)
	require.True(t, ok, "column %q missing", name)
	out := make([]string, tbl.Len())
	for i := range out {
		out[i] = tbl.Cell(i, idx)
	}
	return out
}

func TestRun_EndToEnd(t *testing.T) {
	tbl := qaTable([]string{"I feel anxious", "Try breathing exercises"})
	runner := NewRunner(echoDispatcher(), Config{
		Template: "Q: {question} A: {answer}",
		Provider: openaiConfig,
	})

	sum, err := runner.Run(context.Background(), tbl)
	require.NoError(t, err)

	assert.Equal(t, []string{"Questions", "Answers", "Generated questions", "Generated answers"}, tbl.Headers)
	assert.Equal(t, []string{"Echo"}, column(t, tbl, GeneratedQuestionsColumn))
	assert.Equal(t, []string{"Done"}, column(t, tbl, GeneratedAnswersColumn))
	assert.Equal(t, 1, sum.Succeeded)
	assert.Equal(t, 0, sum.Failed)
}

func TestRun_RendersEachRow(t *testing.T) {
	gen := &scriptedGenerator{}
	tbl := qaTable([]string{"q1", "a1"}, []string{"q2", "a2"})
	runner := NewRunner(gen, Config{Template: "{answer}|{question}|{question}", Provider: openaiConfig})

	_, err := runner.Run(context.Background(), tbl)
	require.NoError(t, err)
	assert.Equal(t, []string{"a1|q1|q1", "a2|q2|q2"}, gen.prompts)
}

func TestRun_ProgressIsExact(t *testing.T) {
	const n = 7
	rows := make([][]string, n)
	for i := range rows {
		rows[i] = []string{"q", "a"}
	}
	rep := &recordingReporter{}
	runner := NewRunner(echoDispatcher(), Config{Template: "{question}", Provider: openaiConfig}, WithReporter(rep))

	_, err := runner.Run(context.Background(), qaTable(rows...))
	require.NoError(t, err)

	require.Len(t, rep.progress, n)
	prev := 0.0
	for i, p := range rep.progress {
		assert.Equal(t, [2]int{i + 1, n}, p)
		frac := Fraction(p[0], p[1])
		assert.Equal(t, float64(i+1)/float64(n), frac)
		assert.GreaterOrEqual(t, frac, prev)
		if i < n-1 {
			assert.Less(t, frac, 1.0)
		}
		prev = frac
	}
	assert.Equal(t, 1.0, prev)

	assert.Equal(t, "Processing row 1 of 7", rep.statuses[0])
	assert.True(t, strings.HasPrefix(rep.statuses[len(rep.statuses)-1], "Done in "))
}

func TestRun_FailedRowContinues(t *testing.T) {
	gen := &scriptedGenerator{outcomes: []llm.Outcome{
		{Text: "Question: first\nAnswer: one"},
		{Text: llm.FailureText, Err: &llm.ErrProviderUnavailable{StatusCode: 500}},
		{Text: "Question: third\nAnswer: three"},
	}}
	rep := &recordingReporter{}
	tbl := qaTable([]string{"q1", "a1"}, []string{"q2", "a2"}, []string{"q3", "a3"})
	runner := NewRunner(gen, Config{Template: "{question}", Provider: openaiConfig}, WithReporter(rep))

	sum, err := runner.Run(context.Background(), tbl)
	require.NoError(t, err)

	assert.Equal(t, []string{"first", "", "third"}, column(t, tbl, GeneratedQuestionsColumn))
	assert.Equal(t, []string{"one", "", "three"}, column(t, tbl, GeneratedAnswersColumn))
	assert.Equal(t, 2, sum.Succeeded)
	assert.Equal(t, 1, sum.Failed)

	require.Len(t, rep.failed, 1)
	var unavail *llm.ErrProviderUnavailable
	assert.ErrorAs(t, rep.failed[2], &unavail)
}

func TestRun_EmptyAnswerIsNotAFailure(t *testing.T) {
	gen := &scriptedGenerator{outcomes: []llm.Outcome{{Text: "Question: \nAnswer:"}}}
	rep := &recordingReporter{}
	runner := NewRunner(gen, Config{Template: "{question}", Provider: openaiConfig}, WithReporter(rep))

	sum, err := runner.Run(context.Background(), qaTable([]string{"q", "a"}))
	require.NoError(t, err)
	assert.Equal(t, 1, sum.Succeeded)
	assert.Empty(t, rep.failed)
}

func TestRun_ConfigurationErrors(t *testing.T) {
	tests := []struct {
		name string
		tbl  *sheet.Table
		cfg  llm.ProviderConfig
		want error
	}{
		{
			name: "missing questions column",
			tbl:  &sheet.Table{Headers: []string{"Answers"}, Rows: [][]string{{"a"}}},
			cfg:  openaiConfig,
			want: ErrMissingColumn,
		},
		{
			name: "missing answers column",
			tbl:  &sheet.Table{Headers: []string{"Questions"}, Rows: [][]string{{"q"}}},
			cfg:  openaiConfig,
			want: ErrMissingColumn,
		},
		{
			name: "missing credential",
			tbl:  qaTable([]string{"q", "a"}),
			cfg:  llm.ProviderConfig{Kind: llm.KindAnthropic},
			want: llm.ErrMissingCredential,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			gen := &scriptedGenerator{}
			headers := append([]string(nil), tt.tbl.Headers...)
			runner := NewRunner(gen, Config{Template: "{question}", Provider: tt.cfg})

			sum, err := runner.Run(context.Background(), tt.tbl)
			assert.Nil(t, sum)
			assert.ErrorIs(t, err, tt.want)
			assert.True(t, IsConfigurationError(err))
			assert.Empty(t, gen.prompts, "no row should be dispatched")
			assert.Equal(t, headers, tt.tbl.Headers, "table should be untouched")
		})
	}
}

func TestRun_NoTable(t *testing.T) {
	sum, err := NewRunner(&scriptedGenerator{}, Config{Provider: openaiConfig}).Run(context.Background(), nil)
	assert.Nil(t, sum)
	assert.ErrorIs(t, err, ErrNoTable)
	assert.True(t, IsConfigurationError(err))
}

func TestRun_EmptyTableGetsColumns(t *testing.T) {
	gen := &scriptedGenerator{}
	rep := &recordingReporter{}
	tbl := qaTable()

	sum, err := NewRunner(gen, Config{Template: "{question}", Provider: openaiConfig}, WithReporter(rep)).
		Run(context.Background(), tbl)
	require.NoError(t, err)
	assert.Equal(t, 0, sum.Rows)
	assert.Equal(t, 0, sum.Processed)
	assert.Empty(t, gen.prompts)
	assert.Equal(t, []string{"Questions", "Answers", GeneratedQuestionsColumn, GeneratedAnswersColumn}, tbl.Headers)
	assert.Empty(t, rep.progress)
}

func TestRun_UnsupportedProviderFailsEachRow(t *testing.T) {
	rep := &recordingReporter{}
	tbl := qaTable([]string{"q1", "a1"}, []string{"q2", "a2"})
	runner := NewRunner(llm.NewDispatcher(llm.Deps{}), Config{
		Template: "{question}",
		Provider: llm.ProviderConfig{Kind: "cohere", APIKey: "k"},
	}, WithReporter(rep))

	sum, err := runner.Run(context.Background(), tbl)
	require.NoError(t, err)
	assert.Equal(t, 2, sum.Processed)
	assert.Equal(t, 2, sum.Failed)
	assert.Equal(t, 0, sum.Succeeded)

	require.Len(t, rep.failed, 2)
	assert.ErrorIs(t, rep.failed[1], llm.ErrUnsupportedProvider)
	assert.ErrorIs(t, rep.failed[2], llm.ErrUnsupportedProvider)
	assert.Equal(t, [][2]int{{1, 2}, {2, 2}}, rep.progress)

	assert.Equal(t, []string{"", ""}, column(t, tbl, GeneratedQuestionsColumn))
	assert.Equal(t, []string{"", ""}, column(t, tbl, GeneratedAnswersColumn))
}

func TestRun_GatewayNeedsNoCredential(t *testing.T) {
	gen := &scriptedGenerator{}
	runner := NewRunner(gen, Config{Template: "{question}", Provider: llm.ProviderConfig{Kind: llm.KindGateway}})

	_, err := runner.Run(context.Background(), qaTable([]string{"q", "a"}))
	require.NoError(t, err)
	assert.Len(t, gen.prompts, 1)
}

func TestRun_PlaceholderInInput(t *testing.T) {
	t.Run("lenient renders verbatim", func(t *testing.T) {
		gen := &scriptedGenerator{}
		runner := NewRunner(gen, Config{Template: "[{question}] [{answer}]", Provider: openaiConfig})

		_, err := runner.Run(context.Background(), qaTable([]string{"what is {answer}?", "x"}))
		require.NoError(t, err)
		assert.Equal(t, []string{"[what is {answer}?] [x]"}, gen.prompts)
	})

	t.Run("strict fails the row", func(t *testing.T) {
		gen := &scriptedGenerator{}
		rep := &recordingReporter{}
		runner := NewRunner(gen, Config{
			Template:           "{question}",
			Provider:           openaiConfig,
			StrictPlaceholders: true,
		}, WithReporter(rep))

		tbl := qaTable([]string{"{question}", "a"}, []string{"fine", "a"})
		sum, err := runner.Run(context.Background(), tbl)
		require.NoError(t, err)
		assert.Equal(t, 1, sum.Failed)
		assert.Equal(t, []string{"fine"}, gen.prompts)
		assert.ErrorIs(t, rep.failed[1], prompt.ErrPlaceholderInInput)
		assert.Equal(t, []string{"", "default"}, column(t, tbl, GeneratedQuestionsColumn))
	})
}

func TestRun_Cancellation(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	gen := &scriptedGenerator{onCall: func(n int) {
		if n == 2 {
			cancel()
		}
	}}
	tbl := qaTable([]string{"q1", "a1"}, []string{"q2", "a2"}, []string{"q3", "a3"})
	runner := NewRunner(gen, Config{Template: "{question}", Provider: openaiConfig})

	sum, err := runner.Run(ctx, tbl)
	assert.ErrorIs(t, err, context.Canceled)
	require.NotNil(t, sum)
	assert.Equal(t, 2, sum.Processed)
	assert.Len(t, gen.prompts, 2)
	assert.Equal(t, []string{"default", "default", ""}, column(t, tbl, GeneratedQuestionsColumn))
	assert.Equal(t, []string{"default", "default", ""}, column(t, tbl, GeneratedAnswersColumn))
}

func TestRun_RecordsRun(t *testing.T) {
	s, err := store.Open(filepath.Join(t.TempDir(), "runs.db"))
	require.NoError(t, err)
	defer s.Close()

	disp := llm.NewDispatcher(llm.Deps{Events: s.EventRepo()}, llm.WithFactory(
		func(ctx context.Context, cfg llm.ProviderConfig, deps llm.Deps) (llm.Provider, error) {
			mock := llm.NewMockProvider(
				llm.MockResponse{Text: "Question: Echo\nAnswer: Done", Usage: llm.Usage{InputTokens: 10, OutputTokens: 5}},
			)
			return llm.WithLogging(mock, cfg.Kind, deps.Events, nil), nil
		},
	))

	runner := NewRunner(disp, Config{
		Template: "{question}",
		Provider: openaiConfig,
		Source:   "in.xlsx",
		Sheet:    "Sheet1",
	}, WithRunRepo(s.RunRepo()))

	sum, err := runner.Run(context.Background(), qaTable([]string{"q1", "a1"}, []string{"q2", "a2"}))
	require.NoError(t, err)
	require.NotEmpty(t, sum.RunID)

	run, err := s.RunRepo().GetRun(context.Background(), sum.RunID)
	require.NoError(t, err)
	assert.True(t, run.Finished())
	assert.Equal(t, "in.xlsx", run.Source)
	assert.Equal(t, "openai", run.Provider)
	assert.Equal(t, 2, run.Rows)
	assert.Equal(t, 2, run.Succeeded)

	events, err := s.EventRepo().RowEvents(context.Background(), sum.RunID)
	require.NoError(t, err)
	require.Len(t, events, 2)
	assert.Equal(t, 1, events[0].Row)
	assert.Equal(t, 2, events[1].Row)
	assert.Equal(t, 10, events[0].InputTokens)
}

func TestMultiReporter(t *testing.T) {
	a, b := &recordingReporter{}, &recordingReporter{}
	m := MultiReporter{a, b, LogReporter{}}

	m.Status("hi")
	m.Progress(1, 2)
	m.RowFailed(1, errors.New("x"))

	for _, r := range []*recordingReporter{a, b} {
		assert.Equal(t, []string{"hi"}, r.statuses)
		assert.Equal(t, [][2]int{{1, 2}}, r.progress)
		assert.Len(t, r.failed, 1)
	}
}

func TestFraction(t *testing.T) {
	assert.Equal(t, 0.0, Fraction(0, 0))
	assert.Equal(t, 0.5, Fraction(1, 2))
	assert.Equal(t, 1.0, Fraction(3, 3))
}
