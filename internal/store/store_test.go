package store

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func openTestStore(t *testing.T) *Store {
	t.Helper()
	s, err := Open(filepath.Join(t.TempDir(), "test.db"))
	require.NoError(t, err, "open test store")
	t.Cleanup(func() { s.Close() })
	return s
}

func TestPragmasApplied(t *testing.T) {
	s := openTestStore(t)

	tests := []struct {
		pragma string
		want   string
	}{
		{"journal_mode", "wal"},
		{"foreign_keys", "1"},
		{"synchronous", "1"}, // NORMAL = 1
	}

	for _, tt := range tests {
		var got string
		err := s.DB().QueryRow("PRAGMA " + tt.pragma).Scan(&got)
		require.NoError(t, err, "PRAGMA %s", tt.pragma)
		assert.Equal(t, tt.want, got, "PRAGMA %s", tt.pragma)
	}
}

func TestOpenIsIdempotent(t *testing.T) {
	path := filepath.Join(t.TempDir(), "twice.db")
	s1, err := Open(path)
	require.NoError(t, err)
	require.NoError(t, s1.Close())

	s2, err := Open(path)
	require.NoError(t, err)
	require.NoError(t, s2.Close())
}

func TestRunLifecycle(t *testing.T) {
	s := openTestStore(t)
	repo := s.RunRepo()
	ctx := context.Background()

	id, err := repo.StartRun(ctx, RunData{
		Source:   "input.xlsx",
		Sheet:    "Sheet1",
		Provider: "openai",
		Model:    "gpt-4o",
		Rows:     3,
	})
	require.NoError(t, err)
	require.NotEmpty(t, id)

	run, err := repo.GetRun(ctx, id)
	require.NoError(t, err)
	assert.False(t, run.Finished())
	assert.Equal(t, "input.xlsx", run.Source)
	assert.Equal(t, 3, run.Rows)

	require.NoError(t, repo.FinishRun(ctx, id, 2, 1))

	run, err = repo.GetRun(ctx, id[:8])
	require.NoError(t, err, "lookup by prefix")
	assert.True(t, run.Finished())
	assert.Equal(t, 2, run.Succeeded)
	assert.Equal(t, 1, run.Failed)
}

func TestFinishUnknownRun(t *testing.T) {
	s := openTestStore(t)
	err := s.RunRepo().FinishRun(context.Background(), "nope", 0, 0)
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestGetRunNotFound(t *testing.T) {
	s := openTestStore(t)
	_, err := s.RunRepo().GetRun(context.Background(), "missing")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestListRunsLimit(t *testing.T) {
	s := openTestStore(t)
	repo := s.RunRepo()
	ctx := context.Background()

	for i := 0; i < 4; i++ {
		_, err := repo.StartRun(ctx, RunData{Provider: "mock", Model: "mock"})
		require.NoError(t, err)
	}

	all, err := repo.ListRuns(ctx, QueryOpts{})
	require.NoError(t, err)
	assert.Len(t, all, 4)

	some, err := repo.ListRuns(ctx, QueryOpts{Limit: 2})
	require.NoError(t, err)
	assert.Len(t, some, 2)
}

func TestRowEventsAndUsage(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()

	runID, err := s.RunRepo().StartRun(ctx, RunData{Provider: "openai", Model: "gpt-4o"})
	require.NoError(t, err)

	events := s.EventRepo()
	require.NoError(t, events.AppendRowEvent(ctx, RowEventData{
		RunID: runID, Row: 2, Provider: "openai", Model: "gpt-4o",
		InputTokens: 10, OutputTokens: 20, LatencyMs: 100, Success: true,
		RequestBody: "prompt", ResponseBody: "Question: a\nAnswer: b",
	}))
	require.NoError(t, events.AppendRowEvent(ctx, RowEventData{
		RunID: runID, Row: 1, Provider: "openai", Model: "gpt-4o",
		LatencyMs: 50, Success: false, ErrorMessage: "boom",
	}))

	got, err := events.RowEvents(ctx, runID)
	require.NoError(t, err)
	require.Len(t, got, 2)
	assert.Equal(t, 1, got[0].Row, "events ordered by row")
	assert.False(t, got[0].Success)
	assert.Equal(t, "boom", got[0].ErrorMessage)
	assert.True(t, got[1].Success)
	assert.Equal(t, "prompt", got[1].RequestBody)

	usage, err := events.UsageByModel(ctx)
	require.NoError(t, err)
	require.Len(t, usage, 1)
	assert.Equal(t, ModelUsage{
		Model: "gpt-4o", Calls: 2, Failures: 1,
		InputTokens: 10, OutputTokens: 20, AvgLatencyMs: 75,
	}, usage[0])
}

func TestNopStore(t *testing.T) {
	var (
		runs   RunRepo   = NewNopStore()
		events EventRepo = NewNopStore()
	)
	ctx := context.Background()

	id, err := runs.StartRun(ctx, RunData{})
	require.NoError(t, err)
	assert.NotEmpty(t, id)
	assert.NoError(t, runs.FinishRun(ctx, id, 1, 0))
	assert.NoError(t, events.AppendRowEvent(ctx, RowEventData{RunID: id}))

	_, err = runs.GetRun(ctx, id)
	assert.ErrorIs(t, err, ErrNotFound)
}
