package llm

import "context"

type contextKey string

const rowKey contextKey = "llm_row"

// RowRef identifies the spreadsheet row a request was made for.
type RowRef struct {
	RunID string
	Row   int
}

// WithRow attaches the run and row to the context for event logging.
func WithRow(ctx context.Context, runID string, row int) context.Context {
	return context.WithValue(ctx, rowKey, RowRef{RunID: runID, Row: row})
}

// RowFrom extracts the row reference from the context.
func RowFrom(ctx context.Context) (RowRef, bool) {
	ref, ok := ctx.Value(rowKey).(RowRef)
	return ref, ok
}
