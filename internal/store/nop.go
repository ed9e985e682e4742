package store

import (
	"context"

	"github.com/google/uuid"
)

// NopStore discards everything. Used when run history is disabled.
type NopStore struct{}

func NewNopStore() *NopStore { return &NopStore{} }

func (NopStore) StartRun(context.Context, RunData) (string, error)  { return uuid.NewString(), nil }
func (NopStore) FinishRun(context.Context, string, int, int) error  { return nil }
func (NopStore) ListRuns(context.Context, QueryOpts) ([]Run, error) { return nil, nil }
func (NopStore) GetRun(_ context.Context, id string) (*Run, error)  { return nil, ErrNotFound }
func (NopStore) AppendRowEvent(context.Context, RowEventData) error { return nil }
func (NopStore) RowEvents(context.Context, string) ([]RowEvent, error) {
	return nil, nil
}
func (NopStore) UsageByModel(context.Context) ([]ModelUsage, error) { return nil, nil }
