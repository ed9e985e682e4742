package store

import (
	"context"
	"database/sql"
	"fmt"
	"time"
)

// eventRepo implements EventRepo on the row_events table.
type eventRepo struct {
	db *sql.DB
}

func (r *eventRepo) AppendRowEvent(ctx context.Context, data RowEventData) error {
	_, err := r.db.ExecContext(ctx,
		`INSERT INTO row_events (run_id, row_index, timestamp, provider, model,
			input_tokens, output_tokens, latency_ms, success, error_message,
			request_body, response_body)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		data.RunID, data.Row, time.Now().UnixMilli(), data.Provider, data.Model,
		data.InputTokens, data.OutputTokens, data.LatencyMs, data.Success, data.ErrorMessage,
		data.RequestBody, data.ResponseBody,
	)
	if err != nil {
		return fmt.Errorf("save row event: %w", err)
	}
	return nil
}

func (r *eventRepo) RowEvents(ctx context.Context, runID string) ([]RowEvent, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT id, timestamp, run_id, row_index, provider, model, input_tokens,
			output_tokens, latency_ms, success, error_message, request_body, response_body
		 FROM row_events WHERE run_id = ? ORDER BY row_index, id`,
		runID,
	)
	if err != nil {
		return nil, fmt.Errorf("query row events: %w", err)
	}
	defer rows.Close()

	var out []RowEvent
	for rows.Next() {
		var (
			e  RowEvent
			ts int64
		)
		err := rows.Scan(&e.ID, &ts, &e.RunID, &e.Row, &e.Provider, &e.Model,
			&e.InputTokens, &e.OutputTokens, &e.LatencyMs, &e.Success,
			&e.ErrorMessage, &e.RequestBody, &e.ResponseBody)
		if err != nil {
			return nil, fmt.Errorf("scan row event: %w", err)
		}
		e.Timestamp = time.UnixMilli(ts)
		out = append(out, e)
	}
	return out, rows.Err()
}

func (r *eventRepo) UsageByModel(ctx context.Context) ([]ModelUsage, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT model, COUNT(*), SUM(CASE WHEN success THEN 0 ELSE 1 END),
			SUM(input_tokens), SUM(output_tokens), CAST(AVG(latency_ms) AS INTEGER)
		 FROM row_events GROUP BY model ORDER BY model`,
	)
	if err != nil {
		return nil, fmt.Errorf("query usage: %w", err)
	}
	defer rows.Close()

	var out []ModelUsage
	for rows.Next() {
		var u ModelUsage
		if err := rows.Scan(&u.Model, &u.Calls, &u.Failures, &u.InputTokens, &u.OutputTokens, &u.AvgLatencyMs); err != nil {
			return nil, fmt.Errorf("scan usage: %w", err)
		}
		out = append(out, u)
	}
	return out, rows.Err()
}
