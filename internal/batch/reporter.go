package batch

import "log/slog"

// Reporter observes batch progress. Row numbers are 1-indexed data rows.
type Reporter interface {
	// Status receives a human readable status line.
	Status(msg string)
	// Progress is called after each row with done of total rows processed.
	Progress(done, total int)
	// RowFailed is called when the model call for a row failed.
	RowFailed(row int, err error)
}

// Fraction returns done/total, or 0 when total is 0.
func Fraction(done, total int) float64 {
	if total <= 0 {
		return 0
	}
	return float64(done) / float64(total)
}

// LogReporter writes progress to a structured logger.
type LogReporter struct {
	Logger *slog.Logger
}

func (r LogReporter) logger() *slog.Logger {
	if r.Logger == nil {
		return slog.Default()
	}
	return r.Logger
}

func (r LogReporter) Status(msg string) { r.logger().Info(msg) }

func (r LogReporter) Progress(done, total int) {
	r.logger().Debug("progress", "done", done, "total", total, "fraction", Fraction(done, total))
}

func (r LogReporter) RowFailed(row int, err error) {
	r.logger().Warn("row failed", "row", row, "error", err)
}

// MultiReporter fans every call out to each reporter in order.
type MultiReporter []Reporter

func (m MultiReporter) Status(msg string) {
	for _, r := range m {
		r.Status(msg)
	}
}

func (m MultiReporter) Progress(done, total int) {
	for _, r := range m {
		r.Progress(done, total)
	}
}

func (m MultiReporter) RowFailed(row int, err error) {
	for _, r := range m {
		r.RowFailed(row, err)
	}
}

type nopReporter struct{}

func (nopReporter) Status(string)        {}
func (nopReporter) Progress(int, int)    {}
func (nopReporter) RowFailed(int, error) {}
