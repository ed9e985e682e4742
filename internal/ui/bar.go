// Package ui renders batch progress and interactive prompts in the terminal.
package ui

import (
	"fmt"
	"io"
	"sync"

	"github.com/theanmol-raj/qnagen/internal/ui/components"
	"github.com/theanmol-raj/qnagen/internal/ui/theme"
)

// BarReporter redraws a single progress line on w. The latest status is the
// bar's label; row failures and the final status are printed above it.
type BarReporter struct {
	mu  sync.Mutex
	w   io.Writer
	bar components.ProgressBar
}

// NewBarReporter creates a BarReporter of the given width.
func NewBarReporter(w io.Writer, width int) *BarReporter {
	return &BarReporter{w: w, bar: components.NewProgressBar("Generating", width)}
}

func (b *BarReporter) Status(msg string) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.bar.Total > 0 && b.bar.Done == b.bar.Total {
		b.println(theme.OK.Render(msg))
		return
	}
	b.bar.Label = msg
	if b.bar.Total > 0 {
		b.redraw()
	}
}

func (b *BarReporter) Progress(done, total int) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.bar.Done, b.bar.Total = done, total
	b.redraw()
}

func (b *BarReporter) RowFailed(row int, err error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.println(theme.Failed.Render(fmt.Sprintf("Row %d failed:", row)) + " " + err.Error())
}

// println clears the bar line, writes s and redraws the bar under it.
func (b *BarReporter) println(s string) {
	fmt.Fprint(b.w, "\r\033[2K"+s+"\n")
	if b.bar.Total > 0 && b.bar.Done < b.bar.Total {
		b.redraw()
	}
}

func (b *BarReporter) redraw() {
	fmt.Fprint(b.w, "\r\033[2K"+b.bar.View())
	if b.bar.Done >= b.bar.Total {
		fmt.Fprint(b.w, "\n")
	}
}
