// Package progressbar renders run progress on a terminal.
package progressbar

import (
	"fmt"
	"io"
	"sync"
	"time"

	"github.com/schollz/progressbar/v3"
)

// Renderer draws progress measured in milliseconds of output time.
type Renderer interface {
	// SetTotal sets the bar length. Called once, before the first AdvanceTo.
	SetTotal(totalMs int64)
	// AdvanceTo moves the bar to an absolute position. Callers never move it backwards.
	AdvanceTo(positionMs int64)
	// Close ends the bar. It is safe to call more than once.
	Close() error
}

// Factory creates a renderer with the given label.
type Factory func(label string) Renderer

// Terminal renders a bar with schollz/progressbar.
type Terminal struct {
	mu     sync.Mutex
	w      io.Writer
	label  string
	bar    *progressbar.ProgressBar
	closed bool
}

// NewTerminal creates a bar writing to w. Nothing is drawn until SetTotal.
func NewTerminal(w io.Writer, label string) *Terminal {
	return &Terminal{w: w, label: label}
}

// TerminalFactory returns a Factory drawing to w.
func TerminalFactory(w io.Writer) Factory {
	return func(label string) Renderer {
		return NewTerminal(w, label)
	}
}

func (t *Terminal) SetTotal(totalMs int64) {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.closed || totalMs <= 0 {
		return
	}
	if t.bar != nil {
		t.bar.ChangeMax64(totalMs)
		return
	}
	t.bar = progressbar.NewOptions64(totalMs,
		progressbar.OptionSetWriter(t.w),
		progressbar.OptionSetDescription(t.label),
		progressbar.OptionSetPredictTime(true),
		progressbar.OptionSetRenderBlankState(true),
		progressbar.OptionThrottle(100*time.Millisecond),
		progressbar.OptionFullWidth(),
		progressbar.OptionOnCompletion(func() {
			fmt.Fprintln(t.w)
		}),
	)
}

func (t *Terminal) AdvanceTo(positionMs int64) {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.closed || t.bar == nil {
		return
	}
	_ = t.bar.Set64(positionMs)
}

// Close leaves the bar where it is. An unfinished bar gets a newline so
// following output starts on its own line.
func (t *Terminal) Close() error {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.closed {
		return nil
	}
	t.closed = true
	if t.bar == nil || t.bar.IsFinished() {
		return nil
	}
	_, err := fmt.Fprintln(t.w)
	return err
}

// Noop discards progress.
type Noop struct{}

func (Noop) SetTotal(int64) {}

func (Noop) AdvanceTo(int64) {}

func (Noop) Close() error { return nil }
