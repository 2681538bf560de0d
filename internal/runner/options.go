package runner

import (
	"context"
	"time"

	"github.com/smazurov/ffrun/internal/ffmpeg"
	"github.com/smazurov/ffrun/internal/logging"
	"github.com/smazurov/ffrun/internal/progressbar"
)

// Resolver locates the executable named by the first argument.
type Resolver interface {
	Resolve(name string) (string, error)
}

// Prober reports the duration of an input in milliseconds.
type Prober interface {
	ProbeDuration(ctx context.Context, input string) (int64, error)
}

// Options configures a run. Start from DefaultOptions; the zero value
// disables RaiseOnError.
type Options struct {
	// Overwrite appends -y unless the command already has it.
	Overwrite bool
	// RaiseOnError makes Run return a *ToolError when error lines were seen.
	RaiseOnError bool

	// ProgressBar draws a bar once a snapshot carries a duration.
	ProgressBar      bool
	ProgressBarLabel string
	// NewRenderer creates the bar. Nil draws to stderr.
	NewRenderer progressbar.Factory

	// Resolver locates the binary. Nil searches PATH.
	Resolver Resolver
	// Prober supplies the total duration of the first input. Nil disables
	// completion and the progress bar.
	Prober Prober

	// Patterns classifies stderr. Nil uses ffmpeg.DefaultPatterns.
	Patterns *ffmpeg.PatternTable

	// Logger receives run lifecycle logs. Nil discards them.
	Logger logging.Logger
	// ToolLogger receives every stderr line at its ffmpeg log level. Nil disables.
	ToolLogger logging.Logger

	// RunID identifies the run in logs. Empty generates a UUID.
	RunID string
	// StderrTailLines is how many raw stderr lines Result keeps.
	StderrTailLines int
	// GracefulTimeout is how long the tool gets after SIGINT before SIGKILL.
	GracefulTimeout time.Duration
	// KillTimeout is how long to wait for the streams after SIGKILL.
	KillTimeout time.Duration
}

// DefaultOptions returns the default run options.
func DefaultOptions() Options {
	return Options{
		RaiseOnError:     true,
		ProgressBarLabel: "ffmpeg",
		StderrTailLines:  20,
		GracefulTimeout:  5 * time.Second,
		KillTimeout:      5 * time.Second,
	}
}
