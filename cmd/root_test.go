package cmd

import (
	"context"
	"errors"
	"fmt"
	"syscall"
	"testing"

	"github.com/smazurov/ffrun/internal/ffmpeg"
	"github.com/smazurov/ffrun/internal/process"
	"github.com/smazurov/ffrun/internal/runner"
)

func TestRunExitCode(t *testing.T) {
	tests := []struct {
		name   string
		result runner.Result
		err    error
		want   int
	}{
		{"success", runner.Result{}, nil, ExitOK},
		{"non-zero exit", runner.Result{Exit: process.ExitStatus{Code: 3}}, nil, 3},
		{"signaled", runner.Result{Exit: process.ExitStatus{Code: -1, Signal: syscall.SIGKILL}}, nil, 137},
		{"config error", runner.Result{}, &ffmpeg.ConfigError{Err: ffmpeg.ErrProgressFlag}, ExitUsage},
		{
			"binary not found", runner.Result{},
			&process.SpawnError{Err: fmt.Errorf("%w: %q", ffmpeg.ErrBinaryNotFound, "ffmpeg")},
			ExitNotFound,
		},
		{"start failure", runner.Result{}, &process.SpawnError{Err: errors.New("permission denied")}, ExitCannotExec},
		{"tool error", runner.Result{}, &runner.ToolError{Exit: process.ExitStatus{Code: 1}}, 1},
		{"tool error exit 0", runner.Result{}, &runner.ToolError{Exit: process.ExitStatus{Code: 0}}, ExitFailure},
		{"tool error exit 8", runner.Result{}, &runner.ToolError{Exit: process.ExitStatus{Code: 8}}, 8},
		{"cancelled", runner.Result{}, context.Canceled, ExitInterrupted},
		{"timeout", runner.Result{}, context.DeadlineExceeded, ExitTimeout},
		{"stream error", runner.Result{}, &process.StreamError{Source: process.SourceStderr, Err: errors.New("boom")}, ExitFailure},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := runExitCode(tt.result, tt.err); got != tt.want {
				t.Errorf("runExitCode() = %d, want %d", got, tt.want)
			}
		})
	}
}

func TestExitCode(t *testing.T) {
	if got := ExitCode(nil); got != ExitOK {
		t.Errorf("ExitCode(nil) = %d", got)
	}
	if got := ExitCode(errors.New("unknown flag")); got != ExitFailure {
		t.Errorf("ExitCode(plain) = %d, want %d", got, ExitFailure)
	}
	wrapped := fmt.Errorf("run: %w", &ExitError{Code: 42})
	if got := ExitCode(wrapped); got != 42 {
		t.Errorf("ExitCode(wrapped) = %d, want 42", got)
	}
}
