// Package cmd implements the ffrun command line.
package cmd

import (
	"context"
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/smazurov/ffrun/internal/ffmpeg"
	"github.com/smazurov/ffrun/internal/process"
	"github.com/smazurov/ffrun/internal/runner"
	"github.com/smazurov/ffrun/internal/version"
)

// Exit statuses besides the tool's own exit code.
const (
	ExitOK          = 0
	ExitFailure     = 1
	ExitUsage       = 2
	ExitTimeout     = 124
	ExitCannotExec  = 126
	ExitNotFound    = 127
	ExitInterrupted = 130
)

// ExitError carries the process exit status for main.
type ExitError struct {
	Code int
	Err  error
}

func (e *ExitError) Error() string {
	if e.Err == nil {
		return fmt.Sprintf("exit status %d", e.Code)
	}
	return e.Err.Error()
}

func (e *ExitError) Unwrap() error { return e.Err }

// ExitCode maps an error returned by Execute to a process exit status.
func ExitCode(err error) int {
	if err == nil {
		return ExitOK
	}
	var exitErr *ExitError
	if errors.As(err, &exitErr) {
		return exitErr.Code
	}
	return ExitFailure
}

// NewRootCmd creates the ffrun command tree.
func NewRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:   "ffrun",
		Short: "Run ffmpeg with progress, diagnostics and metrics",
		Long: `ffrun runs an ffmpeg command, parses its machine-readable progress, ` +
			`classifies its stderr into warnings and errors and reports the outcome.`,
		Version:       version.String(),
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.AddCommand(CreateRunCmd(), CreateProbeCmd(), CreateVersionCmd())
	return root
}

// runExitCode derives the exit status from the return values of runner.Run.
func runExitCode(result runner.Result, err error) int {
	var (
		cfgErr   *ffmpeg.ConfigError
		spawnErr *process.SpawnError
		toolErr  *runner.ToolError
	)
	switch {
	case err == nil:
		if result.Exit.Signaled() || result.Exit.Code != 0 {
			return toolExitCode(result.Exit)
		}
		return ExitOK
	case errors.As(err, &cfgErr):
		return ExitUsage
	case errors.As(err, &spawnErr):
		if isNotFound(err) {
			return ExitNotFound
		}
		return ExitCannotExec
	case errors.As(err, &toolErr):
		if code := toolExitCode(toolErr.Exit); code != ExitOK {
			return code
		}
		return ExitFailure
	case errors.Is(err, context.DeadlineExceeded):
		return ExitTimeout
	case errors.Is(err, context.Canceled):
		return ExitInterrupted
	default:
		return ExitFailure
	}
}

// toolExitCode follows the shell convention of 128+n for signals.
func toolExitCode(exit process.ExitStatus) int {
	if exit.Signaled() {
		return 128 + int(exit.Signal)
	}
	return exit.Code
}

func isNotFound(err error) bool {
	return errors.Is(err, ffmpeg.ErrBinaryNotFound)
}
