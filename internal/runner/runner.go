// Package runner executes one ffmpeg invocation and reports its progress,
// diagnostics and outcome to caller-supplied observers.
package runner

import (
	"context"
	"errors"
	"os"
	"slices"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/smazurov/ffrun/internal/ffmpeg"
	"github.com/smazurov/ffrun/internal/logging"
	"github.com/smazurov/ffrun/internal/process"
	"github.com/smazurov/ffrun/internal/progressbar"
)

// Result summarizes a finished run.
type Result struct {
	RunID string
	// Args is the argument list that was executed, as built from the command.
	Args []string
	Exit process.ExitStatus
	// ErrorLines holds the lines of every error block, in order.
	ErrorLines   []string
	Warnings     int
	Snapshots    int
	LastProgress *ffmpeg.Progress
	// StderrTail holds the last raw stderr lines.
	StderrTail []string
	Elapsed    time.Duration
}

// Success reports a zero exit without error lines.
func (r Result) Success() bool {
	return r.Exit.Code == 0 && !r.Exit.Signaled() && len(r.ErrorLines) == 0
}

// Run builds the invocation for cmd, runs it to completion and returns the
// result. Errors, in the order they can occur:
//   - *ffmpeg.ConfigError: the command or the pattern table is invalid; nothing ran
//   - *process.SpawnError: the binary was not found or could not be started
//   - ctx.Err() or *process.StreamError: the run was cut short; the result is still filled
//   - *ToolError: error lines were seen and opts.RaiseOnError is set
//
// A non-zero exit without error lines is not an error; check Result.Success.
func Run(ctx context.Context, cmd ffmpeg.Command, opts Options, obs Observers) (Result, error) {
	logger := opts.Logger
	if logger == nil {
		logger = logging.Discard()
	}
	runID := opts.RunID
	if runID == "" {
		runID = uuid.NewString()
	}
	result := Result{RunID: runID}

	args, err := ffmpeg.BuildInvocation(cmd, opts.Overwrite)
	if err != nil {
		logger.Error("Invalid command", "run_id", runID, "error", err)
		return result, err
	}
	result.Args = args

	table := ffmpeg.DefaultPatterns()
	if opts.Patterns != nil {
		table = *opts.Patterns
	}
	classifier, err := ffmpeg.NewClassifier(table)
	if err != nil {
		cfgErr := &ffmpeg.ConfigError{Err: err}
		logger.Error("Invalid diagnostic patterns", "run_id", runID, "error", err)
		return result, cfgErr
	}

	resolver := opts.Resolver
	if resolver == nil {
		resolver = ffmpeg.PathResolver{}
	}
	binary, err := resolver.Resolve(args[0])
	if err != nil {
		logger.Error("Binary not found", "run_id", runID, "binary", args[0], "error", err)
		return result, &process.SpawnError{Args: args, Err: err}
	}
	execArgs := append([]string{binary}, args[1:]...)

	state := &runState{
		opts:   &opts,
		obs:    obs,
		logger: logger,
		runID:  runID,
		tail:   newTail(opts.StderrTailLines),
	}
	defer state.closeRenderer()

	decoder := ffmpeg.NewDecoder(ffmpeg.NewProgressParser(probeDuration(ctx, opts.Prober, args, logger)), classifier, state)
	if opts.ToolLogger != nil {
		decoder.SetToolLogger(opts.ToolLogger)
	}

	var sessionOpts []process.SessionOption
	if opts.GracefulTimeout > 0 {
		sessionOpts = append(sessionOpts, process.WithGracefulTimeout(opts.GracefulTimeout))
	}
	if opts.KillTimeout > 0 {
		sessionOpts = append(sessionOpts, process.WithKillTimeout(opts.KillTimeout))
	}
	session := process.NewSession(runID, execArgs, decoder, logger, sessionOpts...)

	logger.Info("Run started", "run_id", runID, "command", strings.Join(args, " "))
	processResult, runErr := session.Run(ctx)

	var spawnErr *process.SpawnError
	if errors.As(runErr, &spawnErr) {
		return result, runErr
	}

	// The session returned only after both pumps finished, so the
	// per-stream state below is no longer written to.
	result.Exit = processResult.Exit
	result.Elapsed = processResult.Elapsed
	result.ErrorLines = state.errorLines
	result.Warnings = state.warnings
	result.Snapshots = state.snapshots
	result.LastProgress = state.last
	result.StderrTail = state.tail.snapshot()

	logger.Info("Run finished",
		"run_id", runID,
		"exit", result.Exit.String(),
		"error_lines", len(result.ErrorLines),
		"warnings", result.Warnings,
		"elapsed", result.Elapsed,
	)

	if len(result.ErrorLines) > 0 && obs.Error != nil {
		obs.Error.OnError(slices.Clone(result.ErrorLines))
	}

	if runErr != nil {
		return result, runErr
	}

	if len(result.ErrorLines) > 0 && opts.RaiseOnError {
		return result, &ToolError{
			Args:        slices.Clone(args),
			UserCommand: cmd.String(),
			Lines:       slices.Clone(result.ErrorLines),
			Exit:        result.Exit,
		}
	}

	if !result.Success() && len(result.ErrorLines) == 0 {
		logger.Warn("Process failed without error output",
			"run_id", runID,
			"exit", result.Exit.String(),
			"stderr_tail", strings.Join(result.StderrTail, "\n"),
		)
	}
	return result, nil
}

// probeDuration asks the prober for the duration of the first input.
// Failure only disables completion.
func probeDuration(ctx context.Context, prober Prober, args []string, logger logging.Logger) *int64 {
	if prober == nil {
		return nil
	}
	inputs := ffmpeg.InputFiles(args)
	if len(inputs) == 0 {
		return nil
	}
	input := inputs[0]
	// stdin inputs can't be probed without consuming them
	if input == "-" || strings.HasPrefix(input, "pipe:") {
		return nil
	}

	ms, err := prober.ProbeDuration(ctx, input)
	if err != nil {
		logger.Warn("Duration probe failed, completion unavailable", "input", input, "error", err)
		return nil
	}
	return &ms
}

// runState receives decoded output. Stdout fields are touched only by the
// stdout goroutine and stderr fields only by the stderr goroutine.
type runState struct {
	opts   *Options
	obs    Observers
	logger logging.Logger
	runID  string

	// stdout side
	renderer  progressbar.Renderer
	position  int64
	snapshots int
	last      *ffmpeg.Progress

	// stderr side
	errorLines []string
	warnings   int
	tail       *tail
}

func (s *runState) OnStdoutLine(line string) {
	if s.obs.Stdout != nil {
		s.obs.Stdout.OnStdout(line)
	}
}

func (s *runState) OnProgress(p ffmpeg.Progress) {
	s.snapshots++
	snapshot := p
	s.last = &snapshot
	s.advanceBar(p)
	if s.obs.Status != nil {
		s.obs.Status.OnStatus(p)
	}
}

func (s *runState) OnStderrLine(line string) {
	s.tail.add(line)
	if s.obs.Stderr != nil {
		s.obs.Stderr.OnStderr(line)
	}
}

func (s *runState) OnDiagnostic(d ffmpeg.Diagnostic) {
	switch d.Kind {
	case ffmpeg.DiagnosticWarning:
		s.warnings++
		if s.obs.Warning != nil {
			s.obs.Warning.OnWarning(d.Text())
		}
	case ffmpeg.DiagnosticError:
		s.errorLines = append(s.errorLines, d.Lines...)
		s.logger.Debug("Error block", "run_id", s.runID, "lines", len(d.Lines))
	}
}

// advanceBar creates the bar on the first snapshot that knows the duration
// and moves it to the furthest output time seen.
func (s *runState) advanceBar(p ffmpeg.Progress) {
	if !s.opts.ProgressBar || p.DurationMs == nil {
		return
	}
	if s.renderer == nil {
		factory := s.opts.NewRenderer
		if factory == nil {
			factory = progressbar.TerminalFactory(os.Stderr)
		}
		s.renderer = factory(s.opts.ProgressBarLabel)
		s.renderer.SetTotal(*p.DurationMs)
	}
	if p.OutTimeMs == nil {
		return
	}
	target := min(*p.OutTimeMs, *p.DurationMs)
	if target > s.position {
		s.position = target
		s.renderer.AdvanceTo(target)
	}
}

func (s *runState) closeRenderer() {
	if s.renderer == nil {
		return
	}
	if err := s.renderer.Close(); err != nil {
		s.logger.Warn("Failed to close progress bar", "run_id", s.runID, "error", err)
	}
}
