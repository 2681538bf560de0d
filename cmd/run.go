package cmd

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/google/uuid"
	"github.com/mattn/go-isatty"
	"github.com/spf13/cobra"

	"github.com/smazurov/ffrun/internal/config"
	"github.com/smazurov/ffrun/internal/events"
	"github.com/smazurov/ffrun/internal/ffmpeg"
	"github.com/smazurov/ffrun/internal/logging"
	"github.com/smazurov/ffrun/internal/metrics"
	"github.com/smazurov/ffrun/internal/progressbar"
	"github.com/smazurov/ffrun/internal/runner"
	"github.com/smazurov/ffrun/internal/systemd"
)

// Progress bar modes.
const (
	ProgressAuto = "auto"
	ProgressOn   = "on"
	ProgressOff  = "off"
)

// finishWait bounds how long the CLI waits for subscribers to see the
// final event.
const finishWait = 2 * time.Second

// RunOptions are the settings of `ffrun run`. Fields with toml and env tags
// can also come from the config file and FFRUN_ variables.
type RunOptions struct {
	Config string

	Command         string        `toml:"run.command" env:"COMMAND"`
	Overwrite       bool          `toml:"run.overwrite" env:"OVERWRITE"`
	NoRaise         bool          `toml:"run.no_raise" env:"NO_RAISE"`
	Progress        string        `toml:"run.progress" env:"PROGRESS"`
	Label           string        `toml:"run.label" env:"LABEL"`
	Probe           bool          `toml:"run.probe" env:"PROBE"`
	ProbeBinary     string        `toml:"run.probe_binary" env:"PROBE_BINARY"`
	PrintStdout     bool          `toml:"run.print_stdout" env:"PRINT_STDOUT"`
	PrintStderr     bool          `toml:"run.print_stderr" env:"PRINT_STDERR"`
	Summary         bool          `toml:"run.summary" env:"SUMMARY"`
	Timeout         time.Duration `toml:"run.timeout" env:"TIMEOUT"`
	GracefulTimeout time.Duration `toml:"run.graceful_timeout" env:"GRACEFUL_TIMEOUT"`
	KillTimeout     time.Duration `toml:"run.kill_timeout" env:"KILL_TIMEOUT"`
	StderrTailLines int           `toml:"run.stderr_tail_lines" env:"STDERR_TAIL_LINES"`

	MetricsTextfile string `toml:"metrics.textfile" env:"METRICS_TEXTFILE"`

	LogLevel  string `toml:"logging.level" env:"LOG_LEVEL"`
	LogFormat string `toml:"logging.format" env:"LOG_FORMAT"`
}

// CreateRunCmd creates the run command.
func CreateRunCmd() *cobra.Command {
	defaults := runner.DefaultOptions()
	opts := &RunOptions{}

	cmd := &cobra.Command{
		Use:   "run [flags] [--] <ffmpeg> [args...]",
		Short: "Run an ffmpeg command",
		Long: `Runs the given ffmpeg command with -progress pipe:1 appended, draws a progress bar ` +
			`when the input duration is known and fails with the tool's own error lines.

The command is taken from the arguments or, with --command, from a single string
split on whitespace with quotes honored.`,
		Example: `  ffrun run -y -- ffmpeg -i in.mp4 -c:v libx264 out.mp4
  ffrun run --command "ffmpeg -i 'my input.mov' out.webm" --summary`,
		RunE: func(c *cobra.Command, args []string) error {
			if err := config.LoadConfig(opts, c); err != nil {
				return &ExitError{Code: ExitUsage, Err: err}
			}
			return runCommand(c, opts, args)
		},
	}
	// Everything after the program name belongs to ffmpeg.
	cmd.Flags().SetInterspersed(false)

	flags := cmd.Flags()
	flags.StringVarP(&opts.Config, "config", "c", "ffrun.toml", "Path to configuration file")
	flags.StringVar(&opts.Command, "command", "", "Command line to run instead of positional arguments")
	flags.BoolVarP(&opts.Overwrite, "overwrite", "y", false, "Append -y so existing outputs are overwritten")
	flags.BoolVar(&opts.NoRaise, "no-raise", !defaults.RaiseOnError, "Do not fail when ffmpeg printed error lines")
	flags.StringVar(&opts.Progress, "progress", ProgressAuto, "Progress bar: auto, on or off")
	flags.StringVar(&opts.Label, "label", defaults.ProgressBarLabel, "Progress bar label")
	flags.BoolVar(&opts.Probe, "probe", true, "Probe the first input with ffprobe for its duration")
	flags.StringVar(&opts.ProbeBinary, "probe-binary", "ffprobe", "ffprobe executable")
	flags.BoolVar(&opts.PrintStdout, "print-stdout", false, "Relay raw progress output to stdout")
	flags.BoolVar(&opts.PrintStderr, "print-stderr", false, "Relay ffmpeg stderr")
	flags.BoolVar(&opts.Summary, "summary", false, "Print a run summary table")
	flags.DurationVar(&opts.Timeout, "timeout", 0, "Stop ffmpeg after this long (0 disables)")
	flags.DurationVar(&opts.GracefulTimeout, "graceful-timeout", defaults.GracefulTimeout,
		"Time between SIGINT and SIGKILL when stopping")
	flags.DurationVar(&opts.KillTimeout, "kill-timeout", defaults.KillTimeout,
		"Time to wait for output streams after SIGKILL")
	flags.IntVar(&opts.StderrTailLines, "stderr-tail-lines", defaults.StderrTailLines,
		"Raw stderr lines kept for failures without error output")
	flags.StringVar(&opts.MetricsTextfile, "metrics-textfile", "",
		"Write Prometheus metrics for node_exporter to this file")
	flags.StringVar(&opts.LogLevel, "log-level", "", "Logging level (debug, info, warn, error)")
	flags.StringVar(&opts.LogFormat, "log-format", "", "Logging format (text, json)")

	return cmd
}

func runCommand(c *cobra.Command, opts *RunOptions, args []string) error {
	initLogging(opts)
	logger := logging.GetLogger("runner")

	command, err := commandFromArgs(opts.Command, args)
	if err != nil {
		return &ExitError{Code: ExitUsage, Err: err}
	}

	showBar, err := progressEnabled(opts.Progress, c.ErrOrStderr())
	if err != nil {
		return &ExitError{Code: ExitUsage, Err: err}
	}

	patterns, err := config.LoadPatterns(opts.Config)
	if err != nil {
		return &ExitError{Code: ExitUsage, Err: err}
	}

	runOpts := runner.DefaultOptions()
	runOpts.RunID = uuid.NewString()
	runOpts.Overwrite = opts.Overwrite
	runOpts.RaiseOnError = !opts.NoRaise
	runOpts.ProgressBar = showBar
	runOpts.ProgressBarLabel = opts.Label
	runOpts.NewRenderer = progressbar.TerminalFactory(c.ErrOrStderr())
	runOpts.Patterns = &patterns
	runOpts.Logger = logger
	runOpts.ToolLogger = logging.GetLogger("ffmpeg")
	runOpts.GracefulTimeout = opts.GracefulTimeout
	runOpts.KillTimeout = opts.KillTimeout
	runOpts.StderrTailLines = opts.StderrTailLines
	if opts.Probe {
		runOpts.Prober = ffmpeg.FFprobe{Binary: opts.ProbeBinary}
	}

	ctx, stop := signal.NotifyContext(c.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	if opts.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, opts.Timeout)
		defer cancel()
	}

	bus := events.New()
	recorder := metrics.NewRecorder()
	finished := make(chan struct{})
	unsubscribe := bus.Subscribe(func(ev events.RunEvent) {
		recorder.Handle(ev)
		if ev.Kind == events.KindFinished {
			logger.Debug("Run event", "run_id", ev.RunID, "kind", ev.Kind, "outcome", ev.Outcome)
			close(finished)
		}
	})
	defer unsubscribe()
	if systemd.Available() {
		notifier := systemd.NewNotifier(logging.GetLogger("systemd"))
		defer bus.Subscribe(notifier.Handle)()
	}

	obs := bus.Observers(runOpts.RunID)
	if opts.PrintStdout {
		stdout := c.OutOrStdout()
		obs.Stdout = runner.StdoutFunc(func(line string) { fmt.Fprintln(stdout, line) })
	}
	if opts.PrintStderr {
		stderr := c.ErrOrStderr()
		obs.Stderr = runner.StderrFunc(func(line string) { fmt.Fprintln(stderr, line) })
	}

	bus.PublishStarted(runOpts.RunID)
	result, runErr := runner.Run(ctx, command, runOpts, obs)
	bus.PublishFinished(result, runErr)

	select {
	case <-finished:
	case <-time.After(finishWait):
		logger.Warn("Timed out waiting for run events to drain", "run_id", result.RunID)
	}

	if opts.MetricsTextfile != "" {
		if err := recorder.WriteTextfile(opts.MetricsTextfile); err != nil {
			logger.Warn("Failed to write metrics textfile", "path", opts.MetricsTextfile, "error", err)
		}
	}
	if opts.Summary {
		fmt.Fprintln(c.OutOrStdout(), renderSummary(result, recorder.Get(result.RunID), events.Outcome(result, runErr)))
	}

	code := runExitCode(result, runErr)
	if code == ExitOK {
		return nil
	}
	if runErr == nil {
		runErr = fmt.Errorf("%s exited with %s", result.Args[0], result.Exit)
	}
	return &ExitError{Code: code, Err: runErr}
}

// initLogging applies the [logging] table of the config file, then the
// level and format options. Tool lines are logged at warn and above unless
// the ffmpeg module is configured.
func initLogging(opts *RunOptions) {
	cfg := config.LoadLoggingConfig(opts.Config)
	if opts.LogLevel != "" {
		cfg.Level = opts.LogLevel
	}
	if opts.LogFormat != "" {
		cfg.Format = opts.LogFormat
	}
	if _, ok := cfg.Modules["ffmpeg"]; !ok {
		cfg.Modules["ffmpeg"] = "warn"
	}
	logging.Initialize(cfg)
}

func commandFromArgs(line string, args []string) (ffmpeg.Command, error) {
	switch {
	case line != "" && len(args) > 0:
		return ffmpeg.Command{}, errors.New("--command and positional arguments are mutually exclusive")
	case line != "":
		return ffmpeg.Line(line), nil
	case len(args) > 0:
		return ffmpeg.Args(args...), nil
	default:
		return ffmpeg.Command{}, errors.New("no command given")
	}
}

// progressEnabled resolves the bar mode. auto draws only when w is a terminal.
func progressEnabled(mode string, w io.Writer) (bool, error) {
	switch strings.ToLower(mode) {
	case ProgressOn:
		return true, nil
	case ProgressOff:
		return false, nil
	case ProgressAuto, "":
		f, ok := w.(*os.File)
		return ok && (isatty.IsTerminal(f.Fd()) || isatty.IsCygwinTerminal(f.Fd())), nil
	default:
		return false, fmt.Errorf("invalid --progress %q: want auto, on or off", mode)
	}
}
