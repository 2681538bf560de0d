package process

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/exec"
	"strings"
	"sync"
	"syscall"
	"time"

	"github.com/smazurov/ffrun/internal/logging"
)

// Output stream names passed to OutputHandler.
const (
	SourceStdout = "stdout"
	SourceStderr = "stderr"
)

// ErrAlreadyStarted is returned when Run is called twice on one Session.
var ErrAlreadyStarted = errors.New("session already started")

// OutputHandler receives output lines from the subprocess.
// Lines of one source arrive in order on a single goroutine; the two sources
// are delivered concurrently.
type OutputHandler interface {
	HandleLine(source, line string)
}

// StreamCloser is implemented by handlers that need to know when a stream
// reached EOF. CloseStream runs on the stream's goroutine after its last line.
type StreamCloser interface {
	CloseStream(source string)
}

// ExitStatus describes how the process ended.
type ExitStatus struct {
	Code   int            // -1 when terminated by a signal
	Signal syscall.Signal // zero unless terminated by a signal
}

// Signaled reports whether the process was terminated by a signal.
func (e ExitStatus) Signaled() bool {
	return e.Signal != 0
}

func (e ExitStatus) String() string {
	if e.Signaled() {
		return "signal: " + e.Signal.String()
	}
	return fmt.Sprintf("exit code %d", e.Code)
}

// Result is the outcome of one Session run.
type Result struct {
	PID     int
	Exit    ExitStatus
	Elapsed time.Duration
}

// SpawnError reports a process that could not be started.
type SpawnError struct {
	Args []string
	Err  error
}

func (e *SpawnError) Error() string {
	if len(e.Args) == 0 {
		return fmt.Sprintf("failed to start process: %v", e.Err)
	}
	return fmt.Sprintf("failed to start %s: %v", e.Args[0], e.Err)
}

func (e *SpawnError) Unwrap() error { return e.Err }

// StreamError reports a failure reading one of the output streams.
type StreamError struct {
	Source string
	Err    error
}

func (e *StreamError) Error() string {
	return fmt.Sprintf("reading %s: %v", e.Source, e.Err)
}

func (e *StreamError) Unwrap() error { return e.Err }

// SessionOption configures a Session.
type SessionOption func(*Session)

// WithGracefulTimeout sets how long the process gets to exit after SIGINT
// before it is killed.
func WithGracefulTimeout(d time.Duration) SessionOption {
	return func(s *Session) { s.gracefulTimeout = d }
}

// WithKillTimeout sets how long to wait for the streams to drain after
// SIGKILL before the read ends are closed.
func WithKillTimeout(d time.Duration) SessionOption {
	return func(s *Session) { s.killTimeout = d }
}

// Session runs one subprocess to completion while both output streams are
// drained concurrently.
type Session struct {
	id              string
	args            []string
	handler         OutputHandler
	logger          logging.Logger
	gracefulTimeout time.Duration
	killTimeout     time.Duration

	mu    sync.Mutex
	state State
}

// NewSession creates a session for args. args[0] is the executable.
// handler may be nil to discard output.
func NewSession(id string, args []string, handler OutputHandler, logger logging.Logger, opts ...SessionOption) *Session {
	if logger == nil {
		logger = logging.Discard()
	}
	s := &Session{
		id:              id,
		args:            args,
		handler:         handler,
		logger:          logger,
		gracefulTimeout: 5 * time.Second,
		killTimeout:     5 * time.Second,
		state:           StateCreated,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// ID returns the session identifier.
func (s *Session) ID() string {
	return s.id
}

// State returns the current lifecycle state.
func (s *Session) State() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

func (s *Session) setState(state State) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.state = state
}

type pumpResult struct {
	source string
	err    error
}

// stop escalation stages
const (
	stageNone = iota
	stageInterrupted
	stageKilled
	stagePipesClosed
)

// Run starts the process and blocks until both streams reached EOF and the
// process was reaped. A non-zero exit is not an error.
//
// When ctx is done the process receives SIGINT, then SIGKILL after the
// graceful timeout; the result is returned together with ctx.Err(). A stream
// read failure stops the process the same way and is returned as a
// *StreamError. Failure to start returns a *SpawnError and no result.
func (s *Session) Run(ctx context.Context) (Result, error) {
	s.mu.Lock()
	if s.state != StateCreated {
		s.mu.Unlock()
		return Result{}, ErrAlreadyStarted
	}
	s.state = StateStarting
	s.mu.Unlock()

	rp, err := s.start()
	if err != nil {
		s.setState(StateFailed)
		return Result{}, err
	}
	s.setState(StateRunning)

	var (
		streamErr *StreamError
		ctxErr    error
		waitErr   error
		stage     = stageNone
		escalate  <-chan time.Time
		pending   = 2
		done      = ctx.Done()
	)

	beginStop := func() {
		if stage != stageNone {
			return
		}
		stage = stageInterrupted
		s.signal(rp.cmd, syscall.SIGINT)
		escalate = time.After(s.gracefulTimeout)
	}

loop:
	for {
		select {
		case res := <-rp.pumpDone:
			pending--
			if res.err != nil && streamErr == nil {
				streamErr = &StreamError{Source: res.source, Err: res.err}
				s.logger.Error("Failed to read process output", "source", res.source, "error", res.err)
				beginStop()
			}
			if pending == 0 {
				// Wait closes the pipes, so it must not run before both pumps are done.
				go func() { rp.waitDone <- rp.cmd.Wait() }()
			}

		case waitErr = <-rp.waitDone:
			break loop

		case <-done:
			done = nil
			ctxErr = ctx.Err()
			s.logger.Info("Context cancelled, stopping process", "reason", ctxErr)
			beginStop()

		case <-escalate:
			switch stage {
			case stageInterrupted:
				s.logger.Warn("Graceful shutdown timeout, forcing kill", "timeout", s.gracefulTimeout)
				s.signal(rp.cmd, syscall.SIGKILL)
				stage = stageKilled
				escalate = time.After(s.killTimeout)
			case stageKilled:
				escalate = nil
				if pending > 0 {
					s.logger.Error("Output streams did not close after kill, closing pipes")
					stage = stagePipesClosed
					rp.closePipes()
				}
			}
		}
	}

	result := Result{
		PID:     rp.cmd.Process.Pid,
		Exit:    exitStatus(rp.cmd, waitErr),
		Elapsed: time.Since(rp.started),
	}
	s.logger.Info("Process exited", "pid", result.PID, "exit", result.Exit.String(), "elapsed", result.Elapsed)

	switch {
	case streamErr != nil:
		s.setState(StateFailed)
		return result, streamErr
	case ctxErr != nil:
		s.setState(StateFailed)
		return result, ctxErr
	default:
		s.setState(StateCompleted)
		return result, nil
	}
}

// runningProcess holds the handles of a started subprocess.
type runningProcess struct {
	cmd      *exec.Cmd
	stdout   io.ReadCloser
	stderr   io.ReadCloser
	started  time.Time
	pumpDone chan pumpResult // receives once per output stream
	waitDone chan error
}

func (rp *runningProcess) closePipes() {
	_ = rp.stdout.Close()
	_ = rp.stderr.Close()
}

// start spawns the subprocess and its two pump goroutines.
func (s *Session) start() (*runningProcess, error) {
	if len(s.args) == 0 || s.args[0] == "" {
		return nil, &SpawnError{Args: s.args, Err: errors.New("empty command")}
	}

	cmd := exec.Command(s.args[0], s.args[1:]...)
	cmd.SysProcAttr = &syscall.SysProcAttr{Setpgid: true}

	stdout, err := cmd.StdoutPipe()
	if err != nil {
		s.logger.Error("Failed to create stdout pipe", "error", err)
		return nil, &SpawnError{Args: s.args, Err: err}
	}
	stderr, err := cmd.StderrPipe()
	if err != nil {
		s.logger.Error("Failed to create stderr pipe", "error", err)
		return nil, &SpawnError{Args: s.args, Err: err}
	}

	if err := cmd.Start(); err != nil {
		s.logger.Error("Failed to start process", "error", err, "command", strings.Join(s.args, " "))
		return nil, &SpawnError{Args: s.args, Err: err}
	}
	s.logger.Info("Process started", "id", s.id, "pid", cmd.Process.Pid, "command", strings.Join(s.args, " "))

	rp := &runningProcess{
		cmd:      cmd,
		stdout:   stdout,
		stderr:   stderr,
		started:  time.Now(),
		pumpDone: make(chan pumpResult, 2),
		waitDone: make(chan error, 1),
	}
	go s.streamOutput(stdout, SourceStdout, rp.pumpDone)
	go s.streamOutput(stderr, SourceStderr, rp.pumpDone)
	return rp, nil
}

// streamOutput pumps one stream into the handler. A read failure is reported
// right away; the stop path then takes care of a writer blocked on the pipe.
func (s *Session) streamOutput(r io.Reader, source string, done chan<- pumpResult) {
	err := Pump(r, func(line string) {
		if s.handler != nil {
			s.handler.HandleLine(source, line)
		}
	})
	if closer, ok := s.handler.(StreamCloser); ok {
		closer.CloseStream(source)
	}
	done <- pumpResult{source: source, err: err}
}

// signal delivers sig to the process group so helpers spawned by the tool
// stop with it.
func (s *Session) signal(cmd *exec.Cmd, sig syscall.Signal) {
	pid := cmd.Process.Pid
	s.logger.Info("Sending signal to process", "pid", pid, "signal", sig.String())
	if err := syscall.Kill(-pid, sig); err != nil && !errors.Is(err, syscall.ESRCH) {
		s.logger.Warn("Failed to signal process group", "error", err)
		if err := cmd.Process.Signal(sig); err != nil && !errors.Is(err, os.ErrProcessDone) {
			s.logger.Error("Failed to signal process", "error", err)
		}
	}
}

// exitStatus extracts the exit status after Wait.
func exitStatus(cmd *exec.Cmd, waitErr error) ExitStatus {
	state := cmd.ProcessState
	if state == nil {
		var exitErr *exec.ExitError
		if errors.As(waitErr, &exitErr) {
			state = exitErr.ProcessState
		}
	}
	if state == nil {
		return ExitStatus{Code: -1}
	}
	if ws, ok := state.Sys().(syscall.WaitStatus); ok && ws.Signaled() {
		return ExitStatus{Code: -1, Signal: ws.Signal()}
	}
	return ExitStatus{Code: state.ExitCode()}
}
