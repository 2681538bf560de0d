package runner

import "github.com/smazurov/ffrun/internal/ffmpeg"

// StatusSink receives every progress snapshot, in stdout order.
type StatusSink interface {
	OnStatus(p ffmpeg.Progress)
}

// StdoutSink receives every raw stdout line, including progress lines.
type StdoutSink interface {
	OnStdout(line string)
}

// StderrSink receives every raw stderr line.
type StderrSink interface {
	OnStderr(line string)
}

// WarningSink receives each line classified as a warning.
type WarningSink interface {
	OnWarning(line string)
}

// ErrorSink receives all error lines of a run, once, after the process exited.
type ErrorSink interface {
	OnError(lines []string)
}

// StatusFunc adapts a function to StatusSink.
type StatusFunc func(p ffmpeg.Progress)

func (f StatusFunc) OnStatus(p ffmpeg.Progress) { f(p) }

// StdoutFunc adapts a function to StdoutSink.
type StdoutFunc func(line string)

func (f StdoutFunc) OnStdout(line string) { f(line) }

// StderrFunc adapts a function to StderrSink.
type StderrFunc func(line string)

func (f StderrFunc) OnStderr(line string) { f(line) }

// WarningFunc adapts a function to WarningSink.
type WarningFunc func(line string)

func (f WarningFunc) OnWarning(line string) { f(line) }

// ErrorFunc adapts a function to ErrorSink.
type ErrorFunc func(lines []string)

func (f ErrorFunc) OnError(lines []string) { f(lines) }

// Observers collects the optional sinks of a run. Nil sinks are skipped.
// Stdout and status callbacks run on the stdout goroutine; stderr and warning
// callbacks on the stderr goroutine. The two groups run concurrently.
type Observers struct {
	Status  StatusSink
	Stdout  StdoutSink
	Stderr  StderrSink
	Warning WarningSink
	Error   ErrorSink
}
