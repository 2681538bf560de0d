package ffmpeg

import (
	"log/slog"

	"github.com/smazurov/ffrun/internal/logging"
	"github.com/smazurov/ffrun/internal/process"
)

// Listener receives decoded output of one ffmpeg run. Stdout callbacks are
// invoked from the stdout goroutine and stderr callbacks from the stderr
// goroutine, each in stream order.
type Listener interface {
	OnStdoutLine(line string)
	OnProgress(p Progress)
	OnStderrLine(line string)
	OnDiagnostic(d Diagnostic)
}

// Decoder turns raw process output into progress snapshots and diagnostics.
// It implements process.OutputHandler and process.StreamCloser.
type Decoder struct {
	parser     *ProgressParser
	classifier *Classifier
	listener   Listener
	toolLogger logging.Logger
}

// NewDecoder wires a parser and classifier to a listener.
func NewDecoder(parser *ProgressParser, classifier *Classifier, listener Listener) *Decoder {
	return &Decoder{
		parser:     parser,
		classifier: classifier,
		listener:   listener,
	}
}

// SetToolLogger logs every stderr line at the level ffmpeg tagged it with.
// ffmpeg only tags lines when run with -loglevel level+...
func (d *Decoder) SetToolLogger(logger logging.Logger) {
	d.toolLogger = logger
}

// HandleLine implements process.OutputHandler.
func (d *Decoder) HandleLine(source, line string) {
	switch source {
	case process.SourceStdout:
		d.listener.OnStdoutLine(line)
		if snapshot, ok := d.parser.Feed(line); ok {
			d.listener.OnProgress(snapshot)
		}
	case process.SourceStderr:
		d.listener.OnStderrLine(line)
		d.logToolLine(line)
		for _, diag := range d.classifier.Feed(line) {
			d.listener.OnDiagnostic(diag)
		}
	}
}

// CloseStream implements process.StreamCloser. A partial progress block is
// dropped; an open error block is emitted.
func (d *Decoder) CloseStream(source string) {
	switch source {
	case process.SourceStdout:
		d.parser.Reset()
	case process.SourceStderr:
		if diag, ok := d.classifier.Flush(); ok {
			d.listener.OnDiagnostic(diag)
		}
	}
}

func (d *Decoder) logToolLine(line string) {
	if d.toolLogger == nil || line == "" {
		return
	}
	level, msg := ParseLogLevel(line)
	switch {
	case level >= slog.LevelError:
		d.toolLogger.Error(msg)
	case level >= slog.LevelWarn:
		d.toolLogger.Warn(msg)
	case level >= slog.LevelInfo:
		d.toolLogger.Info(msg)
	default:
		d.toolLogger.Debug(msg)
	}
}
