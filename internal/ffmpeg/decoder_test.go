package ffmpeg

import (
	"bytes"
	"log/slog"
	"strings"
	"testing"

	"github.com/smazurov/ffrun/internal/process"
)

type recordingListener struct {
	stdout      []string
	stderr      []string
	snapshots   []Progress
	diagnostics []Diagnostic
}

func (l *recordingListener) OnStdoutLine(line string) { l.stdout = append(l.stdout, line) }
func (l *recordingListener) OnProgress(p Progress) { l.snapshots = append(l.snapshots, p) }
func (l *recordingListener) OnStderrLine(line string) { l.stderr = append(l.stderr, line) }
func (l *recordingListener) OnDiagnostic(d Diagnostic) { l.diagnostics = append(l.diagnostics, d) }

func newTestDecoder(t *testing.T, l Listener) *Decoder {
	t.Helper()
	return NewDecoder(NewProgressParser(int64Ptr(2000)), newDefaultClassifier(t), l)
}

func TestDecoderRoutesStreams(t *testing.T) {
	l := &recordingListener{}
	d := newTestDecoder(t, l)

	for _, line := range []string{"frame=1", "out_time_us=1000000", "progress=continue"} {
		d.HandleLine(process.SourceStdout, line)
	}
	d.HandleLine(process.SourceStderr, "Error opening input file in.mp4.")
	d.CloseStream(process.SourceStdout)
	d.CloseStream(process.SourceStderr)

	if len(l.stdout) != 3 {
		t.Errorf("expected 3 stdout lines, got %d", len(l.stdout))
	}
	if len(l.snapshots) != 1 {
		t.Fatalf("expected 1 snapshot, got %d", len(l.snapshots))
	}
	if c := l.snapshots[0].Completion; c == nil || *c != 0.5 {
		t.Errorf("Completion = %v, want 0.5", c)
	}
	if len(l.stderr) != 1 {
		t.Errorf("expected 1 stderr line, got %d", len(l.stderr))
	}
	if len(l.diagnostics) != 1 || l.diagnostics[0].Kind != DiagnosticError {
		t.Errorf("expected error block flushed on close, got %+v", l.diagnostics)
	}
}

func TestDecoderDropsPartialBlockOnClose(t *testing.T) {
	l := &recordingListener{}
	d := newTestDecoder(t, l)

	d.HandleLine(process.SourceStdout, "frame=5")
	d.CloseStream(process.SourceStdout)

	if len(l.snapshots) != 0 {
		t.Errorf("partial block should not produce a snapshot: %+v", l.snapshots)
	}
}

func TestDecoderToolLogger(t *testing.T) {
	var buf bytes.Buffer
	l := &recordingListener{}
	d := newTestDecoder(t, l)
	d.SetToolLogger(slog.New(slog.NewTextHandler(&buf, &slog.HandlerOptions{Level: slog.LevelDebug})))

	d.HandleLine(process.SourceStderr, "[warning] deprecated option")
	d.HandleLine(process.SourceStderr, "[error] failed to open file")
	d.HandleLine(process.SourceStderr, "[verbose] detail")

	output := buf.String()
	if !strings.Contains(output, `level=WARN msg="deprecated option"`) {
		t.Errorf("warning not logged at WARN: %s", output)
	}
	if !strings.Contains(output, `level=ERROR msg="failed to open file"`) {
		t.Errorf("error not logged at ERROR: %s", output)
	}
	if !strings.Contains(output, `level=DEBUG msg=detail`) {
		t.Errorf("verbose not logged at DEBUG: %s", output)
	}
}
