package cmd

import (
	"bytes"
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/smazurov/ffrun/internal/runner"
)

// fakeFFmpeg writes an executable shell script standing in for ffmpeg.
func fakeFFmpeg(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "ffmpeg")
	if err := os.WriteFile(path, []byte("#!/bin/sh\n"+body+"\n"), 0o755); err != nil {
		t.Fatalf("Failed to write fake ffmpeg: %v", err)
	}
	return path
}

const progressScript = `printf 'frame=50\nfps=25.0\nout_time_us=2000000\nspeed=1.5x\nprogress=continue\n'
printf 'frame=100\nfps=25.0\nout_time_us=4000000\nspeed=1.5x\nprogress=end\n'`

type cliResult struct {
	stdout string
	err    error
}

func executeRun(t *testing.T, args ...string) cliResult {
	t.Helper()
	base := []string{
		"run",
		"--config", filepath.Join(t.TempDir(), "missing.toml"),
		"--progress", "off",
		"--probe=false",
		"--log-level", "error",
	}

	var stdout, stderr bytes.Buffer
	root := NewRootCmd()
	root.SetOut(&stdout)
	root.SetErr(&stderr)
	root.SetArgs(append(base, args...))
	err := root.ExecuteContext(context.Background())
	return cliResult{stdout: stdout.String(), err: err}
}

func TestRunSuccessWritesMetricsAndSummary(t *testing.T) {
	ffmpegPath := fakeFFmpeg(t, progressScript)
	textfile := filepath.Join(t.TempDir(), "ffrun.prom")

	res := executeRun(t, "--summary", "--metrics-textfile", textfile, "--", ffmpegPath, "-i", "in.mp4", "out.mp4")
	if res.err != nil {
		t.Fatalf("expected success, got %v", res.err)
	}

	if !strings.Contains(res.stdout, "success") {
		t.Errorf("summary missing outcome:\n%s", res.stdout)
	}
	if !strings.Contains(res.stdout, "Progress updates") {
		t.Errorf("summary missing progress row:\n%s", res.stdout)
	}

	data, err := os.ReadFile(textfile)
	if err != nil {
		t.Fatalf("metrics textfile not written: %v", err)
	}
	for _, want := range []string{
		`ffrun_ffmpeg_runs_total{outcome="success"} 1`,
		`ffrun_ffmpeg_frames{run_id=`,
	} {
		if !strings.Contains(string(data), want) {
			t.Errorf("textfile missing %q:\n%s", want, data)
		}
	}
}

func TestRunToolErrorExitCode(t *testing.T) {
	ffmpegPath := fakeFFmpeg(t, "echo 'in.mp4: No such file or directory' >&2\nexit 1")

	res := executeRun(t, ffmpegPath, "-i", "in.mp4", "out.mp4")

	var toolErr *runner.ToolError
	if !errors.As(res.err, &toolErr) {
		t.Fatalf("expected ToolError, got %v", res.err)
	}
	if got := ExitCode(res.err); got != 1 {
		t.Errorf("ExitCode = %d, want 1", got)
	}
	if !strings.Contains(res.err.Error(), "No such file or directory") {
		t.Errorf("error should quote the tool: %v", res.err)
	}
}

func TestRunNoRaise(t *testing.T) {
	ffmpegPath := fakeFFmpeg(t, "echo 'Error while decoding stream #0:0' >&2\nexit 0")

	res := executeRun(t, "--no-raise", ffmpegPath)
	if res.err != nil {
		t.Fatalf("--no-raise with exit 0 should succeed, got %v", res.err)
	}
}

func TestRunPassesThroughExitCode(t *testing.T) {
	ffmpegPath := fakeFFmpeg(t, "echo 'some unclassified line' >&2\nexit 69")

	res := executeRun(t, ffmpegPath)
	if got := ExitCode(res.err); got != 69 {
		t.Errorf("ExitCode = %d, want 69 (err %v)", got, res.err)
	}
}

func TestRunPrintStdout(t *testing.T) {
	ffmpegPath := fakeFFmpeg(t, progressScript)

	res := executeRun(t, "--print-stdout", ffmpegPath)
	if res.err != nil {
		t.Fatalf("unexpected error: %v", res.err)
	}
	if !strings.Contains(res.stdout, "progress=end") {
		t.Errorf("stdout not relayed:\n%s", res.stdout)
	}
}

func TestRunCommandString(t *testing.T) {
	ffmpegPath := fakeFFmpeg(t, `test "$2" = "my input.mov" || exit 5`)

	res := executeRun(t, "--command", ffmpegPath+` -i "my input.mov" out.webm`)
	if res.err != nil {
		t.Fatalf("quoted argument not preserved: %v", res.err)
	}
}

func TestRunUsageErrors(t *testing.T) {
	ffmpegPath := fakeFFmpeg(t, "exit 0")

	tests := []struct {
		name string
		args []string
	}{
		{"no command", nil},
		{"command and args", []string{"--command", "ffmpeg -i a b", ffmpegPath}},
		{"progress flag in command", []string{ffmpegPath, "-i", "a", "-progress", "pipe:2", "b"}},
		{"invalid progress mode", []string{"--progress", "sometimes", ffmpegPath}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			res := executeRun(t, tt.args...)
			if got := ExitCode(res.err); got != ExitUsage {
				t.Errorf("ExitCode = %d, want %d (err %v)", got, ExitUsage, res.err)
			}
		})
	}
}

func TestRunBinaryNotFound(t *testing.T) {
	res := executeRun(t, filepath.Join(t.TempDir(), "no-such-ffmpeg"), "-i", "a", "b")
	if got := ExitCode(res.err); got != ExitNotFound {
		t.Errorf("ExitCode = %d, want %d (err %v)", got, ExitNotFound, res.err)
	}
}

func TestRunConfigFile(t *testing.T) {
	ffmpegPath := fakeFFmpeg(t, "echo 'FATAL: custom failure' >&2\nexit 0")
	cfgPath := filepath.Join(t.TempDir(), "ffrun.toml")
	cfg := "[patterns]\nerror = ['^FATAL: ']\n"
	if err := os.WriteFile(cfgPath, []byte(cfg), 0o644); err != nil {
		t.Fatal(err)
	}

	// executeRun's --config comes first; the later flag wins.
	res := executeRun(t, "--config", cfgPath, ffmpegPath)

	var toolErr *runner.ToolError
	if !errors.As(res.err, &toolErr) {
		t.Fatalf("custom error pattern not applied, got %v", res.err)
	}
	if len(toolErr.Lines) != 1 || toolErr.Lines[0] != "FATAL: custom failure" {
		t.Errorf("Lines = %q", toolErr.Lines)
	}
}
