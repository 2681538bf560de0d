package ffmpeg

import (
	"strings"
	"testing"
)

func newDefaultClassifier(t *testing.T) *Classifier {
	t.Helper()
	c, err := NewClassifier(DefaultPatterns())
	if err != nil {
		t.Fatalf("default patterns should compile: %v", err)
	}
	return c
}

func classifyAll(c *Classifier, lines []string) []Diagnostic {
	var out []Diagnostic
	for _, line := range lines {
		out = append(out, c.Feed(line)...)
	}
	if d, ok := c.Flush(); ok {
		out = append(out, d)
	}
	return out
}

func errorBlocks(diags []Diagnostic) []Diagnostic {
	var blocks []Diagnostic
	for _, d := range diags {
		if d.Kind == DiagnosticError {
			blocks = append(blocks, d)
		}
	}
	return blocks
}

func TestClassifierMissingInput(t *testing.T) {
	c := newDefaultClassifier(t)
	diags := classifyAll(c, []string{
		"ffmpeg version 7.0.2 Copyright (c) 2000-2024 the FFmpeg developers",
		"  built with gcc 13.2.0",
		"  configuration: --enable-gpl --enable-libx264",
		"[in#0 @ 0x5581c1a3e400] Error opening input: No such file or directory",
		"Error opening input file input.mp4.",
		"Error opening input files: No such file or directory",
	})

	blocks := errorBlocks(diags)
	if len(blocks) != 1 {
		t.Fatalf("expected 1 error block, got %d: %+v", len(blocks), diags)
	}
	if len(blocks[0].Lines) != 3 {
		t.Errorf("expected 3 error lines, got %d: %q", len(blocks[0].Lines), blocks[0].Lines)
	}
	if diags[0].Kind != DiagnosticInfo || diags[1].Kind != DiagnosticInfo {
		t.Error("banner lines should be info")
	}
}

func TestClassifierLegacyMissingInput(t *testing.T) {
	c := newDefaultClassifier(t)
	blocks := errorBlocks(classifyAll(c, []string{"input.mp4: No such file or directory"}))
	if len(blocks) != 1 || blocks[0].Text() != "input.mp4: No such file or directory" {
		t.Errorf("unexpected blocks: %+v", blocks)
	}
}

func TestClassifierBlockBoundaries(t *testing.T) {
	c := newDefaultClassifier(t)
	diags := classifyAll(c, []string{
		"Error while decoding stream #0:0",
		"    detail line one",
		"\tdetail line two",
		"",
		"Error again",
		"Stream mapping:",
		"[error] tagged failure",
	})

	blocks := errorBlocks(diags)
	if len(blocks) != 3 {
		t.Fatalf("expected 3 error blocks, got %d: %+v", len(blocks), diags)
	}
	want := "Error while decoding stream #0:0\n    detail line one\n\tdetail line two"
	if blocks[0].Text() != want {
		t.Errorf("first block = %q, want %q", blocks[0].Text(), want)
	}
	if blocks[1].Text() != "Error again" {
		t.Errorf("second block = %q", blocks[1].Text())
	}
	if blocks[2].Text() != "[error] tagged failure" {
		t.Errorf("third block = %q", blocks[2].Text())
	}
}

func TestClassifierFeedReturnsClosedBlockFirst(t *testing.T) {
	c := newDefaultClassifier(t)
	if got := c.Feed("Conversion failed!"); len(got) != 0 {
		t.Fatalf("open block should not be emitted yet: %+v", got)
	}

	got := c.Feed("[swscaler @ 0x7f673c439fc0] [warning] deprecated pixel format used")
	if len(got) != 2 {
		t.Fatalf("expected closed block and warning, got %+v", got)
	}
	if got[0].Kind != DiagnosticError || got[1].Kind != DiagnosticWarning {
		t.Errorf("unexpected order: %v then %v", got[0].Kind, got[1].Kind)
	}
	if _, ok := c.Flush(); ok {
		t.Error("nothing should be left to flush")
	}
}

func TestClassifierIndentedLineWithoutBlockIsInfo(t *testing.T) {
	c := newDefaultClassifier(t)
	got := c.Feed("  Stream #0:0: Video: h264")
	if len(got) != 1 || got[0].Kind != DiagnosticInfo {
		t.Errorf("expected info, got %+v", got)
	}
}

func TestClassifierWarnings(t *testing.T) {
	c := newDefaultClassifier(t)
	for _, line := range []string{
		"[warning] something odd",
		"Past duration 0.999992 too large",
		"[mp4 @ 0x55] Warning: codec tag mismatch",
	} {
		got := c.Feed(line)
		if len(got) != 1 || got[0].Kind != DiagnosticWarning {
			t.Errorf("%q: expected warning, got %+v", line, got)
		}
	}
}

func TestClassifierBlockLinesNotShared(t *testing.T) {
	c := newDefaultClassifier(t)
	c.Feed("Error one")
	first := c.Feed("")[0]
	c.Feed("Error two")
	c.Flush()

	if first.Lines[0] != "Error one" {
		t.Errorf("emitted block was modified: %q", first.Lines)
	}
}

func TestClassifierCustomPatterns(t *testing.T) {
	table := DefaultPatterns().Merge(PatternTable{Error: []string{`^x264 \[error\]`}})
	c, err := NewClassifier(table)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	blocks := errorBlocks(classifyAll(c, []string{"x264 [error]: malloc failed"}))
	if len(blocks) != 1 {
		t.Errorf("custom pattern should start a block, got %+v", blocks)
	}
}

func TestNewClassifierInvalidPattern(t *testing.T) {
	_, err := NewClassifier(PatternTable{Error: []string{"(unclosed"}})
	if err == nil {
		t.Fatal("expected error for invalid pattern")
	}
	if !strings.Contains(err.Error(), "(unclosed") {
		t.Errorf("error should name the pattern: %v", err)
	}
}

func TestPatternTableMerge(t *testing.T) {
	base := PatternTable{Error: []string{"a"}, Warning: []string{"w"}}
	merged := base.Merge(PatternTable{Error: []string{"a", "b"}})
	if strings.Join(merged.Error, ",") != "a,b" {
		t.Errorf("Error = %q, want a,b", merged.Error)
	}
	if strings.Join(merged.Warning, ",") != "w" {
		t.Errorf("Warning = %q, want w", merged.Warning)
	}
	if len(base.Error) != 1 {
		t.Error("Merge should not modify the receiver")
	}
}

func TestDiagnosticKindString(t *testing.T) {
	if DiagnosticError.String() != "error" || DiagnosticWarning.String() != "warning" || DiagnosticInfo.String() != "info" {
		t.Error("unexpected kind names")
	}
}
