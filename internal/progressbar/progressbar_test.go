package progressbar

import (
	"bytes"
	"strings"
	"testing"
)

func TestTerminalRendersLabel(t *testing.T) {
	var buf bytes.Buffer
	bar := NewTerminal(&buf, "encoding")

	bar.SetTotal(1000)
	bar.AdvanceTo(500)
	if err := bar.Close(); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if !strings.Contains(buf.String(), "encoding") {
		t.Errorf("label not rendered: %q", buf.String())
	}
	if !strings.HasSuffix(buf.String(), "\n") {
		t.Errorf("unfinished bar should end with a newline: %q", buf.String())
	}
}

func TestTerminalCloseTwice(t *testing.T) {
	var buf bytes.Buffer
	bar := NewTerminal(&buf, "x")
	bar.SetTotal(10)

	if err := bar.Close(); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	n := buf.Len()
	if err := bar.Close(); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if buf.Len() != n {
		t.Error("second Close should not write")
	}

	bar.AdvanceTo(5)
	if buf.Len() != n {
		t.Error("AdvanceTo after Close should not render")
	}
}

func TestTerminalWithoutTotal(t *testing.T) {
	var buf bytes.Buffer
	bar := NewTerminal(&buf, "x")
	bar.AdvanceTo(5)
	if err := bar.Close(); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if buf.Len() != 0 {
		t.Errorf("bar without total should draw nothing: %q", buf.String())
	}
}

func TestFactory(t *testing.T) {
	var buf bytes.Buffer
	r := TerminalFactory(&buf)("label")
	if _, ok := r.(*Terminal); !ok {
		t.Errorf("expected *Terminal, got %T", r)
	}

	var _ Renderer = Noop{}
}
