package ffmpeg

import (
	"slices"
	"strings"
)

// DiagnosticKind classifies a unit of the diagnostic stream.
type DiagnosticKind int

const (
	DiagnosticInfo DiagnosticKind = iota
	DiagnosticWarning
	DiagnosticError
)

func (k DiagnosticKind) String() string {
	switch k {
	case DiagnosticWarning:
		return "warning"
	case DiagnosticError:
		return "error"
	default:
		return "info"
	}
}

// Diagnostic is one classified unit from stderr. Info and warning carry a
// single line; an error block carries every contiguous line of one error.
type Diagnostic struct {
	Kind  DiagnosticKind
	Lines []string
}

// Text joins the lines of the diagnostic.
func (d Diagnostic) Text() string {
	return strings.Join(d.Lines, "\n")
}

// Classifier tags stderr lines as info, warning or error and coalesces
// contiguous error lines into one block. Not safe for concurrent use; feed it
// from the goroutine draining stderr.
type Classifier struct {
	patterns *compiledPatterns
	block    []string
}

// NewClassifier compiles the pattern table. An invalid expression is
// reported here, before any process is started.
func NewClassifier(table PatternTable) (*Classifier, error) {
	patterns, err := table.compile()
	if err != nil {
		return nil, err
	}
	return &Classifier{patterns: patterns}, nil
}

// Feed classifies one line. Info and warning lines are returned at once. An
// error block is returned only when it closes, so Feed can return the closed
// block followed by the event for the current line.
func (c *Classifier) Feed(line string) []Diagnostic {
	if matchAny(c.patterns.errors, line) {
		c.block = append(c.block, line)
		return nil
	}

	var out []Diagnostic
	if len(c.block) > 0 {
		if isContinuation(line) {
			c.block = append(c.block, line)
			return nil
		}
		out = append(out, c.closeBlock())
	}

	if strings.TrimSpace(line) != "" && matchAny(c.patterns.warnings, line) {
		return append(out, Diagnostic{Kind: DiagnosticWarning, Lines: []string{line}})
	}
	return append(out, Diagnostic{Kind: DiagnosticInfo, Lines: []string{line}})
}

// Flush closes an open error block at end of stream.
func (c *Classifier) Flush() (Diagnostic, bool) {
	if len(c.block) == 0 {
		return Diagnostic{}, false
	}
	return c.closeBlock(), true
}

func (c *Classifier) closeBlock() Diagnostic {
	d := Diagnostic{Kind: DiagnosticError, Lines: slices.Clone(c.block)}
	c.block = c.block[:0]
	return d
}

// isContinuation reports whether a line belongs to the error above it.
// ffmpeg indents the detail lines of a multi-line message; a blank line or a
// new top-level line ends the message.
func isContinuation(line string) bool {
	if strings.TrimSpace(line) == "" {
		return false
	}
	return line[0] == ' ' || line[0] == '\t'
}
