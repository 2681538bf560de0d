package ffmpeg

import (
	"fmt"
	"regexp"
	"slices"
)

// PatternTable lists the regular expressions used to classify diagnostic
// lines. The prefixes ffmpeg uses are not a stable contract across versions,
// so the table is loaded from configuration and only defaults live here.
type PatternTable struct {
	// Error patterns start an error block. Anchor them to match prefixes.
	Error []string `toml:"error"`
	// Warning patterns mark a single line as a warning.
	Warning []string `toml:"warning"`
}

// DefaultPatterns returns the patterns matching ffmpeg 4.x to 7.x output.
func DefaultPatterns() PatternTable {
	return PatternTable{
		Error: []string{
			`^Error\b`,
			`^\[[^\]]+\] Error\b`,
			`^\[(fatal|error|panic)\] `,
			`^\[[^\]]+\] \[(fatal|error|panic)\] `,
			`^Conversion failed!`,
			`^Unrecognized option '`,
			`^Unknown encoder '`,
			`^Invalid argument\b`,
			`: No such file or directory$`,
			`: Permission denied$`,
			`: Invalid argument$`,
		},
		Warning: []string{
			`^\[warning\] `,
			`^\[[^\]]+\] \[warning\] `,
			`[Ww]arning`,
			`deprecated`,
			`^Past duration .* too large`,
		},
	}
}

// Merge returns a table whose lists are the union of t and other. Empty
// lists in other keep the defaults of t.
func (t PatternTable) Merge(other PatternTable) PatternTable {
	merged := PatternTable{
		Error:   slices.Clone(t.Error),
		Warning: slices.Clone(t.Warning),
	}
	for _, p := range other.Error {
		if !slices.Contains(merged.Error, p) {
			merged.Error = append(merged.Error, p)
		}
	}
	for _, p := range other.Warning {
		if !slices.Contains(merged.Warning, p) {
			merged.Warning = append(merged.Warning, p)
		}
	}
	return merged
}

type compiledPatterns struct {
	errors   []*regexp.Regexp
	warnings []*regexp.Regexp
}

func (t PatternTable) compile() (*compiledPatterns, error) {
	c := &compiledPatterns{}
	for _, p := range t.Error {
		re, err := regexp.Compile(p)
		if err != nil {
			return nil, fmt.Errorf("error pattern %q: %w", p, err)
		}
		c.errors = append(c.errors, re)
	}
	for _, p := range t.Warning {
		re, err := regexp.Compile(p)
		if err != nil {
			return nil, fmt.Errorf("warning pattern %q: %w", p, err)
		}
		c.warnings = append(c.warnings, re)
	}
	return c, nil
}

func matchAny(patterns []*regexp.Regexp, line string) bool {
	for _, re := range patterns {
		if re.MatchString(line) {
			return true
		}
	}
	return false
}
