package ffmpeg

import (
	"errors"
	"fmt"
	"slices"
	"strings"
)

const (
	// FlagOverwrite makes ffmpeg overwrite output files without asking.
	FlagOverwrite = "-y"
	// FlagProgress selects the machine-readable progress destination.
	FlagProgress = "-progress"
	// ProgressTarget sends progress blocks to the process's own stdout.
	ProgressTarget = "pipe:1"
)

var (
	// ErrEmptyCommand is returned when a command has no tokens.
	ErrEmptyCommand = errors.New("empty command")
	// ErrProgressFlag is returned when the caller supplied -progress themselves.
	ErrProgressFlag = errors.New(FlagProgress + " parameter can't be in command")
	// ErrUnclosedQuote is returned when a command line has an unbalanced quote.
	ErrUnclosedQuote = errors.New("unclosed quote in command")
)

// ConfigError reports an invocation that was rejected before anything was spawned.
type ConfigError struct {
	Command string
	Err     error
}

func (e *ConfigError) Error() string {
	if e.Command == "" {
		return fmt.Sprintf("invalid configuration: %v", e.Err)
	}
	return fmt.Sprintf("invalid command %q: %v", e.Command, e.Err)
}

func (e *ConfigError) Unwrap() error { return e.Err }

// Command is an invocation as the caller wrote it: either an argument list
// or a single command line.
type Command struct {
	args   []string
	line   string
	isLine bool
}

// Args builds a Command from an ordered argument list. The first element is
// the program.
func Args(args ...string) Command {
	return Command{args: slices.Clone(args)}
}

// Line builds a Command from a single command line. Tokens are split on
// whitespace; single and double quotes group words and a backslash escapes the
// next character.
func Line(line string) Command {
	return Command{line: line, isLine: true}
}

// String returns the command in the form the caller supplied it.
func (c Command) String() string {
	if c.isLine {
		return c.line
	}
	return strings.Join(c.args, " ")
}

// Tokens returns the argument list for the command.
func (c Command) Tokens() ([]string, error) {
	if !c.isLine {
		return slices.Clone(c.args), nil
	}
	return splitCommandLine(c.line)
}

// BuildInvocation resolves the argument list that is actually executed:
// -y is appended when overwrite is requested and missing, and
// "-progress pipe:1" is always appended. A caller-supplied -progress is a
// configuration conflict.
func BuildInvocation(cmd Command, overwrite bool) ([]string, error) {
	args, err := cmd.Tokens()
	if err != nil {
		return nil, &ConfigError{Command: cmd.String(), Err: err}
	}
	if len(args) == 0 || strings.TrimSpace(args[0]) == "" {
		return nil, &ConfigError{Command: cmd.String(), Err: ErrEmptyCommand}
	}
	if slices.Contains(args, FlagProgress) {
		return nil, &ConfigError{Command: cmd.String(), Err: ErrProgressFlag}
	}

	if overwrite && !slices.Contains(args, FlagOverwrite) {
		args = append(args, FlagOverwrite)
	}
	return append(args, FlagProgress, ProgressTarget), nil
}

// InputFiles returns the values given to -i, in order.
func InputFiles(args []string) []string {
	var inputs []string
	for i := 0; i < len(args)-1; i++ {
		if args[i] == "-i" {
			inputs = append(inputs, args[i+1])
			i++
		}
	}
	return inputs
}

// splitCommandLine splits a command line into arguments.
// Handles quoted strings and basic escaping.
func splitCommandLine(command string) ([]string, error) {
	var args []string
	var current strings.Builder
	inQuote := false
	quoteChar := rune(0)
	// quoted empty strings ("") still produce an argument
	pending := false

	runes := []rune(strings.TrimSpace(command))

	for i := 0; i < len(runes); i++ {
		r := runes[i]
		switch {
		case r == '"' || r == '\'':
			switch {
			case !inQuote:
				inQuote = true
				quoteChar = r
				pending = true
			case r == quoteChar:
				inQuote = false
				quoteChar = 0
			default:
				current.WriteRune(r)
			}
		case (r == ' ' || r == '\t' || r == '\n') && !inQuote:
			if current.Len() > 0 || pending {
				args = append(args, current.String())
				current.Reset()
				pending = false
			}
		case r == '\\' && i+1 < len(runes):
			i++
			current.WriteRune(runes[i])
		default:
			current.WriteRune(r)
		}
	}

	if inQuote {
		return nil, ErrUnclosedQuote
	}
	if current.Len() > 0 || pending {
		args = append(args, current.String())
	}

	return args, nil
}
