package runner

import (
	"fmt"
	"strings"

	"github.com/smazurov/ffrun/internal/process"
)

// ToolError reports a run whose diagnostic stream contained errors.
// It is returned even when the tool exited with code 0.
type ToolError struct {
	// Args is the argument list that was executed.
	Args []string
	// UserCommand is the command as the caller supplied it.
	UserCommand string
	// Lines are the tool's own error lines, in order.
	Lines []string
	Exit  process.ExitStatus
}

func (e *ToolError) Error() string {
	return fmt.Sprintf("%s failed (%s): %s", e.program(), e.Exit, strings.Join(e.Lines, "\n"))
}

func (e *ToolError) program() string {
	if len(e.Args) == 0 {
		return "command"
	}
	return e.Args[0]
}
