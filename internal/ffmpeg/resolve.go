package ffmpeg

import (
	"errors"
	"fmt"
	"os/exec"
	"strings"
)

// ErrBinaryNotFound is returned when an executable cannot be located.
var ErrBinaryNotFound = errors.New("binary not found")

// ResolveBinary locates an executable. Names containing a slash are checked
// as paths; anything else is searched on PATH.
func ResolveBinary(name string) (string, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return "", fmt.Errorf("%w: empty name", ErrBinaryNotFound)
	}
	path, err := exec.LookPath(name)
	if err != nil {
		return "", fmt.Errorf("%w: %q: %w", ErrBinaryNotFound, name, err)
	}
	return path, nil
}

// PathResolver resolves binaries with ResolveBinary.
type PathResolver struct{}

// Resolve implements the runner's resolver contract.
func (PathResolver) Resolve(name string) (string, error) {
	return ResolveBinary(name)
}
