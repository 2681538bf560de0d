package process

import (
	"bufio"
	"bytes"
	"errors"
	"io"
	"os"
)

const (
	initialBufferSize = 64 * 1024   // 64KB initial buffer
	maxLineSize       = 1024 * 1024 // 1MB max line
)

// Pump reads r line by line and calls handle for every line, in order, until
// EOF. Lines end at \n, \r\n or a lone \r, so ffmpeg's carriage-return stats
// line is delivered on each refresh. Empty lines are delivered, and so is a
// final line without terminator.
//
// Reading from a pipe that was closed locally counts as EOF. Any other read
// error, including a line longer than 1MB, is returned.
func Pump(r io.Reader, handle func(line string)) error {
	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, initialBufferSize), maxLineSize)
	scanner.Split(scanLines)

	for scanner.Scan() {
		handle(scanner.Text())
	}

	err := scanner.Err()
	if err == nil || errors.Is(err, os.ErrClosed) {
		return nil
	}
	return err
}

// scanLines is bufio.ScanLines that also splits on a lone \r.
func scanLines(data []byte, atEOF bool) (advance int, token []byte, err error) {
	if atEOF && len(data) == 0 {
		return 0, nil, nil
	}

	if i := bytes.IndexAny(data, "\r\n"); i >= 0 {
		if data[i] == '\n' {
			return i + 1, data[:i], nil
		}
		// A \r at the end of the buffer may be the first half of \r\n.
		if i+1 == len(data) && !atEOF {
			return 0, nil, nil
		}
		if i+1 < len(data) && data[i+1] == '\n' {
			return i + 2, data[:i], nil
		}
		return i + 1, data[:i], nil
	}

	if atEOF {
		return len(data), data, nil
	}
	return 0, nil, nil
}
