package runner

// tail keeps the last n lines written to it.
type tail struct {
	lines []string
	next  int
	full  bool
}

func newTail(n int) *tail {
	if n <= 0 {
		return &tail{}
	}
	return &tail{lines: make([]string, n)}
}

func (t *tail) add(line string) {
	if len(t.lines) == 0 {
		return
	}
	t.lines[t.next] = line
	t.next = (t.next + 1) % len(t.lines)
	if t.next == 0 {
		t.full = true
	}
}

// snapshot returns the kept lines, oldest first.
func (t *tail) snapshot() []string {
	if !t.full {
		out := make([]string, t.next)
		copy(out, t.lines[:t.next])
		return out
	}
	out := make([]string, 0, len(t.lines))
	out = append(out, t.lines[t.next:]...)
	return append(out, t.lines[:t.next]...)
}
