package logging

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"sync/atomic"
)

// teeHandler writes every record to primary and mirrors it to mirror. The
// first mirror error is reported to errOut and the mirror is switched off
// for all handlers derived from the same root, so a CLI run whose journal
// socket vanishes keeps logging to its stream without repeating the error.
type teeHandler struct {
	primary slog.Handler
	mirror  slog.Handler
	down    *atomic.Bool
	errOut  io.Writer
}

func newTeeHandler(primary, mirror slog.Handler, errOut io.Writer) *teeHandler {
	return &teeHandler{primary: primary, mirror: mirror, down: &atomic.Bool{}, errOut: errOut}
}

func (t *teeHandler) Enabled(ctx context.Context, level slog.Level) bool {
	if t.primary.Enabled(ctx, level) {
		return true
	}
	return !t.down.Load() && t.mirror.Enabled(ctx, level)
}

func (t *teeHandler) Handle(ctx context.Context, r slog.Record) error {
	var err error
	if t.primary.Enabled(ctx, r.Level) {
		err = t.primary.Handle(ctx, r.Clone())
	}
	if t.down.Load() || !t.mirror.Enabled(ctx, r.Level) {
		return err
	}
	if mirrorErr := t.mirror.Handle(ctx, r); mirrorErr != nil && t.down.CompareAndSwap(false, true) {
		fmt.Fprintf(t.errOut, "logging: disabling journal output: %v\n", mirrorErr)
	}
	return err
}

func (t *teeHandler) WithAttrs(attrs []slog.Attr) slog.Handler {
	return &teeHandler{
		primary: t.primary.WithAttrs(attrs),
		mirror:  t.mirror.WithAttrs(attrs),
		down:    t.down,
		errOut:  t.errOut,
	}
}

func (t *teeHandler) WithGroup(name string) slog.Handler {
	return &teeHandler{
		primary: t.primary.WithGroup(name),
		mirror:  t.mirror.WithGroup(name),
		down:    t.down,
		errOut:  t.errOut,
	}
}
