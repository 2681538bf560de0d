package events

import (
	"context"
	"errors"
	"slices"
	"time"

	"github.com/smazurov/ffrun/internal/ffmpeg"
	"github.com/smazurov/ffrun/internal/process"
	"github.com/smazurov/ffrun/internal/runner"
)

// Run outcomes reported with KindFinished.
const (
	OutcomeSuccess     = "success"
	OutcomeFailed      = "failed"
	OutcomeToolError   = "tool_error"
	OutcomeConfigError = "config_error"
	OutcomeSpawnError  = "spawn_error"
	OutcomeCancelled   = "cancelled"
)

// Observers returns runner observers that publish progress, warning and
// error events for runID.
func (b *Bus) Observers(runID string) runner.Observers {
	return runner.Observers{
		Status: runner.StatusFunc(func(p ffmpeg.Progress) {
			b.Publish(RunEvent{RunID: runID, Kind: KindProgress, Progress: &p, Timestamp: timestamp()})
		}),
		Warning: runner.WarningFunc(func(line string) {
			b.Publish(RunEvent{RunID: runID, Kind: KindWarning, Lines: []string{line}, Timestamp: timestamp()})
		}),
		Error: runner.ErrorFunc(func(lines []string) {
			b.Publish(RunEvent{RunID: runID, Kind: KindError, Lines: slices.Clone(lines), Timestamp: timestamp()})
		}),
	}
}

// PublishStarted announces a run.
func (b *Bus) PublishStarted(runID string) {
	b.Publish(RunEvent{RunID: runID, Kind: KindStarted, Timestamp: timestamp()})
}

// PublishFinished reports the outcome of a run. It is the last event of a run.
func (b *Bus) PublishFinished(result runner.Result, err error) {
	ev := RunEvent{
		RunID:     result.RunID,
		Kind:      KindFinished,
		Outcome:   Outcome(result, err),
		Elapsed:   result.Elapsed.Seconds(),
		Timestamp: timestamp(),
	}
	if result.Elapsed > 0 {
		exit := result.Exit
		ev.Exit = &exit
	}
	b.Publish(ev)
}

// Outcome classifies the return values of runner.Run.
func Outcome(result runner.Result, err error) string {
	var (
		cfgErr   *ffmpeg.ConfigError
		spawnErr *process.SpawnError
		toolErr  *runner.ToolError
	)
	switch {
	case err == nil && result.Success():
		return OutcomeSuccess
	case err == nil:
		return OutcomeFailed
	case errors.As(err, &cfgErr):
		return OutcomeConfigError
	case errors.As(err, &spawnErr):
		return OutcomeSpawnError
	case errors.As(err, &toolErr):
		return OutcomeToolError
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		return OutcomeCancelled
	default:
		return OutcomeFailed
	}
}

func timestamp() string {
	return time.Now().Format(time.RFC3339)
}
