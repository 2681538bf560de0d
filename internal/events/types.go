package events

import (
	"github.com/smazurov/ffrun/internal/ffmpeg"
	"github.com/smazurov/ffrun/internal/process"
)

// TypeRun identifies RunEvent on the dispatcher.
const TypeRun uint32 = 1

// Kind tells what happened in a run.
type Kind string

// Run event kinds.
const (
	KindStarted  Kind = "started"
	KindProgress Kind = "progress"
	KindWarning  Kind = "warning"
	KindError    Kind = "error"
	KindFinished Kind = "finished"
)

// RunEvent reports one step of a run. All kinds share a single event type so
// that a subscriber sees them in publish order.
type RunEvent struct {
	RunID string `json:"run_id"`
	Kind  Kind   `json:"kind"`

	// Progress is set for KindProgress.
	Progress *ffmpeg.Progress `json:"progress,omitempty"`
	// Lines holds the warning line or the error lines.
	Lines []string `json:"lines,omitempty"`
	// Exit and Outcome are set for KindFinished.
	Exit    *process.ExitStatus `json:"exit,omitempty"`
	Outcome string              `json:"outcome,omitempty"`
	Elapsed float64             `json:"elapsed_seconds,omitempty"`

	Timestamp string `json:"timestamp"`
}

// Type implements the kelindar/event event contract.
func (e RunEvent) Type() uint32 { return TypeRun }
