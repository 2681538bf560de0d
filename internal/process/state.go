package process

// State represents the lifecycle state of a Session.
type State string

// Session states.
const (
	StateCreated   State = "created"   // Not started yet
	StateStarting  State = "starting"  // Being spawned
	StateRunning   State = "running"   // Process alive, streams being drained
	StateCompleted State = "completed" // Exited and reaped, any exit code
	StateFailed    State = "failed"    // Spawn failed, stream failed or cancelled
)

// Terminal reports whether the state is final.
func (s State) Terminal() bool {
	return s == StateCompleted || s == StateFailed
}
