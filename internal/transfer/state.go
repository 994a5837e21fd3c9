package transfer

// State is the lifecycle state of one transfer run.
type State int32

const (
	// StateIdle means the run has not started streaming yet.
	StateIdle State = iota
	// StateStreaming means chunks are being read, uploaded and batched.
	StateStreaming
	// StateFinalizing means the final compose into the destination is running.
	StateFinalizing
	// StateComplete means the destination object exists.
	StateComplete
	// StateFailed means the run aborted. Created fragments are left in place.
	StateFailed
)

func (s State) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateStreaming:
		return "streaming"
	case StateFinalizing:
		return "finalizing"
	case StateComplete:
		return "complete"
	case StateFailed:
		return "failed"
	default:
		return "unknown"
	}
}

// validTransitions lists the states reachable from each state.
var validTransitions = map[State][]State{
	StateIdle:       {StateStreaming},
	StateStreaming:  {StateFinalizing, StateFailed},
	StateFinalizing: {StateComplete, StateFailed},
}

func canTransition(from, to State) bool {
	for _, s := range validTransitions[from] {
		if s == to {
			return true
		}
	}
	return false
}
