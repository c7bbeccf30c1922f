package solana

// LogsFilter defines the subscription filter for a logs subscription.
type LogsFilter struct {
	// Mentions filters logs that mention any of these program IDs.
	Mentions []string
	// Commitment is the confirmation level ("processed", "confirmed", "finalized").
	// Defaults to "processed" for lowest detection latency.
	Commitment string
}

// LogNotification represents one logsNotification frame.
type LogNotification struct {
	Signature string
	Slot      int64
	Logs      []string
	Err       interface{}
}

// SessionState is the lifecycle state of a subscription session.
type SessionState int32

const (
	StateConnecting SessionState = iota
	StateSubscribed
	StateReconnecting
	StateClosed
)

// String returns the state name for logging.
func (s SessionState) String() string {
	switch s {
	case StateConnecting:
		return "connecting"
	case StateSubscribed:
		return "subscribed"
	case StateReconnecting:
		return "reconnecting"
	case StateClosed:
		return "closed"
	}
	return "unknown"
}

// StateListener observes session state transitions. Implementations must not block.
type StateListener func(from, to SessionState)
