package watch

// State is the handshake state of a session.
type State int

const (
	// StateConnecting: dialing, nothing sent yet.
	StateConnecting State = iota
	// StateAwaitingAck: connection_init sent, waiting for connection_ack.
	StateAwaitingAck
	// StateSubscribed: subscribe sent, data frames are processed.
	StateSubscribed
	// StateClosed is terminal.
	StateClosed
)

func (s State) String() string {
	switch s {
	case StateConnecting:
		return "connecting"
	case StateAwaitingAck:
		return "awaiting_ack"
	case StateSubscribed:
		return "subscribed"
	case StateClosed:
		return "closed"
	default:
		return "unknown"
	}
}
