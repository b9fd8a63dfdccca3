package session

import "time"

// State is the supervisor's view of the network connection.
type State string

const (
	StateDisconnected    State = "disconnected"
	StateConnecting      State = "connecting"
	StateAwaitingPairing State = "awaiting_pairing"
	StateConnected       State = "connected"
	StateClosing         State = "closing"
)

func (s State) String() string {
	return string(s)
}

// PairingChallenge is an opaque code the operator scans to link the account.
// A newer challenge supersedes the previous one.
type PairingChallenge struct {
	Code     string
	IssuedAt time.Time
}
