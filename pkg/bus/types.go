package bus

import (
	"time"

	"jamalekbot/pkg/message"
)

type EventType string

const (
	EventStateChanged       EventType = "state_changed"
	EventPairingChallenge   EventType = "pairing_challenge"
	EventCredentialsUpdated EventType = "credentials_updated"
	EventReplySent          EventType = "reply_sent"
)

// Event is a session notification fanned out to every subscriber.
type Event struct {
	Type     EventType         `json:"type"`
	At       time.Time         `json:"at"`
	State    string            `json:"state,omitempty"`
	Pairing  string            `json:"pairing,omitempty"`
	SenderID string            `json:"sender_id,omitempty"`
	Payload  map[string]string `json:"payload,omitempty"`
	Error    string            `json:"error,omitempty"`
}

// InboundHandler consumes one queued inbound message.
type InboundHandler func(message.Inbound) error
