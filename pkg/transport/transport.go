// Package transport is the boundary to the messaging network.
//
// A Transport opens one Conn per connection attempt. The Conn reports
// connection updates, credential updates and inbound messages on a single
// ordered event channel, which is closed when the connection ends.
package transport

import (
	"context"
	"encoding/json"
	"errors"

	"jamalekbot/pkg/message"
)

// ErrClosed is returned by Send once the connection has ended.
var ErrClosed = errors.New("transport connection closed")

// Credential is opaque session-authentication material owned by the transport.
type Credential json.RawMessage

func (c Credential) Empty() bool {
	return len(c) == 0
}

type Transport interface {
	Name() string
	Connect(ctx context.Context, creds Credential) (Conn, error)
}

type Conn interface {
	Events() <-chan Event
	Send(ctx context.Context, to string, unit message.Outbound) error
	Close() error
}

type ConnectionState string

const (
	ConnectionConnecting ConnectionState = "connecting"
	ConnectionOpen       ConnectionState = "open"
	ConnectionClose      ConnectionState = "close"
)

type EventKind string

const (
	EventConnectionUpdate  EventKind = "connection.update"
	EventCredentialsUpdate EventKind = "creds.update"
	EventMessages          EventKind = "messages.upsert"
)

// Event is one item of the connection's event stream. Exactly one of
// Connection, Credential or Messages is set, matching Kind.
type Event struct {
	Kind       EventKind
	Connection *ConnectionUpdate
	Credential Credential
	Messages   []message.Inbound
}

// ConnectionUpdate mirrors the network's connection status. PairingCode is set
// when interactive authorization is required; Close is set when State is close.
type ConnectionUpdate struct {
	State       ConnectionState
	PairingCode string
	Close       *CloseReason
	SelfID      string
}

// CloseReason explains a closure. LoggedOut is terminal: the stored session
// was revoked and the account must be paired again.
type CloseReason struct {
	Code      int
	Message   string
	LoggedOut bool
}

func (r *CloseReason) Error() string {
	if r == nil {
		return "connection closed"
	}
	if r.Message == "" {
		return "connection closed"
	}

	return r.Message
}
