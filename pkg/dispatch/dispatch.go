// Package dispatch drains the inbound queue and answers each message in turn.
package dispatch

import (
	"context"
	"errors"
	"log/slog"
	"strconv"

	"jamalekbot/pkg/bus"
	"jamalekbot/pkg/command"
	"jamalekbot/pkg/message"
	"jamalekbot/pkg/reply"
)

// ErrMalformed marks an inbound message that carries no sender to reply to.
var ErrMalformed = errors.New("inbound message has no sender")

type Dispatcher struct {
	bus       *bus.MessageBus
	sequencer *reply.Sequencer
	log       *slog.Logger
}

func New(mb *bus.MessageBus, sequencer *reply.Sequencer, log *slog.Logger) *Dispatcher {
	if log == nil {
		log = slog.Default()
	}

	return &Dispatcher{
		bus:       mb,
		sequencer: sequencer,
		log:       log.With("component", "dispatch"),
	}
}

// Run handles queued messages one at a time, in arrival order, until ctx ends
// or the bus closes. A reply sequence always finishes before the next message
// is read.
func (d *Dispatcher) Run(ctx context.Context) {
	d.log.Info("Dispatcher started")
	defer d.log.Info("Dispatcher stopped")

	d.bus.RunInbound(ctx, func(in message.Inbound) error {
		return d.Handle(ctx, in)
	}, func(in message.Inbound, err error) {
		d.log.Warn("Dropped inbound message", "message_id", in.ID, "error", err)
	})
}

// Handle answers one message. Self-originated, broadcast and text-less
// messages are ignored without a reply.
func (d *Dispatcher) Handle(ctx context.Context, in message.Inbound) error {
	if in.Ignored() {
		d.log.Debug("Ignoring message", "message_id", in.ID, "self", in.SelfOriginated, "broadcast", in.Broadcast)
		return nil
	}
	if in.SenderID == "" {
		return ErrMalformed
	}

	normalized := message.Normalize(in)
	if normalized.Text == "" {
		d.log.Debug("Ignoring message without text", "sender", in.SenderID, "message_id", in.ID)
		return nil
	}

	intent := command.Route(normalized)
	d.log.Info("Received message", "sender", in.SenderID, "intent", intent.Kind, "text", normalized.Text)

	units := d.sequencer.Handle(ctx, intent, in.SenderID)

	d.bus.PublishEvent(ctx, bus.Event{
		Type:     bus.EventReplySent,
		SenderID: in.SenderID,
		Payload: map[string]string{
			"intent": string(intent.Kind),
			"units":  strconv.Itoa(len(units)),
		},
	})

	return nil
}
