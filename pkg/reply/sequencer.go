// Package reply turns routed commands into ordered outbound units.
package reply

import (
	"context"
	"log/slog"

	"jamalekbot/pkg/command"
	"jamalekbot/pkg/directory"
	"jamalekbot/pkg/message"
)

// Sender delivers one unit to a recipient.
type Sender interface {
	Send(ctx context.Context, to string, unit message.Outbound) error
}

// SenderFunc adapts a function to Sender.
type SenderFunc func(ctx context.Context, to string, unit message.Outbound) error

func (f SenderFunc) Send(ctx context.Context, to string, unit message.Outbound) error {
	return f(ctx, to, unit)
}

// Sequencer executes intents and sends the resulting units in order.
//
// Send failures are logged per unit and never abort the sequence; directory
// failures become a single apology text.
type Sequencer struct {
	dir    directory.Directory
	sender Sender
	log    *slog.Logger
}

func NewSequencer(dir directory.Directory, sender Sender, log *slog.Logger) *Sequencer {
	if log == nil {
		log = slog.Default()
	}

	return &Sequencer{
		dir:    dir,
		sender: sender,
		log:    log.With("component", "reply.sequencer"),
	}
}

// Handle runs intent for sender and returns the units it attempted to send.
func (s *Sequencer) Handle(ctx context.Context, intent command.Intent, to string) []message.Outbound {
	var sent []message.Outbound
	emit := func(unit message.Outbound) {
		sent = append(sent, unit)
		if err := s.sender.Send(ctx, to, unit); err != nil {
			s.log.Error("Failed to send reply unit", "to", to, "kind", unit.Kind, "error", err)
		}
	}

	switch intent.Kind {
	case command.KindGreeting:
		emit(Static(greetingText))
	case command.KindHelp:
		emit(Static(helpText))
	case command.KindSelfTest:
		emit(Static(selfTestText))
	case command.KindSearch:
		emit(message.Text(searchingText(intent.Arg)))
		records, err := s.dir.Search(ctx, intent.Arg)
		if err != nil {
			s.log.Error("Directory search failed", "keyword", intent.Arg, "error", err)
			emit(message.Text(failureText))
			break
		}
		emit(SearchResults(intent.Arg, records))
	case command.KindInfo:
		emit(message.Text(searchingText(intent.Arg)))
		record, err := s.dir.GetOne(ctx, intent.Arg)
		if err != nil {
			s.log.Error("Directory lookup failed", "query", intent.Arg, "error", err)
			emit(message.Text(failureText))
			break
		}
		if record == nil {
			emit(message.Text(notFoundText(intent.Arg)))
			break
		}
		for _, unit := range InfoResults(*record) {
			emit(unit)
		}
	default:
		emit(Static(unrecognizedText))
	}

	return sent
}
