// Package console is an interactive terminal for trying the bot's commands
// against the configured directory without a messaging network.
package console

import (
	"context"
	"fmt"
	"log/slog"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"jamalekbot/pkg/command"
	"jamalekbot/pkg/directory"
	"jamalekbot/pkg/message"
	"jamalekbot/pkg/reply"
)

// consoleSender is the sender id used for console conversations.
const consoleSender = "console"

// ReplyFunc answers one line of user input with the units the bot would send.
type ReplyFunc func(ctx context.Context, text string) ([]message.Outbound, error)

// Info is shown in the console header.
type Info struct {
	Directory string
	Transport string
}

// NewReplyFunc routes text and runs the reply sequence against dir, capturing
// units instead of sending them.
func NewReplyFunc(dir directory.Directory, log *slog.Logger) ReplyFunc {
	discard := reply.SenderFunc(func(context.Context, string, message.Outbound) error { return nil })
	sequencer := reply.NewSequencer(dir, discard, log)

	return func(ctx context.Context, text string) ([]message.Outbound, error) {
		normalized := message.Normalize(message.Inbound{
			SenderID: consoleSender,
			Envelope: message.Envelope{Conversation: text},
		})
		if normalized.Text == "" {
			return nil, nil
		}

		return sequencer.Handle(ctx, command.Route(normalized), consoleSender), nil
	}
}

func RunInteractive(ctx context.Context, replyFn ReplyFunc, info Info) error {
	model := newModel(ctx, replyFn, modeInteractive, "", info)
	program := tea.NewProgram(model, tea.WithAltScreen(), tea.WithMouseCellMotion())
	if _, err := program.Run(); err != nil {
		return err
	}

	fmt.Println(renderGoodbyeBanner())
	return nil
}

func RunOneShot(ctx context.Context, replyFn ReplyFunc, text string, info Info) error {
	model := newModel(ctx, replyFn, modeOneShot, text, info)
	program := tea.NewProgram(model)
	_, err := program.Run()
	return err
}

func renderGoodbyeBanner() string {
	style := lipgloss.NewStyle().
		Bold(true).
		Foreground(lipgloss.Color("230")).
		Background(lipgloss.Color("29")).
		Padding(1, 2)

	return style.Render("👋 À bientôt sur Jamalek Online")
}
