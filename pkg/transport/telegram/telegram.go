// Package telegram runs the bot on Telegram through long polling.
//
// Telegram has no device pairing: the bot token is the credential, so the
// connection opens immediately and never emits credential updates.
package telegram

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strconv"
	"strings"
	"sync"
	"unicode/utf8"

	"github.com/mymmrac/telego"
	tu "github.com/mymmrac/telego/telegoutil"

	"jamalekbot/pkg/message"
	"jamalekbot/pkg/transport"
)

const (
	transportName       = "telegram"
	messagePreviewLimit = 240
	eventBuffer         = 64
)

type Config struct {
	Token     string
	AllowFrom []string
}

type Transport struct {
	token     string
	allowFrom map[string]struct{}
	log       *slog.Logger
}

var _ transport.Transport = (*Transport)(nil)

func New(cfg Config, log *slog.Logger) (*Transport, error) {
	token := strings.TrimSpace(cfg.Token)
	if token == "" {
		return nil, errors.New("transport.telegram.token is required")
	}

	if log == nil {
		log = slog.Default()
	}

	return &Transport{
		token:     token,
		allowFrom: allowFromSet(cfg.AllowFrom),
		log:       log.With("component", "transport.telegram"),
	}, nil
}

func (t *Transport) Name() string {
	return transportName
}

// Connect validates the token with getMe and starts long polling. The
// credential argument is ignored.
func (t *Transport) Connect(ctx context.Context, _ transport.Credential) (transport.Conn, error) {
	bot, err := telego.NewBot(t.token, telego.WithDiscardLogger())
	if err != nil {
		return nil, fmt.Errorf("initialize telegram bot: %w", err)
	}

	me, err := bot.GetMe(ctx)
	if err != nil {
		return nil, fmt.Errorf("telegram getMe: %w", err)
	}

	pollCtx, cancel := context.WithCancel(ctx)
	updates, err := bot.UpdatesViaLongPolling(pollCtx, nil)
	if err != nil {
		cancel()
		return nil, fmt.Errorf("start long polling: %w", err)
	}

	c := &conn{
		bot:    bot,
		selfID: me.ID,
		events: make(chan transport.Event, eventBuffer),
		cancel: cancel,
		done:   make(chan struct{}),
		filter: t,
		log:    t.log,
	}

	c.events <- transport.Event{
		Kind: transport.EventConnectionUpdate,
		Connection: &transport.ConnectionUpdate{
			State:  transport.ConnectionOpen,
			SelfID: strconv.FormatInt(me.ID, 10),
		},
	}

	go c.pump(pollCtx, updates)

	t.log.Info("Telegram polling started", "bot", me.Username)
	return c, nil
}

// senderAllowed checks whether a sender is permitted by allow_from config.
//
// When no allow list is configured, all senders are accepted.
func (t *Transport) senderAllowed(senderID string) bool {
	if len(t.allowFrom) == 0 {
		return true
	}

	_, ok := t.allowFrom[strings.TrimSpace(senderID)]
	return ok
}

type conn struct {
	bot    *telego.Bot
	selfID int64
	events chan transport.Event
	cancel context.CancelFunc
	done   chan struct{}
	once   sync.Once
	filter *Transport
	log    *slog.Logger
}

func (c *conn) Events() <-chan transport.Event {
	return c.events
}

func (c *conn) Send(ctx context.Context, to string, unit message.Outbound) error {
	select {
	case <-c.done:
		return transport.ErrClosed
	default:
	}

	chatID, err := strconv.ParseInt(strings.TrimSpace(to), 10, 64)
	if err != nil {
		return fmt.Errorf("invalid telegram chat id %q: %w", to, err)
	}

	if unit.Kind == message.OutboundMedia {
		params := tu.Photo(tu.ID(chatID), tu.FileFromURL(unit.URL)).WithCaption(unit.Caption)
		if _, err := c.bot.SendPhoto(ctx, params); err != nil {
			return fmt.Errorf("telegram sendPhoto: %w", err)
		}
		return nil
	}

	c.log.Debug("Sending message", "chat_id", chatID, "content", previewText(unit.Body))
	if _, err := c.bot.SendMessage(ctx, tu.Message(tu.ID(chatID), unit.Body)); err != nil {
		return fmt.Errorf("telegram sendMessage: %w", err)
	}

	return nil
}

func (c *conn) Close() error {
	c.once.Do(func() {
		close(c.done)
		c.cancel()
	})

	return nil
}

// pump converts updates until polling stops, then ends the event stream.
func (c *conn) pump(ctx context.Context, updates <-chan telego.Update) {
	defer close(c.events)

	for {
		select {
		case <-ctx.Done():
			return
		case update, ok := <-updates:
			if !ok {
				c.log.Warn("Telegram updates channel closed")
				return
			}

			in, ok := c.inbound(update)
			if !ok {
				continue
			}

			select {
			case c.events <- transport.Event{Kind: transport.EventMessages, Messages: []message.Inbound{in}}:
			case <-ctx.Done():
				return
			}
		}
	}
}

// inbound maps one update to an inbound message. Channel posts are broadcast
// traffic; messages sent by the bot account itself are self-originated.
func (c *conn) inbound(update telego.Update) (message.Inbound, bool) {
	msg := update.Message
	broadcast := false
	if msg == nil && update.ChannelPost != nil {
		msg = update.ChannelPost
		broadcast = true
	}
	if msg == nil {
		return message.Inbound{}, false
	}

	if msg.From != nil && !broadcast {
		senderID := strconv.FormatInt(msg.From.ID, 10)
		if !c.filter.senderAllowed(senderID) {
			c.log.Debug("Ignoring message from unauthorized sender", "sender_id", senderID)
			return message.Inbound{}, false
		}
	}

	in := toInbound(update.UpdateID, msg, c.selfID)
	in.Broadcast = broadcast

	c.log.Info("Received message", "chat_id", in.SenderID, "content", previewText(msg.Text+msg.Caption))
	return in, true
}

func toInbound(updateID int, msg *telego.Message, selfID int64) message.Inbound {
	in := message.Inbound{
		ID:             strconv.Itoa(updateID),
		SenderID:       strconv.FormatInt(msg.Chat.ID, 10),
		SelfOriginated: msg.From != nil && msg.From.ID == selfID,
		Envelope:       message.Envelope{Conversation: msg.Text},
	}
	if len(msg.Photo) > 0 || msg.Caption != "" {
		in.Envelope.Image = &message.Image{Caption: msg.Caption}
	}

	return in
}

// allowFromSet normalizes allow_from values into a lookup set.
func allowFromSet(allowFrom []string) map[string]struct{} {
	if len(allowFrom) == 0 {
		return nil
	}

	allowed := make(map[string]struct{}, len(allowFrom))
	for _, value := range allowFrom {
		trimmed := strings.TrimSpace(value)
		if trimmed == "" {
			continue
		}
		allowed[trimmed] = struct{}{}
	}

	if len(allowed) == 0 {
		return nil
	}

	return allowed
}

// previewText returns a bounded log-safe preview of message text.
// previewText shortens text to messagePreviewLimit runes for logging.
func previewText(text string) string {
	trimmed := strings.TrimSpace(text)
	if utf8.RuneCountInString(trimmed) <= messagePreviewLimit {
		return trimmed
	}

	runes := []rune(trimmed)
	return string(runes[:messagePreviewLimit]) + "..."
}
