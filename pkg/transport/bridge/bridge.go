// Package bridge talks to a WhatsApp Web bridge process over a WebSocket.
//
// The bridge owns the network's wire protocol and device keys. This side sends
// the stored credential on connect, then receives connection updates,
// credential updates and message batches as JSON frames. Outbound sends are
// correlated with their result frame by id.
package bridge

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"

	"jamalekbot/pkg/message"
	"jamalekbot/pkg/transport"
)

const (
	eventBuffer  = 64
	writeTimeout = 10 * time.Second
)

type Config struct {
	URL            string
	ConnectTimeout time.Duration
	SendTimeout    time.Duration
	KeepAlive      time.Duration
	Browser        string
	Header         http.Header
}

type Transport struct {
	cfg    Config
	dialer *websocket.Dialer
	log    *slog.Logger
}

var _ transport.Transport = (*Transport)(nil)

func New(cfg Config, log *slog.Logger) (*Transport, error) {
	if strings.TrimSpace(cfg.URL) == "" {
		return nil, errors.New("bridge url is required")
	}
	if cfg.ConnectTimeout <= 0 {
		cfg.ConnectTimeout = 60 * time.Second
	}
	if cfg.SendTimeout <= 0 {
		cfg.SendTimeout = 60 * time.Second
	}
	if cfg.KeepAlive <= 0 {
		cfg.KeepAlive = 30 * time.Second
	}
	if log == nil {
		log = slog.Default()
	}

	return &Transport{
		cfg: cfg,
		dialer: &websocket.Dialer{
			Proxy:            http.ProxyFromEnvironment,
			HandshakeTimeout: cfg.ConnectTimeout,
		},
		log: log.With("component", "transport.bridge"),
	}, nil
}

func (t *Transport) Name() string {
	return "whatsapp-bridge"
}

// Connect dials the bridge and sends the auth frame. The returned Conn emits
// events until the socket ends, then closes its event channel.
func (t *Transport) Connect(ctx context.Context, creds transport.Credential) (transport.Conn, error) {
	dialCtx, cancel := context.WithTimeout(ctx, t.cfg.ConnectTimeout)
	defer cancel()

	ws, resp, err := t.dialer.DialContext(dialCtx, t.cfg.URL, t.cfg.Header)
	if err != nil {
		if resp != nil {
			return nil, fmt.Errorf("dial bridge %s: %w (status %d)", t.cfg.URL, err, resp.StatusCode)
		}
		return nil, fmt.Errorf("dial bridge %s: %w", t.cfg.URL, err)
	}

	c := &conn{
		ws:          ws,
		events:      make(chan transport.Event, eventBuffer),
		pending:     make(map[string]chan sendResultData),
		queued:      make(chan struct{}, 1),
		readDone:    make(chan struct{}),
		done:        make(chan struct{}),
		sendTimeout: t.cfg.SendTimeout,
		log:         t.log,
	}

	auth := authData{Browser: t.cfg.Browser}
	if !creds.Empty() {
		auth.Creds = json.RawMessage(creds)
	}
	if err := c.writeFrame(frameAuth, "", auth); err != nil {
		_ = ws.Close()
		return nil, fmt.Errorf("send auth frame: %w", err)
	}

	go c.readLoop()
	go c.forward()
	go c.keepAlive(t.cfg.KeepAlive)

	t.log.Info("Connected to bridge", "url", t.cfg.URL, "has_credentials", !creds.Empty())
	return c, nil
}

type conn struct {
	ws     *websocket.Conn
	events chan transport.Event

	writeMu sync.Mutex

	pendingMu sync.Mutex
	pending   map[string]chan sendResultData

	// The socket reader only appends here so send results are never stuck
	// behind events the supervisor has not consumed yet.
	queueMu  sync.Mutex
	queue    []transport.Event
	queued   chan struct{}
	readDone chan struct{}

	done      chan struct{}
	closeOnce sync.Once

	sendTimeout time.Duration
	log         *slog.Logger
}

func (c *conn) Events() <-chan transport.Event {
	return c.events
}

// Send writes one send frame and waits for the matching send.result.
func (c *conn) Send(ctx context.Context, to string, unit message.Outbound) error {
	id := uuid.NewString()
	result := make(chan sendResultData, 1)

	c.pendingMu.Lock()
	c.pending[id] = result
	c.pendingMu.Unlock()

	defer func() {
		c.pendingMu.Lock()
		delete(c.pending, id)
		c.pendingMu.Unlock()
	}()

	if err := c.writeFrame(frameSend, id, sendData{JID: to, Content: outboundContent(unit)}); err != nil {
		return err
	}

	timer := time.NewTimer(c.sendTimeout)
	defer timer.Stop()

	select {
	case res := <-result:
		if !res.OK {
			return fmt.Errorf("bridge rejected send: %s", res.Error)
		}
		return nil
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return fmt.Errorf("send %s: no result after %s", id, c.sendTimeout)
	case <-c.readDone:
		return transport.ErrClosed
	case <-c.done:
		return transport.ErrClosed
	}
}

func (c *conn) Close() error {
	var err error
	c.closeOnce.Do(func() {
		close(c.done)

		deadline := time.Now().Add(time.Second)
		_ = c.ws.WriteControl(websocket.CloseMessage, websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""), deadline)
		err = c.ws.Close()
	})

	return err
}

func (c *conn) writeFrame(kind, id string, data any) error {
	payload, err := json.Marshal(data)
	if err != nil {
		return fmt.Errorf("encode %s frame: %w", kind, err)
	}

	raw, err := json.Marshal(frame{Type: kind, ID: id, Data: payload})
	if err != nil {
		return fmt.Errorf("encode %s frame: %w", kind, err)
	}

	c.writeMu.Lock()
	defer c.writeMu.Unlock()

	select {
	case <-c.done:
		return transport.ErrClosed
	default:
	}

	if err := c.ws.SetWriteDeadline(time.Now().Add(writeTimeout)); err != nil {
		return fmt.Errorf("set write deadline: %w", err)
	}
	if err := c.ws.WriteMessage(websocket.TextMessage, raw); err != nil {
		return fmt.Errorf("write %s frame: %w", kind, err)
	}

	return nil
}

func (c *conn) readLoop() {
	defer close(c.readDone)

	for {
		_, data, err := c.ws.ReadMessage()
		if err != nil {
			select {
			case <-c.done:
			default:
				if websocket.IsUnexpectedCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
					c.log.Warn("Bridge socket ended", "error", err)
				}
			}
			return
		}

		var f frame
		if err := json.Unmarshal(data, &f); err != nil {
			c.log.Warn("Invalid bridge frame", "error", err)
			continue
		}

		if !c.dispatch(f) {
			return
		}
	}
}

// dispatch handles one frame. It returns false once the connection is done.
func (c *conn) dispatch(f frame) bool {
	switch f.Type {
	case frameConnectionUpdate:
		var data connectionData
		if err := json.Unmarshal(f.Data, &data); err != nil {
			c.log.Warn("Invalid connection update", "error", err)
			return true
		}
		return c.emit(transport.Event{Kind: transport.EventConnectionUpdate, Connection: data.update()})

	case frameCredsUpdate:
		if len(f.Data) == 0 {
			return true
		}
		creds := append(transport.Credential(nil), f.Data...)
		return c.emit(transport.Event{Kind: transport.EventCredentialsUpdate, Credential: creds})

	case frameMessagesUpsert:
		var data upsertData
		if err := json.Unmarshal(f.Data, &data); err != nil {
			c.log.Warn("Invalid message batch", "error", err)
			return true
		}

		batch := make([]message.Inbound, 0, len(data.Messages))
		for _, wm := range data.Messages {
			if strings.TrimSpace(wm.Key.RemoteJID) == "" {
				c.log.Warn("Dropping message without sender", "message_id", wm.Key.ID)
				continue
			}
			batch = append(batch, wm.inbound())
		}
		if len(batch) == 0 {
			return true
		}
		return c.emit(transport.Event{Kind: transport.EventMessages, Messages: batch})

	case frameSendResult:
		var data sendResultData
		if err := json.Unmarshal(f.Data, &data); err != nil {
			c.log.Warn("Invalid send result", "error", err, "id", f.ID)
			return true
		}

		c.pendingMu.Lock()
		waiter, ok := c.pending[f.ID]
		c.pendingMu.Unlock()
		if ok {
			select {
			case waiter <- data:
			default:
				c.log.Debug("Duplicate send result", "id", f.ID)
			}
		} else {
			c.log.Debug("Send result for unknown id", "id", f.ID)
		}
		return true

	default:
		c.log.Debug("Ignoring bridge frame", "type", f.Type)
		return true
	}
}

// emit queues event for forward without blocking the socket reader.
func (c *conn) emit(event transport.Event) bool {
	select {
	case <-c.done:
		return false
	default:
	}

	c.queueMu.Lock()
	c.queue = append(c.queue, event)
	c.queueMu.Unlock()

	select {
	case c.queued <- struct{}{}:
	default:
	}
	return true
}

// forward delivers queued events in order. Once the reader stops it drains
// what is left, closes the connection and then the event channel.
func (c *conn) forward() {
	defer close(c.events)
	defer c.Close()

	for {
		if !c.flush() {
			return
		}

		select {
		case <-c.queued:
		case <-c.readDone:
			c.flush()
			return
		case <-c.done:
			return
		}
	}
}

func (c *conn) flush() bool {
	c.queueMu.Lock()
	batch := c.queue
	c.queue = nil
	c.queueMu.Unlock()

	for _, event := range batch {
		select {
		case c.events <- event:
		case <-c.done:
			return false
		}
	}
	return true
}

func (c *conn) keepAlive(interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-c.done:
			return
		case <-ticker.C:
			deadline := time.Now().Add(writeTimeout)
			if err := c.ws.WriteControl(websocket.PingMessage, nil, deadline); err != nil {
				c.log.Warn("Bridge keep-alive failed", "error", err)
				_ = c.Close()
				return
			}
		}
	}
}

func (d connectionData) update() *transport.ConnectionUpdate {
	update := &transport.ConnectionUpdate{
		State:       transport.ConnectionState(d.Connection),
		PairingCode: d.QR,
	}
	if d.Me != nil {
		update.SelfID = d.Me.ID
	}

	if update.State == transport.ConnectionClose {
		reason := &transport.CloseReason{Message: "connection closed"}
		if d.LastDisconnect != nil {
			reason.Code = d.LastDisconnect.StatusCode
			reason.LoggedOut = d.LastDisconnect.StatusCode == statusLoggedOut
			if d.LastDisconnect.Message != "" {
				reason.Message = d.LastDisconnect.Message
			}
		}
		update.Close = reason
	}

	return update
}
