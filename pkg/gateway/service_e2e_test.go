package gateway

import (
	"context"
	"encoding/json"
	"errors"
	"net"
	"net/http"
	"strconv"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"jamalekbot/pkg/bus"
	"jamalekbot/pkg/config"
	"jamalekbot/pkg/directory"
	"jamalekbot/pkg/dispatch"
	"jamalekbot/pkg/logger"
	"jamalekbot/pkg/message"
	"jamalekbot/pkg/reply"
	"jamalekbot/pkg/session"
	"jamalekbot/pkg/transport"
)

type delivered struct {
	to   string
	unit message.Outbound
}

type scriptedConn struct {
	events chan transport.Event

	mu   sync.Mutex
	sent []delivered
}

func (c *scriptedConn) Events() <-chan transport.Event { return c.events }

func (c *scriptedConn) Send(_ context.Context, to string, unit message.Outbound) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.sent = append(c.sent, delivered{to: to, unit: unit})
	return nil
}

func (c *scriptedConn) Close() error { return nil }

func (c *scriptedConn) deliveries() []delivered {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]delivered(nil), c.sent...)
}

type scriptedTransport struct {
	conn *scriptedConn
}

func (t *scriptedTransport) Name() string { return "scripted" }

func (t *scriptedTransport) Connect(context.Context, transport.Credential) (transport.Conn, error) {
	return t.conn, nil
}

type memoryDirectory struct {
	records []directory.Record
}

func (d memoryDirectory) Search(_ context.Context, keyword string) ([]directory.Record, error) {
	return directory.Filter(d.records, keyword), nil
}

func (d memoryDirectory) GetOne(_ context.Context, idOrName string) (*directory.Record, error) {
	return directory.Find(d.records, idOrName), nil
}

type nopStore struct{}

func (nopStore) Load(context.Context) (transport.Credential, error) { return nil, nil }
func (nopStore) Save(context.Context, transport.Credential) error   { return nil }
func (nopStore) Clear(context.Context) error                        { return nil }

func TestGatewayServiceRunE2E(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	log := logger.Discard()
	mb := bus.NewMessageBus()

	conn := &scriptedConn{events: make(chan transport.Event, 8)}
	sup := session.NewSupervisor(&scriptedTransport{conn: conn}, nopStore{}, mb, session.Options{}, log)

	dir := memoryDirectory{records: []directory.Record{{
		ID:        "7",
		Name:      "Boulangerie Amal",
		Phone:     "0522000000",
		Address:   "Bd Zerktouni",
		Category:  "Boulangerie",
		PhotoURLs: []string{"https://img/1.jpg", "https://img/2.jpg"},
	}}}
	dispatcher := dispatch.New(mb, reply.NewSequencer(dir, sup, log), log)

	cfg := &config.Config{Gateway: config.GatewayConfig{Host: "127.0.0.1", Port: freeTCPPort(t)}}
	cfg.ApplyDefaults()

	var pairings []string
	var pairingMu sync.Mutex
	svc, err := NewService(cfg, sup, dispatcher, mb, log, WithPairingRenderer(func(code string) {
		pairingMu.Lock()
		pairings = append(pairings, code)
		pairingMu.Unlock()
	}))
	require.NoError(t, err)

	runErr := make(chan error, 1)
	go func() { runErr <- svc.Run(ctx) }()

	conn.events <- transport.Event{Kind: transport.EventConnectionUpdate, Connection: &transport.ConnectionUpdate{PairingCode: "2@scan-me"}}
	require.Eventually(t, func() bool {
		pairingMu.Lock()
		defer pairingMu.Unlock()
		return len(pairings) == 1
	}, 2*time.Second, 10*time.Millisecond)

	base := "http://" + net.JoinHostPort("127.0.0.1", strconv.Itoa(cfg.Gateway.Port))
	require.Equal(t, http.StatusServiceUnavailable, statusCode(t, base+"/readyz"))

	conn.events <- transport.Event{Kind: transport.EventConnectionUpdate, Connection: &transport.ConnectionUpdate{
		State:  transport.ConnectionOpen,
		SelfID: "bot@s.whatsapp.net",
	}}
	require.Eventually(t, func() bool { return statusCode(t, base+"/readyz") == http.StatusOK }, 2*time.Second, 20*time.Millisecond)

	conn.events <- transport.Event{Kind: transport.EventMessages, Messages: []message.Inbound{
		{ID: "1", SenderID: "status@broadcast", Broadcast: true, Envelope: message.Envelope{Conversation: "salut"}},
		{ID: "2", SenderID: "client@s.whatsapp.net", SelfOriginated: true, Envelope: message.Envelope{Conversation: "salut"}},
		{ID: "3", SenderID: "client@s.whatsapp.net", Envelope: message.Envelope{Conversation: "info 7"}},
	}}

	require.Eventually(t, func() bool { return len(conn.deliveries()) == 4 }, 2*time.Second, 10*time.Millisecond)

	got := conn.deliveries()
	for _, d := range got {
		require.Equal(t, "client@s.whatsapp.net", d.to)
	}
	require.Equal(t, message.OutboundText, got[0].unit.Kind)
	require.Contains(t, got[1].unit.Body, "Boulangerie Amal")
	require.Equal(t, message.Media("https://img/1.jpg", "Boulangerie Amal"), got[2].unit)
	require.Equal(t, message.Media("https://img/2.jpg", "Boulangerie Amal"), got[3].unit)

	resp, err := http.Get(base + "/status")
	require.NoError(t, err)
	var status statusResponse
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&status))
	resp.Body.Close()
	require.Equal(t, "connected", status.Session)
	require.Equal(t, "bot@s.whatsapp.net", status.SelfID)

	cancel()
	select {
	case err := <-runErr:
		require.NoError(t, err)
	case <-time.After(5 * time.Second):
		t.Fatal("gateway did not stop")
	}
	require.Equal(t, session.StateDisconnected, sup.State())
}

func TestGatewayRunFailsWhenSessionCannotStart(t *testing.T) {
	mb := bus.NewMessageBus()
	cfg := &config.Config{Gateway: config.GatewayConfig{Host: "127.0.0.1", Port: freeTCPPort(t)}}
	cfg.ApplyDefaults()

	sess := &stubSession{startErr: errors.New("boom")}
	svc, err := NewService(cfg, sess, idleDispatcher{}, mb, logger.Discard(), WithPairingRenderer(nil))
	require.NoError(t, err)

	err = svc.Run(context.Background())
	require.ErrorContains(t, err, "start session")
}

func statusCode(t *testing.T, url string) int {
	t.Helper()

	resp, err := http.Get(url)
	if err != nil {
		return 0
	}
	defer resp.Body.Close()
	return resp.StatusCode
}

func freeTCPPort(t *testing.T) int {
	t.Helper()

	listener, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	defer listener.Close()

	addr, ok := listener.Addr().(*net.TCPAddr)
	require.True(t, ok)
	return addr.Port
}
