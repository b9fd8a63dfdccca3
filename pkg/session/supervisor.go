// Package session keeps one authenticated connection to the messaging network
// alive: it pairs, persists credentials, reconnects after closures and hands
// inbound messages to the bus.
package session

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"jamalekbot/pkg/bus"
	"jamalekbot/pkg/message"
	"jamalekbot/pkg/transport"
)

var (
	ErrAlreadyRunning = errors.New("session supervisor already running")
	ErrNotConnected   = errors.New("session not connected")
)

const announceText = "✅ Bot démarré avec succès!\n\nEnvoyez *aide* pour voir les commandes disponibles."

// Options tune the supervisor. Zero delays fall back to 3s and 10s.
type Options struct {
	AuthDir           string
	PrunePattern      string
	ReconnectDelay    time.Duration
	SetupFailureDelay time.Duration
	Announce          bool
}

type Supervisor struct {
	transport transport.Transport
	store     CredentialStore
	bus       *bus.MessageBus
	opts      Options
	log       *slog.Logger

	after func(time.Duration) <-chan time.Time
	now   func() time.Time

	mu        sync.RWMutex
	state     State
	selfID    string
	pairing   *PairingChallenge
	conn      transport.Conn
	cancel    context.CancelFunc
	done      chan struct{}
	lastDone  chan struct{}
	loggedOut bool
}

// attempt is the outcome of one connection attempt.
type attempt struct {
	setupErr error
	closed   *transport.CloseReason
}

func NewSupervisor(t transport.Transport, store CredentialStore, mb *bus.MessageBus, opts Options, log *slog.Logger) *Supervisor {
	if log == nil {
		log = slog.Default()
	}
	if opts.ReconnectDelay <= 0 {
		opts.ReconnectDelay = 3 * time.Second
	}
	if opts.SetupFailureDelay <= 0 {
		opts.SetupFailureDelay = 10 * time.Second
	}

	return &Supervisor{
		transport: t,
		store:     store,
		bus:       mb,
		opts:      opts,
		log:       log.With("component", "session.supervisor", "transport", t.Name()),
		after:     time.After,
		now:       time.Now,
		state:     StateDisconnected,
	}
}

// Start launches the connection loop and returns immediately. Progress is
// reported on the bus. After a logged-out halt the credential store is
// cleared first so the account pairs from scratch.
func (s *Supervisor) Start(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.done != nil {
		return ErrAlreadyRunning
	}

	if s.loggedOut {
		if err := s.store.Clear(ctx); err != nil {
			return fmt.Errorf("clear revoked credentials: %w", err)
		}
		s.loggedOut = false
		s.log.Info("Cleared revoked credentials before re-pairing")
	}

	runCtx, cancel := context.WithCancel(ctx)
	done := make(chan struct{})
	s.cancel = cancel
	s.done = done

	go s.run(runCtx, done)

	return nil
}

// Stop closes the live connection and waits for the loop to exit. No
// reconnect follows. Stopping an idle supervisor is a no-op.
func (s *Supervisor) Stop() {
	s.mu.Lock()
	cancel, done := s.cancel, s.done
	s.mu.Unlock()

	if done == nil {
		return
	}

	s.setState(StateClosing)
	cancel()
	<-done
}

// Done is closed when the current run ends. When idle it returns the last
// run's channel, or a closed one if Start was never called.
func (s *Supervisor) Done() <-chan struct{} {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if s.done != nil {
		return s.done
	}
	if s.lastDone != nil {
		return s.lastDone
	}

	idle := make(chan struct{})
	close(idle)
	return idle
}

func (s *Supervisor) State() State {
	s.mu.RLock()
	defer s.mu.RUnlock()

	return s.state
}

// SelfID is the account identifier reported on the last successful open.
func (s *Supervisor) SelfID() string {
	s.mu.RLock()
	defer s.mu.RUnlock()

	return s.selfID
}

// Pairing returns the outstanding challenge, or nil once connected.
func (s *Supervisor) Pairing() *PairingChallenge {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if s.pairing == nil {
		return nil
	}
	challenge := *s.pairing
	return &challenge
}

// LoggedOut reports whether the last run halted on a revoked session.
func (s *Supervisor) LoggedOut() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()

	return s.loggedOut
}

// Send delivers one unit over the live connection. It does not retry.
func (s *Supervisor) Send(ctx context.Context, to string, unit message.Outbound) error {
	s.mu.RLock()
	conn, state := s.conn, s.state
	s.mu.RUnlock()

	if conn == nil || state != StateConnected {
		return ErrNotConnected
	}

	return conn.Send(ctx, to, unit)
}

func (s *Supervisor) run(ctx context.Context, done chan struct{}) {
	defer func() {
		s.mu.Lock()
		s.cancel = nil
		s.done = nil
		s.lastDone = done
		s.mu.Unlock()

		s.setState(StateDisconnected)
		close(done)
	}()

	for {
		s.setState(StateConnecting)
		s.pruneArtifacts()

		result := s.connectOnce(ctx)
		if ctx.Err() != nil {
			return
		}

		if result.closed != nil && result.closed.LoggedOut {
			// Set before the transition so watchers of state_changed see it.
			s.mu.Lock()
			s.loggedOut = true
			s.mu.Unlock()
			s.setState(StateDisconnected)
			s.log.Warn("Session logged out; pairing required", "code", result.closed.Code)
			return
		}

		s.setState(StateDisconnected)

		delay := s.opts.ReconnectDelay
		if result.setupErr != nil {
			delay = s.opts.SetupFailureDelay
			s.log.Error("Connection setup failed", "error", result.setupErr, "retry_in", delay)
		} else {
			s.log.Info("Connection closed, reconnecting", "reason", result.closed.Error(), "retry_in", delay)
		}

		select {
		case <-ctx.Done():
			return
		case <-s.after(delay):
		}
	}
}

func (s *Supervisor) connectOnce(ctx context.Context) attempt {
	creds, err := s.store.Load(ctx)
	if err != nil {
		return attempt{setupErr: fmt.Errorf("load credentials: %w", err)}
	}
	if creds.Empty() {
		s.log.Info("No stored credentials; waiting for pairing")
	}

	conn, err := s.transport.Connect(ctx, creds)
	if err != nil {
		return attempt{setupErr: err}
	}

	s.mu.Lock()
	s.conn = conn
	s.mu.Unlock()

	defer func() {
		s.mu.Lock()
		s.conn = nil
		s.mu.Unlock()

		if err := conn.Close(); err != nil {
			s.log.Debug("Close connection", "error", err)
		}
	}()

	events := conn.Events()
	for {
		select {
		case <-ctx.Done():
			return attempt{}
		case event, ok := <-events:
			if !ok {
				return attempt{closed: &transport.CloseReason{Message: "event stream ended"}}
			}

			if reason := s.handleEvent(ctx, event); reason != nil {
				return attempt{closed: reason}
			}
		}
	}
}

// handleEvent applies one transport event. A non-nil return ends the attempt.
func (s *Supervisor) handleEvent(ctx context.Context, event transport.Event) *transport.CloseReason {
	switch event.Kind {
	case transport.EventCredentialsUpdate:
		s.saveCredentials(ctx, event.Credential)
	case transport.EventConnectionUpdate:
		if event.Connection == nil {
			return nil
		}
		return s.handleConnection(ctx, *event.Connection)
	case transport.EventMessages:
		for _, msg := range event.Messages {
			if !s.bus.PublishInbound(ctx, msg) {
				s.log.Warn("Inbound queue closed; message dropped", "message_id", msg.ID)
			}
		}
	default:
		s.log.Debug("Ignoring transport event", "kind", event.Kind)
	}

	return nil
}

func (s *Supervisor) handleConnection(ctx context.Context, update transport.ConnectionUpdate) *transport.CloseReason {
	if update.PairingCode != "" {
		challenge := PairingChallenge{Code: update.PairingCode, IssuedAt: s.now()}

		s.mu.Lock()
		s.pairing = &challenge
		s.mu.Unlock()

		s.setState(StateAwaitingPairing)
		s.bus.PublishEvent(context.Background(), bus.Event{
			Type:    bus.EventPairingChallenge,
			Pairing: challenge.Code,
		})
		s.log.Info("Pairing required; scan the code with the account's device")
	}

	switch update.State {
	case transport.ConnectionOpen:
		s.mu.Lock()
		s.pairing = nil
		if update.SelfID != "" {
			s.selfID = update.SelfID
		}
		selfID := s.selfID
		s.mu.Unlock()

		s.setState(StateConnected)
		s.log.Info("Connected", "self_id", selfID)

		if s.opts.Announce && selfID != "" {
			go s.announce(ctx, selfID)
		}
	case transport.ConnectionClose:
		if update.Close != nil {
			return update.Close
		}
		return &transport.CloseReason{}
	}

	return nil
}

// saveCredentials persists inline so the next event is only read after the
// write has finished.
func (s *Supervisor) saveCredentials(ctx context.Context, creds transport.Credential) {
	if creds.Empty() {
		return
	}

	event := bus.Event{Type: bus.EventCredentialsUpdated}
	if err := s.store.Save(ctx, creds); err != nil {
		s.log.Error("Failed to save credentials", "error", err)
		event.Error = err.Error()
	}

	s.bus.PublishEvent(context.Background(), event)
}

func (s *Supervisor) announce(ctx context.Context, selfID string) {
	if err := s.Send(ctx, selfID, message.Text(announceText)); err != nil {
		s.log.Warn("Startup announcement failed", "error", err)
	}
}

func (s *Supervisor) pruneArtifacts() {
	if s.opts.AuthDir == "" {
		return
	}

	removed, err := PruneArtifacts(s.opts.AuthDir, s.opts.PrunePattern)
	if err != nil {
		s.log.Warn("Failed to prune stale session artifacts", "error", err)
	}
	if len(removed) > 0 {
		s.log.Debug("Pruned stale session artifacts", "files", removed)
	}
}

func (s *Supervisor) setState(next State) {
	s.mu.Lock()
	if s.state == next {
		s.mu.Unlock()
		return
	}
	prev := s.state
	s.state = next
	s.mu.Unlock()

	s.log.Debug("State changed", "from", prev, "to", next)
	s.bus.PublishEvent(context.Background(), bus.Event{
		Type:  bus.EventStateChanged,
		State: next.String(),
	})
}
