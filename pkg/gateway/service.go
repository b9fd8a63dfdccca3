package gateway

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"strconv"
	"strings"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"

	"jamalekbot/pkg/bus"
	"jamalekbot/pkg/config"
	"jamalekbot/pkg/session"
)

const (
	serviceName     = "Jamalek Online Bot"
	shutdownTimeout = 5 * time.Second
)

// Session is the connection supervisor as seen by the gateway.
type Session interface {
	Start(ctx context.Context) error
	Stop()
	State() session.State
	SelfID() string
	Pairing() *session.PairingChallenge
	LoggedOut() bool
}

// Dispatcher drains the inbound queue until ctx ends.
type Dispatcher interface {
	Run(ctx context.Context)
}

// Service runs the bot: session supervisor, inbound dispatcher, pairing
// display and the HTTP status surface. It stops everything when ctx ends or
// the HTTP listener fails.
type Service struct {
	cfg        config.GatewayConfig
	session    Session
	dispatcher Dispatcher
	bus        *bus.MessageBus
	pairing    PairingRenderer
	log        *slog.Logger

	mu        sync.RWMutex
	startedAt time.Time
	listening string
}

type Option func(*Service)

// WithPairingRenderer replaces the terminal QR renderer.
func WithPairingRenderer(render PairingRenderer) Option {
	return func(s *Service) {
		s.pairing = render
	}
}

func NewService(cfg *config.Config, sess Session, dispatcher Dispatcher, mb *bus.MessageBus, log *slog.Logger, opts ...Option) (*Service, error) {
	if cfg == nil {
		return nil, errors.New("config is required")
	}
	if sess == nil {
		return nil, errors.New("session is required")
	}
	if dispatcher == nil {
		return nil, errors.New("dispatcher is required")
	}
	if mb == nil {
		return nil, errors.New("message bus is required")
	}
	if log == nil {
		log = slog.Default()
	}

	s := &Service{
		cfg:        cfg.Gateway,
		session:    sess,
		dispatcher: dispatcher,
		bus:        mb,
		log:        log.With("component", "gateway.service"),
	}
	if cfg.Session.ShouldRenderQRCode() {
		s.pairing = TerminalQR(nil)
	}
	for _, opt := range opts {
		opt(s)
	}

	return s, nil
}

func (s *Service) Run(ctx context.Context) error {
	if ctx == nil {
		ctx = context.Background()
	}

	s.mu.Lock()
	s.startedAt = time.Now().UTC()
	s.mu.Unlock()

	listener, err := net.Listen("tcp", s.address())
	if err != nil {
		return fmt.Errorf("listen on %s: %w", s.address(), err)
	}

	runCtx, cancel := context.WithCancel(ctx)
	defer cancel()

	g, gctx := errgroup.WithContext(runCtx)

	events, unsubscribe := s.bus.SubscribeEvents(gctx, 16)
	g.Go(func() error {
		defer unsubscribe()
		s.watchEvents(gctx, events)
		return nil
	})

	g.Go(func() error {
		s.dispatcher.Run(gctx)
		return nil
	})

	g.Go(func() error {
		return s.serveHTTP(gctx, listener)
	})

	if err := s.session.Start(gctx); err != nil {
		cancel()
		_ = g.Wait()
		return fmt.Errorf("start session: %w", err)
	}

	g.Go(func() error {
		<-gctx.Done()
		s.session.Stop()
		s.bus.Close()
		return nil
	})

	return g.Wait()
}

// Addr is the bound listener address once Run has started serving.
func (s *Service) Addr() string {
	s.mu.RLock()
	defer s.mu.RUnlock()

	return s.listening
}

func (s *Service) address() string {
	return net.JoinHostPort(strings.TrimSpace(s.cfg.Host), strconv.Itoa(s.cfg.Port))
}

func (s *Service) serveHTTP(ctx context.Context, listener net.Listener) error {
	server := &http.Server{
		Handler:           s.routes(),
		ReadHeaderTimeout: 5 * time.Second,
	}

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		_ = server.Shutdown(shutdownCtx)
	}()

	s.mu.Lock()
	s.listening = listener.Addr().String()
	s.mu.Unlock()

	s.log.Info("Web server started", "address", listener.Addr().String())
	if err := server.Serve(listener); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return fmt.Errorf("serve http: %w", err)
	}

	return nil
}

// watchEvents renders pairing challenges and reports session transitions.
func (s *Service) watchEvents(ctx context.Context, events <-chan bus.Event) {
	for {
		select {
		case <-ctx.Done():
			return
		case event, ok := <-events:
			if !ok {
				return
			}
			s.handleEvent(event)
		}
	}
}

func (s *Service) handleEvent(event bus.Event) {
	switch event.Type {
	case bus.EventPairingChallenge:
		s.log.Info("Scan the QR code with WhatsApp to link the bot")
		if s.pairing != nil {
			s.pairing(event.Pairing)
		}
	case bus.EventStateChanged:
		s.log.Info("Session state changed", "state", event.State)
		if event.State == string(session.StateDisconnected) && s.session.LoggedOut() {
			s.log.Warn("Session was logged out; run `jamalekbot logout` and restart to pair again")
		}
	case bus.EventCredentialsUpdated:
		if event.Error != "" {
			s.log.Error("Credentials were not persisted", "error", event.Error)
		}
	case bus.EventReplySent:
		s.log.Debug("Reply sent", "sender", event.SenderID, "intent", event.Payload["intent"], "units", event.Payload["units"])
	}
}
