package bus

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"jamalekbot/pkg/message"
)

const waitFor = 500 * time.Millisecond

func publishAll(t *testing.T, mb *MessageBus, ids ...string) {
	t.Helper()

	for _, id := range ids {
		require.True(t, mb.PublishInbound(context.Background(), message.Inbound{ID: id, SenderID: "212600000000@s.whatsapp.net"}), "publish %s", id)
	}
}

func TestInboundIsConsumedInArrivalOrder(t *testing.T) {
	mb := NewMessageBus()
	t.Cleanup(mb.Close)

	publishAll(t, mb, "m1", "m2", "m3")

	var got []string
	for range 3 {
		msg, ok := mb.ConsumeInbound(context.Background())
		require.True(t, ok)
		got = append(got, msg.ID)
	}
	require.Equal(t, []string{"m1", "m2", "m3"}, got)
}

func TestClosedOrCanceledBusRejectsWork(t *testing.T) {
	canceled, cancel := context.WithCancel(context.Background())
	cancel()

	tests := []struct {
		name  string
		ctx   context.Context
		close bool
	}{
		{name: "closed bus", ctx: context.Background(), close: true},
		{name: "canceled context", ctx: canceled},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			mb := NewMessageBus()
			t.Cleanup(mb.Close)
			if tt.close {
				mb.Close()
			}

			require.False(t, mb.PublishInbound(tt.ctx, message.Inbound{ID: "m1"}))
			_, ok := mb.ConsumeInbound(tt.ctx)
			require.False(t, ok)
			require.False(t, mb.PublishEvent(tt.ctx, Event{Type: EventStateChanged}))
		})
	}
}

func TestConsumeReturnsWhenBusCloses(t *testing.T) {
	mb := NewMessageBus()

	done := make(chan bool, 1)
	go func() {
		_, ok := mb.ConsumeInbound(context.Background())
		done <- ok
	}()

	mb.Close()

	select {
	case ok := <-done:
		require.False(t, ok)
	case <-time.After(waitFor):
		t.Fatal("consumer still blocked after Close")
	}
}

func TestRunInboundKeepsGoingAfterHandlerError(t *testing.T) {
	mb := NewMessageBus()
	t.Cleanup(mb.Close)

	publishAll(t, mb, "m1", "m2", "m3")

	errMalformed := errors.New("missing sender")
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	var (
		mu      sync.Mutex
		handled []string
		failed  []string
	)

	finished := make(chan struct{})
	go func() {
		defer close(finished)
		mb.RunInbound(ctx, func(msg message.Inbound) error {
			mu.Lock()
			handled = append(handled, msg.ID)
			mu.Unlock()

			switch msg.ID {
			case "m2":
				return errMalformed
			case "m3":
				cancel()
			}
			return nil
		}, func(msg message.Inbound, err error) {
			if !errors.Is(err, errMalformed) {
				return
			}
			mu.Lock()
			failed = append(failed, msg.ID)
			mu.Unlock()
		})
	}()

	select {
	case <-finished:
	case <-time.After(time.Second):
		t.Fatal("RunInbound did not return after cancel")
	}

	mu.Lock()
	defer mu.Unlock()
	require.Equal(t, []string{"m1", "m2", "m3"}, handled)
	require.Equal(t, []string{"m2"}, failed)
}

func TestEverySubscriberSeesStampedEvent(t *testing.T) {
	mb := NewMessageBus()
	t.Cleanup(mb.Close)

	ctx := context.Background()
	gatewayEvents, unsubGateway := mb.SubscribeEvents(ctx, 1)
	defer unsubGateway()
	auditEvents, unsubAudit := mb.SubscribeEvents(ctx, 1)
	defer unsubAudit()

	require.True(t, mb.PublishEvent(ctx, Event{Type: EventPairingChallenge, Pairing: "2@abc"}))

	for _, events := range []<-chan Event{gatewayEvents, auditEvents} {
		select {
		case got := <-events:
			require.Equal(t, EventPairingChallenge, got.Type)
			require.Equal(t, "2@abc", got.Pairing)
			require.False(t, got.At.IsZero())
		case <-time.After(waitFor):
			t.Fatal("subscriber missed the pairing challenge")
		}
	}
}

func TestFullSubscriberDoesNotStallPublisher(t *testing.T) {
	mb := NewMessageBus()
	t.Cleanup(mb.Close)

	ctx := context.Background()
	events, unsubscribe := mb.SubscribeEvents(ctx, 1)
	defer unsubscribe()

	start := time.Now()
	for _, state := range []string{"connecting", "awaiting_pairing", "connected"} {
		require.True(t, mb.PublishEvent(ctx, Event{Type: EventStateChanged, State: state}))
	}
	require.Less(t, time.Since(start), 100*time.Millisecond)

	got := <-events
	require.Equal(t, "connecting", got.State)
}

func TestSubscriptionEnds(t *testing.T) {
	tests := []struct {
		name string
		end  func(mb *MessageBus, unsubscribe func(), cancel context.CancelFunc)
	}{
		{name: "unsubscribe", end: func(_ *MessageBus, unsubscribe func(), _ context.CancelFunc) { unsubscribe() }},
		{name: "context canceled", end: func(_ *MessageBus, _ func(), cancel context.CancelFunc) { cancel() }},
		{name: "bus closed", end: func(mb *MessageBus, _ func(), _ context.CancelFunc) { mb.Close() }},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			mb := NewMessageBus()
			t.Cleanup(mb.Close)

			ctx, cancel := context.WithCancel(context.Background())
			defer cancel()

			events, unsubscribe := mb.SubscribeEvents(ctx, 1)
			tt.end(mb, unsubscribe, cancel)

			select {
			case _, ok := <-events:
				require.False(t, ok, "expected closed channel")
			case <-time.After(waitFor):
				t.Fatal("subscription channel was not closed")
			}
		})
	}
}

func TestSubscribeAfterCloseReturnsClosedChannel(t *testing.T) {
	mb := NewMessageBus()
	mb.Close()

	events, unsubscribe := mb.SubscribeEvents(context.Background(), 0)
	unsubscribe()

	_, ok := <-events
	require.False(t, ok)
}

func TestPublishEventRacesWithSubscriptionChurn(t *testing.T) {
	mb := NewMessageBus()
	t.Cleanup(mb.Close)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	var wg sync.WaitGroup
	for range 8 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for ctx.Err() == nil {
				mb.PublishEvent(context.Background(), Event{Type: EventStateChanged, State: "disconnected"})
			}
		}()
	}

	for range 5000 {
		_, unsubscribe := mb.SubscribeEvents(ctx, 16)
		unsubscribe()
	}

	cancel()
	wg.Wait()
	mb.Close()
	mb.PublishEvent(context.Background(), Event{Type: EventReplySent})
}
