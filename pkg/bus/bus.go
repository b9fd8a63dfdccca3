package bus

import (
	"context"
	"sync"

	"jamalekbot/pkg/message"
)

const defaultBufferSize = 100

// MessageBus carries inbound messages to a single consumer, in order, and fans
// session events out to any number of subscribers.
type MessageBus struct {
	inbound chan message.Inbound

	eventSubscribers      map[uint64]chan Event
	nextEventSubscriberID uint64

	done      chan struct{}
	closeOnce sync.Once

	mu sync.RWMutex
}

func NewMessageBus() *MessageBus {
	return &MessageBus{
		inbound:          make(chan message.Inbound, defaultBufferSize),
		eventSubscribers: make(map[uint64]chan Event),
		done:             make(chan struct{}),
	}
}

func (mb *MessageBus) PublishInbound(ctx context.Context, msg message.Inbound) bool {
	if ctx == nil {
		ctx = context.Background()
	}

	select {
	case <-ctx.Done():
		return false
	case <-mb.done:
		return false
	default:
	}

	select {
	case <-ctx.Done():
		return false
	case <-mb.done:
		return false
	case mb.inbound <- msg:
		return true
	}
}

func (mb *MessageBus) ConsumeInbound(ctx context.Context) (message.Inbound, bool) {
	if ctx == nil {
		ctx = context.Background()
	}

	select {
	case <-ctx.Done():
		return message.Inbound{}, false
	case <-mb.done:
		return message.Inbound{}, false
	case msg := <-mb.inbound:
		return msg, true
	}
}

// RunInbound feeds queued messages to handler one at a time until ctx ends or
// the bus closes. Handler errors do not stop the loop; onErr observes them.
func (mb *MessageBus) RunInbound(ctx context.Context, handler InboundHandler, onErr func(message.Inbound, error)) {
	for {
		msg, ok := mb.ConsumeInbound(ctx)
		if !ok {
			return
		}

		if err := handler(msg); err != nil && onErr != nil {
			onErr(msg, err)
		}
	}
}

func (mb *MessageBus) Close() {
	mb.closeOnce.Do(func() {
		close(mb.done)

		mb.mu.Lock()
		for id, ch := range mb.eventSubscribers {
			close(ch)
			delete(mb.eventSubscribers, id)
		}
		mb.mu.Unlock()
	})
}
