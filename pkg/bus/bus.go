package bus

import (
	"context"
	"sync"
)

const defaultBufferSize = 100

// MessageBus queues inbound events for the message loop and fans out lifecycle events.
type MessageBus struct {
	inbound chan InboundEvent

	eventSubscribers      map[uint64]chan Event
	nextEventSubscriberID uint64

	done      chan struct{}
	closeOnce sync.Once

	mu sync.RWMutex
}

func NewMessageBus() *MessageBus {
	return &MessageBus{
		inbound:          make(chan InboundEvent, defaultBufferSize),
		eventSubscribers: make(map[uint64]chan Event),
		done:             make(chan struct{}),
	}
}

// PublishInbound queues one event, blocking while the queue is full.
func (mb *MessageBus) PublishInbound(ctx context.Context, evt InboundEvent) bool {
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
	case mb.inbound <- evt:
		return true
	}
}

// DrainInbound returns up to limit queued events in arrival order without blocking.
//
// The boolean is false once the bus is closed and the queue is empty.
func (mb *MessageBus) DrainInbound(limit int) ([]InboundEvent, bool) {
	if limit <= 0 {
		limit = defaultBufferSize
	}

	batch := make([]InboundEvent, 0, min(limit, len(mb.inbound)))
drain:
	for len(batch) < limit {
		select {
		case evt := <-mb.inbound:
			batch = append(batch, evt)
		default:
			break drain
		}
	}

	if len(batch) == 0 && mb.closed() {
		return nil, false
	}
	return batch, true
}

// ConsumeInbound blocks until one event is available, the context ends, or the bus closes.
func (mb *MessageBus) ConsumeInbound(ctx context.Context) (InboundEvent, bool) {
	if ctx == nil {
		ctx = context.Background()
	}

	select {
	case <-ctx.Done():
		return InboundEvent{}, false
	case <-mb.done:
		return InboundEvent{}, false
	case evt := <-mb.inbound:
		return evt, true
	}
}

func (mb *MessageBus) closed() bool {
	select {
	case <-mb.done:
		return true
	default:
		return false
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
