package bus

import (
	"context"
	"sync"
	"testing"
	"time"
)

func TestInboundRoundTrip(t *testing.T) {
	mb := NewMessageBus()
	t.Cleanup(mb.Close)

	in := InboundEvent{ID: "evt-1", Type: EventTypeMessage, Text: "hello", Channel: "C1"}
	if ok := mb.PublishInbound(context.Background(), in); !ok {
		t.Fatal("expected inbound publish to succeed")
	}

	out, ok := mb.ConsumeInbound(context.Background())
	if !ok {
		t.Fatal("expected inbound consume to succeed")
	}
	if out.Text != in.Text || out.ID != in.ID {
		t.Fatalf("event = %+v, want %+v", out, in)
	}
}

func TestDrainInboundPreservesOrderAndLimit(t *testing.T) {
	mb := NewMessageBus()
	t.Cleanup(mb.Close)

	for _, text := range []string{"one", "two", "three"} {
		if ok := mb.PublishInbound(context.Background(), InboundEvent{Type: EventTypeMessage, Text: text}); !ok {
			t.Fatalf("publish %q failed", text)
		}
	}

	batch, ok := mb.DrainInbound(2)
	if !ok || len(batch) != 2 {
		t.Fatalf("first drain = %d events, ok=%v; want 2, true", len(batch), ok)
	}
	if batch[0].Text != "one" || batch[1].Text != "two" {
		t.Fatalf("first drain order = %q, %q", batch[0].Text, batch[1].Text)
	}

	batch, ok = mb.DrainInbound(10)
	if !ok || len(batch) != 1 || batch[0].Text != "three" {
		t.Fatalf("second drain = %+v, ok=%v", batch, ok)
	}

	batch, ok = mb.DrainInbound(10)
	if !ok || len(batch) != 0 {
		t.Fatalf("empty drain = %+v, ok=%v; want empty, true", batch, ok)
	}
}

func TestDrainInboundAfterClose(t *testing.T) {
	mb := NewMessageBus()
	if ok := mb.PublishInbound(context.Background(), InboundEvent{Text: "queued"}); !ok {
		t.Fatal("publish failed")
	}
	mb.Close()

	batch, ok := mb.DrainInbound(0)
	if !ok || len(batch) != 1 {
		t.Fatalf("drain after close = %+v, ok=%v; want queued event", batch, ok)
	}

	if _, ok := mb.DrainInbound(0); ok {
		t.Fatal("expected drain to report closed once queue is empty")
	}
}

func TestCloseStopsBusOperations(t *testing.T) {
	mb := NewMessageBus()
	mb.Close()

	if ok := mb.PublishInbound(context.Background(), InboundEvent{Text: "hello"}); ok {
		t.Fatal("expected inbound publish to fail after close")
	}
	if _, ok := mb.ConsumeInbound(context.Background()); ok {
		t.Fatal("expected inbound consume to stop after close")
	}
	if ok := mb.PublishEvent(context.Background(), Event{Type: EventReplySent}); ok {
		t.Fatal("expected event publish to fail after close")
	}
}

func TestContextCancellation(t *testing.T) {
	mb := NewMessageBus()
	t.Cleanup(mb.Close)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	if ok := mb.PublishInbound(ctx, InboundEvent{Text: "hello"}); ok {
		t.Fatal("expected publish to fail on canceled context")
	}
	if _, ok := mb.ConsumeInbound(ctx); ok {
		t.Fatal("expected consume to fail on canceled context")
	}
}

func TestConsumeUnblocksOnClose(t *testing.T) {
	mb := NewMessageBus()

	done := make(chan struct{})
	go func() {
		defer close(done)
		_, _ = mb.ConsumeInbound(context.Background())
	}()

	mb.Close()

	select {
	case <-done:
	case <-time.After(500 * time.Millisecond):
		t.Fatal("consume did not unblock after close")
	}
}

func TestNilBusPublishEvent(t *testing.T) {
	var mb *MessageBus
	if mb.PublishEvent(context.Background(), Event{Type: EventReplySent}) {
		t.Fatal("nil bus must not accept events")
	}
}

func TestEventFanout(t *testing.T) {
	mb := NewMessageBus()
	t.Cleanup(mb.Close)

	ctx := context.Background()
	eventsA, unsubA := mb.SubscribeEvents(ctx, 1)
	defer unsubA()
	eventsB, unsubB := mb.SubscribeEvents(ctx, 1)
	defer unsubB()

	if ok := mb.PublishEvent(ctx, Event{Type: EventMessageReceived, EventID: "1"}); !ok {
		t.Fatal("expected event publish to succeed")
	}

	for name, events := range map[string]<-chan Event{"A": eventsA, "B": eventsB} {
		select {
		case got := <-events:
			if got.Type != EventMessageReceived {
				t.Fatalf("subscriber %s event type = %q, want %q", name, got.Type, EventMessageReceived)
			}
			if got.At.IsZero() {
				t.Fatalf("subscriber %s event missing timestamp", name)
			}
		case <-time.After(500 * time.Millisecond):
			t.Fatalf("subscriber %s did not receive event", name)
		}
	}
}

func TestSlowSubscriberDoesNotBlockPublishEvent(t *testing.T) {
	mb := NewMessageBus()
	t.Cleanup(mb.Close)

	ctx := context.Background()
	events, unsubscribe := mb.SubscribeEvents(ctx, 1)
	defer unsubscribe()

	if ok := mb.PublishEvent(ctx, Event{Type: EventMessageReceived}); !ok {
		t.Fatal("expected first event publish to succeed")
	}

	start := time.Now()
	if ok := mb.PublishEvent(ctx, Event{Type: EventReplySent}); !ok {
		t.Fatal("expected second event publish to succeed")
	}
	if time.Since(start) > 100*time.Millisecond {
		t.Fatal("publish event blocked on slow subscriber")
	}

	select {
	case <-events:
	case <-time.After(500 * time.Millisecond):
		t.Fatal("expected at least one event")
	}
}

func TestUnsubscribeStopsEvents(t *testing.T) {
	mb := NewMessageBus()
	t.Cleanup(mb.Close)

	ctx := context.Background()
	events, unsubscribe := mb.SubscribeEvents(ctx, 1)
	unsubscribe()

	if ok := mb.PublishEvent(ctx, Event{Type: EventReplySent}); !ok {
		t.Fatal("expected event publish to succeed")
	}

	select {
	case _, ok := <-events:
		if ok {
			t.Fatal("expected closed event channel")
		}
	case <-time.After(500 * time.Millisecond):
		t.Fatal("expected event channel close after unsubscribe")
	}
}

func TestSubscribeEventsUnblocksOnClose(t *testing.T) {
	mb := NewMessageBus()

	events, _ := mb.SubscribeEvents(context.Background(), 1)
	mb.Close()

	select {
	case _, ok := <-events:
		if ok {
			t.Fatal("expected event channel to be closed")
		}
	case <-time.After(500 * time.Millisecond):
		t.Fatal("event subscription did not unblock after close")
	}
}

func TestPublishEventDuringUnsubscribeAndClose(t *testing.T) {
	for round := 0; round < 2000; round++ {
		mb := NewMessageBus()
		_, unsubscribe := mb.SubscribeEvents(context.Background(), 1)
		_, _ = mb.SubscribeEvents(context.Background(), 1)

		stop := make(chan struct{})
		panicked := make(chan any, 1)
		var wg sync.WaitGroup
		wg.Add(1)
		go func() {
			defer wg.Done()
			defer func() {
				if r := recover(); r != nil {
					panicked <- r
				}
			}()
			for {
				select {
				case <-stop:
					return
				default:
					mb.PublishEvent(context.Background(), Event{Type: EventReplySent})
				}
			}
		}()

		unsubscribe()
		mb.Close()
		close(stop)
		wg.Wait()

		select {
		case r := <-panicked:
			t.Fatalf("round %d: PublishEvent panicked: %v", round, r)
		default:
		}
	}
}
