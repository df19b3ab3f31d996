package router

import (
	"context"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"

	"aquabot/pkg/bus"
	"aquabot/pkg/command"
	"aquabot/pkg/commands"
	"aquabot/pkg/directory"
	"aquabot/pkg/logger"
	"aquabot/pkg/outbound"
	"aquabot/pkg/policy"
)

const botID = "BOT123"

type post struct {
	channelID string
	text      string
}

type fakePoster struct {
	posts []post
}

func (p *fakePoster) PostMessage(_ context.Context, channelID string, text string) error {
	p.posts = append(p.posts, post{channelID: channelID, text: text})
	return nil
}

type mapBackend struct {
	users    map[string]directory.UserRef
	channels map[string]directory.ChannelRef
}

func (b mapBackend) LookupUser(_ context.Context, query string) (directory.UserRef, error) {
	if u, ok := b.users[query]; ok {
		return u, nil
	}
	return directory.UserRef{}, directory.ErrNotFound
}

func (b mapBackend) LookupChannel(_ context.Context, query string) (directory.ChannelRef, error) {
	if c, ok := b.channels[query]; ok {
		return c, nil
	}
	return directory.ChannelRef{}, directory.ErrNotFound
}

type harness struct {
	router *Router
	poster *fakePoster
	events *bus.MessageBus
}

func newHarness(t *testing.T, readonly ...string) *harness {
	t.Helper()

	log := logger.Discard()
	backend := mapBackend{
		users: map[string]directory.UserRef{
			"U1":  {ID: "U1", Name: "megumin"},
			botID: {ID: botID, Name: "aqua"},
		},
		channels: map[string]directory.ChannelRef{
			"C1":   {ID: "C1", Name: "general"},
			"C2":   {ID: "C2", Name: "announcements"},
			"D100": {ID: "D100", Name: "U1"},
		},
	}

	events := bus.NewMessageBus()
	t.Cleanup(events.Close)

	poster := &fakePoster{}
	gw := outbound.New(policy.New(readonly, log), poster, events, log)

	reg := command.NewRegistry(log)
	require.NoError(t, commands.Register(reg, gw, log))

	r := New(Identity{ID: botID, Name: "aqua"}, directory.NewCache(backend, log), reg, events, log)
	return &harness{router: r, poster: poster, events: events}
}

func requireGreeting(t *testing.T, p post, channelID string, userID string) {
	t.Helper()

	require.Equal(t, channelID, p.channelID)
	prefix := "<@" + userID + "> "
	require.True(t, strings.HasPrefix(p.text, prefix), "reply %q lacks mention prefix", p.text)
	require.Contains(t, commands.GreetingMessages, strings.TrimPrefix(p.text, prefix))
}

func TestMentionedGreetingSendsOneReply(t *testing.T) {
	h := newHarness(t)

	handled := h.router.HandleEvent(context.Background(), bus.InboundEvent{
		Type:    bus.EventTypeMessage,
		Text:    "<@BOT123> hello",
		User:    "U1",
		Channel: "C1",
	})

	require.True(t, handled)
	require.Len(t, h.poster.posts, 1)
	requireGreeting(t, h.poster.posts[0], "C1", "U1")
}

func TestEditedMessageDispatchesLikePlainMessage(t *testing.T) {
	h := newHarness(t)

	handled := h.router.HandleEvent(context.Background(), bus.InboundEvent{
		Type:    bus.EventTypeMessage,
		Subtype: bus.SubtypeMessageChanged,
		Channel: "C1",
		Message: &bus.EditedMessage{Text: "<@BOT123> hi", User: "U1"},
	})

	require.True(t, handled)
	require.Len(t, h.poster.posts, 1)
	requireGreeting(t, h.poster.posts[0], "C1", "U1")
}

func TestSelfEchoIsIgnored(t *testing.T) {
	h := newHarness(t)

	handled := h.router.HandleEvent(context.Background(), bus.InboundEvent{
		Type:    bus.EventTypeMessage,
		Text:    "<@BOT123> hello",
		User:    botID,
		Channel: "C1",
	})

	require.True(t, handled)
	require.Empty(t, h.poster.posts)
}

func TestNonMessageEventIsNotHandled(t *testing.T) {
	h := newHarness(t)

	require.False(t, h.router.HandleEvent(context.Background(), bus.InboundEvent{
		Type:    "reaction_added",
		User:    "U1",
		Channel: "C1",
	}))
	require.Empty(t, h.poster.posts)
}

func TestIgnoredMessagesAreHandled(t *testing.T) {
	tests := []struct {
		name string
		evt  bus.InboundEvent
	}{
		{
			name: "empty text",
			evt:  bus.InboundEvent{Type: bus.EventTypeMessage, User: "U1", Channel: "C1"},
		},
		{
			name: "edit without nested message",
			evt:  bus.InboundEvent{Type: bus.EventTypeMessage, Subtype: bus.SubtypeMessageChanged, Text: "<@BOT123> hi", Channel: "C1"},
		},
		{
			name: "bot not mentioned",
			evt:  bus.InboundEvent{Type: bus.EventTypeMessage, Text: "hello everyone", User: "U1", Channel: "C1"},
		},
		{
			name: "someone else mentioned",
			evt:  bus.InboundEvent{Type: bus.EventTypeMessage, Text: "<@U9> hello", User: "U1", Channel: "C1"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h := newHarness(t)
			require.True(t, h.router.HandleEvent(context.Background(), tt.evt))
			require.Empty(t, h.poster.posts)
		})
	}
}

func TestDirectMessageNeedsNoMention(t *testing.T) {
	h := newHarness(t)

	handled := h.router.HandleEvent(context.Background(), bus.InboundEvent{
		Type:    bus.EventTypeMessage,
		Text:    "hello",
		User:    "U1",
		Channel: "D100",
	})

	require.True(t, handled)
	require.Len(t, h.poster.posts, 1)
	requireGreeting(t, h.poster.posts[0], "D100", "U1")
}

func TestReadonlyChannelSuppressesReply(t *testing.T) {
	h := newHarness(t, "announcements")

	handled := h.router.HandleEvent(context.Background(), bus.InboundEvent{
		Type:    bus.EventTypeMessage,
		Text:    "<@BOT123> hello",
		User:    "U1",
		Channel: "C2",
	})

	require.True(t, handled)
	require.Empty(t, h.poster.posts)
}

func TestUnresolvedChannelSendsNothing(t *testing.T) {
	h := newHarness(t)

	handled := h.router.HandleEvent(context.Background(), bus.InboundEvent{
		Type:    bus.EventTypeMessage,
		Text:    "<@BOT123> hello",
		User:    "U1",
		Channel: "C404",
	})

	require.True(t, handled)
	require.Empty(t, h.poster.posts)
}

func TestUnresolvedAuthorIsStillAddressed(t *testing.T) {
	h := newHarness(t)

	handled := h.router.HandleEvent(context.Background(), bus.InboundEvent{
		Type:    bus.EventTypeMessage,
		Text:    "<@BOT123> hello",
		User:    "U777",
		Channel: "C1",
	})

	require.True(t, handled)
	require.Len(t, h.poster.posts, 1)
	requireGreeting(t, h.poster.posts[0], "C1", "U777")
}

func TestHandleEventPublishesLifecycle(t *testing.T) {
	h := newHarness(t)
	events, unsubscribe := h.events.SubscribeEvents(context.Background(), 8)
	defer unsubscribe()

	h.router.HandleEvent(context.Background(), bus.InboundEvent{
		ID:      "evt-1",
		Type:    bus.EventTypeMessage,
		Text:    "<@BOT123> hello",
		User:    "U1",
		Channel: "C1",
	})

	var got []bus.EventType
	for range 3 {
		evt := <-events
		got = append(got, evt.Type)
		if evt.Type == bus.EventMessageReceived {
			require.Equal(t, "evt-1", evt.EventID)
			require.Equal(t, "U1", evt.UserID)
		}
	}
	require.Equal(t, []bus.EventType{bus.EventMessageReceived, bus.EventReplySent, bus.EventMessageDispatched}, got)
}

func TestNormalize(t *testing.T) {
	msg, ok := Normalize(bus.InboundEvent{
		Type:    bus.EventTypeMessage,
		Subtype: bus.SubtypeMessageChanged,
		Text:    "stale",
		User:    "U9",
		Channel: "C1",
		Message: &bus.EditedMessage{Text: "fresh", User: "U1"},
	})
	require.True(t, ok)
	require.Equal(t, NormalizedMessage{Text: "fresh", AuthorID: "U1", ChannelID: "C1", IsEdit: true}, msg)

	msg, ok = Normalize(bus.InboundEvent{Type: bus.EventTypeMessage, Text: "plain", User: "U1", Channel: "C1"})
	require.True(t, ok)
	require.Equal(t, NormalizedMessage{Text: "plain", AuthorID: "U1", ChannelID: "C1"}, msg)

	_, ok = Normalize(bus.InboundEvent{Type: bus.EventTypeMessage, Subtype: bus.SubtypeMessageChanged, Channel: "C1"})
	require.False(t, ok)
}
