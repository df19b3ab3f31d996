package slack

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"

	"github.com/google/uuid"
	"github.com/slack-go/slack"
	"github.com/slack-go/slack/socketmode"

	"aquabot/pkg/bus"
	"aquabot/pkg/channel"
	"aquabot/pkg/directory"
	"aquabot/pkg/logger"
)

const channelName = "slack"

// socket is the part of *socketmode.Client the adapter drives.
type socket interface {
	RunContext(ctx context.Context) error
	Ack(req socketmode.Request, payload ...interface{})
}

// Adapter receives Slack events over socket mode and queues them on the bus.
type Adapter struct {
	api    API
	socket socket
	events <-chan socketmode.Event
	newID  func() string
	log    *slog.Logger
}

var _ channel.Adapter = (*Adapter)(nil)

// NewAdapter wires a socket-mode connection on top of client.
func NewAdapter(client *slack.Client, debug bool, log *slog.Logger) *Adapter {
	sock := socketmode.New(client, socketmode.OptionDebug(debug))
	return newAdapter(client, sock, sock.Events, log)
}

func newAdapter(api API, sock socket, events <-chan socketmode.Event, log *slog.Logger) *Adapter {
	return &Adapter{
		api:    api,
		socket: sock,
		events: events,
		newID:  uuid.NewString,
		log:    logger.Component(log, "channel.slack"),
	}
}

// Name returns the channel identifier used in logs.
func (a *Adapter) Name() string {
	return channelName
}

// Connect runs auth.test and returns the user the api token belongs to.
func (a *Adapter) Connect(ctx context.Context) (directory.UserRef, error) {
	resp, err := a.api.AuthTestContext(ctx)
	if err != nil {
		return directory.UserRef{}, fmt.Errorf("slack auth.test: %w", err)
	}

	a.log.Info("Connected to Slack", "team", resp.Team, "user", resp.User, "user_id", resp.UserID)
	return directory.UserRef{ID: resp.UserID, Name: resp.User}, nil
}

// Run opens the socket-mode connection and forwards message events to sink.
//
// It returns nil when ctx is cancelled and an error when the connection ends
// on its own.
func (a *Adapter) Run(ctx context.Context, sink channel.Sink) error {
	if sink == nil {
		return errors.New("sink is required")
	}

	runErr := make(chan error, 1)
	go func() {
		runErr <- a.socket.RunContext(ctx)
	}()

	for {
		select {
		case <-ctx.Done():
			return nil
		case err := <-runErr:
			if ctx.Err() != nil {
				return nil
			}
			if err == nil {
				err = errors.New("connection closed")
			}
			return fmt.Errorf("slack socket mode: %w", err)
		case evt, ok := <-a.events:
			if !ok {
				if ctx.Err() != nil {
					return nil
				}
				return errors.New("slack socket mode: events channel closed")
			}
			a.handle(ctx, evt, sink)
		}
	}
}

func (a *Adapter) handle(ctx context.Context, evt socketmode.Event, sink channel.Sink) {
	switch evt.Type {
	case socketmode.EventTypeConnecting:
		a.log.Info("Connecting to socket mode")
	case socketmode.EventTypeConnected:
		a.log.Info("Socket mode connected")
	case socketmode.EventTypeConnectionError:
		a.log.Warn("Socket mode connection error", "data", evt.Data)
	case socketmode.EventTypeEventsAPI:
		if evt.Request == nil {
			return
		}
		a.socket.Ack(*evt.Request)

		inbound, err := decodeEvent(evt.Request.Payload)
		if err != nil {
			a.log.Warn("Dropping undecodable event", "envelope_id", evt.Request.EnvelopeID, "error", err)
			return
		}
		inbound.ID = a.newID()

		if !sink.PublishInbound(ctx, inbound) {
			a.log.Debug("Inbound event not queued", "event_id", inbound.ID)
		}
	default:
		a.log.Debug("Ignoring socket mode event", "type", evt.Type)
	}
}

// decodeEvent extracts the inner event of an events_api envelope payload.
func decodeEvent(payload json.RawMessage) (bus.InboundEvent, error) {
	var envelope struct {
		Event *bus.InboundEvent `json:"event"`
	}
	if err := json.Unmarshal(payload, &envelope); err != nil {
		return bus.InboundEvent{}, fmt.Errorf("decode events_api payload: %w", err)
	}
	if envelope.Event == nil {
		return bus.InboundEvent{}, errors.New("events_api payload has no event")
	}

	return *envelope.Event, nil
}
