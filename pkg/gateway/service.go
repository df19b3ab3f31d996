package gateway

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/go-chi/chi/v5"

	"aquabot/pkg/bus"
	"aquabot/pkg/channel"
	"aquabot/pkg/config"
	"aquabot/pkg/logger"
)

const (
	defaultStatusHost = "127.0.0.1"
	defaultStatusPort = 18790

	// drainBatch bounds how many queued events one poll handles.
	drainBatch = 64
)

// EventHandler handles one inbound event; false means the event type is not handled.
type EventHandler interface {
	HandleEvent(ctx context.Context, evt bus.InboundEvent) bool
}

// Service runs the adapter and the single-threaded message loop that drains its events.
type Service struct {
	cfg     *config.Config
	log     *slog.Logger
	bus     *bus.MessageBus
	adapter channel.Adapter
	handler EventHandler

	mu           sync.RWMutex
	startedAt    time.Time
	channelState channelState
	counters     map[bus.EventType]int64
	lastEventAt  time.Time
}

type channelState struct {
	Running bool   `json:"running"`
	Error   string `json:"error,omitempty"`
}

type statusResponse struct {
	Status        string           `json:"status"`
	UptimeSeconds int64            `json:"uptime_seconds"`
	LastEventAt   string           `json:"last_event_at,omitempty"`
	Channel       string           `json:"channel"`
	ChannelState  channelState     `json:"channel_state"`
	Events        map[string]int64 `json:"events"`
}

func NewService(cfg *config.Config, events *bus.MessageBus, adapter channel.Adapter, handler EventHandler, log *slog.Logger) (*Service, error) {
	if cfg == nil {
		return nil, errors.New("config is required")
	}
	if events == nil {
		return nil, errors.New("message bus is required")
	}
	if adapter == nil {
		return nil, errors.New("channel adapter is required")
	}
	if handler == nil {
		return nil, errors.New("event handler is required")
	}

	return &Service{
		cfg:      cfg,
		log:      logger.Component(log, "gateway.service"),
		bus:      events,
		adapter:  adapter,
		handler:  handler,
		counters: make(map[bus.EventType]int64),
	}, nil
}

// Run blocks until ctx is cancelled, the adapter fails, or the status server fails.
//
// Adapter failure is returned as an error; cancellation returns nil.
func (s *Service) Run(ctx context.Context) error {
	if ctx == nil {
		ctx = context.Background()
	}
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	s.mu.Lock()
	s.startedAt = time.Now().UTC()
	s.mu.Unlock()

	events, unsubscribe := s.bus.SubscribeEvents(ctx, 0)
	defer unsubscribe()
	go s.countEvents(events)

	serverErrors := make(chan error, 1)
	if s.cfg.Status.Enabled {
		go s.runStatusServer(ctx, serverErrors)
	}

	adapterErrors := make(chan error, 1)
	s.setChannelState(channelState{Running: true})
	go func() {
		err := s.adapter.Run(ctx, s.bus)
		s.setChannelState(channelState{Running: false, Error: errorString(err)})
		adapterErrors <- err
	}()

	delay := s.cfg.PollDelay()
	s.log.Info("Message loop started", "channel", s.adapter.Name(), "poll_interval", delay.String())

	timer := time.NewTimer(0)
	defer timer.Stop()

	for {
		select {
		case <-ctx.Done():
			return nil
		case err := <-adapterErrors:
			if err == nil || ctx.Err() != nil {
				return nil
			}
			return fmt.Errorf("run %s channel: %w", s.adapter.Name(), err)
		case err := <-serverErrors:
			return err
		case <-timer.C:
		}

		if !s.poll(ctx) {
			return nil
		}
		timer.Reset(delay)
	}
}

// poll handles every event queued so far, in arrival order. It reports false
// once the bus is closed and drained.
func (s *Service) poll(ctx context.Context) bool {
	for {
		batch, open := s.bus.DrainInbound(drainBatch)
		for _, evt := range batch {
			if !s.handler.HandleEvent(ctx, evt) {
				s.log.Debug("Unhandled event type", "event_id", evt.ID, "type", evt.Type)
			}
		}
		if !open {
			return false
		}
		if len(batch) < drainBatch {
			return true
		}
	}
}

func (s *Service) countEvents(events <-chan bus.Event) {
	for evt := range events {
		s.mu.Lock()
		s.counters[evt.Type]++
		s.lastEventAt = evt.At
		s.mu.Unlock()
	}
}

func (s *Service) routes() chi.Router {
	r := chi.NewRouter()
	r.Get("/healthz", s.handleHealth)
	r.Get("/readyz", s.handleReady)
	r.Get("/status", s.handleStatus)
	return r
}

func (s *Service) runStatusServer(ctx context.Context, errCh chan<- error) {
	host := strings.TrimSpace(s.cfg.Status.Host)
	if host == "" {
		host = defaultStatusHost
	}

	port := s.cfg.Status.Port
	if port <= 0 {
		port = defaultStatusPort
	}

	addr := host + ":" + strconv.Itoa(port)
	server := &http.Server{
		Addr:              addr,
		Handler:           s.routes(),
		ReadHeaderTimeout: 5 * time.Second,
	}

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = server.Shutdown(shutdownCtx)
	}()

	s.log.Info("Status server started", "address", addr)
	if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		errCh <- fmt.Errorf("start status server: %w", err)
	}
}

func (s *Service) handleHealth(w http.ResponseWriter, _ *http.Request) {
	s.respondStatus(w, http.StatusOK, "ok")
}

func (s *Service) handleReady(w http.ResponseWriter, _ *http.Request) {
	statusCode := http.StatusOK
	status := "ready"
	if !s.isReady() {
		statusCode = http.StatusServiceUnavailable
		status = "not_ready"
	}

	s.respondStatus(w, statusCode, status)
}

func (s *Service) handleStatus(w http.ResponseWriter, _ *http.Request) {
	status := "ready"
	if !s.isReady() {
		status = "not_ready"
	}
	s.respondStatus(w, http.StatusOK, status)
}

func (s *Service) respondStatus(w http.ResponseWriter, statusCode int, status string) {
	payload := s.currentStatus(status)

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	if err := json.NewEncoder(w).Encode(payload); err != nil {
		s.log.Error("Failed to write status response", "error", err)
	}
}

func (s *Service) currentStatus(status string) statusResponse {
	s.mu.RLock()
	defer s.mu.RUnlock()

	uptime := int64(0)
	if !s.startedAt.IsZero() {
		uptime = int64(time.Since(s.startedAt).Seconds())
	}

	events := make(map[string]int64, len(s.counters))
	for eventType, count := range s.counters {
		events[string(eventType)] = count
	}

	lastEvent := ""
	if !s.lastEventAt.IsZero() {
		lastEvent = s.lastEventAt.Format(time.RFC3339)
	}

	return statusResponse{
		Status:        status,
		UptimeSeconds: uptime,
		LastEventAt:   lastEvent,
		Channel:       s.adapter.Name(),
		ChannelState:  s.channelState,
		Events:        events,
	}
}

func (s *Service) isReady() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()

	return s.channelState.Running && s.channelState.Error == ""
}

func (s *Service) setChannelState(state channelState) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.channelState = state
}

func errorString(err error) string {
	if err == nil {
		return ""
	}

	return err.Error()
}
