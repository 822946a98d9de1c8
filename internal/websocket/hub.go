package websocket

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"

	"github.com/xalekter/charts-edit/internal/infrastructure"
	"github.com/xalekter/charts-edit/pkg/contracts/events"
)

// ErrHubStopped is returned by Publish after the hub loop has exited.
var ErrHubStopped = errors.New("websocket hub stopped")

type envelope struct {
	sessionID string
	payload   []byte
	closing   bool
}

// Hub fans change events out to the clients watching each session.
// Clients only receive messages for the session they subscribed to.
type Hub struct {
	// Registered clients grouped by session id
	sessions map[string]map[*Client]struct{}

	publish    chan envelope
	register   chan *Client
	unregister chan *Client

	done chan struct{}

	mu      sync.RWMutex
	clients int

	metrics *infrastructure.BusinessMetrics
	logger  *slog.Logger
}

// NewHub creates a new Hub. metrics may be nil.
func NewHub(metrics *infrastructure.BusinessMetrics, logger *slog.Logger) *Hub {
	if logger == nil {
		logger = infrastructure.GetLogger()
	}
	return &Hub{
		sessions:   make(map[string]map[*Client]struct{}),
		publish:    make(chan envelope, 256),
		register:   make(chan *Client),
		unregister: make(chan *Client),
		done:       make(chan struct{}),
		metrics:    metrics,
		logger:     logger.With(slog.String("component", "websocket.hub")),
	}
}

// Run is the hub's main loop. It returns when ctx is cancelled, after
// closing every client's send channel.
func (h *Hub) Run(ctx context.Context) error {
	defer close(h.done)
	h.logger.InfoContext(ctx, "Hub started")

	for {
		select {
		case <-ctx.Done():
			h.closeAll(context.WithoutCancel(ctx))
			h.logger.Info("Hub shutting down")
			return nil

		case client := <-h.register:
			h.add(ctx, client)

		case client := <-h.unregister:
			h.remove(ctx, client)

		case env := <-h.publish:
			h.deliver(ctx, env)
		}
	}
}

func (h *Hub) add(ctx context.Context, client *Client) {
	watchers, ok := h.sessions[client.sessionID]
	if !ok {
		watchers = make(map[*Client]struct{})
		h.sessions[client.sessionID] = watchers
	}
	watchers[client] = struct{}{}
	h.setClientCount(h.clients + 1)
	if h.metrics != nil {
		h.metrics.WebSocketConnections.Add(ctx, 1)
	}

	h.logger.InfoContext(ctx, "Client registered",
		slog.String("client_id", client.id),
		slog.String("session_id", client.sessionID),
		slog.String("remote_addr", client.remoteAddr),
		slog.Int("total_clients", h.ClientCount()))

	connected, err := encode(events.MessageTypeConnect, client.sessionID, map[string]string{
		"client_id": client.id,
		"status":    "connected",
	})
	if err == nil {
		h.send(ctx, client, connected)
	}
}

func (h *Hub) remove(ctx context.Context, client *Client) {
	watchers, ok := h.sessions[client.sessionID]
	if !ok {
		return
	}
	if _, ok := watchers[client]; !ok {
		return
	}
	h.drop(ctx, client)
	h.logger.InfoContext(ctx, "Client unregistered",
		slog.String("client_id", client.id),
		slog.String("session_id", client.sessionID),
		slog.Duration("connection_duration", time.Since(client.connectedAt)))
}

// drop forgets a client and closes its send channel, which stops its write pump.
func (h *Hub) drop(ctx context.Context, client *Client) {
	watchers := h.sessions[client.sessionID]
	delete(watchers, client)
	if len(watchers) == 0 {
		delete(h.sessions, client.sessionID)
	}
	close(client.send)
	h.setClientCount(h.clients - 1)
	if h.metrics != nil {
		h.metrics.WebSocketConnections.Add(ctx, -1)
	}
}

func (h *Hub) deliver(ctx context.Context, env envelope) {
	watchers := h.sessions[env.sessionID]
	for client := range watchers {
		h.send(ctx, client, env.payload)
	}
	if env.closing {
		for client := range h.sessions[env.sessionID] {
			h.drop(ctx, client)
		}
	}
	h.logger.DebugContext(ctx, "Delivered session event",
		slog.String("session_id", env.sessionID),
		slog.Int("clients", len(watchers)),
		slog.Int("payload_size", len(env.payload)))
}

// send queues a payload, disconnecting clients whose buffer is full.
func (h *Hub) send(ctx context.Context, client *Client, payload []byte) {
	select {
	case client.send <- payload:
	default:
		h.logger.WarnContext(ctx, "Client send buffer full, disconnecting",
			slog.String("client_id", client.id),
			slog.String("session_id", client.sessionID))
		h.drop(ctx, client)
	}
}

func (h *Hub) closeAll(ctx context.Context) {
	for _, watchers := range h.sessions {
		for client := range watchers {
			h.drop(ctx, client)
		}
	}
}

func (h *Hub) setClientCount(n int) {
	h.mu.Lock()
	h.clients = n
	h.mu.Unlock()
}

// ClientCount returns the number of connected clients across all sessions.
func (h *Hub) ClientCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return h.clients
}

// Register adds a client. It blocks until the hub loop accepts it.
func (h *Hub) Register(ctx context.Context, client *Client) error {
	select {
	case h.register <- client:
		return nil
	case <-h.done:
		return ErrHubStopped
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Unregister removes a client. It is a no-op once the hub has stopped.
func (h *Hub) Unregister(client *Client) {
	select {
	case h.unregister <- client:
	case <-h.done:
	}
}

// Publish queues a message for every client watching sessionID.
func (h *Hub) Publish(ctx context.Context, sessionID string, msgType events.MessageType, data interface{}) error {
	return h.enqueue(ctx, sessionID, msgType, data, false)
}

// CloseSession tells the watchers of sessionID that it is gone and
// disconnects them.
func (h *Hub) CloseSession(ctx context.Context, sessionID string) error {
	return h.enqueue(ctx, sessionID, events.MessageTypeSessionClosed, nil, true)
}

func (h *Hub) enqueue(ctx context.Context, sessionID string, msgType events.MessageType, data interface{}, closing bool) error {
	payload, err := encodeWithTrace(msgType, sessionID, infrastructure.GetTraceID(ctx), data)
	if err != nil {
		return err
	}

	select {
	case h.publish <- envelope{sessionID: sessionID, payload: payload, closing: closing}:
	case <-h.done:
		return ErrHubStopped
	case <-ctx.Done():
		return ctx.Err()
	}

	if h.metrics != nil {
		h.metrics.EventsPublished.Add(ctx, 1, metric.WithAttributes(attribute.String("type", string(msgType))))
	}
	return nil
}

func encode(msgType events.MessageType, sessionID string, data interface{}) ([]byte, error) {
	return encodeWithTrace(msgType, sessionID, "", data)
}

func encodeWithTrace(msgType events.MessageType, sessionID, traceID string, data interface{}) ([]byte, error) {
	msg := events.WebSocketMessage{
		BaseMessage: events.BaseMessage{
			ID:        uuid.NewString(),
			Type:      msgType,
			Timestamp: time.Now().UTC(),
			TraceID:   traceID,
		},
		SessionID: sessionID,
		Data:      data,
	}
	payload, err := json.Marshal(msg)
	if err != nil {
		return nil, fmt.Errorf("marshal %s message: %w", msgType, err)
	}
	return payload, nil
}
