package ws

import (
	"context"
	"net/http"

	"github.com/coder/websocket"
	"go.uber.org/zap"

	"github.com/HerbHall/vigil/internal/auth"
	"github.com/HerbHall/vigil/internal/device"
	"github.com/HerbHall/vigil/internal/event"
	"github.com/HerbHall/vigil/internal/notify"
)

// Handler provides the WebSocket endpoint for real-time notification and
// device updates.
type Handler struct {
	hub    *Hub
	tokens *auth.TokenService
	bus    *event.Bus
	logger *zap.Logger
}

// NewHandler creates a WebSocket handler and subscribes to the bus topics
// dashboards care about. tokens may be nil to disable authentication.
func NewHandler(tokens *auth.TokenService, bus *event.Bus, logger *zap.Logger) *Handler {
	h := &Handler{
		hub:    NewHub(logger),
		tokens: tokens,
		bus:    bus,
		logger: logger,
	}
	h.subscribeToEvents()
	return h
}

// Hub exposes the connection hub, primarily for its AnyVisible method.
func (h *Handler) Hub() *Hub {
	return h.hub
}

// RegisterRoutes registers WebSocket routes on the server mux.
func (h *Handler) RegisterRoutes(mux *http.ServeMux) {
	mux.HandleFunc("GET /api/v1/ws", h.handleStream)
}

// handleStream upgrades the connection to WebSocket and streams events.
func (h *Handler) handleStream(w http.ResponseWriter, r *http.Request) {
	// Validate JWT from query parameter (browser WS API doesn't support headers).
	userID := "anonymous"
	if h.tokens != nil {
		token := r.URL.Query().Get("token")
		if token == "" {
			http.Error(w, "missing token parameter", http.StatusUnauthorized)
			return
		}
		claims, err := h.tokens.Validate(token)
		if err != nil || claims.Role != auth.RoleDashboard {
			http.Error(w, "invalid or expired token", http.StatusUnauthorized)
			return
		}
		userID = claims.Subject
	}

	conn, err := websocket.Accept(w, r, &websocket.AcceptOptions{
		// Allow any origin since we validate via JWT token.
		InsecureSkipVerify: true,
	})
	if err != nil {
		h.logger.Error("websocket accept failed", zap.Error(err))
		return
	}

	client := &Client{
		conn:   conn,
		userID: userID,
		send:   make(chan Message, 256),
		logger: h.logger,
		hub:    h.hub,
	}

	h.hub.Register(client)

	// Run read and write pumps. When either exits, clean up.
	ctx := r.Context()
	done := make(chan struct{})
	go func() {
		client.writePump(ctx)
		close(done)
	}()

	// readPump blocks until client disconnects.
	client.readPump(ctx)

	h.hub.Unregister(client)
	conn.Close(websocket.StatusNormalClosure, "")
	<-done
}

// subscribeToEvents forwards pipeline deliveries and device lifecycle
// events to all connected clients.
func (h *Handler) subscribeToEvents() {
	forward := func(topic string, msgType MessageType) {
		h.bus.Subscribe(topic, func(_ context.Context, ev event.Event) {
			h.hub.Broadcast(Message{
				Type:      msgType,
				Timestamp: ev.Timestamp,
				Data:      ev.Payload,
			})
		})
	}

	forward(notify.TopicToastCreated, MessageToastCreated)
	forward(notify.TopicToastDismissed, MessageToastDismissed)
	forward(notify.TopicToastExpired, MessageToastExpired)
	forward(notify.TopicNativeShow, MessageNativeShow)
	forward(notify.TopicSoundPlay, MessageSoundPlay)
	forward(notify.TopicPrefsUpdated, MessagePrefsUpdated)

	forward(device.TopicDeviceCreated, MessageDeviceCreated)
	forward(device.TopicDeviceUpdated, MessageDeviceUpdated)

	h.bus.Subscribe(device.TopicDeviceDeleted, func(_ context.Context, ev event.Event) {
		id, ok := ev.Payload.(string)
		if !ok {
			return
		}
		h.hub.Broadcast(Message{
			Type:      MessageDeviceDeleted,
			Timestamp: ev.Timestamp,
			Data:      DeviceDeletedData{DeviceID: id},
		})
	})

	// Status refreshes keep the dashboard's device list live without a
	// poll loop.
	h.bus.Subscribe(device.TopicStatusReported, func(_ context.Context, ev event.Event) {
		obs, ok := ev.Payload.(*device.StatusObservation)
		if !ok {
			return
		}
		h.hub.Broadcast(Message{
			Type:      MessageDeviceUpdated,
			Timestamp: ev.Timestamp,
			Data:      obs.Device,
		})
	})

	h.logger.Info("subscribed to notification and device events for WebSocket broadcasting")
}
