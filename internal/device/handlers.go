package device

import (
	"database/sql"
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/HerbHall/vigil/internal/event"
	"github.com/HerbHall/vigil/internal/server"
	"github.com/HerbHall/vigil/pkg/models"
)

// Handler exposes the device CRUD and history endpoints.
type Handler struct {
	store  *Store
	bus    *event.Bus
	logger *zap.Logger
}

// NewHandler creates the device REST handler.
func NewHandler(store *Store, bus *event.Bus, logger *zap.Logger) *Handler {
	return &Handler{store: store, bus: bus, logger: logger}
}

// RegisterRoutes registers device routes on the server mux.
func (h *Handler) RegisterRoutes(mux *http.ServeMux) {
	mux.HandleFunc("GET /api/v1/devices", h.handleList)
	mux.HandleFunc("POST /api/v1/devices", h.handleCreate)
	mux.HandleFunc("GET /api/v1/devices/{id}", h.handleGet)
	mux.HandleFunc("PUT /api/v1/devices/{id}", h.handleUpdate)
	mux.HandleFunc("DELETE /api/v1/devices/{id}", h.handleDelete)
	mux.HandleFunc("GET /api/v1/devices/{id}/events", h.handleEvents)
}

func (h *Handler) publish(r *http.Request, topic string, payload any) {
	h.bus.PublishAsync(r.Context(), event.Event{
		Topic:     topic,
		Source:    "device",
		Timestamp: time.Now().UTC(),
		Payload:   payload,
	})
}

func (h *Handler) handleList(w http.ResponseWriter, r *http.Request) {
	devices, err := h.store.List(r.Context())
	if err != nil {
		h.logger.Warn("failed to list devices", zap.Error(err))
		server.InternalError(w, "failed to list devices", r.URL.Path)
		return
	}
	if devices == nil {
		devices = []models.Device{}
	}
	writeJSON(w, http.StatusOK, devices)
}

type deviceRequest struct {
	Name       string            `json:"name"`
	IPAddress  string            `json:"ip_address"`
	DeviceType models.DeviceType `json:"device_type"`
}

func (req *deviceRequest) validate() string {
	if strings.TrimSpace(req.Name) == "" {
		return "name is required"
	}
	if strings.TrimSpace(req.IPAddress) == "" {
		return "ip_address is required"
	}
	return ""
}

func (h *Handler) handleCreate(w http.ResponseWriter, r *http.Request) {
	var req deviceRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		server.BadRequest(w, "invalid JSON body", r.URL.Path)
		return
	}
	if msg := req.validate(); msg != "" {
		server.BadRequest(w, msg, r.URL.Path)
		return
	}
	if req.DeviceType == "" {
		req.DeviceType = models.DeviceTypeUnknown
	}

	now := time.Now().UTC()
	d := &models.Device{
		ID:         uuid.New().String(),
		Name:       strings.TrimSpace(req.Name),
		IPAddress:  strings.TrimSpace(req.IPAddress),
		DeviceType: req.DeviceType,
		Status:     models.DeviceStatusUnknown,
		CreatedAt:  now,
		UpdatedAt:  now,
	}

	if err := h.store.Insert(r.Context(), d); err != nil {
		h.logger.Warn("failed to insert device", zap.Error(err))
		server.InternalError(w, "failed to create device", r.URL.Path)
		return
	}

	h.publish(r, TopicDeviceCreated, d)
	writeJSON(w, http.StatusCreated, d)
}

func (h *Handler) handleGet(w http.ResponseWriter, r *http.Request) {
	d, err := h.store.Get(r.Context(), r.PathValue("id"))
	if err != nil {
		h.logger.Warn("failed to get device", zap.Error(err))
		server.InternalError(w, "failed to get device", r.URL.Path)
		return
	}
	if d == nil {
		server.NotFound(w, "device not found", r.URL.Path)
		return
	}
	writeJSON(w, http.StatusOK, d)
}

func (h *Handler) handleUpdate(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	d, err := h.store.Get(r.Context(), id)
	if err != nil {
		server.InternalError(w, "failed to get device", r.URL.Path)
		return
	}
	if d == nil {
		server.NotFound(w, "device not found", r.URL.Path)
		return
	}

	var req deviceRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		server.BadRequest(w, "invalid JSON body", r.URL.Path)
		return
	}
	if msg := req.validate(); msg != "" {
		server.BadRequest(w, msg, r.URL.Path)
		return
	}

	d.Name = strings.TrimSpace(req.Name)
	d.IPAddress = strings.TrimSpace(req.IPAddress)
	if req.DeviceType != "" {
		d.DeviceType = req.DeviceType
	}
	d.UpdatedAt = time.Now().UTC()

	if err := h.store.Update(r.Context(), d); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			server.NotFound(w, "device not found", r.URL.Path)
			return
		}
		h.logger.Warn("failed to update device", zap.String("device_id", id), zap.Error(err))
		server.InternalError(w, "failed to update device", r.URL.Path)
		return
	}

	h.publish(r, TopicDeviceUpdated, d)
	writeJSON(w, http.StatusOK, d)
}

func (h *Handler) handleDelete(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	if err := h.store.Delete(r.Context(), id); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			server.NotFound(w, "device not found", r.URL.Path)
			return
		}
		h.logger.Warn("failed to delete device", zap.String("device_id", id), zap.Error(err))
		server.InternalError(w, "failed to delete device", r.URL.Path)
		return
	}

	h.publish(r, TopicDeviceDeleted, id)
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) handleEvents(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	limit := 100
	if raw := r.URL.Query().Get("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n <= 0 {
			server.BadRequest(w, "limit must be a positive integer", r.URL.Path)
			return
		}
		limit = n
	}

	events, err := h.store.ListEvents(r.Context(), id, limit)
	if err != nil {
		h.logger.Warn("failed to list device events", zap.String("device_id", id), zap.Error(err))
		server.InternalError(w, "failed to list device events", r.URL.Path)
		return
	}
	if events == nil {
		events = []models.DeviceEvent{}
	}
	writeJSON(w, http.StatusOK, events)
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
