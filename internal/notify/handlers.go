package notify

import (
	"encoding/json"
	"net/http"
	"time"

	"go.uber.org/zap"

	"github.com/HerbHall/vigil/internal/server"
	"github.com/HerbHall/vigil/pkg/models"
)

// Handler exposes the notification REST surface: preference management,
// the active toast list, and a test delivery endpoint.
type Handler struct {
	pipeline *Pipeline
	logger   *zap.Logger
}

// NewHandler creates the notification HTTP handler.
func NewHandler(pipeline *Pipeline, logger *zap.Logger) *Handler {
	return &Handler{pipeline: pipeline, logger: logger}
}

// RegisterRoutes registers notification routes on the server mux.
func (h *Handler) RegisterRoutes(mux *http.ServeMux) {
	mux.HandleFunc("GET /api/v1/notifications/preferences", h.handleGetPrefs)
	mux.HandleFunc("PUT /api/v1/notifications/preferences", h.handlePutPrefs)
	mux.HandleFunc("GET /api/v1/notifications/toasts", h.handleListToasts)
	mux.HandleFunc("DELETE /api/v1/notifications/toasts/{id}", h.handleDismissToast)
	mux.HandleFunc("POST /api/v1/notifications/test", h.handleTest)
}

func (h *Handler) handleGetPrefs(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, h.pipeline.Preferences())
}

func (h *Handler) handlePutPrefs(w http.ResponseWriter, r *http.Request) {
	var prefs Preferences
	if err := json.NewDecoder(r.Body).Decode(&prefs); err != nil {
		server.BadRequest(w, "invalid JSON body", r.URL.Path)
		return
	}

	clean, err := h.pipeline.UpdatePreferences(r.Context(), prefs)
	if err != nil {
		h.logger.Warn("failed to update preferences", zap.Error(err))
		server.InternalError(w, "failed to update preferences", r.URL.Path)
		return
	}
	writeJSON(w, http.StatusOK, clean)
}

func (h *Handler) handleListToasts(w http.ResponseWriter, r *http.Request) {
	toasts := h.pipeline.ActiveToasts()
	if toasts == nil {
		toasts = []Toast{}
	}
	writeJSON(w, http.StatusOK, toasts)
}

func (h *Handler) handleDismissToast(w http.ResponseWriter, r *http.Request) {
	if !h.pipeline.DismissToast(r.PathValue("id")) {
		server.NotFound(w, "toast not found", r.URL.Path)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

type testRequest struct {
	Status models.DeviceStatus `json:"status"`
}

// handleTest pushes a synthetic transition through the delivery stages so
// users can preview their settings. It bypasses the detector and the
// grouping queue on purpose.
func (h *Handler) handleTest(w http.ResponseWriter, r *http.Request) {
	var req testRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		server.BadRequest(w, "invalid JSON body", r.URL.Path)
		return
	}
	if !req.Status.Definite() {
		server.BadRequest(w, "status must be online or offline", r.URL.Path)
		return
	}

	now := time.Now().UTC()
	batch := []Transition{{
		Device: models.Device{
			ID:        "test-device",
			Name:      "Test Device",
			IPAddress: "192.0.2.1",
			Status:    req.Status,
		},
		Status:     req.Status,
		ObservedAt: now,
	}}

	h.pipeline.router.Deliver(batch, h.pipeline.Preferences(), h.pipeline.visibleNow())
	w.WriteHeader(http.StatusAccepted)
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
