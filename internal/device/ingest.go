package device

import (
	"encoding/json"
	"net/http"
	"time"

	"go.uber.org/zap"

	"github.com/HerbHall/vigil/internal/auth"
	"github.com/HerbHall/vigil/internal/event"
	"github.com/HerbHall/vigil/internal/server"
	"github.com/HerbHall/vigil/pkg/models"
)

// IngestHandler receives status reports from the probe agent and publishes
// them on the event bus as the pipeline's change event source.
type IngestHandler struct {
	store  *Store
	bus    *event.Bus
	tokens *auth.TokenService
	logger *zap.Logger
}

// NewIngestHandler creates the ingest handler. tokens may be nil to disable
// authentication (tests, trusted localhost deployments).
func NewIngestHandler(store *Store, bus *event.Bus, tokens *auth.TokenService, logger *zap.Logger) *IngestHandler {
	return &IngestHandler{store: store, bus: bus, tokens: tokens, logger: logger}
}

// RegisterRoutes registers ingest routes on the server mux.
func (h *IngestHandler) RegisterRoutes(mux *http.ServeMux) {
	mux.HandleFunc("POST /api/v1/ingest/results", h.handleResults)
}

type ingestRequest struct {
	Results []StatusReport `json:"results"`
}

type ingestResponse struct {
	Accepted int `json:"accepted"`
	Skipped  int `json:"skipped"`
}

func (h *IngestHandler) handleResults(w http.ResponseWriter, r *http.Request) {
	if h.tokens != nil {
		token := auth.BearerToken(r)
		if token == "" {
			server.Unauthorized(w, "missing bearer token", r.URL.Path)
			return
		}
		claims, err := h.tokens.Validate(token)
		if err != nil || claims.Role != auth.RoleAgent {
			server.Unauthorized(w, "invalid token", r.URL.Path)
			return
		}
	}

	var req ingestRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		server.BadRequest(w, "invalid JSON body", r.URL.Path)
		return
	}
	if len(req.Results) == 0 {
		server.BadRequest(w, "results must not be empty", r.URL.Path)
		return
	}

	var resp ingestResponse
	for _, report := range req.Results {
		if report.DeviceID == "" || !report.Status.Definite() {
			resp.Skipped++
			continue
		}
		if report.CheckedAt.IsZero() {
			report.CheckedAt = time.Now().UTC()
		}

		updated, err := h.store.ApplyReport(r.Context(), report)
		if err != nil {
			h.logger.Warn("failed to apply status report",
				zap.String("device_id", report.DeviceID),
				zap.Error(err),
			)
			resp.Skipped++
			continue
		}
		if updated == nil {
			// Stale report for a deleted device.
			resp.Skipped++
			continue
		}

		h.bus.Publish(r.Context(), event.Event{
			Topic:     TopicStatusReported,
			Source:    "ingest",
			Timestamp: report.CheckedAt,
			Payload: &StatusObservation{
				Device:    *updated,
				Status:    report.Status,
				CheckedAt: report.CheckedAt,
			},
		})
		resp.Accepted++
	}

	writeJSON(w, http.StatusOK, resp)
}

// StatusObservation is the payload published on TopicStatusReported: the
// post-update device snapshot plus the observed status.
type StatusObservation struct {
	Device    models.Device
	Status    models.DeviceStatus
	CheckedAt time.Time
}
