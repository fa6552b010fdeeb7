package device

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"go.uber.org/zap"

	"github.com/HerbHall/vigil/internal/event"
	"github.com/HerbHall/vigil/pkg/models"
)

type observationCapture struct {
	mu   sync.Mutex
	seen []*StatusObservation
}

func newIngestFixture(t *testing.T) (*Store, *event.Bus, http.Handler, *observationCapture) {
	t.Helper()
	s := newTestStore(t)
	bus := event.NewBus(zap.NewNop())

	captured := &observationCapture{}
	bus.Subscribe(TopicStatusReported, func(_ context.Context, ev event.Event) {
		obs, ok := ev.Payload.(*StatusObservation)
		if !ok {
			return
		}
		captured.mu.Lock()
		captured.seen = append(captured.seen, obs)
		captured.mu.Unlock()
	})

	mux := http.NewServeMux()
	NewIngestHandler(s, bus, nil, zap.NewNop()).RegisterRoutes(mux)
	return s, bus, mux, captured
}

func postResults(t *testing.T, h http.Handler, body any) *httptest.ResponseRecorder {
	t.Helper()
	raw, err := json.Marshal(body)
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	req := httptest.NewRequest(http.MethodPost, "/api/v1/ingest/results", bytes.NewReader(raw))
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

func TestIngestAcceptsReports(t *testing.T) {
	s, _, h, captured := newIngestFixture(t)
	insertTestDevice(t, s, "dev-1", "router", models.DeviceStatusUnknown)

	rtt := 4.2
	rec := postResults(t, h, ingestRequest{Results: []StatusReport{{
		DeviceID:       "dev-1",
		Status:         models.DeviceStatusOnline,
		ResponseTimeMs: &rtt,
		CheckedAt:      time.Now().UTC(),
	}}})

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, body = %s", rec.Code, rec.Body.String())
	}
	var resp ingestResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if resp.Accepted != 1 || resp.Skipped != 0 {
		t.Fatalf("response = %+v", resp)
	}

	// The observation carries the post-update snapshot.
	if len(captured.seen) != 1 {
		t.Fatalf("observations = %d, want 1", len(captured.seen))
	}
	obs := captured.seen[0]
	if obs.Device.Status != models.DeviceStatusOnline || obs.Status != models.DeviceStatusOnline {
		t.Errorf("observation = %+v", obs)
	}

	got, _ := s.Get(context.Background(), "dev-1")
	if got.Status != models.DeviceStatusOnline {
		t.Errorf("stored status = %q", got.Status)
	}
}

func TestIngestSkipsInvalidAndStale(t *testing.T) {
	s, _, h, captured := newIngestFixture(t)
	insertTestDevice(t, s, "dev-1", "router", models.DeviceStatusUnknown)

	now := time.Now().UTC()
	rec := postResults(t, h, ingestRequest{Results: []StatusReport{
		{DeviceID: "", Status: models.DeviceStatusOnline, CheckedAt: now},
		{DeviceID: "dev-1", Status: models.DeviceStatusUnknown, CheckedAt: now},
		{DeviceID: "deleted-dev", Status: models.DeviceStatusOffline, CheckedAt: now},
		{DeviceID: "dev-1", Status: models.DeviceStatusOffline, CheckedAt: now},
	}})

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}
	var resp ingestResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if resp.Accepted != 1 || resp.Skipped != 3 {
		t.Fatalf("response = %+v", resp)
	}
	if len(captured.seen) != 1 {
		t.Fatalf("observations = %d, want 1 (skipped reports must not publish)", len(captured.seen))
	}
}

func TestIngestRejectsBadBodies(t *testing.T) {
	_, _, h, _ := newIngestFixture(t)

	req := httptest.NewRequest(http.MethodPost, "/api/v1/ingest/results", bytes.NewReader([]byte("{not json")))
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	if rec.Code != http.StatusBadRequest {
		t.Errorf("malformed body status = %d, want 400", rec.Code)
	}

	rec = postResults(t, h, ingestRequest{})
	if rec.Code != http.StatusBadRequest {
		t.Errorf("empty results status = %d, want 400", rec.Code)
	}
}
