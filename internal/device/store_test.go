package device

import (
	"context"
	"database/sql"
	"errors"
	"testing"
	"time"

	"github.com/HerbHall/vigil/internal/store"
	"github.com/HerbHall/vigil/pkg/models"
)

func newTestStore(t *testing.T) *Store {
	t.Helper()
	s, err := store.New(":memory:")
	if err != nil {
		t.Fatalf("store.New: %v", err)
	}
	t.Cleanup(func() { s.Close() })

	if err := s.Migrate(context.Background(), "device", Migrations()); err != nil {
		t.Fatalf("Migrate: %v", err)
	}
	return NewStore(s.DB())
}

func insertTestDevice(t *testing.T, s *Store, id, name string, status models.DeviceStatus) models.Device {
	t.Helper()
	now := time.Now().UTC().Truncate(time.Second)
	d := models.Device{
		ID:         id,
		Name:       name,
		IPAddress:  "192.168.1.10",
		DeviceType: models.DeviceTypeRouter,
		Status:     status,
		CreatedAt:  now,
		UpdatedAt:  now,
	}
	if err := s.Insert(context.Background(), &d); err != nil {
		t.Fatalf("Insert: %v", err)
	}
	return d
}

func TestStoreCRUD(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	insertTestDevice(t, s, "dev-1", "edge-router", models.DeviceStatusUnknown)

	got, err := s.Get(ctx, "dev-1")
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if got == nil || got.Name != "edge-router" || got.Status != models.DeviceStatusUnknown {
		t.Fatalf("Get = %+v", got)
	}

	got.Name = "core-router"
	got.UpdatedAt = time.Now().UTC()
	if err := s.Update(ctx, got); err != nil {
		t.Fatalf("Update: %v", err)
	}
	got, _ = s.Get(ctx, "dev-1")
	if got.Name != "core-router" {
		t.Errorf("updated name = %q", got.Name)
	}

	if err := s.Delete(ctx, "dev-1"); err != nil {
		t.Fatalf("Delete: %v", err)
	}
	got, err = s.Get(ctx, "dev-1")
	if err != nil {
		t.Fatalf("Get after delete: %v", err)
	}
	if got != nil {
		t.Fatal("device survived delete")
	}
}

func TestStoreMissingRows(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	if err := s.Delete(ctx, "ghost"); !errors.Is(err, sql.ErrNoRows) {
		t.Errorf("Delete missing = %v, want sql.ErrNoRows", err)
	}
	d := models.Device{ID: "ghost", Name: "x", IPAddress: "10.0.0.1"}
	if err := s.Update(ctx, &d); !errors.Is(err, sql.ErrNoRows) {
		t.Errorf("Update missing = %v, want sql.ErrNoRows", err)
	}
}

func TestStoreListOfflineOldestOutageFirst(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	insertTestDevice(t, s, "dev-a", "alpha", models.DeviceStatusUnknown)
	insertTestDevice(t, s, "dev-b", "bravo", models.DeviceStatusUnknown)
	insertTestDevice(t, s, "dev-c", "charlie", models.DeviceStatusUnknown)

	base := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	for _, r := range []StatusReport{
		{DeviceID: "dev-b", Status: models.DeviceStatusOffline, CheckedAt: base},
		{DeviceID: "dev-a", Status: models.DeviceStatusOffline, CheckedAt: base.Add(time.Minute)},
		{DeviceID: "dev-c", Status: models.DeviceStatusOnline, CheckedAt: base.Add(2 * time.Minute)},
	} {
		if _, err := s.ApplyReport(ctx, r); err != nil {
			t.Fatalf("ApplyReport: %v", err)
		}
	}

	offline, err := s.ListOffline(ctx)
	if err != nil {
		t.Fatalf("ListOffline: %v", err)
	}
	if len(offline) != 2 {
		t.Fatalf("offline count = %d, want 2", len(offline))
	}
	if offline[0].ID != "dev-b" || offline[1].ID != "dev-a" {
		t.Errorf("offline order = %s, %s; want dev-b, dev-a", offline[0].ID, offline[1].ID)
	}
}

func TestApplyReportUpdatesSnapshot(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	insertTestDevice(t, s, "dev-1", "router", models.DeviceStatusUnknown)

	rtt := 12.5
	checked := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	d, err := s.ApplyReport(ctx, StatusReport{
		DeviceID:       "dev-1",
		Status:         models.DeviceStatusOnline,
		ResponseTimeMs: &rtt,
		CheckedAt:      checked,
	})
	if err != nil {
		t.Fatalf("ApplyReport: %v", err)
	}
	if d.Status != models.DeviceStatusOnline || d.ResponseTimeMs == nil || *d.ResponseTimeMs != 12.5 {
		t.Fatalf("snapshot = %+v", d)
	}
	if d.LastDown != nil {
		t.Error("LastDown set on an online report")
	}
	if d.LastCheck == nil || !d.LastCheck.Equal(checked) {
		t.Errorf("LastCheck = %v", d.LastCheck)
	}

	d, err = s.ApplyReport(ctx, StatusReport{
		DeviceID:  "dev-1",
		Status:    models.DeviceStatusOffline,
		CheckedAt: checked.Add(time.Minute),
	})
	if err != nil {
		t.Fatalf("ApplyReport (offline): %v", err)
	}
	if d.LastDown == nil || !d.LastDown.Equal(checked.Add(time.Minute)) {
		t.Errorf("LastDown = %v", d.LastDown)
	}

	events, err := s.ListEvents(ctx, "dev-1", 10)
	if err != nil {
		t.Fatalf("ListEvents: %v", err)
	}
	if len(events) != 2 {
		t.Fatalf("events = %d, want 2", len(events))
	}
	// Newest first.
	if events[0].Status != models.DeviceStatusOffline {
		t.Errorf("latest event status = %q", events[0].Status)
	}
}

func TestApplyReportDeletedDevice(t *testing.T) {
	s := newTestStore(t)

	d, err := s.ApplyReport(context.Background(), StatusReport{
		DeviceID:  "ghost",
		Status:    models.DeviceStatusOffline,
		CheckedAt: time.Now().UTC(),
	})
	if err != nil {
		t.Fatalf("ApplyReport: %v", err)
	}
	if d != nil {
		t.Fatal("report for a missing device produced a snapshot")
	}
}

func TestDeleteCascadesHistory(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	insertTestDevice(t, s, "dev-1", "router", models.DeviceStatusUnknown)
	if _, err := s.ApplyReport(ctx, StatusReport{
		DeviceID:  "dev-1",
		Status:    models.DeviceStatusOnline,
		CheckedAt: time.Now().UTC(),
	}); err != nil {
		t.Fatalf("ApplyReport: %v", err)
	}

	if err := s.Delete(ctx, "dev-1"); err != nil {
		t.Fatalf("Delete: %v", err)
	}
	events, err := s.ListEvents(ctx, "dev-1", 10)
	if err != nil {
		t.Fatalf("ListEvents: %v", err)
	}
	if len(events) != 0 {
		t.Errorf("history survived cascade delete: %d events", len(events))
	}
}

func TestPruneEvents(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	insertTestDevice(t, s, "dev-1", "router", models.DeviceStatusUnknown)
	base := time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC)
	for i := 0; i < 5; i++ {
		if _, err := s.ApplyReport(ctx, StatusReport{
			DeviceID:  "dev-1",
			Status:    models.DeviceStatusOnline,
			CheckedAt: base.Add(time.Duration(i) * time.Hour),
		}); err != nil {
			t.Fatalf("ApplyReport: %v", err)
		}
	}

	pruned, err := s.PruneEvents(ctx, base.Add(3*time.Hour))
	if err != nil {
		t.Fatalf("PruneEvents: %v", err)
	}
	if pruned != 3 {
		t.Errorf("pruned = %d, want 3", pruned)
	}
	events, _ := s.ListEvents(ctx, "dev-1", 10)
	if len(events) != 2 {
		t.Errorf("remaining events = %d, want 2", len(events))
	}
}
