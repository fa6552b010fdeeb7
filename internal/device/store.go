// Package device manages the monitored device inventory: CRUD storage,
// status history, and the ingest API fed by the probe agent.
package device

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/HerbHall/vigil/pkg/models"
)

// Store provides database access for devices and their status history.
type Store struct {
	db *sql.DB
}

// NewStore creates a Store backed by the given database.
func NewStore(db *sql.DB) *Store {
	return &Store{db: db}
}

const deviceColumns = `id, name, ip_address, device_type, status, response_time_ms, last_down, last_check, created_at, updated_at`

func scanDevice(row interface{ Scan(...any) error }) (*models.Device, error) {
	var d models.Device
	err := row.Scan(
		&d.ID, &d.Name, &d.IPAddress, &d.DeviceType, &d.Status,
		&d.ResponseTimeMs, &d.LastDown, &d.LastCheck, &d.CreatedAt, &d.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &d, nil
}

// Insert adds a new device.
func (s *Store) Insert(ctx context.Context, d *models.Device) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO devices (`+deviceColumns+`)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		d.ID, d.Name, d.IPAddress, d.DeviceType, d.Status,
		d.ResponseTimeMs, d.LastDown, d.LastCheck, d.CreatedAt, d.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("insert device: %w", err)
	}
	return nil
}

// Get returns a device by ID. Returns nil, nil if not found.
func (s *Store) Get(ctx context.Context, id string) (*models.Device, error) {
	d, err := scanDevice(s.db.QueryRowContext(ctx,
		`SELECT `+deviceColumns+` FROM devices WHERE id = ?`, id))
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, nil
		}
		return nil, fmt.Errorf("get device: %w", err)
	}
	return d, nil
}

// List returns all devices ordered by name.
func (s *Store) List(ctx context.Context) ([]models.Device, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT `+deviceColumns+` FROM devices ORDER BY name`)
	if err != nil {
		return nil, fmt.Errorf("list devices: %w", err)
	}
	defer rows.Close()

	var out []models.Device
	for rows.Next() {
		d, err := scanDevice(rows)
		if err != nil {
			return nil, fmt.Errorf("scan device: %w", err)
		}
		out = append(out, *d)
	}
	return out, rows.Err()
}

// ListOffline returns all currently-offline devices ordered by last_down
// (oldest outage first).
func (s *Store) ListOffline(ctx context.Context) ([]models.Device, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT `+deviceColumns+` FROM devices WHERE status = ? ORDER BY last_down`,
		models.DeviceStatusOffline)
	if err != nil {
		return nil, fmt.Errorf("list offline devices: %w", err)
	}
	defer rows.Close()

	var out []models.Device
	for rows.Next() {
		d, err := scanDevice(rows)
		if err != nil {
			return nil, fmt.Errorf("scan device: %w", err)
		}
		out = append(out, *d)
	}
	return out, rows.Err()
}

// Update replaces the mutable fields of a device.
func (s *Store) Update(ctx context.Context, d *models.Device) error {
	res, err := s.db.ExecContext(ctx, `
		UPDATE devices SET name = ?, ip_address = ?, device_type = ?, updated_at = ?
		WHERE id = ?`,
		d.Name, d.IPAddress, d.DeviceType, d.UpdatedAt, d.ID,
	)
	if err != nil {
		return fmt.Errorf("update device: %w", err)
	}
	n, _ := res.RowsAffected()
	if n == 0 {
		return sql.ErrNoRows
	}
	return nil
}

// Delete removes a device and (via cascade) its history.
func (s *Store) Delete(ctx context.Context, id string) error {
	res, err := s.db.ExecContext(ctx, `DELETE FROM devices WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("delete device: %w", err)
	}
	n, _ := res.RowsAffected()
	if n == 0 {
		return sql.ErrNoRows
	}
	return nil
}

// StatusReport is one probe observation for a device.
type StatusReport struct {
	DeviceID       string              `json:"device_id"`
	Status         models.DeviceStatus `json:"status"`
	ResponseTimeMs *float64            `json:"response_time_ms,omitempty"`
	CheckedAt      time.Time           `json:"checked_at"`
}

// ApplyReport updates the device row from a probe observation and appends a
// history event. Returns the updated device snapshot, or nil, nil when the
// device no longer exists (stale report for a deleted device).
func (s *Store) ApplyReport(ctx context.Context, r StatusReport) (*models.Device, error) {
	d, err := s.Get(ctx, r.DeviceID)
	if err != nil {
		return nil, err
	}
	if d == nil {
		return nil, nil
	}

	d.Status = r.Status
	d.ResponseTimeMs = r.ResponseTimeMs
	checked := r.CheckedAt
	d.LastCheck = &checked
	if r.Status == models.DeviceStatusOffline {
		d.LastDown = &checked
	}
	d.UpdatedAt = time.Now().UTC()

	_, err = s.db.ExecContext(ctx, `
		UPDATE devices SET status = ?, response_time_ms = ?, last_down = ?, last_check = ?, updated_at = ?
		WHERE id = ?`,
		d.Status, d.ResponseTimeMs, d.LastDown, d.LastCheck, d.UpdatedAt, d.ID,
	)
	if err != nil {
		return nil, fmt.Errorf("apply report: %w", err)
	}

	_, err = s.db.ExecContext(ctx, `
		INSERT INTO device_events (device_id, status, response_time_ms, checked_at)
		VALUES (?, ?, ?, ?)`,
		r.DeviceID, r.Status, r.ResponseTimeMs, r.CheckedAt,
	)
	if err != nil {
		return nil, fmt.Errorf("insert device event: %w", err)
	}

	return d, nil
}

// ListEvents returns the most recent history events for a device,
// newest first, up to limit.
func (s *Store) ListEvents(ctx context.Context, deviceID string, limit int) ([]models.DeviceEvent, error) {
	if limit <= 0 {
		limit = 100
	}
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, device_id, status, response_time_ms, checked_at
		FROM device_events WHERE device_id = ?
		ORDER BY checked_at DESC LIMIT ?`,
		deviceID, limit,
	)
	if err != nil {
		return nil, fmt.Errorf("list device events: %w", err)
	}
	defer rows.Close()

	var out []models.DeviceEvent
	for rows.Next() {
		var e models.DeviceEvent
		if err := rows.Scan(&e.ID, &e.DeviceID, &e.Status, &e.ResponseTimeMs, &e.CheckedAt); err != nil {
			return nil, fmt.Errorf("scan device event: %w", err)
		}
		out = append(out, e)
	}
	return out, rows.Err()
}

// PruneEvents deletes history events older than the cutoff.
func (s *Store) PruneEvents(ctx context.Context, cutoff time.Time) (int64, error) {
	res, err := s.db.ExecContext(ctx, `DELETE FROM device_events WHERE checked_at < ?`, cutoff)
	if err != nil {
		return 0, fmt.Errorf("prune device events: %w", err)
	}
	return res.RowsAffected()
}
