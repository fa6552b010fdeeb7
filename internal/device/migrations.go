package device

import (
	"database/sql"

	"github.com/HerbHall/vigil/internal/store"
)

func migrations() []store.Migration {
	return []store.Migration{
		{
			Version:     1,
			Description: "create device tables",
			Up: func(tx *sql.Tx) error {
				stmts := []string{
					`CREATE TABLE IF NOT EXISTS devices (
						id TEXT PRIMARY KEY,
						name TEXT NOT NULL,
						ip_address TEXT NOT NULL,
						device_type TEXT NOT NULL DEFAULT 'unknown',
						status TEXT NOT NULL DEFAULT 'unknown',
						response_time_ms REAL,
						last_down DATETIME,
						last_check DATETIME,
						created_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP,
						updated_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP
					)`,
					`CREATE INDEX IF NOT EXISTS idx_devices_status ON devices(status)`,

					`CREATE TABLE IF NOT EXISTS device_events (
						id INTEGER PRIMARY KEY AUTOINCREMENT,
						device_id TEXT NOT NULL REFERENCES devices(id) ON DELETE CASCADE,
						status TEXT NOT NULL,
						response_time_ms REAL,
						checked_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP
					)`,
					`CREATE INDEX IF NOT EXISTS idx_device_events_device_time ON device_events(device_id, checked_at)`,
				}
				for _, stmt := range stmts {
					if _, err := tx.Exec(stmt); err != nil {
						return err
					}
				}
				return nil
			},
		},
	}
}

// Migrations exposes the device schema for the composition root.
func Migrations() []store.Migration {
	return migrations()
}
