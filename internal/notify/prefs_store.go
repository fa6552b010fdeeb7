package notify

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"github.com/HerbHall/vigil/internal/store"
)

// PrefsStore persists per-user notification preferences. Preferences are
// stored as a JSON document per user; the set of fields changes often and
// none of them is ever queried individually.
type PrefsStore struct {
	db *sql.DB
}

// NewPrefsStore creates a PrefsStore backed by the given database.
func NewPrefsStore(db *sql.DB) *PrefsStore {
	return &PrefsStore{db: db}
}

func migrations() []store.Migration {
	return []store.Migration{
		{
			Version:     1,
			Description: "create notification preferences table",
			Up: func(tx *sql.Tx) error {
				_, err := tx.Exec(`CREATE TABLE IF NOT EXISTS notification_prefs (
					user_id TEXT PRIMARY KEY,
					prefs TEXT NOT NULL,
					updated_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP
				)`)
				return err
			},
		},
	}
}

// Migrations exposes the notification schema for the composition root.
func Migrations() []store.Migration {
	return migrations()
}

// Get returns the stored preferences for a user, or the defaults when the
// user has never saved any.
func (s *PrefsStore) Get(ctx context.Context, userID string) (Preferences, error) {
	var raw string
	err := s.db.QueryRowContext(ctx,
		`SELECT prefs FROM notification_prefs WHERE user_id = ?`, userID).Scan(&raw)
	if err == sql.ErrNoRows {
		return DefaultPreferences(), nil
	}
	if err != nil {
		return Preferences{}, fmt.Errorf("get preferences: %w", err)
	}

	var p Preferences
	if err := json.Unmarshal([]byte(raw), &p); err != nil {
		return Preferences{}, fmt.Errorf("decode preferences: %w", err)
	}
	return p.Sanitized(), nil
}

// Put stores the preferences for a user, replacing any previous document.
// The preferences are sanitized before persisting so a later Get never
// returns out-of-range values.
func (s *PrefsStore) Put(ctx context.Context, userID string, p Preferences) (Preferences, error) {
	clean := p.Sanitized()
	raw, err := json.Marshal(clean)
	if err != nil {
		return Preferences{}, fmt.Errorf("encode preferences: %w", err)
	}

	_, err = s.db.ExecContext(ctx, `
		INSERT INTO notification_prefs (user_id, prefs, updated_at)
		VALUES (?, ?, ?)
		ON CONFLICT(user_id) DO UPDATE SET prefs = excluded.prefs, updated_at = excluded.updated_at`,
		userID, string(raw), time.Now().UTC(),
	)
	if err != nil {
		return Preferences{}, fmt.Errorf("put preferences: %w", err)
	}
	return clean, nil
}
