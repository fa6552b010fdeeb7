package notify

import (
	"context"
	"testing"

	"github.com/HerbHall/vigil/internal/store"
)

func newTestPrefsStore(t *testing.T) *PrefsStore {
	t.Helper()
	s, err := store.New(":memory:")
	if err != nil {
		t.Fatalf("store.New: %v", err)
	}
	t.Cleanup(func() { s.Close() })

	if err := s.Migrate(context.Background(), "notify", Migrations()); err != nil {
		t.Fatalf("Migrate: %v", err)
	}
	return NewPrefsStore(s.DB())
}

func TestPrefsStoreDefaultsForUnknownUser(t *testing.T) {
	ps := newTestPrefsStore(t)

	got, err := ps.Get(context.Background(), "nobody")
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if got != DefaultPreferences() {
		t.Errorf("Get for unknown user = %+v, want defaults", got)
	}
}

func TestPrefsStoreRoundTrip(t *testing.T) {
	ps := newTestPrefsStore(t)
	ctx := context.Background()

	p := DefaultPreferences()
	p.GroupNotifications = false
	p.SoundVolume = 0.8
	p.EnableRecurring = true
	p.RecurringInterval = Recurring60s
	p.UseCustomSounds = true
	p.CustomSoundOffline = &CustomSound{URL: "https://sounds.example.com/down.mp3", Name: "klaxon"}

	if _, err := ps.Put(ctx, "alice", p); err != nil {
		t.Fatalf("Put: %v", err)
	}

	got, err := ps.Get(ctx, "alice")
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if got.GroupNotifications || got.SoundVolume != 0.8 || got.RecurringInterval != Recurring60s {
		t.Errorf("round trip mismatch: %+v", got)
	}
	if got.CustomSoundOffline == nil || got.CustomSoundOffline.Name != "klaxon" {
		t.Errorf("custom sound lost: %+v", got.CustomSoundOffline)
	}
}

func TestPrefsStorePutSanitizes(t *testing.T) {
	ps := newTestPrefsStore(t)
	ctx := context.Background()

	p := DefaultPreferences()
	p.SoundVolume = 3.0
	p.RecurringInterval = RecurringInterval(7)
	p.UseCustomSounds = true
	p.CustomSoundOffline = &CustomSound{URL: "http://localhost/x.mp3"}

	clean, err := ps.Put(ctx, "bob", p)
	if err != nil {
		t.Fatalf("Put: %v", err)
	}
	if clean.SoundVolume != 1 || clean.RecurringInterval != Recurring30s {
		t.Errorf("Put did not sanitize: %+v", clean)
	}
	if clean.UseCustomSounds || clean.CustomSoundOffline != nil {
		t.Errorf("invalid custom sound persisted: %+v", clean)
	}

	got, err := ps.Get(ctx, "bob")
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if got != clean {
		t.Errorf("stored form differs from returned form: %+v vs %+v", got, clean)
	}
}

func TestPrefsStoreUpsert(t *testing.T) {
	ps := newTestPrefsStore(t)
	ctx := context.Background()

	first := DefaultPreferences()
	first.EnableSound = false
	if _, err := ps.Put(ctx, "carol", first); err != nil {
		t.Fatalf("Put: %v", err)
	}

	second := DefaultPreferences()
	second.EnableSound = true
	second.ToastDurationMs = 5000
	if _, err := ps.Put(ctx, "carol", second); err != nil {
		t.Fatalf("Put (update): %v", err)
	}

	got, err := ps.Get(ctx, "carol")
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if !got.EnableSound || got.ToastDurationMs != 5000 {
		t.Errorf("update not applied: %+v", got)
	}
}

func TestPrefsStoreUsersIsolated(t *testing.T) {
	ps := newTestPrefsStore(t)
	ctx := context.Background()

	a := DefaultPreferences()
	a.EnableNotifications = false
	if _, err := ps.Put(ctx, "user-a", a); err != nil {
		t.Fatalf("Put: %v", err)
	}

	got, err := ps.Get(ctx, "user-b")
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if !got.EnableNotifications {
		t.Error("user-b inherited user-a's preferences")
	}
}
