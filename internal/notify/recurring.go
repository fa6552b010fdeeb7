package notify

import (
	"sort"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/HerbHall/vigil/pkg/models"
)

type offlineRecord struct {
	device models.Device
	since  time.Time
}

// RecurringSettings is the slice of preferences the recurring loop reads.
type RecurringSettings struct {
	Enabled      bool
	SoundEnabled bool
	Volume       float64
	Interval     RecurringInterval
}

// Recurring re-emits a low-intrusion offline summary while any device
// remains offline. The loop is IDLE (no timer) whenever the offline set is
// empty and ACTIVE (timer armed) otherwise; entering ACTIVE fires one alert
// immediately rather than waiting a full interval.
type Recurring struct {
	mu       sync.Mutex
	clock    Clock
	emitter  Emitter
	logger   *zap.Logger
	closeAfter time.Duration

	offline  map[string]offlineRecord
	timer    Timer
	// gen invalidates ticks from timers cancelled after they fired but
	// before they acquired the lock.
	gen      uint64
	settings RecurringSettings
	// Applied on the next tick so an already-elapsed wait is neither
	// restarted nor double-counted.
	pendingInterval *RecurringInterval
	closed          bool
}

// NewRecurring creates the recurring alert loop. closeAfter is how long the
// summary native notification stays in the OS tray.
func NewRecurring(clock Clock, emitter Emitter, closeAfter time.Duration, logger *zap.Logger) *Recurring {
	return &Recurring{
		clock:      clock,
		emitter:    emitter,
		logger:     logger,
		closeAfter: closeAfter,
		offline:    make(map[string]offlineRecord),
		settings: RecurringSettings{
			SoundEnabled: true,
			Volume:       0.25,
			Interval:     Recurring30s,
		},
	}
}

// Configure updates the loop's settings. An interval change while the timer
// is armed is stashed and takes effect from the next tick.
func (r *Recurring) Configure(s RecurringSettings) {
	r.mu.Lock()
	defer r.mu.Unlock()

	interval := s.Interval
	if !interval.Valid() {
		interval = Recurring30s
	}

	current := r.settings.Interval
	r.settings = s
	r.settings.Interval = current

	if interval != current && r.timer != nil {
		r.pendingInterval = &interval
	} else {
		r.settings.Interval = interval
		r.pendingInterval = nil
	}

	if !r.settings.Enabled {
		r.stopLocked()
	} else if r.timer == nil && len(r.offline) > 0 && !r.closed {
		r.startLocked()
	}
}

// AddOffline records a device entering the offline set, starting the loop
// when it was idle. Re-adding an already-tracked device refreshes its
// snapshot without creating a second schedule.
func (r *Recurring) AddOffline(dev models.Device) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.closed || !r.settings.Enabled {
		return
	}

	since := r.clock.Now()
	if existing, ok := r.offline[dev.ID]; ok {
		since = existing.since
	}
	r.offline[dev.ID] = offlineRecord{device: dev, since: since}

	if r.timer == nil && len(r.offline) > 0 {
		r.startLocked()
	}
}

// RemoveOffline drops a device from the offline set (it recovered or was
// deleted), cancelling the timer the moment the set becomes empty.
func (r *Recurring) RemoveOffline(deviceID string) {
	r.mu.Lock()
	defer r.mu.Unlock()

	delete(r.offline, deviceID)
	if len(r.offline) == 0 {
		r.stopLocked()
	}
}

// Sync reconciles the tracked set against the currently offline devices.
func (r *Recurring) Sync(offline []models.Device) {
	present := make(map[string]bool, len(offline))
	for _, d := range offline {
		present[d.ID] = true
	}

	r.mu.Lock()
	var stale []string
	for id := range r.offline {
		if !present[id] {
			stale = append(stale, id)
		}
	}
	r.mu.Unlock()

	for _, id := range stale {
		r.RemoveOffline(id)
	}
	for _, d := range offline {
		r.AddOffline(d)
	}
}

// Count returns the number of devices in the offline set.
func (r *Recurring) Count() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.offline)
}

// Active reports whether the timer is currently armed.
func (r *Recurring) Active() bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.timer != nil
}

// Destroy cancels any running timer and clears the offline set.
// Idempotent.
func (r *Recurring) Destroy() {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.closed = true
	r.stopLocked()
	r.offline = make(map[string]offlineRecord)
}

// startLocked fires one alert immediately and arms the timer.
// Caller holds r.mu.
func (r *Recurring) startLocked() {
	r.sendLocked()
	r.armLocked()
}

// armLocked schedules the next tick. Caller holds r.mu.
func (r *Recurring) armLocked() {
	gen := r.gen
	r.timer = r.clock.AfterFunc(r.settings.Interval.Duration(), func() { r.tick(gen) })
}

// stopLocked cancels the timer and any stashed interval change.
// Caller holds r.mu.
func (r *Recurring) stopLocked() {
	if r.timer != nil {
		r.timer.Stop()
		r.timer = nil
	}
	r.gen++
	r.pendingInterval = nil
}

func (r *Recurring) tick(gen uint64) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.closed || r.timer == nil || gen != r.gen {
		return
	}

	if r.pendingInterval != nil {
		r.settings.Interval = *r.pendingInterval
		r.pendingInterval = nil
	}

	if len(r.offline) == 0 {
		r.timer = nil
		return
	}

	r.sendLocked()
	r.armLocked()
}

// sendLocked emits one aggregate alert for the offline set, oldest outage
// first. Caller holds r.mu.
func (r *Recurring) sendLocked() {
	if len(r.offline) == 0 {
		return
	}

	records := make([]offlineRecord, 0, len(r.offline))
	for _, rec := range r.offline {
		records = append(records, rec)
	}
	sort.Slice(records, func(i, j int) bool {
		return records[i].since.Before(records[j].since)
	})

	names := make([]string, len(records))
	for i, rec := range records {
		names[i] = rec.device.Name
	}

	r.emitter.EmitNative(recurringNative(names, r.closeAfter))
	metricRecurringAlerts.Inc()

	if r.settings.SoundEnabled {
		r.emitter.EmitSound(recurringSound(r.settings.Volume))
		metricSoundsPlayed.Inc()
	}

	r.logger.Debug("recurring offline alert sent", zap.Int("devices", len(names)))
}
