package notify

import (
	"context"
	"fmt"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/HerbHall/vigil/internal/device"
	"github.com/HerbHall/vigil/internal/event"
	"github.com/HerbHall/vigil/pkg/models"
)

// PipelineConfig carries the pipeline's tuning constants and the user whose
// preferences drive delivery decisions.
type PipelineConfig struct {
	UserID              string
	GroupWindow         time.Duration
	SoundStagger        time.Duration
	NativeCloseAfter    time.Duration
	RecurringCloseAfter time.Duration
}

// DefaultPipelineConfig returns the reference pipeline constants.
func DefaultPipelineConfig() PipelineConfig {
	return PipelineConfig{
		UserID:              "default",
		GroupWindow:         500 * time.Millisecond,
		SoundStagger:        200 * time.Millisecond,
		NativeCloseAfter:    10 * time.Second,
		RecurringCloseAfter: 5 * time.Second,
	}
}

// VisibilityFunc reports whether any dashboard page is currently visible.
// The WebSocket hub provides it; when nil the pipeline assumes background.
type VisibilityFunc func() bool

// Pipeline wires the stages together: status observations from the bus pass
// through the transition detector into the grouping queue, flushed batches
// go to the delivery router, and the recurring loop shadows the offline set.
type Pipeline struct {
	cfg    PipelineConfig
	clock  Clock
	bus    *event.Bus
	prefs  *PrefsStore
	logger *zap.Logger

	detector  *Detector
	queue     *Queue
	toasts    *ToastList
	router    *Router
	recurring *Recurring

	mu      sync.Mutex
	current Preferences
	visible VisibilityFunc
	unsubs  []func()
	closed  bool
}

// NewPipeline assembles the pipeline. Call Start to load state and begin
// consuming bus events.
func NewPipeline(cfg PipelineConfig, clock Clock, bus *event.Bus, prefs *PrefsStore, logger *zap.Logger) *Pipeline {
	p := &Pipeline{
		cfg:      cfg,
		clock:    clock,
		bus:      bus,
		prefs:    prefs,
		logger:   logger,
		detector: NewDetector(),
		current:  DefaultPreferences(),
	}

	emitter := &busEmitter{bus: bus}
	p.toasts = NewToastList(clock, p.onToastRemoved)
	p.router = NewRouter(p.toasts, emitter, RouterConfig{
		SoundStagger:     cfg.SoundStagger,
		NativeCloseAfter: cfg.NativeCloseAfter,
	}, logger)
	p.queue = NewQueue(cfg.GroupWindow, clock, p.deliver)
	p.recurring = NewRecurring(clock, emitter, cfg.RecurringCloseAfter, logger)
	return p
}

// SetVisibility installs the page-visibility source. Must be called before
// Start.
func (p *Pipeline) SetVisibility(fn VisibilityFunc) {
	p.mu.Lock()
	p.visible = fn
	p.mu.Unlock()
}

// Start loads persisted preferences, seeds the detector and the recurring
// loop from the device inventory, and subscribes to the bus.
func (p *Pipeline) Start(ctx context.Context, devices *device.Store) error {
	prefs, err := p.prefs.Get(ctx, p.cfg.UserID)
	if err != nil {
		return fmt.Errorf("load preferences: %w", err)
	}
	p.mu.Lock()
	p.current = prefs
	p.mu.Unlock()
	p.recurring.Configure(recurringSettings(prefs))

	all, err := devices.List(ctx)
	if err != nil {
		return fmt.Errorf("seed detector: %w", err)
	}
	var offline []models.Device
	for _, d := range all {
		p.detector.Register(d.ID, d.Status)
		if d.Status == models.DeviceStatusOffline {
			offline = append(offline, d)
		}
	}
	p.recurring.Sync(offline)

	p.unsubs = append(p.unsubs,
		p.bus.Subscribe(device.TopicStatusReported, p.onStatusReported),
		p.bus.Subscribe(device.TopicDeviceCreated, p.onDeviceCreated),
		p.bus.Subscribe(device.TopicDeviceDeleted, p.onDeviceDeleted),
	)

	p.logger.Info("notification pipeline started",
		zap.String("user", p.cfg.UserID),
		zap.Int("devices", len(all)),
		zap.Int("offline", len(offline)),
	)
	return nil
}

// Preferences returns the active preference set.
func (p *Pipeline) Preferences() Preferences {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.current
}

// UpdatePreferences persists and applies a new preference set. The returned
// copy is the sanitized form actually stored.
func (p *Pipeline) UpdatePreferences(ctx context.Context, prefs Preferences) (Preferences, error) {
	clean, err := p.prefs.Put(ctx, p.cfg.UserID, prefs)
	if err != nil {
		return Preferences{}, err
	}

	p.mu.Lock()
	p.current = clean
	p.mu.Unlock()
	p.recurring.Configure(recurringSettings(clean))

	p.bus.Publish(ctx, event.Event{
		Topic:     TopicPrefsUpdated,
		Source:    "notify",
		Timestamp: p.clock.Now(),
		Payload:   clean,
	})
	return clean, nil
}

// ActiveToasts returns the live toasts, newest first.
func (p *Pipeline) ActiveToasts() []Toast {
	return p.toasts.Active()
}

// DismissToast removes a toast on user request.
func (p *Pipeline) DismissToast(id string) bool {
	return p.toasts.Dismiss(id)
}

// RecurringActive reports whether the recurring reminder timer is armed.
func (p *Pipeline) RecurringActive() bool {
	return p.recurring.Active()
}

// Close stops the pipeline: unsubscribes from the bus, discards any pending
// batch, cancels toast expiry timers, and tears down the recurring loop.
// Safe to call multiple times.
func (p *Pipeline) Close() {
	p.mu.Lock()
	if p.closed {
		p.mu.Unlock()
		return
	}
	p.closed = true
	unsubs := p.unsubs
	p.unsubs = nil
	p.mu.Unlock()

	for _, unsub := range unsubs {
		unsub()
	}
	p.queue.Close()
	p.toasts.Close()
	p.recurring.Destroy()
	p.logger.Info("notification pipeline stopped")
}

func (p *Pipeline) onStatusReported(ctx context.Context, ev event.Event) {
	obs, ok := ev.Payload.(*device.StatusObservation)
	if !ok {
		return
	}

	// The recurring set tracks raw status, not transitions: a device that
	// was already offline at startup still belongs in the reminder.
	switch obs.Status {
	case models.DeviceStatusOffline:
		p.recurring.AddOffline(obs.Device)
	case models.DeviceStatusOnline:
		p.recurring.RemoveOffline(obs.Device.ID)
	}

	tr, changed := p.detector.Observe(obs.Device, obs.Status, obs.CheckedAt)
	if !changed {
		return
	}
	p.queue.Enqueue(tr)
}

func (p *Pipeline) onDeviceCreated(ctx context.Context, ev event.Event) {
	dev, ok := ev.Payload.(*models.Device)
	if !ok {
		return
	}
	// A new device's initial status is informational, not a transition.
	p.detector.Register(dev.ID, dev.Status)
	if dev.Status == models.DeviceStatusOffline {
		p.recurring.AddOffline(*dev)
	}
}

func (p *Pipeline) onDeviceDeleted(ctx context.Context, ev event.Event) {
	id, ok := ev.Payload.(string)
	if !ok {
		return
	}
	p.detector.Forget(id)
	p.recurring.RemoveOffline(id)
}

// deliver is the queue's flush callback.
func (p *Pipeline) deliver(batch []Transition) {
	p.mu.Lock()
	prefs := p.current
	visible := p.visible
	closed := p.closed
	p.mu.Unlock()

	if closed {
		return
	}

	pageVisible := false
	if visible != nil {
		pageVisible = visible()
	}
	p.router.Deliver(batch, prefs, pageVisible)
}

func (p *Pipeline) visibleNow() bool {
	p.mu.Lock()
	visible := p.visible
	p.mu.Unlock()
	return visible != nil && visible()
}

func (p *Pipeline) onToastRemoved(t Toast, reason RemoveReason) {
	topic := TopicToastExpired
	if reason == RemoveDismissed {
		topic = TopicToastDismissed
	}
	p.bus.Publish(context.Background(), event.Event{
		Topic:     topic,
		Source:    "notify",
		Timestamp: p.clock.Now(),
		Payload:   t,
	})
}

func recurringSettings(p Preferences) RecurringSettings {
	return RecurringSettings{
		Enabled:      p.EnableNotifications && p.EnableRecurring,
		SoundEnabled: p.EnableSound,
		Volume:       p.RecurringVolume,
		Interval:     p.RecurringInterval,
	}
}

// busEmitter publishes router and recurring outputs on the event bus, where
// the WebSocket layer picks them up for connected dashboards.
type busEmitter struct {
	bus *event.Bus
}

func (e *busEmitter) EmitToast(t Toast) {
	e.publish(TopicToastCreated, t)
}

func (e *busEmitter) EmitNative(n *NativeNotification) {
	e.publish(TopicNativeShow, n)
}

func (e *busEmitter) EmitSound(s *SoundCommand) {
	e.publish(TopicSoundPlay, s)
}

func (e *busEmitter) publish(topic string, payload any) {
	e.bus.Publish(context.Background(), event.Event{
		Topic:     topic,
		Source:    "notify",
		Timestamp: time.Now().UTC(),
		Payload:   payload,
	})
}
