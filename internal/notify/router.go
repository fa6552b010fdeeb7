package notify

import (
	"time"

	"go.uber.org/zap"

	"github.com/HerbHall/vigil/pkg/models"
)

// Emitter receives the router's outputs. The WebSocket layer implements it
// for the dashboard; tests implement it to capture deliveries.
type Emitter interface {
	EmitToast(t Toast)
	EmitNative(n *NativeNotification)
	EmitSound(s *SoundCommand)
}

// RouterConfig carries the delivery tuning constants.
type RouterConfig struct {
	SoundStagger    time.Duration
	NativeCloseAfter time.Duration
}

// DefaultRouterConfig returns the reference delivery constants.
func DefaultRouterConfig() RouterConfig {
	return RouterConfig{
		SoundStagger:    200 * time.Millisecond,
		NativeCloseAfter: 10 * time.Second,
	}
}

// Router decides, per flushed batch, between foreground toast delivery and
// background native delivery, and which sounds accompany each.
type Router struct {
	toasts  *ToastList
	emitter Emitter
	cfg     RouterConfig
	logger  *zap.Logger
}

// NewRouter creates a delivery router.
func NewRouter(toasts *ToastList, emitter Emitter, cfg RouterConfig, logger *zap.Logger) *Router {
	return &Router{toasts: toasts, emitter: emitter, cfg: cfg, logger: logger}
}

// Deliver routes one flushed batch. A disabled preference set discards the
// batch entirely. Grouping only affects background delivery and sound
// pacing: the foreground path always renders one toast per transition,
// since toasts are cheap and dismissable while native notifications are
// disruptive and should be minimized in count.
func (r *Router) Deliver(batch []Transition, prefs Preferences, pageVisible bool) {
	if len(batch) == 0 {
		return
	}
	if !prefs.EnableNotifications {
		r.logger.Debug("notifications disabled, discarding batch", zap.Int("size", len(batch)))
		return
	}

	shouldGroup := prefs.GroupNotifications && len(batch) > 1

	if pageVisible {
		metricBatchesDelivered.WithLabelValues("foreground").Inc()
		r.deliverForeground(batch, prefs)
		return
	}
	if shouldGroup {
		metricBatchesDelivered.WithLabelValues("grouped").Inc()
		r.deliverGrouped(batch, prefs)
		return
	}
	metricBatchesDelivered.WithLabelValues("sequential").Inc()
	r.deliverSequential(batch, prefs)
}

// deliverForeground renders one toast per transition and staggers the
// per-transition sounds so overlapping tones remain distinguishable.
func (r *Router) deliverForeground(batch []Transition, prefs Preferences) {
	for i, tr := range batch {
		toast := r.toasts.Add(tr.Device, tr.Status, prefs.ToastDurationMs)
		r.emitter.EmitToast(toast)
		metricToastsShown.Inc()

		if prefs.EnableSound {
			delay := i * int(r.cfg.SoundStagger.Milliseconds())
			r.emitter.EmitSound(statusSound(tr.Status, prefs, delay))
			metricSoundsPlayed.Inc()
		}
	}
	r.logger.Debug("delivered foreground batch",
		zap.Int("toasts", len(batch)),
		zap.Bool("sound", prefs.EnableSound),
	)
}

// deliverGrouped emits at most one native notification per status direction
// present in the batch, each carrying the aggregate count, with at most one
// sound of that direction's flavor.
func (r *Router) deliverGrouped(batch []Transition, prefs Preferences) {
	var offline, online int
	for _, tr := range batch {
		if tr.Status == models.DeviceStatusOffline {
			offline++
		} else {
			online++
		}
	}

	if offline > 0 {
		r.emitter.EmitNative(groupedNative(models.DeviceStatusOffline, offline, r.cfg.NativeCloseAfter))
		metricNativeShown.Inc()
		if prefs.EnableSound {
			r.emitter.EmitSound(statusSound(models.DeviceStatusOffline, prefs, 0))
			metricSoundsPlayed.Inc()
		}
	}
	if online > 0 {
		r.emitter.EmitNative(groupedNative(models.DeviceStatusOnline, online, r.cfg.NativeCloseAfter))
		metricNativeShown.Inc()
		if prefs.EnableSound {
			r.emitter.EmitSound(statusSound(models.DeviceStatusOnline, prefs, 0))
			metricSoundsPlayed.Inc()
		}
	}

	r.logger.Debug("delivered grouped background batch",
		zap.Int("offline", offline),
		zap.Int("online", online),
	)
}

// deliverSequential emits one native notification and one sound per
// transition, in batch order.
func (r *Router) deliverSequential(batch []Transition, prefs Preferences) {
	for _, tr := range batch {
		r.emitter.EmitNative(deviceNative(tr.Device, tr.Status, r.cfg.NativeCloseAfter))
		metricNativeShown.Inc()
		if prefs.EnableSound {
			r.emitter.EmitSound(statusSound(tr.Status, prefs, 0))
			metricSoundsPlayed.Inc()
		}
	}
	r.logger.Debug("delivered sequential background batch", zap.Int("size", len(batch)))
}
