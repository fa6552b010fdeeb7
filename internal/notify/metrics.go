package notify

import "github.com/prometheus/client_golang/prometheus"

var (
	metricTransitionsDetected = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "vigil_notify_transitions_detected_total",
		Help: "Total number of device status transitions detected.",
	})
	metricToastsShown = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "vigil_notify_toasts_shown_total",
		Help: "Total number of toast notifications shown.",
	})
	metricNativeShown = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "vigil_notify_native_shown_total",
		Help: "Total number of native notifications shown.",
	})
	metricSoundsPlayed = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "vigil_notify_sounds_played_total",
		Help: "Total number of notification sounds played.",
	})
	metricRecurringAlerts = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "vigil_notify_recurring_alerts_total",
		Help: "Total number of recurring offline alerts sent.",
	})
	metricBatchesDelivered = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "vigil_notify_batches_delivered_total",
		Help: "Total number of transition batches delivered, by route.",
	}, []string{"route"})
)

func init() {
	prometheus.MustRegister(metricTransitionsDetected)
	prometheus.MustRegister(metricToastsShown)
	prometheus.MustRegister(metricNativeShown)
	prometheus.MustRegister(metricSoundsPlayed)
	prometheus.MustRegister(metricRecurringAlerts)
	prometheus.MustRegister(metricBatchesDelivered)
}
