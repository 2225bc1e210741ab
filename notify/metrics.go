package notify

import "github.com/prometheus/client_golang/prometheus"

// Metrics counts funnel outcomes.
type Metrics struct {
	notifications *prometheus.CounterVec
}

// NewMetrics creates funnel metrics and registers them with reg.
// A nil reg leaves the collectors unregistered.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		notifications: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "pgrooms",
			Name:      "notifications_total",
			Help:      "Failures reported to the notification funnel, by result.",
		}, []string{"result"}),
	}
	if reg != nil {
		reg.MustRegister(m.notifications)
	}
	return m
}

func (m *Metrics) observe(shown bool) {
	if m == nil {
		return
	}
	result := "suppressed"
	if shown {
		result = "shown"
	}
	m.notifications.WithLabelValues(result).Inc()
}

// Counter returns the counter for result ("shown" or "suppressed").
func (m *Metrics) Counter(result string) prometheus.Counter {
	return m.notifications.WithLabelValues(result)
}
