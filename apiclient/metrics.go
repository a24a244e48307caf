package apiclient

import (
	"github.com/prometheus/client_golang/prometheus"
)

// Metrics counts refresh activity. A nil *Metrics records nothing.
type Metrics struct {
	Refreshes        *prometheus.CounterVec
	QueuedRequests   prometheus.Counter
	ReplayedRequests prometheus.Counter
	SessionsExpired  prometheus.Counter
}

// NewMetrics creates the collectors and registers them with reg when it is
// not nil.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		Refreshes: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: "hradmin",
				Subsystem: "apiclient",
				Name:      "token_refreshes_total",
				Help:      "Token refresh attempts by outcome",
			},
			[]string{"outcome"},
		),
		QueuedRequests: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "hradmin",
			Subsystem: "apiclient",
			Name:      "queued_requests_total",
			Help:      "Requests that waited for an in-flight token refresh",
		}),
		ReplayedRequests: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "hradmin",
			Subsystem: "apiclient",
			Name:      "replayed_requests_total",
			Help:      "Requests sent again after a 401",
		}),
		SessionsExpired: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "hradmin",
			Subsystem: "apiclient",
			Name:      "sessions_expired_total",
			Help:      "Sessions cleared because they could not be refreshed",
		}),
	}
	if reg != nil {
		reg.MustRegister(m.Refreshes, m.QueuedRequests, m.ReplayedRequests, m.SessionsExpired)
	}
	return m
}

func (m *Metrics) refresh(outcome string) {
	if m != nil {
		m.Refreshes.WithLabelValues(outcome).Inc()
	}
}

func (m *Metrics) queued() {
	if m != nil {
		m.QueuedRequests.Inc()
	}
}

func (m *Metrics) replayed() {
	if m != nil {
		m.ReplayedRequests.Inc()
	}
}

func (m *Metrics) expired() {
	if m != nil {
		m.SessionsExpired.Inc()
	}
}
