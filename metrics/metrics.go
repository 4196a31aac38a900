package metrics

import (
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics holds the auth counters. A nil *Metrics is valid and records nothing.
type Metrics struct {
	registry        *prometheus.Registry
	signins         *prometheus.CounterVec
	lockouts        prometheus.Counter
	mfaEvents       *prometheus.CounterVec
	activityDropped prometheus.Counter
}

func New() *Metrics {
	m := &Metrics{
		registry: prometheus.NewRegistry(),
		signins: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "auth_signin_total",
			Help: "Sign-in attempts by outcome.",
		}, []string{"outcome"}),
		lockouts: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "auth_lockouts_total",
			Help: "Accounts locked after repeated failures.",
		}),
		mfaEvents: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "auth_mfa_events_total",
			Help: "MFA lifecycle and challenge events.",
		}, []string{"event"}),
		activityDropped: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "activity_dropped_total",
			Help: "Activity records dropped because the buffer was full.",
		}),
	}
	m.registry.MustRegister(
		m.signins, m.lockouts, m.mfaEvents, m.activityDropped,
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	return m
}

func (m *Metrics) Registry() *prometheus.Registry { return m.registry }

func (m *Metrics) Signin(outcome string) {
	if m == nil {
		return
	}
	m.signins.WithLabelValues(outcome).Inc()
}

func (m *Metrics) Lockout() {
	if m == nil {
		return
	}
	m.lockouts.Inc()
}

func (m *Metrics) MFA(event string) {
	if m == nil {
		return
	}
	m.mfaEvents.WithLabelValues(event).Inc()
}

func (m *Metrics) ActivityDropped() {
	if m == nil {
		return
	}
	m.activityDropped.Inc()
}

// Handler serves the registry in the prometheus exposition format.
func (m *Metrics) Handler() gin.HandlerFunc {
	return gin.WrapH(promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{}))
}
