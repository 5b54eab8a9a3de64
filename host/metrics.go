package host

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/wippyai/stickyhost/errors"
	"github.com/wippyai/stickyhost/resource"
)

// Metrics records host lifecycle counters. A nil *Metrics is valid and
// records nothing.
type Metrics struct {
	created    prometheus.Counter
	failures   *prometheus.CounterVec
	live       prometheus.Gauge
	dispatched prometheus.Counter
	shutdowns  prometheus.Counter
	createTime prometheus.Histogram
	exports    prometheus.Gauge
}

// NewMetrics builds the collectors and registers them with reg when reg is
// non-nil. Registration panics on duplicates, as prometheus.MustRegister does.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		created: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "stickyhost",
			Name:      "hosts_created_total",
			Help:      "Hosts whose handle was delivered to the requester.",
		}),
		failures: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: "stickyhost",
				Name:      "create_failures_total",
				Help:      "Create calls that failed, by lifecycle phase.",
			},
			[]string{"phase"},
		),
		live: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: "stickyhost",
			Name:      "hosts_live",
			Help:      "Worker threads currently running.",
		}),
		dispatched: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "stickyhost",
			Name:      "events_dispatched_total",
			Help:      "Events dispatched by host event loops.",
		}),
		shutdowns: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "stickyhost",
			Name:      "shutdowns_total",
			Help:      "Hosts whose reference count reached zero.",
		}),
		createTime: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: "stickyhost",
			Name:      "create_duration_seconds",
			Help:      "Time from Create to handoff.",
			Buckets:   prometheus.DefBuckets,
		}),
		exports: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: "stickyhost",
			Name:      "exports_live",
			Help:      "Objects published in an observed export registry.",
		}),
	}
	if reg != nil {
		reg.MustRegister(m.created, m.failures, m.live, m.dispatched, m.shutdowns, m.createTime, m.exports)
	}
	return m
}

func (m *Metrics) workerStarted() {
	if m == nil {
		return
	}
	m.live.Inc()
}

func (m *Metrics) workerExited() {
	if m == nil {
		return
	}
	m.live.Dec()
}

func (m *Metrics) createDone(start time.Time, err error) {
	if m == nil {
		return
	}
	m.createTime.Observe(time.Since(start).Seconds())
	if err == nil {
		m.created.Inc()
		return
	}
	phase := "unknown"
	if e, ok := err.(*errors.Error); ok {
		phase = string(e.Phase)
	}
	m.failures.WithLabelValues(phase).Inc()
}

func (m *Metrics) eventDispatched() {
	if m == nil {
		return
	}
	m.dispatched.Inc()
}

func (m *Metrics) shutdown() {
	if m == nil {
		return
	}
	m.shutdowns.Inc()
}

// Observe keeps the exports_live gauge in step with the export tokens held
// by table. The returned function stops observing.
func (m *Metrics) Observe(table *resource.UnifiedTable) (cancel func()) {
	if m == nil || table == nil {
		return func() {}
	}
	m.exports.Set(float64(exportsOf(table).Len()))
	return table.Subscribe(resource.ObserverFunc(m.onResourceEvent))
}

func (m *Metrics) onResourceEvent(e resource.Event) {
	if e.TypeID != resource.TypeExport {
		return
	}
	switch e.Type {
	case resource.EventCreated:
		m.exports.Inc()
	case resource.EventDropped:
		m.exports.Dec()
	}
}
