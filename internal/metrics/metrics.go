// Package metrics holds the Prometheus collectors of the service.
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics holds all Prometheus metrics for the application.
type Metrics struct {
	Namehashes   prometheus.Counter
	Validations  *prometheus.CounterVec
	CacheLookups *prometheus.CounterVec
	RPCCalls     *prometheus.CounterVec
	RPCDuration  *prometheus.HistogramVec
	Requests     *prometheus.CounterVec
	RequestTime  *prometheus.HistogramVec
	SnapshotAge  prometheus.GaugeFunc
}

// New creates the collectors and registers them with reg.
func New(reg prometheus.Registerer) *Metrics {
	f := promauto.With(reg)
	return &Metrics{
		Namehashes: f.NewCounter(prometheus.CounterOpts{
			Name: "ensname_namehash_total",
			Help: "Total number of names hashed",
		}),
		Validations: f.NewCounterVec(prometheus.CounterOpts{
			Name: "ensname_validations_total",
			Help: "Label validations by result",
		}, []string{"result"}),
		CacheLookups: f.NewCounterVec(prometheus.CounterOpts{
			Name: "ensname_cache_lookups_total",
			Help: "Cache lookups by kind and outcome",
		}, []string{"kind", "outcome"}),
		RPCCalls: f.NewCounterVec(prometheus.CounterOpts{
			Name: "ensname_rpc_calls_total",
			Help: "Contract calls by method and outcome",
		}, []string{"method", "outcome"}),
		RPCDuration: f.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "ensname_rpc_call_duration_seconds",
			Help:    "Contract call latency in seconds",
			Buckets: []float64{.01, .025, .05, .1, .25, .5, 1, 2.5, 5},
		}, []string{"method"}),
		Requests: f.NewCounterVec(prometheus.CounterOpts{
			Name: "ensname_requests_total",
			Help: "API requests by transport, method and code",
		}, []string{"transport", "method", "code"}),
		RequestTime: f.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "ensname_request_duration_seconds",
			Help:    "API request latency in seconds",
			Buckets: []float64{.0005, .001, .005, .01, .05, .1, .5, 1, 5},
		}, []string{"transport", "method"}),
	}
}

// ObserveCall implements registry.CallObserver.
func (m *Metrics) ObserveCall(method string, d time.Duration, err error) {
	outcome := "ok"
	if err != nil {
		outcome = "error"
	}
	m.RPCCalls.WithLabelValues(method, outcome).Inc()
	m.RPCDuration.WithLabelValues(method).Observe(d.Seconds())
}

func (m *Metrics) ObserveValidation(valid bool) {
	result := "valid"
	if !valid {
		result = "invalid"
	}
	m.Validations.WithLabelValues(result).Inc()
}

func (m *Metrics) ObserveNamehash() {
	m.Namehashes.Inc()
}

func (m *Metrics) ObserveCache(kind string, hit bool) {
	outcome := "miss"
	if hit {
		outcome = "hit"
	}
	m.CacheLookups.WithLabelValues(kind, outcome).Inc()
}

func (m *Metrics) ObserveRequest(transport, method, code string, d time.Duration) {
	m.Requests.WithLabelValues(transport, method, code).Inc()
	m.RequestTime.WithLabelValues(transport, method).Observe(d.Seconds())
}

// TrackSnapshotAge exports the age of the watch snapshot as a gauge.
func (m *Metrics) TrackSnapshotAge(reg prometheus.Registerer, lastUpdated func() time.Time) {
	m.SnapshotAge = promauto.With(reg).NewGaugeFunc(prometheus.GaugeOpts{
		Name: "ensname_watch_snapshot_age_seconds",
		Help: "Seconds since the watched names were last refreshed",
	}, func() float64 {
		t := lastUpdated()
		if t.IsZero() {
			return -1
		}
		return time.Since(t).Seconds()
	})
}
