// v1
// internal/observability/metrics.go
package observability

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/Doctor0Evil/Cybocindric-Research/internal/ecosafety"
)

// Metrics is nil-safe: every method on a nil receiver is a no-op, so tests
// and tools can pass nil instead of registering collectors.
type Metrics struct {
	httpRequestsTotal *prometheus.CounterVec
	httpDuration      *prometheus.HistogramVec
	ticksTotal        *prometheus.CounterVec
	tickFailures      *prometheus.CounterVec
	tickDuration      *prometheus.HistogramVec
	decisions         *prometheus.CounterVec
	residualV         *prometheus.GaugeVec
	gateOpen          *prometheus.GaugeVec
	nodesReporting    *prometheus.GaugeVec
	unknownUnits      *prometheus.CounterVec
	massRemovedKg     *prometheus.CounterVec
	karmaMinted       *prometheus.CounterVec
	kafkaErrors       *prometheus.CounterVec
	cbState           *prometheus.GaugeVec
}

func NewMetrics() *Metrics {
	m := &Metrics{
		httpRequestsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "http_requests_total",
			Help: "Total count of HTTP requests processed by route and status.",
		}, []string{"route", "status"}),
		httpDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "http_request_duration_seconds",
			Help:    "Histogram of HTTP request durations by route.",
			Buckets: prometheus.DefBuckets,
		}, []string{"route"}),
		ticksTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "corridor_ticks_total",
			Help: "Total engine ticks evaluated per region.",
		}, []string{"region"}),
		tickFailures: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "corridor_tick_failures_total",
			Help: "Ticks aborted by precondition violations per region.",
		}, []string{"region"}),
		tickDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "corridor_tick_duration_seconds",
			Help:    "Histogram of engine tick durations per region.",
			Buckets: prometheus.DefBuckets,
		}, []string{"region"}),
		decisions: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "corridor_decisions_total",
			Help: "Safe-step decisions per region and reason.",
		}, []string{"region", "reason"}),
		residualV: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Name: "corridor_residual_v",
			Help: "Latest Lyapunov residual V per region.",
		}, []string{"region"}),
		gateOpen: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Name: "corridor_gate_open",
			Help: "Gate state per region and gate (1 open, 0 shut).",
		}, []string{"region", "gate"}),
		nodesReporting: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Name: "fleet_nodes_reporting",
			Help: "Machines that reported in the latest tick per region.",
		}, []string{"region"}),
		unknownUnits: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "fleet_unknown_unit_rows_total",
			Help: "Device rows whose concentration unit could not be converted.",
		}, []string{"region"}),
		massRemovedKg: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "fleet_mass_removed_kg_total",
			Help: "Cumulative pollutant mass removed per region, in kilograms.",
		}, []string{"region"}),
		karmaMinted: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "fleet_karma_bytes_total",
			Help: "Cumulative nano-karma bytes minted per region.",
		}, []string{"region"}),
		kafkaErrors: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "kafka_errors_total",
			Help: "Kafka operation failures by topic and op (fetch or write).",
		}, []string{"topic", "op"}),
		cbState: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Name: "cb_state",
			Help: "Circuit breaker state gauge (0 closed, 1 half, 2 open).",
		}, []string{"target"}),
	}

	prometheus.MustRegister(
		m.httpRequestsTotal,
		m.httpDuration,
		m.ticksTotal,
		m.tickFailures,
		m.tickDuration,
		m.decisions,
		m.residualV,
		m.gateOpen,
		m.nodesReporting,
		m.unknownUnits,
		m.massRemovedKg,
		m.karmaMinted,
		m.kafkaErrors,
		m.cbState,
	)

	return m
}

type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (s *statusRecorder) WriteHeader(status int) {
	s.status = status
	s.ResponseWriter.WriteHeader(status)
}

func (m *Metrics) WrapHandler(route string, next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		recorder := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
		start := time.Now()

		next.ServeHTTP(recorder, r)

		duration := time.Since(start).Seconds()
		if m != nil {
			m.httpRequestsTotal.WithLabelValues(route, strconv.Itoa(recorder.status)).Inc()
			m.httpDuration.WithLabelValues(route).Observe(duration)
		}
	})
}

func (m *Metrics) Handler() http.Handler {
	return promhttp.Handler()
}

// TickEvaluated records one completed engine tick.
func (m *Metrics) TickEvaluated(region string, duration time.Duration, decision ecosafety.Decision, vNext float64) {
	if m == nil {
		return
	}
	m.ticksTotal.WithLabelValues(region).Inc()
	m.tickDuration.WithLabelValues(region).Observe(duration.Seconds())
	m.decisions.WithLabelValues(region, decision.Reason).Inc()
	m.residualV.WithLabelValues(region).Set(vNext)
}

// TickFailed records a tick aborted by a precondition violation.
func (m *Metrics) TickFailed(region string) {
	if m == nil {
		return
	}
	m.tickFailures.WithLabelValues(region).Inc()
}

// GatesEvaluated exports the gate cascade as 0/1 gauges.
func (m *Metrics) GatesEvaluated(region string, g ecosafety.Gates) {
	if m == nil {
		return
	}
	m.gateOpen.WithLabelValues(region, "safety").Set(b2f(g.Safety))
	m.gateOpen.WithLabelValues(region, "scaleup").Set(b2f(g.ScaleUp))
	m.gateOpen.WithLabelValues(region, "deployment").Set(b2f(g.Deployment))
}

// FleetStepped records the per-tick fleet aggregates.
func (m *Metrics) FleetStepped(region string, nodes, unknownUnits int, massKg, karmaBytes float64) {
	if m == nil {
		return
	}
	m.nodesReporting.WithLabelValues(region).Set(float64(nodes))
	if unknownUnits > 0 {
		m.unknownUnits.WithLabelValues(region).Add(float64(unknownUnits))
	}
	if massKg > 0 {
		m.massRemovedKg.WithLabelValues(region).Add(massKg)
	}
	if karmaBytes > 0 {
		m.karmaMinted.WithLabelValues(region).Add(karmaBytes)
	}
}

// KafkaError counts a failed fetch or write against a topic.
func (m *Metrics) KafkaError(topic, op string) {
	if m == nil {
		return
	}
	m.kafkaErrors.WithLabelValues(topic, op).Inc()
}

func (m *Metrics) SetCircuitBreakerState(target string, state float64) {
	if m == nil {
		return
	}
	m.cbState.WithLabelValues(target).Set(state)
}

func b2f(b bool) float64 {
	if b {
		return 1
	}
	return 0
}
