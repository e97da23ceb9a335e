package monitoring

import (
	"net/http"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Compile outcome labels
const (
	OutcomeSuccess   = "success"
	OutcomeError     = "error"
	OutcomeTimeout   = "timeout"
	OutcomeCancelled = "cancelled"
	OutcomeRejected  = "rejected"
)

// Message directions
const (
	DirectionIn  = "in"
	DirectionOut = "out"
)

// Metrics holds all Prometheus metrics
type Metrics struct {
	registry *prometheus.Registry

	// HTTP metrics
	RequestsTotal   *prometheus.CounterVec
	RequestDuration *prometheus.HistogramVec
	RequestSize     *prometheus.HistogramVec
	ResponseSize    *prometheus.HistogramVec

	// Room metrics
	RoomsActive  prometheus.Gauge
	RoomsCreated prometheus.Counter
	RoomMembers  prometheus.Gauge

	// Compile metrics
	Compiles        *prometheus.CounterVec
	CompileDuration prometheus.Histogram

	// WebSocket metrics
	WSConnections prometheus.Gauge
	WSMessages    *prometheus.CounterVec
	WSErrors      *prometheus.CounterVec

	startTime time.Time

	// Snapshot for JSON API - track current values
	snapshot MetricsSnapshot

	mu sync.RWMutex
}

// MetricsSnapshot holds current metric values for JSON API
type MetricsSnapshot struct {
	TotalRequests     int64   `json:"total_requests"`
	TotalErrors       int64   `json:"total_errors"`
	ActiveRooms       int64   `json:"active_rooms"`
	ActiveConnections int64   `json:"active_connections"`
	TotalCompiles     int64   `json:"total_compiles"`
	FailedCompiles    int64   `json:"failed_compiles"`
	AvgRequestSeconds float64 `json:"avg_request_seconds"`
	UptimeSeconds     float64 `json:"uptime_seconds"`

	totalDuration float64
}

// NewMetrics creates a metrics collector backed by its own registry so that
// independent servers (and tests) never collide on registration.
func NewMetrics() *Metrics {
	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	factory := promauto.With(reg)

	m := &Metrics{
		registry:  reg,
		startTime: time.Now(),

		// HTTP metrics
		RequestsTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "coderoom_http_requests_total",
				Help: "Total number of HTTP requests",
			},
			[]string{"method", "path", "status"},
		),
		RequestDuration: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "coderoom_http_request_duration_seconds",
				Help:    "HTTP request duration in seconds",
				Buckets: []float64{.001, .005, .01, .025, .05, .1, .25, .5, 1, 2.5, 5, 10},
			},
			[]string{"method", "path"},
		),
		RequestSize: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "coderoom_http_request_size_bytes",
				Help:    "HTTP request size in bytes",
				Buckets: []float64{100, 1000, 10000, 100000, 1000000, 10000000},
			},
			[]string{"method", "path"},
		),
		ResponseSize: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "coderoom_http_response_size_bytes",
				Help:    "HTTP response size in bytes",
				Buckets: []float64{100, 1000, 10000, 100000, 1000000, 10000000},
			},
			[]string{"method", "path"},
		),

		// Room metrics
		RoomsActive: factory.NewGauge(
			prometheus.GaugeOpts{
				Name: "coderoom_rooms_active",
				Help: "Number of rooms held in the registry",
			},
		),
		RoomsCreated: factory.NewCounter(
			prometheus.CounterOpts{
				Name: "coderoom_rooms_created_total",
				Help: "Total number of createRoom operations",
			},
		),
		RoomMembers: factory.NewGauge(
			prometheus.GaugeOpts{
				Name: "coderoom_room_members",
				Help: "Number of connections subscribed to a room",
			},
		),

		// Compile metrics
		Compiles: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "coderoom_compiles_total",
				Help: "Total number of sandbox runs by outcome",
			},
			[]string{"outcome"},
		),
		CompileDuration: factory.NewHistogram(
			prometheus.HistogramOpts{
				Name:    "coderoom_compile_duration_seconds",
				Help:    "Sandbox run duration in seconds",
				Buckets: []float64{.001, .005, .01, .025, .05, .1, .25, .5, 1, 2.5, 5, 10},
			},
		),

		// WebSocket metrics
		WSConnections: factory.NewGauge(
			prometheus.GaugeOpts{
				Name: "coderoom_ws_connections",
				Help: "Number of active WebSocket connections",
			},
		),
		WSMessages: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "coderoom_ws_messages_total",
				Help: "Total number of WebSocket messages",
			},
			[]string{"direction", "event"},
		),
		WSErrors: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "coderoom_ws_errors_total",
				Help: "Total number of error events sent to clients",
			},
			[]string{"code"},
		),
	}

	factory.NewGaugeFunc(
		prometheus.GaugeOpts{
			Name: "coderoom_uptime_seconds",
			Help: "Server uptime in seconds",
		},
		func() float64 { return time.Since(m.startTime).Seconds() },
	)

	return m
}

// Registry exposes the underlying registry.
func (m *Metrics) Registry() *prometheus.Registry {
	return m.registry
}

// Handler serves the registry in the Prometheus exposition format.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{Registry: m.registry})
}

// RecordHTTPRequest records an HTTP request
func (m *Metrics) RecordHTTPRequest(method, path, status string, duration time.Duration, reqSize, respSize int64) {
	m.RequestsTotal.WithLabelValues(method, path, status).Inc()
	m.RequestDuration.WithLabelValues(method, path).Observe(duration.Seconds())
	m.RequestSize.WithLabelValues(method, path).Observe(float64(reqSize))
	m.ResponseSize.WithLabelValues(method, path).Observe(float64(respSize))

	m.mu.Lock()
	m.snapshot.TotalRequests++
	m.snapshot.totalDuration += duration.Seconds()
	if len(status) > 0 && (status[0] == '4' || status[0] == '5') {
		m.snapshot.TotalErrors++
	}
	m.mu.Unlock()
}

// RecordCompile records a finished sandbox run
func (m *Metrics) RecordCompile(outcome string, duration time.Duration) {
	m.Compiles.WithLabelValues(outcome).Inc()
	if outcome != OutcomeRejected {
		m.CompileDuration.Observe(duration.Seconds())
	}

	m.mu.Lock()
	m.snapshot.TotalCompiles++
	if outcome != OutcomeSuccess {
		m.snapshot.FailedCompiles++
	}
	m.mu.Unlock()
}

// RecordWSMessage records a WebSocket message
func (m *Metrics) RecordWSMessage(direction, event string) {
	m.WSMessages.WithLabelValues(direction, event).Inc()
}

// RecordWSError records an error event delivered to a client
func (m *Metrics) RecordWSError(code string) {
	m.WSErrors.WithLabelValues(code).Inc()
}

// SetRoomsActive sets the number of rooms
func (m *Metrics) SetRoomsActive(count int) {
	m.RoomsActive.Set(float64(count))
	m.mu.Lock()
	m.snapshot.ActiveRooms = int64(count)
	m.mu.Unlock()
}

// SetRoomMembers sets the number of room subscriptions
func (m *Metrics) SetRoomMembers(count int) {
	m.RoomMembers.Set(float64(count))
}

// IncRoomsCreated increments the created rooms counter
func (m *Metrics) IncRoomsCreated() {
	m.RoomsCreated.Inc()
}

// IncWSConnections increments WebSocket connections
func (m *Metrics) IncWSConnections() {
	m.WSConnections.Inc()
	m.mu.Lock()
	m.snapshot.ActiveConnections++
	m.mu.Unlock()
}

// DecWSConnections decrements WebSocket connections
func (m *Metrics) DecWSConnections() {
	m.WSConnections.Dec()
	m.mu.Lock()
	m.snapshot.ActiveConnections--
	m.mu.Unlock()
}

// Snapshot returns the current values for the JSON stats endpoint
func (m *Metrics) Snapshot() MetricsSnapshot {
	m.mu.RLock()
	defer m.mu.RUnlock()

	s := m.snapshot
	if s.TotalRequests > 0 {
		s.AvgRequestSeconds = s.totalDuration / float64(s.TotalRequests)
	}
	s.UptimeSeconds = time.Since(m.startTime).Seconds()
	return s
}
