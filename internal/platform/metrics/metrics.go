package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics holds Prometheus counters and gauges for playback sessions.
// A nil *Metrics is valid and records nothing.
type Metrics struct {
	registry             *prometheus.Registry
	requestsTotal        *prometheus.CounterVec
	errorsTotal          *prometheus.CounterVec
	sessionsCreated      prometheus.Counter
	sessionsDeleted      prometheus.Counter
	ticksTotal           prometheus.Counter
	droppedPresentations prometheus.Counter
	droppedBuffers       prometheus.Counter
	failuresTotal        *prometheus.CounterVec
	buffersInFlight      *prometheus.GaugeVec
	queueDepth           *prometheus.GaugeVec
	activeSessions       prometheus.Gauge
}

// Failure kinds recorded by IncFailure.
const (
	FailureOpen   = "open"
	FailureSeek   = "seek"
	FailureDevice = "device"
)

// New creates and registers Prometheus metrics for the player.
func New() *Metrics {
	registry := prometheus.NewRegistry()

	requestsTotal := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "player_requests_total",
		Help: "Total number of control API requests received",
	}, []string{"method", "route"})
	errorsTotal := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "player_errors_total",
		Help: "Total number of control API responses with error status (4xx or 5xx)",
	}, []string{"route"})
	sessionsCreated := prometheus.NewCounter(prometheus.CounterOpts{
		Name: "player_sessions_created_total",
		Help: "Total number of playback sessions created",
	})
	sessionsDeleted := prometheus.NewCounter(prometheus.CounterOpts{
		Name: "player_sessions_deleted_total",
		Help: "Total number of playback sessions deleted",
	})
	ticksTotal := prometheus.NewCounter(prometheus.CounterOpts{
		Name: "player_ticks_total",
		Help: "Total number of playback ticks processed",
	})
	droppedPresentations := prometheus.NewCounter(prometheus.CounterOpts{
		Name: "player_dropped_presentations_total",
		Help: "Ticks that found no new video frame ready",
	})
	droppedBuffers := prometheus.NewCounter(prometheus.CounterOpts{
		Name: "player_dropped_audio_buffers_total",
		Help: "Audio buffers the device rejected",
	})
	failuresTotal := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "player_failures_total",
		Help: "Open, seek and device failures",
	}, []string{"kind"})
	buffersInFlight := prometheus.NewGaugeVec(prometheus.GaugeOpts{
		Name: "player_audio_buffers_in_flight",
		Help: "Audio buffers queued on the device",
	}, []string{"session"})
	queueDepth := prometheus.NewGaugeVec(prometheus.GaugeOpts{
		Name: "player_decode_queue_depth",
		Help: "Frames waiting in the decode queue",
	}, []string{"session", "kind"})
	activeSessions := prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "player_active_sessions",
		Help: "Number of open playback sessions",
	})

	registry.MustRegister(
		requestsTotal,
		errorsTotal,
		sessionsCreated,
		sessionsDeleted,
		ticksTotal,
		droppedPresentations,
		droppedBuffers,
		failuresTotal,
		buffersInFlight,
		queueDepth,
		activeSessions,
	)

	return &Metrics{
		registry:             registry,
		requestsTotal:        requestsTotal,
		errorsTotal:          errorsTotal,
		sessionsCreated:      sessionsCreated,
		sessionsDeleted:      sessionsDeleted,
		ticksTotal:           ticksTotal,
		droppedPresentations: droppedPresentations,
		droppedBuffers:       droppedBuffers,
		failuresTotal:        failuresTotal,
		buffersInFlight:      buffersInFlight,
		queueDepth:           queueDepth,
		activeSessions:       activeSessions,
	}
}

// IncRequests counts a request to route.
func (m *Metrics) IncRequests(method, route string) {
	if m == nil {
		return
	}
	m.requestsTotal.WithLabelValues(method, route).Inc()
}

// IncErrors counts an error response from route.
func (m *Metrics) IncErrors(route string) {
	if m == nil {
		return
	}
	m.errorsTotal.WithLabelValues(route).Inc()
}

// IncSessionsCreated increments the sessions created counter.
func (m *Metrics) IncSessionsCreated() {
	if m == nil {
		return
	}
	m.sessionsCreated.Inc()
}

// IncSessionsDeleted increments the sessions deleted counter.
func (m *Metrics) IncSessionsDeleted() {
	if m == nil {
		return
	}
	m.sessionsDeleted.Inc()
}

// IncTicks increments the tick counter.
func (m *Metrics) IncTicks() {
	if m == nil {
		return
	}
	m.ticksTotal.Inc()
}

// IncDroppedPresentations counts a tick that had no new frame to show.
func (m *Metrics) IncDroppedPresentations() {
	if m == nil {
		return
	}
	m.droppedPresentations.Inc()
}

// IncDroppedBuffers counts an audio buffer the device rejected.
func (m *Metrics) IncDroppedBuffers() {
	if m == nil {
		return
	}
	m.droppedBuffers.Inc()
}

// IncFailure counts a failure of the given kind.
func (m *Metrics) IncFailure(kind string) {
	if m == nil {
		return
	}
	m.failuresTotal.WithLabelValues(kind).Inc()
}

// SetBuffersInFlight sets the in-flight audio buffer gauge for a session.
func (m *Metrics) SetBuffersInFlight(session string, n int) {
	if m == nil {
		return
	}
	m.buffersInFlight.WithLabelValues(session).Set(float64(n))
}

// SetQueueDepth sets the decode queue gauges for a session.
func (m *Metrics) SetQueueDepth(session string, video, audio int) {
	if m == nil {
		return
	}
	m.queueDepth.WithLabelValues(session, "video").Set(float64(video))
	m.queueDepth.WithLabelValues(session, "audio").Set(float64(audio))
}

// ForgetSession removes the per-session gauges.
func (m *Metrics) ForgetSession(session string) {
	if m == nil {
		return
	}
	m.buffersInFlight.DeleteLabelValues(session)
	m.queueDepth.DeleteLabelValues(session, "video")
	m.queueDepth.DeleteLabelValues(session, "audio")
}

// SetActiveSessions sets the active sessions gauge.
func (m *Metrics) SetActiveSessions(n int) {
	if m == nil {
		return
	}
	m.activeSessions.Set(float64(n))
}

// Handler returns an http.Handler that serves Prometheus metrics.
// updateGauges is called before each scrape to refresh gauge values (e.g. active sessions).
func (m *Metrics) Handler(updateGauges func()) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if updateGauges != nil {
			updateGauges()
		}
		promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{}).ServeHTTP(w, r)
	})
}
