package observability

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// Packet metrics
	packetsReceived = promauto.NewCounter(prometheus.CounterOpts{
		Name: "udp_gateway_packets_received_total",
		Help: "Total number of UDP packets received",
	})

	packetsDropped = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "udp_gateway_packets_dropped_total",
		Help: "Total number of UDP packets dropped before handling",
	}, []string{"reason"}) // reason: "queue_full", "shutdown"

	bytesReceived = promauto.NewCounter(prometheus.CounterOpts{
		Name: "udp_gateway_bytes_received_total",
		Help: "Total payload bytes received",
	})

	// Session metrics
	activeSessions = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "udp_gateway_active_sessions",
		Help: "Number of client sessions currently buffering",
	})

	sessionsCreated = promauto.NewCounter(prometheus.CounterOpts{
		Name: "udp_gateway_sessions_created_total",
		Help: "Total number of client sessions created",
	})

	sessionsFinalized = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "udp_gateway_sessions_finalized_total",
		Help: "Total number of sessions finalized by outcome",
	}, []string{"outcome"}) // outcome: "success", "invalid_audio", "stt_error", "pipeline_error", "swept"

	sessionDuration = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "udp_gateway_session_duration_seconds",
		Help:    "Time from session creation to finalization in seconds",
		Buckets: []float64{0.5, 1, 2, 5, 10, 30, 60, 120},
	})

	payloadBytes = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "udp_gateway_payload_bytes",
		Help:    "Size of finalized payloads in bytes",
		Buckets: prometheus.ExponentialBuckets(256, 4, 8),
	})

	staleSessionsSwept = promauto.NewCounter(prometheus.CounterOpts{
		Name: "udp_gateway_stale_sessions_swept_total",
		Help: "Total number of stale sessions evicted by the sweep",
	})

	// STT metrics
	sttRequests = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "udp_gateway_stt_requests_total",
		Help: "Total number of STT requests",
	}, []string{"status"})

	sttLatency = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "udp_gateway_stt_latency_seconds",
		Help:    "STT processing latency in seconds",
		Buckets: []float64{0.1, 0.25, 0.5, 1.0, 2.0, 5.0, 10.0},
	})

	// Pipeline metrics
	pipelineRequests = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "udp_gateway_pipeline_requests_total",
		Help: "Total number of pipeline requests",
	}, []string{"status"})

	pipelineLatency = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "udp_gateway_pipeline_latency_seconds",
		Help:    "Pipeline processing latency in seconds",
		Buckets: []float64{0.1, 0.25, 0.5, 1.0, 2.0, 5.0, 10.0, 30.0},
	})

	pipelineRetries = promauto.NewCounter(prometheus.CounterOpts{
		Name: "udp_gateway_pipeline_retries_total",
		Help: "Total number of pipeline retry attempts after a failure",
	})

	// Response metrics
	responsesSent = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "udp_gateway_responses_sent_total",
		Help: "Total number of response datagrams sent",
	}, []string{"status"}) // status: "success", "error"

	responseSendFailures = promauto.NewCounter(prometheus.CounterOpts{
		Name: "udp_gateway_response_send_failures_total",
		Help: "Total number of response datagrams that failed to send",
	})

	// Error metrics
	errorsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "udp_gateway_errors_total",
		Help: "Total number of errors",
	}, []string{"type", "component"})

	// Circuit breaker metrics
	circuitBreakerState = promauto.NewGaugeVec(prometheus.GaugeOpts{
		Name: "udp_gateway_circuit_breaker_state",
		Help: "Circuit breaker state (0=closed, 1=open, 2=half-open)",
	}, []string{"service"})

	circuitBreakerFailures = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "udp_gateway_circuit_breaker_failures_total",
		Help: "Total circuit breaker failures",
	}, []string{"service"})
)

// RecordPacketReceived records a received datagram and its payload size
func RecordPacketReceived(size int) {
	packetsReceived.Inc()
	bytesReceived.Add(float64(size))
}

// RecordPacketDropped records a datagram dropped before handling
func RecordPacketDropped(reason string) {
	packetsDropped.WithLabelValues(reason).Inc()
}

// RecordSessionCreated records a new client session
func RecordSessionCreated() {
	sessionsCreated.Inc()
	activeSessions.Inc()
}

// RecordSessionFinalized records a finalized session with its outcome
func RecordSessionFinalized(outcome string, duration time.Duration, payloadSize int) {
	activeSessions.Dec()
	sessionsFinalized.WithLabelValues(outcome).Inc()
	sessionDuration.Observe(duration.Seconds())
	payloadBytes.Observe(float64(payloadSize))
}

// SetActiveSessions overrides the active session gauge (used after bulk eviction)
func SetActiveSessions(n int) {
	activeSessions.Set(float64(n))
}

// RecordStaleSessionSwept records a session evicted by the stale sweep.
// The gauge decrement happens in RecordSessionFinalized, which sweep
// eviction also reports.
func RecordStaleSessionSwept() {
	staleSessionsSwept.Inc()
}

// RecordSTTRequest records an STT call with its latency
func RecordSTTRequest(success bool, elapsed time.Duration) {
	status := "success"
	if !success {
		status = "error"
	}
	sttRequests.WithLabelValues(status).Inc()
	sttLatency.Observe(elapsed.Seconds())
}

// RecordPipelineRequest records a pipeline call with its latency
func RecordPipelineRequest(success bool, elapsed time.Duration) {
	status := "success"
	if !success {
		status = "error"
	}
	pipelineRequests.WithLabelValues(status).Inc()
	pipelineLatency.Observe(elapsed.Seconds())
}

// RecordPipelineRetry records a pipeline retry attempt
func RecordPipelineRetry() {
	pipelineRetries.Inc()
}

// RecordResponseSent records a response datagram by outcome class
func RecordResponseSent(success bool) {
	status := "success"
	if !success {
		status = "error"
	}
	responsesSent.WithLabelValues(status).Inc()
}

// RecordResponseSendFailure records a response datagram that could not be sent
func RecordResponseSendFailure() {
	responseSendFailures.Inc()
}

// RecordError records an error
func RecordError(errorType, component string) {
	errorsTotal.WithLabelValues(errorType, component).Inc()
}

// UpdateCircuitBreakerState updates circuit breaker state metric
func UpdateCircuitBreakerState(service string, state int) {
	circuitBreakerState.WithLabelValues(service).Set(float64(state))
}

// IncrementCircuitBreakerFailures increments circuit breaker failure counter
func IncrementCircuitBreakerFailures(service string) {
	circuitBreakerFailures.WithLabelValues(service).Inc()
}
