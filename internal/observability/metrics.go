package observability

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	activeSessions = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "audio_gateway_active_sessions",
		Help: "Number of open client sessions",
	})

	sessionsTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "audio_gateway_sessions_total",
		Help: "Total number of sessions handled",
	})

	sessionDuration = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "audio_gateway_session_duration_seconds",
		Help:    "Duration of client sessions in seconds",
		Buckets: []float64{1, 5, 15, 60, 300, 900, 1800, 3600},
	})

	segmentsSaved = promauto.NewCounter(prometheus.CounterOpts{
		Name: "audio_gateway_segments_saved_total",
		Help: "Total number of audio segments persisted",
	})

	segmentBytes = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "audio_gateway_segment_bytes",
		Help:    "Size of persisted audio segments in bytes",
		Buckets: prometheus.ExponentialBuckets(1024, 4, 8),
	})

	audioBytes = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "audio_gateway_audio_bytes_total",
		Help: "Total audio bytes processed",
	}, []string{"direction"}) // "in" or "out"

	commandsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "audio_gateway_commands_total",
		Help: "Total commands received, by verb",
	}, []string{"command"})

	collaboratorErrors = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "audio_gateway_collaborator_errors_total",
		Help: "Total failed collaborator calls",
	}, []string{"collaborator"}) // storage, registry, launcher

	activeLeases = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "audio_gateway_active_leases",
		Help: "Number of worker tasks currently leased",
	})

	leasesStarted = promauto.NewCounter(prometheus.CounterOpts{
		Name: "audio_gateway_leases_started_total",
		Help: "Total worker tasks started",
	})

	leasesReused = promauto.NewCounter(prometheus.CounterOpts{
		Name: "audio_gateway_leases_reused_total",
		Help: "Total leases reused across fast reconnects",
	})
)

// SessionStarted records a session entering the active state.
func SessionStarted() {
	activeSessions.Inc()
	sessionsTotal.Inc()
}

// SessionEnded records a closed session and its lifetime.
func SessionEnded(d time.Duration) {
	activeSessions.Dec()
	sessionDuration.Observe(d.Seconds())
}

// SegmentSaved records one persisted segment of the given encoded size.
func SegmentSaved(bytes int) {
	segmentsSaved.Inc()
	segmentBytes.Observe(float64(bytes))
}

// AudioBytes records audio volume; direction is "in" or "out".
func AudioBytes(direction string, n int) {
	audioBytes.WithLabelValues(direction).Add(float64(n))
}

// CommandReceived records a dispatched command verb. Playback commands are
// collapsed to a single label value to bound cardinality.
func CommandReceived(command string) {
	commandsTotal.WithLabelValues(command).Inc()
}

// CollaboratorError records a failed storage, registry, or launcher call.
func CollaboratorError(collaborator string) {
	collaboratorErrors.WithLabelValues(collaborator).Inc()
}

// LeaseStarted records a newly launched worker task.
func LeaseStarted() {
	activeLeases.Inc()
	leasesStarted.Inc()
}

// LeaseReused records a pending teardown cancelled in favor of reuse.
func LeaseReused() {
	leasesReused.Inc()
}

// LeaseStopped records a worker task leaving the leased set.
func LeaseStopped() {
	activeLeases.Dec()
}
