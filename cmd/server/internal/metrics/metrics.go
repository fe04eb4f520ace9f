package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// AudioChunksTotal counts audio chunks by processing outcome.
	// Labels: status (sequenced/filtered/dropped/rejected)
	AudioChunksTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "livemeet_audio_chunks_total",
			Help: "Total number of audio chunks by processing outcome",
		},
		[]string{"status"},
	)

	// ChunksFilteredTotal counts chunks discarded by the transcript filter.
	// Labels: reason (too_short/denylist)
	ChunksFilteredTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "livemeet_chunks_filtered_total",
			Help: "Total number of transcription results discarded by the filter",
		},
		[]string{"reason"},
	)

	// CapabilityCallsTotal counts external capability invocations.
	// Labels: capability (transcribe/extract), status (success/error)
	CapabilityCallsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "livemeet_capability_calls_total",
			Help: "Total number of external capability calls by outcome",
		},
		[]string{"capability", "status"},
	)

	// ActionItemsTotal counts extracted action items.
	// Labels: status (emitted/deduplicated)
	ActionItemsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "livemeet_action_items_total",
			Help: "Total number of action items by emission outcome",
		},
		[]string{"status"},
	)

	// EventsBroadcastTotal counts room events delivered to the fan-out hub.
	// Labels: type (new-transcript/new-action-item/user-joined/user-left)
	EventsBroadcastTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "livemeet_events_broadcast_total",
			Help: "Total number of events handed to the room broadcaster by type",
		},
		[]string{"type"},
	)

	// OpenRooms tracks the number of rooms in ACTIVE state.
	OpenRooms = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "livemeet_open_rooms",
			Help: "Number of rooms currently in ACTIVE state",
		},
	)

	// ConnectedClients tracks live websocket connections.
	ConnectedClients = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "livemeet_connected_clients",
			Help: "Number of live websocket connections",
		},
	)

	// ChunkProcessingDuration measures end-to-end chunk handling time in seconds.
	// Buckets cover fast filtered chunks up to slow transcription round-trips.
	ChunkProcessingDuration = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "livemeet_chunk_processing_duration_seconds",
			Help:    "End-to-end audio chunk processing duration in seconds",
			Buckets: []float64{0.05, 0.1, 0.25, 0.5, 1, 2, 5, 10, 30, 60},
		},
	)
)

// RecordChunk records one audio chunk outcome.
func RecordChunk(status string) {
	AudioChunksTotal.WithLabelValues(status).Inc()
}

// RecordFiltered records a filter discard with its reason.
func RecordFiltered(reason string) {
	ChunksFilteredTotal.WithLabelValues(reason).Inc()
}

// RecordCapabilityCall records an external capability call outcome.
func RecordCapabilityCall(capability string, success bool) {
	status := "success"
	if !success {
		status = "error"
	}
	CapabilityCallsTotal.WithLabelValues(capability, status).Inc()
}

// RecordActionItem records an action item emission or suppression.
func RecordActionItem(emitted bool) {
	status := "emitted"
	if !emitted {
		status = "deduplicated"
	}
	ActionItemsTotal.WithLabelValues(status).Inc()
}

// RecordBroadcast records an event handed to the broadcaster.
func RecordBroadcast(eventType string) {
	EventsBroadcastTotal.WithLabelValues(eventType).Inc()
}

// RecordChunkDuration records end-to-end chunk handling time in seconds.
func RecordChunkDuration(seconds float64) {
	ChunkProcessingDuration.Observe(seconds)
}
