// Package metrics provides Prometheus metrics for the mastering engine.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// AudioCoreMetrics collects Prometheus metrics for internal/audiocore:
// buffer pool usage, processor chain execution, and per-track processing
// throughput. One instance is shared process-wide via
// audiocore.InitMetrics.
type AudioCoreMetrics struct {
	activeSources     *prometheus.GaugeVec
	processedFrames    *prometheus.CounterVec
	processingDuration *prometheus.HistogramVec
	processingErrors   *prometheus.CounterVec
	audioDataDropped   *prometheus.CounterVec
	sourceStarts       *prometheus.CounterVec
	sourceStops        *prometheus.CounterVec
	sourceErrors       *prometheus.CounterVec
	sourceGain         *prometheus.GaugeVec

	buffersInUse      *prometheus.GaugeVec
	bufferAllocations *prometheus.CounterVec

	processorExecutions *prometheus.CounterVec
	processorErrors     *prometheus.CounterVec
	processorDuration   *prometheus.HistogramVec
	chainLength         *prometheus.GaugeVec

	audioDataBytes    *prometheus.CounterVec
	audioDataDuration *prometheus.HistogramVec

	gainLevel          *prometheus.GaugeVec
	gainAdjustments    *prometheus.CounterVec
	gainClippingEvents *prometheus.CounterVec
}

// NewAudioCoreMetrics registers and returns a fresh AudioCoreMetrics using
// the supplied registerer (pass prometheus.DefaultRegisterer in
// production, a fresh prometheus.NewRegistry() in tests to avoid
// cross-test collisions).
func NewAudioCoreMetrics(reg prometheus.Registerer) *AudioCoreMetrics {
	factory := promauto.With(reg)
	const ns = "mastering"
	const sub = "audiocore"

	return &AudioCoreMetrics{
		activeSources: factory.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: ns, Subsystem: sub, Name: "active_sources",
			Help: "Number of active audio sources per manager.",
		}, []string{"manager_id"}),
		processedFrames: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: ns, Subsystem: sub, Name: "processed_frames_total",
			Help: "Total audio chunks processed successfully.",
		}, []string{"manager_id", "source_id"}),
		processingDuration: factory.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: ns, Subsystem: sub, Name: "processing_duration_seconds",
			Help:    "Time to process one audio chunk through a chain.",
			Buckets: prometheus.DefBuckets,
		}, []string{"manager_id", "source_id"}),
		processingErrors: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: ns, Subsystem: sub, Name: "processing_errors_total",
			Help: "Total processing errors.",
		}, []string{"manager_id", "source_id", "error_type"}),
		audioDataDropped: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: ns, Subsystem: sub, Name: "audio_data_dropped_total",
			Help: "Chunks dropped due to a full output channel.",
		}, []string{"source_id", "reason"}),
		sourceStarts: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: ns, Subsystem: sub, Name: "source_starts_total",
			Help: "Source start attempts.",
		}, []string{"source_id", "source_type", "status"}),
		sourceStops: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: ns, Subsystem: sub, Name: "source_stops_total",
			Help: "Source stop attempts.",
		}, []string{"source_id", "source_type", "status"}),
		sourceErrors: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: ns, Subsystem: sub, Name: "source_errors_total",
			Help: "Source-level errors.",
		}, []string{"source_id", "source_type", "error_type"}),
		sourceGain: factory.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: ns, Subsystem: sub, Name: "source_gain_level",
			Help: "Currently configured source gain multiplier.",
		}, []string{"source_id", "source_type"}),

		buffersInUse: factory.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: ns, Subsystem: sub, Name: "buffers_in_use",
			Help: "Active buffers checked out from the pool, per tier.",
		}, []string{"tier"}),
		bufferAllocations: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: ns, Subsystem: sub, Name: "buffer_allocations_total",
			Help: "Buffer allocations, split by whether they came from the pool.",
		}, []string{"tier", "allocation_type"}),

		processorExecutions: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: ns, Subsystem: sub, Name: "processor_executions_total",
			Help: "Processor stage executions.",
		}, []string{"processor_id", "processor_type", "status"}),
		processorErrors: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: ns, Subsystem: sub, Name: "processor_errors_total",
			Help: "Processor stage errors.",
		}, []string{"processor_id", "processor_type", "error_type"}),
		processorDuration: factory.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: ns, Subsystem: sub, Name: "processor_duration_seconds",
			Help:    "Time spent inside a single processor stage.",
			Buckets: prometheus.DefBuckets,
		}, []string{"processor_id", "processor_type"}),
		chainLength: factory.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: ns, Subsystem: sub, Name: "processor_chain_length",
			Help: "Number of processors configured in a source's chain.",
		}, []string{"source_id"}),

		audioDataBytes: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: ns, Subsystem: sub, Name: "audio_data_bytes_total",
			Help: "Audio samples observed at a given pipeline stage.",
		}, []string{"source_id", "stage"}),
		audioDataDuration: factory.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: ns, Subsystem: sub, Name: "audio_data_duration_seconds",
			Help:    "Duration of audio chunks observed.",
			Buckets: prometheus.DefBuckets,
		}, []string{"source_id"}),

		gainLevel: factory.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: ns, Subsystem: sub, Name: "gain_level",
			Help: "Last applied linear gain multiplier for a processor.",
		}, []string{"processor_id"}),
		gainAdjustments: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: ns, Subsystem: sub, Name: "gain_adjustments_total",
			Help: "Gain adjustment direction counts.",
		}, []string{"processor_id", "adjustment_type"}),
		gainClippingEvents: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: ns, Subsystem: sub, Name: "gain_clipping_events_total",
			Help: "Times a gain stage had to clamp output to avoid clipping.",
		}, []string{"processor_id", "sample_format"}),
	}
}

func (m *AudioCoreMetrics) UpdateActiveSources(managerID string, count int) {
	m.activeSources.WithLabelValues(managerID).Set(float64(count))
}

func (m *AudioCoreMetrics) RecordProcessedFrame(managerID, sourceID string) {
	m.processedFrames.WithLabelValues(managerID, sourceID).Inc()
}

func (m *AudioCoreMetrics) RecordProcessingDuration(managerID, sourceID string, seconds float64) {
	m.processingDuration.WithLabelValues(managerID, sourceID).Observe(seconds)
}

func (m *AudioCoreMetrics) RecordProcessingError(managerID, sourceID, errorType string) {
	m.processingErrors.WithLabelValues(managerID, sourceID, errorType).Inc()
}

func (m *AudioCoreMetrics) RecordAudioDataDropped(sourceID, reason string) {
	m.audioDataDropped.WithLabelValues(sourceID, reason).Inc()
}

func (m *AudioCoreMetrics) RecordSourceStart(sourceID, sourceType, status string) {
	m.sourceStarts.WithLabelValues(sourceID, sourceType, status).Inc()
}

func (m *AudioCoreMetrics) RecordSourceStop(sourceID, sourceType, status string) {
	m.sourceStops.WithLabelValues(sourceID, sourceType, status).Inc()
}

func (m *AudioCoreMetrics) RecordSourceError(sourceID, sourceType, errorType string) {
	m.sourceErrors.WithLabelValues(sourceID, sourceType, errorType).Inc()
}

func (m *AudioCoreMetrics) UpdateSourceGainLevel(sourceID, sourceType string, gain float64) {
	m.sourceGain.WithLabelValues(sourceID, sourceType).Set(gain)
}

func (m *AudioCoreMetrics) UpdateBuffersInUse(tier string, count int) {
	m.buffersInUse.WithLabelValues(tier).Set(float64(count))
}

func (m *AudioCoreMetrics) RecordBufferAllocation(tier, allocationType string) {
	m.bufferAllocations.WithLabelValues(tier, allocationType).Inc()
}

func (m *AudioCoreMetrics) RecordProcessorExecution(processorID, processorType, status string) {
	m.processorExecutions.WithLabelValues(processorID, processorType, status).Inc()
}

func (m *AudioCoreMetrics) RecordProcessorError(processorID, processorType, errorType string) {
	m.processorErrors.WithLabelValues(processorID, processorType, errorType).Inc()
}

func (m *AudioCoreMetrics) RecordProcessorDuration(processorID, processorType string, seconds float64) {
	m.processorDuration.WithLabelValues(processorID, processorType).Observe(seconds)
}

func (m *AudioCoreMetrics) UpdateProcessorChainLength(sourceID string, length int) {
	m.chainLength.WithLabelValues(sourceID).Set(float64(length))
}

func (m *AudioCoreMetrics) RecordAudioDataBytes(sourceID, stage string, samples int) {
	m.audioDataBytes.WithLabelValues(sourceID, stage).Add(float64(samples))
}

func (m *AudioCoreMetrics) RecordAudioDataDuration(sourceID string, seconds float64) {
	m.audioDataDuration.WithLabelValues(sourceID).Observe(seconds)
}

func (m *AudioCoreMetrics) RecordGainLevel(processorID string, gain float64) {
	m.gainLevel.WithLabelValues(processorID).Set(gain)
}

func (m *AudioCoreMetrics) RecordGainAdjustment(processorID, adjustmentType string) {
	m.gainAdjustments.WithLabelValues(processorID, adjustmentType).Inc()
}

func (m *AudioCoreMetrics) RecordGainClippingEvent(processorID, sampleFormat string) {
	m.gainClippingEvents.WithLabelValues(processorID, sampleFormat).Inc()
}
