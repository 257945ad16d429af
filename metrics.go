package wydecoder

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Frame pipeline metrics
var (
	FramesDequeued = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "wydecoder_frames_dequeued_total",
			Help: "Total number of frames handed to the caller",
		},
		[]string{"kind"}, // "raw", "rgb"
	)

	DequeueTimeouts = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "wydecoder_dequeue_timeouts_total",
			Help: "Total number of frame requests that returned without a frame",
		},
	)

	FramesDiscarded = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "wydecoder_frames_discarded_total",
			Help: "Total number of discard requests",
		},
	)
)

// Engine metrics
var (
	EngineOpens = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "wydecoder_engine_opens_total",
			Help: "Total number of decode engines opened",
		},
		[]string{"direction"},
	)

	EngineOpenFailures = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "wydecoder_engine_open_failures_total",
			Help: "Total number of decode engines that failed to open",
		},
		[]string{"direction"},
	)
)

// Conversion metrics
var (
	OutputBufferAllocations = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "wydecoder_output_buffer_allocations_total",
			Help: "Total number of RGB output buffer (re)allocations",
		},
	)

	ConversionContextBuilds = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "wydecoder_conversion_context_builds_total",
			Help: "Total number of color conversion contexts built",
		},
	)
)
