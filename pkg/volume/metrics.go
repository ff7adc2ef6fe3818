package volume

import (
	"time"

	"github.com/aukilabs/go-tooling/pkg/errors"
	"github.com/chazu/ember/pkg/kernel"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const (
	volumeLabel    = "volume"
	errorTypeLabel = "error_type"
)

var (
	sliceCount = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "ember_volume_slicings",
		Help: "The number of times a volume was re-sliced.",
	}, []string{volumeLabel})

	sliceLatency = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "ember_volume_slicing_seconds",
		Help:    "The time spent slicing a volume.",
		Buckets: prometheus.ExponentialBuckets(0.000005, 2, 12),
	}, []string{volumeLabel})

	sliceErrors = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "ember_volume_slicing_errors",
		Help: "The number of failed volume updates.",
	}, []string{volumeLabel, errorTypeLabel})

	sliceVertices = promauto.NewGaugeVec(prometheus.GaugeOpts{
		Name: "ember_volume_vertices",
		Help: "The number of vertices of the current slicing of a volume.",
	}, []string{volumeLabel})
)

func instrumentSlice(volume string, start time.Time, m *kernel.Mesh) {
	sliceCount.With(prometheus.Labels{
		volumeLabel: volume,
	}).Inc()

	sliceLatency.With(prometheus.Labels{
		volumeLabel: volume,
	}).Observe(time.Since(start).Seconds())

	sliceVertices.With(prometheus.Labels{
		volumeLabel: volume,
	}).Set(float64(m.VertexCount()))
}

func instrumentSliceError(volume string, err error) {
	sliceErrors.With(prometheus.Labels{
		volumeLabel:    volume,
		errorTypeLabel: errors.Type(err),
	}).Inc()
}
