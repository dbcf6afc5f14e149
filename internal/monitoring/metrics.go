// Package monitoring exposes counters for the collection pipeline on the
// default Prometheus registry. The daemon serves them over HTTP when a
// listen address is configured; library users can scrape or ignore them.
package monitoring

import "github.com/prometheus/client_golang/prometheus"

const metricPrefix = "powerwatch_"

var (
	SamplesTaken = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: metricPrefix + "samples_total",
			Help: "Measurements produced per sensor",
		},
		[]string{"sensor"},
	)

	SampleFaults = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: metricPrefix + "sample_faults_total",
			Help: "Failed sample attempts per sensor",
		},
		[]string{"sensor"},
	)

	SamplesDropped = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: metricPrefix + "samples_dropped_total",
			Help: "Measurements discarded because no marker was active",
		},
	)

	BatchesFlushed = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: metricPrefix + "batches_flushed_total",
			Help: "Buffer batches drained to the output sink",
		},
	)

	RecordsWritten = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: metricPrefix + "records_written_total",
			Help: "Measurement records written to the output sink",
		},
	)

	SinkErrors = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: metricPrefix + "sink_errors_total",
			Help: "Terminal output sink failures",
		},
	)

	BufferDepth = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: metricPrefix + "buffer_depth",
			Help: "Measurements currently buffered for the writer",
		},
	)
)

func init() {
	prometheus.MustRegister(
		SamplesTaken,
		SampleFaults,
		SamplesDropped,
		BatchesFlushed,
		RecordsWritten,
		SinkErrors,
		BufferDepth,
	)
}
