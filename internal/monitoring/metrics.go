package monitoring

import (
	"fmt"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Extraction results
const (
	ResultSuccess = "success"
	ResultFailure = "failure"
	ResultRaced   = "raced"
)

// Metrics holds bootstrap metrics. A nil *Metrics is valid and records nothing.
type Metrics struct {
	registry *prometheus.Registry

	// Cache metrics
	CacheHits   prometheus.Counter
	CacheMisses prometheus.Counter

	// Extraction metrics
	Extractions        *prometheus.CounterVec
	ExtractedFiles     prometheus.Counter
	ExtractedBytes     prometheus.Counter
	ExtractionDuration prometheus.Histogram

	// Compile metrics
	CompiledUnits *prometheus.CounterVec
}

// NewMetrics creates a metrics collector on its own registry
func NewMetrics() *Metrics {
	reg := prometheus.NewRegistry()
	factory := promauto.With(reg)

	return &Metrics{
		registry: reg,

		CacheHits: factory.NewCounter(
			prometheus.CounterOpts{
				Name: "satchel_cache_hits_total",
				Help: "Runs that reused a complete cache directory",
			},
		),
		CacheMisses: factory.NewCounter(
			prometheus.CounterOpts{
				Name: "satchel_cache_misses_total",
				Help: "Runs that had to extract the payload",
			},
		),
		Extractions: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "satchel_extractions_total",
				Help: "Payload extractions by result",
			},
			[]string{"result"},
		),
		ExtractedFiles: factory.NewCounter(
			prometheus.CounterOpts{
				Name: "satchel_extracted_files_total",
				Help: "Files written during extraction",
			},
		),
		ExtractedBytes: factory.NewCounter(
			prometheus.CounterOpts{
				Name: "satchel_extracted_bytes_total",
				Help: "Bytes written during extraction",
			},
		),
		ExtractionDuration: factory.NewHistogram(
			prometheus.HistogramOpts{
				Name:    "satchel_extraction_duration_seconds",
				Help:    "Wall time of the slow extraction path",
				Buckets: []float64{.01, .05, .1, .25, .5, 1, 2.5, 5, 10, 30, 60},
			},
		),
		CompiledUnits: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "satchel_compiled_units_total",
				Help: "Pre-compiled source units by result",
			},
			[]string{"result"},
		),
	}
}

// Registry exposes the underlying registry
func (m *Metrics) Registry() *prometheus.Registry {
	if m == nil {
		return nil
	}
	return m.registry
}

// RecordCacheHit counts a fast-path run
func (m *Metrics) RecordCacheHit() {
	if m == nil {
		return
	}
	m.CacheHits.Inc()
}

// RecordExtraction records a slow-path run
func (m *Metrics) RecordExtraction(result string, files int, bytes int64, duration time.Duration) {
	if m == nil {
		return
	}
	m.CacheMisses.Inc()
	m.Extractions.WithLabelValues(result).Inc()
	m.ExtractedFiles.Add(float64(files))
	m.ExtractedBytes.Add(float64(bytes))
	m.ExtractionDuration.Observe(duration.Seconds())
}

// RecordCompile records one compiled unit
func (m *Metrics) RecordCompile(ok bool) {
	if m == nil {
		return
	}
	if ok {
		m.CompiledUnits.WithLabelValues("ok").Inc()
		return
	}
	m.CompiledUnits.WithLabelValues("failed").Inc()
}

// WriteTextfile writes all metrics in the text exposition format, for the
// node exporter textfile collector. The file is replaced atomically.
func (m *Metrics) WriteTextfile(path string) error {
	if m == nil || path == "" {
		return nil
	}
	if err := prometheus.WriteToTextfile(path, m.registry); err != nil {
		return fmt.Errorf("write metrics: %w", err)
	}
	return nil
}
