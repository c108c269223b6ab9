// Package metrics exposes ingestion counters as a Prometheus textfile for the
// node_exporter textfile collector.
package metrics

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

const namespace = "lifeingest"

// Recorder collects the metrics of a single run on its own registry.
type Recorder struct {
	registry *prometheus.Registry

	archives        *prometheus.GaugeVec
	files           *prometheus.GaugeVec
	records         *prometheus.GaugeVec
	archiveDuration prometheus.Histogram
	runDuration     prometheus.Gauge
	lastRun         prometheus.Gauge
	lastSuccess     prometheus.Gauge
}

// NewRecorder registers the run metrics on a fresh registry.
func NewRecorder() *Recorder {
	r := &Recorder{
		registry: prometheus.NewRegistry(),
		archives: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "archives",
			Help:      "Archives handled by the last run, by outcome.",
		}, []string{"status"}),
		files: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "files",
			Help:      "Discovered files handled by the last run, by category and outcome.",
		}, []string{"category", "status"}),
		records: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "records",
			Help:      "Records written by the last run, by kind.",
		}, []string{"kind"}),
		archiveDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "archive_duration_seconds",
			Help:      "Time spent staging and normalizing each archive.",
			Buckets:   prometheus.ExponentialBuckets(0.01, 4, 8), // 10ms to ~3m
		}),
		runDuration: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "last_run_duration_seconds",
			Help:      "Wall time of the last run.",
		}),
		lastRun: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "last_run_timestamp_seconds",
			Help:      "Unix time the last run finished.",
		}),
		lastSuccess: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "last_run_success",
			Help:      "1 if the last run wrote its outputs, 0 otherwise.",
		}),
	}
	r.registry.MustRegister(
		r.archives,
		r.files,
		r.records,
		r.archiveDuration,
		r.runDuration,
		r.lastRun,
		r.lastSuccess,
	)
	return r
}

// Registry exposes the underlying registry.
func (r *Recorder) Registry() *prometheus.Registry { return r.registry }

// ObserveArchive counts one archive and its processing time.
func (r *Recorder) ObserveArchive(failed bool, elapsed time.Duration) {
	r.archives.WithLabelValues(outcome(failed)).Inc()
	r.archiveDuration.Observe(elapsed.Seconds())
}

// ObserveFile counts one discovered file.
func (r *Recorder) ObserveFile(category string, failed bool) {
	r.files.WithLabelValues(category, outcome(failed)).Inc()
}

// SetRecords sets the number of records of a kind.
func (r *Recorder) SetRecords(kind string, count int) {
	r.records.WithLabelValues(kind).Set(float64(count))
}

// Finish stamps the run timing and outcome.
func (r *Recorder) Finish(started, finished time.Time, success bool) {
	r.runDuration.Set(finished.Sub(started).Seconds())
	r.lastRun.Set(float64(finished.Unix()))
	if success {
		r.lastSuccess.Set(1)
	} else {
		r.lastSuccess.Set(0)
	}
}

// WriteTextfile writes the registry in the text exposition format to path.
func (r *Recorder) WriteTextfile(path string) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("ensure metrics directory: %w", err)
	}
	if err := prometheus.WriteToTextfile(path, r.registry); err != nil {
		return fmt.Errorf("write metrics textfile: %w", err)
	}
	return nil
}

func outcome(failed bool) string {
	if failed {
		return "failed"
	}
	return "ok"
}
