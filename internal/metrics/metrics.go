// Package metrics exposes seeding run statistics to Prometheus.
package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"railseed/internal/seed"
)

// Record outcomes.
const (
	OutcomeRejected  = "rejected"
	OutcomeDuplicate = "duplicate"
	OutcomeSubmitted = "submitted"
	OutcomeInserted  = "inserted"
)

// Recorder turns run reports into Prometheus series. Each Recorder owns its
// registry so several can coexist in one process.
type Recorder struct {
	registry *prometheus.Registry

	records     *prometheus.CounterVec
	runs        *prometheus.CounterVec
	runDuration prometheus.Histogram
	lastSuccess prometheus.Gauge
	running     prometheus.Gauge
}

// NewRecorder creates a Recorder with its own registry, which also carries
// the Go runtime and process collectors.
func NewRecorder() *Recorder {
	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	factory := promauto.With(reg)

	return &Recorder{
		registry: reg,
		records: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "railseed_records_total",
				Help: "Records handled per entity kind and outcome",
			},
			[]string{"kind", "outcome"}, // kind=stations/trains, outcome=rejected/duplicate/submitted/inserted
		),
		runs: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "railseed_runs_total",
				Help: "Seeding runs by final status",
			},
			[]string{"status"}, // success, error
		),
		runDuration: factory.NewHistogram(
			prometheus.HistogramOpts{
				Name:    "railseed_run_duration_seconds",
				Help:    "Duration of seeding runs",
				Buckets: prometheus.ExponentialBuckets(0.05, 2, 14), // 50ms to ~7min
			},
		),
		lastSuccess: factory.NewGauge(
			prometheus.GaugeOpts{
				Name: "railseed_last_success_timestamp_seconds",
				Help: "Unix time of the last successful run",
			},
		),
		running: factory.NewGauge(
			prometheus.GaugeOpts{
				Name: "railseed_run_in_progress",
				Help: "1 while a seeding run is executing",
			},
		),
	}
}

// ObserveRun records a finished run.
func (r *Recorder) ObserveRun(rep *seed.Report) {
	if rep == nil {
		return
	}
	for _, k := range []seed.KindReport{rep.Stations, rep.Trains} {
		r.records.WithLabelValues(k.Kind, OutcomeRejected).Add(float64(k.Rejected))
		r.records.WithLabelValues(k.Kind, OutcomeDuplicate).Add(float64(k.Duplicates))
		r.records.WithLabelValues(k.Kind, OutcomeSubmitted).Add(float64(k.Submitted))
		r.records.WithLabelValues(k.Kind, OutcomeInserted).Add(float64(k.Inserted))
	}
	r.runs.WithLabelValues(rep.Status).Inc()
	r.runDuration.Observe(rep.Duration.Seconds())
	if rep.Status == seed.StatusSuccess {
		r.lastSuccess.Set(float64(rep.StartedAt.Add(rep.Duration).Unix()))
	}
}

// SetRunning flips the in-progress gauge.
func (r *Recorder) SetRunning(running bool) {
	if running {
		r.running.Set(1)
		return
	}
	r.running.Set(0)
}

// Registry returns the registry backing this recorder.
func (r *Recorder) Registry() *prometheus.Registry { return r.registry }

// Handler serves the recorder's registry in the Prometheus text format.
func (r *Recorder) Handler() http.Handler {
	return promhttp.HandlerFor(r.registry, promhttp.HandlerOpts{})
}
