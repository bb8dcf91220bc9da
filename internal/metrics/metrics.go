// Package metrics collects run counters in a private Prometheus registry and
// dumps them in text exposition format for a node exporter textfile collector.
package metrics

import (
	"fmt"
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/drstein77/salesforecast/internal/models"
)

const namespace = "salesforecast"

type Recorder struct {
	registry *prometheus.Registry

	loaded   prometheus.Counter
	rejected prometheus.Counter
	forecast prometheus.Counter
	excluded prometheus.Counter
	failed   prometheus.Counter
	fits     *prometheus.HistogramVec
	lastRun  prometheus.Gauge
}

func NewRecorder() *Recorder {
	counter := func(name, help string) prometheus.Counter {
		return prometheus.NewCounter(prometheus.CounterOpts{Namespace: namespace, Name: name, Help: help})
	}

	r := &Recorder{
		registry: prometheus.NewRegistry(),
		loaded:   counter("transactions_loaded_total", "Transactions read from the sales file."),
		rejected: counter("transactions_rejected_total", "Transactions dropped by the outlier filter."),
		forecast: counter("shops_forecast_total", "Shops with a next-month forecast."),
		excluded: counter("shops_excluded_total", "Shops skipped for insufficient history."),
		failed:   counter("shops_failed_total", "Shops whose model fit failed."),
		fits: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "fit_duration_seconds",
			Help:      "Time spent fitting one shop.",
			Buckets:   prometheus.ExponentialBuckets(0.0001, 4, 10),
		}, []string{"outcome"}),
		lastRun: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "last_run_timestamp_seconds",
			Help:      "Unix time the last run finished.",
		}),
	}

	r.registry.MustRegister(r.loaded, r.rejected, r.forecast, r.excluded, r.failed, r.fits, r.lastRun)
	return r
}

// ObserveFit records how long one shop took to fit.
func (r *Recorder) ObserveFit(d time.Duration, err error) {
	outcome := "ok"
	if err != nil {
		outcome = "error"
	}
	r.fits.WithLabelValues(outcome).Observe(d.Seconds())
}

// ObserveSummary adds the counters of a finished run.
func (r *Recorder) ObserveSummary(s models.Summary) {
	r.loaded.Add(float64(s.TransactionsLoaded))
	r.rejected.Add(float64(s.TransactionsRejected))
	r.forecast.Add(float64(s.ShopsForecast))
	r.excluded.Add(float64(len(s.Excluded)))
	r.failed.Add(float64(len(s.Failed)))
	r.lastRun.SetToCurrentTime()
}

// WriteTextfile atomically replaces path with the current metric values.
func (r *Recorder) WriteTextfile(path string) error {
	if err := prometheus.WriteToTextfile(path, r.registry); err != nil {
		return fmt.Errorf("write metrics %s: %w", path, err)
	}
	return nil
}
