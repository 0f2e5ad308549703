package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Recorder exposes briefing pipeline metrics on a private registry.
// nil *Recorder 는 모든 기록을 무시 (테스트, 메트릭 비활성)
type Recorder struct {
	registry         *prometheus.Registry
	quotesAccepted   *prometheus.CounterVec
	fetchFailures    *prometheus.CounterVec
	validationReject *prometheus.CounterVec
	runDuration      *prometheus.HistogramVec
	completeness     *prometheus.GaugeVec
	liveRatio        *prometheus.GaugeVec
	publishTotal     *prometheus.CounterVec
}

// New creates a new Prometheus metrics recorder.
func New() *Recorder {
	reg := prometheus.NewRegistry()
	factory := promauto.With(reg)

	return &Recorder{
		registry: reg,
		quotesAccepted: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "briefing_quotes_accepted_total",
				Help: "Accepted quotes by segment and origin (live/backup)",
			},
			[]string{"segment", "origin"},
		),
		fetchFailures: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "briefing_fetch_failures_total",
				Help: "Live fetch failures by provider and failure class",
			},
			[]string{"provider", "class"},
		),
		validationReject: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "briefing_validation_rejections_total",
				Help: "Live quotes rejected by the validator",
			},
			[]string{"segment"},
		),
		runDuration: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "briefing_run_duration_seconds",
				Help:    "Duration of pipeline runs in seconds",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"briefing_type"},
		),
		completeness: factory.NewGaugeVec(
			prometheus.GaugeOpts{
				Name: "briefing_snapshot_complete",
				Help: "1 if the last snapshot of the briefing type was complete",
			},
			[]string{"briefing_type"},
		),
		liveRatio: factory.NewGaugeVec(
			prometheus.GaugeOpts{
				Name: "briefing_live_ratio",
				Help: "Share of live quotes in the last snapshot",
			},
			[]string{"briefing_type"},
		),
		publishTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "briefing_publish_total",
				Help: "Publish attempts by result (posted/simulated/failed)",
			},
			[]string{"result"},
		),
	}
}

// RecordAccepted records an accepted quote.
func (r *Recorder) RecordAccepted(segment, origin string) {
	if r == nil {
		return
	}
	r.quotesAccepted.WithLabelValues(segment, origin).Inc()
}

// RecordFetchFailure records a classified adapter failure.
func (r *Recorder) RecordFetchFailure(provider, class string) {
	if r == nil {
		return
	}
	r.fetchFailures.WithLabelValues(provider, class).Inc()
}

// RecordValidationReject records a rejected live quote.
func (r *Recorder) RecordValidationReject(segment string) {
	if r == nil {
		return
	}
	r.validationReject.WithLabelValues(segment).Inc()
}

// RecordRun records one finished pipeline run.
func (r *Recorder) RecordRun(briefingType string, d time.Duration, complete bool, liveRatio float64) {
	if r == nil {
		return
	}
	r.runDuration.WithLabelValues(briefingType).Observe(d.Seconds())
	v := 0.0
	if complete {
		v = 1.0
	}
	r.completeness.WithLabelValues(briefingType).Set(v)
	r.liveRatio.WithLabelValues(briefingType).Set(liveRatio)
}

// RecordPublish records a publish attempt.
func (r *Recorder) RecordPublish(result string) {
	if r == nil {
		return
	}
	r.publishTotal.WithLabelValues(result).Inc()
}

// Registry returns the underlying registry (tests, custom exporters).
func (r *Recorder) Registry() *prometheus.Registry {
	return r.registry
}

// Handler serves the registry in the Prometheus text format.
func (r *Recorder) Handler() http.Handler {
	return promhttp.HandlerFor(r.registry, promhttp.HandlerOpts{})
}
