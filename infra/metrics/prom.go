package metrics

import (
	"errors"

	"github.com/prometheus/client_golang/prometheus"

	coremetrics "github.com/kilianp07/parkcast/core/metrics"
)

// PromSink records pipeline runs in Prometheus metrics.
type PromSink struct {
	stageDuration *prometheus.HistogramVec
	stageRows     *prometheus.GaugeVec
	dropped       *prometheus.CounterVec
	runs          prometheus.Counter
	bays          *prometheus.GaugeVec
	zones         *prometheus.GaugeVec
	records       *prometheus.GaugeVec
	nullPoints    prometheus.Gauge
	coverage      prometheus.Gauge
	backfillP90   prometheus.Gauge
	lastRun       prometheus.Gauge
}

// NewPromSink registers pipeline metrics on the default Prometheus registerer.
// The Prometheus server should be started separately with StartPromServer.
func NewPromSink() (*PromSink, error) {
	return NewPromSinkWithRegistry(prometheus.DefaultRegisterer)
}

// NewPromSinkWithRegistry registers metrics on the provided registerer.
// A nil registerer defaults to the global Prometheus registerer. Collectors
// already registered by a previous sink are reused.
func NewPromSinkWithRegistry(reg prometheus.Registerer) (*PromSink, error) {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	s := &PromSink{}
	var err error
	if s.stageDuration, err = register(reg, prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "parkcast_stage_duration_seconds",
		Help:    "Duration of pipeline stages",
		Buckets: prometheus.ExponentialBuckets(0.001, 4, 10),
	}, []string{"stage"})); err != nil {
		return nil, err
	}
	if s.stageRows, err = register(reg, prometheus.NewGaugeVec(prometheus.GaugeOpts{
		Name: "parkcast_stage_rows",
		Help: "Records produced by the last run of each stage",
	}, []string{"stage"})); err != nil {
		return nil, err
	}
	if s.dropped, err = register(reg, prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "parkcast_dropped_rows_total",
		Help: "Input rows dropped, by stage and offending field",
	}, []string{"stage", "field"})); err != nil {
		return nil, err
	}
	if s.runs, err = register(reg, prometheus.NewCounter(prometheus.CounterOpts{
		Name: "parkcast_runs_total",
		Help: "Completed pipeline runs",
	})); err != nil {
		return nil, err
	}
	if s.bays, err = register(reg, prometheus.NewGaugeVec(prometheus.GaugeOpts{
		Name: "parkcast_bays",
		Help: "Bays of the last run by zone source",
	}, []string{"source"})); err != nil {
		return nil, err
	}
	if s.zones, err = register(reg, prometheus.NewGaugeVec(prometheus.GaugeOpts{
		Name: "parkcast_zones",
		Help: "Zones of the last run",
	}, []string{"kind"})); err != nil {
		return nil, err
	}
	if s.records, err = register(reg, prometheus.NewGaugeVec(prometheus.GaugeOpts{
		Name: "parkcast_model_records",
		Help: "Availability records of the last run",
	}, []string{"entity"})); err != nil {
		return nil, err
	}
	if s.nullPoints, err = register(reg, prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "parkcast_forecast_null_points",
		Help: "Forecast points without a probability in the last run",
	})); err != nil {
		return nil, err
	}
	if s.coverage, err = register(reg, prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "parkcast_backfill_coverage_ratio",
		Help: "Share of bays zoned after backfill, before clustering",
	})); err != nil {
		return nil, err
	}
	if s.backfillP90, err = register(reg, prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "parkcast_backfill_distance_p90_meters",
		Help: "90th percentile nearest known bay distance of backfilled bays",
	})); err != nil {
		return nil, err
	}
	if s.lastRun, err = register(reg, prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "parkcast_last_run_timestamp_seconds",
		Help: "Unix time of the last completed run",
	})); err != nil {
		return nil, err
	}
	return s, nil
}

func register[C prometheus.Collector](reg prometheus.Registerer, c C) (C, error) {
	if err := reg.Register(c); err != nil {
		var are prometheus.AlreadyRegisteredError
		if errors.As(err, &are) {
			if existing, ok := are.ExistingCollector.(C); ok {
				return existing, nil
			}
		}
		return c, err
	}
	return c, nil
}

// RecordStage observes the stage duration and its drops.
func (s *PromSink) RecordStage(ev coremetrics.StageEvent) error {
	s.stageDuration.WithLabelValues(ev.Stage).Observe(ev.Duration.Seconds())
	s.stageRows.WithLabelValues(ev.Stage).Set(float64(ev.Rows))
	for field, n := range ev.Dropped {
		s.dropped.WithLabelValues(ev.Stage, field).Add(float64(n))
	}
	return nil
}

// RecordRun sets the gauges describing the last run.
func (s *PromSink) RecordRun(sum coremetrics.RunSummary) error {
	s.runs.Inc()
	s.bays.WithLabelValues("official").Set(float64(sum.Official))
	s.bays.WithLabelValues("feed").Set(float64(sum.Feed))
	s.bays.WithLabelValues("backfill").Set(float64(sum.Backfilled))
	s.bays.WithLabelValues("synthetic").Set(float64(sum.Synthetic))
	s.zones.WithLabelValues("all").Set(float64(sum.Zones))
	s.zones.WithLabelValues("synthetic").Set(float64(sum.SyntheticZones))
	s.records.WithLabelValues("bay").Set(float64(sum.BayRecords))
	s.records.WithLabelValues("zone").Set(float64(sum.ZoneRecords))
	s.nullPoints.Set(float64(sum.NullPoints))
	s.coverage.Set(sum.Coverage)
	s.backfillP90.Set(sum.BackfillP90M)
	s.lastRun.Set(float64(sum.Time.Unix()))
	return nil
}
