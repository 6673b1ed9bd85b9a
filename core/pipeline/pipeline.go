// Package pipeline runs the zone inference and forecasting stages in order
// and assembles the artifacts of a run. Nothing is returned when a stage
// fails, so callers never publish a partial run.
package pipeline

import (
	"context"
	"fmt"
	"sort"
	"time"

	"github.com/google/uuid"
	"gonum.org/v1/gonum/stat"

	"github.com/kilianp07/parkcast/core/artifact"
	"github.com/kilianp07/parkcast/core/availability"
	"github.com/kilianp07/parkcast/core/forecast"
	"github.com/kilianp07/parkcast/core/logger"
	"github.com/kilianp07/parkcast/core/metrics"
	"github.com/kilianp07/parkcast/core/model"
	"github.com/kilianp07/parkcast/core/zones"
)

// Stage names reported in metrics.
const (
	StageBays      = "ingest_bays"
	StageEvents    = "ingest_events"
	StageFeedZones = "feed_zones"
	StageBackfill  = "backfill"
	StageCluster   = "cluster"
	StageCentroids = "centroids"
	StageModel     = "model"
	StageForecast  = "forecast"
)

// Source provides the raw inputs of a run.
type Source interface {
	Bays(ctx context.Context) ([]model.Bay, model.DropReport, error)
	Events(ctx context.Context) ([]model.StatusEvent, model.DropReport, error)
}

// Config groups the stage settings.
type Config struct {
	Zones    zones.Config
	Model    availability.Config
	Forecast forecast.Config
	// ZoneFromEvents fills zone-less bays from the zones reported by the
	// sensor feed before backfill.
	ZoneFromEvents bool
}

// Pipeline runs the stages over one Source.
type Pipeline struct {
	cfg   Config
	src   Source
	sink  metrics.MetricsSink
	log   logger.Logger
	newID func() string
}

// New returns a pipeline. A nil sink records nothing.
func New(cfg Config, src Source, sink metrics.MetricsSink, log logger.Logger) *Pipeline {
	if sink == nil {
		sink = metrics.NopSink{}
	}
	return &Pipeline{cfg: cfg, src: src, sink: sink, log: logger.OrNop(log), newID: uuid.NewString}
}

// run carries the state shared by the stages of one execution.
type run struct {
	id      string
	started time.Time
	events  []model.StatusEvent
	zm      *ZoneMap
	sum     metrics.RunSummary
}

// ZoneMap is the result of zone inference.
type ZoneMap struct {
	Bays      []model.Bay
	Centroids []zones.Centroid
	Feed      int
	Backfill  zones.BackfillReport
	Cluster   zones.ClusterReport
	// Coverage is the share of zoned bays after backfill.
	Coverage float64
}

// Zones runs zone inference only. The returned bundle has no model and no
// forecast.
func (p *Pipeline) Zones(ctx context.Context) (*artifact.Bundle, error) {
	r := p.begin()
	if err := p.zones(ctx, r, p.cfg.ZoneFromEvents); err != nil {
		return nil, err
	}
	return p.finish(r), nil
}

// Run executes every stage. now anchors the forecast horizon.
func (p *Pipeline) Run(ctx context.Context, now time.Time) (*artifact.Bundle, error) {
	r := p.begin()
	if err := p.zones(ctx, r, true); err != nil {
		return nil, err
	}

	start := time.Now()
	m, err := availability.Build(r.events, p.cfg.Model, p.log)
	if err != nil {
		return nil, err
	}
	p.record(r, StageModel, start, m.Bays.Len()+m.Zones.Len(), model.DropReport{})
	r.sum.BayRecords, r.sum.ZoneRecords = m.Bays.Len(), m.Zones.Len()

	if err := ctx.Err(); err != nil {
		return nil, err
	}
	start = time.Now()
	loc, err := p.cfg.Model.Location()
	if err != nil {
		return nil, err
	}
	zoneOf := make(map[model.BayID]model.ZoneID, len(r.zm.Bays))
	for _, b := range r.zm.Bays {
		if b.Zoned() {
			zoneOf[b.ID] = b.Zone
		}
	}
	res, err := forecast.NewExporter(p.cfg.Forecast, loc, m, zoneOf, p.log).Export(ctx, now)
	if err != nil {
		return nil, fmt.Errorf("forecast: %w", err)
	}
	p.record(r, StageForecast, start, len(res.Series), model.DropReport{})
	r.sum.ForecastBays, r.sum.NullPoints = len(res.Series), res.NullPoints

	b := p.finish(r)
	b.BayModel = m.Bays.Rows()
	b.ZoneModel = m.Zones.Rows()
	b.Forecast = res
	return b, nil
}

func (p *Pipeline) begin() *run {
	r := &run{id: p.newID(), started: time.Now()}
	r.sum.RunID = r.id
	p.log.Infof("run %s started", r.id)
	return r
}

func (p *Pipeline) zones(ctx context.Context, r *run, needEvents bool) error {
	start := time.Now()
	bays, drops, err := p.src.Bays(ctx)
	if err != nil {
		return fmt.Errorf("ingest bays: %w", err)
	}
	if len(bays) == 0 {
		return model.NewDataError("ingest", "bay input has no valid rows (%s)", drops)
	}
	p.record(r, StageBays, start, len(bays), drops)

	if needEvents {
		start = time.Now()
		events, drops, err := p.src.Events(ctx)
		if err != nil {
			return fmt.Errorf("ingest events: %w", err)
		}
		r.events = events
		p.record(r, StageEvents, start, len(events), drops)
	}

	zm, err := p.inferZones(ctx, r, bays)
	if err != nil {
		return err
	}
	r.zm = zm
	return nil
}

func (p *Pipeline) inferZones(ctx context.Context, r *run, bays []model.Bay) (*ZoneMap, error) {
	zm := &ZoneMap{}
	if p.cfg.ZoneFromEvents {
		start := time.Now()
		bays, zm.Feed = zones.AttachFeedZones(bays, r.events)
		p.record(r, StageFeedZones, start, zm.Feed, model.DropReport{})
	}
	p.log.Infof("zone coverage before backfill: %.1f%%", 100*zones.Coverage(bays))

	if err := ctx.Err(); err != nil {
		return nil, err
	}
	start := time.Now()
	bays, rep, err := zones.Backfill(bays, p.cfg.Zones, p.log)
	if err != nil {
		return nil, err
	}
	zm.Backfill = rep
	zm.Coverage = zones.Coverage(bays)
	p.record(r, StageBackfill, start, rep.Assigned, model.DropReport{})
	p.log.Infof("zone coverage after backfill: %.1f%%", 100*zm.Coverage)
	if len(rep.Distances) > 0 {
		d := append([]float64(nil), rep.Distances...)
		sort.Float64s(d)
		r.sum.BackfillP90M = stat.Quantile(0.9, stat.Empirical, d, nil)
		p.log.Infof("backfill distance p50=%.1fm p90=%.1fm max=%.1fm",
			stat.Quantile(0.5, stat.Empirical, d, nil), r.sum.BackfillP90M, d[len(d)-1])
	}

	if err := ctx.Err(); err != nil {
		return nil, err
	}
	start = time.Now()
	bays, crep, err := zones.Cluster(bays, p.cfg.Zones, p.log)
	if err != nil {
		return nil, err
	}
	zm.Cluster = crep
	p.record(r, StageCluster, start, crep.Zones(), model.DropReport{})

	start = time.Now()
	zm.Centroids = zones.Centroids(bays)
	zm.Bays = bays
	p.record(r, StageCentroids, start, len(zm.Centroids), model.DropReport{})
	return zm, nil
}

func (p *Pipeline) finish(r *run) *artifact.Bundle {
	zm := r.zm
	r.sum.Bays = len(zm.Bays)
	r.sum.Zones = len(zm.Centroids)
	r.sum.SyntheticZones = zm.Cluster.Zones()
	r.sum.Coverage = zm.Coverage
	for _, b := range zm.Bays {
		switch b.Source {
		case model.SourceOfficial:
			r.sum.Official++
		case model.SourceFeed:
			r.sum.Feed++
		case model.SourceBackfill:
			r.sum.Backfilled++
		case model.SourceSynthetic:
			r.sum.Synthetic++
		}
	}
	now := time.Now()
	r.sum.Duration = now.Sub(r.started)
	r.sum.Time = now
	if rr, ok := p.sink.(metrics.RunRecorder); ok {
		if err := rr.RecordRun(r.sum); err != nil {
			p.log.Warnf("record run %s: %v", r.id, err)
		}
	}
	p.log.Infof("run %s done in %s: %d bays (%d official, %d feed, %d backfilled, %d synthetic) in %d zones",
		r.id, r.sum.Duration, r.sum.Bays, r.sum.Official, r.sum.Feed, r.sum.Backfilled, r.sum.Synthetic, r.sum.Zones)
	return &artifact.Bundle{
		RunID:       r.id,
		GeneratedAt: now,
		Bays:        zm.Bays,
		Centroids:   zm.Centroids,
	}
}

// record reports a finished stage. Sink failures are logged only.
func (p *Pipeline) record(r *run, stage string, start time.Time, rows int, drops model.DropReport) {
	if drops.Total > 0 {
		p.log.Warnf("%s: %s", stage, drops)
	}
	ev := metrics.StageEvent{
		RunID:    r.id,
		Stage:    stage,
		Duration: time.Since(start),
		Rows:     rows,
		Dropped:  drops.ByField,
		Time:     time.Now(),
	}
	p.log.Debugw("stage done", map[string]any{"run_id": r.id, "stage": stage, "rows": rows, "duration": ev.Duration.String()})
	if err := p.sink.RecordStage(ev); err != nil {
		p.log.Warnf("record stage %s: %v", stage, err)
	}
}
