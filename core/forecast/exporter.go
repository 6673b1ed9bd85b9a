package forecast

import (
	"context"
	"math"
	"slices"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/kilianp07/parkcast/core/availability"
	"github.com/kilianp07/parkcast/core/logger"
	"github.com/kilianp07/parkcast/core/model"
)

// Result is the output of one export.
type Result struct {
	GeneratedAt time.Time
	StartTime   time.Time
	StepHours   float64
	// Series is ordered by bay id, numeric ids numerically.
	Series     []Series
	NullPoints int
	Levels     map[Level]int
}

// Combined returns the combined document of r.
func (r *Result) Combined() Combined {
	c := Combined{GeneratedAt: r.GeneratedAt, StepHours: r.StepHours, Bays: make(map[model.BayID][]Point, len(r.Series))}
	for _, s := range r.Series {
		c.Bays[s.BayID] = s.Points
	}
	return c
}

// Exporter resolves forecasts from immutable availability tables.
type Exporter struct {
	cfg    Config
	loc    *time.Location
	bays   *availability.Table[model.BayID]
	zones  *availability.Table[model.ZoneID]
	zoneOf map[model.BayID]model.ZoneID
	scale  float64
	log    logger.Logger
}

// NewExporter returns an exporter over m. zoneOf maps bays to their final
// zone; bays missing from it skip the zone levels of the chain.
func NewExporter(cfg Config, loc *time.Location, m *availability.Model, zoneOf map[model.BayID]model.ZoneID, log logger.Logger) *Exporter {
	return &Exporter{
		cfg:    cfg,
		loc:    loc,
		bays:   m.Bays,
		zones:  m.Zones,
		zoneOf: zoneOf,
		scale:  math.Pow(10, float64(cfg.Decimals())),
		log:    logger.OrNop(log),
	}
}

// Horizon returns the forecast instants for now. The first instant is the
// next full hour in local time, or now itself when it is exactly on the
// hour.
func (e *Exporter) Horizon(now time.Time) []time.Time {
	l := now.In(e.loc)
	start := time.Date(l.Year(), l.Month(), l.Day(), l.Hour(), 0, 0, 0, e.loc)
	if !start.Equal(l) {
		start = start.Add(time.Hour)
	}
	out := make([]time.Time, e.cfg.Steps)
	for i := range out {
		out[i] = start.Add(time.Duration(i) * e.cfg.Step())
	}
	return out
}

// Resolve returns the probability of bay at instant at and the level that
// produced it. ok is false when every level missed.
func (e *Exporter) Resolve(bay model.BayID, at time.Time) (p float64, lvl Level, ok bool) {
	key := model.SlotOf(at.In(e.loc))
	if r, ok := e.bays.Exact(bay, key); ok {
		return e.round(r.Rate), LevelBay, true
	}
	if v, ok := e.bays.SlotMean(bay, key.Slot); ok {
		return e.round(v), LevelBaySlot, true
	}
	z, zoned := e.zoneOf[bay]
	if !zoned {
		return 0, LevelNone, false
	}
	if r, ok := e.zones.Exact(z, key); ok {
		return e.round(r.Rate), LevelZone, true
	}
	if v, ok := e.zones.SlotMean(z, key.Slot); ok {
		return e.round(v), LevelZoneSlot, true
	}
	return 0, LevelNone, false
}

func (e *Exporter) round(p float64) float64 {
	return math.Round(p*e.scale) / e.scale
}

// Export builds one series per bay of the per-bay table. Bays are spread
// over at most cfg.Workers goroutines; the result does not depend on the
// worker count.
func (e *Exporter) Export(ctx context.Context, now time.Time) (*Result, error) {
	horizon := e.Horizon(now)
	bays := e.bays.Entities()
	slices.SortFunc(bays, func(a, b model.BayID) int {
		switch {
		case model.LessBayID(a, b):
			return -1
		case model.LessBayID(b, a):
			return 1
		}
		return 0
	})
	generated := now.In(e.loc)
	res := &Result{
		GeneratedAt: generated,
		StartTime:   horizon[0],
		StepHours:   e.cfg.StepHours(),
		Series:      make([]Series, len(bays)),
		Levels:      map[Level]int{},
	}

	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(max(e.cfg.Workers, 1))
	for i, bay := range bays {
		g.Go(func() error {
			if err := ctx.Err(); err != nil {
				return err
			}
			res.Series[i] = e.series(bay, generated, horizon)
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	for _, s := range res.Series {
		for _, p := range s.Points {
			res.Levels[p.Level]++
			if p.Prob == nil {
				res.NullPoints++
			}
		}
	}
	e.log.Infof("forecast: %d bays x %d steps from %s, %d null points",
		len(bays), len(horizon), res.StartTime.Format(time.RFC3339), res.NullPoints)
	return res, nil
}

func (e *Exporter) series(bay model.BayID, generated time.Time, horizon []time.Time) Series {
	pts := make([]Point, len(horizon))
	for i, at := range horizon {
		pts[i] = Point{Time: at}
		if p, lvl, ok := e.Resolve(bay, at); ok {
			pts[i].Prob = &p
			pts[i].Level = lvl
		}
	}
	return Series{
		BayID:       bay,
		GeneratedAt: generated,
		StartTime:   horizon[0],
		StepHours:   e.cfg.StepHours(),
		Points:      pts,
	}
}
