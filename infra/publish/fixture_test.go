package publish

import (
	"time"

	"github.com/kilianp07/parkcast/core/artifact"
	"github.com/kilianp07/parkcast/core/availability"
	"github.com/kilianp07/parkcast/core/forecast"
	"github.com/kilianp07/parkcast/core/model"
	"github.com/kilianp07/parkcast/core/zones"
)

func prob(v float64) *float64 { return &v }

// testBundle returns a small run with two bays, one of them unzoned and
// forecast without data.
func testBundle(runID string) *artifact.Bundle {
	gen := time.Date(2024, 3, 4, 8, 30, 0, 0, time.UTC)
	start := time.Date(2024, 3, 4, 9, 0, 0, 0, time.UTC)
	series := []forecast.Series{
		{
			BayID: "101", GeneratedAt: gen, StartTime: start, StepHours: 1,
			Points: []forecast.Point{
				{Time: start, Prob: prob(0.25), Level: forecast.LevelBay},
				{Time: start.Add(time.Hour), Prob: prob(0.5), Level: forecast.LevelZoneSlot},
			},
		},
		{
			BayID: "a/7", GeneratedAt: gen, StartTime: start, StepHours: 1,
			Points: []forecast.Point{
				{Time: start, Level: forecast.LevelNone},
				{Time: start.Add(time.Hour), Level: forecast.LevelNone},
			},
		},
	}
	return &artifact.Bundle{
		RunID:       runID,
		GeneratedAt: gen,
		Bays: []model.Bay{
			{ID: "101", Lat: -37.81, Lon: 144.96, Zone: 7305, Source: model.SourceOfficial},
			{ID: "a/7", Lat: -37.82, Lon: 144.97},
		},
		Centroids: []zones.Centroid{{Zone: 7305, Lat: -37.81, Lon: 144.96, Bays: 1}},
		BayModel: []availability.Row{
			{Entity: "101", Weekday: 0, Slot: 18, Count: 4, Rate: 0.25},
		},
		ZoneModel: []availability.Row{
			{Entity: "7305", Weekday: 0, Slot: 18, Count: 4, Rate: 0.25},
			{Entity: "7305", Weekday: 0, Slot: 19, Count: 2, Rate: 0.5},
		},
		Forecast: &forecast.Result{
			GeneratedAt: gen,
			StartTime:   start,
			StepHours:   1,
			Series:      series,
			NullPoints:  2,
			Levels:      map[forecast.Level]int{forecast.LevelBay: 1, forecast.LevelZoneSlot: 1, forecast.LevelNone: 2},
		},
	}
}

// zoneOnly strips the model and forecast from b.
func zoneOnly(b *artifact.Bundle) *artifact.Bundle {
	c := *b
	c.BayModel, c.ZoneModel, c.Forecast = nil, nil, nil
	return &c
}
