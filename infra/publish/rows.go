package publish

import (
	"time"

	"github.com/kilianp07/parkcast/core/artifact"
)

// Relational views of a bundle shared by the SQL publishers.

type zoneMapRow struct {
	BayID  string
	Zone   *int64
	Lat    float64
	Lon    float64
	Source string
}

type pointRow struct {
	BayID string
	Time  time.Time
	Prob  *float64
	Level string
}

type runRow struct {
	RunID       string
	GeneratedAt time.Time
	Bays        int
	Zones       int
	StartTime   *time.Time
	NullPoints  int
}

func zoneMapRows(b *artifact.Bundle) []zoneMapRow {
	rows := make([]zoneMapRow, 0, len(b.Bays))
	for _, bay := range b.Bays {
		r := zoneMapRow{BayID: string(bay.ID), Lat: bay.Lat, Lon: bay.Lon, Source: bay.Source.String()}
		if bay.Zoned() {
			z := int64(bay.Zone)
			r.Zone = &z
		}
		rows = append(rows, r)
	}
	return rows
}

func pointRows(b *artifact.Bundle) []pointRow {
	if !b.HasForecast() {
		return nil
	}
	var rows []pointRow
	for _, s := range b.Forecast.Series {
		for _, p := range s.Points {
			rows = append(rows, pointRow{BayID: string(s.BayID), Time: p.Time.UTC(), Prob: p.Prob, Level: p.Level.String()})
		}
	}
	return rows
}

func runSummaryRow(b *artifact.Bundle) runRow {
	r := runRow{RunID: b.RunID, GeneratedAt: b.GeneratedAt.UTC(), Bays: len(b.Bays), Zones: len(b.Centroids)}
	if b.HasForecast() {
		st := b.Forecast.StartTime.UTC()
		r.StartTime = &st
		r.NullPoints = b.Forecast.NullPoints
	}
	return r
}
