package metrics

import (
	"errors"
	"io"
	"time"
)

// StageEvent reports the completion of one pipeline stage.
type StageEvent struct {
	RunID    string
	Stage    string
	Duration time.Duration
	// Rows is the number of records the stage produced.
	Rows int
	// Dropped counts input rows discarded by the stage, per field.
	Dropped map[string]int
	Time    time.Time
}

// MetricsSink records stage events for observability purposes.
type MetricsSink interface {
	RecordStage(ev StageEvent) error
}

// RunSummary describes a completed pipeline run.
type RunSummary struct {
	RunID          string
	Bays           int
	Official       int
	Feed           int
	Backfilled     int
	Synthetic      int
	SyntheticZones int
	Zones          int
	BayRecords     int
	ZoneRecords    int
	ForecastBays   int
	NullPoints     int
	// Coverage is the share of bays holding a zone after backfill, before
	// clustering.
	Coverage float64
	// BackfillP90M is the 90th percentile nearest-neighbour distance of
	// backfilled bays, in meters.
	BackfillP90M float64
	Duration     time.Duration
	Time         time.Time
}

// RunRecorder is implemented by sinks able to record run summaries.
type RunRecorder interface {
	RecordRun(s RunSummary) error
}

// NopSink implements every recorder with no-op methods.
type NopSink struct{}

func (NopSink) RecordStage(StageEvent) error { return nil }
func (NopSink) RecordRun(RunSummary) error   { return nil }

// MultiSink fans events out to multiple sinks.
type MultiSink struct {
	Sinks []MetricsSink
}

// NewMultiSink creates a MultiSink with the provided sinks.
func NewMultiSink(sinks ...MetricsSink) *MultiSink {
	return &MultiSink{Sinks: sinks}
}

// RecordStage forwards the event to all sinks, returning the first error encountered.
func (m *MultiSink) RecordStage(ev StageEvent) error {
	for _, s := range m.Sinks {
		if err := s.RecordStage(ev); err != nil {
			return err
		}
	}
	return nil
}

// RecordRun forwards the summary to sinks that support it.
func (m *MultiSink) RecordRun(sum RunSummary) error {
	for _, s := range m.Sinks {
		if rr, ok := s.(RunRecorder); ok {
			if err := rr.RecordRun(sum); err != nil {
				return err
			}
		}
	}
	return nil
}

// Close closes every sink holding resources.
func (m *MultiSink) Close() error {
	var errs []error
	for _, s := range m.Sinks {
		if err := Close(s); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// Close releases s when it implements io.Closer.
func Close(s MetricsSink) error {
	if c, ok := s.(io.Closer); ok {
		return c.Close()
	}
	return nil
}
