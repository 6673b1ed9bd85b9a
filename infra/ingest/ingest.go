// Package ingest reads bay and sensor event CSV files into domain values.
// Malformed rows are dropped and tallied; header problems are fatal.
package ingest

import (
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/kilianp07/parkcast/core/geo"
	"github.com/kilianp07/parkcast/core/model"
	"github.com/kilianp07/parkcast/core/schema"
)

var errDuplicate = errors.New("duplicate bay id")

// timestampLayouts are tried in order. Layouts without an offset are read
// as UTC.
var timestampLayouts = []string{
	time.RFC3339Nano,
	"2006-01-02T15:04:05Z0700",
	"2006-01-02 15:04:05Z07:00",
	"2006-01-02 15:04:05Z0700",
	"2006-01-02T15:04:05",
	"2006-01-02 15:04:05",
}

// ParseTimestamp parses the timestamp formats found in sensor exports.
func ParseTimestamp(s string) (time.Time, error) {
	s = strings.TrimSpace(s)
	var firstErr error
	for _, l := range timestampLayouts {
		t, err := time.Parse(l, s)
		if err == nil {
			return t, nil
		}
		if firstErr == nil {
			firstErr = err
		}
	}
	return time.Time{}, firstErr
}

type rowReader struct {
	cr   *csv.Reader
	cols schema.Columns
	row  int
}

func newRowReader(r io.Reader, stage string, aliases map[string][]string, required []string) (*rowReader, error) {
	cr := csv.NewReader(r)
	cr.FieldsPerRecord = -1
	cr.ReuseRecord = true
	header, err := cr.Read()
	if errors.Is(err, io.EOF) {
		return nil, model.NewDataError(stage, "input has no header")
	}
	if err != nil {
		return nil, fmt.Errorf("%s: read header: %w", stage, err)
	}
	cols, err := schema.Resolve(stage, header, aliases, required)
	if err != nil {
		return nil, err
	}
	return &rowReader{cr: cr, cols: cols, row: 1}, nil
}

// next returns the next record. A malformed CSV line is reported as a
// ParseError so the caller can drop it and continue.
func (r *rowReader) next() ([]string, error) {
	r.row++
	rec, err := r.cr.Read()
	var pe *csv.ParseError
	if errors.As(err, &pe) {
		return nil, &model.ParseError{Row: r.row, Field: "row", Err: err}
	}
	return rec, err
}

func (r *rowReader) field(rec []string, name string) string { return r.cols.Get(rec, name) }

func (r *rowReader) fail(field, value string, err error) error {
	return &model.ParseError{Row: r.row, Field: field, Value: value, Err: err}
}

// ReadBays reads the bay reference file. Rows with an empty id, bad
// coordinates or an unparsable zone are dropped, as are repeated ids after
// the first.
func ReadBays(r io.Reader, m schema.Mapping) ([]model.Bay, model.DropReport, error) {
	var drops model.DropReport
	rr, err := newRowReader(r, "bays", m.Bays, schema.BayColumns)
	if err != nil {
		return nil, drops, err
	}
	seen := map[model.BayID]bool{}
	var out []model.Bay
	for {
		rec, err := rr.next()
		if errors.Is(err, io.EOF) {
			break
		}
		var pe *model.ParseError
		if errors.As(err, &pe) {
			drops.Add(err)
			continue
		}
		if err != nil {
			return nil, drops, fmt.Errorf("bays: row %d: %w", rr.row, err)
		}
		b, err := rr.bay(rec)
		if err == nil && seen[b.ID] {
			err = rr.fail(schema.BayID, string(b.ID), errDuplicate)
		}
		if err != nil {
			drops.Add(err)
			continue
		}
		seen[b.ID] = true
		out = append(out, b)
	}
	return out, drops, nil
}

func (r *rowReader) bay(rec []string) (model.Bay, error) {
	id := r.field(rec, schema.BayID)
	if id == "" {
		return model.Bay{}, r.fail(schema.BayID, id, errors.New("empty"))
	}
	var b model.Bay
	b.ID = model.BayID(normalizeID(id))
	lat, err := strconv.ParseFloat(r.field(rec, schema.Lat), 64)
	if err != nil {
		return b, r.fail(schema.Lat, r.field(rec, schema.Lat), err)
	}
	lon, err := strconv.ParseFloat(r.field(rec, schema.Lon), 64)
	if err != nil {
		return b, r.fail(schema.Lon, r.field(rec, schema.Lon), err)
	}
	if !(geo.Point{Lat: lat, Lon: lon}).Valid() {
		return b, r.fail(schema.Lat, fmt.Sprintf("%g,%g", lat, lon), errors.New("coordinates out of range"))
	}
	b.Lat, b.Lon = lat, lon
	b.Road = r.field(rec, schema.Road)
	if zs := r.field(rec, schema.Zone); zs != "" {
		z, err := model.ParseZoneID(zs)
		if err != nil {
			return b, r.fail(schema.Zone, zs, err)
		}
		b = b.WithZone(z, model.SourceOfficial)
	}
	return b, nil
}

// ReadEvents reads the historical sensor log. Rows with an empty bay id, an
// unparsable timestamp or zone are dropped; unknown statuses are kept.
func ReadEvents(r io.Reader, m schema.Mapping) ([]model.StatusEvent, model.DropReport, error) {
	var drops model.DropReport
	rr, err := newRowReader(r, "events", m.Events, schema.EventColumns)
	if err != nil {
		return nil, drops, err
	}
	var out []model.StatusEvent
	for {
		rec, err := rr.next()
		if errors.Is(err, io.EOF) {
			break
		}
		var pe *model.ParseError
		if errors.As(err, &pe) {
			drops.Add(err)
			continue
		}
		if err != nil {
			return nil, drops, fmt.Errorf("events: row %d: %w", rr.row, err)
		}
		e, err := rr.event(rec)
		if err != nil {
			drops.Add(err)
			continue
		}
		out = append(out, e)
	}
	return out, drops, nil
}

func (r *rowReader) event(rec []string) (model.StatusEvent, error) {
	var e model.StatusEvent
	id := r.field(rec, schema.BayID)
	if id == "" {
		return e, r.fail(schema.BayID, id, errors.New("empty"))
	}
	e.BayID = model.BayID(normalizeID(id))
	ts := r.field(rec, schema.Timestamp)
	at, err := ParseTimestamp(ts)
	if err != nil {
		return e, r.fail(schema.Timestamp, ts, err)
	}
	e.Time = at
	e.Status = model.ParseStatus(r.field(rec, schema.Status))
	if zs := r.field(rec, schema.Zone); zs != "" {
		z, err := model.ParseZoneID(zs)
		if err != nil {
			return e, r.fail(schema.Zone, zs, err)
		}
		e.Zone, e.HasZone = z, true
	}
	return e, nil
}

// normalizeID strips the ".0" suffix spreadsheet exports add to integer ids.
func normalizeID(id string) string {
	if s, ok := strings.CutSuffix(id, ".0"); ok {
		if _, err := strconv.ParseInt(s, 10, 64); err == nil {
			return s
		}
	}
	return id
}

// LoadBays reads bays from the file at path.
func LoadBays(path string, m schema.Mapping) ([]model.Bay, model.DropReport, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, model.DropReport{}, err
	}
	defer f.Close()
	return ReadBays(f, m)
}

// LoadEvents reads status events from the file at path.
func LoadEvents(path string, m schema.Mapping) ([]model.StatusEvent, model.DropReport, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, model.DropReport{}, err
	}
	defer f.Close()
	return ReadEvents(f, m)
}

// FileSource reads bays and events from CSV files.
type FileSource struct {
	BaysPath   string
	EventsPath string
	Mapping    schema.Mapping
}

// Bays loads the bay file.
func (s FileSource) Bays(ctx context.Context) ([]model.Bay, model.DropReport, error) {
	if err := ctx.Err(); err != nil {
		return nil, model.DropReport{}, err
	}
	return LoadBays(s.BaysPath, s.Mapping)
}

// Events loads the event file.
func (s FileSource) Events(ctx context.Context) ([]model.StatusEvent, model.DropReport, error) {
	if err := ctx.Err(); err != nil {
		return nil, model.DropReport{}, err
	}
	return LoadEvents(s.EventsPath, s.Mapping)
}
