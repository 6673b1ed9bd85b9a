// Package export encodes run artifacts as CSV and JSON documents.
package export

import (
	"encoding/csv"
	"encoding/json"
	"io"
	"strconv"

	"github.com/kilianp07/parkcast/core/availability"
	"github.com/kilianp07/parkcast/core/forecast"
	"github.com/kilianp07/parkcast/core/model"
	"github.com/kilianp07/parkcast/core/zones"
)

// WriteZoneMapCSV writes the final bay to zone map. Unzoned bays have an
// empty zone.
func WriteZoneMapCSV(w io.Writer, bays []model.Bay) error {
	cw := csv.NewWriter(w)
	if err := cw.Write([]string{"bay_id", "zone", "lat", "lon", "source"}); err != nil {
		return err
	}
	for _, b := range bays {
		zone := ""
		if b.Zoned() {
			zone = strconv.FormatInt(int64(b.Zone), 10)
		}
		rec := []string{
			string(b.ID),
			zone,
			strconv.FormatFloat(b.Lat, 'f', -1, 64),
			strconv.FormatFloat(b.Lon, 'f', -1, 64),
			b.Source.String(),
		}
		if err := cw.Write(rec); err != nil {
			return err
		}
	}
	cw.Flush()
	return cw.Error()
}

// WriteModelCSV writes availability rows; entity names the first column.
func WriteModelCSV(w io.Writer, entity string, rows []availability.Row) error {
	cw := csv.NewWriter(w)
	if err := cw.Write([]string{entity, "weekday", "slot", "total_obs", "availability_rate"}); err != nil {
		return err
	}
	for _, r := range rows {
		rec := []string{
			r.Entity,
			strconv.Itoa(r.Weekday),
			strconv.Itoa(r.Slot),
			strconv.Itoa(r.Count),
			strconv.FormatFloat(r.Rate, 'f', -1, 64),
		}
		if err := cw.Write(rec); err != nil {
			return err
		}
	}
	cw.Flush()
	return cw.Error()
}

// WriteCentroidsJSON writes zone centroids as a JSON array.
func WriteCentroidsJSON(w io.Writer, cs []zones.Centroid) error {
	if cs == nil {
		cs = []zones.Centroid{}
	}
	return encode(w, cs)
}

// WriteSeriesJSON writes the forecast document of one bay.
func WriteSeriesJSON(w io.Writer, s forecast.Series) error {
	return encode(w, s)
}

// WriteCombinedJSON writes the combined forecast document.
func WriteCombinedJSON(w io.Writer, c forecast.Combined) error {
	return encode(w, c)
}

func encode(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
