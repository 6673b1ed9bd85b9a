package schema

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/kilianp07/parkcast/core/model"
)

// Canonical column names.
const (
	BayID     = "bay_id"
	Zone      = "zone"
	Lat       = "lat"
	Lon       = "lon"
	Road      = "road"
	Status    = "status"
	Timestamp = "timestamp"
)

// Required columns per input. Zone and road are optional.
var (
	BayColumns   = []string{BayID, Lat, Lon}
	EventColumns = []string{BayID, Status, Timestamp}
)

// Mapping lists, per canonical column, the header spellings accepted for
// each input file.
type Mapping struct {
	Bays   map[string][]string `json:"bays" yaml:"bays"`
	Events map[string][]string `json:"events" yaml:"events"`
}

// Default returns the aliases of the City of Melbourne open data exports.
func Default() Mapping {
	return Mapping{
		Bays: map[string][]string{
			BayID: {"KerbsideID", "kerbside_id", "bay_id", "BayID", "marker_id"},
			Zone:  {"Zone_Number", "zone_number", "zoneNumber", "zone"},
			Lat:   {"Latitude", "lat"},
			Lon:   {"Longitude", "lon", "lng"},
			Road:  {"RoadSegmentDescription", "road_segment_description", "road"},
		},
		Events: map[string][]string{
			BayID:     {"KerbsideID", "kerbside_id", "bay_id"},
			Status:    {"Status_Description", "status_description", "status"},
			Timestamp: {"Status_Timestamp", "status_timestamp", "timestamp", "Lastupdated"},
			Zone:      {"Zone_Number", "zone_number", "zoneNumber", "zone"},
		},
	}
}

// Merge returns m with the alias lists of o replacing m's for every column
// o names.
func (m Mapping) Merge(o Mapping) Mapping {
	return Mapping{Bays: mergeAliases(m.Bays, o.Bays), Events: mergeAliases(m.Events, o.Events)}
}

func mergeAliases(base, over map[string][]string) map[string][]string {
	out := make(map[string][]string, len(base)+len(over))
	for k, v := range base {
		out[k] = v
	}
	for k, v := range over {
		out[k] = v
	}
	return out
}

// LoadMapping reads alias overrides from a JSON or YAML file and merges
// them onto Default. An empty path returns Default.
func LoadMapping(path string) (Mapping, error) {
	if path == "" {
		return Default(), nil
	}
	f, err := os.Open(path)
	if err != nil {
		return Mapping{}, err
	}
	defer f.Close()
	ext := strings.TrimPrefix(strings.ToLower(filepath.Ext(path)), ".")
	over, err := DecodeMapping(f, ext)
	if err != nil {
		return Mapping{}, fmt.Errorf("schema %s: %w", path, err)
	}
	return Default().Merge(over), nil
}

// DecodeMapping decodes a Mapping from r in the given format.
func DecodeMapping(r io.Reader, format string) (Mapping, error) {
	var m Mapping
	switch strings.ToLower(format) {
	case "yaml", "yml":
		if err := yaml.NewDecoder(r).Decode(&m); err != nil {
			return m, err
		}
	case "json":
		if err := json.NewDecoder(r).Decode(&m); err != nil {
			return m, err
		}
	default:
		return m, fmt.Errorf("unsupported format: %s", format)
	}
	return m, nil
}

// Columns maps canonical names to field positions.
type Columns map[string]int

// Get returns the field of rec for column name, or "" when the column is
// absent or the record too short.
func (c Columns) Get(rec []string, name string) string {
	i, ok := c[name]
	if !ok || i >= len(rec) {
		return ""
	}
	return strings.TrimSpace(rec[i])
}

// Has reports whether the header carried column name.
func (c Columns) Has(name string) bool {
	_, ok := c[name]
	return ok
}

// Resolve matches header against aliases, case-insensitively. Every name in
// required must resolve; otherwise a DataError for stage lists the missing
// columns in required order.
func Resolve(stage string, header []string, aliases map[string][]string, required []string) (Columns, error) {
	pos := make(map[string]int, len(header))
	for i, h := range header {
		h = strings.ToLower(strings.TrimSpace(strings.TrimPrefix(h, "\ufeff")))
		if _, dup := pos[h]; !dup {
			pos[h] = i
		}
	}
	cols := Columns{}
	for name, list := range aliases {
		for _, a := range list {
			if i, ok := pos[strings.ToLower(a)]; ok {
				cols[name] = i
				break
			}
		}
	}
	var missing []string
	for _, r := range required {
		if !cols.Has(r) {
			missing = append(missing, r)
		}
	}
	if len(missing) > 0 {
		return nil, &model.DataError{Stage: stage, Reason: "unrecognized header", Missing: missing}
	}
	return cols, nil
}
