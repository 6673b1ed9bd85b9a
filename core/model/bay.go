package model

import (
	"strconv"
	"strings"
)

// BayID identifies a physical parking bay (the kerbside id of the sensor feed).
type BayID string

// ZoneID identifies an official or synthetic parking zone.
type ZoneID int64

// ZoneSource records how a bay obtained its zone.
type ZoneSource int

const (
	// SourceNone marks a bay without a zone.
	SourceNone ZoneSource = iota
	// SourceOfficial is a zone present in the bay reference dataset.
	SourceOfficial
	// SourceFeed is a zone taken from the sensor feed for that bay.
	SourceFeed
	// SourceBackfill is a zone voted by nearby known bays.
	SourceBackfill
	// SourceSynthetic is a zone minted by clustering.
	SourceSynthetic
)

func (s ZoneSource) String() string {
	switch s {
	case SourceOfficial:
		return "official"
	case SourceFeed:
		return "feed"
	case SourceBackfill:
		return "backfill"
	case SourceSynthetic:
		return "synthetic"
	default:
		return "none"
	}
}

// Bay is a parking bay with its coordinates in degrees and its zone, if any.
type Bay struct {
	ID     BayID
	Lat    float64
	Lon    float64
	Zone   ZoneID
	Source ZoneSource
	Road   string
}

// Zoned reports whether the bay has a zone assigned.
func (b Bay) Zoned() bool { return b.Source != SourceNone }

// WithZone returns a copy of the bay assigned to zone z.
func (b Bay) WithZone(z ZoneID, src ZoneSource) Bay {
	b.Zone = z
	b.Source = src
	return b
}

// ParseZoneID parses a zone code. Values such as "7305.0" exported by
// spreadsheets are accepted when they carry no fractional part.
func ParseZoneID(s string) (ZoneID, error) {
	s = strings.TrimSpace(s)
	if v, err := strconv.ParseInt(s, 10, 64); err == nil {
		return ZoneID(v), nil
	}
	f, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return 0, err
	}
	if f != float64(int64(f)) {
		return 0, strconv.ErrSyntax
	}
	return ZoneID(int64(f)), nil
}

// LessBayID orders bay ids numerically when both are integers and
// lexically otherwise; numeric ids sort before non-numeric ones.
func LessBayID(a, b BayID) bool {
	ai, aerr := strconv.ParseInt(string(a), 10, 64)
	bi, berr := strconv.ParseInt(string(b), 10, 64)
	switch {
	case aerr == nil && berr == nil:
		if ai != bi {
			return ai < bi
		}
		return a < b
	case aerr == nil:
		return true
	case berr == nil:
		return false
	default:
		return a < b
	}
}
