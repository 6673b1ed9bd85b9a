package zones

import (
	"sort"

	"gonum.org/v1/gonum/stat"

	"github.com/kilianp07/parkcast/core/model"
)

// Centroid is the mean position of the bays of a zone. It is a flat mean,
// which is accurate enough for zones a few hundred meters wide.
type Centroid struct {
	Zone      model.ZoneID `json:"zone"`
	Lat       float64      `json:"lat"`
	Lon       float64      `json:"lon"`
	Bays      int          `json:"bays"`
	Synthetic bool         `json:"synthetic"`
}

// Centroids returns one centroid per zone, sorted by zone id. Unzoned bays
// are ignored.
func Centroids(bays []model.Bay) []Centroid {
	lats := map[model.ZoneID][]float64{}
	lons := map[model.ZoneID][]float64{}
	synth := map[model.ZoneID]bool{}
	for _, b := range bays {
		if !b.Zoned() {
			continue
		}
		lats[b.Zone] = append(lats[b.Zone], b.Lat)
		lons[b.Zone] = append(lons[b.Zone], b.Lon)
		if b.Source == model.SourceSynthetic {
			synth[b.Zone] = true
		}
	}
	out := make([]Centroid, 0, len(lats))
	for z, la := range lats {
		out = append(out, Centroid{
			Zone:      z,
			Lat:       stat.Mean(la, nil),
			Lon:       stat.Mean(lons[z], nil),
			Bays:      len(la),
			Synthetic: synth[z],
		})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Zone < out[j].Zone })
	return out
}

// Coverage returns the share of bays that have a zone.
func Coverage(bays []model.Bay) float64 {
	if len(bays) == 0 {
		return 0
	}
	n := 0
	for _, b := range bays {
		if b.Zoned() {
			n++
		}
	}
	return float64(n) / float64(len(bays))
}
