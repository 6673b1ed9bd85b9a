package zones

import (
	"fmt"
	"sort"

	"github.com/kilianp07/parkcast/core/geo"
	"github.com/kilianp07/parkcast/core/logger"
	"github.com/kilianp07/parkcast/core/model"
)

// BackfillReport summarizes a backfill pass.
type BackfillReport struct {
	Known    int
	Unknown  int
	Assigned int
	Rejected int
	// Distances holds the nearest known-bay distance of every assigned bay,
	// in the order the bays were assigned.
	Distances []float64
}

// Backfill assigns zones to unzoned bays by majority vote of those of their
// KNeighbors nearest zoned bays that lie within MaxRadiusM. A bay with no
// such neighbour stays unzoned. It fails with a DataError when no bay has a
// zone and with a ParseError when an unzoned bay has an invalid coordinate.
func Backfill(bays []model.Bay, cfg Config, log logger.Logger) ([]model.Bay, BackfillReport, error) {
	log = logger.OrNop(log)
	var rep BackfillReport
	var known, unknown []int
	for i, b := range bays {
		if b.Zoned() {
			known = append(known, i)
		} else {
			unknown = append(unknown, i)
		}
	}
	rep.Known, rep.Unknown = len(known), len(unknown)
	if len(known) == 0 {
		return nil, rep, model.NewDataError("backfill", "no bay with a known zone among %d bays", len(bays))
	}

	out := make([]model.Bay, len(bays))
	copy(out, bays)
	if len(unknown) == 0 {
		return out, rep, nil
	}

	pts := make([]geo.Point, len(known))
	for i, bi := range known {
		pts[i] = geo.Point{Lat: bays[bi].Lat, Lon: bays[bi].Lon}
	}
	idx, err := geo.NewIndex(pts)
	if err != nil {
		return nil, rep, fmt.Errorf("backfill: %w", err)
	}
	k := cfg.KNeighbors
	if k > len(known) {
		log.Warnf("backfill: only %d known bays, voting with k=%d instead of %d", len(known), len(known), k)
		k = len(known)
	}

	votes := make([]model.ZoneID, 0, k)
	for _, bi := range unknown {
		b := bays[bi]
		q := geo.Point{Lat: b.Lat, Lon: b.Lon}
		if !q.Valid() {
			return nil, rep, fmt.Errorf("backfill bay %s: %w", b.ID, &model.ParseError{
				Row:   bi,
				Field: "lat/lon",
				Value: fmt.Sprintf("%v,%v", b.Lat, b.Lon),
				Err:   geo.ErrInvalidPoint,
			})
		}
		nn, err := idx.Nearest(q, k)
		if err != nil {
			return nil, rep, fmt.Errorf("backfill bay %s: %w", b.ID, err)
		}
		// Neighbours beyond the radius never vote.
		votes = votes[:0]
		for _, n := range nn {
			if n.Distance > cfg.MaxRadiusM {
				break
			}
			votes = append(votes, bays[known[n.Index]].Zone)
		}
		if len(votes) == 0 {
			rep.Rejected++
			continue
		}
		out[bi] = b.WithZone(majorityZone(votes), model.SourceBackfill)
		rep.Assigned++
		rep.Distances = append(rep.Distances, nn[0].Distance)
	}
	log.Infof("backfill: %d known, %d unknown, %d assigned within %.0f m, %d left for clustering",
		rep.Known, rep.Unknown, rep.Assigned, cfg.MaxRadiusM, rep.Rejected)
	return out, rep, nil
}

// majorityZone returns the most frequent zone; ties go to the smallest value.
func majorityZone(zs []model.ZoneID) model.ZoneID {
	counts := make(map[model.ZoneID]int, len(zs))
	for _, z := range zs {
		counts[z]++
	}
	return mostFrequent(counts)
}

func mostFrequent(counts map[model.ZoneID]int) model.ZoneID {
	distinct := make([]model.ZoneID, 0, len(counts))
	for z := range counts {
		distinct = append(distinct, z)
	}
	sort.Slice(distinct, func(i, j int) bool { return distinct[i] < distinct[j] })
	best := distinct[0]
	for _, z := range distinct[1:] {
		if counts[z] > counts[best] {
			best = z
		}
	}
	return best
}
