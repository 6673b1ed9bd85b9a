package zones

import (
	"fmt"

	"github.com/kilianp07/parkcast/core/geo"
	"github.com/kilianp07/parkcast/core/logger"
	"github.com/kilianp07/parkcast/core/model"
)

const (
	unvisited = -2
	noise     = -1
)

// ClusterReport summarizes a clustering pass.
type ClusterReport struct {
	Unzoned  int
	Clusters int
	Noise    int
}

// Zones returns the number of synthetic zones minted.
func (r ClusterReport) Zones() int { return r.Clusters + r.Noise }

// Cluster gives every unzoned bay a synthetic zone. Dense groups found by
// DBSCAN share one zone; each noise bay gets a zone of its own. Cluster ids
// start at SyntheticStart in label order and noise ids follow in input
// order. An official zone inside the synthetic range is a DataError.
func Cluster(bays []model.Bay, cfg Config, log logger.Logger) ([]model.Bay, ClusterReport, error) {
	log = logger.OrNop(log)
	var rep ClusterReport
	var unzoned []int
	for i, b := range bays {
		if !b.Zoned() {
			unzoned = append(unzoned, i)
			continue
		}
		if cfg.IsSynthetic(b.Zone) {
			return nil, rep, model.NewDataError("cluster",
				"bay %s has zone %d inside the synthetic range starting at %d", b.ID, b.Zone, cfg.SyntheticStart)
		}
	}
	rep.Unzoned = len(unzoned)
	out := make([]model.Bay, len(bays))
	copy(out, bays)
	if len(unzoned) == 0 {
		return out, rep, nil
	}

	pts := make([]geo.Point, len(unzoned))
	for i, bi := range unzoned {
		pts[i] = geo.Point{Lat: bays[bi].Lat, Lon: bays[bi].Lon}
	}
	labels, clusters, err := dbscan(pts, cfg.EpsM, cfg.MinSamples)
	if err != nil {
		return nil, rep, fmt.Errorf("cluster: %w", err)
	}
	rep.Clusters = clusters

	next := cfg.SyntheticStart + model.ZoneID(clusters)
	for i, bi := range unzoned {
		var z model.ZoneID
		if labels[i] >= 0 {
			z = cfg.SyntheticStart + model.ZoneID(labels[i])
		} else {
			z = next
			next++
			rep.Noise++
		}
		out[bi] = bays[bi].WithZone(z, model.SourceSynthetic)
	}
	log.Infof("cluster: %d unzoned bays -> %d clusters and %d singleton zones (eps=%.0f m, min_samples=%d)",
		rep.Unzoned, rep.Clusters, rep.Noise, cfg.EpsM, cfg.MinSamples)
	return out, rep, nil
}

// dbscan labels pts with cluster ids in discovery order; noise is -1. A
// point is a core point when at least minSamples points, itself included,
// lie within eps meters.
func dbscan(pts []geo.Point, eps float64, minSamples int) ([]int, int, error) {
	idx, err := geo.NewIndex(pts)
	if err != nil {
		return nil, 0, err
	}
	neighbors := make([][]int, len(pts))
	for i, p := range pts {
		nn, err := idx.Within(p, eps)
		if err != nil {
			return nil, 0, err
		}
		ids := make([]int, len(nn))
		for j, n := range nn {
			ids[j] = n.Index
		}
		neighbors[i] = ids
	}
	core := func(i int) bool { return len(neighbors[i]) >= minSamples }

	labels := make([]int, len(pts))
	for i := range labels {
		labels[i] = unvisited
	}
	cluster := 0
	for i := range pts {
		if labels[i] != unvisited {
			continue
		}
		if !core(i) {
			labels[i] = noise
			continue
		}
		labels[i] = cluster
		queue := append([]int(nil), neighbors[i]...)
		for len(queue) > 0 {
			q := queue[0]
			queue = queue[1:]
			if labels[q] == noise {
				labels[q] = cluster
				continue
			}
			if labels[q] != unvisited {
				continue
			}
			labels[q] = cluster
			if core(q) {
				queue = append(queue, neighbors[q]...)
			}
		}
		cluster++
	}
	return labels, cluster, nil
}
