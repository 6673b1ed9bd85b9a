package geo

import (
	"errors"
	"fmt"
	"math"
	"sort"

	"gonum.org/v1/gonum/spatial/vptree"

	"github.com/kilianp07/parkcast/core/model"
)

// ErrInvalidPoint reports a coordinate that is not finite or lies outside
// WGS84 bounds.
var ErrInvalidPoint = errors.New("invalid coordinate")

// tieSlack widens the second pass of Nearest so that points at exactly the
// k-th distance are all considered before the index tie-break.
const tieSlack = 1e-9

// Neighbor is a query result: the position of the point in the slice the
// index was built from and its distance in meters.
type Neighbor struct {
	Index    int
	Distance float64
}

type site struct {
	idx    int
	lat    float64
	lon    float64
	cosLat float64
}

func newSite(idx int, p Point) site {
	la := rad(p.Lat)
	return site{idx: idx, lat: la, lon: rad(p.Lon), cosLat: math.Cos(la)}
}

// Distance implements vptree.Comparable in meters.
func (s site) Distance(c vptree.Comparable) float64 {
	o := c.(site)
	return centralAngle(s.lat, s.lon, s.cosLat, o.lat, o.lon, o.cosLat) * EarthRadiusM
}

// Index is an immutable spatial index over a fixed set of points.
type Index struct {
	tree *vptree.Tree
	n    int
}

// NewIndex builds an index over pts. Invalid coordinates are rejected.
func NewIndex(pts []Point) (*Index, error) {
	if len(pts) == 0 {
		return &Index{}, nil
	}
	sites := make([]vptree.Comparable, len(pts))
	for i, p := range pts {
		if !p.Valid() {
			return nil, fmt.Errorf("point %d (%v, %v): %w", i, p.Lat, p.Lon, ErrInvalidPoint)
		}
		sites[i] = newSite(i, p)
	}
	tree, err := vptree.New(sites, 0, nil)
	if err != nil {
		return nil, fmt.Errorf("build vp-tree: %w", err)
	}
	return &Index{tree: tree, n: len(pts)}, nil
}

// Len returns the number of indexed points.
func (x *Index) Len() int { return x.n }

// Nearest returns the k points closest to q ordered by ascending distance,
// ties broken by ascending index. Asking for more points than are indexed
// fails with model.ErrInsufficientData and an invalid q with ErrInvalidPoint.
func (x *Index) Nearest(q Point, k int) ([]Neighbor, error) {
	if !q.Valid() {
		return nil, fmt.Errorf("nearest to (%v, %v): %w", q.Lat, q.Lon, ErrInvalidPoint)
	}
	if k <= 0 || k > x.n {
		return nil, fmt.Errorf("nearest %d of %d points: %w", k, x.n, model.ErrInsufficientData)
	}
	query := newSite(-1, q)
	nk := vptree.NewNKeeper(k)
	x.tree.NearestSet(nk, query)
	maxDist := 0.0
	for _, c := range nk.Heap {
		if c.Comparable != nil && c.Dist > maxDist {
			maxDist = c.Dist
		}
	}
	// Re-collect everything up to the k-th distance so equidistant points
	// are ranked by index rather than by tree shape.
	res := x.collect(query, maxDist+tieSlack)
	if len(res) > k {
		res = res[:k]
	}
	return res, nil
}

// Within returns every point at most radius meters from q, ordered by
// distance then index. An invalid q fails with ErrInvalidPoint.
func (x *Index) Within(q Point, radius float64) ([]Neighbor, error) {
	if !q.Valid() {
		return nil, fmt.Errorf("within %v m of (%v, %v): %w", radius, q.Lat, q.Lon, ErrInvalidPoint)
	}
	if x.n == 0 || radius < 0 {
		return nil, nil
	}
	return x.collect(newSite(-1, q), radius), nil
}

func (x *Index) collect(q site, radius float64) []Neighbor {
	dk := vptree.NewDistKeeper(radius)
	x.tree.NearestSet(dk, q)
	res := make([]Neighbor, 0, len(dk.Heap))
	for _, c := range dk.Heap {
		if c.Comparable == nil || c.Dist > radius {
			continue
		}
		res = append(res, Neighbor{Index: c.Comparable.(site).idx, Distance: c.Dist})
	}
	sort.Slice(res, func(i, j int) bool {
		if res[i].Distance != res[j].Distance {
			return res[i].Distance < res[j].Distance
		}
		return res[i].Index < res[j].Index
	})
	return res
}
