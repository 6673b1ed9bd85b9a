// Package geo answers nearest-neighbour and radius queries over geographic
// coordinates using great-circle (haversine) distance. The index is a
// vantage-point tree from gonum built on the haversine metric; since the
// great-circle distance is a true metric on the sphere, tree pruning is exact.
package geo
