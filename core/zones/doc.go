// Package zones assigns every parking bay to a zone. Bays without an
// official zone are first backfilled from nearby known bays (Backfill);
// bays still unzoned are grouped by DBSCAN into synthetic zones, outliers
// becoming singleton zones (Cluster). Centroids summarizes the final map.
//
// All functions are pure: they return new slices and never modify their
// input.
package zones
