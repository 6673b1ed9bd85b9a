// Package availability turns a historical occupancy log into empirical
// availability probabilities keyed by weekday and half-hour slot, one table
// per bay and one per zone.
package availability
