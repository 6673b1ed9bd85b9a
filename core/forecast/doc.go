// Package forecast projects availability tables onto a horizon of future
// instants for every bay, resolving each instant through a fixed fallback
// chain: bay exact, bay slot-only, zone exact, zone slot-only, then null.
package forecast
