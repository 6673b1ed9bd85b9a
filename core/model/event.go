package model

import (
	"strings"
	"time"
)

// Status is the occupancy category reported by a bay sensor.
type Status int

const (
	StatusUnknown Status = iota
	StatusOccupied
	StatusUnoccupied
)

func (s Status) String() string {
	switch s {
	case StatusOccupied:
		return "present"
	case StatusUnoccupied:
		return "unoccupied"
	default:
		return "unknown"
	}
}

// ParseStatus normalizes a raw status description. Only "unoccupied" means
// the bay is free; "present" and "occupied" are occupied; anything else is
// unknown.
func ParseStatus(raw string) Status {
	switch strings.ToLower(strings.TrimSpace(raw)) {
	case "unoccupied":
		return StatusUnoccupied
	case "present", "occupied":
		return StatusOccupied
	default:
		return StatusUnknown
	}
}

// Available returns 1 for a free bay and 0 for every other status, unknown
// statuses included.
func (s Status) Available() float64 {
	if s == StatusUnoccupied {
		return 1
	}
	return 0
}

// StatusEvent is one sensor reading from the historical feed.
type StatusEvent struct {
	BayID   BayID
	Time    time.Time
	Status  Status
	Zone    ZoneID
	HasZone bool
}
