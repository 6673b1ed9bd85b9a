package forecast

import (
	"time"

	"github.com/kilianp07/parkcast/core/model"
)

// Level identifies the fallback level that resolved a point.
type Level int

const (
	LevelNone Level = iota
	LevelBay
	LevelBaySlot
	LevelZone
	LevelZoneSlot
)

func (l Level) String() string {
	switch l {
	case LevelBay:
		return "bay"
	case LevelBaySlot:
		return "bay_slot"
	case LevelZone:
		return "zone"
	case LevelZoneSlot:
		return "zone_slot"
	default:
		return "none"
	}
}

// Point is the forecast of one bay at one instant. A nil Prob means no
// level of the chain had data, which is not the same as zero.
type Point struct {
	Time  time.Time `json:"timeISO"`
	Prob  *float64  `json:"prob"`
	Level Level     `json:"-"`
}

// Series is the forecast document of a single bay.
type Series struct {
	BayID       model.BayID `json:"kerbsideId"`
	GeneratedAt time.Time   `json:"generatedAt"`
	StartTime   time.Time   `json:"startTime"`
	StepHours   float64     `json:"stepHours"`
	Points      []Point     `json:"points"`
}

// Combined gathers every bay's points in one document.
type Combined struct {
	GeneratedAt time.Time               `json:"generatedAt"`
	StepHours   float64                 `json:"stepHours"`
	Bays        map[model.BayID][]Point `json:"bays"`
}
