package zones

import "github.com/kilianp07/parkcast/core/model"

// AttachFeedZones fills zone-less bays with the zone the sensor feed most
// often reports for them; ties go to the smaller zone. It returns the new
// slice and the number of bays filled.
func AttachFeedZones(bays []model.Bay, events []model.StatusEvent) ([]model.Bay, int) {
	counts := map[model.BayID]map[model.ZoneID]int{}
	for _, e := range events {
		if !e.HasZone {
			continue
		}
		m := counts[e.BayID]
		if m == nil {
			m = map[model.ZoneID]int{}
			counts[e.BayID] = m
		}
		m[e.Zone]++
	}
	out := make([]model.Bay, len(bays))
	copy(out, bays)
	filled := 0
	for i, b := range out {
		if b.Zoned() {
			continue
		}
		m := counts[b.ID]
		if len(m) == 0 {
			continue
		}
		out[i] = b.WithZone(mostFrequent(m), model.SourceFeed)
		filled++
	}
	return out, filled
}
