package availability

import (
	"time"

	"github.com/kilianp07/parkcast/core/logger"
	"github.com/kilianp07/parkcast/core/model"
)

// Model holds the per-bay and per-zone tables built from one event log.
type Model struct {
	Bays  *Table[model.BayID]
	Zones *Table[model.ZoneID]
	// Events is the number of input events and Observations the number
	// left after keeping one event per bay, local date and slot.
	Events       int
	Observations int
	// Zoneless counts observations left out of the zone table.
	Zoneless int
}

type dedupKey struct {
	bay  model.BayID
	year int
	day  int
	slot int
}

type observation struct {
	at    time.Time
	key   model.SlotKey
	event model.StatusEvent
}

// Build aggregates events into availability tables. Timestamps are
// converted to the configured zone first. Within one (bay, local date,
// slot) only the latest event counts; on equal timestamps the earliest in
// input order is kept. An empty log is a DataError.
func Build(events []model.StatusEvent, cfg Config, log logger.Logger) (*Model, error) {
	log = logger.OrNop(log)
	if len(events) == 0 {
		return nil, model.NewDataError("model", "event log is empty")
	}
	loc, err := cfg.Location()
	if err != nil {
		return nil, err
	}

	winners := make(map[dedupKey]int, len(events))
	obs := make([]observation, 0, len(events))
	for _, e := range events {
		local := e.Time.In(loc)
		k := dedupKey{bay: e.BayID, year: local.Year(), day: local.YearDay(), slot: model.HalfHour(local)}
		o := observation{at: e.Time, key: model.SlotOf(local), event: e}
		if i, ok := winners[k]; ok {
			if e.Time.After(obs[i].at) {
				obs[i] = o
			}
			continue
		}
		winners[k] = len(obs)
		obs = append(obs, o)
	}

	bays := newAccumulator[model.BayID]()
	zones := newAccumulator[model.ZoneID]()
	m := &Model{Events: len(events), Observations: len(obs)}
	for _, o := range obs {
		avail := o.event.Status.Available()
		bays.add(o.event.BayID, o.key, avail)
		if !o.event.HasZone {
			m.Zoneless++
			continue
		}
		zones.add(o.event.Zone, o.key, avail)
	}
	m.Bays = bays.table()
	m.Zones = zones.table()
	log.Infof("model: %d events -> %d observations, %d bay records, %d zone records (%d observations without zone)",
		m.Events, m.Observations, m.Bays.Len(), m.Zones.Len(), m.Zoneless)
	return m, nil
}
