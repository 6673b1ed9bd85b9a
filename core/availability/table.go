package availability

import (
	"cmp"
	"fmt"
	"slices"

	"github.com/kilianp07/parkcast/core/model"
)

// Record is the aggregate of one (entity, weekday, slot) bucket.
type Record struct {
	Count int
	Rate  float64
}

// Row is a flattened Record used for export.
type Row struct {
	Entity  string
	Weekday int
	Slot    int
	Count   int
	Rate    float64
}

// Table is an immutable probability table keyed by entity and slot key.
type Table[K cmp.Ordered] struct {
	cells    map[K]map[model.SlotKey]Record
	slotMean map[K]map[int]float64
	rows     int
}

type accumulator[K cmp.Ordered] struct {
	sums   map[K]map[model.SlotKey]float64
	counts map[K]map[model.SlotKey]int
}

func newAccumulator[K cmp.Ordered]() *accumulator[K] {
	return &accumulator[K]{
		sums:   map[K]map[model.SlotKey]float64{},
		counts: map[K]map[model.SlotKey]int{},
	}
}

func (a *accumulator[K]) add(e K, key model.SlotKey, avail float64) {
	if a.sums[e] == nil {
		a.sums[e] = map[model.SlotKey]float64{}
		a.counts[e] = map[model.SlotKey]int{}
	}
	a.sums[e][key] += avail
	a.counts[e][key]++
}

func (a *accumulator[K]) table() *Table[K] {
	t := &Table[K]{
		cells:    make(map[K]map[model.SlotKey]Record, len(a.sums)),
		slotMean: make(map[K]map[int]float64, len(a.sums)),
	}
	for e, sums := range a.sums {
		cells := make(map[model.SlotKey]Record, len(sums))
		rateSum := map[int]float64{}
		days := map[int]int{}
		for key, s := range sums {
			n := a.counts[e][key]
			r := Record{Count: n, Rate: s / float64(n)}
			cells[key] = r
			rateSum[key.Slot] += r.Rate
			days[key.Slot]++
		}
		means := make(map[int]float64, len(rateSum))
		for slot, s := range rateSum {
			means[slot] = s / float64(days[slot])
		}
		t.cells[e] = cells
		t.slotMean[e] = means
		t.rows += len(cells)
	}
	return t
}

// Exact returns the record of entity e at key.
func (t *Table[K]) Exact(e K, key model.SlotKey) (Record, bool) {
	if t == nil {
		return Record{}, false
	}
	r, ok := t.cells[e][key]
	return r, ok
}

// SlotMean returns the unweighted mean of e's rates at slot across every
// weekday observed for that slot.
func (t *Table[K]) SlotMean(e K, slot int) (float64, bool) {
	if t == nil {
		return 0, false
	}
	v, ok := t.slotMean[e][slot]
	return v, ok
}

// Has reports whether e has at least one record.
func (t *Table[K]) Has(e K) bool {
	if t == nil {
		return false
	}
	_, ok := t.cells[e]
	return ok
}

// Entities lists the entities of the table in ascending order.
func (t *Table[K]) Entities() []K {
	if t == nil {
		return nil
	}
	out := make([]K, 0, len(t.cells))
	for e := range t.cells {
		out = append(out, e)
	}
	slices.Sort(out)
	return out
}

// Len returns the number of records.
func (t *Table[K]) Len() int {
	if t == nil {
		return 0
	}
	return t.rows
}

// Rows flattens the table ordered by entity, weekday and slot.
func (t *Table[K]) Rows() []Row {
	out := make([]Row, 0, t.Len())
	for _, e := range t.Entities() {
		keys := make([]model.SlotKey, 0, len(t.cells[e]))
		for k := range t.cells[e] {
			keys = append(keys, k)
		}
		slices.SortFunc(keys, func(a, b model.SlotKey) int {
			if c := cmp.Compare(a.Weekday, b.Weekday); c != 0 {
				return c
			}
			return cmp.Compare(a.Slot, b.Slot)
		})
		name := fmt.Sprint(e)
		for _, k := range keys {
			r := t.cells[e][k]
			out = append(out, Row{Entity: name, Weekday: k.Weekday, Slot: k.Slot, Count: r.Count, Rate: r.Rate})
		}
	}
	return out
}
