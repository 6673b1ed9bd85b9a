package model

import "time"

const (
	// SlotsPerDay is the number of half-hour slots in a day.
	SlotsPerDay = 48
	// DaysPerWeek is the number of weekdays in a slot key.
	DaysPerWeek = 7
)

// SlotKey discretizes time of week. Weekday 0 is Monday.
type SlotKey struct {
	Weekday int
	Slot    int
}

// SlotOf returns the slot key of t in t's own location.
func SlotOf(t time.Time) SlotKey {
	return SlotKey{Weekday: Weekday(t), Slot: HalfHour(t)}
}

// Weekday returns the day of week of t with Monday as 0.
func Weekday(t time.Time) int {
	return (int(t.Weekday()) + 6) % 7
}

// HalfHour returns the half-hour slot of t within its day.
func HalfHour(t time.Time) int {
	s := t.Hour() * 2
	if t.Minute() >= 30 {
		s++
	}
	return s
}

// Valid reports whether the key lies within the 336 buckets of a week.
func (k SlotKey) Valid() bool {
	return k.Weekday >= 0 && k.Weekday < DaysPerWeek && k.Slot >= 0 && k.Slot < SlotsPerDay
}
