package model

import (
	"github.com/mikermcconnell/BusScheduler-sub001/core/timeutil"
)

// TimePoint is an ordered stop along the route. Sequence defines traversal
// order and is immutable once a schedule is loaded.
type TimePoint struct {
	ID       string `json:"id"`
	Name     string `json:"name"`
	Sequence int    `json:"sequence"`
}

// Trip is one vehicle run through the schedule's timepoints. All time maps are
// keyed by timepoint ID and hold "HH:MM" strings; recovery maps hold minutes.
//
// Original*Times backups exist only while the trip is truncated
// (TripEndIndex set) and are cleared on restore. HiddenTailRecoveryTimes
// preserves the recovery values that were zeroed because the trip is currently
// the last of its block.
type Trip struct {
	TripNumber      int               `json:"trip_number"`
	BlockNumber     int               `json:"block_number"`
	DepartureTime   string            `json:"departure_time"`
	ServiceBand     ServiceBandName   `json:"service_band"`
	ArrivalTimes    map[string]string `json:"arrival_times"`
	DepartureTimes  map[string]string `json:"departure_times"`
	RecoveryTimes   map[string]int    `json:"recovery_times"`
	RecoveryMinutes int               `json:"recovery_minutes"`
	TripEndIndex    *int              `json:"trip_end_index,omitempty"`

	OriginalArrivalTimes    map[string]string `json:"original_arrival_times,omitempty"`
	OriginalDepartureTimes  map[string]string `json:"original_departure_times,omitempty"`
	OriginalRecoveryTimes   map[string]int    `json:"original_recovery_times,omitempty"`
	HiddenTailRecoveryTimes map[string]int    `json:"hidden_tail_recovery_times,omitempty"`
}

// Clone returns a deep copy of the trip. Nested maps are copied so two
// schedule snapshots never share mutable substructure. The three working time
// maps come back non-nil: snapshot records that omit one (an old file, a
// hand-assembled trip) must stay editable, and the backup maps keep nil as
// their not-truncated marker.
func (t Trip) Clone() Trip {
	cp := t
	cp.ArrivalTimes = cloneStringMap(t.ArrivalTimes)
	cp.DepartureTimes = cloneStringMap(t.DepartureTimes)
	cp.RecoveryTimes = cloneIntMap(t.RecoveryTimes)
	if cp.ArrivalTimes == nil {
		cp.ArrivalTimes = make(map[string]string)
	}
	if cp.DepartureTimes == nil {
		cp.DepartureTimes = make(map[string]string)
	}
	if cp.RecoveryTimes == nil {
		cp.RecoveryTimes = make(map[string]int)
	}
	cp.OriginalArrivalTimes = cloneStringMap(t.OriginalArrivalTimes)
	cp.OriginalDepartureTimes = cloneStringMap(t.OriginalDepartureTimes)
	cp.OriginalRecoveryTimes = cloneIntMap(t.OriginalRecoveryTimes)
	cp.HiddenTailRecoveryTimes = cloneIntMap(t.HiddenTailRecoveryTimes)
	if t.TripEndIndex != nil {
		idx := *t.TripEndIndex
		cp.TripEndIndex = &idx
	}
	return cp
}

// ActiveEnd returns the index of the last active timepoint: TripEndIndex when
// the trip is truncated, otherwise the final timepoint.
func (t Trip) ActiveEnd(numTimePoints int) int {
	if t.TripEndIndex != nil && *t.TripEndIndex < numTimePoints {
		return *t.TripEndIndex
	}
	return numTimePoints - 1
}

// IsActiveIndex reports whether timepoint index i is part of the trip's
// active range.
func (t Trip) IsActiveIndex(i, numTimePoints int) bool {
	return i >= 0 && i <= t.ActiveEnd(numTimePoints)
}

// StartMinutes returns the trip's service start: the departure from the first
// timepoint, falling back to its arrival. timeutil.Invalid when unknown.
func (t Trip) StartMinutes(tps []TimePoint) int {
	if len(tps) == 0 {
		return timeutil.Invalid
	}
	id := tps[0].ID
	if m := timeutil.ParseHHMM(t.DepartureTimes[id]); m != timeutil.Invalid {
		return m
	}
	return timeutil.ParseHHMM(t.ArrivalTimes[id])
}

// LastActiveDepartureMinutes returns the departure from the trip's last active
// timepoint, falling back to its arrival. timeutil.Invalid when unknown.
func (t Trip) LastActiveDepartureMinutes(tps []TimePoint) int {
	if len(tps) == 0 {
		return timeutil.Invalid
	}
	id := tps[t.ActiveEnd(len(tps))].ID
	if m := timeutil.ParseHHMM(t.DepartureTimes[id]); m != timeutil.Invalid {
		return m
	}
	return timeutil.ParseHHMM(t.ArrivalTimes[id])
}

// EarliestMinutes scans every arrival and departure entry and returns the
// earliest known time, used to maintain the DepartureTime cache.
func (t Trip) EarliestMinutes() int {
	earliest := timeutil.Invalid
	scan := func(m map[string]string) {
		for _, v := range m {
			parsed := timeutil.ParseHHMM(v)
			if parsed == timeutil.Invalid {
				continue
			}
			if earliest == timeutil.Invalid || parsed < earliest {
				earliest = parsed
			}
		}
	}
	scan(t.DepartureTimes)
	scan(t.ArrivalTimes)
	return earliest
}

// RefreshDerived recomputes the DepartureTime cache and the RecoveryMinutes
// total from the underlying maps.
func (t *Trip) RefreshDerived() {
	if m := t.EarliestMinutes(); m != timeutil.Invalid {
		t.DepartureTime = timeutil.FormatHHMM(m)
	} else {
		t.DepartureTime = ""
	}
	total := 0
	for _, r := range t.RecoveryTimes {
		total += r
	}
	t.RecoveryMinutes = total
}

// ShiftAllTimes moves every arrival and departure entry by delta minutes and
// refreshes the derived fields. Malformed entries are left untouched.
func (t *Trip) ShiftAllTimes(delta int) {
	if delta == 0 {
		return
	}
	for id, v := range t.ArrivalTimes {
		if shifted := timeutil.AddMinutes(v, delta); shifted != "" {
			t.ArrivalTimes[id] = shifted
		}
	}
	for id, v := range t.DepartureTimes {
		if shifted := timeutil.AddMinutes(v, delta); shifted != "" {
			t.DepartureTimes[id] = shifted
		}
	}
	t.RefreshDerived()
}

func cloneStringMap(m map[string]string) map[string]string {
	if m == nil {
		return nil
	}
	cp := make(map[string]string, len(m))
	for k, v := range m {
		cp[k] = v
	}
	return cp
}

func cloneIntMap(m map[string]int) map[string]int {
	if m == nil {
		return nil
	}
	cp := make(map[string]int, len(m))
	for k, v := range m {
		cp[k] = v
	}
	return cp
}
