package model

import (
	"sort"

	"github.com/mikermcconnell/BusScheduler-sub001/core/timeutil"
)

// Schedule is the root aggregate: the ordered timepoints, the service bands
// and every trip of a service day. It is always owned and mutated as one unit;
// operations clone it and return a new snapshot.
type Schedule struct {
	TimePoints   []TimePoint   `json:"time_points"`
	ServiceBands []ServiceBand `json:"service_bands"`
	Trips        []Trip        `json:"trips"`
}

// Clone returns a deep copy of the schedule.
func (s Schedule) Clone() Schedule {
	cp := Schedule{
		TimePoints:   make([]TimePoint, len(s.TimePoints)),
		ServiceBands: make([]ServiceBand, len(s.ServiceBands)),
		Trips:        make([]Trip, len(s.Trips)),
	}
	copy(cp.TimePoints, s.TimePoints)
	copy(cp.ServiceBands, s.ServiceBands)
	for i, t := range s.Trips {
		cp.Trips[i] = t.Clone()
	}
	return cp
}

// TripIndex returns the slice index of the trip with the given number, or -1.
func (s Schedule) TripIndex(tripNumber int) int {
	for i, t := range s.Trips {
		if t.TripNumber == tripNumber {
			return i
		}
	}
	return -1
}

// TimePointIndex returns the sequence position of the timepoint, or -1.
func (s Schedule) TimePointIndex(id string) int {
	for i, tp := range s.TimePoints {
		if tp.ID == id {
			return i
		}
	}
	return -1
}

// BlockNumbers returns the distinct block numbers in ascending order.
func (s Schedule) BlockNumbers() []int {
	seen := make(map[int]bool)
	var nums []int
	for _, t := range s.Trips {
		if !seen[t.BlockNumber] {
			seen[t.BlockNumber] = true
			nums = append(nums, t.BlockNumber)
		}
	}
	sort.Ints(nums)
	return nums
}

// BlockTripIndexes returns the indexes of the block's trips sorted
// chronologically by service start.
func (s Schedule) BlockTripIndexes(blockNumber int) []int {
	var idx []int
	for i, t := range s.Trips {
		if t.BlockNumber == blockNumber {
			idx = append(idx, i)
		}
	}
	sort.SliceStable(idx, func(a, b int) bool {
		return tripLess(s.Trips[idx[a]], s.Trips[idx[b]], s.TimePoints)
	})
	return idx
}

// SortTrips orders trips chronologically, stable on block number for ties.
func (s *Schedule) SortTrips() {
	sort.SliceStable(s.Trips, func(a, b int) bool {
		return tripLess(s.Trips[a], s.Trips[b], s.TimePoints)
	})
}

// RenumberTrips assigns a dense 1..N trip numbering by global chronological
// order, ties broken by block number. The trip slice is re-sorted in the
// process.
func (s *Schedule) RenumberTrips() {
	s.SortTrips()
	for i := range s.Trips {
		s.Trips[i].TripNumber = i + 1
	}
}

func tripLess(a, b Trip, tps []TimePoint) bool {
	am := tripSortMinutes(a, tps)
	bm := tripSortMinutes(b, tps)
	if am != bm {
		// Trips without a parseable time sort last.
		if am == timeutil.Invalid {
			return false
		}
		if bm == timeutil.Invalid {
			return true
		}
		return am < bm
	}
	return a.BlockNumber < b.BlockNumber
}

func tripSortMinutes(t Trip, tps []TimePoint) int {
	if m := t.StartMinutes(tps); m != timeutil.Invalid {
		return m
	}
	return t.EarliestMinutes()
}
