package blocks

import (
	"fmt"
	"sort"

	"github.com/mikermcconnell/BusScheduler-sub001/core/logger"
	"github.com/mikermcconnell/BusScheduler-sub001/core/model"
	"github.com/mikermcconnell/BusScheduler-sub001/core/timeutil"
)

// Assigner keeps vehicle blocks free of overlapping trips. Imported data can
// assign two simultaneous trips to the same vehicle; reassignment re-partitions
// the trips greedily so every block is a chain of non-overlapping service
// windows.
type Assigner struct {
	log logger.Logger
}

// NewAssigner returns an Assigner logging through the given logger.
func NewAssigner(log logger.Logger) *Assigner {
	if log == nil {
		log = logger.NopLogger{}
	}
	return &Assigner{log: log}
}

type window struct {
	tripIdx int
	start   int
	end     int
}

// NeedsReassignment reports whether any block holds two trips with
// overlapping service windows. Trips with malformed windows are ignored here;
// Reassign surfaces them as warnings.
func (a *Assigner) NeedsReassignment(s model.Schedule) bool {
	byBlock := make(map[int][]window)
	for i, t := range s.Trips {
		w, ok := tripWindow(s, i)
		if !ok {
			continue
		}
		byBlock[t.BlockNumber] = append(byBlock[t.BlockNumber], w)
	}
	for _, ws := range byBlock {
		sort.Slice(ws, func(i, j int) bool { return ws[i].start < ws[j].start })
		for i := 1; i < len(ws); i++ {
			if ws[i].start < ws[i-1].end {
				return true
			}
		}
	}
	return false
}

// ReassignIfNeeded runs Reassign only when an overlap exists, so untouched
// schedules keep their block numbering.
func (a *Assigner) ReassignIfNeeded(s model.Schedule) (model.Schedule, []string) {
	if !a.NeedsReassignment(s) {
		return s, nil
	}
	return a.Reassign(s)
}

// Reassign re-partitions all well-formed trips into blocks using greedy
// interval partitioning: process trips chronologically and place each on the
// earliest existing block whose last trip ends at or before the trip's start,
// opening a new block otherwise. The pass is deterministic and idempotent;
// the block count may grow or shrink. Trips with malformed windows keep their
// existing block and produce a warning instead of failing the pass.
func (a *Assigner) Reassign(s model.Schedule) (model.Schedule, []string) {
	out := s.Clone()
	var warnings []string

	var windows []window
	for i := range out.Trips {
		w, ok := tripWindow(out, i)
		if !ok {
			msg := fmt.Sprintf("trip %d has a malformed service window; leaving block %d unchanged",
				out.Trips[i].TripNumber, out.Trips[i].BlockNumber)
			a.log.Warnf("%s", msg)
			warnings = append(warnings, msg)
			continue
		}
		windows = append(windows, w)
	}
	sort.Slice(windows, func(i, j int) bool {
		a, b := windows[i], windows[j]
		if a.start != b.start {
			return a.start < b.start
		}
		if a.end != b.end {
			return a.end < b.end
		}
		return out.Trips[a.tripIdx].TripNumber < out.Trips[b.tripIdx].TripNumber
	})

	// blockEnds[k] is the end of the last trip on block k+1.
	var blockEnds []int
	for _, w := range windows {
		assigned := -1
		for k, end := range blockEnds {
			if end <= w.start {
				assigned = k
				break
			}
		}
		if assigned == -1 {
			blockEnds = append(blockEnds, w.end)
			assigned = len(blockEnds) - 1
		} else {
			blockEnds[assigned] = w.end
		}
		out.Trips[w.tripIdx].BlockNumber = assigned + 1
	}
	out.SortTrips()
	return out, warnings
}

// tripWindow computes the [start, end] service window of a trip: first
// departure to last active departure.
func tripWindow(s model.Schedule, tripIdx int) (window, bool) {
	t := s.Trips[tripIdx]
	start := t.StartMinutes(s.TimePoints)
	end := t.LastActiveDepartureMinutes(s.TimePoints)
	if start == timeutil.Invalid || end == timeutil.Invalid || end < start {
		return window{}, false
	}
	return window{tripIdx: tripIdx, start: start, end: end}, true
}
