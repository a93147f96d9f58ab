// Package validate checks a schedule against the consistency rules the
// editing engine maintains: chained arithmetic at every stop, zero recovery at
// block tails, dense trip numbering and non-overlapping blocks.
package validate

import (
	"fmt"

	"github.com/mikermcconnell/BusScheduler-sub001/core/model"
	"github.com/mikermcconnell/BusScheduler-sub001/core/timeutil"
)

// Report lists every violation found. An empty result means the schedule is
// consistent.
func Report(s model.Schedule) []string {
	var out []string
	out = append(out, checkNumbering(s)...)
	out = append(out, checkStopArithmetic(s)...)
	out = append(out, checkTails(s)...)
	out = append(out, checkOverlaps(s)...)
	return out
}

func checkNumbering(s model.Schedule) []string {
	var out []string
	seen := make(map[int]bool, len(s.Trips))
	for _, trip := range s.Trips {
		if seen[trip.TripNumber] {
			out = append(out, fmt.Sprintf("trip %d: duplicate trip number", trip.TripNumber))
		}
		seen[trip.TripNumber] = true
	}
	for n := 1; n <= len(s.Trips); n++ {
		if !seen[n] {
			out = append(out, fmt.Sprintf("trip numbering is not dense: %d is missing", n))
		}
	}
	return out
}

// checkStopArithmetic verifies departure = arrival + recovery at every active
// stop. Truncated segments are skipped.
func checkStopArithmetic(s model.Schedule) []string {
	var out []string
	for _, trip := range s.Trips {
		// ActiveEnd is an index, so the final stop is checked too; enforced
		// tails still pass because stashing collapses departure onto arrival.
		end := trip.ActiveEnd(len(s.TimePoints))
		for i := 0; i <= end; i++ {
			tp := s.TimePoints[i]
			arr, hasArr := trip.ArrivalTimes[tp.ID]
			dep, hasDep := trip.DepartureTimes[tp.ID]
			if !hasArr || !hasDep {
				continue
			}
			arrMin := timeutil.ParseHHMM(arr)
			depMin := timeutil.ParseHHMM(dep)
			if arrMin == timeutil.Invalid || depMin == timeutil.Invalid {
				out = append(out, fmt.Sprintf("trip %d: malformed time at %s", trip.TripNumber, tp.ID))
				continue
			}
			if depMin != arrMin+trip.RecoveryTimes[tp.ID] {
				out = append(out, fmt.Sprintf("trip %d: departure at %s is not arrival plus recovery", trip.TripNumber, tp.ID))
			}
		}
	}
	return out
}

// checkTails verifies the last trip of every multi-trip block carries no
// recovery.
func checkTails(s model.Schedule) []string {
	var out []string
	for _, block := range s.BlockNumbers() {
		idxs := s.BlockTripIndexes(block)
		if len(idxs) < 2 {
			continue
		}
		last := s.Trips[idxs[len(idxs)-1]]
		if last.RecoveryMinutes != 0 {
			out = append(out, fmt.Sprintf("block %d: last trip %d carries %d recovery minutes", block, last.TripNumber, last.RecoveryMinutes))
		}
	}
	return out
}

// checkOverlaps verifies consecutive trips of a block do not run at the same
// time.
func checkOverlaps(s model.Schedule) []string {
	var out []string
	for _, block := range s.BlockNumbers() {
		idxs := s.BlockTripIndexes(block)
		for k := 1; k < len(idxs); k++ {
			prev := s.Trips[idxs[k-1]]
			cur := s.Trips[idxs[k]]
			prevEnd := prev.LastActiveDepartureMinutes(s.TimePoints)
			curStart := cur.StartMinutes(s.TimePoints)
			if prevEnd == timeutil.Invalid || curStart == timeutil.Invalid {
				continue
			}
			if curStart < prevEnd {
				out = append(out, fmt.Sprintf("block %d: trip %d starts before trip %d finishes", block, cur.TripNumber, prev.TripNumber))
			}
		}
	}
	return out
}
