package cascade

import (
	"github.com/mikermcconnell/BusScheduler-sub001/core/model"
	"github.com/mikermcconnell/BusScheduler-sub001/core/timeutil"
)

// EnforceTailRecovery maintains the rule that the chronologically last trip of
// every block carries no recovery time. The zeroed values are stashed in
// HiddenTailRecoveryTimes so they can be reinstated if a later trip is
// appended; any trip that is no longer last but still holds a stash has it
// restored. The pass is idempotent and mutates the given snapshot in place:
// trips that are already correct are left untouched, not rewritten.
func EnforceTailRecovery(s *model.Schedule) {
	for _, blockNumber := range s.BlockNumbers() {
		idxs := s.BlockTripIndexes(blockNumber)
		// A single-trip block both opens and closes its vehicle's day; zeroing
		// it would make recovery on such blocks uneditable, so the rule only
		// applies once a block forms a chain.
		if len(idxs) < 2 {
			continue
		}
		last := idxs[len(idxs)-1]
		for _, i := range idxs {
			if i == last {
				stashTailRecovery(&s.Trips[i])
			} else if len(s.Trips[i].HiddenTailRecoveryTimes) > 0 {
				restoreTailRecovery(&s.Trips[i])
			}
		}
	}
}

// stashTailRecovery zeroes the trip's recovery and preserves the non-zero
// values. Departures collapse onto arrivals so the departure consistency
// invariant keeps holding for the tail trip.
func stashTailRecovery(t *model.Trip) {
	if allZero(t.RecoveryTimes) && t.RecoveryMinutes == 0 {
		return
	}
	// The pass runs in place, so a record with an omitted departure map has not
	// been normalized by Clone yet.
	if t.DepartureTimes == nil {
		t.DepartureTimes = make(map[string]string)
	}
	stash := t.HiddenTailRecoveryTimes
	if stash == nil {
		stash = make(map[string]int)
	}
	for id, v := range t.RecoveryTimes {
		if v == 0 {
			continue
		}
		stash[id] = v
		t.RecoveryTimes[id] = 0
		if arr, ok := t.ArrivalTimes[id]; ok && timeutil.ParseHHMM(arr) != timeutil.Invalid {
			t.DepartureTimes[id] = arr
		}
	}
	t.HiddenTailRecoveryTimes = stash
	t.RefreshDerived()
}

// restoreTailRecovery reinstates a stash left behind when an appended trip
// promoted this one out of last place.
func restoreTailRecovery(t *model.Trip) {
	if t.RecoveryTimes == nil {
		t.RecoveryTimes = make(map[string]int)
	}
	if t.DepartureTimes == nil {
		t.DepartureTimes = make(map[string]string)
	}
	for id, v := range t.HiddenTailRecoveryTimes {
		t.RecoveryTimes[id] = v
		if arr, ok := t.ArrivalTimes[id]; ok {
			if dep := timeutil.AddMinutes(arr, v); dep != "" {
				t.DepartureTimes[id] = dep
			}
		}
	}
	t.HiddenTailRecoveryTimes = nil
	t.RefreshDerived()
}

// allZero treats missing keys as zero, so an empty and an explicitly zeroed
// map compare equal.
func allZero(m map[string]int) bool {
	for _, v := range m {
		if v != 0 {
			return false
		}
	}
	return true
}
