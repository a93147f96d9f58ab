package cascade

import (
	"time"

	"github.com/mikermcconnell/BusScheduler-sub001/core/band"
	"github.com/mikermcconnell/BusScheduler-sub001/core/logger"
	"github.com/mikermcconnell/BusScheduler-sub001/core/metrics"
	"github.com/mikermcconnell/BusScheduler-sub001/core/model"
	"github.com/mikermcconnell/BusScheduler-sub001/core/timeutil"
)

// Engine propagates a recovery-time edit forward through a trip and through
// every later trip sharing its vehicle block. Each call takes a schedule
// snapshot and returns a new, fully consistent one; the input is never
// mutated.
type Engine struct {
	cfg         Config
	classifier  *band.Classifier
	periodBands map[string]model.ServiceBandName
	log         logger.Logger
	sink        metrics.CascadeRecorder
	now         func() time.Time
}

// NewEngine creates an Engine with the given guard configuration.
func NewEngine(cfg Config, cls *band.Classifier, log logger.Logger) *Engine {
	cfg.SetDefaults()
	if log == nil {
		log = logger.NopLogger{}
	}
	if cls == nil {
		cls = band.NewClassifier(log)
	}
	return &Engine{
		cfg:        cfg,
		classifier: cls,
		log:        log,
		sink:       metrics.NopSink{},
		now:        time.Now,
	}
}

// SetPeriodBands installs the precomputed period -> band mapping used to
// re-band trips whose 30-minute bucket changes during a cascade.
func (e *Engine) SetPeriodBands(m map[string]model.ServiceBandName) { e.periodBands = m }

// SetSink installs a metrics recorder for cascade runs.
func (e *Engine) SetSink(sink metrics.CascadeRecorder) {
	if sink != nil {
		e.sink = sink
	}
}

// ApplyRecoveryEdit sets the recovery minutes of one trip at one timepoint and
// cascades the resulting shift through the rest of the trip and its block.
// A missing trip or timepoint is a no-op: the input snapshot is returned
// unchanged so callers can retry with corrected references.
func (e *Engine) ApplyRecoveryEdit(s model.Schedule, tripNumber int, timepointID string, newRecovery int) model.Schedule {
	tripIdx := s.TripIndex(tripNumber)
	if tripIdx < 0 {
		e.log.Warnf("recovery edit: trip %d not found, ignoring", tripNumber)
		return s
	}
	tpIdx := s.TimePointIndex(timepointID)
	if tpIdx < 0 {
		e.log.Warnf("recovery edit: timepoint %q not found, ignoring", timepointID)
		return s
	}

	out := s.Clone()
	trip := &out.Trips[tripIdx]
	if !trip.IsActiveIndex(tpIdx, len(out.TimePoints)) {
		e.log.Warnf("recovery edit: timepoint %q is beyond trip %d's truncation point, ignoring", timepointID, tripNumber)
		return s
	}
	arrival := trip.ArrivalTimes[timepointID]
	if timeutil.ParseHHMM(arrival) == timeutil.Invalid {
		e.log.Warnf("recovery edit: trip %d has no usable arrival at %q, ignoring", tripNumber, timepointID)
		return s
	}

	// Clone guarantees non-nil working maps, so the writes below are safe even
	// for records that omitted them.
	oldRecovery := trip.RecoveryTimes[timepointID]
	delta := newRecovery - oldRecovery
	trip.RecoveryTimes[timepointID] = newRecovery
	trip.DepartureTimes[timepointID] = timeutil.AddMinutes(arrival, newRecovery)

	if delta != 0 {
		e.shiftLaterTimepoints(&out, trip, tpIdx, delta)
	}
	trip.RefreshDerived()

	if delta != 0 {
		e.cascadeBlock(&out, trip.BlockNumber, tripIdx)
	}
	out.SortTrips()
	EnforceTailRecovery(&out)
	return out
}

// shiftLaterTimepoints moves every active timepoint after tpIdx by delta,
// arrivals and departures alike. Malformed entries are skipped with a warning.
func (e *Engine) shiftLaterTimepoints(s *model.Schedule, trip *model.Trip, tpIdx, delta int) {
	end := trip.ActiveEnd(len(s.TimePoints))
	for j := tpIdx + 1; j <= end; j++ {
		id := s.TimePoints[j].ID
		if v, ok := trip.ArrivalTimes[id]; ok {
			if shifted := timeutil.AddMinutes(v, delta); shifted != "" {
				trip.ArrivalTimes[id] = shifted
			} else {
				e.log.Warnf("recovery edit: trip %d has malformed arrival %q at %q, skipping", trip.TripNumber, v, id)
			}
		}
		if v, ok := trip.DepartureTimes[id]; ok {
			if shifted := timeutil.AddMinutes(v, delta); shifted != "" {
				trip.DepartureTimes[id] = shifted
			} else {
				e.log.Warnf("recovery edit: trip %d has malformed departure %q at %q, skipping", trip.TripNumber, v, id)
			}
		}
	}
}

// cascadeBlock re-chains every trip strictly after the edited one within the
// same block: each trip's new start is its predecessor's (already updated)
// last-timepoint departure, and its whole time set shifts by the difference.
// Bounded by the configured iteration and wall-clock guards.
func (e *Engine) cascadeBlock(s *model.Schedule, blockNumber, editedIdx int) {
	started := e.now()
	idxs := s.BlockTripIndexes(blockNumber)
	pos := -1
	for k, i := range idxs {
		if i == editedIdx {
			pos = k
			break
		}
	}
	if pos < 0 {
		return
	}

	shifted := 0
	aborted := false
	for k := pos + 1; k < len(idxs); k++ {
		if k-pos > e.cfg.MaxIterations {
			e.log.Warnf("cascade: block %d exceeded %d iterations, aborting remaining propagation", blockNumber, e.cfg.MaxIterations)
			aborted = true
			break
		}
		if e.now().Sub(started) > e.cfg.MaxDuration() {
			e.log.Warnf("cascade: block %d exceeded %s budget, aborting remaining propagation", blockNumber, e.cfg.MaxDuration())
			aborted = true
			break
		}

		prev := s.Trips[idxs[k-1]]
		cur := &s.Trips[idxs[k]]
		newStart := prev.LastActiveDepartureMinutes(s.TimePoints)
		oldStart := cur.StartMinutes(s.TimePoints)
		if newStart == timeutil.Invalid || oldStart == timeutil.Invalid {
			e.log.Warnf("cascade: block %d trip %d has no usable start, stopping propagation", blockNumber, cur.TripNumber)
			aborted = true
			break
		}
		shift := newStart - oldStart
		if shift == 0 {
			continue
		}
		oldBucket := timeutil.PeriodStart(oldStart)
		cur.ShiftAllTimes(shift)
		shifted++
		if timeutil.PeriodStart(newStart) != oldBucket {
			e.rebandTrip(cur, newStart)
		}
	}

	if err := e.sink.RecordCascade(metrics.CascadeEvent{
		BlockNumber:  blockNumber,
		TripsShifted: shifted,
		Aborted:      aborted,
		Duration:     e.now().Sub(started),
		Time:         started,
	}); err != nil {
		e.log.Errorf("cascade: record metrics: %v", err)
	}
}

// rebandTrip re-runs classification for a trip whose departure moved into a
// different 30-minute period. Only the band label is updated; per-segment
// travel times are intentionally not recomputed against the new band's
// profile, downstream consumers rely on the existing approximation.
func (e *Engine) rebandTrip(trip *model.Trip, startMinutes int) {
	newBand := e.classifier.DetermineForTime(timeutil.FormatHHMM(startMinutes), e.periodBands)
	if newBand == trip.ServiceBand {
		return
	}
	e.log.Infof("cascade: trip %d moved periods, re-banding %q -> %q (travel segments unchanged)",
		trip.TripNumber, trip.ServiceBand, newBand)
	trip.ServiceBand = newBand
}
