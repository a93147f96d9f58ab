package lifecycle

import (
	"fmt"

	"github.com/mikermcconnell/BusScheduler-sub001/core/band"
	"github.com/mikermcconnell/BusScheduler-sub001/core/cascade"
	"github.com/mikermcconnell/BusScheduler-sub001/core/logger"
	"github.com/mikermcconnell/BusScheduler-sub001/core/model"
	"github.com/mikermcconnell/BusScheduler-sub001/core/timeutil"
)

// DefaultSegmentTravelMinutes is the travel time assumed between consecutive
// timepoints when appending a trip without a target end time.
const DefaultSegmentTravelMinutes = 15

// AddMode selects where a new trip is inserted relative to its block.
type AddMode string

const (
	// AddAfterLast appends a trip to the end of the anchor trip's block.
	AddAfterLast AddMode = "after_last"
	// AddEarly inserts a trip before the anchor block's first trip.
	AddEarly AddMode = "early"
	// AddMidRoute inserts a trip on a fresh block between existing service.
	AddMidRoute AddMode = "mid_route"
)

// AddTripRequest carries the parameters of an insertion.
type AddTripRequest struct {
	Mode             AddMode
	AnchorTripNumber int
	// StartTime is required for early and mid-route trips.
	StartTime string
	// EndTime is required for mid-route trips; early trips end at the anchor
	// block's current first departure.
	EndTime string
	// ServiceBand overrides classification when set.
	ServiceBand model.ServiceBandName
}

// Manager implements trip insertion, truncation, restoration and deletion.
// Every operation returns a new schedule snapshot, finishes with a
// chronological re-sort plus dense renumbering, and closes with the tail
// recovery pass.
type Manager struct {
	classifier  *band.Classifier
	periodBands map[string]model.ServiceBandName
	segmentMin  int
	log         logger.Logger
}

// NewManager creates a Manager with the default segment travel time.
func NewManager(cls *band.Classifier, log logger.Logger) *Manager {
	if log == nil {
		log = logger.NopLogger{}
	}
	if cls == nil {
		cls = band.NewClassifier(log)
	}
	return &Manager{classifier: cls, segmentMin: DefaultSegmentTravelMinutes, log: log}
}

// SetPeriodBands installs the period -> band mapping used to classify newly
// created trips.
func (m *Manager) SetPeriodBands(bands map[string]model.ServiceBandName) { m.periodBands = bands }

// SetSegmentTravelMinutes overrides the default per-segment travel time.
func (m *Manager) SetSegmentTravelMinutes(minutes int) {
	if minutes > 0 {
		m.segmentMin = minutes
	}
}

// AddTrip inserts a new trip per the request. A missing anchor is a no-op;
// infeasible time parameters return an explicit error since silently mangled
// times would corrupt the block chain.
func (m *Manager) AddTrip(s model.Schedule, req AddTripRequest, templates model.RecoveryTemplates) (model.Schedule, error) {
	if len(s.TimePoints) < 2 {
		return s, fmt.Errorf("add trip: schedule needs at least two timepoints")
	}
	switch req.Mode {
	case AddAfterLast:
		return m.addAfterLast(s, req, templates)
	case AddEarly:
		return m.addEarly(s, req, templates)
	case AddMidRoute:
		return m.addMidRoute(s, req, templates)
	default:
		return s, fmt.Errorf("add trip: unknown mode %q", req.Mode)
	}
}

func (m *Manager) addAfterLast(s model.Schedule, req AddTripRequest, templates model.RecoveryTemplates) (model.Schedule, error) {
	anchorIdx := s.TripIndex(req.AnchorTripNumber)
	if anchorIdx < 0 {
		m.log.Warnf("add trip: anchor trip %d not found, ignoring", req.AnchorTripNumber)
		return s, nil
	}
	out := s.Clone()
	blockNumber := out.Trips[anchorIdx].BlockNumber
	idxs := out.BlockTripIndexes(blockNumber)
	last := out.Trips[idxs[len(idxs)-1]]

	// The block's true end is the last arrival plus the recovery currently
	// hidden by the tail rule; starting there keeps the chain intact once the
	// enforcer restores the stash.
	lastID := out.TimePoints[last.ActiveEnd(len(out.TimePoints))].ID
	start := last.LastActiveDepartureMinutes(out.TimePoints)
	if start == timeutil.Invalid {
		return s, fmt.Errorf("add trip: block %d has no usable end time", blockNumber)
	}
	start += last.HiddenTailRecoveryTimes[lastID]

	trip := m.buildTrip(out.TimePoints, blockNumber, start, m.segmentMin, req.ServiceBand, templates, timeutil.Invalid)
	out.Trips = append(out.Trips, trip)
	finalize(&out)
	return out, nil
}

func (m *Manager) addEarly(s model.Schedule, req AddTripRequest, templates model.RecoveryTemplates) (model.Schedule, error) {
	anchorIdx := s.TripIndex(req.AnchorTripNumber)
	if anchorIdx < 0 {
		m.log.Warnf("add trip: anchor trip %d not found, ignoring", req.AnchorTripNumber)
		return s, nil
	}
	start := timeutil.ParseHHMM(req.StartTime)
	if start == timeutil.Invalid {
		return s, fmt.Errorf("add trip: early trip needs a valid start time, got %q", req.StartTime)
	}
	out := s.Clone()
	blockNumber := out.Trips[anchorIdx].BlockNumber
	idxs := out.BlockTripIndexes(blockNumber)
	end := out.Trips[idxs[0]].StartMinutes(out.TimePoints)
	if end == timeutil.Invalid {
		return s, fmt.Errorf("add trip: block %d has no usable first departure", blockNumber)
	}
	trip, err := m.buildPinnedTrip(out.TimePoints, blockNumber, start, end, req.ServiceBand, templates)
	if err != nil {
		return s, err
	}
	out.Trips = append(out.Trips, trip)
	finalize(&out)
	return out, nil
}

func (m *Manager) addMidRoute(s model.Schedule, req AddTripRequest, templates model.RecoveryTemplates) (model.Schedule, error) {
	start := timeutil.ParseHHMM(req.StartTime)
	end := timeutil.ParseHHMM(req.EndTime)
	if start == timeutil.Invalid || end == timeutil.Invalid {
		return s, fmt.Errorf("add trip: mid-route trip needs valid start and end times")
	}
	out := s.Clone()
	// A mid-route trip cannot share either neighbouring block, so it opens the
	// lowest-numbered unused block.
	blockNumber := lowestUnusedBlock(out)
	trip, err := m.buildPinnedTrip(out.TimePoints, blockNumber, start, end, req.ServiceBand, templates)
	if err != nil {
		return s, err
	}
	out.Trips = append(out.Trips, trip)
	finalize(&out)
	return out, nil
}

// buildTrip walks forward from start using a fixed per-segment travel time
// plus the band's recovery template. endPin, when valid, forces the final
// departure to the exact target to avoid integer drift.
func (m *Manager) buildTrip(tps []model.TimePoint, blockNumber, start, segmentMinutes int, bandName model.ServiceBandName, templates model.RecoveryTemplates, endPin int) model.Trip {
	if bandName == "" {
		bandName = m.classifier.DetermineForTime(timeutil.FormatHHMM(start), m.periodBands)
	}
	tmpl := templates[bandName]

	trip := model.Trip{
		BlockNumber:    blockNumber,
		ServiceBand:    bandName,
		ArrivalTimes:   make(map[string]string, len(tps)),
		DepartureTimes: make(map[string]string, len(tps)),
		RecoveryTimes:  make(map[string]int, len(tps)),
	}
	cursor := start
	for i, tp := range tps {
		if i == 0 {
			trip.ArrivalTimes[tp.ID] = timeutil.FormatHHMM(start)
			trip.RecoveryTimes[tp.ID] = 0
			trip.DepartureTimes[tp.ID] = timeutil.FormatHHMM(start)
			continue
		}
		arrival := cursor + segmentMinutes
		recovery := model.TemplateValue(tmpl, i)
		departure := arrival + recovery
		if i == len(tps)-1 && endPin != timeutil.Invalid {
			departure = endPin
			recovery = departure - arrival
			if recovery < 0 {
				// Pin wins over the template; clamp by moving the arrival.
				arrival = departure
				recovery = 0
			}
		}
		trip.ArrivalTimes[tp.ID] = timeutil.FormatHHMM(arrival)
		trip.RecoveryTimes[tp.ID] = recovery
		trip.DepartureTimes[tp.ID] = timeutil.FormatHHMM(departure)
		cursor = departure
	}
	trip.RefreshDerived()
	return trip
}

// buildPinnedTrip solves evenly for the per-segment travel time of a trip
// with a known target end.
func (m *Manager) buildPinnedTrip(tps []model.TimePoint, blockNumber, start, end int, bandName model.ServiceBandName, templates model.RecoveryTemplates) (model.Trip, error) {
	if end <= start {
		return model.Trip{}, fmt.Errorf("add trip: end %s is not after start %s",
			timeutil.FormatHHMM(end), timeutil.FormatHHMM(start))
	}
	name := bandName
	if name == "" {
		name = m.classifier.DetermineForTime(timeutil.FormatHHMM(start), m.periodBands)
	}
	tmpl := templates[name]
	totalTemplate := 0
	for i := 1; i < len(tps); i++ {
		totalTemplate += model.TemplateValue(tmpl, i)
	}
	segments := len(tps) - 1
	perSegment := (end - start - totalTemplate) / segments
	if perSegment <= 0 {
		return model.Trip{}, fmt.Errorf("add trip: window %s-%s too short for %d segments",
			timeutil.FormatHHMM(start), timeutil.FormatHHMM(end), segments)
	}
	return m.buildTrip(tps, blockNumber, start, perSegment, name, templates, end), nil
}

// EndTrip truncates a trip at the given timepoint index: times after the cut
// are cleared, recovery from the cut onward is zeroed, and all
// chronologically later trips of the same block are deleted since their
// service is cancelled downstream of the cut. The pre-truncation times are
// backed up once for restoration.
func (m *Manager) EndTrip(s model.Schedule, tripNumber, timepointIndex int) (model.Schedule, error) {
	idx := s.TripIndex(tripNumber)
	if idx < 0 {
		m.log.Warnf("end trip: trip %d not found, ignoring", tripNumber)
		return s, nil
	}
	if timepointIndex < 0 || timepointIndex >= len(s.TimePoints) {
		m.log.Warnf("end trip: timepoint index %d out of range, ignoring", timepointIndex)
		return s, nil
	}
	out := s.Clone()
	tr := &out.Trips[idx]

	if tr.OriginalArrivalTimes == nil {
		tr.OriginalArrivalTimes = copyStringMap(tr.ArrivalTimes)
		tr.OriginalDepartureTimes = copyStringMap(tr.DepartureTimes)
		tr.OriginalRecoveryTimes = copyIntMap(tr.RecoveryTimes)
	}

	for j, tp := range out.TimePoints {
		if j > timepointIndex {
			delete(tr.ArrivalTimes, tp.ID)
			delete(tr.DepartureTimes, tp.ID)
		}
		if j >= timepointIndex {
			if _, ok := tr.RecoveryTimes[tp.ID]; ok {
				tr.RecoveryTimes[tp.ID] = 0
			}
		}
	}
	// With zero recovery at the cut, the departure collapses onto the arrival.
	cutID := out.TimePoints[timepointIndex].ID
	if arr, ok := tr.ArrivalTimes[cutID]; ok && timeutil.ParseHHMM(arr) != timeutil.Invalid {
		tr.DepartureTimes[cutID] = arr
	}
	cut := timepointIndex
	tr.TripEndIndex = &cut
	tr.RefreshDerived()

	removeLaterBlockTrips(&out, idx)
	finalize(&out)
	return out, nil
}

// RestoreTrip reverses EndTrip for a single truncated trip. Later trips that
// EndTrip removed from the block are not regenerated. A truncated trip whose
// backups are missing fails loudly: restoring without them would silently
// fabricate times.
func (m *Manager) RestoreTrip(s model.Schedule, tripNumber int) (model.Schedule, error) {
	idx := s.TripIndex(tripNumber)
	if idx < 0 {
		m.log.Warnf("restore trip: trip %d not found, ignoring", tripNumber)
		return s, nil
	}
	if s.Trips[idx].TripEndIndex == nil {
		m.log.Warnf("restore trip: trip %d is not truncated, ignoring", tripNumber)
		return s, nil
	}
	if s.Trips[idx].OriginalArrivalTimes == nil {
		return s, fmt.Errorf("restore trip %d: truncation backups are missing", tripNumber)
	}
	out := s.Clone()
	tr := &out.Trips[idx]
	tr.ArrivalTimes = copyStringMap(tr.OriginalArrivalTimes)
	tr.DepartureTimes = copyStringMap(tr.OriginalDepartureTimes)
	tr.RecoveryTimes = copyIntMap(tr.OriginalRecoveryTimes)
	tr.TripEndIndex = nil
	tr.OriginalArrivalTimes = nil
	tr.OriginalDepartureTimes = nil
	tr.OriginalRecoveryTimes = nil
	tr.RefreshDerived()

	finalize(&out)
	return out, nil
}

// DeleteTrip removes one trip and renumbers the survivors 1..N by
// chronological order.
func (m *Manager) DeleteTrip(s model.Schedule, tripNumber int) (model.Schedule, error) {
	idx := s.TripIndex(tripNumber)
	if idx < 0 {
		m.log.Warnf("delete trip: trip %d not found, ignoring", tripNumber)
		return s, nil
	}
	out := s.Clone()
	out.Trips = append(out.Trips[:idx], out.Trips[idx+1:]...)
	finalize(&out)
	return out, nil
}

// finalize is the closing pass shared by every lifecycle operation.
func finalize(s *model.Schedule) {
	s.RenumberTrips()
	cascade.EnforceTailRecovery(s)
}

// removeLaterBlockTrips drops every trip of the same block that starts after
// the trip at keepIdx.
func removeLaterBlockTrips(s *model.Schedule, keepIdx int) {
	kept := s.Trips[keepIdx]
	cutoff := kept.StartMinutes(s.TimePoints)
	if cutoff == timeutil.Invalid {
		return
	}
	var trips []model.Trip
	for i, t := range s.Trips {
		if i != keepIdx && t.BlockNumber == kept.BlockNumber {
			if start := t.StartMinutes(s.TimePoints); start != timeutil.Invalid && start > cutoff {
				continue
			}
		}
		trips = append(trips, t)
	}
	s.Trips = trips
}

func lowestUnusedBlock(s model.Schedule) int {
	used := make(map[int]bool)
	for _, t := range s.Trips {
		used[t.BlockNumber] = true
	}
	n := 1
	for used[n] {
		n++
	}
	return n
}

func copyStringMap(m map[string]string) map[string]string {
	cp := make(map[string]string, len(m))
	for k, v := range m {
		cp[k] = v
	}
	return cp
}

func copyIntMap(m map[string]int) map[string]int {
	cp := make(map[string]int, len(m))
	for k, v := range m {
		cp[k] = v
	}
	return cp
}
