package app

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/mikermcconnell/BusScheduler-sub001/core/band"
	"github.com/mikermcconnell/BusScheduler-sub001/core/blocks"
	"github.com/mikermcconnell/BusScheduler-sub001/core/cascade"
	"github.com/mikermcconnell/BusScheduler-sub001/core/lifecycle"
	"github.com/mikermcconnell/BusScheduler-sub001/core/logger"
	coremetrics "github.com/mikermcconnell/BusScheduler-sub001/core/metrics"
	"github.com/mikermcconnell/BusScheduler-sub001/core/model"
	corestore "github.com/mikermcconnell/BusScheduler-sub001/core/store"
	schedtemplate "github.com/mikermcconnell/BusScheduler-sub001/core/template"
	"github.com/mikermcconnell/BusScheduler-sub001/internal/eventbus"
)

// Options collects the collaborators of a Service. Nil fields fall back to
// no-op implementations so tests can wire only what they exercise.
type Options struct {
	Cascade   cascade.Config
	Store     corestore.SnapshotStore
	Bus       *eventbus.EditBus
	Sink      coremetrics.Sink
	Log       logger.Logger
	Templates model.RecoveryTemplates

	// SegmentTravelMinutes overrides the default travel estimate used when
	// constructing new trips.
	SegmentTravelMinutes int
}

// Service owns the working schedule and serializes every edit. Operations run
// on the pure core engines against a snapshot; on success the result is
// committed: one revision saved, one event published, one metric recorded.
type Service struct {
	mu        sync.Mutex
	schedule  model.Schedule
	templates model.RecoveryTemplates

	classifier  *band.Classifier
	engine      *cascade.Engine
	manager     *lifecycle.Manager
	applier     *schedtemplate.Applier
	assigner    *blocks.Assigner
	periodBands map[string]model.ServiceBandName

	store corestore.SnapshotStore
	bus   *eventbus.EditBus
	sink  coremetrics.Sink
	log   logger.Logger
	now   func() time.Time
}

// New wires a Service from the given options.
func New(opts Options) *Service {
	if opts.Log == nil {
		opts.Log = logger.NopLogger{}
	}
	if opts.Store == nil {
		opts.Store = corestore.NopStore{}
	}
	if opts.Sink == nil {
		opts.Sink = coremetrics.NopSink{}
	}
	opts.Cascade.SetDefaults()

	cls := band.NewClassifier(opts.Log)
	engine := cascade.NewEngine(opts.Cascade, cls, opts.Log)
	if rec, ok := opts.Sink.(coremetrics.CascadeRecorder); ok {
		engine.SetSink(rec)
	}
	manager := lifecycle.NewManager(cls, opts.Log)
	if opts.SegmentTravelMinutes > 0 {
		manager.SetSegmentTravelMinutes(opts.SegmentTravelMinutes)
	}
	templates := opts.Templates
	if templates == nil {
		templates = model.RecoveryTemplates{}
	}

	return &Service{
		templates:  templates,
		classifier: cls,
		engine:     engine,
		manager:    manager,
		applier:    schedtemplate.NewApplier(engine, opts.Log),
		assigner:   blocks.NewAssigner(opts.Log),
		store:      opts.Store,
		bus:        opts.Bus,
		sink:       opts.Sink,
		log:        opts.Log,
		now:        time.Now,
	}
}

// LoadFromStore replaces the working schedule with the last saved revision.
// A missing snapshot leaves the schedule empty and is not an error.
func (s *Service) LoadFromStore(ctx context.Context) error {
	rev, err := s.store.Load(ctx)
	if err != nil {
		if errors.Is(err, corestore.ErrNoSnapshot) {
			return nil
		}
		return err
	}
	s.mu.Lock()
	s.schedule = rev.Schedule.Clone()
	s.mu.Unlock()
	s.log.Infof("loaded revision %s with %d trips", rev.ID, len(rev.Schedule.Trips))
	return nil
}

// SetSchedule replaces the working schedule without persisting.
func (s *Service) SetSchedule(sched model.Schedule) {
	s.mu.Lock()
	s.schedule = sched.Clone()
	s.mu.Unlock()
}

// Schedule returns a snapshot of the working schedule.
func (s *Service) Schedule() model.Schedule {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.schedule.Clone()
}

// Templates returns a copy of the recovery templates.
func (s *Service) Templates() model.RecoveryTemplates {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.templates.Clone()
}

// SetTravelTimes installs the historical travel-time table used for band
// classification. The per-period band map is precomputed once here.
func (s *Service) SetTravelTimes(rows []band.TravelTimeRow, deleted band.PeriodSet) {
	bands := s.classifier.BuildPeriodBandMap(rows, deleted)
	s.mu.Lock()
	s.periodBands = bands
	s.mu.Unlock()
	s.engine.SetPeriodBands(bands)
	s.manager.SetPeriodBands(bands)
}

// ClassifyServiceBand returns the band for a trip departing at the given
// time. Read only; nothing is committed.
func (s *Service) ClassifyServiceBand(departure string) model.ServiceBandName {
	s.mu.Lock()
	bands := s.periodBands
	s.mu.Unlock()
	return s.classifier.DetermineForTime(departure, bands)
}

// commit persists the new schedule and fans out the edit notification. The
// caller holds s.mu.
func (s *Service) commit(ctx context.Context, op string, tripNumber int, next model.Schedule, started time.Time) (model.Schedule, error) {
	rev := corestore.Revision{
		ID:       uuid.NewString(),
		Time:     s.now(),
		Op:       op,
		Schedule: next,
	}
	if err := s.store.Save(ctx, rev); err != nil {
		return model.Schedule{}, err
	}
	s.schedule = next

	if s.bus != nil {
		s.bus.Publish(eventbus.EditEvent{
			Op:         op,
			TripNumber: tripNumber,
			Revision:   rev.ID,
			Trips:      len(next.Trips),
			Time:       rev.Time,
		})
	}
	if err := s.sink.RecordEdit(coremetrics.EditEvent{
		Op:         op,
		TripNumber: tripNumber,
		Revision:   rev.ID,
		Duration:   s.now().Sub(started),
		Time:       rev.Time,
	}); err != nil {
		s.log.Warnf("metrics sink: %v", err)
	}
	return next.Clone(), nil
}

// ApplyRecoveryEdit sets the recovery minutes of one trip at one timepoint
// and cascades the resulting shift through the block.
func (s *Service) ApplyRecoveryEdit(ctx context.Context, tripNumber int, timepointID string, minutes int) (model.Schedule, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	started := s.now()
	next := s.engine.ApplyRecoveryEdit(s.schedule, tripNumber, timepointID, minutes)
	return s.commit(ctx, "applyRecoveryEdit", tripNumber, next, started)
}

// EndTrip truncates a trip at the given timepoint index and cancels later
// trips of the same block.
func (s *Service) EndTrip(ctx context.Context, tripNumber, timepointIndex int) (model.Schedule, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	started := s.now()
	next, err := s.manager.EndTrip(s.schedule, tripNumber, timepointIndex)
	if err != nil {
		return model.Schedule{}, err
	}
	return s.commit(ctx, "endTrip", tripNumber, next, started)
}

// RestoreTrip undoes a truncation using the backups taken by EndTrip.
func (s *Service) RestoreTrip(ctx context.Context, tripNumber int) (model.Schedule, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	started := s.now()
	next, err := s.manager.RestoreTrip(s.schedule, tripNumber)
	if err != nil {
		return model.Schedule{}, err
	}
	return s.commit(ctx, "restoreTrip", tripNumber, next, started)
}

// DeleteTrip removes a trip and renumbers the remainder.
func (s *Service) DeleteTrip(ctx context.Context, tripNumber int) (model.Schedule, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	started := s.now()
	next, err := s.manager.DeleteTrip(s.schedule, tripNumber)
	if err != nil {
		return model.Schedule{}, err
	}
	return s.commit(ctx, "deleteTrip", tripNumber, next, started)
}

// AddTrip constructs and inserts a new trip per the request.
func (s *Service) AddTrip(ctx context.Context, req lifecycle.AddTripRequest) (model.Schedule, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	started := s.now()
	next, err := s.manager.AddTrip(s.schedule, req, s.templates)
	if err != nil {
		return model.Schedule{}, err
	}
	return s.commit(ctx, "addTrip", req.AnchorTripNumber, next, started)
}

// ApplyRecoveryTemplate rewrites the recovery column of every trip in the
// given band, one cascaded edit per cell.
func (s *Service) ApplyRecoveryTemplate(ctx context.Context, bandName model.ServiceBandName, tmpl []int) (model.Schedule, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	started := s.now()
	s.templates[bandName] = append([]int(nil), tmpl...)
	next := s.applier.ApplyTemplate(s.schedule, bandName, tmpl)
	return s.commit(ctx, "applyRecoveryTemplate", 0, next, started)
}

// ApplyTargetRecoveryPercentage derives a template from the band's travel
// time and applies it. The derived template is returned alongside the new
// schedule.
func (s *Service) ApplyTargetRecoveryPercentage(ctx context.Context, bandName model.ServiceBandName, pct float64) (model.Schedule, []int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	started := s.now()
	next, tmpl, err := s.applier.ApplyTargetRecoveryPercentage(s.schedule, bandName, pct)
	if err != nil {
		return model.Schedule{}, nil, err
	}
	s.templates[bandName] = append([]int(nil), tmpl...)
	committed, err := s.commit(ctx, "applyTargetRecoveryPercentage", 0, next, started)
	if err != nil {
		return model.Schedule{}, nil, err
	}
	return committed, tmpl, nil
}

// ReassignBlocksIfNeeded repartitions trips into blocks when the current
// assignment has overlapping trips.
func (s *Service) ReassignBlocksIfNeeded(ctx context.Context) (model.Schedule, []string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	started := s.now()
	before := len(s.schedule.BlockNumbers())
	next, warnings := s.assigner.ReassignIfNeeded(s.schedule)
	if rec, ok := s.sink.(coremetrics.BlockReassignRecorder); ok {
		if err := rec.RecordBlockReassign(coremetrics.BlockReassignEvent{
			BlocksBefore: before,
			BlocksAfter:  len(next.BlockNumbers()),
			Warnings:     len(warnings),
			Time:         s.now(),
		}); err != nil {
			s.log.Warnf("metrics sink: %v", err)
		}
	}
	committed, err := s.commit(ctx, "reassignBlocksIfNeeded", 0, next, started)
	if err != nil {
		return model.Schedule{}, nil, err
	}
	return committed, warnings, nil
}

// EnforceTailRecoveryRules normalizes end-of-block recovery across the whole
// schedule.
func (s *Service) EnforceTailRecoveryRules(ctx context.Context) (model.Schedule, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	started := s.now()
	next := s.schedule.Clone()
	cascade.EnforceTailRecovery(&next)
	return s.commit(ctx, "enforceTailRecoveryRules", 0, next, started)
}
