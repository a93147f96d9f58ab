package metrics

import coremetrics "github.com/mikermcconnell/BusScheduler-sub001/core/metrics"

// MultiSink fans edit events out to multiple sinks.
type MultiSink struct {
	Sinks []coremetrics.Sink
}

// NewMultiSink creates a MultiSink with the provided sinks.
func NewMultiSink(sinks ...coremetrics.Sink) *MultiSink {
	return &MultiSink{Sinks: sinks}
}

// RecordEdit forwards the record to all sinks, returning the first error
// encountered.
func (m *MultiSink) RecordEdit(ev coremetrics.EditEvent) error {
	for _, s := range m.Sinks {
		if err := s.RecordEdit(ev); err != nil {
			return err
		}
	}
	return nil
}

// RecordCascade forwards cascade events to sinks that support them.
func (m *MultiSink) RecordCascade(ev coremetrics.CascadeEvent) error {
	for _, s := range m.Sinks {
		if rec, ok := s.(coremetrics.CascadeRecorder); ok {
			if err := rec.RecordCascade(ev); err != nil {
				return err
			}
		}
	}
	return nil
}

// RecordBlockReassign forwards reassignment events to sinks that support them.
func (m *MultiSink) RecordBlockReassign(ev coremetrics.BlockReassignEvent) error {
	for _, s := range m.Sinks {
		if rec, ok := s.(coremetrics.BlockReassignRecorder); ok {
			if err := rec.RecordBlockReassign(ev); err != nil {
				return err
			}
		}
	}
	return nil
}
