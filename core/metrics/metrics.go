package metrics

import "time"

// EditEvent records one committed schedule operation.
type EditEvent struct {
	Op         string
	TripNumber int
	Revision   string
	Duration   time.Duration
	Time       time.Time
}

// CascadeEvent captures one forward propagation through a block.
type CascadeEvent struct {
	BlockNumber  int
	TripsShifted int
	Aborted      bool
	Duration     time.Duration
	Time         time.Time
}

// BlockReassignEvent captures a block reassignment pass.
type BlockReassignEvent struct {
	BlocksBefore int
	BlocksAfter  int
	Warnings     int
	Time         time.Time
}

// Sink records committed edits for observability purposes.
type Sink interface {
	RecordEdit(ev EditEvent) error
}

// CascadeRecorder is implemented by sinks able to record cascade runs.
type CascadeRecorder interface {
	RecordCascade(ev CascadeEvent) error
}

// BlockReassignRecorder is implemented by sinks able to record reassignments.
type BlockReassignRecorder interface {
	RecordBlockReassign(ev BlockReassignEvent) error
}

// NopSink implements every recorder with no-op methods.
type NopSink struct{}

func (NopSink) RecordEdit(EditEvent) error                   { return nil }
func (NopSink) RecordCascade(CascadeEvent) error             { return nil }
func (NopSink) RecordBlockReassign(BlockReassignEvent) error { return nil }

// Config defines settings for metrics sinks.
type Config struct {
	PrometheusEnabled bool   `json:"prometheus_enabled"`
	PrometheusPort    string `json:"prometheus_port"`
	InfluxEnabled     bool   `json:"influx_enabled"`
	InfluxURL         string `json:"influx_url"`
	InfluxToken       string `json:"influx_token"`
	InfluxOrg         string `json:"influx_org"`
	InfluxBucket      string `json:"influx_bucket"`
}
