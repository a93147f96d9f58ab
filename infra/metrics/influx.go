package metrics

import (
	"context"
	"net/http"
	"strconv"
	"strings"
	"time"

	influxdb2 "github.com/influxdata/influxdb-client-go/v2"
	"github.com/influxdata/influxdb-client-go/v2/api"
	"github.com/influxdata/influxdb-client-go/v2/api/write"

	coremetrics "github.com/mikermcconnell/BusScheduler-sub001/core/metrics"
	"github.com/mikermcconnell/BusScheduler-sub001/infra/logger"
)

// InfluxSink writes schedule edit events to an InfluxDB instance using the
// official client.
type InfluxSink struct {
	client   influxdb2.Client
	writeAPI api.WriteAPIBlocking
	log      logger.Logger
}

// NewInfluxSink creates a new sink configured for the given InfluxDB endpoint.
func NewInfluxSink(url, token, org, bucket string) *InfluxSink {
	base := strings.TrimSuffix(url, "/api/v2/write")
	client := influxdb2.NewClientWithOptions(base, token,
		influxdb2.DefaultOptions().SetHTTPClient(&http.Client{Timeout: 5 * time.Second}))
	return &InfluxSink{
		client:   client,
		writeAPI: client.WriteAPIBlocking(org, bucket),
		log:      logger.New("influx-sink"),
	}
}

// NewInfluxSinkWithFallback tries to ping the InfluxDB instance and
// returns a NopSink if the health check fails.
func NewInfluxSinkWithFallback(url, token, org, bucket string) coremetrics.Sink {
	sink := NewInfluxSink(url, token, org, bucket)
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	health, err := sink.client.Health(ctx)
	if err != nil || health.Status != "pass" {
		if err != nil {
			sink.log.Errorf("influx health check error: %v", err)
		} else {
			sink.log.Errorf("influx health status: %s", health.Status)
		}
		sink.client.Close()
		return coremetrics.NopSink{}
	}
	return sink
}

// RecordEdit writes the committed edit as a line protocol event.
func (s *InfluxSink) RecordEdit(ev coremetrics.EditEvent) error {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	p := write.NewPointWithMeasurement("schedule_edit").
		AddTag("op", ev.Op).
		AddTag("revision", ev.Revision).
		AddTag("component", "schedule_service").
		AddField("trip_number", ev.TripNumber).
		AddField("duration_ms", ev.Duration.Seconds()*1000).
		SetTime(ev.Time)
	return s.writeAPI.WritePoint(ctx, p)
}

// RecordCascade persists the result of a cascade run.
func (s *InfluxSink) RecordCascade(ev coremetrics.CascadeEvent) error {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	p := write.NewPointWithMeasurement("schedule_cascade").
		AddTag("block", strconv.Itoa(ev.BlockNumber)).
		AddTag("aborted", strconv.FormatBool(ev.Aborted)).
		AddTag("component", "cascade_engine").
		AddField("trips_shifted", ev.TripsShifted).
		AddField("duration_ms", ev.Duration.Seconds()*1000).
		SetTime(ev.Time)
	return s.writeAPI.WritePoint(ctx, p)
}

// RecordBlockReassign persists a block reassignment pass.
func (s *InfluxSink) RecordBlockReassign(ev coremetrics.BlockReassignEvent) error {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	p := write.NewPointWithMeasurement("block_reassignment").
		AddTag("component", "block_assigner").
		AddField("blocks_before", ev.BlocksBefore).
		AddField("blocks_after", ev.BlocksAfter).
		AddField("warnings", ev.Warnings).
		SetTime(ev.Time)
	return s.writeAPI.WritePoint(ctx, p)
}

// Close shuts down the underlying InfluxDB client.
func (s *InfluxSink) Close() {
	s.client.Close()
}
