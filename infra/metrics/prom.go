package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	coremetrics "github.com/mikermcconnell/BusScheduler-sub001/core/metrics"
)

// PromSink records schedule edit events in Prometheus metrics.
type PromSink struct {
	edits    *prometheus.CounterVec
	cascades *prometheus.HistogramVec
	blocks   prometheus.Gauge
}

// NewPromSink registers edit metrics on the default Prometheus registerer.
// The Prometheus server should be started separately using cfg.PrometheusPort.
func NewPromSink(cfg coremetrics.Config) (coremetrics.Sink, error) {
	return NewPromSinkWithRegistry(cfg, prometheus.DefaultRegisterer)
}

// NewPromSinkWithRegistry registers metrics on the provided registerer.
// A nil registerer defaults to the global Prometheus registerer.
func NewPromSinkWithRegistry(cfg coremetrics.Config, reg prometheus.Registerer) (coremetrics.Sink, error) {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	edits := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "schedule_edits_total",
		Help: "Total number of committed schedule edits",
	}, []string{"op"})
	cascades := prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "schedule_cascade_duration_seconds",
		Help:    "Time spent propagating time shifts through a block",
		Buckets: prometheus.DefBuckets,
	}, []string{"aborted"})
	blocks := prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "schedule_blocks_total",
		Help: "Number of vehicle blocks after the last reassignment pass",
	})

	if err := reg.Register(edits); err != nil {
		if are, ok := err.(prometheus.AlreadyRegisteredError); ok {
			edits = are.ExistingCollector.(*prometheus.CounterVec)
		} else {
			return nil, err
		}
	}
	if err := reg.Register(cascades); err != nil {
		if are, ok := err.(prometheus.AlreadyRegisteredError); ok {
			cascades = are.ExistingCollector.(*prometheus.HistogramVec)
		} else {
			return nil, err
		}
	}
	if err := reg.Register(blocks); err != nil {
		if are, ok := err.(prometheus.AlreadyRegisteredError); ok {
			blocks = are.ExistingCollector.(prometheus.Gauge)
		} else {
			return nil, err
		}
	}

	return &PromSink{edits: edits, cascades: cascades, blocks: blocks}, nil
}

// RecordEdit increments the counter for the committed operation.
func (s *PromSink) RecordEdit(ev coremetrics.EditEvent) error {
	s.edits.WithLabelValues(ev.Op).Inc()
	return nil
}

// RecordCascade records the cascade duration histogram.
func (s *PromSink) RecordCascade(ev coremetrics.CascadeEvent) error {
	s.cascades.WithLabelValues(strconv.FormatBool(ev.Aborted)).Observe(ev.Duration.Seconds())
	return nil
}

// RecordBlockReassign sets the block gauge after a reassignment pass.
func (s *PromSink) RecordBlockReassign(ev coremetrics.BlockReassignEvent) error {
	if s.blocks != nil {
		s.blocks.Set(float64(ev.BlocksAfter))
	}
	return nil
}

// StartPromServer exposes the default registry on /metrics at the given port.
func StartPromServer(port string) *http.Server {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.Handler())
	srv := &http.Server{
		Addr:              ":" + port,
		Handler:           mux,
		ReadHeaderTimeout: 5 * time.Second,
	}
	go func() {
		_ = srv.ListenAndServe()
	}()
	return srv
}
