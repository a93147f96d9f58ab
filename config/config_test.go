package config

import (
	"os"
	"path/filepath"
	"testing"
)

func TestLoad(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	data := `cascade:
  max_iterations: 50
  max_seconds_per_block: 2
store:
  backend: "file"
  path: "snapshots/schedule.json"
api:
  addr: ":9090"
mqtt:
  enabled: true
  broker: "tcp://localhost:1883"
  client_id: "cli"
  topic: "schedule/edits"
metrics:
  prometheus_enabled: true
  prometheus_port: "2112"
trips:
  segment_travel_minutes: 12
`
	if err := os.WriteFile(path, []byte(data), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("load error: %v", err)
	}
	checks := []struct {
		name string
		got  any
		want any
	}{
		{"cascade.max_iterations", cfg.Cascade.MaxIterations, 50},
		{"cascade.max_seconds_per_block", cfg.Cascade.MaxSecondsPerBlock, 2},
		{"store.backend", cfg.Store.Backend, "file"},
		{"store.path", cfg.Store.Path, "snapshots/schedule.json"},
		{"api.addr", cfg.API.Addr, ":9090"},
		{"mqtt.broker", cfg.MQTT.Broker, "tcp://localhost:1883"},
		{"mqtt.topic", cfg.MQTT.Topic, "schedule/edits"},
		{"metrics.prometheus_enabled", cfg.Metrics.PrometheusEnabled, true},
		{"metrics.prometheus_port", cfg.Metrics.PrometheusPort, "2112"},
		{"trips.segment_travel_minutes", cfg.Trips.SegmentTravelMinutes, 12},
	}
	for _, c := range checks {
		if c.got != c.want {
			t.Errorf("%s mismatch: %v", c.name, c.got)
		}
	}
}

func TestLoadDefaults(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.json")
	if err := os.WriteFile(path, []byte(`{}`), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("load error: %v", err)
	}
	if cfg.Cascade.MaxIterations != 100 {
		t.Errorf("max_iterations default: %d", cfg.Cascade.MaxIterations)
	}
	if cfg.Store.Backend != "file" {
		t.Errorf("store backend default: %s", cfg.Store.Backend)
	}
	if cfg.API.Addr != ":8080" {
		t.Errorf("api addr default: %s", cfg.API.Addr)
	}
	if cfg.Trips.SegmentTravelMinutes != 15 {
		t.Errorf("segment minutes default: %d", cfg.Trips.SegmentTravelMinutes)
	}
}

func TestLoadUnsupportedFormat(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.toml")
	if err := os.WriteFile(path, []byte(""), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}
	if _, err := Load(path); err == nil {
		t.Fatal("expected error for unsupported format")
	}
}

func TestStoreConfigValidate(t *testing.T) {
	bad := StoreConfig{Backend: "redis"}
	if err := bad.Validate(); err == nil {
		t.Fatal("expected error for unknown backend")
	}
	pg := StoreConfig{Backend: "postgres"}
	if err := pg.Validate(); err == nil {
		t.Fatal("expected error for postgres without dsn")
	}
}

func TestTripsConfigValidate(t *testing.T) {
	bad := TripsConfig{SegmentTravelMinutes: -3}
	if err := bad.Validate(); err == nil {
		t.Fatal("expected error for negative segment minutes")
	}
}
