package config

import (
	"fmt"
	"path/filepath"
	"strings"

	"github.com/knadh/koanf/parsers/json"
	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/v2"

	"github.com/mikermcconnell/BusScheduler-sub001/core/cascade"
	"github.com/mikermcconnell/BusScheduler-sub001/core/metrics"
	"github.com/mikermcconnell/BusScheduler-sub001/infra/notify"
)

type Config struct {
	Cascade cascade.Config `json:"cascade"`
	Store   StoreConfig    `json:"store"`
	API     APIConfig      `json:"api"`
	MQTT    notify.Config  `json:"mqtt"`
	Metrics metrics.Config `json:"metrics"`
	Trips   TripsConfig    `json:"trips"`
}

func Load(path string) (*Config, error) {
	k := koanf.New(".")
	ext := strings.ToLower(filepath.Ext(path))
	var parser koanf.Parser
	switch ext {
	case ".yaml", ".yml":
		parser = yaml.Parser()
	case ".json":
		parser = json.Parser()
	default:
		return nil, fmt.Errorf("unsupported config format: %s", ext)
	}
	if err := k.Load(file.Provider(path), parser); err != nil {
		return nil, err
	}
	// Optional environment overrides
	if err := k.Load(env.Provider("SCHED_", "__", func(s string) string {
		s = strings.TrimPrefix(strings.ToLower(s), "sched_")
		return strings.ReplaceAll(s, "__", ".")
	}), nil); err != nil {
		return nil, err
	}
	var cfg Config
	if err := k.UnmarshalWithConf("", &cfg, koanf.UnmarshalConf{Tag: "json"}); err != nil {
		return nil, err
	}
	cfg.Cascade.SetDefaults()
	cfg.Store.SetDefaults()
	cfg.API.SetDefaults()
	cfg.MQTT.SetDefaults()
	cfg.Trips.SetDefaults()
	if err := cfg.Store.Validate(); err != nil {
		return nil, err
	}
	if err := cfg.Trips.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}
