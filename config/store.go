package config

import "fmt"

// StoreConfig selects and configures the snapshot persistence backend.
type StoreConfig struct {
	// Backend selects the store type: "file", "postgres" or "none".
	Backend string `json:"backend"`
	// Path is the snapshot file location for the file backend.
	Path string `json:"path"`
	// DSN is the connection string for the postgres backend.
	DSN string `json:"dsn"`
}

// SetDefaults applies sane defaults.
func (c *StoreConfig) SetDefaults() {
	if c.Backend == "" {
		c.Backend = "file"
	}
	if c.Path == "" {
		c.Path = "schedule.json"
	}
}

// Validate checks mandatory fields.
func (c StoreConfig) Validate() error {
	switch c.Backend {
	case "file":
		if c.Path == "" {
			return fmt.Errorf("path is required for the file backend")
		}
	case "postgres":
		if c.DSN == "" {
			return fmt.Errorf("dsn is required for the postgres backend")
		}
	case "none":
	default:
		return fmt.Errorf("unknown backend %s", c.Backend)
	}
	return nil
}
