package config

// APIConfig defines settings for the HTTP editing API.
type APIConfig struct {
	// Addr is the listen address, e.g. ":8080".
	Addr string `json:"addr"`
	// ReadTimeoutSeconds bounds request header reads.
	ReadTimeoutSeconds int `json:"read_timeout_seconds"`
}

// SetDefaults applies sane defaults.
func (c *APIConfig) SetDefaults() {
	if c.Addr == "" {
		c.Addr = ":8080"
	}
	if c.ReadTimeoutSeconds == 0 {
		c.ReadTimeoutSeconds = 5
	}
}
