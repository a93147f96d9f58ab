package cascade

import "time"

// Guard limits bounding one cascade pass through a block. They protect
// against pathological or cyclic block configurations, not normal load;
// exceeding either aborts the remaining propagation with a warning instead of
// looping indefinitely.
const (
	DefaultMaxIterations = 100
	DefaultMaxDuration   = 5 * time.Second
)

// Config defines cascade guard settings.
type Config struct {
	// MaxIterations caps the number of trips shifted per block cascade.
	MaxIterations int `json:"max_iterations" validate:"gte=0"`
	// MaxSecondsPerBlock caps the wall-clock time of one block cascade.
	MaxSecondsPerBlock int `json:"max_seconds_per_block" validate:"gte=0"`
}

// SetDefaults applies the documented guard constants where unset.
func (c *Config) SetDefaults() {
	if c.MaxIterations == 0 {
		c.MaxIterations = DefaultMaxIterations
	}
	if c.MaxSecondsPerBlock == 0 {
		c.MaxSecondsPerBlock = int(DefaultMaxDuration / time.Second)
	}
}

// MaxDuration returns the wall-clock budget as a duration.
func (c Config) MaxDuration() time.Duration {
	return time.Duration(c.MaxSecondsPerBlock) * time.Second
}
