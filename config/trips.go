package config

import "github.com/go-playground/validator/v10"

// TripsConfig tunes trip construction.
type TripsConfig struct {
	// SegmentTravelMinutes is the assumed travel time between consecutive
	// timepoints when historical data offers no estimate.
	SegmentTravelMinutes int `json:"segment_travel_minutes" validate:"gte=1,lte=240"`
}

// SetDefaults applies sane defaults.
func (c *TripsConfig) SetDefaults() {
	if c.SegmentTravelMinutes == 0 {
		c.SegmentTravelMinutes = 15
	}
}

// Validate checks field constraints.
func (c TripsConfig) Validate() error {
	return validator.New().Struct(c)
}
