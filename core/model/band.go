package model

// ServiceBandName labels a travel-time class. The five canonical bands are
// ordered fastest to slowest; imported schedules may carry free-form legacy
// labels, so the type stays an open string.
type ServiceBandName string

const (
	BandFastest  ServiceBandName = "Fastest Service"
	BandFast     ServiceBandName = "Fast Service"
	BandStandard ServiceBandName = "Standard Service"
	BandSlow     ServiceBandName = "Slow Service"
	BandSlowest  ServiceBandName = "Slowest Service"
)

// OrderedBands returns the canonical bands fastest first.
func OrderedBands() []ServiceBandName {
	return []ServiceBandName{BandFastest, BandFast, BandStandard, BandSlow, BandSlowest}
}

// ServiceBand describes one travel-time class of a schedule.
type ServiceBand struct {
	Name         ServiceBandName `json:"name"`
	Color        string          `json:"color,omitempty"`
	TotalMinutes int             `json:"total_minutes,omitempty"`
}
