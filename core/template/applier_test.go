package template

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mikermcconnell/BusScheduler-sub001/core/cascade"
	"github.com/mikermcconnell/BusScheduler-sub001/core/logger"
	"github.com/mikermcconnell/BusScheduler-sub001/core/model"
)

func TestDeriveFromTargetPercentage(t *testing.T) {
	// 20% of 40 travel minutes is 8, spread over four non-first stops.
	assert.Equal(t, []int{0, 2, 2, 2, 2}, DeriveFromTargetPercentage(40, 20, 5))
	// 25% of 38 rounds to 10: 3 each with the remainder on the last stop.
	assert.Equal(t, []int{0, 3, 3, 4}, DeriveFromTargetPercentage(38, 25, 4))
	// Remainder lands on the last index when not evenly divisible.
	assert.Equal(t, []int{0, 2, 2, 3}, DeriveFromTargetPercentage(35, 20, 4))
	assert.Equal(t, []int{0}, DeriveFromTargetPercentage(40, 20, 1))
}

func TestSetCell(t *testing.T) {
	base := model.RecoveryTemplates{model.BandFastest: []int{0, 2}}
	out, err := SetCell(base, model.BandFastest, 3, 5)
	require.NoError(t, err)
	assert.Equal(t, []int{0, 2, 0, 5}, out[model.BandFastest])
	// Input untouched.
	assert.Equal(t, []int{0, 2}, base[model.BandFastest])

	_, err = SetCell(base, model.BandFastest, -1, 5)
	assert.Error(t, err)
}

func TestBroadcastSeedsCanonicalBands(t *testing.T) {
	out := Broadcast(nil, []int{0, 3, 3})
	assert.Len(t, out, 5)
	for _, b := range model.OrderedBands() {
		assert.Equal(t, []int{0, 3, 3}, out[b])
	}
}

func TestBroadcastOverwritesExisting(t *testing.T) {
	base := model.RecoveryTemplates{
		model.BandFastest: []int{0, 1},
		"Legacy Band":     []int{9, 9},
	}
	out := Broadcast(base, []int{0, 4})
	assert.Equal(t, []int{0, 4}, out[model.BandFastest])
	assert.Equal(t, []int{0, 4}, out["Legacy Band"])
}

func bandedSchedule() model.Schedule {
	return model.Schedule{
		TimePoints: []model.TimePoint{
			{ID: "A", Name: "Terminal", Sequence: 0},
			{ID: "B", Name: "Mall", Sequence: 1},
		},
		ServiceBands: []model.ServiceBand{{Name: model.BandFastest, TotalMinutes: 40}},
		Trips: []model.Trip{
			{
				TripNumber:      1,
				BlockNumber:     1,
				DepartureTime:   "06:00",
				ServiceBand:     model.BandFastest,
				ArrivalTimes:    map[string]string{"A": "06:00", "B": "06:40"},
				DepartureTimes:  map[string]string{"A": "06:00", "B": "06:43"},
				RecoveryTimes:   map[string]int{"A": 0, "B": 3},
				RecoveryMinutes: 3,
			},
			{
				TripNumber:      2,
				BlockNumber:     2,
				DepartureTime:   "06:10",
				ServiceBand:     model.BandSlowest,
				ArrivalTimes:    map[string]string{"A": "06:10", "B": "06:55"},
				DepartureTimes:  map[string]string{"A": "06:10", "B": "06:57"},
				RecoveryTimes:   map[string]int{"A": 0, "B": 2},
				RecoveryMinutes: 2,
			},
		},
	}
}

func newApplier() *Applier {
	eng := cascade.NewEngine(cascade.Config{}, nil, logger.NopLogger{})
	return NewApplier(eng, logger.NopLogger{})
}

func TestApplyTemplateRewritesBandTrips(t *testing.T) {
	a := newApplier()
	out := a.ApplyTemplate(bandedSchedule(), model.BandFastest, []int{0, 7})

	var fast, slow model.Trip
	for _, tr := range out.Trips {
		switch tr.ServiceBand {
		case model.BandFastest:
			fast = tr
		default:
			slow = tr
		}
	}
	assert.Equal(t, 7, fast.RecoveryTimes["B"])
	assert.Equal(t, "06:47", fast.DepartureTimes["B"])
	// Trips outside the band are untouched.
	assert.Equal(t, 2, slow.RecoveryTimes["B"])
}

func TestApplyTemplateExtendsShortTemplate(t *testing.T) {
	a := newApplier()
	s := bandedSchedule()
	s.TimePoints = append(s.TimePoints, model.TimePoint{ID: "C", Name: "Hospital", Sequence: 2})
	s.Trips[0].ArrivalTimes["C"] = "07:00"
	s.Trips[0].DepartureTimes["C"] = "07:00"
	s.Trips[0].RecoveryTimes["C"] = 0

	out := a.ApplyTemplate(s, model.BandFastest, []int{0, 4})
	var fast model.Trip
	for _, tr := range out.Trips {
		if tr.ServiceBand == model.BandFastest {
			fast = tr
		}
	}
	// The two-entry template extends with its last value for timepoint C.
	assert.Equal(t, 4, fast.RecoveryTimes["B"])
	assert.Equal(t, 4, fast.RecoveryTimes["C"])
}

func TestApplyTargetRecoveryPercentage(t *testing.T) {
	a := newApplier()
	out, tmpl, err := a.ApplyTargetRecoveryPercentage(bandedSchedule(), model.BandFastest, 20)
	require.NoError(t, err)
	assert.Equal(t, []int{0, 8}, tmpl)
	for _, tr := range out.Trips {
		if tr.ServiceBand == model.BandFastest {
			assert.Equal(t, 8, tr.RecoveryTimes["B"])
		}
	}
}

func TestApplyTargetRecoveryPercentageUnknownBand(t *testing.T) {
	a := newApplier()
	_, _, err := a.ApplyTargetRecoveryPercentage(bandedSchedule(), "No Such Band", 20)
	assert.Error(t, err)
}

func TestApplyTemplateEmptyBandIsNoop(t *testing.T) {
	a := newApplier()
	in := bandedSchedule()
	out := a.ApplyTemplate(in, "Empty Band", []int{0, 5})
	assert.Equal(t, in, out)
}
