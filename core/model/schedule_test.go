package model

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func twoStopTimePoints() []TimePoint {
	return []TimePoint{
		{ID: "A", Name: "Downtown Terminal", Sequence: 0},
		{ID: "B", Name: "North Loop", Sequence: 1},
	}
}

func TestCloneIsDeep(t *testing.T) {
	s := Schedule{
		TimePoints: twoStopTimePoints(),
		Trips: []Trip{{
			TripNumber:     1,
			BlockNumber:    1,
			DepartureTimes: map[string]string{"A": "06:00", "B": "06:43"},
			ArrivalTimes:   map[string]string{"A": "06:00", "B": "06:40"},
			RecoveryTimes:  map[string]int{"A": 0, "B": 3},
		}},
	}
	cp := s.Clone()
	cp.Trips[0].DepartureTimes["A"] = "07:00"
	cp.Trips[0].RecoveryTimes["B"] = 9

	assert.Equal(t, "06:00", s.Trips[0].DepartureTimes["A"])
	assert.Equal(t, 3, s.Trips[0].RecoveryTimes["B"])
}

func TestCloneNormalizesOmittedWorkingMaps(t *testing.T) {
	s := Schedule{Trips: []Trip{{TripNumber: 1, ArrivalTimes: map[string]string{"A": "06:00"}}}}
	cp := s.Clone()

	// The working maps must be writable on every cloned snapshot.
	assert.NotNil(t, cp.Trips[0].DepartureTimes)
	assert.NotNil(t, cp.Trips[0].RecoveryTimes)
	cp.Trips[0].DepartureTimes["A"] = "06:05"
	cp.Trips[0].RecoveryTimes["A"] = 5

	// nil still marks "not truncated" on the backups, and the input record is
	// left as it was.
	assert.Nil(t, cp.Trips[0].OriginalArrivalTimes)
	assert.Nil(t, s.Trips[0].DepartureTimes)
}

func TestCloneCopiesTripEndIndex(t *testing.T) {
	idx := 1
	s := Schedule{Trips: []Trip{{TripNumber: 1, TripEndIndex: &idx}}}
	cp := s.Clone()
	*cp.Trips[0].TripEndIndex = 5
	assert.Equal(t, 1, *s.Trips[0].TripEndIndex)
}

func TestRenumberTripsDenseChronological(t *testing.T) {
	tps := twoStopTimePoints()
	s := Schedule{
		TimePoints: tps,
		Trips: []Trip{
			{TripNumber: 7, BlockNumber: 2, DepartureTimes: map[string]string{"A": "08:00"}},
			{TripNumber: 3, BlockNumber: 1, DepartureTimes: map[string]string{"A": "06:00"}},
			{TripNumber: 9, BlockNumber: 1, DepartureTimes: map[string]string{"A": "07:00"}},
		},
	}
	s.RenumberTrips()
	require.Len(t, s.Trips, 3)
	assert.Equal(t, "06:00", s.Trips[0].DepartureTimes["A"])
	assert.Equal(t, []int{1, 2, 3}, []int{s.Trips[0].TripNumber, s.Trips[1].TripNumber, s.Trips[2].TripNumber})
}

func TestSortTripsTiesBreakOnBlock(t *testing.T) {
	s := Schedule{
		TimePoints: twoStopTimePoints(),
		Trips: []Trip{
			{TripNumber: 1, BlockNumber: 3, DepartureTimes: map[string]string{"A": "06:00"}},
			{TripNumber: 2, BlockNumber: 1, DepartureTimes: map[string]string{"A": "06:00"}},
		},
	}
	s.SortTrips()
	assert.Equal(t, 1, s.Trips[0].BlockNumber)
	assert.Equal(t, 3, s.Trips[1].BlockNumber)
}

func TestTripActiveEnd(t *testing.T) {
	tr := Trip{}
	assert.Equal(t, 1, tr.ActiveEnd(2))
	cut := 0
	tr.TripEndIndex = &cut
	assert.Equal(t, 0, tr.ActiveEnd(2))
	assert.True(t, tr.IsActiveIndex(0, 2))
	assert.False(t, tr.IsActiveIndex(1, 2))
}

func TestLastActiveDepartureFallsBackToArrival(t *testing.T) {
	tps := twoStopTimePoints()
	tr := Trip{
		ArrivalTimes:   map[string]string{"B": "06:40"},
		DepartureTimes: map[string]string{"A": "06:00"},
	}
	assert.Equal(t, 400, tr.LastActiveDepartureMinutes(tps))
}

func TestRefreshDerived(t *testing.T) {
	tr := Trip{
		ArrivalTimes:   map[string]string{"B": "06:40"},
		DepartureTimes: map[string]string{"A": "06:02", "B": "06:43"},
		RecoveryTimes:  map[string]int{"A": 0, "B": 3},
	}
	tr.RefreshDerived()
	assert.Equal(t, "06:02", tr.DepartureTime)
	assert.Equal(t, 3, tr.RecoveryMinutes)
}

func TestShiftAllTimesSkipsMalformed(t *testing.T) {
	tr := Trip{
		ArrivalTimes:   map[string]string{"A": "06:00", "B": "bad"},
		DepartureTimes: map[string]string{"A": "06:00"},
		RecoveryTimes:  map[string]int{},
	}
	tr.ShiftAllTimes(10)
	assert.Equal(t, "06:10", tr.ArrivalTimes["A"])
	assert.Equal(t, "bad", tr.ArrivalTimes["B"])
}
