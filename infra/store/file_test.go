package store

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mikermcconnell/BusScheduler-sub001/core/model"
	corestore "github.com/mikermcconnell/BusScheduler-sub001/core/store"
)

func TestFileStoreRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "snapshots", "schedule.json")
	fs, err := NewFileStore(path)
	require.NoError(t, err)

	rev := corestore.Revision{
		ID:   "r1",
		Time: time.Date(2025, 6, 1, 8, 0, 0, 0, time.UTC),
		Op:   "applyRecoveryEdit",
		Schedule: model.Schedule{
			TimePoints: []model.TimePoint{{ID: "a", Name: "Terminal", Sequence: 0}},
			Trips: []model.Trip{{
				TripNumber:     1,
				BlockNumber:    1,
				DepartureTimes: map[string]string{"a": "06:00"},
				ArrivalTimes:   map[string]string{"a": "06:00"},
				RecoveryTimes:  map[string]int{"a": 0},
			}},
		},
	}
	require.NoError(t, fs.Save(context.Background(), rev))

	got, err := fs.Load(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "r1", got.ID)
	assert.Equal(t, rev.Schedule, got.Schedule)
}

func TestFileStoreLoadMissing(t *testing.T) {
	fs, err := NewFileStore(filepath.Join(t.TempDir(), "schedule.json"))
	require.NoError(t, err)

	_, err = fs.Load(context.Background())
	assert.ErrorIs(t, err, corestore.ErrNoSnapshot)
}

func TestFileStoreSaveReplaces(t *testing.T) {
	fs, err := NewFileStore(filepath.Join(t.TempDir(), "schedule.json"))
	require.NoError(t, err)

	require.NoError(t, fs.Save(context.Background(), corestore.Revision{ID: "r1"}))
	require.NoError(t, fs.Save(context.Background(), corestore.Revision{ID: "r2"}))

	got, err := fs.Load(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "r2", got.ID)
}

func TestFileStoreEmptyPath(t *testing.T) {
	_, err := NewFileStore("")
	assert.Error(t, err)
}
