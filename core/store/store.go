package store

import (
	"context"
	"errors"
	"time"

	"github.com/mikermcconnell/BusScheduler-sub001/core/model"
)

// ErrNoSnapshot is returned by Load when no revision has been saved yet.
var ErrNoSnapshot = errors.New("store: no schedule snapshot")

// Revision is one committed schedule snapshot.
type Revision struct {
	ID       string         `json:"id"`
	Time     time.Time      `json:"time"`
	Op       string         `json:"op,omitempty"`
	Schedule model.Schedule `json:"schedule"`
}

// SnapshotStore persists schedule revisions. The orchestrator invokes Save
// exactly once per committed transition; operations themselves never touch
// storage.
type SnapshotStore interface {
	Save(ctx context.Context, rev Revision) error
	Load(ctx context.Context) (Revision, error)
}

// NopStore discards revisions; Load always reports ErrNoSnapshot.
type NopStore struct{}

func (NopStore) Save(context.Context, Revision) error { return nil }
func (NopStore) Load(context.Context) (Revision, error) {
	return Revision{}, ErrNoSnapshot
}
