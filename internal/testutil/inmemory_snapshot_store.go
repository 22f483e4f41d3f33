package testutil

import (
	"context"
	"sync"

	"github.com/useautumn/autumn-sub008/internal/domain/customer"
	ierr "github.com/useautumn/autumn-sub008/internal/errors"
)

// InMemorySnapshotStore implements customer.SnapshotRepository
type InMemorySnapshotStore struct {
	mu        sync.RWMutex
	snapshots map[string]*customer.Snapshot
	// Loads counts source reads, so tests can assert cache behavior
	Loads int
}

func NewInMemorySnapshotStore() *InMemorySnapshotStore {
	return &InMemorySnapshotStore{
		snapshots: make(map[string]*customer.Snapshot),
	}
}

func (s *InMemorySnapshotStore) Set(snapshot *customer.Snapshot) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.snapshots[snapshot.CustomerID] = snapshot
}

func (s *InMemorySnapshotStore) GetSnapshot(ctx context.Context, customerID string) (*customer.Snapshot, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.Loads++
	if snapshot, ok := s.snapshots[customerID]; ok {
		return snapshot, nil
	}
	return nil, ierr.NewError("customer not found").
		WithReportableDetails(map[string]any{"customer_id": customerID}).
		Mark(ierr.ErrNotFound)
}
