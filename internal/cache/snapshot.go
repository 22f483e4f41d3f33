package cache

import (
	"context"
	"time"

	"github.com/useautumn/autumn-sub008/internal/domain/customer"
	"github.com/useautumn/autumn-sub008/internal/types"
)

// SnapshotCache is a cache-then-store read path for customer snapshots.
// The skip-cache path is always available and must agree with the cached
// path once the cached entry settles; every applied mutation invalidates
// the customer's entry.
type SnapshotCache interface {
	// GetSnapshot returns the snapshot for a customer, reading through to
	// source when skipCache is set or on a miss
	GetSnapshot(ctx context.Context, customerID string, skipCache bool) (*customer.Snapshot, error)

	// Invalidate drops the cached snapshot for a customer
	Invalidate(ctx context.Context, customerID string)
}

type snapshotCache struct {
	cache   Cache
	source  customer.SnapshotRepository
	ttl     time.Duration
	enabled bool
}

// NewSnapshotCache wraps a snapshot repository with a cache layer
func NewSnapshotCache(cache Cache, source customer.SnapshotRepository, ttl time.Duration, enabled bool) SnapshotCache {
	return &snapshotCache{
		cache:   cache,
		source:  source,
		ttl:     ttl,
		enabled: enabled,
	}
}

func (s *snapshotCache) key(ctx context.Context, customerID string) string {
	return TenantKey(PrefixSnapshot, types.GetTenantID(ctx), customerID)
}

func (s *snapshotCache) GetSnapshot(ctx context.Context, customerID string, skipCache bool) (*customer.Snapshot, error) {
	if s.enabled && !skipCache {
		if value, found := s.cache.Get(ctx, s.key(ctx, customerID)); found {
			if snapshot, ok := value.(*customer.Snapshot); ok {
				return snapshot, nil
			}
		}
	}

	snapshot, err := s.source.GetSnapshot(ctx, customerID)
	if err != nil {
		return nil, err
	}

	if s.enabled {
		s.cache.Set(ctx, s.key(ctx, customerID), snapshot, s.ttl)
	}
	return snapshot, nil
}

func (s *snapshotCache) Invalidate(ctx context.Context, customerID string) {
	s.cache.Delete(ctx, s.key(ctx, customerID))
}
