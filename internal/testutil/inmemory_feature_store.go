package testutil

import (
	"context"

	"github.com/useautumn/autumn-sub008/internal/domain/feature"
	ierr "github.com/useautumn/autumn-sub008/internal/errors"
	"github.com/useautumn/autumn-sub008/internal/types"
)

// InMemoryFeatureStore implements feature.Repository
type InMemoryFeatureStore struct {
	*InMemoryStore[*feature.Feature]
}

func NewInMemoryFeatureStore() *InMemoryFeatureStore {
	return &InMemoryFeatureStore{
		InMemoryStore: NewInMemoryStore[*feature.Feature](),
	}
}

func (s *InMemoryFeatureStore) Create(ctx context.Context, f *feature.Feature) (*feature.Feature, error) {
	if f == nil {
		return nil, ierr.NewError("feature cannot be nil").Mark(ierr.ErrValidation)
	}
	if err := s.InMemoryStore.Create(ctx, f.ID, f); err != nil {
		return nil, err
	}
	return f, nil
}

func (s *InMemoryFeatureStore) Get(ctx context.Context, id string) (*feature.Feature, error) {
	return s.InMemoryStore.Get(ctx, id)
}

func (s *InMemoryFeatureStore) List(ctx context.Context) ([]*feature.Feature, error) {
	return s.InMemoryStore.List(ctx, nil, featureFilterFn, featureSortFn)
}

func featureFilterFn(ctx context.Context, f *feature.Feature, _ interface{}) bool {
	return f != nil && f.Status != types.StatusDeleted
}

func featureSortFn(i, j *feature.Feature) bool {
	if i == nil || j == nil {
		return false
	}
	return i.ID < j.ID
}
