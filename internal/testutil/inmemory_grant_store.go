package testutil

import (
	"context"

	"github.com/shopspring/decimal"

	"github.com/useautumn/autumn-sub008/internal/domain/grant"
	ierr "github.com/useautumn/autumn-sub008/internal/errors"
	"github.com/useautumn/autumn-sub008/internal/types"
)

// InMemoryGrantStore implements grant.Repository
type InMemoryGrantStore struct {
	*InMemoryStore[*grant.Grant]
}

func NewInMemoryGrantStore() *InMemoryGrantStore {
	return &InMemoryGrantStore{
		InMemoryStore: NewInMemoryStore[*grant.Grant](),
	}
}

func (s *InMemoryGrantStore) Create(ctx context.Context, g *grant.Grant) (*grant.Grant, error) {
	if g == nil {
		return nil, ierr.NewError("grant cannot be nil").Mark(ierr.ErrValidation)
	}
	if err := s.InMemoryStore.Create(ctx, g.ID, g); err != nil {
		return nil, err
	}
	return g, nil
}

func (s *InMemoryGrantStore) Get(ctx context.Context, id string) (*grant.Grant, error) {
	return s.InMemoryStore.Get(ctx, id)
}

func (s *InMemoryGrantStore) ListByFeature(ctx context.Context, featureID string, entityID *string) ([]*grant.Grant, error) {
	return s.InMemoryStore.List(ctx, nil, func(ctx context.Context, g *grant.Grant, _ interface{}) bool {
		if g == nil || g.FeatureID != featureID {
			return false
		}
		if g.Status == types.StatusArchived || g.Status == types.StatusDeleted {
			return false
		}
		if entityID != nil && g.EntityScopeID != nil && *g.EntityScopeID != *entityID {
			return false
		}
		return true
	}, grantSortFn)
}

func (s *InMemoryGrantStore) ListByAttachment(ctx context.Context, attachmentID string) ([]*grant.Grant, error) {
	return s.InMemoryStore.List(ctx, nil, func(ctx context.Context, g *grant.Grant, _ interface{}) bool {
		return g != nil && g.AttachmentID == attachmentID && g.Status != types.StatusDeleted
	}, grantSortFn)
}

func (s *InMemoryGrantStore) UpdateUsage(ctx context.Context, id string, usage decimal.Decimal) (*grant.Grant, error) {
	g, err := s.InMemoryStore.Get(ctx, id)
	if err != nil {
		return nil, err
	}

	updated := *g
	updated.Usage = usage
	if err := s.InMemoryStore.Update(ctx, id, &updated); err != nil {
		return nil, err
	}
	return &updated, nil
}

func (s *InMemoryGrantStore) Archive(ctx context.Context, id string) error {
	g, err := s.InMemoryStore.Get(ctx, id)
	if err != nil {
		return err
	}
	return s.InMemoryStore.Update(ctx, id, g.Supersede())
}

func grantSortFn(i, j *grant.Grant) bool {
	if i == nil || j == nil {
		return false
	}
	return i.ID < j.ID
}
