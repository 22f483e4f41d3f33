package testutil

import (
	"context"

	"github.com/useautumn/autumn-sub008/internal/domain/attachment"
	ierr "github.com/useautumn/autumn-sub008/internal/errors"
	"github.com/useautumn/autumn-sub008/internal/types"
)

// InMemoryAttachmentStore implements attachment.Repository
type InMemoryAttachmentStore struct {
	*InMemoryStore[*attachment.ProductAttachment]
}

func NewInMemoryAttachmentStore() *InMemoryAttachmentStore {
	return &InMemoryAttachmentStore{
		InMemoryStore: NewInMemoryStore[*attachment.ProductAttachment](),
	}
}

func (s *InMemoryAttachmentStore) Create(ctx context.Context, a *attachment.ProductAttachment) (*attachment.ProductAttachment, error) {
	if a == nil {
		return nil, ierr.NewError("attachment cannot be nil").Mark(ierr.ErrValidation)
	}
	if err := s.InMemoryStore.Create(ctx, a.ID, a); err != nil {
		return nil, err
	}
	return a, nil
}

func (s *InMemoryAttachmentStore) Get(ctx context.Context, id string) (*attachment.ProductAttachment, error) {
	return s.InMemoryStore.Get(ctx, id)
}

func (s *InMemoryAttachmentStore) ListByScope(ctx context.Context, scopeID string) ([]*attachment.ProductAttachment, error) {
	return s.InMemoryStore.List(ctx, nil, func(ctx context.Context, a *attachment.ProductAttachment, _ interface{}) bool {
		return a != nil && a.ScopeID == scopeID
	}, attachmentSortFn)
}

func (s *InMemoryAttachmentStore) ListBySubscriptionGroup(ctx context.Context, groupID string) ([]*attachment.ProductAttachment, error) {
	return s.InMemoryStore.List(ctx, nil, func(ctx context.Context, a *attachment.ProductAttachment, _ interface{}) bool {
		return a != nil && a.SubscriptionGroupID == groupID
	}, attachmentSortFn)
}

func (s *InMemoryAttachmentStore) UpdateStatus(ctx context.Context, id string, status types.AttachmentStatus) (*attachment.ProductAttachment, error) {
	a, err := s.InMemoryStore.Get(ctx, id)
	if err != nil {
		return nil, err
	}

	updated := *a
	updated.Status = status
	if err := s.InMemoryStore.Update(ctx, id, &updated); err != nil {
		return nil, err
	}
	return &updated, nil
}

func attachmentSortFn(i, j *attachment.ProductAttachment) bool {
	if i == nil || j == nil {
		return false
	}
	if i.StartsAtMs != j.StartsAtMs {
		return i.StartsAtMs < j.StartsAtMs
	}
	return i.ID < j.ID
}
