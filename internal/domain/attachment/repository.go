package attachment

import (
	"context"

	"github.com/useautumn/autumn-sub008/internal/types"
)

// Repository defines the interface for product attachment lookups and
// lifecycle writes
type Repository interface {
	Get(ctx context.Context, id string) (*ProductAttachment, error)
	// ListByScope returns every attachment for a customer scope, terminal
	// ones included; callers filter as needed
	ListByScope(ctx context.Context, scopeID string) ([]*ProductAttachment, error)
	ListBySubscriptionGroup(ctx context.Context, groupID string) ([]*ProductAttachment, error)
	Create(ctx context.Context, attachment *ProductAttachment) (*ProductAttachment, error)
	// UpdateStatus moves an attachment through its lifecycle (e.g. to
	// Expired when a webhook reports its end passed)
	UpdateStatus(ctx context.Context, id string, status types.AttachmentStatus) (*ProductAttachment, error)
}
