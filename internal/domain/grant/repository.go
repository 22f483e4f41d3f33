package grant

import (
	"context"

	"github.com/shopspring/decimal"
)

// Repository defines the interface for grant lookups and usage writes.
// Callers own persistence and its serialization discipline (per-scope lock
// or optimistic concurrency); this core only reads snapshots and hands back
// usage deltas.
type Repository interface {
	Get(ctx context.Context, id string) (*Grant, error)
	// ListByFeature returns all non-terminal grants for a feature within a
	// scope. entityID narrows to a sub-account; nil means customer level.
	ListByFeature(ctx context.Context, featureID string, entityID *string) ([]*Grant, error)
	ListByAttachment(ctx context.Context, attachmentID string) ([]*Grant, error)
	Create(ctx context.Context, grant *Grant) (*Grant, error)
	// UpdateUsage replaces the tracked consumption counter for a grant
	UpdateUsage(ctx context.Context, id string, usage decimal.Decimal) (*Grant, error)
	// Archive marks a superseded grant terminal
	Archive(ctx context.Context, id string) error
}
