package feature

import (
	"context"
)

// Repository defines the interface for feature lookups. Persistence lives
// with the caller; this core only resolves references.
type Repository interface {
	Get(ctx context.Context, id string) (*Feature, error)
	List(ctx context.Context) ([]*Feature, error)
	Create(ctx context.Context, feature *Feature) (*Feature, error)
}
