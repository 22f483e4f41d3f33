package customer

import (
	"context"

	"github.com/useautumn/autumn-sub008/internal/domain/attachment"
	"github.com/useautumn/autumn-sub008/internal/types"
)

// EntityRef is one sub-account sharing the customer's subscription, e.g. a
// seat or workspace
type EntityRef struct {
	ID        string `json:"id"`
	Name      string `json:"name,omitempty"`
	FeatureID string `json:"feature_id,omitempty"`
}

// Snapshot is the in-memory customer state this core computes over. The
// persistence collaborator builds it, serializing against concurrent
// mutation; the core treats it as immutable input.
type Snapshot struct {
	CustomerID  string                          `json:"customer_id"`
	Attachments []*attachment.ProductAttachment `json:"attachments"`
	Entities    []EntityRef                     `json:"entities,omitempty"`
	Metadata    types.Metadata                  `json:"metadata,omitempty"`
}

// Entity resolves an entity reference by id
func (s *Snapshot) Entity(id string) (EntityRef, bool) {
	for _, e := range s.Entities {
		if e.ID == id {
			return e, true
		}
	}
	return EntityRef{}, false
}

// LiveAttachments returns the non-terminal attachments in input order
func (s *Snapshot) LiveAttachments() []*attachment.ProductAttachment {
	var live []*attachment.ProductAttachment
	for _, a := range s.Attachments {
		if !a.IsTerminal() {
			live = append(live, a)
		}
	}
	return live
}

// SnapshotRepository loads customer snapshots. Implementations must
// serialize reads against concurrent mutation of the same scope.
type SnapshotRepository interface {
	GetSnapshot(ctx context.Context, customerID string) (*Snapshot, error)
}
