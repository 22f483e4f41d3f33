package attachment

import (
	"github.com/shopspring/decimal"
	ierr "github.com/useautumn/autumn-sub008/internal/errors"
	"github.com/useautumn/autumn-sub008/internal/domain/grant"
	"github.com/useautumn/autumn-sub008/internal/types"
)

// PriceItem is a fixed billable line carried by an attachment that is not
// tied to a grant, e.g. the plan's base fee
type PriceItem struct {
	PriceRef string          `json:"price_ref"`
	Quantity decimal.Decimal `json:"quantity"`
}

// ProductAttachment binds a product (plan) to a scope for a span of time.
// Several attachments may share one underlying provider subscription
// (merged billing) via SubscriptionGroupID.
type ProductAttachment struct {
	ID        string `json:"id"`
	ProductID string `json:"product_id"`
	// ProductSlot groups mutually exclusive products: at most one
	// non-terminal attachment per (scope, slot) at a time
	ProductSlot string                 `json:"product_slot"`
	Status      types.AttachmentStatus `json:"status"`

	StartsAtMs    int64  `json:"starts_at_ms"`
	EndsAtMs      *int64 `json:"ends_at_ms,omitempty"`
	TrialEndsAtMs *int64 `json:"trial_ends_at_ms,omitempty"`

	// ScopeID is the customer or entity the attachment belongs to
	ScopeID  string  `json:"scope_id"`
	EntityID *string `json:"entity_id,omitempty"`

	SubscriptionGroupID string `json:"subscription_group_id"`

	Grants []*grant.Grant `json:"grants,omitempty"`
	Prices []PriceItem    `json:"prices,omitempty"`

	EnvironmentID string `json:"environment_id"`
	types.BaseModel
}

func (a *ProductAttachment) Validate() error {
	if a.ProductID == "" {
		return ierr.NewError("product_id is required").
			WithHint("Please provide a valid product ID").
			Mark(ierr.ErrValidation)
	}
	if a.ScopeID == "" {
		return ierr.NewError("scope_id is required").
			WithHint("An attachment must belong to a customer or entity").
			Mark(ierr.ErrValidation)
	}
	if err := a.Status.Validate(); err != nil {
		return err
	}
	if a.EndsAtMs != nil && *a.EndsAtMs <= a.StartsAtMs {
		return ierr.NewError("ends_at must be after starts_at").
			WithHint("Attachment end must be after its start").
			WithReportableDetails(map[string]any{
				"attachment_id": a.ID,
				"starts_at_ms":  a.StartsAtMs,
				"ends_at_ms":    *a.EndsAtMs,
			}).
			Mark(ierr.ErrValidation)
	}
	for _, g := range a.Grants {
		if err := g.Validate(); err != nil {
			return err
		}
	}
	return nil
}

// IsTerminal reports whether the attachment contributes nothing anymore
func (a *ProductAttachment) IsTerminal() bool {
	return a.Status.IsTerminal() || a.BaseModel.Status == types.StatusDeleted
}

// Covers reports whether the attachment's span contains [startMs, endMs).
// endMs nil means an open-ended interval.
func (a *ProductAttachment) Covers(startMs int64, endMs *int64) bool {
	if a.StartsAtMs > startMs {
		return false
	}
	if a.EndsAtMs == nil {
		return true
	}
	if endMs == nil {
		return false
	}
	return *a.EndsAtMs >= *endMs
}

// Items flattens the attachment's billable lines: one item per priced grant
// (prepaid pack count or continuous quantity) plus the fixed price items.
// Items carry the owning entity so quantities remain attributable.
func (a *ProductAttachment) Items() []types.PhaseItem {
	var items []types.PhaseItem
	for _, g := range a.Grants {
		if g.PriceRef == "" {
			continue
		}
		quantity := decimal.NewFromInt(1)
		switch g.Kind {
		case types.GrantKindPrepaidPack:
			quantity = g.PackCount
		case types.GrantKindContinuous:
			quantity = g.Allowance
		}
		items = append(items, types.PhaseItem{
			PriceRef:     g.PriceRef,
			FeatureID:    g.FeatureID,
			Quantity:     quantity,
			AttachmentID: a.ID,
			EntityID:     a.EntityID,
		})
	}
	for _, p := range a.Prices {
		items = append(items, types.PhaseItem{
			PriceRef:     p.PriceRef,
			Quantity:     p.Quantity,
			AttachmentID: a.ID,
			EntityID:     a.EntityID,
		})
	}
	return items
}
