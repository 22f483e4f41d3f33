package service

import (
	"context"

	"github.com/samber/lo"
	"github.com/shopspring/decimal"

	"github.com/useautumn/autumn-sub008/internal/api/dto"
	"github.com/useautumn/autumn-sub008/internal/domain/attachment"
	"github.com/useautumn/autumn-sub008/internal/domain/grant"
	"github.com/useautumn/autumn-sub008/internal/domain/provider"
	ierr "github.com/useautumn/autumn-sub008/internal/errors"
	"github.com/useautumn/autumn-sub008/internal/types"
)

// ItemsService turns the current phase's item set into the flat list of
// add/update/remove operations against the live provider subscription
type ItemsService interface {
	BuildDiff(
		ctx context.Context,
		group []*attachment.ProductAttachment,
		phase types.BillingPhase,
		options []dto.FeatureQuantityOption,
		state *provider.State,
	) (*types.SubscriptionItemsDiff, error)
}

type itemsService struct {
	ServiceParams
}

func NewItemsService(params ServiceParams) ItemsService {
	return &itemsService{ServiceParams: params}
}

func (s *itemsService) BuildDiff(
	ctx context.Context,
	group []*attachment.ProductAttachment,
	phase types.BillingPhase,
	options []dto.FeatureQuantityOption,
	state *provider.State,
) (*types.SubscriptionItemsDiff, error) {
	for _, opt := range options {
		if err := opt.Validate(); err != nil {
			return nil, err
		}
	}

	desired := aggregateByPriceRef(phase.Items)

	if err := s.applyQuantityOptions(desired, group, options, state); err != nil {
		return nil, err
	}

	diff := &types.SubscriptionItemsDiff{}
	existing := lo.KeyBy(state.Items, func(it provider.SubscriptionItem) string {
		return it.PriceRef
	})

	for _, d := range desired.entries() {
		current, ok := existing[d.priceRef]
		switch {
		case !ok:
			diff.Operations = append(diff.Operations, types.ItemOperation{
				Type:     types.ItemOperationAdd,
				PriceRef: d.priceRef,
				Quantity: d.quantity,
			})
		case !current.Quantity.Equal(d.quantity):
			diff.Operations = append(diff.Operations, types.ItemOperation{
				Type:     types.ItemOperationUpdate,
				ItemID:   current.ID,
				PriceRef: d.priceRef,
				Quantity: d.quantity,
			})
		}
	}

	for _, it := range state.Items {
		if _, ok := desired.get(it.PriceRef); !ok {
			diff.Operations = append(diff.Operations, types.ItemOperation{
				Type:     types.ItemOperationRemove,
				ItemID:   it.ID,
				PriceRef: it.PriceRef,
			})
		}
	}

	s.Logger.Debugw("built subscription items diff",
		"desired", len(desired.order),
		"existing", len(state.Items),
		"operations", len(diff.Operations))

	return diff, nil
}

// applyQuantityOptions overlays caller-requested prepaid quantities onto the
// computed item set. A nil quantity carries the provider's current quantity
// over; an explicit zero removes the line.
func (s *itemsService) applyQuantityOptions(
	desired *orderedQuantities,
	group []*attachment.ProductAttachment,
	options []dto.FeatureQuantityOption,
	state *provider.State,
) error {
	existing := lo.KeyBy(state.Items, func(it provider.SubscriptionItem) string {
		return it.PriceRef
	})

	for _, opt := range options {
		g, err := findPrepaidGrant(group, opt.FeatureID)
		if err != nil {
			return err
		}

		if opt.Quantity == nil {
			// not specified: the prior provider quantity wins over the
			// freshly computed pack count
			if current, ok := existing[g.PriceRef]; ok {
				desired.set(g.PriceRef, current.Quantity)
			}
			continue
		}

		if g.MaxPurchase != nil && opt.Quantity.GreaterThan(*g.MaxPurchase) {
			return ierr.NewError("requested quantity exceeds purchase limit").
				WithHint("Lower the requested quantity or raise the feature's purchase limit").
				WithReportableDetails(map[string]any{
					"feature_id":   opt.FeatureID,
					"quantity":     opt.Quantity,
					"max_purchase": g.MaxPurchase,
				}).
				Mark(ierr.ErrValidation)
		}

		packs, err := grant.PacksFor(*opt.Quantity, g.BillingUnits)
		if err != nil {
			return err
		}
		if packs.IsZero() {
			desired.remove(g.PriceRef)
			continue
		}
		desired.set(g.PriceRef, packs)
	}
	return nil
}

func findPrepaidGrant(group []*attachment.ProductAttachment, featureID string) (*grant.Grant, error) {
	for _, a := range group {
		if a.IsTerminal() {
			continue
		}
		for _, g := range a.Grants {
			if g.FeatureID == featureID && g.Kind.IsPrepaid() {
				return g, nil
			}
		}
	}
	return nil, ierr.NewError("no prepaid grant for feature").
		WithHint("Quantity options only apply to prepaid features on an active product").
		WithReportableDetails(map[string]any{
			"feature_id": featureID,
		}).
		Mark(ierr.ErrValidation)
}

// orderedQuantities is a price-ref keyed quantity map that remembers
// insertion order so diffs come out deterministic
type orderedQuantities struct {
	order      []string
	quantities map[string]decimal.Decimal
}

type quantityEntry struct {
	priceRef string
	quantity decimal.Decimal
}

func aggregateByPriceRef(items []types.PhaseItem) *orderedQuantities {
	q := &orderedQuantities{quantities: make(map[string]decimal.Decimal)}
	for _, it := range items {
		if existing, ok := q.quantities[it.PriceRef]; ok {
			q.quantities[it.PriceRef] = existing.Add(it.Quantity)
			continue
		}
		q.order = append(q.order, it.PriceRef)
		q.quantities[it.PriceRef] = it.Quantity
	}
	return q
}

func (q *orderedQuantities) get(priceRef string) (decimal.Decimal, bool) {
	v, ok := q.quantities[priceRef]
	return v, ok
}

func (q *orderedQuantities) set(priceRef string, quantity decimal.Decimal) {
	if _, ok := q.quantities[priceRef]; !ok {
		q.order = append(q.order, priceRef)
	}
	q.quantities[priceRef] = quantity
}

func (q *orderedQuantities) remove(priceRef string) {
	if _, ok := q.quantities[priceRef]; !ok {
		return
	}
	delete(q.quantities, priceRef)
	q.order = lo.Without(q.order, priceRef)
}

func (q *orderedQuantities) entries() []quantityEntry {
	entries := make([]quantityEntry, 0, len(q.order))
	for _, ref := range q.order {
		entries = append(entries, quantityEntry{priceRef: ref, quantity: q.quantities[ref]})
	}
	return entries
}
