package service

import (
	"context"

	"github.com/samber/lo"
	"github.com/shopspring/decimal"

	"github.com/useautumn/autumn-sub008/internal/api/dto"
	"github.com/useautumn/autumn-sub008/internal/domain/customer"
	"github.com/useautumn/autumn-sub008/internal/domain/grant"
	ierr "github.com/useautumn/autumn-sub008/internal/errors"
	"github.com/useautumn/autumn-sub008/internal/types"
	"github.com/useautumn/autumn-sub008/internal/validator"
)

// BalanceUpdateService sets a feature's balance to an explicit target by
// moving usage counters. Granted balances are immutable; only usage moves.
type BalanceUpdateService interface {
	Update(ctx context.Context, req *dto.BalanceUpdateRequest) (*dto.BalanceUpdateResponse, error)
}

type balanceUpdateService struct {
	ServiceParams
}

func NewBalanceUpdateService(params ServiceParams) BalanceUpdateService {
	return &balanceUpdateService{ServiceParams: params}
}

func (s *balanceUpdateService) Update(ctx context.Context, req *dto.BalanceUpdateRequest) (*dto.BalanceUpdateResponse, error) {
	if err := validator.ValidateRequest(req); err != nil {
		return nil, err
	}
	if err := req.Validate(); err != nil {
		return nil, err
	}

	// writes always read through to the snapshot source
	snapshot, err := s.SnapshotRepo.GetSnapshot(ctx, req.CustomerID)
	if err != nil {
		return nil, err
	}

	balanceSvc := &balanceService{ServiceParams: s.ServiceParams}
	grants, err := balanceSvc.grantsForFeature(ctx, snapshot, req.FeatureID, nil)
	if err != nil {
		return nil, err
	}

	grants, err = s.applyFilter(snapshot, grants, req.Filter)
	if err != nil {
		return nil, err
	}
	if len(grants) == 0 {
		return nil, ierr.NewError("no grants match the balance update").
			WithHintf("Customer %s has no matching grants for feature %s", req.CustomerID, req.FeatureID).
			Mark(ierr.ErrNotFound)
	}
	if lo.SomeBy(grants, func(g *grant.Grant) bool { return g.Unlimited }) {
		return nil, ierr.NewError("cannot set balance on an unlimited grant").
			WithHint("Unlimited grants have no balance to set").
			Mark(ierr.ErrValidation)
	}

	var changes []dto.GrantUsageChange
	if len(grants) == 1 {
		changes, err = s.applySingleGrant(grants[0], req.TargetBalance)
	} else {
		changes, err = s.applyAcrossGrants(grants, req.TargetBalance)
	}
	if err != nil {
		return nil, err
	}

	for _, change := range changes {
		if _, err := s.GrantRepo.UpdateUsage(ctx, change.GrantID, change.NewUsage); err != nil {
			return nil, err
		}
	}
	for _, g := range grants {
		for _, change := range changes {
			if g.ID == change.GrantID {
				g.Usage = change.NewUsage
			}
		}
	}

	if s.SnapshotCache != nil {
		s.SnapshotCache.Invalidate(ctx, req.CustomerID)
	}

	s.Logger.Infow("applied balance update",
		"customer_id", req.CustomerID,
		"feature_id", req.FeatureID,
		"target_balance", req.TargetBalance,
		"grants_changed", len(changes))

	return &dto.BalanceUpdateResponse{
		Changes: changes,
		Balance: buildAggregateBalance(req.FeatureID, grants),
	}, nil
}

// applyFilter narrows the grant set by the request's single selector
func (s *balanceUpdateService) applyFilter(snapshot *customer.Snapshot, grants []*grant.Grant, filter types.BalanceFilter) ([]*grant.Grant, error) {
	switch {
	case filter.GrantID != nil:
		matched := lo.Filter(grants, func(g *grant.Grant, _ int) bool {
			return g.ID == *filter.GrantID
		})
		if len(matched) == 0 {
			return nil, ierr.NewError("grant not found for feature").
				WithHintf("Grant %s does not exist on this feature", *filter.GrantID).
				Mark(ierr.ErrNotFound)
		}
		return matched, nil
	case filter.Interval != nil:
		return lo.Filter(grants, func(g *grant.Grant, _ int) bool {
			return g.Reset == *filter.Interval
		}), nil
	case filter.EntityID != nil:
		if _, ok := snapshot.Entity(*filter.EntityID); !ok {
			return nil, ierr.NewError("unknown entity").
				WithHintf("Entity %s does not belong to customer %s", *filter.EntityID, snapshot.CustomerID).
				Mark(ierr.ErrValidation)
		}
		return lo.Filter(grants, func(g *grant.Grant, _ int) bool {
			return g.EntityScopeID != nil && *g.EntityScopeID == *filter.EntityID
		}), nil
	default:
		return grants, nil
	}
}

// applySingleGrant recomputes the one grant's usage so its effective balance
// equals the target exactly. A target above granted produces negative usage,
// which is a credit.
func (s *balanceUpdateService) applySingleGrant(g *grant.Grant, target decimal.Decimal) ([]dto.GrantUsageChange, error) {
	effectiveTarget, err := s.clampToFloor(g, target)
	if err != nil {
		return nil, err
	}

	newUsage := g.GrantedBalance().Add(g.RolloverBalance()).Sub(effectiveTarget)
	if newUsage.Equal(g.Usage) {
		return nil, nil
	}
	return []dto.GrantUsageChange{{
		GrantID:  g.ID,
		OldUsage: g.Usage,
		NewUsage: newUsage,
	}}, nil
}

// applyAcrossGrants treats the target as a sum constraint over the matched
// grants. A deficit is consumed greedily in deduction order, a surplus
// refunds usage in the same order; either remainder lands on the last grant
// walked.
func (s *balanceUpdateService) applyAcrossGrants(grants []*grant.Grant, target decimal.Decimal) ([]dto.GrantUsageChange, error) {
	ordered := grant.SortForDeduction(grants, s.Config.Billing.ReverseDeductionOrder)

	currentTotal := decimal.Zero
	for _, g := range ordered {
		currentTotal = currentTotal.Add(g.CurrentBalance())
	}

	deficit := currentTotal.Sub(target)
	if deficit.IsZero() {
		return nil, nil
	}

	newUsages := make(map[string]decimal.Decimal, len(ordered))
	for _, g := range ordered {
		newUsages[g.ID] = g.Usage
	}

	if deficit.IsPositive() {
		remaining := deficit
		for _, g := range ordered {
			if remaining.IsZero() {
				break
			}
			take := decimal.Min(remaining, g.CurrentBalance())
			newUsages[g.ID] = newUsages[g.ID].Add(take)
			remaining = remaining.Sub(take)
		}
		if remaining.IsPositive() {
			// every balance is exhausted; the remainder is overage on the
			// last grant in deduction order
			last := ordered[len(ordered)-1]
			clamped, err := s.clampToFloor(last, remaining.Neg())
			if err != nil {
				return nil, err
			}
			desired := last.GrantedBalance().Add(last.RolloverBalance()).Sub(clamped)
			newUsages[last.ID] = decimal.Max(newUsages[last.ID], desired)
		}
	} else {
		remaining := deficit.Neg()
		for _, g := range ordered {
			if remaining.IsZero() {
				break
			}
			refund := decimal.Min(remaining, decimal.Max(newUsages[g.ID], decimal.Zero))
			newUsages[g.ID] = newUsages[g.ID].Sub(refund)
			remaining = remaining.Sub(refund)
		}
		if remaining.IsPositive() {
			// more balance requested than tracked usage can refund; the
			// remainder becomes a credit on the last grant walked
			last := ordered[len(ordered)-1]
			newUsages[last.ID] = newUsages[last.ID].Sub(remaining)
		}
	}

	var changes []dto.GrantUsageChange
	for _, g := range ordered {
		if newUsages[g.ID].Equal(g.Usage) {
			continue
		}
		changes = append(changes, dto.GrantUsageChange{
			GrantID:  g.ID,
			OldUsage: g.Usage,
			NewUsage: newUsages[g.ID],
		})
	}
	return changes, nil
}

// clampToFloor enforces the grant's overage floor on a requested effective
// balance, capping or rejecting per the configured overage behavior
func (s *balanceUpdateService) clampToFloor(g *grant.Grant, target decimal.Decimal) (decimal.Decimal, error) {
	floor := g.BalanceFloor()
	if floor == nil || target.GreaterThanOrEqual(*floor) {
		return target, nil
	}

	if s.Config.Billing.DefaultOverageBehavior == types.OverageBehaviorCap {
		return *floor, nil
	}
	return decimal.Zero, ierr.NewError("target balance exceeds the overage limit").
		WithHint("The requested balance is below what this grant's overage policy allows").
		WithReportableDetails(map[string]any{
			"grant_id": g.ID,
			"target":   target,
			"floor":    floor,
		}).
		Mark(ierr.ErrValidation)
}
