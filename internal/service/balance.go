package service

import (
	"context"

	"github.com/samber/lo"

	"github.com/useautumn/autumn-sub008/internal/api/dto"
	"github.com/useautumn/autumn-sub008/internal/domain/customer"
	"github.com/useautumn/autumn-sub008/internal/domain/grant"
	ierr "github.com/useautumn/autumn-sub008/internal/errors"
	"github.com/useautumn/autumn-sub008/internal/types"
)

// BalanceService aggregates a feature's grants into a queryable balance
type BalanceService interface {
	GetBalance(ctx context.Context, customerID, featureID string, entityID *string, skipCache bool) (*dto.AggregateBalance, error)
	Check(ctx context.Context, req dto.CheckRequest) (*dto.CheckResponse, error)
}

type balanceService struct {
	ServiceParams
}

func NewBalanceService(params ServiceParams) BalanceService {
	return &balanceService{ServiceParams: params}
}

func (s *balanceService) GetBalance(ctx context.Context, customerID, featureID string, entityID *string, skipCache bool) (*dto.AggregateBalance, error) {
	snapshot, err := s.loadSnapshot(ctx, customerID, skipCache)
	if err != nil {
		return nil, err
	}

	grants, err := s.grantsForFeature(ctx, snapshot, featureID, entityID)
	if err != nil {
		return nil, err
	}

	return buildAggregateBalance(featureID, grants), nil
}

func (s *balanceService) Check(ctx context.Context, req dto.CheckRequest) (*dto.CheckResponse, error) {
	if err := req.Validate(); err != nil {
		return nil, err
	}

	feat, err := s.FeatureRepo.Get(ctx, req.FeatureID)
	if err != nil {
		return nil, ierr.WithError(err).
			WithHintf("Unknown feature %s", req.FeatureID).
			Mark(ierr.ErrValidation)
	}

	snapshot, err := s.loadSnapshot(ctx, req.CustomerID, req.SkipCache)
	if err != nil {
		return nil, err
	}

	grants, err := s.grantsForFeature(ctx, snapshot, req.FeatureID, req.EntityID)
	if err != nil {
		return nil, err
	}

	// Boolean features gate on grant presence alone
	if feat.Type == types.FeatureTypeBoolean {
		return &dto.CheckResponse{
			Allowed:          len(grants) > 0,
			AggregateBalance: dto.AggregateBalance{FeatureID: req.FeatureID},
		}, nil
	}

	balance := buildAggregateBalance(req.FeatureID, grants)

	allowed := balance.Unlimited ||
		req.Requested.LessThanOrEqual(balance.CurrentBalance)
	if !allowed {
		// overage-allowed grants keep the request within policy even past
		// the tracked balance
		allowed = lo.SomeBy(grants, func(g *grant.Grant) bool {
			return g.OverageAllowed
		})
	}

	s.Logger.Debugw("balance check",
		"customer_id", req.CustomerID,
		"feature_id", req.FeatureID,
		"requested", req.Requested,
		"current_balance", balance.CurrentBalance,
		"allowed", allowed)

	return &dto.CheckResponse{
		Allowed:          allowed,
		AggregateBalance: *balance,
	}, nil
}

func (s *balanceService) loadSnapshot(ctx context.Context, customerID string, skipCache bool) (*customer.Snapshot, error) {
	if s.SnapshotCache != nil {
		return s.SnapshotCache.GetSnapshot(ctx, customerID, skipCache)
	}
	return s.SnapshotRepo.GetSnapshot(ctx, customerID)
}

// grantsForFeature collects the feature's non-terminal grants visible to a
// scope: customer-level grants always, entity-scoped grants only for the
// requested entity. Without an entity, grants of every entity contribute.
func (s *balanceService) grantsForFeature(ctx context.Context, snapshot *customer.Snapshot, featureID string, entityID *string) ([]*grant.Grant, error) {
	if entityID != nil {
		if _, ok := snapshot.Entity(*entityID); !ok {
			return nil, ierr.NewError("unknown entity").
				WithHintf("Entity %s does not belong to customer %s", *entityID, snapshot.CustomerID).
				Mark(ierr.ErrValidation)
		}
	}

	var grants []*grant.Grant
	for _, a := range snapshot.LiveAttachments() {
		for _, g := range a.Grants {
			if g.FeatureID != featureID {
				continue
			}
			if g.Status == types.StatusArchived || g.Status == types.StatusDeleted {
				continue
			}
			if entityID != nil && g.EntityScopeID != nil && *g.EntityScopeID != *entityID {
				continue
			}
			grants = append(grants, g)
		}
	}
	return grants, nil
}

// buildAggregateBalance folds a grant set into the feature-level balance
// plus its per-grant breakdown
func buildAggregateBalance(featureID string, grants []*grant.Grant) *dto.AggregateBalance {
	balance := &dto.AggregateBalance{
		FeatureID: featureID,
		Breakdown: []dto.BalanceBreakdownEntry{},
	}

	if lo.SomeBy(grants, func(g *grant.Grant) bool { return g.Unlimited }) {
		balance.Unlimited = true
		return balance
	}

	for _, g := range grants {
		entry := dto.BalanceBreakdownEntry{
			GrantID:          g.ID,
			PlanID:           g.PlanID,
			GrantedBalance:   g.Allowance,
			PurchasedBalance: g.PurchasedQuantity().Add(g.OverageUsed()),
			CurrentBalance:   g.CurrentBalance(),
			Usage:            g.Usage,
			OverageAllowed:   g.OverageAllowed,
			MaxPurchase:      g.MaxPurchase,
			EntityID:         g.EntityScopeID,
			Reset: dto.ResetInfo{
				Interval:      g.Reset,
				NextResetAtMs: g.NextResetAtMs,
			},
		}
		balance.Breakdown = append(balance.Breakdown, entry)

		balance.GrantedBalance = balance.GrantedBalance.Add(entry.GrantedBalance)
		balance.PurchasedBalance = balance.PurchasedBalance.Add(entry.PurchasedBalance)
		balance.CurrentBalance = balance.CurrentBalance.Add(entry.CurrentBalance)
		balance.Usage = balance.Usage.Add(entry.Usage)
	}

	balance.Reset = aggregateReset(grants)
	balance.Rollovers = rolloverEntries(grants)

	return balance
}

// aggregateReset reports the shared interval with the earliest reset
// timestamp, or the "multiple" sentinel with no timestamp when grants
// disagree
func aggregateReset(grants []*grant.Grant) *dto.ResetInfo {
	if len(grants) == 0 {
		return nil
	}

	intervals := lo.Uniq(lo.Map(grants, func(g *grant.Grant, _ int) types.ResetInterval {
		return g.Reset
	}))
	if len(intervals) > 1 {
		return &dto.ResetInfo{Interval: types.ResetIntervalMultiple}
	}

	info := &dto.ResetInfo{Interval: intervals[0]}
	for _, g := range grants {
		if g.NextResetAtMs == nil {
			continue
		}
		if info.NextResetAtMs == nil || *g.NextResetAtMs < *info.NextResetAtMs {
			info.NextResetAtMs = g.NextResetAtMs
		}
	}
	return info
}

// rolloverEntries concatenates (never sums) the rollovers carried by the
// grant set, oldest expiry first. Nil when no grant carries one.
func rolloverEntries(grants []*grant.Grant) []dto.RolloverEntry {
	rollovers := grant.SortedRollovers(grants)
	if len(rollovers) == 0 {
		return nil
	}
	return lo.Map(rollovers, func(r grant.Rollover, _ int) dto.RolloverEntry {
		return dto.RolloverEntry{
			Balance:     r.Balance,
			Usage:       r.Usage,
			ExpiresAtMs: r.ExpiresAtMs,
		}
	})
}
