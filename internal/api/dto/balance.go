package dto

import (
	"github.com/shopspring/decimal"
	ierr "github.com/useautumn/autumn-sub008/internal/errors"
	"github.com/useautumn/autumn-sub008/internal/types"
)

// ResetInfo reports the reset cadence of a balance. Interval is the
// "MULTIPLE" sentinel, with no reset timestamp, when the contributing
// grants disagree.
type ResetInfo struct {
	Interval      types.ResetInterval `json:"interval"`
	NextResetAtMs *int64              `json:"next_reset_at_ms,omitempty"`
}

// RolloverEntry is one carried-over balance with its own expiry. Rollovers
// are concatenated across grants, never summed.
type RolloverEntry struct {
	Balance     decimal.Decimal `json:"balance"`
	Usage       decimal.Decimal `json:"usage"`
	ExpiresAtMs *int64          `json:"expires_at_ms,omitempty"`
}

// BalanceBreakdownEntry is the per-grant decomposition of an aggregate
// balance. GrantedBalance only changes when the underlying grant is
// replaced.
type BalanceBreakdownEntry struct {
	GrantID          string           `json:"grant_id"`
	PlanID           string           `json:"plan_id,omitempty"`
	GrantedBalance   decimal.Decimal  `json:"granted_balance"`
	PurchasedBalance decimal.Decimal  `json:"purchased_balance"`
	CurrentBalance   decimal.Decimal  `json:"current_balance"`
	Usage            decimal.Decimal  `json:"usage"`
	OverageAllowed   bool             `json:"overage_allowed"`
	MaxPurchase      *decimal.Decimal `json:"max_purchase,omitempty"`
	Reset            ResetInfo        `json:"reset"`
	EntityID         *string          `json:"entity_id,omitempty"`
}

// AggregateBalance is the feature-level sum across all applicable grants.
// Usage may be negative (net credit) when a manual balance increase exceeds
// tracked consumption.
type AggregateBalance struct {
	FeatureID        string                  `json:"feature_id"`
	Unlimited        bool                    `json:"unlimited,omitempty"`
	GrantedBalance   decimal.Decimal         `json:"granted_balance"`
	PurchasedBalance decimal.Decimal         `json:"purchased_balance"`
	CurrentBalance   decimal.Decimal         `json:"current_balance"`
	Usage            decimal.Decimal         `json:"usage"`
	Reset            *ResetInfo              `json:"reset,omitempty"`
	Breakdown        []BalanceBreakdownEntry `json:"breakdown"`
	Rollovers        []RolloverEntry         `json:"rollovers,omitempty"`
}

// CheckRequest asks whether a scope may consume a quantity of a feature
type CheckRequest struct {
	CustomerID string          `json:"customer_id" validate:"required"`
	FeatureID  string          `json:"feature_id" validate:"required"`
	EntityID   *string         `json:"entity_id,omitempty"`
	Requested  decimal.Decimal `json:"requested"`
	// SkipCache forces a read through to the snapshot source
	SkipCache bool `json:"skip_cache,omitempty"`
}

func (r CheckRequest) Validate() error {
	if r.Requested.IsNegative() {
		return ierr.NewError("requested quantity cannot be negative").
			WithHint("Check requests must ask for a non-negative quantity").
			Mark(ierr.ErrValidation)
	}
	return nil
}

// CheckResponse is the check-and-decide result. Not having enough balance
// is a normal control path, never an error: Allowed false plus the
// diagnostic breakdown.
type CheckResponse struct {
	Allowed bool `json:"allowed"`
	AggregateBalance
}
