package dto

import (
	"github.com/shopspring/decimal"
	"github.com/useautumn/autumn-sub008/internal/types"
)

// BalanceUpdateRequest sets a feature's current balance to an explicit
// target, optionally narrowed by a filter. With several matched grants the
// target is a sum constraint across them; granted balances are never
// touched, only usage moves.
type BalanceUpdateRequest struct {
	CustomerID    string              `json:"customer_id" validate:"required"`
	FeatureID     string              `json:"feature_id" validate:"required"`
	TargetBalance decimal.Decimal     `json:"target_balance"`
	Filter        types.BalanceFilter `json:"filter"`
}

func (r BalanceUpdateRequest) Validate() error {
	return r.Filter.Validate()
}

// GrantUsageChange reports one grant's usage counter before and after a
// balance update
type GrantUsageChange struct {
	GrantID  string          `json:"grant_id"`
	OldUsage decimal.Decimal `json:"old_usage"`
	NewUsage decimal.Decimal `json:"new_usage"`
}

// BalanceUpdateResponse returns the applied per-grant usage values and the
// re-aggregated balance
type BalanceUpdateResponse struct {
	Changes []GrantUsageChange `json:"changes"`
	Balance *AggregateBalance  `json:"balance"`
}
