package dto

import (
	"github.com/useautumn/autumn-sub008/internal/types"
)

// ReconcileRequest asks for the minimal provider operation that brings the
// provider in line with one shared-subscription group of the snapshot
type ReconcileRequest struct {
	CustomerID          string `json:"customer_id" validate:"required"`
	SubscriptionGroupID string `json:"subscription_group_id" validate:"required"`
	// Options are the quantity options of the update being applied, if any;
	// omitted features carry their prior quantity over
	Options []FeatureQuantityOption `json:"options,omitempty"`
	// SkipCache forces the snapshot read through to the source
	SkipCache bool `json:"skip_cache,omitempty"`
}

func (r ReconcileRequest) Validate() error {
	for _, o := range r.Options {
		if err := o.Validate(); err != nil {
			return err
		}
	}
	return nil
}

// ReconcileResponse carries the one schedule action plus, when the change
// takes effect immediately, the subscription items diff to push
type ReconcileResponse struct {
	Action    types.ScheduleAction         `json:"action"`
	ItemsDiff *types.SubscriptionItemsDiff `json:"items_diff,omitempty"`
	Phases    []types.BillingPhase         `json:"phases"`
}
