package dto

import (
	"github.com/shopspring/decimal"
	ierr "github.com/useautumn/autumn-sub008/internal/errors"
)

// FeatureQuantityOption carries the requested quantity for one prepaid
// feature on an attach or update call. A nil Quantity means "not specified"
// and carries the prior quantity over; an explicit zero is a real reset.
type FeatureQuantityOption struct {
	FeatureID string           `json:"feature_id" validate:"required"`
	Quantity  *decimal.Decimal `json:"quantity,omitempty"`
}

func (o FeatureQuantityOption) Validate() error {
	if o.FeatureID == "" {
		return ierr.NewError("feature_id is required").
			WithHint("Quantity options must name a feature").
			Mark(ierr.ErrValidation)
	}
	if o.Quantity != nil && o.Quantity.IsNegative() {
		return ierr.NewError("quantity cannot be negative").
			WithHint("Prepaid quantities must be zero or positive").
			WithReportableDetails(map[string]any{
				"feature_id": o.FeatureID,
				"quantity":   o.Quantity,
			}).
			Mark(ierr.ErrValidation)
	}
	return nil
}

// ProrationPreviewRequest previews the price delta of changing a prepaid
// grant's configuration or quantity mid-cycle
type ProrationPreviewRequest struct {
	GrantID string `json:"grant_id" validate:"required"`
	// NewBillingUnits and NewPricePerUnit default to the grant's current
	// configuration when nil
	NewBillingUnits *decimal.Decimal `json:"new_billing_units,omitempty"`
	NewPricePerUnit *decimal.Decimal `json:"new_price_per_unit,omitempty"`
	// NewQuantity is the desired total quantity; nil carries the current
	// purchased quantity over
	NewQuantity *decimal.Decimal `json:"new_quantity,omitempty"`
}

// ProrationPreviewResponse reports the repacked pack counts and the exact
// price delta
type ProrationPreviewResponse struct {
	OldPacks   decimal.Decimal `json:"old_packs"`
	NewPacks   decimal.Decimal `json:"new_packs"`
	OldAmount  decimal.Decimal `json:"old_amount"`
	NewAmount  decimal.Decimal `json:"new_amount"`
	PriceDelta decimal.Decimal `json:"price_delta"`
}
