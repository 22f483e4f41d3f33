package grant

import (
	"sort"

	"github.com/shopspring/decimal"
	ierr "github.com/useautumn/autumn-sub008/internal/errors"
	"github.com/useautumn/autumn-sub008/internal/types"
)

// Rollover is unused balance carried from a previous reset period, with its
// own expiry. Rollovers are reported alongside the grant, never merged into
// its granted balance.
type Rollover struct {
	ID          string          `json:"id"`
	Balance     decimal.Decimal `json:"balance"`
	Usage       decimal.Decimal `json:"usage"`
	ExpiresAtMs *int64          `json:"expires_at_ms,omitempty"`
	EntityID    *string         `json:"entity_id,omitempty"`
}

// Grant is one unit of entitlement to a feature: an included allowance, a
// prepaid pack, a pay-per-use allocation or a continuous allocation.
//
// A grant is immutable once attached. A plan update supersedes it (the old
// grant is marked terminal and a new one created); only the tracked usage
// counter moves.
type Grant struct {
	ID        string          `json:"id"`
	FeatureID string          `json:"feature_id"`
	PlanID    string          `json:"plan_id"`
	Kind      types.GrantKind `json:"kind"`

	// Allowance is the included quantity per reset period. Ignored when
	// Unlimited is set.
	Allowance decimal.Decimal `json:"allowance"`
	Unlimited bool            `json:"unlimited"`

	// BillingUnits is the number of units per purchased pack; PackCount the
	// number of packs bought. Purchased quantity = BillingUnits * PackCount.
	BillingUnits decimal.Decimal `json:"billing_units"`
	PackCount    decimal.Decimal `json:"pack_count"`
	PricePerUnit decimal.Decimal `json:"price_per_unit"`

	Reset         types.ResetInterval `json:"reset"`
	NextResetAtMs *int64              `json:"next_reset_at_ms,omitempty"`

	// EntityScopeID is set when the grant belongs to a sub-account rather
	// than the customer as a whole
	EntityScopeID *string `json:"entity_scope_id,omitempty"`

	// AttachmentID is the product attachment this grant originated from
	AttachmentID string `json:"attachment_id"`

	// PriceRef is the underlying billable price identity, shared across
	// entities holding the same price
	PriceRef string `json:"price_ref,omitempty"`

	OverageAllowed bool             `json:"overage_allowed"`
	MaxOverage     *decimal.Decimal `json:"max_overage,omitempty"`
	MaxPurchase    *decimal.Decimal `json:"max_purchase,omitempty"`

	// Usage is the tracked consumption counter. Negative usage is a credit
	// from a manual balance increase exceeding tracked consumption.
	Usage decimal.Decimal `json:"usage"`

	Rollovers []Rollover `json:"rollovers,omitempty"`

	EnvironmentID string `json:"environment_id"`
	types.BaseModel
}

func (g *Grant) Validate() error {
	if g.FeatureID == "" {
		return ierr.NewError("feature_id is required").
			WithHint("Please provide a valid feature ID").
			Mark(ierr.ErrValidation)
	}
	if err := g.Kind.Validate(); err != nil {
		return err
	}
	if g.Reset != "" {
		if err := g.Reset.Validate(); err != nil {
			return err
		}
	}
	if g.AttachmentID == "" {
		return ierr.NewError("attachment_id is required").
			WithHint("A grant must originate from a product attachment").
			WithReportableDetails(map[string]any{
				"grant_id": g.ID,
			}).
			Mark(ierr.ErrValidation)
	}
	if g.Kind.IsPrepaid() && g.BillingUnits.LessThanOrEqual(decimal.Zero) {
		return ierr.NewError("billing_units must be positive for prepaid grants").
			WithHint("Prepaid packs need a positive billing unit size").
			WithReportableDetails(map[string]any{
				"grant_id":      g.ID,
				"billing_units": g.BillingUnits,
			}).
			Mark(ierr.ErrValidation)
	}
	return nil
}

// PurchasedQuantity returns BillingUnits * PackCount for prepaid grants and
// zero for every other kind
func (g *Grant) PurchasedQuantity() decimal.Decimal {
	if !g.Kind.IsPrepaid() {
		return decimal.Zero
	}
	return g.BillingUnits.Mul(g.PackCount)
}

// GrantedBalance is the total quantity this grant entitles the holder to in
// the current period: included allowance plus purchased quantity.
func (g *Grant) GrantedBalance() decimal.Decimal {
	return g.Allowance.Add(g.PurchasedQuantity())
}

// RolloverBalance sums the unexpired rollover balances carried by the grant
func (g *Grant) RolloverBalance() decimal.Decimal {
	total := decimal.Zero
	for _, r := range g.Rollovers {
		total = total.Add(r.Balance)
	}
	return total
}

// CurrentBalance is what remains usable: granted plus rollovers minus usage,
// clamped at zero. The clamped excess is reported as overage, not as a
// negative balance.
func (g *Grant) CurrentBalance() decimal.Decimal {
	balance := g.GrantedBalance().Add(g.RolloverBalance()).Sub(g.Usage)
	if balance.IsNegative() {
		return decimal.Zero
	}
	return balance
}

// OverageUsed is the usage beyond granted plus rollovers, zero when within
// balance
func (g *Grant) OverageUsed() decimal.Decimal {
	overage := g.Usage.Sub(g.GrantedBalance().Add(g.RolloverBalance()))
	if overage.IsNegative() {
		return decimal.Zero
	}
	return overage
}

// BalanceFloor is the lowest effective balance a deduction may produce:
// -MaxOverage when overage is allowed and capped, zero when overage is not
// allowed, nil when overage is unbounded.
func (g *Grant) BalanceFloor() *decimal.Decimal {
	if !g.OverageAllowed {
		zero := decimal.Zero
		return &zero
	}
	if g.MaxOverage == nil {
		return nil
	}
	floor := g.MaxOverage.Neg()
	return &floor
}

// Supersede returns a terminal copy of the grant. Plan changes never mutate
// a grant's configuration in place.
func (g *Grant) Supersede() *Grant {
	superseded := *g
	superseded.Status = types.StatusArchived
	return &superseded
}

// PacksFor rounds a raw requested quantity up to whole packs of billingUnits
func PacksFor(quantity, billingUnits decimal.Decimal) (decimal.Decimal, error) {
	if billingUnits.LessThanOrEqual(decimal.Zero) {
		return decimal.Zero, ierr.NewError("billing_units must be positive").
			WithHint("Pack sizing requires a positive billing unit size").
			WithReportableDetails(map[string]any{
				"billing_units": billingUnits,
			}).
			Mark(ierr.ErrValidation)
	}
	if quantity.LessThanOrEqual(decimal.Zero) {
		return decimal.Zero, nil
	}
	return quantity.Div(billingUnits).Ceil(), nil
}

// SortForDeduction orders grants the way consumption is applied across them:
// grant id ascending (ULIDs are k-sortable, so oldest first), flipped when
// the org opts into reverse deduction order.
func SortForDeduction(grants []*Grant, reverse bool) []*Grant {
	sorted := make([]*Grant, len(grants))
	copy(sorted, grants)
	sort.SliceStable(sorted, func(i, j int) bool {
		if reverse {
			return sorted[i].ID > sorted[j].ID
		}
		return sorted[i].ID < sorted[j].ID
	})
	return sorted
}

// SortedRollovers returns the grant set's rollovers ordered oldest expiry
// first, with non-expiring rollovers last
func SortedRollovers(grants []*Grant) []Rollover {
	var rollovers []Rollover
	for _, g := range grants {
		rollovers = append(rollovers, g.Rollovers...)
	}
	sort.SliceStable(rollovers, func(i, j int) bool {
		a, b := rollovers[i].ExpiresAtMs, rollovers[j].ExpiresAtMs
		if a != nil && b != nil {
			return *a < *b
		}
		return a != nil
	})
	return rollovers
}
