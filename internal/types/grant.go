package types

import (
	ierr "github.com/useautumn/autumn-sub008/internal/errors"
	"github.com/samber/lo"
)

// GrantKind classifies how a grant's balance is allocated and billed
type GrantKind string

const (
	// GrantKindIncluded is an allowance bundled with the plan at no extra charge
	GrantKindIncluded GrantKind = "INCLUDED"
	// GrantKindPrepaidPack is purchased up front in multiples of billing units
	GrantKindPrepaidPack GrantKind = "PREPAID_PACK"
	// GrantKindConsumable is pay-per-use, billed in arrears
	GrantKindConsumable GrantKind = "CONSUMABLE"
	// GrantKindContinuous is a continuously allocated quantity (e.g. seats)
	GrantKindContinuous GrantKind = "CONTINUOUS"
)

func (k GrantKind) Validate() error {
	allowed := []GrantKind{
		GrantKindIncluded,
		GrantKindPrepaidPack,
		GrantKindConsumable,
		GrantKindContinuous,
	}
	if !lo.Contains(allowed, k) {
		return ierr.NewError("invalid grant kind").
			WithHint("Invalid grant kind").
			WithReportableDetails(map[string]any{
				"kind": k,
			}).
			Mark(ierr.ErrValidation)
	}
	return nil
}

// IsPrepaid reports whether the grant's quantity is purchased in packs
func (k GrantKind) IsPrepaid() bool {
	return k == GrantKindPrepaidPack
}

// ResetInterval is the cadence at which a grant's usage counter resets
type ResetInterval string

const (
	ResetIntervalDaily      ResetInterval = "DAILY"
	ResetIntervalWeekly     ResetInterval = "WEEKLY"
	ResetIntervalMonthly    ResetInterval = "MONTHLY"
	ResetIntervalQuarterly  ResetInterval = "QUARTERLY"
	ResetIntervalHalfYearly ResetInterval = "HALF_YEARLY"
	ResetIntervalAnnual     ResetInterval = "ANNUAL"
	ResetIntervalNever      ResetInterval = "NEVER"

	// ResetIntervalMultiple is a reporting sentinel for aggregates whose
	// grants carry differing intervals. Never valid on a grant itself.
	ResetIntervalMultiple ResetInterval = "MULTIPLE"
)

func (r ResetInterval) Validate() error {
	allowed := []ResetInterval{
		ResetIntervalDaily,
		ResetIntervalWeekly,
		ResetIntervalMonthly,
		ResetIntervalQuarterly,
		ResetIntervalHalfYearly,
		ResetIntervalAnnual,
		ResetIntervalNever,
	}
	if !lo.Contains(allowed, r) {
		return ierr.NewError("invalid reset interval").
			WithHint("Invalid usage reset interval").
			WithReportableDetails(map[string]any{
				"interval": r,
			}).
			Mark(ierr.ErrValidation)
	}
	return nil
}

// OverageBehavior controls what happens when a deduction exceeds the
// remaining balance of every matched grant
type OverageBehavior string

const (
	// OverageBehaviorCap clamps the deduction at the overage floor
	OverageBehaviorCap OverageBehavior = "cap"
	// OverageBehaviorReject refuses the deduction entirely
	OverageBehaviorReject OverageBehavior = "reject"
)
