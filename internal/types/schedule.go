package types

import (
	"github.com/shopspring/decimal"
)

// ScheduleActionType tags the single provider operation a reconciliation
// pass decided on
type ScheduleActionType string

const (
	// ScheduleActionNone means no schedule-related call is needed
	ScheduleActionNone ScheduleActionType = "none"
	// ScheduleActionRelease releases an existing schedule back to a plain subscription
	ScheduleActionRelease ScheduleActionType = "release"
	// ScheduleActionSetCancelAt sets or clears the subscription's hard cancellation point
	ScheduleActionSetCancelAt ScheduleActionType = "set_cancel_at"
	// ScheduleActionCreateSchedule creates a forward schedule from the built phases
	ScheduleActionCreateSchedule ScheduleActionType = "create_schedule"
	// ScheduleActionUpdateSchedule rewrites an existing schedule's phases
	ScheduleActionUpdateSchedule ScheduleActionType = "update_schedule"
)

// ScheduleEndBehavior is what the provider does after the last phase ends
type ScheduleEndBehavior string

const (
	// ScheduleEndBehaviorRelease keeps the subscription running on the last
	// phase's items after the schedule completes
	ScheduleEndBehaviorRelease ScheduleEndBehavior = "release"
	// ScheduleEndBehaviorCancel cancels the subscription when the last phase ends
	ScheduleEndBehaviorCancel ScheduleEndBehavior = "cancel"
)

// PhaseItem is one billable line within a phase. Items belonging to
// different entities are kept separate so quantities stay attributable.
type PhaseItem struct {
	PriceRef     string          `json:"price_ref"`
	FeatureID    string          `json:"feature_id,omitempty"`
	Quantity     decimal.Decimal `json:"quantity"`
	AttachmentID string          `json:"attachment_id,omitempty"`
	EntityID     *string         `json:"entity_id,omitempty"`
}

// BillingPhase is a contiguous span during which a fixed item set applies.
// EndMs is nil only on the last phase of an indefinite timeline. Phases are
// computed views, never persisted.
type BillingPhase struct {
	StartMs    int64       `json:"start_ms"`
	EndMs      *int64      `json:"end_ms,omitempty"`
	TrialEndMs *int64      `json:"trial_end_ms,omitempty"`
	Items      []PhaseItem `json:"items"`
}

// ScheduleAction is the tagged union handed back to the caller, expressed as
// parameters it passes verbatim to the provider's schedule API.
type ScheduleAction struct {
	Type        ScheduleActionType  `json:"type"`
	ScheduleID  string              `json:"schedule_id,omitempty"`
	Phases      []BillingPhase      `json:"phases,omitempty"`
	EndBehavior ScheduleEndBehavior `json:"end_behavior,omitempty"`
	// CancelAtMs applies to set_cancel_at only; nil clears a previously
	// set cancellation point.
	CancelAtMs *int64   `json:"cancel_at_ms,omitempty"`
	Metadata   Metadata `json:"metadata,omitempty"`
}

// IsNoop reports whether the action requires no provider call
func (a ScheduleAction) IsNoop() bool {
	return a.Type == ScheduleActionNone
}

// ItemOperationType tags one entry of a subscription items diff
type ItemOperationType string

const (
	ItemOperationAdd    ItemOperationType = "add"
	ItemOperationUpdate ItemOperationType = "update"
	ItemOperationRemove ItemOperationType = "remove"
)

// ItemOperation is one add/update/remove against the live subscription's items
type ItemOperation struct {
	Type ItemOperationType `json:"type"`
	// ItemID is the provider-side line item id, set for update and remove
	ItemID   string          `json:"item_id,omitempty"`
	PriceRef string          `json:"price_ref"`
	Quantity decimal.Decimal `json:"quantity"`
}

// SubscriptionItemsDiff is the flat set of item operations for an immediate
// (non-scheduled) subscription update
type SubscriptionItemsDiff struct {
	Operations []ItemOperation `json:"operations"`
}

// IsEmpty reports whether the diff would change nothing
func (d SubscriptionItemsDiff) IsEmpty() bool {
	return len(d.Operations) == 0
}
