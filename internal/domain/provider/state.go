package provider

import (
	"context"

	"github.com/shopspring/decimal"
	"github.com/useautumn/autumn-sub008/internal/types"
)

// ScheduleStatus is the provider-side lifecycle of a subscription schedule
type ScheduleStatus string

const (
	ScheduleStatusActive    ScheduleStatus = "active"
	ScheduleStatusReleased  ScheduleStatus = "released"
	ScheduleStatusCanceled  ScheduleStatus = "canceled"
	ScheduleStatusCompleted ScheduleStatus = "completed"
)

// IsLive reports whether the schedule still controls the subscription
func (s ScheduleStatus) IsLive() bool {
	return s == ScheduleStatusActive
}

// SubscriptionItem is one live line item on the provider subscription
type SubscriptionItem struct {
	ID       string          `json:"id"`
	PriceRef string          `json:"price_ref"`
	Quantity decimal.Decimal `json:"quantity"`
}

// State is the last known provider-side state for a shared-subscription
// group. Webhooks are the source of truth for every field here; the core
// recomputes its desired state from scratch against whatever it is handed.
type State struct {
	SubscriptionID string         `json:"subscription_id,omitempty"`
	ScheduleID     string         `json:"schedule_id,omitempty"`
	ScheduleStatus ScheduleStatus `json:"schedule_status,omitempty"`

	CancelAtMs        *int64 `json:"cancel_at_ms,omitempty"`
	CancelAtPeriodEnd bool   `json:"cancel_at_period_end,omitempty"`

	Items []SubscriptionItem `json:"items,omitempty"`

	Metadata types.Metadata `json:"metadata,omitempty"`
}

// HasSchedule reports whether a live schedule object exists on the provider
func (s *State) HasSchedule() bool {
	return s != nil && s.ScheduleID != "" && s.ScheduleStatus.IsLive()
}

// HasSubscription reports whether a provider subscription exists
func (s *State) HasSubscription() bool {
	return s != nil && s.SubscriptionID != ""
}

// StateFetcher re-reads provider state on demand. The reconciler uses it to
// re-sync once after a provider state mismatch; the network call itself
// belongs to the caller's integration layer.
type StateFetcher interface {
	FetchState(ctx context.Context, subscriptionGroupID string) (*State, error)
}
