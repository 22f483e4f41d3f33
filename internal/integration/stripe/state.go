package stripe

import (
	"context"

	"github.com/samber/lo"
	"github.com/shopspring/decimal"
	"github.com/stripe/stripe-go/v82"

	"github.com/useautumn/autumn-sub008/internal/domain/provider"
	ierr "github.com/useautumn/autumn-sub008/internal/errors"
	"github.com/useautumn/autumn-sub008/internal/types"
)

// StateFetcher reads the live Stripe state for a shared-subscription group.
// The group id is the Stripe subscription id.
type StateFetcher struct {
	client *Client
}

func NewStateFetcher(client *Client) *StateFetcher {
	return &StateFetcher{client: client}
}

func (f *StateFetcher) FetchState(ctx context.Context, subscriptionGroupID string) (*provider.State, error) {
	params := &stripe.SubscriptionRetrieveParams{
		Expand: []*string{
			stripe.String("schedule"),
			stripe.String("items.data.price"),
		},
	}

	sub, err := f.client.api.V1Subscriptions.Retrieve(ctx, subscriptionGroupID, params)
	if err != nil {
		if isResourceMissing(err) {
			// a deleted subscription is absent state, not a failure
			f.client.logger.Debugw("stripe subscription missing",
				"subscription_id", subscriptionGroupID)
			return &provider.State{}, nil
		}
		return nil, ierr.WithError(err).
			WithHint("Could not fetch subscription state from Stripe").
			WithReportableDetails(map[string]any{
				"subscription_id": subscriptionGroupID,
			}).
			Mark(ierr.ErrInternal)
	}

	return StateFromSubscription(sub), nil
}

// StateFromSubscription maps a Stripe subscription, with its schedule
// expanded, onto the provider state the reconciler computes against.
// Webhook handlers reuse it so synced state and fetched state agree.
func StateFromSubscription(sub *stripe.Subscription) *provider.State {
	if sub == nil {
		return &provider.State{}
	}

	state := &provider.State{
		SubscriptionID:    sub.ID,
		CancelAtPeriodEnd: sub.CancelAtPeriodEnd,
	}
	if sub.CancelAt > 0 {
		state.CancelAtMs = lo.ToPtr(secToMs(sub.CancelAt))
	}
	if sub.Schedule != nil {
		state.ScheduleID = sub.Schedule.ID
		state.ScheduleStatus = scheduleStatus(sub.Schedule.Status)
	}
	if sub.Items != nil {
		for _, item := range sub.Items.Data {
			if item == nil || item.Price == nil {
				continue
			}
			state.Items = append(state.Items, provider.SubscriptionItem{
				ID:       item.ID,
				PriceRef: item.Price.ID,
				Quantity: decimal.NewFromInt(item.Quantity),
			})
		}
	}
	if len(sub.Metadata) > 0 {
		state.Metadata = types.Metadata(sub.Metadata)
	}
	return state
}

// scheduleStatus folds Stripe's schedule statuses onto the provider model;
// a not-started schedule already controls the subscription's future
func scheduleStatus(status stripe.SubscriptionScheduleStatus) provider.ScheduleStatus {
	switch status {
	case stripe.SubscriptionScheduleStatusActive, stripe.SubscriptionScheduleStatusNotStarted:
		return provider.ScheduleStatusActive
	case stripe.SubscriptionScheduleStatusReleased:
		return provider.ScheduleStatusReleased
	case stripe.SubscriptionScheduleStatusCanceled:
		return provider.ScheduleStatusCanceled
	case stripe.SubscriptionScheduleStatusCompleted:
		return provider.ScheduleStatusCompleted
	default:
		return provider.ScheduleStatus(status)
	}
}

func secToMs(sec int64) int64 {
	return sec * 1000
}

func msToSec(ms int64) int64 {
	return ms / 1000
}
