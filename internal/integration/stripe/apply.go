package stripe

import (
	"context"

	"github.com/stripe/stripe-go/v82"

	ierr "github.com/useautumn/autumn-sub008/internal/errors"
	"github.com/useautumn/autumn-sub008/internal/types"
)

// Applier executes a computed schedule action and items diff against Stripe
type Applier struct {
	client *Client
}

func NewApplier(client *Client) *Applier {
	return &Applier{client: client}
}

// ApplyAction executes the single schedule operation a reconciliation pass
// decided on. A noop returns immediately.
func (a *Applier) ApplyAction(ctx context.Context, subscriptionID string, action types.ScheduleAction) error {
	switch action.Type {
	case types.ScheduleActionNone:
		return nil
	case types.ScheduleActionRelease:
		return a.releaseSchedule(ctx, action.ScheduleID)
	case types.ScheduleActionSetCancelAt:
		return a.setCancelAt(ctx, subscriptionID, action.CancelAtMs)
	case types.ScheduleActionCreateSchedule:
		return a.createSchedule(ctx, subscriptionID, action)
	case types.ScheduleActionUpdateSchedule:
		return a.updateSchedule(ctx, action)
	default:
		return ierr.NewError("unknown schedule action").
			WithReportableDetails(map[string]any{
				"action_type": action.Type,
			}).
			Mark(ierr.ErrInvalidOperation)
	}
}

func (a *Applier) releaseSchedule(ctx context.Context, scheduleID string) error {
	_, err := a.client.api.V1SubscriptionSchedules.Release(ctx, scheduleID, &stripe.SubscriptionScheduleReleaseParams{})
	if err != nil {
		return a.wrapStripeErr(err, "release subscription schedule", map[string]any{
			"schedule_id": scheduleID,
		})
	}
	a.client.logger.Infow("released subscription schedule", "schedule_id", scheduleID)
	return nil
}

// setCancelAt writes or clears the subscription's hard cancellation point
func (a *Applier) setCancelAt(ctx context.Context, subscriptionID string, cancelAtMs *int64) error {
	params := &stripe.SubscriptionUpdateParams{}
	if cancelAtMs != nil {
		params.CancelAt = stripe.Int64(msToSec(*cancelAtMs))
	} else {
		params.AddExtra("cancel_at", "")
	}

	_, err := a.client.api.V1Subscriptions.Update(ctx, subscriptionID, params)
	if err != nil {
		return a.wrapStripeErr(err, "set subscription cancel_at", map[string]any{
			"subscription_id": subscriptionID,
		})
	}
	a.client.logger.Infow("updated subscription cancel_at",
		"subscription_id", subscriptionID,
		"cancel_at_ms", cancelAtMs)
	return nil
}

func (a *Applier) createSchedule(ctx context.Context, subscriptionID string, action types.ScheduleAction) error {
	params := &stripe.SubscriptionScheduleCreateParams{
		FromSubscription: stripe.String(subscriptionID),
	}
	_, err := a.client.api.V1SubscriptionSchedules.Create(ctx, params)
	if err != nil {
		return a.wrapStripeErr(err, "create subscription schedule", map[string]any{
			"subscription_id": subscriptionID,
		})
	}

	// a schedule created from a subscription starts with Stripe's own view
	// of the current phase; a follow-up update writes the computed timeline
	sub, err := a.client.api.V1Subscriptions.Retrieve(ctx, subscriptionID, &stripe.SubscriptionRetrieveParams{
		Expand: []*string{stripe.String("schedule")},
	})
	if err != nil {
		return a.wrapStripeErr(err, "reload subscription after schedule create", map[string]any{
			"subscription_id": subscriptionID,
		})
	}
	if sub.Schedule == nil {
		return ierr.NewError("schedule missing after create").
			WithHint("Stripe did not attach the new schedule to the subscription").
			WithReportableDetails(map[string]any{
				"subscription_id": subscriptionID,
			}).
			Mark(ierr.ErrProviderMismatch)
	}

	action.ScheduleID = sub.Schedule.ID
	return a.updateSchedule(ctx, action)
}

func (a *Applier) updateSchedule(ctx context.Context, action types.ScheduleAction) error {
	params := &stripe.SubscriptionScheduleUpdateParams{
		EndBehavior: stripe.String(endBehavior(action.EndBehavior)),
		Phases:      updatePhaseParams(action.Phases),
	}
	for k, v := range action.Metadata {
		params.AddMetadata(k, v)
	}

	_, err := a.client.api.V1SubscriptionSchedules.Update(ctx, action.ScheduleID, params)
	if err != nil {
		return a.wrapStripeErr(err, "update subscription schedule", map[string]any{
			"schedule_id": action.ScheduleID,
		})
	}
	a.client.logger.Infow("updated subscription schedule",
		"schedule_id", action.ScheduleID,
		"phases", len(action.Phases))
	return nil
}

// ApplyItemsDiff pushes an immediate items diff onto the live subscription
func (a *Applier) ApplyItemsDiff(ctx context.Context, subscriptionID string, diff types.SubscriptionItemsDiff) error {
	for _, op := range diff.Operations {
		var err error
		switch op.Type {
		case types.ItemOperationAdd:
			_, err = a.client.api.V1SubscriptionItems.Create(ctx, &stripe.SubscriptionItemCreateParams{
				Subscription: stripe.String(subscriptionID),
				Price:        stripe.String(op.PriceRef),
				Quantity:     stripe.Int64(op.Quantity.IntPart()),
			})
		case types.ItemOperationUpdate:
			_, err = a.client.api.V1SubscriptionItems.Update(ctx, op.ItemID, &stripe.SubscriptionItemUpdateParams{
				Quantity: stripe.Int64(op.Quantity.IntPart()),
			})
		case types.ItemOperationRemove:
			_, err = a.client.api.V1SubscriptionItems.Delete(ctx, op.ItemID, &stripe.SubscriptionItemDeleteParams{})
		}
		if err != nil {
			return a.wrapStripeErr(err, "apply subscription item operation", map[string]any{
				"subscription_id": subscriptionID,
				"operation":       op.Type,
				"price_ref":       op.PriceRef,
			})
		}
	}
	return nil
}

func updatePhaseParams(phases []types.BillingPhase) []*stripe.SubscriptionScheduleUpdatePhaseParams {
	params := make([]*stripe.SubscriptionScheduleUpdatePhaseParams, 0, len(phases))
	for _, phase := range phases {
		p := &stripe.SubscriptionScheduleUpdatePhaseParams{
			StartDate: stripe.Int64(msToSec(phase.StartMs)),
		}
		if phase.EndMs != nil {
			p.EndDate = stripe.Int64(msToSec(*phase.EndMs))
		}
		if phase.TrialEndMs != nil {
			p.TrialEnd = stripe.Int64(msToSec(*phase.TrialEndMs))
		}
		for _, item := range phase.Items {
			p.Items = append(p.Items, &stripe.SubscriptionScheduleUpdatePhaseItemParams{
				Price:    stripe.String(item.PriceRef),
				Quantity: stripe.Int64(item.Quantity.IntPart()),
			})
		}
		params = append(params, p)
	}
	return params
}

func endBehavior(behavior types.ScheduleEndBehavior) string {
	if behavior == types.ScheduleEndBehaviorCancel {
		return string(stripe.SubscriptionScheduleEndBehaviorCancel)
	}
	return string(stripe.SubscriptionScheduleEndBehaviorRelease)
}

// wrapStripeErr maps a failed Stripe call onto the domain error model; a
// missing resource means local state and provider state disagree
func (a *Applier) wrapStripeErr(err error, operation string, details map[string]any) error {
	a.client.logger.Errorw("stripe call failed",
		"operation", operation,
		"error", err)

	details["error"] = err.Error()
	builder := ierr.WithError(err).
		WithHintf("Failed to %s", operation).
		WithReportableDetails(details)
	if isResourceMissing(err) {
		return builder.Mark(ierr.ErrProviderMismatch)
	}
	return builder.Mark(ierr.ErrInternal)
}
