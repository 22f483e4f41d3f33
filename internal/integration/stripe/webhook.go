package stripe

import (
	"encoding/json"
	"strings"

	"github.com/stripe/stripe-go/v82"
	"github.com/stripe/stripe-go/v82/webhook"

	"github.com/useautumn/autumn-sub008/internal/domain/provider"
	ierr "github.com/useautumn/autumn-sub008/internal/errors"
	"github.com/useautumn/autumn-sub008/internal/logger"
)

// WebhookHandler verifies incoming Stripe events and folds subscription
// lifecycle events into provider state updates
type WebhookHandler struct {
	secret string
	logger *logger.Logger
}

func NewWebhookHandler(secret string, logger *logger.Logger) *WebhookHandler {
	return &WebhookHandler{secret: secret, logger: logger}
}

// StateUpdate is the provider state change a webhook event implies for one
// subscription group. A nil State with a Deleted flag clears the stored
// state.
type StateUpdate struct {
	SubscriptionGroupID string
	State               *provider.State
	Deleted             bool
}

// HandleEvent verifies the payload signature and maps the event onto a
// state update. Events this engine does not track return a nil update.
func (h *WebhookHandler) HandleEvent(payload []byte, signature string) (*StateUpdate, error) {
	event, err := webhook.ConstructEvent(payload, signature, h.secret)
	if err != nil {
		return nil, ierr.WithError(err).
			WithHint("Stripe webhook signature verification failed").
			Mark(ierr.ErrValidation)
	}

	switch {
	case event.Type == "customer.subscription.deleted":
		sub, err := parseSubscription(event)
		if err != nil {
			return nil, err
		}
		return &StateUpdate{SubscriptionGroupID: sub.ID, Deleted: true}, nil

	case strings.HasPrefix(string(event.Type), "customer.subscription."):
		sub, err := parseSubscription(event)
		if err != nil {
			return nil, err
		}
		return &StateUpdate{
			SubscriptionGroupID: sub.ID,
			State:               StateFromSubscription(sub),
		}, nil

	case strings.HasPrefix(string(event.Type), "subscription_schedule."):
		schedule, err := parseSchedule(event)
		if err != nil {
			return nil, err
		}
		if schedule.Subscription == nil {
			// a schedule not yet attached to a subscription has nothing to sync
			return nil, nil
		}
		state := StateFromSubscription(schedule.Subscription)
		state.ScheduleID = schedule.ID
		state.ScheduleStatus = scheduleStatus(schedule.Status)
		return &StateUpdate{
			SubscriptionGroupID: schedule.Subscription.ID,
			State:               state,
		}, nil

	default:
		h.logger.Debugw("ignoring stripe event", "event_type", event.Type)
		return nil, nil
	}
}

func parseSubscription(event stripe.Event) (*stripe.Subscription, error) {
	var sub stripe.Subscription
	if err := json.Unmarshal(event.Data.Raw, &sub); err != nil {
		return nil, ierr.WithError(err).
			WithHint("Malformed subscription payload in Stripe event").
			WithReportableDetails(map[string]any{
				"event_id":   event.ID,
				"event_type": event.Type,
			}).
			Mark(ierr.ErrValidation)
	}
	return &sub, nil
}

func parseSchedule(event stripe.Event) (*stripe.SubscriptionSchedule, error) {
	var schedule stripe.SubscriptionSchedule
	if err := json.Unmarshal(event.Data.Raw, &schedule); err != nil {
		return nil, ierr.WithError(err).
			WithHint("Malformed schedule payload in Stripe event").
			WithReportableDetails(map[string]any{
				"event_id":   event.ID,
				"event_type": event.Type,
			}).
			Mark(ierr.ErrValidation)
	}
	return &schedule, nil
}
