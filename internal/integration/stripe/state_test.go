package stripe

import (
	"testing"

	"github.com/samber/lo"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/stripe/stripe-go/v82"

	"github.com/useautumn/autumn-sub008/internal/domain/provider"
	"github.com/useautumn/autumn-sub008/internal/types"
)

func TestStateFromSubscription(t *testing.T) {
	sub := &stripe.Subscription{
		ID:       "sub_123",
		CancelAt: 1700000000,
		Schedule: &stripe.SubscriptionSchedule{
			ID:     "sched_1",
			Status: stripe.SubscriptionScheduleStatusActive,
		},
		Items: &stripe.SubscriptionItemList{
			Data: []*stripe.SubscriptionItem{
				{
					ID:       "si_1",
					Price:    &stripe.Price{ID: "price_base"},
					Quantity: 3,
				},
			},
		},
		Metadata: map[string]string{"managed_by": "reconciler"},
	}

	state := StateFromSubscription(sub)

	assert.Equal(t, "sub_123", state.SubscriptionID)
	require.NotNil(t, state.CancelAtMs)
	// seconds are widened to epoch milliseconds
	assert.Equal(t, int64(1700000000000), *state.CancelAtMs)

	assert.Equal(t, "sched_1", state.ScheduleID)
	assert.True(t, state.HasSchedule())

	require.Len(t, state.Items, 1)
	assert.Equal(t, "si_1", state.Items[0].ID)
	assert.Equal(t, "price_base", state.Items[0].PriceRef)
	assert.True(t, state.Items[0].Quantity.Equal(decimal.NewFromInt(3)))

	assert.Equal(t, "reconciler", state.Metadata["managed_by"])
}

func TestStateFromSubscriptionMinimal(t *testing.T) {
	state := StateFromSubscription(&stripe.Subscription{ID: "sub_123"})

	assert.True(t, state.HasSubscription())
	assert.False(t, state.HasSchedule())
	assert.Nil(t, state.CancelAtMs)
	assert.Empty(t, state.Items)

	assert.False(t, StateFromSubscription(nil).HasSubscription())
}

func TestScheduleStatusMapping(t *testing.T) {
	// a not-started schedule already controls the subscription's future
	assert.Equal(t, provider.ScheduleStatusActive, scheduleStatus(stripe.SubscriptionScheduleStatusNotStarted))
	assert.Equal(t, provider.ScheduleStatusActive, scheduleStatus(stripe.SubscriptionScheduleStatusActive))
	assert.Equal(t, provider.ScheduleStatusReleased, scheduleStatus(stripe.SubscriptionScheduleStatusReleased))
	assert.Equal(t, provider.ScheduleStatusCanceled, scheduleStatus(stripe.SubscriptionScheduleStatusCanceled))
	assert.Equal(t, provider.ScheduleStatusCompleted, scheduleStatus(stripe.SubscriptionScheduleStatusCompleted))
}

func TestPhaseParamsConversion(t *testing.T) {
	phases := updatePhaseParams([]types.BillingPhase{
		{
			StartMs:    1700000000000,
			EndMs:      lo.ToPtr(int64(1702592000000)),
			TrialEndMs: lo.ToPtr(int64(1700600000000)),
			Items: []types.PhaseItem{
				{PriceRef: "price_base", Quantity: decimal.NewFromInt(2)},
			},
		},
		{StartMs: 1702592000000},
	})

	require.Len(t, phases, 2)

	assert.Equal(t, int64(1700000000), *phases[0].StartDate)
	assert.Equal(t, int64(1702592000), *phases[0].EndDate)
	assert.Equal(t, int64(1700600000), *phases[0].TrialEnd)
	require.Len(t, phases[0].Items, 1)
	assert.Equal(t, "price_base", *phases[0].Items[0].Price)
	assert.Equal(t, int64(2), *phases[0].Items[0].Quantity)

	assert.Nil(t, phases[1].EndDate)
	assert.Nil(t, phases[1].TrialEnd)
}
