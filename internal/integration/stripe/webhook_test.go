package stripe

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/stripe/stripe-go/v82/webhook"

	"github.com/useautumn/autumn-sub008/internal/config"
	ierr "github.com/useautumn/autumn-sub008/internal/errors"
	"github.com/useautumn/autumn-sub008/internal/logger"
)

const testWebhookSecret = "whsec_test_secret"

func newTestHandler(t *testing.T) *WebhookHandler {
	t.Helper()
	log, err := logger.NewLogger(config.GetDefaultConfig())
	require.NoError(t, err)
	return NewWebhookHandler(testWebhookSecret, log)
}

func signPayload(payload string) *webhook.SignedPayload {
	return webhook.GenerateTestSignedPayload(&webhook.UnsignedPayload{
		Payload:   []byte(payload),
		Secret:    testWebhookSecret,
		Timestamp: time.Now(),
		Scheme:    "v1",
	})
}

func TestHandleSubscriptionUpdated(t *testing.T) {
	h := newTestHandler(t)

	payload := `{
		"id": "evt_1",
		"api_version": "2025-08-27.basil",
		"type": "customer.subscription.updated",
		"data": {"object": {
			"id": "sub_123",
			"cancel_at": 1700000000,
			"items": {"data": [{"id": "si_1", "price": {"id": "price_base"}, "quantity": 2}]}
		}}
	}`
	signed := signPayload(payload)

	update, err := h.HandleEvent(signed.Payload, signed.Header)
	require.NoError(t, err)
	require.NotNil(t, update)

	assert.Equal(t, "sub_123", update.SubscriptionGroupID)
	assert.False(t, update.Deleted)
	require.NotNil(t, update.State)
	assert.Equal(t, "sub_123", update.State.SubscriptionID)
	require.NotNil(t, update.State.CancelAtMs)
	assert.Equal(t, int64(1700000000000), *update.State.CancelAtMs)
	require.Len(t, update.State.Items, 1)
	assert.Equal(t, "price_base", update.State.Items[0].PriceRef)
}

func TestHandleSubscriptionDeleted(t *testing.T) {
	h := newTestHandler(t)

	payload := `{
		"id": "evt_2",
		"api_version": "2025-08-27.basil",
		"type": "customer.subscription.deleted",
		"data": {"object": {"id": "sub_123"}}
	}`
	signed := signPayload(payload)

	update, err := h.HandleEvent(signed.Payload, signed.Header)
	require.NoError(t, err)
	require.NotNil(t, update)

	assert.Equal(t, "sub_123", update.SubscriptionGroupID)
	assert.True(t, update.Deleted)
	assert.Nil(t, update.State)
}

func TestHandleScheduleEvent(t *testing.T) {
	h := newTestHandler(t)

	payload := `{
		"id": "evt_3",
		"api_version": "2025-08-27.basil",
		"type": "subscription_schedule.updated",
		"data": {"object": {
			"id": "sched_1",
			"status": "active",
			"subscription": {"id": "sub_123"}
		}}
	}`
	signed := signPayload(payload)

	update, err := h.HandleEvent(signed.Payload, signed.Header)
	require.NoError(t, err)
	require.NotNil(t, update)

	assert.Equal(t, "sub_123", update.SubscriptionGroupID)
	require.NotNil(t, update.State)
	assert.Equal(t, "sched_1", update.State.ScheduleID)
	assert.True(t, update.State.HasSchedule())
}

func TestHandleIgnoredEvent(t *testing.T) {
	h := newTestHandler(t)

	payload := `{
		"id": "evt_4",
		"api_version": "2025-08-27.basil",
		"type": "invoice.paid",
		"data": {"object": {"id": "in_1"}}
	}`
	signed := signPayload(payload)

	update, err := h.HandleEvent(signed.Payload, signed.Header)
	require.NoError(t, err)
	assert.Nil(t, update)
}

func TestHandleBadSignature(t *testing.T) {
	h := newTestHandler(t)

	payload := `{"id": "evt_5", "api_version": "2025-08-27.basil", "type": "customer.subscription.updated", "data": {"object": {"id": "sub_123"}}}`
	signed := signPayload(payload)

	_, err := h.HandleEvent(signed.Payload, "t=1,v1=deadbeef")
	require.Error(t, err)
	assert.True(t, ierr.IsValidation(err))

	// untampered payload with the real header still verifies
	_, err = h.HandleEvent(signed.Payload, signed.Header)
	assert.NoError(t, err)
}
