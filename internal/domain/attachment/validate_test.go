package attachment

import (
	"testing"

	"github.com/samber/lo"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/useautumn/autumn-sub008/internal/domain/grant"
	ierr "github.com/useautumn/autumn-sub008/internal/errors"
	"github.com/useautumn/autumn-sub008/internal/types"
)

func newAttachment(id string, status types.AttachmentStatus) *ProductAttachment {
	return &ProductAttachment{
		ID:                  id,
		ProductID:           "prod_pro",
		ProductSlot:         "main",
		Status:              status,
		StartsAtMs:          1000,
		ScopeID:             "cust_1",
		SubscriptionGroupID: "sub_1",
	}
}

func TestValidateSetAllowsOneCurrentPerSlot(t *testing.T) {
	active := newAttachment("att_1", types.AttachmentStatusActive)
	require.NoError(t, ValidateSet([]*ProductAttachment{active}))
}

func TestValidateSetRejectsOverlappingCurrent(t *testing.T) {
	a := newAttachment("att_1", types.AttachmentStatusActive)
	b := newAttachment("att_2", types.AttachmentStatusTrialing)

	err := ValidateSet([]*ProductAttachment{a, b})
	require.Error(t, err)
	assert.True(t, ierr.IsInconsistentState(err))
}

func TestValidateSetAllowsDifferentSlots(t *testing.T) {
	a := newAttachment("att_1", types.AttachmentStatusActive)
	b := newAttachment("att_2", types.AttachmentStatusActive)
	b.ProductSlot = "addon"

	require.NoError(t, ValidateSet([]*ProductAttachment{a, b}))
}

func TestValidateSetScheduledNeedsAlignedPredecessor(t *testing.T) {
	active := newAttachment("att_1", types.AttachmentStatusActive)
	active.EndsAtMs = lo.ToPtr(int64(5000))
	scheduled := newAttachment("att_2", types.AttachmentStatusScheduled)
	scheduled.StartsAtMs = 5000

	require.NoError(t, ValidateSet([]*ProductAttachment{active, scheduled}))

	// a scheduled attachment starting anywhere else is inconsistent
	scheduled.StartsAtMs = 6000
	err := ValidateSet([]*ProductAttachment{active, scheduled})
	require.Error(t, err)
	assert.True(t, ierr.IsInconsistentState(err))
}

func TestValidateSetIgnoresTerminal(t *testing.T) {
	expired := newAttachment("att_1", types.AttachmentStatusExpired)
	active := newAttachment("att_2", types.AttachmentStatusActive)

	require.NoError(t, ValidateSet([]*ProductAttachment{expired, active}))
}

func TestCovers(t *testing.T) {
	a := newAttachment("att_1", types.AttachmentStatusActive)
	a.EndsAtMs = lo.ToPtr(int64(5000))

	assert.True(t, a.Covers(1000, lo.ToPtr(int64(5000))))
	assert.True(t, a.Covers(2000, lo.ToPtr(int64(3000))))
	assert.False(t, a.Covers(500, lo.ToPtr(int64(3000))))
	assert.False(t, a.Covers(2000, lo.ToPtr(int64(6000))))
	assert.False(t, a.Covers(2000, nil))

	a.EndsAtMs = nil
	assert.True(t, a.Covers(2000, nil))
	assert.True(t, a.Covers(2000, lo.ToPtr(int64(9000))))
}

func TestItemsFlattening(t *testing.T) {
	a := newAttachment("att_1", types.AttachmentStatusActive)
	a.EntityID = lo.ToPtr("ent_1")
	a.Grants = []*grant.Grant{
		{
			ID:           "grant_pack",
			FeatureID:    "feat_msgs",
			Kind:         types.GrantKindPrepaidPack,
			BillingUnits: decimal.NewFromInt(50),
			PackCount:    decimal.NewFromInt(3),
			PriceRef:     "price_msgs",
			AttachmentID: "att_1",
		},
		{
			ID:           "grant_seats",
			FeatureID:    "feat_seats",
			Kind:         types.GrantKindContinuous,
			Allowance:    decimal.NewFromInt(5),
			PriceRef:     "price_seats",
			AttachmentID: "att_1",
		},
		{
			// no price ref, not billable
			ID:           "grant_free",
			FeatureID:    "feat_api",
			Kind:         types.GrantKindIncluded,
			Allowance:    decimal.NewFromInt(1000),
			AttachmentID: "att_1",
		},
	}
	a.Prices = []PriceItem{{PriceRef: "price_base", Quantity: decimal.NewFromInt(1)}}

	items := a.Items()
	require.Len(t, items, 3)

	assert.Equal(t, "price_msgs", items[0].PriceRef)
	assert.True(t, items[0].Quantity.Equal(decimal.NewFromInt(3)))
	assert.Equal(t, "price_seats", items[1].PriceRef)
	assert.True(t, items[1].Quantity.Equal(decimal.NewFromInt(5)))
	assert.Equal(t, "price_base", items[2].PriceRef)

	for _, item := range items {
		require.NotNil(t, item.EntityID)
		assert.Equal(t, "ent_1", *item.EntityID)
	}
}
