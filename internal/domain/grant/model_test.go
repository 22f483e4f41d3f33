package grant

import (
	"testing"

	"github.com/samber/lo"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	ierr "github.com/useautumn/autumn-sub008/internal/errors"
	"github.com/useautumn/autumn-sub008/internal/types"
)

func newPrepaidGrant(id string) *Grant {
	return &Grant{
		ID:           id,
		FeatureID:    "feat_msgs",
		PlanID:       "plan_pro",
		Kind:         types.GrantKindPrepaidPack,
		Allowance:    decimal.NewFromInt(100),
		BillingUnits: decimal.NewFromInt(50),
		PackCount:    decimal.NewFromInt(3),
		PricePerUnit: decimal.NewFromInt(10),
		AttachmentID: "att_1",
		PriceRef:     "price_msgs",
	}
}

func TestGrantedBalance(t *testing.T) {
	g := newPrepaidGrant("grant_1")

	// 100 included + 50 * 3 purchased
	assert.True(t, g.PurchasedQuantity().Equal(decimal.NewFromInt(150)))
	assert.True(t, g.GrantedBalance().Equal(decimal.NewFromInt(250)))

	// non-prepaid kinds never report purchased quantity
	g.Kind = types.GrantKindIncluded
	assert.True(t, g.PurchasedQuantity().IsZero())
	assert.True(t, g.GrantedBalance().Equal(decimal.NewFromInt(100)))
}

func TestCurrentBalanceClampsAtZero(t *testing.T) {
	g := newPrepaidGrant("grant_1")
	g.Usage = decimal.NewFromInt(300)

	assert.True(t, g.CurrentBalance().IsZero())
	assert.True(t, g.OverageUsed().Equal(decimal.NewFromInt(50)))
}

func TestCurrentBalanceWithCredit(t *testing.T) {
	g := newPrepaidGrant("grant_1")
	g.Usage = decimal.NewFromInt(-20)

	assert.True(t, g.CurrentBalance().Equal(decimal.NewFromInt(270)))
	assert.True(t, g.OverageUsed().IsZero())
}

func TestCurrentBalanceIncludesRollovers(t *testing.T) {
	g := newPrepaidGrant("grant_1")
	g.Rollovers = []Rollover{
		{ID: "roll_1", Balance: decimal.NewFromInt(30)},
		{ID: "roll_2", Balance: decimal.NewFromInt(20)},
	}
	g.Usage = decimal.NewFromInt(250)

	// 250 granted + 50 rolled over - 250 used
	assert.True(t, g.RolloverBalance().Equal(decimal.NewFromInt(50)))
	assert.True(t, g.CurrentBalance().Equal(decimal.NewFromInt(50)))
}

func TestBalanceFloor(t *testing.T) {
	g := newPrepaidGrant("grant_1")

	floor := g.BalanceFloor()
	require.NotNil(t, floor)
	assert.True(t, floor.IsZero())

	g.OverageAllowed = true
	assert.Nil(t, g.BalanceFloor())

	g.MaxOverage = lo.ToPtr(decimal.NewFromInt(40))
	floor = g.BalanceFloor()
	require.NotNil(t, floor)
	assert.True(t, floor.Equal(decimal.NewFromInt(-40)))
}

func TestPacksFor(t *testing.T) {
	packs, err := PacksFor(decimal.NewFromInt(300), decimal.NewFromInt(50))
	require.NoError(t, err)
	assert.True(t, packs.Equal(decimal.NewFromInt(6)))

	packs, err = PacksFor(decimal.NewFromInt(301), decimal.NewFromInt(50))
	require.NoError(t, err)
	assert.True(t, packs.Equal(decimal.NewFromInt(7)))

	packs, err = PacksFor(decimal.Zero, decimal.NewFromInt(50))
	require.NoError(t, err)
	assert.True(t, packs.IsZero())

	_, err = PacksFor(decimal.NewFromInt(10), decimal.Zero)
	require.Error(t, err)
	assert.True(t, ierr.IsValidation(err))
}

func TestSupersedeLeavesOriginalUntouched(t *testing.T) {
	g := newPrepaidGrant("grant_1")

	superseded := g.Supersede()
	assert.Equal(t, types.StatusArchived, superseded.Status)
	assert.NotEqual(t, types.StatusArchived, g.Status)
	assert.Equal(t, g.ID, superseded.ID)
}

func TestSortForDeduction(t *testing.T) {
	grants := []*Grant{
		newPrepaidGrant("grant_c"),
		newPrepaidGrant("grant_a"),
		newPrepaidGrant("grant_b"),
	}

	sorted := SortForDeduction(grants, false)
	assert.Equal(t, []string{"grant_a", "grant_b", "grant_c"},
		lo.Map(sorted, func(g *Grant, _ int) string { return g.ID }))

	reversed := SortForDeduction(grants, true)
	assert.Equal(t, []string{"grant_c", "grant_b", "grant_a"},
		lo.Map(reversed, func(g *Grant, _ int) string { return g.ID }))

	// input order is untouched
	assert.Equal(t, "grant_c", grants[0].ID)
}

func TestSortedRollovers(t *testing.T) {
	g1 := newPrepaidGrant("grant_1")
	g1.Rollovers = []Rollover{
		{ID: "roll_never", Balance: decimal.NewFromInt(5)},
		{ID: "roll_late", Balance: decimal.NewFromInt(10), ExpiresAtMs: lo.ToPtr(int64(2000))},
	}
	g2 := newPrepaidGrant("grant_2")
	g2.Rollovers = []Rollover{
		{ID: "roll_early", Balance: decimal.NewFromInt(7), ExpiresAtMs: lo.ToPtr(int64(1000))},
	}

	rollovers := SortedRollovers([]*Grant{g1, g2})
	require.Len(t, rollovers, 3)
	assert.Equal(t, "roll_early", rollovers[0].ID)
	assert.Equal(t, "roll_late", rollovers[1].ID)
	assert.Equal(t, "roll_never", rollovers[2].ID)
}

func TestGrantValidate(t *testing.T) {
	g := newPrepaidGrant("grant_1")
	require.NoError(t, g.Validate())

	bad := newPrepaidGrant("grant_2")
	bad.BillingUnits = decimal.Zero
	err := bad.Validate()
	require.Error(t, err)
	assert.True(t, ierr.IsValidation(err))

	bad = newPrepaidGrant("grant_3")
	bad.FeatureID = ""
	require.Error(t, bad.Validate())
}
