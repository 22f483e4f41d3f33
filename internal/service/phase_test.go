package service

import (
	"testing"

	"github.com/samber/lo"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/suite"

	"github.com/useautumn/autumn-sub008/internal/domain/attachment"
	"github.com/useautumn/autumn-sub008/internal/domain/grant"
	ierr "github.com/useautumn/autumn-sub008/internal/errors"
	"github.com/useautumn/autumn-sub008/internal/testutil"
	"github.com/useautumn/autumn-sub008/internal/types"
)

type PhaseServiceSuite struct {
	testutil.BaseServiceTestSuite
	service PhaseService
}

func TestPhaseService(t *testing.T) {
	suite.Run(t, new(PhaseServiceSuite))
}

func (s *PhaseServiceSuite) SetupTest() {
	s.BaseServiceTestSuite.SetupTest()
	s.service = NewPhaseService(ServiceParams{
		Logger: s.GetLogger(),
		Config: s.GetConfig(),
	})
}

func proAttachment(id string, startMs int64, endMs *int64) *attachment.ProductAttachment {
	return &attachment.ProductAttachment{
		ID:                  id,
		ProductID:           "prod_pro",
		ProductSlot:         "main",
		Status:              types.AttachmentStatusActive,
		StartsAtMs:          startMs,
		EndsAtMs:            endMs,
		ScopeID:             "cust_1",
		SubscriptionGroupID: "sub_1",
		Prices: []attachment.PriceItem{
			{PriceRef: "price_" + id, Quantity: decimal.NewFromInt(1)},
		},
	}
}

func (s *PhaseServiceSuite) TestNoAttachments() {
	phases, err := s.service.BuildPhases(s.GetContext(), nil)
	s.NoError(err)
	s.Empty(phases)
}

func (s *PhaseServiceSuite) TestSingleOpenEndedAttachment() {
	phases, err := s.service.BuildPhases(s.GetContext(), []*attachment.ProductAttachment{
		proAttachment("a", 1000, nil),
	})
	s.NoError(err)

	s.Require().Len(phases, 1)
	s.Equal(int64(1000), phases[0].StartMs)
	s.Nil(phases[0].EndMs)
	s.Len(phases[0].Items, 1)
}

func (s *PhaseServiceSuite) TestTrialAloneDoesNotSplit() {
	a := proAttachment("a", 1000, nil)
	a.Status = types.AttachmentStatusTrialing
	a.TrialEndsAtMs = lo.ToPtr(int64(5000))

	phases, err := s.service.BuildPhases(s.GetContext(), []*attachment.ProductAttachment{a})
	s.NoError(err)

	// one phase carrying trial_end, no split on the trial boundary
	s.Require().Len(phases, 1)
	s.Require().NotNil(phases[0].TrialEndMs)
	s.Equal(int64(5000), *phases[0].TrialEndMs)
	s.Nil(phases[0].EndMs)
}

func (s *PhaseServiceSuite) TestScheduledChangeSplitsPhases() {
	current := proAttachment("a", 1000, lo.ToPtr(int64(5000)))
	next := proAttachment("b", 5000, nil)
	next.Status = types.AttachmentStatusScheduled

	phases, err := s.service.BuildPhases(s.GetContext(), []*attachment.ProductAttachment{current, next})
	s.NoError(err)

	s.Require().Len(phases, 2)
	s.Equal(int64(1000), phases[0].StartMs)
	s.Require().NotNil(phases[0].EndMs)
	s.Equal(int64(5000), *phases[0].EndMs)
	s.Equal("price_a", phases[0].Items[0].PriceRef)

	// contiguous: next phase starts exactly where the previous ends
	s.Equal(int64(5000), phases[1].StartMs)
	s.Nil(phases[1].EndMs)
	s.Equal("price_b", phases[1].Items[0].PriceRef)
}

func (s *PhaseServiceSuite) TestTrialMaterializedInMultiPhase() {
	current := proAttachment("a", 1000, lo.ToPtr(int64(9000)))
	current.Status = types.AttachmentStatusTrialing
	current.TrialEndsAtMs = lo.ToPtr(int64(4000))
	next := proAttachment("b", 9000, nil)
	next.Status = types.AttachmentStatusScheduled

	phases, err := s.service.BuildPhases(s.GetContext(), []*attachment.ProductAttachment{current, next})
	s.NoError(err)

	// the scheduled change already splits, so the trial end becomes a real
	// boundary too
	s.Require().Len(phases, 3)
	s.Equal(int64(1000), phases[0].StartMs)
	s.Equal(int64(4000), *phases[0].EndMs)
	s.Require().NotNil(phases[0].TrialEndMs)
	s.Equal(int64(4000), *phases[0].TrialEndMs)

	s.Equal(int64(4000), phases[1].StartMs)
	s.Equal(int64(9000), *phases[1].EndMs)
	s.Nil(phases[1].TrialEndMs)

	s.Equal(int64(9000), phases[2].StartMs)
	s.Nil(phases[2].EndMs)
}

func (s *PhaseServiceSuite) TestEveryAttachmentEndsClosesTimeline() {
	a := proAttachment("a", 1000, lo.ToPtr(int64(5000)))
	a.Status = types.AttachmentStatusCanceling

	phases, err := s.service.BuildPhases(s.GetContext(), []*attachment.ProductAttachment{a})
	s.NoError(err)

	s.Require().Len(phases, 1)
	s.Require().NotNil(phases[0].EndMs)
	s.Equal(int64(5000), *phases[0].EndMs)
}

func (s *PhaseServiceSuite) TestGapIsInconsistent() {
	a := proAttachment("a", 1000, lo.ToPtr(int64(3000)))
	b := proAttachment("b", 4000, nil)
	b.ProductSlot = "other"

	_, err := s.service.BuildPhases(s.GetContext(), []*attachment.ProductAttachment{a, b})
	s.Error(err)
	s.True(ierr.IsInconsistentState(err))
}

func (s *PhaseServiceSuite) TestTerminalAttachmentsIgnored() {
	expired := proAttachment("a", 1000, lo.ToPtr(int64(2000)))
	expired.Status = types.AttachmentStatusExpired
	active := proAttachment("b", 1000, nil)

	phases, err := s.service.BuildPhases(s.GetContext(), []*attachment.ProductAttachment{expired, active})
	s.NoError(err)

	s.Require().Len(phases, 1)
	s.Len(phases[0].Items, 1)
	s.Equal("price_b", phases[0].Items[0].PriceRef)
}

func (s *PhaseServiceSuite) TestEntityItemsConcatenated() {
	a := proAttachment("a", 1000, nil)
	a.EntityID = lo.ToPtr("ent_1")
	a.Prices = nil
	a.Grants = []*grant.Grant{{
		ID:           "grant_a",
		FeatureID:    "feat_msgs",
		Kind:         types.GrantKindPrepaidPack,
		BillingUnits: decimal.NewFromInt(50),
		PackCount:    decimal.NewFromInt(2),
		PriceRef:     "price_msgs",
		AttachmentID: "a",
	}}

	b := proAttachment("b", 1000, nil)
	b.ProductSlot = "other"
	b.EntityID = lo.ToPtr("ent_2")
	b.Prices = nil
	b.Grants = []*grant.Grant{{
		ID:           "grant_b",
		FeatureID:    "feat_msgs",
		Kind:         types.GrantKindPrepaidPack,
		BillingUnits: decimal.NewFromInt(50),
		PackCount:    decimal.NewFromInt(3),
		PriceRef:     "price_msgs",
		AttachmentID: "b",
	}}

	phases, err := s.service.BuildPhases(s.GetContext(), []*attachment.ProductAttachment{a, b})
	s.NoError(err)

	// same price ref, two entities: two items, never one merged quantity
	s.Require().Len(phases, 1)
	s.Require().Len(phases[0].Items, 2)
	s.Equal("ent_1", *phases[0].Items[0].EntityID)
	s.True(phases[0].Items[0].Quantity.Equal(decimal.NewFromInt(2)))
	s.Equal("ent_2", *phases[0].Items[1].EntityID)
	s.True(phases[0].Items[1].Quantity.Equal(decimal.NewFromInt(3)))
}

func (s *PhaseServiceSuite) TestIdenticalAdjacentPhasesMerged() {
	// two back-to-back attachments with the same price produce one phase
	a := proAttachment("a", 1000, lo.ToPtr(int64(5000)))
	a.Prices = []attachment.PriceItem{{PriceRef: "price_x", Quantity: decimal.NewFromInt(1)}}
	b := proAttachment("b", 5000, nil)
	b.Status = types.AttachmentStatusScheduled
	b.Prices = []attachment.PriceItem{{PriceRef: "price_x", Quantity: decimal.NewFromInt(1)}}

	phases, err := s.service.BuildPhases(s.GetContext(), []*attachment.ProductAttachment{a, b})
	s.NoError(err)

	s.Require().Len(phases, 1)
	s.Equal(int64(1000), phases[0].StartMs)
	s.Nil(phases[0].EndMs)
}
