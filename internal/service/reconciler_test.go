package service

import (
	"testing"

	"github.com/samber/lo"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/suite"

	"github.com/useautumn/autumn-sub008/internal/api/dto"
	"github.com/useautumn/autumn-sub008/internal/domain/attachment"
	"github.com/useautumn/autumn-sub008/internal/domain/customer"
	"github.com/useautumn/autumn-sub008/internal/domain/provider"
	ierr "github.com/useautumn/autumn-sub008/internal/errors"
	"github.com/useautumn/autumn-sub008/internal/testutil"
	"github.com/useautumn/autumn-sub008/internal/types"
)

type ReconcileServiceSuite struct {
	testutil.BaseServiceTestSuite
	service ReconcileService
}

func TestReconcileService(t *testing.T) {
	suite.Run(t, new(ReconcileServiceSuite))
}

func (s *ReconcileServiceSuite) SetupTest() {
	s.BaseServiceTestSuite.SetupTest()
	s.service = NewReconcileService(ServiceParams{
		Logger:               s.GetLogger(),
		Config:               s.GetConfig(),
		FeatureRepo:          s.GetStores().FeatureRepo,
		GrantRepo:            s.GetStores().GrantRepo,
		AttachmentRepo:       s.GetStores().AttachmentRepo,
		SnapshotRepo:         s.GetStores().SnapshotRepo,
		ProviderStateFetcher: s.GetStores().StateFetcher,
	})
}

func (s *ReconcileServiceSuite) seedSnapshot(attachments ...*attachment.ProductAttachment) {
	s.GetStores().SnapshotRepo.Set(&customer.Snapshot{
		CustomerID:  "cust_1",
		Attachments: attachments,
	})
}

func activeAttachment() *attachment.ProductAttachment {
	return &attachment.ProductAttachment{
		ID:                  "att_1",
		ProductID:           "prod_pro",
		ProductSlot:         "main",
		Status:              types.AttachmentStatusActive,
		StartsAtMs:          1000,
		ScopeID:             "cust_1",
		SubscriptionGroupID: "sub_1",
		Prices: []attachment.PriceItem{
			{PriceRef: "price_base", Quantity: decimal.NewFromInt(1)},
		},
	}
}

func (s *ReconcileServiceSuite) TestSteadyStateIsNoop() {
	s.seedSnapshot(activeAttachment())
	s.GetStores().StateFetcher.SetState("sub_1", &provider.State{
		SubscriptionID: "sub_1",
		Items: []provider.SubscriptionItem{
			{ID: "si_1", PriceRef: "price_base", Quantity: decimal.NewFromInt(1)},
		},
	})

	resp, err := s.service.Reconcile(s.GetContext(), &dto.ReconcileRequest{
		CustomerID:          "cust_1",
		SubscriptionGroupID: "sub_1",
	})
	s.NoError(err)

	s.True(resp.Action.IsNoop())
	s.Nil(resp.ItemsDiff)
	s.Len(resp.Phases, 1)

	// a second pass against unchanged state computes the same answer
	again, err := s.service.Reconcile(s.GetContext(), &dto.ReconcileRequest{
		CustomerID:          "cust_1",
		SubscriptionGroupID: "sub_1",
	})
	s.NoError(err)
	s.Equal(resp.Action, again.Action)
}

func (s *ReconcileServiceSuite) TestItemsDiffOnQuantityDrift() {
	s.seedSnapshot(activeAttachment())
	s.GetStores().StateFetcher.SetState("sub_1", &provider.State{
		SubscriptionID: "sub_1",
		Items: []provider.SubscriptionItem{
			{ID: "si_1", PriceRef: "price_base", Quantity: decimal.NewFromInt(2)},
		},
	})

	resp, err := s.service.Reconcile(s.GetContext(), &dto.ReconcileRequest{
		CustomerID:          "cust_1",
		SubscriptionGroupID: "sub_1",
	})
	s.NoError(err)

	s.Require().NotNil(resp.ItemsDiff)
	s.Require().Len(resp.ItemsDiff.Operations, 1)
	s.Equal(types.ItemOperationUpdate, resp.ItemsDiff.Operations[0].Type)
	s.True(resp.ItemsDiff.Operations[0].Quantity.Equal(decimal.NewFromInt(1)))
}

func (s *ReconcileServiceSuite) TestCancelingAttachmentSetsCancelAt() {
	a := activeAttachment()
	a.Status = types.AttachmentStatusCanceling
	a.EndsAtMs = lo.ToPtr(int64(9000))
	s.seedSnapshot(a)

	s.GetStores().StateFetcher.SetState("sub_1", &provider.State{
		SubscriptionID: "sub_1",
		Items: []provider.SubscriptionItem{
			{ID: "si_1", PriceRef: "price_base", Quantity: decimal.NewFromInt(1)},
		},
	})

	resp, err := s.service.Reconcile(s.GetContext(), &dto.ReconcileRequest{
		CustomerID:          "cust_1",
		SubscriptionGroupID: "sub_1",
	})
	s.NoError(err)

	s.Equal(types.ScheduleActionSetCancelAt, resp.Action.Type)
	s.Require().NotNil(resp.Action.CancelAtMs)
	s.Equal(int64(9000), *resp.Action.CancelAtMs)
}

func (s *ReconcileServiceSuite) TestUpgradeBuildsSchedule() {
	current := activeAttachment()
	current.EndsAtMs = lo.ToPtr(int64(9000))

	next := activeAttachment()
	next.ID = "att_2"
	next.Status = types.AttachmentStatusScheduled
	next.StartsAtMs = 9000
	next.EndsAtMs = nil
	next.Prices = []attachment.PriceItem{
		{PriceRef: "price_scale", Quantity: decimal.NewFromInt(1)},
	}
	s.seedSnapshot(current, next)

	s.GetStores().StateFetcher.SetState("sub_1", &provider.State{
		SubscriptionID: "sub_1",
		Items: []provider.SubscriptionItem{
			{ID: "si_1", PriceRef: "price_base", Quantity: decimal.NewFromInt(1)},
		},
	})

	resp, err := s.service.Reconcile(s.GetContext(), &dto.ReconcileRequest{
		CustomerID:          "cust_1",
		SubscriptionGroupID: "sub_1",
	})
	s.NoError(err)

	s.Equal(types.ScheduleActionCreateSchedule, resp.Action.Type)
	s.Len(resp.Action.Phases, 2)
	// schedules carry the item changes; no immediate diff alongside
	s.Nil(resp.ItemsDiff)
}

func (s *ReconcileServiceSuite) TestInconsistentAttachmentsRejected() {
	a := activeAttachment()
	b := activeAttachment()
	b.ID = "att_2"
	s.seedSnapshot(a, b)

	_, err := s.service.Reconcile(s.GetContext(), &dto.ReconcileRequest{
		CustomerID:          "cust_1",
		SubscriptionGroupID: "sub_1",
	})
	s.Error(err)
	s.True(ierr.IsInconsistentState(err))
}

func (s *ReconcileServiceSuite) TestMismatchResyncsOnce() {
	s.seedSnapshot(activeAttachment())

	// first fetch sees no subscription, the re-sync sees the real one
	s.GetStores().StateFetcher.QueueStates("sub_1",
		&provider.State{},
		&provider.State{
			SubscriptionID: "sub_1",
			Items: []provider.SubscriptionItem{
				{ID: "si_1", PriceRef: "price_base", Quantity: decimal.NewFromInt(1)},
			},
		},
	)

	resp, err := s.service.Reconcile(s.GetContext(), &dto.ReconcileRequest{
		CustomerID:          "cust_1",
		SubscriptionGroupID: "sub_1",
	})
	s.NoError(err)
	s.True(resp.Action.IsNoop())
	s.Equal(2, s.GetStores().StateFetcher.Fetches)
}

func (s *ReconcileServiceSuite) TestPersistentMismatchFails() {
	s.seedSnapshot(activeAttachment())
	s.GetStores().StateFetcher.SetState("sub_1", &provider.State{})

	_, err := s.service.Reconcile(s.GetContext(), &dto.ReconcileRequest{
		CustomerID:          "cust_1",
		SubscriptionGroupID: "sub_1",
	})
	s.Error(err)
	s.True(ierr.IsProviderMismatch(err))
}
