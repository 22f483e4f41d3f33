package service

import (
	"context"
	"time"

	"github.com/cenkalti/backoff/v4"

	"github.com/useautumn/autumn-sub008/internal/api/dto"
	"github.com/useautumn/autumn-sub008/internal/domain/attachment"
	"github.com/useautumn/autumn-sub008/internal/domain/customer"
	"github.com/useautumn/autumn-sub008/internal/domain/provider"
	ierr "github.com/useautumn/autumn-sub008/internal/errors"
	"github.com/useautumn/autumn-sub008/internal/types"
	"github.com/useautumn/autumn-sub008/internal/validator"
)

// ReconcileService computes the single provider operation that brings one
// shared-subscription group in line with the customer's attachments. The
// pass is a pure recompute: run twice against unchanged state it returns
// the same action.
type ReconcileService interface {
	Reconcile(ctx context.Context, req *dto.ReconcileRequest) (*dto.ReconcileResponse, error)
}

type reconcileService struct {
	ServiceParams
	phaseSvc    PhaseService
	scheduleSvc ScheduleService
	itemsSvc    ItemsService
}

func NewReconcileService(params ServiceParams) ReconcileService {
	return &reconcileService{
		ServiceParams: params,
		phaseSvc:      NewPhaseService(params),
		scheduleSvc:   NewScheduleService(params),
		itemsSvc:      NewItemsService(params),
	}
}

func (s *reconcileService) Reconcile(ctx context.Context, req *dto.ReconcileRequest) (*dto.ReconcileResponse, error) {
	if err := validator.ValidateRequest(req); err != nil {
		return nil, err
	}
	if err := req.Validate(); err != nil {
		return nil, err
	}

	snapshot, err := s.loadSnapshot(ctx, req.CustomerID, req.SkipCache)
	if err != nil {
		return nil, err
	}

	group := attachment.GroupBySubscription(snapshot.Attachments)[req.SubscriptionGroupID]
	if err := attachment.ValidateSet(group); err != nil {
		return nil, err
	}

	state, err := s.ProviderStateFetcher.FetchState(ctx, req.SubscriptionGroupID)
	if err != nil {
		return nil, err
	}

	resp, err := s.compute(ctx, group, req.Options, state)
	if err == nil || !ierr.IsProviderMismatch(err) {
		return resp, err
	}

	// the provider moved under us; re-sync state once and recompute
	s.Logger.Warnw("provider state mismatch, re-syncing",
		"customer_id", req.CustomerID,
		"subscription_group_id", req.SubscriptionGroupID,
		"error", err)

	retry := func() error {
		state, err = s.ProviderStateFetcher.FetchState(ctx, req.SubscriptionGroupID)
		if err != nil {
			return backoff.Permanent(err)
		}
		resp, err = s.compute(ctx, group, req.Options, state)
		if err != nil && !ierr.IsProviderMismatch(err) {
			return backoff.Permanent(err)
		}
		return err
	}
	policy := backoff.WithContext(backoff.WithMaxRetries(backoff.NewConstantBackOff(100*time.Millisecond), 1), ctx)
	if retryErr := backoff.Retry(retry, policy); retryErr != nil {
		return nil, err
	}
	return resp, nil
}

func (s *reconcileService) compute(
	ctx context.Context,
	group []*attachment.ProductAttachment,
	options []dto.FeatureQuantityOption,
	state *provider.State,
) (*dto.ReconcileResponse, error) {
	phases, err := s.phaseSvc.BuildPhases(ctx, group)
	if err != nil {
		return nil, err
	}

	if err := checkProviderState(phases, state); err != nil {
		return nil, err
	}

	action, err := s.scheduleSvc.BuildAction(ctx, phases, state)
	if err != nil {
		return nil, err
	}

	resp := &dto.ReconcileResponse{
		Action: *action,
		Phases: phases,
	}

	// a single-phase timeline applies to the live subscription directly,
	// so its item changes ship as an immediate diff rather than a schedule
	if len(phases) == 1 && state.HasSubscription() {
		diff, err := s.itemsSvc.BuildDiff(ctx, group, phases[0], options, state)
		if err != nil {
			return nil, err
		}
		if !diff.IsEmpty() {
			resp.ItemsDiff = diff
		}
	}

	return resp, nil
}

// checkProviderState catches contradictions between the computed timeline
// and the provider's last known state before any action is emitted
func checkProviderState(phases []types.BillingPhase, state *provider.State) error {
	if len(phases) > 0 && !state.HasSubscription() {
		return ierr.NewError("no provider subscription for active attachments").
			WithHint("The provider subscription is missing or was deleted out of band").
			Mark(ierr.ErrProviderMismatch)
	}
	return nil
}

func (s *reconcileService) loadSnapshot(ctx context.Context, customerID string, skipCache bool) (*customer.Snapshot, error) {
	if s.SnapshotCache != nil {
		return s.SnapshotCache.GetSnapshot(ctx, customerID, skipCache)
	}
	return s.SnapshotRepo.GetSnapshot(ctx, customerID)
}
