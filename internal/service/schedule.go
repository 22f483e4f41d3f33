package service

import (
	"context"

	"github.com/useautumn/autumn-sub008/internal/domain/provider"
	"github.com/useautumn/autumn-sub008/internal/types"
)

// ScheduleService decides the minimal provider schedule operation that
// brings the provider in line with the computed billing phases
type ScheduleService interface {
	BuildAction(ctx context.Context, phases []types.BillingPhase, state *provider.State) (*types.ScheduleAction, error)
}

type scheduleService struct {
	ServiceParams
}

func NewScheduleService(params ServiceParams) ScheduleService {
	return &scheduleService{ServiceParams: params}
}

func (s *scheduleService) BuildAction(ctx context.Context, phases []types.BillingPhase, state *provider.State) (*types.ScheduleAction, error) {
	action := s.classify(phases, state)

	s.Logger.Debugw("built schedule action",
		"action_type", action.Type,
		"phases", len(phases),
		"has_schedule", state.HasSchedule())

	return action, nil
}

func (s *scheduleService) classify(phases []types.BillingPhase, state *provider.State) *types.ScheduleAction {
	switch {
	case len(phases) == 0:
		return s.noPhasesAction(state)
	case len(phases) > 1:
		return s.multiPhaseAction(phases, state)
	default:
		return s.singlePhaseAction(phases[0], state)
	}
}

// noPhasesAction handles an empty timeline: any live schedule is released
// so the subscription can wind down through its own lifecycle
func (s *scheduleService) noPhasesAction(state *provider.State) *types.ScheduleAction {
	if state.HasSchedule() {
		return &types.ScheduleAction{
			Type:       types.ScheduleActionRelease,
			ScheduleID: state.ScheduleID,
		}
	}
	return &types.ScheduleAction{Type: types.ScheduleActionNone}
}

// singlePhaseAction covers the single_indefinite and simple_cancel shapes:
// one item set forever, or one item set ending at a known time. Neither
// needs a schedule, so a lingering one is released first; recomputing after
// the release converges on the cancel-at write.
func (s *scheduleService) singlePhaseAction(phase types.BillingPhase, state *provider.State) *types.ScheduleAction {
	if state.HasSchedule() {
		return &types.ScheduleAction{
			Type:       types.ScheduleActionRelease,
			ScheduleID: state.ScheduleID,
		}
	}

	if phase.EndMs == nil {
		// indefinite: the only schedule-adjacent state to manage is a
		// stale cancel-at left over from an undone cancellation
		if state.CancelAtMs != nil || state.CancelAtPeriodEnd {
			return &types.ScheduleAction{Type: types.ScheduleActionSetCancelAt, CancelAtMs: nil}
		}
		return &types.ScheduleAction{Type: types.ScheduleActionNone}
	}

	if state.CancelAtMs != nil && *state.CancelAtMs == *phase.EndMs {
		return &types.ScheduleAction{Type: types.ScheduleActionNone}
	}
	return &types.ScheduleAction{
		Type:       types.ScheduleActionSetCancelAt,
		CancelAtMs: phase.EndMs,
	}
}

func (s *scheduleService) multiPhaseAction(phases []types.BillingPhase, state *provider.State) *types.ScheduleAction {
	endBehavior := types.ScheduleEndBehaviorRelease
	if phases[len(phases)-1].EndMs != nil {
		endBehavior = types.ScheduleEndBehaviorCancel
	}

	if state.HasSchedule() {
		return &types.ScheduleAction{
			Type:        types.ScheduleActionUpdateSchedule,
			ScheduleID:  state.ScheduleID,
			Phases:      phases,
			EndBehavior: endBehavior,
		}
	}
	return &types.ScheduleAction{
		Type:        types.ScheduleActionCreateSchedule,
		Phases:      phases,
		EndBehavior: endBehavior,
		Metadata: types.Metadata{
			"managed_by": "reconciler",
			"run_ref":    types.GenerateShortIDWithPrefix("RN-"),
		},
	}
}
