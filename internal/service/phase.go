package service

import (
	"context"
	"sort"

	"github.com/samber/lo"

	"github.com/useautumn/autumn-sub008/internal/domain/attachment"
	ierr "github.com/useautumn/autumn-sub008/internal/errors"
	"github.com/useautumn/autumn-sub008/internal/types"
)

// PhaseService converts a shared-subscription group's attachments into an
// ordered, contiguous, non-overlapping billing timeline
type PhaseService interface {
	BuildPhases(ctx context.Context, group []*attachment.ProductAttachment) ([]types.BillingPhase, error)
}

type phaseService struct {
	ServiceParams
}

func NewPhaseService(params ServiceParams) PhaseService {
	return &phaseService{ServiceParams: params}
}

type phaseSpan struct {
	startMs int64
	endMs   *int64
}

func (s *phaseService) BuildPhases(ctx context.Context, group []*attachment.ProductAttachment) ([]types.BillingPhase, error) {
	live := lo.Filter(group, func(a *attachment.ProductAttachment, _ int) bool {
		return !a.IsTerminal()
	})
	if len(live) == 0 {
		return nil, nil
	}

	baseSpans, err := buildSpans(live, collectBoundaries(live, false))
	if err != nil {
		return nil, err
	}

	spans := baseSpans
	if len(baseSpans) > 1 {
		// some other boundary already forces a multi-phase schedule, so
		// trial ends become real phase splits
		spans, err = buildSpans(live, collectBoundaries(live, true))
		if err != nil {
			return nil, err
		}
	}

	phases := make([]types.BillingPhase, 0, len(spans))
	for _, span := range spans {
		covering := lo.Filter(live, func(a *attachment.ProductAttachment, _ int) bool {
			return a.Covers(span.startMs, span.endMs)
		})

		phase := types.BillingPhase{
			StartMs:    span.startMs,
			EndMs:      span.endMs,
			TrialEndMs: spanTrialEnd(span, covering),
		}
		// items of different entities are concatenated, not merged, so
		// quantities remain separately attributable
		for _, a := range covering {
			phase.Items = append(phase.Items, a.Items()...)
		}
		phases = append(phases, phase)
	}

	phases = mergeAdjacentPhases(phases)

	s.Logger.Debugw("built billing phases",
		"attachments", len(live),
		"phases", len(phases))

	return phases, nil
}

// collectBoundaries gathers the distinct timestamps at which the item set
// can change. Trial ends participate only when the caller opts in.
func collectBoundaries(live []*attachment.ProductAttachment, withTrials bool) []int64 {
	var boundaries []int64
	for _, a := range live {
		boundaries = append(boundaries, a.StartsAtMs)
		if a.EndsAtMs != nil {
			boundaries = append(boundaries, *a.EndsAtMs)
		}
		if withTrials && a.TrialEndsAtMs != nil {
			boundaries = append(boundaries, *a.TrialEndsAtMs)
		}
	}
	boundaries = lo.Uniq(boundaries)
	sort.Slice(boundaries, func(i, j int) bool { return boundaries[i] < boundaries[j] })
	return boundaries
}

// buildSpans turns sorted boundaries into contiguous spans, each covered by
// at least one attachment. An interior uncovered span is a gap, which the
// attachment invariants forbid.
func buildSpans(live []*attachment.ProductAttachment, boundaries []int64) ([]phaseSpan, error) {
	openEnded := lo.SomeBy(live, func(a *attachment.ProductAttachment) bool {
		return a.EndsAtMs == nil
	})

	var spans []phaseSpan
	for i := 0; i < len(boundaries)-1; i++ {
		span := phaseSpan{startMs: boundaries[i], endMs: lo.ToPtr(boundaries[i+1])}
		if !spanCovered(live, span) {
			return nil, ierr.NewError("gap in attachment timeline").
				WithHint("Attachment spans must be contiguous within a subscription group").
				WithReportableDetails(map[string]any{
					"gap_start_ms": span.startMs,
					"gap_end_ms":   *span.endMs,
				}).
				Mark(ierr.ErrInconsistentState)
		}
		spans = append(spans, span)
	}

	last := boundaries[len(boundaries)-1]
	if openEnded {
		spans = append(spans, phaseSpan{startMs: last})
	}

	if len(spans) == 0 {
		// single instantaneous boundary cannot happen with validated
		// attachments; treat defensively as no phases
		return nil, nil
	}
	return spans, nil
}

func spanCovered(live []*attachment.ProductAttachment, span phaseSpan) bool {
	return lo.SomeBy(live, func(a *attachment.ProductAttachment) bool {
		return a.Covers(span.startMs, span.endMs)
	})
}

// spanTrialEnd reports the trial metadata for a span: the latest trial end
// among covering attachments that extends past the span start. For a lone
// trialing attachment this yields a single phase carrying trial_end with no
// split.
func spanTrialEnd(span phaseSpan, covering []*attachment.ProductAttachment) *int64 {
	var trialEnd *int64
	for _, a := range covering {
		if a.TrialEndsAtMs == nil || *a.TrialEndsAtMs <= span.startMs {
			continue
		}
		if trialEnd == nil || *a.TrialEndsAtMs > *trialEnd {
			trialEnd = a.TrialEndsAtMs
		}
	}
	return trialEnd
}

// mergeAdjacentPhases collapses consecutive phases with identical billable
// item sets, since a split that changes nothing is schedule overhead
func mergeAdjacentPhases(phases []types.BillingPhase) []types.BillingPhase {
	if len(phases) < 2 {
		return phases
	}

	merged := []types.BillingPhase{phases[0]}
	for _, phase := range phases[1:] {
		last := &merged[len(merged)-1]
		if sameItemSet(last.Items, phase.Items) && last.TrialEndMs == nil && phase.TrialEndMs == nil {
			last.EndMs = phase.EndMs
			continue
		}
		merged = append(merged, phase)
	}
	return merged
}

func sameItemSet(a, b []types.PhaseItem) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i].PriceRef != b[i].PriceRef ||
			!a[i].Quantity.Equal(b[i].Quantity) ||
			lo.FromPtr(a[i].EntityID) != lo.FromPtr(b[i].EntityID) {
			return false
		}
	}
	return true
}
