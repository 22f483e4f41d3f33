package attachment

import (
	"fmt"

	ierr "github.com/useautumn/autumn-sub008/internal/errors"
	"github.com/samber/lo"
	"github.com/useautumn/autumn-sub008/internal/types"
)

// ValidateSet checks the structural invariants of a customer's attachment
// set before any computation runs:
//
//   - at most one non-terminal attachment per (scope, product slot), where
//     a Scheduled attachment is allowed to coexist with the live one it
//     replaces,
//   - every Scheduled attachment has a matching Active/Trialing/Canceling
//     attachment whose end equals the scheduled start.
//
// Violations are fatal to the request; silently repairing billing state
// risks charging incorrectly.
func ValidateSet(attachments []*ProductAttachment) error {
	for _, a := range attachments {
		if err := a.Validate(); err != nil {
			return err
		}
	}

	live := lo.Filter(attachments, func(a *ProductAttachment, _ int) bool {
		return !a.IsTerminal()
	})

	bySlot := lo.GroupBy(live, func(a *ProductAttachment) string {
		return fmt.Sprintf("%s/%s", a.ScopeID, a.ProductSlot)
	})

	for slot, group := range bySlot {
		current := lo.Filter(group, func(a *ProductAttachment, _ int) bool {
			return a.Status.IsCurrent()
		})
		if len(current) > 1 {
			return ierr.NewError("overlapping non-terminal attachments for one product slot").
				WithHint("Only one live attachment may exist per product slot at a time").
				WithReportableDetails(map[string]any{
					"slot": slot,
					"attachment_ids": lo.Map(current, func(a *ProductAttachment, _ int) string {
						return a.ID
					}),
				}).
				Mark(ierr.ErrInconsistentState)
		}

		for _, scheduled := range group {
			if scheduled.Status != types.AttachmentStatusScheduled {
				continue
			}
			_, found := lo.Find(group, func(a *ProductAttachment) bool {
				return a.Status.IsCurrent() &&
					a.EndsAtMs != nil &&
					*a.EndsAtMs == scheduled.StartsAtMs
			})
			if !found {
				return ierr.NewError("scheduled attachment has no matching live predecessor").
					WithHint("A scheduled attachment must start exactly where a live attachment ends").
					WithReportableDetails(map[string]any{
						"slot":          slot,
						"attachment_id": scheduled.ID,
						"starts_at_ms":  scheduled.StartsAtMs,
					}).
					Mark(ierr.ErrInconsistentState)
			}
		}
	}

	return nil
}

// GroupBySubscription splits an attachment set by shared provider
// subscription, preserving input order inside each group
func GroupBySubscription(attachments []*ProductAttachment) map[string][]*ProductAttachment {
	return lo.GroupBy(attachments, func(a *ProductAttachment) string {
		return a.SubscriptionGroupID
	})
}
