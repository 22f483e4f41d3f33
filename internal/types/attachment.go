package types

import (
	ierr "github.com/useautumn/autumn-sub008/internal/errors"
	"github.com/samber/lo"
)

// AttachmentStatus is the lifecycle status of a product attachment
type AttachmentStatus string

const (
	AttachmentStatusActive    AttachmentStatus = "ACTIVE"
	AttachmentStatusTrialing  AttachmentStatus = "TRIALING"
	AttachmentStatusScheduled AttachmentStatus = "SCHEDULED"
	AttachmentStatusCanceling AttachmentStatus = "CANCELING"
	AttachmentStatusExpired   AttachmentStatus = "EXPIRED"
)

func (s AttachmentStatus) Validate() error {
	allowed := []AttachmentStatus{
		AttachmentStatusActive,
		AttachmentStatusTrialing,
		AttachmentStatusScheduled,
		AttachmentStatusCanceling,
		AttachmentStatusExpired,
	}
	if !lo.Contains(allowed, s) {
		return ierr.NewError("invalid attachment status").
			WithHint("Invalid product attachment status").
			WithReportableDetails(map[string]any{
				"status": s,
			}).
			Mark(ierr.ErrValidation)
	}
	return nil
}

// IsTerminal reports whether the attachment no longer contributes grants or
// phases. At most one non-terminal attachment per (scope, product slot) may
// exist at a time.
func (s AttachmentStatus) IsTerminal() bool {
	return s == AttachmentStatusExpired
}

// IsCurrent reports whether the attachment is live right now, as opposed to
// scheduled for a future start
func (s AttachmentStatus) IsCurrent() bool {
	return s == AttachmentStatusActive ||
		s == AttachmentStatusTrialing ||
		s == AttachmentStatusCanceling
}
