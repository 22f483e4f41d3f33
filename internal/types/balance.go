package types

import (
	ierr "github.com/useautumn/autumn-sub008/internal/errors"
)

// BalanceFilter narrows a balance update to a subset of a feature's grants.
// At most one selector may be set; an empty filter targets every grant for
// the feature and scope.
type BalanceFilter struct {
	GrantID  *string        `json:"grant_id,omitempty"`
	Interval *ResetInterval `json:"interval,omitempty"`
	EntityID *string        `json:"entity_id,omitempty"`
}

// IsEmpty reports whether the filter targets all grants
func (f BalanceFilter) IsEmpty() bool {
	return f.GrantID == nil && f.Interval == nil && f.EntityID == nil
}

func (f BalanceFilter) Validate() error {
	set := 0
	if f.GrantID != nil {
		set++
	}
	if f.Interval != nil {
		set++
	}
	if f.EntityID != nil {
		set++
	}
	if set > 1 {
		return ierr.NewError("balance filter allows at most one selector").
			WithHint("Provide only one of grant_id, interval or entity_id").
			Mark(ierr.ErrValidation)
	}
	if f.Interval != nil {
		if err := f.Interval.Validate(); err != nil {
			return err
		}
	}
	if f.GrantID != nil && *f.GrantID == "" {
		return ierr.NewError("grant_id cannot be empty").
			WithHint("Provide a valid grant id").
			Mark(ierr.ErrValidation)
	}
	if f.EntityID != nil && *f.EntityID == "" {
		return ierr.NewError("entity_id cannot be empty").
			WithHint("Provide a valid entity id").
			Mark(ierr.ErrValidation)
	}
	return nil
}
