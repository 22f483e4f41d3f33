package feature

import (
	ierr "github.com/useautumn/autumn-sub008/internal/errors"
	"github.com/useautumn/autumn-sub008/internal/types"
)

// Feature is one billable or gateable capability a customer can hold
// grants against
type Feature struct {
	ID          string            `json:"id"`
	Name        string            `json:"name"`
	LookupKey   string            `json:"lookup_key"`
	Description string            `json:"description"`
	Type        types.FeatureType `json:"type"`
	// StaticValue is the fixed configuration carried by static features
	StaticValue   string         `json:"static_value,omitempty"`
	Metadata      types.Metadata `json:"metadata,omitempty"`
	EnvironmentID string         `json:"environment_id"`
	types.BaseModel
}

func (f *Feature) Validate() error {
	if f.ID == "" {
		return ierr.NewError("feature id is required").
			WithHint("Please provide a valid feature ID").
			Mark(ierr.ErrValidation)
	}
	if err := f.Type.Validate(); err != nil {
		return err
	}
	if f.Type == types.FeatureTypeStatic && f.StaticValue == "" {
		return ierr.NewError("static_value is required for static features").
			WithHint("Please provide a static value for this feature").
			WithReportableDetails(map[string]any{
				"feature_id": f.ID,
			}).
			Mark(ierr.ErrValidation)
	}
	return nil
}
