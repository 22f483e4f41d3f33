package types

import (
	ierr "github.com/useautumn/autumn-sub008/internal/errors"
	"github.com/samber/lo"
)

// FeatureType is the type of a feature
type FeatureType string

const (
	// FeatureTypeMetered is a feature with a usage-tracked balance
	FeatureTypeMetered FeatureType = "metered"
	// FeatureTypeBoolean is an on/off feature with no balance
	FeatureTypeBoolean FeatureType = "boolean"
	// FeatureTypeStatic is a feature carrying a fixed configuration value
	FeatureTypeStatic FeatureType = "static"
)

func (f FeatureType) Validate() error {
	allowed := []FeatureType{
		FeatureTypeMetered,
		FeatureTypeBoolean,
		FeatureTypeStatic,
	}
	if !lo.Contains(allowed, f) {
		return ierr.NewError("invalid feature type").
			WithHint("Feature type must be one of metered, boolean or static").
			WithReportableDetails(map[string]any{
				"type": f,
			}).
			Mark(ierr.ErrValidation)
	}
	return nil
}
