package ml

import (
	"fmt"

	"go.uber.org/zap"
)

// TableSource is anything that can produce column-addressable data.
type TableSource interface {
	Table() (*Table, error)
}

// DetectFeatureTypes classifies each column, in table order, as numerical
// when all its values are numeric and categorical otherwise. Missing values
// are not expected, and statistics are left for the caller to compute.
func DetectFeatureTypes(src TableSource) ([]*Feature, error) {
	table, err := src.Table()
	if err != nil {
		return nil, fmt.Errorf("detect feature types: %w", err)
	}

	features := make([]*Feature, 0, len(table.Columns))
	for _, col := range table.Columns {
		featureType := Categorical
		if col.Numeric() {
			featureType = Numerical
		}
		feature, err := NewFeature(col.Name, featureType)
		if err != nil {
			return nil, fmt.Errorf("detect feature types: %w", err)
		}
		features = append(features, feature)
	}
	logger.Debug("detected features", zap.Int("count", len(features)))
	return features, nil
}
