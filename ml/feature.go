package ml

import (
	"errors"
	"fmt"

	"gonum.org/v1/gonum/stat"
)

var (
	ErrUnknownFeatureType = errors.New("unknown feature type")
	ErrNotNumeric         = errors.New("column is not numeric")
)

type FeatureType string

const (
	Categorical FeatureType = "categorical"
	Numerical   FeatureType = "numerical"
)

func (t FeatureType) Valid() bool {
	return t == Categorical || t == Numerical
}

// Feature describes one dataset column. Mean is set only for numerical
// features and UniqueValues only for categorical ones, once
// ComputeStatistics has run.
type Feature struct {
	Name         string      `json:"name" yaml:"name"`
	Type         FeatureType `json:"type" yaml:"type"`
	Mean         *float64    `json:"mean,omitempty" yaml:"mean,omitempty"`
	UniqueValues *int        `json:"unique_values,omitempty" yaml:"unique_values,omitempty"`
}

func NewFeature(name string, featureType FeatureType) (*Feature, error) {
	if name == "" {
		return nil, fmt.Errorf("%w: name", ErrMissingField)
	}
	if !featureType.Valid() {
		return nil, fmt.Errorf("%w: %q", ErrUnknownFeatureType, featureType)
	}
	return &Feature{Name: name, Type: featureType}, nil
}

// ComputeStatistics fills the statistic matching the feature type. An empty
// numerical column yields a NaN mean.
func (f *Feature) ComputeStatistics(col Column) error {
	switch f.Type {
	case Numerical:
		if !col.Numeric() && col.Len() > 0 {
			return fmt.Errorf("feature %s: %w", f.Name, ErrNotNumeric)
		}
		mean := stat.Mean(col.Numbers, nil)
		f.Mean = &mean
	case Categorical:
		unique := countUnique(col)
		f.UniqueValues = &unique
	default:
		return fmt.Errorf("feature %s: %w: %q", f.Name, ErrUnknownFeatureType, f.Type)
	}
	return nil
}

func (f *Feature) String() string {
	switch {
	case f.Type == Numerical && f.Mean != nil:
		return fmt.Sprintf("Feature(name=%s, type=%s, mean=%.2f)", f.Name, f.Type, *f.Mean)
	case f.Type == Categorical && f.UniqueValues != nil:
		return fmt.Sprintf("Feature(name=%s, type=%s, unique_values=%d)", f.Name, f.Type, *f.UniqueValues)
	default:
		return fmt.Sprintf("Feature(name=%s, type=%s)", f.Name, f.Type)
	}
}

func countUnique(col Column) int {
	if col.Numeric() {
		seen := make(map[float64]struct{}, len(col.Numbers))
		for _, v := range col.Numbers {
			seen[v] = struct{}{}
		}
		return len(seen)
	}
	seen := make(map[string]struct{}, len(col.Values))
	for _, v := range col.Values {
		seen[v] = struct{}{}
	}
	return len(seen)
}
