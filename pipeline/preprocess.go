package pipeline

import (
	"errors"
	"fmt"
	"sort"

	"automl/ml"
)

var ErrStatsNotComputed = errors.New("feature stats not computed")

// Preprocessor turns table columns into model inputs. Numerical features
// are min/max scaled, categorical ones one-hot encoded over their sorted
// distinct values.
type Preprocessor struct {
	featureStats map[string][2]float64
	categories   map[string][]string
}

// ComputeStats records min/max for numerical features and the category
// vocabulary for categorical ones.
func (p *Preprocessor) ComputeStats(table *ml.Table, features []*ml.Feature) error {
	if len(features) == 0 {
		return errors.New("features is empty")
	}
	p.featureStats = make(map[string][2]float64)
	p.categories = make(map[string][]string)

	for _, feature := range features {
		col, ok := table.Column(feature.Name)
		if !ok {
			return fmt.Errorf("column %s not found", feature.Name)
		}
		switch feature.Type {
		case ml.Numerical:
			if !col.Numeric() {
				return fmt.Errorf("feature %s: %w", feature.Name, ml.ErrNotNumeric)
			}
			p.featureStats[feature.Name] = minMax(col.Numbers)
		case ml.Categorical:
			p.categories[feature.Name] = distinctSorted(col.Values)
		default:
			return fmt.Errorf("feature %s: %w", feature.Name, ml.ErrUnknownFeatureType)
		}
	}
	return nil
}

// ComputeTargetStats adds the target's category vocabulary. Call it after
// ComputeStats; the vocabulary may come from more rows than the input stats
// so every label seen at evaluation time has an index.
func (p *Preprocessor) ComputeTargetStats(table *ml.Table, target *ml.Feature) error {
	col, ok := table.Column(target.Name)
	if !ok {
		return fmt.Errorf("column %s not found", target.Name)
	}
	if p.featureStats == nil {
		p.featureStats = make(map[string][2]float64)
		p.categories = make(map[string][]string)
	}
	switch target.Type {
	case ml.Numerical:
		if !col.Numeric() {
			return fmt.Errorf("target %s: %w", target.Name, ml.ErrNotNumeric)
		}
	case ml.Categorical:
		p.categories[target.Name] = distinctSorted(col.Values)
	default:
		return fmt.Errorf("target %s: %w", target.Name, ml.ErrUnknownFeatureType)
	}
	return nil
}

// Transform builds one row per table row, features in the given order.
// Numerical values outside the recorded range scale past [0, 1] and
// categories missing from the vocabulary encode as all zeros.
func (p *Preprocessor) Transform(table *ml.Table, features []*ml.Feature) ([][]float64, error) {
	if p.featureStats == nil {
		return nil, ErrStatsNotComputed
	}

	rows := make([][]float64, table.Rows())
	for i := range rows {
		rows[i] = make([]float64, 0, p.width(features))
	}
	for _, feature := range features {
		col, ok := table.Column(feature.Name)
		if !ok {
			return nil, fmt.Errorf("column %s not found", feature.Name)
		}
		switch feature.Type {
		case ml.Numerical:
			stats, ok := p.featureStats[feature.Name]
			if !ok {
				return nil, fmt.Errorf("missing stats for %s", feature.Name)
			}
			if !col.Numeric() {
				return nil, fmt.Errorf("feature %s: %w", feature.Name, ml.ErrNotNumeric)
			}
			for i, value := range col.Numbers {
				rows[i] = append(rows[i], NormalizeFeature(value, stats[0], stats[1]))
			}
		case ml.Categorical:
			vocabulary, ok := p.categories[feature.Name]
			if !ok {
				return nil, fmt.Errorf("missing categories for %s", feature.Name)
			}
			for i, value := range col.Values {
				rows[i] = append(rows[i], oneHot(vocabulary, value)...)
			}
		default:
			return nil, fmt.Errorf("feature %s: %w", feature.Name, ml.ErrUnknownFeatureType)
		}
	}
	return rows, nil
}

// EncodeTarget returns raw values for a numerical target and the category
// index for a categorical one.
func (p *Preprocessor) EncodeTarget(table *ml.Table, target *ml.Feature) ([]float64, error) {
	col, ok := table.Column(target.Name)
	if !ok {
		return nil, fmt.Errorf("column %s not found", target.Name)
	}
	switch target.Type {
	case ml.Numerical:
		if !col.Numeric() {
			return nil, fmt.Errorf("target %s: %w", target.Name, ml.ErrNotNumeric)
		}
		return append([]float64{}, col.Numbers...), nil
	case ml.Categorical:
		vocabulary, ok := p.categories[target.Name]
		if !ok {
			return nil, ErrStatsNotComputed
		}
		index := make(map[string]int, len(vocabulary))
		for i, value := range vocabulary {
			index[value] = i
		}
		encoded := make([]float64, col.Len())
		for i, value := range col.Values {
			label, ok := index[value]
			if !ok {
				return nil, fmt.Errorf("target %s: unknown category %q", target.Name, value)
			}
			encoded[i] = float64(label)
		}
		return encoded, nil
	default:
		return nil, fmt.Errorf("target %s: %w", target.Name, ml.ErrUnknownFeatureType)
	}
}

func (p *Preprocessor) FeatureStats() map[string][2]float64 {
	if p.featureStats == nil {
		return nil
	}
	stats := make(map[string][2]float64, len(p.featureStats))
	for key, value := range p.featureStats {
		stats[key] = value
	}
	return stats
}

func (p *Preprocessor) Categories() map[string][]string {
	if p.categories == nil {
		return nil
	}
	categories := make(map[string][]string, len(p.categories))
	for key, values := range p.categories {
		categories[key] = append([]string{}, values...)
	}
	return categories
}

func (p *Preprocessor) width(features []*ml.Feature) int {
	width := 0
	for _, feature := range features {
		if feature.Type == ml.Categorical {
			width += len(p.categories[feature.Name])
			continue
		}
		width++
	}
	return width
}

func NormalizeFeature(value, min, max float64) float64 {
	if max == min {
		return 0
	}
	return (value - min) / (max - min)
}

func minMax(values []float64) [2]float64 {
	if len(values) == 0 {
		return [2]float64{0, 0}
	}
	stats := [2]float64{values[0], values[0]}
	for _, value := range values[1:] {
		if value < stats[0] {
			stats[0] = value
		}
		if value > stats[1] {
			stats[1] = value
		}
	}
	return stats
}

func distinctSorted(values []string) []string {
	seen := make(map[string]struct{}, len(values))
	out := make([]string, 0)
	for _, value := range values {
		if _, ok := seen[value]; ok {
			continue
		}
		seen[value] = struct{}{}
		out = append(out, value)
	}
	sort.Strings(out)
	return out
}

func oneHot(vocabulary []string, value string) []float64 {
	encoded := make([]float64, len(vocabulary))
	if i := sort.SearchStrings(vocabulary, value); i < len(vocabulary) && vocabulary[i] == value {
		encoded[i] = 1
	}
	return encoded
}
