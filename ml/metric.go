package ml

import (
	"errors"
	"fmt"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/stat"
)

var (
	ErrUnknownMetric  = errors.New("unknown metric name")
	ErrLengthMismatch = errors.New("y_true and y_pred length mismatch")
	ErrEmptyInput     = errors.New("y_true and y_pred are empty")
	ErrNonBinaryLabel = errors.New("label is not 0 or 1")
)

// MetricNames lists every name GetMetric accepts.
var MetricNames = []string{
	"mean_squared_error",
	"accuracy",
	"precision",
	"recall",
	"f1_score",
	"mean_absolute_error",
}

// Metric scores predictions against ground truth.
type Metric interface {
	Name() string
	Evaluate(yTrue, yPred []float64) (float64, error)
}

// GetMetric returns the metric registered under exactly name.
func GetMetric(name string) (Metric, error) {
	switch name {
	case "mean_squared_error":
		return MeanSquaredError{}, nil
	case "accuracy":
		return Accuracy{}, nil
	case "precision":
		return Precision{}, nil
	case "recall":
		return Recall{}, nil
	case "f1_score":
		return F1Score{}, nil
	case "mean_absolute_error":
		return MeanAbsoluteError{}, nil
	default:
		return nil, fmt.Errorf("%w: %s", ErrUnknownMetric, name)
	}
}

type MetricResult struct {
	Name  string  `json:"name" yaml:"name"`
	Value float64 `json:"value" yaml:"value"`
}

// EvaluateAll scores yPred with every metric, keeping the given order.
func EvaluateAll(metrics []Metric, yTrue, yPred []float64) ([]MetricResult, error) {
	results := make([]MetricResult, 0, len(metrics))
	for _, metric := range metrics {
		value, err := metric.Evaluate(yTrue, yPred)
		if err != nil {
			return nil, fmt.Errorf("metric %s: %w", metric.Name(), err)
		}
		results = append(results, MetricResult{Name: metric.Name(), Value: value})
	}
	return results, nil
}

// Accuracy is the share of predictions equal to the ground truth.
type Accuracy struct{}

func (Accuracy) Name() string { return "accuracy" }

func (Accuracy) Evaluate(yTrue, yPred []float64) (float64, error) {
	if err := checkLengths(yTrue, yPred); err != nil {
		return 0, err
	}
	correct := 0
	for i := range yTrue {
		if yTrue[i] == yPred[i] {
			correct++
		}
	}
	return float64(correct) / float64(len(yTrue)), nil
}

// MeanSquaredError averages the squared differences.
type MeanSquaredError struct{}

func (MeanSquaredError) Name() string { return "mean_squared_error" }

func (MeanSquaredError) Evaluate(yTrue, yPred []float64) (float64, error) {
	diff, err := residuals(yTrue, yPred)
	if err != nil {
		return 0, err
	}
	floats.Mul(diff, diff)
	return stat.Mean(diff, nil), nil
}

// MeanAbsoluteError averages the absolute differences.
type MeanAbsoluteError struct{}

func (MeanAbsoluteError) Name() string { return "mean_absolute_error" }

func (MeanAbsoluteError) Evaluate(yTrue, yPred []float64) (float64, error) {
	diff, err := residuals(yTrue, yPred)
	if err != nil {
		return 0, err
	}
	return floats.Norm(diff, 1) / float64(len(diff)), nil
}

// Precision is TP / predicted positives, 0 when nothing was predicted
// positive. Labels must be 0 or 1.
type Precision struct{}

func (Precision) Name() string { return "precision" }

func (Precision) Evaluate(yTrue, yPred []float64) (float64, error) {
	counts, err := countBinary(yTrue, yPred)
	if err != nil {
		return 0, err
	}
	return counts.precision(), nil
}

// Recall is TP / actual positives, 0 when there are no positives.
type Recall struct{}

func (Recall) Name() string { return "recall" }

func (Recall) Evaluate(yTrue, yPred []float64) (float64, error) {
	counts, err := countBinary(yTrue, yPred)
	if err != nil {
		return 0, err
	}
	return counts.recall(), nil
}

// F1Score is the harmonic mean of precision and recall, 0 when both are 0.
type F1Score struct{}

func (F1Score) Name() string { return "f1_score" }

func (F1Score) Evaluate(yTrue, yPred []float64) (float64, error) {
	counts, err := countBinary(yTrue, yPred)
	if err != nil {
		return 0, err
	}
	prec, rec := counts.precision(), counts.recall()
	if prec+rec == 0 {
		return 0, nil
	}
	return 2 * prec * rec / (prec + rec), nil
}

type binaryCounts struct {
	truePositive      int
	predictedPositive int
	actualPositive    int
}

func (c binaryCounts) precision() float64 {
	if c.predictedPositive == 0 {
		return 0
	}
	return float64(c.truePositive) / float64(c.predictedPositive)
}

func (c binaryCounts) recall() float64 {
	if c.actualPositive == 0 {
		return 0
	}
	return float64(c.truePositive) / float64(c.actualPositive)
}

func countBinary(yTrue, yPred []float64) (binaryCounts, error) {
	var counts binaryCounts
	if err := checkLengths(yTrue, yPred); err != nil {
		return counts, err
	}
	for i := range yTrue {
		if !isBinary(yTrue[i]) || !isBinary(yPred[i]) {
			return counts, fmt.Errorf("%w: index %d (y_true=%g, y_pred=%g)", ErrNonBinaryLabel, i, yTrue[i], yPred[i])
		}
		if yPred[i] == 1 {
			counts.predictedPositive++
		}
		if yTrue[i] == 1 {
			counts.actualPositive++
			if yPred[i] == 1 {
				counts.truePositive++
			}
		}
	}
	return counts, nil
}

func isBinary(v float64) bool { return v == 0 || v == 1 }

func residuals(yTrue, yPred []float64) ([]float64, error) {
	if err := checkLengths(yTrue, yPred); err != nil {
		return nil, err
	}
	diff := make([]float64, len(yTrue))
	floats.SubTo(diff, yTrue, yPred)
	return diff, nil
}

func checkLengths(yTrue, yPred []float64) error {
	if len(yTrue) != len(yPred) {
		return fmt.Errorf("%w: %d != %d", ErrLengthMismatch, len(yTrue), len(yPred))
	}
	if len(yTrue) == 0 {
		return ErrEmptyInput
	}
	return nil
}
