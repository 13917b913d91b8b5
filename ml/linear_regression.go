package ml

import (
	"fmt"

	"go.uber.org/zap"
	"gonum.org/v1/gonum/mat"
)

const (
	paramFitIntercept = "fit_intercept"
	paramCoefficients = "coefficients"
	paramIntercept    = "intercept"

	rankTolerance = 1e-10
)

// LinearRegression is ordinary least squares solved through an SVD.
type LinearRegression struct {
	BaseModel
}

func NewLinearRegression(params Parameters) *LinearRegression {
	lr := &LinearRegression{}
	lr.setup("linear_regression", Parameters{paramFitIntercept: BoolValue(true)})
	lr.SetParams(params)
	return lr
}

func (lr *LinearRegression) fitIntercept() bool {
	value, ok := lr.param(paramFitIntercept)
	if !ok {
		return true
	}
	fit, ok := value.AsBool()
	return !ok || fit
}

func (lr *LinearRegression) Fit(X [][]float64, y []float64) error {
	width, err := checkTrainingSet(X, y)
	if err != nil {
		return fmt.Errorf("fit %s: %w", lr.Name(), err)
	}

	offset := 0
	if lr.fitIntercept() {
		offset = 1
	}
	design := mat.NewDense(len(X), width+offset, nil)
	for i, row := range X {
		if offset == 1 {
			design.Set(i, 0, 1)
		}
		for j, v := range row {
			design.Set(i, j+offset, v)
		}
	}
	target := mat.NewVecDense(len(y), append([]float64{}, y...))

	// Minimum-norm least squares; one-hot blocks next to the intercept
	// column leave the design rank deficient.
	var svd mat.SVD
	if !svd.Factorize(design, mat.SVDThin) {
		return fmt.Errorf("fit %s: svd factorization failed", lr.Name())
	}
	rank := svd.Rank(rankTolerance)
	if rank == 0 {
		return fmt.Errorf("fit %s: design matrix has rank 0", lr.Name())
	}
	var solution mat.VecDense
	svd.SolveVecTo(&solution, target, rank)

	weights := solution.RawVector().Data
	intercept := 0.0
	if offset == 1 {
		intercept = weights[0]
	}
	lr.SetParams(Parameters{
		paramCoefficients: FloatsValue(weights[offset:]),
		paramIntercept:    FloatValue(intercept),
	})
	logger.Debug("fitted linear regression", zap.Int("features", width), zap.Int("samples", len(X)))
	return nil
}

func (lr *LinearRegression) Predict(X [][]float64) ([]float64, error) {
	value, ok := lr.param(paramCoefficients)
	if !ok {
		return nil, fmt.Errorf("predict %s: %w", lr.Name(), ErrNotFitted)
	}
	coefficients, ok := value.AsFloats()
	if !ok || len(coefficients) == 0 {
		return nil, fmt.Errorf("predict %s: %w", lr.Name(), ErrNotFitted)
	}
	intercept := 0.0
	if value, ok := lr.param(paramIntercept); ok {
		intercept, _ = value.AsFloat()
	}

	predictions := make([]float64, len(X))
	if len(X) == 0 {
		return predictions, nil
	}
	for i, row := range X {
		if len(row) != len(coefficients) {
			return nil, fmt.Errorf("predict %s: row %d has %d features, want %d: %w",
				lr.Name(), i, len(row), len(coefficients), ErrShapeMismatch)
		}
	}
	weights := mat.NewVecDense(len(coefficients), append([]float64{}, coefficients...))
	for i, row := range X {
		predictions[i] = mat.Dot(mat.NewVecDense(len(row), append([]float64{}, row...)), weights) + intercept
	}
	return predictions, nil
}
