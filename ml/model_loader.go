package ml

import (
	"errors"
	"fmt"
)

var ErrUnknownModel = errors.New("unsupported model type")

const (
	Classification = "classification"
	Regression     = "regression"
)

// ModelNames lists every variant NewModel can build.
var ModelNames = []string{"decision_tree", "linear_regression"}

func NewModel(name string, params Parameters) (Model, error) {
	switch name {
	case "decision_tree":
		return NewDecisionTree(params), nil
	case "linear_regression":
		return NewLinearRegression(params), nil
	default:
		return nil, fmt.Errorf("%w: %s", ErrUnknownModel, name)
	}
}

// ModelKind reports whether a variant predicts class labels or values.
func ModelKind(name string) (string, error) {
	switch name {
	case "decision_tree":
		return Classification, nil
	case "linear_regression":
		return Regression, nil
	default:
		return "", fmt.Errorf("%w: %s", ErrUnknownModel, name)
	}
}

// LoadModel rebuilds the variant recorded in the artifact's model_type.
func LoadModel(artifact *Artifact) (Model, error) {
	if artifact == nil {
		return nil, ErrArtifactType
	}
	modelType, _ := artifact.Metadata["model_type"].(string)
	model, err := NewModel(modelType, nil)
	if err != nil {
		return nil, err
	}
	if err := model.Load(artifact); err != nil {
		return nil, err
	}
	return model, nil
}
