package ml

import (
	"errors"
	"fmt"
	"sync"

	"go.uber.org/zap"
)

var (
	ErrNotFitted     = errors.New("model not trained")
	ErrShapeMismatch = errors.New("feature shape mismatch")
	ErrArtifactType  = errors.New("artifact is not a model")
)

// Model is the fit/predict contract of a learning algorithm. Parameters
// is the only persisted state, so everything Predict needs must live there.
type Model interface {
	Name() string
	Fit(X [][]float64, y []float64) error
	Predict(X [][]float64) ([]float64, error)
	Save(assetPath, version string) (*Artifact, error)
	Load(artifact *Artifact) error
	SetParams(params Parameters)
	GetParams() Parameters
}

// BaseModel implements the parameter bookkeeping and the artifact round
// trip shared by every variant. Parameters cross the artifact boundary only
// as deep copies.
type BaseModel struct {
	name       string
	mu         sync.RWMutex
	parameters Parameters
}

func (m *BaseModel) setup(name string, params Parameters) {
	m.name = name
	m.parameters = make(Parameters)
	m.parameters.Merge(params)
}

func (m *BaseModel) Name() string { return m.name }

// Save packages a snapshot of the parameters. The artifact does not alias
// the live map.
func (m *BaseModel) Save(assetPath, version string) (*Artifact, error) {
	m.mu.RLock()
	payload, err := EncodeParameters(m.parameters)
	m.mu.RUnlock()
	if err != nil {
		return nil, fmt.Errorf("save %s: %w", m.name, err)
	}

	artifact, err := NewArtifact(assetPath, version, payload, ArtifactTypeModel,
		WithMetadata(map[string]any{"model_type": m.name}),
		WithTags("model", "ml"),
	)
	if err != nil {
		return nil, fmt.Errorf("save %s: %w", m.name, err)
	}
	logger.Debug("saved model", zap.String("model", m.name), zap.String("id", artifact.ID()))
	return artifact, nil
}

// Load replaces the parameters with a copy of the artifact payload.
func (m *BaseModel) Load(artifact *Artifact) error {
	if artifact == nil {
		return fmt.Errorf("load %s: %w", m.name, ErrArtifactType)
	}
	if artifact.Type != ArtifactTypeModel {
		return fmt.Errorf("load %s: %w: type %q", m.name, ErrArtifactType, artifact.Type)
	}
	if modelType, ok := artifact.Metadata["model_type"].(string); ok && modelType != m.name {
		return fmt.Errorf("load %s: %w: artifact holds %q", m.name, ErrArtifactType, modelType)
	}
	params, err := DecodeParameters(artifact.Data)
	if err != nil {
		return fmt.Errorf("load %s: %w", m.name, err)
	}

	m.mu.Lock()
	m.parameters = params
	m.mu.Unlock()
	logger.Debug("loaded model", zap.String("model", m.name), zap.String("id", artifact.ID()))
	return nil
}

// SetParams merge-updates the parameters. Keys are not validated.
func (m *BaseModel) SetParams(params Parameters) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.parameters == nil {
		m.parameters = make(Parameters)
	}
	m.parameters.Merge(params)
}

func (m *BaseModel) GetParams() Parameters {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.parameters.Clone()
}

func (m *BaseModel) param(key string) (Value, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	value, ok := m.parameters[key]
	return value, ok
}

func (m *BaseModel) setParam(key string, value Value) {
	m.SetParams(Parameters{key: value})
}

func checkTrainingSet(X [][]float64, y []float64) (int, error) {
	if len(X) == 0 || len(y) == 0 {
		return 0, errors.New("features or labels empty")
	}
	if len(X) != len(y) {
		return 0, fmt.Errorf("%w: %d rows, %d targets", ErrShapeMismatch, len(X), len(y))
	}
	width := len(X[0])
	if width == 0 {
		return 0, fmt.Errorf("%w: rows have no features", ErrShapeMismatch)
	}
	for i, row := range X {
		if len(row) != width {
			return 0, fmt.Errorf("%w: row %d has %d features, want %d", ErrShapeMismatch, i, len(row), width)
		}
	}
	return width, nil
}
