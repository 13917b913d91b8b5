package pipeline

import (
	"errors"
	"fmt"
	"path"
	"strings"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"gopkg.in/yaml.v2"

	"automl/ml"
)

var (
	ErrInvalidPipeline = errors.New("invalid pipeline")
	ErrEmptySplit      = errors.New("train or test split is empty")
)

// Pipeline runs one experiment: preprocess the dataset, split it, fit the
// model and score it with the configured metrics. Everything stays in
// memory; Artifacts hands the outputs to whoever persists them.
type Pipeline struct {
	dataset       *ml.Dataset
	model         ml.Model
	inputFeatures []*ml.Feature
	targetFeature *ml.Feature
	metrics       []ml.Metric
	split         float64
	runID         string

	preprocessor Preprocessor
	result       *Result
}

type Option func(*Pipeline)

// WithSplit sets the share of rows used for training.
func WithSplit(ratio float64) Option {
	return func(p *Pipeline) { p.split = ratio }
}

func WithRunID(id string) Option {
	return func(p *Pipeline) { p.runID = id }
}

// Result holds the scores on both splits and the test predictions.
type Result struct {
	TrainMetrics []ml.MetricResult `json:"train_metrics" yaml:"train_metrics"`
	TestMetrics  []ml.MetricResult `json:"test_metrics" yaml:"test_metrics"`
	Predictions  []float64         `json:"predictions" yaml:"predictions"`
	TrainSize    int               `json:"train_size" yaml:"train_size"`
	TestSize     int               `json:"test_size" yaml:"test_size"`
}

func New(dataset *ml.Dataset, model ml.Model, inputs []*ml.Feature, target *ml.Feature, metrics []ml.Metric, opts ...Option) (*Pipeline, error) {
	switch {
	case dataset == nil:
		return nil, fmt.Errorf("%w: dataset is required", ErrInvalidPipeline)
	case model == nil:
		return nil, fmt.Errorf("%w: model is required", ErrInvalidPipeline)
	case target == nil:
		return nil, fmt.Errorf("%w: target feature is required", ErrInvalidPipeline)
	case len(inputs) == 0:
		return nil, fmt.Errorf("%w: at least one input feature is required", ErrInvalidPipeline)
	}
	for _, input := range inputs {
		if input.Name == target.Name {
			return nil, fmt.Errorf("%w: target %s is also an input feature", ErrInvalidPipeline, target.Name)
		}
	}

	kind, err := ml.ModelKind(model.Name())
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalidPipeline, err)
	}
	if target.Type == ml.Categorical && kind != ml.Classification {
		return nil, fmt.Errorf("%w: categorical target %s needs a classification model, got %s",
			ErrInvalidPipeline, target.Name, model.Name())
	}
	if target.Type == ml.Numerical && kind != ml.Regression {
		return nil, fmt.Errorf("%w: numerical target %s needs a regression model, got %s",
			ErrInvalidPipeline, target.Name, model.Name())
	}

	p := &Pipeline{
		dataset:       dataset,
		model:         model,
		inputFeatures: inputs,
		targetFeature: target,
		metrics:       metrics,
		split:         defaultSplit,
	}
	for _, opt := range opts {
		opt(p)
	}
	if p.runID == "" {
		p.runID = uuid.NewString()
	}
	return p, nil
}

func (p *Pipeline) RunID() string { return p.runID }

func (p *Pipeline) Model() ml.Model { return p.model }

// Execute trains the model on the training split and evaluates every
// metric on both splits.
func (p *Pipeline) Execute() (*Result, error) {
	table, err := p.dataset.Table()
	if err != nil {
		return nil, err
	}

	rows := table.Rows()
	cut := splitIndex(rows, p.split)
	if cut == 0 || cut == rows {
		return nil, fmt.Errorf("%w: %d rows at split %.2f", ErrEmptySplit, rows, p.split)
	}

	// Input scaling and vocabularies come from the training rows only.
	if err := p.preprocessor.ComputeStats(table.Slice(0, cut), p.inputFeatures); err != nil {
		return nil, fmt.Errorf("preprocess: %w", err)
	}
	if err := p.preprocessor.ComputeTargetStats(table, p.targetFeature); err != nil {
		return nil, fmt.Errorf("preprocess: %w", err)
	}
	X, err := p.preprocessor.Transform(table, p.inputFeatures)
	if err != nil {
		return nil, fmt.Errorf("preprocess: %w", err)
	}
	y, err := p.preprocessor.EncodeTarget(table, p.targetFeature)
	if err != nil {
		return nil, fmt.Errorf("preprocess: %w", err)
	}

	trainX, trainY, testX, testY := Split(X, y, p.split)

	if err := p.model.Fit(trainX, trainY); err != nil {
		return nil, err
	}
	trainPred, err := p.model.Predict(trainX)
	if err != nil {
		return nil, err
	}
	testPred, err := p.model.Predict(testX)
	if err != nil {
		return nil, err
	}

	trainMetrics, err := ml.EvaluateAll(p.metrics, trainY, trainPred)
	if err != nil {
		return nil, fmt.Errorf("evaluate train split: %w", err)
	}
	testMetrics, err := ml.EvaluateAll(p.metrics, testY, testPred)
	if err != nil {
		return nil, fmt.Errorf("evaluate test split: %w", err)
	}

	p.result = &Result{
		TrainMetrics: trainMetrics,
		TestMetrics:  testMetrics,
		Predictions:  testPred,
		TrainSize:    len(trainX),
		TestSize:     len(testX),
	}
	logger.Info("pipeline executed",
		zap.String("run_id", p.runID),
		zap.String("dataset", p.dataset.Name()),
		zap.String("model", p.model.Name()),
		zap.Int("train_size", len(trainX)),
		zap.Int("test_size", len(testX)),
	)
	return p.result, nil
}

type pipelineConfig struct {
	RunID         string               `yaml:"run_id"`
	Dataset       string               `yaml:"dataset"`
	DatasetID     string               `yaml:"dataset_id"`
	Model         string               `yaml:"model"`
	InputFeatures []*ml.Feature        `yaml:"input_features"`
	TargetFeature *ml.Feature          `yaml:"target_feature"`
	Split         float64              `yaml:"split"`
	Metrics       []string             `yaml:"metrics"`
	Ranges        map[string][]float64 `yaml:"ranges,omitempty"`
	Categories    map[string][]string  `yaml:"categories,omitempty"`
	Result        *Result              `yaml:"result,omitempty"`
}

// Artifacts returns the pipeline configuration (YAML) and the model
// snapshot, both stored under assetPrefix and tagged with the run ID.
func (p *Pipeline) Artifacts(assetPrefix, version string) ([]*ml.Artifact, error) {
	assetPrefix = strings.TrimSuffix(assetPrefix, "/")
	if assetPrefix == "" {
		assetPrefix = "pipelines/" + p.runID
	}

	metricNames := make([]string, len(p.metrics))
	for i, metric := range p.metrics {
		metricNames[i] = metric.Name()
	}
	ranges := make(map[string][]float64)
	for name, stats := range p.preprocessor.FeatureStats() {
		ranges[name] = []float64{stats[0], stats[1]}
	}
	payload, err := yaml.Marshal(pipelineConfig{
		RunID:         p.runID,
		Dataset:       p.dataset.Name(),
		DatasetID:     p.dataset.ID(),
		Model:         p.model.Name(),
		InputFeatures: p.inputFeatures,
		TargetFeature: p.targetFeature,
		Split:         p.split,
		Metrics:       metricNames,
		Ranges:        ranges,
		Categories:    p.preprocessor.Categories(),
		Result:        p.result,
	})
	if err != nil {
		return nil, fmt.Errorf("encode pipeline config: %w", err)
	}

	runMetadata := map[string]any{"run_id": p.runID, "dataset_id": p.dataset.ID()}
	config, err := ml.NewArtifact(path.Join(assetPrefix, "pipeline_config.yaml"), version, payload, ml.ArtifactTypePipeline,
		ml.WithMetadata(runMetadata),
		ml.WithTags("pipeline", "config"),
	)
	if err != nil {
		return nil, err
	}

	model, err := p.model.Save(path.Join(assetPrefix, "model_"+p.model.Name()), version)
	if err != nil {
		return nil, err
	}
	for key, value := range runMetadata {
		model.Metadata[key] = value
	}
	return []*ml.Artifact{config, model}, nil
}

func (p *Pipeline) String() string {
	return fmt.Sprintf("Pipeline(model=%s, inputs=%d, target=%s, split=%.2f, metrics=%d)",
		p.model.Name(), len(p.inputFeatures), p.targetFeature.Name, p.split, len(p.metrics))
}
