package main

import (
	"fmt"
	"os"

	"github.com/alexflint/go-arg"
	"go.uber.org/zap"

	"automl/config"
	"automl/logging"
	"automl/ml"
	"automl/pipeline"
)

type args struct {
	Config   string   `arg:"-c,--config" help:"path to the YAML config" default:"config.yaml"`
	Model    string   `arg:"-m,--model" help:"override ml.model_type"`
	Target   string   `arg:"-t,--target" help:"override dataset.target"`
	Inputs   []string `arg:"-i,--input,separate" help:"input feature names (default: every column but the target)"`
	RunID    string   `arg:"--run-id" help:"run identifier (default: random UUID)"`
	LogLevel string   `arg:"--log-level" help:"override log.level"`
}

func (args) Description() string {
	return "Train and evaluate one model on a CSV dataset."
}

func main() {
	var a args
	arg.MustParse(&a)

	cfg, err := loadConfig(a)
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to load config: %v\n", err)
		os.Exit(1)
	}

	logger, err := logging.New(logging.Config{
		Level:      cfg.Log.Level,
		File:       cfg.Log.File,
		MaxSizeMB:  cfg.Log.MaxSizeMB,
		MaxBackups: cfg.Log.MaxBackups,
		MaxAgeDays: cfg.Log.MaxAgeDays,
	})
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to build logger: %v\n", err)
		os.Exit(1)
	}
	defer logger.Sync()
	ml.SetLogger(logger)
	pipeline.SetLogger(logger)
	ml.SetTableCacheSize(cfg.Cache.Size)

	if err := run(cfg, a, logger); err != nil {
		logger.Error("training failed", zap.Error(err))
		fmt.Fprintf(os.Stderr, "training failed: %v\n", err)
		os.Exit(1)
	}
}

func loadConfig(a args) (*config.Config, error) {
	cfg, err := config.Load(a.Config)
	if err != nil {
		return nil, err
	}
	if a.Model != "" {
		cfg.ML.ModelType = a.Model
	}
	if a.Target != "" {
		cfg.Dataset.Target = a.Target
	}
	if a.LogLevel != "" {
		cfg.Log.Level = a.LogLevel
	}
	return cfg, cfg.Validate()
}

func run(cfg *config.Config, a args, logger *zap.Logger) error {
	data, err := os.ReadFile(cfg.Dataset.Path)
	if err != nil {
		return err
	}
	dataset, err := ml.NewDataset(cfg.Dataset.Name, cfg.Dataset.Path, cfg.Dataset.Version, data,
		ml.WithEncoding(cfg.Dataset.Encoding))
	if err != nil {
		return err
	}
	table, err := dataset.Table()
	if err != nil {
		return err
	}

	cleaner := pipeline.NewDataCleaner()
	issues, err := cleaner.Clean(table)
	if err != nil {
		return err
	}
	for _, issue := range issues {
		fmt.Printf("warning: %s %s: %s\n", issue.Type, issue.Column, issue.Message)
	}

	features, err := ml.DetectFeatureTypes(dataset)
	if err != nil {
		return err
	}
	byName := make(map[string]*ml.Feature, len(features))
	for _, feature := range features {
		col, _ := table.Column(feature.Name)
		if err := feature.ComputeStatistics(col); err != nil {
			return err
		}
		byName[feature.Name] = feature
		logger.Debug("detected feature", zap.Stringer("feature", feature))
	}

	target, ok := byName[cfg.Dataset.Target]
	if !ok {
		return fmt.Errorf("target column %s not found", cfg.Dataset.Target)
	}
	inputs, err := selectInputs(features, byName, a.Inputs, target.Name)
	if err != nil {
		return err
	}

	model, err := ml.NewModel(cfg.ML.ModelType, cfg.ModelParams())
	if err != nil {
		return err
	}
	metrics := make([]ml.Metric, 0, len(cfg.ML.Metrics))
	for _, name := range cfg.ML.Metrics {
		metric, err := ml.GetMetric(name)
		if err != nil {
			return err
		}
		metrics = append(metrics, metric)
	}

	opts := []pipeline.Option{pipeline.WithSplit(cfg.ML.Split)}
	if a.RunID != "" {
		opts = append(opts, pipeline.WithRunID(a.RunID))
	}
	p, err := pipeline.New(dataset, model, inputs, target, metrics, opts...)
	if err != nil {
		return err
	}
	result, err := p.Execute()
	if err != nil {
		return err
	}

	fmt.Println(p)
	fmt.Printf("run %s: train=%d test=%d\n", p.RunID(), result.TrainSize, result.TestSize)
	for i, metric := range result.TestMetrics {
		fmt.Printf("  %-20s train=%.4f test=%.4f\n", metric.Name, result.TrainMetrics[i].Value, metric.Value)
	}

	artifacts, err := p.Artifacts(cfg.ML.AssetPath, cfg.ML.Version)
	if err != nil {
		return err
	}
	for _, artifact := range artifacts {
		fmt.Printf("artifact %s (%s, %d bytes)\n", artifact.ID(), artifact.Type, len(artifact.Read()))
	}
	return nil
}

func selectInputs(features []*ml.Feature, byName map[string]*ml.Feature, names []string, target string) ([]*ml.Feature, error) {
	if len(names) == 0 {
		inputs := make([]*ml.Feature, 0, len(features))
		for _, feature := range features {
			if feature.Name != target {
				inputs = append(inputs, feature)
			}
		}
		return inputs, nil
	}
	inputs := make([]*ml.Feature, 0, len(names))
	for _, name := range names {
		feature, ok := byName[name]
		if !ok {
			return nil, fmt.Errorf("input column %s not found", name)
		}
		inputs = append(inputs, feature)
	}
	return inputs, nil
}
