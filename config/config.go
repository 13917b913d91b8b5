package config

import (
	"errors"
	"fmt"
	"os"

	"go.uber.org/multierr"
	"gopkg.in/yaml.v2"

	"automl/ml"
)

var ErrInvalidConfig = errors.New("invalid config")

type Config struct {
	Dataset struct {
		Path     string `yaml:"path"`
		Name     string `yaml:"name"`
		Encoding string `yaml:"encoding"`
		Target   string `yaml:"target"`
		Version  string `yaml:"version"`
	} `yaml:"dataset"`
	ML struct {
		ModelType    string   `yaml:"model_type"`
		MaxTreeDepth int      `yaml:"max_tree_depth"`
		FitIntercept *bool    `yaml:"fit_intercept"`
		Metrics      []string `yaml:"metrics"`
		Split        float64  `yaml:"split"`
		AssetPath    string   `yaml:"asset_path"`
		Version      string   `yaml:"version"`
	} `yaml:"ml"`
	Log struct {
		Level      string `yaml:"level"`
		File       string `yaml:"file"`
		MaxSizeMB  int    `yaml:"max_size_mb"`
		MaxBackups int    `yaml:"max_backups"`
		MaxAgeDays int    `yaml:"max_age_days"`
	} `yaml:"log"`
	Cache struct {
		Size int `yaml:"size"`
	} `yaml:"cache"`
}

// Load reads a YAML config and fills defaults. Callers apply their own
// overrides and then call Validate.
func Load(path string) (*Config, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer file.Close()

	var config Config
	if err := yaml.NewDecoder(file).Decode(&config); err != nil {
		return nil, fmt.Errorf("decode %s: %w", path, err)
	}
	config.applyDefaults()
	return &config, nil
}

func (c *Config) applyDefaults() {
	if c.Dataset.Name == "" {
		c.Dataset.Name = "dataset"
	}
	if c.Dataset.Version == "" {
		c.Dataset.Version = "1.0.0"
	}
	if c.Dataset.Encoding == "" {
		c.Dataset.Encoding = "utf-8"
	}
	if c.ML.MaxTreeDepth == 0 {
		c.ML.MaxTreeDepth = 3
	}
	if c.ML.Split == 0 {
		c.ML.Split = 0.8
	}
	if c.ML.Version == "" {
		c.ML.Version = c.Dataset.Version
	}
	if c.Log.Level == "" {
		c.Log.Level = "info"
	}
	if c.Cache.Size == 0 {
		c.Cache.Size = 64
	}
}

// Validate reports every problem at once.
func (c *Config) Validate() error {
	var err error
	if c.Dataset.Path == "" {
		err = multierr.Append(err, errors.New("dataset.path is required"))
	}
	if c.Dataset.Target == "" {
		err = multierr.Append(err, errors.New("dataset.target is required"))
	}
	if _, modelErr := ml.NewModel(c.ML.ModelType, nil); modelErr != nil {
		err = multierr.Append(err, fmt.Errorf("ml.model_type: %w", modelErr))
	}
	if len(c.ML.Metrics) == 0 {
		err = multierr.Append(err, errors.New("ml.metrics must name at least one metric"))
	}
	for _, name := range c.ML.Metrics {
		if _, metricErr := ml.GetMetric(name); metricErr != nil {
			err = multierr.Append(err, fmt.Errorf("ml.metrics: %w", metricErr))
		}
	}
	if c.ML.Split <= 0 || c.ML.Split >= 1 {
		err = multierr.Append(err, fmt.Errorf("ml.split %.2f must be in (0, 1)", c.ML.Split))
	}
	if c.ML.MaxTreeDepth < 0 {
		err = multierr.Append(err, errors.New("ml.max_tree_depth must be positive"))
	}
	if c.Cache.Size < 0 {
		err = multierr.Append(err, errors.New("cache.size must be positive"))
	}
	if err != nil {
		return fmt.Errorf("%w: %w", ErrInvalidConfig, err)
	}
	return nil
}

// ModelParams maps the ml section onto the chosen model's parameters.
func (c *Config) ModelParams() ml.Parameters {
	params := ml.Parameters{}
	switch c.ML.ModelType {
	case "decision_tree":
		params["max_depth"] = ml.IntValue(int64(c.ML.MaxTreeDepth))
	case "linear_regression":
		if c.ML.FitIntercept != nil {
			params["fit_intercept"] = ml.BoolValue(*c.ML.FitIntercept)
		}
	}
	return params
}
