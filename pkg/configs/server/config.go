// Package server holds the daemon configuration, read from a YAML file
// with environment overrides for deployment knobs.
package server

import (
	"fmt"
	"os"
	"strconv"

	"gopkg.in/yaml.v3"

	"github.com/verdantlab/leafwise/pkg/domain/model/yolo"
)

type ServerConfig struct {
	// Port the HTTP API listens on. Overridden by env PORT.
	Port int `yaml:"port"`

	// LogLevel is one of debug, info, warn, error, off.
	LogLevel string `yaml:"loglevel,omitempty"`

	Dataset DatasetConfig `yaml:"dataset"`
	Train   TrainConfig   `yaml:"train"`
	Model   ModelConfig   `yaml:"model"`
	Source  SourceConfig  `yaml:"imageSource"`

	// Database is an optional PostgreSQL connection string for the
	// training-history audit trail. Empty disables history.
	// Overridden by env LEAFWISE_DB.
	Database string `yaml:"database,omitempty"`
}

type DatasetConfig struct {
	// Dir is the root of the per-class image folders.
	Dir string `yaml:"dir"`

	// RegistryFile stores the list of trained labels.
	RegistryFile string `yaml:"registryFile"`
}

type TrainConfig struct {
	// WorkDir hosts ephemeral train/validation splits.
	WorkDir string `yaml:"workDir"`

	SplitRatio  float64 `yaml:"splitRatio,omitempty"`
	MinImages   int     `yaml:"minImages,omitempty"`
	FetchTarget int     `yaml:"fetchTarget,omitempty"`
}

type ModelConfig struct {
	// BaseWeights is the pretrained checkpoint every run starts from.
	BaseWeights string `yaml:"baseWeights"`

	// ServeWeights, when present at startup, is loaded into the model
	// slot so a restarted daemon serves its last trained model.
	ServeWeights string `yaml:"serveWeights,omitempty"`

	// OutDir receives trained weight artifacts.
	OutDir string `yaml:"outDir"`

	Runtime yolo.Config `yaml:"runtime"`
}

type SourceConfig struct {
	// Endpoint of the image-search service.
	Endpoint string `yaml:"endpoint"`

	// TimeoutSeconds bounds one search request. 0 means the default.
	TimeoutSeconds int `yaml:"timeoutSeconds,omitempty"`
}

func LoadServerConfig(filepath string) (*ServerConfig, error) {
	content, err := os.ReadFile(filepath)
	if err != nil {
		return nil, err
	}
	return Unmarshal(content)
}

func Unmarshal(conf []byte) (*ServerConfig, error) {
	out := ServerConfig{
		Port:     8080,
		LogLevel: "info",
		Train: TrainConfig{
			SplitRatio:  0.8,
			MinImages:   20,
			FetchTarget: 25,
		},
	}
	if err := yaml.Unmarshal(conf, &out); err != nil {
		return nil, err
	}

	if port, ok := os.LookupEnv("PORT"); ok {
		p, err := strconv.Atoi(port)
		if err != nil {
			return nil, fmt.Errorf("env PORT is not a number: %q", port)
		}
		out.Port = p
	}
	if dsn, ok := os.LookupEnv("LEAFWISE_DB"); ok {
		out.Database = dsn
	}

	if err := out.verify(); err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *ServerConfig) verify() error {
	for _, req := range []struct {
		path  string
		value string
	}{
		{"dataset.dir", c.Dataset.Dir},
		{"dataset.registryFile", c.Dataset.RegistryFile},
		{"train.workDir", c.Train.WorkDir},
		{"model.baseWeights", c.Model.BaseWeights},
		{"model.outDir", c.Model.OutDir},
		{"model.runtime.python", c.Model.Runtime.Python},
		{"model.runtime.trainScript", c.Model.Runtime.TrainScript},
		{"model.runtime.predictScript", c.Model.Runtime.PredictScript},
		{"imageSource.endpoint", c.Source.Endpoint},
	} {
		if req.value == "" {
			return fmt.Errorf("config misses %s", req.path)
		}
	}
	if c.Train.SplitRatio <= 0 || 1 <= c.Train.SplitRatio {
		return fmt.Errorf("train.splitRatio is out of range (0, 1): %f", c.Train.SplitRatio)
	}
	return nil
}
