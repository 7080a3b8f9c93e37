// Package config defines environment configuration structs and loaders.
package config

import (
	"github.com/caarlos0/env/v11"
)

type AppConfig struct {
	InputEnvConfig
	PreprocessEnvConfig
	EnsembleEnvConfig
	RuntimeEnvConfig
}

func LoadConfig() (*AppConfig, error) {
	cfg := &AppConfig{}
	if err := env.Parse(cfg); err != nil {
		return nil, err
	}
	return cfg, nil
}

// InputEnvConfig locates the input matrices and the output directory.
// Matrix files are CSV with row labels in the first column; .gz is accepted.
type InputEnvConfig struct {
	AffinityPath string `env:"AFFINITY_PATH" envDefault:"affinity.csv"`
	ResponsePath string `env:"RESPONSE_PATH" envDefault:"response.csv"`
	OutputDir    string `env:"OUTPUT_DIR" envDefault:"results"`
}

// PreprocessEnvConfig controls the affinity transform and deduplication.
type PreprocessEnvConfig struct {
	Transform bool     `env:"TRANSFORM" envDefault:"true"`
	Dedupe    bool     `env:"DEDUPE" envDefault:"true"`
	Cutoff    float64  `env:"SIMILARITY_CUTOFF" envDefault:"0.8"`
	Keep      []string `env:"KEEP_PROTEINS" envSeparator:","`
}

// EnsembleEnvConfig controls the regression ensemble.
type EnsembleEnvConfig struct {
	Repeats int `env:"REPEATS" envDefault:"100"`
	Folds   int `env:"CV_FOLDS" envDefault:"3"`
}

// RuntimeEnvConfig configures execution.
type RuntimeEnvConfig struct {
	Workers     int    `env:"WORKERS" envDefault:"0"`
	Environment string `env:"ENVIRONMENT" envDefault:"prod"`
}
