package config

import (
	"os"
	"strconv"

	"gopkg.in/yaml.v3"

	"github.com/XiaoConstantine/exemplar-go/pkg/constraints"
	"github.com/XiaoConstantine/exemplar-go/pkg/errors"
	"github.com/XiaoConstantine/exemplar-go/pkg/pipeline"
	"github.com/XiaoConstantine/exemplar-go/pkg/refine"
)

// Default returns the configuration used when no file is supplied. The
// provider still has to come from the file or environment; everything else
// has a workable default.
func Default() *Config {
	return &Config{
		LLM: LLMConfig{
			Provider: "anthropic",
			ModelID:  "claude-sonnet-4-20250514",
		},
		Pipeline: PipelineConfig{
			Threshold:     pipeline.DefaultThreshold,
			MaxIterations: refine.DefaultMaxIterations,
			Parallelism:   4,
		},
		Constraints: constraints.Default(),
		Logging:     LoggingConfig{Level: "INFO"},
		Output:      OutputConfig{Dir: "runs"},
	}
}

// Load reads a YAML file over the defaults, applies environment overrides
// and validates the result.
func Load(path string) (*Config, error) {
	cfg := Default()
	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, errors.Wrap(err, errors.InvalidInput, "failed to read config file")
		}
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, errors.Wrap(err, errors.InvalidInput, "failed to parse config YAML")
		}
	}
	applyEnv(cfg)
	if err := cfg.Validate(); err != nil {
		return nil, errors.Wrap(err, errors.ValidationFailed, "invalid configuration")
	}
	return cfg, nil
}

// applyEnv lets the environment override file values, so deployments can
// keep credentials out of the config file entirely.
func applyEnv(cfg *Config) {
	if v := os.Getenv("EXEMPLAR_PROVIDER"); v != "" {
		cfg.LLM.Provider = v
	}
	if v := os.Getenv("EXEMPLAR_MODEL"); v != "" {
		cfg.LLM.ModelID = v
	}
	if v := os.Getenv("EXEMPLAR_API_KEY"); v != "" {
		cfg.LLM.APIKey = v
	}
	if v := os.Getenv("EXEMPLAR_CACHE_PATH"); v != "" {
		cfg.LLM.CachePath = v
	}
	if v := os.Getenv("EXEMPLAR_THRESHOLD"); v != "" {
		if f, err := strconv.ParseFloat(v, 64); err == nil {
			cfg.Pipeline.Threshold = f
		}
	}
	if v := os.Getenv("EXEMPLAR_MAX_ITERATIONS"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			cfg.Pipeline.MaxIterations = n
		}
	}
	if v := os.Getenv("EXEMPLAR_LOG_LEVEL"); v != "" {
		cfg.Logging.Level = v
	}
	if v := os.Getenv("EXEMPLAR_OUTPUT_DIR"); v != "" {
		cfg.Output.Dir = v
	}
}
