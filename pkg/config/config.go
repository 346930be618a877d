// Package config loads and validates the YAML project configuration that
// drives a synthesis run.
package config

import (
	"fmt"
	"strings"

	"github.com/go-playground/validator/v10"

	"github.com/XiaoConstantine/exemplar-go/pkg/constraints"
)

// Config is the root configuration document.
type Config struct {
	// LLM selects the provider for both planning and coding calls.
	LLM LLMConfig `yaml:"llm" validate:"required"`

	// Pipeline tunes the synthesis flow.
	Pipeline PipelineConfig `yaml:"pipeline,omitempty" validate:"omitempty"`

	// Constraints overrides the default architectural policy.
	Constraints constraints.ArchitectureConstraints `yaml:"constraints,omitempty"`

	// Logging configures severity and optional JSON-lines file output.
	Logging LoggingConfig `yaml:"logging,omitempty" validate:"omitempty"`

	// Output configures where run products are written.
	Output OutputConfig `yaml:"output,omitempty" validate:"omitempty"`
}

// LLMConfig selects and configures one provider.
type LLMConfig struct {
	Provider  string `yaml:"provider" validate:"required,oneof=anthropic google gemini"`
	ModelID   string `yaml:"model_id" validate:"required"`
	APIKey    string `yaml:"api_key,omitempty"`
	CachePath string `yaml:"cache_path,omitempty"`
}

// PipelineConfig tunes the synthesis flow.
type PipelineConfig struct {
	// Threshold is the confidence cut for pattern filtering.
	Threshold float64 `yaml:"threshold" validate:"gte=0,lte=1"`

	// MaxIterations bounds the refinement loop.
	MaxIterations int `yaml:"max_iterations" validate:"gte=0,lte=10"`

	// Parallelism bounds concurrent per-field pattern detection.
	Parallelism int `yaml:"parallelism" validate:"gte=0,lte=64"`
}

// LoggingConfig configures the logger.
type LoggingConfig struct {
	Level string `yaml:"level,omitempty" validate:"omitempty,oneof=DEBUG INFO WARN ERROR FATAL"`
	File  string `yaml:"file,omitempty"`
}

// OutputConfig configures run persistence.
type OutputConfig struct {
	Dir string `yaml:"dir,omitempty"`
}

// ValidationError is one failed constraint on a config field.
type ValidationError struct {
	Field string
	Tag   string
}

func (e ValidationError) Error() string {
	switch e.Tag {
	case "required":
		return fmt.Sprintf("%s is required", e.Field)
	case "oneof":
		return fmt.Sprintf("%s has an unsupported value", e.Field)
	case "gte", "lte":
		return fmt.Sprintf("%s is out of range", e.Field)
	default:
		return fmt.Sprintf("%s failed validation (%s)", e.Field, e.Tag)
	}
}

// ValidationErrors aggregates every failed constraint.
type ValidationErrors []ValidationError

func (e ValidationErrors) Error() string {
	msgs := make([]string, len(e))
	for i, err := range e {
		msgs[i] = err.Error()
	}
	return "config validation failed: " + strings.Join(msgs, "; ")
}

var validate = validator.New()

// Validate checks the whole document and returns every failure at once.
func (c *Config) Validate() error {
	err := validate.Struct(c)
	if err == nil {
		return nil
	}
	fieldErrs, ok := err.(validator.ValidationErrors)
	if !ok {
		return err
	}
	out := make(ValidationErrors, 0, len(fieldErrs))
	for _, fe := range fieldErrs {
		out = append(out, ValidationError{Field: fe.Namespace(), Tag: fe.Tag()})
	}
	return out
}
