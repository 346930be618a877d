package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/XiaoConstantine/exemplar-go/pkg/errors"
)

func TestDefaults(t *testing.T) {
	cfg := Default()

	assert.Equal(t, "anthropic", cfg.LLM.Provider)
	assert.NotEmpty(t, cfg.LLM.ModelID)
	assert.InDelta(t, 0.7, cfg.Pipeline.Threshold, 1e-9)
	assert.Equal(t, 3, cfg.Pipeline.MaxIterations)
	assert.Equal(t, 4, cfg.Pipeline.Parallelism)
	assert.Equal(t, "INFO", cfg.Logging.Level)
	assert.Equal(t, "runs", cfg.Output.Dir)
	assert.Equal(t, "BaseExtractor", cfg.Constraints.InterfaceName)

	require.NoError(t, cfg.Validate())
}

func TestLoadEmptyPathUsesDefaults(t *testing.T) {
	cfg, err := Load("")
	require.NoError(t, err)
	assert.Equal(t, Default().LLM.ModelID, cfg.LLM.ModelID)
}

func TestLoadYAMLOverridesDefaults(t *testing.T) {
	path := writeConfig(t, `
llm:
  provider: gemini
  model_id: gemini-2.0-flash
pipeline:
  threshold: 0.9
  max_iterations: 5
logging:
  level: DEBUG
`)

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, "gemini", cfg.LLM.Provider)
	assert.Equal(t, "gemini-2.0-flash", cfg.LLM.ModelID)
	assert.InDelta(t, 0.9, cfg.Pipeline.Threshold, 1e-9)
	assert.Equal(t, 5, cfg.Pipeline.MaxIterations)
	assert.Equal(t, "DEBUG", cfg.Logging.Level)
	// Untouched sections keep their defaults.
	assert.Equal(t, "runs", cfg.Output.Dir)
	assert.Contains(t, cfg.Constraints.ForbiddenPatterns, "eval")
}

func TestLoadEnvOverridesFile(t *testing.T) {
	path := writeConfig(t, `
llm:
  provider: anthropic
  model_id: claude-sonnet-4-20250514
`)
	t.Setenv("EXEMPLAR_PROVIDER", "google")
	t.Setenv("EXEMPLAR_MODEL", "gemini-2.0-flash")
	t.Setenv("EXEMPLAR_API_KEY", "test-key")
	t.Setenv("EXEMPLAR_THRESHOLD", "0.85")
	t.Setenv("EXEMPLAR_MAX_ITERATIONS", "2")
	t.Setenv("EXEMPLAR_OUTPUT_DIR", "out")

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, "google", cfg.LLM.Provider)
	assert.Equal(t, "gemini-2.0-flash", cfg.LLM.ModelID)
	assert.Equal(t, "test-key", cfg.LLM.APIKey)
	assert.InDelta(t, 0.85, cfg.Pipeline.Threshold, 1e-9)
	assert.Equal(t, 2, cfg.Pipeline.MaxIterations)
	assert.Equal(t, "out", cfg.Output.Dir)
}

func TestLoadRejectsInvalidValues(t *testing.T) {
	path := writeConfig(t, `
llm:
  provider: openai
  model_id: gpt-4
pipeline:
  threshold: 1.5
`)

	_, err := Load(path)
	require.Error(t, err)
	assert.True(t, errors.HasCode(err, errors.ValidationFailed))
	assert.Contains(t, err.Error(), "unsupported value")
	assert.Contains(t, err.Error(), "out of range")
}

func TestLoadMissingFile(t *testing.T) {
	_, err := Load("testdata/nope.yaml")
	require.Error(t, err)
	assert.True(t, errors.HasCode(err, errors.InvalidInput))
}

func TestLoadMalformedYAML(t *testing.T) {
	path := writeConfig(t, "llm: [not a mapping")
	_, err := Load(path)
	require.Error(t, err)
	assert.True(t, errors.HasCode(err, errors.InvalidInput))
}

func TestValidateAggregatesFailures(t *testing.T) {
	cfg := &Config{
		LLM:      LLMConfig{Provider: "nope"},
		Pipeline: PipelineConfig{Threshold: -1, MaxIterations: 99},
	}

	err := cfg.Validate()
	require.Error(t, err)

	var verrs ValidationErrors
	require.ErrorAs(t, err, &verrs)
	assert.GreaterOrEqual(t, len(verrs), 3)
}

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}
