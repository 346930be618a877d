package pipeline

import (
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/XiaoConstantine/exemplar-go/pkg/core"
	"github.com/XiaoConstantine/exemplar-go/pkg/errors"
)

func TestFileStorageSaveArtifact(t *testing.T) {
	dir := t.TempDir()
	s := NewFileStorage(dir)

	artifact := &core.GeneratedArtifact{
		ID: "a1",
		Files: map[string]string{
			"extractor.py": "x = 1\n",
			"base.py":      "y = 2\n",
		},
	}
	require.NoError(t, s.SaveArtifact(context.Background(), "run-1", artifact))

	data, err := os.ReadFile(filepath.Join(dir, "run-1", "generated", "extractor.py"))
	require.NoError(t, err)
	assert.Equal(t, "x = 1\n", string(data))

	data, err = os.ReadFile(filepath.Join(dir, "run-1", "generated", "base.py"))
	require.NoError(t, err)
	assert.Equal(t, "y = 2\n", string(data))
}

func TestFileStorageRejectsEscapingFileNames(t *testing.T) {
	base := t.TempDir()
	dir := filepath.Join(base, "runs")
	s := NewFileStorage(dir)

	for _, name := range []string{
		"../../evil.py",
		"../evil.py",
		"/tmp/evil.py",
		"a/../../evil.py",
	} {
		artifact := &core.GeneratedArtifact{
			ID: "a2",
			Files: map[string]string{
				"extractor.py": "x = 1\n",
				name:           "import os\n",
			},
		}
		err := s.SaveArtifact(context.Background(), "run-x", artifact)
		require.Error(t, err, "name %q must be rejected", name)
		assert.True(t, errors.HasCode(err, errors.InvalidInput))
	}

	// Nothing may land above the runs directory.
	_, err := os.Stat(filepath.Join(base, "evil.py"))
	assert.True(t, os.IsNotExist(err))
	_, err = os.Stat("/tmp/evil.py")
	assert.True(t, os.IsNotExist(err))
}

func TestFileStorageSavePlanAndReport(t *testing.T) {
	dir := t.TempDir()
	s := NewFileStorage(dir)

	plan := core.ImplementationPlan{
		Classes:   []core.PlannedClass{{Name: "X", Responsibility: "r", Methods: []string{"extract"}}},
		ModelUsed: "m",
	}
	require.NoError(t, s.SavePlan(context.Background(), "run-2", plan))

	report := core.Report{RunID: "run-2", Converged: true, QualityScore: 0.94}
	require.NoError(t, s.SaveReport(context.Background(), "run-2", report))

	var gotPlan core.ImplementationPlan
	data, err := os.ReadFile(filepath.Join(dir, "run-2", "plan.json"))
	require.NoError(t, err)
	require.NoError(t, json.Unmarshal(data, &gotPlan))
	assert.Equal(t, plan, gotPlan)

	var gotReport core.Report
	data, err = os.ReadFile(filepath.Join(dir, "run-2", "report.json"))
	require.NoError(t, err)
	require.NoError(t, json.Unmarshal(data, &gotReport))
	assert.Equal(t, report, gotReport)
}

func TestFileStorageCanceledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	s := NewFileStorage(t.TempDir())
	err := s.SavePlan(ctx, "run-3", core.ImplementationPlan{})
	require.Error(t, err)
	assert.True(t, errors.HasCode(err, errors.Canceled))
}
