package pipeline

import (
	"context"
	"encoding/json"
	"os"
	"path/filepath"

	"github.com/XiaoConstantine/exemplar-go/pkg/core"
	"github.com/XiaoConstantine/exemplar-go/pkg/errors"
)

// Storage persists the products of one run. Implementations must be safe
// for use from a single run at a time; runs are identified by their run ID.
type Storage interface {
	SaveArtifact(ctx context.Context, runID string, artifact *core.GeneratedArtifact) error
	SavePlan(ctx context.Context, runID string, plan core.ImplementationPlan) error
	SaveReport(ctx context.Context, runID string, report core.Report) error
}

// FileStorage writes run products under baseDir/<runID>/.
type FileStorage struct {
	baseDir string
}

func NewFileStorage(baseDir string) *FileStorage {
	return &FileStorage{baseDir: baseDir}
}

func (s *FileStorage) SaveArtifact(ctx context.Context, runID string, artifact *core.GeneratedArtifact) error {
	if err := errors.CheckContext(ctx, "artifact save"); err != nil {
		return err
	}
	dir := filepath.Join(s.baseDir, runID, "generated")
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return errors.Wrap(err, errors.Unknown, "failed to create artifact directory")
	}
	for _, name := range artifact.FileNames() {
		// File names come from the model response; anything that would
		// resolve outside the run directory is rejected, not sanitized.
		if !filepath.IsLocal(name) {
			return errors.WithFields(
				errors.New(errors.InvalidInput, "generated file name escapes the run directory"),
				errors.Fields{"file": name})
		}
		path := filepath.Join(dir, name)
		if err := os.WriteFile(path, []byte(artifact.Files[name]), 0o644); err != nil {
			return errors.WithFields(
				errors.Wrap(err, errors.Unknown, "failed to write generated file"),
				errors.Fields{"file": name})
		}
	}
	return nil
}

func (s *FileStorage) SavePlan(ctx context.Context, runID string, plan core.ImplementationPlan) error {
	return s.saveJSON(ctx, runID, "plan.json", plan)
}

func (s *FileStorage) SaveReport(ctx context.Context, runID string, report core.Report) error {
	return s.saveJSON(ctx, runID, "report.json", report)
}

func (s *FileStorage) saveJSON(ctx context.Context, runID, name string, v interface{}) error {
	if err := errors.CheckContext(ctx, "run save"); err != nil {
		return err
	}
	dir := filepath.Join(s.baseDir, runID)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return errors.Wrap(err, errors.Unknown, "failed to create run directory")
	}
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return errors.Wrap(err, errors.Unknown, "failed to encode "+name)
	}
	if err := os.WriteFile(filepath.Join(dir, name), append(data, '\n'), 0o644); err != nil {
		return errors.Wrap(err, errors.Unknown, "failed to write "+name)
	}
	return nil
}
