package testutil

import (
	"context"
	"sync"

	"github.com/XiaoConstantine/exemplar-go/pkg/core"
)

// MemoryStorage keeps run products in memory for assertions.
type MemoryStorage struct {
	mu        sync.Mutex
	Artifacts map[string]*core.GeneratedArtifact
	Plans     map[string]core.ImplementationPlan
	Reports   map[string]core.Report
}

func NewMemoryStorage() *MemoryStorage {
	return &MemoryStorage{
		Artifacts: make(map[string]*core.GeneratedArtifact),
		Plans:     make(map[string]core.ImplementationPlan),
		Reports:   make(map[string]core.Report),
	}
}

func (s *MemoryStorage) SaveArtifact(_ context.Context, runID string, artifact *core.GeneratedArtifact) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.Artifacts[runID] = artifact.Clone()
	return nil
}

func (s *MemoryStorage) SavePlan(_ context.Context, runID string, plan core.ImplementationPlan) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.Plans[runID] = plan
	return nil
}

func (s *MemoryStorage) SaveReport(_ context.Context, runID string, report core.Report) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.Reports[runID] = report
	return nil
}
