// Package refine evaluates generated artifacts against the example pairs
// and drives a bounded regeneration loop toward convergence.
package refine

import (
	"context"

	"github.com/XiaoConstantine/exemplar-go/pkg/core"
	"github.com/XiaoConstantine/exemplar-go/pkg/patterns"
)

// Runner produces the output document an artifact computes for one input
// document. Generated Python is never executed in-process; the default
// runner replays the filtered pattern set the code was generated from,
// which is the ground truth the artifact must reproduce. A sandboxed
// external executor can be substituted behind this interface.
type Runner interface {
	Run(ctx context.Context, artifact *core.GeneratedArtifact, input map[string]interface{}) (map[string]interface{}, error)
}

// PatternRunner is the default oracle: it applies every included pattern
// to the flattened input and assembles the result keyed by target path.
type PatternRunner struct {
	set core.FilteredPatternSet
}

func NewPatternRunner(set core.FilteredPatternSet) *PatternRunner {
	return &PatternRunner{set: set}
}

func (r *PatternRunner) Run(_ context.Context, _ *core.GeneratedArtifact, input map[string]interface{}) (map[string]interface{}, error) {
	flat := patterns.Flatten(input)
	out := make(map[string]interface{})
	for _, p := range r.set.Included {
		v, ok := patterns.Apply(p, flat)
		if !ok {
			continue
		}
		out[p.TargetField] = v
	}
	return out, nil
}
