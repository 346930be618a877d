// Package pipeline wires the stages end to end: extract patterns from
// example pairs, filter by confidence, plan, generate, validate and refine.
package pipeline

import (
	"context"

	"github.com/google/uuid"

	"github.com/XiaoConstantine/exemplar-go/pkg/codegen"
	"github.com/XiaoConstantine/exemplar-go/pkg/constraints"
	"github.com/XiaoConstantine/exemplar-go/pkg/core"
	"github.com/XiaoConstantine/exemplar-go/pkg/errors"
	"github.com/XiaoConstantine/exemplar-go/pkg/logging"
	"github.com/XiaoConstantine/exemplar-go/pkg/patterns"
	"github.com/XiaoConstantine/exemplar-go/pkg/planner"
	"github.com/XiaoConstantine/exemplar-go/pkg/quality"
	"github.com/XiaoConstantine/exemplar-go/pkg/refine"
)

// DefaultThreshold is the confidence cut applied when a project sets none.
const DefaultThreshold = 0.7

// Result carries every intermediate and final product of one run.
type Result struct {
	RunID        string
	InputSchema  core.Schema
	OutputSchema core.Schema
	Patterns     []core.TransformationPattern
	Filtered     core.FilteredPatternSet
	Plan         core.ImplementationPlan
	Artifact     *core.GeneratedArtifact
	Refinement   *refine.Result
	Report       core.Report
}

// Pipeline runs the full synthesis flow against one LLM.
type Pipeline struct {
	llm           core.LLM
	constraints   constraints.ArchitectureConstraints
	storage       Storage
	runner        refine.Runner
	threshold     float64
	maxIterations int
	extractorOpts []patterns.ExtractorOption
}

type Option func(*Pipeline)

// WithThreshold sets the confidence threshold for pattern filtering.
func WithThreshold(t float64) Option {
	return func(p *Pipeline) { p.threshold = t }
}

// WithMaxIterations bounds the refinement loop.
func WithMaxIterations(n int) Option {
	return func(p *Pipeline) { p.maxIterations = n }
}

// WithConstraints substitutes the architectural policy.
func WithConstraints(c constraints.ArchitectureConstraints) Option {
	return func(p *Pipeline) { p.constraints = c }
}

// WithStorage persists run products; nil storage keeps results in memory.
func WithStorage(s Storage) Option {
	return func(p *Pipeline) { p.storage = s }
}

// WithRunner substitutes the refinement evaluation oracle.
func WithRunner(r refine.Runner) Option {
	return func(p *Pipeline) { p.runner = r }
}

// WithExtractorOptions forwards options to the pattern extractor.
func WithExtractorOptions(opts ...patterns.ExtractorOption) Option {
	return func(p *Pipeline) { p.extractorOpts = opts }
}

func New(llm core.LLM, opts ...Option) *Pipeline {
	p := &Pipeline{
		llm:           llm,
		constraints:   constraints.Default(),
		threshold:     DefaultThreshold,
		maxIterations: refine.DefaultMaxIterations,
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// Run executes the full flow over the example pairs. The stages check the
// context between each other so cancellation is honored at stage
// boundaries; a non-converged run still returns its best artifact.
func (p *Pipeline) Run(ctx context.Context, examples []core.ExamplePair) (*Result, error) {
	logger := logging.GetLogger()
	runID := uuid.NewString()
	ctx = logging.WithRunID(ctx, runID)
	logger.Info(ctx, "Starting synthesis run %s: %d example pairs, threshold %.2f",
		runID, len(examples), p.threshold)

	result := &Result{RunID: runID}

	extractor := patterns.NewExtractor(p.extractorOpts...)
	inputSchema, outputSchema, detected, err := extractor.Extract(ctx, examples)
	if err != nil {
		return nil, err
	}
	result.InputSchema = inputSchema
	result.OutputSchema = outputSchema
	result.Patterns = detected

	filtered, err := patterns.Filter(detected, p.threshold)
	if err != nil {
		return nil, err
	}
	result.Filtered = filtered
	logger.Info(ctx, "Filtered patterns: %d included, %d excluded",
		len(filtered.Included), len(filtered.Excluded))

	pl, err := planner.New(p.llm, planner.WithInterfaceName(p.constraints.InterfaceName))
	if err != nil {
		return nil, err
	}
	plan, err := pl.Plan(ctx, inputSchema, outputSchema, filtered)
	if err != nil {
		return nil, err
	}
	result.Plan = plan

	generator, err := codegen.New(p.llm, p.constraints)
	if err != nil {
		return nil, err
	}
	initial, err := generator.Generate(ctx, plan, examples)
	if err != nil {
		return nil, err
	}

	validator := quality.New(p.constraints)
	runner := p.runner
	if runner == nil {
		runner = refine.NewPatternRunner(filtered)
	}
	refiner := refine.New(generator, validator, runner,
		refine.WithMaxIterations(p.maxIterations))

	refined, err := refiner.Refine(ctx, plan, examples, initial)
	if refined != nil {
		result.Refinement = refined
		result.Artifact = refined.Artifact
	}
	if err != nil {
		return result, err
	}

	result.Report = core.Report{
		RunID:            runID,
		PatternsDetected: len(detected),
		PatternsIncluded: len(filtered.Included),
		QualityScore:     result.Artifact.QualityScore,
		Violations:       result.Artifact.Violations,
		Iterations:       refined.Iterations,
		Converged:        refined.Converged,
		ModelUsed:        result.Artifact.ModelUsed,
	}

	if p.storage != nil {
		if err := p.persist(ctx, result); err != nil {
			return result, err
		}
	}

	logger.Info(ctx, "Run %s complete: quality %.2f, converged=%v",
		runID, result.Report.QualityScore, result.Report.Converged)
	return result, nil
}

func (p *Pipeline) persist(ctx context.Context, result *Result) error {
	if err := errors.CheckContext(ctx, "run persistence"); err != nil {
		return err
	}
	if err := p.storage.SavePlan(ctx, result.RunID, result.Plan); err != nil {
		return err
	}
	if err := p.storage.SaveArtifact(ctx, result.RunID, result.Artifact); err != nil {
		return err
	}
	return p.storage.SaveReport(ctx, result.RunID, result.Report)
}
