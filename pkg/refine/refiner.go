package refine

import (
	"context"
	"fmt"

	"github.com/XiaoConstantine/exemplar-go/pkg/codegen"
	"github.com/XiaoConstantine/exemplar-go/pkg/core"
	"github.com/XiaoConstantine/exemplar-go/pkg/errors"
	"github.com/XiaoConstantine/exemplar-go/pkg/logging"
	"github.com/XiaoConstantine/exemplar-go/pkg/quality"
)

// DefaultMaxIterations bounds the regeneration loop. Each iteration costs
// a full coding call, and improvement past the third attempt is rare.
const DefaultMaxIterations = 3

// state tracks where the loop is; it only ever moves forward.
type state int

const (
	stateEvaluating state = iota
	stateRefining
	stateConverged
	stateExhausted
)

// Result is the outcome of one refinement run. Artifact is always the
// best-scoring artifact observed, converged or not.
type Result struct {
	Artifact   *core.GeneratedArtifact
	Records    []core.RefinementRecord
	Iterations int
	Converged  bool
}

// Refiner drives the evaluate/regenerate loop.
type Refiner struct {
	generator     *codegen.Generator
	validator     *quality.Validator
	runner        Runner
	maxIterations int
}

type Option func(*Refiner)

func WithMaxIterations(n int) Option {
	return func(r *Refiner) {
		if n >= 0 {
			r.maxIterations = n
		}
	}
}

// WithRunner substitutes the evaluation oracle.
func WithRunner(runner Runner) Option {
	return func(r *Refiner) { r.runner = runner }
}

func New(generator *codegen.Generator, validator *quality.Validator, runner Runner, opts ...Option) *Refiner {
	r := &Refiner{
		generator:     generator,
		validator:     validator,
		runner:        runner,
		maxIterations: DefaultMaxIterations,
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Refine evaluates the initial artifact and regenerates until it converges
// or the iteration budget runs out. The loop always terminates; hitting the
// budget is a soft failure reported through Result.Converged, not an error.
// Errors are reserved for a coding call that itself fails.
func (r *Refiner) Refine(ctx context.Context, plan core.ImplementationPlan, examples []core.ExamplePair, initial *core.GeneratedArtifact) (*Result, error) {
	logger := logging.GetLogger()

	current := r.validator.Assess(initial)
	best := current
	result := &Result{}

	st := stateEvaluating
	for {
		if err := errors.CheckContext(ctx, "refinement"); err != nil {
			result.Artifact = best
			return result, err
		}

		switch st {
		case stateEvaluating:
			failures := evaluate(ctx, r.runner, current, examples)
			if len(failures) == 0 && current.SyntaxValid && len(current.Violations) == 0 {
				st = stateConverged
				continue
			}
			if result.Iterations >= r.maxIterations {
				st = stateExhausted
				continue
			}
			result.Records = append(result.Records, core.RefinementRecord{
				Iteration:   result.Iterations + 1,
				Failures:    failures,
				PromptDelta: summarize(failures, current.Violations),
			})
			st = stateRefining

		case stateRefining:
			record := result.Records[len(result.Records)-1]
			logger.Info(ctx, "Refining artifact: iteration %d/%d, %d failures, %d violations",
				record.Iteration, r.maxIterations, len(record.Failures), len(current.Violations))

			next, err := r.generator.Regenerate(ctx, plan, examples, current,
				record.PromptDelta, record.Iteration, r.maxIterations)
			if err != nil {
				result.Artifact = best
				return result, err
			}
			result.Iterations++

			current = r.validator.Assess(next)
			if current.QualityScore > best.QualityScore {
				best = current
			}
			st = stateEvaluating

		case stateConverged:
			if current.QualityScore >= best.QualityScore {
				best = current
			}
			result.Artifact = best
			result.Converged = true
			logger.Info(ctx, "Artifact converged after %d refinement iterations, quality %.2f",
				result.Iterations, best.QualityScore)
			return result, nil

		case stateExhausted:
			result.Artifact = best
			err := errors.WithFields(
				errors.New(errors.ConvergenceExhausted,
					fmt.Sprintf("artifact did not converge within %d iterations", r.maxIterations)),
				errors.Fields{"best_quality": best.QualityScore})
			logger.Warn(ctx, "%v; keeping best artifact", err)
			return result, nil
		}
	}
}
