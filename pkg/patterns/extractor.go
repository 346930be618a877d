package patterns

import (
	"context"
	"sort"
	"strings"

	"github.com/sourcegraph/conc/pool"

	"github.com/XiaoConstantine/exemplar-go/pkg/core"
	"github.com/XiaoConstantine/exemplar-go/pkg/errors"
	"github.com/XiaoConstantine/exemplar-go/pkg/logging"
	"github.com/XiaoConstantine/exemplar-go/pkg/schema"
)

// MinExamplePairs is the smallest example set that can distinguish
// coincidence from rule.
const MinExamplePairs = 2

// DisambiguationNote marks retained candidates that tied exactly and need
// more examples to separate.
const DisambiguationNote = "ambiguous: additional examples required to disambiguate"

// Extractor diffs example pairs and infers typed transformation patterns.
type Extractor struct {
	analyzer    *schema.Analyzer
	parallelism int
}

type ExtractorOption func(*Extractor)

// WithParallelism bounds the number of target fields analyzed concurrently.
func WithParallelism(n int) ExtractorOption {
	return func(e *Extractor) {
		if n > 0 {
			e.parallelism = n
		}
	}
}

// WithAnalyzer substitutes the schema analyzer.
func WithAnalyzer(a *schema.Analyzer) ExtractorOption {
	return func(e *Extractor) {
		e.analyzer = a
	}
}

func NewExtractor(opts ...ExtractorOption) *Extractor {
	e := &Extractor{
		analyzer:    schema.NewAnalyzer(),
		parallelism: 4,
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Extract infers both schemas and the pattern set from the example pairs.
// Results are deterministic: identical example sets produce identical
// pattern sequences. Conflicting evidence lowers confidence rather than
// erroring, since real-world examples are noisy.
func (e *Extractor) Extract(ctx context.Context, examples []core.ExamplePair) (core.Schema, core.Schema, []core.TransformationPattern, error) {
	logger := logging.GetLogger()

	if len(examples) < MinExamplePairs {
		return core.Schema{}, core.Schema{}, nil, errors.WithFields(
			errors.New(errors.InsufficientExamples, "at least 2 example pairs are required to infer patterns"),
			errors.Fields{"examples": len(examples)})
	}
	if err := errors.CheckContext(ctx, "pattern extraction"); err != nil {
		return core.Schema{}, core.Schema{}, nil, err
	}

	inputs := make([]map[string]interface{}, len(examples))
	outputs := make([]map[string]interface{}, len(examples))
	for i, ex := range examples {
		inputs[i] = ex.Input
		outputs[i] = ex.Output
	}

	inputSchema, err := e.analyzer.Infer(inputs)
	if err != nil {
		return core.Schema{}, core.Schema{}, nil, errors.Wrap(err, errors.SchemaInference, "input schema inference failed")
	}
	outputSchema, err := e.analyzer.Infer(outputs)
	if err != nil {
		return core.Schema{}, core.Schema{}, nil, errors.Wrap(err, errors.SchemaInference, "output schema inference failed")
	}

	inFlats := make([]map[string]interface{}, len(examples))
	outFlats := make([]map[string]interface{}, len(examples))
	for i := range examples {
		inFlats[i] = Flatten(inputs[i])
		outFlats[i] = Flatten(outputs[i])
	}
	sources := LeafPaths(inFlats)
	targets := targetPaths(outputSchema)

	logger.Debug(ctx, "Extracting patterns: %d pairs, %d source paths, %d target fields",
		len(examples), len(sources), len(targets))

	// Each target field is independent; analyze them concurrently and
	// write into a per-target slot to keep the result order stable.
	results := make([][]core.TransformationPattern, len(targets))
	p := pool.New().WithMaxGoroutines(e.parallelism)
	for idx, target := range targets {
		idx, target := idx, target
		p.Go(func() {
			d := detection{
				target:   target,
				expected: make([]interface{}, len(examples)),
				present:  make([]bool, len(examples)),
				flats:    inFlats,
				sources:  sources,
				pairs:    len(examples),
			}
			for i, flat := range outFlats {
				v, ok := flat[target]
				d.expected[i] = v
				d.present[i] = ok
			}
			results[idx] = selectBest(runDetectors(d))
		})
	}
	p.Wait()

	if err := errors.CheckContext(ctx, "pattern extraction"); err != nil {
		return core.Schema{}, core.Schema{}, nil, err
	}

	var patterns []core.TransformationPattern
	for _, r := range results {
		patterns = append(patterns, r...)
	}
	logger.Info(ctx, "Pattern extraction complete: %d patterns across %d target fields", len(patterns), len(targets))
	return inputSchema, outputSchema, patterns, nil
}

// targetPaths lists the output leaf paths worth inferring rules for, in
// lexical order.
func targetPaths(outputSchema core.Schema) []string {
	targets := append([]string(nil), outputSchema.LeafPaths()...)
	sort.Strings(targets)
	return targets
}

// runDetectors evaluates the full detector table against one target field.
func runDetectors(d detection) []core.TransformationPattern {
	var candidates []core.TransformationPattern
	for _, entry := range detectorTable {
		candidates = append(candidates, entry.fn(d)...)
	}
	return candidates
}

// selectBest keeps only the strongest candidate for the target field:
// highest confidence, then fewest source fields, then earliest pattern
// type in the priority ordering. Exact ties are all retained, annotated
// for disambiguation.
func selectBest(candidates []core.TransformationPattern) []core.TransformationPattern {
	if len(candidates) == 0 {
		return nil
	}

	best := candidates[0]
	for _, c := range candidates[1:] {
		if rankLess(c, best) {
			best = c
		}
	}

	var kept []core.TransformationPattern
	for _, c := range candidates {
		if c.Confidence == best.Confidence &&
			len(c.SourceFields) == len(best.SourceFields) &&
			c.Type.Priority() == best.Type.Priority() {
			kept = append(kept, c)
		}
	}

	if len(kept) > 1 {
		for i := range kept {
			if kept[i].Parameters == nil {
				kept[i].Parameters = make(map[string]interface{})
			}
			kept[i].Parameters["note"] = DisambiguationNote
		}
	}

	// Stable ordering within a target: by source fields lexically.
	sort.SliceStable(kept, func(i, j int) bool {
		return sourceKey(kept[i]) < sourceKey(kept[j])
	})
	return kept
}

// rankLess orders candidates by preference: higher confidence first, then
// fewer source fields, then pattern type priority, then source lexical
// order for full determinism.
func rankLess(a, b core.TransformationPattern) bool {
	if a.Confidence != b.Confidence {
		return a.Confidence > b.Confidence
	}
	if len(a.SourceFields) != len(b.SourceFields) {
		return len(a.SourceFields) < len(b.SourceFields)
	}
	if a.Type.Priority() != b.Type.Priority() {
		return a.Type.Priority() < b.Type.Priority()
	}
	return sourceKey(a) < sourceKey(b)
}

func sourceKey(p core.TransformationPattern) string {
	return strings.Join(p.SourceFields, "\x00")
}
