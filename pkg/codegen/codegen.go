// Package codegen issues the coding calls and parses multi-file responses
// into generated artifacts.
package codegen

import (
	"context"
	"encoding/json"
	"regexp"
	"strings"

	"github.com/google/uuid"

	"github.com/XiaoConstantine/exemplar-go/pkg/constraints"
	"github.com/XiaoConstantine/exemplar-go/pkg/core"
	"github.com/XiaoConstantine/exemplar-go/pkg/errors"
	"github.com/XiaoConstantine/exemplar-go/pkg/logging"
	"github.com/XiaoConstantine/exemplar-go/pkg/prompts"
	"github.com/XiaoConstantine/exemplar-go/pkg/utils"
)

// DefaultTemperature keeps code output as deterministic as the provider
// allows; correctness matters more than variety here.
const DefaultTemperature = 0.2

const defaultMaxTokens = 8192

// RequiredFiles is the minimum file set a code response must contain.
var RequiredFiles = []string{"extractor.py", "base.py", "test_extractor.py"}

// fileDelim matches the per-file delimiter the coder prompt mandates.
var fileDelim = regexp.MustCompile(`(?m)^===\s*FILE:\s*(\S+)\s*===\s*$`)

// Generator issues coding and recoding calls.
type Generator struct {
	llm         core.LLM
	prompts     *prompts.Provider
	constraints constraints.ArchitectureConstraints
	temperature float64
	maxTokens   int
}

type Option func(*Generator)

func WithTemperature(t float64) Option {
	return func(g *Generator) { g.temperature = t }
}

func WithMaxTokens(n int) Option {
	return func(g *Generator) { g.maxTokens = n }
}

func WithPrompts(pr *prompts.Provider) Option {
	return func(g *Generator) { g.prompts = pr }
}

func New(llm core.LLM, cons constraints.ArchitectureConstraints, opts ...Option) (*Generator, error) {
	g := &Generator{
		llm:         llm,
		constraints: cons,
		temperature: DefaultTemperature,
		maxTokens:   defaultMaxTokens,
	}
	for _, opt := range opts {
		opt(g)
	}
	if g.prompts == nil {
		pr, err := prompts.NewProvider()
		if err != nil {
			return nil, err
		}
		g.prompts = pr
	}
	return g, nil
}

// Generate produces a fresh artifact from the plan and examples. The
// returned artifact carries parsed files only; syntax and constraint
// verdicts are the validator's job.
func (g *Generator) Generate(ctx context.Context, plan core.ImplementationPlan, examples []core.ExamplePair) (*core.GeneratedArtifact, error) {
	if err := errors.CheckContext(ctx, "code generation"); err != nil {
		return nil, err
	}

	vars, err := g.baseVars(plan, examples)
	if err != nil {
		return nil, err
	}
	prompt, err := g.prompts.Render(prompts.TagCoder, vars)
	if err != nil {
		return nil, errors.Wrap(err, errors.CodeGeneration, "failed to render coder prompt")
	}
	return g.call(ctx, prompt)
}

// Regenerate produces a corrected artifact from the previous files and the
// observed failures. Attempt numbering is 1-based and shown to the model.
func (g *Generator) Regenerate(ctx context.Context, plan core.ImplementationPlan, examples []core.ExamplePair,
	previous *core.GeneratedArtifact, failureSummary string, attempt, maxAttempts int) (*core.GeneratedArtifact, error) {

	if err := errors.CheckContext(ctx, "code refinement"); err != nil {
		return nil, err
	}

	vars, err := g.baseVars(plan, examples)
	if err != nil {
		return nil, err
	}
	vars["current_files"] = renderFiles(previous)
	vars["failures"] = failureSummary
	vars["attempt"] = attempt
	vars["max_attempts"] = maxAttempts

	prompt, err := g.prompts.Render(prompts.TagRefine, vars)
	if err != nil {
		return nil, errors.Wrap(err, errors.CodeGeneration, "failed to render refine prompt")
	}
	return g.call(ctx, prompt)
}

func (g *Generator) baseVars(plan core.ImplementationPlan, examples []core.ExamplePair) (map[string]interface{}, error) {
	planJSON, err := json.MarshalIndent(plan, "", "  ")
	if err != nil {
		return nil, errors.Wrap(err, errors.CodeGeneration, "failed to encode plan")
	}
	maps := make([]map[string]interface{}, len(examples))
	for i, ex := range examples {
		maps[i] = ex.ToMap()
	}
	examplesJSON, err := json.MarshalIndent(maps, "", "  ")
	if err != nil {
		return nil, errors.Wrap(err, errors.CodeGeneration, "failed to encode examples")
	}
	return map[string]interface{}{
		"plan":           string(planJSON),
		"examples":       string(examplesJSON),
		"constraints":    g.constraints.RenderPromptFragment(),
		"interface_name": g.constraints.InterfaceName,
	}, nil
}

func (g *Generator) call(ctx context.Context, prompt string) (*core.GeneratedArtifact, error) {
	logger := logging.GetLogger()

	resp, err := g.llm.Generate(ctx, prompt,
		core.WithTemperature(g.temperature),
		core.WithMaxTokens(g.maxTokens))
	if err != nil {
		return nil, errors.Wrap(err, errors.CodeGeneration, "coding call failed")
	}

	files, err := ParseFiles(resp.Content)
	if err != nil {
		return nil, err
	}

	artifact := &core.GeneratedArtifact{
		ID:        uuid.NewString(),
		Files:     files,
		ModelUsed: g.llm.ModelID(),
	}
	if resp.Usage != nil {
		logger.Info(ctx, "Code generated: %d files, %d tokens", len(files), resp.Usage.TotalTokens)
	}
	return artifact, nil
}

// ParseFiles splits a delimited multi-file response into a file map. Each
// file body is fence-stripped independently since models fence per file.
// A response missing any required file is an error; partial artifacts are
// never handed to the validator.
func ParseFiles(response string) (map[string]string, error) {
	locs := fileDelim.FindAllStringSubmatchIndex(response, -1)
	if len(locs) == 0 {
		return nil, errors.Wrap(
			errors.New(errors.InvalidResponse, "code response contains no file delimiters"),
			errors.CodeGeneration, "code response rejected")
	}

	files := make(map[string]string, len(locs))
	for i, loc := range locs {
		name := response[loc[2]:loc[3]]
		start := loc[1]
		end := len(response)
		if i+1 < len(locs) {
			end = locs[i+1][0]
		}
		files[name] = utils.StripFences(response[start:end]) + "\n"
	}

	var missing []string
	for _, required := range RequiredFiles {
		if body, ok := files[required]; !ok || strings.TrimSpace(body) == "" {
			missing = append(missing, required)
		}
	}
	if len(missing) > 0 {
		return nil, errors.WithFields(
			errors.New(errors.CodeGeneration, "code response is missing required files"),
			errors.Fields{"missing": strings.Join(missing, ", ")})
	}
	return files, nil
}

// renderFiles lays out the artifact's files in the same delimited form the
// model is asked to emit, so the refine prompt round-trips cleanly.
func renderFiles(a *core.GeneratedArtifact) string {
	var b strings.Builder
	for _, name := range a.FileNames() {
		b.WriteString("=== FILE: ")
		b.WriteString(name)
		b.WriteString(" ===\n")
		b.WriteString(a.Files[name])
		if !strings.HasSuffix(a.Files[name], "\n") {
			b.WriteString("\n")
		}
		b.WriteString("\n")
	}
	return b.String()
}
