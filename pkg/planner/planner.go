// Package planner turns inferred schemas and filtered patterns into a
// structured implementation plan via a low-temperature LLM call.
package planner

import (
	"context"
	"encoding/json"

	"github.com/XiaoConstantine/exemplar-go/pkg/core"
	"github.com/XiaoConstantine/exemplar-go/pkg/errors"
	"github.com/XiaoConstantine/exemplar-go/pkg/logging"
	"github.com/XiaoConstantine/exemplar-go/pkg/prompts"
	"github.com/XiaoConstantine/exemplar-go/pkg/utils"
)

// DefaultTemperature favors deterministic, conservative designs. The
// planning call runs noticeably warmer than coding but still well below
// creative-writing settings.
const DefaultTemperature = 0.3

const defaultMaxTokens = 4096

// Planner issues the planning-manager call.
type Planner struct {
	llm           core.LLM
	prompts       *prompts.Provider
	temperature   float64
	maxTokens     int
	interfaceName string
}

type Option func(*Planner)

func WithTemperature(t float64) Option {
	return func(p *Planner) { p.temperature = t }
}

func WithMaxTokens(n int) Option {
	return func(p *Planner) { p.maxTokens = n }
}

func WithPrompts(pr *prompts.Provider) Option {
	return func(p *Planner) { p.prompts = pr }
}

// WithInterfaceName sets the base-class name the plan must design around.
func WithInterfaceName(name string) Option {
	return func(p *Planner) { p.interfaceName = name }
}

func New(llm core.LLM, opts ...Option) (*Planner, error) {
	p := &Planner{
		llm:           llm,
		temperature:   DefaultTemperature,
		maxTokens:     defaultMaxTokens,
		interfaceName: "BaseExtractor",
	}
	for _, opt := range opts {
		opt(p)
	}
	if p.prompts == nil {
		pr, err := prompts.NewProvider()
		if err != nil {
			return nil, err
		}
		p.prompts = pr
	}
	return p, nil
}

// rejectResponse marks a malformed plan response as a planning-stage
// failure while keeping the response-level cause in the chain.
func (p *Planner) rejectResponse(cause error) error {
	return errors.Wrap(cause, errors.PlanGeneration, "plan response rejected")
}

// planDTO is the wire shape the model is asked to emit.
type planDTO struct {
	Classes       []core.PlannedClass `json:"classes"`
	Dependencies  []string            `json:"dependencies"`
	StrategyNotes string              `json:"strategy_notes"`
}

// Plan asks the model for an implementation plan covering every included
// pattern. Only patterns that survived filtering reach the prompt; excluded
// ones must not influence the design.
func (p *Planner) Plan(ctx context.Context, inputSchema, outputSchema core.Schema, set core.FilteredPatternSet) (core.ImplementationPlan, error) {
	logger := logging.GetLogger()

	if err := errors.CheckContext(ctx, "planning"); err != nil {
		return core.ImplementationPlan{}, err
	}
	if len(set.Included) == 0 {
		return core.ImplementationPlan{}, errors.New(errors.PlanGeneration,
			"no patterns survived filtering; nothing to plan")
	}

	patternsJSON, err := json.MarshalIndent(set.Included, "", "  ")
	if err != nil {
		return core.ImplementationPlan{}, errors.Wrap(err, errors.PlanGeneration, "failed to encode patterns")
	}

	prompt, err := p.prompts.Render(prompts.TagPlanner, map[string]interface{}{
		"input_schema":   inputSchema.String(),
		"output_schema":  outputSchema.String(),
		"patterns":       string(patternsJSON),
		"threshold":      set.Threshold,
		"interface_name": p.interfaceName,
	})
	if err != nil {
		return core.ImplementationPlan{}, errors.Wrap(err, errors.PlanGeneration, "failed to render planner prompt")
	}

	logger.Debug(ctx, "Requesting implementation plan: %d patterns, temperature %.2f",
		len(set.Included), p.temperature)

	resp, err := p.llm.Generate(ctx, prompt,
		core.WithTemperature(p.temperature),
		core.WithMaxTokens(p.maxTokens))
	if err != nil {
		return core.ImplementationPlan{}, errors.Wrap(err, errors.PlanGeneration, "planning call failed")
	}

	var dto planDTO
	if err := utils.DecodeJSONResponse(resp.Content, &dto); err != nil {
		return core.ImplementationPlan{}, errors.WithFields(
			p.rejectResponse(errors.Wrap(err, errors.InvalidResponse, "plan response is not valid JSON")),
			errors.Fields{"model": p.llm.ModelID()})
	}
	if len(dto.Classes) == 0 {
		return core.ImplementationPlan{}, p.rejectResponse(
			errors.New(errors.InvalidResponse, "plan response contains no classes"))
	}
	for _, cls := range dto.Classes {
		if cls.Name == "" {
			return core.ImplementationPlan{}, p.rejectResponse(
				errors.New(errors.InvalidResponse, "plan response contains an unnamed class"))
		}
	}

	if resp.Usage != nil {
		logger.Info(ctx, "Plan generated: %d classes, %d tokens",
			len(dto.Classes), resp.Usage.TotalTokens)
	}

	return core.ImplementationPlan{
		Classes:       dto.Classes,
		Dependencies:  dto.Dependencies,
		StrategyNotes: dto.StrategyNotes,
		ModelUsed:     p.llm.ModelID(),
		Temperature:   p.temperature,
	}, nil
}
