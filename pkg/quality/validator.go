// Package quality statically validates and scores generated artifacts.
// Nothing here executes the generated code; verdicts come from structural
// scanning alone.
package quality

import (
	"fmt"
	"math"

	"github.com/XiaoConstantine/exemplar-go/pkg/constraints"
	"github.com/XiaoConstantine/exemplar-go/pkg/core"
	"github.com/XiaoConstantine/exemplar-go/pkg/pysrc"
)

// Score weights: syntax validity, constraint cleanliness, interface
// completeness.
const (
	weightSyntax     = 0.4
	weightViolations = 0.3
	weightInterface  = 0.3
)

// violationPenalty is deducted per constraint violation from the
// cleanliness component, so the refinement loop sees progress when a fix
// removes some but not all findings.
const violationPenalty = 0.2

// Validator scores artifacts against an architectural policy.
type Validator struct {
	constraints constraints.ArchitectureConstraints
}

func New(cons constraints.ArchitectureConstraints) *Validator {
	return &Validator{constraints: cons}
}

// Assess returns a copy of the artifact with SyntaxValid, Violations and
// QualityScore populated. The input is never mutated and re-assessing the
// result yields identical verdicts.
func (v *Validator) Assess(artifact *core.GeneratedArtifact) *core.GeneratedArtifact {
	out := artifact.Clone()
	out.Violations = nil

	names := out.FileNames()
	parsed := 0
	for _, name := range names {
		findings := v.constraints.Validate(name, out.Files[name])
		if !hasSyntaxViolation(findings) {
			parsed++
		}
		out.Violations = append(out.Violations, findings...)
	}
	out.SyntaxValid = parsed == len(names) && len(names) > 0

	ifaceScore, ifaceViolations := v.interfaceCompleteness(out)
	out.Violations = append(out.Violations, ifaceViolations...)

	syntaxScore := 0.0
	if len(names) > 0 {
		syntaxScore = float64(parsed) / float64(len(names))
	}
	cleanScore := 1.0 - violationPenalty*float64(countConstraintViolations(out.Violations))

	score := weightSyntax*syntaxScore + weightViolations*clamp01(cleanScore) + weightInterface*ifaceScore
	out.QualityScore = clamp01(score)
	return out
}

// interfaceCompleteness finds the implementing class across all files and
// scores the fraction of required methods it defines. A parseable artifact
// with no implementing class scores zero on this component.
func (v *Validator) interfaceCompleteness(artifact *core.GeneratedArtifact) (float64, []core.Violation) {
	cons := v.constraints
	if !cons.Requires(constraints.RequireInterface) || cons.InterfaceName == "" {
		return 1.0, nil
	}

	var impl *pysrc.Class
	var implFile string
	for _, name := range artifact.FileNames() {
		mod, err := pysrc.Parse(artifact.Files[name])
		if err != nil {
			continue
		}
		for _, cls := range mod.Classes {
			if cls.HasBase(cons.InterfaceName) {
				impl = cls
				implFile = name
				break
			}
		}
		if impl != nil {
			break
		}
	}

	if impl == nil {
		return 0, []core.Violation{{
			Kind:    core.ViolationInterface,
			Rule:    constraints.RequireInterface,
			Message: fmt.Sprintf("no class implements %s", cons.InterfaceName),
		}}
	}
	if len(cons.InterfaceMethods) == 0 {
		return 1.0, nil
	}

	var violations []core.Violation
	implemented := 0
	for _, m := range cons.InterfaceMethods {
		if _, ok := impl.Method(m); ok {
			implemented++
			continue
		}
		violations = append(violations, core.Violation{
			Kind:    core.ViolationInterface,
			Rule:    constraints.RequireInterface,
			File:    implFile,
			Line:    impl.Line,
			Message: fmt.Sprintf("class %s is missing required method %s", impl.Name, m),
		})
	}
	return float64(implemented) / float64(len(cons.InterfaceMethods)), violations
}

// countConstraintViolations counts findings that feed the cleanliness
// component. Syntax defects are excluded here since the syntax component
// already prices them in.
func countConstraintViolations(violations []core.Violation) int {
	n := 0
	for _, v := range violations {
		if v.Kind != core.ViolationSyntax {
			n++
		}
	}
	return n
}

func hasSyntaxViolation(violations []core.Violation) bool {
	for _, v := range violations {
		if v.Kind == core.ViolationSyntax {
			return true
		}
	}
	return false
}

func clamp01(x float64) float64 {
	return math.Max(0, math.Min(1, x))
}
