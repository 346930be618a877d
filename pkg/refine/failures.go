package refine

import (
	"context"
	"encoding/json"
	"fmt"
	"sort"
	"strings"

	"github.com/sergi/go-diff/diffmatchpatch"

	"github.com/XiaoConstantine/exemplar-go/pkg/core"
	"github.com/XiaoConstantine/exemplar-go/pkg/patterns"
	"github.com/XiaoConstantine/exemplar-go/pkg/schema"
)

// evaluate replays every example pair through the runner and classifies
// each mismatch. An empty result means the artifact reproduces all pairs.
func evaluate(ctx context.Context, runner Runner, artifact *core.GeneratedArtifact, examples []core.ExamplePair) []core.EvaluationFailure {
	var failures []core.EvaluationFailure
	for i, ex := range examples {
		id := ex.ID(i)
		actual, err := runner.Run(ctx, artifact, ex.Input)
		if err != nil {
			failures = append(failures, core.EvaluationFailure{
				ExampleID: id,
				Actual:    err.Error(),
				Category:  core.FailureException,
			})
			continue
		}
		failures = append(failures, compareOutputs(id, ex.Output, actual)...)
	}
	return failures
}

// compareOutputs diffs the expected and actual documents leaf by leaf.
func compareOutputs(exampleID string, expected, actual map[string]interface{}) []core.EvaluationFailure {
	expectedFlat := patterns.Flatten(expected)
	actualFlat := patterns.Flatten(actual)

	paths := make([]string, 0, len(expectedFlat))
	for path := range expectedFlat {
		paths = append(paths, path)
	}
	sort.Strings(paths)

	var failures []core.EvaluationFailure
	for _, path := range paths {
		want := expectedFlat[path]
		got, ok := actualFlat[path]
		if !ok {
			failures = append(failures, core.EvaluationFailure{
				ExampleID: exampleID,
				Field:     path,
				Expected:  want,
				Category:  core.FailureMissingField,
			})
			continue
		}
		if patterns.ValuesEqual(want, got) {
			continue
		}
		category := core.FailureWrongValue
		wantType, werr := schema.Classify(want)
		gotType, gerr := schema.Classify(got)
		if werr == nil && gerr == nil && wantType.Widen(gotType) != wantType {
			category = core.FailureWrongType
		}
		failures = append(failures, core.EvaluationFailure{
			ExampleID: exampleID,
			Field:     path,
			Expected:  want,
			Actual:    got,
			Category:  category,
		})
	}
	return failures
}

// summarize renders failures and open violations as the feedback block the
// refine prompt embeds. String mismatches get an inline character diff so
// the model sees exactly what changed.
func summarize(failures []core.EvaluationFailure, violations []core.Violation) string {
	var b strings.Builder

	for _, v := range violations {
		fmt.Fprintf(&b, "- [%s] %s", v.Kind, v.Message)
		if v.File != "" {
			fmt.Fprintf(&b, " (%s", v.File)
			if v.Line > 0 {
				fmt.Fprintf(&b, ":%d", v.Line)
			}
			b.WriteString(")")
		}
		b.WriteString("\n")
	}

	for _, f := range failures {
		switch f.Category {
		case core.FailureException:
			fmt.Fprintf(&b, "- example %s raised: %v\n", f.ExampleID, f.Actual)
		case core.FailureMissingField:
			fmt.Fprintf(&b, "- example %s: output field %q is missing (expected %s)\n",
				f.ExampleID, f.Field, renderValue(f.Expected))
		case core.FailureWrongType:
			fmt.Fprintf(&b, "- example %s: field %q has the wrong type: expected %s, got %s\n",
				f.ExampleID, f.Field, renderValue(f.Expected), renderValue(f.Actual))
		default:
			fmt.Fprintf(&b, "- example %s: field %q expected %s, got %s%s\n",
				f.ExampleID, f.Field, renderValue(f.Expected), renderValue(f.Actual),
				inlineDiff(f.Expected, f.Actual))
		}
	}
	return b.String()
}

// inlineDiff renders a compact character diff for string mismatches.
func inlineDiff(expected, actual interface{}) string {
	want, wok := expected.(string)
	got, gok := actual.(string)
	if !wok || !gok {
		return ""
	}
	dmp := diffmatchpatch.New()
	diffs := dmp.DiffCleanupSemantic(dmp.DiffMain(want, got, false))

	var b strings.Builder
	for _, d := range diffs {
		switch d.Type {
		case diffmatchpatch.DiffDelete:
			b.WriteString("[-" + d.Text + "]")
		case diffmatchpatch.DiffInsert:
			b.WriteString("[+" + d.Text + "]")
		default:
			b.WriteString(d.Text)
		}
	}
	return " (diff: " + b.String() + ")"
}

func renderValue(v interface{}) string {
	data, err := json.Marshal(v)
	if err != nil {
		return fmt.Sprintf("%v", v)
	}
	return string(data)
}
