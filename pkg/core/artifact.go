package core

import "sort"

// ViolationKind distinguishes constraint findings from syntax defects.
type ViolationKind string

const (
	ViolationForbidden ViolationKind = "forbidden_construct"
	ViolationRequired  ViolationKind = "missing_required"
	ViolationImport    ViolationKind = "disallowed_import"
	ViolationSecret    ViolationKind = "hardcoded_secret"
	ViolationInterface ViolationKind = "interface_incomplete"
	ViolationSyntax    ViolationKind = "syntax_error"
)

// Violation is one static-analysis finding on generated code. Violations
// are data attached to the artifact, never propagated as errors, so a
// caller can inspect a non-compliant artifact instead of losing it.
type Violation struct {
	Kind    ViolationKind `json:"kind"`
	Rule    string        `json:"rule"`
	File    string        `json:"file"`
	Line    int           `json:"line"`
	Message string        `json:"message"`
}

// GeneratedArtifact is the product of the code generator: a set of source
// files plus the validation results the code validator attaches.
type GeneratedArtifact struct {
	ID           string            `json:"id"`
	Files        map[string]string `json:"files"`
	SyntaxValid  bool              `json:"syntax_valid"`
	Violations   []Violation       `json:"violations"`
	QualityScore float64           `json:"quality_score"`
	ModelUsed    string            `json:"model_used"`
}

// FileNames returns the artifact's relative paths in sorted order, so that
// validation and reporting are deterministic regardless of map iteration.
func (a *GeneratedArtifact) FileNames() []string {
	names := make([]string, 0, len(a.Files))
	for name := range a.Files {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Clone returns a deep copy. The refinement loop keeps the best-scoring
// artifact seen so far and must not alias a later iteration's state.
func (a *GeneratedArtifact) Clone() *GeneratedArtifact {
	cp := &GeneratedArtifact{
		ID:           a.ID,
		Files:        make(map[string]string, len(a.Files)),
		SyntaxValid:  a.SyntaxValid,
		Violations:   append([]Violation(nil), a.Violations...),
		QualityScore: a.QualityScore,
		ModelUsed:    a.ModelUsed,
	}
	for name, src := range a.Files {
		cp.Files[name] = src
	}
	return cp
}

// FailureCategory is the fixed taxonomy the refinement loop uses when a
// generated extractor does not reproduce an example output.
type FailureCategory string

const (
	FailureMissingField FailureCategory = "missing_field"
	FailureWrongType    FailureCategory = "wrong_type"
	FailureWrongValue   FailureCategory = "wrong_value"
	FailureException    FailureCategory = "exception"
)

// EvaluationFailure is one mismatch between an example's expected output
// and the extractor's actual output.
type EvaluationFailure struct {
	ExampleID string          `json:"example_id"`
	Field     string          `json:"field,omitempty"`
	Expected  interface{}     `json:"expected"`
	Actual    interface{}     `json:"actual"`
	Category  FailureCategory `json:"category"`
}

// RefinementRecord captures one refinement iteration: the failures that
// drove it and the prompt delta appended to the coder prompt.
type RefinementRecord struct {
	Iteration   int                 `json:"iteration"`
	Failures    []EvaluationFailure `json:"failures"`
	PromptDelta string              `json:"prompt_delta"`
}

// Report is the structured run summary emitted alongside the artifact.
type Report struct {
	RunID            string      `json:"run_id"`
	PatternsDetected int         `json:"patterns_detected"`
	PatternsIncluded int         `json:"patterns_included"`
	QualityScore     float64     `json:"quality_score"`
	Violations       []Violation `json:"violations"`
	Iterations       int         `json:"iterations"`
	Converged        bool        `json:"converged"`
	ModelUsed        string      `json:"model_used"`
}
