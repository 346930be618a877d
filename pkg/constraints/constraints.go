// Package constraints holds the static architectural policy generated code
// must satisfy. The policy shapes the coder prompt and drives static
// validation; it is loaded once at startup and never mutated during a run.
package constraints

import (
	"os"
	"sort"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/XiaoConstantine/exemplar-go/pkg/errors"
)

// Required construct names understood by the validator.
const (
	RequireInterface   = "interface_implementation"
	RequireAnnotations = "type_annotations"
	RequireDocstrings  = "docstrings"
)

// ArchitectureConstraints describes forbidden and required constructs for
// generated extractor code. Values are sets in spirit; slices keep YAML
// round-tripping and deterministic rendering simple.
type ArchitectureConstraints struct {
	// ForbiddenPatterns are call names that must never appear. An entry
	// matches the exact dotted callee or any deeper attribute of it
	// ("subprocess" forbids subprocess.run).
	ForbiddenPatterns []string `yaml:"forbidden_patterns"`

	// RequiredPatterns are structural obligations; see the Require*
	// constants.
	RequiredPatterns []string `yaml:"required_patterns"`

	// AllowedImports are importable top-level modules. Empty means any.
	AllowedImports []string `yaml:"allowed_imports"`

	// InterfaceName is the base class the extractor class must implement.
	InterfaceName string `yaml:"interface_name"`

	// InterfaceMethods are the methods the implementing class must define.
	InterfaceMethods []string `yaml:"interface_methods"`

	// SecretNamePattern matches assignment targets that look like
	// credentials; string literals assigned to them are violations.
	SecretNamePattern string `yaml:"secret_name_pattern"`
}

// Default returns the constraint set used when a project supplies none.
func Default() ArchitectureConstraints {
	return ArchitectureConstraints{
		ForbiddenPatterns: []string{
			"eval", "exec", "compile", "__import__",
			"os.system", "os.popen", "subprocess",
		},
		RequiredPatterns: []string{
			RequireInterface,
			RequireAnnotations,
			RequireDocstrings,
		},
		AllowedImports: []string{
			"json", "re", "datetime", "typing", "dataclasses",
			"math", "collections", "unittest", "abc",
		},
		InterfaceName:     "BaseExtractor",
		InterfaceMethods:  []string{"extract"},
		SecretNamePattern: `(?i)(api_?key|secret|token|password|passwd|credential)`,
	}
}

// Load reads a constraint set from a YAML file, filling omitted fields
// from the defaults.
func Load(path string) (ArchitectureConstraints, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return ArchitectureConstraints{}, errors.Wrap(err, errors.InvalidInput, "failed to read constraints file")
	}
	return Parse(data)
}

// Parse decodes YAML into a constraint set on top of the defaults.
func Parse(data []byte) (ArchitectureConstraints, error) {
	c := Default()
	if err := yaml.Unmarshal(data, &c); err != nil {
		return ArchitectureConstraints{}, errors.Wrap(err, errors.InvalidInput, "failed to parse constraints YAML")
	}
	return c, nil
}

// Requires reports whether the named structural obligation is active.
func (c ArchitectureConstraints) Requires(name string) bool {
	for _, r := range c.RequiredPatterns {
		if r == name {
			return true
		}
	}
	return false
}

// RenderPromptFragment returns the textual policy description injected into
// the coder prompt.
func (c ArchitectureConstraints) RenderPromptFragment() string {
	var b strings.Builder
	b.WriteString("Architectural constraints (mandatory):\n")

	if len(c.ForbiddenPatterns) > 0 {
		forbidden := append([]string(nil), c.ForbiddenPatterns...)
		sort.Strings(forbidden)
		b.WriteString("- NEVER use: ")
		b.WriteString(strings.Join(forbidden, ", "))
		b.WriteString(" (no dynamic code execution, no shell invocation)\n")
	}
	if len(c.AllowedImports) > 0 {
		allowed := append([]string(nil), c.AllowedImports...)
		sort.Strings(allowed)
		b.WriteString("- Only import from: ")
		b.WriteString(strings.Join(allowed, ", "))
		b.WriteString("\n")
	}
	if c.InterfaceName != "" {
		b.WriteString("- The extractor class MUST subclass ")
		b.WriteString(c.InterfaceName)
		if len(c.InterfaceMethods) > 0 {
			b.WriteString(" and implement: ")
			b.WriteString(strings.Join(c.InterfaceMethods, ", "))
		}
		b.WriteString("\n")
	}
	if c.Requires(RequireAnnotations) {
		b.WriteString("- Every public method signature MUST carry type annotations, including the return type\n")
	}
	if c.Requires(RequireDocstrings) {
		b.WriteString("- Every public class and public method MUST have a non-empty docstring\n")
	}
	b.WriteString("- Never hardcode credentials, API keys or tokens\n")
	return b.String()
}
