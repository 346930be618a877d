package constraints

import (
	"fmt"
	"regexp"
	"strings"

	"github.com/XiaoConstantine/exemplar-go/pkg/core"
	"github.com/XiaoConstantine/exemplar-go/pkg/pysrc"
)

// Validate statically checks one generated source file against the policy.
// Findings come back as data; the function never fails. A file that does
// not scan yields a single syntax violation and no further checks, since
// structural findings on broken source would be noise.
func (c ArchitectureConstraints) Validate(file, source string) []core.Violation {
	mod, err := pysrc.Parse(source)
	if err != nil {
		v := core.Violation{
			Kind:    core.ViolationSyntax,
			Rule:    "valid_syntax",
			File:    file,
			Message: err.Error(),
		}
		if se, ok := err.(*pysrc.SyntaxError); ok {
			v.Line = se.Line
		}
		return []core.Violation{v}
	}

	var out []core.Violation
	out = append(out, c.checkImports(file, mod)...)
	out = append(out, c.checkCalls(file, mod)...)
	out = append(out, c.checkSecrets(file, mod)...)
	if c.Requires(RequireDocstrings) {
		out = append(out, c.checkDocstrings(file, mod)...)
	}
	if c.Requires(RequireAnnotations) {
		out = append(out, c.checkAnnotations(file, mod)...)
	}
	return out
}

// CheckInterface verifies that the module defines a class subclassing the
// required interface and implementing every required method. It is split
// from Validate because the obligation spans the artifact, not one file.
func (c ArchitectureConstraints) CheckInterface(file string, source string) []core.Violation {
	if !c.Requires(RequireInterface) || c.InterfaceName == "" {
		return nil
	}
	mod, err := pysrc.Parse(source)
	if err != nil {
		return nil // Validate already reports the syntax failure
	}

	var impl *pysrc.Class
	for _, cls := range mod.Classes {
		if cls.HasBase(c.InterfaceName) {
			impl = cls
			break
		}
	}
	if impl == nil {
		return []core.Violation{{
			Kind:    core.ViolationInterface,
			Rule:    RequireInterface,
			File:    file,
			Message: fmt.Sprintf("no class implements %s", c.InterfaceName),
		}}
	}

	var out []core.Violation
	for _, m := range c.InterfaceMethods {
		if _, ok := impl.Method(m); !ok {
			out = append(out, core.Violation{
				Kind:    core.ViolationInterface,
				Rule:    RequireInterface,
				File:    file,
				Line:    impl.Line,
				Message: fmt.Sprintf("class %s is missing required method %s", impl.Name, m),
			})
		}
	}
	return out
}

func (c ArchitectureConstraints) checkImports(file string, mod *pysrc.Module) []core.Violation {
	if len(c.AllowedImports) == 0 {
		return nil
	}
	allowed := make(map[string]bool, len(c.AllowedImports))
	for _, a := range c.AllowedImports {
		allowed[a] = true
	}

	var out []core.Violation
	for _, imp := range mod.Imports {
		top := imp.Module
		if i := strings.IndexByte(top, '.'); i >= 0 {
			top = top[:i]
		}
		if !allowed[top] && !allowed[imp.Module] {
			out = append(out, core.Violation{
				Kind:    core.ViolationImport,
				Rule:    "allowed_imports",
				File:    file,
				Line:    imp.Line,
				Message: fmt.Sprintf("import of %q is not in the allowed set", imp.Module),
			})
		}
	}
	return out
}

func (c ArchitectureConstraints) checkCalls(file string, mod *pysrc.Module) []core.Violation {
	var out []core.Violation
	for _, call := range mod.Calls {
		for _, forbidden := range c.ForbiddenPatterns {
			if call.Name == forbidden || strings.HasPrefix(call.Name, forbidden+".") {
				out = append(out, core.Violation{
					Kind:    core.ViolationForbidden,
					Rule:    forbidden,
					File:    file,
					Line:    call.Line,
					Message: fmt.Sprintf("call to forbidden construct %s", call.Name),
				})
				break
			}
		}
	}
	return out
}

func (c ArchitectureConstraints) checkSecrets(file string, mod *pysrc.Module) []core.Violation {
	if c.SecretNamePattern == "" {
		return nil
	}
	nameRe, err := regexp.Compile(c.SecretNamePattern)
	if err != nil {
		return nil
	}

	var out []core.Violation
	for _, a := range mod.Assignments {
		if !a.IsString || a.Value == "" {
			continue
		}
		if !nameRe.MatchString(a.Name) {
			continue
		}
		// Placeholders and env indirection are fine; literals are not.
		if strings.HasPrefix(a.Value, "${") || strings.HasPrefix(a.Value, "<") {
			continue
		}
		out = append(out, core.Violation{
			Kind:    core.ViolationSecret,
			Rule:    "no_hardcoded_secrets",
			File:    file,
			Line:    a.Line,
			Message: fmt.Sprintf("string literal assigned to credential-like name %q", a.Name),
		})
	}
	return out
}

func (c ArchitectureConstraints) checkDocstrings(file string, mod *pysrc.Module) []core.Violation {
	var out []core.Violation
	for _, cls := range mod.Classes {
		if isPrivate(cls.Name) {
			continue
		}
		if strings.TrimSpace(cls.Docstring) == "" {
			out = append(out, core.Violation{
				Kind:    core.ViolationRequired,
				Rule:    RequireDocstrings,
				File:    file,
				Line:    cls.Line,
				Message: fmt.Sprintf("class %s has no docstring", cls.Name),
			})
		}
		for _, m := range cls.Methods {
			if isPrivate(m.Name) {
				continue
			}
			if strings.TrimSpace(m.Docstring) == "" {
				out = append(out, core.Violation{
					Kind:    core.ViolationRequired,
					Rule:    RequireDocstrings,
					File:    file,
					Line:    m.Line,
					Message: fmt.Sprintf("method %s.%s has no docstring", cls.Name, m.Name),
				})
			}
		}
	}
	for _, fn := range mod.Functions {
		if isPrivate(fn.Name) {
			continue
		}
		if strings.TrimSpace(fn.Docstring) == "" {
			out = append(out, core.Violation{
				Kind:    core.ViolationRequired,
				Rule:    RequireDocstrings,
				File:    file,
				Line:    fn.Line,
				Message: fmt.Sprintf("function %s has no docstring", fn.Name),
			})
		}
	}
	return out
}

func (c ArchitectureConstraints) checkAnnotations(file string, mod *pysrc.Module) []core.Violation {
	var out []core.Violation
	check := func(owner string, fn *pysrc.Function) {
		if isPrivate(fn.Name) {
			return
		}
		for _, p := range fn.Params {
			if p.Name == "self" || p.Name == "cls" {
				continue
			}
			if strings.HasPrefix(p.Name, "*") {
				continue
			}
			if !p.Annotated {
				out = append(out, core.Violation{
					Kind:    core.ViolationRequired,
					Rule:    RequireAnnotations,
					File:    file,
					Line:    fn.Line,
					Message: fmt.Sprintf("%s: parameter %q lacks a type annotation", qualify(owner, fn.Name), p.Name),
				})
			}
		}
		if !fn.ReturnAnnotated {
			out = append(out, core.Violation{
				Kind:    core.ViolationRequired,
				Rule:    RequireAnnotations,
				File:    file,
				Line:    fn.Line,
				Message: fmt.Sprintf("%s lacks a return type annotation", qualify(owner, fn.Name)),
			})
		}
	}
	for _, cls := range mod.Classes {
		for _, m := range cls.Methods {
			check(cls.Name, m)
		}
	}
	for _, fn := range mod.Functions {
		check("", fn)
	}
	return out
}

// isPrivate treats a leading underscore as private, except __init__ which
// stays exempt from doc and annotation obligations by convention.
func isPrivate(name string) bool {
	return strings.HasPrefix(name, "_")
}

func qualify(owner, name string) string {
	if owner == "" {
		return name
	}
	return owner + "." + name
}
