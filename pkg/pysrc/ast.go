// Package pysrc provides a lightweight structural scanner for generated
// Python source. It is not a full parser: it builds an indentation-based
// block tree with the constructs static validation needs (imports, classes,
// functions, call sites, string assignments, docstrings, annotations) and
// reports the syntax defects a code generator plausibly produces.
package pysrc

import "fmt"

// Module is the scanned representation of one source file.
type Module struct {
	Imports     []Import
	Classes     []*Class
	Functions   []*Function // module-level functions
	Calls       []Call
	Assignments []Assignment
}

// Import records one import statement.
type Import struct {
	Module string   // "os.path" in both forms
	Names  []string // imported names for "from X import a, b"
	Line   int
}

// Class records one class definition and its direct methods.
type Class struct {
	Name      string
	Bases     []string
	Docstring string
	Methods   []*Function
	Line      int
}

// Function records one def, at module level or inside a class.
type Function struct {
	Name            string
	Params          []Param
	ReturnAnnotated bool
	Docstring       string
	Decorators      []string
	Line            int
}

// Param is one parameter in a def signature.
type Param struct {
	Name      string
	Annotated bool
}

// Call is one call site; Name is the dotted callee ("subprocess.run").
type Call struct {
	Name string
	Line int
}

// Assignment records "name = <literal>" statements; used for secret scans.
type Assignment struct {
	Name     string
	Value    string
	IsString bool
	Line     int
}

// SyntaxError describes the first structural defect found in the source.
type SyntaxError struct {
	Line    int
	Message string
}

func (e *SyntaxError) Error() string {
	return fmt.Sprintf("line %d: %s", e.Line, e.Message)
}

// Method looks up a direct method by name.
func (c *Class) Method(name string) (*Function, bool) {
	for _, m := range c.Methods {
		if m.Name == name {
			return m, true
		}
	}
	return nil, false
}

// HasBase reports whether the class inherits (directly) from the named base.
func (c *Class) HasBase(name string) bool {
	for _, b := range c.Bases {
		if b == name {
			return true
		}
	}
	return false
}

// FindClass looks up a class by name.
func (m *Module) FindClass(name string) (*Class, bool) {
	for _, c := range m.Classes {
		if c.Name == name {
			return c, true
		}
	}
	return nil, false
}

// ImportedModules returns every imported module path.
func (m *Module) ImportedModules() []string {
	mods := make([]string, 0, len(m.Imports))
	for _, imp := range m.Imports {
		mods = append(mods, imp.Module)
	}
	return mods
}
