package core

import "strconv"

// ExamplePair holds one input document and the output document it should
// produce. Pairs are the ground truth for pattern inference and, later, the
// held-out oracle for the refinement loop. Treat as immutable once loaded.
type ExamplePair struct {
	Input       map[string]interface{} `json:"input"`
	Output      map[string]interface{} `json:"output"`
	Name        string                 `json:"name,omitempty"`
	Description string                 `json:"description,omitempty"`
}

// ToMap converts the pair into a plain mapping suitable for JSON
// serialization inside prompts. Rich objects must never reach a JSON
// encoder directly; every prompt builder goes through this.
func (e ExamplePair) ToMap() map[string]interface{} {
	m := map[string]interface{}{
		"input":  e.Input,
		"output": e.Output,
	}
	if e.Name != "" {
		m["name"] = e.Name
	}
	if e.Description != "" {
		m["description"] = e.Description
	}
	return m
}

// ID returns a stable identifier for the pair: its name when present,
// otherwise its position in the example set.
func (e ExamplePair) ID(index int) string {
	if e.Name != "" {
		return e.Name
	}
	return "example-" + strconv.Itoa(index)
}
