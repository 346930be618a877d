package core

import "strings"

// FieldType enumerates the scalar and container types the schema analyzer
// distinguishes. Ordering matters: later values are considered more general
// when observations at a path disagree across documents.
type FieldType string

const (
	FieldTypeNull   FieldType = "null"
	FieldTypeBool   FieldType = "bool"
	FieldTypeInt    FieldType = "int"
	FieldTypeFloat  FieldType = "float"
	FieldTypeString FieldType = "string"
	FieldTypeList   FieldType = "list"
	FieldTypeDict   FieldType = "dict"
)

// generality ranks types for widening when a path shows conflicting types.
var generality = map[FieldType]int{
	FieldTypeNull:   0,
	FieldTypeBool:   1,
	FieldTypeInt:    2,
	FieldTypeFloat:  3,
	FieldTypeString: 4,
	FieldTypeList:   5,
	FieldTypeDict:   6,
}

// Widen returns the more general of two field types. Int widens to float;
// everything else widens toward string, then container types.
func (t FieldType) Widen(other FieldType) FieldType {
	if t == other {
		return t
	}
	// int/float widen to float rather than string
	if (t == FieldTypeInt && other == FieldTypeFloat) || (t == FieldTypeFloat && other == FieldTypeInt) {
		return FieldTypeFloat
	}
	if generality[other] > generality[t] {
		return other
	}
	return t
}

// FieldDescriptor describes one field path observed in example documents.
// Name is a dotted path for nested fields ("address.city"). Ambiguous is
// set when the observed type varied across documents and the descriptor
// carries the most general observed type.
type FieldDescriptor struct {
	Name      string    `json:"name"`
	Type      FieldType `json:"type"`
	Optional  bool      `json:"optional"`
	Ambiguous bool      `json:"ambiguous,omitempty"`
}

// Schema is an ordered sequence of field descriptors. Two schemas exist per
// pipeline run, one per side, each derived from the union of all example
// documents on that side.
type Schema struct {
	Fields []FieldDescriptor `json:"fields"`
}

// Field returns the descriptor for the given dotted path, if present.
func (s Schema) Field(path string) (FieldDescriptor, bool) {
	for _, f := range s.Fields {
		if f.Name == path {
			return f, true
		}
	}
	return FieldDescriptor{}, false
}

// LeafPaths returns the dotted paths of all non-container fields, in schema
// order. Pattern detection only targets leaves.
func (s Schema) LeafPaths() []string {
	var paths []string
	for _, f := range s.Fields {
		if f.Type == FieldTypeDict {
			continue
		}
		paths = append(paths, f.Name)
	}
	return paths
}

// String renders the schema in the compact "name:type" form used in prompts.
func (s Schema) String() string {
	var b strings.Builder
	for i, f := range s.Fields {
		if i > 0 {
			b.WriteString(", ")
		}
		b.WriteString(f.Name)
		b.WriteString(":")
		b.WriteString(string(f.Type))
		if f.Optional {
			b.WriteString("?")
		}
	}
	return b.String()
}
