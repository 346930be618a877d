package schema

import (
	"fmt"
	"math"
	"sort"

	"github.com/XiaoConstantine/exemplar-go/pkg/core"
	"github.com/XiaoConstantine/exemplar-go/pkg/errors"
)

// DefaultMaxDepth bounds how far the analyzer walks into nested documents.
const DefaultMaxDepth = 8

// Analyzer infers a structural schema from a set of example documents.
type Analyzer struct {
	maxDepth int
}

type AnalyzerOption func(*Analyzer)

// WithMaxDepth overrides the nesting depth limit.
func WithMaxDepth(depth int) AnalyzerOption {
	return func(a *Analyzer) {
		if depth > 0 {
			a.maxDepth = depth
		}
	}
}

func NewAnalyzer(opts ...AnalyzerOption) *Analyzer {
	a := &Analyzer{maxDepth: DefaultMaxDepth}
	for _, opt := range opts {
		opt(a)
	}
	return a
}

// pathInfo accumulates observations for one dotted path across documents.
type pathInfo struct {
	types map[core.FieldType]struct{}
	seen  int
}

// Infer walks every document and produces the union schema: every observed
// field path with its most general observed type. Fields absent from some
// documents are optional; fields whose type varies are flagged ambiguous.
func (a *Analyzer) Infer(documents []map[string]interface{}) (core.Schema, error) {
	if len(documents) == 0 {
		return core.Schema{}, errors.New(errors.SchemaInference, "no documents to infer schema from")
	}

	paths := make(map[string]*pathInfo)
	for i, doc := range documents {
		if doc == nil {
			return core.Schema{}, errors.WithFields(
				errors.New(errors.SchemaInference, "document is not a mapping"),
				errors.Fields{"index": i})
		}
		if err := a.walk(doc, "", 0, paths); err != nil {
			return core.Schema{}, errors.WithFields(err, errors.Fields{"index": i})
		}
	}

	names := make([]string, 0, len(paths))
	for name := range paths {
		names = append(names, name)
	}
	sort.Strings(names)

	schema := core.Schema{Fields: make([]core.FieldDescriptor, 0, len(names))}
	for _, name := range names {
		info := paths[name]
		schema.Fields = append(schema.Fields, core.FieldDescriptor{
			Name:      name,
			Type:      widen(info.types),
			Optional:  info.seen < len(documents),
			Ambiguous: ambiguous(info.types),
		})
	}
	return schema, nil
}

func (a *Analyzer) walk(doc map[string]interface{}, prefix string, depth int, paths map[string]*pathInfo) error {
	if depth >= a.maxDepth {
		return nil
	}
	for key, value := range doc {
		path := key
		if prefix != "" {
			path = prefix + "." + key
		}

		t, err := Classify(value)
		if err != nil {
			return errors.WithFields(err, errors.Fields{"path": path})
		}
		record(paths, path, t)

		if nested, ok := value.(map[string]interface{}); ok {
			if err := a.walk(nested, path, depth+1, paths); err != nil {
				return err
			}
		}
	}
	return nil
}

func record(paths map[string]*pathInfo, path string, t core.FieldType) {
	info, ok := paths[path]
	if !ok {
		info = &pathInfo{types: make(map[core.FieldType]struct{})}
		paths[path] = info
	}
	info.types[t] = struct{}{}
	info.seen++
}

// widen folds a set of observed types into the most general one.
func widen(types map[core.FieldType]struct{}) core.FieldType {
	var result core.FieldType
	first := true
	// Deterministic fold order
	for _, t := range []core.FieldType{
		core.FieldTypeNull, core.FieldTypeBool, core.FieldTypeInt, core.FieldTypeFloat,
		core.FieldTypeString, core.FieldTypeList, core.FieldTypeDict,
	} {
		if _, ok := types[t]; !ok {
			continue
		}
		if first {
			result = t
			first = false
			continue
		}
		result = result.Widen(t)
	}
	return result
}

func ambiguous(types map[core.FieldType]struct{}) bool {
	if len(types) <= 1 {
		return false
	}
	// null alongside one concrete type means optionality, not ambiguity
	if len(types) == 2 {
		if _, ok := types[core.FieldTypeNull]; ok {
			return false
		}
		// int+float widen cleanly to float
		_, hasInt := types[core.FieldTypeInt]
		_, hasFloat := types[core.FieldTypeFloat]
		if hasInt && hasFloat {
			return false
		}
	}
	return true
}

// Classify maps a decoded document value to its field type. JSON decoding
// yields float64 for all numbers, so integral floats classify as int.
func Classify(value interface{}) (core.FieldType, error) {
	switch v := value.(type) {
	case nil:
		return core.FieldTypeNull, nil
	case bool:
		return core.FieldTypeBool, nil
	case int, int32, int64:
		return core.FieldTypeInt, nil
	case float32:
		if float64(v) == math.Trunc(float64(v)) {
			return core.FieldTypeInt, nil
		}
		return core.FieldTypeFloat, nil
	case float64:
		if v == math.Trunc(v) {
			return core.FieldTypeInt, nil
		}
		return core.FieldTypeFloat, nil
	case string:
		return core.FieldTypeString, nil
	case []interface{}:
		return core.FieldTypeList, nil
	case map[string]interface{}:
		return core.FieldTypeDict, nil
	default:
		return "", errors.WithFields(
			errors.New(errors.SchemaInference, "unsupported value type in document"),
			errors.Fields{"go_type": fmt.Sprintf("%T", value)})
	}
}
