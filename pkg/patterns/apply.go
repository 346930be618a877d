package patterns

import (
	"strconv"
	"strings"
	"time"

	"github.com/XiaoConstantine/exemplar-go/pkg/core"
)

// Apply evaluates one inferred pattern against a flattened input document.
// It is the same transform the detectors verified during extraction, so a
// pattern with confidence 1.0 reproduces every example it was inferred
// from. The second result is false when the pattern does not apply to this
// document (missing source, wrong type, unmapped value).
func Apply(p core.TransformationPattern, flat map[string]interface{}) (interface{}, bool) {
	switch p.Type {
	case core.FieldMapping, core.NestedAccess, core.FieldExtraction:
		if len(p.SourceFields) != 1 {
			return nil, false
		}
		v, ok := flat[p.SourceFields[0]]
		return v, ok

	case core.Concatenation:
		if len(p.SourceFields) != 2 {
			return nil, false
		}
		delim, _ := p.Parameters["delimiter"].(string)
		sa, aok := stringAt(flat, p.SourceFields[0])
		sb, bok := stringAt(flat, p.SourceFields[1])
		if !aok || !bok {
			return nil, false
		}
		return sa + delim + sb, true

	case core.TypeConversion:
		if len(p.SourceFields) != 1 {
			return nil, false
		}
		v, ok := flat[p.SourceFields[0]]
		if !ok {
			return nil, false
		}
		switch src := v.(type) {
		case string:
			if f, err := strconv.ParseFloat(strings.TrimSpace(src), 64); err == nil {
				return f, true
			}
			return nil, false
		case int, int64, float64, float32:
			s, _ := toString(src)
			return s, true
		default:
			return nil, false
		}

	case core.BooleanConversion:
		if len(p.SourceFields) != 1 {
			return nil, false
		}
		v, ok := flat[p.SourceFields[0]]
		if !ok {
			return nil, false
		}
		if _, isBool := v.(bool); isBool {
			return nil, false
		}
		return boolLiteral(v)

	case core.ValueMapping:
		if len(p.SourceFields) != 1 {
			return nil, false
		}
		mapping, _ := p.Parameters["mapping"].(map[string]interface{})
		if mapping == nil {
			return nil, false
		}
		v, ok := flat[p.SourceFields[0]]
		if !ok || !isScalar(v) || v == nil {
			return nil, false
		}
		mapped, ok := mapping[valueKey(v)]
		return mapped, ok

	case core.ListAggregation:
		if len(p.SourceFields) != 1 {
			return nil, false
		}
		op, _ := p.Parameters["operation"].(string)
		delim, _ := p.Parameters["delimiter"].(string)
		return aggregate(flat[p.SourceFields[0]], op, delim)

	case core.Conditional:
		field, _ := p.Parameters["condition_field"].(string)
		cond, ok := flat[field].(bool)
		if !ok {
			return nil, false
		}
		if cond {
			return p.Parameters["if_true"], true
		}
		return p.Parameters["if_false"], true

	case core.DateParsing:
		if len(p.SourceFields) != 1 {
			return nil, false
		}
		inLayout, inOK := layoutForStrftime(stringParam(p, "input_format"))
		outLayout, outOK := layoutForStrftime(stringParam(p, "output_format"))
		if !inOK || !outOK {
			return nil, false
		}
		s, ok := flat[p.SourceFields[0]].(string)
		if !ok {
			return nil, false
		}
		t, err := time.Parse(inLayout, s)
		if err != nil {
			return nil, false
		}
		return t.Format(outLayout), true

	case core.MathOperation:
		return applyMath(p, flat)

	case core.StringFormatting:
		if len(p.SourceFields) != 1 {
			return nil, false
		}
		s, ok := flat[p.SourceFields[0]].(string)
		if !ok {
			return nil, false
		}
		return applyStringFormat(stringParam(p, "format"), s)

	case core.DefaultValue:
		v, ok := p.Parameters["value"]
		return v, ok

	default:
		// CUSTOM patterns carry no executable rule.
		return nil, false
	}
}

// ValuesEqual reports semantic equality with numeric normalization, the
// same relation the detectors used to count matches.
func ValuesEqual(a, b interface{}) bool {
	return valuesEqual(a, b)
}

func applyMath(p core.TransformationPattern, flat map[string]interface{}) (interface{}, bool) {
	op := stringParam(p, "operation")
	if op == "linear" {
		if len(p.SourceFields) != 1 {
			return nil, false
		}
		scale, sok := toFloat(p.Parameters["scale"])
		offset, ook := toFloat(p.Parameters["offset"])
		x, xok := toFloat(flat[p.SourceFields[0]])
		if !sok || !ook || !xok {
			return nil, false
		}
		return scale*x + offset, true
	}

	if len(p.SourceFields) != 2 {
		return nil, false
	}
	x, xok := toFloat(flat[p.SourceFields[0]])
	y, yok := toFloat(flat[p.SourceFields[1]])
	if !xok || !yok {
		return nil, false
	}
	switch op {
	case "add":
		return x + y, true
	case "subtract":
		return x - y, true
	case "multiply":
		return x * y, true
	case "divide":
		if y == 0 {
			return nil, false
		}
		return x / y, true
	default:
		return nil, false
	}
}

func stringParam(p core.TransformationPattern, key string) string {
	s, _ := p.Parameters[key].(string)
	return s
}

func layoutForStrftime(s string) (string, bool) {
	for _, dl := range dateLayouts {
		if dl.strftime == s {
			return dl.layout, true
		}
	}
	return "", false
}
