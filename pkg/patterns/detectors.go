package patterns

import (
	"fmt"
	"sort"
	"strconv"
	"strings"
	"time"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"

	"github.com/XiaoConstantine/exemplar-go/pkg/core"
)

// detection carries everything the detectors need for one target field:
// the expected value per example pair and the flattened input documents.
type detection struct {
	target   string
	expected []interface{}
	present  []bool
	flats    []map[string]interface{}
	sources  []string // sorted union of input leaf paths
	pairs    int
}

// detectorFunc proposes candidate patterns for one target field. Each
// candidate carries its match fraction as confidence; candidates matching
// zero pairs are never returned.
type detectorFunc func(d detection) []core.TransformationPattern

// detectorTable is ordered by PatternType priority. The extractor runs
// every entry and resolves ties using this declaration order.
var detectorTable = []struct {
	typ core.PatternType
	fn  detectorFunc
}{
	{core.FieldMapping, detectFieldMapping},
	{core.NestedAccess, detectNestedAccess},
	{core.FieldExtraction, detectFieldExtraction},
	{core.Concatenation, detectConcatenation},
	{core.TypeConversion, detectTypeConversion},
	{core.BooleanConversion, detectBooleanConversion},
	{core.ValueMapping, detectValueMapping},
	{core.ListAggregation, detectListAggregation},
	{core.Conditional, detectConditional},
	{core.DateParsing, detectDateParsing},
	{core.MathOperation, detectMathOperation},
	{core.StringFormatting, detectStringFormatting},
	{core.DefaultValue, detectDefaultValue},
	// CUSTOM is a classification for externally supplied rules; the
	// extractor never infers it.
}

// countMatches evaluates a candidate transform against every example pair
// and returns how many pairs it reproduces exactly.
func (d detection) countMatches(apply func(flat map[string]interface{}) (interface{}, bool)) int {
	k := 0
	for i, flat := range d.flats {
		if !d.present[i] {
			continue
		}
		v, ok := apply(flat)
		if !ok {
			continue
		}
		if valuesEqual(v, d.expected[i]) {
			k++
		}
	}
	return k
}

func (d detection) confidence(matches int) float64 {
	return float64(matches) / float64(d.pairs)
}

// identityCandidates finds source paths whose value reproduces the target
// verbatim, filtered by a path-shape predicate.
func identityCandidates(d detection, typ core.PatternType, shape func(path string) bool, describe func(path string) string) []core.TransformationPattern {
	var out []core.TransformationPattern
	for _, path := range d.sources {
		if !shape(path) {
			continue
		}
		p := path
		k := d.countMatches(func(flat map[string]interface{}) (interface{}, bool) {
			v, ok := flat[p]
			return v, ok
		})
		if k == 0 {
			continue
		}
		out = append(out, core.TransformationPattern{
			Type:         typ,
			SourceFields: []string{path},
			TargetField:  d.target,
			Confidence:   d.confidence(k),
			Description:  describe(path),
		})
	}
	return out
}

func detectFieldMapping(d detection) []core.TransformationPattern {
	return identityCandidates(d, core.FieldMapping,
		func(path string) bool { return !strings.Contains(path, ".") },
		func(path string) string {
			return fmt.Sprintf("copy %q to %q", path, d.target)
		})
}

func detectNestedAccess(d detection) []core.TransformationPattern {
	return identityCandidates(d, core.NestedAccess,
		func(path string) bool { return strings.Contains(path, ".") && !HasListIndex(path) },
		func(path string) string {
			return fmt.Sprintf("read nested path %q into %q", path, d.target)
		})
}

func detectFieldExtraction(d detection) []core.TransformationPattern {
	return identityCandidates(d, core.FieldExtraction,
		HasListIndex,
		func(path string) string {
			return fmt.Sprintf("extract list element %q into %q", path, d.target)
		})
}

func detectConcatenation(d detection) []core.TransformationPattern {
	// Concatenation only produces strings.
	for i, present := range d.present {
		if present {
			if _, ok := d.expected[i].(string); !ok {
				return nil
			}
		}
	}

	var out []core.TransformationPattern
	for _, a := range d.sources {
		for _, b := range d.sources {
			if a == b {
				continue
			}
			delim, ok := inferDelimiter(d, a, b)
			if !ok {
				continue
			}
			aPath, bPath := a, b
			k := d.countMatches(func(flat map[string]interface{}) (interface{}, bool) {
				sa, aok := stringAt(flat, aPath)
				sb, bok := stringAt(flat, bPath)
				if !aok || !bok {
					return nil, false
				}
				return sa + delim + sb, true
			})
			if k == 0 {
				continue
			}
			out = append(out, core.TransformationPattern{
				Type:         core.Concatenation,
				SourceFields: []string{a, b},
				TargetField:  d.target,
				Confidence:   d.confidence(k),
				Description:  fmt.Sprintf("concatenate %q and %q with delimiter %q", a, b, delim),
				Parameters:   map[string]interface{}{"delimiter": delim},
			})
		}
	}
	return out
}

// inferDelimiter derives the joining string from the first pair where both
// sources and the target are present.
func inferDelimiter(d detection, a, b string) (string, bool) {
	for i, flat := range d.flats {
		if !d.present[i] {
			continue
		}
		expected, ok := d.expected[i].(string)
		if !ok {
			continue
		}
		sa, aok := stringAt(flat, a)
		sb, bok := stringAt(flat, b)
		if !aok || !bok || sa == "" || sb == "" {
			continue
		}
		if !strings.HasPrefix(expected, sa) || !strings.HasSuffix(expected, sb) {
			return "", false
		}
		if len(expected) < len(sa)+len(sb) {
			return "", false
		}
		return expected[len(sa) : len(expected)-len(sb)], true
	}
	return "", false
}

func stringAt(flat map[string]interface{}, path string) (string, bool) {
	v, ok := flat[path]
	if !ok || !isScalar(v) || v == nil {
		return "", false
	}
	return toString(v)
}

func detectTypeConversion(d detection) []core.TransformationPattern {
	var out []core.TransformationPattern
	for _, path := range d.sources {
		p := path
		var from, to string
		k := d.countMatches(func(flat map[string]interface{}) (interface{}, bool) {
			v, ok := flat[p]
			if !ok {
				return nil, false
			}
			switch src := v.(type) {
			case string:
				// string → number
				if f, err := strconv.ParseFloat(strings.TrimSpace(src), 64); err == nil {
					from, to = "string", "number"
					return f, true
				}
				return nil, false
			case int, int64, float64, float32:
				// number → string
				s, _ := toString(src)
				from, to = "number", "string"
				return s, true
			default:
				return nil, false
			}
		})
		if k == 0 {
			continue
		}
		out = append(out, core.TransformationPattern{
			Type:         core.TypeConversion,
			SourceFields: []string{path},
			TargetField:  d.target,
			Confidence:   d.confidence(k),
			Description:  fmt.Sprintf("convert %q from %s to %s for %q", path, from, to, d.target),
			Parameters:   map[string]interface{}{"from": from, "to": to},
		})
	}
	return out
}

var (
	trueLiterals  = []string{"true", "yes", "y", "1", "on"}
	falseLiterals = []string{"false", "no", "n", "0", "off"}
)

func boolLiteral(v interface{}) (bool, bool) {
	switch s := v.(type) {
	case string:
		lower := strings.ToLower(strings.TrimSpace(s))
		for _, lit := range trueLiterals {
			if lower == lit {
				return true, true
			}
		}
		for _, lit := range falseLiterals {
			if lower == lit {
				return false, true
			}
		}
		return false, false
	case int, int64, float64:
		f, _ := toFloat(s)
		if f == 0 {
			return false, true
		}
		if f == 1 {
			return true, true
		}
		return false, false
	default:
		return false, false
	}
}

func detectBooleanConversion(d detection) []core.TransformationPattern {
	var out []core.TransformationPattern
	for _, path := range d.sources {
		p := path
		k := d.countMatches(func(flat map[string]interface{}) (interface{}, bool) {
			v, ok := flat[p]
			if !ok {
				return nil, false
			}
			if _, isBool := v.(bool); isBool {
				// Plain bool copy is a field mapping, not a conversion.
				return nil, false
			}
			b, ok := boolLiteral(v)
			if !ok {
				return nil, false
			}
			return b, true
		})
		if k == 0 {
			continue
		}
		out = append(out, core.TransformationPattern{
			Type:         core.BooleanConversion,
			SourceFields: []string{path},
			TargetField:  d.target,
			Confidence:   d.confidence(k),
			Description:  fmt.Sprintf("normalize %q to boolean for %q", path, d.target),
			Parameters: map[string]interface{}{
				"true_values":  trueLiterals,
				"false_values": falseLiterals,
			},
		})
	}
	return out
}

func detectValueMapping(d detection) []core.TransformationPattern {
	var out []core.TransformationPattern
	for _, path := range d.sources {
		p := path

		// Build the observed (source → output) table.
		type obs struct {
			src interface{}
			out interface{}
		}
		var observations []obs
		distinct := make(map[string]struct{})
		repeated := false
		for i, flat := range d.flats {
			if !d.present[i] {
				continue
			}
			v, ok := flat[p]
			if !ok || !isScalar(v) || v == nil {
				continue
			}
			key := valueKey(v)
			if _, seen := distinct[key]; seen {
				repeated = true
			}
			distinct[key] = struct{}{}
			observations = append(observations, obs{src: v, out: d.expected[i]})
		}
		// Without a repeated source value the table just memorizes the
		// examples; require evidence that the mapping generalizes.
		if len(distinct) < 2 || !repeated {
			continue
		}

		// Majority vote per source value, deterministic tie-break on the
		// serialized output.
		votes := make(map[string]map[string]int)
		values := make(map[string]map[string]interface{})
		for _, o := range observations {
			sk := valueKey(o.src)
			ok := valueKey(o.out)
			if votes[sk] == nil {
				votes[sk] = make(map[string]int)
				values[sk] = make(map[string]interface{})
			}
			votes[sk][ok]++
			values[sk][ok] = o.out
		}
		mapping := make(map[string]interface{}, len(votes))
		identity := true
		for sk, outcomes := range votes {
			keys := make([]string, 0, len(outcomes))
			for k := range outcomes {
				keys = append(keys, k)
			}
			sort.Strings(keys)
			best := keys[0]
			for _, k := range keys[1:] {
				if outcomes[k] > outcomes[best] {
					best = k
				}
			}
			mapping[sk] = values[sk][best]
			if best != sk {
				identity = false
			}
		}
		if identity {
			continue
		}

		k := d.countMatches(func(flat map[string]interface{}) (interface{}, bool) {
			v, ok := flat[p]
			if !ok || !isScalar(v) || v == nil {
				return nil, false
			}
			mapped, ok := mapping[valueKey(v)]
			return mapped, ok
		})
		if k == 0 {
			continue
		}
		out = append(out, core.TransformationPattern{
			Type:         core.ValueMapping,
			SourceFields: []string{path},
			TargetField:  d.target,
			Confidence:   d.confidence(k),
			Description:  fmt.Sprintf("map discrete values of %q onto %q", path, d.target),
			Parameters:   map[string]interface{}{"mapping": mapping},
		})
	}
	return out
}

// listAggOps is the fixed set of aggregate operations tried, in order.
var listAggOps = []string{"sum", "min", "max", "count", "first", "last", "join"}

var joinDelimiters = []string{", ", ",", " ", ""}

func detectListAggregation(d detection) []core.TransformationPattern {
	var out []core.TransformationPattern
	for _, path := range d.sources {
		if HasListIndex(path) {
			continue
		}
		p := path
		for _, op := range listAggOps {
			if op == "join" {
				for _, delim := range joinDelimiters {
					dl := delim
					k := d.countMatches(func(flat map[string]interface{}) (interface{}, bool) {
						return aggregate(flat[p], "join", dl)
					})
					if k == 0 {
						continue
					}
					out = append(out, core.TransformationPattern{
						Type:         core.ListAggregation,
						SourceFields: []string{p},
						TargetField:  d.target,
						Confidence:   d.confidence(k),
						Description:  fmt.Sprintf("join elements of %q with %q into %q", p, dl, d.target),
						Parameters:   map[string]interface{}{"operation": "join", "delimiter": dl},
					})
					break // first matching delimiter wins
				}
				continue
			}
			o := op
			k := d.countMatches(func(flat map[string]interface{}) (interface{}, bool) {
				return aggregate(flat[p], o, "")
			})
			if k == 0 {
				continue
			}
			out = append(out, core.TransformationPattern{
				Type:         core.ListAggregation,
				SourceFields: []string{p},
				TargetField:  d.target,
				Confidence:   d.confidence(k),
				Description:  fmt.Sprintf("%s over list %q into %q", o, p, d.target),
				Parameters:   map[string]interface{}{"operation": o},
			})
		}
	}
	return out
}

func aggregate(v interface{}, op, delim string) (interface{}, bool) {
	list, ok := v.([]interface{})
	if !ok {
		return nil, false
	}
	switch op {
	case "count":
		return len(list), true
	case "first":
		if len(list) == 0 {
			return nil, false
		}
		return list[0], true
	case "last":
		if len(list) == 0 {
			return nil, false
		}
		return list[len(list)-1], true
	case "join":
		parts := make([]string, 0, len(list))
		for _, el := range list {
			s, ok := el.(string)
			if !ok {
				return nil, false
			}
			parts = append(parts, s)
		}
		return strings.Join(parts, delim), true
	case "sum", "min", "max":
		if len(list) == 0 {
			return nil, false
		}
		nums := make([]float64, 0, len(list))
		for _, el := range list {
			f, ok := toFloat(el)
			if !ok {
				return nil, false
			}
			nums = append(nums, f)
		}
		acc := nums[0]
		for _, n := range nums[1:] {
			switch op {
			case "sum":
				acc += n
			case "min":
				if n < acc {
					acc = n
				}
			case "max":
				if n > acc {
					acc = n
				}
			}
		}
		return acc, true
	default:
		return nil, false
	}
}

func detectConditional(d detection) []core.TransformationPattern {
	var out []core.TransformationPattern
	for _, path := range d.sources {
		p := path

		// Partition expected outputs by the boolean condition value.
		var whenTrue, whenFalse []interface{}
		usable := true
		for i, flat := range d.flats {
			if !d.present[i] {
				continue
			}
			cond, ok := flat[p].(bool)
			if !ok {
				usable = false
				break
			}
			if cond {
				whenTrue = append(whenTrue, d.expected[i])
			} else {
				whenFalse = append(whenFalse, d.expected[i])
			}
		}
		if !usable || len(whenTrue) == 0 || len(whenFalse) == 0 {
			continue
		}
		ifTrue, tOK := constantOf(whenTrue)
		ifFalse, fOK := constantOf(whenFalse)
		if !tOK || !fOK || valuesEqual(ifTrue, ifFalse) {
			continue
		}

		k := d.countMatches(func(flat map[string]interface{}) (interface{}, bool) {
			cond, ok := flat[p].(bool)
			if !ok {
				return nil, false
			}
			if cond {
				return ifTrue, true
			}
			return ifFalse, true
		})
		if k == 0 {
			continue
		}
		out = append(out, core.TransformationPattern{
			Type:         core.Conditional,
			SourceFields: []string{p},
			TargetField:  d.target,
			Confidence:   d.confidence(k),
			Description:  fmt.Sprintf("choose %q by condition %q", d.target, p),
			Parameters: map[string]interface{}{
				"condition_field": p,
				"if_true":         ifTrue,
				"if_false":        ifFalse,
			},
		})
	}
	return out
}

// constantOf returns the single value all entries share, majority-first.
func constantOf(values []interface{}) (interface{}, bool) {
	if len(values) == 0 {
		return nil, false
	}
	first := values[0]
	for _, v := range values[1:] {
		if !valuesEqual(first, v) {
			return nil, false
		}
	}
	return first, true
}

// dateLayouts pairs Go reference layouts with the strftime directives the
// generated Python extractor will use.
var dateLayouts = []struct {
	layout   string
	strftime string
}{
	{time.RFC3339, "%Y-%m-%dT%H:%M:%S%z"},
	{"2006-01-02 15:04:05", "%Y-%m-%d %H:%M:%S"},
	{"2006-01-02", "%Y-%m-%d"},
	{"2006/01/02", "%Y/%m/%d"},
	{"01/02/2006", "%m/%d/%Y"},
	{"02-01-2006", "%d-%m-%Y"},
	{"Jan 2, 2006", "%b %d, %Y"},
	{"January 2, 2006", "%B %d, %Y"},
	{"2 Jan 2006", "%d %b %Y"},
}

func detectDateParsing(d detection) []core.TransformationPattern {
	var out []core.TransformationPattern
	for _, path := range d.sources {
		p := path
		inLayout, ok := commonLayout(d, p)
		if !ok {
			continue
		}
		for _, outLayout := range dateLayouts {
			if outLayout.layout == inLayout.layout {
				continue
			}
			ol := outLayout
			k := d.countMatches(func(flat map[string]interface{}) (interface{}, bool) {
				s, ok := flat[p].(string)
				if !ok {
					return nil, false
				}
				t, err := time.Parse(inLayout.layout, s)
				if err != nil {
					return nil, false
				}
				return t.Format(ol.layout), true
			})
			if k == 0 {
				continue
			}
			out = append(out, core.TransformationPattern{
				Type:         core.DateParsing,
				SourceFields: []string{p},
				TargetField:  d.target,
				Confidence:   d.confidence(k),
				Description:  fmt.Sprintf("reparse date %q from %s to %s", p, inLayout.strftime, ol.strftime),
				Parameters: map[string]interface{}{
					"input_format":  inLayout.strftime,
					"output_format": ol.strftime,
				},
			})
			break // first output layout that reproduces anything wins
		}
	}
	return out
}

// commonLayout finds the first layout that parses the source value in every
// pair where the source is a string.
func commonLayout(d detection, path string) (struct{ layout, strftime string }, bool) {
	for _, candidate := range dateLayouts {
		all := true
		any := false
		for i, flat := range d.flats {
			if !d.present[i] {
				continue
			}
			s, ok := flat[path].(string)
			if !ok {
				all = false
				break
			}
			if _, err := time.Parse(candidate.layout, s); err != nil {
				all = false
				break
			}
			any = true
		}
		if all && any {
			return candidate, true
		}
	}
	return struct{ layout, strftime string }{}, false
}

func detectMathOperation(d detection) []core.TransformationPattern {
	// Math only targets numeric outputs.
	for i, present := range d.present {
		if !present {
			continue
		}
		if _, ok := toFloat(d.expected[i]); !ok {
			return nil
		}
	}

	var out []core.TransformationPattern
	out = append(out, detectLinear(d)...)
	out = append(out, detectBinaryMath(d)...)
	return out
}

// detectLinear fits target = scale*source + offset from the first two pairs
// with distinct source values and verifies the fit everywhere else. This
// covers unit conversions like Fahrenheit to Celsius.
func detectLinear(d detection) []core.TransformationPattern {
	var out []core.TransformationPattern
	for _, path := range d.sources {
		p := path

		type point struct{ x, y float64 }
		var pts []point
		for i, flat := range d.flats {
			if !d.present[i] {
				continue
			}
			x, xok := toFloat(flat[p])
			y, yok := toFloat(d.expected[i])
			if !xok || !yok {
				continue
			}
			pts = append(pts, point{x, y})
		}
		if len(pts) < 2 {
			continue
		}
		var p1, p2 point
		found := false
		p1 = pts[0]
		for _, pt := range pts[1:] {
			if pt.x != p1.x {
				p2 = pt
				found = true
				break
			}
		}
		if !found {
			continue
		}
		scale := (p2.y - p1.y) / (p2.x - p1.x)
		offset := p1.y - scale*p1.x
		// Identity and constant fits belong to other pattern types.
		if (floatsEqual(scale, 1) && floatsEqual(offset, 0)) || floatsEqual(scale, 0) {
			continue
		}

		k := d.countMatches(func(flat map[string]interface{}) (interface{}, bool) {
			x, ok := toFloat(flat[p])
			if !ok {
				return nil, false
			}
			return scale*x + offset, true
		})
		if k == 0 {
			continue
		}
		out = append(out, core.TransformationPattern{
			Type:         core.MathOperation,
			SourceFields: []string{p},
			TargetField:  d.target,
			Confidence:   d.confidence(k),
			Description:  fmt.Sprintf("%s = %s * %.6g + %.6g", d.target, p, scale, offset),
			Parameters: map[string]interface{}{
				"operation": "linear",
				"scale":     scale,
				"offset":    offset,
			},
		})
	}
	return out
}

var binaryMathOps = []string{"add", "subtract", "multiply", "divide"}

func detectBinaryMath(d detection) []core.TransformationPattern {
	var out []core.TransformationPattern
	for _, a := range d.sources {
		for _, b := range d.sources {
			if a == b {
				continue
			}
			// Commutative ops only need one ordering.
			commutativeDone := a > b
			for _, op := range binaryMathOps {
				if commutativeDone && (op == "add" || op == "multiply") {
					continue
				}
				aPath, bPath, o := a, b, op
				k := d.countMatches(func(flat map[string]interface{}) (interface{}, bool) {
					x, xok := toFloat(flat[aPath])
					y, yok := toFloat(flat[bPath])
					if !xok || !yok {
						return nil, false
					}
					switch o {
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
					}
					return nil, false
				})
				if k == 0 {
					continue
				}
				out = append(out, core.TransformationPattern{
					Type:         core.MathOperation,
					SourceFields: []string{a, b},
					TargetField:  d.target,
					Confidence:   d.confidence(k),
					Description:  fmt.Sprintf("%s = %s(%s, %s)", d.target, op, a, b),
					Parameters:   map[string]interface{}{"operation": op},
				})
			}
		}
	}
	return out
}

// stringFormats is the fixed set of case/whitespace transforms tried.
var stringFormats = []string{"upper", "lower", "title", "strip"}

var titleCaser = cases.Title(language.Und)

func applyStringFormat(format, s string) (string, bool) {
	switch format {
	case "upper":
		return strings.ToUpper(s), true
	case "lower":
		return strings.ToLower(s), true
	case "title":
		return titleCaser.String(s), true
	case "strip":
		return strings.TrimSpace(s), true
	default:
		return "", false
	}
}

func detectStringFormatting(d detection) []core.TransformationPattern {
	var out []core.TransformationPattern
	for _, path := range d.sources {
		p := path
		for _, format := range stringFormats {
			f := format
			k := d.countMatches(func(flat map[string]interface{}) (interface{}, bool) {
				s, ok := flat[p].(string)
				if !ok {
					return nil, false
				}
				formatted, ok := applyStringFormat(f, s)
				if !ok || formatted == s {
					// Unchanged output is identity, not formatting.
					return nil, false
				}
				return formatted, true
			})
			if k == 0 {
				continue
			}
			out = append(out, core.TransformationPattern{
				Type:         core.StringFormatting,
				SourceFields: []string{p},
				TargetField:  d.target,
				Confidence:   d.confidence(k),
				Description:  fmt.Sprintf("apply %s to %q for %q", f, p, d.target),
				Parameters:   map[string]interface{}{"format": f},
			})
		}
	}
	return out
}

// detectDefaultValue fires only when the output value is constant across
// every example pair and never appears among the input values, i.e. there
// is no plausible source mapping.
func detectDefaultValue(d detection) []core.TransformationPattern {
	var values []interface{}
	for i, present := range d.present {
		if !present {
			return nil
		}
		values = append(values, d.expected[i])
	}
	constant, ok := constantOf(values)
	if !ok {
		return nil
	}
	for _, flat := range d.flats {
		for _, v := range flat {
			if isScalar(v) && valuesEqual(v, constant) {
				return nil
			}
		}
	}
	return []core.TransformationPattern{{
		Type:        core.DefaultValue,
		TargetField: d.target,
		Confidence:  1.0,
		Description: fmt.Sprintf("emit constant for %q", d.target),
		Parameters:  map[string]interface{}{"value": constant},
	}}
}
