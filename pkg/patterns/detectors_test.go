package patterns

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/XiaoConstantine/exemplar-go/pkg/core"
)

func extractPatterns(t *testing.T, examples []core.ExamplePair) []core.TransformationPattern {
	t.Helper()
	_, _, detected, err := NewExtractor().Extract(context.Background(), examples)
	require.NoError(t, err)
	return detected
}

func TestDetectValueMapping(t *testing.T) {
	examples := pairs(
		[2]map[string]interface{}{{"code": "A"}, {"label": "alpha"}},
		[2]map[string]interface{}{{"code": "B"}, {"label": "beta"}},
		[2]map[string]interface{}{{"code": "A"}, {"label": "alpha"}},
	)

	p := findPattern(t, extractPatterns(t, examples), "label")
	assert.Equal(t, core.ValueMapping, p.Type)
	assert.Equal(t, 1.0, p.Confidence)
	mapping := p.Parameters["mapping"].(map[string]interface{})
	assert.Equal(t, "alpha", mapping[valueKey("A")])
	assert.Equal(t, "beta", mapping[valueKey("B")])
}

func TestDetectValueMappingKeepsTypesApart(t *testing.T) {
	// The int 1 and the string "1" are different source values and must
	// get separate mapping entries.
	examples := pairs(
		[2]map[string]interface{}{{"code": 1}, {"label": "numeric"}},
		[2]map[string]interface{}{{"code": "1"}, {"label": "text"}},
		[2]map[string]interface{}{{"code": 1}, {"label": "numeric"}},
		[2]map[string]interface{}{{"code": "1"}, {"label": "text"}},
	)

	var p core.TransformationPattern
	var found bool
	for _, cand := range extractPatterns(t, examples) {
		if cand.Type == core.ValueMapping && cand.TargetField == "label" {
			p = cand
			found = true
		}
	}
	require.True(t, found, "no value mapping pattern for label")
	mapping := p.Parameters["mapping"].(map[string]interface{})
	require.Len(t, mapping, 2)
	assert.Equal(t, "numeric", mapping[valueKey(1)])
	assert.Equal(t, "text", mapping[valueKey("1")])
}

func TestDetectValueMappingNeedsRepetition(t *testing.T) {
	// All-distinct source values would just memorize the table.
	examples := pairs(
		[2]map[string]interface{}{{"code": "A"}, {"label": "alpha"}},
		[2]map[string]interface{}{{"code": "B"}, {"label": "beta"}},
	)

	for _, p := range extractPatterns(t, examples) {
		assert.NotEqual(t, core.ValueMapping, p.Type)
	}
}

func TestDetectBooleanConversion(t *testing.T) {
	examples := pairs(
		[2]map[string]interface{}{{"active": "yes"}, {"enabled": true}},
		[2]map[string]interface{}{{"active": "no"}, {"enabled": false}},
	)

	p := findPattern(t, extractPatterns(t, examples), "enabled")
	assert.Equal(t, core.BooleanConversion, p.Type)
	assert.Equal(t, 1.0, p.Confidence)
}

func TestDetectTypeConversion(t *testing.T) {
	examples := pairs(
		[2]map[string]interface{}{{"count": "42"}, {"count_num": 42}},
		[2]map[string]interface{}{{"count": "7"}, {"count_num": 7}},
	)

	p := findPattern(t, extractPatterns(t, examples), "count_num")
	assert.Equal(t, core.TypeConversion, p.Type)
	assert.Equal(t, "string", p.Parameters["from"])
	assert.Equal(t, "number", p.Parameters["to"])
}

func TestDetectListAggregationSum(t *testing.T) {
	examples := pairs(
		[2]map[string]interface{}{
			{"amounts": []interface{}{1, 2, 3}},
			{"total": 6},
		},
		[2]map[string]interface{}{
			{"amounts": []interface{}{10, 20}},
			{"total": 30},
		},
	)

	p := findPattern(t, extractPatterns(t, examples), "total")
	assert.Equal(t, core.ListAggregation, p.Type)
	assert.Equal(t, "sum", p.Parameters["operation"])
}

func TestDetectListAggregationJoin(t *testing.T) {
	examples := pairs(
		[2]map[string]interface{}{
			{"tags": []interface{}{"a", "b", "c"}},
			{"tag_line": "a, b, c"},
		},
		[2]map[string]interface{}{
			{"tags": []interface{}{"x", "y"}},
			{"tag_line": "x, y"},
		},
	)

	p := findPattern(t, extractPatterns(t, examples), "tag_line")
	assert.Equal(t, core.ListAggregation, p.Type)
	assert.Equal(t, "join", p.Parameters["operation"])
	assert.Equal(t, ", ", p.Parameters["delimiter"])
}

func TestDetectConditional(t *testing.T) {
	examples := pairs(
		[2]map[string]interface{}{{"premium": true}, {"tier": "gold"}},
		[2]map[string]interface{}{{"premium": false}, {"tier": "basic"}},
	)

	p := findPattern(t, extractPatterns(t, examples), "tier")
	assert.Equal(t, core.Conditional, p.Type)
	assert.Equal(t, "gold", p.Parameters["if_true"])
	assert.Equal(t, "basic", p.Parameters["if_false"])
}

func TestDetectDateParsing(t *testing.T) {
	examples := pairs(
		[2]map[string]interface{}{{"date": "2024-01-15"}, {"date_us": "01/15/2024"}},
		[2]map[string]interface{}{{"date": "2023-12-31"}, {"date_us": "12/31/2023"}},
	)

	p := findPattern(t, extractPatterns(t, examples), "date_us")
	assert.Equal(t, core.DateParsing, p.Type)
	assert.Equal(t, "%Y-%m-%d", p.Parameters["input_format"])
	assert.Equal(t, "%m/%d/%Y", p.Parameters["output_format"])
}

func TestDetectStringFormatting(t *testing.T) {
	examples := pairs(
		[2]map[string]interface{}{{"sku": "ab-1"}, {"sku_uc": "AB-1"}},
		[2]map[string]interface{}{{"sku": "cd-2"}, {"sku_uc": "CD-2"}},
	)

	p := findPattern(t, extractPatterns(t, examples), "sku_uc")
	assert.Equal(t, core.StringFormatting, p.Type)
	assert.Equal(t, "upper", p.Parameters["format"])
}

func TestDetectDefaultValue(t *testing.T) {
	examples := pairs(
		[2]map[string]interface{}{{"name": "a"}, {"name": "a", "version": "v2"}},
		[2]map[string]interface{}{{"name": "b"}, {"name": "b", "version": "v2"}},
	)

	p := findPattern(t, extractPatterns(t, examples), "version")
	assert.Equal(t, core.DefaultValue, p.Type)
	assert.Equal(t, 1.0, p.Confidence)
	assert.Empty(t, p.SourceFields)
	assert.Equal(t, "v2", p.Parameters["value"])
}

func TestDetectFieldExtraction(t *testing.T) {
	examples := pairs(
		[2]map[string]interface{}{
			{"authors": []interface{}{"Knuth", "Dijkstra"}},
			{"lead_author": "Knuth"},
		},
		[2]map[string]interface{}{
			{"authors": []interface{}{"Hopper"}},
			{"lead_author": "Hopper"},
		},
	)

	p := findPattern(t, extractPatterns(t, examples), "lead_author")
	assert.Equal(t, core.FieldExtraction, p.Type)
	assert.Equal(t, []string{"authors.0"}, p.SourceFields)
}
