package schema

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/XiaoConstantine/exemplar-go/pkg/core"
	"github.com/XiaoConstantine/exemplar-go/pkg/errors"
)

func TestInferBasicTypes(t *testing.T) {
	docs := []map[string]interface{}{
		{"name": "Ada", "age": 36, "score": 9.5, "active": true, "tags": []interface{}{"x"}},
	}

	s, err := NewAnalyzer().Infer(docs)
	require.NoError(t, err)

	expect := map[string]core.FieldType{
		"name":   core.FieldTypeString,
		"age":    core.FieldTypeInt,
		"score":  core.FieldTypeFloat,
		"active": core.FieldTypeBool,
		"tags":   core.FieldTypeList,
	}
	for name, typ := range expect {
		f, ok := s.Field(name)
		require.True(t, ok, "missing field %q", name)
		assert.Equal(t, typ, f.Type, "field %q", name)
		assert.False(t, f.Optional)
		assert.False(t, f.Ambiguous)
	}
}

func TestInferNestedPaths(t *testing.T) {
	docs := []map[string]interface{}{
		{"address": map[string]interface{}{"city": "London", "geo": map[string]interface{}{"lat": 51.5}}},
	}

	s, err := NewAnalyzer().Infer(docs)
	require.NoError(t, err)

	f, ok := s.Field("address")
	require.True(t, ok)
	assert.Equal(t, core.FieldTypeDict, f.Type)

	f, ok = s.Field("address.city")
	require.True(t, ok)
	assert.Equal(t, core.FieldTypeString, f.Type)

	f, ok = s.Field("address.geo.lat")
	require.True(t, ok)
	assert.Equal(t, core.FieldTypeFloat, f.Type)
}

func TestInferOptionalField(t *testing.T) {
	docs := []map[string]interface{}{
		{"name": "Ada", "nickname": "Countess"},
		{"name": "Alan"},
	}

	s, err := NewAnalyzer().Infer(docs)
	require.NoError(t, err)

	f, ok := s.Field("nickname")
	require.True(t, ok)
	assert.True(t, f.Optional)
	assert.False(t, f.Ambiguous)
}

func TestInferAmbiguousType(t *testing.T) {
	docs := []map[string]interface{}{
		{"id": 42},
		{"id": "42"},
	}

	s, err := NewAnalyzer().Infer(docs)
	require.NoError(t, err)

	f, ok := s.Field("id")
	require.True(t, ok)
	assert.True(t, f.Ambiguous)
	assert.Equal(t, core.FieldTypeString, f.Type) // widened to the more general type
}

func TestInferNumericWideningNotAmbiguous(t *testing.T) {
	docs := []map[string]interface{}{
		{"price": 10},
		{"price": 10.5},
	}

	s, err := NewAnalyzer().Infer(docs)
	require.NoError(t, err)

	f, ok := s.Field("price")
	require.True(t, ok)
	assert.False(t, f.Ambiguous)
	assert.Equal(t, core.FieldTypeFloat, f.Type)
}

func TestInferNullMeansOptionalNotAmbiguous(t *testing.T) {
	docs := []map[string]interface{}{
		{"middle": nil},
		{"middle": "J"},
	}

	s, err := NewAnalyzer().Infer(docs)
	require.NoError(t, err)

	f, ok := s.Field("middle")
	require.True(t, ok)
	assert.False(t, f.Ambiguous)
	assert.Equal(t, core.FieldTypeString, f.Type)
}

func TestInferEmptyDocuments(t *testing.T) {
	_, err := NewAnalyzer().Infer(nil)
	require.Error(t, err)
	assert.True(t, errors.HasCode(err, errors.SchemaInference))

	_, err = NewAnalyzer().Infer([]map[string]interface{}{nil})
	require.Error(t, err)
	assert.True(t, errors.HasCode(err, errors.SchemaInference))
}

func TestInferDeterministicOrder(t *testing.T) {
	docs := []map[string]interface{}{
		{"b": 1, "a": 2, "c": 3},
	}
	s, err := NewAnalyzer().Infer(docs)
	require.NoError(t, err)

	names := make([]string, len(s.Fields))
	for i, f := range s.Fields {
		names[i] = f.Name
	}
	assert.Equal(t, []string{"a", "b", "c"}, names)
}

func TestClassifyIntegralFloat(t *testing.T) {
	// JSON decoding yields float64 for every number.
	typ, err := Classify(float64(42))
	require.NoError(t, err)
	assert.Equal(t, core.FieldTypeInt, typ)

	typ, err = Classify(42.5)
	require.NoError(t, err)
	assert.Equal(t, core.FieldTypeFloat, typ)
}
