package core

// PatternType is the closed set of transformation rule kinds the extractor
// can infer. The declaration order is the tie-break priority: when two
// candidates for the same target field have equal confidence and the same
// number of source fields, the earlier type wins.
type PatternType int

const (
	FieldMapping PatternType = iota
	NestedAccess
	FieldExtraction
	Concatenation
	TypeConversion
	BooleanConversion
	ValueMapping
	ListAggregation
	Conditional
	DateParsing
	MathOperation
	StringFormatting
	DefaultValue
	Custom
)

var patternTypeNames = [...]string{
	"FIELD_MAPPING",
	"NESTED_ACCESS",
	"FIELD_EXTRACTION",
	"CONCATENATION",
	"TYPE_CONVERSION",
	"BOOLEAN_CONVERSION",
	"VALUE_MAPPING",
	"LIST_AGGREGATION",
	"CONDITIONAL",
	"DATE_PARSING",
	"MATH_OPERATION",
	"STRING_FORMATTING",
	"DEFAULT_VALUE",
	"CUSTOM",
}

func (t PatternType) String() string {
	if int(t) < 0 || int(t) >= len(patternTypeNames) {
		return "UNKNOWN"
	}
	return patternTypeNames[t]
}

// MarshalText makes pattern types serialize by name in reports and prompts.
func (t PatternType) MarshalText() ([]byte, error) {
	return []byte(t.String()), nil
}

// Priority returns the tie-break rank; lower is preferred.
func (t PatternType) Priority() int {
	return int(t)
}

// TransformationPattern is one typed rule describing how one or more source
// fields produce a target field. Confidence is the fraction of example
// pairs for which the rule reproduces the observed output exactly; rules
// that hold for no pair are discarded, never emitted at confidence zero.
type TransformationPattern struct {
	Type         PatternType            `json:"type"`
	SourceFields []string               `json:"source_fields"`
	TargetField  string                 `json:"target_field"`
	Confidence   float64                `json:"confidence"`
	Description  string                 `json:"description"`
	Parameters   map[string]interface{} `json:"parameters,omitempty"`
}

// FilteredPatternSet partitions a pattern set by a confidence threshold.
// Included and Excluded are exhaustive and disjoint, and both preserve
// extractor order; patterns are never reordered by confidence.
type FilteredPatternSet struct {
	Included  []TransformationPattern `json:"included"`
	Excluded  []TransformationPattern `json:"excluded"`
	Threshold float64                 `json:"threshold"`
}
