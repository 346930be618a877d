package quality

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/XiaoConstantine/exemplar-go/pkg/constraints"
	"github.com/XiaoConstantine/exemplar-go/pkg/core"
)

const basePy = `from abc import ABC, abstractmethod
from typing import Dict


class BaseExtractor(ABC):
    """Contract for extractors."""

    @abstractmethod
    def extract(self, record: Dict) -> Dict:
        """Transform one record."""
`

const extractorPy = `from typing import Dict


class RecordExtractor(BaseExtractor):
    """Maps raw records onto the output schema."""

    def extract(self, record: Dict) -> Dict:
        """Transform one record."""
        return {"temp_c": (record["temp_f"] - 32) * 5 / 9}
`

const testExtractorPy = `import unittest


class TestRecordExtractor(unittest.TestCase):
    """Replays the example pairs."""

    def test_extract(self) -> None:
        """Freezing point converts to zero."""
        extractor = RecordExtractor()
        self.assertEqual({"temp_c": 0.0}, extractor.extract({"temp_f": 32}))
`

func cleanArtifact() *core.GeneratedArtifact {
	return &core.GeneratedArtifact{
		ID: "artifact-1",
		Files: map[string]string{
			"base.py":           basePy,
			"extractor.py":      extractorPy,
			"test_extractor.py": testExtractorPy,
		},
	}
}

func TestAssessCleanArtifact(t *testing.T) {
	got := New(constraints.Default()).Assess(cleanArtifact())

	assert.True(t, got.SyntaxValid)
	assert.Empty(t, got.Violations)
	assert.InDelta(t, 1.0, got.QualityScore, 1e-9)
}

func TestAssessDoesNotMutateInput(t *testing.T) {
	in := cleanArtifact()
	in.QualityScore = -1

	got := New(constraints.Default()).Assess(in)

	assert.Equal(t, float64(-1), in.QualityScore)
	assert.False(t, in.SyntaxValid)
	assert.NotSame(t, in, got)
}

func TestAssessIsIdempotent(t *testing.T) {
	v := New(constraints.Default())
	first := v.Assess(cleanArtifact())
	second := v.Assess(first)

	assert.Equal(t, first.SyntaxValid, second.SyntaxValid)
	assert.Equal(t, first.Violations, second.Violations)
	assert.Equal(t, first.QualityScore, second.QualityScore)
}

func TestAssessSyntaxError(t *testing.T) {
	a := cleanArtifact()
	a.Files["extractor.py"] = "def extract():\nreturn 1\n"

	got := New(constraints.Default()).Assess(a)

	assert.False(t, got.SyntaxValid)
	assert.Less(t, got.QualityScore, 1.0)

	var kinds []core.ViolationKind
	for _, v := range got.Violations {
		kinds = append(kinds, v.Kind)
	}
	assert.Contains(t, kinds, core.ViolationSyntax)
}

func TestAssessForbiddenConstructScoredNotFatal(t *testing.T) {
	// A plan that smuggles in dynamic evaluation still produces an
	// assessed artifact; the finding lands in Violations.
	a := cleanArtifact()
	a.Files["extractor.py"] = `from typing import Dict


class RecordExtractor(BaseExtractor):
    """Maps raw records onto the output schema."""

    def extract(self, record: Dict) -> Dict:
        """Transform one record."""
        return eval(record["expr"])
`

	got := New(constraints.Default()).Assess(a)

	assert.True(t, got.SyntaxValid)
	require.Len(t, got.Violations, 1)
	assert.Equal(t, core.ViolationForbidden, got.Violations[0].Kind)
	assert.Equal(t, "eval", got.Violations[0].Rule)
	// 0.4 syntax + 0.3 * (1 - 0.2) cleanliness + 0.3 interface.
	assert.InDelta(t, 0.94, got.QualityScore, 1e-9)
}

func TestAssessMissingInterfaceMethod(t *testing.T) {
	a := cleanArtifact()
	a.Files["extractor.py"] = `class RecordExtractor(BaseExtractor):
    """Doc."""

    def setup(self) -> None:
        """Doc."""
        return None
`

	got := New(constraints.Default()).Assess(a)

	assert.True(t, got.SyntaxValid)
	require.Len(t, got.Violations, 1)
	assert.Equal(t, core.ViolationInterface, got.Violations[0].Kind)
	assert.Contains(t, got.Violations[0].Message, "extract")
	// 0.4 syntax + 0.3 * (1 - 0.2) cleanliness + 0 interface.
	assert.InDelta(t, 0.64, got.QualityScore, 1e-9)
}

func TestAssessNoImplementingClass(t *testing.T) {
	a := &core.GeneratedArtifact{
		ID:    "artifact-2",
		Files: map[string]string{"extractor.py": "x = 1\n"},
	}

	got := New(constraints.Default()).Assess(a)

	require.NotEmpty(t, got.Violations)
	assert.Equal(t, core.ViolationInterface, got.Violations[0].Kind)
	assert.Contains(t, got.Violations[0].Message, "BaseExtractor")
}

func TestAssessEmptyArtifact(t *testing.T) {
	got := New(constraints.Default()).Assess(&core.GeneratedArtifact{ID: "empty"})

	assert.False(t, got.SyntaxValid)
	assert.Less(t, got.QualityScore, 0.5)
}

func TestAssessInterfaceNotRequired(t *testing.T) {
	cons := constraints.Default()
	cons.RequiredPatterns = nil

	a := &core.GeneratedArtifact{
		ID:    "artifact-3",
		Files: map[string]string{"extractor.py": "x = 1\n"},
	}
	got := New(cons).Assess(a)

	assert.True(t, got.SyntaxValid)
	assert.Empty(t, got.Violations)
	assert.InDelta(t, 1.0, got.QualityScore, 1e-9)
}
