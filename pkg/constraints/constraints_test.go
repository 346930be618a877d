package constraints

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/XiaoConstantine/exemplar-go/pkg/core"
	"github.com/XiaoConstantine/exemplar-go/pkg/errors"
)

const cleanSource = `from abc import ABC, abstractmethod
from typing import Dict


class RecordExtractor(BaseExtractor):
    """Maps raw records onto the output schema."""

    def extract(self, record: Dict) -> Dict:
        """Transform one record."""
        return {}
`

func TestValidateCleanSource(t *testing.T) {
	got := Default().Validate("extractor.py", cleanSource)
	assert.Empty(t, got)
}

func TestValidateSyntaxErrorShortCircuits(t *testing.T) {
	src := "def extract():\nreturn 1\n"
	got := Default().Validate("extractor.py", src)

	require.Len(t, got, 1)
	assert.Equal(t, core.ViolationSyntax, got[0].Kind)
	assert.Equal(t, "valid_syntax", got[0].Rule)
	assert.Equal(t, "extractor.py", got[0].File)
	assert.Equal(t, 1, got[0].Line)
}

func TestValidateDisallowedImport(t *testing.T) {
	got := Default().Validate("extractor.py", "import subprocess\n")

	require.NotEmpty(t, got)
	assert.Equal(t, core.ViolationImport, got[0].Kind)
	assert.Contains(t, got[0].Message, "subprocess")
}

func TestValidateForbiddenCall(t *testing.T) {
	got := Default().Validate("extractor.py", "result = eval(data)\n")

	require.Len(t, got, 1)
	assert.Equal(t, core.ViolationForbidden, got[0].Kind)
	assert.Equal(t, "eval", got[0].Rule)
}

func TestValidateForbiddenCallByPrefix(t *testing.T) {
	got := Default().Validate("extractor.py", "subprocess.run(cmd)\n")

	require.Len(t, got, 1)
	assert.Equal(t, core.ViolationForbidden, got[0].Kind)
	assert.Equal(t, "subprocess", got[0].Rule)
	assert.Contains(t, got[0].Message, "subprocess.run")
}

func TestValidateHardcodedSecret(t *testing.T) {
	got := Default().Validate("extractor.py", "api_key = \"sk-live-123\"\n")

	require.Len(t, got, 1)
	assert.Equal(t, core.ViolationSecret, got[0].Kind)
	assert.Equal(t, "no_hardcoded_secrets", got[0].Rule)
}

func TestValidateSecretPlaceholdersAllowed(t *testing.T) {
	src := "api_key = \"${API_KEY}\"\npassword = \"<set via environment>\"\n"
	assert.Empty(t, Default().Validate("extractor.py", src))
}

func TestValidateMissingDocstrings(t *testing.T) {
	src := `class RecordExtractor(BaseExtractor):
    def extract(self, record: dict) -> dict:
        return {}

    def _helper(self):
        return 0
`
	got := Default().Validate("extractor.py", src)

	var rules []string
	for _, v := range got {
		require.Equal(t, core.ViolationRequired, v.Kind)
		rules = append(rules, v.Rule)
	}
	// Class and public method each lack a docstring; the private helper
	// is exempt from both obligations.
	assert.Equal(t, []string{RequireDocstrings, RequireDocstrings}, rules)
}

func TestValidateMissingAnnotations(t *testing.T) {
	src := `class RecordExtractor(BaseExtractor):
    """Doc."""

    def extract(self, record, *args, **kwargs):
        """Doc."""
        return {}
`
	got := Default().Validate("extractor.py", src)

	require.Len(t, got, 2)
	assert.Contains(t, got[0].Message, `parameter "record"`)
	assert.Contains(t, got[1].Message, "return type annotation")
}

func TestCheckInterfaceNoImplementingClass(t *testing.T) {
	src := "class Helper:\n    \"\"\"Doc.\"\"\"\n"
	got := Default().CheckInterface("extractor.py", src)

	require.Len(t, got, 1)
	assert.Equal(t, core.ViolationInterface, got[0].Kind)
	assert.Contains(t, got[0].Message, "BaseExtractor")
}

func TestCheckInterfaceMissingMethod(t *testing.T) {
	src := `class RecordExtractor(BaseExtractor):
    """Doc."""

    def setup(self) -> None:
        """Doc."""
        return None
`
	got := Default().CheckInterface("extractor.py", src)

	require.Len(t, got, 1)
	assert.Contains(t, got[0].Message, "missing required method extract")
}

func TestCheckInterfaceSatisfied(t *testing.T) {
	assert.Empty(t, Default().CheckInterface("extractor.py", cleanSource))
}

func TestCheckInterfaceDisabled(t *testing.T) {
	c := Default()
	c.RequiredPatterns = []string{RequireDocstrings}
	assert.Nil(t, c.CheckInterface("extractor.py", "x = 1\n"))
}

func TestParseOverridesDefaults(t *testing.T) {
	c, err := Parse([]byte("interface_name: BaseMapper\ninterface_methods: [map, validate]\n"))
	require.NoError(t, err)

	assert.Equal(t, "BaseMapper", c.InterfaceName)
	assert.Equal(t, []string{"map", "validate"}, c.InterfaceMethods)
	// Unspecified fields keep their defaults.
	assert.Contains(t, c.ForbiddenPatterns, "eval")
	assert.True(t, c.Requires(RequireInterface))
}

func TestParseInvalidYAML(t *testing.T) {
	_, err := Parse([]byte(":\n  - ["))
	require.Error(t, err)
	assert.True(t, errors.HasCode(err, errors.InvalidInput))
}

func TestLoadMissingFile(t *testing.T) {
	_, err := Load("testdata/does-not-exist.yaml")
	require.Error(t, err)
	assert.True(t, errors.HasCode(err, errors.InvalidInput))
}

func TestRenderPromptFragment(t *testing.T) {
	got := Default().RenderPromptFragment()

	assert.Contains(t, got, "NEVER use: ")
	assert.Contains(t, got, "eval")
	assert.Contains(t, got, "Only import from: ")
	assert.Contains(t, got, "MUST subclass BaseExtractor and implement: extract")
	assert.Contains(t, got, "type annotations")
	assert.Contains(t, got, "docstring")
	assert.Contains(t, got, "Never hardcode credentials")
}
