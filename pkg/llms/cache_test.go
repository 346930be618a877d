package llms

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/XiaoConstantine/exemplar-go/internal/testutil"
	"github.com/XiaoConstantine/exemplar-go/pkg/core"
	"github.com/XiaoConstantine/exemplar-go/pkg/errors"
)

func newCache(t *testing.T, inner core.LLM) *CachedLLM {
	t.Helper()
	c, err := NewCachedLLM(inner, filepath.Join(t.TempDir(), "cache.db"))
	require.NoError(t, err)
	t.Cleanup(func() { c.Close() })
	return c
}

func TestCachedLLMReadThrough(t *testing.T) {
	inner := testutil.NewScriptedLLM("first response", "second response")
	c := newCache(t, inner)

	resp, err := c.Generate(context.Background(), "prompt", core.WithTemperature(0.2))
	require.NoError(t, err)
	assert.Equal(t, "first response", resp.Content)
	assert.Equal(t, 1, inner.Calls())

	// Identical request hits the cache; the provider is not consulted.
	resp, err = c.Generate(context.Background(), "prompt", core.WithTemperature(0.2))
	require.NoError(t, err)
	assert.Equal(t, "first response", resp.Content)
	assert.Equal(t, 1, inner.Calls())
	assert.Equal(t, true, resp.Metadata["cached"])
	require.NotNil(t, resp.Usage)
	assert.Equal(t, 30, resp.Usage.TotalTokens)
}

func TestCachedLLMDistinguishesRequests(t *testing.T) {
	inner := testutil.NewScriptedLLM("a", "b", "c")
	c := newCache(t, inner)

	_, err := c.Generate(context.Background(), "prompt", core.WithTemperature(0.2))
	require.NoError(t, err)
	_, err = c.Generate(context.Background(), "prompt", core.WithTemperature(0.3))
	require.NoError(t, err)
	_, err = c.Generate(context.Background(), "other prompt", core.WithTemperature(0.2))
	require.NoError(t, err)

	assert.Equal(t, 3, inner.Calls())
}

func TestCachedLLMPersistsAcrossInstances(t *testing.T) {
	path := filepath.Join(t.TempDir(), "cache.db")

	inner := testutil.NewScriptedLLM("persisted")
	first, err := NewCachedLLM(inner, path)
	require.NoError(t, err)
	_, err = first.Generate(context.Background(), "prompt")
	require.NoError(t, err)
	require.NoError(t, first.Close())

	second, err := NewCachedLLM(testutil.NewScriptedLLM("fresh"), path)
	require.NoError(t, err)
	defer second.Close()

	resp, err := second.Generate(context.Background(), "prompt")
	require.NoError(t, err)
	assert.Equal(t, "persisted", resp.Content)
}

func TestCachedLLMExpiresOldEntries(t *testing.T) {
	inner := testutil.NewScriptedLLM("stale", "fresh")
	c, err := NewCachedLLM(inner, filepath.Join(t.TempDir(), "cache.db"),
		WithTTL(time.Hour))
	require.NoError(t, err)
	t.Cleanup(func() { c.Close() })

	_, err = c.Generate(context.Background(), "prompt")
	require.NoError(t, err)
	require.Equal(t, 1, inner.Calls())

	// Backdate the entry past the TTL; the next lookup must miss and
	// consult the provider again.
	_, err = c.db.Exec("UPDATE llm_responses SET created_at = created_at - ?",
		int64(2*time.Hour/time.Second))
	require.NoError(t, err)

	resp, err := c.Generate(context.Background(), "prompt")
	require.NoError(t, err)
	assert.Equal(t, "fresh", resp.Content)
	assert.Equal(t, 2, inner.Calls())

	// The refreshed entry is served from cache again.
	resp, err = c.Generate(context.Background(), "prompt")
	require.NoError(t, err)
	assert.Equal(t, "fresh", resp.Content)
	assert.Equal(t, 2, inner.Calls())
}

func TestCachedLLMZeroTTLDisablesExpiry(t *testing.T) {
	inner := testutil.NewScriptedLLM("kept", "unused")
	c, err := NewCachedLLM(inner, filepath.Join(t.TempDir(), "cache.db"),
		WithTTL(0))
	require.NoError(t, err)
	t.Cleanup(func() { c.Close() })

	_, err = c.Generate(context.Background(), "prompt")
	require.NoError(t, err)

	_, err = c.db.Exec("UPDATE llm_responses SET created_at = 0")
	require.NoError(t, err)

	resp, err := c.Generate(context.Background(), "prompt")
	require.NoError(t, err)
	assert.Equal(t, "kept", resp.Content)
	assert.Equal(t, 1, inner.Calls())
}

func TestCachedLLMDoesNotCacheFailures(t *testing.T) {
	inner := testutil.NewScriptedLLM("recovered").
		FailAt(0, errors.New(errors.LLMGenerationFailed, "boom"))
	c := newCache(t, inner)

	_, err := c.Generate(context.Background(), "prompt")
	require.Error(t, err)

	resp, err := c.Generate(context.Background(), "prompt")
	require.NoError(t, err)
	assert.Equal(t, "recovered", resp.Content)
	assert.Equal(t, 2, inner.Calls())
}

func TestCachedLLMIdentity(t *testing.T) {
	c := newCache(t, testutil.NewScriptedLLM())
	assert.Equal(t, "scripted", c.ProviderName())
	assert.Equal(t, "scripted-model", c.ModelID())
}

func TestCacheKey(t *testing.T) {
	base := core.NewGenerateOptions()

	k1 := cacheKey("anthropic", "m", "prompt", base)
	k2 := cacheKey("anthropic", "m", "prompt", base)
	assert.Equal(t, k1, k2)
	assert.Len(t, k1, 64)

	warm := core.NewGenerateOptions()
	warm.Temperature = 0.9
	assert.NotEqual(t, k1, cacheKey("anthropic", "m", "prompt", warm))
	assert.NotEqual(t, k1, cacheKey("anthropic", "m", "other", base))
	assert.NotEqual(t, k1, cacheKey("google", "m", "prompt", base))
	assert.NotEqual(t, k1, cacheKey("anthropic", "m2", "prompt", base))

	stopped := core.NewGenerateOptions()
	stopped.Stop = []string{"END"}
	assert.NotEqual(t, k1, cacheKey("anthropic", "m", "prompt", stopped))
}
