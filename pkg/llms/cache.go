package llms

import (
	"context"
	"crypto/sha256"
	"database/sql"
	"encoding/hex"
	"fmt"
	"strings"
	"time"

	_ "github.com/mattn/go-sqlite3"

	"github.com/XiaoConstantine/exemplar-go/pkg/core"
	"github.com/XiaoConstantine/exemplar-go/pkg/errors"
	"github.com/XiaoConstantine/exemplar-go/pkg/logging"
)

// CachedLLM wraps a provider with a persistent SQLite response cache.
// Identical completion requests (model, prompt and sampling settings) hit
// the cache instead of the provider, which makes reruns over the same
// example set cheap and reproducible. Entries older than the configured
// TTL are treated as misses and refreshed from the provider.
type CachedLLM struct {
	inner core.LLM
	db    *sql.DB
	ttl   time.Duration
}

// DefaultTTL is how long a cached response stays valid.
const DefaultTTL = 7 * 24 * time.Hour

// CacheOption configures a CachedLLM.
type CacheOption func(*CachedLLM)

// WithTTL overrides the cache entry lifetime. A zero or negative
// duration disables expiry.
func WithTTL(ttl time.Duration) CacheOption {
	return func(c *CachedLLM) {
		c.ttl = ttl
	}
}

// NewCachedLLM opens (or creates) the cache database at path.
func NewCachedLLM(inner core.LLM, path string, opts ...CacheOption) (*CachedLLM, error) {
	db, err := sql.Open("sqlite3", path)
	if err != nil {
		return nil, errors.Wrap(err, errors.InvalidInput, "failed to open response cache")
	}
	db.SetMaxOpenConns(4)
	db.SetConnMaxLifetime(time.Hour)

	schema := `
	CREATE TABLE IF NOT EXISTS llm_responses (
		key               TEXT PRIMARY KEY,
		content           BLOB NOT NULL,
		prompt_tokens     INTEGER NOT NULL,
		completion_tokens INTEGER NOT NULL,
		created_at        INTEGER NOT NULL
	);
	`
	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, errors.Wrap(err, errors.InvalidInput, "failed to initialize response cache")
	}
	// WAL keeps concurrent pipeline stages from serializing on the cache.
	if _, err := db.Exec("PRAGMA journal_mode=WAL"); err != nil {
		db.Close()
		return nil, errors.Wrap(err, errors.InvalidInput, "failed to enable WAL mode")
	}

	c := &CachedLLM{inner: inner, db: db, ttl: DefaultTTL}
	for _, opt := range opts {
		opt(c)
	}
	return c, nil
}

func (c *CachedLLM) ProviderName() string { return c.inner.ProviderName() }
func (c *CachedLLM) ModelID() string      { return c.inner.ModelID() }

func (c *CachedLLM) Close() error { return c.db.Close() }

// Generate implements core.LLM with read-through caching.
func (c *CachedLLM) Generate(ctx context.Context, prompt string, options ...core.GenerateOption) (*core.LLMResponse, error) {
	logger := logging.GetLogger()
	opts := core.NewGenerateOptions()
	for _, opt := range options {
		opt(opts)
	}
	key := cacheKey(c.inner.ProviderName(), c.inner.ModelID(), prompt, opts)

	if resp, ok := c.lookup(ctx, key); ok {
		logger.Debug(ctx, "Response cache hit for %s", c.inner.ModelID())
		return resp, nil
	}

	resp, err := c.inner.Generate(ctx, prompt, options...)
	if err != nil {
		return nil, err
	}
	c.store(ctx, key, resp)
	return resp, nil
}

func (c *CachedLLM) lookup(ctx context.Context, key string) (*core.LLMResponse, bool) {
	row := c.db.QueryRowContext(ctx,
		"SELECT content, prompt_tokens, completion_tokens, created_at FROM llm_responses WHERE key = ?", key)

	var content []byte
	var promptTokens, completionTokens int
	var created int64
	if err := row.Scan(&content, &promptTokens, &completionTokens, &created); err != nil {
		return nil, false
	}
	if c.ttl > 0 && time.Since(time.Unix(created, 0)) > c.ttl {
		// Expired entries are treated as misses and cleaned up eagerly
		// so the fresh response can take the slot.
		if _, err := c.db.ExecContext(ctx, "DELETE FROM llm_responses WHERE key = ?", key); err != nil {
			logging.GetLogger().Warn(ctx, "Failed to evict expired cached response: %v", err)
		}
		return nil, false
	}
	return &core.LLMResponse{
		Content: string(content),
		Usage: &core.TokenInfo{
			PromptTokens:     promptTokens,
			CompletionTokens: completionTokens,
			TotalTokens:      promptTokens + completionTokens,
		},
		Metadata: map[string]interface{}{"cached": true},
	}, true
}

func (c *CachedLLM) store(ctx context.Context, key string, resp *core.LLMResponse) {
	var promptTokens, completionTokens int
	if resp.Usage != nil {
		promptTokens = resp.Usage.PromptTokens
		completionTokens = resp.Usage.CompletionTokens
	}
	_, err := c.db.ExecContext(ctx,
		"INSERT OR REPLACE INTO llm_responses (key, content, prompt_tokens, completion_tokens, created_at) VALUES (?, ?, ?, ?, ?)",
		key, []byte(resp.Content), promptTokens, completionTokens, time.Now().Unix())
	if err != nil {
		// A failed write only costs a future cache miss.
		logging.GetLogger().Warn(ctx, "Failed to store cached response: %v", err)
	}
}

// cacheKey hashes everything that influences the completion.
func cacheKey(provider, model, prompt string, opts *core.GenerateOptions) string {
	h := sha256.New()
	fmt.Fprintf(h, "%s|%s|%d|%.6f|%.6f|%s|", provider, model,
		opts.MaxTokens, opts.Temperature, opts.TopP, strings.Join(opts.Stop, "\x00"))
	h.Write([]byte(prompt))
	return hex.EncodeToString(h.Sum(nil))
}
