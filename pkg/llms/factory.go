package llms

import (
	"context"

	"github.com/XiaoConstantine/exemplar-go/pkg/core"
	"github.com/XiaoConstantine/exemplar-go/pkg/errors"
)

// ProviderConfig selects and configures one provider instance.
type ProviderConfig struct {
	Provider  string       // "anthropic" or "google"
	ModelID   core.ModelID // provider-specific model name
	APIKey    string       // empty falls back to the provider's env var
	CachePath string       // empty disables the response cache
}

// NewLLM constructs the configured provider, wrapped in the persistent
// response cache when a cache path is set.
func NewLLM(ctx context.Context, cfg ProviderConfig) (core.LLM, error) {
	var (
		llm core.LLM
		err error
	)
	switch cfg.Provider {
	case "anthropic":
		llm, err = NewAnthropicLLM(cfg.APIKey, cfg.ModelID)
	case "google", "gemini":
		llm, err = NewGeminiLLM(ctx, cfg.APIKey, cfg.ModelID)
	default:
		return nil, errors.WithFields(
			errors.New(errors.InvalidInput, "unsupported LLM provider"),
			errors.Fields{"provider": cfg.Provider})
	}
	if err != nil {
		return nil, err
	}

	if cfg.CachePath != "" {
		return NewCachedLLM(llm, cfg.CachePath)
	}
	return llm, nil
}
