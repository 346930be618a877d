package core

import "context"

// TokenInfo tracks token usage for one completion.
type TokenInfo struct {
	PromptTokens     int
	CompletionTokens int
	TotalTokens      int
}

// LLMResponse is the result of one completion call.
type LLMResponse struct {
	Content  string
	Usage    *TokenInfo
	Metadata map[string]interface{}
}

// ModelID identifies a concrete model at a provider.
type ModelID string

// LLM is the narrow collaborator contract the pipeline depends on. Model
// selection, authentication, retry/backoff and caching are the provider's
// responsibility; the pipeline only issues completions and must treat a
// retry-exhausted failure as a hard generation error.
type LLM interface {
	// Generate produces a text completion for the given prompt.
	Generate(ctx context.Context, prompt string, options ...GenerateOption) (*LLMResponse, error)

	ProviderName() string
	ModelID() string
}

// GenerateOption configures a single completion call.
type GenerateOption func(*GenerateOptions)

// GenerateOptions holds per-call generation settings.
type GenerateOptions struct {
	MaxTokens   int
	Temperature float64
	TopP        float64
	Stop        []string
}

// NewGenerateOptions returns options with the defaults providers assume
// when the caller sets nothing.
func NewGenerateOptions() *GenerateOptions {
	return &GenerateOptions{
		MaxTokens:   8192,
		Temperature: 0.5,
	}
}

func WithMaxTokens(n int) GenerateOption {
	return func(o *GenerateOptions) {
		o.MaxTokens = n
	}
}

func WithTemperature(t float64) GenerateOption {
	return func(o *GenerateOptions) {
		o.Temperature = t
	}
}

func WithTopP(p float64) GenerateOption {
	return func(o *GenerateOptions) {
		o.TopP = p
	}
}

func WithStopSequences(stop ...string) GenerateOption {
	return func(o *GenerateOptions) {
		o.Stop = stop
	}
}

// BaseLLM carries the provider/model identity shared by all providers.
type BaseLLM struct {
	provider string
	modelID  ModelID
}

func NewBaseLLM(provider string, modelID ModelID) *BaseLLM {
	return &BaseLLM{provider: provider, modelID: modelID}
}

func (b *BaseLLM) ProviderName() string {
	return b.provider
}

func (b *BaseLLM) ModelID() string {
	return string(b.modelID)
}
