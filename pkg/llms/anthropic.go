// Package llms provides the concrete LLM providers behind the core.LLM
// interface, plus a persistent response cache that wraps any of them.
package llms

import (
	"context"
	stderrors "errors"
	"os"
	"strings"
	"time"

	"github.com/anthropics/anthropic-sdk-go"
	"github.com/anthropics/anthropic-sdk-go/option"

	"github.com/XiaoConstantine/exemplar-go/pkg/core"
	"github.com/XiaoConstantine/exemplar-go/pkg/errors"
	"github.com/XiaoConstantine/exemplar-go/pkg/logging"
)

// maxAttempts bounds provider-side retries. Past the last attempt the
// failure surfaces as a hard generation error; callers never retry.
const maxAttempts = 3

const retryBaseDelay = 300 * time.Millisecond

// AnthropicLLM implements core.LLM against Anthropic's Messages API.
type AnthropicLLM struct {
	client *anthropic.Client
	*core.BaseLLM
}

// NewAnthropicLLM builds a provider for the given model. The API key falls
// back to ANTHROPIC_API_KEY when empty.
func NewAnthropicLLM(apiKey string, modelID core.ModelID) (*AnthropicLLM, error) {
	if apiKey == "" {
		apiKey = os.Getenv("ANTHROPIC_API_KEY")
	}
	if apiKey == "" {
		return nil, errors.New(errors.InvalidInput, "Anthropic API key is required")
	}
	if !isValidAnthropicModel(string(modelID)) {
		return nil, errors.WithFields(
			errors.New(errors.InvalidInput, "unsupported Anthropic model"),
			errors.Fields{"model": modelID})
	}

	client := anthropic.NewClient(option.WithAPIKey(apiKey))
	return &AnthropicLLM{
		client:  &client,
		BaseLLM: core.NewBaseLLM("anthropic", modelID),
	}, nil
}

func isValidAnthropicModel(model string) bool {
	validPrefixes := []string{
		"claude-3",
		"claude-4",
		"claude-haiku",
		"claude-sonnet",
		"claude-opus",
	}
	for _, prefix := range validPrefixes {
		if strings.HasPrefix(model, prefix) {
			return true
		}
	}
	return false
}

// Generate implements core.LLM.
func (a *AnthropicLLM) Generate(ctx context.Context, prompt string, options ...core.GenerateOption) (*core.LLMResponse, error) {
	logger := logging.GetLogger()
	opts := core.NewGenerateOptions()
	for _, opt := range options {
		opt(opts)
	}

	params := anthropic.MessageNewParams{
		Model: anthropic.Model(a.ModelID()),
		Messages: []anthropic.MessageParam{
			anthropic.NewUserMessage(anthropic.NewTextBlock(prompt)),
		},
		MaxTokens:   int64(opts.MaxTokens),
		Temperature: anthropic.Float(opts.Temperature),
	}
	if opts.TopP > 0 {
		params.TopP = anthropic.Float(opts.TopP)
	}
	if len(opts.Stop) > 0 {
		params.StopSequences = opts.Stop
	}

	var lastErr error
	for attempt := 0; attempt < maxAttempts; attempt++ {
		if attempt > 0 {
			select {
			case <-ctx.Done():
				return nil, errors.CheckContext(ctx, "anthropic generation")
			case <-time.After(retryBaseDelay << (attempt - 1)):
			}
		}

		message, err := a.client.Messages.New(ctx, params)
		if err != nil {
			var apiErr *anthropic.Error
			if stderrors.As(err, &apiErr) {
				logger.Error(ctx, "Anthropic API error: status code %d", apiErr.StatusCode)
			}
			lastErr = err
			continue
		}
		if message == nil || len(message.Content) == 0 {
			lastErr = errors.New(errors.InvalidResponse, "received empty content from Anthropic API")
			continue
		}

		var responseText string
		if block := message.Content[0]; block.Type == "text" {
			responseText = block.Text
		}
		usage := &core.TokenInfo{
			PromptTokens:     int(message.Usage.InputTokens),
			CompletionTokens: int(message.Usage.OutputTokens),
			TotalTokens:      int(message.Usage.InputTokens + message.Usage.OutputTokens),
		}
		logger.Debug(ctx, "Anthropic response: %d prompt tokens, %d completion tokens",
			message.Usage.InputTokens, message.Usage.OutputTokens)
		return &core.LLMResponse{Content: responseText, Usage: usage}, nil
	}

	return nil, errors.WithFields(
		errors.Wrap(lastErr, errors.LLMGenerationFailed, "failed to generate response"),
		errors.Fields{
			"model":      a.ModelID(),
			"max_tokens": opts.MaxTokens,
			"attempts":   maxAttempts,
		})
}
