package llms

import (
	"context"
	"os"
	"time"

	genai "google.golang.org/genai"

	"github.com/XiaoConstantine/exemplar-go/pkg/core"
	"github.com/XiaoConstantine/exemplar-go/pkg/errors"
	"github.com/XiaoConstantine/exemplar-go/pkg/logging"
)

// GeminiLLM implements core.LLM against Google's Gemini API through the
// official genai client.
type GeminiLLM struct {
	client *genai.Client
	*core.BaseLLM
}

// NewGeminiLLM builds a provider for the given model. The API key falls
// back to GEMINI_API_KEY when empty.
func NewGeminiLLM(ctx context.Context, apiKey string, modelID core.ModelID) (*GeminiLLM, error) {
	if apiKey == "" {
		apiKey = os.Getenv("GEMINI_API_KEY")
	}
	if apiKey == "" {
		return nil, errors.New(errors.InvalidInput, "Gemini API key is required")
	}

	client, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey:  apiKey,
		Backend: genai.BackendGeminiAPI,
	})
	if err != nil {
		return nil, errors.Wrap(err, errors.InvalidInput, "failed to create Gemini client")
	}
	return &GeminiLLM{
		client:  client,
		BaseLLM: core.NewBaseLLM("google", modelID),
	}, nil
}

// Generate implements core.LLM.
func (g *GeminiLLM) Generate(ctx context.Context, prompt string, options ...core.GenerateOption) (*core.LLMResponse, error) {
	logger := logging.GetLogger()
	opts := core.NewGenerateOptions()
	for _, opt := range options {
		opt(opts)
	}

	cfg := &genai.GenerateContentConfig{
		Temperature:     genai.Ptr(float32(opts.Temperature)),
		MaxOutputTokens: int32(opts.MaxTokens),
	}
	if opts.TopP > 0 {
		cfg.TopP = genai.Ptr(float32(opts.TopP))
	}
	if len(opts.Stop) > 0 {
		cfg.StopSequences = opts.Stop
	}
	contents := []*genai.Content{{Parts: []*genai.Part{{Text: prompt}}}}

	var lastErr error
	for attempt := 0; attempt < maxAttempts; attempt++ {
		if attempt > 0 {
			select {
			case <-ctx.Done():
				return nil, errors.CheckContext(ctx, "gemini generation")
			case <-time.After(retryBaseDelay << (attempt - 1)):
			}
		}

		resp, err := g.client.Models.GenerateContent(ctx, g.ModelID(), contents, cfg)
		if err != nil {
			logger.Error(ctx, "Gemini API error: %v", err)
			lastErr = err
			continue
		}
		if len(resp.Candidates) == 0 || resp.Candidates[0].Content == nil || len(resp.Candidates[0].Content.Parts) == 0 {
			lastErr = errors.New(errors.InvalidResponse, "received empty content from Gemini API")
			continue
		}

		out := &core.LLMResponse{Content: resp.Candidates[0].Content.Parts[0].Text}
		if resp.UsageMetadata != nil {
			out.Usage = &core.TokenInfo{
				PromptTokens:     int(resp.UsageMetadata.PromptTokenCount),
				CompletionTokens: int(resp.UsageMetadata.CandidatesTokenCount),
				TotalTokens:      int(resp.UsageMetadata.TotalTokenCount),
			}
			logger.Debug(ctx, "Gemini response: %d prompt tokens, %d completion tokens",
				resp.UsageMetadata.PromptTokenCount, resp.UsageMetadata.CandidatesTokenCount)
		}
		return out, nil
	}

	return nil, errors.WithFields(
		errors.Wrap(lastErr, errors.LLMGenerationFailed, "failed to generate response"),
		errors.Fields{
			"model":      g.ModelID(),
			"max_tokens": opts.MaxTokens,
			"attempts":   maxAttempts,
		})
}
