// Package testutil provides shared test doubles.
package testutil

import (
	"context"
	"sync"

	"github.com/stretchr/testify/mock"

	"github.com/XiaoConstantine/exemplar-go/pkg/core"
)

// MockLLM implements core.LLM with testify expectations.
type MockLLM struct {
	mock.Mock
}

func (m *MockLLM) Generate(ctx context.Context, prompt string, opts ...core.GenerateOption) (*core.LLMResponse, error) {
	args := m.Called(ctx, prompt, opts)
	if resp := args.Get(0); resp != nil {
		return resp.(*core.LLMResponse), args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *MockLLM) ProviderName() string {
	args := m.Called()
	return args.String(0)
}

func (m *MockLLM) ModelID() string {
	args := m.Called()
	return args.String(0)
}

// ScriptedLLM returns canned responses in order, recording every prompt.
// It is the cheap double for pipeline tests where the exact prompt does
// not matter but the sequence of calls does.
type ScriptedLLM struct {
	mu        sync.Mutex
	responses []string
	errs      []error
	Prompts   []string
	Options   []*core.GenerateOptions
}

// NewScriptedLLM queues the given responses. A nil error slot means the
// corresponding call succeeds.
func NewScriptedLLM(responses ...string) *ScriptedLLM {
	return &ScriptedLLM{responses: responses}
}

// FailAt makes the idx-th call (0-based) return err instead of a response.
func (s *ScriptedLLM) FailAt(idx int, err error) *ScriptedLLM {
	for len(s.errs) <= idx {
		s.errs = append(s.errs, nil)
	}
	s.errs[idx] = err
	return s
}

func (s *ScriptedLLM) Generate(_ context.Context, prompt string, opts ...core.GenerateOption) (*core.LLMResponse, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	options := core.NewGenerateOptions()
	for _, opt := range opts {
		opt(options)
	}
	call := len(s.Prompts)
	s.Prompts = append(s.Prompts, prompt)
	s.Options = append(s.Options, options)

	if call < len(s.errs) && s.errs[call] != nil {
		return nil, s.errs[call]
	}
	if call >= len(s.responses) {
		return &core.LLMResponse{Content: ""}, nil
	}
	return &core.LLMResponse{
		Content: s.responses[call],
		Usage:   &core.TokenInfo{PromptTokens: 10, CompletionTokens: 20, TotalTokens: 30},
	}, nil
}

func (s *ScriptedLLM) ProviderName() string { return "scripted" }
func (s *ScriptedLLM) ModelID() string      { return "scripted-model" }

// Calls reports how many completions were issued.
func (s *ScriptedLLM) Calls() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.Prompts)
}
