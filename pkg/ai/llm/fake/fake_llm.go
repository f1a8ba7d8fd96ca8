// Package fake provides a fake LLM that replays canned responses.
package fake

import (
	"context"
	"strings"
	"sync"

	"github.com/chriscow/interview-agents-go/pkg/ai/llm"
)

// FakeLLM is a fake LLM implementation for testing.
type FakeLLM struct {
	// Functions makes the fake answer requests that carry functions with a
	// call to the forced function, or the first one, using the canned
	// response as arguments.
	Functions bool

	mu        sync.Mutex
	responses []string
	errs      []error
	callCount int
	requests  []llm.ChatRequest
}

// NewFakeLLM creates a new fake LLM provider that cycles through responses.
func NewFakeLLM(responses ...string) *FakeLLM {
	if len(responses) == 0 {
		responses = []string{
			"Descreva uma situação em que você resolveu um conflito na equipe.",
		}
	}
	return &FakeLLM{responses: responses}
}

// FailNext makes the next len(errs) calls return the given errors in order.
func (f *FakeLLM) FailNext(errs ...error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.errs = append(f.errs, errs...)
}

// Chat returns the next canned response.
func (f *FakeLLM) Chat(ctx context.Context, req llm.ChatRequest) (llm.ChatResponse, error) {
	if err := ctx.Err(); err != nil {
		return llm.ChatResponse{}, err
	}

	f.mu.Lock()
	f.requests = append(f.requests, req)
	if len(f.errs) > 0 {
		err := f.errs[0]
		f.errs = f.errs[1:]
		f.mu.Unlock()
		return llm.ChatResponse{}, err
	}
	response := f.responses[f.callCount%len(f.responses)]
	f.callCount++
	f.mu.Unlock()

	if f.Functions && len(req.Functions) > 0 {
		name := req.ForceFunction
		if name == "" {
			name = req.Functions[0].Name
		}
		return llm.ChatResponse{
			Message:      llm.Message{Role: llm.RoleAssistant},
			FunctionCall: &llm.FunctionCall{Name: name, Arguments: response},
			TokensUsed:   len(strings.Fields(response)) + 10,
			FinishReason: "tool_calls",
		}, nil
	}

	return llm.ChatResponse{
		Message: llm.Message{
			Role:    llm.RoleAssistant,
			Content: response,
		},
		TokensUsed:   len(strings.Fields(response)) + 10,
		FinishReason: "stop",
	}, nil
}

// Requests returns a copy of every request received so far.
func (f *FakeLLM) Requests() []llm.ChatRequest {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]llm.ChatRequest, len(f.requests))
	copy(out, f.requests)
	return out
}

// Capabilities returns the fake LLM capabilities.
func (f *FakeLLM) Capabilities() llm.LLMCapabilities {
	return llm.LLMCapabilities{
		SupportsFunctions:  f.Functions,
		SupportsStreaming:  false,
		MaxTokens:          4096,
		SupportedModels:    []string{"fake-model-1"},
		SupportsSystemRole: true,
	}
}
