package fake

import (
	"context"
	"errors"
	"testing"

	"github.com/chriscow/interview-agents-go/pkg/ai/llm"
)

func TestFakeLLMCapabilities(t *testing.T) {
	caps := NewFakeLLM().Capabilities()

	if caps.MaxTokens <= 0 {
		t.Error("Expected MaxTokens to be positive")
	}
	if len(caps.SupportedModels) == 0 {
		t.Error("Expected SupportedModels to be non-empty")
	}
	if !caps.SupportsSystemRole {
		t.Error("Expected SupportsSystemRole to be true")
	}
}

func TestFakeLLMChatCycles(t *testing.T) {
	provider := NewFakeLLM("um", "dois")
	req := llm.ChatRequest{Messages: []llm.Message{{Role: llm.RoleUser, Content: "Oi"}}}

	want := []string{"um", "dois", "um"}
	for i, w := range want {
		resp, err := provider.Chat(context.Background(), req)
		if err != nil {
			t.Fatalf("Chat() error = %v", err)
		}
		if resp.Message.Role != llm.RoleAssistant {
			t.Errorf("Expected assistant role, got %v", resp.Message.Role)
		}
		if resp.Message.Content != w {
			t.Errorf("call %d: got %q, want %q", i, resp.Message.Content, w)
		}
	}
	if len(provider.Requests()) != 3 {
		t.Errorf("Expected 3 recorded requests, got %d", len(provider.Requests()))
	}
}

func TestFakeLLMFailNext(t *testing.T) {
	boom := errors.New("boom")
	provider := NewFakeLLM("ok")
	provider.FailNext(boom)

	if _, err := provider.Chat(context.Background(), llm.ChatRequest{}); !errors.Is(err, boom) {
		t.Errorf("expected boom, got %v", err)
	}
	if resp, err := provider.Chat(context.Background(), llm.ChatRequest{}); err != nil || resp.Message.Content != "ok" {
		t.Errorf("expected recovery, got %q %v", resp.Message.Content, err)
	}
}

func TestFakeLLMCancelledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	if _, err := NewFakeLLM().Chat(ctx, llm.ChatRequest{}); !errors.Is(err, context.Canceled) {
		t.Errorf("expected context.Canceled, got %v", err)
	}
}

func TestFakeLLMFunctionCall(t *testing.T) {
	provider := NewFakeLLM(`{"score":90}`)
	provider.Functions = true
	if !provider.Capabilities().SupportsFunctions {
		t.Fatal("Expected SupportsFunctions to be true")
	}

	resp, err := provider.Chat(context.Background(), llm.ChatRequest{
		Messages:      []llm.Message{{Role: llm.RoleUser, Content: "Oi"}},
		Functions:     []llm.FunctionDefinition{{Name: "a"}, {Name: "b"}},
		ForceFunction: "b",
	})
	if err != nil {
		t.Fatalf("Chat failed: %v", err)
	}
	if resp.FunctionCall == nil {
		t.Fatal("Expected a function call")
	}
	if resp.FunctionCall.Name != "b" || resp.FunctionCall.Arguments != `{"score":90}` {
		t.Errorf("Unexpected function call %+v", resp.FunctionCall)
	}

	resp, err = provider.Chat(context.Background(), llm.ChatRequest{
		Messages: []llm.Message{{Role: llm.RoleUser, Content: "Oi"}},
	})
	if err != nil {
		t.Fatalf("Chat failed: %v", err)
	}
	if resp.FunctionCall != nil || resp.Message.Content != `{"score":90}` {
		t.Errorf("Expected a plain reply without functions, got %+v", resp)
	}
}
