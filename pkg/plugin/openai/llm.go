package openai

import (
	"context"
	"log/slog"
	"time"

	openai "github.com/sashabaranov/go-openai"

	"github.com/chriscow/interview-agents-go/pkg/ai"
	"github.com/chriscow/interview-agents-go/pkg/ai/llm"
)

// ChatLLM implements llm.LLM with the chat completions API.
type ChatLLM struct {
	client *openai.Client
	model  string
	logger *slog.Logger
}

// NewChatLLM creates a chat provider. The model defaults to gpt-4o-mini.
func NewChatLLM(cfg Config) (*ChatLLM, error) {
	client, err := newClient(cfg)
	if err != nil {
		return nil, err
	}
	model := cfg.Model
	if model == "" {
		model = DefaultChatModel
	}
	return &ChatLLM{
		client: client,
		model:  model,
		logger: slog.Default().With(slog.String("component", "openai_llm")),
	}, nil
}

// Chat performs a chat completion.
func (o *ChatLLM) Chat(ctx context.Context, req llm.ChatRequest) (llm.ChatResponse, error) {
	start := time.Now()

	messages := make([]openai.ChatCompletionMessage, len(req.Messages))
	for i, msg := range req.Messages {
		messages[i] = openai.ChatCompletionMessage{
			Role:    string(msg.Role),
			Content: msg.Content,
		}
	}

	var tools []openai.Tool
	for _, fn := range req.Functions {
		tools = append(tools, openai.Tool{
			Type: openai.ToolTypeFunction,
			Function: &openai.FunctionDefinition{
				Name:        fn.Name,
				Description: fn.Description,
				Parameters:  fn.Parameters,
			},
		})
	}

	completionReq := openai.ChatCompletionRequest{
		Model:       o.model,
		Messages:    messages,
		MaxTokens:   req.MaxTokens,
		Temperature: req.Temperature,
		Tools:       tools,
	}
	if req.ForceFunction != "" {
		completionReq.ToolChoice = openai.ToolChoice{
			Type:     openai.ToolTypeFunction,
			Function: openai.ToolFunction{Name: req.ForceFunction},
		}
	}
	if req.ResponseFormat == llm.ResponseFormatJSON {
		completionReq.ResponseFormat = &openai.ChatCompletionResponseFormat{
			Type: openai.ChatCompletionResponseFormatTypeJSONObject,
		}
	}

	resp, err := o.client.CreateChatCompletion(ctx, completionReq)
	if err != nil {
		return llm.ChatResponse{}, classify(err, ai.ErrEmptyResponse, "chat completion request failed")
	}
	if len(resp.Choices) == 0 {
		return llm.ChatResponse{}, ai.NewRecoverableError(ai.ErrEmptyResponse, "no chat completion choices returned")
	}

	choice := resp.Choices[0]
	result := llm.ChatResponse{
		Message: llm.Message{
			Role:    llm.MessageRole(choice.Message.Role),
			Content: choice.Message.Content,
		},
		TokensUsed:   resp.Usage.TotalTokens,
		FinishReason: string(choice.FinishReason),
	}
	if len(choice.Message.ToolCalls) > 0 {
		toolCall := choice.Message.ToolCalls[0]
		result.FunctionCall = &llm.FunctionCall{
			Name:      toolCall.Function.Name,
			Arguments: toolCall.Function.Arguments,
		}
	}

	o.logger.Debug("chat completion finished",
		slog.String("model", o.model),
		slog.Int("tokens", resp.Usage.TotalTokens),
		slog.Duration("duration", time.Since(start)))
	return result, nil
}

// Capabilities returns the OpenAI provider's capabilities.
func (o *ChatLLM) Capabilities() llm.LLMCapabilities {
	return llm.LLMCapabilities{
		SupportsFunctions:  true,
		SupportsStreaming:  false,
		MaxTokens:          128000,
		SupportedModels:    []string{"gpt-4o-mini", "gpt-4o", "gpt-4-turbo"},
		SupportsSystemRole: true,
	}
}
