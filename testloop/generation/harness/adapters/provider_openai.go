package adapters

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/ZanzyTHEbar/testloop/testloop/config"
	ports "github.com/ZanzyTHEbar/testloop/testloop/generation/harness/ports"
	"github.com/rs/zerolog"
	"github.com/sashabaranov/go-openai"
)

// ErrNoChoices is returned when the endpoint answers with an empty choice list.
var ErrNoChoices = errors.New("reasoning engine returned no choices")

// OpenAIProvider implements Provider against any OpenAI-compatible
// chat completions endpoint.
type OpenAIProvider struct {
	client  *openai.Client
	model   string
	timeout time.Duration
	logger  zerolog.Logger
}

// NewOpenAIProvider builds a client from the LLM settings.
func NewOpenAIProvider(cfg config.LLMConfig, logger zerolog.Logger) (*OpenAIProvider, error) {
	if cfg.APIKey == "" {
		return nil, fmt.Errorf("llm api key is not set")
	}
	if cfg.Model == "" {
		return nil, fmt.Errorf("llm model is not set")
	}

	clientCfg := openai.DefaultConfig(cfg.APIKey)
	if cfg.BaseURL != "" {
		clientCfg.BaseURL = cfg.BaseURL
	}

	logger.Info().Str("model", cfg.Model).Str("base_url", clientCfg.BaseURL).Msg("Initializing OpenAI-compatible client")
	return &OpenAIProvider{
		client:  openai.NewClientWithConfig(clientCfg),
		model:   cfg.Model,
		timeout: cfg.Timeout,
		logger:  logger.With().Str("component", "provider").Logger(),
	}, nil
}

// Complete sends the conversation snapshot and tool declarations and maps
// the first choice back to a Completion.
func (p *OpenAIProvider) Complete(ctx context.Context, in ports.PromptInput, opts ports.Options) (ports.Completion, error) {
	if p.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, p.timeout)
		defer cancel()
	}

	req := openai.ChatCompletionRequest{
		Model:       p.model,
		Messages:    toOpenAIMessages(in.Messages),
		Temperature: opts.Temperature,
	}
	if opts.MaxNewTokens > 0 {
		req.MaxCompletionTokens = opts.MaxNewTokens
	}
	if len(in.Tools) > 0 {
		req.Tools = toOpenAITools(in.Tools)
		if opts.ToolChoice != "" {
			req.ToolChoice = opts.ToolChoice
		}
	}

	p.logger.Debug().
		Int("messages", len(req.Messages)).
		Int("tools", len(req.Tools)).
		Str("iteration", in.Meta["iteration"]).
		Msg("Requesting completion")

	resp, err := p.client.CreateChatCompletion(ctx, req)
	if err != nil {
		return ports.Completion{}, fmt.Errorf("chat completion failed: %w", err)
	}
	if len(resp.Choices) == 0 {
		return ports.Completion{}, ErrNoChoices
	}

	choice := resp.Choices[0]
	p.logger.Debug().
		Str("finish_reason", string(choice.FinishReason)).
		Int("tool_calls", len(choice.Message.ToolCalls)).
		Msg("Received completion")

	out := ports.Completion{
		Text: choice.Message.Content,
		Usage: &ports.Usage{
			PromptTokens:     resp.Usage.PromptTokens,
			CompletionTokens: resp.Usage.CompletionTokens,
			TotalTokens:      resp.Usage.TotalTokens,
		},
	}
	for _, tc := range choice.Message.ToolCalls {
		out.ToolCalls = append(out.ToolCalls, ports.ToolCall{
			ID:   tc.ID,
			Name: tc.Function.Name,
			Args: json.RawMessage(tc.Function.Arguments),
		})
	}
	return out, nil
}

func toOpenAIMessages(turns []ports.Turn) []openai.ChatCompletionMessage {
	msgs := make([]openai.ChatCompletionMessage, 0, len(turns))
	for _, turn := range turns {
		m := turn.Message()
		msg := openai.ChatCompletionMessage{
			Role:       string(m.Role),
			Content:    m.Content,
			ToolCallID: m.ToolCallID,
		}
		for _, tc := range m.ToolCalls {
			msg.ToolCalls = append(msg.ToolCalls, openai.ToolCall{
				ID:   tc.ID,
				Type: openai.ToolTypeFunction,
				Function: openai.FunctionCall{
					Name:      tc.Name,
					Arguments: string(tc.Args),
				},
			})
		}
		msgs = append(msgs, msg)
	}
	return msgs
}

func toOpenAITools(specs []ports.ToolSpec) []openai.Tool {
	tools := make([]openai.Tool, 0, len(specs))
	for _, spec := range specs {
		tools = append(tools, openai.Tool{
			Type: openai.ToolTypeFunction,
			Function: &openai.FunctionDefinition{
				Name:        spec.Name,
				Description: spec.Description,
				Parameters:  json.RawMessage(spec.JSONSchema),
			},
		})
	}
	return tools
}

var _ ports.Provider = (*OpenAIProvider)(nil)
