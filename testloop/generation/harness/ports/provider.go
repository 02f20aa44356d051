package harnessports

import (
	"context"
)

// PromptInput aggregates everything the provider needs to produce a completion.
type PromptInput struct {
	Messages []Turn            // immutable snapshot of the conversation
	Tools    []ToolSpec        // tool declarations available to the model
	Meta     map[string]string // lightweight metadata for tracing
}

// Options controls sampling and tool preferences.
type Options struct {
	MaxNewTokens int
	Temperature  float32
	// ToolChoice: "auto" | "none" | "required"
	ToolChoice string
}

// Usage captures token accounting for cost/telemetry.
type Usage struct {
	PromptTokens     int
	CompletionTokens int
	TotalTokens      int
}

// Completion is the provider's response: final text, tool calls, or both.
type Completion struct {
	Text      string
	ToolCalls []ToolCall
	Usage     *Usage // optional usage information
}

// Provider is the abstraction for the reasoning engine.
type Provider interface {
	Complete(ctx context.Context, in PromptInput, opts Options) (Completion, error)
}
