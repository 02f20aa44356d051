package harness

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"time"

	ports "github.com/ZanzyTHEbar/testloop/testloop/generation/harness/ports"
	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

var (
	// ErrInvalidRequest reports a request the loop refuses to start.
	ErrInvalidRequest = errors.New("invalid orchestration request")
	// ErrProvider wraps a failed reasoning engine call.
	ErrProvider = errors.New("reasoning engine call failed")
)

// StopReason says why the loop ended.
type StopReason string

const (
	StopCompleted      StopReason = "completed"
	StopIterationLimit StopReason = "iteration_limit"
	StopProviderError  StopReason = "provider_error"
	StopCancelled      StopReason = "cancelled"
)

// Request configures the orchestration run.
type Request struct {
	ConversationID string // generated when empty
	System         string
	Prompt         string
	Registry       *Registry
	MaxIterations  int // engine calls allowed, at least 1
	Observers      []ports.Observer
}

// Response is the final output of the orchestrator. It is populated on every
// stop, including engine failures, so partial work is never lost.
type Response struct {
	ConversationID string
	Text           string // final answer when Stop is StopCompleted
	Fallback       string // code extracted from Text, if any
	Turns          []ports.Turn
	Log            []ports.ExecutionLogEntry
	Iterations     int
	Stop           StopReason
	Err            error // engine or context error behind Stop
	Usage          ports.Usage
}

// Diagnostic is the human-readable account of a non-normal stop.
func (r *Response) Diagnostic() string {
	switch r.Stop {
	case StopIterationLimit:
		return fmt.Sprintf("Stopped after reaching the iteration limit (%d)", r.Iterations)
	case StopProviderError:
		return fmt.Sprintf("Reasoning engine failed at iteration %d: %v", r.Iterations, r.Err)
	case StopCancelled:
		return fmt.Sprintf("Run cancelled: %v", r.Err)
	default:
		return ""
	}
}

func (r *Response) addUsage(u *ports.Usage) {
	if u == nil {
		return
	}
	r.Usage.PromptTokens += u.PromptTokens
	r.Usage.CompletionTokens += u.CompletionTokens
	r.Usage.TotalTokens += u.TotalTokens
}

// HarnessOrchestrator coordinates the full tool-calling loop.
type HarnessOrchestrator struct {
	provider ports.Provider
	builder  *PromptBuilder
	parser   *OutputParser
	store    ports.ConversationStore
	tracer   ports.Tracer
	options  ports.Options
	logger   zerolog.Logger

	parseTextCalls bool
}

// NewHarnessOrchestrator creates a new orchestrator with dependencies.
func NewHarnessOrchestrator(
	provider ports.Provider,
	builder *PromptBuilder,
	store ports.ConversationStore,
	tracer ports.Tracer,
	options ports.Options,
	logger zerolog.Logger,
) *HarnessOrchestrator {
	if builder == nil {
		builder = NewPromptBuilder()
	}
	if store == nil {
		store = &noOpStore{}
	}
	if tracer == nil {
		tracer = &noOpTracer{}
	}
	return &HarnessOrchestrator{
		provider: provider,
		builder:  builder,
		parser:   NewOutputParser(),
		store:    store,
		tracer:   tracer,
		options:  options,
		logger:   logger.With().Str("component", "orchestrator").Logger(),
	}
}

// WithTextToolCalls makes the loop dispatch tool calls quoted as a JSON array
// in plain assistant text. Without it a text-only answer always ends the run.
func (o *HarnessOrchestrator) WithTextToolCalls(enabled bool) *HarnessOrchestrator {
	o.parseTextCalls = enabled
	return o
}

// Run drives the engine until it answers without tool calls, the iteration
// cap is hit, the engine fails or ctx is cancelled. The returned Response is
// non-nil whenever the request was valid; the error is non-nil for engine
// failures and cancellation.
func (o *HarnessOrchestrator) Run(ctx context.Context, req *Request) (*Response, error) {
	if req == nil || req.Registry == nil {
		return nil, fmt.Errorf("%w: a tool registry is required", ErrInvalidRequest)
	}
	if req.MaxIterations < 1 {
		return nil, fmt.Errorf("%w: max iterations must be at least 1, got %d", ErrInvalidRequest, req.MaxIterations)
	}
	if o.provider == nil {
		return nil, fmt.Errorf("%w: no reasoning engine configured", ErrInvalidRequest)
	}

	convID := req.ConversationID
	if convID == "" {
		convID = uuid.NewString()
	}

	ctx, finish := o.tracer.StartSpan(ctx, "orchestrate", map[string]any{
		"conversation_id": convID,
		"tool_count":      len(req.Registry.Names()),
		"max_iterations":  req.MaxIterations,
	})

	conv := NewConversation(convID)
	for _, turn := range o.builder.Seed(req.System, req.Prompt) {
		o.append(ctx, conv, turn)
	}

	resp := &Response{ConversationID: convID}
	err := o.runLoop(ctx, req, conv, resp)
	resp.Turns = conv.Snapshot()

	recordRun(ctx, resp.Stop, resp.Iterations)
	o.logger.Info().
		Str("conversation_id", convID).
		Str("stop", string(resp.Stop)).
		Int("iterations", resp.Iterations).
		Int("tool_calls", len(resp.Log)).
		Msg("Orchestration finished")

	finish(err)
	return resp, err
}

// runLoop executes the tool-calling loop until completion.
func (o *HarnessOrchestrator) runLoop(ctx context.Context, req *Request, conv *Conversation, resp *Response) error {
	specs := req.Registry.Specs()

	for iteration := 1; iteration <= req.MaxIterations; iteration++ {
		if err := ctx.Err(); err != nil {
			resp.Stop = StopCancelled
			resp.Err = err
			return err
		}

		prompt := o.builder.Build(conv.Snapshot(), specs, map[string]string{
			"conversation_id": conv.ID,
			"iteration":       strconv.Itoa(iteration),
		})

		callCtx, spanFinish := o.tracer.StartSpan(ctx, "provider_call", map[string]any{
			"iteration": iteration,
			"turns":     len(prompt.Messages),
		})
		completion, err := o.provider.Complete(callCtx, prompt, o.options)
		spanFinish(err)
		recordEngineCall(ctx, err == nil)
		resp.Iterations = iteration

		if err != nil {
			resp.Stop = StopProviderError
			resp.Err = err
			return fmt.Errorf("%w at iteration %d: %w", ErrProvider, iteration, err)
		}
		resp.addUsage(completion.Usage)

		calls := completion.ToolCalls
		if len(calls) == 0 && o.parseTextCalls {
			calls = o.parser.ParseToolCalls(completion.Text, req.Registry.Has)
		}

		if len(calls) == 0 {
			o.append(ctx, conv, ports.AssistantTurn{Text: completion.Text})
			resp.Text = completion.Text
			resp.Fallback = o.parser.ExtractCode(completion.Text)
			resp.Stop = StopCompleted
			return nil
		}

		calls = ensureCallIDs(calls)
		o.append(ctx, conv, ports.AssistantTurn{Text: completion.Text, ToolCalls: calls})

		// Calls run one at a time, in the order the engine listed them.
		for _, call := range calls {
			entry := o.dispatch(ctx, req.Registry, conv, call, len(resp.Log))
			resp.Log = append(resp.Log, entry)
			for _, obs := range req.Observers {
				obs.OnToolResult(ctx, entry)
			}
		}
	}

	resp.Stop = StopIterationLimit
	return nil
}

// dispatch runs one call and appends its result turn.
func (o *HarnessOrchestrator) dispatch(ctx context.Context, registry *Registry, conv *Conversation, call ports.ToolCall, seq int) ports.ExecutionLogEntry {
	toolCtx, finish := o.tracer.StartSpan(ctx, "tool_call", map[string]any{
		"tool":    call.Name,
		"call_id": call.ID,
	})

	start := time.Now()
	result := registry.Call(toolCtx, call.Name, call.Args)
	duration := time.Since(start)
	finish(nil)

	payload, err := json.Marshal(result)
	if err != nil {
		result = ports.Fail(fmt.Sprintf("unencodable result: %v", err))
		payload, _ = json.Marshal(result)
	}
	o.append(ctx, conv, ports.ToolResultTurn{CallID: call.ID, Name: call.Name, Payload: payload})

	entry := ports.ExecutionLogEntry{
		Seq:      seq,
		CallID:   call.ID,
		ToolName: call.Name,
		Args:     call.Args,
		Result:   result,
		Duration: duration,
	}
	if inv, ok := result.(ports.Invocation); ok {
		entry.Invocation = inv.Invocation()
	}

	recordToolCall(ctx, call.Name, result.Succeeded(), duration)
	o.tracer.Event(ctx, "tool_result", map[string]any{
		"tool":     call.Name,
		"success":  result.Succeeded(),
		"duration": duration.String(),
	})

	if err := o.store.AppendToolArtifact(ctx, conv.ID, call.Name, payload); err != nil {
		o.tracer.Event(ctx, "store_error", map[string]any{"error": err.Error()})
	}

	return entry
}

// append adds a turn to the conversation and persists it. Store failures are
// traced, never fatal.
func (o *HarnessOrchestrator) append(ctx context.Context, conv *Conversation, turn ports.Turn) {
	seq := conv.Append(turn)
	record := ports.TurnRecord{Seq: seq, Message: turn.Message(), CreatedAt: time.Now()}
	if err := o.store.SaveTurn(ctx, conv.ID, record); err != nil {
		o.tracer.Event(ctx, "store_error", map[string]any{"error": err.Error()})
	}
}

// ensureCallIDs gives every call a unique id. Missing and repeated ids are
// replaced; the input slice is not modified.
func ensureCallIDs(calls []ports.ToolCall) []ports.ToolCall {
	out := make([]ports.ToolCall, len(calls))
	seen := make(map[string]struct{}, len(calls))
	for i, call := range calls {
		if _, dup := seen[call.ID]; call.ID == "" || dup {
			call.ID = "call_" + uuid.NewString()
		}
		seen[call.ID] = struct{}{}
		if len(call.Args) == 0 {
			call.Args = json.RawMessage(`{}`)
		}
		out[i] = call
	}
	return out
}
