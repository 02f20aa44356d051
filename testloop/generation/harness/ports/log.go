package harnessports

import (
	"context"
	"encoding/json"
	"time"
)

// ExecutionLogEntry records one dispatched tool call. Entries are appended in
// dispatch order and never modified.
type ExecutionLogEntry struct {
	Seq        int
	CallID     string
	ToolName   string
	Invocation string
	Args       json.RawMessage
	Result     Result
	Duration   time.Duration
}

// Observer is notified after every tool dispatch, once the result turn has
// been appended.
type Observer interface {
	OnToolResult(ctx context.Context, entry ExecutionLogEntry)
}

// ObserverFunc adapts a function to Observer.
type ObserverFunc func(ctx context.Context, entry ExecutionLogEntry)

func (f ObserverFunc) OnToolResult(ctx context.Context, entry ExecutionLogEntry) { f(ctx, entry) }
