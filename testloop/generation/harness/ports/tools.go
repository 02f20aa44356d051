package harnessports

import (
	"context"
	"encoding/json"
)

// ToolSpec describes a callable tool exposed to the model.
type ToolSpec struct {
	Name        string // unique logical name
	Description string // concise doc for model selection
	JSONSchema  []byte // JSON schema for the argument object
}

// ToolCall represents a model-invoked function with JSON arguments.
type ToolCall struct {
	ID   string          `json:"id"`
	Name string          `json:"name"`
	Args json.RawMessage `json:"arguments"`
}

// Tool defines the runtime that executes a tool call. Invoke receives
// arguments that already passed schema validation.
type Tool interface {
	Name() string
	Description() string
	Schema() []byte
	Invoke(ctx context.Context, args json.RawMessage) (Result, error)
}

// Result is the structured payload a tool hands back. It is marshalled to
// JSON for the conversation and inspected by observers.
type Result interface {
	Succeeded() bool
}

// Invocation is implemented by results that can name what they ran, such as
// the command text of run_command.
type Invocation interface {
	Invocation() string
}

// Failure is the result of a call that never reached its operation, or whose
// operation failed before producing a tool-specific result.
type Failure struct {
	Success bool   `json:"success"`
	Error   string `json:"error"`
}

func (f Failure) Succeeded() bool { return false }

// Fail builds a Failure with the given message.
func Fail(msg string) Failure { return Failure{Success: false, Error: msg} }
