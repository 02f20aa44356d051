package tools

import (
	"context"
	"encoding/json"

	ports "github.com/ZanzyTHEbar/testloop/testloop/generation/harness/ports"
)

// ExecuteCodeSchema defines the JSON schema for execute_code parameters.
const ExecuteCodeSchema = `{
  "type": "object",
  "properties": {
    "code": {
      "type": "string",
      "description": "The code to execute"
    },
    "language": {
      "type": "string",
      "description": "Programming language: python (default) or javascript"
    }
  },
  "required": ["code"]
}`

// ExecuteCodeArgs are the typed arguments of execute_code.
type ExecuteCodeArgs struct {
	Code     string `json:"code"`
	Language string `json:"language,omitempty"`
}

// ExecuteCodeTool runs a snippet inline.
type ExecuteCodeTool struct {
	sb Sandbox
}

func NewExecuteCodeTool(sb Sandbox) *ExecuteCodeTool { return &ExecuteCodeTool{sb: sb} }

func (t *ExecuteCodeTool) Name() string { return KindExecuteCode.String() }

func (t *ExecuteCodeTool) Description() string {
	return "Execute a code snippet in the specified language and return the result"
}

func (t *ExecuteCodeTool) Schema() []byte { return []byte(ExecuteCodeSchema) }

func (t *ExecuteCodeTool) Invoke(ctx context.Context, args json.RawMessage) (ports.Result, error) {
	a, err := decode[ExecuteCodeArgs](args)
	if err != nil {
		return nil, err
	}
	if a.Language == "" {
		a.Language = "python"
	}
	return t.sb.ExecuteCode(ctx, a.Code, a.Language), nil
}

var _ ports.Tool = (*ExecuteCodeTool)(nil)
