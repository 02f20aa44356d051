package tools

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	ports "github.com/ZanzyTHEbar/testloop/testloop/generation/harness/ports"
)

// RunCommandSchema defines the JSON schema for run_command parameters.
const RunCommandSchema = `{
  "type": "object",
  "properties": {
    "command": {
      "type": "string",
      "description": "Shell command to execute"
    },
    "working_dir": {
      "type": "string",
      "description": "Working directory relative to the codebase root (optional)"
    }
  },
  "required": ["command"]
}`

type RunCommandArgs struct {
	Command    string `json:"command"`
	WorkingDir string `json:"working_dir,omitempty"`
}

// RunCommandTool runs a shell command after interpreter normalization.
type RunCommandTool struct {
	sb Sandbox
}

func NewRunCommandTool(sb Sandbox) *RunCommandTool { return &RunCommandTool{sb: sb} }

func (t *RunCommandTool) Name() string        { return KindRunCommand.String() }
func (t *RunCommandTool) Description() string { return "Execute a shell command in the codebase directory" }
func (t *RunCommandTool) Schema() []byte      { return []byte(RunCommandSchema) }

func (t *RunCommandTool) Invoke(ctx context.Context, args json.RawMessage) (ports.Result, error) {
	a, err := decode[RunCommandArgs](args)
	if err != nil {
		return nil, err
	}
	if strings.TrimSpace(a.Command) == "" {
		return nil, fmt.Errorf("invalid arguments: command is empty")
	}
	return t.sb.RunCommand(ctx, a.Command, a.WorkingDir), nil
}

var _ ports.Tool = (*RunCommandTool)(nil)
