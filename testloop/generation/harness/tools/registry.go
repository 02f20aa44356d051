package tools

import (
	"github.com/ZanzyTHEbar/testloop/testloop/generation/harness"
	ports "github.com/ZanzyTHEbar/testloop/testloop/generation/harness/ports"
)

// New returns one tool per Kind, in Kinds order, bound to sb.
func New(sb Sandbox) []ports.Tool {
	return []ports.Tool{
		NewExecuteCodeTool(sb),
		NewReadFileTool(sb),
		NewWriteFileTool(sb),
		NewRunCommandTool(sb),
		NewCheckAPIEndpointTool(sb),
		NewValidateTestResultTool(sb),
	}
}

// NewRegistry builds the dispatch table for the closed tool set.
func NewRegistry(sb Sandbox) (*harness.Registry, error) {
	return harness.NewRegistry(New(sb)...)
}
