package tools

import (
	"context"
	"encoding/json"

	ports "github.com/ZanzyTHEbar/testloop/testloop/generation/harness/ports"
)

// ValidateTestResultSchema defines the JSON schema for validate_test_result parameters.
const ValidateTestResultSchema = `{
  "type": "object",
  "properties": {
    "result": {
      "type": "object",
      "description": "Test result object to validate"
    }
  },
  "required": ["result"]
}`

type ValidateTestResultArgs struct {
	Result map[string]any `json:"result"`
}

// ValidateTestResultTool checks the shape of a result object. It never
// executes anything.
type ValidateTestResultTool struct {
	sb Sandbox
}

func NewValidateTestResultTool(sb Sandbox) *ValidateTestResultTool {
	return &ValidateTestResultTool{sb: sb}
}

func (t *ValidateTestResultTool) Name() string        { return KindValidateTestResult.String() }
func (t *ValidateTestResultTool) Description() string { return "Validate a test execution result" }
func (t *ValidateTestResultTool) Schema() []byte      { return []byte(ValidateTestResultSchema) }

func (t *ValidateTestResultTool) Invoke(ctx context.Context, args json.RawMessage) (ports.Result, error) {
	a, err := decode[ValidateTestResultArgs](args)
	if err != nil {
		return nil, err
	}
	return t.sb.ValidateTestResult(a.Result), nil
}

var _ ports.Tool = (*ValidateTestResultTool)(nil)
