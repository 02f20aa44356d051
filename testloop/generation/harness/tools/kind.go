package tools

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/ZanzyTHEbar/testloop/testloop/sandbox"
)

// Kind names one tool of the closed set offered to the reasoning engine.
type Kind string

const (
	KindExecuteCode        Kind = "execute_code"
	KindReadFile           Kind = "read_file"
	KindWriteFile          Kind = "write_file"
	KindRunCommand         Kind = "run_command"
	KindCheckAPIEndpoint   Kind = "check_api_endpoint"
	KindValidateTestResult Kind = "validate_test_result"
)

// Kinds lists every tool kind in declaration order.
var Kinds = []Kind{
	KindExecuteCode,
	KindReadFile,
	KindWriteFile,
	KindRunCommand,
	KindCheckAPIEndpoint,
	KindValidateTestResult,
}

func (k Kind) String() string { return string(k) }

// Sandbox is the operation surface the tools dispatch to. *sandbox.Runner
// implements it.
type Sandbox interface {
	ExecuteCode(ctx context.Context, code, language string) sandbox.ExecResult
	ReadFile(path string) sandbox.ReadResult
	WriteFile(path, content string) sandbox.WriteResult
	RunCommand(ctx context.Context, command, workingDir string) sandbox.CommandResult
	CheckAPIEndpoint(ctx context.Context, url, method string, payload any, headers map[string]string) sandbox.HTTPResult
	ValidateTestResult(result map[string]any) sandbox.ValidationResult
}

var _ Sandbox = (*sandbox.Runner)(nil)

// decode unmarshals schema-validated arguments into their typed form.
func decode[T any](args json.RawMessage) (T, error) {
	var v T
	if err := json.Unmarshal(args, &v); err != nil {
		return v, fmt.Errorf("invalid arguments: %w", err)
	}
	return v, nil
}
