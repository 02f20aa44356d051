package verdict

import (
	"encoding/json"
	"strings"
	"testing"

	ports "github.com/ZanzyTHEbar/testloop/testloop/generation/harness/ports"
	"github.com/ZanzyTHEbar/testloop/testloop/sandbox"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func command(cmd, stdout, stderr string, code int) ports.ExecutionLogEntry {
	args, _ := json.Marshal(map[string]string{"command": cmd})
	return ports.ExecutionLogEntry{
		ToolName:   "run_command",
		Invocation: cmd,
		Args:       args,
		Result: sandbox.CommandResult{
			Success:    code == 0,
			Stdout:     stdout,
			Stderr:     stderr,
			ReturnCode: code,
			Command:    cmd,
		},
	}
}

func probe(status int, ok bool, errText string) ports.ExecutionLogEntry {
	return ports.ExecutionLogEntry{
		ToolName: "check_api_endpoint",
		Result:   sandbox.HTTPResult{Success: ok, StatusCode: status, Error: errText, Method: "GET", URL: "http://localhost:8000/health"},
	}
}

func TestClassify_NoRelevantEntries(t *testing.T) {
	entries := []ports.ExecutionLogEntry{
		{ToolName: "write_file", Result: sandbox.WriteResult{Success: true, FilePath: "test_a.py"}},
		{ToolName: "read_file", Result: sandbox.ReadResult{Success: true, FilePath: "a.py"}},
	}

	got := Classify(entries, nil)
	assert.False(t, got.TestsPassed)
	assert.Equal(t, NoExecution, got.Log)

	assert.Equal(t, Summary{Log: NoExecution}, Classify(nil, nil))
}

func TestClassify_TestCommand(t *testing.T) {
	cases := []struct {
		name   string
		entry  ports.ExecutionLogEntry
		passed bool
	}{
		{"clean pass", command("pytest -q", "3 passed in 0.01s", "", 0), true},
		{"failure count with zero exit", command("pytest -q", "3 passed, 1 failed in 0.02s", "", 0), false},
		{"failed near test", command("python run_tests.py", "Test suite FAILED", "", 0), false},
		{"non-zero exit", command("pytest -q", "", "E   assert 1 == 2", 1), false},
		{"output on stderr", command("npx jest", "", "Tests: 4 passed, 4 total", 0), true},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			got := Classify([]ports.ExecutionLogEntry{tc.entry}, Default)
			assert.Equal(t, tc.passed, got.TestsPassed)
		})
	}
}

func TestClassify_NarratesTestOutput(t *testing.T) {
	got := Classify([]ports.ExecutionLogEntry{command("pytest -q", "3 passed in 0.01s", "", 0)}, nil)

	assert.Equal(t, "Test Results:\n3 passed in 0.01s", got.Log)
}

func TestClassify_NonTestSuccessIsSilent(t *testing.T) {
	got := Classify([]ports.ExecutionLogEntry{command("ls -la", "a.py\nb.py", "", 0)}, nil)

	assert.False(t, got.TestsPassed)
	assert.Equal(t, ExecutionFinished, got.Log)
}

func TestClassify_StickyFailure(t *testing.T) {
	entries := []ports.ExecutionLogEntry{
		command("pytest -q", "1 failed in 0.02s", "", 1),
		probe(200, true, ""),
	}

	got := Classify(entries, nil)
	assert.False(t, got.TestsPassed)
	assert.Contains(t, got.Log, "API endpoint check passed: 200")

	entries = append(entries, command("pytest -q", "4 passed", "", 0))
	assert.False(t, Classify(entries, nil).TestsPassed, "a later pass must not clear an earlier failure")
}

func TestClassify_ProbeStandsInWithoutTests(t *testing.T) {
	got := Classify([]ports.ExecutionLogEntry{probe(200, true, "")}, nil)
	assert.True(t, got.TestsPassed)
	assert.Equal(t, "API endpoint check passed: 200", got.Log)

	got = Classify([]ports.ExecutionLogEntry{probe(0, false, "connection refused")}, nil)
	assert.False(t, got.TestsPassed)
	assert.Equal(t, "API endpoint check failed: connection refused", got.Log)
}

func TestClassify_ProbeAfterPassingTests(t *testing.T) {
	entries := []ports.ExecutionLogEntry{
		command("pytest -q", "2 passed", "", 0),
		probe(500, false, ""),
	}

	got := Classify(entries, nil)
	assert.True(t, got.TestsPassed)
	assert.Contains(t, got.Log, "API endpoint check failed: status 500")
}

func TestClassify_CommandFailureDiagnostics(t *testing.T) {
	entries := []ports.ExecutionLogEntry{
		command("pytest test_generated.py", "", "ModuleNotFoundError: No module named 'requests'", 2),
	}

	got := Classify(entries, nil)
	require.False(t, got.TestsPassed)

	lines := strings.Split(got.Log, "\n")
	require.Len(t, lines, 3)
	assert.Equal(t, "Command failed: pytest test_generated.py", lines[0])
	assert.Equal(t, "Error: Module 'requests' not found. Check import paths.", lines[1])
	assert.Equal(t, "Error details: ModuleNotFoundError: No module named 'requests'", lines[2])
}

func TestClassify_NonTestFailureTruncated(t *testing.T) {
	long := strings.Repeat("x", 5000)
	got := Classify([]ports.ExecutionLogEntry{command("make build", long, "", 2)}, nil)

	assert.False(t, got.TestsPassed)
	assert.Contains(t, got.Log, "Command failed: make build")
	assert.Contains(t, got.Log, "Error details: "+strings.Repeat("x", maxErrorDetail))
	assert.NotContains(t, got.Log, strings.Repeat("x", maxErrorDetail+1))
}

func TestClassify_RegistryFailure(t *testing.T) {
	args, _ := json.Marshal(map[string]string{"command": "pytest"})
	entries := []ports.ExecutionLogEntry{
		{ToolName: "run_command", Args: args, Result: ports.Fail("command timed out")},
	}

	got := Classify(entries, nil)
	assert.False(t, got.TestsPassed)
	assert.Equal(t, "Command failed: pytest\nError details: command timed out", got.Log)
}

func TestClassify_ExecuteCode(t *testing.T) {
	entries := []ports.ExecutionLogEntry{
		{ToolName: "execute_code", Result: sandbox.ExecResult{Success: true, Output: "hello"}},
		{ToolName: "execute_code", Result: sandbox.ExecResult{Success: false, Error: "NameError"}},
	}

	got := Classify(entries, nil)
	assert.False(t, got.TestsPassed)
	assert.Equal(t, "Code executed: hello\nCode execution failed: NameError", got.Log)
}

func TestClassify_Deterministic(t *testing.T) {
	entries := []ports.ExecutionLogEntry{
		command("pytest -q", "1 passed", "", 0),
		probe(200, true, ""),
	}

	first := Classify(entries, Standard)
	for range 3 {
		assert.Equal(t, first, Classify(entries, Standard))
	}
}

func TestDiagnose(t *testing.T) {
	cases := map[string]string{
		"ERROR: no collectors found":            "Error: pytest could not collect tests.",
		"ModuleNotFoundError: boom":             "Error: Module import failed.",
		"ImportError: cannot import name 'x'":   "Error: Import failed.",
		"SyntaxError: invalid syntax":           "Error: Syntax error in test file.",
		"sh: 1: pytest: not found":              "Error: pytest is not installed.",
		"/bin/sh: jest: command not found":      "Error: jest is not installed.",
		"node: not found":                       "Error: Node.js is not installed.",
		"AssertionError: expected 1 to equal 2": "",
	}

	for in, want := range cases {
		got := Diagnose(in)
		if want == "" {
			assert.Empty(t, got, in)
			continue
		}
		assert.True(t, strings.HasPrefix(got, want), "%q -> %q", in, got)
	}
}
