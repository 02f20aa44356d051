package verdict

import (
	"testing"

	ports "github.com/ZanzyTHEbar/testloop/testloop/generation/harness/ports"
	"github.com/stretchr/testify/assert"
)

func TestFramework_IsTestCommand(t *testing.T) {
	assert.True(t, Pytest.IsTestCommand("python -m pytest -q"))
	assert.True(t, Jest.IsTestCommand("npx jest --ci"))
	assert.True(t, GoTest.IsTestCommand("go test ./..."))
	assert.False(t, GoTest.IsTestCommand("go build ./..."))
	assert.True(t, Default.IsTestCommand("python test_app.py"))
	assert.False(t, Default.IsTestCommand("pip install -r requirements.txt"))
}

func TestFramework_ReportsFailure(t *testing.T) {
	assert.True(t, Pytest.ReportsFailure("pytest", "FAILED test_a.py::test_x - assert 0"))
	assert.True(t, Pytest.ReportsFailure("pytest", "1 error in 0.10s"))
	assert.False(t, Pytest.ReportsFailure("pytest", "5 passed in 0.10s"))

	assert.True(t, Jest.ReportsFailure("mocha", "  3 passing\n  1 failing"))
	assert.True(t, GoTest.ReportsFailure("go test ./...", "--- FAIL: TestX (0.00s)\nFAIL"))
	assert.False(t, GoTest.ReportsFailure("go test ./...", "ok  \tpkg\t0.01s"))
}

func TestFrameworks_NeverMasksDefault(t *testing.T) {
	cases := []struct {
		command string
		output  string
	}{
		{"pytest -q", "3 passed, 1 failed"},
		{"npm test", "3 passed, 1 failed"},
		{"go test ./...", "3 passed, 1 failed"},
		{"pytest -q", "some tests failed during setup"},
		{"go test ./...", "ok  \tpkg/failed_test_fixtures\t0.01s"},
	}
	for _, tc := range cases {
		t.Run(tc.command+"/"+tc.output, func(t *testing.T) {
			assert.True(t, Default.ReportsFailure(tc.command, tc.output))
			assert.True(t, Standard.ReportsFailure(tc.command, tc.output))
		})
	}
}

func TestFrameworks_AddsFrameworkSignals(t *testing.T) {
	// Default does not see "failing" or go's FAIL lines.
	assert.False(t, Default.ReportsFailure("npx mocha", "  3 passing\n  1 failing"))
	assert.True(t, Standard.ReportsFailure("npx mocha", "  3 passing\n  1 failing"))
	assert.True(t, Standard.ReportsFailure("go test ./...", "--- FAIL: TestX (0.00s)\nFAIL"))

	assert.False(t, Standard.ReportsFailure("go test ./...", "ok  \tpkg\t0.01s"))
	assert.False(t, Standard.ReportsFailure("ls", "1 failed"))
}

func TestClassify_StandardFailsWhereDefaultFails(t *testing.T) {
	entries := []ports.ExecutionLogEntry{
		command("pytest -q", "3 passed, 1 failed", "", 0),
	}

	assert.False(t, Classify(entries, Default).TestsPassed)
	assert.False(t, Classify(entries, Standard).TestsPassed)

	passing := []ports.ExecutionLogEntry{
		command("pytest -q", "5 passed in 0.10s", "", 0),
	}
	assert.True(t, Classify(passing, Standard).TestsPassed)
}
