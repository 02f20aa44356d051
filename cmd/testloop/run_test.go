package main

import (
	"bytes"
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel"

	"github.com/ZanzyTHEbar/testloop/testloop/generation"
	"github.com/ZanzyTHEbar/testloop/testloop/generation/verdict"
)

func TestResolveTask(t *testing.T) {
	task, err := resolveTask("verify the api", "")
	require.NoError(t, err)
	assert.Equal(t, "verify the api", task)

	path := filepath.Join(t.TempDir(), "task.md")
	require.NoError(t, os.WriteFile(path, []byte("from file\n"), 0o644))
	task, err = resolveTask("", path)
	require.NoError(t, err)
	assert.Equal(t, "from file\n", task)

	_, err = resolveTask("   ", "")
	assert.ErrorIs(t, err, errTaskRequired)

	_, err = resolveTask("", filepath.Join(t.TempDir(), "missing.md"))
	assert.Error(t, err)
}

func TestWriteResult(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, writeResult(&buf, generation.Result{
		GeneratedTestCode: "assert a < b",
		ExecutionResult:   verdict.Summary{TestsPassed: false, Log: "No test execution performed"},
	}))

	var decoded map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &decoded))
	assert.Equal(t, "assert a < b", decoded["generated_test_code"])
	assert.Contains(t, buf.String(), "assert a < b", "HTML escaping must stay off")
	assert.Equal(t, map[string]any{"tests_passed": false, "log": "No test execution performed"}, decoded["execution_result"])
}

func TestRunCmd_RejectsMissingTask(t *testing.T) {
	root := newRootCmd()
	var stderr bytes.Buffer
	root.SetErr(&stderr)
	root.SetOut(&bytes.Buffer{})
	root.SetArgs([]string{"run", "--dir", t.TempDir()})

	err := root.Execute()
	assert.ErrorIs(t, err, errTaskRequired)
}

func TestRunCmd_RejectsBothTaskFlags(t *testing.T) {
	root := newRootCmd()
	root.SetErr(&bytes.Buffer{})
	root.SetOut(&bytes.Buffer{})
	root.SetArgs([]string{"run", "--dir", t.TempDir(), "--task", "a", "--task-file", "b"})

	assert.Error(t, root.Execute())
}

func TestRunCmd_RequiresAPIKey(t *testing.T) {
	t.Setenv("OPENAI_API_KEY", "")
	t.Setenv("TESTLOOP_LLM_API_KEY", "")
	t.Chdir(t.TempDir())

	root := newRootCmd()
	root.SetErr(&bytes.Buffer{})
	var stdout bytes.Buffer
	root.SetOut(&stdout)
	root.SetArgs([]string{"run", "--dir", t.TempDir(), "--task", "verify"})

	assert.Error(t, root.Execute())
	assert.Empty(t, stdout.String())
}

func TestRunCmd_RejectsMaxIterationsAboveCeiling(t *testing.T) {
	t.Setenv("OPENAI_API_KEY", "")
	t.Setenv("TESTLOOP_LLM_API_KEY", "")
	t.Chdir(t.TempDir())

	root := newRootCmd()
	root.SetErr(&bytes.Buffer{})
	root.SetOut(&bytes.Buffer{})
	root.SetArgs([]string{"run", "--dir", t.TempDir(), "--task", "verify", "--max-iterations", "51"})
	assert.ErrorIs(t, root.Execute(), errIterationCeiling)

	// A raised ceiling lets the same cap through to the credential check.
	t.Setenv("TESTLOOP_HARNESS_MAX_ITERATIONS_CEILING", "100")
	root = newRootCmd()
	root.SetErr(&bytes.Buffer{})
	root.SetOut(&bytes.Buffer{})
	root.SetArgs([]string{"run", "--dir", t.TempDir(), "--task", "verify", "--max-iterations", "51"})
	err := root.Execute()
	require.Error(t, err)
	assert.NotErrorIs(t, err, errIterationCeiling)
}

func TestInstallStdoutMeter(t *testing.T) {
	prev := otel.GetMeterProvider()
	t.Cleanup(func() { otel.SetMeterProvider(prev) })

	var buf bytes.Buffer
	shutdown, err := installStdoutMeter(&buf)
	require.NoError(t, err)

	counter, err := otel.Meter("testloop.test").Int64Counter("harness_runs_total")
	require.NoError(t, err)
	counter.Add(context.Background(), 2)

	shutdown()
	assert.Contains(t, buf.String(), "harness_runs_total")
}
