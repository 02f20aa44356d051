package artifact

import (
	"context"
	"encoding/json"
	"strings"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"

	"github.com/ZanzyTHEbar/testloop/testloop/config"
	ports "github.com/ZanzyTHEbar/testloop/testloop/generation/harness/ports"
	"github.com/ZanzyTHEbar/testloop/testloop/sandbox"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

// diskReader serves reads from an in-memory file table.
type diskReader map[string]string

func (d diskReader) ReadFile(path string) sandbox.ReadResult {
	content, ok := d[path]
	if !ok {
		return sandbox.ReadResult{Success: false, FilePath: path, Error: "File not found: " + path}
	}
	return sandbox.ReadResult{Success: true, FilePath: path, Content: content}
}

func writeEntry(t *testing.T, path, content string, ok bool) ports.ExecutionLogEntry {
	t.Helper()
	args, err := json.Marshal(map[string]string{"file_path": path, "content": content})
	require.NoError(t, err)

	var result ports.Result = sandbox.WriteResult{Success: true, FilePath: path, Message: "File written: " + path}
	if !ok {
		result = sandbox.WriteResult{Success: false, FilePath: path, Error: "permission denied"}
	}
	return ports.ExecutionLogEntry{ToolName: "write_file", Args: args, Result: result, Invocation: path}
}

func TestIsTestPath(t *testing.T) {
	tests := []struct {
		path string
		want bool
	}{
		{"test_generated.py", true},
		{"tests/unit/helpers.py", true},
		{"pkg/app_test.go", true},
		{"src/app.test.ts", true},
		{"src/app.spec.js", true},
		{"generated_suite.py", true},
		{"src/test/java/AppTest.java", true},
		{"TestApp.java", true},
		{"helpers.py", false},
		{"contest.py", false},
		{"latest/app.py", false},
		{"attestation.md", false},
	}
	for _, tt := range tests {
		t.Run(tt.path, func(t *testing.T) {
			assert.Equal(t, tt.want, IsTestPath(tt.path))
		})
	}
}

func TestLooksLikeTest(t *testing.T) {
	assert.True(t, LooksLikeTest("def test_x():\n    assert True\n"))
	assert.True(t, LooksLikeTest("import pytest\n"))
	assert.True(t, LooksLikeTest("client = TestClient(app)"))
	assert.True(t, LooksLikeTest("describe('api', () => { it('works', () => { expect(1).toBe(1) }) })"))
	assert.True(t, LooksLikeTest("func TestParse(t *testing.T) {}"))

	assert.False(t, LooksLikeTest("def helper():\n    return 42\n"))
	assert.False(t, LooksLikeTest("form.submit(data)"))
	assert.False(t, LooksLikeTest("reassertion = 1"))
}

func TestCollector_KeepsLongerCandidateInEitherOrder(t *testing.T) {
	short := "def test_a():\n    assert 1 == 1\n" + strings.Repeat("#", 40-len("def test_a():\n    assert 1 == 1\n"))
	long := "def test_b():\n    assert 2 == 2\n" + strings.Repeat("#", 120-len("def test_b():\n    assert 2 == 2\n"))
	require.Len(t, short, 40)
	require.Len(t, long, 120)

	orders := map[string][]string{
		"short_then_long": {"test_short.py", "test_long.py"},
		"long_then_short": {"test_long.py", "test_short.py"},
	}
	disk := diskReader{"test_short.py": short, "test_long.py": long}

	for name, paths := range orders {
		t.Run(name, func(t *testing.T) {
			c := NewCollector(disk, zerolog.Nop())
			for _, p := range paths {
				c.OnToolResult(context.Background(), writeEntry(t, p, disk[p], true))
			}

			a := c.Artifact()
			assert.Equal(t, long, a.Code)
			assert.Equal(t, "test_long.py", a.Path)
			assert.Equal(t, SourceWriteFile, a.Source)
			assert.Empty(t, c.Warning())
			assert.Equal(t, 2, c.Writes())
		})
	}
}

func TestCollector_EqualLengthKeepsFirst(t *testing.T) {
	disk := diskReader{"test_a.py": "assert 1", "test_b.py": "assert 2"}
	c := NewCollector(disk, zerolog.Nop())

	c.OnToolResult(context.Background(), writeEntry(t, "test_a.py", "assert 1", true))
	c.OnToolResult(context.Background(), writeEntry(t, "test_b.py", "assert 2", true))

	assert.Equal(t, "test_a.py", c.Artifact().Path)
}

func TestCollector_ReadsBackFromDisk(t *testing.T) {
	disk := diskReader{"test_app.py": "def test_app():\n    assert app()\n"}
	c := NewCollector(disk, zerolog.Nop())

	c.OnToolResult(context.Background(), writeEntry(t, "test_app.py", "stale argument text", true))
	assert.Equal(t, disk["test_app.py"], c.Artifact().Code)
}

func TestCollector_IgnoresNonCandidatesAndFailures(t *testing.T) {
	disk := diskReader{"helpers.py": "def helper():\n    return 42\n"}
	c := NewCollector(disk, zerolog.Nop())
	ctx := context.Background()

	c.OnToolResult(ctx, writeEntry(t, "helpers.py", disk["helpers.py"], true))
	c.OnToolResult(ctx, writeEntry(t, "test_x.py", "assert True", false))
	c.OnToolResult(ctx, ports.ExecutionLogEntry{ToolName: "run_command", Result: sandbox.CommandResult{Success: true}})
	c.OnToolResult(ctx, ports.ExecutionLogEntry{ToolName: "write_file", Result: ports.Fail("invalid arguments")})

	assert.Equal(t, Artifact{}, c.Artifact())
	assert.Equal(t, 1, c.Writes())
	assert.Equal(t, WarnWritesNotCollected, c.Warning())
}

func TestCollector_Fallback(t *testing.T) {
	c := NewCollector(diskReader{}, zerolog.Nop())
	assert.Equal(t, WarnNothingGenerated, c.Warning())

	c.OfferFallback("def test_inline():\n    assert True")
	assert.Empty(t, c.Warning())
	assert.Equal(t, Artifact{Code: "def test_inline():\n    assert True", Source: SourceFinalText}, c.Artifact())
}

func TestCollector_WriteBeatsFallback(t *testing.T) {
	disk := diskReader{"test_w.py": "assert 1"}
	c := NewCollector(disk, zerolog.Nop())

	c.OnToolResult(context.Background(), writeEntry(t, "test_w.py", "assert 1", true))
	c.OfferFallback(strings.Repeat("def test_long(): assert True\n", 10))

	assert.Equal(t, SourceWriteFile, c.Artifact().Source)
	assert.Equal(t, "assert 1", c.Artifact().Code)
}

func TestCollector_WithRunner(t *testing.T) {
	runner, err := sandbox.NewRunner(t.TempDir(), config.Default().Sandbox, zerolog.Nop())
	require.NoError(t, err)
	c := NewCollector(runner, zerolog.Nop())

	content := "def test_x():\n    assert True\n"
	w := runner.WriteFile("test_generated.py", content)
	require.True(t, w.Success)

	args, _ := json.Marshal(map[string]string{"file_path": "test_generated.py", "content": content})
	c.OnToolResult(context.Background(), ports.ExecutionLogEntry{ToolName: "write_file", Args: args, Result: w})

	assert.Equal(t, content, c.Artifact().Code)
}
