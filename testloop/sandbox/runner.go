package sandbox

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"time"

	"github.com/ZanzyTHEbar/testloop/testloop/config"
	"github.com/rs/zerolog"
)

// ErrWorkDir reports a working directory that is missing or not a directory.
var ErrWorkDir = errors.New("working directory unavailable")

const timedOut = "timed out"

// Runner executes processes, file operations and HTTP probes confined to one
// working directory. A Runner belongs to a single request.
type Runner struct {
	root        string
	realRoot    string // root with symlinks resolved
	interpreter string
	nodeBinary  string
	shell       string

	normalizer *Normalizer
	searchPath *SearchPath
	http       *httpProber

	codeTimeout    time.Duration
	commandTimeout time.Duration
	maxOutput      int64

	logger zerolog.Logger
}

// NewRunner resolves root and the interpreter once. It fails with ErrWorkDir
// when root does not exist or is not a directory.
func NewRunner(root string, cfg config.SandboxConfig, logger zerolog.Logger) (*Runner, error) {
	abs, err := filepath.Abs(root)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrWorkDir, err)
	}
	info, err := os.Stat(abs)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrWorkDir, err)
	}
	if !info.IsDir() {
		return nil, fmt.Errorf("%w: %s is not a directory", ErrWorkDir, abs)
	}
	realRoot, err := filepath.EvalSymlinks(abs)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrWorkDir, err)
	}

	interpreter := ResolveInterpreter(cfg.Interpreter)

	r := &Runner{
		root:           abs,
		realRoot:       realRoot,
		interpreter:    interpreter,
		nodeBinary:     valueOr(cfg.NodeBinary, "node"),
		shell:          valueOr(cfg.Shell, "/bin/sh"),
		normalizer:     NewNormalizer(interpreter),
		searchPath:     NewSearchPath(cfg.NoiseDirs),
		http:           newHTTPProber(durationOr(cfg.HTTPTimeout, 10*time.Second), cfg.MaxOutputBytes),
		codeTimeout:    durationOr(cfg.CodeTimeout, 10*time.Second),
		commandTimeout: durationOr(cfg.CommandTimeout, 60*time.Second),
		maxOutput:      cfg.MaxOutputBytes,
		logger:         logger.With().Str("component", "sandbox").Logger(),
	}
	if r.maxOutput <= 0 {
		r.maxOutput = 1 << 20
	}

	r.logger.Debug().Str("root", abs).Str("interpreter", interpreter).Msg("Runner ready")
	return r, nil
}

// Root is the absolute working directory.
func (r *Runner) Root() string { return r.root }

// Interpreter is the resolved interpreter path used for normalization.
func (r *Runner) Interpreter() string { return r.interpreter }

// ExecuteCode runs an inline snippet. Python runs through the resolved
// interpreter; JavaScript is written to a temporary file and run with node.
func (r *Runner) ExecuteCode(ctx context.Context, code, language string) ExecResult {
	lang := strings.ToLower(strings.TrimSpace(language))
	if lang == "" {
		lang = "python"
	}
	res := ExecResult{Language: lang, code: code}

	var out processOutput
	switch lang {
	case "python", "py":
		out = r.runProcess(ctx, r.codeTimeout, r.root, r.interpreter, "-c", code)
	case "javascript", "js", "node":
		script, err := os.CreateTemp(r.root, "temp_exec_*.js")
		if err != nil {
			res.Error = fmt.Sprintf("failed to stage script: %v", err)
			res.ReturnCode = -1
			return res
		}
		defer os.Remove(script.Name())
		_, werr := script.WriteString(code)
		cerr := script.Close()
		if err := errors.Join(werr, cerr); err != nil {
			res.Error = fmt.Sprintf("failed to stage script: %v", err)
			res.ReturnCode = -1
			return res
		}
		out = r.runProcess(ctx, r.codeTimeout, r.root, r.nodeBinary, script.Name())
	default:
		res.Error = fmt.Sprintf("unsupported language: %s", language)
		res.ReturnCode = -1
		return res
	}

	res.Output = out.stdout
	res.ReturnCode = out.exitCode
	res.Success = out.ok()
	if !res.Success {
		res.Error = out.failure()
	}
	return res
}

// RunCommand runs a shell command after normalization. workingDir defaults to
// the root and relative values resolve under it.
func (r *Runner) RunCommand(ctx context.Context, command, workingDir string) CommandResult {
	res := CommandResult{Command: command, ReturnCode: -1}

	dir, err := r.resolve(workingDir)
	if err != nil {
		res.Error = err.Error()
		return res
	}
	res.WorkingDir = dir
	if info, err := os.Stat(dir); err != nil || !info.IsDir() {
		res.Error = fmt.Sprintf("working directory does not exist: %s", workingDir)
		return res
	}

	executed := r.normalizer.Normalize(command)
	res.Executed = executed
	if executed != command {
		r.logger.Debug().Str("command", command).Str("executed", executed).Msg("Normalized command")
	}

	out := r.runProcess(ctx, r.commandTimeout, dir, r.shell, "-c", executed)
	res.Stdout = out.stdout
	res.Stderr = out.stderr
	res.ReturnCode = out.exitCode
	res.Success = out.ok()
	switch {
	case out.timedOut:
		res.Error = timedOut
	case out.err != nil:
		res.Error = out.err.Error()
	}
	return res
}

// ReadFile reads a file under the root.
func (r *Runner) ReadFile(path string) ReadResult {
	res := ReadResult{FilePath: path}

	full, err := r.resolve(path)
	if err != nil {
		res.Error = err.Error()
		return res
	}

	data, err := os.ReadFile(full)
	switch {
	case errors.Is(err, os.ErrNotExist):
		res.Error = fmt.Sprintf("File not found: %s", path)
	case err != nil:
		res.Error = err.Error()
	default:
		res.Success = true
		res.Content = string(data)
	}
	return res
}

// WriteFile writes content under the root, creating parent directories.
func (r *Runner) WriteFile(path, content string) WriteResult {
	res := WriteResult{FilePath: path}

	full, err := r.resolve(path)
	if err != nil {
		res.Error = err.Error()
		return res
	}
	if full == r.root {
		res.Error = "file_path must name a file"
		return res
	}

	if err := os.MkdirAll(filepath.Dir(full), 0o755); err != nil {
		res.Error = fmt.Sprintf("failed to create directory: %v", err)
		return res
	}
	if err := os.WriteFile(full, []byte(content), 0o644); err != nil {
		res.Error = err.Error()
		return res
	}

	res.Success = true
	res.Message = fmt.Sprintf("File written: %s", path)
	return res
}

// CheckAPIEndpoint issues one HTTP request. See httpProber.
func (r *Runner) CheckAPIEndpoint(ctx context.Context, url, method string, payload any, headers map[string]string) HTTPResult {
	return r.http.probe(ctx, url, method, payload, headers)
}

// ValidateTestResult reports whether result carries an output-bearing field.
func (r *Runner) ValidateTestResult(result map[string]any) ValidationResult {
	return ValidateTestResult(result)
}

// ValidateTestResult is the pure check behind the validate_test_result tool.
func ValidateTestResult(result map[string]any) ValidationResult {
	hasOutput := false
	for _, key := range []string{"output", "response", "stdout"} {
		if _, ok := result[key]; ok {
			hasOutput = true
			break
		}
	}
	isSuccess, _ := result["success"].(bool)

	res := ValidationResult{
		Success:   true,
		Valid:     hasOutput,
		HasOutput: hasOutput,
		IsSuccess: isSuccess,
		Message:   "Test result validated",
	}
	if !hasOutput {
		res.Message = "Test result has no output field"
	}
	return res
}

// resolve maps path onto the root and rejects anything outside it.
func (r *Runner) resolve(path string) (string, error) {
	if strings.TrimSpace(path) == "" {
		return r.root, nil
	}

	full := path
	if !filepath.IsAbs(full) {
		full = filepath.Join(r.root, full)
	}
	full = filepath.Clean(full)

	if !isUnder(r.root, full) || !r.resolvesUnderRoot(full) {
		return "", fmt.Errorf("path is outside the working directory: %s", path)
	}
	return full, nil
}

// resolvesUnderRoot follows symlinks in the longest existing prefix of full
// and checks the result still lies under the root.
func (r *Runner) resolvesUnderRoot(full string) bool {
	existing, rest := full, ""
	for {
		if _, err := os.Lstat(existing); err == nil {
			break
		}
		parent := filepath.Dir(existing)
		if parent == existing {
			return false
		}
		rest = filepath.Join(filepath.Base(existing), rest)
		existing = parent
	}

	resolved, err := filepath.EvalSymlinks(existing)
	if err != nil {
		return false
	}
	return isUnder(r.realRoot, filepath.Join(resolved, rest))
}

func isUnder(root, path string) bool {
	rel, err := filepath.Rel(root, path)
	return err == nil && rel != ".." && !strings.HasPrefix(rel, ".."+string(filepath.Separator))
}

type processOutput struct {
	stdout   string
	stderr   string
	exitCode int
	timedOut bool
	err      error // start failure or cancellation
}

func (p processOutput) ok() bool {
	return p.err == nil && !p.timedOut && p.exitCode == 0
}

func (p processOutput) failure() string {
	switch {
	case p.timedOut:
		return timedOut
	case p.err != nil:
		return p.err.Error()
	case p.stderr != "":
		return p.stderr
	default:
		return fmt.Sprintf("exit status %d", p.exitCode)
	}
}

// runProcess runs name with args in dir. The request context is consulted
// only before the process starts; once running, the process is bounded by
// timeout alone.
func (r *Runner) runProcess(ctx context.Context, timeout time.Duration, dir, name string, args ...string) processOutput {
	if err := ctx.Err(); err != nil {
		return processOutput{exitCode: -1, err: fmt.Errorf("cancelled before start: %w", err)}
	}

	execCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), timeout)
	defer cancel()

	cmd := exec.CommandContext(execCtx, name, args...)
	cmd.Dir = dir
	cmd.Env = r.searchPath.Environ(dir, os.Environ())
	cmd.WaitDelay = time.Second

	var stdoutBuf, stderrBuf bytes.Buffer
	cmd.Stdout = &limitedWriter{w: &stdoutBuf, max: r.maxOutput}
	cmd.Stderr = &limitedWriter{w: &stderrBuf, max: r.maxOutput}

	start := time.Now()
	err := cmd.Run()

	out := processOutput{stdout: stdoutBuf.String(), stderr: stderrBuf.String()}

	var exitErr *exec.ExitError
	switch {
	case err == nil:
	case errors.Is(execCtx.Err(), context.DeadlineExceeded):
		out.timedOut = true
		out.exitCode = -1
	case errors.As(err, &exitErr):
		out.exitCode = exitErr.ExitCode()
	default:
		out.exitCode = -1
		out.err = err
	}

	r.logger.Debug().
		Str("binary", name).
		Int("exit_code", out.exitCode).
		Bool("timed_out", out.timedOut).
		Dur("duration", time.Since(start)).
		Msg("Process finished")

	return out
}

// limitedWriter is an io.Writer that limits total bytes written.
type limitedWriter struct {
	w       io.Writer
	max     int64
	written int64
}

func (lw *limitedWriter) Write(p []byte) (int, error) {
	n := len(p)
	if lw.written >= lw.max {
		return n, nil
	}

	remaining := lw.max - lw.written
	if int64(n) > remaining {
		written, err := lw.w.Write(p[:remaining])
		lw.written += int64(written)
		return n, err // report the full length to avoid short-write errors
	}

	written, err := lw.w.Write(p)
	lw.written += int64(written)
	return written, err
}

func valueOr(v, fallback string) string {
	if v == "" {
		return fallback
	}
	return v
}

func durationOr(v, fallback time.Duration) time.Duration {
	if v <= 0 {
		return fallback
	}
	return v
}
