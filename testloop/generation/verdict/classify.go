// Package verdict turns a run's execution log into a pass/fail verdict and
// a readable narrative.
package verdict

import (
	"encoding/json"
	"fmt"
	"strings"

	ports "github.com/ZanzyTHEbar/testloop/testloop/generation/harness/ports"
	"github.com/ZanzyTHEbar/testloop/testloop/generation/harness/tools"
	"github.com/ZanzyTHEbar/testloop/testloop/sandbox"
)

const (
	NoExecution       = "No test execution performed"
	ExecutionFinished = "Test execution completed"

	// maxErrorDetail caps the error text narrated for non-test commands.
	maxErrorDetail = 2000
)

// Summary is the outcome of one run.
type Summary struct {
	TestsPassed bool   `json:"tests_passed"`
	Log         string `json:"log"`
}

// classifier holds the state of one pass over the log.
type classifier struct {
	matcher    Matcher
	passed     bool
	testsRan   bool
	testFailed bool
	parts      []string
}

// Classify computes the verdict from the whole log. Entries other than
// run_command, execute_code and check_api_endpoint are ignored. A failed test
// command keeps the verdict false for the rest of the log; a successful HTTP
// probe counts as a pass only while no test command has run.
func Classify(entries []ports.ExecutionLogEntry, matcher Matcher) Summary {
	if matcher == nil {
		matcher = Default
	}
	c := &classifier{matcher: matcher}

	relevant := 0
	for _, e := range entries {
		switch e.ToolName {
		case tools.KindRunCommand.String():
			c.command(e)
		case tools.KindExecuteCode.String():
			c.code(e)
		case tools.KindCheckAPIEndpoint.String():
			c.probe(e)
		default:
			continue
		}
		relevant++
	}

	if relevant == 0 {
		return Summary{TestsPassed: false, Log: NoExecution}
	}

	passed := c.passed
	if c.testsRan && c.testFailed {
		passed = false
	}

	log := ExecutionFinished
	if len(c.parts) > 0 {
		log = strings.Join(c.parts, "\n")
	}
	return Summary{TestsPassed: passed, Log: log}
}

func (c *classifier) say(format string, args ...any) {
	c.parts = append(c.parts, fmt.Sprintf(format, args...))
}

func (c *classifier) command(e ports.ExecutionLogEntry) {
	command := e.Invocation
	if command == "" {
		var args tools.RunCommandArgs
		_ = json.Unmarshal(e.Args, &args)
		command = args.Command
	}

	var res sandbox.CommandResult
	switch r := e.Result.(type) {
	case sandbox.CommandResult:
		res = r
	case ports.Failure:
		res = sandbox.CommandResult{Success: false, Error: r.Error, ReturnCode: -1}
	default:
		res = sandbox.CommandResult{Success: e.Result != nil && e.Result.Succeeded(), ReturnCode: -1}
	}

	isTest := c.matcher.IsTestCommand(command)

	if res.Success {
		if !isTest {
			return
		}
		output := preferStdout(res.Stdout, res.Stderr)
		c.say("Test Results:\n%s", output)
		c.testsRan = true

		if res.ReturnCode != 0 || c.matcher.ReportsFailure(command, output) {
			c.testFailed = true
			c.passed = false
			return
		}
		c.passed = true
		return
	}

	if command == "" {
		c.say("Command failed: command")
	} else {
		c.say("Command failed: %s", command)
	}

	errMsg := preferStdout(res.Stdout, res.Stderr)
	if strings.TrimSpace(errMsg) == "" {
		errMsg = res.Error
	}

	if isTest {
		c.testsRan = true
		c.testFailed = true
		c.passed = false
	}

	if hint := Diagnose(errMsg); hint != "" {
		c.say("%s", hint)
	}

	if !isTest && len(errMsg) > maxErrorDetail {
		errMsg = errMsg[:maxErrorDetail]
	}
	c.say("Error details: %s", errMsg)
}

func (c *classifier) code(e ports.ExecutionLogEntry) {
	switch r := e.Result.(type) {
	case sandbox.ExecResult:
		if r.Success {
			c.say("Code executed: %s", r.Output)
		} else {
			c.say("Code execution failed: %s", r.Error)
		}
	case ports.Failure:
		c.say("Code execution failed: %s", r.Error)
	}
}

func (c *classifier) probe(e ports.ExecutionLogEntry) {
	switch r := e.Result.(type) {
	case sandbox.HTTPResult:
		if r.Success {
			c.say("API endpoint check passed: %d", r.StatusCode)
			if !c.testsRan {
				c.passed = true
			}
			return
		}
		if r.Error != "" {
			c.say("API endpoint check failed: %s", r.Error)
		} else {
			c.say("API endpoint check failed: status %d", r.StatusCode)
		}
	case ports.Failure:
		c.say("API endpoint check failed: %s", r.Error)
	}
}

func preferStdout(stdout, stderr string) string {
	if strings.TrimSpace(stdout) != "" {
		return stdout
	}
	return stderr
}
