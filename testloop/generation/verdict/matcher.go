package verdict

import (
	"regexp"
	"strings"
)

// Matcher decides which commands run tests and whether their output
// reports failures despite a zero exit status.
type Matcher interface {
	IsTestCommand(command string) bool
	ReportsFailure(command, output string) bool
}

// Framework is a keyword/pattern matcher for one test runner. Keywords are
// matched against the lower-cased command, Failure against the lower-cased
// output.
type Framework struct {
	Name     string
	Keywords []string
	Failure  []*regexp.Regexp
}

func (f *Framework) IsTestCommand(command string) bool {
	cmd := strings.ToLower(command)
	for _, kw := range f.Keywords {
		if strings.Contains(cmd, kw) {
			return true
		}
	}
	return false
}

func (f *Framework) ReportsFailure(command, output string) bool {
	out := strings.ToLower(output)
	for _, re := range f.Failure {
		if re.MatchString(out) {
			return true
		}
	}
	return false
}

var failedCount = regexp.MustCompile(`\d+\s+failed`)

var (
	Pytest = &Framework{
		Name:     "pytest",
		Keywords: []string{"pytest", "unittest"},
		Failure: []*regexp.Regexp{
			failedCount,
			regexp.MustCompile(`\d+\s+errors?\b`),
			regexp.MustCompile(`(?m)^failed\s`),
		},
	}
	Jest = &Framework{
		Name:     "jest",
		Keywords: []string{"jest", "vitest", "mocha", "npm test", "npm run test", "yarn test"},
		Failure: []*regexp.Regexp{
			failedCount,
			regexp.MustCompile(`\d+\s+failing`),
		},
	}
	GoTest = &Framework{
		Name:     "go",
		Keywords: []string{"go test"},
		Failure: []*regexp.Regexp{
			regexp.MustCompile(`(?m)^--- fail`),
			regexp.MustCompile(`(?m)^fail\b`),
		},
	}

	// Default is the single global pattern set: any command mentioning a
	// runner or the word "test" is a test command, and output fails when it
	// counts failures or mentions "failed" alongside "test".
	Default = &Framework{
		Name:     "default",
		Keywords: []string{"test", "pytest", "jest"},
		Failure: []*regexp.Regexp{
			failedCount,
			regexp.MustCompile(`(?s)failed.*test|test.*failed`),
		},
	}
)

// Frameworks combines matchers. Every matcher that claims a command is
// consulted and any one of them reporting failure fails the output, so a
// framework can only add failure signals, never mask Default's.
type Frameworks []Matcher

func (fs Frameworks) IsTestCommand(command string) bool {
	for _, m := range fs {
		if m.IsTestCommand(command) {
			return true
		}
	}
	return false
}

func (fs Frameworks) ReportsFailure(command, output string) bool {
	for _, m := range fs {
		if m.IsTestCommand(command) && m.ReportsFailure(command, output) {
			return true
		}
	}
	return false
}

// Standard is Default plus the framework-specific failure signals.
var Standard = Frameworks{Pytest, Jest, GoTest, Default}

var (
	_ Matcher = (*Framework)(nil)
	_ Matcher = Frameworks(nil)
)
