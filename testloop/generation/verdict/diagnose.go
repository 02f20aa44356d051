package verdict

import (
	"regexp"
	"strings"
)

var missingModule = regexp.MustCompile(`No module named ['"]?([\w.]+)['"]?`)

// Diagnose maps the error text of a failed command to a best-effort hint.
// It returns "" when nothing matched.
func Diagnose(errText string) string {
	lower := strings.ToLower(errText)

	switch {
	case strings.Contains(lower, "no collectors"):
		return "Error: pytest could not collect tests. This usually means the test file has " +
			"import errors or syntax errors. Try running 'python -c \"import test_file\"' " +
			"to diagnose the import issue."
	case strings.Contains(errText, "No module named") || strings.Contains(errText, "ModuleNotFoundError"):
		if m := missingModule.FindStringSubmatch(errText); m != nil {
			return "Error: Module '" + m[1] + "' not found. Check import paths."
		}
		return "Error: Module import failed. Check import paths in test file."
	case strings.Contains(errText, "ImportError"):
		return "Error: Import failed. Verify the import statements in the test file."
	case strings.Contains(errText, "SyntaxError"):
		return "Error: Syntax error in test file. Check the generated code for syntax issues."
	case strings.Contains(lower, "not found"):
		for _, runner := range []struct{ token, name string }{
			{"pytest", "pytest"},
			{"jest", "jest"},
			{"node", "Node.js"},
			{"python", "Python"},
		} {
			if strings.Contains(lower, runner.token) {
				return "Error: " + runner.name + " is not installed. Please install dependencies first."
			}
		}
	}
	return ""
}
