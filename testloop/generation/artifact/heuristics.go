package artifact

import (
	"path/filepath"
	"regexp"
	"strings"
)

var (
	// test, tests, spec or generated as a path token, e.g. tests/, test_x.py,
	// x_test.go, app.spec.ts, test_generated.py
	pathToken = regexp.MustCompile(`(^|[/_.\-])(tests?|spec|generated)([/_.\-]|$)`)
	// TestApp.java, AppTest.kt
	camelTestName = regexp.MustCompile(`(^Test[A-Z0-9]\w*|\w+Test)\.\w+$`)

	contentMarkers = []*regexp.Regexp{
		regexp.MustCompile(`\bdef\s+test`),
		regexp.MustCompile(`\bclass\s+Test`),
		regexp.MustCompile(`\bimport\s+(pytest|unittest)\b`),
		regexp.MustCompile(`\bfrom\s+(pytest|unittest)\b`),
		regexp.MustCompile(`\bTestClient\b`),
		regexp.MustCompile(`\bassert\b`),
		regexp.MustCompile(`\b(describe|it|test)\s*\(`),
		regexp.MustCompile(`\bexpect\s*\(`),
		regexp.MustCompile(`\.toBe\w*\(`),
		regexp.MustCompile(`\bfunc\s+Test[A-Z_]`),
	}
)

// IsTestPath reports whether a path follows a test-file naming convention.
func IsTestPath(path string) bool {
	p := strings.ToLower(filepath.ToSlash(path))
	if pathToken.MatchString(p) {
		return true
	}
	return camelTestName.MatchString(filepath.Base(path))
}

// LooksLikeTest reports whether content carries a test-framework marker.
func LooksLikeTest(content string) bool {
	for _, m := range contentMarkers {
		if m.MatchString(content) {
			return true
		}
	}
	return false
}
