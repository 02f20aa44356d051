package sandbox

import (
	"os/exec"
	"path/filepath"
	"regexp"
	"strings"
	"unicode"

	radix "github.com/armon/go-radix"
)

// rewrite describes how a matched command prefix is re-expressed against the
// resolved interpreter.
type rewrite struct {
	expansion string // inserted after the interpreter path, may be empty
	consumes  int    // leading tokens replaced by the expansion
}

// versioned binary names, e.g. pip3, pip3.11, python3.12
var headPattern = regexp.MustCompile(`^(pip|pytest|python)(\d+(\.\d+)*)?$`)

// Normalizer rewrites installer, test-runner and interpreter invocations so
// they all bind to one interpreter binary.
type Normalizer struct {
	interpreter string
	rules       *radix.Tree
}

// NewNormalizer builds the rewrite table for the given interpreter path.
func NewNormalizer(interpreter string) *Normalizer {
	rules := radix.New()
	rules.Insert("pip install", rewrite{expansion: "-m pip install", consumes: 2})
	rules.Insert("pip", rewrite{expansion: "-m pip", consumes: 1})
	rules.Insert("pytest", rewrite{expansion: "-m pytest", consumes: 1})
	rules.Insert("python", rewrite{consumes: 1})

	return &Normalizer{interpreter: interpreter, rules: rules}
}

// Normalize returns the rewritten command, or command unchanged when no rule applies.
// Only the leading tokens are inspected; compound shell commands keep their tail as is.
func (n *Normalizer) Normalize(command string) string {
	head, rest := splitHead(strings.TrimSpace(command))
	match := headPattern.FindStringSubmatch(head)
	if match == nil {
		return command
	}

	key := match[1]
	if sub, _ := splitHead(rest); sub != "" {
		key += " " + sub
	}

	rule, ok := n.lookup(key)
	if !ok {
		return command
	}

	remaining := rest
	for i := 1; i < rule.consumes; i++ {
		_, remaining = splitHead(remaining)
	}

	parts := []string{n.interpreter}
	if rule.expansion != "" {
		parts = append(parts, rule.expansion)
	}
	if remaining != "" {
		parts = append(parts, remaining)
	}
	return strings.Join(parts, " ")
}

// lookup finds the longest rule that ends on a token boundary of key.
func (n *Normalizer) lookup(key string) (rewrite, bool) {
	prefix, value, ok := n.rules.LongestPrefix(key)
	if ok && (len(prefix) == len(key) || key[len(prefix)] == ' ') {
		return value.(rewrite), true
	}
	// "pip installer" shares a prefix with "pip install" but not a token.
	head, _ := splitHead(key)
	if value, ok := n.rules.Get(head); ok {
		return value.(rewrite), true
	}
	return rewrite{}, false
}

func splitHead(s string) (head, rest string) {
	idx := strings.IndexFunc(s, unicode.IsSpace)
	if idx < 0 {
		return s, ""
	}
	return s[:idx], strings.TrimLeftFunc(s[idx:], unicode.IsSpace)
}

// ResolveInterpreter returns an absolute interpreter path. A configured value
// wins; otherwise python3 and then python are looked up on PATH. When nothing
// resolves the bare name is returned so failures surface at execution time.
func ResolveInterpreter(configured string) string {
	candidates := []string{"python3", "python"}
	if configured != "" {
		if filepath.IsAbs(configured) {
			return configured
		}
		candidates = []string{configured}
	}

	for _, name := range candidates {
		if path, err := exec.LookPath(name); err == nil {
			if abs, err := filepath.Abs(path); err == nil {
				return abs
			}
			return path
		}
	}
	return candidates[0]
}
