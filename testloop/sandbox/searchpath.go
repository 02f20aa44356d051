package sandbox

import (
	"os"
	"path/filepath"
	"strings"

	ignore "github.com/sabhiram/go-gitignore"
)

// PythonPathVar is the search path variable augmented for every subprocess.
const PythonPathVar = "PYTHONPATH"

// SearchPath builds the module search path for a working directory: the
// directory itself, then each immediate subdirectory that is not noise.
type SearchPath struct {
	noise *ignore.GitIgnore
}

// NewSearchPath compiles gitignore-style noise patterns such as ".*" or "node_modules".
func NewSearchPath(noisePatterns []string) *SearchPath {
	return &SearchPath{noise: ignore.CompileIgnoreLines(noisePatterns...)}
}

// IsNoise reports whether a directory name is excluded from the search path.
func (s *SearchPath) IsNoise(name string) bool {
	return s.noise.MatchesPath(name)
}

// Entries lists dir followed by its non-noise immediate subdirectories in name order.
func (s *SearchPath) Entries(dir string) []string {
	entries := []string{dir}

	children, err := os.ReadDir(dir)
	if err != nil {
		return entries
	}
	for _, child := range children {
		if !child.IsDir() || s.IsNoise(child.Name()) {
			continue
		}
		entries = append(entries, filepath.Join(dir, child.Name()))
	}
	return entries
}

// Environ returns base with PythonPathVar replaced by the entries for dir,
// followed by whatever value base already carried.
func (s *SearchPath) Environ(dir string, base []string) []string {
	var existing string
	env := make([]string, 0, len(base)+1)
	prefix := PythonPathVar + "="
	for _, kv := range base {
		if strings.HasPrefix(kv, prefix) {
			existing = strings.TrimPrefix(kv, prefix)
			continue
		}
		env = append(env, kv)
	}

	parts := s.Entries(dir)
	if existing != "" {
		parts = append(parts, existing)
	}
	return append(env, prefix+strings.Join(parts, string(os.PathListSeparator)))
}
