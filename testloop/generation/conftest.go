package generation

import (
	"bytes"
	"errors"
	"io/fs"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"text/template"
)

// ConftestName is the pytest hook file written into every working directory.
const ConftestName = "conftest.py"

const conftestTemplate = `"""
Auto-generated conftest.py for test path setup.
"""
import os
import sys

_root = os.path.dirname(os.path.abspath(__file__))
_skip = {{.Skip}}

if _root not in sys.path:
    sys.path.insert(0, _root)

for _name in sorted(os.listdir(_root)):
    _path = os.path.join(_root, _name)
    if not os.path.isdir(_path) or _name.startswith(".") or _name in _skip:
        continue
    if _path not in sys.path:
        sys.path.insert(0, _path)
`

var conftest = template.Must(template.New("conftest").Parse(conftestTemplate))

// writeConftest creates conftest.py under root unless one exists. It reports
// whether a file was written.
func writeConftest(root string, noiseDirs []string) (bool, error) {
	path := filepath.Join(root, ConftestName)
	if _, err := os.Stat(path); err == nil {
		return false, nil
	} else if !errors.Is(err, fs.ErrNotExist) {
		return false, err
	}

	var buf bytes.Buffer
	if err := conftest.Execute(&buf, struct{ Skip string }{Skip: pythonSet(noiseDirs)}); err != nil {
		return false, err
	}
	if err := os.WriteFile(path, buf.Bytes(), 0o644); err != nil {
		return false, err
	}
	return true, nil
}

// pythonSet renders the literal directory names among patterns as a Python
// set. Glob patterns are left to the hidden-directory check.
func pythonSet(patterns []string) string {
	var names []string
	for _, p := range patterns {
		p = strings.Trim(p, "/")
		if p == "" || strings.ContainsAny(p, "*?[]!/") {
			continue
		}
		names = append(names, strconv.Quote(p))
	}
	if len(names) == 0 {
		return "set()"
	}
	return "{" + strings.Join(names, ", ") + "}"
}
