package sandbox

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestNormalizer_Normalize(t *testing.T) {
	n := NewNormalizer("/usr/bin/python3.11")

	tests := []struct {
		name    string
		command string
		want    string
	}{
		{"pip install", "pip install requests", "/usr/bin/python3.11 -m pip install requests"},
		{"versioned pip install", "pip3 install -r requirements.txt", "/usr/bin/python3.11 -m pip install -r requirements.txt"},
		{"minor versioned pip", "pip3.11 install fastapi httpx", "/usr/bin/python3.11 -m pip install fastapi httpx"},
		{"other pip subcommand", "pip list", "/usr/bin/python3.11 -m pip list"},
		{"pytest with flags", "pytest -v", "/usr/bin/python3.11 -m pytest -v"},
		{"bare pytest", "pytest", "/usr/bin/python3.11 -m pytest"},
		{"python module", "python -m pytest test_generated.py", "/usr/bin/python3.11 -m pytest test_generated.py"},
		{"python3 script", "python3 app.py", "/usr/bin/python3.11 app.py"},
		{"bare python", "python", "/usr/bin/python3.11"},
		{"leading whitespace", "  pytest -q", "/usr/bin/python3.11 -m pytest -q"},
		{"unrelated command", "ls -la", "ls -la"},
		{"npm test", "npm test", "npm test"},
		{"lookalike binary", "pythonic run", "pythonic run"},
		{"pip prefix without token", "pipenv install", "pipenv install"},
		{"compound command keeps tail", "cd src && pytest", "cd src && pytest"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, n.Normalize(tt.command))
		})
	}
}

func TestNormalizer_InstallerTokenBoundary(t *testing.T) {
	n := NewNormalizer("/opt/py/bin/python")

	// "installer" is not the install subcommand.
	assert.Equal(t, "/opt/py/bin/python -m pip installer", n.Normalize("pip installer"))
}

func TestResolveInterpreter_AbsoluteConfiguredPathWins(t *testing.T) {
	assert.Equal(t, "/custom/python", ResolveInterpreter("/custom/python"))
}

func TestResolveInterpreter_UnresolvableNameFallsBack(t *testing.T) {
	assert.Equal(t, "definitely-not-a-python-binary", ResolveInterpreter("definitely-not-a-python-binary"))
}
