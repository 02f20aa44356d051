package generation

import (
	"bytes"
	"io/fs"
	"path/filepath"
	"slices"
	"strings"
	"text/template"

	"github.com/ZanzyTHEbar/testloop/testloop/sandbox"
)

// SystemPrompt instructs the reasoning engine how to use the six tools.
const SystemPrompt = `You are an expert test engineer. Generate and execute tests that verify the codebase in the working directory implements the requested features.

Available tools:
- read_file: read a file from the codebase. Use it first to find the real import paths.
- write_file: write a file into the codebase. You MUST save the generated test code with it.
- run_command: run a shell command in the working directory.
- execute_code: run a short python or javascript snippet.
- check_api_endpoint: send an HTTP request to a running service.
- validate_test_result: check that a result object carries output.

Rules:
1. Read the entry point (main.py, app.py, index.js, ...) before writing any import. Never guess import paths.
2. A conftest.py puts the working directory and its top-level folders on the module search path. Import modules relative to those folders.
3. Save the tests with write_file under a name such as test_generated.py.
4. Install dependencies with run_command before running tests, e.g. "pip install -r requirements.txt" then "pip install pytest httpx==0.24.1".
5. Check the test module imports cleanly ("python -c \"import test_generated\"") before running the suite.
6. Run the suite with "python -m pytest test_generated.py -v --tb=short". If collection fails, fix the imports and run it again.
7. Finish with a short summary of the results and no tool calls.`

const userPromptTemplate = `Analyze the codebase and verify that it implements the required features correctly.

## Task
{{.Task}}

## Project structure
{{range .Files}}- {{.}}
{{else}}(empty)
{{end}}{{if .Truncated}}- ...
{{end}}
{{- if .EntryPoints}}
## Candidate entry points (verify before importing)
{{range .EntryPoints}}- {{.}}
{{end}}{{end}}
## Steps
1. Read the candidate entry points and the files the task mentions.
2. Write the tests with write_file.
3. Install dependencies, check the import, then run the tests with {{.Interpreter}} -m pytest.
4. Summarize the outcome.
`

var userPrompt = template.Must(template.New("user").Parse(userPromptTemplate))

// maxListedFiles bounds the project structure section.
const maxListedFiles = 60

// maxListDepth is how many directory levels below the root are listed.
const maxListDepth = 3

var entryPointNames = []string{
	"main.py", "app.py", "server.py", "manage.py", "wsgi.py", "asgi.py",
	"index.js", "app.js", "server.js", "main.js",
}

type promptData struct {
	Task        string
	Files       []string
	Truncated   bool
	EntryPoints []string
	Interpreter string
}

// renderPrompt builds the opening user turn for a task against root.
func renderPrompt(task, root, interpreter string, noise *sandbox.SearchPath) (string, error) {
	files, truncated := listProject(root, noise)

	data := promptData{
		Task:        strings.TrimSpace(task),
		Files:       files,
		Truncated:   truncated,
		EntryPoints: entryPoints(files),
		Interpreter: filepath.Base(interpreter),
	}

	var buf bytes.Buffer
	if err := userPrompt.Execute(&buf, data); err != nil {
		return "", err
	}
	return buf.String(), nil
}

// listProject returns slash-separated relative file paths under root, skipping
// noise directories, in walk order.
func listProject(root string, noise *sandbox.SearchPath) ([]string, bool) {
	var files []string
	truncated := false

	_ = filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return nil
		}
		rel, relErr := filepath.Rel(root, path)
		if relErr != nil || rel == "." {
			return nil
		}
		depth := strings.Count(filepath.ToSlash(rel), "/")

		if d.IsDir() {
			if noise.IsNoise(d.Name()) || depth >= maxListDepth {
				return filepath.SkipDir
			}
			return nil
		}
		if len(files) == maxListedFiles {
			truncated = true
			return filepath.SkipAll
		}
		files = append(files, filepath.ToSlash(rel))
		return nil
	})

	return files, truncated
}

func entryPoints(files []string) []string {
	var out []string
	for _, f := range files {
		if slices.Contains(entryPointNames, filepath.Base(f)) {
			out = append(out, f)
		}
	}
	return out
}
