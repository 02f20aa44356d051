package sandbox

// Result values are what the runner hands back for every operation. Each one
// serializes to the structured payload the reasoning engine sees and reports
// success through Succeeded.

// ExecResult is returned by ExecuteCode.
type ExecResult struct {
	Success    bool   `json:"success"`
	Output     string `json:"output"`
	Error      string `json:"error,omitempty"`
	ReturnCode int    `json:"return_code"`
	Language   string `json:"language"`

	code string
}

func (r ExecResult) Succeeded() bool { return r.Success }

// Invocation returns the leading part of the executed snippet.
func (r ExecResult) Invocation() string {
	const max = 100
	if len(r.code) > max {
		return r.code[:max]
	}
	return r.code
}

// CommandResult is returned by RunCommand.
type CommandResult struct {
	Success    bool   `json:"success"`
	Stdout     string `json:"stdout"`
	Stderr     string `json:"stderr"`
	ReturnCode int    `json:"returncode"`
	Error      string `json:"error,omitempty"`
	Command    string `json:"command"`
	Executed   string `json:"executed_command,omitempty"`
	WorkingDir string `json:"working_dir,omitempty"`
}

func (r CommandResult) Succeeded() bool { return r.Success }

// Invocation is the command as the caller issued it, before normalization.
func (r CommandResult) Invocation() string { return r.Command }

// ReadResult is returned by ReadFile.
type ReadResult struct {
	Success  bool   `json:"success"`
	Content  string `json:"content,omitempty"`
	FilePath string `json:"file_path"`
	Error    string `json:"error,omitempty"`
}

func (r ReadResult) Succeeded() bool { return r.Success }

// WriteResult is returned by WriteFile.
type WriteResult struct {
	Success  bool   `json:"success"`
	Message  string `json:"message,omitempty"`
	FilePath string `json:"file_path"`
	Error    string `json:"error,omitempty"`
}

func (r WriteResult) Succeeded() bool { return r.Success }

func (r WriteResult) Invocation() string { return r.FilePath }

// HTTPResult is returned by CheckAPIEndpoint.
type HTTPResult struct {
	Success    bool              `json:"success"`
	StatusCode int               `json:"status_code,omitempty"`
	Response   any               `json:"response,omitempty"`
	Headers    map[string]string `json:"headers,omitempty"`
	Error      string            `json:"error,omitempty"`
	Method     string            `json:"method"`
	URL        string            `json:"url"`
}

func (r HTTPResult) Succeeded() bool { return r.Success }

func (r HTTPResult) Invocation() string { return r.Method + " " + r.URL }

// ValidationResult is returned by ValidateTestResult.
type ValidationResult struct {
	Success   bool   `json:"success"`
	Valid     bool   `json:"valid"`
	HasOutput bool   `json:"has_output"`
	IsSuccess bool   `json:"is_success"`
	Message   string `json:"message"`
}

func (r ValidationResult) Succeeded() bool { return r.Success }
