package testloop

import (
	"os"
	"path/filepath"
)

const (
	DefaultAppName = "testloop"

	// DefaultBaseURL is the OpenAI-compatible endpoint used when none is configured.
	DefaultBaseURL = "https://dashscope.aliyuncs.com/compatible-mode/v1"
	DefaultModel   = "qwen3-max"

	DefaultMaxIterations        = 10
	DefaultMaxIterationsCeiling = 50
)

var (
	DefaultConfigPath   = filepath.Join(userDir(os.UserConfigDir), DefaultAppName)
	DefaultCacheDir     = filepath.Join(userDir(os.UserCacheDir), DefaultAppName)
	DefaultDatabasePath = filepath.Join(DefaultCacheDir, "runs.db")
)

func userDir(lookup func() (string, error)) string {
	dir, err := lookup()
	if err != nil || dir == "" {
		return "."
	}
	return dir
}
