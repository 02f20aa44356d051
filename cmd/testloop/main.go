// Package main implements the testloop CLI.
package main

import (
	"os"

	"github.com/spf13/cobra"
)

var version = "dev"

func main() {
	if err := newRootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:   "testloop",
		Short: "Generate and execute tests for a code tree with a tool-calling model",
		Long: `testloop drives an OpenAI-compatible model through a bounded
tool-calling loop: the model reads the code tree, writes test files, runs
them and reports back. The result is the generated test code plus a
pass/fail verdict.`,
		Version:      version,
		SilenceUsage: true,
	}

	root.PersistentFlags().String("config", "", "config file (default: config.yaml in ., .., /etc/testloop or the user config dir)")
	root.PersistentFlags().String("log-level", "info", "log level (trace, debug, info, warn, error)")

	root.AddCommand(newRunCmd())
	return root
}
