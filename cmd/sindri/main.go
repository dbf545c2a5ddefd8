// Package main provides the CLI entry point for Sindri, a hierarchical
// local-LLM agent execution engine.
//
// Sindri drives a tree of agents, each running against a locally hosted
// Ollama model, admitting them into a shared VRAM budget and recovering
// in-flight work across restarts.
//
// # Basic Usage
//
// Run a task against an agent:
//
//	sindri run --agent brokkr --task "add retry logic to the fetcher"
//
// Resume a crashed or interrupted session:
//
//	sindri resume <session-id>
//
// Inspect configuration and connectivity:
//
//	sindri doctor
//
// # Environment Variables
//
//   - SINDRI_CONFIG: Path to configuration file (default: ./sindri.yaml,
//     then ~/.sindri/config.yaml, then built-in defaults)
package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

// Build information, populated by ldflags during build.
var (
	version = "dev"
	commit  = "none"
	date    = "unknown"
)

func main() {
	rootCmd := buildRootCmd()
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

// buildRootCmd creates the root command with all subcommands attached.
// Separated from main() to facilitate testing.
func buildRootCmd() *cobra.Command {
	rootCmd := &cobra.Command{
		Use:   "sindri",
		Short: "Sindri - hierarchical local-LLM agent execution engine",
		Long: `Sindri drives a tree of agents against locally hosted Ollama models,
admitting them into a shared VRAM budget and recovering in-flight work
across restarts.`,
		Version:      fmt.Sprintf("%s (commit: %s, built: %s)", version, commit, date),
		SilenceUsage: true,
	}

	rootCmd.AddCommand(
		buildRunCmd(),
		buildResumeCmd(),
		buildSessionsCmd(),
		buildAgentsCmd(),
		buildDoctorCmd(),
	)

	return rootCmd
}

func resolveConfigPath(path string) string {
	if path != "" {
		return path
	}
	if env := os.Getenv("SINDRI_CONFIG"); env != "" {
		return env
	}
	return ""
}
