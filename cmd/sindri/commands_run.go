package main

import (
	"fmt"

	"github.com/spf13/cobra"
)

// buildRunCmd creates the "run" command: drive a single user task to
// completion through the Orchestrator, starting from an entry agent.
func buildRunCmd() *cobra.Command {
	var (
		configPath string
		agentName  string
		task       string
	)

	cmd := &cobra.Command{
		Use:   "run",
		Short: "Run a task against an agent",
		Long: `Run hands a task description to an entry agent and drives the resulting
task tree (including any delegation) to completion, admitting each model
into the shared VRAM budget as its turn comes up.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runRun(cmd, resolveConfigPath(configPath), agentName, task)
		},
	}

	cmd.Flags().StringVarP(&configPath, "config", "c", "", "Path to YAML/JSON5 configuration file")
	cmd.Flags().StringVarP(&agentName, "agent", "a", "", "Entry agent name (required)")
	cmd.Flags().StringVarP(&task, "task", "t", "", "Task description (required)")
	cobra.CheckErr(cmd.MarkFlagRequired("agent"))
	cobra.CheckErr(cmd.MarkFlagRequired("task"))

	return cmd
}

func runRun(cmd *cobra.Command, configPath, agentName, task string) error {
	application, err := buildApp(configPath)
	if err != nil {
		return err
	}
	defer application.Close()

	out := cmd.OutOrStdout()
	outcome, err := application.orch.Run(cmd.Context(), agentName, task)
	if err != nil {
		return fmt.Errorf("run task: %w", err)
	}

	if outcome.Success {
		fmt.Fprintf(out, "task %s completed\n\n%s\n", outcome.TaskID, outcome.Result)
		return nil
	}
	fmt.Fprintf(out, "task %s failed: %s\n", outcome.TaskID, outcome.Error)
	return fmt.Errorf("task failed: %s", outcome.Error)
}
