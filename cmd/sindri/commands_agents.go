package main

import (
	"fmt"

	"github.com/spf13/cobra"
)

// buildAgentsCmd creates the "agents" command group for inspecting the
// Agent Registry (built-in definitions plus any *.agent.toml catalog
// plugins loaded from the data directory).
func buildAgentsCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "agents",
		Short: "Inspect registered agents",
	}
	cmd.AddCommand(buildAgentsListCmd(), buildAgentsShowCmd())
	return cmd
}

func buildAgentsListCmd() *cobra.Command {
	var configPath string

	cmd := &cobra.Command{
		Use:   "list",
		Short: "List registered agents",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runAgentsList(cmd, resolveConfigPath(configPath))
		},
	}

	cmd.Flags().StringVarP(&configPath, "config", "c", "", "Path to YAML/JSON5 configuration file")
	return cmd
}

func runAgentsList(cmd *cobra.Command, configPath string) error {
	application, err := buildApp(configPath)
	if err != nil {
		return err
	}
	defer application.Close()

	out := cmd.OutOrStdout()
	names := application.agents.List()
	if len(names) == 0 {
		fmt.Fprintln(out, "no agents registered")
		return nil
	}
	for _, name := range names {
		def, err := application.agents.Get(name)
		if err != nil {
			continue
		}
		fmt.Fprintf(out, "%s\tmodel=%s\tpriority=%d\t%s\n", def.Name, def.Model, def.Priority, def.Description)
	}
	return nil
}

func buildAgentsShowCmd() *cobra.Command {
	var configPath string

	cmd := &cobra.Command{
		Use:   "show [agent-name]",
		Short: "Show an agent's full definition",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runAgentsShow(cmd, resolveConfigPath(configPath), args[0])
		},
	}

	cmd.Flags().StringVarP(&configPath, "config", "c", "", "Path to YAML/JSON5 configuration file")
	return cmd
}

func runAgentsShow(cmd *cobra.Command, configPath, name string) error {
	application, err := buildApp(configPath)
	if err != nil {
		return err
	}
	defer application.Close()

	def, err := application.agents.Get(name)
	if err != nil {
		return fmt.Errorf("get agent %s: %w", name, err)
	}

	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "name:             %s\n", def.Name)
	fmt.Fprintf(out, "description:      %s\n", def.Description)
	fmt.Fprintf(out, "model:            %s\n", def.Model)
	if def.FallbackModel != "" {
		fmt.Fprintf(out, "fallback model:   %s (%.1f GB)\n", def.FallbackModel, def.FallbackVRAMGB)
	}
	fmt.Fprintf(out, "estimated vram:   %.1f GB\n", def.EstimatedVRAMGB)
	fmt.Fprintf(out, "priority:         %d\n", def.Priority)
	fmt.Fprintf(out, "max iterations:   %d\n", def.MaxIterations)
	if len(def.Tools) > 0 {
		fmt.Fprintf(out, "tools:            %v\n", def.Tools)
	}
	if len(def.DelegateTo) > 0 {
		fmt.Fprintf(out, "delegates to:     %v\n", def.DelegateTo)
	}
	fmt.Fprintf(out, "system prompt:\n%s\n", def.SystemPrompt)
	return nil
}
