package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/sindri-ai/sindri/internal/sessions"
	"github.com/sindri-ai/sindri/pkg/sindri"
)

// buildSessionsCmd creates the "sessions" command group.
func buildSessionsCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "sessions",
		Short: "Inspect stored sessions",
	}
	cmd.AddCommand(buildSessionsListCmd(), buildSessionsHistoryCmd())
	return cmd
}

func buildSessionsListCmd() *cobra.Command {
	var (
		configPath string
		status     string
		limit      int
	)

	cmd := &cobra.Command{
		Use:   "list",
		Short: "List stored sessions",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runSessionsList(cmd, resolveConfigPath(configPath), status, limit)
		},
	}

	cmd.Flags().StringVarP(&configPath, "config", "c", "", "Path to YAML/JSON5 configuration file")
	cmd.Flags().StringVar(&status, "status", "", "Filter by status (active, stale, closed)")
	cmd.Flags().IntVar(&limit, "limit", 50, "Maximum sessions to list")
	return cmd
}

func runSessionsList(cmd *cobra.Command, configPath, status string, limit int) error {
	application, err := buildApp(configPath)
	if err != nil {
		return err
	}
	defer application.Close()

	opts := sessions.ListOptions{Limit: limit}
	if status != "" {
		opts.Status = sindri.SessionStatus(status)
	}

	list, err := application.sessions.List(cmd.Context(), opts)
	if err != nil {
		return fmt.Errorf("list sessions: %w", err)
	}

	out := cmd.OutOrStdout()
	if len(list) == 0 {
		fmt.Fprintln(out, "no sessions found")
		return nil
	}
	for _, s := range list {
		fmt.Fprintf(out, "%s\t%s\t%s\tupdated %s\n", s.ID, s.AgentName, s.Status, s.UpdatedAt.Format("2006-01-02 15:04:05"))
	}
	return nil
}

func buildSessionsHistoryCmd() *cobra.Command {
	var (
		configPath string
		limit      int
	)

	cmd := &cobra.Command{
		Use:   "history [session-id]",
		Short: "Show a session's turn history",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runSessionsHistory(cmd, resolveConfigPath(configPath), args[0], limit)
		},
	}

	cmd.Flags().StringVarP(&configPath, "config", "c", "", "Path to YAML/JSON5 configuration file")
	cmd.Flags().IntVar(&limit, "limit", 0, "Maximum turns to show (0 for all)")
	return cmd
}

func runSessionsHistory(cmd *cobra.Command, configPath, sessionID string, limit int) error {
	application, err := buildApp(configPath)
	if err != nil {
		return err
	}
	defer application.Close()

	turns, err := application.sessions.GetHistory(cmd.Context(), sessionID, limit)
	if err != nil {
		return fmt.Errorf("load history for %s: %w", sessionID, err)
	}

	out := cmd.OutOrStdout()
	for _, t := range turns {
		fmt.Fprintf(out, "[%s] %s\n", t.Role, t.Content)
	}
	return nil
}
