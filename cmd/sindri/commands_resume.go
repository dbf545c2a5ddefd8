package main

import (
	"encoding/json"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/sindri-ai/sindri/pkg/sindri"
)

// buildResumeCmd creates the "resume" command: pick up a session the
// Recovery Manager has a checkpoint for and continue its loop.
func buildResumeCmd() *cobra.Command {
	var configPath string

	cmd := &cobra.Command{
		Use:   "resume [session-id]",
		Short: "Resume a session from its last checkpoint",
		Long: `Resume reloads the checkpoint the Recovery Manager saved for a session
(task description, agent, last completed iteration) and continues that
session's loop from its stored history, rather than starting a fresh one.

With no session-id, lists every session a checkpoint exists for.`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfgPath := resolveConfigPath(configPath)
			if len(args) == 0 {
				return listRecoverable(cmd, cfgPath)
			}
			return runResume(cmd, cfgPath, args[0])
		},
	}

	cmd.Flags().StringVarP(&configPath, "config", "c", "", "Path to YAML/JSON5 configuration file")
	return cmd
}

func listRecoverable(cmd *cobra.Command, configPath string) error {
	application, err := buildApp(configPath)
	if err != nil {
		return err
	}
	defer application.Close()

	recoverable, err := application.recovery.ListRecoverableSessions()
	if err != nil {
		return fmt.Errorf("list recoverable sessions: %w", err)
	}

	out := cmd.OutOrStdout()
	if len(recoverable) == 0 {
		fmt.Fprintln(out, "no recoverable sessions")
		return nil
	}
	for _, r := range recoverable {
		fmt.Fprintf(out, "%s\tcheckpointed %s\n", r.SessionID, r.Timestamp.Format("2006-01-02 15:04:05"))
	}
	return nil
}

type checkpointState struct {
	TaskDescription string `json:"task_description"`
	Iteration       int    `json:"iteration"`
	Agent           string `json:"agent"`
}

func runResume(cmd *cobra.Command, configPath, sessionID string) error {
	application, err := buildApp(configPath)
	if err != nil {
		return err
	}
	defer application.Close()

	ctx := cmd.Context()
	raw, err := application.recovery.LoadCheckpoint(sessionID)
	if err != nil {
		return fmt.Errorf("load checkpoint for %s: %w", sessionID, err)
	}
	var state checkpointState
	if err := json.Unmarshal(raw, &state); err != nil {
		return fmt.Errorf("decode checkpoint for %s: %w", sessionID, err)
	}

	session, err := application.sessions.Get(ctx, sessionID)
	if err != nil {
		return fmt.Errorf("load session %s: %w", sessionID, err)
	}

	agentDef, err := application.agents.Get(session.AgentName)
	if err != nil {
		return fmt.Errorf("resolve agent %s: %w", session.AgentName, err)
	}

	task := &sindri.Task{
		ID:          session.TaskID,
		SessionID:   session.ID,
		AgentName:   session.AgentName,
		Description: state.TaskDescription,
		Status:      sindri.TaskRunning,
	}

	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "resuming session %s (agent %s, last checkpoint at iteration %d)\n", sessionID, state.Agent, state.Iteration)

	result := application.loopRun(ctx, task, agentDef)
	if !result.Success {
		if result.Err != nil {
			return fmt.Errorf("resume failed: %w", result.Err)
		}
		fmt.Fprintf(out, "session %s did not complete: %s\n", sessionID, result.Reason)
		return fmt.Errorf("resume did not complete: %s", result.Reason)
	}
	fmt.Fprintf(out, "session %s completed\n\n%s\n", sessionID, result.FinalOutput)
	return nil
}
