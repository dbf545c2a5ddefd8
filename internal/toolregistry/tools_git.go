package toolregistry

import (
	"bytes"
	"context"
	"encoding/json"
	"os/exec"
	"time"

	"github.com/sindri-ai/sindri/pkg/sindri"
)

// gitTool runs one fixed git subcommand against the workspace. Each
// exported type below binds a different subcommand; none accept
// caller-supplied argv beyond a small set of safe, schema-validated flags.
type gitTool struct {
	name        string
	description string
	args        func(params json.RawMessage) ([]string, error)
	schema      json.RawMessage
	workspace   string
	timeout     time.Duration
}

func (t *gitTool) Name() string               { return t.name }
func (t *gitTool) Description() string        { return t.description }
func (t *gitTool) Schema() json.RawMessage    { return t.schema }

func (t *gitTool) Execute(ctx context.Context, params json.RawMessage) (*sindri.ToolResult, error) {
	args, err := t.args(params)
	if err != nil {
		return errResult("invalid parameters: %v", err), nil
	}
	runCtx, cancel := context.WithTimeout(ctx, t.timeout)
	defer cancel()

	cmd := exec.CommandContext(runCtx, "git", args...)
	cmd.Dir = t.workspace
	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	if err := cmd.Run(); err != nil {
		return &sindri.ToolResult{Success: false, Error: stderr.String(), Output: stdout.String()}, nil
	}
	return okResult(stdout.String()), nil
}

// NewGitStatusTool reports working-tree status.
func NewGitStatusTool(workspace string) Tool {
	return &gitTool{
		name: "git_status", description: "Show git working tree status.",
		workspace: workspace, timeout: 10 * time.Second,
		schema: schemaBytes(map[string]any{"type": "object"}),
		args: func(json.RawMessage) ([]string, error) { return []string{"status", "--short", "--branch"}, nil },
	}
}

// NewGitDiffTool shows the working-tree diff, optionally staged.
func NewGitDiffTool(workspace string) Tool {
	return &gitTool{
		name: "git_diff", description: "Show a git diff, optionally restricted to staged changes.",
		workspace: workspace, timeout: 10 * time.Second,
		schema: schemaBytes(map[string]any{
			"type":       "object",
			"properties": map[string]any{"staged": map[string]any{"type": "boolean"}},
		}),
		args: func(p json.RawMessage) ([]string, error) {
			var in struct {
				Staged bool `json:"staged"`
			}
			_ = json.Unmarshal(p, &in)
			if in.Staged {
				return []string{"diff", "--staged"}, nil
			}
			return []string{"diff"}, nil
		},
	}
}

// NewGitLogTool shows recent commits.
func NewGitLogTool(workspace string) Tool {
	return &gitTool{
		name: "git_log", description: "Show recent git commits.",
		workspace: workspace, timeout: 10 * time.Second,
		schema: schemaBytes(map[string]any{
			"type":       "object",
			"properties": map[string]any{"limit": map[string]any{"type": "integer", "minimum": 1}},
		}),
		args: func(p json.RawMessage) ([]string, error) {
			var in struct {
				Limit int `json:"limit"`
			}
			_ = json.Unmarshal(p, &in)
			if in.Limit <= 0 {
				in.Limit = 10
			}
			return []string{"log", "--oneline", "-n", itoa(in.Limit)}, nil
		},
	}
}

// NewGitBranchTool lists local branches.
func NewGitBranchTool(workspace string) Tool {
	return &gitTool{
		name: "git_branch", description: "List local git branches.",
		workspace: workspace, timeout: 10 * time.Second,
		schema: schemaBytes(map[string]any{"type": "object"}),
		args:   func(json.RawMessage) ([]string, error) { return []string{"branch", "--list"}, nil },
	}
}

func itoa(n int) string {
	payload, _ := json.Marshal(n)
	return string(payload)
}
