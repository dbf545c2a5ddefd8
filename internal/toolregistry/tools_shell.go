package toolregistry

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"os/exec"
	"regexp"
	"strings"
	"time"

	"github.com/sindri-ai/sindri/pkg/sindri"
)

// shell metacharacter / control-char guards, adapted from the teacher's
// internal/exec safety helpers and folded directly into the shell tool
// since nothing else in this module needs a standalone exec package.
var (
	shellMetachars = regexp.MustCompile("[;&|`$<>]")
	controlChars   = regexp.MustCompile(`[\r\n]`)
)

var errUnsafeArgument = errors.New("argument contains shell metacharacters or control characters")

func sanitizeArg(arg string) error {
	if strings.Contains(arg, "\x00") {
		return errUnsafeArgument
	}
	if controlChars.MatchString(arg) {
		return errUnsafeArgument
	}
	if shellMetachars.MatchString(arg) {
		return errUnsafeArgument
	}
	return nil
}

// ShellTool runs a bare command (no shell interpolation) with a bounded
// timeout, rooted at the workspace directory.
type ShellTool struct {
	resolver Resolver
	timeout  time.Duration
}

func NewShellTool(workspace string, timeout time.Duration) *ShellTool {
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	return &ShellTool{resolver: Resolver{Root: workspace}, timeout: timeout}
}

func (t *ShellTool) Name() string        { return "shell" }
func (t *ShellTool) Description() string {
	return "Run a command (argv form, no shell interpolation) in the workspace with a bounded timeout."
}

func (t *ShellTool) Schema() json.RawMessage {
	return schemaBytes(map[string]any{
		"type": "object",
		"properties": map[string]any{
			"command": map[string]any{"type": "string", "description": "Executable name."},
			"args":    map[string]any{"type": "array", "items": map[string]any{"type": "string"}},
		},
		"required": []string{"command"},
	})
}

func (t *ShellTool) Execute(ctx context.Context, params json.RawMessage) (*sindri.ToolResult, error) {
	var input struct {
		Command string   `json:"command"`
		Args    []string `json:"args"`
	}
	if err := json.Unmarshal(params, &input); err != nil {
		return errResult("invalid parameters: %v", err), nil
	}
	if err := sanitizeArg(input.Command); err != nil {
		return errResult("unsafe command: %v", err), nil
	}
	for _, a := range input.Args {
		if err := sanitizeArg(a); err != nil {
			return errResult("unsafe argument %q: %v", a, err), nil
		}
	}

	root, err := t.resolver.Resolve(".")
	if err != nil {
		return errResult("%v", err), nil
	}

	runCtx, cancel := context.WithTimeout(ctx, t.timeout)
	defer cancel()

	cmd := exec.CommandContext(runCtx, input.Command, input.Args...)
	cmd.Dir = root
	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	runErr := cmd.Run()
	result := &sindri.ToolResult{
		Metadata: map[string]any{
			"stdout": stdout.String(),
			"stderr": stderr.String(),
		},
	}
	if runCtx.Err() != nil {
		result.Success = false
		result.Error = "command timed out"
		return result, nil
	}
	if runErr != nil {
		result.Success = false
		result.Error = runErr.Error()
		result.Output = stdout.String()
		return result, nil
	}
	result.Success = true
	result.Output = stdout.String()
	return result, nil
}
