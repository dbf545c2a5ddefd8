package toolregistry

import (
	"context"
	"encoding/json"

	"github.com/sindri-ai/sindri/pkg/sindri"
)

// DelegateTool is the special tool call the Loop (C8) intercepts before it
// ever reaches the registry's ordinary dispatch path: seeing "delegate" in
// a parsed tool call tells the Loop to suspend the current task and enqueue
// a child task instead of calling Execute here. It is still registered so
// its name/description/schema are sent to the model like any other tool.
type DelegateTool struct{}

func NewDelegateTool() *DelegateTool { return &DelegateTool{} }

func (t *DelegateTool) Name() string        { return "delegate" }
func (t *DelegateTool) Description() string {
	return "Suspend the current task and delegate a subtask to another agent, resuming with its result."
}

func (t *DelegateTool) Schema() json.RawMessage {
	return schemaBytes(map[string]any{
		"type": "object",
		"properties": map[string]any{
			"agent":   map[string]any{"type": "string", "description": "Name of the agent to delegate to."},
			"task":    map[string]any{"type": "string", "description": "Description of the subtask."},
			"context": map[string]any{"type": "object", "description": "Optional extra context to hand the child task."},
		},
		"required": []string{"agent", "task"},
	})
}

// Execute is unreachable in normal operation; the Loop dispatches delegate
// calls itself. It is defined so DelegateTool satisfies Tool and so a
// misrouted call fails loudly instead of silently doing nothing.
func (t *DelegateTool) Execute(ctx context.Context, params json.RawMessage) (*sindri.ToolResult, error) {
	return &sindri.ToolResult{
		Success: false,
		Error:   "delegate must be intercepted by the loop before dispatch; this tool has no direct execution",
	}, nil
}
