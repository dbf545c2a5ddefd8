package toolregistry

import "time"

// NewDefaultRegistry builds a registry with the full built-in tool set
// described in SPEC_FULL.md §4.2, rooted at workspace.
func NewDefaultRegistry(workspace string, shellTimeout time.Duration) (*Registry, error) {
	r := New()
	tools := []Tool{
		NewReadFileTool(workspace, 0),
		NewWriteFileTool(workspace),
		NewEditFileTool(workspace),
		NewListDirectoryTool(workspace),
		NewReadTreeTool(workspace),
		NewSearchCodeTool(workspace),
		NewFindSymbolTool(workspace),
		NewGitStatusTool(workspace),
		NewGitDiffTool(workspace),
		NewGitLogTool(workspace),
		NewGitBranchTool(workspace),
		NewShellTool(workspace, shellTimeout),
		NewDelegateTool(),
	}
	for _, t := range tools {
		if err := r.Register(t); err != nil {
			return nil, err
		}
	}
	return r, nil
}
