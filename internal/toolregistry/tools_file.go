package toolregistry

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/sindri-ai/sindri/pkg/sindri"
)

func schemaBytes(v any) json.RawMessage {
	payload, err := json.Marshal(v)
	if err != nil {
		return json.RawMessage(`{"type":"object"}`)
	}
	return payload
}

func errResult(format string, args ...any) *sindri.ToolResult {
	return &sindri.ToolResult{Success: false, Error: fmt.Sprintf(format, args...)}
}

func okResult(output string) *sindri.ToolResult {
	return &sindri.ToolResult{Success: true, Output: output}
}

// ReadFileTool reads a file from the workspace with optional offset and
// byte limit. Adapted from the teacher's files.ReadTool.
type ReadFileTool struct {
	resolver     Resolver
	maxReadBytes int
}

// NewReadFileTool creates a read_file tool scoped to workspace.
func NewReadFileTool(workspace string, maxReadBytes int) *ReadFileTool {
	if maxReadBytes <= 0 {
		maxReadBytes = 200_000
	}
	return &ReadFileTool{resolver: Resolver{Root: workspace}, maxReadBytes: maxReadBytes}
}

func (t *ReadFileTool) Name() string        { return "read_file" }
func (t *ReadFileTool) Description() string { return "Read a file from the workspace with an optional offset and byte limit." }

func (t *ReadFileTool) Schema() json.RawMessage {
	return schemaBytes(map[string]any{
		"type": "object",
		"properties": map[string]any{
			"path":      map[string]any{"type": "string", "description": "Path relative to the workspace root."},
			"offset":    map[string]any{"type": "integer", "minimum": 0},
			"max_bytes": map[string]any{"type": "integer", "minimum": 0},
		},
		"required": []string{"path"},
	})
}

func (t *ReadFileTool) Execute(ctx context.Context, params json.RawMessage) (*sindri.ToolResult, error) {
	var input struct {
		Path     string `json:"path"`
		Offset   int64  `json:"offset"`
		MaxBytes int    `json:"max_bytes"`
	}
	if err := json.Unmarshal(params, &input); err != nil {
		return errResult("invalid parameters: %v", err), nil
	}
	resolved, err := t.resolver.Resolve(input.Path)
	if err != nil {
		return errResult("%v", err), nil
	}

	f, err := os.Open(resolved)
	if err != nil {
		return errResult("open file: %v", err), nil
	}
	defer f.Close()

	info, err := f.Stat()
	if err != nil {
		return errResult("stat file: %v", err), nil
	}
	if input.Offset > 0 {
		if _, err := f.Seek(input.Offset, io.SeekStart); err != nil {
			return errResult("seek file: %v", err), nil
		}
	}

	limit := t.maxReadBytes
	if input.MaxBytes > 0 && input.MaxBytes < limit {
		limit = input.MaxBytes
	}
	remaining := info.Size() - input.Offset
	if remaining < 0 {
		remaining = 0
	}
	if remaining > int64(limit) {
		remaining = int64(limit)
	}

	buf, err := io.ReadAll(io.LimitReader(f, remaining))
	if err != nil {
		return errResult("read file: %v", err), nil
	}
	truncated := input.Offset+int64(len(buf)) < info.Size()

	payload, _ := json.MarshalIndent(map[string]any{
		"path": input.Path, "content": string(buf), "offset": input.Offset,
		"bytes": len(buf), "truncated": truncated,
	}, "", "  ")
	return okResult(string(payload)), nil
}

// WriteFileTool writes (creating or overwriting) a file in the workspace.
type WriteFileTool struct {
	resolver Resolver
}

func NewWriteFileTool(workspace string) *WriteFileTool {
	return &WriteFileTool{resolver: Resolver{Root: workspace}}
}

func (t *WriteFileTool) Name() string        { return "write_file" }
func (t *WriteFileTool) Description() string { return "Create or overwrite a file in the workspace." }

func (t *WriteFileTool) Schema() json.RawMessage {
	return schemaBytes(map[string]any{
		"type": "object",
		"properties": map[string]any{
			"path":    map[string]any{"type": "string"},
			"content": map[string]any{"type": "string"},
		},
		"required": []string{"path", "content"},
	})
}

func (t *WriteFileTool) Execute(ctx context.Context, params json.RawMessage) (*sindri.ToolResult, error) {
	var input struct {
		Path    string `json:"path"`
		Content string `json:"content"`
	}
	if err := json.Unmarshal(params, &input); err != nil {
		return errResult("invalid parameters: %v", err), nil
	}
	resolved, err := t.resolver.Resolve(input.Path)
	if err != nil {
		return errResult("%v", err), nil
	}
	if err := os.MkdirAll(filepath.Dir(resolved), 0o755); err != nil {
		return errResult("create parent directories: %v", err), nil
	}
	if err := os.WriteFile(resolved, []byte(input.Content), 0o644); err != nil {
		return errResult("write file: %v", err), nil
	}
	return okResult(fmt.Sprintf("wrote %d bytes to %s", len(input.Content), input.Path)), nil
}

// EditFileTool performs a literal find-and-replace within one file.
type EditFileTool struct {
	resolver Resolver
}

func NewEditFileTool(workspace string) *EditFileTool {
	return &EditFileTool{resolver: Resolver{Root: workspace}}
}

func (t *EditFileTool) Name() string        { return "edit_file" }
func (t *EditFileTool) Description() string {
	return "Replace the first (or all) occurrences of old_text with new_text in a file."
}

func (t *EditFileTool) Schema() json.RawMessage {
	return schemaBytes(map[string]any{
		"type": "object",
		"properties": map[string]any{
			"path":        map[string]any{"type": "string"},
			"old_text":    map[string]any{"type": "string"},
			"new_text":    map[string]any{"type": "string"},
			"replace_all": map[string]any{"type": "boolean"},
		},
		"required": []string{"path", "old_text", "new_text"},
	})
}

func (t *EditFileTool) Execute(ctx context.Context, params json.RawMessage) (*sindri.ToolResult, error) {
	var input struct {
		Path       string `json:"path"`
		OldText    string `json:"old_text"`
		NewText    string `json:"new_text"`
		ReplaceAll bool   `json:"replace_all"`
	}
	if err := json.Unmarshal(params, &input); err != nil {
		return errResult("invalid parameters: %v", err), nil
	}
	resolved, err := t.resolver.Resolve(input.Path)
	if err != nil {
		return errResult("%v", err), nil
	}
	raw, err := os.ReadFile(resolved)
	if err != nil {
		return errResult("read file: %v", err), nil
	}
	content := string(raw)
	if !strings.Contains(content, input.OldText) {
		return errResult("old_text not found in %s", input.Path), nil
	}

	var updated string
	n := 1
	if input.ReplaceAll {
		n = -1
		updated = strings.ReplaceAll(content, input.OldText, input.NewText)
	} else {
		updated = strings.Replace(content, input.OldText, input.NewText, 1)
	}
	if err := os.WriteFile(resolved, []byte(updated), 0o644); err != nil {
		return errResult("write file: %v", err), nil
	}
	count := strings.Count(content, input.OldText)
	if n == 1 {
		count = 1
	}
	return okResult(fmt.Sprintf("replaced %d occurrence(s) in %s", count, input.Path)), nil
}

// ListDirectoryTool lists the immediate entries of a directory.
type ListDirectoryTool struct {
	resolver Resolver
}

func NewListDirectoryTool(workspace string) *ListDirectoryTool {
	return &ListDirectoryTool{resolver: Resolver{Root: workspace}}
}

func (t *ListDirectoryTool) Name() string        { return "list_directory" }
func (t *ListDirectoryTool) Description() string { return "List the immediate entries of a workspace directory." }

func (t *ListDirectoryTool) Schema() json.RawMessage {
	return schemaBytes(map[string]any{
		"type":       "object",
		"properties": map[string]any{"path": map[string]any{"type": "string"}},
	})
}

func (t *ListDirectoryTool) Execute(ctx context.Context, params json.RawMessage) (*sindri.ToolResult, error) {
	var input struct {
		Path string `json:"path"`
	}
	_ = json.Unmarshal(params, &input)
	if input.Path == "" {
		input.Path = "."
	}
	resolved, err := t.resolver.Resolve(input.Path)
	if err != nil {
		return errResult("%v", err), nil
	}
	entries, err := os.ReadDir(resolved)
	if err != nil {
		return errResult("read directory: %v", err), nil
	}
	names := make([]string, 0, len(entries))
	for _, e := range entries {
		name := e.Name()
		if e.IsDir() {
			name += "/"
		}
		names = append(names, name)
	}
	sort.Strings(names)
	payload, _ := json.MarshalIndent(map[string]any{"path": input.Path, "entries": names}, "", "  ")
	return okResult(string(payload)), nil
}

// ReadTreeTool recursively lists a directory, skipping VCS and dependency
// directories so large repos stay within the tool's own output budget.
type ReadTreeTool struct {
	resolver Resolver
	maxFiles int
}

func NewReadTreeTool(workspace string) *ReadTreeTool {
	return &ReadTreeTool{resolver: Resolver{Root: workspace}, maxFiles: 2000}
}

func (t *ReadTreeTool) Name() string        { return "read_tree" }
func (t *ReadTreeTool) Description() string { return "Recursively list files under a workspace directory." }

func (t *ReadTreeTool) Schema() json.RawMessage {
	return schemaBytes(map[string]any{
		"type":       "object",
		"properties": map[string]any{"path": map[string]any{"type": "string"}},
	})
}

var skipDirs = map[string]bool{".git": true, "node_modules": true, "vendor": true, ".sindri": true}

func (t *ReadTreeTool) Execute(ctx context.Context, params json.RawMessage) (*sindri.ToolResult, error) {
	var input struct {
		Path string `json:"path"`
	}
	_ = json.Unmarshal(params, &input)
	if input.Path == "" {
		input.Path = "."
	}
	root, err := t.resolver.Resolve(input.Path)
	if err != nil {
		return errResult("%v", err), nil
	}

	var files []string
	err = filepath.WalkDir(root, func(path string, d os.DirEntry, walkErr error) error {
		if walkErr != nil {
			return nil
		}
		if d.IsDir() {
			if skipDirs[d.Name()] {
				return filepath.SkipDir
			}
			return nil
		}
		if len(files) >= t.maxFiles {
			return filepath.SkipAll
		}
		rel, _ := filepath.Rel(root, path)
		files = append(files, rel)
		return nil
	})
	if err != nil {
		return errResult("walk tree: %v", err), nil
	}
	sort.Strings(files)
	payload, _ := json.MarshalIndent(map[string]any{"path": input.Path, "files": files, "truncated": len(files) >= t.maxFiles}, "", "  ")
	return okResult(string(payload)), nil
}
