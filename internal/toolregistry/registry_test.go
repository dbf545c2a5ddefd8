package toolregistry

import (
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestResolverRejectsEscape(t *testing.T) {
	dir := t.TempDir()
	r := Resolver{Root: dir}
	if _, err := r.Resolve("../../etc/passwd"); err == nil {
		t.Fatal("expected escape to be rejected")
	}
	if _, err := r.Resolve("sub/file.txt"); err != nil {
		t.Fatalf("unexpected error for in-workspace path: %v", err)
	}
}

func TestReadWriteEditFileRoundTrip(t *testing.T) {
	dir := t.TempDir()
	write := NewWriteFileTool(dir)
	read := NewReadFileTool(dir, 0)
	edit := NewEditFileTool(dir)

	ctx := context.Background()
	params, _ := json.Marshal(map[string]any{"path": "note.txt", "content": "hello world"})
	res, err := write.Execute(ctx, params)
	if err != nil || !res.Success {
		t.Fatalf("write failed: %v %+v", err, res)
	}

	params, _ = json.Marshal(map[string]any{"path": "note.txt"})
	res, err = read.Execute(ctx, params)
	if err != nil || !res.Success {
		t.Fatalf("read failed: %v %+v", err, res)
	}

	params, _ = json.Marshal(map[string]any{"path": "note.txt", "old_text": "world", "new_text": "sindri"})
	res, err = edit.Execute(ctx, params)
	if err != nil || !res.Success {
		t.Fatalf("edit failed: %v %+v", err, res)
	}

	content, err := os.ReadFile(filepath.Join(dir, "note.txt"))
	if err != nil {
		t.Fatal(err)
	}
	if string(content) != "hello sindri" {
		t.Errorf("content = %q, want %q", content, "hello sindri")
	}
}

func TestRegistryRejectsUnknownTool(t *testing.T) {
	r := New()
	result, err := r.Execute(context.Background(), "nonexistent", json.RawMessage(`{}`))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if result.Success {
		t.Fatal("expected failure for unknown tool")
	}
}

func TestRegistryValidatesArguments(t *testing.T) {
	r := New()
	if err := r.Register(NewReadFileTool(t.TempDir(), 0)); err != nil {
		t.Fatal(err)
	}
	result, err := r.Execute(context.Background(), "read_file", json.RawMessage(`{}`))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if result.Success {
		t.Fatal("expected schema validation failure for missing required path")
	}
}

func TestShellToolRejectsUnsafeArguments(t *testing.T) {
	dir := t.TempDir()
	tool := NewShellTool(dir, 2*time.Second)
	params, _ := json.Marshal(map[string]any{"command": "echo", "args": []string{"a; rm -rf /"}})
	result, err := tool.Execute(context.Background(), params)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if result.Success {
		t.Fatal("expected unsafe argument to be rejected")
	}
}

func TestShellToolRunsSimpleCommand(t *testing.T) {
	dir := t.TempDir()
	tool := NewShellTool(dir, 2*time.Second)
	params, _ := json.Marshal(map[string]any{"command": "echo", "args": []string{"hi"}})
	result, err := tool.Execute(context.Background(), params)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !result.Success {
		t.Fatalf("expected success, got error: %s", result.Error)
	}
}

func TestDelegateToolSchemaMatchesLoopFields(t *testing.T) {
	var schema struct {
		Properties map[string]any `json:"properties"`
		Required   []string       `json:"required"`
	}
	if err := json.Unmarshal(NewDelegateTool().Schema(), &schema); err != nil {
		t.Fatal(err)
	}
	// Must match the fields loop.go's findDelegateCall unmarshals into a
	// DelegateRequest, or a schema-obeying model yields an empty child task.
	for _, field := range []string{"agent", "task", "context"} {
		if _, ok := schema.Properties[field]; !ok {
			t.Errorf("schema missing %q property", field)
		}
	}
	wantRequired := map[string]bool{"agent": true, "task": true}
	if len(schema.Required) != len(wantRequired) {
		t.Fatalf("required = %v, want exactly %v", schema.Required, wantRequired)
	}
	for _, r := range schema.Required {
		if !wantRequired[r] {
			t.Errorf("unexpected required field %q", r)
		}
	}
}

func TestNewDefaultRegistryRegistersAllBuiltins(t *testing.T) {
	r, err := NewDefaultRegistry(t.TempDir(), 5*time.Second)
	if err != nil {
		t.Fatal(err)
	}
	want := []string{
		"read_file", "write_file", "edit_file", "list_directory", "read_tree",
		"search_code", "find_symbol", "git_status", "git_diff", "git_log",
		"git_branch", "shell", "delegate",
	}
	for _, name := range want {
		if _, ok := r.Get(name); !ok {
			t.Errorf("missing built-in tool %q", name)
		}
	}
}
