package toolparser

import "testing"

func TestParseFencedJSONBlock(t *testing.T) {
	text := "Let me check that.\n```json\n{\"name\": \"read_file\", \"arguments\": {\"path\": \"a.go\"}}\n```\n"
	calls := Parse(text)
	if len(calls) != 1 {
		t.Fatalf("expected 1 call, got %d", len(calls))
	}
	if calls[0].Name != "read_file" {
		t.Errorf("name = %q, want read_file", calls[0].Name)
	}
	if calls[0].Arguments["path"] != "a.go" {
		t.Errorf("arguments[path] = %v, want a.go", calls[0].Arguments["path"])
	}
}

func TestParseInlineFunctionShape(t *testing.T) {
	text := `I'll run {"function": "shell", "arguments": {"cmd": "ls"}} now.`
	calls := Parse(text)
	if len(calls) != 1 || calls[0].Name != "shell" {
		t.Fatalf("got %+v", calls)
	}
}

func TestParseOllamaNestedFunctionShape(t *testing.T) {
	text := `{"function": {"name": "delegate", "arguments": {"agent": "huginn"}}}`
	calls := Parse(text)
	if len(calls) != 1 || calls[0].Name != "delegate" {
		t.Fatalf("got %+v", calls)
	}
}

func TestParseToolArgsShape(t *testing.T) {
	text := `{"tool": "search_code", "args": {"query": "TODO"}}`
	calls := Parse(text)
	if len(calls) != 1 || calls[0].Name != "search_code" {
		t.Fatalf("got %+v", calls)
	}
}

func TestParseXMLToolCall(t *testing.T) {
	text := `<tool_call>{"name": "git_status", "arguments": {}}</tool_call>`
	calls := Parse(text)
	if len(calls) != 1 || calls[0].Name != "git_status" {
		t.Fatalf("got %+v", calls)
	}
}

func TestParseStringArgumentsAreReparsed(t *testing.T) {
	text := `{"name": "edit_file", "arguments": "{\"path\": \"x.go\"}"}`
	calls := Parse(text)
	if len(calls) != 1 {
		t.Fatalf("expected 1 call, got %d", len(calls))
	}
	if calls[0].Arguments["path"] != "x.go" {
		t.Errorf("arguments[path] = %v, want x.go", calls[0].Arguments["path"])
	}
}

func TestParseUnparsableStringArgumentsWrapped(t *testing.T) {
	text := `{"name": "note", "arguments": "just plain text"}`
	calls := Parse(text)
	if len(calls) != 1 {
		t.Fatalf("expected 1 call, got %d", len(calls))
	}
	if calls[0].Arguments["input"] != "just plain text" {
		t.Errorf("arguments[input] = %v", calls[0].Arguments["input"])
	}
}

func TestParseNoToolCallsInPlainText(t *testing.T) {
	calls := Parse("Just a normal sentence with no tool calls.")
	if len(calls) != 0 {
		t.Fatalf("expected 0 calls, got %d", len(calls))
	}
}

func TestParsePrefersFencedOverInline(t *testing.T) {
	text := "```json\n{\"name\": \"a\", \"arguments\": {}}\n```\nalso {\"tool\": \"b\", \"args\": {}}"
	calls := Parse(text)
	if len(calls) != 1 || calls[0].Name != "a" {
		t.Fatalf("expected only the fenced call to win, got %+v", calls)
	}
}

func TestHasCompletionMarker(t *testing.T) {
	if !HasCompletionMarker("done <sindri:complete/>", "") {
		t.Error("expected marker to be detected with default marker")
	}
	if HasCompletionMarker("not done yet", "") {
		t.Error("did not expect marker detection")
	}
}

func TestStreamBufferSuppressesToolJSON(t *testing.T) {
	buf := NewStreamBuffer()
	var displayed string
	tokens := []string{"Here you go: ", `{"name": "read_file", "arguments": {}}`, " done"}
	for _, tok := range tokens {
		disp, _ := buf.AddToken(tok)
		displayed += disp
	}
	calls := buf.GetToolCalls()
	if len(calls) != 1 || calls[0].Name != "read_file" {
		t.Fatalf("expected 1 detected call, got %+v", calls)
	}
	if displayed != "Here you go:  done" {
		t.Errorf("displayed = %q", displayed)
	}
}

func TestStreamBufferReset(t *testing.T) {
	buf := NewStreamBuffer()
	buf.AddToken(`{"name": "x", "arguments": {}}`)
	if len(buf.GetToolCalls()) != 1 {
		t.Fatal("expected 1 call before reset")
	}
	buf.Reset()
	if len(buf.GetToolCalls()) != 0 {
		t.Fatal("expected 0 calls after reset")
	}
	if buf.InToolBlock() {
		t.Error("expected not in tool block after reset")
	}
}
