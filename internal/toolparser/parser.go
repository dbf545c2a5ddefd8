// Package toolparser implements the Tool-Call Parser (C3): extraction of
// tool calls from free-text model output for models without native function
// calling, and a streaming buffer that detects tool-call blocks token by
// token. Ported from _examples/original_source/sindri/llm/tool_parser.py
// and llm/streaming.py.
package toolparser

import (
	"encoding/json"
	"regexp"
	"strings"
)

// Call is one tool call extracted from text.
type Call struct {
	Name      string
	Arguments map[string]any
}

var jsonBlockPattern = regexp.MustCompile("(?s)```json\\s*(\\{.*?\\})\\s*```")

var xmlToolCallPattern = regexp.MustCompile(`(?s)<tool_call>\s*(\{.*?\})\s*</tool_call>`)

// completionMarker is the default literal the loop checks for; configurable
// per SPEC_FULL.md §6 but this is the value original_source/sindri/config.py
// ships as the default.
const completionMarker = "<sindri:complete/>"

// Parse extracts every tool call found in text, preferring fenced ```json
// blocks, then inline JSON objects found by brace-depth scanning, then
// XML-style <tool_call> wrappers, in that order. The first format that
// yields at least one call wins; the parser does not merge across formats.
func Parse(text string) []Call {
	if calls := parseFencedBlocks(text); len(calls) > 0 {
		return calls
	}
	if calls := parseInlineObjects(text); len(calls) > 0 {
		return calls
	}
	return parseXMLBlocks(text)
}

func parseFencedBlocks(text string) []Call {
	var calls []Call
	for _, m := range jsonBlockPattern.FindAllStringSubmatch(text, -1) {
		var data map[string]any
		if err := json.Unmarshal([]byte(m[1]), &data); err != nil {
			continue
		}
		if call, ok := extractFromJSON(data); ok {
			calls = append(calls, call)
		}
	}
	return calls
}

func parseXMLBlocks(text string) []Call {
	var calls []Call
	for _, m := range xmlToolCallPattern.FindAllStringSubmatch(text, -1) {
		var data map[string]any
		if err := json.Unmarshal([]byte(m[1]), &data); err != nil {
			continue
		}
		if call, ok := extractFromJSON(data); ok {
			calls = append(calls, call)
		}
	}
	return calls
}

// parseInlineObjects finds brace-depth-balanced JSON objects anywhere in
// text and keeps the ones whose top-level keys look like a tool call.
func parseInlineObjects(text string) []Call {
	var calls []Call
	for _, jsonStr := range findJSONObjects(text) {
		var data map[string]any
		if err := json.Unmarshal([]byte(jsonStr), &data); err != nil {
			continue
		}
		if call, ok := extractFromJSON(data); ok {
			calls = append(calls, call)
		}
	}
	return calls
}

func findJSONObjects(text string) []string {
	var results []string
	depth := 0
	start := -1
	for i, r := range text {
		switch r {
		case '{':
			if depth == 0 {
				start = i
			}
			depth++
		case '}':
			depth--
			if depth == 0 && start >= 0 {
				candidate := text[start : i+1]
				if looksLikeToolCall(candidate) {
					results = append(results, candidate)
				}
				start = -1
			}
		}
	}
	return results
}

func looksLikeToolCall(jsonStr string) bool {
	for _, key := range []string{`"name"`, `"function"`, `"tool"`} {
		if strings.Contains(jsonStr, key) {
			return true
		}
	}
	return false
}

// extractFromJSON recognizes the four call shapes the model backends in
// practice emit:
//
//	{"name": "...", "arguments": {...}}
//	{"function": "...", "arguments": {...}}
//	{"tool": "...", "args"|"arguments"|"input": {...}}
//	{"function": {"name": "...", "arguments": {...}}}
func extractFromJSON(data map[string]any) (Call, bool) {
	if name, ok := data["name"].(string); ok {
		if args, ok := data["arguments"]; ok {
			return Call{Name: name, Arguments: coerceArguments(args)}, true
		}
	}
	if fn, ok := data["function"].(string); ok {
		if args, ok := data["arguments"]; ok {
			return Call{Name: fn, Arguments: coerceArguments(args)}, true
		}
	}
	if tool, ok := data["tool"].(string); ok {
		for _, key := range []string{"args", "arguments", "input"} {
			if args, ok := data[key]; ok {
				return Call{Name: tool, Arguments: coerceArguments(args)}, true
			}
		}
	}
	if fn, ok := data["function"].(map[string]any); ok {
		if name, ok := fn["name"].(string); ok {
			if args, ok := fn["arguments"]; ok {
				return Call{Name: name, Arguments: coerceArguments(args)}, true
			}
		}
	}
	return Call{}, false
}

// coerceArguments handles models that double-encode their arguments as a
// JSON string instead of a nested object.
func coerceArguments(v any) map[string]any {
	switch t := v.(type) {
	case map[string]any:
		return t
	case string:
		var m map[string]any
		if json.Unmarshal([]byte(t), &m) == nil {
			return m
		}
		return map[string]any{"input": t}
	}
	return map[string]any{}
}

// HasCompletionMarker reports whether text contains the literal completion
// marker. The Loop (C8), not this package, decides whether to act on it.
func HasCompletionMarker(text, marker string) bool {
	if marker == "" {
		marker = completionMarker
	}
	return strings.Contains(text, marker)
}
