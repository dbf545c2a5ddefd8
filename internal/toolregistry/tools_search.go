package toolregistry

import (
	"bufio"
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"sort"

	"github.com/sindri-ai/sindri/pkg/sindri"
)

// SearchCodeTool greps the workspace for a regular expression. No library
// in the retrieved corpus wraps local code search (the closest analogues
// are remote/web search and RAG-index search), so this walks the tree with
// the standard library directly rather than shelling out to an external
// binary like ripgrep.
type SearchCodeTool struct {
	resolver Resolver
	maxHits  int
}

func NewSearchCodeTool(workspace string) *SearchCodeTool {
	return &SearchCodeTool{resolver: Resolver{Root: workspace}, maxHits: 200}
}

func (t *SearchCodeTool) Name() string        { return "search_code" }
func (t *SearchCodeTool) Description() string { return "Search workspace files for a regular expression." }

func (t *SearchCodeTool) Schema() json.RawMessage {
	return schemaBytes(map[string]any{
		"type": "object",
		"properties": map[string]any{
			"query": map[string]any{"type": "string"},
			"path":  map[string]any{"type": "string", "description": "Subdirectory to search (default: workspace root)."},
		},
		"required": []string{"query"},
	})
}

type searchHit struct {
	File string `json:"file"`
	Line int    `json:"line"`
	Text string `json:"text"`
}

func (t *SearchCodeTool) Execute(ctx context.Context, params json.RawMessage) (*sindri.ToolResult, error) {
	var input struct {
		Query string `json:"query"`
		Path  string `json:"path"`
	}
	if err := json.Unmarshal(params, &input); err != nil {
		return errResult("invalid parameters: %v", err), nil
	}
	re, err := regexp.Compile(input.Query)
	if err != nil {
		return errResult("invalid regular expression: %v", err), nil
	}
	if input.Path == "" {
		input.Path = "."
	}
	root, err := t.resolver.Resolve(input.Path)
	if err != nil {
		return errResult("%v", err), nil
	}

	var hits []searchHit
	err = filepath.WalkDir(root, func(path string, d os.DirEntry, walkErr error) error {
		if walkErr != nil || len(hits) >= t.maxHits {
			if len(hits) >= t.maxHits {
				return filepath.SkipAll
			}
			return nil
		}
		if d.IsDir() {
			if skipDirs[d.Name()] {
				return filepath.SkipDir
			}
			return nil
		}
		f, err := os.Open(path)
		if err != nil {
			return nil
		}
		defer f.Close()
		scanner := bufio.NewScanner(f)
		scanner.Buffer(make([]byte, 0, 64*1024), 1<<20)
		lineNo := 0
		for scanner.Scan() {
			lineNo++
			if re.MatchString(scanner.Text()) {
				rel, _ := filepath.Rel(root, path)
				hits = append(hits, searchHit{File: rel, Line: lineNo, Text: scanner.Text()})
				if len(hits) >= t.maxHits {
					break
				}
			}
		}
		return nil
	})
	if err != nil {
		return errResult("search: %v", err), nil
	}
	payload, _ := json.MarshalIndent(map[string]any{"hits": hits, "truncated": len(hits) >= t.maxHits}, "", "  ")
	return okResult(string(payload)), nil
}

// FindSymbolTool locates Go func/type/const/var declarations by name
// across the workspace.
type FindSymbolTool struct {
	resolver Resolver
}

func NewFindSymbolTool(workspace string) *FindSymbolTool {
	return &FindSymbolTool{resolver: Resolver{Root: workspace}}
}

func (t *FindSymbolTool) Name() string        { return "find_symbol" }
func (t *FindSymbolTool) Description() string {
	return "Find Go func/type/const/var declarations matching a symbol name."
}

func (t *FindSymbolTool) Schema() json.RawMessage {
	return schemaBytes(map[string]any{
		"type":       "object",
		"properties": map[string]any{"symbol": map[string]any{"type": "string"}},
		"required":   []string{"symbol"},
	})
}

func (t *FindSymbolTool) Execute(ctx context.Context, params json.RawMessage) (*sindri.ToolResult, error) {
	var input struct {
		Symbol string `json:"symbol"`
	}
	if err := json.Unmarshal(params, &input); err != nil {
		return errResult("invalid parameters: %v", err), nil
	}
	if input.Symbol == "" {
		return errResult("symbol is required"), nil
	}
	pattern := regexp.MustCompile(fmt.Sprintf(`^\s*(func|type|const|var)\s+(\(\w+ \*?\w+\)\s+)?%s\b`, regexp.QuoteMeta(input.Symbol)))

	root, err := t.resolver.Resolve(".")
	if err != nil {
		return errResult("%v", err), nil
	}

	var hits []searchHit
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
		if filepath.Ext(path) != ".go" {
			return nil
		}
		f, err := os.Open(path)
		if err != nil {
			return nil
		}
		defer f.Close()
		scanner := bufio.NewScanner(f)
		lineNo := 0
		for scanner.Scan() {
			lineNo++
			if pattern.MatchString(scanner.Text()) {
				rel, _ := filepath.Rel(root, path)
				hits = append(hits, searchHit{File: rel, Line: lineNo, Text: scanner.Text()})
			}
		}
		return nil
	})
	if err != nil {
		return errResult("search: %v", err), nil
	}
	sort.Slice(hits, func(i, j int) bool { return hits[i].File < hits[j].File })
	payload, _ := json.MarshalIndent(map[string]any{"hits": hits}, "", "  ")
	return okResult(string(payload)), nil
}
