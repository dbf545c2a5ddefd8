// Package agents implements the Agent Registry (C7): a static catalog of
// the seven Sindri agents, extendable at startup by loading *.agent.toml
// plugin files. Catalog content ported from
// _examples/original_source/sindri/agents/registry.py.
package agents

import (
	"fmt"
	"sync"

	"github.com/sindri-ai/sindri/pkg/sindri"
)

// Registry holds every known agent definition.
type Registry struct {
	mu     sync.RWMutex
	agents map[string]sindri.AgentDefinition
}

// New creates a registry seeded with the built-in agent catalog.
func New() *Registry {
	r := &Registry{agents: make(map[string]sindri.AgentDefinition)}
	for _, a := range builtinAgents() {
		r.agents[a.Name] = a
	}
	return r
}

// Get returns the named agent definition.
func (r *Registry) Get(name string) (sindri.AgentDefinition, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	a, ok := r.agents[name]
	if !ok {
		return sindri.AgentDefinition{}, fmt.Errorf("%w: %s", sindri.ErrAgentNotFound, name)
	}
	return a, nil
}

// List returns every registered agent name.
func (r *Registry) List() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]string, 0, len(r.agents))
	for name := range r.agents {
		out = append(out, name)
	}
	return out
}

// Register adds or overwrites an agent definition, used by the plugin
// loader to extend the built-in catalog.
func (r *Registry) Register(def sindri.AgentDefinition) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.agents[def.Name] = def
}

// builtinAgents returns the seven core Sindri agents: brokkr (master
// orchestrator), huginn (implementation), mimir (review), ratatoskr (fast
// executor), skald (tests), fenrir (SQL/data), odin (planning).
func builtinAgents() []sindri.AgentDefinition {
	coreTools := []string{
		"read_file", "write_file", "edit_file", "list_directory", "read_tree",
		"search_code", "find_symbol", "git_status", "git_diff", "git_log", "git_branch",
		"shell", "delegate",
	}
	return []sindri.AgentDefinition{
		{
			Name:            "brokkr",
			Description:     "Master orchestrator: handles simple tasks directly, delegates complex work",
			Model:           "qwen2.5-coder:14b",
			FallbackModel:   "qwen2.5-coder:7b",
			EstimatedVRAMGB: 9.0,
			FallbackVRAMGB:  5.0,
			Priority:        0,
			MaxIterations:   15,
			SystemPrompt:    brokkrPrompt,
			Tools:           coreTools,
			DelegateTo:      []string{"huginn", "mimir", "skald", "fenrir", "odin"},
		},
		{
			Name:            "huginn",
			Description:     "Code implementation specialist",
			Model:           "qwen2.5-coder:7b",
			FallbackModel:   "qwen2.5:3b-instruct-q8_0",
			EstimatedVRAMGB: 5.0,
			FallbackVRAMGB:  3.0,
			Priority:        1,
			MaxIterations:   30,
			SystemPrompt:    huginnPrompt,
			Tools:           []string{"read_file", "write_file", "edit_file", "list_directory", "read_tree", "search_code", "find_symbol", "git_status", "git_diff", "git_log", "shell", "delegate"},
			DelegateTo:      []string{"ratatoskr", "skald"},
		},
		{
			Name:            "mimir",
			Description:     "Code reviewer and quality checker",
			Model:           "llama3.1:8b",
			FallbackModel:   "qwen2.5:3b-instruct-q8_0",
			EstimatedVRAMGB: 5.0,
			FallbackVRAMGB:  3.0,
			Priority:        1,
			MaxIterations:   20,
			SystemPrompt:    mimirPrompt,
			Tools:           []string{"read_file", "search_code", "git_diff", "git_log", "shell"},
		},
		{
			Name:            "ratatoskr",
			Description:     "Fast executor for simple, well-scoped tasks",
			Model:           "qwen2.5:3b-instruct-q8_0",
			EstimatedVRAMGB: 3.0,
			Priority:        2,
			MaxIterations:   10,
			SystemPrompt:    ratatoskrPrompt,
			Tools:           []string{"shell", "read_file", "write_file"},
		},
		{
			Name:            "skald",
			Description:     "Test writer and quality guardian",
			Model:           "qwen2.5-coder:7b",
			FallbackModel:   "qwen2.5:3b-instruct-q8_0",
			EstimatedVRAMGB: 5.0,
			FallbackVRAMGB:  3.0,
			Priority:        1,
			MaxIterations:   25,
			SystemPrompt:    skaldPrompt,
			Tools:           []string{"read_file", "write_file", "shell"},
		},
		{
			Name:            "fenrir",
			Description:     "SQL and data specialist",
			Model:           "sqlcoder:7b",
			EstimatedVRAMGB: 5.0,
			Priority:        1,
			MaxIterations:   20,
			SystemPrompt:    fenrirPrompt,
			Tools:           []string{"read_file", "write_file", "shell"},
		},
		{
			Name:            "odin",
			Description:     "Deep reasoning and planning specialist",
			Model:           "deepseek-r1:8b",
			FallbackModel:   "qwen2.5-coder:7b",
			EstimatedVRAMGB: 6.0,
			FallbackVRAMGB:  5.0,
			Priority:        0,
			MaxIterations:   15,
			SystemPrompt:    odinPrompt,
			Tools:           []string{"read_file", "search_code", "git_status", "git_log", "delegate"},
			DelegateTo:      []string{"huginn", "skald", "fenrir"},
		},
	}
}
