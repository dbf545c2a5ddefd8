package agents

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/pelletier/go-toml"

	"github.com/sindri-ai/sindri/pkg/sindri"
)

// pluginFile is the *.agent.toml shape SPEC_FULL.md §6 specifies:
// [metadata], [agent], [prompt] tables.
type pluginFile struct {
	Metadata struct {
		Name        string `toml:"name"`
		Description string `toml:"description"`
	} `toml:"metadata"`
	Agent struct {
		Model           string   `toml:"model"`
		FallbackModel   string   `toml:"fallback_model"`
		EstimatedVRAMGB float64  `toml:"estimated_vram_gb"`
		FallbackVRAMGB  float64  `toml:"fallback_vram_gb"`
		Priority        int      `toml:"priority"`
		MaxIterations   int      `toml:"max_iterations"`
		Tools           []string `toml:"tools"`
		DelegateTo      []string `toml:"delegate_to"`
	} `toml:"agent"`
	Prompt struct {
		System string `toml:"system"`
	} `toml:"prompt"`
}

// LoadDir extends the registry with every *.agent.toml file found
// (non-recursively) in dir. A missing directory is not an error: plugin
// agents are optional.
func (r *Registry) LoadDir(dir string) error {
	entries, err := os.ReadDir(dir)
	if os.IsNotExist(err) {
		return nil
	}
	if err != nil {
		return fmt.Errorf("read agent plugin dir: %w", err)
	}

	for _, entry := range entries {
		if entry.IsDir() || filepath.Ext(entry.Name()) != ".toml" {
			continue
		}
		if !hasSuffix(entry.Name(), ".agent.toml") {
			continue
		}
		path := filepath.Join(dir, entry.Name())
		def, err := loadPluginFile(path)
		if err != nil {
			return fmt.Errorf("load agent plugin %s: %w", path, err)
		}
		r.Register(def)
	}
	return nil
}

func loadPluginFile(path string) (sindri.AgentDefinition, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return sindri.AgentDefinition{}, err
	}
	var pf pluginFile
	if err := toml.Unmarshal(raw, &pf); err != nil {
		return sindri.AgentDefinition{}, err
	}
	if pf.Metadata.Name == "" {
		return sindri.AgentDefinition{}, fmt.Errorf("missing [metadata].name")
	}
	return sindri.AgentDefinition{
		Name:            pf.Metadata.Name,
		Description:     pf.Metadata.Description,
		Model:           pf.Agent.Model,
		FallbackModel:   pf.Agent.FallbackModel,
		EstimatedVRAMGB: pf.Agent.EstimatedVRAMGB,
		FallbackVRAMGB:  pf.Agent.FallbackVRAMGB,
		Priority:        pf.Agent.Priority,
		MaxIterations:   pf.Agent.MaxIterations,
		SystemPrompt:    pf.Prompt.System,
		Tools:           pf.Agent.Tools,
		DelegateTo:      pf.Agent.DelegateTo,
	}, nil
}

func hasSuffix(s, suffix string) bool {
	if len(s) < len(suffix) {
		return false
	}
	return s[len(s)-len(suffix):] == suffix
}
