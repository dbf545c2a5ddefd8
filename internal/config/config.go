package config

import (
	"fmt"
	"os"
	"path/filepath"
)

// Config is Sindri's top-level configuration. Field set ported from
// _examples/original_source/sindri/config.py's SindriConfig.
type Config struct {
	// Paths
	DataDir string `yaml:"data_dir"`
	DBPath  string `yaml:"db_path"`
	WorkDir string `yaml:"work_dir"`

	// Ollama
	OllamaHost   string `yaml:"ollama_host"`
	DefaultModel string `yaml:"default_model"`

	// Hardware
	TotalVRAMGB   float64 `yaml:"total_vram_gb"`
	ReserveVRAMGB float64 `yaml:"reserve_vram_gb"`

	// Models holds optional per-model VRAM overrides, keyed by model name.
	Models map[string]ModelOverride `yaml:"models"`

	// Execution
	MaxIterations      int    `yaml:"max_iterations"`
	CompletionMarker   string `yaml:"completion_marker"`
	StuckThreshold     int    `yaml:"stuck_threshold"`
	CheckpointInterval int    `yaml:"checkpoint_interval"`

	Logging LoggingConfig `yaml:"logging"`
}

// ModelOverride mirrors config.py's ModelConfig: a named model with an
// explicit VRAM footprint, used to override the estimate an agent's
// AgentDefinition would otherwise carry.
type ModelOverride struct {
	VRAMGB float64 `yaml:"vram_gb"`
}

// LoggingConfig configures the ambient structured logger.
type LoggingConfig struct {
	// Level sets the minimum log level: "debug", "info", "warn", "error".
	Level string `yaml:"level"`

	// Format specifies output format: "json" or "text".
	Format string `yaml:"format"`

	// File is read from configuration, but no log output is written to it.
	File string `yaml:"file"`
}

// AgentCatalogDir is where .agent.toml plugin files are searched,
// relative to DataDir.
const AgentCatalogDir = "agents"

// Load reads path (resolving $include directives and env-var expansion),
// applies defaults, and validates the result. If path is empty, the
// search order from original_source/sindri/config.py's load() is used:
// ./sindri.yaml, then ~/.sindri/config.yaml.
func Load(path string) (*Config, error) {
	if path == "" {
		found, err := findDefaultConfigPath()
		if err != nil {
			return nil, err
		}
		path = found
	}

	var cfg Config
	if path != "" {
		raw, err := LoadRaw(path)
		if err != nil {
			return nil, err
		}
		decoded, err := decodeRawConfig(raw)
		if err != nil {
			return nil, err
		}
		cfg = *decoded
	}

	applyDefaults(&cfg)
	if err := validate(&cfg); err != nil {
		return nil, err
	}
	if err := os.MkdirAll(cfg.DataDir, 0o755); err != nil {
		return nil, fmt.Errorf("creating data dir %s: %w", cfg.DataDir, err)
	}
	return &cfg, nil
}

// findDefaultConfigPath returns the first candidate that exists, or ""
// if neither does (Load then proceeds on pure defaults).
func findDefaultConfigPath() (string, error) {
	if _, err := os.Stat("sindri.yaml"); err == nil {
		return "sindri.yaml", nil
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return "", nil
	}
	candidate := filepath.Join(home, ".sindri", "config.yaml")
	if _, err := os.Stat(candidate); err == nil {
		return candidate, nil
	}
	return "", nil
}

// Default returns a Config populated entirely with defaults, useful for
// tests and for a dry run with no file on disk.
func Default() *Config {
	cfg := &Config{}
	applyDefaults(cfg)
	return cfg
}

func applyDefaults(cfg *Config) {
	if cfg.DataDir == "" {
		if home, err := os.UserHomeDir(); err == nil {
			cfg.DataDir = filepath.Join(home, ".sindri")
		} else {
			cfg.DataDir = ".sindri"
		}
	}
	cfg.DataDir = expandHome(cfg.DataDir)

	if cfg.DBPath == "" {
		cfg.DBPath = filepath.Join(cfg.DataDir, "sindri.db")
	}
	cfg.DBPath = expandHome(cfg.DBPath)
	cfg.WorkDir = expandHome(cfg.WorkDir)

	if cfg.OllamaHost == "" {
		cfg.OllamaHost = "http://localhost:11434"
	}
	if cfg.DefaultModel == "" {
		cfg.DefaultModel = "qwen2.5-coder:14b"
	}
	if cfg.TotalVRAMGB == 0 {
		cfg.TotalVRAMGB = 16.0
	}
	if cfg.ReserveVRAMGB == 0 {
		cfg.ReserveVRAMGB = 2.0
	}
	if cfg.MaxIterations == 0 {
		cfg.MaxIterations = 50
	}
	if cfg.CompletionMarker == "" {
		cfg.CompletionMarker = "<sindri:complete/>"
	}
	if cfg.StuckThreshold == 0 {
		cfg.StuckThreshold = 3
	}
	if cfg.CheckpointInterval == 0 {
		cfg.CheckpointInterval = 5
	}
	applyLoggingDefaults(&cfg.Logging)
}

func applyLoggingDefaults(cfg *LoggingConfig) {
	if cfg.Level == "" {
		cfg.Level = "info"
	}
	if cfg.Format == "" {
		cfg.Format = "text"
	}
}

func expandHome(path string) string {
	if path == "" || path[0] != '~' {
		return path
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return path
	}
	if path == "~" {
		return home
	}
	if len(path) > 1 && (path[1] == '/' || path[1] == filepath.Separator) {
		return filepath.Join(home, path[2:])
	}
	return path
}

// validate mirrors config.py's reserve_less_than_total field validator
// and validate_config's VRAM-budget check, promoted to a hard error since
// Sindri has no interactive prompt to surface a warning through.
func validate(cfg *Config) error {
	if cfg.ReserveVRAMGB >= cfg.TotalVRAMGB {
		return fmt.Errorf("config: reserve_vram_gb (%.1f) must be less than total_vram_gb (%.1f)", cfg.ReserveVRAMGB, cfg.TotalVRAMGB)
	}
	available := cfg.TotalVRAMGB - cfg.ReserveVRAMGB
	var modelTotal float64
	for _, m := range cfg.Models {
		modelTotal += m.VRAMGB
	}
	if modelTotal > available {
		return fmt.Errorf("config: total model vram_gb overrides (%.1f) exceed available budget (%.1f)", modelTotal, available)
	}
	return nil
}
