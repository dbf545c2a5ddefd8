package main

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/spf13/cobra"

	"github.com/sindri-ai/sindri/internal/config"
	"github.com/sindri-ai/sindri/internal/modelclient"
)

// buildDoctorCmd creates the "doctor" command: validate configuration,
// confirm Ollama connectivity, and confirm the data directory is writable.
func buildDoctorCmd() *cobra.Command {
	var configPath string

	cmd := &cobra.Command{
		Use:   "doctor",
		Short: "Validate configuration and check Ollama connectivity",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runDoctor(cmd, resolveConfigPath(configPath))
		},
	}

	cmd.Flags().StringVarP(&configPath, "config", "c", "", "Path to YAML/JSON5 configuration file")
	return cmd
}

func runDoctor(cmd *cobra.Command, configPath string) error {
	out := cmd.OutOrStdout()
	healthy := true

	cfg, err := config.Load(configPath)
	if err != nil {
		fmt.Fprintf(out, "[FAIL] config: %v\n", err)
		return fmt.Errorf("doctor found a fatal configuration error")
	}
	fmt.Fprintf(out, "[ OK ] config: loaded (data dir %s)\n", cfg.DataDir)

	if err := checkWritable(cfg.DataDir); err != nil {
		fmt.Fprintf(out, "[FAIL] data dir writable: %v\n", err)
		healthy = false
	} else {
		fmt.Fprintf(out, "[ OK ] data dir writable: %s\n", cfg.DataDir)
	}

	ctx, cancel := context.WithTimeout(cmd.Context(), 5*time.Second)
	defer cancel()
	client := modelclient.New(cfg.OllamaHost)
	if err := client.Ping(ctx); err != nil {
		fmt.Fprintf(out, "[FAIL] ollama reachable at %s: %v\n", cfg.OllamaHost, err)
		healthy = false
	} else {
		fmt.Fprintf(out, "[ OK ] ollama reachable at %s\n", cfg.OllamaHost)
	}

	catalogDir := filepath.Join(cfg.DataDir, config.AgentCatalogDir)
	if entries, err := os.ReadDir(catalogDir); err == nil {
		fmt.Fprintf(out, "[ OK ] agent catalog: %d plugin file(s) in %s\n", len(entries), catalogDir)
	} else if os.IsNotExist(err) {
		fmt.Fprintf(out, "[ OK ] agent catalog: %s not present (no plugin agents)\n", catalogDir)
	} else {
		fmt.Fprintf(out, "[FAIL] agent catalog: %v\n", err)
		healthy = false
	}

	if cfg.ReserveVRAMGB >= cfg.TotalVRAMGB {
		fmt.Fprintf(out, "[FAIL] vram budget: reserve %.1f GB >= total %.1f GB\n", cfg.ReserveVRAMGB, cfg.TotalVRAMGB)
		healthy = false
	} else {
		fmt.Fprintf(out, "[ OK ] vram budget: %.1f GB available (%.1f total, %.1f reserved)\n",
			cfg.TotalVRAMGB-cfg.ReserveVRAMGB, cfg.TotalVRAMGB, cfg.ReserveVRAMGB)
	}

	if !healthy {
		return fmt.Errorf("doctor found one or more problems")
	}
	return nil
}

func checkWritable(dir string) error {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return err
	}
	probe := filepath.Join(dir, ".doctor-write-check")
	if err := os.WriteFile(probe, []byte("ok"), 0o644); err != nil {
		return err
	}
	return os.Remove(probe)
}
