package main

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/sindri-ai/sindri/internal/agents"
	"github.com/sindri-ai/sindri/internal/config"
	"github.com/sindri-ai/sindri/internal/events"
	"github.com/sindri-ai/sindri/internal/loop"
	"github.com/sindri-ai/sindri/internal/modelclient"
	"github.com/sindri-ai/sindri/internal/modelmanager"
	"github.com/sindri-ai/sindri/internal/observability"
	"github.com/sindri-ai/sindri/internal/orchestrator"
	"github.com/sindri-ai/sindri/internal/recovery"
	"github.com/sindri-ai/sindri/internal/sessions"
	"github.com/sindri-ai/sindri/internal/tasks"
	"github.com/sindri-ai/sindri/internal/toolregistry"
	"github.com/sindri-ai/sindri/pkg/sindri"

	"github.com/prometheus/client_golang/prometheus"
)

// prometheusRegisterer returns a fresh registry per invocation. Sindri runs
// as a short-lived CLI rather than a server exposing /metrics, so there is
// no shared default registry to collide across commands or test runs.
func prometheusRegisterer() prometheus.Registerer {
	return prometheus.NewRegistry()
}

// app holds every wired component a CLI command might need. Built once per
// invocation by buildApp, mirroring the teacher's pattern of constructing
// its gateway dependency graph directly inside each command's RunE rather
// than through a DI container.
type app struct {
	cfg       *config.Config
	logger    *observability.Logger
	bus       *events.Bus
	metrics   *observability.Metrics
	sessions  sessions.Store
	agents    *agents.Registry
	models    *modelmanager.Manager
	recovery  *recovery.Manager
	loop      *loop.Loop
	orch      *orchestrator.Orchestrator
	closeFunc func() error
}

// buildApp loads configuration from configPath and wires every component
// named in SPEC_FULL.md's mapping table: Model Client, Tool Registry,
// Session Store, Event Bus, VRAM Model Manager, Agent Registry, Iteration
// Loop, Task Scheduler, Orchestrator, Recovery Manager.
func buildApp(configPath string) (*app, error) {
	cfg, err := config.Load(configPath)
	if err != nil {
		return nil, fmt.Errorf("load config: %w", err)
	}

	logger := observability.NewLogger(observability.LogConfig{
		Level:  cfg.Logging.Level,
		Format: cfg.Logging.Format,
	})

	bus := events.New()
	metrics := observability.NewMetrics(prometheusRegisterer())
	metrics.Subscribe(bus)

	store, err := sessions.OpenSQLiteStore(cfg.DBPath)
	if err != nil {
		return nil, fmt.Errorf("open session store: %w", err)
	}

	agentRegistry := agents.New()
	if err := agentRegistry.LoadDir(filepath.Join(cfg.DataDir, config.AgentCatalogDir)); err != nil {
		_ = store.Close()
		return nil, fmt.Errorf("load agent catalog: %w", err)
	}

	models := modelmanager.New(cfg.TotalVRAMGB, cfg.ReserveVRAMGB, bus.Publish)

	recoveryMgr, err := recovery.New(filepath.Join(cfg.DataDir, "checkpoints"), logger.Slog())
	if err != nil {
		_ = store.Close()
		return nil, fmt.Errorf("init recovery manager: %w", err)
	}

	workDir := cfg.WorkDir
	if workDir == "" {
		workDir, err = os.Getwd()
		if err != nil {
			_ = store.Close()
			return nil, fmt.Errorf("resolve working directory: %w", err)
		}
	}
	tools, err := toolregistry.NewDefaultRegistry(workDir, 2*time.Minute)
	if err != nil {
		_ = store.Close()
		return nil, fmt.Errorf("build tool registry: %w", err)
	}

	client := modelclient.New(cfg.OllamaHost)

	loopCfg := loop.Config{
		MaxIterations:      cfg.MaxIterations,
		CompletionMarker:   cfg.CompletionMarker,
		StuckThreshold:     cfg.StuckThreshold,
		CheckpointInterval: cfg.CheckpointInterval,
	}
	agentLoop := loop.New(client, tools, store, recoveryMgr, bus, loopCfg)

	scheduler := tasks.New()
	orch := orchestrator.New(scheduler, agentRegistry, models, store, agentLoop, bus)

	return &app{
		cfg:      cfg,
		logger:   logger,
		bus:      bus,
		metrics:  metrics,
		sessions: store,
		agents:   agentRegistry,
		models:   models,
		recovery: recoveryMgr,
		loop:     agentLoop,
		orch:     orch,
		closeFunc: func() error {
			if closer, ok := store.(*sessions.SQLiteStore); ok {
				return closer.Close()
			}
			return nil
		},
	}, nil
}

func (a *app) Close() error {
	if a.closeFunc == nil {
		return nil
	}
	return a.closeFunc()
}

// loopRun resumes (or runs, if task.SessionID is fresh) a single task's
// Iteration Loop directly, bypassing the Orchestrator's tree-driving: a
// resumed session has no sibling tasks left to schedule around.
func (a *app) loopRun(ctx context.Context, task *sindri.Task, agent sindri.AgentDefinition) loop.Result {
	return a.loop.Run(ctx, task, agent)
}
