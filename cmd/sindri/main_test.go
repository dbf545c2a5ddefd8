package main

import "testing"

func TestBuildRootCmdIncludesSubcommands(t *testing.T) {
	cmd := buildRootCmd()
	names := map[string]bool{}
	for _, sub := range cmd.Commands() {
		names[sub.Name()] = true
	}

	required := []string{"run", "resume", "sessions", "agents", "doctor"}
	for _, name := range required {
		if !names[name] {
			t.Fatalf("expected subcommand %q to be registered", name)
		}
	}
}

func TestResolveConfigPathPrefersExplicitFlag(t *testing.T) {
	if got := resolveConfigPath("/tmp/custom.yaml"); got != "/tmp/custom.yaml" {
		t.Errorf("resolveConfigPath = %q, want explicit path preserved", got)
	}
}

func TestResolveConfigPathFallsBackToEnv(t *testing.T) {
	t.Setenv("SINDRI_CONFIG", "/tmp/env.yaml")
	if got := resolveConfigPath(""); got != "/tmp/env.yaml" {
		t.Errorf("resolveConfigPath = %q, want env fallback", got)
	}
}
