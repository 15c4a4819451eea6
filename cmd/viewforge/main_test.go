package main

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/pelletier/go-toml/v2"

	"viewforge/internal/config"
	"viewforge/internal/manifest"
	"viewforge/internal/testsupport"
)

func writeConfigFile(t *testing.T, cfg *config.Config) string {
	t.Helper()
	encoded, err := toml.Marshal(cfg)
	if err != nil {
		t.Fatalf("marshal config: %v", err)
	}
	path := filepath.Join(testsupport.BaseDir(cfg), "config.toml")
	if err := os.WriteFile(path, encoded, 0o644); err != nil {
		t.Fatalf("write config file: %v", err)
	}
	return path
}

func runCommand(t *testing.T, args ...string) (string, error) {
	t.Helper()
	cmd := newRootCommand()
	var buf bytes.Buffer
	cmd.SetOut(&buf)
	cmd.SetErr(&buf)
	cmd.SetArgs(args)
	err := cmd.Execute()
	return buf.String(), err
}

func TestRenderCommandRendersManifest(t *testing.T) {
	cfg := testsupport.NewConfig(t, testsupport.WithStubbedRenderer(testsupport.RendererOK))
	testsupport.SeedManifest(t, cfg, "alpha", "bravo")
	cfgPath := writeConfigFile(t, cfg)

	out, err := runCommand(t, "--config", cfgPath, "render")
	if err != nil {
		t.Fatalf("render command: %v\n%s", err, out)
	}
	if !strings.Contains(out, "Run ID:") {
		t.Errorf("missing run ID in output:\n%s", out)
	}

	store, err := manifest.Load(cfg.Manifest)
	if err != nil {
		t.Fatalf("reload manifest: %v", err)
	}
	for _, id := range []string{"alpha", "bravo"} {
		rec, _ := store.Get(id)
		if rec.RenderStatus != manifest.RenderDone {
			t.Errorf("record %s status = %q, want %q", id, rec.RenderStatus, manifest.RenderDone)
		}
	}
}

func TestRenderCommandDryRunListsObjects(t *testing.T) {
	cfg := testsupport.NewConfig(t, testsupport.WithStubbedRenderer(testsupport.RendererOK))
	testsupport.SeedManifest(t, cfg, "alpha", "bravo")
	cfgPath := writeConfigFile(t, cfg)

	out, err := runCommand(t, "--config", cfgPath, "render", "--dry_run")
	if err != nil {
		t.Fatalf("dry run: %v\n%s", err, out)
	}
	if !strings.Contains(out, "would render 2 objects") {
		t.Errorf("unexpected dry-run output:\n%s", out)
	}
	if got := testsupport.Invocations(t, cfg); got != nil {
		t.Errorf("dry run invoked the renderer: %v", got)
	}
}

func TestRenderCommandLimitFlag(t *testing.T) {
	cfg := testsupport.NewConfig(t, testsupport.WithStubbedRenderer(testsupport.RendererOK))
	testsupport.SeedManifest(t, cfg, "alpha", "bravo", "charlie")
	cfgPath := writeConfigFile(t, cfg)

	if out, err := runCommand(t, "--config", cfgPath, "render", "--limit", "1"); err != nil {
		t.Fatalf("render command: %v\n%s", err, out)
	}
	if got := testsupport.Invocations(t, cfg); len(got) != 1 {
		t.Fatalf("renderer invoked %d times, want 1: %v", len(got), got)
	}
}

func TestRenderCommandFlagOverrides(t *testing.T) {
	cfg := testsupport.NewConfig(t, testsupport.WithStubbedRenderer(testsupport.RendererOK))
	testsupport.SeedManifest(t, cfg, "alpha")
	altOutput := filepath.Join(testsupport.BaseDir(cfg), "alt-renders")
	cfgPath := writeConfigFile(t, cfg)

	if out, err := runCommand(t, "--config", cfgPath, "render", "--output_dir", altOutput); err != nil {
		t.Fatalf("render command: %v\n%s", err, out)
	}
	if _, err := os.Stat(filepath.Join(altOutput, "alpha")); err != nil {
		t.Errorf("override output dir unused: %v", err)
	}
}

func TestRenderCommandPerObjectFailureExitsZero(t *testing.T) {
	cfg := testsupport.NewConfig(t, testsupport.WithStubbedRenderer(testsupport.RendererFail))
	testsupport.SeedManifest(t, cfg, "alpha")
	cfgPath := writeConfigFile(t, cfg)

	if out, err := runCommand(t, "--config", cfgPath, "render"); err != nil {
		t.Fatalf("per-object failures must not fail the command: %v\n%s", err, out)
	}
}

func TestScanCommandRegistersObjects(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	for _, name := range []string{"objects/one.glb", "objects/two.obj", "objects/notes.txt"} {
		testsupport.WriteFile(t, filepath.Join(cfg.DownloadDir, name), 32)
	}
	cfgPath := writeConfigFile(t, cfg)

	out, err := runCommand(t, "--config", cfgPath, "scan")
	if err != nil {
		t.Fatalf("scan command: %v\n%s", err, out)
	}
	if !strings.Contains(out, "added 2") {
		t.Errorf("unexpected scan output:\n%s", out)
	}

	store, err := manifest.Load(cfg.Manifest)
	if err != nil {
		t.Fatalf("load manifest after scan: %v", err)
	}
	if store.Len() != 2 {
		t.Errorf("manifest has %d objects, want 2", store.Len())
	}
}

func TestStatusCommandReportsStats(t *testing.T) {
	cfg := testsupport.NewConfig(t, testsupport.WithStubbedRenderer(testsupport.RendererOK))
	testsupport.SeedManifest(t, cfg, "alpha")
	cfgPath := writeConfigFile(t, cfg)

	if out, err := runCommand(t, "--config", cfgPath, "render"); err != nil {
		t.Fatalf("render command: %v\n%s", err, out)
	}
	out, err := runCommand(t, "--config", cfgPath, "status")
	if err != nil {
		t.Fatalf("status command: %v\n%s", err, out)
	}
	if !strings.Contains(out, "Render done") {
		t.Errorf("status output missing manifest stats:\n%s", out)
	}
	if !strings.Contains(out, "finished") {
		t.Errorf("status output missing run history:\n%s", out)
	}
}

func TestConfigInitWritesSample(t *testing.T) {
	target := filepath.Join(t.TempDir(), "config.toml")

	out, err := runCommand(t, "config", "init", "--path", target)
	if err != nil {
		t.Fatalf("config init: %v\n%s", err, out)
	}
	data, err := os.ReadFile(target)
	if err != nil {
		t.Fatalf("read sample: %v", err)
	}
	if !strings.Contains(string(data), "blender_path") {
		t.Error("sample config missing renderer settings")
	}

	if _, err := runCommand(t, "config", "init", "--path", target); err == nil {
		t.Fatal("second init without --overwrite should fail")
	}
	if out, err := runCommand(t, "config", "init", "--path", target, "--overwrite"); err != nil {
		t.Fatalf("init with --overwrite: %v\n%s", err, out)
	}
}

func TestConfigShowPrintsEffectiveConfig(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	cfgPath := writeConfigFile(t, cfg)

	out, err := runCommand(t, "--config", cfgPath, "config", "show")
	if err != nil {
		t.Fatalf("config show: %v\n%s", err, out)
	}
	if !strings.Contains(out, cfg.Manifest) {
		t.Errorf("config show missing manifest path:\n%s", out)
	}
}
