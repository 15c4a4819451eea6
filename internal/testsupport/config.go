// Package testsupport provides shared fixtures for package tests: temp-dir
// configs, stub renderer executables, and manifest seeding.
package testsupport

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"viewforge/internal/config"
)

// ConfigOption allows callers to customize the generated test configuration.
type ConfigOption func(*configBuilder)

type configBuilder struct {
	t       testing.TB
	baseDir string
	cfg     *config.Config
}

// NewConfig produces a config seeded with unique temp directories per test.
// It defaults common fields and applies any provided options.
func NewConfig(t testing.TB, opts ...ConfigOption) *config.Config {
	t.Helper()

	base := t.TempDir()
	cfgVal := config.Default()
	cfgVal.Manifest = filepath.Join(base, "data", "manifest.json")
	cfgVal.DownloadDir = filepath.Join(base, "data")
	cfgVal.OutputDir = filepath.Join(base, "renders")
	cfgVal.LogDir = filepath.Join(base, "logs")
	cfgVal.TimeoutSeconds = 30

	builder := &configBuilder{
		t:       t,
		baseDir: base,
		cfg:     &cfgVal,
	}
	for _, opt := range opts {
		opt(builder)
	}
	return builder.cfg
}

// BaseDir returns the root temp directory backing the generated config.
func BaseDir(cfg *config.Config) string {
	return filepath.Dir(cfg.DownloadDir)
}

// RendererBehavior selects what the stub renderer does per invocation.
type RendererBehavior string

const (
	// RendererOK writes the full 12-file output set and exits 0.
	RendererOK RendererBehavior = "ok"
	// RendererPartial writes only the six view images and exits 0,
	// simulating a silent partial write.
	RendererPartial RendererBehavior = "partial"
	// RendererFail writes a diagnostic to stderr and exits 1.
	RendererFail RendererBehavior = "fail"
	// RendererHang sleeps far past any test timeout.
	RendererHang RendererBehavior = "hang"
)

// WithStubbedRenderer installs a shell-script renderer with the requested
// behavior and points blender_path at it. Every invocation appends the
// object ID to an invocation log readable via Invocations.
func WithStubbedRenderer(behavior RendererBehavior) ConfigOption {
	return func(b *configBuilder) {
		StubRenderer(b.t, b.cfg, behavior)
	}
}

// StubRenderer (re)writes the stub renderer script for cfg with the given
// behavior. Tests call it directly to swap behavior between runs; the
// invocation log persists across rewrites.
func StubRenderer(t testing.TB, cfg *config.Config, behavior RendererBehavior) {
	t.Helper()

	baseDir := BaseDir(cfg)
	binDir := filepath.Join(baseDir, "bin")
	if err := os.MkdirAll(binDir, 0o755); err != nil {
		t.Fatalf("mkdir bin dir: %v", err)
	}

	var body string
	switch behavior {
	case RendererOK:
		body = stubWriteFiles(true)
	case RendererPartial:
		body = stubWriteFiles(false)
	case RendererFail:
		body = "echo 'Error: cannot render mesh' >&2\nexit 1\n"
	case RendererHang:
		body = "sleep 600\n"
	default:
		t.Fatalf("unknown renderer behavior %q", behavior)
	}

	script := fmt.Sprintf(`#!/bin/sh
out=""
prev=""
for arg in "$@"; do
  if [ "$prev" = "--output_dir" ]; then out="$arg"; fi
  prev="$arg"
done
id=$(basename "$out")
echo "$id" >> "%s"
%s`, invocationLogPath(baseDir), body)

	target := filepath.Join(binDir, "blender-stub")
	if err := os.WriteFile(target, []byte(script), 0o755); err != nil {
		t.Fatalf("write stub renderer: %v", err)
	}
	cfg.BlenderPath = target
	cfg.RenderScript = ""
}

func stubWriteFiles(withMasks bool) string {
	masks := ""
	if withMasks {
		masks = `  printf 'png' > "$out/${id}_view_${i}_mask.png"` + "\n"
	}
	return `i=0
while [ $i -lt 6 ]; do
  printf 'png' > "$out/${id}_view_${i}.png"
` + masks + `  i=$((i+1))
done
exit 0
`
}

func invocationLogPath(baseDir string) string {
	return filepath.Join(baseDir, "bin", "invocations.log")
}

// Invocations returns the object IDs the stub renderer was invoked for, in
// invocation order. Returns nil when the stub never ran.
func Invocations(t testing.TB, cfg *config.Config) []string {
	t.Helper()
	data, err := os.ReadFile(invocationLogPath(BaseDir(cfg)))
	if err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		t.Fatalf("read invocation log: %v", err)
	}
	var ids []string
	for _, line := range strings.Split(string(data), "\n") {
		if line = strings.TrimSpace(line); line != "" {
			ids = append(ids, line)
		}
	}
	return ids
}
