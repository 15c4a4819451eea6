package config

import (
	"os"
	"path/filepath"
	"strings"
)

// Normalize expands home-relative paths and trims whitespace so the rest of
// the pipeline can treat every configured path as usable directly.
func (c *Config) Normalize() {
	c.Manifest = expandPath(c.Manifest)
	c.OutputDir = expandPath(c.OutputDir)
	c.DownloadDir = expandPath(c.DownloadDir)
	c.LogDir = expandPath(c.LogDir)
	c.BlenderPath = strings.TrimSpace(c.BlenderPath)
	c.RenderScript = expandPath(c.RenderScript)
	c.Logging.Format = strings.TrimSpace(c.Logging.Format)
	c.Logging.Level = strings.TrimSpace(c.Logging.Level)
}

func expandPath(path string) string {
	path = strings.TrimSpace(path)
	if path == "" {
		return path
	}
	if path == "~" {
		if home, err := os.UserHomeDir(); err == nil {
			return home
		}
		return path
	}
	if strings.HasPrefix(path, "~/") {
		if home, err := os.UserHomeDir(); err == nil {
			return filepath.Join(home, path[2:])
		}
	}
	return path
}
