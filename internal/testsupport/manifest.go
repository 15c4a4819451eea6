package testsupport

import (
	"path/filepath"
	"testing"

	"viewforge/internal/config"
	"viewforge/internal/manifest"
)

// SeedManifest creates downloaded object files plus matching manifest
// records for the given IDs, persists the manifest at the configured path,
// and returns the open store.
func SeedManifest(t testing.TB, cfg *config.Config, ids ...string) *manifest.Store {
	t.Helper()

	store, err := manifest.LoadOrCreate(cfg.Manifest)
	if err != nil {
		t.Fatalf("manifest.LoadOrCreate: %v", err)
	}
	for _, id := range ids {
		localPath := filepath.Join("objects", id+".glb")
		WriteFile(t, filepath.Join(cfg.DownloadDir, localPath), 64)
		store.Put(manifest.ObjectRecord{
			ID:             id,
			SourceURL:      "file://" + localPath,
			LocalPath:      localPath,
			FileType:       "glb",
			Source:         "github",
			SHA256:         id,
			DownloadStatus: manifest.Downloaded,
			RenderStatus:   manifest.RenderPending,
		})
	}
	if err := store.Persist(); err != nil {
		t.Fatalf("persist seeded manifest: %v", err)
	}
	return store
}
