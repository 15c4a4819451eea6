package catalog

import (
	"fmt"
	"io/fs"
	"log/slog"
	"path/filepath"
	"strings"

	"viewforge/internal/logging"
	"viewforge/internal/manifest"
)

var supportedExtensions = map[string]struct{}{
	".glb":   {},
	".gltf":  {},
	".obj":   {},
	".fbx":   {},
	".ply":   {},
	".stl":   {},
	".blend": {},
}

// Result summarizes a scan pass.
type Result struct {
	Discovered int
	Added      int
	Skipped    int
}

// Scan walks downloadDir for supported 3D files and adds a manifest record
// for each one not already known. Existing records are never overwritten, so
// a re-scan after further downloads is safe.
func Scan(store *manifest.Store, downloadDir string, logger *slog.Logger) (Result, error) {
	log := logging.NewComponentLogger(logger, "catalog")

	var result Result
	err := filepath.WalkDir(downloadDir, func(path string, entry fs.DirEntry, walkErr error) error {
		if walkErr != nil {
			return walkErr
		}
		if entry.IsDir() {
			return nil
		}
		ext := strings.ToLower(filepath.Ext(entry.Name()))
		if _, ok := supportedExtensions[ext]; !ok {
			return nil
		}
		result.Discovered++

		objectID := strings.TrimSuffix(entry.Name(), filepath.Ext(entry.Name()))
		if store.Contains(objectID) {
			result.Skipped++
			return nil
		}

		relPath, err := filepath.Rel(downloadDir, path)
		if err != nil {
			return fmt.Errorf("relativize %s: %w", path, err)
		}

		store.Put(manifest.ObjectRecord{
			ID:             objectID,
			SourceURL:      "file://" + relPath,
			LocalPath:      relPath,
			FileType:       strings.TrimPrefix(ext, "."),
			Source:         inferSource(relPath),
			SHA256:         objectID,
			DownloadStatus: manifest.Downloaded,
			RenderStatus:   manifest.RenderPending,
		})
		result.Added++
		log.Debug("discovered object",
			logging.String("object_id", objectID),
			logging.String("path", relPath),
		)
		return nil
	})
	if err != nil {
		return result, fmt.Errorf("scan %s: %w", downloadDir, err)
	}

	log.Info("scan complete",
		logging.Int("discovered", result.Discovered),
		logging.Int("added", result.Added),
		logging.Int("skipped", result.Skipped),
	)
	return result, nil
}

func inferSource(relPath string) string {
	lower := strings.ToLower(relPath)
	switch {
	case strings.Contains(lower, "smithsonian"):
		return "smithsonian"
	case strings.Contains(lower, "objaverse_legacy"):
		return "objaverse-plusplus"
	case strings.Contains(lower, "github"):
		return "github"
	default:
		return "unknown"
	}
}
