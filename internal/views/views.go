// Package views defines the canonical on-disk layout of rendered output:
// per object a subdirectory holding six view images and six paired
// segmentation masks, twelve files total.
package views

import (
	"fmt"
	"path/filepath"

	"viewforge/internal/fileutil"
)

// PerObject is the number of camera views rendered for each object.
const PerObject = 6

// FilesPerObject is the total expected file count per object (views + masks).
const FilesPerObject = PerObject * 2

// ObjectDir returns the output subdirectory for a single object.
func ObjectDir(outputDir, objectID string) string {
	return filepath.Join(outputDir, objectID)
}

// ImageName returns the file name of the rendered image for one view.
func ImageName(objectID string, view int) string {
	return fmt.Sprintf("%s_view_%d.png", objectID, view)
}

// MaskName returns the file name of the segmentation mask for one view.
func MaskName(objectID string, view int) string {
	return fmt.Sprintf("%s_view_%d_mask.png", objectID, view)
}

// FileNames returns all expected file names for an object, views first.
func FileNames(objectID string) []string {
	names := make([]string, 0, FilesPerObject)
	for i := 0; i < PerObject; i++ {
		names = append(names, ImageName(objectID, i))
	}
	for i := 0; i < PerObject; i++ {
		names = append(names, MaskName(objectID, i))
	}
	return names
}

// Verify checks that every expected output file for the object exists with
// nonzero size and returns the names of the files that do not.
func Verify(outputDir, objectID string) []string {
	dir := ObjectDir(outputDir, objectID)
	var missing []string
	for _, name := range FileNames(objectID) {
		if !fileutil.NonzeroFile(filepath.Join(dir, name)) {
			missing = append(missing, name)
		}
	}
	return missing
}

// Complete reports whether the object's full output set is present on disk.
func Complete(outputDir, objectID string) bool {
	return len(Verify(outputDir, objectID)) == 0
}
