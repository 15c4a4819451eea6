// Package catalog folds downloaded 3D object files into the manifest. The
// network download client itself is a separate tool; this package only
// reconciles what is already on disk with what the manifest knows about.
package catalog
