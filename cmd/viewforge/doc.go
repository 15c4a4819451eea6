// Command viewforge renders multi-view images and segmentation masks for
// downloaded 3D objects tracked in a manifest. It drives an external
// renderer with bounded parallelism and records every outcome so runs can
// be resumed and retried.
package main
