package views

import (
	"os"
	"path/filepath"
	"testing"
)

func writeOutputs(t *testing.T, outputDir, objectID string, count int) {
	t.Helper()
	dir := ObjectDir(outputDir, objectID)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		t.Fatal(err)
	}
	names := FileNames(objectID)
	for i := 0; i < count && i < len(names); i++ {
		if err := os.WriteFile(filepath.Join(dir, names[i]), []byte{0x89, 0x50}, 0o644); err != nil {
			t.Fatal(err)
		}
	}
}

func TestFileNames(t *testing.T) {
	names := FileNames("abc123")
	if len(names) != FilesPerObject {
		t.Fatalf("expected %d names, got %d", FilesPerObject, len(names))
	}
	if names[0] != "abc123_view_0.png" {
		t.Fatalf("unexpected first name: %s", names[0])
	}
	if names[PerObject] != "abc123_view_0_mask.png" {
		t.Fatalf("unexpected first mask name: %s", names[PerObject])
	}
	if names[FilesPerObject-1] != "abc123_view_5_mask.png" {
		t.Fatalf("unexpected last name: %s", names[FilesPerObject-1])
	}
}

func TestVerifyComplete(t *testing.T) {
	out := t.TempDir()
	writeOutputs(t, out, "obj1", FilesPerObject)

	if missing := Verify(out, "obj1"); len(missing) != 0 {
		t.Fatalf("expected no missing files, got %v", missing)
	}
	if !Complete(out, "obj1") {
		t.Fatal("expected complete output set")
	}
}

func TestVerifyMissingAndEmpty(t *testing.T) {
	out := t.TempDir()
	writeOutputs(t, out, "obj2", FilesPerObject-1)

	missing := Verify(out, "obj2")
	if len(missing) != 1 {
		t.Fatalf("expected one missing file, got %v", missing)
	}
	if missing[0] != "obj2_view_5_mask.png" {
		t.Fatalf("unexpected missing file: %s", missing[0])
	}

	// Zero-byte files count as missing.
	empty := filepath.Join(ObjectDir(out, "obj2"), "obj2_view_5_mask.png")
	if err := os.WriteFile(empty, nil, 0o644); err != nil {
		t.Fatal(err)
	}
	if Complete(out, "obj2") {
		t.Fatal("zero-byte mask must not count as complete")
	}
}

func TestVerifyNoDirectory(t *testing.T) {
	missing := Verify(t.TempDir(), "ghost")
	if len(missing) != FilesPerObject {
		t.Fatalf("expected all %d files missing, got %d", FilesPerObject, len(missing))
	}
}
