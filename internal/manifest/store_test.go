package manifest

import (
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func seedStore(t *testing.T) *Store {
	t.Helper()
	store, err := LoadOrCreate(filepath.Join(t.TempDir(), "manifest.json"))
	if err != nil {
		t.Fatal(err)
	}
	store.Put(ObjectRecord{
		ID:             "obj-a",
		LocalPath:      "objects/obj-a.glb",
		FileType:       "glb",
		DownloadStatus: Downloaded,
		RenderStatus:   RenderPending,
	})
	return store
}

func TestLoadMissingFileFails(t *testing.T) {
	if _, err := Load(filepath.Join(t.TempDir(), "manifest.json")); err == nil {
		t.Fatal("expected error loading missing manifest")
	}
}

func TestLoadCorruptManifest(t *testing.T) {
	path := filepath.Join(t.TempDir(), "manifest.json")
	if err := os.WriteFile(path, []byte("{not json"), 0o644); err != nil {
		t.Fatal(err)
	}
	_, err := Load(path)
	if !errors.Is(err, ErrCorrupt) {
		t.Fatalf("expected ErrCorrupt, got %v", err)
	}
}

func TestPersistAndReload(t *testing.T) {
	store := seedStore(t)
	if err := store.Update("obj-a", RenderDone, ""); err != nil {
		t.Fatal(err)
	}
	if err := store.SetRenderArtifacts("obj-a", 12.5, []ViewInfo{{ViewID: 0, ImagePath: "obj-a/obj-a_view_0.png", MaskPath: "obj-a/obj-a_view_0_mask.png"}}); err != nil {
		t.Fatal(err)
	}
	if err := store.Persist(); err != nil {
		t.Fatal(err)
	}

	reloaded, err := Load(store.Path())
	if err != nil {
		t.Fatal(err)
	}
	rec, ok := reloaded.Get("obj-a")
	if !ok {
		t.Fatal("record lost across persist/load")
	}
	if rec.RenderStatus != RenderDone {
		t.Fatalf("render status lost: %s", rec.RenderStatus)
	}
	if rec.RenderSeconds != 12.5 {
		t.Fatalf("render time lost: %v", rec.RenderSeconds)
	}
	if len(rec.Views) != 1 || rec.Views[0].MaskPath != "obj-a/obj-a_view_0_mask.png" {
		t.Fatalf("views lost: %+v", rec.Views)
	}
}

func TestUpdateIdempotent(t *testing.T) {
	store := seedStore(t)
	for i := 0; i < 2; i++ {
		if err := store.Update("obj-a", RenderFailed, "renderer exited 1"); err != nil {
			t.Fatal(err)
		}
	}
	rec, _ := store.Get("obj-a")
	if rec.RenderStatus != RenderFailed || rec.RenderError != "renderer exited 1" {
		t.Fatalf("unexpected state after duplicate update: %+v", rec)
	}

	// Last write wins regardless of delivery order.
	if err := store.Update("obj-a", RenderDone, ""); err != nil {
		t.Fatal(err)
	}
	rec, _ = store.Get("obj-a")
	if rec.RenderStatus != RenderDone || rec.RenderError != "" {
		t.Fatalf("last write did not win: %+v", rec)
	}
}

func TestUpdateUnknownObject(t *testing.T) {
	store := seedStore(t)
	if err := store.Update("ghost", RenderDone, ""); !errors.Is(err, ErrUnknownObject) {
		t.Fatalf("expected ErrUnknownObject, got %v", err)
	}
}

func TestUpdateRequiresDownloadedObject(t *testing.T) {
	store := seedStore(t)
	store.Put(ObjectRecord{ID: "obj-b", DownloadStatus: DownloadFailed, RenderStatus: RenderPending})
	if err := store.Update("obj-b", RenderDone, ""); err == nil {
		t.Fatal("expected error updating render status of undownloaded object")
	}
}

func TestUnknownFieldsSurviveRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "manifest.json")
	doc := `{
  "version": "1.0",
  "created": "2026-01-01T00:00:00Z",
  "total_objects": 1,
  "annotations_source": "objaverse-xl",
  "objects": {
    "obj-x": {
      "id": "obj-x",
      "source_url": "file://objects/obj-x.glb",
      "local_path": "objects/obj-x.glb",
      "download_status": "downloaded",
      "render_status": "pending",
      "license": null,
      "curator_score": 3,
      "views": []
    }
  }
}`
	if err := os.WriteFile(path, []byte(doc), 0o644); err != nil {
		t.Fatal(err)
	}

	store, err := Load(path)
	if err != nil {
		t.Fatal(err)
	}
	if err := store.Update("obj-x", RenderDone, ""); err != nil {
		t.Fatal(err)
	}
	if err := store.Persist(); err != nil {
		t.Fatal(err)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatal(err)
	}
	out := string(data)
	if !strings.Contains(out, "annotations_source") {
		t.Fatal("top-level foreign field dropped on persist")
	}
	if !strings.Contains(out, "curator_score") {
		t.Fatal("record-level foreign field dropped on persist")
	}
	if !strings.Contains(out, `"render_status": "done"`) && !strings.Contains(out, `"render_status":"done"`) {
		t.Fatalf("updated status missing from persisted manifest:\n%s", out)
	}
}

func TestRecordsSortedByID(t *testing.T) {
	store := seedStore(t)
	store.Put(ObjectRecord{ID: "obj-z", DownloadStatus: Downloaded})
	store.Put(ObjectRecord{ID: "obj-b", DownloadStatus: Downloaded})

	records := store.Records()
	for i := 1; i < len(records); i++ {
		if records[i-1].ID >= records[i].ID {
			t.Fatalf("records not sorted: %s >= %s", records[i-1].ID, records[i].ID)
		}
	}
}

func TestRecordsAreSnapshots(t *testing.T) {
	store := seedStore(t)
	snap := store.Records()
	snap[0].RenderStatus = RenderTimedOut

	rec, _ := store.Get("obj-a")
	if rec.RenderStatus != RenderPending {
		t.Fatal("mutating a snapshot leaked into the store")
	}
}

func TestPersistOverPriorPartialWrite(t *testing.T) {
	store := seedStore(t)
	if err := store.Persist(); err != nil {
		t.Fatal(err)
	}

	// Simulate a prior run dying mid-write: a stray temp file next to the
	// manifest must not confuse a subsequent load or persist.
	stray := store.Path() + ".tmp-999"
	if err := os.WriteFile(stray, []byte("{partial"), 0o644); err != nil {
		t.Fatal(err)
	}

	reloaded, err := Load(store.Path())
	if err != nil {
		t.Fatal(err)
	}
	if err := reloaded.Persist(); err != nil {
		t.Fatal(err)
	}

	var doc map[string]any
	data, err := os.ReadFile(store.Path())
	if err != nil {
		t.Fatal(err)
	}
	if err := json.Unmarshal(data, &doc); err != nil {
		t.Fatalf("manifest unreadable after persist: %v", err)
	}
}

func TestStats(t *testing.T) {
	store := seedStore(t)
	store.Put(ObjectRecord{ID: "obj-b", DownloadStatus: Downloaded, RenderStatus: RenderDone})
	store.Put(ObjectRecord{ID: "obj-c", DownloadStatus: Downloaded, RenderStatus: RenderTimedOut})
	store.Put(ObjectRecord{ID: "obj-d", DownloadStatus: DownloadFailed, RenderStatus: RenderPending})

	stats := store.Stats()
	if stats.Total != 4 || stats.Downloaded != 3 || stats.DownloadFailed != 1 {
		t.Fatalf("unexpected download stats: %+v", stats)
	}
	if stats.RenderDone != 1 || stats.RenderTimedOut != 1 || stats.RenderPending != 2 {
		t.Fatalf("unexpected render stats: %+v", stats)
	}
}
