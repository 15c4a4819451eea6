package selection

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"viewforge/internal/logging"
	"viewforge/internal/manifest"
	"viewforge/internal/views"
)

func record(id string, dl manifest.DownloadStatus, rs manifest.RenderStatus) manifest.ObjectRecord {
	return manifest.ObjectRecord{
		ID:             id,
		LocalPath:      filepath.Join("objects", id+".glb"),
		DownloadStatus: dl,
		RenderStatus:   rs,
	}
}

func selectedIDs(result Result) []string {
	ids := make([]string, 0, len(result.Tasks))
	for _, task := range result.Tasks {
		ids = append(ids, task.ObjectID)
	}
	return ids
}

func writeCompleteOutputs(t *testing.T, outputDir, objectID string) {
	t.Helper()
	dir := views.ObjectDir(outputDir, objectID)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		t.Fatal(err)
	}
	for _, name := range views.FileNames(objectID) {
		if err := os.WriteFile(filepath.Join(dir, name), []byte{1}, 0o644); err != nil {
			t.Fatal(err)
		}
	}
}

func TestSelectPolicyMatrix(t *testing.T) {
	records := []manifest.ObjectRecord{
		record("a-pending", manifest.Downloaded, manifest.RenderPending),
		record("b-failed", manifest.Downloaded, manifest.RenderFailed),
		record("c-timeout", manifest.Downloaded, manifest.RenderTimedOut),
		record("d-done", manifest.Downloaded, manifest.RenderDone),
		record("e-notdl", manifest.DownloadPending, manifest.RenderPending),
		record("f-dlfail", manifest.DownloadFailed, manifest.RenderPending),
	}

	cases := []struct {
		name string
		pol  Policy
		want []string
	}{
		{
			name: "default forces done redo, skips failed",
			pol:  Policy{},
			want: []string{"a-pending", "d-done"},
		},
		{
			name: "retry includes failed and timed out",
			pol:  Policy{RetryFailed: true},
			want: []string{"a-pending", "b-failed", "c-timeout", "d-done"},
		},
		{
			name: "resume without verified outputs re-selects done",
			pol:  Policy{Resume: true},
			want: []string{"a-pending", "d-done"},
		},
		{
			name: "resume plus retry",
			pol:  Policy{Resume: true, RetryFailed: true},
			want: []string{"a-pending", "b-failed", "c-timeout", "d-done"},
		},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			out := t.TempDir()
			result := Select(records, "/data", out, time.Minute, tc.pol, logging.NewNop())
			got := selectedIDs(result)
			if len(got) != len(tc.want) {
				t.Fatalf("selected %v, want %v", got, tc.want)
			}
			for i := range got {
				if got[i] != tc.want[i] {
					t.Fatalf("selected %v, want %v", got, tc.want)
				}
			}
			if result.ExcludedNotDownloaded != 2 {
				t.Fatalf("expected 2 undownloaded exclusions, got %d", result.ExcludedNotDownloaded)
			}
		})
	}
}

func TestSelectResumeSkipsVerifiedDone(t *testing.T) {
	out := t.TempDir()
	writeCompleteOutputs(t, out, "d-done")

	records := []manifest.ObjectRecord{
		record("a-pending", manifest.Downloaded, manifest.RenderPending),
		record("d-done", manifest.Downloaded, manifest.RenderDone),
	}
	result := Select(records, "/data", out, time.Minute, Policy{Resume: true}, logging.NewNop())

	got := selectedIDs(result)
	if len(got) != 1 || got[0] != "a-pending" {
		t.Fatalf("expected only pending object, got %v", got)
	}
	if result.SkippedDone != 1 {
		t.Fatalf("expected one verified skip, got %d", result.SkippedDone)
	}
}

func TestSelectResumeHealsPartialOutput(t *testing.T) {
	out := t.TempDir()
	writeCompleteOutputs(t, out, "d-done")
	// Knock out one mask to simulate a silent partial write.
	gone := filepath.Join(views.ObjectDir(out, "d-done"), views.MaskName("d-done", 3))
	if err := os.Remove(gone); err != nil {
		t.Fatal(err)
	}

	records := []manifest.ObjectRecord{record("d-done", manifest.Downloaded, manifest.RenderDone)}
	result := Select(records, "/data", out, time.Minute, Policy{Resume: true}, logging.NewNop())

	if len(result.Tasks) != 1 {
		t.Fatalf("incomplete done object not re-selected: %+v", result)
	}
	if result.Healed != 1 {
		t.Fatalf("expected healed count 1, got %d", result.Healed)
	}
}

func TestSelectTreatsStaleRenderingAsPending(t *testing.T) {
	records := []manifest.ObjectRecord{record("zombie", manifest.Downloaded, manifest.Rendering)}
	result := Select(records, "/data", t.TempDir(), time.Minute, Policy{Resume: true}, logging.NewNop())
	if len(result.Tasks) != 1 {
		t.Fatal("stale rendering status must be re-selected")
	}
}

func TestSelectLimit(t *testing.T) {
	records := []manifest.ObjectRecord{
		record("a", manifest.Downloaded, manifest.RenderPending),
		record("b", manifest.Downloaded, manifest.RenderPending),
		record("c", manifest.Downloaded, manifest.RenderPending),
	}
	result := Select(records, "/data", t.TempDir(), time.Minute, Policy{Limit: 2}, logging.NewNop())
	got := selectedIDs(result)
	if len(got) != 2 || got[0] != "a" || got[1] != "b" {
		t.Fatalf("limit not applied in order: %v", got)
	}
}

func TestSelectEmptyIsValid(t *testing.T) {
	result := Select(nil, "/data", t.TempDir(), time.Minute, Policy{}, logging.NewNop())
	if len(result.Tasks) != 0 {
		t.Fatal("expected empty selection")
	}
}

func TestSelectTaskFields(t *testing.T) {
	records := []manifest.ObjectRecord{record("a", manifest.Downloaded, manifest.RenderPending)}
	out := t.TempDir()
	result := Select(records, "/data/objaverse", out, 45*time.Second, Policy{}, logging.NewNop())

	task := result.Tasks[0]
	if task.SourcePath != filepath.Join("/data/objaverse", "objects", "a.glb") {
		t.Fatalf("source path not resolved against base dir: %s", task.SourcePath)
	}
	if task.OutputDir != out {
		t.Fatalf("unexpected output dir: %s", task.OutputDir)
	}
	if task.Timeout != 45*time.Second {
		t.Fatalf("unexpected timeout: %s", task.Timeout)
	}
}
