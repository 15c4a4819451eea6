package manifest

import (
	"encoding/json"
	"fmt"
)

// DownloadStatus describes the acquisition state of an object.
type DownloadStatus string

const (
	DownloadPending DownloadStatus = "pending"
	Downloaded      DownloadStatus = "downloaded"
	DownloadFailed  DownloadStatus = "failed"
)

// RenderStatus describes the render state of an object. Only terminal
// states are ever persisted; Rendering exists for in-memory bookkeeping.
type RenderStatus string

const (
	RenderPending  RenderStatus = "pending"
	Rendering      RenderStatus = "rendering"
	RenderDone     RenderStatus = "done"
	RenderFailed   RenderStatus = "failed"
	RenderTimedOut RenderStatus = "timed_out"
)

// ViewInfo records one rendered view and its paired segmentation mask,
// both relative to the output directory.
type ViewInfo struct {
	ViewID    int    `json:"view_id"`
	ImagePath string `json:"image_path"`
	MaskPath  string `json:"mask_path"`
}

// ObjectRecord is the manifest entry for a single 3D object.
type ObjectRecord struct {
	ID             string
	SourceURL      string
	LocalPath      string
	FileType       string
	Source         string
	License        string
	SHA256         string
	DownloadStatus DownloadStatus
	DownloadError  string
	RenderStatus   RenderStatus
	RenderError    string
	RenderSeconds  float64
	Views          []ViewInfo

	// extra carries fields written by other tools, preserved verbatim.
	extra map[string]json.RawMessage
}

type recordJSON struct {
	ID             string         `json:"id"`
	SourceURL      string         `json:"source_url"`
	LocalPath      string         `json:"local_path"`
	FileType       string         `json:"file_type,omitempty"`
	Source         string         `json:"source,omitempty"`
	License        *string        `json:"license"`
	SHA256         string         `json:"sha256,omitempty"`
	DownloadStatus DownloadStatus `json:"download_status"`
	DownloadError  *string        `json:"download_error,omitempty"`
	RenderStatus   RenderStatus   `json:"render_status"`
	RenderError    *string        `json:"render_error,omitempty"`
	RenderSeconds  *float64       `json:"render_time_sec,omitempty"`
	Views          []ViewInfo     `json:"views"`
}

var recordKnownKeys = map[string]struct{}{
	"id": {}, "source_url": {}, "local_path": {}, "file_type": {},
	"source": {}, "license": {}, "sha256": {}, "download_status": {},
	"download_error": {}, "render_status": {}, "render_error": {},
	"render_time_sec": {}, "views": {},
}

// UnmarshalJSON decodes the known record fields and stashes everything else
// so a later persist round-trips foreign fields untouched.
func (r *ObjectRecord) UnmarshalJSON(data []byte) error {
	var raw map[string]json.RawMessage
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	var rec recordJSON
	if err := json.Unmarshal(data, &rec); err != nil {
		return err
	}

	r.ID = rec.ID
	r.SourceURL = rec.SourceURL
	r.LocalPath = rec.LocalPath
	r.FileType = rec.FileType
	r.Source = rec.Source
	r.License = deref(rec.License)
	r.SHA256 = rec.SHA256
	r.DownloadStatus = rec.DownloadStatus
	r.DownloadError = deref(rec.DownloadError)
	r.RenderStatus = rec.RenderStatus
	r.RenderError = deref(rec.RenderError)
	if rec.RenderSeconds != nil {
		r.RenderSeconds = *rec.RenderSeconds
	}
	r.Views = rec.Views
	if r.DownloadStatus == "" {
		r.DownloadStatus = DownloadPending
	}
	if r.RenderStatus == "" {
		r.RenderStatus = RenderPending
	}

	r.extra = nil
	for key, value := range raw {
		if _, known := recordKnownKeys[key]; known {
			continue
		}
		if r.extra == nil {
			r.extra = make(map[string]json.RawMessage)
		}
		r.extra[key] = value
	}
	return nil
}

// MarshalJSON emits the known fields merged with any preserved foreign ones.
func (r ObjectRecord) MarshalJSON() ([]byte, error) {
	rec := recordJSON{
		ID:             r.ID,
		SourceURL:      r.SourceURL,
		LocalPath:      r.LocalPath,
		FileType:       r.FileType,
		Source:         r.Source,
		License:        refOrNil(r.License),
		SHA256:         r.SHA256,
		DownloadStatus: r.DownloadStatus,
		DownloadError:  refOrNil(r.DownloadError),
		RenderStatus:   r.RenderStatus,
		RenderError:    refOrNil(r.RenderError),
		Views:          r.Views,
	}
	if r.RenderSeconds > 0 {
		rec.RenderSeconds = &r.RenderSeconds
	}
	if rec.Views == nil {
		rec.Views = []ViewInfo{}
	}

	base, err := json.Marshal(rec)
	if err != nil {
		return nil, err
	}
	if len(r.extra) == 0 {
		return base, nil
	}

	var merged map[string]json.RawMessage
	if err := json.Unmarshal(base, &merged); err != nil {
		return nil, fmt.Errorf("remarshal record: %w", err)
	}
	for key, value := range r.extra {
		if _, known := recordKnownKeys[key]; known {
			continue
		}
		merged[key] = value
	}
	return json.Marshal(merged)
}

func (r ObjectRecord) clone() ObjectRecord {
	cp := r
	if r.Views != nil {
		cp.Views = append([]ViewInfo(nil), r.Views...)
	}
	return cp
}

func deref(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}

func refOrNil(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}
