package manifest

import (
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"sort"
	"sync"
	"time"

	"viewforge/internal/fileutil"
)

const documentVersion = "1.0"

// Store owns the manifest document. Only one goroutine mutates it at a time;
// the mutex is the single global serialization point for writes. Readers take
// snapshots via Records and never observe partial updates.
type Store struct {
	path string

	mu      sync.Mutex
	version string
	created string
	objects map[string]*ObjectRecord
	extra   map[string]json.RawMessage
}

type documentJSON struct {
	Version      string                   `json:"version"`
	Created      string                   `json:"created"`
	TotalObjects int                      `json:"total_objects"`
	Objects      map[string]*ObjectRecord `json:"objects"`
}

var documentKnownKeys = map[string]struct{}{
	"version": {}, "created": {}, "total_objects": {}, "objects": {},
}

// Load reads an existing manifest from path. A missing file is an error; a
// file that cannot be parsed fails with ErrCorrupt.
func Load(path string) (*Store, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read manifest %s: %w", path, err)
	}
	return parse(path, data)
}

// LoadOrCreate reads the manifest at path, starting a fresh empty document
// when the file does not exist yet.
func LoadOrCreate(path string) (*Store, error) {
	data, err := os.ReadFile(path)
	if errors.Is(err, fs.ErrNotExist) {
		return &Store{
			path:    path,
			version: documentVersion,
			created: time.Now().UTC().Format(time.RFC3339),
			objects: make(map[string]*ObjectRecord),
		}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("read manifest %s: %w", path, err)
	}
	return parse(path, data)
}

func parse(path string, data []byte) (*Store, error) {
	var raw map[string]json.RawMessage
	if err := json.Unmarshal(data, &raw); err != nil {
		return nil, fmt.Errorf("%w: %s: %v", ErrCorrupt, path, err)
	}
	var doc documentJSON
	if err := json.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("%w: %s: %v", ErrCorrupt, path, err)
	}

	store := &Store{
		path:    path,
		version: doc.Version,
		created: doc.Created,
		objects: doc.Objects,
	}
	if store.version == "" {
		store.version = documentVersion
	}
	if store.objects == nil {
		store.objects = make(map[string]*ObjectRecord)
	}
	for id, rec := range store.objects {
		if rec.ID == "" {
			rec.ID = id
		}
	}
	for key, value := range raw {
		if _, known := documentKnownKeys[key]; known {
			continue
		}
		if store.extra == nil {
			store.extra = make(map[string]json.RawMessage)
		}
		store.extra[key] = value
	}
	return store, nil
}

// Path returns the manifest file location.
func (s *Store) Path() string {
	return s.path
}

// Len returns the number of known objects.
func (s *Store) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.objects)
}

// Get returns a copy of the record for id.
func (s *Store) Get(id string) (ObjectRecord, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	rec, ok := s.objects[id]
	if !ok {
		return ObjectRecord{}, false
	}
	return rec.clone(), true
}

// Records returns a snapshot of all records ordered by ascending object ID.
// The ordering is deterministic across runs so selection stays reproducible.
func (s *Store) Records() []ObjectRecord {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]ObjectRecord, 0, len(s.objects))
	for _, rec := range s.objects {
		out = append(out, rec.clone())
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

// Put inserts or replaces a record. Records are never deleted, only
// transitioned, so resume and audit work across runs.
func (s *Store) Put(rec ObjectRecord) {
	s.mu.Lock()
	defer s.mu.Unlock()
	stored := rec.clone()
	s.objects[rec.ID] = &stored
}

// Contains reports whether id is already known.
func (s *Store) Contains(id string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	_, ok := s.objects[id]
	return ok
}

// Update applies a render outcome to the record for id. It is idempotent:
// applying the same outcome twice yields the same final state, and the last
// write wins when duplicates arrive out of order. Render status only moves
// for objects that finished downloading.
func (s *Store) Update(id string, status RenderStatus, detail string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	rec, ok := s.objects[id]
	if !ok {
		return fmt.Errorf("%w: %s", ErrUnknownObject, id)
	}
	if rec.DownloadStatus != Downloaded {
		return fmt.Errorf("object %s has download status %q, cannot update render status", id, rec.DownloadStatus)
	}
	rec.RenderStatus = status
	rec.RenderError = detail
	return nil
}

// SetRenderArtifacts records the elapsed render time and produced views for
// id. Used by the result recorder alongside Update.
func (s *Store) SetRenderArtifacts(id string, seconds float64, produced []ViewInfo) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	rec, ok := s.objects[id]
	if !ok {
		return fmt.Errorf("%w: %s", ErrUnknownObject, id)
	}
	rec.RenderSeconds = seconds
	rec.Views = append([]ViewInfo(nil), produced...)
	return nil
}

// Persist writes the manifest atomically (write-to-temp-then-replace) so a
// crash mid-write never corrupts the previous manifest.
func (s *Store) Persist() error {
	s.mu.Lock()
	doc := map[string]json.RawMessage{}
	for key, value := range s.extra {
		doc[key] = value
	}
	putJSON := func(key string, v any) error {
		data, err := json.Marshal(v)
		if err != nil {
			return fmt.Errorf("marshal manifest %s: %w", key, err)
		}
		doc[key] = data
		return nil
	}
	var err error
	if err = putJSON("version", s.version); err == nil {
		if err = putJSON("created", s.created); err == nil {
			if err = putJSON("total_objects", len(s.objects)); err == nil {
				err = putJSON("objects", s.objects)
			}
		}
	}
	s.mu.Unlock()
	if err != nil {
		return err
	}

	data, err := json.MarshalIndent(doc, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal manifest: %w", err)
	}
	data = append(data, '\n')
	return fileutil.WriteFileAtomic(s.path, data, 0o644)
}

// Stats summarizes the manifest for reporting.
type Stats struct {
	Total           int
	Downloaded      int
	DownloadFailed  int
	DownloadPending int
	RenderDone      int
	RenderFailed    int
	RenderTimedOut  int
	RenderPending   int
}

// Stats counts records per status.
func (s *Store) Stats() Stats {
	s.mu.Lock()
	defer s.mu.Unlock()
	stats := Stats{Total: len(s.objects)}
	for _, rec := range s.objects {
		switch rec.DownloadStatus {
		case Downloaded:
			stats.Downloaded++
		case DownloadFailed:
			stats.DownloadFailed++
		default:
			stats.DownloadPending++
		}
		switch rec.RenderStatus {
		case RenderDone:
			stats.RenderDone++
		case RenderFailed:
			stats.RenderFailed++
		case RenderTimedOut:
			stats.RenderTimedOut++
		default:
			stats.RenderPending++
		}
	}
	return stats
}
