package storage

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/google/renameio/v2"
	"github.com/google/uuid"

	"github.com/cppla/recbox/models"
)

var (
	// ErrNotFound is returned when no recording exists for the given id.
	ErrNotFound = errors.New("recording not found")
	// ErrDuplicateID is returned when appending a record whose id is already taken.
	ErrDuplicateID = errors.New("duplicate recording id")
)

// document is the on-disk shape of the metadata collection. It is distinct
// from the API representation: the file path must be persisted here, but
// never leaves the process in responses.
type document struct {
	Recordings []storedRecording `json:"recordings"`
}

type storedRecording struct {
	ID           string    `json:"id"`
	StoredName   string    `json:"filename"`
	OriginalName string    `json:"originalname"`
	SizeBytes    int64     `json:"size"`
	FilePath     string    `json:"filepath"`
	CreatedAt    time.Time `json:"created_at"`
}

func toStored(r models.Recording) storedRecording {
	return storedRecording{
		ID:           r.ID,
		StoredName:   r.StoredName,
		OriginalName: r.OriginalName,
		SizeBytes:    r.SizeBytes,
		FilePath:     r.FilePath,
		CreatedAt:    r.CreatedAt,
	}
}

func (sr storedRecording) toModel() models.Recording {
	return models.Recording{
		ID:           sr.ID,
		StoredName:   sr.StoredName,
		OriginalName: sr.OriginalName,
		SizeBytes:    sr.SizeBytes,
		FilePath:     sr.FilePath,
		CreatedAt:    sr.CreatedAt,
	}
}

// RecordingStore is the durable id -> record mapping. The whole collection is
// persisted as a single JSON document; every mutation is a full
// read-modify-write cycle guarded by a mutex, and the document is replaced via
// write-temp-then-rename so readers never observe a partial write.
type RecordingStore struct {
	path string
	mu   sync.RWMutex
}

// NewRecordingStore opens the metadata document at path, creating an empty
// collection if none exists yet.
func NewRecordingStore(path string) (*RecordingStore, error) {
	if dir := filepath.Dir(path); dir != "" && dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("create metadata dir: %w", err)
		}
	}

	s := &RecordingStore{path: path}
	if _, err := os.Stat(path); errors.Is(err, os.ErrNotExist) {
		if err := s.save(nil); err != nil {
			return nil, fmt.Errorf("initialize metadata document: %w", err)
		}
	} else if err != nil {
		return nil, fmt.Errorf("stat metadata document: %w", err)
	}
	return s, nil
}

// Path returns the location of the metadata document.
func (s *RecordingStore) Path() string {
	return s.path
}

// List returns all current records in insertion order. Callers needing
// recency order sort by CreatedAt themselves.
func (s *RecordingStore) List() ([]models.Recording, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.load()
}

// Get returns the record for id or ErrNotFound.
func (s *RecordingStore) Get(id string) (models.Recording, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	recs, err := s.load()
	if err != nil {
		return models.Recording{}, err
	}
	for _, r := range recs {
		if r.ID == id {
			return r, nil
		}
	}
	return models.Recording{}, ErrNotFound
}

// Append adds a record to the collection. The id must not already be present.
func (s *RecordingStore) Append(rec models.Recording) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	recs, err := s.load()
	if err != nil {
		return err
	}
	for _, r := range recs {
		if r.ID == rec.ID {
			return ErrDuplicateID
		}
	}
	return s.save(append(recs, rec))
}

// Remove deletes the record for id, reporting whether it existed.
func (s *RecordingStore) Remove(id string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	recs, err := s.load()
	if err != nil {
		return false, err
	}
	kept := recs[:0]
	found := false
	for _, r := range recs {
		if r.ID == id {
			found = true
			continue
		}
		kept = append(kept, r)
	}
	if !found {
		return false, nil
	}
	return true, s.save(kept)
}

// load reads the whole collection. Callers must hold at least the read lock.
func (s *RecordingStore) load() ([]models.Recording, error) {
	data, err := os.ReadFile(s.path)
	if err != nil {
		return nil, fmt.Errorf("read metadata document: %w", err)
	}
	var doc document
	if err := json.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("decode metadata document: %w", err)
	}
	recs := make([]models.Recording, 0, len(doc.Recordings))
	for _, sr := range doc.Recordings {
		recs = append(recs, sr.toModel())
	}
	return recs, nil
}

// save atomically replaces the whole collection. Callers must hold the write lock.
func (s *RecordingStore) save(recs []models.Recording) error {
	stored := make([]storedRecording, 0, len(recs))
	for _, r := range recs {
		stored = append(stored, toStored(r))
	}
	data, err := json.MarshalIndent(document{Recordings: stored}, "", "  ")
	if err != nil {
		return fmt.Errorf("encode metadata document: %w", err)
	}
	if err := renameio.WriteFile(s.path, data, 0o644); err != nil {
		return fmt.Errorf("write metadata document: %w", err)
	}
	return nil
}

// NewID returns a globally unique recording id. The nanosecond timestamp keeps
// ids roughly chronological; the uuid fragment guarantees uniqueness for
// back-to-back creations within the same clock tick.
func NewID(now time.Time) string {
	return fmt.Sprintf("%d-%s", now.UnixNano(), uuid.NewString()[:8])
}

// StoredName derives the on-disk filename for an upload. The name is chosen by
// the store, never by the client, and preserves the original extension so the
// content type can be inferred at serve time.
func StoredName(originalName string, now time.Time) string {
	ext := filepath.Ext(filepath.Base(originalName))
	return fmt.Sprintf("recording-%d-%s%s", now.UnixNano(), uuid.NewString()[:8], ext)
}
