package storage

import (
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/cppla/recbox/models"
)

func newTestStore(t *testing.T) *RecordingStore {
	t.Helper()
	s, err := NewRecordingStore(filepath.Join(t.TempDir(), "recordings-metadata.json"))
	require.NoError(t, err)
	return s
}

func testRecording(id string) models.Recording {
	return models.Recording{
		ID:           id,
		StoredName:   "recording-" + id + ".mp4",
		OriginalName: "demo.mp4",
		SizeBytes:    42,
		FilePath:     "/tmp/recording-" + id + ".mp4",
		CreatedAt:    time.Now(),
	}
}

func TestAppendGetList(t *testing.T) {
	s := newTestStore(t)

	require.NoError(t, s.Append(testRecording("a")))
	require.NoError(t, s.Append(testRecording("b")))

	got, err := s.Get("a")
	require.NoError(t, err)
	require.Equal(t, "a", got.ID)
	require.Equal(t, "demo.mp4", got.OriginalName)

	recs, err := s.List()
	require.NoError(t, err)
	require.Len(t, recs, 2)
	// insertion order, recency sorting is the API layer's job
	require.Equal(t, "a", recs[0].ID)
	require.Equal(t, "b", recs[1].ID)
}

func TestAppendRejectsDuplicateID(t *testing.T) {
	s := newTestStore(t)

	require.NoError(t, s.Append(testRecording("dup")))
	require.ErrorIs(t, s.Append(testRecording("dup")), ErrDuplicateID)

	recs, err := s.List()
	require.NoError(t, err)
	require.Len(t, recs, 1)
}

func TestGetUnknownID(t *testing.T) {
	s := newTestStore(t)

	_, err := s.Get("missing")
	require.ErrorIs(t, err, ErrNotFound)
}

func TestRemove(t *testing.T) {
	s := newTestStore(t)
	require.NoError(t, s.Append(testRecording("x")))

	removed, err := s.Remove("x")
	require.NoError(t, err)
	require.True(t, removed)

	_, err = s.Get("x")
	require.ErrorIs(t, err, ErrNotFound)

	// second remove reports not found instead of erroring
	removed, err = s.Remove("x")
	require.NoError(t, err)
	require.False(t, removed)
}

func TestCollectionSurvivesReopen(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "recordings-metadata.json")

	mediaPath := filepath.Join(dir, "recording-persisted.mp4")
	require.NoError(t, os.WriteFile(mediaPath, []byte("media"), 0o644))

	rec := testRecording("persisted")
	rec.FilePath = mediaPath

	s, err := NewRecordingStore(path)
	require.NoError(t, err)
	require.NoError(t, s.Append(rec))

	reopened, err := NewRecordingStore(path)
	require.NoError(t, err)
	recs, err := reopened.List()
	require.NoError(t, err)
	require.Len(t, recs, 1)
	require.Equal(t, "persisted", recs[0].ID)

	// the record must still resolve its media file after a reopen
	got, err := reopened.Get("persisted")
	require.NoError(t, err)
	require.Equal(t, mediaPath, got.FilePath)
	_, err = os.Stat(got.FilePath)
	require.NoError(t, err)
	require.Equal(t, rec.SizeBytes, got.SizeBytes)
	require.Equal(t, rec.StoredName, got.StoredName)
}

func TestConcurrentAppendsKeepEveryRecord(t *testing.T) {
	s := newTestStore(t)

	const k = 32
	var wg sync.WaitGroup
	errs := make([]error, k)
	for i := 0; i < k; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			errs[i] = s.Append(testRecording(fmt.Sprintf("rec-%02d", i)))
		}(i)
	}
	wg.Wait()

	for i, err := range errs {
		require.NoError(t, err, "append %d", i)
	}
	recs, err := s.List()
	require.NoError(t, err)
	require.Len(t, recs, k, "a lost update dropped a record")
}

func TestNewIDUniqueWithinSameClockTick(t *testing.T) {
	now := time.Now()
	seen := map[string]bool{}
	for i := 0; i < 1000; i++ {
		id := NewID(now)
		require.False(t, seen[id], "duplicate id %s", id)
		seen[id] = true
	}
}

func TestStoredNamePreservesExtension(t *testing.T) {
	now := time.Now()

	name := StoredName("My Capture.webm", now)
	require.Equal(t, ".webm", filepath.Ext(name))
	require.Contains(t, name, "recording-")

	// names must differ even for identical inputs in the same tick
	require.NotEqual(t, name, StoredName("My Capture.webm", now))

	// a path-ish original name must not influence the directory
	tricky := StoredName("../../etc/passwd", now)
	require.Equal(t, tricky, filepath.Base(tricky))
}
