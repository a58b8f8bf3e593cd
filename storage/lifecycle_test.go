package storage

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/cppla/recbox/models"
)

func TestDeleteRecordingRemovesFileAndMetadata(t *testing.T) {
	dir := t.TempDir()
	s, err := NewRecordingStore(filepath.Join(dir, "meta.json"))
	require.NoError(t, err)

	filePath := filepath.Join(dir, "recording-1.mp4")
	require.NoError(t, os.WriteFile(filePath, []byte("payload"), 0o644))
	rec := models.Recording{ID: "1", StoredName: "recording-1.mp4", FilePath: filePath, CreatedAt: time.Now()}
	require.NoError(t, s.Append(rec))

	got, err := DeleteRecording(s, "1", nil)
	require.NoError(t, err)
	require.Equal(t, "1", got.ID)

	_, err = os.Stat(filePath)
	require.ErrorIs(t, err, os.ErrNotExist)
	_, err = s.Get("1")
	require.ErrorIs(t, err, ErrNotFound)
}

func TestDeleteRecordingToleratesMissingFile(t *testing.T) {
	dir := t.TempDir()
	s, err := NewRecordingStore(filepath.Join(dir, "meta.json"))
	require.NoError(t, err)

	rec := models.Recording{ID: "orphan", FilePath: filepath.Join(dir, "never-written.mp4"), CreatedAt: time.Now()}
	require.NoError(t, s.Append(rec))

	orphaned := false
	_, err = DeleteRecording(s, "orphan", func(models.Recording, error) { orphaned = true })
	require.NoError(t, err)
	require.False(t, orphaned, "a missing file is already-clean state, not an orphan")

	_, err = s.Get("orphan")
	require.ErrorIs(t, err, ErrNotFound)
}

func TestDeleteRecordingUnknownID(t *testing.T) {
	s := newTestStore(t)

	_, err := DeleteRecording(s, "nope", nil)
	require.ErrorIs(t, err, ErrNotFound)
}
