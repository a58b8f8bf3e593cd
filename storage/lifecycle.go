package storage

import (
	"errors"
	"os"

	"github.com/cppla/recbox/models"
)

// DeleteRecording removes a recording's file and metadata entry together.
//
// The file is unlinked first, tolerating an already-missing file. If the
// unlink fails for any other reason the metadata entry is removed anyway and
// the orphaned file is reported through onOrphan; callers therefore must not
// assume the file is physically gone when this returns success.
func DeleteRecording(store *RecordingStore, id string, onOrphan func(rec models.Recording, err error)) (models.Recording, error) {
	rec, err := store.Get(id)
	if err != nil {
		return models.Recording{}, err
	}

	if rec.FilePath != "" {
		if err := os.Remove(rec.FilePath); err != nil && !errors.Is(err, os.ErrNotExist) {
			if onOrphan != nil {
				onOrphan(rec, err)
			}
		}
	}

	removed, err := store.Remove(id)
	if err != nil {
		return models.Recording{}, err
	}
	if !removed {
		// A concurrent delete won the race between Get and Remove.
		return models.Recording{}, ErrNotFound
	}
	return rec, nil
}
