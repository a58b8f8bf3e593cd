package utils

import (
	"time"

	"github.com/cppla/recbox/config"
	"github.com/cppla/recbox/models"
	"github.com/cppla/recbox/storage"
)

// StartRetentionCleaner launches a background goroutine that periodically
// deletes recordings older than the configured retention age. It is
// best-effort and logs failures.
func StartRetentionCleaner(store *storage.RecordingStore, interval time.Duration) {
	if interval <= 0 {
		interval = 5 * time.Minute
	}
	go func() {
		for {
			// Sleep first to avoid racing immediately at startup
			time.Sleep(interval)

			// obey configuration switch
			c := config.Get()
			if !c.RetentionEnabled {
				continue
			}
			cutoff := time.Now().Add(-time.Duration(c.RetentionMaxAgeHours) * time.Hour)
			if n := sweepExpiredRecordings(store, cutoff); n > 0 {
				Sugar.Infof("retention cleaner removed %d recording(s)", n)
			}
		}
	}()
}

// sweepExpiredRecordings deletes every recording created before cutoff and
// returns how many were removed.
func sweepExpiredRecordings(store *storage.RecordingStore, cutoff time.Time) int {
	recs, err := store.List()
	if err != nil {
		Sugar.Errorf("retention cleaner list failed: %v", err)
		return 0
	}

	removed := 0
	for _, rec := range recs {
		if !rec.CreatedAt.Before(cutoff) {
			continue
		}
		if _, err := storage.DeleteRecording(store, rec.ID, logOrphan); err != nil {
			Sugar.Errorf("retention cleaner delete %s failed: %v", rec.ID, err)
			continue
		}
		removed++
	}
	return removed
}

func logOrphan(rec models.Recording, err error) {
	Sugar.Warnf("file removal failed for recording %s, metadata removed anyway, orphaned file at %s: %v", rec.ID, rec.FilePath, err)
}
