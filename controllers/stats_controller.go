package controllers

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/cppla/recbox/storage"
	"github.com/cppla/recbox/utils"
)

// StatsController exposes aggregate statistics about the stored recordings.
type StatsController struct {
	store *storage.RecordingStore
}

// NewStatsController creates a new StatsController instance.
func NewStatsController(store *storage.RecordingStore) *StatsController {
	return &StatsController{store: store}
}

// GetStats returns recording counts, total stored bytes, and playback totals.
func (s *StatsController) GetStats(ctx *gin.Context) {
	recs, err := s.store.List()
	if err != nil {
		utils.Sugar.Errorf("stats list recordings: %v", err)
		utils.Error(ctx, http.StatusInternalServerError, "Failed to fetch stats")
		return
	}

	var totalBytes int64
	for _, r := range recs {
		totalBytes += r.SizeBytes
	}

	ctx.JSON(http.StatusOK, gin.H{
		"recording_count":  len(recs),
		"total_size_bytes": totalBytes,
		"plays_total":      playCount(utils.PlaysTotalKey),
	})
}

// GetRecordingStats returns playback stats for a single recording.
func (s *StatsController) GetRecordingStats(ctx *gin.Context) {
	id := ctx.Param("id")
	rec, err := s.store.Get(id)
	if errors.Is(err, storage.ErrNotFound) {
		utils.Error(ctx, http.StatusNotFound, "Recording not found")
		return
	}
	if err != nil {
		utils.Sugar.Errorf("stats get recording %s: %v", id, err)
		utils.Error(ctx, http.StatusInternalServerError, "Failed to fetch stats")
		return
	}

	ctx.JSON(http.StatusOK, gin.H{
		"id":    rec.ID,
		"plays": playCount(utils.PlaysKeyPrefix + rec.ID),
	})
}

// playCount reads a counter from redis. Counters are best-effort: when redis
// is unreachable the endpoint still answers, with zero.
func playCount(key string) int64 {
	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	n, err := utils.GetRedis().Get(ctx, key).Int64()
	if err != nil {
		return 0
	}
	return n
}
