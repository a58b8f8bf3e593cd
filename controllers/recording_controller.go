package controllers

import (
	"errors"
	"io"
	"mime"
	"net/http"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/renameio/v2"

	"github.com/cppla/recbox/config"
	"github.com/cppla/recbox/models"
	"github.com/cppla/recbox/storage"
	"github.com/cppla/recbox/utils"
)

// fallbackContentType is served when the stored extension maps to nothing;
// the capture frontend uploads mp4 screen recordings.
const fallbackContentType = "video/mp4"

// RecordingController handles upload, listing, streaming and deletion of recordings.
type RecordingController struct {
	store *storage.RecordingStore
	cfg   config.AppConfig
}

// NewRecordingController creates a new RecordingController instance.
func NewRecordingController(store *storage.RecordingStore, cfg config.AppConfig) *RecordingController {
	return &RecordingController{store: store, cfg: cfg}
}

// Upload accepts a single multipart file in the "recording" field, persists it
// under a unique name, and registers the metadata record. The record is only
// appended after the file has been fully written and renamed into place, so a
// client aborting mid-transfer never leaves a registered half-written file.
func (rc *RecordingController) Upload(ctx *gin.Context) {
	file, header, err := ctx.Request.FormFile("recording")
	if err != nil {
		utils.Error(ctx, http.StatusBadRequest, "No file uploaded")
		return
	}
	defer file.Close()

	maxSize := int64(rc.cfg.MaxUploadMB) * 1024 * 1024
	if header.Size > 0 && header.Size > maxSize {
		utils.Error(ctx, http.StatusBadRequest, "File exceeds the upload size limit")
		return
	}

	if err := os.MkdirAll(rc.cfg.StorageDir, 0o755); err != nil {
		utils.Sugar.Errorf("create storage dir %s: %v", rc.cfg.StorageDir, err)
		utils.Error(ctx, http.StatusInternalServerError, "Failed to upload recording")
		return
	}

	now := time.Now()
	storedName := storage.StoredName(header.Filename, now)
	dstPath, err := filepath.Abs(filepath.Join(rc.cfg.StorageDir, storedName))
	if err != nil {
		utils.Sugar.Errorf("resolve storage path: %v", err)
		utils.Error(ctx, http.StatusInternalServerError, "Failed to upload recording")
		return
	}

	// Stream to a temp file in the same directory, then rename into place, so
	// a partially-written file is never visible under its final name.
	tmp, err := renameio.TempFile(rc.cfg.StorageDir, dstPath)
	if err != nil {
		utils.Sugar.Errorf("create temp upload file: %v", err)
		utils.Error(ctx, http.StatusInternalServerError, "Failed to upload recording")
		return
	}
	defer tmp.Cleanup()

	// Enforce the cap even when the client lies about Content-Length.
	written, err := io.Copy(tmp, &io.LimitedReader{R: file, N: maxSize + 1})
	if err != nil {
		utils.Sugar.Errorf("write upload to %s: %v", dstPath, err)
		utils.Error(ctx, http.StatusInternalServerError, "Failed to upload recording")
		return
	}
	if written > maxSize {
		utils.Error(ctx, http.StatusBadRequest, "File exceeds the upload size limit")
		return
	}
	if err := tmp.CloseAtomicallyReplace(); err != nil {
		utils.Sugar.Errorf("finalize upload %s: %v", dstPath, err)
		utils.Error(ctx, http.StatusInternalServerError, "Failed to upload recording")
		return
	}

	originalName := utils.SanitizeName(filepath.Base(header.Filename))
	if originalName == "" || originalName == "." {
		originalName = storedName
	}

	rec := models.Recording{
		ID:           storage.NewID(now),
		StoredName:   storedName,
		OriginalName: originalName,
		SizeBytes:    written,
		FilePath:     dstPath,
		CreatedAt:    now,
	}
	if err := rc.store.Append(rec); err != nil {
		// Roll the file back so no orphan outlives a failed registration.
		_ = os.Remove(dstPath)
		utils.Sugar.Errorf("register recording %s: %v", rec.ID, err)
		utils.Error(ctx, http.StatusInternalServerError, "Failed to upload recording")
		return
	}

	ctx.JSON(http.StatusCreated, models.NewRecordingView(rec))
}

// List returns all recordings sorted newest-first. Recency ordering is an API
// layer concern; the store itself keeps insertion order.
func (rc *RecordingController) List(ctx *gin.Context) {
	recs, err := rc.store.List()
	if err != nil {
		utils.Sugar.Errorf("list recordings: %v", err)
		utils.Error(ctx, http.StatusInternalServerError, "Failed to fetch recordings")
		return
	}

	sort.SliceStable(recs, func(i, j int) bool {
		return recs[i].CreatedAt.After(recs[j].CreatedAt)
	})

	views := make([]models.RecordingView, 0, len(recs))
	for _, r := range recs {
		views = append(views, models.NewRecordingView(r))
	}
	ctx.JSON(http.StatusOK, views)
}

// Stream serves a recording's bytes, honoring single-clause byte-range
// requests with 206 partial content. A record whose file has gone missing is
// answered as 404, never served as a phantom.
func (rc *RecordingController) Stream(ctx *gin.Context) {
	id := ctx.Param("id")
	rec, err := rc.store.Get(id)
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			utils.Error(ctx, http.StatusNotFound, "Recording not found")
			return
		}
		utils.Sugar.Errorf("resolve recording %s: %v", id, err)
		utils.Error(ctx, http.StatusInternalServerError, "Failed to stream recording")
		return
	}

	f, err := os.Open(rec.FilePath)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			// Metadata/file desync: tolerate it, but never serve a phantom.
			utils.Sugar.Warnf("recording %s references missing file %s", rec.ID, rec.FilePath)
			utils.Error(ctx, http.StatusNotFound, "Recording file not found")
			return
		}
		utils.Sugar.Errorf("open recording file %s: %v", rec.FilePath, err)
		utils.Error(ctx, http.StatusInternalServerError, "Failed to stream recording")
		return
	}
	defer f.Close()

	fi, err := f.Stat()
	if err != nil {
		utils.Sugar.Errorf("stat recording file %s: %v", rec.FilePath, err)
		utils.Error(ctx, http.StatusInternalServerError, "Failed to stream recording")
		return
	}
	size := fi.Size()
	contentType := contentTypeFor(rec.StoredName)

	rangeHeader := ctx.GetHeader("Range")
	if rangeHeader == "" {
		ctx.DataFromReader(http.StatusOK, size, contentType, f, map[string]string{
			"Accept-Ranges": "bytes",
		})
		return
	}

	br, err := utils.ParseByteRange(rangeHeader, size)
	if err != nil {
		ctx.Header("Content-Range", utils.UnsatisfiedContentRange(size))
		utils.Error(ctx, http.StatusRequestedRangeNotSatisfiable, "Requested range not satisfiable")
		return
	}

	if _, err := f.Seek(br.Start, io.SeekStart); err != nil {
		utils.Sugar.Errorf("seek recording file %s: %v", rec.FilePath, err)
		utils.Error(ctx, http.StatusInternalServerError, "Failed to stream recording")
		return
	}
	ctx.DataFromReader(http.StatusPartialContent, br.Length(), contentType, io.LimitReader(f, br.Length()), map[string]string{
		"Content-Range": br.ContentRange(size),
		"Accept-Ranges": "bytes",
	})
}

// Delete removes a recording's file and metadata entry together.
func (rc *RecordingController) Delete(ctx *gin.Context) {
	id := ctx.Param("id")
	_, err := storage.DeleteRecording(rc.store, id, func(rec models.Recording, err error) {
		utils.Sugar.Warnf("file removal failed for recording %s, metadata removed anyway, orphaned file at %s: %v", rec.ID, rec.FilePath, err)
	})
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			utils.Error(ctx, http.StatusNotFound, "Recording not found")
			return
		}
		utils.Sugar.Errorf("delete recording %s: %v", id, err)
		utils.Error(ctx, http.StatusInternalServerError, "Failed to delete recording")
		return
	}
	utils.Message(ctx, http.StatusOK, "Recording deleted successfully")
}

// mediaTypes maps the capture formats browsers actually produce. The stdlib
// table does not carry mp4/webm on every platform, so these are pinned here.
var mediaTypes = map[string]string{
	".mp4":  "video/mp4",
	".m4v":  "video/mp4",
	".webm": "video/webm",
	".ogg":  "video/ogg",
	".ogv":  "video/ogg",
	".mov":  "video/quicktime",
	".mkv":  "video/x-matroska",
	".mp3":  "audio/mpeg",
	".m4a":  "audio/mp4",
	".wav":  "audio/wav",
}

// contentTypeFor infers the served content type from the stored extension.
func contentTypeFor(storedName string) string {
	ext := strings.ToLower(filepath.Ext(storedName))
	if ct, ok := mediaTypes[ext]; ok {
		return ct
	}
	if ct := mime.TypeByExtension(ext); ct != "" {
		return ct
	}
	return fallbackContentType
}
