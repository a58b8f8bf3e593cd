package controllers

import (
	"bytes"
	"encoding/json"
	"math/rand"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cppla/recbox/config"
	"github.com/cppla/recbox/storage"
)

func newTestAPI(t *testing.T) (*gin.Engine, *storage.RecordingStore) {
	t.Helper()
	gin.SetMode(gin.TestMode)

	dir := t.TempDir()
	store, err := storage.NewRecordingStore(filepath.Join(dir, "recordings-metadata.json"))
	require.NoError(t, err)

	cfg := config.AppConfig{
		StorageDir:  filepath.Join(dir, "uploads"),
		MaxUploadMB: 1,
	}
	rc := NewRecordingController(store, cfg)

	r := gin.New()
	r.POST("/recordings", rc.Upload)
	r.GET("/recordings", rc.List)
	r.GET("/recordings/:id", rc.Stream)
	r.DELETE("/recordings/:id", rc.Delete)
	return r, store
}

func uploadRecording(t *testing.T, r *gin.Engine, filename string, payload []byte) *httptest.ResponseRecorder {
	t.Helper()

	var body bytes.Buffer
	mw := multipart.NewWriter(&body)
	fw, err := mw.CreateFormFile("recording", filename)
	require.NoError(t, err)
	_, err = fw.Write(payload)
	require.NoError(t, err)
	require.NoError(t, mw.Close())

	req := httptest.NewRequest(http.MethodPost, "/recordings", &body)
	req.Header.Set("Content-Type", mw.FormDataContentType())
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func doRequest(r *gin.Engine, method, path string, headers map[string]string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, path, nil)
	for k, v := range headers {
		req.Header.Set(k, v)
	}
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func randomPayload(n int) []byte {
	payload := make([]byte, n)
	rand.New(rand.NewSource(42)).Read(payload)
	return payload
}

func TestUploadListStreamDeleteScenario(t *testing.T) {
	r, _ := newTestAPI(t)
	payload := randomPayload(10000)

	// upload
	w := uploadRecording(t, r, "capture.mp4", payload)
	require.Equal(t, http.StatusCreated, w.Code)
	var created struct {
		ID           string `json:"id"`
		StoredName   string `json:"filename"`
		OriginalName string `json:"originalname"`
		SizeBytes    int64  `json:"size"`
		URL          string `json:"url"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &created))
	require.NotEmpty(t, created.ID)
	assert.Equal(t, int64(10000), created.SizeBytes)
	assert.Equal(t, "capture.mp4", created.OriginalName)
	assert.Equal(t, "/recordings/"+created.ID, created.URL)
	assert.Equal(t, ".mp4", filepath.Ext(created.StoredName))

	// list
	w = doRequest(r, http.MethodGet, "/recordings", nil)
	require.Equal(t, http.StatusOK, w.Code)
	var listed []map[string]any
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &listed))
	require.Len(t, listed, 1)
	assert.Equal(t, created.ID, listed[0]["id"])
	assert.Equal(t, float64(10000), listed[0]["size"])

	// partial content
	w = doRequest(r, http.MethodGet, "/recordings/"+created.ID, map[string]string{"Range": "bytes=0-999"})
	require.Equal(t, http.StatusPartialContent, w.Code)
	assert.Equal(t, "bytes 0-999/10000", w.Header().Get("Content-Range"))
	assert.Equal(t, "bytes", w.Header().Get("Accept-Ranges"))
	assert.Equal(t, "1000", w.Header().Get("Content-Length"))
	assert.Equal(t, payload[:1000], w.Body.Bytes())

	// delete
	w = doRequest(r, http.MethodDelete, "/recordings/"+created.ID, nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "deleted")

	// gone afterwards
	w = doRequest(r, http.MethodGet, "/recordings/"+created.ID, nil)
	assert.Equal(t, http.StatusNotFound, w.Code)
	w = doRequest(r, http.MethodDelete, "/recordings/"+created.ID, nil)
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestStreamFullBodyRoundTrip(t *testing.T) {
	r, _ := newTestAPI(t)
	payload := randomPayload(4096)

	w := uploadRecording(t, r, "roundtrip.webm", payload)
	require.Equal(t, http.StatusCreated, w.Code)
	var created struct {
		ID string `json:"id"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &created))

	w = doRequest(r, http.MethodGet, "/recordings/"+created.ID, nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "4096", w.Header().Get("Content-Length"))
	assert.Equal(t, "video/webm", w.Header().Get("Content-Type"))
	assert.Equal(t, payload, w.Body.Bytes())
}

func TestStreamRangeVariants(t *testing.T) {
	r, _ := newTestAPI(t)
	payload := randomPayload(10000)

	w := uploadRecording(t, r, "capture.mp4", payload)
	require.Equal(t, http.StatusCreated, w.Code)
	var created struct {
		ID string `json:"id"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &created))

	t.Run("interior slice", func(t *testing.T) {
		w := doRequest(r, http.MethodGet, "/recordings/"+created.ID, map[string]string{"Range": "bytes=500-1499"})
		require.Equal(t, http.StatusPartialContent, w.Code)
		assert.Equal(t, "bytes 500-1499/10000", w.Header().Get("Content-Range"))
		assert.Equal(t, payload[500:1500], w.Body.Bytes())
	})

	t.Run("open ended", func(t *testing.T) {
		w := doRequest(r, http.MethodGet, "/recordings/"+created.ID, map[string]string{"Range": "bytes=9000-"})
		require.Equal(t, http.StatusPartialContent, w.Code)
		assert.Equal(t, "bytes 9000-9999/10000", w.Header().Get("Content-Range"))
		assert.Equal(t, payload[9000:], w.Body.Bytes())
	})

	t.Run("suffix", func(t *testing.T) {
		w := doRequest(r, http.MethodGet, "/recordings/"+created.ID, map[string]string{"Range": "bytes=-500"})
		require.Equal(t, http.StatusPartialContent, w.Code)
		assert.Equal(t, "bytes 9500-9999/10000", w.Header().Get("Content-Range"))
		assert.Equal(t, payload[9500:], w.Body.Bytes())
	})

	t.Run("unsatisfiable", func(t *testing.T) {
		w := doRequest(r, http.MethodGet, "/recordings/"+created.ID, map[string]string{"Range": "bytes=10000-"})
		require.Equal(t, http.StatusRequestedRangeNotSatisfiable, w.Code)
		assert.Equal(t, "bytes */10000", w.Header().Get("Content-Range"))
	})

	t.Run("malformed", func(t *testing.T) {
		w := doRequest(r, http.MethodGet, "/recordings/"+created.ID, map[string]string{"Range": "bytes=abc-def"})
		require.Equal(t, http.StatusRequestedRangeNotSatisfiable, w.Code)
		assert.Contains(t, w.Body.String(), "error")
	})
}

func TestUploadWithoutFile(t *testing.T) {
	r, _ := newTestAPI(t)

	w := doRequest(r, http.MethodPost, "/recordings", nil)
	require.Equal(t, http.StatusBadRequest, w.Code)
	assert.Contains(t, w.Body.String(), "No file uploaded")
}

func TestUploadExceedingSizeLimit(t *testing.T) {
	r, store := newTestAPI(t)

	// cfg caps uploads at 1MB
	w := uploadRecording(t, r, "huge.mp4", randomPayload(1<<20+1))
	require.Equal(t, http.StatusBadRequest, w.Code)

	recs, err := store.List()
	require.NoError(t, err)
	assert.Empty(t, recs, "an oversized upload must not register a record")
}

func TestListNewestFirst(t *testing.T) {
	r, _ := newTestAPI(t)

	first := uploadRecording(t, r, "first.mp4", randomPayload(10))
	require.Equal(t, http.StatusCreated, first.Code)
	second := uploadRecording(t, r, "second.mp4", randomPayload(10))
	require.Equal(t, http.StatusCreated, second.Code)

	w := doRequest(r, http.MethodGet, "/recordings", nil)
	require.Equal(t, http.StatusOK, w.Code)
	var listed []map[string]any
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &listed))
	require.Len(t, listed, 2)
	assert.Equal(t, "second.mp4", listed[0]["originalname"])
	assert.Equal(t, "first.mp4", listed[1]["originalname"])
}

func TestStreamAfterFileVanishes(t *testing.T) {
	r, store := newTestAPI(t)

	w := uploadRecording(t, r, "gone.mp4", randomPayload(100))
	require.Equal(t, http.StatusCreated, w.Code)
	var created struct {
		ID string `json:"id"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &created))

	// desync: the file disappears underneath the metadata record
	rec, err := store.Get(created.ID)
	require.NoError(t, err)
	require.NoError(t, os.Remove(rec.FilePath))

	w = doRequest(r, http.MethodGet, "/recordings/"+created.ID, nil)
	assert.Equal(t, http.StatusNotFound, w.Code)

	// deletion still cleans up the metadata entry
	w = doRequest(r, http.MethodDelete, "/recordings/"+created.ID, nil)
	assert.Equal(t, http.StatusOK, w.Code)
}

func TestStreamSurvivesRestart(t *testing.T) {
	gin.SetMode(gin.TestMode)
	dir := t.TempDir()
	metaPath := filepath.Join(dir, "recordings-metadata.json")
	cfg := config.AppConfig{StorageDir: filepath.Join(dir, "uploads"), MaxUploadMB: 1}

	store, err := storage.NewRecordingStore(metaPath)
	require.NoError(t, err)
	rc := NewRecordingController(store, cfg)
	r := gin.New()
	r.POST("/recordings", rc.Upload)

	payload := randomPayload(2048)
	w := uploadRecording(t, r, "restart.mp4", payload)
	require.Equal(t, http.StatusCreated, w.Code)
	var created struct {
		ID string `json:"id"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &created))

	// a fresh store over the same metadata document stands in for a restart;
	// the record must come back with a usable file path, not just an id
	reopened, err := storage.NewRecordingStore(metaPath)
	require.NoError(t, err)
	rc2 := NewRecordingController(reopened, cfg)
	r2 := gin.New()
	r2.GET("/recordings/:id", rc2.Stream)

	w = doRequest(r2, http.MethodGet, "/recordings/"+created.ID, nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, payload, w.Body.Bytes())

	w = doRequest(r2, http.MethodGet, "/recordings/"+created.ID, map[string]string{"Range": "bytes=0-99"})
	require.Equal(t, http.StatusPartialContent, w.Code)
	assert.Equal(t, payload[:100], w.Body.Bytes())
}

func TestUploadedFileLandsInStorageDir(t *testing.T) {
	r, store := newTestAPI(t)

	w := uploadRecording(t, r, "placed.mp4", randomPayload(256))
	require.Equal(t, http.StatusCreated, w.Code)

	recs, err := store.List()
	require.NoError(t, err)
	require.Len(t, recs, 1)

	info, err := os.Stat(recs[0].FilePath)
	require.NoError(t, err)
	assert.Equal(t, int64(256), info.Size())
	assert.Equal(t, recs[0].StoredName, info.Name())
}
