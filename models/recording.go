package models

import "time"

// Recording describes one stored media file. The metadata collection is the
// single source of truth for which files are live; FilePath never leaves the
// process.
type Recording struct {
	ID           string    `json:"id"`
	StoredName   string    `json:"filename"`     // on-disk name chosen by the store
	OriginalName string    `json:"originalname"` // uploader supplied, display only
	SizeBytes    int64     `json:"size"`
	FilePath     string    `json:"-"`
	CreatedAt    time.Time `json:"created_at"`
}

// URL returns the retrieval path clients use to stream this recording.
func (r Recording) URL() string {
	return "/recordings/" + r.ID
}

// RecordingView is the wire representation returned by the list and upload
// endpoints: the record plus its derived retrieval URL.
type RecordingView struct {
	Recording
	URL string `json:"url"`
}

// NewRecordingView wraps a Recording with its URL for API responses.
func NewRecordingView(r Recording) RecordingView {
	return RecordingView{Recording: r, URL: r.URL()}
}
