package model

import "time"

// Track is an uploaded track's metadata. Binary content lives in object
// storage; the ledger only tracks size, duration and lifecycle state.
type Track struct {
	ID              string    `json:"id" gorm:"primaryKey;size:36"`
	ProjectID       string    `json:"projectId" gorm:"size:36;index;not null"`
	Name            string    `json:"name" gorm:"size:255;not null"`
	UploadedBy      string    `json:"uploadedBy" gorm:"size:64;index;not null"`
	SizeBytes       int64     `json:"sizeBytes"`
	DurationSeconds float64   `json:"durationSeconds"`
	Status          string    `json:"status" gorm:"size:20;index"` // uploading, ready, playing, failed
	FailReason      string    `json:"failReason,omitempty" gorm:"size:255"`
	Seq             int64     `json:"-" gorm:"autoIncrement;uniqueIndex"` // upload order within listing
	CreatedAt       time.Time `json:"createdAt"`
	UpdatedAt       time.Time `json:"updatedAt"`
}

// TableName sets the tracks table name.
func (Track) TableName() string {
	return "tracks"
}

const (
	// Track lifecycle: uploading -> {ready, failed}; ready <-> playing; failed is terminal.
	TrackStatusUploading = "uploading"
	TrackStatusReady     = "ready"
	TrackStatusPlaying   = "playing"
	TrackStatusFailed    = "failed"
)
