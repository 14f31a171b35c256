package models

import "time"

// Video represents a lecture video and the state of its transcript run.
type Video struct {
	ID           string     `bson:"_id" json:"id"`
	CourseID     string     `bson:"course_id,omitempty" json:"course_id,omitempty"`
	Title        string     `bson:"title" json:"title"`
	OriginalName string     `bson:"original_name" json:"original_name"`
	StorageKey   string     `bson:"storage_key" json:"-"`
	Size         int64      `bson:"size" json:"size"`
	Duration     float64    `bson:"duration,omitempty" json:"duration,omitempty"` // seconds
	Status       string     `bson:"status" json:"status"`                         // pending, processing, completed, failed
	SubtitleKey  string     `bson:"subtitle_key,omitempty" json:"-"`
	SubtitleURL  string     `bson:"subtitle_url,omitempty" json:"subtitle_url,omitempty"`
	SegmentCount int        `bson:"segment_count" json:"segment_count"`
	ErrorMessage string     `bson:"error_message,omitempty" json:"error_message,omitempty"`
	UploadedAt   time.Time  `bson:"uploaded_at" json:"uploaded_at"`
	UpdatedAt    time.Time  `bson:"updated_at" json:"updated_at"`
	ProcessedAt  *time.Time `bson:"processed_at,omitempty" json:"processed_at,omitempty"`
}

// Subtitle processing status constants
const (
	StatusPending    = "pending"
	StatusProcessing = "processing"
	StatusCompleted  = "completed"
	StatusFailed     = "failed"
)
