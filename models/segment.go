package models

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// Segment is one time-bounded span of transcribed speech.
// A transcript is an ordered sequence of segments sorted by start_time;
// gaps are legal and overlaps are tolerated.
type Segment struct {
	ID        primitive.ObjectID `bson:"_id,omitempty" json:"id"`
	VideoID   string             `bson:"video_id" json:"video_id"`
	StartTime float64            `bson:"start_time" json:"start_time"` // seconds
	EndTime   float64            `bson:"end_time" json:"end_time"`     // seconds
	Text      string             `bson:"text" json:"text"`
	Embedding []float32          `bson:"embedding,omitempty" json:"-"` // present only after an embedding pass
	CreatedAt time.Time          `bson:"created_at" json:"created_at"`
}

// HasEmbedding reports whether an embedding pass has landed for this segment.
func (s Segment) HasEmbedding() bool {
	return len(s.Embedding) > 0
}

// Overlaps reports whether the segment intersects [lo, hi].
// A segment merely touching a window edge counts as overlapping.
func (s Segment) Overlaps(lo, hi float64) bool {
	return s.StartTime <= hi && s.EndTime >= lo
}

// SearchResult is one ranked hit from semantic search over embedded segments.
type SearchResult struct {
	ID         string  `json:"id"`
	Text       string  `json:"text"`
	StartTime  float64 `json:"start_time"`
	EndTime    float64 `json:"end_time"`
	Similarity float64 `json:"similarity"`
}

// SearchResponse wraps ranked results. Zero embedded segments for a video is
// a valid empty response, not an error.
type SearchResponse struct {
	Results      []SearchResult `json:"results"`
	TotalResults int            `json:"total_results"`
}

// ContextResult is the outcome of a context-window extraction around a
// timestamp. Found=false is an expected state (no subtitles yet, or the
// timestamp falls outside the transcript).
type ContextResult struct {
	Text        string  `json:"text"`
	WindowStart float64 `json:"window_start"`
	WindowEnd   float64 `json:"window_end"`
	Segments    int     `json:"segments"`
	Found       bool    `json:"found"`
	Truncated   bool    `json:"truncated,omitempty"`
}
