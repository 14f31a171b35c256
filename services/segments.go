package services

import (
	"context"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"lms-video-platform/models"
)

// SegmentStore persists transcript segments. The pipeline and the query
// services receive it as an interface so tests can run against an in-memory
// fake.
type SegmentStore interface {
	// ReplaceForVideo removes every segment for the video and inserts the new
	// set atomically enough for our purposes: delete-then-insert, so a
	// re-run never doubles the transcript.
	ReplaceForVideo(ctx context.Context, videoID string, segments []models.Segment) error

	// ListByVideo returns all segments for a video ordered by start_time.
	ListByVideo(ctx context.Context, videoID string) ([]models.Segment, error)

	// ListOverlapping returns segments intersecting [windowStart, windowEnd]
	// ordered by start_time.
	ListOverlapping(ctx context.Context, videoID string, windowStart, windowEnd float64) ([]models.Segment, error)

	// ListEmbedded returns segments that carry an embedding vector.
	ListEmbedded(ctx context.Context, videoID string) ([]models.Segment, error)

	// ListMissingEmbedding returns up to limit segments without a vector.
	// An empty videoID matches all videos (backfill scan).
	ListMissingEmbedding(ctx context.Context, videoID string, limit int64) ([]models.Segment, error)

	// SetEmbedding attaches a vector to one segment.
	SetEmbedding(ctx context.Context, id primitive.ObjectID, vector []float32) error
}

// MongoSegmentStore is the production SegmentStore.
type MongoSegmentStore struct {
	col *mongo.Collection
}

func NewSegmentStore(db *mongo.Database) *MongoSegmentStore {
	return &MongoSegmentStore{col: db.Collection("segments")}
}

func (s *MongoSegmentStore) ReplaceForVideo(ctx context.Context, videoID string, segments []models.Segment) error {
	if _, err := s.col.DeleteMany(ctx, bson.M{"video_id": videoID}); err != nil {
		return fmt.Errorf("failed to delete prior segments: %w", err)
	}

	if len(segments) == 0 {
		return nil
	}

	now := time.Now()
	docs := make([]interface{}, 0, len(segments))
	for _, seg := range segments {
		seg.ID = primitive.NewObjectID()
		seg.VideoID = videoID
		seg.CreatedAt = now
		docs = append(docs, seg)
	}

	if _, err := s.col.InsertMany(ctx, docs); err != nil {
		return fmt.Errorf("failed to insert segments: %w", err)
	}
	return nil
}

func (s *MongoSegmentStore) ListByVideo(ctx context.Context, videoID string) ([]models.Segment, error) {
	return s.find(ctx, bson.M{"video_id": videoID})
}

func (s *MongoSegmentStore) ListOverlapping(ctx context.Context, videoID string, windowStart, windowEnd float64) ([]models.Segment, error) {
	// Interval overlap, not point containment: a segment merely touching the
	// window edge counts.
	return s.find(ctx, bson.M{
		"video_id":   videoID,
		"start_time": bson.M{"$lte": windowEnd},
		"end_time":   bson.M{"$gte": windowStart},
	})
}

func (s *MongoSegmentStore) ListEmbedded(ctx context.Context, videoID string) ([]models.Segment, error) {
	return s.find(ctx, bson.M{
		"video_id":  videoID,
		"embedding": bson.M{"$exists": true, "$ne": nil},
	})
}

func (s *MongoSegmentStore) ListMissingEmbedding(ctx context.Context, videoID string, limit int64) ([]models.Segment, error) {
	filter := bson.M{"embedding": bson.M{"$exists": false}}
	if videoID != "" {
		filter["video_id"] = videoID
	}

	opts := options.Find().SetSort(bson.D{{Key: "video_id", Value: 1}, {Key: "start_time", Value: 1}})
	if limit > 0 {
		opts = opts.SetLimit(limit)
	}
	cursor, err := s.col.Find(ctx, filter, opts)
	if err != nil {
		return nil, err
	}
	defer cursor.Close(ctx)

	var segments []models.Segment
	if err := cursor.All(ctx, &segments); err != nil {
		return nil, err
	}
	return segments, nil
}

func (s *MongoSegmentStore) SetEmbedding(ctx context.Context, id primitive.ObjectID, vector []float32) error {
	_, err := s.col.UpdateOne(ctx,
		bson.M{"_id": id},
		bson.M{"$set": bson.M{"embedding": vector}},
	)
	return err
}

func (s *MongoSegmentStore) find(ctx context.Context, filter bson.M) ([]models.Segment, error) {
	cursor, err := s.col.Find(ctx, filter,
		options.Find().SetSort(bson.D{{Key: "start_time", Value: 1}}))
	if err != nil {
		return nil, err
	}
	defer cursor.Close(ctx)

	var segments []models.Segment
	if err := cursor.All(ctx, &segments); err != nil {
		return nil, err
	}
	return segments, nil
}

// VideoStore tracks video records and the state of their transcript runs.
type VideoStore interface {
	Insert(ctx context.Context, video *models.Video) error
	Get(ctx context.Context, videoID string) (*models.Video, error)
	List(ctx context.Context, page, limit int64) ([]models.Video, int64, error)
	UpdateStatus(ctx context.Context, videoID, status, errorMessage string) error
	SetTranscript(ctx context.Context, videoID, subtitleKey, subtitleURL string, segmentCount int, duration float64) error
}

// MongoVideoStore is the production VideoStore.
type MongoVideoStore struct {
	col *mongo.Collection
}

func NewVideoStore(db *mongo.Database) *MongoVideoStore {
	return &MongoVideoStore{col: db.Collection("videos")}
}

func (s *MongoVideoStore) Insert(ctx context.Context, video *models.Video) error {
	_, err := s.col.InsertOne(ctx, video)
	return err
}

func (s *MongoVideoStore) Get(ctx context.Context, videoID string) (*models.Video, error) {
	var video models.Video
	err := s.col.FindOne(ctx, bson.M{"_id": videoID}).Decode(&video)
	if err != nil {
		return nil, err
	}
	return &video, nil
}

func (s *MongoVideoStore) List(ctx context.Context, page, limit int64) ([]models.Video, int64, error) {
	skip := (page - 1) * limit
	cursor, err := s.col.Find(ctx, bson.M{},
		options.Find().SetSort(bson.M{"uploaded_at": -1}).SetSkip(skip).SetLimit(limit))
	if err != nil {
		return nil, 0, err
	}
	defer cursor.Close(ctx)

	var videos []models.Video
	if err := cursor.All(ctx, &videos); err != nil {
		return nil, 0, err
	}

	total, err := s.col.CountDocuments(ctx, bson.M{})
	if err != nil {
		return nil, 0, err
	}
	return videos, total, nil
}

func (s *MongoVideoStore) UpdateStatus(ctx context.Context, videoID, status, errorMessage string) error {
	update := bson.M{
		"status":     status,
		"updated_at": time.Now(),
	}
	if errorMessage != "" {
		update["error_message"] = errorMessage
	}
	_, err := s.col.UpdateOne(ctx, bson.M{"_id": videoID}, bson.M{"$set": update})
	return err
}

func (s *MongoVideoStore) SetTranscript(ctx context.Context, videoID, subtitleKey, subtitleURL string, segmentCount int, duration float64) error {
	now := time.Now()
	_, err := s.col.UpdateOne(ctx, bson.M{"_id": videoID}, bson.M{"$set": bson.M{
		"status":        models.StatusCompleted,
		"subtitle_key":  subtitleKey,
		"subtitle_url":  subtitleURL,
		"segment_count": segmentCount,
		"duration":      duration,
		"error_message": "",
		"processed_at":  now,
		"updated_at":    now,
	}})
	return err
}
