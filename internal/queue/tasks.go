package queue

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/hibiken/asynq"

	"lms-video-platform/internal/logger"
	"lms-video-platform/services"
)

const (
	TaskGenerateTranscript = "transcript:generate"
	TaskGenerateEmbeddings = "embeddings:generate"
)

type TranscriptPayload struct {
	VideoID string `json:"video_id"`
}

type EmbeddingsPayload struct {
	VideoID string `json:"video_id"`
}

// Task creators
func NewTranscriptTask(videoID string) (*asynq.Task, error) {
	payload, err := json.Marshal(TranscriptPayload{VideoID: videoID})
	if err != nil {
		return nil, err
	}

	return asynq.NewTask(
		TaskGenerateTranscript,
		payload,
		asynq.MaxRetry(3),
		asynq.Timeout(60*time.Minute),
		asynq.Queue("critical"),
	), nil
}

func NewEmbeddingsTask(videoID string) (*asynq.Task, error) {
	payload, err := json.Marshal(EmbeddingsPayload{VideoID: videoID})
	if err != nil {
		return nil, err
	}

	return asynq.NewTask(
		TaskGenerateEmbeddings,
		payload,
		asynq.MaxRetry(5),
		asynq.Timeout(15*time.Minute),
		asynq.Queue("default"),
	), nil
}

// TaskProcessor wires the worker handlers to the pipeline services.
type TaskProcessor struct {
	pipeline   *services.TranscriptPipeline
	embeddings *services.EmbeddingService
	client     *asynq.Client
}

func NewTaskProcessor(pipeline *services.TranscriptPipeline, embeddings *services.EmbeddingService, client *asynq.Client) *TaskProcessor {
	return &TaskProcessor{
		pipeline:   pipeline,
		embeddings: embeddings,
		client:     client,
	}
}

// GenerateTranscript runs the full fetch-extract-chunk-transcribe pipeline
// for one video, then enqueues embedding generation for its segments.
func (p *TaskProcessor) GenerateTranscript(ctx context.Context, t *asynq.Task) error {
	var payload TranscriptPayload
	if err := json.Unmarshal(t.Payload(), &payload); err != nil {
		return fmt.Errorf("unmarshal failed: %w", asynq.SkipRetry)
	}

	logger.Info("processing transcript task", "video_id", payload.VideoID)

	if err := p.pipeline.Run(ctx, payload.VideoID); err != nil {
		return err
	}

	// Embedding generation is best-effort and runs on its own task so a
	// provider outage never retries the whole transcription.
	task, err := NewEmbeddingsTask(payload.VideoID)
	if err != nil {
		logger.Error("failed to build embeddings task", "video_id", payload.VideoID, "error", err)
		return nil
	}
	if _, err := p.client.EnqueueContext(ctx, task); err != nil {
		logger.Error("failed to enqueue embeddings task", "video_id", payload.VideoID, "error", err)
	}

	logger.Info("transcript task completed", "video_id", payload.VideoID)
	return nil
}

// GenerateEmbeddings embeds all segments of a video that are missing vectors.
func (p *TaskProcessor) GenerateEmbeddings(ctx context.Context, t *asynq.Task) error {
	var payload EmbeddingsPayload
	if err := json.Unmarshal(t.Payload(), &payload); err != nil {
		return fmt.Errorf("unmarshal failed: %w", asynq.SkipRetry)
	}

	return p.embeddings.EmbedVideoSegments(ctx, payload.VideoID)
}
