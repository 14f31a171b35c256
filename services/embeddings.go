package services

import (
	"context"
	"sync"
	"time"

	"github.com/go-co-op/gocron"

	"lms-video-platform/internal/config"
	"lms-video-platform/internal/logger"
)

// EmbeddingService runs the best-effort embedding pass over persisted
// segments. Segments are written first and embedded second, as two
// independent phases: an embedding failure is logged and skipped, never
// rolled back into the transcript write. A segment without an embedding is
// still queryable by timestamp; it is merely excluded from semantic ranking.
type EmbeddingService struct {
	segments    SegmentStore
	embedder    Embedder
	concurrency int
	backfillGap time.Duration
}

func NewEmbeddingService(segments SegmentStore, embedder Embedder, cfg *config.Config) *EmbeddingService {
	concurrency := cfg.EmbedConcurrency
	if concurrency < 1 {
		concurrency = 1
	}
	return &EmbeddingService{
		segments:    segments,
		embedder:    embedder,
		concurrency: concurrency,
		backfillGap: time.Duration(cfg.EmbedBackfillMinutes) * time.Minute,
	}
}

// EmbedVideoSegments embeds every segment of one video that is still missing
// a vector, with bounded concurrency for provider rate limits. It returns an
// error only when the segment listing itself fails; per-segment provider
// failures degrade that segment only.
func (s *EmbeddingService) EmbedVideoSegments(ctx context.Context, videoID string) error {
	missing, err := s.segments.ListMissingEmbedding(ctx, videoID, 0)
	if err != nil {
		return err
	}
	if len(missing) == 0 {
		return nil
	}

	sem := make(chan struct{}, s.concurrency)
	var wg sync.WaitGroup
	var embedded, failed int
	var mu sync.Mutex

	for i := range missing {
		wg.Add(1)
		sem <- struct{}{}
		go func(idx int) {
			defer wg.Done()
			defer func() { <-sem }()

			seg := missing[idx]
			vec, err := s.embedder.Embed(ctx, seg.Text)
			if err != nil {
				logger.Warn("segment embedding failed, will retry on backfill",
					"segment_id", seg.ID.Hex(), "video_id", seg.VideoID, "error", err)
				mu.Lock()
				failed++
				mu.Unlock()
				return
			}
			if err := s.segments.SetEmbedding(ctx, seg.ID, vec); err != nil {
				logger.Warn("failed to store segment embedding",
					"segment_id", seg.ID.Hex(), "error", err)
				mu.Lock()
				failed++
				mu.Unlock()
				return
			}
			mu.Lock()
			embedded++
			mu.Unlock()
		}(i)
	}
	wg.Wait()

	logger.Info("embedding pass finished",
		"video_id", videoID, "embedded", embedded, "failed", failed)
	return nil
}

// Backfill re-attempts embeddings that failed or lagged behind the
// transcript write, across all videos, in bounded batches.
func (s *EmbeddingService) Backfill(ctx context.Context) {
	const batchSize = 500

	missing, err := s.segments.ListMissingEmbedding(ctx, "", batchSize)
	if err != nil {
		logger.Error("embedding backfill scan failed", "error", err)
		return
	}
	if len(missing) == 0 {
		return
	}

	logger.Info("embedding backfill started", "segments", len(missing))
	byVideo := make(map[string]struct{})
	for _, seg := range missing {
		byVideo[seg.VideoID] = struct{}{}
	}
	for videoID := range byVideo {
		if err := s.EmbedVideoSegments(ctx, videoID); err != nil {
			logger.Error("embedding backfill failed for video", "video_id", videoID, "error", err)
		}
	}
}

// StartBackfillScheduler runs Backfill on a fixed interval until the
// returned scheduler is stopped.
func (s *EmbeddingService) StartBackfillScheduler() *gocron.Scheduler {
	sched := gocron.NewScheduler(time.UTC)
	sched.Every(s.backfillGap).Do(func() {
		ctx, cancel := context.WithTimeout(context.Background(), s.backfillGap)
		defer cancel()
		s.Backfill(ctx)
	})
	sched.StartAsync()
	return sched
}
