package services

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"lms-video-platform/internal/logger"
	"lms-video-platform/internal/storage"
	"lms-video-platform/models"
	"lms-video-platform/utils"
)

const subtitleCacheTTL = time.Hour

// SubtitleService serves generated SRT documents, caching the compressed
// payload in Redis in front of object storage. The cache is best-effort:
// Redis failures fall through to storage and are logged, never surfaced.
type SubtitleService struct {
	videos  VideoStore
	objects storage.ObjectStorage
	redis   *redis.Client
}

func NewSubtitleService(videos VideoStore, objects storage.ObjectStorage, redisClient *redis.Client) *SubtitleService {
	return &SubtitleService{
		videos:  videos,
		objects: objects,
		redis:   redisClient,
	}
}

// GetSubtitles returns the SRT document for a video. The video must have
// completed processing and have a stored subtitle artifact.
func (s *SubtitleService) GetSubtitles(ctx context.Context, videoID string) (string, error) {
	video, err := s.videos.Get(ctx, videoID)
	if err != nil {
		return "", err
	}
	if video.Status != models.StatusCompleted || video.SubtitleKey == "" {
		return "", fmt.Errorf("subtitles not available for video %s (status %s)", videoID, video.Status)
	}

	cacheKey := subtitleCacheKey(videoID)
	if cached, ok := s.fromCache(ctx, cacheKey); ok {
		return cached, nil
	}

	data, err := s.objects.Get(ctx, video.SubtitleKey)
	if err != nil {
		return "", fmt.Errorf("failed to load subtitles from storage: %w", err)
	}

	s.toCache(ctx, cacheKey, string(data))
	return string(data), nil
}

// Invalidate drops the cached subtitle payload for a video. Called after
// regeneration so the next read sees the new document.
func (s *SubtitleService) Invalidate(ctx context.Context, videoID string) {
	if s.redis == nil {
		return
	}
	ctx, cancel := utils.WithShortTimeout(ctx)
	defer cancel()
	if err := s.redis.Del(ctx, subtitleCacheKey(videoID)).Err(); err != nil {
		logger.Warn("failed to invalidate subtitle cache", "video_id", videoID, "error", err)
	}
}

func (s *SubtitleService) fromCache(ctx context.Context, key string) (string, bool) {
	if s.redis == nil {
		return "", false
	}
	ctx, cancel := utils.WithShortTimeout(ctx)
	defer cancel()
	compressed, err := s.redis.Get(ctx, key).Bytes()
	if err != nil {
		if !errors.Is(err, redis.Nil) {
			logger.Warn("subtitle cache read failed", "key", key, "error", err)
		}
		return "", false
	}
	text, err := utils.DecompressText(compressed, utils.CompressionBrotli)
	if err != nil {
		logger.Warn("subtitle cache entry corrupt, dropping", "key", key, "error", err)
		s.redis.Del(ctx, key)
		return "", false
	}
	return text, true
}

func (s *SubtitleService) toCache(ctx context.Context, key, text string) {
	if s.redis == nil {
		return
	}
	compressed, err := utils.CompressData([]byte(text), utils.CompressionBrotli)
	if err != nil {
		logger.Warn("failed to compress subtitles for cache", "key", key, "error", err)
		return
	}
	ctx, cancel := utils.WithShortTimeout(ctx)
	defer cancel()
	if err := s.redis.Set(ctx, key, compressed, subtitleCacheTTL).Err(); err != nil {
		logger.Warn("subtitle cache write failed", "key", key, "error", err)
	}
}

func subtitleCacheKey(videoID string) string {
	return "subtitle:" + videoID
}
