package services

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"time"

	"lms-video-platform/internal/config"
	"lms-video-platform/internal/logger"
	"lms-video-platform/internal/storage"
	"lms-video-platform/models"
)

// TranscriptPipeline turns one uploaded lecture video into a persisted,
// time-aligned transcript plus an SRT document in object storage.
//
// The pipeline is idempotent on re-run: segments are fully replaced
// (delete-then-insert), so at-least-once job delivery never doubles a
// transcript. Each run owns a scratch directory removed on every exit path.
type TranscriptPipeline struct {
	cfg         *config.Config
	objects     storage.ObjectStorage
	extractor   AudioExtractor
	planner     *ChunkPlanner
	transcriber Transcriber
	segments    SegmentStore
	videos      VideoStore
}

func NewTranscriptPipeline(
	cfg *config.Config,
	objects storage.ObjectStorage,
	extractor AudioExtractor,
	planner *ChunkPlanner,
	transcriber Transcriber,
	segments SegmentStore,
	videos VideoStore,
) *TranscriptPipeline {
	return &TranscriptPipeline{
		cfg:         cfg,
		objects:     objects,
		extractor:   extractor,
		planner:     planner,
		transcriber: transcriber,
		segments:    segments,
		videos:      videos,
	}
}

// Run executes the whole pipeline for one video. Fatal errors (no audio
// stream, every chunk failed) are returned to the job runner, which owns
// retry-the-whole-job semantics; per-chunk failures degrade coverage only.
func (p *TranscriptPipeline) Run(ctx context.Context, videoID string) error {
	video, err := p.videos.Get(ctx, videoID)
	if err != nil {
		return fmt.Errorf("video %s not found: %w", videoID, err)
	}

	if err := p.videos.UpdateStatus(ctx, videoID, models.StatusProcessing, ""); err != nil {
		logger.Warn("failed to mark video processing", "video_id", videoID, "error", err)
	}

	scratch, err := os.MkdirTemp("", "transcript-*")
	if err != nil {
		return p.fail(ctx, videoID, fmt.Errorf("failed to create scratch directory: %w", err))
	}
	defer os.RemoveAll(scratch)

	// Media Fetcher: pull the remote object into the scratch area.
	videoPath := filepath.Join(scratch, "source"+filepath.Ext(video.OriginalName))
	data, err := p.objects.Get(ctx, video.StorageKey)
	if err != nil {
		return p.fail(ctx, videoID, fmt.Errorf("failed to fetch video object: %w", err))
	}
	if err := os.WriteFile(videoPath, data, 0600); err != nil {
		return p.fail(ctx, videoID, fmt.Errorf("failed to write scratch video: %w", err))
	}

	// Audio Extractor: one mono 16kHz track, no video stream.
	audioPath := filepath.Join(scratch, "audio.mp3")
	if err := p.extractor.ExtractAudio(ctx, videoPath, audioPath); err != nil {
		return p.fail(ctx, videoID, err)
	}

	chunks, err := p.planner.Plan(ctx, audioPath, scratch)
	if err != nil {
		return p.fail(ctx, videoID, err)
	}
	if len(chunks) == 0 {
		return p.fail(ctx, videoID, ErrEmptySource)
	}

	segments, failed := p.transcribeChunks(ctx, chunks)
	// A canceled job makes every in-flight chunk fail; that is a runner
	// decision, not a provider outage, so surface the cancellation instead
	// of marking the video failed.
	if err := ctx.Err(); err != nil {
		return err
	}
	if failed == len(chunks) {
		return p.fail(ctx, videoID, ErrAllChunksFailed)
	}
	if failed > 0 {
		logger.Warn("partial transcription: some chunks degraded to silent gaps",
			"video_id", videoID, "failed_chunks", failed, "total_chunks", len(chunks))
	}

	sort.SliceStable(segments, func(i, j int) bool {
		return segments[i].StartTime < segments[j].StartTime
	})

	// A canceled run must not touch the prior transcript: the replace step
	// is the first persistent write.
	if err := ctx.Err(); err != nil {
		return err
	}

	if err := p.segments.ReplaceForVideo(ctx, videoID, segments); err != nil {
		return p.fail(ctx, videoID, fmt.Errorf("failed to persist segments: %w", err))
	}

	doc := EncodeSRT(segments)
	subtitleKey := fmt.Sprintf("subtitles/%s.srt", videoID)
	subtitleURL, err := p.objects.Put(ctx, subtitleKey, []byte(doc), "text/plain; charset=utf-8")
	if err != nil {
		return p.fail(ctx, videoID, fmt.Errorf("failed to store subtitle document: %w", err))
	}

	last := chunks[len(chunks)-1]
	totalDuration := last.TimeOffset + last.Duration
	if err := p.videos.SetTranscript(ctx, videoID, subtitleKey, subtitleURL, len(segments), totalDuration); err != nil {
		return fmt.Errorf("failed to finalize video record: %w", err)
	}

	logger.Info("transcript generated",
		"video_id", videoID, "segments", len(segments), "chunks", len(chunks), "duration", totalDuration)
	return nil
}

// transcribeChunks runs the provider over every chunk with a bounded worker
// pool. Chunks are independent; order is restored afterward because each
// result carries its chunk's time offset. A chunk whose retries are
// exhausted becomes a silent gap rather than failing the run.
func (p *TranscriptPipeline) transcribeChunks(ctx context.Context, chunks []AudioChunk) ([]models.Segment, int) {
	perChunk := make([][]models.Segment, len(chunks))
	failures := make([]bool, len(chunks))

	concurrency := p.cfg.ChunkConcurrency
	if concurrency < 1 {
		concurrency = 1
	}
	sem := make(chan struct{}, concurrency)
	var wg sync.WaitGroup

	for i := range chunks {
		wg.Add(1)
		sem <- struct{}{}
		go func(idx int) {
			defer wg.Done()
			defer func() { <-sem }()

			chunk := chunks[idx]
			var result *TranscriptionResult
			err := retryWithBackoff(ctx, p.cfg.TranscribeAttempts, time.Duration(p.cfg.TranscribeBackoff)*time.Second, func() error {
				var tErr error
				result, tErr = p.transcriber.Transcribe(ctx, chunk.Path)
				return tErr
			})
			if err != nil {
				logger.Error("chunk transcription failed after retries",
					"chunk", chunk.Index, "offset", chunk.TimeOffset, "error", err)
				failures[idx] = true
				return
			}

			perChunk[idx] = rebaseSegments(result, chunk)
		}(i)
	}
	wg.Wait()

	var segments []models.Segment
	failed := 0
	for i := range chunks {
		if failures[i] {
			failed++
			continue
		}
		segments = append(segments, perChunk[i]...)
	}
	return segments, failed
}

// rebaseSegments shifts provider-local timestamps into the global timeline
// by the chunk's offset. A degraded response with no fine-grained segments
// becomes a single segment spanning the whole chunk.
func rebaseSegments(result *TranscriptionResult, chunk AudioChunk) []models.Segment {
	if len(result.Segments) == 0 {
		text := strings.TrimSpace(result.Text)
		if text == "" {
			return nil
		}
		return []models.Segment{{
			StartTime: chunk.TimeOffset,
			EndTime:   chunk.TimeOffset + chunk.Duration,
			Text:      text,
		}}
	}

	segments := make([]models.Segment, 0, len(result.Segments))
	for _, seg := range result.Segments {
		text := strings.TrimSpace(seg.Text)
		if text == "" || seg.End <= seg.Start {
			continue
		}
		segments = append(segments, models.Segment{
			StartTime: chunk.TimeOffset + seg.Start,
			EndTime:   chunk.TimeOffset + seg.End,
			Text:      text,
		})
	}
	return segments
}

func (p *TranscriptPipeline) fail(ctx context.Context, videoID string, cause error) error {
	if err := p.videos.UpdateStatus(ctx, videoID, models.StatusFailed, cause.Error()); err != nil {
		logger.Warn("failed to mark video failed", "video_id", videoID, "error", err)
	}
	return cause
}
