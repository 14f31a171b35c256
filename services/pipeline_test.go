package services

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"lms-video-platform/internal/config"
	"lms-video-platform/models"
)

func pipelineConfig() *config.Config {
	return &config.Config{
		ProviderByteCeiling: 1 << 20,
		ChunkSafetyMargin:   0.8,
		MinChunkSeconds:     1,
		MaxChunkSeconds:     600,
		ChunkFloorSeconds:   0.5,
		ChunkConcurrency:    2,
		TranscribeAttempts:  1,
		TranscribeBackoff:   0,
	}
}

func testVideo() *models.Video {
	return &models.Video{
		ID:           "vid-1",
		CourseID:     "course-1",
		Title:        "Lecture 1",
		OriginalName: "lecture1.mp4",
		StorageKey:   "videos/vid-1.mp4",
		Status:       models.StatusPending,
		UploadedAt:   time.Now(),
	}
}

func newTestPipeline(cfg *config.Config, transcriber Transcriber) (*TranscriptPipeline, *memStorage, *memSegmentStore, *memVideoStore) {
	objects := newMemStorage()
	objects.objects["videos/vid-1.mp4"] = []byte("fake video bytes")
	ext := &fakeExtractor{duration: 150}
	segments := newMemSegmentStore()
	videos := newMemVideoStore(testVideo())
	pipeline := NewTranscriptPipeline(cfg, objects, ext, NewChunkPlanner(ext, cfg), transcriber, segments, videos)
	return pipeline, objects, segments, videos
}

func TestPipelineRunPersistsTranscript(t *testing.T) {
	transcriber := &fakeTranscriber{fn: func(path string) (*TranscriptionResult, error) {
		return &TranscriptionResult{
			Segments: []TranscribedSegment{
				{Start: 0, End: 5, Text: "hello"},
				{Start: 5, End: 10, Text: "world"},
			},
		}, nil
	}}
	pipeline, objects, segments, videos := newTestPipeline(pipelineConfig(), transcriber)

	if err := pipeline.Run(context.Background(), "vid-1"); err != nil {
		t.Fatal(err)
	}

	if got := videos.status("vid-1"); got != models.StatusCompleted {
		t.Errorf("video status = %q, want completed", got)
	}

	stored, _ := segments.ListByVideo(context.Background(), "vid-1")
	if len(stored) != 2 {
		t.Fatalf("got %d segments, want 2", len(stored))
	}

	doc, err := objects.Get(context.Background(), "subtitles/vid-1.srt")
	if err != nil {
		t.Fatalf("subtitle document missing: %v", err)
	}
	decoded := DecodeSRT(string(doc))
	if len(decoded) != 2 || decoded[0].Text != "hello" {
		t.Errorf("unexpected subtitle document:\n%s", doc)
	}

	video, _ := videos.Get(context.Background(), "vid-1")
	if video.SegmentCount != 2 || video.SubtitleKey != "subtitles/vid-1.srt" {
		t.Errorf("video record not finalized: %+v", video)
	}
}

func TestPipelineRunIsIdempotent(t *testing.T) {
	transcriber := &fakeTranscriber{fn: func(path string) (*TranscriptionResult, error) {
		return &TranscriptionResult{
			Segments: []TranscribedSegment{{Start: 0, End: 5, Text: "hello"}},
		}, nil
	}}
	pipeline, _, segments, _ := newTestPipeline(pipelineConfig(), transcriber)

	for i := 0; i < 2; i++ {
		if err := pipeline.Run(context.Background(), "vid-1"); err != nil {
			t.Fatal(err)
		}
	}

	stored, _ := segments.ListByVideo(context.Background(), "vid-1")
	if len(stored) != 1 {
		t.Errorf("re-run doubled segments: got %d, want 1", len(stored))
	}
}

func TestPipelineRunAllChunksFailed(t *testing.T) {
	transcriber := &fakeTranscriber{fn: func(path string) (*TranscriptionResult, error) {
		return nil, errors.New("provider down")
	}}
	pipeline, _, _, videos := newTestPipeline(pipelineConfig(), transcriber)

	err := pipeline.Run(context.Background(), "vid-1")
	if !errors.Is(err, ErrAllChunksFailed) {
		t.Fatalf("got %v, want ErrAllChunksFailed", err)
	}
	if got := videos.status("vid-1"); got != models.StatusFailed {
		t.Errorf("video status = %q, want failed", got)
	}
}

func TestPipelineRunSurfacesCancellation(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	transcriber := &fakeTranscriber{fn: func(path string) (*TranscriptionResult, error) {
		cancel()
		return nil, ctx.Err()
	}}
	pipeline, _, segments, videos := newTestPipeline(pipelineConfig(), transcriber)
	segments.ReplaceForVideo(context.Background(), "vid-1", []models.Segment{
		{StartTime: 0, EndTime: 5, Text: "prior"},
	})

	err := pipeline.Run(ctx, "vid-1")
	if !errors.Is(err, context.Canceled) {
		t.Fatalf("got %v, want context.Canceled", err)
	}
	if got := videos.status("vid-1"); got == models.StatusFailed {
		t.Error("cancellation marked the video failed")
	}
	stored, _ := segments.ListByVideo(context.Background(), "vid-1")
	if len(stored) != 1 || stored[0].Text != "prior" {
		t.Errorf("canceled run touched the prior transcript: %+v", stored)
	}
}

func TestPipelineRunExtractionFailure(t *testing.T) {
	cfg := pipelineConfig()
	objects := newMemStorage()
	objects.objects["videos/vid-1.mp4"] = []byte("fake video bytes")
	ext := &fakeExtractor{extractErr: ErrExtraction}
	videos := newMemVideoStore(testVideo())
	pipeline := NewTranscriptPipeline(cfg, objects, ext, NewChunkPlanner(ext, cfg), nil, newMemSegmentStore(), videos)

	err := pipeline.Run(context.Background(), "vid-1")
	if !errors.Is(err, ErrExtraction) {
		t.Fatalf("got %v, want ErrExtraction", err)
	}
	if got := videos.status("vid-1"); got != models.StatusFailed {
		t.Errorf("video status = %q, want failed", got)
	}
}

func TestTranscribeChunksRebasesByOffset(t *testing.T) {
	dir := t.TempDir()
	chunks := []AudioChunk{
		{Index: 0, Path: dir + "/c0", Duration: 100, TimeOffset: 0},
		{Index: 1, Path: dir + "/c1", Duration: 100, TimeOffset: 100},
		{Index: 2, Path: dir + "/c2", Duration: 50, TimeOffset: 200},
	}
	transcriber := &fakeTranscriber{fn: func(path string) (*TranscriptionResult, error) {
		switch {
		case strings.HasSuffix(path, "c0"):
			return &TranscriptionResult{Segments: []TranscribedSegment{{Start: 0, End: 10, Text: "a"}}}, nil
		case strings.HasSuffix(path, "c1"):
			return &TranscriptionResult{Segments: []TranscribedSegment{{Start: 10, End: 20, Text: "b"}}}, nil
		default:
			return &TranscriptionResult{Segments: []TranscribedSegment{{Start: 5, End: 15, Text: "c"}}}, nil
		}
	}}
	pipeline, _, _, _ := newTestPipeline(pipelineConfig(), transcriber)

	segments, failed := pipeline.transcribeChunks(context.Background(), chunks)
	if failed != 0 {
		t.Fatalf("failed = %d, want 0", failed)
	}
	if len(segments) != 3 {
		t.Fatalf("got %d segments, want 3", len(segments))
	}
	// chunk 2's local [10,20] lands at [110,120] on the global timeline
	if segments[1].StartTime != 110 || segments[1].EndTime != 120 {
		t.Errorf("segment not rebased: %+v", segments[1])
	}
	if segments[2].StartTime != 205 || segments[2].EndTime != 215 {
		t.Errorf("segment not rebased: %+v", segments[2])
	}
}

func TestTranscribeChunksPartialFailure(t *testing.T) {
	dir := t.TempDir()
	chunks := []AudioChunk{
		{Index: 0, Path: dir + "/c0", Duration: 60, TimeOffset: 0},
		{Index: 1, Path: dir + "/c1", Duration: 60, TimeOffset: 60},
	}
	transcriber := &fakeTranscriber{fn: func(path string) (*TranscriptionResult, error) {
		if strings.HasSuffix(path, "c0") {
			return nil, errors.New("transient provider error")
		}
		return &TranscriptionResult{Segments: []TranscribedSegment{{Start: 0, End: 5, Text: "kept"}}}, nil
	}}
	pipeline, _, _, _ := newTestPipeline(pipelineConfig(), transcriber)

	segments, failed := pipeline.transcribeChunks(context.Background(), chunks)
	if failed != 1 {
		t.Fatalf("failed = %d, want 1", failed)
	}
	if len(segments) != 1 || segments[0].StartTime != 60 {
		t.Errorf("expected only the surviving chunk's rebased segment, got %+v", segments)
	}
}

func TestRebaseSegmentsDegradedResponse(t *testing.T) {
	chunk := AudioChunk{Duration: 50, TimeOffset: 200}
	result := &TranscriptionResult{Text: "  whole chunk text  "}

	segments := rebaseSegments(result, chunk)
	if len(segments) != 1 {
		t.Fatalf("got %d segments, want 1", len(segments))
	}
	s := segments[0]
	if s.StartTime != 200 || s.EndTime != 250 || s.Text != "whole chunk text" {
		t.Errorf("unexpected synthesized segment: %+v", s)
	}
}

func TestRebaseSegmentsDropsDegenerateSpans(t *testing.T) {
	chunk := AudioChunk{Duration: 30, TimeOffset: 0}
	result := &TranscriptionResult{Segments: []TranscribedSegment{
		{Start: 0, End: 5, Text: "ok"},
		{Start: 5, End: 5, Text: "zero width"},
		{Start: 8, End: 6, Text: "inverted"},
		{Start: 10, End: 12, Text: "   "},
	}}

	segments := rebaseSegments(result, chunk)
	if len(segments) != 1 || segments[0].Text != "ok" {
		t.Errorf("got %+v, want only the valid segment", segments)
	}
}

func TestRetryWithBackoff(t *testing.T) {
	calls := 0
	err := retryWithBackoff(context.Background(), 3, time.Millisecond, func() error {
		calls++
		if calls < 2 {
			return errors.New("transient")
		}
		return nil
	})
	if err != nil {
		t.Fatalf("retry did not recover: %v", err)
	}
	if calls != 2 {
		t.Errorf("calls = %d, want 2", calls)
	}
}

func TestRetryWithBackoffExhaustsAttempts(t *testing.T) {
	calls := 0
	wantErr := errors.New("always failing")
	err := retryWithBackoff(context.Background(), 3, time.Millisecond, func() error {
		calls++
		return wantErr
	})
	if !errors.Is(err, wantErr) {
		t.Fatalf("got %v, want last error", err)
	}
	if calls != 3 {
		t.Errorf("calls = %d, want 3", calls)
	}
}

func TestRetryWithBackoffStopsOnCancel(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	err := retryWithBackoff(ctx, 5, time.Millisecond, func() error {
		return errors.New("should not matter")
	})
	if !errors.Is(err, context.Canceled) {
		t.Fatalf("got %v, want context.Canceled", err)
	}
}
