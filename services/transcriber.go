package services

import (
	"context"
	"fmt"
	"time"

	openai "github.com/sashabaranov/go-openai"

	"lms-video-platform/internal/config"
)

// TranscribedSegment is one provider-reported span of speech with timestamps
// local to the submitted chunk.
type TranscribedSegment struct {
	Start float64
	End   float64
	Text  string
}

// TranscriptionResult is the generic provider contract: fine-grained
// segments when available, otherwise plain text for the whole request.
type TranscriptionResult struct {
	Segments []TranscribedSegment
	Text     string
	Duration float64
}

// Transcriber converts one audio chunk into timestamped text.
type Transcriber interface {
	Transcribe(ctx context.Context, audioPath string) (*TranscriptionResult, error)
}

// WhisperTranscriber calls the OpenAI audio transcription API with verbose
// JSON so per-segment timestamps come back.
type WhisperTranscriber struct {
	client *openai.Client
	model  string
}

func NewWhisperTranscriber(cfg *config.Config) *WhisperTranscriber {
	return &WhisperTranscriber{
		client: openai.NewClient(cfg.OpenAIAPIKey),
		model:  cfg.WhisperModel,
	}
}

func (t *WhisperTranscriber) Transcribe(ctx context.Context, audioPath string) (*TranscriptionResult, error) {
	resp, err := t.client.CreateTranscription(ctx, openai.AudioRequest{
		Model:    t.model,
		FilePath: audioPath,
		Format:   openai.AudioResponseFormatVerboseJSON,
	})
	if err != nil {
		return nil, fmt.Errorf("transcription request failed: %w", err)
	}

	result := &TranscriptionResult{
		Text:     resp.Text,
		Duration: resp.Duration,
	}
	for _, seg := range resp.Segments {
		result.Segments = append(result.Segments, TranscribedSegment{
			Start: seg.Start,
			End:   seg.End,
			Text:  seg.Text,
		})
	}
	return result, nil
}

// retryWithBackoff runs fn up to attempts times with exponential delay.
// It stops early when the context is canceled; the last error is returned
// once the attempt budget is exhausted.
func retryWithBackoff(ctx context.Context, attempts int, baseDelay time.Duration, fn func() error) error {
	if attempts < 1 {
		attempts = 1
	}

	var lastErr error
	delay := baseDelay
	for i := 0; i < attempts; i++ {
		if err := ctx.Err(); err != nil {
			return err
		}

		lastErr = fn()
		if lastErr == nil {
			return nil
		}

		if i == attempts-1 {
			break
		}

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(delay):
		}
		delay *= 2
	}
	return lastErr
}
