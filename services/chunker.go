package services

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"lms-video-platform/internal/config"
	"lms-video-platform/internal/logger"
)

// AudioChunk is a transient time-bounded slice of the source audio, sized to
// fit the transcription provider's request limit. It lives only for the
// duration of one pipeline run.
type AudioChunk struct {
	Index      int
	Path       string
	Duration   float64 // seconds
	ByteSize   int64
	TimeOffset float64 // start position in the global timeline
}

// ChunkPlanner splits long audio into chunks that individually stay under
// the provider byte ceiling while covering the full duration with no gaps or
// overlaps, using as few chunks as the size estimate allows.
type ChunkPlanner struct {
	extractor    AudioExtractor
	byteCeiling  int64
	safetyMargin float64
	minSeconds   float64
	maxSeconds   float64
	floorSeconds float64
}

func NewChunkPlanner(extractor AudioExtractor, cfg *config.Config) *ChunkPlanner {
	return &ChunkPlanner{
		extractor:    extractor,
		byteCeiling:  cfg.ProviderByteCeiling,
		safetyMargin: cfg.ChunkSafetyMargin,
		minSeconds:   cfg.MinChunkSeconds,
		maxSeconds:   cfg.MaxChunkSeconds,
		floorSeconds: cfg.ChunkFloorSeconds,
	}
}

// Plan produces the ordered chunk list for one audio file. Chunk files are
// written into scratchDir, which the caller owns and removes.
func (p *ChunkPlanner) Plan(ctx context.Context, audioPath, scratchDir string) ([]AudioChunk, error) {
	info, err := os.Stat(audioPath)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrEmptySource, err)
	}
	fileSize := info.Size()

	totalDuration, err := p.extractor.Probe(ctx, audioPath)
	if err != nil {
		return nil, err
	}
	if totalDuration <= 0 {
		return nil, fmt.Errorf("%w: zero duration", ErrEmptySource)
	}

	// Whole file fits: one chunk, no splitting overhead.
	if fileSize <= p.byteCeiling {
		return []AudioChunk{{
			Index:      0,
			Path:       audioPath,
			Duration:   totalDuration,
			ByteSize:   fileSize,
			TimeOffset: 0,
		}}, nil
	}

	step := p.targetChunkSeconds(totalDuration, fileSize)

	var chunks []AudioChunk
	seq := 0
	for start := 0.0; start < totalDuration; start += step {
		dur := step
		if start+dur > totalDuration {
			dur = totalDuration - start
		}
		pieces, err := p.extractPieces(ctx, audioPath, scratchDir, start, dur, &seq)
		if err != nil {
			return nil, err
		}
		chunks = append(chunks, pieces...)
	}

	for i := range chunks {
		chunks[i].Index = i
	}
	return chunks, nil
}

// targetChunkSeconds estimates a chunk duration that lands each chunk at a
// safety margin below the byte ceiling, clamped into a sane band so a bad
// size estimate cannot produce degenerate one-second or multi-hour chunks.
func (p *ChunkPlanner) targetChunkSeconds(totalDuration float64, fileSize int64) float64 {
	targetBytes := float64(p.byteCeiling) * p.safetyMargin
	step := totalDuration * (targetBytes / float64(fileSize))
	if step < p.minSeconds {
		step = p.minSeconds
	}
	if step > p.maxSeconds {
		step = p.maxSeconds
	}
	return step
}

// extractPieces extracts [start, start+dur) as one chunk, re-splitting at
// half duration when the measured encoded size still exceeds the ceiling
// (variable bitrate makes the estimate lossy). Recursion is bounded by the
// duration floor: an oversize chunk whose halves would fall below it fails
// the run fast instead of halving forever. A short chunk that fits under
// the ceiling is always emitted as-is; the final chunk of a file is
// routinely shorter than the floor.
func (p *ChunkPlanner) extractPieces(ctx context.Context, audioPath, scratchDir string, start, dur float64, seq *int) ([]AudioChunk, error) {
	chunkPath := filepath.Join(scratchDir, fmt.Sprintf("chunk_%04d.mp3", *seq))
	*seq++

	if err := p.extractor.ExtractRange(ctx, audioPath, chunkPath, start, dur); err != nil {
		return nil, err
	}

	info, err := os.Stat(chunkPath)
	if err != nil {
		return nil, fmt.Errorf("%w: stat chunk: %v", ErrExtraction, err)
	}

	if info.Size() <= p.byteCeiling {
		return []AudioChunk{{
			Path:       chunkPath,
			Duration:   dur,
			ByteSize:   info.Size(),
			TimeOffset: start,
		}}, nil
	}

	_ = os.Remove(chunkPath)

	half := dur / 2
	if half < p.floorSeconds {
		return nil, fmt.Errorf("%w: cannot split below %.1fs floor at offset %.2fs", ErrChunkOversize, p.floorSeconds, start)
	}

	logger.Warn("chunk oversize, re-splitting at half duration",
		"offset", start, "duration", dur, "bytes", info.Size(), "ceiling", p.byteCeiling)

	left, err := p.extractPieces(ctx, audioPath, scratchDir, start, half, seq)
	if err != nil {
		return nil, err
	}
	right, err := p.extractPieces(ctx, audioPath, scratchDir, start+half, dur-half, seq)
	if err != nil {
		return nil, err
	}
	return append(left, right...), nil
}
