package services

import (
	"context"
	"math"
	"strings"
	"unicode/utf8"

	"lms-video-platform/internal/config"
	"lms-video-platform/models"
	"lms-video-platform/utils"
)

// NoContextText is returned when no segment overlaps the requested window.
// Callers treat it as a valid, expected result, never an error.
const NoContextText = "no context"

// ContextService answers "what was said near second N" by gathering the
// transcript text of every segment overlapping a window around the target
// timestamp.
type ContextService struct {
	segments      SegmentStore
	windowSeconds float64
	charBudget    int
}

func NewContextService(segments SegmentStore, cfg *config.Config) *ContextService {
	return &ContextService{
		segments:      segments,
		windowSeconds: cfg.ContextWindowSeconds,
		charBudget:    cfg.ContextCharBudget,
	}
}

// Extract returns the concatenated text of all segments overlapping
// [max(0, timestamp-window), timestamp+window]. The lower bound is clamped
// to zero explicitly; a negative window start is never computed.
func (s *ContextService) Extract(ctx context.Context, videoID string, timestamp, window float64) (*models.ContextResult, error) {
	if window <= 0 {
		window = s.windowSeconds
	}

	windowStart := math.Max(0, timestamp-window)
	windowEnd := timestamp + window

	dbCtx, cancel := utils.WithTimeout(ctx)
	defer cancel()
	segments, err := s.segments.ListOverlapping(dbCtx, videoID, windowStart, windowEnd)
	if err != nil {
		return nil, err
	}

	result := BuildContextWindow(segments, windowStart, windowEnd, s.charBudget)
	result.WindowStart = windowStart
	result.WindowEnd = windowEnd
	return &result, nil
}

// BuildContextWindow concatenates the text of segments overlapping
// [windowStart, windowEnd] in start-time order, truncated to charBudget with
// an ellipsis marker. Segments are re-checked for overlap so the function is
// correct on unfiltered input.
func BuildContextWindow(segments []models.Segment, windowStart, windowEnd float64, charBudget int) models.ContextResult {
	var parts []string
	for _, seg := range segments {
		if !seg.Overlaps(windowStart, windowEnd) {
			continue
		}
		text := strings.TrimSpace(seg.Text)
		if text == "" {
			continue
		}
		parts = append(parts, text)
	}

	if len(parts) == 0 {
		return models.ContextResult{Text: NoContextText, Found: false}
	}

	text := strings.Join(parts, " ")
	truncated := false
	if charBudget > 0 && len(text) > charBudget {
		// Back up to a rune boundary so the cut never emits invalid UTF-8.
		cut := charBudget
		for cut > 0 && !utf8.RuneStart(text[cut]) {
			cut--
		}
		text = text[:cut] + "..."
		truncated = true
	}

	return models.ContextResult{
		Text:      text,
		Segments:  len(parts),
		Found:     true,
		Truncated: truncated,
	}
}
