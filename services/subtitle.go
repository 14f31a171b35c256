package services

import (
	"fmt"
	"math"
	"regexp"
	"sort"
	"strconv"
	"strings"

	"lms-video-platform/models"
)

// SRT subtitle codec. Encoding is lossless for timing at millisecond
// precision; decoding tolerates malformed cues and whitespace variations so
// a subtitle file with a few corrupt blocks still yields a usable transcript.

// EncodeSRT renders ordered segments as an SRT document. Segments whose text
// is empty after trimming are skipped; cue numbering is 1-based over the
// emitted cues.
func EncodeSRT(segments []models.Segment) string {
	var b strings.Builder
	index := 1
	for _, seg := range segments {
		text := strings.TrimSpace(seg.Text)
		if text == "" {
			continue
		}
		fmt.Fprintf(&b, "%d\n%s --> %s\n%s\n\n",
			index,
			formatSRTTime(seg.StartTime),
			formatSRTTime(seg.EndTime),
			text)
		index++
	}
	return b.String()
}

var (
	blockSplitRe = regexp.MustCompile(`\n\s*\n`)
	timeRangeRe  = regexp.MustCompile(`^(\d{2}):(\d{2}):(\d{2}),(\d{3})\s*-->\s*(\d{2}):(\d{2}):(\d{2}),(\d{3})$`)
)

// DecodeSRT parses an SRT document back into segments. Malformed blocks
// (unparsable index or timestamp, fewer than three lines) are skipped, not
// fatal. The result is sorted by start time because upstream ordering is not
// guaranteed.
func DecodeSRT(doc string) []models.Segment {
	doc = strings.ReplaceAll(doc, "\r\n", "\n")

	var segments []models.Segment
	for _, block := range blockSplitRe.Split(doc, -1) {
		block = strings.TrimSpace(block)
		if block == "" {
			continue
		}

		lines := strings.Split(block, "\n")
		if len(lines) < 3 {
			continue
		}

		if _, err := strconv.Atoi(strings.TrimSpace(lines[0])); err != nil {
			continue
		}

		start, end, ok := parseTimeRange(strings.TrimSpace(lines[1]))
		if !ok {
			continue
		}

		textLines := make([]string, 0, len(lines)-2)
		for _, line := range lines[2:] {
			textLines = append(textLines, strings.TrimSpace(line))
		}

		segments = append(segments, models.Segment{
			StartTime: start,
			EndTime:   end,
			Text:      strings.Join(textLines, " "),
		})
	}

	sort.SliceStable(segments, func(i, j int) bool {
		return segments[i].StartTime < segments[j].StartTime
	})
	return segments
}

func parseTimeRange(line string) (start, end float64, ok bool) {
	m := timeRangeRe.FindStringSubmatch(line)
	if m == nil {
		return 0, 0, false
	}
	return srtTimeSeconds(m[1], m[2], m[3], m[4]), srtTimeSeconds(m[5], m[6], m[7], m[8]), true
}

func srtTimeSeconds(hh, mm, ss, mmm string) float64 {
	h, _ := strconv.Atoi(hh)
	m, _ := strconv.Atoi(mm)
	s, _ := strconv.Atoi(ss)
	ms, _ := strconv.Atoi(mmm)
	return float64(h)*3600 + float64(m)*60 + float64(s) + float64(ms)/1000
}

// formatSRTTime renders seconds as HH:MM:SS,mmm.
func formatSRTTime(seconds float64) string {
	if seconds < 0 {
		seconds = 0
	}
	totalMs := int64(math.Round(seconds * 1000))
	h := totalMs / 3600000
	m := (totalMs % 3600000) / 60000
	s := (totalMs % 60000) / 1000
	ms := totalMs % 1000
	return fmt.Sprintf("%02d:%02d:%02d,%03d", h, m, s, ms)
}
