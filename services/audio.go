package services

import (
	"context"
	"fmt"
	"os/exec"
	"regexp"
	"strconv"
	"strings"
)

// AudioExtractor demuxes and slices audio for transcription. The real
// implementation shells out to ffmpeg; tests inject a fake so pipeline logic
// stays isolated from process execution.
type AudioExtractor interface {
	// ExtractAudio demuxes a single mono 16kHz low-bitrate track from the
	// source video into audioPath. The output carries no video stream.
	ExtractAudio(ctx context.Context, videoPath, audioPath string) error

	// ExtractRange re-encodes [start, start+duration) seconds of audioPath
	// into chunkPath.
	ExtractRange(ctx context.Context, audioPath, chunkPath string, start, duration float64) error

	// Probe returns the duration of a media file in seconds.
	Probe(ctx context.Context, path string) (float64, error)
}

// commandRunner abstracts subprocess execution for testability.
type commandRunner interface {
	CombinedOutput(ctx context.Context, name string, args []string) ([]byte, error)
}

type osCommandRunner struct{}

func (osCommandRunner) CombinedOutput(ctx context.Context, name string, args []string) ([]byte, error) {
	return exec.CommandContext(ctx, name, args...).CombinedOutput()
}

// FFmpegExtractor implements AudioExtractor with an external ffmpeg binary.
type FFmpegExtractor struct {
	ffmpegPath string
	sampleRate int
	bitrateK   int
	cmd        commandRunner
}

func NewFFmpegExtractor(ffmpegPath string, sampleRate, bitrateK int) *FFmpegExtractor {
	if ffmpegPath == "" {
		ffmpegPath = "ffmpeg"
	}
	return &FFmpegExtractor{
		ffmpegPath: ffmpegPath,
		sampleRate: sampleRate,
		bitrateK:   bitrateK,
		cmd:        osCommandRunner{},
	}
}

func (e *FFmpegExtractor) ExtractAudio(ctx context.Context, videoPath, audioPath string) error {
	args := []string{
		"-y",
		"-i", videoPath,
		"-vn", // strip video stream
		"-ac", "1",
		"-ar", strconv.Itoa(e.sampleRate),
		"-b:a", fmt.Sprintf("%dk", e.bitrateK),
		audioPath,
	}

	output, err := e.cmd.CombinedOutput(ctx, e.ffmpegPath, args)
	if err != nil {
		return fmt.Errorf("%w: ffmpeg exited with error: %v\noutput: %s", ErrExtraction, err, truncateOutput(output))
	}
	if strings.Contains(string(output), "does not contain any stream") {
		return fmt.Errorf("%w: source has no decodable audio stream", ErrExtraction)
	}
	return nil
}

func (e *FFmpegExtractor) ExtractRange(ctx context.Context, audioPath, chunkPath string, start, duration float64) error {
	args := []string{
		"-y",
		"-i", audioPath,
		"-ss", formatFFmpegTime(start),
		"-t", formatFFmpegTime(duration),
		"-ac", "1",
		"-ar", strconv.Itoa(e.sampleRate),
		"-b:a", fmt.Sprintf("%dk", e.bitrateK),
		chunkPath,
	}

	output, err := e.cmd.CombinedOutput(ctx, e.ffmpegPath, args)
	if err != nil {
		return fmt.Errorf("%w: failed to extract range [%.2f, %.2f): %v\noutput: %s",
			ErrExtraction, start, start+duration, err, truncateOutput(output))
	}
	return nil
}

// Probe parses the media duration from ffmpeg's own stderr banner; ffprobe
// may not be installed alongside the ffmpeg binary.
func (e *FFmpegExtractor) Probe(ctx context.Context, path string) (float64, error) {
	args := []string{
		"-i", path,
		"-f", "null", "-",
	}
	output, err := e.cmd.CombinedOutput(ctx, e.ffmpegPath, args)
	if err != nil && len(output) == 0 {
		// ffmpeg returns non-zero even when it reads file info, so parse the
		// output unless there is nothing to parse.
		return 0, fmt.Errorf("%w: %v", ErrEmptySource, err)
	}

	return parseFFmpegDuration(string(output))
}

var durationRe = regexp.MustCompile(`Duration:\s*(\d+):(\d+):(\d+)\.(\d+)`)

// parseFFmpegDuration extracts "Duration: HH:MM:SS.cc" from ffmpeg output.
func parseFFmpegDuration(output string) (float64, error) {
	matches := durationRe.FindStringSubmatch(output)
	if matches == nil {
		return 0, fmt.Errorf("%w: could not parse duration from ffmpeg output", ErrEmptySource)
	}

	h, _ := strconv.Atoi(matches[1])
	m, _ := strconv.Atoi(matches[2])
	s, _ := strconv.Atoi(matches[3])
	frac, _ := strconv.Atoi(matches[4])

	fracSec := float64(frac)
	for i := 0; i < len(matches[4]); i++ {
		fracSec /= 10
	}

	return float64(h)*3600 + float64(m)*60 + float64(s) + fracSec, nil
}

// formatFFmpegTime formats seconds for ffmpeg -ss/-t arguments.
func formatFFmpegTime(seconds float64) string {
	h := int(seconds) / 3600
	m := (int(seconds) % 3600) / 60
	s := seconds - float64(h*3600+m*60)
	return fmt.Sprintf("%02d:%02d:%06.3f", h, m, s)
}

func truncateOutput(output []byte) string {
	const maxLen = 2048
	if len(output) > maxLen {
		return string(output[len(output)-maxLen:])
	}
	return string(output)
}
