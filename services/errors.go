package services

import "errors"

// Pipeline error taxonomy. Extraction failures and a fully failed
// transcription run are fatal for the job; everything else degrades.
var (
	// ErrExtraction means the source had no decodable audio stream or the
	// decoder process failed. The run is aborted: no partial transcript is
	// better than a silently empty one.
	ErrExtraction = errors.New("audio extraction failed")

	// ErrChunkOversize means a chunk exceeded the provider byte ceiling even
	// after re-splitting down to the minimum duration floor.
	ErrChunkOversize = errors.New("audio chunk exceeds provider byte ceiling")

	// ErrAllChunksFailed means no chunk produced a usable transcription.
	ErrAllChunksFailed = errors.New("transcription failed for every chunk")

	// ErrEmptySource means the audio has zero duration or could not be probed.
	ErrEmptySource = errors.New("audio source is empty or unreadable")
)
