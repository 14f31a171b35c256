package services

import (
	"context"
	"fmt"
	"os"
	"sort"
	"sync"

	"go.mongodb.org/mongo-driver/bson/primitive"

	"lms-video-platform/models"
)

// fakeExtractor writes synthetic chunk files so planner and pipeline logic
// can be tested without ffmpeg.
type fakeExtractor struct {
	mu         sync.Mutex
	duration   float64
	sizeFor    func(start, dur float64) int
	extractErr error
	probeErr   error
	rangeCalls int
}

func (f *fakeExtractor) ExtractAudio(ctx context.Context, videoPath, audioPath string) error {
	if f.extractErr != nil {
		return f.extractErr
	}
	return os.WriteFile(audioPath, []byte("audio"), 0600)
}

func (f *fakeExtractor) ExtractRange(ctx context.Context, audioPath, chunkPath string, start, dur float64) error {
	f.mu.Lock()
	f.rangeCalls++
	f.mu.Unlock()

	size := 64
	if f.sizeFor != nil {
		size = f.sizeFor(start, dur)
	}
	return os.WriteFile(chunkPath, make([]byte, size), 0600)
}

func (f *fakeExtractor) Probe(ctx context.Context, path string) (float64, error) {
	if f.probeErr != nil {
		return 0, f.probeErr
	}
	return f.duration, nil
}

// fakeTranscriber resolves each chunk through a caller-supplied function.
type fakeTranscriber struct {
	mu    sync.Mutex
	fn    func(path string) (*TranscriptionResult, error)
	calls int
}

func (f *fakeTranscriber) Transcribe(ctx context.Context, audioPath string) (*TranscriptionResult, error) {
	f.mu.Lock()
	f.calls++
	f.mu.Unlock()
	return f.fn(audioPath)
}

// fakeEmbedder maps text to vectors.
type fakeEmbedder struct {
	fn func(text string) ([]float32, error)
}

func (f *fakeEmbedder) Embed(ctx context.Context, text string) ([]float32, error) {
	return f.fn(text)
}

// memStorage is an in-memory ObjectStorage.
type memStorage struct {
	mu      sync.Mutex
	objects map[string][]byte
}

func newMemStorage() *memStorage {
	return &memStorage{objects: make(map[string][]byte)}
}

func (m *memStorage) Put(ctx context.Context, key string, data []byte, contentType string) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	buf := make([]byte, len(data))
	copy(buf, data)
	m.objects[key] = buf
	return m.URL(key), nil
}

func (m *memStorage) Get(ctx context.Context, key string) ([]byte, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	data, ok := m.objects[key]
	if !ok {
		return nil, fmt.Errorf("object %s not found", key)
	}
	buf := make([]byte, len(data))
	copy(buf, data)
	return buf, nil
}

func (m *memStorage) Delete(ctx context.Context, key string) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	_, ok := m.objects[key]
	delete(m.objects, key)
	return ok, nil
}

func (m *memStorage) URL(key string) string {
	return "/files/" + key
}

// memVideoStore is an in-memory VideoStore.
type memVideoStore struct {
	mu     sync.Mutex
	videos map[string]*models.Video
}

func newMemVideoStore(videos ...*models.Video) *memVideoStore {
	s := &memVideoStore{videos: make(map[string]*models.Video)}
	for _, v := range videos {
		cp := *v
		s.videos[v.ID] = &cp
	}
	return s
}

func (s *memVideoStore) Insert(ctx context.Context, video *models.Video) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	cp := *video
	s.videos[video.ID] = &cp
	return nil
}

func (s *memVideoStore) Get(ctx context.Context, videoID string) (*models.Video, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	v, ok := s.videos[videoID]
	if !ok {
		return nil, fmt.Errorf("video %s not found", videoID)
	}
	cp := *v
	return &cp, nil
}

func (s *memVideoStore) List(ctx context.Context, page, limit int64) ([]models.Video, int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []models.Video
	for _, v := range s.videos {
		out = append(out, *v)
	}
	return out, int64(len(out)), nil
}

func (s *memVideoStore) UpdateStatus(ctx context.Context, videoID, status, errorMessage string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	v, ok := s.videos[videoID]
	if !ok {
		return fmt.Errorf("video %s not found", videoID)
	}
	v.Status = status
	v.ErrorMessage = errorMessage
	return nil
}

func (s *memVideoStore) SetTranscript(ctx context.Context, videoID, subtitleKey, subtitleURL string, segmentCount int, duration float64) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	v, ok := s.videos[videoID]
	if !ok {
		return fmt.Errorf("video %s not found", videoID)
	}
	v.Status = models.StatusCompleted
	v.SubtitleKey = subtitleKey
	v.SubtitleURL = subtitleURL
	v.SegmentCount = segmentCount
	v.Duration = duration
	return nil
}

func (s *memVideoStore) status(videoID string) string {
	s.mu.Lock()
	defer s.mu.Unlock()
	if v, ok := s.videos[videoID]; ok {
		return v.Status
	}
	return ""
}

// memSegmentStore is an in-memory SegmentStore.
type memSegmentStore struct {
	mu   sync.Mutex
	data map[string][]models.Segment
}

func newMemSegmentStore() *memSegmentStore {
	return &memSegmentStore{data: make(map[string][]models.Segment)}
}

func (s *memSegmentStore) ReplaceForVideo(ctx context.Context, videoID string, segments []models.Segment) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]models.Segment, len(segments))
	for i, seg := range segments {
		seg.ID = primitive.NewObjectID()
		seg.VideoID = videoID
		out[i] = seg
	}
	s.data[videoID] = out
	return nil
}

func (s *memSegmentStore) ListByVideo(ctx context.Context, videoID string) ([]models.Segment, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := append([]models.Segment(nil), s.data[videoID]...)
	sort.SliceStable(out, func(i, j int) bool { return out[i].StartTime < out[j].StartTime })
	return out, nil
}

func (s *memSegmentStore) ListOverlapping(ctx context.Context, videoID string, windowStart, windowEnd float64) ([]models.Segment, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []models.Segment
	for _, seg := range s.data[videoID] {
		if seg.Overlaps(windowStart, windowEnd) {
			out = append(out, seg)
		}
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].StartTime < out[j].StartTime })
	return out, nil
}

func (s *memSegmentStore) ListEmbedded(ctx context.Context, videoID string) ([]models.Segment, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []models.Segment
	for _, seg := range s.data[videoID] {
		if seg.HasEmbedding() {
			out = append(out, seg)
		}
	}
	return out, nil
}

func (s *memSegmentStore) ListMissingEmbedding(ctx context.Context, videoID string, limit int64) ([]models.Segment, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []models.Segment
	for vid, segs := range s.data {
		if videoID != "" && vid != videoID {
			continue
		}
		for _, seg := range segs {
			if !seg.HasEmbedding() {
				out = append(out, seg)
				if limit > 0 && int64(len(out)) >= limit {
					return out, nil
				}
			}
		}
	}
	return out, nil
}

func (s *memSegmentStore) SetEmbedding(ctx context.Context, id primitive.ObjectID, vector []float32) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for vid, segs := range s.data {
		for i := range segs {
			if segs[i].ID == id {
				s.data[vid][i].Embedding = vector
				return nil
			}
		}
	}
	return fmt.Errorf("segment %s not found", id.Hex())
}
