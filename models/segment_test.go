package models

import "testing"

func TestSegmentOverlaps(t *testing.T) {
	seg := Segment{StartTime: 10, EndTime: 20}

	cases := []struct {
		name   string
		lo, hi float64
		want   bool
	}{
		{"fully inside window", 0, 30, true},
		{"window inside segment", 12, 18, true},
		{"touches lower bound", 20, 30, true},
		{"touches upper bound", 0, 10, true},
		{"before window", 21, 30, false},
		{"after window", 0, 9, false},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if got := seg.Overlaps(tc.lo, tc.hi); got != tc.want {
				t.Errorf("Overlaps(%v, %v) = %v, want %v", tc.lo, tc.hi, got, tc.want)
			}
		})
	}
}

func TestSegmentHasEmbedding(t *testing.T) {
	if (Segment{}).HasEmbedding() {
		t.Error("segment without vector reports an embedding")
	}
	if !(Segment{Embedding: []float32{0.1}}).HasEmbedding() {
		t.Error("segment with vector reports no embedding")
	}
}
