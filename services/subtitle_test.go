package services

import (
	"strings"
	"testing"

	"lms-video-platform/models"
)

func TestEncodeSRT(t *testing.T) {
	segments := []models.Segment{
		{StartTime: 0, EndTime: 4.5, Text: "Welcome to the lecture."},
		{StartTime: 4.5, EndTime: 9.25, Text: "Today we cover sorting."},
	}

	want := "1\n00:00:00,000 --> 00:00:04,500\nWelcome to the lecture.\n\n" +
		"2\n00:00:04,500 --> 00:00:09,250\nToday we cover sorting.\n\n"
	if got := EncodeSRT(segments); got != want {
		t.Errorf("EncodeSRT mismatch:\ngot:\n%q\nwant:\n%q", got, want)
	}
}

func TestEncodeSRTSkipsEmptyText(t *testing.T) {
	segments := []models.Segment{
		{StartTime: 0, EndTime: 1, Text: "first"},
		{StartTime: 1, EndTime: 2, Text: "   "},
		{StartTime: 2, EndTime: 3, Text: "third"},
	}

	doc := EncodeSRT(segments)
	if strings.Contains(doc, "00:00:01,000 --> 00:00:02,000") {
		t.Error("empty-text segment was emitted")
	}
	// numbering stays contiguous over emitted cues
	if !strings.Contains(doc, "2\n00:00:02,000") {
		t.Errorf("expected third segment to be cue 2:\n%s", doc)
	}
}

func TestDecodeSRTRoundTrip(t *testing.T) {
	in := []models.Segment{
		{StartTime: 0, EndTime: 4.5, Text: "Welcome to the lecture."},
		{StartTime: 4.5, EndTime: 9.25, Text: "Today we cover sorting."},
		{StartTime: 3599.999, EndTime: 3661.5, Text: "One hour in."},
	}

	out := DecodeSRT(EncodeSRT(in))
	if len(out) != len(in) {
		t.Fatalf("round trip: got %d segments, want %d", len(out), len(in))
	}
	for i := range in {
		if out[i].Text != in[i].Text {
			t.Errorf("segment %d text: got %q, want %q", i, out[i].Text, in[i].Text)
		}
		if diff := out[i].StartTime - in[i].StartTime; diff > 0.0005 || diff < -0.0005 {
			t.Errorf("segment %d start drifted: got %v, want %v", i, out[i].StartTime, in[i].StartTime)
		}
		if diff := out[i].EndTime - in[i].EndTime; diff > 0.0005 || diff < -0.0005 {
			t.Errorf("segment %d end drifted: got %v, want %v", i, out[i].EndTime, in[i].EndTime)
		}
	}
}

func TestDecodeSRTSkipsMalformedBlocks(t *testing.T) {
	doc := strings.Join([]string{
		"1",
		"00:00:00,000 --> 00:00:02,000",
		"good cue",
		"",
		"not-a-number",
		"00:00:02,000 --> 00:00:04,000",
		"bad index",
		"",
		"3",
		"garbage timestamp line",
		"bad timing",
		"",
		"4",
		"00:00:06,000 --> 00:00:08,000",
		"another good cue",
		"",
	}, "\n")

	segments := DecodeSRT(doc)
	if len(segments) != 2 {
		t.Fatalf("got %d segments, want 2: %+v", len(segments), segments)
	}
	if segments[0].Text != "good cue" || segments[1].Text != "another good cue" {
		t.Errorf("unexpected segments: %+v", segments)
	}
}

func TestDecodeSRTJoinsMultilineText(t *testing.T) {
	doc := "1\r\n00:00:00,000 --> 00:00:02,000\r\nline one\r\nline two\r\n\r\n"

	segments := DecodeSRT(doc)
	if len(segments) != 1 {
		t.Fatalf("got %d segments, want 1", len(segments))
	}
	if segments[0].Text != "line one line two" {
		t.Errorf("got %q, want joined text", segments[0].Text)
	}
}

func TestDecodeSRTSortsByStartTime(t *testing.T) {
	doc := "2\n00:00:10,000 --> 00:00:12,000\nlater\n\n" +
		"1\n00:00:01,000 --> 00:00:03,000\nearlier\n\n"

	segments := DecodeSRT(doc)
	if len(segments) != 2 {
		t.Fatalf("got %d segments, want 2", len(segments))
	}
	if segments[0].Text != "earlier" {
		t.Errorf("segments not sorted by start time: %+v", segments)
	}
}

func TestFormatSRTTime(t *testing.T) {
	cases := []struct {
		seconds float64
		want    string
	}{
		{0, "00:00:00,000"},
		{4.5, "00:00:04,500"},
		{3661.5, "01:01:01,500"},
		{-1, "00:00:00,000"},
		{0.0006, "00:00:00,001"},
	}
	for _, tc := range cases {
		if got := formatSRTTime(tc.seconds); got != tc.want {
			t.Errorf("formatSRTTime(%v) = %q, want %q", tc.seconds, got, tc.want)
		}
	}
}
