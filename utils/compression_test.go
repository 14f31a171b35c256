package utils

import (
	"strings"
	"testing"
)

func TestCompressionRoundTrip(t *testing.T) {
	text := strings.Repeat("1\n00:00:00,000 --> 00:00:04,500\nWelcome to the lecture.\n\n", 50)

	for _, algo := range []CompressionAlgorithm{CompressionNone, CompressionGzip, CompressionBrotli} {
		compressed, err := CompressData([]byte(text), algo)
		if err != nil {
			t.Fatalf("%s: compress failed: %v", algo, err)
		}
		decompressed, err := DecompressData(compressed, algo)
		if err != nil {
			t.Fatalf("%s: decompress failed: %v", algo, err)
		}
		if string(decompressed) != text {
			t.Errorf("%s: round trip mismatch", algo)
		}
	}
}

func TestCompressTextPicksBrotliForLargePayloads(t *testing.T) {
	text := strings.Repeat("subtitle cue text ", 100)

	compressed, algo, err := CompressText(text)
	if err != nil {
		t.Fatal(err)
	}
	if algo != CompressionBrotli {
		t.Errorf("algorithm = %s, want brotli", algo)
	}
	if len(compressed) >= len(text) {
		t.Errorf("compressed size %d not smaller than input %d", len(compressed), len(text))
	}
}

func TestCompressTextSkipsSmallPayloads(t *testing.T) {
	_, algo, err := CompressText("tiny")
	if err != nil {
		t.Fatal(err)
	}
	if algo != CompressionNone {
		t.Errorf("algorithm = %s, want none for small payloads", algo)
	}
}

func TestDecompressRejectsUnknownAlgorithm(t *testing.T) {
	if _, err := DecompressData([]byte("data"), CompressionAlgorithm("zstd")); err == nil {
		t.Error("expected error for unsupported algorithm")
	}
}
