package stream_test

import (
	"iter"
	"testing"

	"counselweb/internal/stream"
)

func decodeAll(t *testing.T, chunks [][]byte) string {
	t.Helper()

	var d stream.Decoder
	out := ""
	for _, chunk := range chunks {
		out += d.Write(chunk)
	}
	return out + d.Flush()
}

func TestDecoderASCII(t *testing.T) {
	var d stream.Decoder

	if got := d.Write([]byte("Hello, ")); got != "Hello, " {
		t.Errorf("expected %q, got %q", "Hello, ", got)
	}
	if got := d.Write([]byte("world!")); got != "world!" {
		t.Errorf("expected %q, got %q", "world!", got)
	}
	if got := d.Flush(); got != "" {
		t.Errorf("expected empty flush, got %q", got)
	}
}

func TestDecoderSplitInvariance(t *testing.T) {
	// Mixed 1, 2, 3 and 4 byte sequences. Every split point must produce the
	// same text as decoding the whole buffer at once.
	const text = "Héllo, wörld! 你好, 世界 🌍🌎🌏 done"
	raw := []byte(text)

	for i := 0; i <= len(raw); i++ {
		got := decodeAll(t, [][]byte{raw[:i], raw[i:]})
		if got != text {
			t.Errorf("split at %d: expected %q, got %q", i, got, text)
		}
	}
}

func TestDecoderByteAtATime(t *testing.T) {
	const text = "héllo 🌍"
	raw := []byte(text)

	chunks := make([][]byte, 0, len(raw))
	for i := range raw {
		chunks = append(chunks, raw[i:i+1])
	}
	if got := decodeAll(t, chunks); got != text {
		t.Errorf("expected %q, got %q", text, got)
	}
}

func TestDecoderHoldsBackPartialRune(t *testing.T) {
	var d stream.Decoder

	raw := []byte("a🌍") // 🌍 is 4 bytes
	if got := d.Write(raw[:3]); got != "a" {
		t.Errorf("expected partial rune held back, got %q", got)
	}
	if got := d.Write(raw[3:]); got != "🌍" {
		t.Errorf("expected held bytes completed, got %q", got)
	}
}

func TestDecoderFlushReplacesTruncatedRune(t *testing.T) {
	var d stream.Decoder

	raw := []byte("ok🌍")
	if got := d.Write(raw[:len(raw)-2]); got != "ok" {
		t.Errorf("expected %q, got %q", "ok", got)
	}
	if got := d.Flush(); got != "�" {
		t.Errorf("expected replacement character, got %q", got)
	}
	// Flush drains the carry; a second call yields nothing.
	if got := d.Flush(); got != "" {
		t.Errorf("expected empty second flush, got %q", got)
	}
}

func TestDecodeSequence(t *testing.T) {
	raw := []byte("héllo")
	chunks := func(yield func([]byte, error) bool) {
		yield(raw[:2], nil) // splits é
		yield(raw[2:], nil)
	}

	var got []string
	for text, err := range stream.Decode(iter.Seq2[[]byte, error](chunks)) {
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		got = append(got, text)
	}

	if len(got) != 2 || got[0] != "h" || got[1] != "éllo" {
		t.Errorf("unexpected fragments: %q", got)
	}
}
