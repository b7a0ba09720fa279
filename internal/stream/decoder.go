// Package stream implements the client side of the streaming response pipeline: decoding
// raw byte chunks into text fragments, the HTTP transport against the chat gateway, and
// the accumulator that folds fragments into a growing assistant message.
package stream

import (
	"iter"
	"unicode/utf8"
)

// Decoder converts a sequence of raw byte buffers into text, reassembling multi-byte
// UTF-8 sequences that were split across buffer boundaries. A Decoder is good for one
// stream only; create a fresh one per response.
type Decoder struct {
	carry []byte
}

// Write decodes one buffer and returns the text it completes. Bytes that form the start
// of an unfinished rune are held back until the next Write or Flush, so the returned
// string may be empty even for a non-empty input.
func (d *Decoder) Write(p []byte) string {
	if len(d.carry) > 0 {
		p = append(d.carry, p...)
		d.carry = nil
	}

	cut := len(p)
	for i := len(p) - 1; i >= 0 && len(p)-i < utf8.UTFMax; i-- {
		if utf8.RuneStart(p[i]) {
			if !utf8.FullRune(p[i:]) {
				cut = i
			}
			break
		}
	}

	if cut < len(p) {
		d.carry = append(d.carry, p[cut:]...)
	}
	return string(p[:cut])
}

// Flush emits the decoding of any trailing partial sequence after the final buffer. An
// incomplete rune left at the end of the stream becomes a single replacement character,
// matching what the browser TextDecoder would produce.
func (d *Decoder) Flush() string {
	if len(d.carry) == 0 {
		return ""
	}
	d.carry = nil
	return string(utf8.RuneError)
}

// Decode lifts a byte-chunk sequence into a text-fragment sequence using a fresh
// Decoder, flushing once the input is exhausted. Chunks that complete no rune yield no
// fragment.
func Decode(chunks iter.Seq2[[]byte, error]) iter.Seq2[string, error] {
	return func(yield func(string, error) bool) {
		var d Decoder
		for chunk, err := range chunks {
			if err != nil {
				yield("", err)
				return
			}
			text := d.Write(chunk)
			if text == "" {
				continue
			}
			if !yield(text, nil) {
				return
			}
		}
		if tail := d.Flush(); tail != "" {
			yield(tail, nil)
		}
	}
}
