// Package segment decides, as reply text arrives incrementally, when enough
// has accumulated to be worth synthesizing as one audio unit. It balances
// latency (speak early) against naturalness (don't cut mid-sentence,
// mid-number, or mid-link).
package segment

import (
	"strings"
	"unicode"
)

// Word-count threshold for finalizing chunk n is baseThreshold + thresholdStep*n.
// The growing threshold gives low-latency audio at the start of a reply while
// discouraging a flood of tiny clips as the reply grows.
const (
	baseThreshold = 16
	thresholdStep = 13
)

// NoChunk is the chunk id sentinel before anything has been finalized.
const NoChunk = -1

// Chunk is a finalized substring of the reply, ready for synthesis.
type Chunk struct {
	Index int
	Text  string
}

// Event describes the segmenter state after consuming one delta (or after the
// terminal flush). NewChunk is non-nil only when a chunk just finalized.
type Event struct {
	Response string
	NewChunk *Chunk
	ChunkID  int
	First    bool
	Last     bool
}

// Segmenter accumulates streamed text deltas and emits sentence-aligned (or
// threshold-forced) chunks. It is purely synchronous; one instance serves
// exactly one reply and is not safe for concurrent use.
type Segmenter struct {
	chunkID  int
	buffer   string
	response strings.Builder
	started  bool
}

// New returns a segmenter with no chunk finalized yet.
func New() *Segmenter {
	return &Segmenter{chunkID: NoChunk}
}

// Push consumes one text delta. A split only happens once the unflushed buffer
// exceeds the current word threshold and the delta carries a sentence ender.
// The '.' path is guarded against trailing digits ("3.14", "Step 1.") and
// unterminated {https:// links; '?' and '!' split unguarded. A delta whose
// ender is suppressed by a guard still lands in the buffer, so concatenating
// all chunks always reproduces the full reply.
func (s *Segmenter) Push(delta string) Event {
	s.response.WriteString(delta)

	ev := Event{First: !s.started}
	s.started = true

	if s.wordCount() > baseThreshold+thresholdStep*s.chunkID {
		switch {
		case strings.Contains(delta, ".") && !s.endsWithDigit() && !s.holdsOpenLink():
			ev.NewChunk = s.split(delta, ".")
		case strings.Contains(delta, "?"):
			ev.NewChunk = s.split(delta, "?")
		case strings.Contains(delta, "!"):
			ev.NewChunk = s.split(delta, "!")
		default:
			s.buffer += delta
		}
	} else {
		s.buffer += delta
	}

	ev.Response = s.response.String()
	ev.ChunkID = s.chunkID
	return ev
}

// Flush finalizes whatever remains in the buffer as one last chunk and emits
// the terminal event. A reply that never crossed a threshold yields exactly
// one chunk covering the whole text; an empty reply yields no chunk at all.
func (s *Segmenter) Flush() Event {
	ev := Event{Last: true}
	if s.buffer != "" {
		ev.First = !s.started
		s.chunkID++
		ev.NewChunk = &Chunk{Index: s.chunkID, Text: s.buffer}
		s.buffer = ""
	}
	s.started = true

	ev.Response = s.response.String()
	ev.ChunkID = s.chunkID
	return ev
}

// split finalizes buffer + delta up to and including the first ender; the rest
// of the delta seeds the next buffer.
func (s *Segmenter) split(delta, ender string) *Chunk {
	idx := strings.Index(delta, ender)
	s.chunkID++
	chunk := &Chunk{Index: s.chunkID, Text: s.buffer + delta[:idx+1]}
	s.buffer = delta[idx+1:]
	return chunk
}

func (s *Segmenter) wordCount() int {
	return len(strings.Fields(s.buffer))
}

func (s *Segmenter) endsWithDigit() bool {
	runes := []rune(s.buffer)
	if len(runes) == 0 {
		return false
	}
	return unicode.IsDigit(runes[len(runes)-1])
}

// holdsOpenLink reports whether the buffer carries a bracketed link marker
// that has not closed yet, in which case a '.' split would cut the URL.
func (s *Segmenter) holdsOpenLink() bool {
	return strings.Contains(s.buffer, "{https://") && !strings.Contains(s.buffer, "}")
}
