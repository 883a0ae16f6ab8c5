package docstore

import (
	"strings"

	"github.com/user/docchat/internal/index"
)

// Splitter cuts extracted text into overlapping windows sized for embedding.
// Window boundaries prefer natural breakpoints, trying paragraph, then
// sentence, then word breaks before falling back to a hard cut, so chunks
// avoid severing meaningful content where avoidable.
type Splitter struct {
	size    int
	overlap int
}

const (
	DefaultChunkSize    = 256
	DefaultChunkOverlap = 50
)

// NewSplitter creates a splitter with the given window size and overlap in
// characters. Non-positive values fall back to the defaults; overlap is
// clamped below size.
func NewSplitter(size, overlap int) *Splitter {
	if size <= 0 {
		size = DefaultChunkSize
	}
	if overlap < 0 {
		overlap = DefaultChunkOverlap
	}
	if overlap >= size {
		overlap = size / 4
	}
	return &Splitter{size: size, overlap: overlap}
}

// Split chunks text, tagging every chunk with source as its provenance.
func (s *Splitter) Split(text, source string) []index.Chunk {
	runes := []rune(text)
	var chunks []index.Chunk
	start := 0
	ordinal := 0
	for start < len(runes) {
		end := start + s.size
		if end >= len(runes) {
			end = len(runes)
		} else {
			end = s.breakpoint(runes, start, end)
		}

		piece := strings.TrimSpace(string(runes[start:end]))
		if piece != "" {
			chunks = append(chunks, index.Chunk{Source: source, Text: piece, Ordinal: ordinal})
			ordinal++
		}
		if end == len(runes) {
			break
		}
		next := end - s.overlap
		if next <= start {
			next = start + 1
		}
		start = next
	}
	return chunks
}

// breakpoint picks the cut position inside runes[start:limit]. A candidate
// break is only taken when it lands in the second half of the window;
// otherwise the window would degenerate into slivers.
func (s *Splitter) breakpoint(runes []rune, start, limit int) int {
	min := start + s.size/2
	window := string(runes[min:limit])

	for _, sep := range []string{"\n\n", ". ", "! ", "? ", "\n", " "} {
		if i := strings.LastIndex(window, sep); i >= 0 {
			return min + len([]rune(window[:i])) + len([]rune(sep))
		}
	}
	return limit
}
