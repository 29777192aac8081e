// Package chunk splits extracted document text into overlapping pieces
// sized for embedding. The splitter is recursive: it prefers paragraph
// boundaries, then line breaks, then sentence ends, then word boundaries,
// and only cuts mid-word when a single word exceeds the chunk size.
package chunk

import (
	"strings"
	"unicode/utf8"
)

// Options controls the splitter. Sizes are in characters (runes), matching
// the embedding window the index is tuned for.
type Options struct {
	ChunkSize int // max characters per chunk (default 1000)
	Overlap   int // characters repeated from the previous chunk (default 200)
}

func (o *Options) defaults() {
	if o.ChunkSize <= 0 {
		o.ChunkSize = 1000
	}
	if o.Overlap < 0 {
		o.Overlap = 0
	}
	if o.Overlap == 0 {
		o.Overlap = 200
	}
	if o.Overlap >= o.ChunkSize {
		o.Overlap = o.ChunkSize / 5
	}
}

// Chunk is one piece of a split document.
type Chunk struct {
	Text        string
	Index       int
	CharCount   int // rune count of Text
	OverlapPrev int // runes shared with the previous chunk
}

// separators is the boundary preference order for recursive splitting.
var separators = []string{"\n\n", "\n", ". ", " "}

// Split cuts text into chunks of at most opts.ChunkSize characters with
// opts.Overlap characters of context repeated between consecutive chunks.
// Returns nil for empty or whitespace-only input.
func Split(text string, opts Options) []Chunk {
	opts.defaults()
	text = strings.TrimSpace(text)
	if text == "" {
		return nil
	}

	frags := fragments(text, opts.ChunkSize, separators)
	return merge(frags, opts.ChunkSize, opts.Overlap)
}

// EstimateTokens approximates the LLM token count of text. The usual
// heuristic for latin-script prose is about four characters per token.
func EstimateTokens(text string) int {
	n := utf8.RuneCountInString(text)
	if n == 0 {
		return 0
	}
	return (n + 3) / 4
}

// fragments recursively splits text into pieces no longer than size,
// cutting at the coarsest separator that produces conforming pieces.
func fragments(text string, size int, seps []string) []string {
	if utf8.RuneCountInString(text) <= size {
		return []string{text}
	}
	if len(seps) == 0 {
		return hardSplit(text, size)
	}

	// SplitAfter keeps the separator attached to the preceding part so
	// joining fragments reproduces the original text.
	parts := strings.SplitAfter(text, seps[0])
	if len(parts) == 1 {
		// Separator absent, try the next finer one.
		return fragments(text, size, seps[1:])
	}

	var out []string
	for _, p := range parts {
		if p == "" {
			continue
		}
		if utf8.RuneCountInString(p) <= size {
			out = append(out, p)
		} else {
			out = append(out, fragments(p, size, seps[1:])...)
		}
	}
	return out
}

// hardSplit cuts text into fixed rune windows. Last resort for pathological
// input with no usable boundaries.
func hardSplit(text string, size int) []string {
	runes := []rune(text)
	var out []string
	for start := 0; start < len(runes); start += size {
		end := start + size
		if end > len(runes) {
			end = len(runes)
		}
		out = append(out, string(runes[start:end]))
	}
	return out
}

// merge greedily packs fragments into chunks of at most size runes, seeding
// each chunk after the first with the overlap tail of its predecessor.
func merge(frags []string, size, overlap int) []Chunk {
	var chunks []Chunk
	var sb strings.Builder
	current := 0 // rune count of sb
	overlapLen := 0

	flush := func() {
		text := strings.TrimSpace(sb.String())
		if text != "" {
			chunks = append(chunks, Chunk{
				Text:        text,
				Index:       len(chunks),
				CharCount:   utf8.RuneCountInString(text),
				OverlapPrev: overlapLen,
			})
		}
		sb.Reset()
		current = 0
	}

	for _, f := range frags {
		fLen := utf8.RuneCountInString(f)
		if current > 0 && current+fLen > size {
			prev := sb.String()
			flush()

			tail := overlapTail(prev, overlap)
			tailLen := utf8.RuneCountInString(tail)
			if tailLen+fLen > size {
				tail = ""
				tailLen = 0
			}
			overlapLen = tailLen
			if tail != "" {
				sb.WriteString(tail)
				current = tailLen
			}
		}
		sb.WriteString(f)
		current += fLen
	}
	flush()

	// The first chunk carries no overlap by construction.
	if len(chunks) > 0 {
		chunks[0].OverlapPrev = 0
	}
	return chunks
}

// overlapTail returns at most the last n runes of text, shrunk to the
// nearest word boundary so the overlap does not start mid-word.
func overlapTail(text string, n int) string {
	if n <= 0 {
		return ""
	}
	runes := []rune(text)
	if len(runes) <= n {
		return text
	}
	start := len(runes) - n
	for start < len(runes) && runes[start] != ' ' && runes[start] != '\n' {
		start++
	}
	return strings.TrimLeft(string(runes[start:]), " \n")
}
