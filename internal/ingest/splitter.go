package ingest

import (
	"strings"
	"unicode/utf8"
)

const (
	DefaultChunkSize    = 500
	DefaultChunkOverlap = 100
)

// DefaultSeparators go from coarse to fine. CJK sentence punctuation sits
// next to the Latin one so mixed corpora split on sentence ends first.
var DefaultSeparators = []string{"\n\n", "\n", "。", "！", "？", ".", "!", "?", " ", ""}

// Splitter cuts text into chunks of at most size runes, trying the coarsest
// separator first and recursing into pieces that are still too long.
// Consecutive chunks share up to overlap runes.
type Splitter struct {
	size       int
	overlap    int
	separators []string
}

func NewSplitter(size, overlap int) *Splitter {
	if size <= 0 {
		size = DefaultChunkSize
	}
	if overlap < 0 || overlap >= size {
		overlap = min(DefaultChunkOverlap, size/5)
	}
	return &Splitter{
		size:       size,
		overlap:    overlap,
		separators: DefaultSeparators,
	}
}

func (s *Splitter) Split(text string) []string {
	var out []string
	for _, chunk := range s.split(text, s.separators) {
		if chunk = strings.TrimSpace(chunk); chunk != "" {
			out = append(out, chunk)
		}
	}
	return out
}

func (s *Splitter) split(text string, separators []string) []string {
	separator := ""
	var rest []string
	for i, sep := range separators {
		if sep == "" || strings.Contains(text, sep) {
			separator = sep
			rest = separators[i+1:]
			break
		}
	}

	var (
		chunks []string
		small  []string
	)
	for _, piece := range splitKeep(text, separator) {
		if utf8.RuneCountInString(piece) <= s.size {
			small = append(small, piece)
			continue
		}

		chunks = append(chunks, s.merge(small)...)
		small = nil

		if len(rest) == 0 {
			chunks = append(chunks, piece)
		} else {
			chunks = append(chunks, s.split(piece, rest)...)
		}
	}

	return append(chunks, s.merge(small)...)
}

// merge packs pieces into windows of at most size runes. When a window is
// full, pieces are dropped from its head until at most overlap runes remain
// to seed the next one.
func (s *Splitter) merge(pieces []string) []string {
	var (
		chunks  []string
		window  []string
		runeLen int
	)

	for _, piece := range pieces {
		n := utf8.RuneCountInString(piece)
		if runeLen+n > s.size && len(window) > 0 {
			chunks = append(chunks, strings.Join(window, ""))

			for runeLen > s.overlap || (runeLen+n > s.size && runeLen > 0) {
				runeLen -= utf8.RuneCountInString(window[0])
				window = window[1:]
			}
		}

		window = append(window, piece)
		runeLen += n
	}

	if len(window) > 0 {
		chunks = append(chunks, strings.Join(window, ""))
	}
	return chunks
}

// splitKeep splits text after every separator, keeping the separator at the
// end of its piece. An empty separator splits into runes.
func splitKeep(text, separator string) []string {
	if separator == "" {
		pieces := make([]string, 0, utf8.RuneCountInString(text))
		for _, r := range text {
			pieces = append(pieces, string(r))
		}
		return pieces
	}

	pieces := strings.SplitAfter(text, separator)
	if last := len(pieces) - 1; last >= 0 && pieces[last] == "" {
		pieces = pieces[:last]
	}
	return pieces
}
