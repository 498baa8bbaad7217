// Package chunker splits documents into overlapping, size-bounded chunks.
package chunker

import (
	"fmt"
	"strings"
	"unicode/utf8"

	"cloudwalk-rag/models"

	"github.com/google/uuid"
)

const (
	// DefaultChunkSize is the maximum chunk length in characters.
	DefaultChunkSize = 500
	// DefaultChunkOverlap is the maximum overlap between neighbouring chunks.
	DefaultChunkOverlap = 100
)

// DefaultSeparators are tried in order: paragraphs, lines, words, characters.
var DefaultSeparators = []string{"\n\n", "\n", " ", ""}

// chunkNamespace scopes the name-based chunk IDs.
var chunkNamespace = uuid.NewSHA1(uuid.NameSpaceURL, []byte("cloudwalk-rag/chunk"))

// Splitter is a recursive character text splitter. Lengths are counted in
// runes. The zero value is not usable; use New.
type Splitter struct {
	chunkSize  int
	overlap    int
	separators []string
}

// Option configures a Splitter.
type Option func(*Splitter)

// WithChunkSize sets the maximum chunk length.
func WithChunkSize(size int) Option {
	return func(s *Splitter) {
		if size > 0 {
			s.chunkSize = size
		}
	}
}

// WithOverlap sets the maximum overlap between consecutive chunks.
func WithOverlap(overlap int) Option {
	return func(s *Splitter) {
		if overlap >= 0 {
			s.overlap = overlap
		}
	}
}

// WithSeparators overrides the separator hierarchy. The empty separator is
// always appended so every piece can be cut down to size.
func WithSeparators(seps []string) Option {
	return func(s *Splitter) {
		if len(seps) == 0 {
			return
		}
		s.separators = append([]string(nil), seps...)
		if seps[len(seps)-1] != "" {
			s.separators = append(s.separators, "")
		}
	}
}

// New creates a Splitter. It fails if overlap is not smaller than chunk size.
func New(opts ...Option) (*Splitter, error) {
	s := &Splitter{
		chunkSize:  DefaultChunkSize,
		overlap:    DefaultChunkOverlap,
		separators: DefaultSeparators,
	}
	for _, opt := range opts {
		opt(s)
	}
	if s.overlap >= s.chunkSize {
		return nil, fmt.Errorf("chunk overlap (%d) must be smaller than chunk size (%d)", s.overlap, s.chunkSize)
	}
	return s, nil
}

// ChunkSize returns the configured maximum chunk length.
func (s *Splitter) ChunkSize() int { return s.chunkSize }

// Overlap returns the configured maximum overlap.
func (s *Splitter) Overlap() int { return s.overlap }

// Split chunks every document in order. Each chunk inherits a copy of its
// document's metadata. Output is fully determined by the input and settings.
func (s *Splitter) Split(docs []models.Document) []models.Chunk {
	var chunks []models.Chunk
	for _, doc := range docs {
		for i, seg := range s.segments(doc.Text) {
			chunks = append(chunks, models.Chunk{
				ID:        chunkID(doc.SourceURL, i, seg.text),
				SourceURL: doc.SourceURL,
				Index:     i,
				Text:      seg.text,
				Overlap:   seg.overlap,
				Meta:      copyMeta(doc.Meta),
			})
		}
	}
	return chunks
}

// SplitText splits a single text. Empty or blank input yields no chunks.
func (s *Splitter) SplitText(text string) []string {
	segs := s.segments(text)
	out := make([]string, len(segs))
	for i, seg := range segs {
		out[i] = seg.text
	}
	return out
}

// segment is an emitted chunk and the number of leading runes it shares with
// the chunk before it.
type segment struct {
	text    string
	overlap int
}

func (s *Splitter) segments(text string) []segment {
	text = strings.TrimSpace(text)
	if text == "" {
		return nil
	}
	return s.split(text, s.separators)
}

func (s *Splitter) split(text string, separators []string) []segment {
	var final []segment

	sep := separators[len(separators)-1]
	var rest []string
	for i, candidate := range separators {
		if candidate == "" {
			sep = candidate
			break
		}
		if strings.Contains(text, candidate) {
			sep = candidate
			rest = separators[i+1:]
			break
		}
	}

	var good []string
	for _, piece := range splitKeepingSeparator(text, sep) {
		// Single characters always merge, even when chunkSize is 1.
		if sep == "" || runeLen(piece) < s.chunkSize {
			good = append(good, piece)
			continue
		}
		if len(good) > 0 {
			final = append(final, s.merge(good)...)
			good = nil
		}
		final = append(final, s.split(piece, rest)...)
	}
	if len(good) > 0 {
		final = append(final, s.merge(good)...)
	}

	return final
}

// merge packs small pieces into chunks no longer than chunkSize, carrying
// trailing pieces of up to overlap characters into the next chunk. A chunk is
// only emitted once something other than whitespace was added after the
// previous one, so a carried tail never becomes a chunk of its own.
func (s *Splitter) merge(pieces []string) []segment {
	var out []segment
	var current []string
	total := 0
	carried := 0
	fresh := false

	emit := func() {
		if !fresh {
			return
		}
		if chunk := strings.TrimSpace(strings.Join(current, "")); chunk != "" {
			out = append(out, segment{text: chunk, overlap: carried})
		}
		fresh = false
	}

	for _, p := range pieces {
		n := runeLen(p)
		if total+n > s.chunkSize && len(current) > 0 {
			emit()
			for total > s.overlap || (total+n > s.chunkSize && total > 0) {
				total -= runeLen(current[0])
				current = current[1:]
			}
			carried = runeLen(strings.TrimSpace(strings.Join(current, "")))
		}
		current = append(current, p)
		total += n
		if strings.TrimSpace(p) != "" {
			fresh = true
		}
	}
	emit()

	return out
}

// splitKeepingSeparator splits text on sep, attaching each separator to the
// start of the piece that follows it. Empty pieces are dropped.
func splitKeepingSeparator(text, sep string) []string {
	if sep == "" {
		out := make([]string, 0, len(text))
		for _, r := range text {
			out = append(out, string(r))
		}
		return out
	}

	parts := strings.Split(text, sep)
	out := make([]string, 0, len(parts))
	for i, p := range parts {
		if i > 0 {
			p = sep + p
		}
		if p != "" {
			out = append(out, p)
		}
	}
	return out
}

func chunkID(source string, index int, text string) string {
	return uuid.NewSHA1(chunkNamespace, []byte(fmt.Sprintf("%s\x00%d\x00%s", source, index, text))).String()
}

func copyMeta(meta map[string]string) map[string]string {
	if meta == nil {
		return nil
	}
	out := make(map[string]string, len(meta))
	for k, v := range meta {
		out[k] = v
	}
	return out
}

func runeLen(s string) int { return utf8.RuneCountInString(s) }
